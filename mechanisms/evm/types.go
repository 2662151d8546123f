package evm

import (
	"context"
	"fmt"
	"math/big"

	x402 "github.com/x402-foundation/x402-interceptor"
)

// SignedAuthorization is the signed artifact produced by one of the EVM strategies.
// It serializes into the "payload" field of the payment header.
type SignedAuthorization interface {
	AuthorizationType() x402.AuthorizationType
	ToMap() map[string]interface{}
}

// ExactEIP3009Authorization represents the EIP-3009 TransferWithAuthorization data
type ExactEIP3009Authorization struct {
	From        string `json:"from"`        // Ethereum address (hex)
	To          string `json:"to"`          // Ethereum address (hex)
	Value       string `json:"value"`       // Amount in the token's smallest unit
	ValidAfter  string `json:"validAfter"`  // Unix timestamp as string
	ValidBefore string `json:"validBefore"` // Unix timestamp as string
	Nonce       string `json:"nonce"`       // 32-byte nonce as hex string
}

// ExactEIP3009Payload represents a signed EIP-3009 authorization
type ExactEIP3009Payload struct {
	Signature     string                    `json:"signature,omitempty"`
	Authorization ExactEIP3009Authorization `json:"authorization"`
}

// AuthorizationType implements SignedAuthorization
func (p *ExactEIP3009Payload) AuthorizationType() x402.AuthorizationType {
	return x402.AuthorizationTypeEIP3009
}

// ToMap converts an ExactEIP3009Payload to a map for JSON marshaling
func (p *ExactEIP3009Payload) ToMap() map[string]interface{} {
	result := map[string]interface{}{
		"authorization": map[string]interface{}{
			"from":        p.Authorization.From,
			"to":          p.Authorization.To,
			"value":       p.Authorization.Value,
			"validAfter":  p.Authorization.ValidAfter,
			"validBefore": p.Authorization.ValidBefore,
			"nonce":       p.Authorization.Nonce,
		},
	}
	if p.Signature != "" {
		result["signature"] = p.Signature
	}
	return result
}

// PayloadFromMap creates an ExactEIP3009Payload from a map
func PayloadFromMap(data map[string]interface{}) (*ExactEIP3009Payload, error) {
	auth, ok := data["authorization"].(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("missing or invalid authorization field")
	}

	payload := &ExactEIP3009Payload{}
	payload.Signature, _ = data["signature"].(string)

	fields := map[string]*string{
		"from":        &payload.Authorization.From,
		"to":          &payload.Authorization.To,
		"value":       &payload.Authorization.Value,
		"validAfter":  &payload.Authorization.ValidAfter,
		"validBefore": &payload.Authorization.ValidBefore,
		"nonce":       &payload.Authorization.Nonce,
	}
	if err := readStrings(auth, "authorization", fields); err != nil {
		return nil, err
	}

	return payload, nil
}

// ExactPermitAuthorization represents the EIP-2612 Permit message that was signed
type ExactPermitAuthorization struct {
	Owner    string `json:"owner"`    // Token holder (hex)
	Spender  string `json:"spender"`  // Contract allowed to pull the funds (hex)
	Value    string `json:"value"`    // Amount in the token's smallest unit
	Nonce    string `json:"nonce"`    // Token contract nonce for owner (decimal)
	Deadline string `json:"deadline"` // Unix timestamp as string
}

// ExactPermitPayload represents a signed EIP-2612 permit
type ExactPermitPayload struct {
	Signature string                   `json:"signature"`
	Permit    ExactPermitAuthorization `json:"permit"`
}

// AuthorizationType implements SignedAuthorization
func (p *ExactPermitPayload) AuthorizationType() x402.AuthorizationType {
	return x402.AuthorizationTypePermit
}

// ToMap converts an ExactPermitPayload to a map for JSON marshaling
func (p *ExactPermitPayload) ToMap() map[string]interface{} {
	return map[string]interface{}{
		"signature": p.Signature,
		"permit": map[string]interface{}{
			"owner":    p.Permit.Owner,
			"spender":  p.Permit.Spender,
			"value":    p.Permit.Value,
			"nonce":    p.Permit.Nonce,
			"deadline": p.Permit.Deadline,
		},
	}
}

// PermitPayloadFromMap creates an ExactPermitPayload from a map
func PermitPayloadFromMap(data map[string]interface{}) (*ExactPermitPayload, error) {
	permit, ok := data["permit"].(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("missing or invalid permit field")
	}

	payload := &ExactPermitPayload{}
	payload.Signature, _ = data["signature"].(string)

	fields := map[string]*string{
		"owner":    &payload.Permit.Owner,
		"spender":  &payload.Permit.Spender,
		"value":    &payload.Permit.Value,
		"nonce":    &payload.Permit.Nonce,
		"deadline": &payload.Permit.Deadline,
	}
	if err := readStrings(permit, "permit", fields); err != nil {
		return nil, err
	}

	return payload, nil
}

// Permit2TokenPermissions represents the permitted token and amount for Permit2.
type Permit2TokenPermissions struct {
	Token  string `json:"token"`  // Token contract address (hex)
	Amount string `json:"amount"` // Amount in smallest unit as decimal string
}

// Permit2Witness represents the witness data checked by the x402 Permit2 proxy.
// The upper time bound is Permit2's deadline, not a witness field.
type Permit2Witness struct {
	To         string `json:"to"`         // Destination address for funds (hex)
	ValidAfter string `json:"validAfter"` // Unix timestamp (decimal string)
	Extra      string `json:"extra"`      // Extra data (hex, "0x" when empty)
}

// Permit2Authorization maps to the PermitWitnessTransferFrom struct of the Permit2 contract.
type Permit2Authorization struct {
	From      string                  `json:"from"`      // Signer/owner address (hex)
	Permitted Permit2TokenPermissions `json:"permitted"` // Token and amount permitted
	Spender   string                  `json:"spender"`   // Must be the x402 Permit2 proxy
	Nonce     string                  `json:"nonce"`     // uint256 nonce as decimal string
	Deadline  string                  `json:"deadline"`  // Unix timestamp as decimal string
	Witness   Permit2Witness          `json:"witness"`
}

// ExactPermit2Payload represents a signed Permit2 authorization.
type ExactPermit2Payload struct {
	Signature            string               `json:"signature"`
	Permit2Authorization Permit2Authorization `json:"permit2Authorization"`
}

// AuthorizationType implements SignedAuthorization
func (p *ExactPermit2Payload) AuthorizationType() x402.AuthorizationType {
	return x402.AuthorizationTypePermit2
}

// ToMap converts an ExactPermit2Payload to a map for JSON marshaling.
func (p *ExactPermit2Payload) ToMap() map[string]interface{} {
	return map[string]interface{}{
		"signature": p.Signature,
		"permit2Authorization": map[string]interface{}{
			"from": p.Permit2Authorization.From,
			"permitted": map[string]interface{}{
				"token":  p.Permit2Authorization.Permitted.Token,
				"amount": p.Permit2Authorization.Permitted.Amount,
			},
			"spender":  p.Permit2Authorization.Spender,
			"nonce":    p.Permit2Authorization.Nonce,
			"deadline": p.Permit2Authorization.Deadline,
			"witness": map[string]interface{}{
				"to":         p.Permit2Authorization.Witness.To,
				"validAfter": p.Permit2Authorization.Witness.ValidAfter,
				"extra":      p.Permit2Authorization.Witness.Extra,
			},
		},
	}
}

// Permit2PayloadFromMap creates an ExactPermit2Payload from a map.
func Permit2PayloadFromMap(data map[string]interface{}) (*ExactPermit2Payload, error) {
	auth, ok := data["permit2Authorization"].(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("missing or invalid permit2Authorization field")
	}

	payload := &ExactPermit2Payload{}
	payload.Signature, _ = data["signature"].(string)
	a := &payload.Permit2Authorization

	if err := readStrings(auth, "permit2Authorization", map[string]*string{
		"from":     &a.From,
		"spender":  &a.Spender,
		"nonce":    &a.Nonce,
		"deadline": &a.Deadline,
	}); err != nil {
		return nil, err
	}

	permitted, ok := auth["permitted"].(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("missing or invalid permit2Authorization.permitted field")
	}
	if err := readStrings(permitted, "permit2Authorization.permitted", map[string]*string{
		"token":  &a.Permitted.Token,
		"amount": &a.Permitted.Amount,
	}); err != nil {
		return nil, err
	}

	witness, ok := auth["witness"].(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("missing or invalid permit2Authorization.witness field")
	}
	if err := readStrings(witness, "permit2Authorization.witness", map[string]*string{
		"to":         &a.Witness.To,
		"validAfter": &a.Witness.ValidAfter,
	}); err != nil {
		return nil, err
	}

	if extra, ok := witness["extra"].(string); ok {
		a.Witness.Extra = extra
	} else {
		a.Witness.Extra = "0x"
	}

	return payload, nil
}

// ParseSignedAuthorization rebuilds the typed authorization from a decoded header payload
func ParseSignedAuthorization(authType x402.AuthorizationType, data map[string]interface{}) (SignedAuthorization, error) {
	switch authType {
	case x402.AuthorizationTypeEIP3009:
		return PayloadFromMap(data)
	case x402.AuthorizationTypePermit:
		return PermitPayloadFromMap(data)
	case x402.AuthorizationTypePermit2:
		return Permit2PayloadFromMap(data)
	default:
		return nil, fmt.Errorf("unknown authorization type: %q", authType)
	}
}

func readStrings(src map[string]interface{}, prefix string, dst map[string]*string) error {
	for key, target := range dst {
		value, ok := src[key].(string)
		if !ok {
			return fmt.Errorf("missing or invalid %s.%s field", prefix, key)
		}
		*target = value
	}
	return nil
}

// ClientEvmSigner defines the interface for client-side EVM signing operations
type ClientEvmSigner interface {
	// Address returns the signer's Ethereum address
	Address() string

	// SignTypedData signs EIP-712 typed data
	SignTypedData(ctx context.Context, domain TypedDataDomain, types map[string][]TypedDataField, primaryType string, message map[string]interface{}) ([]byte, error)
}

// ContractReader is implemented by signers that can call view functions.
// The permit strategy needs it to read the token nonce.
type ContractReader interface {
	ReadContract(ctx context.Context, address string, abi []byte, functionName string, args ...interface{}) (interface{}, error)
}

// ChainBoundReader is a ContractReader whose reads all go to one chain.
// ChainID returns nil when the chain is not known.
type ChainBoundReader interface {
	ContractReader
	ChainID() *big.Int
}

// TypedDataDomain represents the EIP-712 domain separator
type TypedDataDomain struct {
	Name              string   `json:"name"`
	Version           string   `json:"version,omitempty"`
	ChainID           *big.Int `json:"chainId"`
	VerifyingContract string   `json:"verifyingContract"`
}

// TypedDataField represents a field in EIP-712 typed data
type TypedDataField struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// AssetInfo contains information about an ERC20 token
type AssetInfo struct {
	Address  string
	Name     string
	Version  string
	Decimals int
}

// NetworkConfig contains network-specific configuration
type NetworkConfig struct {
	ChainID      *big.Int
	RPCURL       string
	DefaultAsset AssetInfo
}
