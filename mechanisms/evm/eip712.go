package evm

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
)

// HashTypedData computes the EIP-712 digest keccak256(0x19 0x01 || domainSeparator || structHash).
//
// The domain is hashed against types["EIP712Domain"]; when the caller does not
// provide it, the full four-field domain is assumed. Domains without a version
// (such as Permit2) must pass their own EIP712Domain type list.
func HashTypedData(
	domain TypedDataDomain,
	types map[string][]TypedDataField,
	primaryType string,
	message map[string]interface{},
) ([]byte, error) {
	typedData := apitypes.TypedData{
		Types:       make(apitypes.Types, len(types)+1),
		PrimaryType: primaryType,
		Domain: apitypes.TypedDataDomain{
			Name:              domain.Name,
			Version:           domain.Version,
			ChainId:           (*math.HexOrDecimal256)(domain.ChainID),
			VerifyingContract: domain.VerifyingContract,
		},
		Message: message,
	}

	for typeName, fields := range types {
		converted := make([]apitypes.Type, len(fields))
		for i, field := range fields {
			converted[i] = apitypes.Type{Name: field.Name, Type: field.Type}
		}
		typedData.Types[typeName] = converted
	}
	if _, ok := typedData.Types["EIP712Domain"]; !ok {
		converted := make([]apitypes.Type, len(EIP712DomainTypes))
		for i, field := range EIP712DomainTypes {
			converted[i] = apitypes.Type{Name: field.Name, Type: field.Type}
		}
		typedData.Types["EIP712Domain"] = converted
	}

	structHash, err := typedData.HashStruct(typedData.PrimaryType, typedData.Message)
	if err != nil {
		return nil, fmt.Errorf("failed to hash struct: %w", err)
	}
	domainSeparator, err := typedData.HashStruct("EIP712Domain", typedData.Domain.Map())
	if err != nil {
		return nil, fmt.Errorf("failed to hash domain: %w", err)
	}

	raw := make([]byte, 0, 2+len(domainSeparator)+len(structHash))
	raw = append(raw, 0x19, 0x01)
	raw = append(raw, domainSeparator...)
	raw = append(raw, structHash...)
	return crypto.Keccak256(raw), nil
}

// RecoverTypedDataSigner returns the address that produced signature over digest.
// Both 0/1 and 27/28 recovery ids are accepted.
func RecoverTypedDataSigner(digest []byte, signature []byte) (common.Address, error) {
	if len(signature) != 65 {
		return common.Address{}, fmt.Errorf("invalid signature length: %d", len(signature))
	}
	sig := make([]byte, 65)
	copy(sig, signature)
	if sig[64] >= 27 {
		sig[64] -= 27
	}
	pub, err := crypto.SigToPub(digest, sig)
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to recover signer: %w", err)
	}
	return crypto.PubkeyToAddress(*pub), nil
}

// EIP3009Message builds the TransferWithAuthorization message map for hashing or signing
func EIP3009Message(authorization ExactEIP3009Authorization) (map[string]interface{}, error) {
	ints, err := parseUints(map[string]string{
		"value":       authorization.Value,
		"validAfter":  authorization.ValidAfter,
		"validBefore": authorization.ValidBefore,
	})
	if err != nil {
		return nil, err
	}
	nonce, err := HexToBytes(authorization.Nonce)
	if err != nil {
		return nil, fmt.Errorf("invalid nonce: %w", err)
	}
	if len(nonce) != 32 {
		return nil, fmt.Errorf("invalid nonce length: %d", len(nonce))
	}

	return map[string]interface{}{
		"from":        common.HexToAddress(authorization.From).Hex(),
		"to":          common.HexToAddress(authorization.To).Hex(),
		"value":       ints["value"],
		"validAfter":  ints["validAfter"],
		"validBefore": ints["validBefore"],
		"nonce":       nonce,
	}, nil
}

// PermitMessage builds the EIP-2612 Permit message map
func PermitMessage(permit ExactPermitAuthorization) (map[string]interface{}, error) {
	ints, err := parseUints(map[string]string{
		"value":    permit.Value,
		"nonce":    permit.Nonce,
		"deadline": permit.Deadline,
	})
	if err != nil {
		return nil, err
	}

	return map[string]interface{}{
		"owner":    common.HexToAddress(permit.Owner).Hex(),
		"spender":  common.HexToAddress(permit.Spender).Hex(),
		"value":    ints["value"],
		"nonce":    ints["nonce"],
		"deadline": ints["deadline"],
	}, nil
}

// Permit2Message builds the PermitWitnessTransferFrom message map
func Permit2Message(authorization Permit2Authorization) (map[string]interface{}, error) {
	ints, err := parseUints(map[string]string{
		"amount":     authorization.Permitted.Amount,
		"nonce":      authorization.Nonce,
		"deadline":   authorization.Deadline,
		"validAfter": authorization.Witness.ValidAfter,
	})
	if err != nil {
		return nil, err
	}
	extra, err := HexToBytes(authorization.Witness.Extra)
	if err != nil {
		return nil, fmt.Errorf("invalid witness extra: %w", err)
	}

	return map[string]interface{}{
		"permitted": map[string]interface{}{
			"token":  common.HexToAddress(authorization.Permitted.Token).Hex(),
			"amount": ints["amount"],
		},
		"spender":  common.HexToAddress(authorization.Spender).Hex(),
		"nonce":    ints["nonce"],
		"deadline": ints["deadline"],
		"witness": map[string]interface{}{
			"to":         common.HexToAddress(authorization.Witness.To).Hex(),
			"validAfter": ints["validAfter"],
			"extra":      extra,
		},
	}, nil
}

// TokenDomain returns the EIP-712 domain of an ERC-20 token contract
func TokenDomain(name, version string, chainID *big.Int, token string) TypedDataDomain {
	return TypedDataDomain{
		Name:              name,
		Version:           version,
		ChainID:           chainID,
		VerifyingContract: common.HexToAddress(token).Hex(),
	}
}

// Permit2Domain returns the EIP-712 domain of the canonical Permit2 contract
func Permit2Domain(chainID *big.Int) TypedDataDomain {
	return TypedDataDomain{
		Name:              "Permit2",
		ChainID:           chainID,
		VerifyingContract: PERMIT2Address,
	}
}

// HashEIP3009Authorization hashes a TransferWithAuthorization message under the token's domain
func HashEIP3009Authorization(
	authorization ExactEIP3009Authorization,
	chainID *big.Int,
	verifyingContract string,
	tokenName string,
	tokenVersion string,
) ([]byte, error) {
	message, err := EIP3009Message(authorization)
	if err != nil {
		return nil, err
	}
	domain := TokenDomain(tokenName, tokenVersion, chainID, verifyingContract)
	return HashTypedData(domain, GetEIP3009EIP712Types(), "TransferWithAuthorization", message)
}

// HashPermitAuthorization hashes an EIP-2612 Permit message under the token's domain
func HashPermitAuthorization(
	permit ExactPermitAuthorization,
	chainID *big.Int,
	verifyingContract string,
	tokenName string,
	tokenVersion string,
) ([]byte, error) {
	message, err := PermitMessage(permit)
	if err != nil {
		return nil, err
	}
	domain := TokenDomain(tokenName, tokenVersion, chainID, verifyingContract)
	return HashTypedData(domain, GetEIP2612EIP712Types(), "Permit", message)
}

// HashPermit2Authorization hashes a PermitWitnessTransferFrom message under the Permit2 domain
func HashPermit2Authorization(authorization Permit2Authorization, chainID *big.Int) ([]byte, error) {
	message, err := Permit2Message(authorization)
	if err != nil {
		return nil, err
	}
	return HashTypedData(Permit2Domain(chainID), GetPermit2EIP712Types(), "PermitWitnessTransferFrom", message)
}

func parseUints(values map[string]string) (map[string]*big.Int, error) {
	out := make(map[string]*big.Int, len(values))
	for name, raw := range values {
		n, ok := new(big.Int).SetString(raw, 10)
		if !ok || n.Sign() < 0 {
			return nil, fmt.Errorf("invalid %s: %q", name, raw)
		}
		out[name] = n
	}
	return out, nil
}
