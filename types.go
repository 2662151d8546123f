package x402

import (
	"fmt"
	"strings"
)

const (
	// ProtocolVersion is the current x402 protocol version
	ProtocolVersion = 2

	// ProtocolVersionV1 is the legacy protocol version carried in the 402 body
	ProtocolVersionV1 = 1
)

// Network represents a blockchain network identifier in CAIP-2 format
// Format: namespace:reference (e.g., "eip155:8453" for Base mainnet)
// Legacy v1 names such as "base" are accepted as-is.
type Network string

// Parse splits the network into namespace and reference components
func (n Network) Parse() (namespace, reference string, err error) {
	parts := strings.Split(string(n), ":")
	if len(parts) != 2 {
		return "", "", fmt.Errorf("invalid network format: %s", n)
	}
	return parts[0], parts[1], nil
}

// Match checks if this network matches a pattern (supports wildcards)
// e.g., "eip155:1" matches "eip155:*" and "eip155:*" matches "eip155:1"
func (n Network) Match(pattern Network) bool {
	if n == pattern {
		return true
	}

	nStr := string(n)
	patternStr := string(pattern)

	if strings.HasSuffix(patternStr, ":*") {
		prefix := strings.TrimSuffix(patternStr, "*")
		return strings.HasPrefix(nStr, prefix)
	}

	if strings.HasSuffix(nStr, ":*") {
		prefix := strings.TrimSuffix(nStr, "*")
		return strings.HasPrefix(patternStr, prefix)
	}

	return false
}

// AuthorizationType names the signed authorization a client produces for a payment.
type AuthorizationType string

const (
	// AuthorizationTypeEIP3009 signs a transferWithAuthorization message
	AuthorizationTypeEIP3009 AuthorizationType = "eip3009"
	// AuthorizationTypePermit signs an EIP-2612 permit using the token's own nonce
	AuthorizationTypePermit AuthorizationType = "permit"
	// AuthorizationTypePermit2 signs a PermitWitnessTransferFrom against the Permit2 contract
	AuthorizationTypePermit2 AuthorizationType = "permit2"
)

// DefaultAuthorizationType is used when the configuration leaves the type empty
const DefaultAuthorizationType = AuthorizationTypeEIP3009

// Valid reports whether t is one of the known authorization types
func (t AuthorizationType) Valid() bool {
	switch t {
	case AuthorizationTypeEIP3009, AuthorizationTypePermit, AuthorizationTypePermit2:
		return true
	}
	return false
}

// ParseAuthorizationType parses a user-supplied authorization type.
// An empty string yields the default.
func ParseAuthorizationType(s string) (AuthorizationType, error) {
	if s == "" {
		return DefaultAuthorizationType, nil
	}
	t := AuthorizationType(strings.ToLower(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", fmt.Errorf("%w: unknown authorization type %q", ErrInvalidConfig, s)
	}
	return t, nil
}

// PaymentRequirements defines what payment is acceptable for a resource
type PaymentRequirements struct {
	Scheme            string                 `json:"scheme"`
	Network           Network                `json:"network"`
	Asset             string                 `json:"asset"`
	Amount            string                 `json:"amount,omitempty"`            // v2 field
	MaxAmountRequired string                 `json:"maxAmountRequired,omitempty"` // v1 compatibility field
	PayTo             string                 `json:"payTo"`
	MaxTimeoutSeconds int                    `json:"maxTimeoutSeconds,omitempty"`
	Extra             map[string]interface{} `json:"extra,omitempty"`
}

// Required returns the amount to pay in the asset's smallest unit,
// falling back to the v1 maxAmountRequired field.
func (r PaymentRequirements) Required() string {
	if r.Amount != "" {
		return r.Amount
	}
	return r.MaxAmountRequired
}

// ExtraString returns a string value from Extra, or "" when absent
func (r PaymentRequirements) ExtraString(key string) string {
	if r.Extra == nil {
		return ""
	}
	s, _ := r.Extra[key].(string)
	return s
}

// AuthorizationType reports which signed authorization the requirement accepts.
//
// Only the "exact" scheme, or a scheme named after a type, yields one; any
// other scheme such as "upto" returns "" and is never selected. The first
// match wins: extra.assetTransferMethod, extra.signatureType ("authorization"
// or "permit"), the scheme name itself, and finally eip3009.
func (r PaymentRequirements) AuthorizationType() AuthorizationType {
	scheme := AuthorizationType(strings.ToLower(r.Scheme))
	if scheme != "exact" && !scheme.Valid() {
		return ""
	}

	if method := AuthorizationType(strings.ToLower(r.ExtraString("assetTransferMethod"))); method.Valid() {
		return method
	}

	switch strings.ToLower(r.ExtraString("signatureType")) {
	case "authorization":
		return AuthorizationTypeEIP3009
	case "permit":
		return AuthorizationTypePermit
	}

	if scheme.Valid() {
		return scheme
	}

	return AuthorizationTypeEIP3009
}

// PartialPaymentPayload contains the minimal payment data produced by a strategy
type PartialPaymentPayload struct {
	X402Version int                    `json:"x402Version"`
	Payload     map[string]interface{} `json:"payload"`
}

// PaymentPayload is the signed payment sent in the request header
type PaymentPayload struct {
	X402Version       int                    `json:"x402Version"`
	AuthorizationType AuthorizationType      `json:"authorizationType"`
	Scheme            string                 `json:"scheme,omitempty"`   // V1: scheme at top level
	Network           Network                `json:"network,omitempty"`  // V1: network at top level
	Accepted          *PaymentRequirements   `json:"accepted,omitempty"` // V2: the requirement being paid
	Payload           map[string]interface{} `json:"payload"`
	Resource          *ResourceInfo          `json:"resource,omitempty"`
	Extensions        map[string]interface{} `json:"extensions,omitempty"`
}

// ResourceInfo describes the resource being accessed
type ResourceInfo struct {
	URL         string `json:"url"`
	Description string `json:"description,omitempty"`
	MimeType    string `json:"mimeType,omitempty"`
}

// PaymentRequired is the 402 response sent to clients
type PaymentRequired struct {
	X402Version int                    `json:"x402Version"`
	Error       string                 `json:"error,omitempty"`
	Resource    *ResourceInfo          `json:"resource,omitempty"`
	Accepts     []PaymentRequirements  `json:"accepts"`
	Extensions  map[string]interface{} `json:"extensions,omitempty"`
}

// SettleResponse is the settlement receipt returned in the payment response header
type SettleResponse struct {
	Success     bool    `json:"success"`
	ErrorReason string  `json:"errorReason,omitempty"`
	Payer       string  `json:"payer,omitempty"`
	Transaction string  `json:"transaction"`
	Network     Network `json:"network"`
}
