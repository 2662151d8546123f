package x402

import "fmt"

// ValidatePaymentPayload performs basic validation on a payment payload
func ValidatePaymentPayload(p PaymentPayload) error {
	if p.X402Version < ProtocolVersionV1 || p.X402Version > ProtocolVersion {
		return fmt.Errorf("unsupported x402 version: %d", p.X402Version)
	}
	if !p.AuthorizationType.Valid() {
		return fmt.Errorf("unknown authorization type: %q", p.AuthorizationType)
	}
	if p.X402Version == ProtocolVersionV1 {
		if p.Scheme == "" || p.Network == "" {
			return fmt.Errorf("payment scheme and network are required")
		}
	} else if p.Accepted == nil {
		return fmt.Errorf("accepted payment requirements are required")
	}
	if p.Payload == nil {
		return fmt.Errorf("payment payload is required")
	}
	return nil
}

// ValidatePaymentRequirements performs basic validation on payment requirements
func ValidatePaymentRequirements(r PaymentRequirements) error {
	if r.Scheme == "" {
		return fmt.Errorf("payment scheme is required")
	}
	if r.Network == "" {
		return fmt.Errorf("payment network is required")
	}
	if r.Asset == "" {
		return fmt.Errorf("payment asset is required")
	}
	if r.Required() == "" {
		return fmt.Errorf("payment amount is required")
	}
	if r.PayTo == "" {
		return fmt.Errorf("payment recipient is required")
	}
	return nil
}

// findByNetworkAndType finds a strategy for a network/type combination.
// Exact network matches win over patterns such as "eip155:*".
func findByNetworkAndType[T any](networkMap map[Network]map[AuthorizationType]T, authType AuthorizationType, network Network) T {
	var zero T

	if typeMap, exists := networkMap[network]; exists {
		if impl, exists := typeMap[authType]; exists {
			return impl
		}
	}

	for registeredNetwork, typeMap := range networkMap {
		if network.Match(registeredNetwork) || registeredNetwork.Match(network) {
			if impl, exists := typeMap[authType]; exists {
				return impl
			}
		}
	}

	return zero
}
