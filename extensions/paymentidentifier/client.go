package paymentidentifier

import (
	"encoding/json"
	"fmt"

	x402 "github.com/x402-foundation/x402-interceptor"
)

// Declared reports whether a 402 response offers the payment-identifier
// extension, and whether the server requires it.
func Declared(required x402.PaymentRequired) (declared bool, mandatory bool) {
	if required.X402Version == x402.ProtocolVersionV1 || required.Extensions == nil {
		return false, false
	}
	ext, ok := required.Extensions[PAYMENT_IDENTIFIER]
	if !ok {
		return false, false
	}
	parsed, err := parse(ext)
	if err != nil {
		return true, false
	}
	return true, parsed.Info.Required
}

// AppendToExtensions returns a copy of extensions carrying a freshly generated
// payment identifier. The server's required flag is echoed back.
func AppendToExtensions(extensions map[string]interface{}, required bool) (map[string]interface{}, string) {
	id := GeneratePaymentID("")
	out := make(map[string]interface{}, len(extensions)+1)
	for k, v := range extensions {
		out[k] = v
	}
	out[PAYMENT_IDENTIFIER] = PaymentIdentifierExtension{
		Info: Info{Required: required, ID: id},
	}
	return out, id
}

// ExtractPaymentIdentifier returns the identifier carried by a payload, or "" when absent
func ExtractPaymentIdentifier(payload x402.PaymentPayload, validate bool) (string, error) {
	if payload.Extensions == nil {
		return "", nil
	}
	ext, ok := payload.Extensions[PAYMENT_IDENTIFIER]
	if !ok {
		return "", nil
	}

	parsed, err := parse(ext)
	if err != nil {
		return "", err
	}
	if parsed.Info.ID == "" {
		return "", nil
	}
	if validate && !IsValidPaymentID(parsed.Info.ID) {
		return "", fmt.Errorf("invalid payment ID format")
	}
	return parsed.Info.ID, nil
}

func parse(ext interface{}) (PaymentIdentifierExtension, error) {
	var parsed PaymentIdentifierExtension
	if typed, ok := ext.(PaymentIdentifierExtension); ok {
		return typed, nil
	}
	data, err := json.Marshal(ext)
	if err != nil {
		return parsed, fmt.Errorf("failed to marshal extension: %w", err)
	}
	if err := json.Unmarshal(data, &parsed); err != nil {
		return parsed, fmt.Errorf("failed to unmarshal extension: %w", err)
	}
	return parsed, nil
}
