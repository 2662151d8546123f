package paymentidentifier

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"

	x402 "github.com/x402-foundation/x402-interceptor"
)

// GeneratePaymentID returns prefix followed by a hyphen-free UUID v4.
// An empty prefix defaults to "pay_".
func GeneratePaymentID(prefix string) string {
	if prefix == "" {
		prefix = "pay_"
	}
	return prefix + strings.ReplaceAll(uuid.New().String(), "-", "")
}

// PayloadFingerprint is a deterministic sha256 of the payload JSON
func PayloadFingerprint(payload x402.PaymentPayload) (string, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal payload: %w", err)
	}
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:]), nil
}

// IsValidPaymentID checks the length bounds and the [A-Za-z0-9_-] alphabet
func IsValidPaymentID(id string) bool {
	if len(id) < PAYMENT_ID_MIN_LENGTH || len(id) > PAYMENT_ID_MAX_LENGTH {
		return false
	}
	return PAYMENT_ID_PATTERN.MatchString(id)
}
