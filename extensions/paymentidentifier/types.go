package paymentidentifier

import "regexp"

// PAYMENT_IDENTIFIER is the extension key in PaymentRequired.extensions and PaymentPayload.extensions
const PAYMENT_IDENTIFIER = "payment-identifier"

const (
	PAYMENT_ID_MIN_LENGTH = 16
	PAYMENT_ID_MAX_LENGTH = 128
)

// PAYMENT_ID_PATTERN matches the allowed payment ID alphabet
var PAYMENT_ID_PATTERN = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// Info is the "info" object of the extension
type Info struct {
	Required bool   `json:"required"`
	ID       string `json:"id,omitempty"`
}

// PaymentIdentifierExtension is the payment-identifier extension as it appears on the wire
type PaymentIdentifierExtension struct {
	Info Info `json:"info"`
}
