package x402

import (
	"errors"
	"fmt"
)

// PaymentError represents a payment-specific error
type PaymentError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
	Err     error                  `json:"-"`
}

func (e *PaymentError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *PaymentError) Unwrap() error {
	return e.Err
}

// Common error codes
const (
	ErrCodeUnsupportedScheme     = "unsupported_scheme"
	ErrCodeUnsupportedNetwork    = "unsupported_network"
	ErrCodeMalformedChallenge    = "malformed_payment_required"
	ErrCodeAuthorizationFailed   = "authorization_failed"
	ErrCodeCapabilityUnsupported = "capability_unsupported"
	ErrCodeNonceUnavailable      = "nonce_unavailable"
	ErrCodeAllowanceRequired     = "permit2_allowance_required"
	ErrCodePaymentAborted        = "payment_aborted"
)

// NewPaymentError creates a new payment error
func NewPaymentError(code, message string, details map[string]interface{}) *PaymentError {
	return &PaymentError{
		Code:    code,
		Message: message,
		Details: details,
	}
}

var (
	ErrInvalidConfig            = errors.New("x402: invalid configuration")
	ErrNoMatchingRequirements   = errors.New("x402: no payment requirement matches the configured authorization type")
	ErrMalformedPaymentRequired = errors.New("x402: malformed payment required response")
	ErrCapabilityUnsupported    = errors.New("x402: token does not support the configured authorization type")
	ErrNonceUnavailable         = errors.New("x402: nonce unavailable")
	ErrSigningFailed            = errors.New("x402: signing failed")
	ErrAllowanceRequired        = errors.New("x402: permit2 allowance required")
	ErrReceiptUnavailable       = errors.New("x402: payment receipt unavailable")
	ErrPaymentAborted           = errors.New("x402: payment aborted by hook")
)

// Stage identifies where in the payment lifecycle a failure happened
type Stage string

const (
	StageChallenge Stage = "challenge"
	StageSelect    Stage = "select"
	StageAuthorize Stage = "authorize"
	StageSettle    Stage = "settle"
)

// AuthorizationError is returned when a payment could not be made.
// Callers branch on Stage and Code, or use errors.Is against the sentinels above.
type AuthorizationError struct {
	Stage  Stage
	Scheme AuthorizationType
	Code   string
	Err    error
}

func (e *AuthorizationError) Error() string {
	msg := fmt.Sprintf("x402: %s stage failed", e.Stage)
	if e.Scheme != "" {
		msg += fmt.Sprintf(" for %s", e.Scheme)
	}
	if e.Code != "" {
		msg += fmt.Sprintf(" (%s)", e.Code)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *AuthorizationError) Unwrap() error {
	return e.Err
}

// NewAuthorizationError builds an AuthorizationError, deriving the code from err when possible
func NewAuthorizationError(stage Stage, scheme AuthorizationType, err error) *AuthorizationError {
	return &AuthorizationError{
		Stage:  stage,
		Scheme: scheme,
		Code:   codeFor(err),
		Err:    err,
	}
}

func codeFor(err error) string {
	var pe *PaymentError
	switch {
	case errors.As(err, &pe):
		return pe.Code
	case errors.Is(err, ErrMalformedPaymentRequired):
		return ErrCodeMalformedChallenge
	case errors.Is(err, ErrCapabilityUnsupported):
		return ErrCodeCapabilityUnsupported
	case errors.Is(err, ErrNonceUnavailable):
		return ErrCodeNonceUnavailable
	case errors.Is(err, ErrAllowanceRequired):
		return ErrCodeAllowanceRequired
	case errors.Is(err, ErrPaymentAborted):
		return ErrCodePaymentAborted
	default:
		return ErrCodeAuthorizationFailed
	}
}
