package x402

import (
	"context"
	"time"
)

// PaymentCreationContext contains information passed to payment creation hooks
type PaymentCreationContext struct {
	Ctx               context.Context
	Version           int
	AuthorizationType AuthorizationType
	Requirements      PaymentRequirements
	Timestamp         time.Time
}

// PaymentCreatedContext contains the created payload and how long signing took
type PaymentCreatedContext struct {
	PaymentCreationContext
	Payload  PaymentPayload
	Duration time.Duration
}

// PaymentCreationFailureContext contains the failure raised while creating a payload
type PaymentCreationFailureContext struct {
	PaymentCreationContext
	Error    error
	Duration time.Duration
}

// BeforeHookResult represents the result of a "before" hook
// If Abort is true, the payment is not created and the request fails with Reason
type BeforeHookResult struct {
	Abort  bool
	Reason string
}

// BeforePaymentCreationHook is called before a strategy signs anything
type BeforePaymentCreationHook func(PaymentCreationContext) (*BeforeHookResult, error)

// AfterPaymentCreationHook is called after a payload has been signed
// Any error returned is ignored and does not affect the payment
type AfterPaymentCreationHook func(PaymentCreatedContext) error

// OnPaymentCreationFailureHook is called when the strategy fails
type OnPaymentCreationFailureHook func(PaymentCreationFailureContext)

// WithBeforePaymentCreationHook registers a hook run before signing
func WithBeforePaymentCreationHook(hook BeforePaymentCreationHook) ClientOption {
	return func(c *Client) {
		c.beforeHooks = append(c.beforeHooks, hook)
	}
}

// WithAfterPaymentCreationHook registers a hook run after a successful signing
func WithAfterPaymentCreationHook(hook AfterPaymentCreationHook) ClientOption {
	return func(c *Client) {
		c.afterHooks = append(c.afterHooks, hook)
	}
}

// WithPaymentCreationFailureHook registers a hook run when signing fails
func WithPaymentCreationFailureHook(hook OnPaymentCreationFailureHook) ClientOption {
	return func(c *Client) {
		c.failureHooks = append(c.failureHooks, hook)
	}
}
