package x402

import (
	"context"
)

// AuthorizationStrategy is implemented by client-side payment mechanisms.
// Each strategy produces exactly one kind of signed authorization.
type AuthorizationStrategy interface {
	// Type returns the authorization type this strategy signs
	Type() AuthorizationType

	// CreatePaymentPayload signs an authorization satisfying requirements.
	// The returned payload carries only the scheme-specific signed data;
	// the client adds accepted requirements, resource, and extensions.
	CreatePaymentPayload(ctx context.Context, version int, requirements PaymentRequirements) (PartialPaymentPayload, error)
}
