// Package metrics records payment outcomes and latencies.
package metrics

import "time"

// Event names recorded by the payment interceptor
const (
	EventChallenge       = "challenge"
	EventSelectFailed    = "select_failed"
	EventAuthorizeFailed = "authorize_failed"
	EventRetry           = "retry"
	EventSettled         = "settled"
	EventRejected        = "rejected"
	EventAllowance       = "allowance_required"
	EventReceiptMissing  = "receipt_missing"

	OperationAuthorize = "authorize"
	OperationRetry     = "retry"
)

// Recorder receives payment events and operation latencies
type Recorder interface {
	IncCounter(name string, labels map[string]string)
	ObserveLatency(name string, duration time.Duration, labels map[string]string)
}
