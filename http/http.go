// Package http attaches x402 payments to outgoing HTTP requests.
//
// PaymentRoundTripper answers a 402 Payment Required challenge by signing one
// of the offered requirements with the configured authorization type and
// replaying the request once with the payment header attached.
package http

// Header names used on the wire. V2 servers use the PAYMENT-* names, V1
// servers the X-PAYMENT names.
const (
	HeaderPaymentSignature = "PAYMENT-SIGNATURE"
	HeaderXPayment         = "X-PAYMENT"
	HeaderPaymentRequired  = "PAYMENT-REQUIRED"
	HeaderPaymentResponse  = "PAYMENT-RESPONSE"
	HeaderXPaymentResponse = "X-PAYMENT-RESPONSE"
)
