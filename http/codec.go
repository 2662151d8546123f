package http

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"

	x402 "github.com/x402-foundation/x402-interceptor"
)

// PaymentHeaderName returns the request header that carries a payment for version
func PaymentHeaderName(version int) string {
	if version == x402.ProtocolVersionV1 {
		return HeaderXPayment
	}
	return HeaderPaymentSignature
}

// EncodePaymentSignatureHeader serializes payload as base64(JSON) and returns
// the header name matching its protocol version.
func EncodePaymentSignatureHeader(payload x402.PaymentPayload) (name, value string, err error) {
	if err := x402.ValidatePaymentPayload(payload); err != nil {
		return "", "", fmt.Errorf("cannot encode payment payload: %w", err)
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return "", "", fmt.Errorf("failed to marshal payment payload: %w", err)
	}
	return PaymentHeaderName(payload.X402Version), base64.StdEncoding.EncodeToString(data), nil
}

// DecodePaymentSignatureHeader is the inverse of EncodePaymentSignatureHeader
func DecodePaymentSignatureHeader(value string) (x402.PaymentPayload, error) {
	var payload x402.PaymentPayload
	if err := decodeBase64JSON(value, &payload); err != nil {
		return x402.PaymentPayload{}, fmt.Errorf("invalid payment signature header: %w", err)
	}
	return payload, nil
}

// PaymentFromRequest decodes the payment header of a request, if any
func PaymentFromRequest(req *http.Request) (x402.PaymentPayload, bool, error) {
	if req == nil {
		return x402.PaymentPayload{}, false, nil
	}
	value := req.Header.Get(HeaderPaymentSignature)
	if value == "" {
		value = req.Header.Get(HeaderXPayment)
	}
	if value == "" {
		return x402.PaymentPayload{}, false, nil
	}
	payload, err := DecodePaymentSignatureHeader(value)
	return payload, true, err
}

// EncodePaymentResponseHeader serializes a settlement receipt as base64(JSON)
func EncodePaymentResponseHeader(response x402.SettleResponse) (string, error) {
	data, err := json.Marshal(response)
	if err != nil {
		return "", fmt.Errorf("failed to marshal settle response: %w", err)
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

// DecodePaymentResponseHeader reads PAYMENT-RESPONSE, falling back to X-PAYMENT-RESPONSE.
// Every failure wraps x402.ErrReceiptUnavailable.
func DecodePaymentResponseHeader(headers http.Header) (x402.SettleResponse, error) {
	value := headers.Get(HeaderPaymentResponse)
	if value == "" {
		value = headers.Get(HeaderXPaymentResponse)
	}
	if value == "" {
		return x402.SettleResponse{}, x402.ErrReceiptUnavailable
	}

	var response x402.SettleResponse
	if err := decodeBase64JSON(value, &response); err != nil {
		return x402.SettleResponse{}, fmt.Errorf("%w: %w", x402.ErrReceiptUnavailable, err)
	}
	return response, nil
}

// EncodePaymentRequiredHeader serializes a challenge for the PAYMENT-REQUIRED header
func EncodePaymentRequiredHeader(required x402.PaymentRequired) (string, error) {
	data, err := json.Marshal(required)
	if err != nil {
		return "", fmt.Errorf("failed to marshal payment required: %w", err)
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

// GetPaymentRequiredResponse parses a 402 challenge. The PAYMENT-REQUIRED header
// wins over the body. Every failure wraps x402.ErrMalformedPaymentRequired.
func GetPaymentRequiredResponse(headers http.Header, body []byte) (x402.PaymentRequired, error) {
	document := body
	source := "body"
	if header := headers.Get(HeaderPaymentRequired); header != "" {
		decoded, err := base64.StdEncoding.DecodeString(header)
		if err != nil {
			return x402.PaymentRequired{}, fmt.Errorf("%w: header is not base64: %w", x402.ErrMalformedPaymentRequired, err)
		}
		document = decoded
		source = "header"
	}

	if len(document) == 0 {
		return x402.PaymentRequired{}, fmt.Errorf("%w: empty 402 response", x402.ErrMalformedPaymentRequired)
	}
	if !json.Valid(document) {
		return x402.PaymentRequired{}, fmt.Errorf("%w: %s is not JSON", x402.ErrMalformedPaymentRequired, source)
	}
	if err := validatePaymentRequired(document); err != nil {
		return x402.PaymentRequired{}, fmt.Errorf("%w: %s: %w", x402.ErrMalformedPaymentRequired, source, err)
	}

	var required x402.PaymentRequired
	if err := json.Unmarshal(document, &required); err != nil {
		return x402.PaymentRequired{}, fmt.Errorf("%w: %s: %w", x402.ErrMalformedPaymentRequired, source, err)
	}
	return required, nil
}

func decodeBase64JSON(value string, v interface{}) error {
	data, err := base64.StdEncoding.DecodeString(value)
	if err != nil {
		return fmt.Errorf("invalid base64 encoding: %w", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	return nil
}
