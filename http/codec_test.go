package http

import (
	"encoding/base64"
	"errors"
	"net/http"
	"testing"

	"github.com/google/go-cmp/cmp"

	x402 "github.com/x402-foundation/x402-interceptor"
)

const testAsset = "0x036CbD53842c5426634e7929541eC2318f3dCF7e"
const testPayTo = "0x209693Bc6afc0C5328bA36FaF03C514EF312287C"

func testRequirements(scheme string) x402.PaymentRequirements {
	return x402.PaymentRequirements{
		Scheme:            scheme,
		Network:           "eip155:84532",
		Asset:             testAsset,
		Amount:            "10000",
		PayTo:             testPayTo,
		MaxTimeoutSeconds: 60,
		Extra:             map[string]interface{}{"name": "USDC", "version": "2"},
	}
}

func TestPaymentSignatureHeaderRoundTrip(t *testing.T) {
	accepted := testRequirements("exact")
	payload := x402.PaymentPayload{
		X402Version:       2,
		AuthorizationType: x402.AuthorizationTypeEIP3009,
		Accepted:          &accepted,
		Resource:          &x402.ResourceInfo{URL: "https://api.example.com/weather"},
		Payload: map[string]interface{}{
			"signature": "0xdeadbeef",
			"authorization": map[string]interface{}{
				"from":  testPayTo,
				"value": "10000",
			},
		},
	}

	name, value, err := EncodePaymentSignatureHeader(payload)
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	if name != HeaderPaymentSignature {
		t.Errorf("expected header %s, got %s", HeaderPaymentSignature, name)
	}

	decoded, err := DecodePaymentSignatureHeader(value)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if diff := cmp.Diff(payload, decoded); diff != "" {
		t.Errorf("payload mismatch (-want +got):\n%s", diff)
	}
}

func TestPaymentHeaderNameByVersion(t *testing.T) {
	if got := PaymentHeaderName(1); got != HeaderXPayment {
		t.Errorf("v1: expected %s, got %s", HeaderXPayment, got)
	}
	if got := PaymentHeaderName(2); got != HeaderPaymentSignature {
		t.Errorf("v2: expected %s, got %s", HeaderPaymentSignature, got)
	}

	v1 := x402.PaymentPayload{
		X402Version:       1,
		AuthorizationType: x402.AuthorizationTypeEIP3009,
		Scheme:            "exact",
		Network:           "base-sepolia",
		Payload:           map[string]interface{}{"signature": "0x01"},
	}
	name, _, err := EncodePaymentSignatureHeader(v1)
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	if name != HeaderXPayment {
		t.Errorf("expected %s for v1 payload, got %s", HeaderXPayment, name)
	}
}

func TestEncodePaymentSignatureHeaderRejectsInvalidPayload(t *testing.T) {
	_, _, err := EncodePaymentSignatureHeader(x402.PaymentPayload{X402Version: 2})
	if err == nil {
		t.Fatal("expected error for payload without authorization type")
	}
}

func TestPaymentFromRequest(t *testing.T) {
	req, _ := http.NewRequest(http.MethodGet, "https://example.com", nil)
	if _, found, err := PaymentFromRequest(req); found || err != nil {
		t.Fatalf("expected no payment, got found=%v err=%v", found, err)
	}

	req.Header.Set(HeaderXPayment, "!!!")
	if _, found, err := PaymentFromRequest(req); !found || err == nil {
		t.Fatalf("expected decode error for garbage header, got found=%v err=%v", found, err)
	}
}

func TestPaymentResponseHeader(t *testing.T) {
	settle := x402.SettleResponse{
		Success:     true,
		Payer:       testPayTo,
		Transaction: "0xabc",
		Network:     "eip155:84532",
	}
	value, err := EncodePaymentResponseHeader(settle)
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}

	t.Run("v2 header", func(t *testing.T) {
		headers := http.Header{}
		headers.Set(HeaderPaymentResponse, value)
		got, err := DecodePaymentResponseHeader(headers)
		if err != nil {
			t.Fatalf("decode failed: %v", err)
		}
		if diff := cmp.Diff(settle, got); diff != "" {
			t.Errorf("settle mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("v1 header", func(t *testing.T) {
		headers := http.Header{}
		headers.Set(HeaderXPaymentResponse, value)
		got, err := DecodePaymentResponseHeader(headers)
		if err != nil {
			t.Fatalf("decode failed: %v", err)
		}
		if got.Transaction != "0xabc" {
			t.Errorf("expected transaction 0xabc, got %s", got.Transaction)
		}
	})

	t.Run("missing", func(t *testing.T) {
		_, err := DecodePaymentResponseHeader(http.Header{})
		if !errors.Is(err, x402.ErrReceiptUnavailable) {
			t.Errorf("expected ErrReceiptUnavailable, got %v", err)
		}
	})

	t.Run("garbage", func(t *testing.T) {
		headers := http.Header{}
		headers.Set(HeaderPaymentResponse, "not base64!")
		_, err := DecodePaymentResponseHeader(headers)
		if !errors.Is(err, x402.ErrReceiptUnavailable) {
			t.Errorf("expected ErrReceiptUnavailable, got %v", err)
		}
	})
}

func TestGetPaymentRequiredResponse(t *testing.T) {
	body := []byte(`{"x402Version":2,"error":"payment required","resource":{"url":"https://api.example.com/weather"},"accepts":[{"scheme":"exact","network":"eip155:84532","asset":"` + testAsset + `","amount":"10000","payTo":"` + testPayTo + `","maxTimeoutSeconds":60,"extra":{"name":"USDC","version":"2"}}]}`)

	required, err := GetPaymentRequiredResponse(http.Header{}, body)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	want := x402.PaymentRequired{
		X402Version: 2,
		Error:       "payment required",
		Resource:    &x402.ResourceInfo{URL: "https://api.example.com/weather"},
		Accepts:     []x402.PaymentRequirements{testRequirements("exact")},
	}
	if diff := cmp.Diff(want, required); diff != "" {
		t.Errorf("challenge mismatch (-want +got):\n%s", diff)
	}
}

func TestGetPaymentRequiredResponsePrefersHeader(t *testing.T) {
	fromHeader := x402.PaymentRequired{
		X402Version: 2,
		Accepts:     []x402.PaymentRequirements{testRequirements("permit2")},
	}
	value, err := EncodePaymentRequiredHeader(fromHeader)
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	headers := http.Header{}
	headers.Set(HeaderPaymentRequired, value)

	body := []byte(`{"x402Version":1,"accepts":[{"scheme":"exact","network":"base-sepolia"}]}`)
	got, err := GetPaymentRequiredResponse(headers, body)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if got.X402Version != 2 || got.Accepts[0].Scheme != "permit2" {
		t.Errorf("expected header challenge to win, got %+v", got)
	}
}

func TestGetPaymentRequiredResponseMalformed(t *testing.T) {
	tests := []struct {
		name   string
		header string
		body   string
	}{
		{name: "empty body", body: ""},
		{name: "not json", body: "<html>pay me</html>"},
		{name: "missing accepts", body: `{"x402Version":2}`},
		{name: "unknown version", body: `{"x402Version":3,"accepts":[]}`},
		{name: "accepts not array", body: `{"x402Version":2,"accepts":{}}`},
		{name: "requirement without scheme", body: `{"x402Version":2,"accepts":[{"network":"eip155:8453"}]}`},
		{name: "header not base64", header: "%%%", body: `{"x402Version":2,"accepts":[]}`},
		{name: "header not json", header: base64.StdEncoding.EncodeToString([]byte("nope")), body: `{"x402Version":2,"accepts":[]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			headers := http.Header{}
			if tt.header != "" {
				headers.Set(HeaderPaymentRequired, tt.header)
			}
			_, err := GetPaymentRequiredResponse(headers, []byte(tt.body))
			if !errors.Is(err, x402.ErrMalformedPaymentRequired) {
				t.Errorf("expected ErrMalformedPaymentRequired, got %v", err)
			}
		})
	}
}
