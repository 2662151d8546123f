package paymentidentifier

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	x402 "github.com/x402-foundation/x402-interceptor"
)

func TestGeneratePaymentID(t *testing.T) {
	id := GeneratePaymentID("")
	assert.True(t, strings.HasPrefix(id, "pay_"))
	assert.Len(t, id, 4+32)
	assert.True(t, IsValidPaymentID(id))
	assert.NotEqual(t, id, GeneratePaymentID(""))

	assert.True(t, strings.HasPrefix(GeneratePaymentID("order-"), "order-"))
}

func TestIsValidPaymentID(t *testing.T) {
	assert.False(t, IsValidPaymentID("short"))
	assert.False(t, IsValidPaymentID(strings.Repeat("a", 129)))
	assert.False(t, IsValidPaymentID("pay_has spaces in it!"))
	assert.True(t, IsValidPaymentID(strings.Repeat("a", 16)))
	assert.True(t, IsValidPaymentID(strings.Repeat("a", 128)))
}

func TestDeclared(t *testing.T) {
	declared, mandatory := Declared(x402.PaymentRequired{X402Version: 2})
	assert.False(t, declared)
	assert.False(t, mandatory)

	var required x402.PaymentRequired
	require.NoError(t, json.Unmarshal([]byte(`{"x402Version":2,"accepts":[],"extensions":{"payment-identifier":{"info":{"required":true}}}}`), &required))
	declared, mandatory = Declared(required)
	assert.True(t, declared)
	assert.True(t, mandatory)

	required.X402Version = 1
	declared, _ = Declared(required)
	assert.False(t, declared, "v1 has no extensions")
}

func TestAppendToExtensions(t *testing.T) {
	original := map[string]interface{}{"bazaar": map[string]interface{}{"x": 1}}
	out, id := AppendToExtensions(original, true)

	assert.NotContains(t, original, PAYMENT_IDENTIFIER, "input must not be mutated")
	assert.Contains(t, out, "bazaar")

	payload := x402.PaymentPayload{X402Version: 2, Extensions: out}
	got, err := ExtractPaymentIdentifier(payload, true)
	require.NoError(t, err)
	assert.Equal(t, id, got)

	// survives a JSON round trip
	data, err := json.Marshal(payload)
	require.NoError(t, err)
	var decoded x402.PaymentPayload
	require.NoError(t, json.Unmarshal(data, &decoded))
	got, err = ExtractPaymentIdentifier(decoded, true)
	require.NoError(t, err)
	assert.Equal(t, id, got)
}

func TestExtractPaymentIdentifierInvalid(t *testing.T) {
	payload := x402.PaymentPayload{Extensions: map[string]interface{}{
		PAYMENT_IDENTIFIER: map[string]interface{}{"info": map[string]interface{}{"required": false, "id": "bad id"}},
	}}
	_, err := ExtractPaymentIdentifier(payload, true)
	assert.Error(t, err)

	id, err := ExtractPaymentIdentifier(payload, false)
	require.NoError(t, err)
	assert.Equal(t, "bad id", id)

	id, err = ExtractPaymentIdentifier(x402.PaymentPayload{}, true)
	require.NoError(t, err)
	assert.Empty(t, id)
}

func TestPayloadFingerprint(t *testing.T) {
	a, err := PayloadFingerprint(x402.PaymentPayload{X402Version: 2, Payload: map[string]interface{}{"signature": "0x01"}})
	require.NoError(t, err)
	b, err := PayloadFingerprint(x402.PaymentPayload{X402Version: 2, Payload: map[string]interface{}{"signature": "0x02"}})
	require.NoError(t, err)
	assert.Len(t, a, 64)
	assert.NotEqual(t, a, b)
}
