package svm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	solana "github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	x402 "github.com/x402-foundation/x402-interceptor"
)

func newKey(t *testing.T) solana.PrivateKey {
	t.Helper()
	key, err := solana.NewRandomPrivateKey()
	require.NoError(t, err)
	return key
}

func TestRPCURLFor(t *testing.T) {
	url, err := RPCURLFor(x402.Config{}, SolanaDevnetCAIP2)
	require.NoError(t, err)
	assert.Equal(t, "https://api.devnet.solana.com", url)

	url, err = RPCURLFor(x402.Config{SVMRPCURL: "http://127.0.0.1:8899"}, SolanaDevnetCAIP2)
	require.NoError(t, err)
	assert.Equal(t, "http://127.0.0.1:8899", url)

	_, err = RPCURLFor(x402.Config{}, "solana:unknown")
	assert.Error(t, err)
}

func TestSignMessage(t *testing.T) {
	key := newKey(t)
	signer, err := NewClientSignerFromPrivateKey(key.String())
	require.NoError(t, err)
	assert.Equal(t, key.PublicKey(), signer.Address())

	msg := []byte("x402")
	sig, err := signer.SignMessage(msg)
	require.NoError(t, err)
	assert.True(t, sig.Verify(signer.Address(), msg))

	_, err = NewClientSignerFromPrivateKey("not-base58-0OIl")
	assert.Error(t, err)
}

func TestBalanceUsesOverride(t *testing.T) {
	var method string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ID     json.RawMessage `json:"id"`
			Method string          `json:"method"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		method = req.Method
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"jsonrpc":"2.0","id":` + string(req.ID) + `,"result":{"context":{"slot":1},"value":5000}}`))
	}))
	defer srv.Close()

	signer, err := NewClientSignerFromConfig(newKey(t).String(), x402.Config{SVMRPCURL: srv.URL}, SolanaDevnetCAIP2)
	require.NoError(t, err)

	balance, err := signer.Balance(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(5000), balance)
	assert.Equal(t, "getBalance", method)
}

func TestBalanceWithoutRPC(t *testing.T) {
	signer, err := NewClientSignerFromPrivateKey(newKey(t).String())
	require.NoError(t, err)
	_, err = signer.Balance(context.Background())
	assert.Error(t, err)
}
