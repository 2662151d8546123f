package svm

import (
	"context"
	"fmt"

	solana "github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"

	x402 "github.com/x402-foundation/x402-interceptor"
)

// CAIP-2 identifiers of the Solana clusters
const (
	SolanaMainnetCAIP2 = "solana:5eykt4UsFv8P8NJdTREpY1vzqKqZKvdp"
	SolanaDevnetCAIP2  = "solana:EtWTRABZaYq6iMfeYKouRu166VU2xqa1"
	SolanaTestnetCAIP2 = "solana:4uhcVJyU9pJkvQyS88uRDiswHXSCkY3z"
)

var defaultRPCURLs = map[x402.Network]string{
	SolanaMainnetCAIP2: rpc.MainNetBeta_RPC,
	"solana":           rpc.MainNetBeta_RPC,
	SolanaDevnetCAIP2:  rpc.DevNet_RPC,
	"solana-devnet":    rpc.DevNet_RPC,
	SolanaTestnetCAIP2: rpc.TestNet_RPC,
	"solana-testnet":   rpc.TestNet_RPC,
}

// RPCURLFor returns the SVM RPC endpoint for network: the configured override
// when set, otherwise the cluster's public endpoint.
func RPCURLFor(cfg x402.Config, network x402.Network) (string, error) {
	if cfg.SVMRPCURL != "" {
		return cfg.SVMRPCURL, nil
	}
	if url, ok := defaultRPCURLs[network]; ok {
		return url, nil
	}
	return "", fmt.Errorf("no RPC endpoint for network %s; set svmRpcUrl", network)
}

// ClientSigner holds a Solana keypair and the RPC client of its cluster
type ClientSigner struct {
	privateKey solana.PrivateKey
	rpcClient  *rpc.Client
}

// NewClientSignerFromPrivateKey creates a signer from a base58-encoded private key, without RPC access
func NewClientSignerFromPrivateKey(privateKeyBase58 string) (*ClientSigner, error) {
	privateKey, err := solana.PrivateKeyFromBase58(privateKeyBase58)
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}
	return &ClientSigner{privateKey: privateKey}, nil
}

// NewClientSignerFromConfig creates a signer bound to the RPC endpoint resolved by RPCURLFor
func NewClientSignerFromConfig(privateKeyBase58 string, cfg x402.Config, network x402.Network) (*ClientSigner, error) {
	url, err := RPCURLFor(cfg, network)
	if err != nil {
		return nil, err
	}
	signer, err := NewClientSignerFromPrivateKey(privateKeyBase58)
	if err != nil {
		return nil, err
	}
	signer.rpcClient = rpc.New(url)
	return signer, nil
}

// Address returns the signer's public key
func (s *ClientSigner) Address() solana.PublicKey {
	return s.privateKey.PublicKey()
}

// SignMessage returns the ed25519 signature of message
func (s *ClientSigner) SignMessage(message []byte) (solana.Signature, error) {
	sig, err := s.privateKey.Sign(message)
	if err != nil {
		return solana.Signature{}, fmt.Errorf("failed to sign: %w", err)
	}
	return sig, nil
}

// Balance returns the signer's lamport balance at finalized commitment
func (s *ClientSigner) Balance(ctx context.Context) (uint64, error) {
	if s.rpcClient == nil {
		return 0, fmt.Errorf("signer has no RPC client")
	}
	result, err := s.rpcClient.GetBalance(ctx, s.Address(), rpc.CommitmentFinalized)
	if err != nil {
		return 0, fmt.Errorf("failed to get balance: %w", err)
	}
	return result.Value, nil
}
