package evm

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"

	x402 "github.com/x402-foundation/x402-interceptor"
	x402evm "github.com/x402-foundation/x402-interceptor/mechanisms/evm"
)

// ErrNoRPCClient is returned by ReadContract when the signer was built without an RPC client
var ErrNoRPCClient = errors.New("signer has no RPC client")

// ContractCaller executes eth_call. *ethclient.Client satisfies it.
type ContractCaller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// ClientSigner implements x402evm.ClientEvmSigner and x402evm.ChainBoundReader with an ECDSA key
type ClientSigner struct {
	privateKey *ecdsa.PrivateKey
	address    common.Address
	caller     ContractCaller
	chainID    *big.Int
}

// NewClientSignerFromPrivateKey creates a signer that can sign but not read contracts.
// The key is hex, with or without the 0x prefix.
func NewClientSignerFromPrivateKey(privateKeyHex string) (*ClientSigner, error) {
	return NewClientSignerWithCaller(privateKeyHex, nil)
}

// NewClientSignerWithCaller creates a signer whose contract reads go through caller
func NewClientSignerWithCaller(privateKeyHex string, caller ContractCaller) (*ClientSigner, error) {
	privateKey, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(privateKeyHex), "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}

	return &ClientSigner{
		privateKey: privateKey,
		address:    crypto.PubkeyToAddress(privateKey.PublicKey),
		caller:     caller,
	}, nil
}

// RPCURLFor returns the EVM RPC endpoint for network: the configured override
// when set, otherwise the network's public default.
func RPCURLFor(cfg x402.Config, network x402.Network) (string, error) {
	if !x402evm.IsValidNetwork(string(network)) {
		return "", fmt.Errorf("not an EVM network: %s", network)
	}
	if cfg.EVMRPCURL != "" {
		return cfg.EVMRPCURL, nil
	}
	netCfg, err := x402evm.GetNetworkConfig(string(network))
	if err != nil || netCfg.RPCURL == "" {
		return "", fmt.Errorf("no RPC endpoint for network %s; set evmRpcUrl", network)
	}
	return netCfg.RPCURL, nil
}

// NewClientSignerFromConfig creates a signer whose contract reads go to the RPC
// endpoint resolved by RPCURLFor. The caller owns the returned close function.
func NewClientSignerFromConfig(ctx context.Context, privateKeyHex string, cfg x402.Config, network x402.Network) (*ClientSigner, func(), error) {
	url, err := RPCURLFor(cfg, network)
	if err != nil {
		return nil, nil, err
	}
	client, err := ethclient.DialContext(ctx, url)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to %s: %w", url, err)
	}

	signer, err := NewClientSignerWithCaller(privateKeyHex, client)
	if err != nil {
		client.Close()
		return nil, nil, err
	}
	chainID, err := x402evm.GetEvmChainId(string(network))
	if err != nil {
		client.Close()
		return nil, nil, err
	}
	return signer.OnChain(chainID), client.Close, nil
}

// OnChain records the chain the signer's caller is connected to, so strategies
// can refuse reads meant for another chain. It returns s.
func (s *ClientSigner) OnChain(chainID *big.Int) *ClientSigner {
	if chainID != nil {
		s.chainID = new(big.Int).Set(chainID)
	}
	return s
}

// ChainID returns the chain contract reads go to, or nil when unknown
func (s *ClientSigner) ChainID() *big.Int {
	if s.chainID == nil {
		return nil
	}
	return new(big.Int).Set(s.chainID)
}

// Address returns the checksummed address of the signer
func (s *ClientSigner) Address() string {
	return s.address.Hex()
}

// SignTypedData returns a 65-byte r||s||v signature with v in {27, 28}
func (s *ClientSigner) SignTypedData(
	ctx context.Context,
	domain x402evm.TypedDataDomain,
	types map[string][]x402evm.TypedDataField,
	primaryType string,
	message map[string]interface{},
) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	digest, err := x402evm.HashTypedData(domain, types, primaryType, message)
	if err != nil {
		return nil, err
	}

	signature, err := crypto.Sign(digest, s.privateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to sign: %w", err)
	}
	signature[64] += 27

	return signature, nil
}

// ReadContract calls a view function and returns its single output, or all
// outputs as a slice when there are several.
func (s *ClientSigner) ReadContract(
	ctx context.Context,
	contractAddress string,
	abiBytes []byte,
	functionName string,
	args ...interface{},
) (interface{}, error) {
	if s.caller == nil {
		return nil, ErrNoRPCClient
	}

	contractABI, err := abi.JSON(bytes.NewReader(abiBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to parse ABI: %w", err)
	}
	data, err := contractABI.Pack(functionName, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to pack method call: %w", err)
	}

	addr := common.HexToAddress(contractAddress)
	result, err := s.caller.CallContract(ctx, ethereum.CallMsg{To: &addr, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("contract call failed: %w", err)
	}

	outputs, err := contractABI.Unpack(functionName, result)
	if err != nil {
		return nil, fmt.Errorf("failed to unpack result: %w", err)
	}

	switch len(outputs) {
	case 0:
		return nil, nil
	case 1:
		return outputs[0], nil
	default:
		return outputs, nil
	}
}
