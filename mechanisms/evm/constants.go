package evm

import (
	"math/big"
)

const (
	// Scheme identifier
	SchemeExact = "exact"

	// Default token decimals for USDC
	DefaultDecimals = 6

	// PERMIT2Address is the canonical Uniswap Permit2 contract address.
	// Same address on all EVM chains via CREATE2 deployment.
	PERMIT2Address = "0x000000000022D473030F116dDEE9F6B43aC78BA3"

	// X402ExactPermit2ProxyAddress is the x402 exact payment proxy.
	// It is the Permit2 spender and the default EIP-2612 spender.
	X402ExactPermit2ProxyAddress = "0x4020615294c913F045dc10f0a5cdEbd86c280001"
)

var (
	// Network chain IDs
	ChainIDBase        = big.NewInt(8453)
	ChainIDBaseSepolia = big.NewInt(84532)

	baseMainnet = NetworkConfig{
		ChainID: ChainIDBase,
		RPCURL:  "https://mainnet.base.org",
		DefaultAsset: AssetInfo{
			Address:  "0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913", // USDC on Base
			Name:     "USD Coin",
			Version:  "2",
			Decimals: DefaultDecimals,
		},
	}

	baseSepolia = NetworkConfig{
		ChainID: ChainIDBaseSepolia,
		RPCURL:  "https://sepolia.base.org",
		DefaultAsset: AssetInfo{
			Address:  "0x036CbD53842c5426634e7929541eC2318f3dCF7e", // USDC on Base Sepolia
			Name:     "USDC",
			Version:  "2",
			Decimals: DefaultDecimals,
		},
	}

	// NetworkConfigs holds the networks with a known default asset, keyed by
	// CAIP-2 id and by legacy v1 name.
	NetworkConfigs = map[string]NetworkConfig{
		"eip155:8453":  baseMainnet,
		"base":         baseMainnet,
		"eip155:84532": baseSepolia,
		"base-sepolia": baseSepolia,
	}

	// legacyChainIDs maps v1 network names without a NetworkConfig to chain ids
	legacyChainIDs = map[string]int64{
		"base-mainnet":     8453,
		"ethereum":         1,
		"sepolia":          11155111,
		"polygon":          137,
		"polygon-amoy":     80002,
		"arbitrum":         42161,
		"optimism":         10,
		"avalanche":        43114,
		"avalanche-fuji":   43113,
		"abstract":         2741,
		"abstract-testnet": 11124,
	}

	// EIP2612NoncesABI reads the per-owner permit nonce of an EIP-2612 token
	EIP2612NoncesABI = []byte(`[
		{
			"inputs": [{"name": "owner", "type": "address"}],
			"name": "nonces",
			"outputs": [{"name": "", "type": "uint256"}],
			"stateMutability": "view",
			"type": "function"
		}
	]`)

	// ERC20AllowanceABI for checking Permit2 approval
	ERC20AllowanceABI = []byte(`[
		{
			"inputs": [
				{"name": "owner", "type": "address"},
				{"name": "spender", "type": "address"}
			],
			"name": "allowance",
			"outputs": [{"name": "", "type": "uint256"}],
			"stateMutability": "view",
			"type": "function"
		}
	]`)

	// ERC20ApproveABI for approving Permit2
	ERC20ApproveABI = []byte(`[
		{
			"inputs": [
				{"name": "spender", "type": "address"},
				{"name": "amount", "type": "uint256"}
			],
			"name": "approve",
			"outputs": [{"name": "", "type": "bool"}],
			"stateMutability": "nonpayable",
			"type": "function"
		}
	]`)

	// EIP712DomainTypes is the full EIP-712 domain used by token-scoped signatures
	EIP712DomainTypes = []TypedDataField{
		{Name: "name", Type: "string"},
		{Name: "version", Type: "string"},
		{Name: "chainId", Type: "uint256"},
		{Name: "verifyingContract", Type: "address"},
	}

	// Permit2DomainTypes is the EIP-712 domain of the Permit2 contract (no version field)
	Permit2DomainTypes = []TypedDataField{
		{Name: "name", Type: "string"},
		{Name: "chainId", Type: "uint256"},
		{Name: "verifyingContract", Type: "address"},
	}

	// TransferWithAuthorizationTypes are the EIP-3009 message types
	TransferWithAuthorizationTypes = []TypedDataField{
		{Name: "from", Type: "address"},
		{Name: "to", Type: "address"},
		{Name: "value", Type: "uint256"},
		{Name: "validAfter", Type: "uint256"},
		{Name: "validBefore", Type: "uint256"},
		{Name: "nonce", Type: "bytes32"},
	}

	// PermitTypes are the EIP-2612 message types
	PermitTypes = []TypedDataField{
		{Name: "owner", Type: "address"},
		{Name: "spender", Type: "address"},
		{Name: "value", Type: "uint256"},
		{Name: "nonce", Type: "uint256"},
		{Name: "deadline", Type: "uint256"},
	}

	// Permit2WitnessTypes defines the EIP-712 types for Permit2 with witness.
	// Field order must match the on-chain Permit2 contract.
	Permit2WitnessTypes = map[string][]TypedDataField{
		"PermitWitnessTransferFrom": {
			{Name: "permitted", Type: "TokenPermissions"},
			{Name: "spender", Type: "address"},
			{Name: "nonce", Type: "uint256"},
			{Name: "deadline", Type: "uint256"},
			{Name: "witness", Type: "Witness"},
		},
		"TokenPermissions": {
			{Name: "token", Type: "address"},
			{Name: "amount", Type: "uint256"},
		},
		"Witness": {
			{Name: "to", Type: "address"},
			{Name: "validAfter", Type: "uint256"},
			{Name: "extra", Type: "bytes"},
		},
	}
)

// GetEIP3009EIP712Types returns the complete EIP-712 types map for TransferWithAuthorization
func GetEIP3009EIP712Types() map[string][]TypedDataField {
	return map[string][]TypedDataField{
		"EIP712Domain":              EIP712DomainTypes,
		"TransferWithAuthorization": TransferWithAuthorizationTypes,
	}
}

// GetEIP2612EIP712Types returns the complete EIP-712 types map for an EIP-2612 Permit
func GetEIP2612EIP712Types() map[string][]TypedDataField {
	return map[string][]TypedDataField{
		"EIP712Domain": EIP712DomainTypes,
		"Permit":       PermitTypes,
	}
}

// GetPermit2EIP712Types returns the complete EIP-712 types map for Permit2 signing.
func GetPermit2EIP712Types() map[string][]TypedDataField {
	return map[string][]TypedDataField{
		"EIP712Domain":              Permit2DomainTypes,
		"PermitWitnessTransferFrom": Permit2WitnessTypes["PermitWitnessTransferFrom"],
		"TokenPermissions":          Permit2WitnessTypes["TokenPermissions"],
		"Witness":                   Permit2WitnessTypes["Witness"],
	}
}
