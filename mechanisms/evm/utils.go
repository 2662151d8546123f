package evm

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"math/big"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// GetEvmChainId returns the chain id for a CAIP-2 "eip155:<id>" network or a legacy name
func GetEvmChainId(network string) (*big.Int, error) {
	if config, ok := NetworkConfigs[network]; ok {
		return new(big.Int).Set(config.ChainID), nil
	}
	if id, ok := legacyChainIDs[network]; ok {
		return big.NewInt(id), nil
	}

	reference, ok := strings.CutPrefix(network, "eip155:")
	if !ok || reference == "" {
		return nil, fmt.Errorf("unsupported network: %q", network)
	}
	id, err := strconv.ParseInt(reference, 10, 64)
	if err != nil || id <= 0 {
		return nil, fmt.Errorf("invalid chain id in network %q", network)
	}
	return big.NewInt(id), nil
}

// IsValidNetwork reports whether network resolves to an EVM chain id
func IsValidNetwork(network string) bool {
	_, err := GetEvmChainId(network)
	return err == nil
}

// LegacyNetworks returns the v1 network names that resolve to a chain id, sorted
func LegacyNetworks() []string {
	names := make([]string, 0, len(NetworkConfigs)+len(legacyChainIDs))
	for name := range NetworkConfigs {
		if !strings.HasPrefix(name, "eip155:") {
			names = append(names, name)
		}
	}
	for name := range legacyChainIDs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// GetNetworkConfig returns the configuration of a network with a known default asset
func GetNetworkConfig(network string) (NetworkConfig, error) {
	config, ok := NetworkConfigs[network]
	if !ok {
		return NetworkConfig{}, fmt.Errorf("no configuration for network: %s", network)
	}
	return config, nil
}

// GetAssetInfo returns token metadata for asset on network. An empty asset
// means the network's default asset.
func GetAssetInfo(network string, asset string) (AssetInfo, error) {
	config, err := GetNetworkConfig(network)
	if err != nil {
		return AssetInfo{}, err
	}
	if asset == "" || strings.EqualFold(asset, config.DefaultAsset.Address) {
		return config.DefaultAsset, nil
	}
	return AssetInfo{}, fmt.Errorf("unknown asset %s on network %s", asset, network)
}

// CreateNonce returns a random 32-byte EIP-3009 nonce as 0x-prefixed hex
func CreateNonce() (string, error) {
	nonce := make([]byte, 32)
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}
	return BytesToHex(nonce), nil
}

// CreatePermit2Nonce returns a random uint256 Permit2 nonce as a decimal string
func CreatePermit2Nonce() (string, error) {
	nonce := make([]byte, 32)
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}
	return new(big.Int).SetBytes(nonce).String(), nil
}

// CreateValidityWindow returns validAfter = now and validBefore = now + duration as
// unix seconds. Durations under one second are raised to one second.
func CreateValidityWindow(now time.Time, duration time.Duration) (validAfter, validBefore *big.Int) {
	if duration < time.Second {
		duration = time.Second
	}
	start := now.Unix()
	return big.NewInt(start), big.NewInt(start + int64(duration/time.Second))
}

// MaxUint256 returns 2^256 - 1
func MaxUint256() *big.Int {
	max := new(big.Int).Lsh(big.NewInt(1), 256)
	return max.Sub(max, big.NewInt(1))
}

// NormalizeAddress lowercases an address and ensures the 0x prefix
func NormalizeAddress(address string) string {
	address = strings.ToLower(strings.TrimPrefix(strings.TrimPrefix(address, "0x"), "0X"))
	return "0x" + address
}

// IsValidAddress reports whether address is 20 bytes of hex, with or without 0x
func IsValidAddress(address string) bool {
	if !strings.HasPrefix(address, "0x") && !strings.HasPrefix(address, "0X") {
		address = "0x" + address
	}
	return common.IsHexAddress(address)
}

// HexToBytes decodes hex with or without the 0x prefix
func HexToBytes(s string) ([]byte, error) {
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if s == "" {
		return []byte{}, nil
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid hex string: %w", err)
	}
	return b, nil
}

// BytesToHex encodes bytes as 0x-prefixed hex
func BytesToHex(b []byte) string {
	return "0x" + hex.EncodeToString(b)
}

// ParseAmount converts a decimal amount such as "1.5" to base units, truncating extra precision
func ParseAmount(amount string, decimals int) (*big.Int, error) {
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("invalid amount %q: %w", amount, err)
	}
	return d.Shift(int32(decimals)).Truncate(0).BigInt(), nil
}

// FormatAmount renders base units as a decimal string without trailing zeros
func FormatAmount(amount *big.Int, decimals int) string {
	if amount == nil {
		return "0"
	}
	return decimal.NewFromBigInt(amount, -int32(decimals)).String()
}
