package client

import (
	"context"
	"fmt"
	"math/big"
	"time"

	x402 "github.com/x402-foundation/x402-interceptor"
	"github.com/x402-foundation/x402-interceptor/mechanisms/evm"
)

// CapabilityChecker answers whether a token implements EIP-2612.
// *tokenmetadata.Client satisfies it.
type CapabilityChecker interface {
	SupportsEIP2612(ctx context.Context, network string, tokenAddress string) (bool, error)
}

// StrategyOption configures the EVM strategies
type StrategyOption func(*strategyConfig)

type strategyConfig struct {
	validityWindow time.Duration
	checker        CapabilityChecker
	now            func() time.Time
}

func newStrategyConfig(opts []StrategyOption) strategyConfig {
	cfg := strategyConfig{
		validityWindow: x402.DefaultValidityWindow,
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// WithValidityWindow sets how long a signed authorization stays valid
func WithValidityWindow(window time.Duration) StrategyOption {
	return func(c *strategyConfig) {
		if window > 0 {
			c.validityWindow = window
		}
	}
}

// WithCapabilityChecker lets the permit strategy consult a token capability service
// before reading the on-chain nonce.
func WithCapabilityChecker(checker CapabilityChecker) StrategyOption {
	return func(c *strategyConfig) {
		c.checker = checker
	}
}

func withClock(now func() time.Time) StrategyOption {
	return func(c *strategyConfig) {
		c.now = now
	}
}

// window returns validAfter = now and the deadline now + validity window, as unix seconds
func (c strategyConfig) window() (*big.Int, *big.Int) {
	return evm.CreateValidityWindow(c.now(), c.validityWindow)
}

// paymentTarget holds the values every strategy derives from the requirements
type paymentTarget struct {
	chainID *big.Int
	asset   string
	payTo   string
	amount  *big.Int
}

func resolveTarget(requirements x402.PaymentRequirements) (paymentTarget, error) {
	chainID, err := evm.GetEvmChainId(string(requirements.Network))
	if err != nil {
		return paymentTarget{}, &x402.PaymentError{
			Code:    x402.ErrCodeUnsupportedNetwork,
			Message: err.Error(),
			Err:     err,
		}
	}
	if !evm.IsValidAddress(requirements.Asset) {
		return paymentTarget{}, fmt.Errorf("invalid asset address: %q", requirements.Asset)
	}
	if !evm.IsValidAddress(requirements.PayTo) {
		return paymentTarget{}, fmt.Errorf("invalid payTo address: %q", requirements.PayTo)
	}
	amount, ok := new(big.Int).SetString(requirements.Required(), 10)
	if !ok || amount.Sign() < 0 {
		return paymentTarget{}, fmt.Errorf("invalid amount: %q", requirements.Required())
	}

	return paymentTarget{
		chainID: chainID,
		asset:   evm.NormalizeAddress(requirements.Asset),
		payTo:   evm.NormalizeAddress(requirements.PayTo),
		amount:  amount,
	}, nil
}

// tokenDomain resolves the token's EIP-712 name and version from extra,
// falling back to the network's default asset.
func tokenDomain(requirements x402.PaymentRequirements, target paymentTarget) (evm.TypedDataDomain, error) {
	name := requirements.ExtraString("name")
	version := requirements.ExtraString("version")
	if name == "" || version == "" {
		if info, err := evm.GetAssetInfo(string(requirements.Network), requirements.Asset); err == nil {
			if name == "" {
				name = info.Name
			}
			if version == "" {
				version = info.Version
			}
		}
	}
	if name == "" || version == "" {
		return evm.TypedDataDomain{}, fmt.Errorf("missing EIP-712 domain name or version for asset %s", target.asset)
	}
	return evm.TokenDomain(name, version, target.chainID, target.asset), nil
}

func sign(ctx context.Context, signer evm.ClientEvmSigner, domain evm.TypedDataDomain, types map[string][]evm.TypedDataField, primaryType string, message map[string]interface{}) (string, error) {
	signature, err := signer.SignTypedData(ctx, domain, types, primaryType, message)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", x402.ErrSigningFailed, primaryType, err)
	}
	return evm.BytesToHex(signature), nil
}

func partial(version int, auth evm.SignedAuthorization) x402.PartialPaymentPayload {
	return x402.PartialPaymentPayload{
		X402Version: version,
		Payload:     auth.ToMap(),
	}
}
