package client

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	x402 "github.com/x402-foundation/x402-interceptor"
	"github.com/x402-foundation/x402-interceptor/mechanisms/evm"
)

// PermitStrategy signs EIP-2612 Permit messages.
//
// The permit nonce is read from the token contract on every call; signing
// twice before the first permit is consumed yields the same nonce.
type PermitStrategy struct {
	signer evm.ClientEvmSigner
	config strategyConfig
}

// NewPermitStrategy creates a new PermitStrategy. The signer should also
// implement evm.ContractReader, otherwise every payment fails the capability probe.
func NewPermitStrategy(signer evm.ClientEvmSigner, opts ...StrategyOption) *PermitStrategy {
	return &PermitStrategy{
		signer: signer,
		config: newStrategyConfig(opts),
	}
}

// Type returns the authorization type this strategy produces
func (s *PermitStrategy) Type() x402.AuthorizationType {
	return x402.AuthorizationTypePermit
}

// CreatePaymentPayload probes the token for EIP-2612 support, reads the
// owner's nonce and signs a permit for the required amount.
func (s *PermitStrategy) CreatePaymentPayload(ctx context.Context, version int, requirements x402.PaymentRequirements) (x402.PartialPaymentPayload, error) {
	target, err := resolveTarget(requirements)
	if err != nil {
		return x402.PartialPaymentPayload{}, err
	}

	nonce, err := s.probe(ctx, requirements, target)
	if err != nil {
		return x402.PartialPaymentPayload{}, err
	}

	domain, err := tokenDomain(requirements, target)
	if err != nil {
		return x402.PartialPaymentPayload{}, err
	}

	spender := requirements.ExtraString("spender")
	if spender == "" {
		spender = evm.X402ExactPermit2ProxyAddress
	}
	if !evm.IsValidAddress(spender) {
		return x402.PartialPaymentPayload{}, fmt.Errorf("invalid permit spender: %q", spender)
	}
	_, deadline := s.config.window()

	permit := evm.ExactPermitAuthorization{
		Owner:    s.signer.Address(),
		Spender:  evm.NormalizeAddress(spender),
		Value:    target.amount.String(),
		Nonce:    nonce.String(),
		Deadline: deadline.String(),
	}

	message, err := evm.PermitMessage(permit)
	if err != nil {
		return x402.PartialPaymentPayload{}, err
	}
	signature, err := sign(ctx, s.signer, domain, evm.GetEIP2612EIP712Types(), "Permit", message)
	if err != nil {
		return x402.PartialPaymentPayload{}, err
	}

	return partial(version, &evm.ExactPermitPayload{
		Signature: signature,
		Permit:    permit,
	}), nil
}

// probe confirms the token accepts permits and returns the current nonce of the owner
func (s *PermitStrategy) probe(ctx context.Context, requirements x402.PaymentRequirements, target paymentTarget) (*big.Int, error) {
	if supported, ok := requirements.Extra["supportsEip2612"].(bool); ok && !supported {
		return nil, unsupported(target.asset, "server reports no EIP-2612 support")
	}

	if s.config.checker != nil {
		supported, err := s.config.checker.SupportsEIP2612(ctx, string(requirements.Network), target.asset)
		if err == nil && !supported {
			return nil, unsupported(target.asset, "token metadata reports no EIP-2612 support")
		}
	}

	reader, ok := s.signer.(evm.ContractReader)
	if !ok {
		return nil, unsupported(target.asset, "signer cannot read the token nonce")
	}
	if bound, ok := reader.(evm.ChainBoundReader); ok {
		if chainID := bound.ChainID(); chainID != nil && chainID.Cmp(target.chainID) != 0 {
			return nil, fmt.Errorf("%w: signer reads chain %s but the payment is on chain %s", x402.ErrNonceUnavailable, chainID, target.chainID)
		}
	}

	result, err := reader.ReadContract(ctx, target.asset, evm.EIP2612NoncesABI, "nonces", common.HexToAddress(s.signer.Address()))
	if err != nil {
		return nil, fmt.Errorf("%w: %w: nonces(owner) on %s: %w", x402.ErrCapabilityUnsupported, x402.ErrNonceUnavailable, target.asset, err)
	}
	nonce, ok := result.(*big.Int)
	if !ok {
		return nil, fmt.Errorf("%w: unexpected nonce type %T", x402.ErrNonceUnavailable, result)
	}
	return nonce, nil
}

func unsupported(asset, reason string) error {
	return fmt.Errorf("%w: %s for %s; use eip3009 or permit2 instead", x402.ErrCapabilityUnsupported, reason, asset)
}
