package client

import (
	"context"

	x402 "github.com/x402-foundation/x402-interceptor"
	"github.com/x402-foundation/x402-interceptor/mechanisms/evm"
)

// EIP3009Strategy signs EIP-3009 TransferWithAuthorization messages
type EIP3009Strategy struct {
	signer evm.ClientEvmSigner
	config strategyConfig
}

// NewEIP3009Strategy creates a new EIP3009Strategy
func NewEIP3009Strategy(signer evm.ClientEvmSigner, opts ...StrategyOption) *EIP3009Strategy {
	return &EIP3009Strategy{
		signer: signer,
		config: newStrategyConfig(opts),
	}
}

// Type returns the authorization type this strategy produces
func (s *EIP3009Strategy) Type() x402.AuthorizationType {
	return x402.AuthorizationTypeEIP3009
}

// CreatePaymentPayload signs a transfer of the required amount to payTo.
// The authorization is valid from now until now + validity window.
func (s *EIP3009Strategy) CreatePaymentPayload(ctx context.Context, version int, requirements x402.PaymentRequirements) (x402.PartialPaymentPayload, error) {
	target, err := resolveTarget(requirements)
	if err != nil {
		return x402.PartialPaymentPayload{}, err
	}
	domain, err := tokenDomain(requirements, target)
	if err != nil {
		return x402.PartialPaymentPayload{}, err
	}

	nonce, err := evm.CreateNonce()
	if err != nil {
		return x402.PartialPaymentPayload{}, err
	}
	validAfter, validBefore := s.config.window()

	authorization := evm.ExactEIP3009Authorization{
		From:        s.signer.Address(),
		To:          target.payTo,
		Value:       target.amount.String(),
		ValidAfter:  validAfter.String(),
		ValidBefore: validBefore.String(),
		Nonce:       nonce,
	}

	message, err := evm.EIP3009Message(authorization)
	if err != nil {
		return x402.PartialPaymentPayload{}, err
	}
	signature, err := sign(ctx, s.signer, domain, evm.GetEIP3009EIP712Types(), "TransferWithAuthorization", message)
	if err != nil {
		return x402.PartialPaymentPayload{}, err
	}

	return partial(version, &evm.ExactEIP3009Payload{
		Signature:     signature,
		Authorization: authorization,
	}), nil
}
