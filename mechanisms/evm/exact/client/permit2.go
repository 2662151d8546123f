package client

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	x402 "github.com/x402-foundation/x402-interceptor"
	"github.com/x402-foundation/x402-interceptor/mechanisms/evm"
)

// Permit2Strategy signs PermitWitnessTransferFrom messages against the canonical
// Permit2 contract. The x402 proxy is the spender and only releases funds to witness.to.
//
// The strategy does not check the owner's Permit2 allowance; a missing approval
// surfaces as a permit2_allowance_required settlement failure.
type Permit2Strategy struct {
	signer evm.ClientEvmSigner
	config strategyConfig
}

// NewPermit2Strategy creates a new Permit2Strategy
func NewPermit2Strategy(signer evm.ClientEvmSigner, opts ...StrategyOption) *Permit2Strategy {
	return &Permit2Strategy{
		signer: signer,
		config: newStrategyConfig(opts),
	}
}

// Type returns the authorization type this strategy produces
func (s *Permit2Strategy) Type() x402.AuthorizationType {
	return x402.AuthorizationTypePermit2
}

// CreatePaymentPayload signs a Permit2 witness transfer of the required amount to payTo
func (s *Permit2Strategy) CreatePaymentPayload(ctx context.Context, version int, requirements x402.PaymentRequirements) (x402.PartialPaymentPayload, error) {
	target, err := resolveTarget(requirements)
	if err != nil {
		return x402.PartialPaymentPayload{}, err
	}

	nonce, err := evm.CreatePermit2Nonce()
	if err != nil {
		return x402.PartialPaymentPayload{}, err
	}
	validAfter, deadline := s.config.window()

	authorization := evm.Permit2Authorization{
		From: s.signer.Address(),
		Permitted: evm.Permit2TokenPermissions{
			Token:  target.asset,
			Amount: target.amount.String(),
		},
		Spender:  evm.X402ExactPermit2ProxyAddress,
		Nonce:    nonce,
		Deadline: deadline.String(),
		Witness: evm.Permit2Witness{
			To:         target.payTo,
			ValidAfter: validAfter.String(),
			Extra:      "0x",
		},
	}

	message, err := evm.Permit2Message(authorization)
	if err != nil {
		return x402.PartialPaymentPayload{}, err
	}
	signature, err := sign(ctx, s.signer, evm.Permit2Domain(target.chainID), evm.GetPermit2EIP712Types(), "PermitWitnessTransferFrom", message)
	if err != nil {
		return x402.PartialPaymentPayload{}, err
	}

	return partial(version, &evm.ExactPermit2Payload{
		Signature:            signature,
		Permit2Authorization: authorization,
	}), nil
}

// Permit2AllowanceParams contains parameters for checking Permit2 allowance.
type Permit2AllowanceParams struct {
	TokenAddress string
	OwnerAddress string
}

// GetPermit2AllowanceReadParams returns the contract call that reads the owner's
// ERC-20 allowance for the Permit2 contract.
func GetPermit2AllowanceReadParams(params Permit2AllowanceParams) (address string, abi []byte, functionName string, args []interface{}) {
	return evm.NormalizeAddress(params.TokenAddress),
		evm.ERC20AllowanceABI,
		"allowance",
		[]interface{}{common.HexToAddress(params.OwnerAddress), common.HexToAddress(evm.PERMIT2Address)}
}

// CheckPermit2Allowance reports whether the owner has approved Permit2 for at least amount.
// It wraps x402.ErrAllowanceRequired when the allowance is short.
func CheckPermit2Allowance(ctx context.Context, reader evm.ContractReader, params Permit2AllowanceParams, amount *big.Int) (*big.Int, error) {
	address, abi, fn, args := GetPermit2AllowanceReadParams(params)
	result, err := reader.ReadContract(ctx, address, abi, fn, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to read Permit2 allowance: %w", err)
	}
	allowance, ok := result.(*big.Int)
	if !ok {
		return nil, fmt.Errorf("unexpected allowance type: %T", result)
	}
	if amount != nil && allowance.Cmp(amount) < 0 {
		return allowance, fmt.Errorf("%w: allowance %s is below %s", x402.ErrAllowanceRequired, allowance, amount)
	}
	return allowance, nil
}

// CreatePermit2ApprovalTxData returns the approve(Permit2, MaxUint256) call the
// owner must send once, paying gas, before the Permit2 flow can settle.
func CreatePermit2ApprovalTxData(tokenAddress string) (to string, abi []byte, functionName string, args []interface{}) {
	return evm.NormalizeAddress(tokenAddress),
		evm.ERC20ApproveABI,
		"approve",
		[]interface{}{common.HexToAddress(evm.PERMIT2Address), evm.MaxUint256()}
}
