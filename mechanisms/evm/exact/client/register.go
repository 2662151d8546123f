package client

import (
	x402 "github.com/x402-foundation/x402-interceptor"
	"github.com/x402-foundation/x402-interceptor/mechanisms/evm"
)

// AllEVMNetworks matches every eip155 chain
const AllEVMNetworks x402.Network = "eip155:*"

// NewStrategies returns the eip3009, permit and permit2 strategies for signer
func NewStrategies(signer evm.ClientEvmSigner, opts ...StrategyOption) []x402.AuthorizationStrategy {
	return []x402.AuthorizationStrategy{
		NewEIP3009Strategy(signer, opts...),
		NewPermitStrategy(signer, opts...),
		NewPermit2Strategy(signer, opts...),
	}
}

// DefaultNetworks is every eip155 chain plus the legacy v1 names that resolve to one
func DefaultNetworks() []x402.Network {
	networks := []x402.Network{AllEVMNetworks}
	for _, name := range evm.LegacyNetworks() {
		networks = append(networks, x402.Network(name))
	}
	return networks
}

// RegisterStrategies registers all three EVM strategies on client for the given
// networks, or for DefaultNetworks when none are given. The client's validity
// window applies to every strategy.
func RegisterStrategies(client *x402.Client, signer evm.ClientEvmSigner, networks ...x402.Network) *x402.Client {
	return RegisterStrategiesWithOptions(client, signer, nil, networks...)
}

// RegisterStrategiesWithOptions is RegisterStrategies with extra strategy options,
// such as WithCapabilityChecker.
func RegisterStrategiesWithOptions(client *x402.Client, signer evm.ClientEvmSigner, opts []StrategyOption, networks ...x402.Network) *x402.Client {
	if len(networks) == 0 {
		networks = DefaultNetworks()
	}

	all := append([]StrategyOption{WithValidityWindow(client.Config().ValidityWindow)}, opts...)
	strategies := NewStrategies(signer, all...)
	for _, network := range networks {
		for _, strategy := range strategies {
			client.RegisterStrategy(network, strategy)
		}
	}
	return client
}
