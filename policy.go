package x402

import (
	"math/big"
)

// PaymentPolicy narrows or reorders candidate requirements before the selector runs.
// Policies run in registration order and must not add requirements.
type PaymentPolicy func(version int, requirements []PaymentRequirements) []PaymentRequirements

// MaxAmountPolicy drops requirements asking for more than max base units of their asset.
// Requirements with an unparsable amount are dropped too.
func MaxAmountPolicy(max *big.Int) PaymentPolicy {
	return func(version int, requirements []PaymentRequirements) []PaymentRequirements {
		var kept []PaymentRequirements
		for _, req := range requirements {
			amount, ok := new(big.Int).SetString(req.Required(), 10)
			if !ok || amount.Cmp(max) > 0 {
				continue
			}
			kept = append(kept, req)
		}
		return kept
	}
}

// PreferNetworkPolicy moves requirements on the given networks to the front,
// keeping the server's order within each group.
func PreferNetworkPolicy(networks ...Network) PaymentPolicy {
	return func(version int, requirements []PaymentRequirements) []PaymentRequirements {
		preferred := make([]PaymentRequirements, 0, len(requirements))
		rest := make([]PaymentRequirements, 0, len(requirements))
		for _, req := range requirements {
			matched := false
			for _, n := range networks {
				if req.Network.Match(n) {
					matched = true
					break
				}
			}
			if matched {
				preferred = append(preferred, req)
			} else {
				rest = append(rest, req)
			}
		}
		return append(preferred, rest...)
	}
}
