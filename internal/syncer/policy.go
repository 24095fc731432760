package syncer

import "fmt"

// Policy names the propagation behavior of a run. The default, and the only
// behavior the executor will act on today, is additive: an entry added on one
// device propagates everywhere, an entry deleted on one device is restored
// from the union on the next run. The symmetric alternative (propagate
// deletions too) is represented so the choice is explicit in configuration
// rather than implicit in the code, but reconciliation under it is not
// implemented.
type Policy string

const (
	PolicyAdditive  Policy = "additive"
	PolicySymmetric Policy = "symmetric"
)

// ParsePolicy validates a configured policy name.
func ParsePolicy(raw string) (Policy, error) {
	switch Policy(raw) {
	case PolicyAdditive:
		return PolicyAdditive, nil
	case PolicySymmetric:
		return PolicySymmetric, fmt.Errorf("policy %q is reserved and not implemented", raw)
	default:
		return PolicyAdditive, fmt.Errorf("unknown policy %q", raw)
	}
}
