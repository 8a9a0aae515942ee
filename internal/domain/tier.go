package domain

// Tier is the subscription level of an account. Tiers are ordered:
// a tier with a higher rank grants a larger daily task quota and a
// lower per-task price.
type Tier string

// Known tiers, lowest rank first.
const (
	TierBase Tier = "base"
	Tier2    Tier = "tier2"
	Tier3    Tier = "tier3"
	Tier4    Tier = "tier4"
)

// tierRanks fixes the ordering used for downgrade checks. Prices and
// quota limits are configuration; the ordering is not.
var tierRanks = map[Tier]int{
	TierBase: 0,
	Tier2:    1,
	Tier3:    2,
	Tier4:    3,
}

// Rank returns the numeric position of the tier in the ordering.
// Unknown tiers rank below base.
func (t Tier) Rank() int {
	rank, ok := tierRanks[t]
	if !ok {
		return -1
	}
	return rank
}

// Valid reports whether t is one of the known tiers.
func (t Tier) Valid() bool {
	_, ok := tierRanks[t]
	return ok
}
