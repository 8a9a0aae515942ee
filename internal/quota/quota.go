// Package quota decides whether an account may create another
// prediction task today, and what a task costs on the paid path.
// The tier tables are configuration; only the tier ordering is fixed.
package quota

import (
	"errors"
	"fmt"
	"time"

	"github.com/hailcast/hailcast-api/internal/config"
	"github.com/hailcast/hailcast-api/internal/domain"
)

// ErrQuotaExceeded is returned when an account has used up its tier's
// daily task allowance.
var ErrQuotaExceeded = errors.New("daily task quota exceeded")

// Unlimited is the DailyLimit value meaning no quota applies.
const Unlimited = -1

// LimitError carries the limit that was hit alongside ErrQuotaExceeded.
type LimitError struct {
	Tier  domain.Tier
	Limit int
}

// Error implements the error interface.
func (e *LimitError) Error() string {
	return fmt.Sprintf("daily task quota exceeded: %s tier allows %d tasks per day", e.Tier, e.Limit)
}

// Unwrap returns ErrQuotaExceeded so callers can match with errors.Is.
func (e *LimitError) Unwrap() error {
	return ErrQuotaExceeded
}

// Params holds the business values for one tier.
type Params struct {
	// Price is the purchase/renewal price of the tier.
	Price float64
	// DailyLimit is the task quota per UTC day; Unlimited disables it.
	DailyLimit int
	// TaskCost is the per-task price on the paid submission path.
	TaskCost float64
	// Duration is how long one purchase extends the tier.
	Duration time.Duration
}

// Policy answers quota and pricing questions from the configured tier table.
type Policy struct {
	tiers map[domain.Tier]Params
}

// NewPolicy creates a Policy from the configured tier table.
// Tier names that are not known tiers are ignored.
func NewPolicy(tiers map[string]config.TierConfig) *Policy {
	table := make(map[domain.Tier]Params, len(tiers))
	for name, tc := range tiers {
		tier := domain.Tier(name)
		if !tier.Valid() {
			continue
		}
		table[tier] = Params{
			Price:      tc.Price,
			DailyLimit: tc.DailyLimit,
			TaskCost:   tc.TaskCost,
			Duration:   time.Duration(tc.DurationDays) * 24 * time.Hour,
		}
	}
	return &Policy{tiers: table}
}

// Check allows or denies creating one more task today.
// tasksToday is the number of tasks the account has already created in
// the current UTC calendar day. Denial returns a *LimitError wrapping
// ErrQuotaExceeded; unlimited tiers are never denied.
func (p *Policy) Check(tier domain.Tier, tasksToday int) error {
	params, ok := p.tiers[tier]
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrUnknownTier, tier)
	}

	if params.DailyLimit == Unlimited {
		return nil
	}

	if tasksToday >= params.DailyLimit {
		return &LimitError{Tier: tier, Limit: params.DailyLimit}
	}

	return nil
}

// CostFor returns the per-task price for the tier on the paid path.
func (p *Policy) CostFor(tier domain.Tier) (float64, error) {
	params, ok := p.tiers[tier]
	if !ok {
		return 0, fmt.Errorf("%w: %s", domain.ErrUnknownTier, tier)
	}
	return params.TaskCost, nil
}

// PurchaseParams returns the price and duration for buying the tier.
// The base tier is not purchasable.
func (p *Policy) PurchaseParams(tier domain.Tier) (Params, error) {
	if tier == domain.TierBase {
		return Params{}, fmt.Errorf("%w: base tier is not purchasable", domain.ErrUnknownTier)
	}
	params, ok := p.tiers[tier]
	if !ok {
		return Params{}, fmt.Errorf("%w: %s", domain.ErrUnknownTier, tier)
	}
	return params, nil
}
