/*
Copyright 2024 Regio Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package policy maps trust tiers to credit limits. It is pure data and arithmetic:
// no I/O, no clocks.
package policy

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/regiohub/regio/model"
)

// Limit is the maximum debt a tier may carry, as positive magnitudes.
type Limit struct {
	Time  int64           `json:"time"`
	Money decimal.Decimal `json:"money"`
}

// Threshold upgrades an account to Tier once its total earned minutes reach EarnedMinutes.
type Threshold struct {
	Tier          model.TrustTier `json:"tier"`
	EarnedMinutes int64           `json:"earned_minutes"`
}

func DefaultLimits() map[model.TrustTier]Limit {
	return map[model.TrustTier]Limit{
		model.TierT1: {Time: 60, Money: decimal.NewFromInt(10)},
		model.TierT2: {Time: 180, Money: decimal.NewFromInt(30)},
		model.TierT3: {Time: 300, Money: decimal.NewFromInt(50)},
		model.TierT4: {Time: 600, Money: decimal.NewFromInt(100)},
		model.TierT5: {Time: 900, Money: decimal.NewFromInt(150)},
		model.TierT6: {Time: 1200, Money: decimal.NewFromInt(200)},
	}
}

// DefaultThresholds leaves T6 to manual promotion.
func DefaultThresholds() []Threshold {
	return []Threshold{
		{Tier: model.TierT2, EarnedMinutes: 300},
		{Tier: model.TierT3, EarnedMinutes: 900},
		{Tier: model.TierT4, EarnedMinutes: 1500},
		{Tier: model.TierT5, EarnedMinutes: 3000},
	}
}

// Policy is read-only once built and safe for concurrent use.
type Policy struct {
	limits     map[model.TrustTier]Limit
	thresholds []Threshold
}

// New validates the table: every tier present, no negative magnitudes, and a
// higher tier never gets a smaller limit in either currency.
func New(limits map[model.TrustTier]Limit, thresholds []Threshold) (*Policy, error) {
	table := make(map[model.TrustTier]Limit, len(model.TrustTiers))
	var prev *Limit
	for _, tier := range model.TrustTiers {
		limit, ok := limits[tier]
		if !ok {
			return nil, fmt.Errorf("limit table is missing tier %s", tier)
		}
		if limit.Time < 0 || limit.Money.IsNegative() {
			return nil, fmt.Errorf("limit for tier %s must be a non-negative magnitude", tier)
		}
		if prev != nil && (limit.Time < prev.Time || limit.Money.LessThan(prev.Money)) {
			return nil, fmt.Errorf("limit for tier %s is smaller than the tier below it", tier)
		}
		table[tier] = limit
		l := limit
		prev = &l
	}

	sorted := make([]Threshold, 0, len(thresholds))
	for _, th := range thresholds {
		if !th.Tier.Valid() {
			return nil, fmt.Errorf("upgrade threshold names unknown tier %q", th.Tier)
		}
		if th.EarnedMinutes < 0 {
			return nil, fmt.Errorf("upgrade threshold for tier %s is negative", th.Tier)
		}
		sorted = append(sorted, th)
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Tier.Rank() < sorted[j].Tier.Rank() })
	for i := 1; i < len(sorted); i++ {
		if sorted[i].Tier == sorted[i-1].Tier {
			return nil, fmt.Errorf("duplicate upgrade threshold for tier %s", sorted[i].Tier)
		}
		if sorted[i].EarnedMinutes < sorted[i-1].EarnedMinutes {
			return nil, fmt.Errorf("upgrade threshold for tier %s is below the threshold for %s", sorted[i].Tier, sorted[i-1].Tier)
		}
	}

	return &Policy{limits: table, thresholds: sorted}, nil
}

// Default returns the built-in community policy.
func Default() *Policy {
	p, err := New(DefaultLimits(), DefaultThresholds())
	if err != nil {
		panic(err)
	}
	return p
}

// Limits returns the tier's limit; unknown tiers get the most restrictive one.
func (p *Policy) Limits(tier model.TrustTier) Limit {
	if limit, ok := p.limits[tier]; ok {
		return limit
	}
	return p.limits[model.TrustTiers[0]]
}

// LimitFor returns the positive magnitude of the tier's limit in one currency.
func (p *Policy) LimitFor(tier model.TrustTier, currency model.Currency) decimal.Decimal {
	limit := p.Limits(tier)
	if currency == model.CurrencyTime {
		return decimal.NewFromInt(limit.Time)
	}
	return limit.Money
}

// CheckWithinLimit reports whether applying the signed delta to the account keeps
// it at or above -limit. Credits are always allowed so an account already past a
// lowered limit can recover.
func (p *Policy) CheckWithinLimit(account *model.Account, tier model.TrustTier, proposedDelta decimal.Decimal, currency model.Currency) bool {
	if !proposedDelta.IsNegative() {
		return true
	}
	after := account.Balance(currency).Add(proposedDelta)
	return !after.LessThan(p.LimitFor(tier, currency).Neg())
}

// Available is how much more the account may spend in one currency before hitting
// its limit. Never negative.
func (p *Policy) Available(account *model.Account, tier model.TrustTier, currency model.Currency) decimal.Decimal {
	available := account.Balance(currency).Add(p.LimitFor(tier, currency))
	if available.IsNegative() {
		return decimal.Zero
	}
	return available
}

// AccountLimits assembles the limits block of the balance read model.
func (p *Policy) AccountLimits(account *model.Account, tier model.TrustTier) model.AccountLimits {
	limit := p.Limits(tier)
	return model.AccountLimits{
		MaxDebtTime:    limit.Time,
		MaxDebtMoney:   limit.Money,
		AvailableTime:  p.Available(account, tier, model.CurrencyTime).IntPart(),
		AvailableMoney: p.Available(account, tier, model.CurrencyMoney),
	}
}

// TierForEarned returns the tier an account qualifies for after earning totalEarned
// minutes. It never returns a tier below current.
func (p *Policy) TierForEarned(current model.TrustTier, totalEarned int64) model.TrustTier {
	best := current
	for _, th := range p.thresholds {
		if totalEarned >= th.EarnedMinutes && th.Tier.Rank() > best.Rank() {
			best = th.Tier
		}
	}
	return best
}
