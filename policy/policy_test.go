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

package policy

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/regiohub/regio/model"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestDefaultTableIsMonotonic(t *testing.T) {
	p := Default()
	for i := 1; i < len(model.TrustTiers); i++ {
		lower := p.Limits(model.TrustTiers[i-1])
		higher := p.Limits(model.TrustTiers[i])
		assert.GreaterOrEqual(t, higher.Time, lower.Time)
		assert.True(t, higher.Money.GreaterThanOrEqual(lower.Money))
	}
}

func TestLimitFor(t *testing.T) {
	p := Default()
	assert.True(t, p.LimitFor(model.TierT3, model.CurrencyMoney).Equal(dec("50")))
	assert.True(t, p.LimitFor(model.TierT3, model.CurrencyTime).Equal(dec("300")))
	assert.True(t, p.LimitFor(model.TierT6, model.CurrencyTime).Equal(dec("1200")))
	// unknown tiers fall back to the lowest tier
	assert.True(t, p.LimitFor("T42", model.CurrencyMoney).Equal(dec("10")))
}

func TestCheckWithinLimit_Boundary(t *testing.T) {
	p := Default()
	acc := &model.Account{BalanceMoney: dec("10"), TrustTier: model.TierT3}

	// 10 - 60 = -50, exactly at the T3 limit
	assert.True(t, p.CheckWithinLimit(acc, acc.TrustTier, dec("-60"), model.CurrencyMoney))
	// 10 - 61 = -51, one past it
	assert.False(t, p.CheckWithinLimit(acc, acc.TrustTier, dec("-61"), model.CurrencyMoney))
	assert.False(t, p.CheckWithinLimit(acc, acc.TrustTier, dec("-60.01"), model.CurrencyMoney))
}

func TestCheckWithinLimit_Time(t *testing.T) {
	p := Default()
	acc := &model.Account{BalanceTime: 0, TrustTier: model.TierT1}
	assert.True(t, p.CheckWithinLimit(acc, model.TierT1, dec("-60"), model.CurrencyTime))
	assert.False(t, p.CheckWithinLimit(acc, model.TierT1, dec("-61"), model.CurrencyTime))
}

func TestCheckWithinLimit_CreditAlwaysAllowed(t *testing.T) {
	p := Default()
	acc := &model.Account{BalanceTime: -500, TrustTier: model.TierT1}
	assert.True(t, p.CheckWithinLimit(acc, model.TierT1, dec("5"), model.CurrencyTime))
	assert.True(t, p.CheckWithinLimit(acc, model.TierT1, decimal.Zero, model.CurrencyTime))
}

func TestAvailable(t *testing.T) {
	p := Default()
	acc := &model.Account{BalanceTime: -20, BalanceMoney: dec("-12.50")}
	assert.True(t, p.Available(acc, model.TierT2, model.CurrencyTime).Equal(dec("160")))
	assert.True(t, p.Available(acc, model.TierT2, model.CurrencyMoney).Equal(dec("17.50")))
	assert.True(t, p.Available(acc, model.TierT1, model.CurrencyMoney).IsZero())

	limits := p.AccountLimits(acc, model.TierT2)
	assert.Equal(t, int64(180), limits.MaxDebtTime)
	assert.Equal(t, int64(160), limits.AvailableTime)
}

func TestTierForEarned(t *testing.T) {
	p := Default()
	assert.Equal(t, model.TierT1, p.TierForEarned(model.TierT1, 299))
	assert.Equal(t, model.TierT2, p.TierForEarned(model.TierT1, 300))
	assert.Equal(t, model.TierT4, p.TierForEarned(model.TierT1, 2000))
	assert.Equal(t, model.TierT5, p.TierForEarned(model.TierT2, 10000))
	// never downgrades
	assert.Equal(t, model.TierT6, p.TierForEarned(model.TierT6, 0))
}

func TestNew_RejectsBadTables(t *testing.T) {
	limits := DefaultLimits()
	delete(limits, model.TierT4)
	_, err := New(limits, nil)
	assert.ErrorContains(t, err, "missing tier T4")

	limits = DefaultLimits()
	limits[model.TierT5] = Limit{Time: 100, Money: dec("150")}
	_, err = New(limits, nil)
	assert.ErrorContains(t, err, "smaller than the tier below")

	limits = DefaultLimits()
	limits[model.TierT1] = Limit{Time: -1, Money: dec("10")}
	_, err = New(limits, nil)
	assert.Error(t, err)

	_, err = New(DefaultLimits(), []Threshold{{Tier: model.TierT2, EarnedMinutes: 500}, {Tier: model.TierT3, EarnedMinutes: 100}})
	assert.ErrorContains(t, err, "below the threshold")
}

func TestNew_CustomTable(t *testing.T) {
	limits := DefaultLimits()
	limits[model.TierT6] = Limit{Time: 5000, Money: dec("1000")}
	p, err := New(limits, DefaultThresholds())
	require.NoError(t, err)
	assert.True(t, p.LimitFor(model.TierT6, model.CurrencyMoney).Equal(dec("1000")))
}
