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

package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Account holds a member's two balances. Balances change only through postings.
type Account struct {
	AccountID       string          `json:"account_id"`
	UserCode        string          `json:"user_code"`
	BalanceTime     int64           `json:"balance_time"`
	BalanceMoney    decimal.Decimal `json:"balance_money"`
	TrustTier       TrustTier       `json:"trust_tier"`
	TotalTimeEarned int64           `json:"total_time_earned"`
	IsSystem        bool            `json:"is_system"`
	IsActive        bool            `json:"is_active"`
	Version         int64           `json:"version"`
	LastDemurrageAt *time.Time      `json:"last_demurrage_at,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// Debit moves value out of the account.
func (a *Account) Debit(amountTime int64, amountMoney decimal.Decimal) {
	a.BalanceTime -= amountTime
	a.BalanceMoney = a.BalanceMoney.Sub(amountMoney)
}

// Credit moves value into the account.
func (a *Account) Credit(amountTime int64, amountMoney decimal.Decimal) {
	a.BalanceTime += amountTime
	a.BalanceMoney = a.BalanceMoney.Add(amountMoney)
}

// Balance returns the signed balance of one currency as a decimal.
func (a *Account) Balance(currency Currency) decimal.Decimal {
	if currency == CurrencyTime {
		return decimal.NewFromInt(a.BalanceTime)
	}
	return a.BalanceMoney
}

// Clone returns a copy that can be mutated without touching the original.
func (a *Account) Clone() *Account {
	c := *a
	if a.LastDemurrageAt != nil {
		t := *a.LastDemurrageAt
		c.LastDemurrageAt = &t
	}
	return &c
}
