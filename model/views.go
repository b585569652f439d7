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

import "github.com/shopspring/decimal"

type MoneyAmount struct {
	Time  int64           `json:"time"`
	Money decimal.Decimal `json:"money"`
}

// AccountLimits reports the tier limits as positive magnitudes and how much can
// still be spent in each currency.
type AccountLimits struct {
	MaxDebtTime    int64           `json:"max_debt_time"`
	MaxDebtMoney   decimal.Decimal `json:"max_debt_money"`
	AvailableTime  int64           `json:"available_time"`
	AvailableMoney decimal.Decimal `json:"available_money"`
}

// BalanceInfo is the getBalance read model.
type BalanceInfo struct {
	UserCode        string        `json:"user_code"`
	TrustTier       TrustTier     `json:"trust_tier"`
	TotalTimeEarned int64         `json:"total_time_earned"`
	Balance         MoneyAmount   `json:"balance"`
	Limits          AccountLimits `json:"limits"`
}

type SystemStats struct {
	TotalAccounts    int64           `json:"total_accounts"`
	ActiveAccounts   int64           `json:"active_accounts"`
	TotalTimeVolume  int64           `json:"total_time_volume"`
	TotalMoneyVolume decimal.Decimal `json:"total_money_volume"`
	PendingRequests  int64           `json:"pending_requests"`
	OpenDisputes     int64           `json:"open_disputes"`
}

// FeeRunResult summarises one monthly fee or demurrage batch.
type FeeRunResult struct {
	Processed    int      `json:"processed"`
	Charged      int      `json:"charged"`
	Skipped      []string `json:"skipped,omitempty"`
	Failed       []string `json:"failed,omitempty"`
	TotalMinutes int64    `json:"total_minutes"`
}
