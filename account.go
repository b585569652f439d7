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

package regio

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/regiohub/regio/internal/apierror"
	"github.com/regiohub/regio/model"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// CreateAccount opens a zero-balance account for a newly registered user.
// An empty tier means T1.
func (r *Regio) CreateAccount(ctx context.Context, userCode string, tier model.TrustTier) (*model.Account, error) {
	ctx, span := tracer.Start(ctx, "CreateAccount")
	defer span.End()

	userCode = strings.TrimSpace(userCode)
	if userCode == "" {
		return nil, invalidInput("user_code is required")
	}
	if userCode == r.systemAccountCode() {
		return nil, invalidInput("user_code %s is reserved", userCode)
	}
	if tier == "" {
		tier = model.TierT1
	}
	if !tier.Valid() {
		return nil, invalidInput("unknown trust tier %q", tier)
	}

	account, err := r.datasource.CreateAccount(ctx, model.Account{
		AccountID:    model.GenerateUUIDWithSuffix("acc"),
		UserCode:     userCode,
		BalanceMoney: decimal.Zero,
		TrustTier:    tier,
		IsActive:     true,
		CreatedAt:    r.now().UTC(),
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	r.sendWebhook(ctx, EventAccountCreated, account)
	return &account, nil
}

// EnsureSystemAccount creates the fee sink account if it does not exist yet.
func (r *Regio) EnsureSystemAccount(ctx context.Context) (*model.Account, error) {
	code := r.systemAccountCode()
	account, err := r.datasource.GetAccount(ctx, code)
	if err == nil {
		return account, nil
	}
	if !apierror.Is(err, apierror.ErrNotFound) {
		return nil, err
	}

	created, err := r.datasource.CreateAccount(ctx, model.Account{
		AccountID:    model.GenerateUUIDWithSuffix("acc"),
		UserCode:     code,
		BalanceMoney: decimal.Zero,
		TrustTier:    model.TierT6,
		IsSystem:     true,
		IsActive:     true,
		CreatedAt:    r.now().UTC(),
	})
	if apierror.Is(err, apierror.ErrConflict) {
		return r.datasource.GetAccount(ctx, code)
	}
	if err != nil {
		return nil, err
	}
	logrus.Infof("created system account %s", code)
	return &created, nil
}

func (r *Regio) GetAccount(ctx context.Context, userCode string) (*model.Account, error) {
	ctx, span := tracer.Start(ctx, "GetAccount")
	defer span.End()
	return r.datasource.GetAccount(ctx, userCode)
}

func (r *Regio) GetAllAccounts(ctx context.Context, limit, offset int) ([]model.Account, error) {
	ctx, span := tracer.Start(ctx, "GetAllAccounts")
	defer span.End()

	limit, offset = clampPage(limit, offset)
	return r.datasource.GetAllAccounts(ctx, limit, offset)
}

// SetTrustTier lets an arbitrator move an account to any tier, including T6.
func (r *Regio) SetTrustTier(ctx context.Context, caller model.Caller, userCode string, tier model.TrustTier) (*model.Account, error) {
	ctx, span := tracer.Start(ctx, "SetTrustTier")
	defer span.End()

	if !caller.IsArbitrator() {
		return nil, forbidden("only an arbitrator may change trust tiers")
	}
	if !tier.Valid() {
		return nil, invalidInput("unknown trust tier %q", tier)
	}
	if err := r.datasource.UpdateTrustTier(ctx, userCode, tier); err != nil {
		return nil, err
	}
	logrus.Infof("trust tier of %s set to %s by %s", userCode, tier, caller.UserCode)
	return r.datasource.GetAccount(ctx, userCode)
}

// GetBalance returns both balances with the tier's limits and the remaining credit.
func (r *Regio) GetBalance(ctx context.Context, userCode string) (*model.BalanceInfo, error) {
	ctx, span := tracer.Start(ctx, "GetBalance")
	defer span.End()

	account, err := r.datasource.GetAccount(ctx, userCode)
	if err != nil {
		return nil, err
	}
	tier, err := r.trust.TrustTier(ctx, account)
	if err != nil {
		return nil, internalError("could not resolve trust tier", err)
	}
	return &model.BalanceInfo{
		UserCode:        account.UserCode,
		TrustTier:       tier,
		TotalTimeEarned: account.TotalTimeEarned,
		Balance:         model.MoneyAmount{Time: account.BalanceTime, Money: account.BalanceMoney},
		Limits:          r.policy.AccountLimits(account, tier),
	}, nil
}

// GetHistory pages through the transactions touching the account, newest first.
// page starts at 1; daysWindow limits the result to the last N days.
func (r *Regio) GetHistory(ctx context.Context, userCode string, page, pageSize int, daysWindow *int) (*model.HistoryPage, error) {
	ctx, span := tracer.Start(ctx, "GetHistory")
	defer span.End()

	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	var since *time.Time
	if daysWindow != nil {
		if *daysWindow < 0 {
			return nil, invalidInput("days must not be negative")
		}
		from := r.now().UTC().AddDate(0, 0, -*daysWindow)
		since = &from
	}

	if _, err := r.datasource.GetAccount(ctx, userCode); err != nil {
		return nil, err
	}
	txns, total, err := r.datasource.GetTransactionsByAccount(ctx, userCode, since, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, err
	}

	views := make([]model.TransactionView, 0, len(txns))
	for i := range txns {
		if view, ok := txns[i].ViewFor(userCode); ok {
			views = append(views, view)
		}
	}
	return &model.HistoryPage{Data: views, Count: total, Page: page, PageSize: pageSize}, nil
}

func clampPage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
