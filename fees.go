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
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/regiohub/regio/model"
)

const feeBatchSize = 100

// eachMemberAccount calls fn for every active, non-system account in creation order.
func (r *Regio) eachMemberAccount(ctx context.Context, fn func(account model.Account)) error {
	for offset := 0; ; offset += feeBatchSize {
		accounts, err := r.datasource.GetAllAccounts(ctx, feeBatchSize, offset)
		if err != nil {
			return err
		}
		for _, account := range accounts {
			if account.IsSystem || !account.IsActive {
				continue
			}
			if err := ctx.Err(); err != nil {
				return err
			}
			fn(account)
		}
		if len(accounts) < feeBatchSize {
			return nil
		}
	}
}

// CollectMonthlyFees charges every member the monthly fee in TIME, paid to the
// system account. A fee never pushes an account past its credit limit: it is cut
// down to the available credit, and accounts with none are skipped.
func (r *Regio) CollectMonthlyFees(ctx context.Context) (*model.FeeRunResult, error) {
	ctx, span := tracer.Start(ctx, "CollectMonthlyFees")
	defer span.End()

	result := &model.FeeRunResult{}
	fee := r.config.Fees.MonthlyFeeMinutes
	if fee <= 0 {
		return result, nil
	}
	system, err := r.EnsureSystemAccount(ctx)
	if err != nil {
		return nil, err
	}

	reference := fmt.Sprintf("monthly fee %s", r.now().UTC().Format("2006-01"))
	err = r.eachMemberAccount(ctx, func(account model.Account) {
		result.Processed++
		txn, err := r.post(ctx, postingInput{
			senderCode:   account.UserCode,
			receiverCode: system.UserCode,
			reference:    reference,
			isSystemFee:  true,
			chargeFor: func(_ *model.Account, availableTime int64) int64 {
				return min(fee, availableTime)
			},
		})
		r.recordFee(result, account.UserCode, txn, err)
	})
	if err != nil {
		return result, err
	}

	logrus.WithFields(logrus.Fields{
		"processed": result.Processed,
		"charged":   result.Charged,
		"skipped":   len(result.Skipped),
		"failed":    len(result.Failed),
		"minutes":   result.TotalMinutes,
	}).Info("monthly fee run finished")
	return result, nil
}

func (r *Regio) recordFee(result *model.FeeRunResult, code string, txn *model.Transaction, err error) {
	switch {
	case errors.Is(err, errNothingToCharge):
		result.Skipped = append(result.Skipped, code)
	case err != nil:
		logrus.WithError(err).Errorf("fee posting for %s failed", code)
		result.Failed = append(result.Failed, code)
	default:
		result.Charged++
		result.TotalMinutes += txn.AmountTime
	}
}

// demurrageCharge is floor((balance - threshold) * rate * days / 365), or zero
// when the balance is at or under the threshold.
func demurrageCharge(balance, threshold int64, rate decimal.Decimal, days int64) int64 {
	excess := balance - threshold
	if excess <= 0 || days <= 0 {
		return 0
	}
	return decimal.NewFromInt(excess).
		Mul(rate).
		Mul(decimal.NewFromInt(days)).
		Div(decimal.NewFromInt(365)).
		Floor().
		IntPart()
}

func demurrageSince(account *model.Account) time.Time {
	if account.LastDemurrageAt != nil {
		return *account.LastDemurrageAt
	}
	return account.CreatedAt
}

// ProcessDemurrage charges holding fees on TIME balances above the threshold for
// the whole days elapsed since each account's last checkpoint. The checkpoint
// moves forward by those whole days in the same write as the charge.
func (r *Regio) ProcessDemurrage(ctx context.Context, now time.Time) (*model.FeeRunResult, error) {
	ctx, span := tracer.Start(ctx, "ProcessDemurrage")
	defer span.End()

	result := &model.FeeRunResult{}
	system, err := r.EnsureSystemAccount(ctx)
	if err != nil {
		return nil, err
	}
	rate := r.config.DemurrageRate()
	threshold := r.config.Fees.DemurrageThresholdMinutes

	err = r.eachMemberAccount(ctx, func(account model.Account) {
		since := demurrageSince(&account)
		days := int64(now.Sub(since) / (24 * time.Hour))
		if days < 1 {
			return
		}
		result.Processed++
		checkpoint := since.Add(time.Duration(days) * 24 * time.Hour)

		if demurrageCharge(account.BalanceTime, threshold, rate, days) == 0 {
			if err := r.advanceDemurrageCheckpoint(ctx, account.UserCode, checkpoint); err != nil {
				logrus.WithError(err).Errorf("demurrage checkpoint for %s failed", account.UserCode)
				result.Failed = append(result.Failed, account.UserCode)
			}
			return
		}

		txn, err := r.post(ctx, postingInput{
			senderCode:   account.UserCode,
			receiverCode: system.UserCode,
			reference:    fmt.Sprintf("demurrage %d days", days),
			isSystemFee:  true,
			demurrageAt:  &checkpoint,
			chargeFor: func(sender *model.Account, availableTime int64) int64 {
				// another run already moved the checkpoint
				if !demurrageSince(sender).Equal(since) {
					return 0
				}
				return min(demurrageCharge(sender.BalanceTime, threshold, rate, days), availableTime)
			},
		})
		r.recordFee(result, account.UserCode, txn, err)
	})
	if err != nil {
		return result, err
	}

	logrus.WithFields(logrus.Fields{
		"processed": result.Processed,
		"charged":   result.Charged,
		"minutes":   result.TotalMinutes,
	}).Info("demurrage run finished")
	return result, nil
}

func (r *Regio) advanceDemurrageCheckpoint(ctx context.Context, userCode string, checkpoint time.Time) error {
	return r.withConflictRetry(ctx, "demurrage checkpoint", func() error {
		account, err := r.datasource.GetAccount(ctx, userCode)
		if err != nil {
			return err
		}
		if account.LastDemurrageAt != nil && !account.LastDemurrageAt.Before(checkpoint) {
			return nil
		}
		account.LastDemurrageAt = &checkpoint
		return r.datasource.UpdateDemurrageCheckpoint(ctx, account)
	})
}
