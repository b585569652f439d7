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
	"go.opentelemetry.io/otel/attribute"

	"github.com/regiohub/regio/internal/apierror"
	redlock "github.com/regiohub/regio/internal/lock"
	"github.com/regiohub/regio/model"
)

// postingInput describes one ledger write. When chargeFor is set the time
// amount is computed from the freshly read sender on every attempt.
type postingInput struct {
	senderCode   string
	receiverCode string
	amountTime   int64
	amountMoney  decimal.Decimal
	reference    string
	isSystemFee  bool

	chargeFor   func(sender *model.Account, availableTime int64) int64
	requestID   string
	action      model.PaymentAction
	dispute     *model.Dispute
	demurrageAt *time.Time
}

func accountLockKey(code string) string {
	return fmt.Sprintf("regio:lock:account:%s", code)
}

// validateAmounts enforces non-negative legs, at least one non-zero leg and the
// configured money precision.
func (r *Regio) validateAmounts(amountTime int64, amountMoney decimal.Decimal) error {
	if amountTime < 0 || amountMoney.IsNegative() {
		return invalidInput("amounts must not be negative")
	}
	if amountTime == 0 && amountMoney.IsZero() {
		return invalidInput("at least one of amount_time or amount_money must be greater than zero")
	}
	scale := r.config.Ledger.MoneyScale
	if !amountMoney.Equal(amountMoney.Truncate(scale)) {
		return invalidInput("amount_money %s has more than %d decimal places", amountMoney, scale)
	}
	return nil
}

// post is the only path that changes balances. Both accounts are locked for the
// whole attempt and the datasource re-checks their versions on write.
func (r *Regio) post(ctx context.Context, in postingInput) (*model.Transaction, error) {
	ctx, span := tracer.Start(ctx, "Posting transaction")
	defer span.End()
	span.SetAttributes(
		attribute.String("regio.sender", in.senderCode),
		attribute.String("regio.receiver", in.receiverCode),
	)

	if in.senderCode == in.receiverCode {
		return nil, invalidInput("sender and receiver must be different accounts")
	}
	if in.chargeFor == nil {
		if err := r.validateAmounts(in.amountTime, in.amountMoney); err != nil {
			return nil, err
		}
	}

	transactionID := model.GenerateUUIDWithSuffix("txn")
	locks, err := redlock.AcquireAll(ctx, r.redis,
		[]string{accountLockKey(in.senderCode), accountLockKey(in.receiverCode)},
		transactionID, r.lockTimeout(), r.lockWait())
	if err != nil {
		span.RecordError(err)
		return nil, lockError(in, err)
	}
	defer locks.Release(context.WithoutCancel(ctx))

	var txn *model.Transaction
	attempt := 0
	err = r.withConflictRetry(ctx, "post", func() error {
		attempt++
		if attempt > 1 {
			if err := locks.Extend(ctx, r.lockTimeout()); err != nil {
				return internalError("account locks expired before the posting could be retried", err)
			}
		}
		posted, err := r.attemptPost(ctx, transactionID, in)
		if err != nil {
			return err
		}
		txn = posted
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"transaction_id": txn.TransactionID,
		"sender":         txn.SenderCode,
		"receiver":       txn.ReceiverCode,
		"amount_time":    txn.AmountTime,
		"amount_money":   txn.AmountMoney.String(),
	}).Info("posting committed")
	r.sendWebhook(ctx, EventTransactionPosted, txn)
	return txn, nil
}

// lockError reports contention on the account locks as CONFLICT. Any other
// failure means redis itself is unusable.
func lockError(in postingInput, err error) error {
	if errors.Is(err, redlock.ErrLockHeld) || errors.Is(err, redlock.ErrWaitTimeout) {
		return apierror.NewAPIError(apierror.ErrConflict,
			fmt.Sprintf("accounts %s and %s are busy, try again", in.senderCode, in.receiverCode), err)
	}
	return internalError("could not lock accounts", err)
}

func (r *Regio) attemptPost(ctx context.Context, transactionID string, in postingInput) (*model.Transaction, error) {
	sender, err := r.datasource.GetAccount(ctx, in.senderCode)
	if err != nil {
		return nil, err
	}
	receiver, err := r.datasource.GetAccount(ctx, in.receiverCode)
	if err != nil {
		return nil, err
	}
	if !sender.IsActive {
		return nil, invalidInput("account %s is inactive", sender.UserCode)
	}

	posting := &model.Posting{Sender: sender, Receiver: receiver}
	if in.dispute != nil {
		current, err := r.datasource.GetDispute(ctx, in.dispute.DisputeID)
		if err != nil {
			return nil, err
		}
		if current.IsResolved() {
			return nil, alreadyResolved(current)
		}
		posting.Dispute = in.dispute
	}
	if in.requestID != "" {
		request, err := r.datasource.GetPaymentRequest(ctx, in.requestID)
		if err != nil {
			return nil, err
		}
		transition, err := request.Transition(in.action)
		if err != nil {
			return nil, stateError(err)
		}
		transition.TransactionID = transactionID
		posting.Request = &transition
	}

	tier, err := r.trust.TrustTier(ctx, sender)
	if err != nil {
		return nil, internalError("could not resolve trust tier", err)
	}

	amountTime, amountMoney := in.amountTime, in.amountMoney
	if in.chargeFor != nil {
		available := r.policy.Available(sender, tier, model.CurrencyTime).IntPart()
		amountTime, amountMoney = in.chargeFor(sender, available), decimal.Zero
		if amountTime <= 0 {
			return nil, errNothingToCharge
		}
	}

	legs := []struct {
		currency model.Currency
		amount   decimal.Decimal
	}{
		{model.CurrencyTime, decimal.NewFromInt(amountTime)},
		{model.CurrencyMoney, amountMoney},
	}
	for _, leg := range legs {
		if leg.amount.IsZero() {
			continue
		}
		if !r.policy.CheckWithinLimit(sender, tier, leg.amount.Neg(), leg.currency) {
			available := r.policy.Available(sender, tier, leg.currency)
			logrus.WithFields(logrus.Fields{"account": sender.UserCode, "tier": tier, "currency": leg.currency}).
				Infof("posting of %s rejected, available credit %s", leg.amount, available)
			return nil, insufficientCredit(leg.currency, leg.amount, available)
		}
	}

	sender.Debit(amountTime, amountMoney)
	receiver.Credit(amountTime, amountMoney)
	if !in.isSystemFee && amountTime > 0 {
		receiver.TotalTimeEarned += amountTime
		if upgraded := r.policy.TierForEarned(receiver.TrustTier, receiver.TotalTimeEarned); upgraded != receiver.TrustTier {
			logrus.Infof("account %s upgraded from %s to %s", receiver.UserCode, receiver.TrustTier, upgraded)
			receiver.TrustTier = upgraded
		}
	}
	if in.demurrageAt != nil {
		checkpoint := *in.demurrageAt
		sender.LastDemurrageAt = &checkpoint
	}

	txn := &model.Transaction{
		TransactionID:    transactionID,
		SenderCode:       sender.UserCode,
		ReceiverCode:     receiver.UserCode,
		AmountTime:       amountTime,
		AmountMoney:      amountMoney,
		Reference:        in.reference,
		IsSystemFee:      in.isSystemFee,
		PaymentRequestID: in.requestID,
		CreatedAt:        r.now().UTC(),
	}
	txn.Hash = txn.HashTxn()
	posting.Transaction = txn

	if err := r.datasource.PostTransaction(ctx, posting); err != nil {
		return nil, err
	}
	return txn, nil
}

// Transfer posts an immediate payment from the sender to the receiver.
func (r *Regio) Transfer(ctx context.Context, transfer model.TransferRequest) (*model.Transaction, error) {
	ctx, span := tracer.Start(ctx, "Transfer")
	defer span.End()

	system := r.systemAccountCode()
	if transfer.SenderCode == system || transfer.ReceiverCode == system {
		return nil, invalidInput("the system account %s only receives fee postings", system)
	}
	return r.post(ctx, postingInput{
		senderCode:   transfer.SenderCode,
		receiverCode: transfer.ReceiverCode,
		amountTime:   transfer.AmountTime,
		amountMoney:  transfer.AmountMoney,
		reference:    transfer.Reference,
	})
}

// GetTransaction returns one committed transaction.
func (r *Regio) GetTransaction(ctx context.Context, id string) (*model.Transaction, error) {
	ctx, span := tracer.Start(ctx, "GetTransaction")
	defer span.End()
	return r.datasource.GetTransaction(ctx, id)
}
