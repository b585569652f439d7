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
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/regiohub/regio/config"
	"github.com/regiohub/regio/internal/apierror"
	"github.com/regiohub/regio/model"
)

func TestTransfer_DoubleEntry(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	a := env.account(t, model.TierT2)
	b := env.account(t, model.TierT1)

	txn, err := env.regio.Transfer(ctx, model.TransferRequest{SenderCode: a, ReceiverCode: b, AmountTime: 45, AmountMoney: money("12.50"), Reference: "garden help"})
	require.NoError(t, err)
	assert.Equal(t, a, txn.SenderCode)
	assert.Equal(t, b, txn.ReceiverCode)
	assert.False(t, txn.IsSystemFee)
	assert.NotEmpty(t, txn.Hash)

	sender, receiver := env.balance(t, a), env.balance(t, b)
	assert.Equal(t, int64(-45), sender.BalanceTime)
	assert.Equal(t, int64(45), receiver.BalanceTime)
	assert.True(t, sender.BalanceMoney.Equal(money("-12.50")))
	assert.True(t, receiver.BalanceMoney.Equal(money("12.50")))
	assert.Equal(t, int64(45), receiver.TotalTimeEarned)
	assert.Zero(t, sender.TotalTimeEarned)

	stored, err := env.regio.GetTransaction(ctx, txn.TransactionID)
	require.NoError(t, err)
	assert.Equal(t, "garden help", stored.Reference)
}

func TestTransfer_MoneyLimitBoundary(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	funder := env.account(t, model.TierT6)
	a := env.account(t, model.TierT3)
	b := env.account(t, model.TierT1)

	_, err := env.regio.Transfer(ctx, model.TransferRequest{SenderCode: funder, ReceiverCode: a, AmountMoney: money("10")})
	require.NoError(t, err)

	_, err = env.regio.Transfer(ctx, model.TransferRequest{SenderCode: a, ReceiverCode: b, AmountMoney: money("61")})
	assertCode(t, err, apierror.ErrInsufficientCredit)
	assert.Contains(t, apierror.MessageOf(err), "exceeds available credit of 60")
	assert.True(t, env.balance(t, a).BalanceMoney.Equal(money("10")))
	assert.Zero(t, env.transactionCount(t, b))

	_, err = env.regio.Transfer(ctx, model.TransferRequest{SenderCode: a, ReceiverCode: b, AmountMoney: money("60")})
	require.NoError(t, err)
	assert.True(t, env.balance(t, a).BalanceMoney.Equal(money("-50")))
}

func TestTransfer_TimeLimitCheckedPerCurrency(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	a := env.account(t, model.TierT1)
	b := env.account(t, model.TierT1)

	_, err := env.regio.Transfer(ctx, model.TransferRequest{SenderCode: a, ReceiverCode: b, AmountTime: 61, AmountMoney: money("1")})
	assertCode(t, err, apierror.ErrInsufficientCredit)
	assert.Contains(t, apierror.MessageOf(err), "insufficient TIME credit")

	account := env.balance(t, a)
	assert.Zero(t, account.BalanceTime)
	assert.True(t, account.BalanceMoney.IsZero())
}

func TestTransfer_Validation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	a := env.account(t, model.TierT1)
	b := env.account(t, model.TierT1)

	tests := []struct {
		name     string
		transfer model.TransferRequest
		code     apierror.ErrorCode
	}{
		{"self transfer", model.TransferRequest{SenderCode: a, ReceiverCode: a, AmountTime: 5}, apierror.ErrInvalidInput},
		{"nothing to send", model.TransferRequest{SenderCode: a, ReceiverCode: b}, apierror.ErrInvalidInput},
		{"negative time", model.TransferRequest{SenderCode: a, ReceiverCode: b, AmountTime: -5}, apierror.ErrInvalidInput},
		{"negative money", model.TransferRequest{SenderCode: a, ReceiverCode: b, AmountMoney: money("-1")}, apierror.ErrInvalidInput},
		{"too precise", model.TransferRequest{SenderCode: a, ReceiverCode: b, AmountMoney: money("1.005")}, apierror.ErrInvalidInput},
		{"unknown sender", model.TransferRequest{SenderCode: "ghost", ReceiverCode: b, AmountTime: 5}, apierror.ErrNotFound},
		{"unknown receiver", model.TransferRequest{SenderCode: a, ReceiverCode: "ghost", AmountTime: 5}, apierror.ErrNotFound},
		{"system account", model.TransferRequest{SenderCode: a, ReceiverCode: "SYSTEM_SINK", AmountTime: 5}, apierror.ErrInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.regio.Transfer(ctx, tt.transfer)
			assertCode(t, err, tt.code)
		})
	}
	assert.Zero(t, env.transactionCount(t, a))
}

func TestTransfer_TrustUpgrade(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	rich := env.account(t, model.TierT6)
	newcomer := env.account(t, model.TierT1)

	_, err := env.regio.Transfer(ctx, model.TransferRequest{SenderCode: rich, ReceiverCode: newcomer, AmountTime: 299})
	require.NoError(t, err)
	assert.Equal(t, model.TierT1, env.balance(t, newcomer).TrustTier)

	_, err = env.regio.Transfer(ctx, model.TransferRequest{SenderCode: rich, ReceiverCode: newcomer, AmountTime: 1})
	require.NoError(t, err)
	upgraded := env.balance(t, newcomer)
	assert.Equal(t, model.TierT2, upgraded.TrustTier)
	assert.Equal(t, int64(300), upgraded.TotalTimeEarned)

	// spending never lowers the tier
	_, err = env.regio.Transfer(ctx, model.TransferRequest{SenderCode: newcomer, ReceiverCode: rich, AmountTime: 400})
	require.NoError(t, err)
	assert.Equal(t, model.TierT2, env.balance(t, newcomer).TrustTier)
}

func TestTransfer_ConcurrentDebitsNeverBreachLimit(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	spender := env.account(t, model.TierT1)
	receivers := make([]string, 10)
	for i := range receivers {
		receivers[i] = env.account(t, model.TierT1)
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0
	for _, receiver := range receivers {
		wg.Add(1)
		go func(receiver string) {
			defer wg.Done()
			_, err := env.regio.Transfer(ctx, model.TransferRequest{SenderCode: spender, ReceiverCode: receiver, AmountTime: 10})
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				succeeded++
				return
			}
			code, _ := apierror.CodeOf(err)
			assert.Contains(t, []apierror.ErrorCode{apierror.ErrInsufficientCredit, apierror.ErrConflict}, code)
		}(receiver)
	}
	wg.Wait()

	account := env.balance(t, spender)
	assert.GreaterOrEqual(t, account.BalanceTime, int64(-60))
	assert.Equal(t, int64(-10*succeeded), account.BalanceTime)
	assert.LessOrEqual(t, succeeded, 6)

	var credited int64
	for _, receiver := range receivers {
		credited += env.balance(t, receiver).BalanceTime
	}
	assert.Equal(t, -account.BalanceTime, credited)
}

func TestTransfer_LockHeldElsewhere(t *testing.T) {
	env := newTestEnv(t, func(cfg *config.Configuration) {
		cfg.Ledger.LockWaitSeconds = 1
	})
	ctx := context.Background()
	a := env.account(t, model.TierT1)
	b := env.account(t, model.TierT1)

	require.NoError(t, env.redis.Set(accountLockKey(a), "someone-else"))

	_, err := env.regio.Transfer(ctx, model.TransferRequest{SenderCode: a, ReceiverCode: b, AmountTime: 5})
	assertCode(t, err, apierror.ErrConflict)
	assert.Zero(t, env.balance(t, a).BalanceTime)
}

func TestTransfer_RedisUnavailable(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	a := env.account(t, model.TierT1)
	b := env.account(t, model.TierT1)

	env.redis.Close()

	_, err := env.regio.Transfer(ctx, model.TransferRequest{SenderCode: a, ReceiverCode: b, AmountTime: 5})
	assertCode(t, err, apierror.ErrInternalServer)
	assert.Equal(t, "could not lock accounts", apierror.MessageOf(err))
	assert.Zero(t, env.balance(t, a).BalanceTime)
	assert.Zero(t, env.transactionCount(t, b))
}

func TestValidateAmounts(t *testing.T) {
	env := newTestEnv(t)
	assert.NoError(t, env.regio.validateAmounts(0, money("0.01")))
	assert.NoError(t, env.regio.validateAmounts(1, money("0")))
	assert.NoError(t, env.regio.validateAmounts(0, money("12.50")))
	assert.Error(t, env.regio.validateAmounts(0, money("0.001")))
}
