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

package database

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/regiohub/regio/internal/apierror"
	"github.com/regiohub/regio/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var transactionRowColumns = []string{"transaction_id", "sender_code", "receiver_code", "amount_time", "amount_money",
	"reference", "is_system_fee", "payment_request_id", "hash", "created_at"}

func confirmPosting(now time.Time) *model.Posting {
	return &model.Posting{
		Sender:   &model.Account{UserCode: "DEBTOR", BalanceTime: -20, BalanceMoney: decimal.Zero, TrustTier: model.TierT1, Version: 3},
		Receiver: &model.Account{UserCode: "CREDITOR", BalanceTime: 20, BalanceMoney: decimal.Zero, TrustTier: model.TierT1, TotalTimeEarned: 20, Version: 8},
		Transaction: &model.Transaction{
			TransactionID:    "txn_1",
			SenderCode:       "DEBTOR",
			ReceiverCode:     "CREDITOR",
			AmountTime:       20,
			AmountMoney:      decimal.Zero,
			Reference:        "garden work",
			PaymentRequestID: "req_1",
			Hash:             "hash",
			CreatedAt:        now,
		},
		Request: &model.RequestTransition{RequestID: "req_1", From: model.StatusPending, To: model.StatusApproved, TransactionID: "txn_1"},
	}
}

func TestPostTransaction_CommitsEverything(t *testing.T) {
	ds, mock := newMockDatasource(t)
	now := time.Now()
	posting := confirmPosting(now)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE regio.payment_requests SET status").
		WithArgs("req_1", "APPROVED", "txn_1", "PENDING").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE regio.accounts").
		WithArgs("DEBTOR", -20, decimal.Zero, "T1", 0, nil, 3).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE regio.accounts").
		WithArgs("CREDITOR", 20, decimal.Zero, "T1", 20, nil, 8).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO regio.transactions").
		WithArgs("txn_1", "DEBTOR", "CREDITOR", 20, decimal.Zero, "garden work", false, "req_1", "hash", now).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	require.NoError(t, ds.PostTransaction(context.Background(), posting))
	assert.Equal(t, int64(4), posting.Sender.Version)
	assert.Equal(t, int64(9), posting.Receiver.Version)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostTransaction_RequestAlreadyMoved(t *testing.T) {
	ds, mock := newMockDatasource(t)
	posting := confirmPosting(time.Now())

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE regio.payment_requests SET status").
		WithArgs("req_1", "APPROVED", "txn_1", "PENDING").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := ds.PostTransaction(context.Background(), posting)
	assert.True(t, apierror.Is(err, apierror.ErrConflict))
	assert.Equal(t, int64(3), posting.Sender.Version)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostTransaction_StaleAccountVersionRollsBack(t *testing.T) {
	ds, mock := newMockDatasource(t)
	posting := confirmPosting(time.Now())
	posting.Request = nil

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE regio.accounts").
		WithArgs("DEBTOR", -20, decimal.Zero, "T1", 0, nil, 3).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE regio.accounts").
		WithArgs("CREDITOR", 20, decimal.Zero, "T1", 20, nil, 8).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := ds.PostTransaction(context.Background(), posting)
	assert.True(t, apierror.Is(err, apierror.ErrConflict))
	assert.Contains(t, err.Error(), "CREDITOR")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostTransaction_ResolvesDispute(t *testing.T) {
	ds, mock := newMockDatasource(t)
	now := time.Now()
	posting := confirmPosting(now)
	posting.Request = &model.RequestTransition{RequestID: "req_1", From: model.StatusDisputed, To: model.StatusApproved, TransactionID: "txn_1"}
	posting.Dispute = &model.Dispute{
		DisputeID:  "dsp_1",
		Resolution: model.ResolutionApprove,
		ResolvedBy: "ARBITER",
		ResolvedAt: &now,
	}

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE regio.payment_requests SET status").
		WithArgs("req_1", "APPROVED", "txn_1", "DISPUTED").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE regio.disputes").
		WithArgs("dsp_1", "RESOLVED", "APPROVE", "", "ARBITER", now, "OPEN").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE regio.accounts").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE regio.accounts").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO regio.transactions").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	require.NoError(t, ds.PostTransaction(context.Background(), posting))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetTransaction(t *testing.T) {
	ds, mock := newMockDatasource(t)
	now := time.Now()

	mock.ExpectQuery("SELECT (.+) FROM regio.transactions WHERE transaction_id = \\$1").
		WithArgs("txn_1").
		WillReturnRows(sqlmock.NewRows(transactionRowColumns).
			AddRow("txn_1", "A", "B", 30, "2.50", "lesson", false, nil, "h", now))

	txn, err := ds.GetTransaction(context.Background(), "txn_1")
	require.NoError(t, err)
	assert.Equal(t, int64(30), txn.AmountTime)
	assert.Equal(t, "", txn.PaymentRequestID)

	mock.ExpectQuery("SELECT (.+) FROM regio.transactions").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(transactionRowColumns))
	_, err = ds.GetTransaction(context.Background(), "missing")
	assert.True(t, apierror.Is(err, apierror.ErrNotFound))
}

func TestGetTransactionsByAccount(t *testing.T) {
	ds, mock := newMockDatasource(t)
	now := time.Now()
	since := now.Add(-24 * time.Hour)

	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM regio.transactions").
		WithArgs("A", since).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))
	mock.ExpectQuery("SELECT (.+) FROM regio.transactions\\s+WHERE").
		WithArgs("A", since, 2, 0).
		WillReturnRows(sqlmock.NewRows(transactionRowColumns).
			AddRow("txn_3", "B", "A", 15, "0", "", false, "req_9", "h3", now).
			AddRow("txn_2", "A", "C", 5, "1.00", "", false, nil, "h2", now.Add(-time.Hour)))

	txns, total, err := ds.GetTransactionsByAccount(context.Background(), "A", &since, 2, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, txns, 2)
	assert.Equal(t, "req_9", txns[0].PaymentRequestID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetTransactionsByAccount_NoWindow(t *testing.T) {
	ds, mock := newMockDatasource(t)

	mock.ExpectQuery("SELECT COUNT").
		WithArgs("A", nil).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery("SELECT (.+) FROM regio.transactions").
		WithArgs("A", nil, 20, 40).
		WillReturnRows(sqlmock.NewRows(transactionRowColumns))

	txns, total, err := ds.GetTransactionsByAccount(context.Background(), "A", nil, 20, 40)
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, txns)
}
