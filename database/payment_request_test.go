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
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/regiohub/regio/internal/apierror"
	"github.com/regiohub/regio/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var requestRowColumns = []string{"request_id", "creditor_code", "debtor_code", "amount_time", "amount_money", "description",
	"status", "transaction_id", "expires_at", "created_at", "updated_at"}

func TestCreatePaymentRequest(t *testing.T) {
	ds, mock := newMockDatasource(t)
	now := time.Now()

	request := model.PaymentRequest{
		RequestID:    "req_1",
		CreditorCode: "C",
		DebtorCode:   "D",
		AmountTime:   20,
		AmountMoney:  decimal.Zero,
		Status:       model.StatusPending,
		CreatedAt:    now,
	}

	mock.ExpectExec("INSERT INTO regio.payment_requests").
		WithArgs("req_1", "C", "D", 20, decimal.Zero, "", "PENDING", nil, now).
		WillReturnResult(sqlmock.NewResult(1, 1))

	created, err := ds.CreatePaymentRequest(context.Background(), request)
	require.NoError(t, err)
	assert.Equal(t, now, created.UpdatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreatePaymentRequest_Failure(t *testing.T) {
	ds, mock := newMockDatasource(t)

	mock.ExpectExec("INSERT INTO regio.payment_requests").WillReturnError(errors.New("fk violation"))
	_, err := ds.CreatePaymentRequest(context.Background(), model.PaymentRequest{RequestID: "req_1"})
	assert.True(t, apierror.Is(err, apierror.ErrInternalServer))
}

func TestGetPaymentRequest(t *testing.T) {
	ds, mock := newMockDatasource(t)
	now := time.Now()
	expires := now.Add(48 * time.Hour)

	mock.ExpectQuery("SELECT (.+) FROM regio.payment_requests WHERE request_id = \\$1").
		WithArgs("req_1").
		WillReturnRows(sqlmock.NewRows(requestRowColumns).
			AddRow("req_1", "C", "D", 20, "0", "tutoring", "PENDING", nil, expires, now, now))

	r, err := ds.GetPaymentRequest(context.Background(), "req_1")
	require.NoError(t, err)
	assert.Equal(t, model.StatusPending, r.Status)
	require.NotNil(t, r.ExpiresAt)
	assert.True(t, expires.Equal(*r.ExpiresAt))

	mock.ExpectQuery("SELECT (.+) FROM regio.payment_requests").
		WithArgs("req_x").
		WillReturnRows(sqlmock.NewRows(requestRowColumns))
	_, err = ds.GetPaymentRequest(context.Background(), "req_x")
	assert.True(t, apierror.Is(err, apierror.ErrNotFound))
}

func TestBuildRequestQuery(t *testing.T) {
	query, args := buildRequestQuery(model.PaymentRequestFilter{
		DebtorCode: "D",
		Statuses:   []model.PaymentStatus{model.StatusPending, model.StatusDisputed},
		Limit:      10,
		Offset:     20,
	})

	assert.Contains(t, query, "WHERE debtor_code = $1 AND status = ANY($2)")
	assert.Contains(t, query, "LIMIT $3 OFFSET $4")
	require.Len(t, args, 4)
	assert.Equal(t, "D", args[0])
	assert.Equal(t, 10, args[2])

	query, args = buildRequestQuery(model.PaymentRequestFilter{})
	assert.NotContains(t, query, "WHERE")
	assert.NotContains(t, query, "LIMIT")
	assert.Empty(t, args)
}

func TestGetPaymentRequests(t *testing.T) {
	ds, mock := newMockDatasource(t)
	now := time.Now()

	mock.ExpectQuery("SELECT (.+) FROM regio.payment_requests WHERE creditor_code = \\$1").
		WithArgs("C", pq.Array([]string{"PENDING"})).
		WillReturnRows(sqlmock.NewRows(requestRowColumns).
			AddRow("req_2", "C", "D", 0, "5.00", "", "PENDING", nil, nil, now, now).
			AddRow("req_1", "C", "E", 30, "0", "", "PENDING", nil, nil, now.Add(-time.Hour), now))

	requests, err := ds.GetPaymentRequests(context.Background(), model.PaymentRequestFilter{
		CreditorCode: "C",
		Statuses:     []model.PaymentStatus{model.StatusPending},
	})
	require.NoError(t, err)
	require.Len(t, requests, 2)
	assert.Equal(t, "req_2", requests[0].RequestID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransitionPaymentRequest(t *testing.T) {
	ds, mock := newMockDatasource(t)
	transition := model.RequestTransition{RequestID: "req_1", From: model.StatusPending, To: model.StatusCancelled}

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE regio.payment_requests SET status").
		WithArgs("req_1", "CANCELLED", nil, "PENDING").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	require.NoError(t, ds.TransitionPaymentRequest(context.Background(), transition))

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE regio.payment_requests SET status").
		WithArgs("req_1", "CANCELLED", nil, "PENDING").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()
	err := ds.TransitionPaymentRequest(context.Background(), transition)
	assert.True(t, apierror.Is(err, apierror.ErrConflict))
	assert.NoError(t, mock.ExpectationsWereMet())
}
