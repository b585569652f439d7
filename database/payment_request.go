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
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"
	"github.com/regiohub/regio/internal/apierror"
	"github.com/regiohub/regio/model"
)

const requestColumns = `request_id, creditor_code, debtor_code, amount_time, amount_money, description, status,
	transaction_id, expires_at, created_at, updated_at`

func scanPaymentRequest(row rowScanner) (*model.PaymentRequest, error) {
	var r model.PaymentRequest
	var txnID sql.NullString
	var expiresAt sql.NullTime
	err := row.Scan(&r.RequestID, &r.CreditorCode, &r.DebtorCode, &r.AmountTime, &r.AmountMoney, &r.Description,
		&r.Status, &txnID, &expiresAt, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return nil, err
	}
	r.TransactionID = txnID.String
	if expiresAt.Valid {
		t := expiresAt.Time
		r.ExpiresAt = &t
	}
	return &r, nil
}

func (d Datasource) CreatePaymentRequest(ctx context.Context, request model.PaymentRequest) (model.PaymentRequest, error) {
	ctx, span := tracer.Start(ctx, "Saving payment request to db")
	defer span.End()

	_, err := d.Conn.ExecContext(ctx, `
		INSERT INTO regio.payment_requests (request_id, creditor_code, debtor_code, amount_time, amount_money, description, status, expires_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)`,
		request.RequestID, request.CreditorCode, request.DebtorCode, request.AmountTime, request.AmountMoney,
		request.Description, request.Status, request.ExpiresAt, request.CreatedAt)
	if err != nil {
		span.RecordError(err)
		if isUniqueViolation(err) {
			return model.PaymentRequest{}, apierror.NewAPIError(apierror.ErrConflict, fmt.Sprintf("payment request '%s' already exists", request.RequestID), nil)
		}
		return model.PaymentRequest{}, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to create payment request", err)
	}
	request.UpdatedAt = request.CreatedAt
	return request, nil
}

func (d Datasource) GetPaymentRequest(ctx context.Context, id string) (*model.PaymentRequest, error) {
	ctx, span := tracer.Start(ctx, "Fetching payment request from db")
	defer span.End()

	row := d.Conn.QueryRowContext(ctx, `SELECT `+requestColumns+` FROM regio.payment_requests WHERE request_id = $1`, id)
	request, err := scanPaymentRequest(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound("payment request", id)
		}
		span.RecordError(err)
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve payment request", err)
	}
	return request, nil
}

// buildRequestQuery turns the filter into a WHERE clause with positional args.
func buildRequestQuery(filter model.PaymentRequestFilter) (string, []interface{}) {
	var where []string
	var args []interface{}

	if filter.CreditorCode != "" {
		args = append(args, filter.CreditorCode)
		where = append(where, fmt.Sprintf("creditor_code = $%d", len(args)))
	}
	if filter.DebtorCode != "" {
		args = append(args, filter.DebtorCode)
		where = append(where, fmt.Sprintf("debtor_code = $%d", len(args)))
	}
	if len(filter.Statuses) > 0 {
		statuses := make([]string, len(filter.Statuses))
		for i, s := range filter.Statuses {
			statuses[i] = string(s)
		}
		args = append(args, pq.Array(statuses))
		where = append(where, fmt.Sprintf("status = ANY($%d)", len(args)))
	}

	query := `SELECT ` + requestColumns + ` FROM regio.payment_requests`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY created_at DESC, request_id ASC`

	if filter.Limit > 0 {
		args = append(args, filter.Limit, filter.Offset)
		query += fmt.Sprintf(` LIMIT $%d OFFSET $%d`, len(args)-1, len(args))
	}
	return query, args
}

func (d Datasource) GetPaymentRequests(ctx context.Context, filter model.PaymentRequestFilter) ([]model.PaymentRequest, error) {
	ctx, span := tracer.Start(ctx, "Fetching payment requests from db")
	defer span.End()

	query, args := buildRequestQuery(filter)
	rows, err := d.Conn.QueryContext(ctx, query, args...)
	if err != nil {
		span.RecordError(err)
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve payment requests", err)
	}
	defer rows.Close()

	var requests []model.PaymentRequest
	for rows.Next() {
		request, err := scanPaymentRequest(rows)
		if err != nil {
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to scan payment request", err)
		}
		requests = append(requests, *request)
	}
	if err := rows.Err(); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to iterate payment requests", err)
	}
	return requests, nil
}

func (d Datasource) TransitionPaymentRequest(ctx context.Context, transition model.RequestTransition) error {
	ctx, span := tracer.Start(ctx, "Transitioning payment request")
	defer span.End()

	return d.withTx(ctx, func(tx *sql.Tx) error {
		return transitionRequest(ctx, tx, transition)
	})
}

func transitionRequest(ctx context.Context, tx *sql.Tx, t model.RequestTransition) error {
	var txnID sql.NullString
	if t.TransactionID != "" {
		txnID = sql.NullString{String: t.TransactionID, Valid: true}
	}
	result, err := tx.ExecContext(ctx, `
		UPDATE regio.payment_requests SET status = $2, transaction_id = COALESCE($3, transaction_id), updated_at = NOW()
		WHERE request_id = $1 AND status = $4`, t.RequestID, t.To, txnID, t.From)
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to update payment request", err)
	}
	return expectOneRow(result, fmt.Sprintf("payment request '%s' is no longer %s", t.RequestID, t.From))
}
