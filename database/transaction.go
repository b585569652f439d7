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
	"time"

	pkgerrors "github.com/pkg/errors"
	"github.com/regiohub/regio/internal/apierror"
	"github.com/regiohub/regio/model"
)

const transactionColumns = `transaction_id, sender_code, receiver_code, amount_time, amount_money, reference,
	is_system_fee, payment_request_id, hash, created_at`

func scanTransaction(row rowScanner) (*model.Transaction, error) {
	var t model.Transaction
	var requestID sql.NullString
	err := row.Scan(&t.TransactionID, &t.SenderCode, &t.ReceiverCode, &t.AmountTime, &t.AmountMoney, &t.Reference,
		&t.IsSystemFee, &requestID, &t.Hash, &t.CreatedAt)
	if err != nil {
		return nil, err
	}
	t.PaymentRequestID = requestID.String
	return &t, nil
}

func (d Datasource) PostTransaction(ctx context.Context, posting *model.Posting) error {
	ctx, span := tracer.Start(ctx, "Posting transaction to db")
	defer span.End()

	err := d.withTx(ctx, func(tx *sql.Tx) error {
		if posting.Request != nil {
			if err := transitionRequest(ctx, tx, *posting.Request); err != nil {
				return err
			}
		}
		if posting.Dispute != nil {
			if err := closeDispute(ctx, tx, posting.Dispute); err != nil {
				return err
			}
		}
		if err := updateAccount(ctx, tx, posting.Sender); err != nil {
			return err
		}
		if err := updateAccount(ctx, tx, posting.Receiver); err != nil {
			return err
		}
		return insertTransaction(ctx, tx, posting.Transaction)
	})
	if err != nil {
		span.RecordError(err)
		return err
	}

	posting.Sender.Version++
	posting.Receiver.Version++
	return nil
}

// updateAccount writes the posted balances if nobody else has written the row
// since it was read.
func updateAccount(ctx context.Context, tx *sql.Tx, account *model.Account) error {
	result, err := tx.ExecContext(ctx, `
		UPDATE regio.accounts
		SET balance_time = $2, balance_money = $3, trust_tier = $4, total_time_earned = $5, last_demurrage_at = $6,
			version = version + 1, updated_at = NOW()
		WHERE user_code = $1 AND version = $7`,
		account.UserCode, account.BalanceTime, account.BalanceMoney, account.TrustTier, account.TotalTimeEarned,
		account.LastDemurrageAt, account.Version)
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to update account", err)
	}
	return expectOneRow(result, fmt.Sprintf("Optimistic locking failure: account '%s' was updated by another posting", account.UserCode))
}

func insertTransaction(ctx context.Context, tx *sql.Tx, txn *model.Transaction) error {
	var requestID sql.NullString
	if txn.PaymentRequestID != "" {
		requestID = sql.NullString{String: txn.PaymentRequestID, Valid: true}
	}
	_, err := tx.ExecContext(ctx, `
		INSERT INTO regio.transactions (transaction_id, sender_code, receiver_code, amount_time, amount_money, reference, is_system_fee, payment_request_id, hash, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		txn.TransactionID, txn.SenderCode, txn.ReceiverCode, txn.AmountTime, txn.AmountMoney, txn.Reference,
		txn.IsSystemFee, requestID, txn.Hash, txn.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return apierror.NewAPIError(apierror.ErrConflict, fmt.Sprintf("transaction for '%s' already recorded", txn.PaymentRequestID), nil)
		}
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to record transaction", err)
	}
	return nil
}

func (d Datasource) GetTransaction(ctx context.Context, id string) (*model.Transaction, error) {
	ctx, span := tracer.Start(ctx, "Fetching transaction from db")
	defer span.End()

	row := d.Conn.QueryRowContext(ctx, `SELECT `+transactionColumns+` FROM regio.transactions WHERE transaction_id = $1`, id)
	txn, err := scanTransaction(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound("transaction", id)
		}
		span.RecordError(err)
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve transaction", err)
	}
	return txn, nil
}

// GetTransactionsByAccount returns one page of userCode's history, newest first,
// together with the total number of matching transactions.
func (d Datasource) GetTransactionsByAccount(ctx context.Context, userCode string, since *time.Time, limit, offset int) ([]model.Transaction, int64, error) {
	ctx, span := tracer.Start(ctx, "Fetching account history from db")
	defer span.End()

	var total int64
	err := d.Conn.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM regio.transactions
		WHERE (sender_code = $1 OR receiver_code = $1) AND ($2::timestamptz IS NULL OR created_at >= $2)`,
		userCode, since).Scan(&total)
	if err != nil {
		span.RecordError(err)
		return nil, 0, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to count transactions", err)
	}

	rows, err := d.Conn.QueryContext(ctx, `
		SELECT `+transactionColumns+` FROM regio.transactions
		WHERE (sender_code = $1 OR receiver_code = $1) AND ($2::timestamptz IS NULL OR created_at >= $2)
		ORDER BY created_at DESC, id DESC
		LIMIT $3 OFFSET $4`, userCode, since, limit, offset)
	if err != nil {
		span.RecordError(err)
		return nil, 0, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve transactions", err)
	}
	defer rows.Close()

	var txns []model.Transaction
	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			return nil, 0, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to scan transaction",
				pkgerrors.Wrapf(err, "scan history of %s", userCode))
		}
		txns = append(txns, *txn)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to iterate transactions", err)
	}
	return txns, total, nil
}
