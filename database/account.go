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

	pkgerrors "github.com/pkg/errors"
	"github.com/regiohub/regio/internal/apierror"
	"github.com/regiohub/regio/model"
)

const accountColumns = `account_id, user_code, balance_time, balance_money, trust_tier, total_time_earned,
	is_system, is_active, version, last_demurrage_at, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanAccount(row rowScanner) (*model.Account, error) {
	var a model.Account
	var lastDemurrage sql.NullTime
	err := row.Scan(&a.AccountID, &a.UserCode, &a.BalanceTime, &a.BalanceMoney, &a.TrustTier, &a.TotalTimeEarned,
		&a.IsSystem, &a.IsActive, &a.Version, &lastDemurrage, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if lastDemurrage.Valid {
		t := lastDemurrage.Time
		a.LastDemurrageAt = &t
	}
	return &a, nil
}

func (d Datasource) CreateAccount(ctx context.Context, account model.Account) (model.Account, error) {
	ctx, span := tracer.Start(ctx, "Saving account to db")
	defer span.End()

	row := d.Conn.QueryRowContext(ctx, `
		INSERT INTO regio.accounts (account_id, user_code, balance_time, balance_money, trust_tier, total_time_earned, is_system, is_active, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 0, $9, $9)
		RETURNING `+accountColumns,
		account.AccountID, account.UserCode, account.BalanceTime, account.BalanceMoney, account.TrustTier,
		account.TotalTimeEarned, account.IsSystem, account.IsActive, account.CreatedAt)

	created, err := scanAccount(row)
	if err != nil {
		span.RecordError(err)
		if isUniqueViolation(err) {
			return model.Account{}, apierror.NewAPIError(apierror.ErrConflict, fmt.Sprintf("account '%s' already exists", account.UserCode), nil)
		}
		return model.Account{}, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to create account", err)
	}
	return *created, nil
}

func (d Datasource) GetAccount(ctx context.Context, userCode string) (*model.Account, error) {
	ctx, span := tracer.Start(ctx, "Fetching account from db")
	defer span.End()

	row := d.Conn.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM regio.accounts WHERE user_code = $1`, userCode)
	account, err := scanAccount(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound("account", userCode)
		}
		span.RecordError(err)
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve account", err)
	}
	return account, nil
}

func (d Datasource) GetAllAccounts(ctx context.Context, limit, offset int) ([]model.Account, error) {
	ctx, span := tracer.Start(ctx, "Fetching accounts from db")
	defer span.End()

	rows, err := d.Conn.QueryContext(ctx, `
		SELECT `+accountColumns+` FROM regio.accounts
		ORDER BY created_at ASC, user_code ASC
		LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		span.RecordError(err)
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve accounts", err)
	}
	defer rows.Close()

	var accounts []model.Account
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to scan account",
				pkgerrors.Wrap(err, "scan accounts page"))
		}
		accounts = append(accounts, *account)
	}
	if err := rows.Err(); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to iterate accounts", err)
	}
	return accounts, nil
}

// UpdateTrustTier bumps the version so postings computed against the old tier retry.
func (d Datasource) UpdateTrustTier(ctx context.Context, userCode string, tier model.TrustTier) error {
	ctx, span := tracer.Start(ctx, "Updating account trust tier")
	defer span.End()

	result, err := d.Conn.ExecContext(ctx, `
		UPDATE regio.accounts SET trust_tier = $2, version = version + 1, updated_at = NOW()
		WHERE user_code = $1`, userCode, tier)
	if err != nil {
		span.RecordError(err)
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to update trust tier", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to get rows affected", err)
	}
	if rows == 0 {
		return notFound("account", userCode)
	}
	return nil
}

func (d Datasource) UpdateDemurrageCheckpoint(ctx context.Context, account *model.Account) error {
	ctx, span := tracer.Start(ctx, "Updating demurrage checkpoint")
	defer span.End()

	result, err := d.Conn.ExecContext(ctx, `
		UPDATE regio.accounts SET last_demurrage_at = $2, version = version + 1, updated_at = NOW()
		WHERE user_code = $1 AND version = $3`, account.UserCode, account.LastDemurrageAt, account.Version)
	if err != nil {
		span.RecordError(err)
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to update demurrage checkpoint", err)
	}
	if err := expectOneRow(result, fmt.Sprintf("account '%s' was modified concurrently", account.UserCode)); err != nil {
		return err
	}
	account.Version++
	return nil
}
