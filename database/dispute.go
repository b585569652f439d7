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

	"github.com/regiohub/regio/internal/apierror"
	"github.com/regiohub/regio/model"
)

const disputeSelect = `
	SELECT d.dispute_id, d.request_id, d.raised_by, d.reason, d.creditor_consent, d.debtor_consent, d.status,
		d.resolution, d.resolution_note, d.resolved_by, d.resolved_at, d.created_at,
		r.request_id, r.creditor_code, r.debtor_code, r.amount_time, r.amount_money, r.description, r.status,
		r.transaction_id, r.expires_at, r.created_at, r.updated_at
	FROM regio.disputes d
	JOIN regio.payment_requests r ON r.request_id = d.request_id`

func scanDispute(row rowScanner) (*model.Dispute, error) {
	var d model.Dispute
	var r model.PaymentRequest
	var resolution, note, resolvedBy, txnID sql.NullString
	var resolvedAt, expiresAt sql.NullTime

	err := row.Scan(&d.DisputeID, &d.RequestID, &d.RaisedBy, &d.Reason, &d.CreditorConsent, &d.DebtorConsent, &d.Status,
		&resolution, &note, &resolvedBy, &resolvedAt, &d.CreatedAt,
		&r.RequestID, &r.CreditorCode, &r.DebtorCode, &r.AmountTime, &r.AmountMoney, &r.Description, &r.Status,
		&txnID, &expiresAt, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return nil, err
	}

	d.Resolution = model.ResolutionAction(resolution.String)
	d.ResolutionNote = note.String
	d.ResolvedBy = resolvedBy.String
	if resolvedAt.Valid {
		t := resolvedAt.Time
		d.ResolvedAt = &t
	}
	r.TransactionID = txnID.String
	if expiresAt.Valid {
		t := expiresAt.Time
		r.ExpiresAt = &t
	}
	d.Request = &r
	return &d, nil
}

func (d Datasource) CreateDispute(ctx context.Context, dispute model.Dispute, transition model.RequestTransition) (model.Dispute, error) {
	ctx, span := tracer.Start(ctx, "Saving dispute to db")
	defer span.End()

	err := d.withTx(ctx, func(tx *sql.Tx) error {
		if err := transitionRequest(ctx, tx, transition); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO regio.disputes (dispute_id, request_id, raised_by, reason, creditor_consent, debtor_consent, status, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			dispute.DisputeID, dispute.RequestID, dispute.RaisedBy, dispute.Reason, dispute.CreditorConsent,
			dispute.DebtorConsent, dispute.Status, dispute.CreatedAt)
		if err != nil {
			if isUniqueViolation(err) {
				return apierror.NewAPIError(apierror.ErrConflict, fmt.Sprintf("request '%s' already has a dispute", dispute.RequestID), nil)
			}
			return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to create dispute", err)
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return model.Dispute{}, err
	}
	return dispute, nil
}

func (d Datasource) getDisputeWhere(ctx context.Context, column, value string) (*model.Dispute, error) {
	row := d.Conn.QueryRowContext(ctx, disputeSelect+` WHERE d.`+column+` = $1`, value)
	dispute, err := scanDispute(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound("dispute", value)
		}
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve dispute", err)
	}
	return dispute, nil
}

func (d Datasource) GetDispute(ctx context.Context, id string) (*model.Dispute, error) {
	ctx, span := tracer.Start(ctx, "Fetching dispute from db")
	defer span.End()
	return d.getDisputeWhere(ctx, "dispute_id", id)
}

func (d Datasource) GetDisputeByRequestID(ctx context.Context, requestID string) (*model.Dispute, error) {
	ctx, span := tracer.Start(ctx, "Fetching dispute by request from db")
	defer span.End()
	return d.getDisputeWhere(ctx, "request_id", requestID)
}

// ListDisputes returns disputes oldest first so arbitrators work the queue in order.
func (d Datasource) ListDisputes(ctx context.Context, status model.DisputeStatus, limit, offset int) ([]model.Dispute, error) {
	ctx, span := tracer.Start(ctx, "Fetching disputes from db")
	defer span.End()

	rows, err := d.Conn.QueryContext(ctx, disputeSelect+`
		WHERE d.status = $1
		ORDER BY d.created_at ASC, d.dispute_id ASC
		LIMIT $2 OFFSET $3`, status, limit, offset)
	if err != nil {
		span.RecordError(err)
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve disputes", err)
	}
	defer rows.Close()

	var disputes []model.Dispute
	for rows.Next() {
		dispute, err := scanDispute(rows)
		if err != nil {
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to scan dispute", err)
		}
		disputes = append(disputes, *dispute)
	}
	if err := rows.Err(); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to iterate disputes", err)
	}
	return disputes, nil
}

func (d Datasource) RecordConsent(ctx context.Context, disputeID string, party model.DisputeParty) (*model.Dispute, error) {
	ctx, span := tracer.Start(ctx, "Recording dispute consent")
	defer span.End()

	column := "debtor_consent"
	if party == model.PartyCreditor {
		column = "creditor_consent"
	}

	result, err := d.Conn.ExecContext(ctx, `UPDATE regio.disputes SET `+column+` = TRUE WHERE dispute_id = $1`, disputeID)
	if err != nil {
		span.RecordError(err)
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to record consent", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to get rows affected", err)
	}
	if rows == 0 {
		return nil, notFound("dispute", disputeID)
	}
	return d.getDisputeWhere(ctx, "dispute_id", disputeID)
}

func (d Datasource) ResolveDispute(ctx context.Context, dispute *model.Dispute, transition model.RequestTransition) error {
	ctx, span := tracer.Start(ctx, "Resolving dispute")
	defer span.End()

	err := d.withTx(ctx, func(tx *sql.Tx) error {
		if err := transitionRequest(ctx, tx, transition); err != nil {
			return err
		}
		return closeDispute(ctx, tx, dispute)
	})
	if err != nil {
		span.RecordError(err)
	}
	return err
}

func closeDispute(ctx context.Context, tx *sql.Tx, dispute *model.Dispute) error {
	result, err := tx.ExecContext(ctx, `
		UPDATE regio.disputes
		SET status = $2, resolution = $3, resolution_note = $4, resolved_by = $5, resolved_at = $6
		WHERE dispute_id = $1 AND status = $7`,
		dispute.DisputeID, model.DisputeResolved, dispute.Resolution, dispute.ResolutionNote, dispute.ResolvedBy,
		dispute.ResolvedAt, model.DisputeOpen)
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to resolve dispute", err)
	}
	return expectOneRow(result, fmt.Sprintf("dispute '%s' is no longer open", dispute.DisputeID))
}
