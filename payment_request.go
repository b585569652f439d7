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
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/sirupsen/logrus"

	"github.com/regiohub/regio/internal/apierror"
	"github.com/regiohub/regio/model"
)

const maxDescriptionLength = 500

func requestEvent(status model.PaymentStatus) string {
	switch status {
	case model.StatusApproved:
		return EventPaymentRequestApproved
	case model.StatusRejected:
		return EventPaymentRequestRejected
	case model.StatusCancelled:
		return EventPaymentRequestCancelled
	case model.StatusDisputed:
		return EventPaymentRequestDisputed
	default:
		return EventPaymentRequestCreated
	}
}

// CreatePaymentRequest opens a PENDING request from the creditor against the debtor.
func (r *Regio) CreatePaymentRequest(ctx context.Context, draft model.PaymentRequestDraft) (*model.PaymentRequest, error) {
	ctx, span := tracer.Start(ctx, "CreatePaymentRequest")
	defer span.End()

	if draft.CreditorCode == draft.DebtorCode {
		return nil, invalidInput("creditor and debtor must be different accounts")
	}
	if system := r.systemAccountCode(); draft.CreditorCode == system || draft.DebtorCode == system {
		return nil, invalidInput("the system account %s cannot take part in payment requests", system)
	}
	if err := r.validateAmounts(draft.AmountTime, draft.AmountMoney); err != nil {
		return nil, err
	}
	description := strings.TrimSpace(draft.Description)
	if utf8.RuneCountInString(description) > maxDescriptionLength {
		return nil, invalidInput("description must be at most %d characters", maxDescriptionLength)
	}
	hours := r.config.Requests.DefaultExpiryHours
	if draft.ExpiresInHours != nil {
		hours = *draft.ExpiresInHours
	}
	if hours < 0 {
		return nil, invalidInput("expires_in_hours must not be negative")
	}

	for _, code := range []string{draft.CreditorCode, draft.DebtorCode} {
		if _, err := r.datasource.GetAccount(ctx, code); err != nil {
			return nil, err
		}
	}

	now := r.now().UTC()
	request := model.PaymentRequest{
		RequestID:    model.GenerateUUIDWithSuffix("req"),
		CreditorCode: draft.CreditorCode,
		DebtorCode:   draft.DebtorCode,
		AmountTime:   draft.AmountTime,
		AmountMoney:  draft.AmountMoney,
		Description:  description,
		Status:       model.StatusPending,
		CreatedAt:    now,
	}
	if hours > 0 {
		expiresAt := now.Add(time.Duration(hours) * time.Hour)
		request.ExpiresAt = &expiresAt
	}

	created, err := r.datasource.CreatePaymentRequest(ctx, request)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if created.ExpiresAt != nil {
		if err := r.queue.EnqueueRequestExpiry(ctx, created.RequestID, *created.ExpiresAt); err != nil {
			logrus.WithError(err).Errorf("could not schedule expiry of request %s", created.RequestID)
		}
	}
	r.sendWebhook(ctx, EventPaymentRequestCreated, created)
	return &created, nil
}

// canView reports whether caller may read a request or its dispute.
func canView(caller model.Caller, request *model.PaymentRequest) bool {
	return caller.IsArbitrator() || caller.IsSystem() || request.IsParty(caller.UserCode)
}

// GetPaymentRequest returns a request to one of its parties or an arbitrator.
func (r *Regio) GetPaymentRequest(ctx context.Context, requestID string, caller model.Caller) (*model.PaymentRequest, error) {
	ctx, span := tracer.Start(ctx, "GetPaymentRequest")
	defer span.End()

	request, err := r.datasource.GetPaymentRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if !canView(caller, request) {
		return nil, forbidden("request %s belongs to other members", requestID)
	}
	return request, nil
}

// ListIncomingRequests lists requests where the account is the debtor, newest first.
func (r *Regio) ListIncomingRequests(ctx context.Context, debtorCode string, statuses []model.PaymentStatus, limit, offset int) ([]model.PaymentRequest, error) {
	ctx, span := tracer.Start(ctx, "ListIncomingRequests")
	defer span.End()

	limit, offset = clampPage(limit, offset)
	return r.datasource.GetPaymentRequests(ctx, model.PaymentRequestFilter{DebtorCode: debtorCode, Statuses: statuses, Limit: limit, Offset: offset})
}

// ListOutgoingRequests lists requests where the account is the creditor, newest first.
func (r *Regio) ListOutgoingRequests(ctx context.Context, creditorCode string, statuses []model.PaymentStatus, limit, offset int) ([]model.PaymentRequest, error) {
	ctx, span := tracer.Start(ctx, "ListOutgoingRequests")
	defer span.End()

	limit, offset = clampPage(limit, offset)
	return r.datasource.GetPaymentRequests(ctx, model.PaymentRequestFilter{CreditorCode: creditorCode, Statuses: statuses, Limit: limit, Offset: offset})
}

// ConfirmRequest pays a PENDING request: the debtor sends the requested amounts to
// the creditor and the request becomes APPROVED in the same write. A repeated
// confirm finds the request APPROVED and fails without posting again.
func (r *Regio) ConfirmRequest(ctx context.Context, requestID string, caller model.Caller) (*model.Transaction, error) {
	ctx, span := tracer.Start(ctx, "ConfirmRequest")
	defer span.End()

	request, err := r.datasource.GetPaymentRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if caller.UserCode != request.DebtorCode {
		return nil, forbidden("only the debtor may confirm this request")
	}
	if request.Status == model.StatusPending && request.Expired(r.now()) {
		if request, err = r.ExpirePaymentRequest(ctx, requestID); err != nil {
			return nil, err
		}
	}
	if _, err := request.Transition(model.ActionConfirm); err != nil {
		return nil, stateError(err)
	}

	reference := request.Description
	if reference == "" {
		reference = fmt.Sprintf("payment request %s", request.RequestID)
	}
	txn, err := r.post(ctx, postingInput{
		senderCode:   request.DebtorCode,
		receiverCode: request.CreditorCode,
		amountTime:   request.AmountTime,
		amountMoney:  request.AmountMoney,
		reference:    reference,
		requestID:    request.RequestID,
		action:       model.ActionConfirm,
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	request.Status = model.StatusApproved
	request.TransactionID = txn.TransactionID
	r.sendWebhook(ctx, EventPaymentRequestApproved, request)
	return txn, nil
}

// RejectRequest lets the debtor decline a PENDING request.
func (r *Regio) RejectRequest(ctx context.Context, requestID string, caller model.Caller) (*model.PaymentRequest, error) {
	ctx, span := tracer.Start(ctx, "RejectRequest")
	defer span.End()

	return r.transitionRequest(ctx, requestID, model.ActionReject, func(request *model.PaymentRequest) error {
		if caller.UserCode != request.DebtorCode {
			return forbidden("only the debtor may reject this request")
		}
		return nil
	})
}

// CancelRequest lets the creditor withdraw a PENDING request.
func (r *Regio) CancelRequest(ctx context.Context, requestID string, caller model.Caller) (*model.PaymentRequest, error) {
	ctx, span := tracer.Start(ctx, "CancelRequest")
	defer span.End()

	return r.transitionRequest(ctx, requestID, model.ActionCancel, func(request *model.PaymentRequest) error {
		if caller.UserCode != request.CreditorCode {
			return forbidden("only the creditor may cancel this request")
		}
		return nil
	})
}

// ExpirePaymentRequest cancels a request whose expiry passed. Requests that already
// left PENDING are returned unchanged.
func (r *Regio) ExpirePaymentRequest(ctx context.Context, requestID string) (*model.PaymentRequest, error) {
	ctx, span := tracer.Start(ctx, "ExpirePaymentRequest")
	defer span.End()

	request, err := r.transitionRequest(ctx, requestID, model.ActionExpire, nil)
	if apierror.Is(err, apierror.ErrInvalidStateTransition) {
		return r.datasource.GetPaymentRequest(ctx, requestID)
	}
	return request, err
}

// transitionRequest applies a move with no ledger effect, retrying lost races
// against a fresh read of the request.
func (r *Regio) transitionRequest(ctx context.Context, requestID string, action model.PaymentAction, authorize func(*model.PaymentRequest) error) (*model.PaymentRequest, error) {
	var updated *model.PaymentRequest
	err := r.withConflictRetry(ctx, string(action), func() error {
		request, err := r.datasource.GetPaymentRequest(ctx, requestID)
		if err != nil {
			return err
		}
		if authorize != nil {
			if err := authorize(request); err != nil {
				return err
			}
		}
		transition, err := request.Transition(action)
		if err != nil {
			return stateError(err)
		}
		if err := r.datasource.TransitionPaymentRequest(ctx, transition); err != nil {
			return err
		}
		request.Status = transition.To
		request.UpdatedAt = r.now().UTC()
		updated = request
		return nil
	})
	if err != nil {
		return nil, err
	}

	logrus.Infof("payment request %s moved to %s by %s", requestID, updated.Status, action)
	r.sendWebhook(ctx, requestEvent(updated.Status), updated)
	return updated, nil
}
