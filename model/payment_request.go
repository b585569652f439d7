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

package model

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type PaymentStatus string

const (
	StatusPending   PaymentStatus = "PENDING"
	StatusApproved  PaymentStatus = "APPROVED"
	StatusRejected  PaymentStatus = "REJECTED"
	StatusCancelled PaymentStatus = "CANCELLED"
	StatusDisputed  PaymentStatus = "DISPUTED"
)

type PaymentAction string

const (
	ActionConfirm        PaymentAction = "confirm"
	ActionReject         PaymentAction = "reject"
	ActionCancel         PaymentAction = "cancel"
	ActionExpire         PaymentAction = "expire"
	ActionDispute        PaymentAction = "dispute"
	ActionResolveApprove PaymentAction = "resolve_approve"
	ActionResolveReject  PaymentAction = "resolve_reject"
)

// paymentTransitions is the complete request state machine. A status absent from
// the outer map is terminal.
var paymentTransitions = map[PaymentStatus]map[PaymentAction]PaymentStatus{
	StatusPending: {
		ActionConfirm: StatusApproved,
		ActionReject:  StatusRejected,
		ActionCancel:  StatusCancelled,
		ActionExpire:  StatusCancelled,
		ActionDispute: StatusDisputed,
	},
	StatusDisputed: {
		ActionResolveApprove: StatusApproved,
		ActionResolveReject:  StatusRejected,
	},
}

// NextStatus looks up the transition table.
func NextStatus(from PaymentStatus, action PaymentAction) (PaymentStatus, bool) {
	to, ok := paymentTransitions[from][action]
	return to, ok
}

// statusesAllowing lists the statuses from which action is legal, sorted.
func statusesAllowing(action PaymentAction) []string {
	var out []string
	for from, actions := range paymentTransitions {
		if _, ok := actions[action]; ok {
			out = append(out, string(from))
		}
	}
	sort.Strings(out)
	return out
}

// InvalidTransitionError is returned when action is not legal from the current status.
type InvalidTransitionError struct {
	RequestID string
	From      PaymentStatus
	Action    PaymentAction
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot %s request %s: status is %s, %s requires %s",
		e.Action, e.RequestID, e.From, e.Action, strings.Join(statusesAllowing(e.Action), " or "))
}

// RequestTransition is a compare-and-set on a request's status: it only applies
// while the stored status still equals From.
type RequestTransition struct {
	RequestID     string
	From          PaymentStatus
	To            PaymentStatus
	TransactionID string
}

// PaymentRequest is an invoice raised by a creditor against a debtor.
type PaymentRequest struct {
	RequestID     string          `json:"request_id"`
	CreditorCode  string          `json:"creditor_code"`
	DebtorCode    string          `json:"debtor_code"`
	AmountTime    int64           `json:"amount_time"`
	AmountMoney   decimal.Decimal `json:"amount_money"`
	Description   string          `json:"description,omitempty"`
	Status        PaymentStatus   `json:"status"`
	TransactionID string          `json:"transaction_id,omitempty"`
	ExpiresAt     *time.Time      `json:"expires_at,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// Transition validates action against the table and returns the status swap to apply.
func (r *PaymentRequest) Transition(action PaymentAction) (RequestTransition, error) {
	to, ok := NextStatus(r.Status, action)
	if !ok {
		return RequestTransition{}, &InvalidTransitionError{RequestID: r.RequestID, From: r.Status, Action: action}
	}
	return RequestTransition{RequestID: r.RequestID, From: r.Status, To: to}, nil
}

// IsParty reports whether code is the creditor or the debtor.
func (r *PaymentRequest) IsParty(code string) bool {
	return code != "" && (code == r.CreditorCode || code == r.DebtorCode)
}

// Expired reports whether the request carries an expiry that has passed.
func (r *PaymentRequest) Expired(now time.Time) bool {
	return r.ExpiresAt != nil && !now.Before(*r.ExpiresAt)
}

// PaymentRequestFilter narrows request listings. Empty fields match everything.
type PaymentRequestFilter struct {
	CreditorCode string
	DebtorCode   string
	Statuses     []PaymentStatus
	Limit        int
	Offset       int
}

// Matches applies the filter in memory.
func (f PaymentRequestFilter) Matches(r *PaymentRequest) bool {
	if f.CreditorCode != "" && r.CreditorCode != f.CreditorCode {
		return false
	}
	if f.DebtorCode != "" && r.DebtorCode != f.DebtorCode {
		return false
	}
	if len(f.Statuses) == 0 {
		return true
	}
	for _, s := range f.Statuses {
		if r.Status == s {
			return true
		}
	}
	return false
}

// PaymentRequestDraft is what a creditor submits to open a request. A nil
// ExpiresInHours falls back to the configured default; zero means no expiry.
type PaymentRequestDraft struct {
	CreditorCode   string          `json:"creditor_code"`
	DebtorCode     string          `json:"debtor_code"`
	AmountTime     int64           `json:"amount_time"`
	AmountMoney    decimal.Decimal `json:"amount_money"`
	Description    string          `json:"description,omitempty"`
	ExpiresInHours *int            `json:"expires_in_hours,omitempty"`
}
