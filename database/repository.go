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
	"time"

	"github.com/regiohub/regio/model"
)

// IDataSource is everything the ledger service needs from storage.
type IDataSource interface {
	account
	transaction
	paymentRequest
	dispute
	stats
}

type account interface {
	CreateAccount(ctx context.Context, account model.Account) (model.Account, error)
	GetAccount(ctx context.Context, userCode string) (*model.Account, error)
	GetAllAccounts(ctx context.Context, limit, offset int) ([]model.Account, error)
	UpdateTrustTier(ctx context.Context, userCode string, tier model.TrustTier) error
	// UpdateDemurrageCheckpoint stores LastDemurrageAt if the account version is unchanged.
	UpdateDemurrageCheckpoint(ctx context.Context, account *model.Account) error
}

type transaction interface {
	// PostTransaction applies a posting atomically. Any stale account version,
	// request status or dispute status fails the whole write with CONFLICT.
	PostTransaction(ctx context.Context, posting *model.Posting) error
	GetTransaction(ctx context.Context, id string) (*model.Transaction, error)
	GetTransactionsByAccount(ctx context.Context, userCode string, since *time.Time, limit, offset int) ([]model.Transaction, int64, error)
}

type paymentRequest interface {
	CreatePaymentRequest(ctx context.Context, request model.PaymentRequest) (model.PaymentRequest, error)
	GetPaymentRequest(ctx context.Context, id string) (*model.PaymentRequest, error)
	GetPaymentRequests(ctx context.Context, filter model.PaymentRequestFilter) ([]model.PaymentRequest, error)
	// TransitionPaymentRequest is a status compare-and-set for transitions with no ledger effect.
	TransitionPaymentRequest(ctx context.Context, transition model.RequestTransition) error
}

type dispute interface {
	// CreateDispute moves the request to DISPUTED and inserts the dispute in one write.
	CreateDispute(ctx context.Context, dispute model.Dispute, transition model.RequestTransition) (model.Dispute, error)
	GetDispute(ctx context.Context, id string) (*model.Dispute, error)
	GetDisputeByRequestID(ctx context.Context, requestID string) (*model.Dispute, error)
	ListDisputes(ctx context.Context, status model.DisputeStatus, limit, offset int) ([]model.Dispute, error)
	RecordConsent(ctx context.Context, disputeID string, party model.DisputeParty) (*model.Dispute, error)
	// ResolveDispute closes a dispute whose resolution posts nothing to the ledger.
	ResolveDispute(ctx context.Context, dispute *model.Dispute, transition model.RequestTransition) error
}

type stats interface {
	GetSystemStats(ctx context.Context) (model.SystemStats, error)
}
