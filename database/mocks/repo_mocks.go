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

package mocks

import (
	"context"
	"time"

	"github.com/regiohub/regio/model"
	"github.com/stretchr/testify/mock"
)

// MockDataSource is a testify mock of database.IDataSource.
type MockDataSource struct {
	mock.Mock
}

// Account methods

func (m *MockDataSource) CreateAccount(ctx context.Context, account model.Account) (model.Account, error) {
	args := m.Called(ctx, account)
	return args.Get(0).(model.Account), args.Error(1)
}

func (m *MockDataSource) GetAccount(ctx context.Context, userCode string) (*model.Account, error) {
	args := m.Called(ctx, userCode)
	if a := args.Get(0); a != nil {
		return a.(*model.Account), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockDataSource) GetAllAccounts(ctx context.Context, limit, offset int) ([]model.Account, error) {
	args := m.Called(ctx, limit, offset)
	return args.Get(0).([]model.Account), args.Error(1)
}

func (m *MockDataSource) UpdateTrustTier(ctx context.Context, userCode string, tier model.TrustTier) error {
	args := m.Called(ctx, userCode, tier)
	return args.Error(0)
}

func (m *MockDataSource) UpdateDemurrageCheckpoint(ctx context.Context, account *model.Account) error {
	args := m.Called(ctx, account)
	return args.Error(0)
}

// Transaction methods

func (m *MockDataSource) PostTransaction(ctx context.Context, posting *model.Posting) error {
	args := m.Called(ctx, posting)
	return args.Error(0)
}

func (m *MockDataSource) GetTransaction(ctx context.Context, id string) (*model.Transaction, error) {
	args := m.Called(ctx, id)
	if t := args.Get(0); t != nil {
		return t.(*model.Transaction), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockDataSource) GetTransactionsByAccount(ctx context.Context, userCode string, since *time.Time, limit, offset int) ([]model.Transaction, int64, error) {
	args := m.Called(ctx, userCode, since, limit, offset)
	return args.Get(0).([]model.Transaction), args.Get(1).(int64), args.Error(2)
}

// Payment request methods

func (m *MockDataSource) CreatePaymentRequest(ctx context.Context, request model.PaymentRequest) (model.PaymentRequest, error) {
	args := m.Called(ctx, request)
	return args.Get(0).(model.PaymentRequest), args.Error(1)
}

func (m *MockDataSource) GetPaymentRequest(ctx context.Context, id string) (*model.PaymentRequest, error) {
	args := m.Called(ctx, id)
	if r := args.Get(0); r != nil {
		return r.(*model.PaymentRequest), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockDataSource) GetPaymentRequests(ctx context.Context, filter model.PaymentRequestFilter) ([]model.PaymentRequest, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]model.PaymentRequest), args.Error(1)
}

func (m *MockDataSource) TransitionPaymentRequest(ctx context.Context, transition model.RequestTransition) error {
	args := m.Called(ctx, transition)
	return args.Error(0)
}

// Dispute methods

func (m *MockDataSource) CreateDispute(ctx context.Context, dispute model.Dispute, transition model.RequestTransition) (model.Dispute, error) {
	args := m.Called(ctx, dispute, transition)
	return args.Get(0).(model.Dispute), args.Error(1)
}

func (m *MockDataSource) GetDispute(ctx context.Context, id string) (*model.Dispute, error) {
	args := m.Called(ctx, id)
	if d := args.Get(0); d != nil {
		return d.(*model.Dispute), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockDataSource) GetDisputeByRequestID(ctx context.Context, requestID string) (*model.Dispute, error) {
	args := m.Called(ctx, requestID)
	if d := args.Get(0); d != nil {
		return d.(*model.Dispute), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockDataSource) ListDisputes(ctx context.Context, status model.DisputeStatus, limit, offset int) ([]model.Dispute, error) {
	args := m.Called(ctx, status, limit, offset)
	return args.Get(0).([]model.Dispute), args.Error(1)
}

func (m *MockDataSource) RecordConsent(ctx context.Context, disputeID string, party model.DisputeParty) (*model.Dispute, error) {
	args := m.Called(ctx, disputeID, party)
	if d := args.Get(0); d != nil {
		return d.(*model.Dispute), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockDataSource) ResolveDispute(ctx context.Context, dispute *model.Dispute, transition model.RequestTransition) error {
	args := m.Called(ctx, dispute, transition)
	return args.Error(0)
}

// Stats

func (m *MockDataSource) GetSystemStats(ctx context.Context) (model.SystemStats, error) {
	args := m.Called(ctx)
	return args.Get(0).(model.SystemStats), args.Error(1)
}
