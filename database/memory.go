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
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/regiohub/regio/internal/apierror"
	"github.com/regiohub/regio/model"
	"github.com/shopspring/decimal"
)

// MemoryDatasource keeps the whole ledger in process. Every write takes one mutex,
// so the compare-and-set rules match the Postgres datasource exactly.
type MemoryDatasource struct {
	mu           sync.Mutex
	accounts     map[string]*model.Account
	transactions []*model.Transaction
	txnIndex     map[string]int
	requests     map[string]*model.PaymentRequest
	disputes     map[string]*model.Dispute
	disputeByReq map[string]string
}

func NewMemoryDatasource() *MemoryDatasource {
	return &MemoryDatasource{
		accounts:     make(map[string]*model.Account),
		txnIndex:     make(map[string]int),
		requests:     make(map[string]*model.PaymentRequest),
		disputes:     make(map[string]*model.Dispute),
		disputeByReq: make(map[string]string),
	}
}

func copyRequest(r *model.PaymentRequest) *model.PaymentRequest {
	c := *r
	if r.ExpiresAt != nil {
		t := *r.ExpiresAt
		c.ExpiresAt = &t
	}
	return &c
}

func (m *MemoryDatasource) copyDispute(d *model.Dispute) *model.Dispute {
	c := *d
	if d.ResolvedAt != nil {
		t := *d.ResolvedAt
		c.ResolvedAt = &t
	}
	if r, ok := m.requests[d.RequestID]; ok {
		c.Request = copyRequest(r)
	}
	return &c
}

func (m *MemoryDatasource) CreateAccount(_ context.Context, account model.Account) (model.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.accounts[account.UserCode]; exists {
		return model.Account{}, apierror.NewAPIError(apierror.ErrConflict, fmt.Sprintf("account '%s' already exists", account.UserCode), nil)
	}
	account.Version = 0
	account.UpdatedAt = account.CreatedAt
	m.accounts[account.UserCode] = account.Clone()
	return account, nil
}

func (m *MemoryDatasource) GetAccount(_ context.Context, userCode string) (*model.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, ok := m.accounts[userCode]
	if !ok {
		return nil, notFound("account", userCode)
	}
	return a.Clone(), nil
}

func (m *MemoryDatasource) GetAllAccounts(_ context.Context, limit, offset int) ([]model.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	all := make([]model.Account, 0, len(m.accounts))
	for _, a := range m.accounts {
		all = append(all, *a.Clone())
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].UserCode < all[j].UserCode
		}
		return all[i].CreatedAt.Before(all[j].CreatedAt)
	})
	return page(all, limit, offset), nil
}

func (m *MemoryDatasource) UpdateTrustTier(_ context.Context, userCode string, tier model.TrustTier) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, ok := m.accounts[userCode]
	if !ok {
		return notFound("account", userCode)
	}
	a.TrustTier = tier
	a.Version++
	a.UpdatedAt = time.Now()
	return nil
}

func (m *MemoryDatasource) UpdateDemurrageCheckpoint(_ context.Context, account *model.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.accounts[account.UserCode]
	if !ok || stored.Version != account.Version {
		return apierror.NewAPIError(apierror.ErrConflict, fmt.Sprintf("account '%s' was modified concurrently", account.UserCode), nil)
	}
	stored.LastDemurrageAt = account.Clone().LastDemurrageAt
	stored.Version++
	stored.UpdatedAt = time.Now()
	account.Version++
	return nil
}

// checkRequest validates a request compare-and-set without applying it.
func (m *MemoryDatasource) checkRequest(t model.RequestTransition) error {
	r, ok := m.requests[t.RequestID]
	if !ok || r.Status != t.From {
		return apierror.NewAPIError(apierror.ErrConflict, fmt.Sprintf("payment request '%s' is no longer %s", t.RequestID, t.From), nil)
	}
	return nil
}

func (m *MemoryDatasource) applyRequest(t model.RequestTransition, now time.Time) {
	r := m.requests[t.RequestID]
	r.Status = t.To
	if t.TransactionID != "" {
		r.TransactionID = t.TransactionID
	}
	r.UpdatedAt = now
}

func (m *MemoryDatasource) checkAccount(a *model.Account) error {
	stored, ok := m.accounts[a.UserCode]
	if !ok || stored.Version != a.Version {
		return apierror.NewAPIError(apierror.ErrConflict, fmt.Sprintf("Optimistic locking failure: account '%s' was updated by another posting", a.UserCode), nil)
	}
	return nil
}

func (m *MemoryDatasource) checkDispute(d *model.Dispute) error {
	stored, ok := m.disputes[d.DisputeID]
	if !ok || stored.Status != model.DisputeOpen {
		return apierror.NewAPIError(apierror.ErrConflict, fmt.Sprintf("dispute '%s' is no longer open", d.DisputeID), nil)
	}
	return nil
}

func (m *MemoryDatasource) applyDispute(d *model.Dispute) {
	stored := m.disputes[d.DisputeID]
	stored.Status = model.DisputeResolved
	stored.Resolution = d.Resolution
	stored.ResolutionNote = d.ResolutionNote
	stored.ResolvedBy = d.ResolvedBy
	if d.ResolvedAt != nil {
		t := *d.ResolvedAt
		stored.ResolvedAt = &t
	}
}

func (m *MemoryDatasource) PostTransaction(_ context.Context, posting *model.Posting) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if posting.Request != nil {
		if err := m.checkRequest(*posting.Request); err != nil {
			return err
		}
	}
	if posting.Dispute != nil {
		if err := m.checkDispute(posting.Dispute); err != nil {
			return err
		}
	}
	if err := m.checkAccount(posting.Sender); err != nil {
		return err
	}
	if err := m.checkAccount(posting.Receiver); err != nil {
		return err
	}
	txn := posting.Transaction
	if _, exists := m.txnIndex[txn.TransactionID]; exists {
		return apierror.NewAPIError(apierror.ErrConflict, fmt.Sprintf("transaction '%s' already recorded", txn.TransactionID), nil)
	}

	now := time.Now()
	if posting.Request != nil {
		m.applyRequest(*posting.Request, now)
	}
	if posting.Dispute != nil {
		m.applyDispute(posting.Dispute)
	}
	for _, a := range []*model.Account{posting.Sender, posting.Receiver} {
		stored := a.Clone()
		stored.Version++
		stored.UpdatedAt = now
		m.accounts[a.UserCode] = stored
	}
	stored := *txn
	m.txnIndex[txn.TransactionID] = len(m.transactions)
	m.transactions = append(m.transactions, &stored)

	posting.Sender.Version++
	posting.Receiver.Version++
	return nil
}

func (m *MemoryDatasource) GetTransaction(_ context.Context, id string) (*model.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	i, ok := m.txnIndex[id]
	if !ok {
		return nil, notFound("transaction", id)
	}
	t := *m.transactions[i]
	return &t, nil
}

func (m *MemoryDatasource) GetTransactionsByAccount(_ context.Context, userCode string, since *time.Time, limit, offset int) ([]model.Transaction, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var matched []model.Transaction
	for i := len(m.transactions) - 1; i >= 0; i-- {
		t := m.transactions[i]
		if t.SenderCode != userCode && t.ReceiverCode != userCode {
			continue
		}
		if since != nil && t.CreatedAt.Before(*since) {
			continue
		}
		matched = append(matched, *t)
	}
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})
	return page(matched, limit, offset), int64(len(matched)), nil
}

func (m *MemoryDatasource) CreatePaymentRequest(_ context.Context, request model.PaymentRequest) (model.PaymentRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.requests[request.RequestID]; exists {
		return model.PaymentRequest{}, apierror.NewAPIError(apierror.ErrConflict, fmt.Sprintf("payment request '%s' already exists", request.RequestID), nil)
	}
	request.UpdatedAt = request.CreatedAt
	m.requests[request.RequestID] = copyRequest(&request)
	return request, nil
}

func (m *MemoryDatasource) GetPaymentRequest(_ context.Context, id string) (*model.PaymentRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.requests[id]
	if !ok {
		return nil, notFound("payment request", id)
	}
	return copyRequest(r), nil
}

func (m *MemoryDatasource) GetPaymentRequests(_ context.Context, filter model.PaymentRequestFilter) ([]model.PaymentRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []model.PaymentRequest
	for _, r := range m.requests {
		if filter.Matches(r) {
			out = append(out, *copyRequest(r))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].RequestID < out[j].RequestID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if filter.Limit > 0 {
		return page(out, filter.Limit, filter.Offset), nil
	}
	return out, nil
}

func (m *MemoryDatasource) TransitionPaymentRequest(_ context.Context, transition model.RequestTransition) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.checkRequest(transition); err != nil {
		return err
	}
	m.applyRequest(transition, time.Now())
	return nil
}

func (m *MemoryDatasource) CreateDispute(_ context.Context, dispute model.Dispute, transition model.RequestTransition) (model.Dispute, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.checkRequest(transition); err != nil {
		return model.Dispute{}, err
	}
	if _, exists := m.disputeByReq[dispute.RequestID]; exists {
		return model.Dispute{}, apierror.NewAPIError(apierror.ErrConflict, fmt.Sprintf("request '%s' already has a dispute", dispute.RequestID), nil)
	}
	m.applyRequest(transition, time.Now())

	stored := dispute
	stored.Request = nil
	m.disputes[dispute.DisputeID] = &stored
	m.disputeByReq[dispute.RequestID] = dispute.DisputeID
	return dispute, nil
}

func (m *MemoryDatasource) GetDispute(_ context.Context, id string) (*model.Dispute, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	d, ok := m.disputes[id]
	if !ok {
		return nil, notFound("dispute", id)
	}
	return m.copyDispute(d), nil
}

func (m *MemoryDatasource) GetDisputeByRequestID(_ context.Context, requestID string) (*model.Dispute, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id, ok := m.disputeByReq[requestID]
	if !ok {
		return nil, notFound("dispute", requestID)
	}
	return m.copyDispute(m.disputes[id]), nil
}

func (m *MemoryDatasource) ListDisputes(_ context.Context, status model.DisputeStatus, limit, offset int) ([]model.Dispute, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []model.Dispute
	for _, d := range m.disputes {
		if d.Status == status {
			out = append(out, *m.copyDispute(d))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].DisputeID < out[j].DisputeID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return page(out, limit, offset), nil
}

func (m *MemoryDatasource) RecordConsent(_ context.Context, disputeID string, party model.DisputeParty) (*model.Dispute, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	d, ok := m.disputes[disputeID]
	if !ok {
		return nil, notFound("dispute", disputeID)
	}
	if party == model.PartyCreditor {
		d.CreditorConsent = true
	} else {
		d.DebtorConsent = true
	}
	return m.copyDispute(d), nil
}

func (m *MemoryDatasource) ResolveDispute(_ context.Context, dispute *model.Dispute, transition model.RequestTransition) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.checkRequest(transition); err != nil {
		return err
	}
	if err := m.checkDispute(dispute); err != nil {
		return err
	}
	m.applyRequest(transition, time.Now())
	m.applyDispute(dispute)
	return nil
}

func (m *MemoryDatasource) GetSystemStats(_ context.Context) (model.SystemStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := model.SystemStats{TotalMoneyVolume: decimal.Zero}
	for _, a := range m.accounts {
		if a.IsSystem {
			continue
		}
		s.TotalAccounts++
		if a.IsActive {
			s.ActiveAccounts++
		}
		if a.BalanceTime > 0 {
			s.TotalTimeVolume += a.BalanceTime
		}
		if a.BalanceMoney.IsPositive() {
			s.TotalMoneyVolume = s.TotalMoneyVolume.Add(a.BalanceMoney)
		}
	}
	for _, r := range m.requests {
		if r.Status == model.StatusPending {
			s.PendingRequests++
		}
	}
	for _, d := range m.disputes {
		if d.Status == model.DisputeOpen {
			s.OpenDisputes++
		}
	}
	return s, nil
}

func page[T any](items []T, limit, offset int) []T {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return []T{}
	}
	end := len(items)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return items[offset:end]
}
