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
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextStatus_FromPending(t *testing.T) {
	tests := []struct {
		action PaymentAction
		want   PaymentStatus
	}{
		{ActionConfirm, StatusApproved},
		{ActionReject, StatusRejected},
		{ActionCancel, StatusCancelled},
		{ActionExpire, StatusCancelled},
		{ActionDispute, StatusDisputed},
	}
	for _, tt := range tests {
		t.Run(string(tt.action), func(t *testing.T) {
			got, ok := NextStatus(StatusPending, tt.action)
			assert.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}

	_, ok := NextStatus(StatusPending, ActionResolveApprove)
	assert.False(t, ok)
}

func TestNextStatus_FromDisputed(t *testing.T) {
	got, ok := NextStatus(StatusDisputed, ActionResolveApprove)
	assert.True(t, ok)
	assert.Equal(t, StatusApproved, got)

	got, ok = NextStatus(StatusDisputed, ActionResolveReject)
	assert.True(t, ok)
	assert.Equal(t, StatusRejected, got)

	_, ok = NextStatus(StatusDisputed, ActionConfirm)
	assert.False(t, ok)
}

func TestTerminalStatusesAcceptNothing(t *testing.T) {
	actions := []PaymentAction{ActionConfirm, ActionReject, ActionCancel, ActionExpire, ActionDispute, ActionResolveApprove, ActionResolveReject}
	for _, status := range []PaymentStatus{StatusApproved, StatusRejected, StatusCancelled} {
		for _, action := range actions {
			_, ok := NextStatus(status, action)
			assert.False(t, ok, "%s accepted %s", status, action)
		}
	}
	assert.NotEmpty(t, paymentTransitions[StatusPending])
	assert.NotEmpty(t, paymentTransitions[StatusDisputed])
}

func TestPaymentRequest_Transition(t *testing.T) {
	req := &PaymentRequest{RequestID: "req_1", Status: StatusPending}
	tr, err := req.Transition(ActionConfirm)
	require.NoError(t, err)
	assert.Equal(t, RequestTransition{RequestID: "req_1", From: StatusPending, To: StatusApproved}, tr)

	req.Status = StatusApproved
	_, err = req.Transition(ActionConfirm)
	var invalid *InvalidTransitionError
	require.True(t, errors.As(err, &invalid))
	assert.Equal(t, StatusApproved, invalid.From)
	assert.Equal(t, "cannot confirm request req_1: status is APPROVED, confirm requires PENDING", err.Error())
}

func TestPaymentRequest_Parties(t *testing.T) {
	req := &PaymentRequest{CreditorCode: "carol", DebtorCode: "dave"}
	assert.True(t, req.IsParty("carol"))
	assert.True(t, req.IsParty("dave"))
	assert.False(t, req.IsParty("erin"))
	assert.False(t, req.IsParty(""))

	party, ok := req.PartyOf("dave")
	assert.True(t, ok)
	assert.Equal(t, PartyDebtor, party)
}

func TestPaymentRequest_Expired(t *testing.T) {
	now := time.Now()
	req := &PaymentRequest{}
	assert.False(t, req.Expired(now))

	past := now.Add(-time.Minute)
	req.ExpiresAt = &past
	assert.True(t, req.Expired(now))
}

func TestPaymentRequestFilter_Matches(t *testing.T) {
	req := &PaymentRequest{CreditorCode: "carol", DebtorCode: "dave", Status: StatusPending}
	assert.True(t, PaymentRequestFilter{}.Matches(req))
	assert.True(t, PaymentRequestFilter{DebtorCode: "dave", Statuses: []PaymentStatus{StatusPending}}.Matches(req))
	assert.False(t, PaymentRequestFilter{DebtorCode: "carol"}.Matches(req))
	assert.False(t, PaymentRequestFilter{Statuses: []PaymentStatus{StatusApproved}}.Matches(req))
}

func TestDispute_Consent(t *testing.T) {
	d := &Dispute{}
	assert.False(t, d.HasFullConsent())
	assert.Equal(t, []DisputeParty{PartyCreditor, PartyDebtor}, d.MissingConsent())

	d.DebtorConsent = true
	assert.True(t, d.HasConsent(PartyDebtor))
	assert.Equal(t, []DisputeParty{PartyCreditor}, d.MissingConsent())

	d.CreditorConsent = true
	assert.True(t, d.HasFullConsent())
	assert.Empty(t, d.MissingConsent())
}

func TestParseResolutionAction(t *testing.T) {
	a, err := ParseResolutionAction("approve")
	require.NoError(t, err)
	assert.Equal(t, ResolutionApprove, a)
	assert.Equal(t, ActionResolveApprove, a.PaymentAction())
	assert.Equal(t, ActionResolveReject, ResolutionReject.PaymentAction())

	_, err = ParseResolutionAction("maybe")
	assert.Error(t, err)
}
