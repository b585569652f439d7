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
	"unicode/utf8"

	"github.com/sirupsen/logrus"

	"github.com/regiohub/regio/internal/apierror"
	"github.com/regiohub/regio/model"
)

// RaiseDispute escalates a PENDING request to arbitration. Either party may raise
// it, and so may the system.
func (r *Regio) RaiseDispute(ctx context.Context, requestID string, caller model.Caller, reason string) (*model.Dispute, error) {
	ctx, span := tracer.Start(ctx, "RaiseDispute")
	defer span.End()

	reason = strings.TrimSpace(reason)
	if utf8.RuneCountInString(reason) > maxDescriptionLength {
		return nil, invalidInput("reason must be at most %d characters", maxDescriptionLength)
	}

	var created model.Dispute
	err := r.withConflictRetry(ctx, "dispute", func() error {
		request, err := r.datasource.GetPaymentRequest(ctx, requestID)
		if err != nil {
			return err
		}
		if !caller.IsSystem() && !request.IsParty(caller.UserCode) {
			return forbidden("only the parties to request %s may dispute it", requestID)
		}
		transition, err := request.Transition(model.ActionDispute)
		if err != nil {
			return stateError(err)
		}
		created, err = r.datasource.CreateDispute(ctx, model.Dispute{
			DisputeID: model.GenerateUUIDWithSuffix("dsp"),
			RequestID: requestID,
			RaisedBy:  caller.UserCode,
			Reason:    reason,
			Status:    model.DisputeOpen,
			CreatedAt: r.now().UTC(),
		}, transition)
		if err != nil {
			return err
		}
		request.Status = transition.To
		created.Request = request
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	logrus.Infof("request %s disputed by %s", requestID, caller.UserCode)
	r.sendWebhook(ctx, EventPaymentRequestDisputed, created.Request)
	return &created, nil
}

// disputeWithRequest loads a dispute and makes sure its request is attached.
func (r *Regio) disputeWithRequest(ctx context.Context, disputeID string) (*model.Dispute, error) {
	dispute, err := r.datasource.GetDispute(ctx, disputeID)
	if err != nil {
		return nil, err
	}
	if dispute.Request == nil {
		if dispute.Request, err = r.datasource.GetPaymentRequest(ctx, dispute.RequestID); err != nil {
			return nil, err
		}
	}
	return dispute, nil
}

// GrantConsent records that one party lifts privacy for arbitration. Granting
// twice returns the dispute unchanged.
func (r *Regio) GrantConsent(ctx context.Context, disputeID string, caller model.Caller) (*model.Dispute, error) {
	ctx, span := tracer.Start(ctx, "GrantConsent")
	defer span.End()

	dispute, err := r.disputeWithRequest(ctx, disputeID)
	if err != nil {
		return nil, err
	}
	party, ok := dispute.Request.PartyOf(caller.UserCode)
	if !ok {
		return nil, forbidden("only the parties to request %s may grant consent", dispute.RequestID)
	}
	if dispute.IsResolved() {
		return nil, alreadyResolved(dispute)
	}
	if dispute.HasConsent(party) {
		return dispute, nil
	}

	updated, err := r.datasource.RecordConsent(ctx, disputeID, party)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	logrus.Infof("consent for dispute %s granted by %s (%s)", disputeID, caller.UserCode, party)
	r.sendWebhook(ctx, EventDisputeConsent, updated)
	return updated, nil
}

// GetDispute returns a dispute to its parties and to arbitrators.
func (r *Regio) GetDispute(ctx context.Context, disputeID string, caller model.Caller) (*model.Dispute, error) {
	ctx, span := tracer.Start(ctx, "GetDispute")
	defer span.End()

	dispute, err := r.disputeWithRequest(ctx, disputeID)
	if err != nil {
		return nil, err
	}
	if !canView(caller, dispute.Request) {
		return nil, forbidden("dispute %s belongs to other members", disputeID)
	}
	return dispute, nil
}

// ListPendingDisputes returns the open disputes, oldest first.
func (r *Regio) ListPendingDisputes(ctx context.Context, caller model.Caller, limit, offset int) ([]model.Dispute, error) {
	ctx, span := tracer.Start(ctx, "ListPendingDisputes")
	defer span.End()

	if !caller.IsArbitrator() {
		return nil, forbidden("only an arbitrator may list disputes")
	}
	limit, offset = clampPage(limit, offset)
	return r.datasource.ListDisputes(ctx, model.DisputeOpen, limit, offset)
}

// ResolveDispute closes the dispute on a request. APPROVE forces the transfer from
// debtor to creditor; REJECT voids the request. A second call fails with
// ALREADY_RESOLVED.
func (r *Regio) ResolveDispute(ctx context.Context, requestID string, caller model.Caller, action model.ResolutionAction, reason string) (*model.PaymentRequest, error) {
	ctx, span := tracer.Start(ctx, "ResolveDispute")
	defer span.End()

	if !caller.IsArbitrator() {
		return nil, forbidden("only an arbitrator may resolve disputes")
	}
	if action != model.ResolutionApprove && action != model.ResolutionReject {
		return nil, invalidInput("unknown resolution action %q, expected APPROVE or REJECT", action)
	}

	request, err := r.datasource.GetPaymentRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	dispute, err := r.datasource.GetDisputeByRequestID(ctx, requestID)
	if apierror.Is(err, apierror.ErrNotFound) {
		return nil, notDisputed(requestID, request.Status)
	}
	if err != nil {
		return nil, err
	}
	if dispute.IsResolved() {
		return nil, alreadyResolved(dispute)
	}
	if request.Status != model.StatusDisputed {
		return nil, notDisputed(requestID, request.Status)
	}
	if r.config.RequireConsent() && !dispute.HasFullConsent() {
		missing := make([]string, 0, 2)
		for _, party := range dispute.MissingConsent() {
			missing = append(missing, string(party))
		}
		return nil, apierror.NewAPIError(apierror.ErrConsentRequired,
			fmt.Sprintf("dispute %s is missing consent from %s", dispute.DisputeID, strings.Join(missing, " and ")), nil)
	}

	now := r.now().UTC()
	dispute.Resolution = action
	dispute.ResolutionNote = strings.TrimSpace(reason)
	dispute.ResolvedBy = caller.UserCode
	dispute.ResolvedAt = &now

	if action == model.ResolutionApprove {
		_, err = r.post(ctx, postingInput{
			senderCode:   request.DebtorCode,
			receiverCode: request.CreditorCode,
			amountTime:   request.AmountTime,
			amountMoney:  request.AmountMoney,
			reference:    fmt.Sprintf("dispute resolution %s", requestID),
			requestID:    requestID,
			action:       action.PaymentAction(),
			dispute:      dispute,
		})
	} else {
		err = r.withConflictRetry(ctx, "resolve", func() error {
			return r.rejectDispute(ctx, dispute)
		})
	}
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	resolved, err := r.datasource.GetPaymentRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	dispute.Status = model.DisputeResolved
	dispute.Request = resolved
	logrus.Infof("dispute %s resolved with %s by %s", dispute.DisputeID, action, caller.UserCode)
	r.sendWebhook(ctx, EventDisputeResolved, dispute)
	r.sendWebhook(ctx, requestEvent(resolved.Status), resolved)
	return resolved, nil
}

func (r *Regio) rejectDispute(ctx context.Context, dispute *model.Dispute) error {
	current, err := r.datasource.GetDispute(ctx, dispute.DisputeID)
	if err != nil {
		return err
	}
	if current.IsResolved() {
		return alreadyResolved(current)
	}
	request, err := r.datasource.GetPaymentRequest(ctx, dispute.RequestID)
	if err != nil {
		return err
	}
	transition, err := request.Transition(model.ActionResolveReject)
	if err != nil {
		return stateError(err)
	}
	return r.datasource.ResolveDispute(ctx, dispute, transition)
}
