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
	"strings"
	"time"
)

type DisputeStatus string

const (
	DisputeOpen     DisputeStatus = "OPEN"
	DisputeResolved DisputeStatus = "RESOLVED"
)

// ResolutionAction is the arbitrator's binding outcome.
type ResolutionAction string

const (
	// ResolutionApprove forces the transfer from debtor to creditor.
	ResolutionApprove ResolutionAction = "APPROVE"
	// ResolutionReject voids the request.
	ResolutionReject ResolutionAction = "REJECT"
)

func ParseResolutionAction(s string) (ResolutionAction, error) {
	switch a := ResolutionAction(strings.ToUpper(strings.TrimSpace(s))); a {
	case ResolutionApprove, ResolutionReject:
		return a, nil
	}
	return "", fmt.Errorf("unknown resolution action %q, expected APPROVE or REJECT", s)
}

// PaymentAction maps the resolution onto the request state machine.
func (a ResolutionAction) PaymentAction() PaymentAction {
	if a == ResolutionApprove {
		return ActionResolveApprove
	}
	return ActionResolveReject
}

// DisputeParty identifies which side of the request granted consent.
type DisputeParty string

const (
	PartyCreditor DisputeParty = "CREDITOR"
	PartyDebtor   DisputeParty = "DEBTOR"
)

// Dispute is the arbitration record opened when a request enters DISPUTED.
type Dispute struct {
	DisputeID       string           `json:"dispute_id"`
	RequestID       string           `json:"request_id"`
	RaisedBy        string           `json:"raised_by"`
	Reason          string           `json:"reason,omitempty"`
	CreditorConsent bool             `json:"creditor_consent"`
	DebtorConsent   bool             `json:"debtor_consent"`
	Status          DisputeStatus    `json:"status"`
	Resolution      ResolutionAction `json:"resolution,omitempty"`
	ResolutionNote  string           `json:"resolution_note,omitempty"`
	ResolvedBy      string           `json:"resolved_by,omitempty"`
	ResolvedAt      *time.Time       `json:"resolved_at,omitempty"`
	CreatedAt       time.Time        `json:"created_at"`
	Request         *PaymentRequest  `json:"request,omitempty"`
}

func (d *Dispute) IsResolved() bool {
	return d.Status == DisputeResolved
}

func (d *Dispute) HasFullConsent() bool {
	return d.CreditorConsent && d.DebtorConsent
}

// HasConsent reports whether party already agreed.
func (d *Dispute) HasConsent(party DisputeParty) bool {
	if party == PartyCreditor {
		return d.CreditorConsent
	}
	return d.DebtorConsent
}

// MissingConsent lists the parties that have not consented yet.
func (d *Dispute) MissingConsent() []DisputeParty {
	var missing []DisputeParty
	if !d.CreditorConsent {
		missing = append(missing, PartyCreditor)
	}
	if !d.DebtorConsent {
		missing = append(missing, PartyDebtor)
	}
	return missing
}

// PartyOf maps a user code onto its side of the request.
func (r *PaymentRequest) PartyOf(code string) (DisputeParty, bool) {
	switch code {
	case r.CreditorCode:
		return PartyCreditor, true
	case r.DebtorCode:
		return PartyDebtor, true
	}
	return "", false
}
