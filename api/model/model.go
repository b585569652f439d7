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
	"fmt"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/shopspring/decimal"

	"github.com/regiohub/regio/model"
)

const (
	maxCodeLength        = 64
	maxDescriptionLength = 500
)

var paymentStatuses = []model.PaymentStatus{
	model.StatusPending,
	model.StatusApproved,
	model.StatusRejected,
	model.StatusCancelled,
	model.StatusDisputed,
}

func trustTierRule(value interface{}) error {
	s, ok := value.(string)
	if !ok {
		return errors.New("invalid type for trust tier")
	}
	if s == "" {
		return nil
	}
	_, err := model.ParseTrustTier(s)
	return err
}

func nonNegativeMoney(value interface{}) error {
	amount, ok := value.(decimal.Decimal)
	if !ok {
		return errors.New("invalid type for amount")
	}
	if amount.IsNegative() {
		return errors.New("must not be negative")
	}
	return nil
}

func (a *CreateAccount) ValidateCreateAccount() error {
	return validation.ValidateStruct(a,
		validation.Field(&a.UserCode, validation.Required, validation.Length(1, maxCodeLength)),
		validation.Field(&a.TrustTier, validation.By(trustTierRule)),
	)
}

func (u *UpdateTrustTier) ValidateUpdateTrustTier() error {
	return validation.ValidateStruct(u,
		validation.Field(&u.TrustTier, validation.Required, validation.By(trustTierRule)),
	)
}

func (t *Transfer) ValidateTransfer() error {
	return validation.ValidateStruct(t,
		validation.Field(&t.ReceiverCode, validation.Required, validation.Length(1, maxCodeLength)),
		validation.Field(&t.AmountTime, validation.Min(int64(0))),
		validation.Field(&t.AmountMoney, validation.By(nonNegativeMoney)),
	)
}

func (p *CreatePaymentRequest) ValidateCreatePaymentRequest() error {
	return validation.ValidateStruct(p,
		validation.Field(&p.DebtorCode, validation.Required, validation.Length(1, maxCodeLength)),
		validation.Field(&p.AmountTime, validation.Min(int64(0))),
		validation.Field(&p.AmountMoney, validation.By(nonNegativeMoney)),
		validation.Field(&p.Description, validation.Length(0, maxDescriptionLength)),
		validation.Field(&p.ExpiresInHours, validation.When(p.ExpiresInHours != nil, validation.Min(0))),
	)
}

func (r *RaiseDispute) ValidateRaiseDispute() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Reason, validation.Length(0, maxDescriptionLength)),
	)
}

func (r *ResolveDispute) ValidateResolveDispute() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Action, validation.Required, validation.By(func(value interface{}) error {
			_, err := model.ParseResolutionAction(value.(string))
			return err
		})),
		validation.Field(&r.Reason, validation.Length(0, maxDescriptionLength)),
	)
}

// ParseStatuses reads a comma separated status filter such as "PENDING,DISPUTED".
func ParseStatuses(raw string) ([]model.PaymentStatus, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	var statuses []model.PaymentStatus
	for _, part := range strings.Split(raw, ",") {
		status := model.PaymentStatus(strings.ToUpper(strings.TrimSpace(part)))
		known := false
		for _, s := range paymentStatuses {
			if s == status {
				known = true
				break
			}
		}
		if !known {
			return nil, fmt.Errorf("unknown request status %q", part)
		}
		statuses = append(statuses, status)
	}
	return statuses, nil
}
