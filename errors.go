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
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/regiohub/regio/internal/apierror"
	"github.com/regiohub/regio/model"
)

// errNothingToCharge stops a fee posting whose computed amount is zero.
var errNothingToCharge = errors.New("nothing to charge")

func invalidInput(format string, args ...interface{}) error {
	return apierror.NewAPIError(apierror.ErrInvalidInput, fmt.Sprintf(format, args...), nil)
}

func forbidden(format string, args ...interface{}) error {
	return apierror.NewAPIError(apierror.ErrForbidden, fmt.Sprintf(format, args...), nil)
}

func insufficientCredit(currency model.Currency, amount, available decimal.Decimal) error {
	return apierror.NewAPIError(apierror.ErrInsufficientCredit,
		fmt.Sprintf("insufficient %s credit: transfer of %s exceeds available credit of %s", currency, amount, available), nil)
}

// stateError converts a rejected state machine move into its API error.
func stateError(err error) error {
	var transitionErr *model.InvalidTransitionError
	if errors.As(err, &transitionErr) {
		return apierror.NewAPIError(apierror.ErrInvalidStateTransition, transitionErr.Error(), nil)
	}
	return err
}

func notDisputed(requestID string, status model.PaymentStatus) error {
	return apierror.NewAPIError(apierror.ErrNotDisputed,
		fmt.Sprintf("request %s is %s; resolve requires DISPUTED", requestID, status), nil)
}

func alreadyResolved(d *model.Dispute) error {
	return apierror.NewAPIError(apierror.ErrAlreadyResolved,
		fmt.Sprintf("dispute %s was already resolved with %s", d.DisputeID, d.Resolution), nil)
}

func internalError(message string, cause error) error {
	return apierror.NewAPIError(apierror.ErrInternalServer, message, cause)
}
