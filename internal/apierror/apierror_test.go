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

package apierror_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	pkgerrors "github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/regiohub/regio/internal/apierror"
)

func TestNewAPIError(t *testing.T) {
	details := "Some internal error details"
	apiErr := apierror.NewAPIError(apierror.ErrInternalServer, "Something went wrong", details)

	assert.Equal(t, apierror.ErrInternalServer, apiErr.Code)
	assert.Equal(t, "Something went wrong", apiErr.Message)
	assert.Equal(t, details, apiErr.Details)
	assert.Equal(t, "INTERNAL_SERVER_ERROR: Something went wrong", apiErr.Error())
}

func TestIs_UnwrapsChains(t *testing.T) {
	base := apierror.NewAPIError(apierror.ErrInsufficientCredit, "exceeds available credit of 10", nil)

	assert.True(t, apierror.Is(base, apierror.ErrInsufficientCredit))
	assert.True(t, apierror.Is(fmt.Errorf("transfer: %w", base), apierror.ErrInsufficientCredit))
	assert.True(t, apierror.Is(pkgerrors.Wrap(base, "post"), apierror.ErrInsufficientCredit))
	assert.False(t, apierror.Is(base, apierror.ErrConflict))
	assert.False(t, apierror.Is(errors.New("plain"), apierror.ErrConflict))
	assert.Equal(t, "exceeds available credit of 10", apierror.MessageOf(fmt.Errorf("x: %w", base)))
	assert.Equal(t, "plain", apierror.MessageOf(errors.New("plain")))
}

func TestMapErrorToHTTPStatus(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{"NotFound", apierror.NewAPIError(apierror.ErrNotFound, "account bob not found", nil), http.StatusNotFound},
		{"Conflict", apierror.NewAPIError(apierror.ErrConflict, "Conflict occurred", nil), http.StatusConflict},
		{"InvalidInput", apierror.NewAPIError(apierror.ErrInvalidInput, "Invalid input", nil), http.StatusBadRequest},
		{"Forbidden", apierror.NewAPIError(apierror.ErrForbidden, "only the debtor may confirm", nil), http.StatusForbidden},
		{"InsufficientCredit", apierror.NewAPIError(apierror.ErrInsufficientCredit, "exceeds", nil), http.StatusUnprocessableEntity},
		{"InvalidStateTransition", apierror.NewAPIError(apierror.ErrInvalidStateTransition, "status", nil), http.StatusConflict},
		{"AlreadyResolved", apierror.NewAPIError(apierror.ErrAlreadyResolved, "resolved", nil), http.StatusConflict},
		{"ConsentRequired", apierror.NewAPIError(apierror.ErrConsentRequired, "consent", nil), http.StatusPreconditionFailed},
		{"Wrapped", fmt.Errorf("ctx: %w", apierror.NewAPIError(apierror.ErrNotFound, "x", nil)), http.StatusNotFound},
		{"InternalServerError", apierror.NewAPIError(apierror.ErrInternalServer, "Internal server error", nil), http.StatusInternalServerError},
		{"Unknown Error", errors.New("Unknown error"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, apierror.MapErrorToHTTPStatus(tt.err))
		})
	}
}
