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

package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	model2 "github.com/regiohub/regio/api/model"
	"github.com/regiohub/regio/internal/apierror"
)

// CreateAccount opens a ledger account. Members may only open their own; the
// registration gateway calls this as SYSTEM.
//
// Responses:
// - 400 Bad Request: If the body is invalid.
// - 403 Forbidden: If a member opens an account for someone else.
// - 409 Conflict: If the account already exists.
// - 201 Created: With the new account.
func (a Api) CreateAccount(c *gin.Context) {
	var newAccount model2.CreateAccount
	if err := c.ShouldBindJSON(&newAccount); err != nil {
		badRequest(c, err)
		return
	}
	if err := newAccount.ValidateCreateAccount(); err != nil {
		badRequest(c, err)
		return
	}

	who := caller(c)
	if !who.IsSystem() && !who.IsArbitrator() && who.UserCode != newAccount.UserCode {
		respondError(c, apierror.NewAPIError(apierror.ErrForbidden, "members may only open their own account", nil))
		return
	}

	account, err := a.regio.CreateAccount(c.Request.Context(), newAccount.UserCode, newAccount.ToTier())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, account)
}

// GetAccount returns an account to its owner or to an arbitrator.
func (a Api) GetAccount(c *gin.Context) {
	code := c.Param("code")
	who := caller(c)
	if !who.IsArbitrator() && !who.IsSystem() && who.UserCode != code {
		respondError(c, apierror.NewAPIError(apierror.ErrForbidden, "account "+code+" belongs to another member", nil))
		return
	}

	account, err := a.regio.GetAccount(c.Request.Context(), code)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, account)
}

func (a Api) GetAllAccounts(c *gin.Context) {
	who := caller(c)
	if !who.IsArbitrator() && !who.IsSystem() {
		respondError(c, apierror.NewAPIError(apierror.ErrForbidden, "only an arbitrator may list accounts", nil))
		return
	}
	limit, offset, err := pagination(c)
	if err != nil {
		respondError(c, err)
		return
	}

	accounts, err := a.regio.GetAllAccounts(c.Request.Context(), limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, accounts)
}

// SetTrustTier moves an account to another tier. Arbitrators only.
func (a Api) SetTrustTier(c *gin.Context) {
	var update model2.UpdateTrustTier
	if err := c.ShouldBindJSON(&update); err != nil {
		badRequest(c, err)
		return
	}
	if err := update.ValidateUpdateTrustTier(); err != nil {
		badRequest(c, err)
		return
	}

	account, err := a.regio.SetTrustTier(c.Request.Context(), caller(c), c.Param("code"), update.ToTier())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, account)
}
