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
)

func (a Api) GetDispute(c *gin.Context) {
	dispute, err := a.regio.GetDispute(c.Request.Context(), c.Param("id"), caller(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dispute)
}

// GrantConsent records the caller's consent to arbitration of a dispute.
func (a Api) GrantConsent(c *gin.Context) {
	dispute, err := a.regio.GrantConsent(c.Request.Context(), c.Param("id"), caller(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dispute)
}

func (a Api) ListPendingDisputes(c *gin.Context) {
	limit, offset, err := pagination(c)
	if err != nil {
		respondError(c, err)
		return
	}
	disputes, err := a.regio.ListPendingDisputes(c.Request.Context(), caller(c), limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, disputes)
}

// ResolveDispute applies an arbitrator's binding decision.
//
// Responses:
// - 409 Conflict: NOT_DISPUTED or ALREADY_RESOLVED.
// - 412 Precondition Failed: If a party has not consented.
// - 422 Unprocessable Entity: If APPROVE would breach the debtor's limit.
// - 200 OK: With the resolved request.
func (a Api) ResolveDispute(c *gin.Context) {
	var resolve model2.ResolveDispute
	if err := c.ShouldBindJSON(&resolve); err != nil {
		badRequest(c, err)
		return
	}
	if err := resolve.ValidateResolveDispute(); err != nil {
		badRequest(c, err)
		return
	}

	request, err := a.regio.ResolveDispute(c.Request.Context(), c.Param("request_id"), caller(c), resolve.ToAction(), resolve.Reason)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, request)
}
