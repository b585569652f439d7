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
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	model2 "github.com/regiohub/regio/api/model"
	"github.com/regiohub/regio/model"
)

// CreatePaymentRequest opens a request with the caller as creditor.
func (a Api) CreatePaymentRequest(c *gin.Context) {
	var newRequest model2.CreatePaymentRequest
	if err := c.ShouldBindJSON(&newRequest); err != nil {
		badRequest(c, err)
		return
	}
	if err := newRequest.ValidateCreatePaymentRequest(); err != nil {
		badRequest(c, err)
		return
	}

	request, err := a.regio.CreatePaymentRequest(c.Request.Context(), newRequest.ToDraft(caller(c).UserCode))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, request)
}

func (a Api) GetPaymentRequest(c *gin.Context) {
	request, err := a.regio.GetPaymentRequest(c.Request.Context(), c.Param("id"), caller(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, request)
}

type listRequests func(ctx context.Context, code string, statuses []model.PaymentStatus, limit, offset int) ([]model.PaymentRequest, error)

func (a Api) listRequests(c *gin.Context, list listRequests) {
	statuses, err := model2.ParseStatuses(c.Query("status"))
	if err != nil {
		badRequest(c, err)
		return
	}
	limit, offset, err := pagination(c)
	if err != nil {
		respondError(c, err)
		return
	}

	requests, err := list(c.Request.Context(), caller(c).UserCode, statuses, limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, requests)
}

// ListIncomingRequests lists requests where the caller is the debtor.
func (a Api) ListIncomingRequests(c *gin.Context) {
	a.listRequests(c, a.regio.ListIncomingRequests)
}

// ListOutgoingRequests lists requests where the caller is the creditor.
func (a Api) ListOutgoingRequests(c *gin.Context) {
	a.listRequests(c, a.regio.ListOutgoingRequests)
}

// ConfirmRequest approves a request and posts the transfer. Debtor only.
//
// Responses:
// - 403 Forbidden: If the caller is not the debtor.
// - 409 Conflict: If the request is no longer PENDING.
// - 422 Unprocessable Entity: If the debtor lacks credit; the request stays PENDING.
// - 201 Created: With the committed transaction.
func (a Api) ConfirmRequest(c *gin.Context) {
	txn, err := a.regio.ConfirmRequest(c.Request.Context(), c.Param("id"), caller(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, txn)
}

func (a Api) RejectRequest(c *gin.Context) {
	request, err := a.regio.RejectRequest(c.Request.Context(), c.Param("id"), caller(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, request)
}

func (a Api) CancelRequest(c *gin.Context) {
	request, err := a.regio.CancelRequest(c.Request.Context(), c.Param("id"), caller(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, request)
}

// RaiseDispute moves a PENDING request to arbitration.
func (a Api) RaiseDispute(c *gin.Context) {
	var dispute model2.RaiseDispute
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&dispute); err != nil {
			badRequest(c, err)
			return
		}
	}
	if err := dispute.ValidateRaiseDispute(); err != nil {
		badRequest(c, err)
		return
	}

	created, err := a.regio.RaiseDispute(c.Request.Context(), c.Param("id"), caller(c), dispute.Reason)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}
