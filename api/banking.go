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

// GetBalance returns the caller's balances, limits and available credit.
func (a Api) GetBalance(c *gin.Context) {
	balance, err := a.regio.GetBalance(c.Request.Context(), caller(c).UserCode)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, balance)
}

// GetHistory returns the caller's transactions, newest first.
//
// Query:
// - page, page_size: 1-based paging, page_size at most 100.
// - days: only transactions from the last N days.
func (a Api) GetHistory(c *gin.Context) {
	page, err := queryInt(c, "page", 1)
	if err != nil {
		respondError(c, err)
		return
	}
	pageSize, err := queryInt(c, "page_size", 20)
	if err != nil {
		respondError(c, err)
		return
	}
	var days *int
	if c.Query("days") != "" {
		d, err := queryInt(c, "days", 0)
		if err != nil {
			respondError(c, err)
			return
		}
		days = &d
	}

	history, err := a.regio.GetHistory(c.Request.Context(), caller(c).UserCode, page, pageSize, days)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, history)
}

// Transfer moves value from the caller to another member.
//
// Responses:
// - 400 Bad Request: If the body or amounts are invalid.
// - 404 Not Found: If the receiver has no account.
// - 422 Unprocessable Entity: If the caller lacks credit.
// - 201 Created: With the committed transaction.
func (a Api) Transfer(c *gin.Context) {
	var transfer model2.Transfer
	if err := c.ShouldBindJSON(&transfer); err != nil {
		badRequest(c, err)
		return
	}
	if err := transfer.ValidateTransfer(); err != nil {
		badRequest(c, err)
		return
	}

	txn, err := a.regio.Transfer(c.Request.Context(), transfer.ToTransferRequest(caller(c).UserCode))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, txn)
}

// GetTransaction returns a transaction to either side of it or to an arbitrator.
func (a Api) GetTransaction(c *gin.Context) {
	txn, err := a.regio.GetTransaction(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	who := caller(c)
	if !who.IsArbitrator() && !who.IsSystem() && who.UserCode != txn.SenderCode && who.UserCode != txn.ReceiverCode {
		respondError(c, apierror.NewAPIError(apierror.ErrForbidden, "transaction "+txn.TransactionID+" belongs to other members", nil))
		return
	}
	c.JSON(http.StatusOK, txn)
}
