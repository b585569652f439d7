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
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/regiohub/regio"
	"github.com/regiohub/regio/api/middleware"
	"github.com/regiohub/regio/config"
	"github.com/regiohub/regio/internal/apierror"
	"github.com/regiohub/regio/model"
)

type Api struct {
	regio  *regio.Regio
	router *gin.Engine
}

func (a Api) Router() *gin.Engine {
	router := a.router

	router.POST("/accounts", a.CreateAccount)
	router.GET("/accounts", a.GetAllAccounts)
	router.GET("/accounts/:code", a.GetAccount)
	router.PUT("/accounts/:code/trust-tier", a.SetTrustTier)

	router.GET("/banking/balance", a.GetBalance)
	router.GET("/banking/history", a.GetHistory)
	router.POST("/banking/transfer", a.Transfer)
	router.GET("/transactions/:id", a.GetTransaction)

	router.POST("/banking/requests", a.CreatePaymentRequest)
	router.GET("/banking/requests/incoming", a.ListIncomingRequests)
	router.GET("/banking/requests/outgoing", a.ListOutgoingRequests)
	router.GET("/banking/requests/:id", a.GetPaymentRequest)
	router.POST("/banking/requests/:id/confirm", a.ConfirmRequest)
	router.POST("/banking/requests/:id/reject", a.RejectRequest)
	router.POST("/banking/requests/:id/cancel", a.CancelRequest)
	router.POST("/banking/requests/:id/dispute", a.RaiseDispute)

	router.GET("/disputes/:id", a.GetDispute)
	router.POST("/disputes/:id/consent", a.GrantConsent)

	router.GET("/admin/disputes", a.ListPendingDisputes)
	router.POST("/admin/disputes/:request_id/resolve", a.ResolveDispute)
	router.GET("/admin/stats", a.GetSystemStats)
	router.POST("/admin/fees/monthly", a.CollectMonthlyFees)
	router.POST("/admin/fees/demurrage", a.ProcessDemurrage)

	return a.router
}

// NewAPI builds the gin engine with the authentication, identity and rate
// limiting middleware in front of every route.
func NewAPI(r *regio.Regio) *Api {
	gin.SetMode(gin.ReleaseMode)
	conf, err := config.Fetch()
	if err != nil {
		return nil
	}
	router := gin.Default()
	if conf.EnableTelemetry {
		router.Use(otelgin.Middleware(conf.ProjectName))
	}
	router.Use(middleware.RateLimitMiddleware(conf))
	router.Use(middleware.Authenticate())
	router.Use(middleware.Identify())

	router.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, "server running...")
	})

	return &Api{regio: r, router: router}
}

// respondError writes err with the status matching its code.
func respondError(c *gin.Context, err error) {
	status := apierror.MapErrorToHTTPStatus(err)
	code, ok := apierror.CodeOf(err)
	if !ok {
		code = apierror.ErrInternalServer
	}
	if status == http.StatusInternalServerError {
		span := trace.SpanFromContext(c.Request.Context())
		span.RecordError(err)
		span.SetStatus(codes.Error, "internal server error")
		logrus.WithError(err).Errorf("%s %s failed", c.Request.Method, c.FullPath())
		c.JSON(status, gin.H{"error": "internal server error", "code": code})
		return
	}
	c.JSON(status, gin.H{"error": apierror.MessageOf(err), "code": code})
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": apierror.ErrInvalidInput})
}

func caller(c *gin.Context) model.Caller {
	caller, _ := middleware.CallerFrom(c)
	return caller
}

func queryInt(c *gin.Context, name string, def int) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return def, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apierror.NewAPIError(apierror.ErrInvalidInput, name+" must be an integer", nil)
	}
	return value, nil
}

// pagination reads limit and offset query parameters.
func pagination(c *gin.Context) (limit, offset int, err error) {
	if limit, err = queryInt(c, "limit", 20); err != nil {
		return 0, 0, err
	}
	if offset, err = queryInt(c, "offset", 0); err != nil {
		return 0, 0, err
	}
	return limit, offset, nil
}
