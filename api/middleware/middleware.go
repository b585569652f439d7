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

package middleware

import (
	"time"

	"github.com/didip/tollbooth/v7"
	"github.com/didip/tollbooth/v7/limiter"
	"github.com/gin-gonic/gin"

	"github.com/regiohub/regio/config"
)

const defaultCleanupInterval = 10800

// limitKey buckets requests per member. Requests without a user header share
// the bucket of their client IP.
func limitKey(c *gin.Context) string {
	if user := c.GetHeader(UserHeader); user != "" {
		return "user:" + user
	}
	return "ip:" + c.ClientIP()
}

// RateLimitMiddleware throttles each member to the configured rate. It is a
// pass-through unless both the rate and the burst are configured.
func RateLimitMiddleware(conf *config.Configuration) gin.HandlerFunc {
	limits := conf.RateLimit
	if limits.RequestsPerSecond == nil || limits.Burst == nil {
		return func(c *gin.Context) { c.Next() }
	}

	cleanup := defaultCleanupInterval
	if limits.CleanupIntervalSec != nil {
		cleanup = *limits.CleanupIntervalSec
	}
	lmt := tollbooth.NewLimiter(*limits.RequestsPerSecond, &limiter.ExpirableOptions{
		DefaultExpirationTTL: time.Duration(cleanup) * time.Second,
	})
	lmt.SetBurst(*limits.Burst)

	return func(c *gin.Context) {
		if httpError := tollbooth.LimitByKeys(lmt, []string{limitKey(c)}); httpError != nil {
			c.Header("Retry-After", "1")
			c.AbortWithStatusJSON(httpError.StatusCode, gin.H{"error": "rate limit exceeded", "code": "RATE_LIMITED"})
			return
		}
		c.Next()
	}
}
