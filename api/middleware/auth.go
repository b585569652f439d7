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
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/regiohub/regio/config"
	"github.com/regiohub/regio/model"
)

const (
	KeyHeader  = "X-Regio-Key"
	UserHeader = "X-Regio-User"
	RoleHeader = "X-Regio-Role"

	callerKey = "caller"
)

// Authenticate checks the X-Regio-Key header against the configured secret key.
// It does nothing unless secure mode is enabled.
//
// Responses:
// - 401 Unauthorized: When the key is missing or wrong.
// - 500 Internal Server Error: When secure mode is on but no key is configured.
func Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.URL.Path == "/" {
			c.Next()
			return
		}

		conf, err := config.Fetch()
		if err != nil || !conf.Server.Secure {
			c.Next()
			return
		}
		if conf.Server.SecretKey == "" {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Secret key is not configured"})
			return
		}

		key := c.GetHeader(KeyHeader)
		if key == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authentication required. Use X-Regio-Key header"})
			return
		}
		if !secureCompare(conf.Server.SecretKey, key) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid secret key"})
			return
		}
		c.Next()
	}
}

// Identify reads the caller the authentication gateway forwarded and enforces the
// role required by the resource being called.
//
// Responses:
// - 400 Bad Request: When the role header holds an unknown role.
// - 401 Unauthorized: When no user is given.
// - 403 Forbidden: When the role may not use the resource.
func Identify() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.URL.Path == "/" {
			c.Next()
			return
		}

		user := c.GetHeader(UserHeader)
		if user == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Missing X-Regio-User header"})
			return
		}
		role, err := model.ParseRole(c.GetHeader(RoleHeader))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		resource := getResourceFromPath(c.Request.URL.Path)
		if !HasAccess(role, resource) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Role " + string(role) + " may not access " + string(resource)})
			return
		}

		c.Set(callerKey, model.Caller{UserCode: user, Role: role})
		c.Next()
	}
}

// CallerFrom returns the caller stored by Identify.
func CallerFrom(c *gin.Context) (model.Caller, bool) {
	value, ok := c.Get(callerKey)
	if !ok {
		return model.Caller{}, false
	}
	caller, ok := value.(model.Caller)
	return caller, ok
}

func secureCompare(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
