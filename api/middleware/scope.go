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
	"slices"
	"strings"

	"github.com/regiohub/regio/model"
)

// Resource is a top level API path segment.
type Resource string

const (
	ResourceAccounts     Resource = "accounts"
	ResourceBanking      Resource = "banking"
	ResourceTransactions Resource = "transactions"
	ResourceDisputes     Resource = "disputes"
	ResourceAdmin        Resource = "admin"
)

var pathToResource = map[string]Resource{
	"accounts":     ResourceAccounts,
	"banking":      ResourceBanking,
	"transactions": ResourceTransactions,
	"disputes":     ResourceDisputes,
	"admin":        ResourceAdmin,
}

// resourceRoles restricts resources to some roles. Resources missing here are
// open to every caller; the ledger still checks party membership.
var resourceRoles = map[Resource][]model.Role{
	ResourceAdmin: {model.RoleArbitrator, model.RoleSystem},
}

func getResourceFromPath(path string) Resource {
	parts := strings.Split(strings.TrimPrefix(path, "/"), "/")
	if len(parts) == 0 {
		return ""
	}
	return pathToResource[parts[0]]
}

// HasAccess reports whether role may call resource.
func HasAccess(role model.Role, resource Resource) bool {
	roles, restricted := resourceRoles[resource]
	if !restricted {
		return true
	}
	return slices.Contains(roles, role)
}
