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
	"context"

	"github.com/regiohub/regio/model"
)

// TrustProvider reports the tier that governs an account's credit limit.
type TrustProvider interface {
	TrustTier(ctx context.Context, account *model.Account) (model.TrustTier, error)
}

// accountTrustProvider trusts the tier stored on the account row.
type accountTrustProvider struct{}

func (accountTrustProvider) TrustTier(_ context.Context, account *model.Account) (model.TrustTier, error) {
	if !account.TrustTier.Valid() {
		return model.TierT1, nil
	}
	return account.TrustTier, nil
}

// TrustProviderFunc adapts a function to TrustProvider.
type TrustProviderFunc func(ctx context.Context, account *model.Account) (model.TrustTier, error)

func (f TrustProviderFunc) TrustTier(ctx context.Context, account *model.Account) (model.TrustTier, error) {
	return f(ctx, account)
}
