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
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"

	"github.com/regiohub/regio/internal/apierror"
)

// withConflictRetry runs op until it succeeds, fails with anything other than a
// compare-and-set conflict, or the configured retries run out. op must re-read
// whatever state it depends on.
func (r *Regio) withConflictRetry(ctx context.Context, name string, op func() error) error {
	expBackoff := backoff.NewExponentialBackOff()
	expBackoff.InitialInterval = 10 * time.Millisecond
	expBackoff.MaxInterval = 250 * time.Millisecond
	expBackoff.MaxElapsedTime = 0

	attempt := 0
	return backoff.Retry(func() error {
		attempt++
		err := op()
		if err == nil {
			return nil
		}
		if !apierror.Is(err, apierror.ErrConflict) {
			return backoff.Permanent(err)
		}
		logrus.WithFields(logrus.Fields{"operation": name, "attempt": attempt}).Warn("conflict, retrying")
		return err
	}, backoff.WithContext(backoff.WithMaxRetries(expBackoff, uint64(r.config.Ledger.MaxRetries)), ctx))
}
