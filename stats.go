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

	"github.com/sirupsen/logrus"

	"github.com/regiohub/regio/model"
)

const (
	statsCacheKey = "regio:stats"
	statsCacheTTL = 30 * time.Second
)

// GetSystemStats returns community-wide totals. Results are cached briefly since
// the query scans every account.
func (r *Regio) GetSystemStats(ctx context.Context, caller model.Caller) (*model.SystemStats, error) {
	ctx, span := tracer.Start(ctx, "GetSystemStats")
	defer span.End()

	if !caller.IsArbitrator() && !caller.IsSystem() {
		return nil, forbidden("only an arbitrator may view system statistics")
	}

	var stats model.SystemStats
	err := r.cache.Once(ctx, statsCacheKey, &stats, statsCacheTTL, func() (interface{}, error) {
		return r.datasource.GetSystemStats(ctx)
	})
	if err == nil {
		return &stats, nil
	}

	logrus.WithError(err).Warn("stats cache unavailable, reading from the datasource")
	fresh, err := r.datasource.GetSystemStats(ctx)
	if err != nil {
		return nil, err
	}
	return &fresh, nil
}
