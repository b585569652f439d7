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

package database

import (
	"context"

	"github.com/regiohub/regio/internal/apierror"
	"github.com/regiohub/regio/model"
)

const systemStatsQuery = `
	SELECT
		(SELECT COUNT(*) FROM regio.accounts WHERE is_system = FALSE),
		(SELECT COUNT(*) FROM regio.accounts WHERE is_system = FALSE AND is_active = TRUE),
		(SELECT COALESCE(SUM(balance_time), 0) FROM regio.accounts WHERE is_system = FALSE AND balance_time > 0),
		(SELECT COALESCE(SUM(balance_money), 0) FROM regio.accounts WHERE is_system = FALSE AND balance_money > 0),
		(SELECT COUNT(*) FROM regio.payment_requests WHERE status = 'PENDING'),
		(SELECT COUNT(*) FROM regio.disputes WHERE status = 'OPEN')`

func (d Datasource) GetSystemStats(ctx context.Context) (model.SystemStats, error) {
	ctx, span := tracer.Start(ctx, "Computing system stats")
	defer span.End()

	var s model.SystemStats
	err := d.Conn.QueryRowContext(ctx, systemStatsQuery).Scan(&s.TotalAccounts, &s.ActiveAccounts, &s.TotalTimeVolume,
		&s.TotalMoneyVolume, &s.PendingRequests, &s.OpenDisputes)
	if err != nil {
		span.RecordError(err)
		return model.SystemStats{}, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to compute system stats", err)
	}
	return s, nil
}
