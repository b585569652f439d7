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
	"embed"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"

	"github.com/regiohub/regio/config"
	"github.com/regiohub/regio/database"
	"github.com/regiohub/regio/internal/cache"
	redis_db "github.com/regiohub/regio/internal/redis-db"
	"github.com/regiohub/regio/model"
	"github.com/regiohub/regio/policy"
)

var tracer = otel.Tracer("regio.ledger")

//go:embed sql/*.sql
var SQLFiles embed.FS

// Regio is the ledger service: account postings, payment requests and disputes.
type Regio struct {
	config     *config.Configuration
	datasource database.IDataSource
	redis      redis.UniversalClient
	queue      *Queue
	cache      cache.Cache
	policy     *policy.Policy
	trust      TrustProvider
	now        func() time.Time
}

// Option customises a Regio built by NewRegio.
type Option func(*Regio)

// WithRedis supplies the redis client used for account locks.
func WithRedis(client redis.UniversalClient) Option {
	return func(r *Regio) { r.redis = client }
}

func WithQueue(q *Queue) Option {
	return func(r *Regio) { r.queue = q }
}

func WithCache(c cache.Cache) Option {
	return func(r *Regio) { r.cache = c }
}

// WithTrustProvider replaces the default provider, which reads the tier stored on the account.
func WithTrustProvider(p TrustProvider) Option {
	return func(r *Regio) { r.trust = p }
}

func WithPolicy(p *policy.Policy) Option {
	return func(r *Regio) { r.policy = p }
}

func WithClock(now func() time.Time) Option {
	return func(r *Regio) { r.now = now }
}

// NewRegio builds the service from the loaded configuration. Dependencies not
// supplied through options are created from it.
func NewRegio(db database.IDataSource, opts ...Option) (*Regio, error) {
	configuration, err := config.Fetch()
	if err != nil {
		return nil, err
	}

	r := &Regio{
		config:     configuration,
		datasource: db,
		trust:      accountTrustProvider{},
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}

	if r.policy == nil {
		p, err := buildPolicy(configuration.Trust)
		if err != nil {
			return nil, err
		}
		r.policy = p
	}
	if r.redis == nil {
		redisClient, err := redis_db.NewRedisClient([]string{configuration.Redis.Dns}, configuration.Redis.SkipTLSVerify)
		if err != nil {
			return nil, err
		}
		r.redis = redisClient.Client()
	}
	if r.queue == nil {
		q, err := NewQueue(configuration)
		if err != nil {
			return nil, err
		}
		r.queue = q
	}
	if r.cache == nil {
		r.cache = cache.NewRedisCache(r.redis)
	}
	return r, nil
}

// Policy exposes the credit limit table in use.
func (r *Regio) Policy() *policy.Policy {
	return r.policy
}

// Queue exposes the task queue so workers can share the client.
func (r *Regio) Queue() *Queue {
	return r.queue
}

// Now is the ledger clock.
func (r *Regio) Now() time.Time {
	return r.now()
}

// buildPolicy overlays configured tier limits and thresholds on the defaults.
func buildPolicy(trust config.TrustConfig) (*policy.Policy, error) {
	limits := policy.DefaultLimits()
	for name, override := range trust.Limits {
		tier, err := model.ParseTrustTier(name)
		if err != nil {
			return nil, err
		}
		money, err := decimal.NewFromString(override.Money)
		if err != nil {
			return nil, fmt.Errorf("trust limit for %s has invalid money amount %q", tier, override.Money)
		}
		limits[tier] = policy.Limit{Time: override.Time, Money: money}
	}

	thresholds := policy.DefaultThresholds()
	if len(trust.UpgradeThresholds) > 0 {
		thresholds = make([]policy.Threshold, 0, len(trust.UpgradeThresholds))
		for name, minutes := range trust.UpgradeThresholds {
			tier, err := model.ParseTrustTier(name)
			if err != nil {
				return nil, err
			}
			thresholds = append(thresholds, policy.Threshold{Tier: tier, EarnedMinutes: minutes})
		}
	}
	return policy.New(limits, thresholds)
}

func (r *Regio) systemAccountCode() string {
	return r.config.Ledger.SystemAccountCode
}

func (r *Regio) lockTimeout() time.Duration {
	return time.Duration(r.config.Ledger.LockTimeoutSeconds) * time.Second
}

func (r *Regio) lockWait() time.Duration {
	return time.Duration(r.config.Ledger.LockWaitSeconds) * time.Second
}
