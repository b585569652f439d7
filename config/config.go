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

package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"sync/atomic"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/wacul/ptr"
)

const (
	DEFAULT_PORT                = "5001"
	DEFAULT_MONITORING_PORT     = "5004"
	DEFAULT_SYSTEM_ACCOUNT      = "SYSTEM_SINK"
	DEFAULT_MONTHLY_FEE_MINUTES = 30
	DEFAULT_DEMURRAGE_RATE      = "0.06"
	DEFAULT_DEMURRAGE_THRESHOLD = 1800
	// MAX_MONEY_SCALE matches the NUMERIC(20, 4) money columns.
	MAX_MONEY_SCALE = 4
)

var ConfigStore atomic.Value

type ServerConfig struct {
	SSL       bool   `json:"ssl" envconfig:"REGIO_SERVER_SSL"`
	Secure    bool   `json:"secure" envconfig:"REGIO_SERVER_SECURE"`
	SecretKey string `json:"secret_key" envconfig:"REGIO_SERVER_SECRET_KEY"`
	Domain    string `json:"domain" envconfig:"REGIO_SERVER_SSL_DOMAIN"`
	Email     string `json:"ssl_email" envconfig:"REGIO_SERVER_SSL_EMAIL"`
	Port      string `json:"port" envconfig:"REGIO_SERVER_PORT"`
}

// DataSourceConfig accepts a postgres:// DSN or memory:// for the in-process store.
type DataSourceConfig struct {
	Dns string `json:"dns" envconfig:"REGIO_DATA_SOURCE_DNS"`
}

type RedisConfig struct {
	Dns           string `json:"dns" envconfig:"REGIO_REDIS_DNS"`
	SkipTLSVerify bool   `json:"skip_tls_verify" envconfig:"REGIO_REDIS_SKIP_TLS_VERIFY"`
}

type QueueConfig struct {
	WebhookQueue     string `json:"webhook_queue" envconfig:"REGIO_QUEUE_WEBHOOK"`
	ExpiryQueue      string `json:"expiry_queue" envconfig:"REGIO_QUEUE_EXPIRY"`
	MaintenanceQueue string `json:"maintenance_queue" envconfig:"REGIO_QUEUE_MAINTENANCE"`
	MonitoringPort   string `json:"monitoring_port" envconfig:"REGIO_QUEUE_MONITORING_PORT"`
	Concurrency      int    `json:"concurrency" envconfig:"REGIO_QUEUE_CONCURRENCY"`
}

type LedgerConfig struct {
	MaxRetries         int    `json:"max_retries" envconfig:"REGIO_LEDGER_MAX_RETRIES"`
	LockTimeoutSeconds int    `json:"lock_timeout_seconds" envconfig:"REGIO_LEDGER_LOCK_TIMEOUT_SECONDS"`
	LockWaitSeconds    int    `json:"lock_wait_seconds" envconfig:"REGIO_LEDGER_LOCK_WAIT_SECONDS"`
	MoneyScale         int32  `json:"money_scale" envconfig:"REGIO_LEDGER_MONEY_SCALE"`
	SystemAccountCode  string `json:"system_account_code" envconfig:"REGIO_LEDGER_SYSTEM_ACCOUNT"`
}

// TierLimit overrides one row of the credit limit table. Money is a decimal string.
type TierLimit struct {
	Time  int64  `json:"time"`
	Money string `json:"money"`
}

type TrustConfig struct {
	Limits            map[string]TierLimit `json:"limits"`
	UpgradeThresholds map[string]int64     `json:"upgrade_thresholds"`
}

type FeesConfig struct {
	Enabled                   bool   `json:"enabled" envconfig:"REGIO_FEES_ENABLED"`
	MonthlyFeeMinutes         int64  `json:"monthly_fee_minutes" envconfig:"REGIO_FEES_MONTHLY_MINUTES"`
	MonthlyFeeCron            string `json:"monthly_fee_cron" envconfig:"REGIO_FEES_MONTHLY_CRON"`
	DemurrageRate             string `json:"demurrage_rate" envconfig:"REGIO_FEES_DEMURRAGE_RATE"`
	DemurrageThresholdMinutes int64  `json:"demurrage_threshold_minutes" envconfig:"REGIO_FEES_DEMURRAGE_THRESHOLD"`
	DemurrageCron             string `json:"demurrage_cron" envconfig:"REGIO_FEES_DEMURRAGE_CRON"`
}

type DisputesConfig struct {
	RequireConsent *bool `json:"require_consent" envconfig:"REGIO_DISPUTES_REQUIRE_CONSENT"`
}

type RequestsConfig struct {
	DefaultExpiryHours int `json:"default_expiry_hours" envconfig:"REGIO_REQUESTS_DEFAULT_EXPIRY_HOURS"`
}

type RateLimitConfig struct {
	RequestsPerSecond  *float64 `json:"requests_per_second" envconfig:"REGIO_RATE_LIMIT_RPS"`
	Burst              *int     `json:"burst" envconfig:"REGIO_RATE_LIMIT_BURST"`
	CleanupIntervalSec *int     `json:"cleanup_interval_sec" envconfig:"REGIO_RATE_LIMIT_CLEANUP_INTERVAL_SEC"`
}

type SlackWebhook struct {
	WebhookUrl string `json:"webhook_url" envconfig:"REGIO_SLACK_WEBHOOK_URL"`
}

type WebhookConfig struct {
	Url     string            `json:"url" envconfig:"REGIO_WEBHOOK_URL"`
	Headers map[string]string `json:"headers"`
}

type Notification struct {
	Slack   SlackWebhook  `json:"slack"`
	Webhook WebhookConfig `json:"webhook"`
}

type Configuration struct {
	ProjectName     string           `json:"project_name" envconfig:"REGIO_PROJECT_NAME"`
	Server          ServerConfig     `json:"server"`
	DataSource      DataSourceConfig `json:"data_source"`
	Redis           RedisConfig      `json:"redis"`
	Queue           QueueConfig      `json:"queue"`
	Ledger          LedgerConfig     `json:"ledger"`
	Trust           TrustConfig      `json:"trust"`
	Fees            FeesConfig       `json:"fees"`
	Disputes        DisputesConfig   `json:"disputes"`
	Requests        RequestsConfig   `json:"requests"`
	Notification    Notification     `json:"notification"`
	RateLimit       RateLimitConfig  `json:"rate_limit"`
	EnableTelemetry bool             `json:"enable_telemetry" envconfig:"REGIO_ENABLE_TELEMETRY"`
	OtelEndpoint    string           `json:"otel_endpoint" envconfig:"REGIO_OTEL_ENDPOINT"`
}

func loadConfigFromFile(file string) error {
	var cnf Configuration
	_, err := os.Stat(file)
	if err == nil {
		f, err := os.Open(file)
		if err != nil {
			return err
		}
		defer f.Close()
		if err := json.NewDecoder(f).Decode(&cnf); err != nil {
			return fmt.Errorf("decode %s: %w", file, err)
		}
	} else if errors.Is(err, os.ErrNotExist) {
		log.Println("config json not passed, will use env variables")
	}

	if err := envconfig.Process("regio", &cnf); err != nil {
		return err
	}

	if err := cnf.validateAndAddDefaults(); err != nil {
		return err
	}

	ConfigStore.Store(&cnf)
	return nil
}

func InitConfig(configFile string) error {
	logger()
	return loadConfigFromFile(configFile)
}

func Fetch() (*Configuration, error) {
	c, ok := ConfigStore.Load().(*Configuration)
	if !ok {
		return nil, errors.New("config not loaded from file. Create a json file called regio.json with your config")
	}
	return c, nil
}

// RequireConsent reports whether arbitration waits for both parties' consent.
func (cnf *Configuration) RequireConsent() bool {
	return cnf.Disputes.RequireConsent == nil || *cnf.Disputes.RequireConsent
}

// DemurrageRate returns the parsed yearly demurrage rate.
func (cnf *Configuration) DemurrageRate() decimal.Decimal {
	rate, err := decimal.NewFromString(cnf.Fees.DemurrageRate)
	if err != nil {
		return decimal.RequireFromString(DEFAULT_DEMURRAGE_RATE)
	}
	return rate
}

func (cnf *Configuration) validateAndAddDefaults() error {
	cnf.ProjectName = strings.TrimSpace(cnf.ProjectName)
	cnf.Server.Port = strings.TrimSpace(cnf.Server.Port)
	cnf.DataSource.Dns = strings.TrimSpace(cnf.DataSource.Dns)
	cnf.Redis.Dns = strings.TrimSpace(cnf.Redis.Dns)
	cnf.Ledger.SystemAccountCode = strings.TrimSpace(cnf.Ledger.SystemAccountCode)

	if cnf.ProjectName == "" {
		cnf.ProjectName = "Regio"
	}

	if cnf.DataSource.Dns == "" {
		log.Println("Error: Data source DNS is empty. It's a required field.")
		return errors.New("data source DNS is required")
	}

	if cnf.Redis.Dns == "" {
		log.Println("Error: Redis DNS is empty. It's a required field.")
		return errors.New("redis DNS is required")
	}

	if cnf.Server.Port == "" {
		cnf.Server.Port = DEFAULT_PORT
		log.Printf("Warning: Port not specified in config. Setting default port: %s", DEFAULT_PORT)
	}

	cnf.setQueueDefaults()
	if err := cnf.setLedgerDefaults(); err != nil {
		return err
	}

	if err := cnf.setFeeDefaults(); err != nil {
		return err
	}

	if cnf.Disputes.RequireConsent == nil {
		cnf.Disputes.RequireConsent = ptr.Bool(true)
	}

	if cnf.Requests.DefaultExpiryHours < 0 {
		return errors.New("requests.default_expiry_hours cannot be negative")
	}

	for tier, l := range cnf.Trust.Limits {
		if _, err := decimal.NewFromString(l.Money); err != nil {
			return fmt.Errorf("trust limit for %s has malformed money value %q", tier, l.Money)
		}
	}

	cnf.setRateLimitDefaults()
	return nil
}

func (cnf *Configuration) setQueueDefaults() {
	if cnf.Queue.WebhookQueue == "" {
		cnf.Queue.WebhookQueue = "regio_webhooks"
	}
	if cnf.Queue.ExpiryQueue == "" {
		cnf.Queue.ExpiryQueue = "regio_request_expiry"
	}
	if cnf.Queue.MaintenanceQueue == "" {
		cnf.Queue.MaintenanceQueue = "regio_maintenance"
	}
	if cnf.Queue.MonitoringPort == "" {
		cnf.Queue.MonitoringPort = DEFAULT_MONITORING_PORT
	}
	if cnf.Queue.Concurrency <= 0 {
		cnf.Queue.Concurrency = 10
	}
}

// setLedgerDefaults fills unset ledger values. A money_scale of 0 counts as unset,
// so money amounts always carry between 1 and MAX_MONEY_SCALE fractional digits.
func (cnf *Configuration) setLedgerDefaults() error {
	if cnf.Ledger.MaxRetries <= 0 {
		cnf.Ledger.MaxRetries = 5
	}
	if cnf.Ledger.LockTimeoutSeconds <= 0 {
		cnf.Ledger.LockTimeoutSeconds = 5
	}
	if cnf.Ledger.LockWaitSeconds <= 0 {
		cnf.Ledger.LockWaitSeconds = 3
	}
	if cnf.Ledger.MoneyScale < 0 || cnf.Ledger.MoneyScale > MAX_MONEY_SCALE {
		return fmt.Errorf("ledger.money_scale must be between 1 and %d, got %d", MAX_MONEY_SCALE, cnf.Ledger.MoneyScale)
	}
	if cnf.Ledger.MoneyScale == 0 {
		cnf.Ledger.MoneyScale = 2
	}
	if cnf.Ledger.SystemAccountCode == "" {
		cnf.Ledger.SystemAccountCode = DEFAULT_SYSTEM_ACCOUNT
	}
	return nil
}

func (cnf *Configuration) setFeeDefaults() error {
	if cnf.Fees.MonthlyFeeMinutes < 0 {
		return errors.New("fees.monthly_fee_minutes cannot be negative")
	}
	if cnf.Fees.MonthlyFeeMinutes == 0 {
		cnf.Fees.MonthlyFeeMinutes = DEFAULT_MONTHLY_FEE_MINUTES
	}
	if cnf.Fees.MonthlyFeeCron == "" {
		cnf.Fees.MonthlyFeeCron = "0 0 1 * *"
	}

	cnf.Fees.DemurrageRate = strings.TrimSpace(cnf.Fees.DemurrageRate)
	if cnf.Fees.DemurrageRate == "" {
		cnf.Fees.DemurrageRate = DEFAULT_DEMURRAGE_RATE
	}
	rate, err := decimal.NewFromString(cnf.Fees.DemurrageRate)
	if err != nil {
		return fmt.Errorf("fees.demurrage_rate %q is not a decimal", cnf.Fees.DemurrageRate)
	}
	if rate.IsNegative() || rate.GreaterThan(decimal.NewFromInt(1)) {
		return fmt.Errorf("fees.demurrage_rate must be between 0 and 1, got %s", rate)
	}

	if cnf.Fees.DemurrageThresholdMinutes < 0 {
		return errors.New("fees.demurrage_threshold_minutes cannot be negative")
	}
	if cnf.Fees.DemurrageThresholdMinutes == 0 {
		cnf.Fees.DemurrageThresholdMinutes = DEFAULT_DEMURRAGE_THRESHOLD
	}
	if cnf.Fees.DemurrageCron == "" {
		cnf.Fees.DemurrageCron = "0 2 * * *"
	}
	return nil
}

// Rate limiting stays disabled unless RPS or burst is set.
func (cnf *Configuration) setRateLimitDefaults() {
	if cnf.RateLimit.RequestsPerSecond != nil && cnf.RateLimit.Burst == nil {
		defaultBurst := 2 * int(*cnf.RateLimit.RequestsPerSecond)
		cnf.RateLimit.Burst = &defaultBurst
		log.Printf("Warning: Rate limit burst not specified. Setting default value: %d", defaultBurst)
	}
	if cnf.RateLimit.RequestsPerSecond == nil && cnf.RateLimit.Burst != nil {
		defaultRPS := float64(*cnf.RateLimit.Burst) / 2
		cnf.RateLimit.RequestsPerSecond = &defaultRPS
		log.Printf("Warning: Rate limit RPS not specified. Setting default value: %.2f", defaultRPS)
	}
	if cnf.RateLimit.CleanupIntervalSec == nil {
		defaultCleanup := 10800
		cnf.RateLimit.CleanupIntervalSec = &defaultCleanup
	}
}

// MockConfig sets a mock configuration for testing purposes.
func MockConfig(mockConfig *Configuration) {
	ConfigStore.Store(mockConfig)
}

func logger() {
	logger := logrus.New()
	log.SetOutput(logger.Writer())
}
