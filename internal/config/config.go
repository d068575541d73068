// Package config reads service configuration from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"

	"debtster-collector/internal/domain"
)

type PostgresConfig struct {
	Host     string `env:"PG_HOST" envDefault:"127.0.0.1"`
	Port     int    `env:"PG_PORT" envDefault:"5432"`
	User     string `env:"PG_USER" envDefault:"root"`
	Password string `env:"PG_PASSWORD" envDefault:""`
	DBName   string `env:"PG_DB" envDefault:"debtster"`
	SSLMode  string `env:"PG_SSLMODE" envDefault:"disable"`
}

type RedisConfig struct {
	Addr        string `env:"REDIS_ADDR" envDefault:""`
	Password    string `env:"REDIS_PASSWORD" envDefault:""`
	DB          int    `env:"REDIS_DB" envDefault:"0"`
	MaxRetries  int    `env:"REDIS_MAX_RETRIES" envDefault:"5"`
	DialTimeout int    `env:"REDIS_DIAL_TIMEOUT" envDefault:"10"`
	Timeout     int    `env:"REDIS_TIMEOUT" envDefault:"5"`
	Prefix      string `env:"REDIS_PREFIX" envDefault:"debtster_collector"`
}

type S3Config struct {
	Endpoint        string `env:"S3_ENDPOINT" envDefault:""`
	AccessKeyID     string `env:"S3_ACCESS_KEY" envDefault:"minio"`
	SecretAccessKey string `env:"S3_SECRET_KEY" envDefault:"minio123"`
	Bucket          string `env:"S3_BUCKET" envDefault:"reports"`
	UseSSL          bool   `env:"S3_USE_SSL" envDefault:"false"`
	Region          string `env:"S3_REGION" envDefault:"us-east-1"`
	Prefix          string `env:"S3_PREFIX" envDefault:""`
}

type TwilioConfig struct {
	AccountSID string `env:"TWILIO_ACCOUNT_SID" envDefault:""`
	AuthToken  string `env:"TWILIO_AUTH_TOKEN" envDefault:""`
	FromNumber string `env:"TWILIO_WHATSAPP_FROM" envDefault:""`
}

type GeminiConfig struct {
	APIKey string `env:"GEMINI_API_KEY" envDefault:""`
	Model  string `env:"GEMINI_MODEL" envDefault:"gemini-2.0-flash"`
}

// CollectionConfig holds the reminder/escalation semantics: how often to
// remind, when to give up, and how hard to throttle the channel.
type CollectionConfig struct {
	ReminderIntervalHours   int           `env:"REMINDER_INTERVAL_HOURS" envDefault:"24"`
	MaxReminderAttempts     int           `env:"MAX_REMINDER_ATTEMPTS" envDefault:"5"`
	EscalationThresholdDays int           `env:"ESCALATION_THRESHOLD_DAYS" envDefault:"30"`
	InterMessageDelay       time.Duration `env:"INTER_MESSAGE_DELAY" envDefault:"2s"`
	Timezone                string        `env:"SCHEDULER_TIMEZONE" envDefault:"Asia/Jakarta"`

	ReminderSweepInterval   time.Duration `env:"REMINDER_SWEEP_INTERVAL" envDefault:"1h"`
	EscalationSweepInterval time.Duration `env:"ESCALATION_SWEEP_INTERVAL" envDefault:"6h"`
	DailySweepInterval      time.Duration `env:"DAILY_SWEEP_INTERVAL" envDefault:"24h"`
	ReportSweepInterval     time.Duration `env:"REPORT_SWEEP_INTERVAL" envDefault:"168h"`

	// ReminderClaimTTL, when positive and redis is configured, enables the
	// SET NX claim that prevents duplicate sends across instances.
	ReminderClaimTTL time.Duration `env:"REMINDER_CLAIM_TTL" envDefault:"0"`
}

// RatingConfig keeps the credit-rating cutoffs tunable; the defaults mirror
// the historical values.
type RatingConfig struct {
	PoorDefaultRate     float64 `env:"RATING_POOR_DEFAULT_RATE" envDefault:"0.3"`
	ExcellentOnTimeRate float64 `env:"RATING_EXCELLENT_ONTIME_RATE" envDefault:"0.95"`
	GoodOnTimeRate      float64 `env:"RATING_GOOD_ONTIME_RATE" envDefault:"0.8"`
	FairOnTimeRate      float64 `env:"RATING_FAIR_ONTIME_RATE" envDefault:"0.5"`
	MinSample           int     `env:"RATING_MIN_SAMPLE" envDefault:"3"`
}

type AppConfig struct {
	Port string `env:"APP_PORT" envDefault:"8010"`

	Postgres   PostgresConfig
	Redis      RedisConfig
	S3         S3Config
	Twilio     TwilioConfig
	Gemini     GeminiConfig
	Collection CollectionConfig
	Rating     RatingConfig
}

func Load() (*AppConfig, error) {
	cfg := &AppConfig{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// ReminderPolicy converts the collection knobs into the domain policy.
func (c *AppConfig) ReminderPolicy() domain.ReminderPolicy {
	return domain.ReminderPolicy{
		IntervalHours:       c.Collection.ReminderIntervalHours,
		MaxAttempts:         c.Collection.MaxReminderAttempts,
		EscalationAfterDays: c.Collection.EscalationThresholdDays,
	}
}

// RatingThresholds converts the rating knobs into the domain thresholds.
func (c *AppConfig) RatingThresholds() domain.RatingThresholds {
	return domain.RatingThresholds{
		PoorDefaultRate:     c.Rating.PoorDefaultRate,
		ExcellentOnTimeRate: c.Rating.ExcellentOnTimeRate,
		GoodOnTimeRate:      c.Rating.GoodOnTimeRate,
		FairOnTimeRate:      c.Rating.FairOnTimeRate,
		MinSample:           c.Rating.MinSample,
	}
}
