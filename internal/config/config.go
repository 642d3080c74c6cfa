package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"strings"
	"time"

	"github.com/Shopify/sarama"
	ierr "github.com/flexprice/installments/internal/errors"
	"github.com/flexprice/installments/internal/types"
	"github.com/flexprice/installments/internal/validator"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

//go:embed config.yaml
var defaultConfig []byte

type Configuration struct {
	Deployment DeploymentConfig `mapstructure:"deployment"`
	Server     ServerConfig     `mapstructure:"server"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	Postgres   PostgresConfig   `mapstructure:"postgres"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Cache      CacheConfig      `mapstructure:"cache"`
	Kafka      KafkaConfig      `mapstructure:"kafka"`
	Ledger     LedgerConfig     `mapstructure:"ledger"`
	DueAlerts  DueAlertsConfig  `mapstructure:"due_alerts"`
	Sentry     SentryConfig     `mapstructure:"sentry"`
}

type DeploymentConfig struct {
	Mode types.RunMode `mapstructure:"mode" validate:"required,oneof=local api scheduler"`
}

type ServerConfig struct {
	Address string `mapstructure:"address" validate:"required"`
}

type LoggingConfig struct {
	Level          types.LogLevel `mapstructure:"level" validate:"required"`
	FluentdEnabled bool           `mapstructure:"fluentd_enabled"`
	FluentdHost    string         `mapstructure:"fluentd_host"`
	FluentdPort    int            `mapstructure:"fluentd_port"`
}

type PostgresConfig struct {
	// Driver is "postgres" or "sqlite"
	Driver                 string `mapstructure:"driver" validate:"required,oneof=postgres sqlite"`
	DSN                    string `mapstructure:"dsn" validate:"required"`
	MaxOpenConns           int    `mapstructure:"max_open_conns"`
	MaxIdleConns           int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetimeMinutes int    `mapstructure:"conn_max_lifetime_minutes"`
	AutoMigrate            bool   `mapstructure:"auto_migrate"`
}

type RedisConfig struct {
	Host     string        `mapstructure:"host"`
	Port     int           `mapstructure:"port"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	UseTLS   bool          `mapstructure:"use_tls"`
	PoolSize int           `mapstructure:"pool_size"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

type CacheConfig struct {
	Enabled    bool          `mapstructure:"enabled"`
	Type       string        `mapstructure:"type" validate:"omitempty,oneof=inmemory redis"`
	SummaryTTL time.Duration `mapstructure:"summary_ttl"`
}

type KafkaConfig struct {
	Brokers       []string             `mapstructure:"brokers"`
	ClientID      string               `mapstructure:"client_id"`
	TLS           bool                 `mapstructure:"tls"`
	UseSASL       bool                 `mapstructure:"use_sasl"`
	SASLMechanism sarama.SASLMechanism `mapstructure:"sasl_mechanism"`
	SASLUser      string               `mapstructure:"sasl_user"`
	SASLPassword  string               `mapstructure:"sasl_password"`
}

type LedgerConfig struct {
	LockTimeout                  time.Duration `mapstructure:"lock_timeout"`
	WriteConflictMaxRetries      int           `mapstructure:"write_conflict_max_retries" validate:"min=0"`
	WriteConflictInitialInterval time.Duration `mapstructure:"write_conflict_initial_interval"`
}

type DueAlertsConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	Schedule   string `mapstructure:"schedule"`
	Timezone   string `mapstructure:"timezone"`
	Publisher  string `mapstructure:"publisher" validate:"oneof=memory kafka"`
	Topic      string `mapstructure:"topic" validate:"required"`
	PageSize   int    `mapstructure:"page_size" validate:"min=1,max=1000"`
	MaxWorkers int    `mapstructure:"max_workers" validate:"min=1"`
}

type SentryConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	DSN         string  `mapstructure:"dsn"`
	Environment string  `mapstructure:"environment"`
	SampleRate  float64 `mapstructure:"sample_rate"`
}

// NewConfig loads the embedded defaults, then .env, then INSTALLMENTS_* environment overrides.
// INSTALLMENTS_POSTGRES_DSN overrides postgres.dsn and so on.
func NewConfig() (*Configuration, error) {
	// .env is optional
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigType("yaml")
	if err := v.ReadConfig(bytes.NewReader(defaultConfig)); err != nil {
		return nil, fmt.Errorf("failed to read default config: %w", err)
	}

	v.SetEnvPrefix("INSTALLMENTS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Configuration
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode into config struct: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Configuration) Validate() error {
	if err := validator.ValidateRequest(c); err != nil {
		return err
	}
	if c.DueAlerts.Timezone != "" {
		if err := types.ValidateTimezone(c.DueAlerts.Timezone); err != nil {
			return ierr.WithError(err).
				WithHintf("Unknown due alert timezone %q", c.DueAlerts.Timezone).
				Mark(ierr.ErrValidation)
		}
	}
	if c.DueAlerts.Publisher == "kafka" && len(c.Kafka.Brokers) == 0 {
		return ierr.NewError("kafka brokers are required for the kafka publisher").
			WithHint("Configure kafka.brokers or use the memory publisher").
			Mark(ierr.ErrValidation)
	}
	return nil
}

// GetDefaultConfig returns the embedded defaults, falling back to a minimal local config
// if they cannot be parsed. Used by the global logger before DI runs.
func GetDefaultConfig() *Configuration {
	cfg, err := NewConfig()
	if err != nil {
		return &Configuration{
			Deployment: DeploymentConfig{Mode: types.ModeLocal},
			Logging:    LoggingConfig{Level: types.LogLevelInfo},
		}
	}
	return cfg
}
