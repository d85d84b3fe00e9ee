package config

import (
	"os"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/spf13/viper"
)

const envPrefix = "VESTING"

// Config is centralized process configuration.
// Keep infra values here and pass typed config into builders.
type Config struct {
	ServiceName     string        `mapstructure:"service_name"`
	HTTPPort        string        `mapstructure:"http_port"`
	PostgresDSN     string        `mapstructure:"postgres_dsn"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
	RedisAddr       string        `mapstructure:"redis_addr"`
	KafkaBrokers    []string      `mapstructure:"kafka_brokers"`
	OutboxTopic     string        `mapstructure:"outbox_topic"`
	OutboxBatchSize int           `mapstructure:"outbox_batch_size"`
	ClaimsPerMinute int           `mapstructure:"claims_per_minute"`
	IdempotencyTTL  time.Duration `mapstructure:"idempotency_ttl"`
	PollInterval    time.Duration `mapstructure:"poll_interval"`
	AuditInterval   time.Duration `mapstructure:"audit_interval"`
	// DevWallets seeds the in-memory ledger, as "wallet:alice=1000000" pairs.
	// Ignored when PostgresDSN is set.
	DevWallets []string `mapstructure:"dev_wallets"`
}

// SetDefaults registers every key so environment overrides are picked up by
// Unmarshal.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("service_name", "vesting-engine")
	v.SetDefault("http_port", "8080")
	v.SetDefault("postgres_dsn", "")
	v.SetDefault("auto_migrate", false)
	v.SetDefault("redis_addr", "")
	v.SetDefault("kafka_brokers", []string{"localhost:9092"})
	v.SetDefault("outbox_topic", "vesting.events")
	v.SetDefault("outbox_batch_size", 100)
	v.SetDefault("claims_per_minute", 30)
	v.SetDefault("idempotency_ttl", 7*24*time.Hour)
	v.SetDefault("poll_interval", 2*time.Second)
	v.SetDefault("audit_interval", time.Minute)
	v.SetDefault("dev_wallets", []string{})
}

// Load reads configuration from VESTING_* environment variables and, when
// configPath (or VESTING_CONFIG) is set, from that file.
func Load(configPath string) (Config, error) {
	if strings.TrimSpace(configPath) == "" {
		configPath = os.Getenv(envPrefix + "_CONFIG")
	}
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	SetDefaults(v)

	if strings.TrimSpace(configPath) != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, errors.Wrapf(err, "read config file %s", configPath)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, errors.Wrap(err, "unmarshal config")
	}
	cfg.KafkaBrokers = normalizeList(cfg.KafkaBrokers)
	cfg.DevWallets = normalizeList(cfg.DevWallets)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.ServiceName) == "" {
		return errors.New("service_name is required")
	}
	if c.ClaimsPerMinute <= 0 {
		return errors.Newf("claims_per_minute must be positive, got %d", c.ClaimsPerMinute)
	}
	if c.OutboxBatchSize <= 0 {
		return errors.Newf("outbox_batch_size must be positive, got %d", c.OutboxBatchSize)
	}
	if c.PollInterval <= 0 || c.AuditInterval <= 0 {
		return errors.New("poll_interval and audit_interval must be positive")
	}
	return nil
}

func normalizeList(values []string) []string {
	var out []string
	for _, value := range values {
		for _, part := range strings.Split(value, ",") {
			part = strings.TrimSpace(part)
			if part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
