// Package config loads process configuration from the environment, reading a
// .env file first in development.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/joho/godotenv"
)

type Config struct {
	Env      string
	Storage  StorageConfig
	Blob     BlobConfig
	Registry RegistryConfig
	Card     CardConfig
	HTTP     HTTPConfig
	Discord  DiscordConfig
	Audit    AuditConfig
	OTel     OTelConfig
}

type StorageConfig struct {
	Driver         string
	SQLitePath     string
	PostgresDSN    string
	RedisURL       string
	RedisNamespace string
}

type BlobConfig struct {
	Driver      string
	FSRoot      string
	S3Bucket    string
	S3Region    string
	S3Endpoint  string
	S3PathStyle bool
}

type RegistryConfig struct {
	MaxIDAttempts int
}

type CardConfig struct {
	AvatarTimeout time.Duration
	ThemeFile     string
	URLExpiry     time.Duration
}

type HTTPConfig struct {
	Addr        string
	AdminAPIKey string
}

type DiscordConfig struct {
	Token        string
	AppID        snowflake.ID
	GuildID      snowflake.ID
	AdminRoleID  snowflake.ID
	LogChannelID snowflake.ID
}

type AuditConfig struct {
	Sinks        []string
	RedisChannel string
	KafkaBrokers []string
	KafkaTopic   string
	AMQPURL      string
	AMQPExchange string
}

type OTelConfig struct {
	Endpoint       string
	Headers        string
	ServiceName    string
	ServiceVersion string
}

// Load reads configuration from the environment. In development a .env file in
// the working directory is loaded first; variables already set win.
func Load() (Config, error) {
	if getEnv("IDCARD_ENV", "development") == "development" {
		_ = godotenv.Load(".env")
	}

	var errs []error
	parseID := func(key string) snowflake.ID {
		raw := getEnv(key, "")
		if raw == "" {
			return 0
		}
		id, err := snowflake.Parse(raw)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: invalid snowflake %q", key, raw))
			return 0
		}
		return id
	}

	cfg := Config{
		Env: getEnv("IDCARD_ENV", "development"),
		Storage: StorageConfig{
			Driver:         getEnv("IDCARD_STORAGE_DRIVER", "sqlite"),
			SQLitePath:     getEnv("IDCARD_SQLITE_PATH", "./idcard.db"),
			PostgresDSN:    getEnv("IDCARD_POSTGRES_DSN", ""),
			RedisURL:       getEnv("IDCARD_REDIS_URL", ""),
			RedisNamespace: getEnv("IDCARD_REDIS_NAMESPACE", "default"),
		},
		Blob: BlobConfig{
			Driver:      getEnv("IDCARD_BLOB_DRIVER", "fs"),
			FSRoot:      getEnv("IDCARD_BLOB_FS_ROOT", "./cards"),
			S3Bucket:    getEnv("IDCARD_BLOB_S3_BUCKET", ""),
			S3Region:    getEnv("IDCARD_BLOB_S3_REGION", "us-east-1"),
			S3Endpoint:  getEnv("IDCARD_BLOB_S3_ENDPOINT", ""),
			S3PathStyle: getEnvBool("IDCARD_BLOB_S3_PATH_STYLE", false),
		},
		Registry: RegistryConfig{
			MaxIDAttempts: getEnvInt("IDCARD_MAX_ID_ATTEMPTS", 8),
		},
		Card: CardConfig{
			AvatarTimeout: getEnvDuration("IDCARD_AVATAR_TIMEOUT", 5*time.Second),
			ThemeFile:     getEnv("IDCARD_THEME_FILE", ""),
			URLExpiry:     getEnvDuration("IDCARD_CARD_URL_EXPIRY", 15*time.Minute),
		},
		HTTP: HTTPConfig{
			Addr:        getEnv("IDCARD_HTTP_ADDR", ""),
			AdminAPIKey: getEnv("IDCARD_ADMIN_API_KEY", ""),
		},
		Discord: DiscordConfig{
			Token:        getEnv("DISCORD_TOKEN", ""),
			AppID:        parseID("DISCORD_APP_ID"),
			GuildID:      parseID("DISCORD_GUILD_ID"),
			AdminRoleID:  parseID("ADMIN_ROLE_ID"),
			LogChannelID: parseID("LOG_CHANNEL_ID"),
		},
		Audit: AuditConfig{
			Sinks:        splitList(getEnv("IDCARD_AUDIT_SINKS", "log")),
			RedisChannel: getEnv("IDCARD_AUDIT_REDIS_CHANNEL", "idcard:audit"),
			KafkaBrokers: splitList(getEnv("IDCARD_KAFKA_BROKERS", "")),
			KafkaTopic:   getEnv("IDCARD_KAFKA_TOPIC", "idcard.audit"),
			AMQPURL:      getEnv("IDCARD_AMQP_URL", ""),
			AMQPExchange: getEnv("IDCARD_AMQP_EXCHANGE", "idcard.audit"),
		},
		OTel: OTelConfig{
			Endpoint:       getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
			Headers:        getEnv("OTEL_EXPORTER_OTLP_HEADERS", ""),
			ServiceName:    getEnv("OTEL_SERVICE_NAME", "idcard"),
			ServiceVersion: getEnv("OTEL_SERVICE_VERSION", "dev"),
		},
	}
	if len(errs) > 0 {
		return Config{}, errors.Join(errs...)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks cross-field requirements.
func (c Config) Validate() error {
	switch c.Storage.Driver {
	case "memory", "sqlite":
	case "postgres":
		if c.Storage.PostgresDSN == "" {
			return fmt.Errorf("IDCARD_POSTGRES_DSN is required for the postgres driver")
		}
	case "redis":
		if c.Storage.RedisURL == "" {
			return fmt.Errorf("IDCARD_REDIS_URL is required for the redis driver")
		}
	default:
		return fmt.Errorf("unsupported IDCARD_STORAGE_DRIVER %q", c.Storage.Driver)
	}
	switch c.Blob.Driver {
	case "fs", "memory":
	case "s3":
		if c.Blob.S3Bucket == "" {
			return fmt.Errorf("IDCARD_BLOB_S3_BUCKET is required for the s3 blob driver")
		}
	default:
		return fmt.Errorf("unsupported IDCARD_BLOB_DRIVER %q", c.Blob.Driver)
	}
	if c.Registry.MaxIDAttempts < 1 {
		return fmt.Errorf("IDCARD_MAX_ID_ATTEMPTS must be at least 1")
	}
	if c.Card.AvatarTimeout <= 0 {
		return fmt.Errorf("IDCARD_AVATAR_TIMEOUT must be positive")
	}
	if c.Discord.Enabled() && c.Discord.AppID == 0 {
		return fmt.Errorf("DISCORD_APP_ID is required when DISCORD_TOKEN is set")
	}
	if c.HTTP.Enabled() && c.HTTP.AdminAPIKey == "" {
		return fmt.Errorf("IDCARD_ADMIN_API_KEY is required when IDCARD_HTTP_ADDR is set")
	}
	for _, sink := range c.Audit.Sinks {
		switch sink {
		case "log", "discord":
		case "redis":
			if c.Storage.RedisURL == "" {
				return fmt.Errorf("audit sink redis requires IDCARD_REDIS_URL")
			}
		case "kafka":
			if len(c.Audit.KafkaBrokers) == 0 {
				return fmt.Errorf("audit sink kafka requires IDCARD_KAFKA_BROKERS")
			}
		case "amqp":
			if c.Audit.AMQPURL == "" {
				return fmt.Errorf("audit sink amqp requires IDCARD_AMQP_URL")
			}
		default:
			return fmt.Errorf("unknown audit sink %q", sink)
		}
	}
	return nil
}

func (c Config) IsProduction() bool {
	return c.Env == "production"
}

func (c Config) IsDevelopment() bool {
	return c.Env == "development"
}

func (c OTelConfig) Enabled() bool {
	return c.Endpoint != ""
}

func (c DiscordConfig) Enabled() bool {
	return c.Token != ""
}

func (c HTTPConfig) Enabled() bool {
	return c.Addr != ""
}

// HasSink reports whether name is among the configured audit sinks.
func (c AuditConfig) HasSink(name string) bool {
	for _, s := range c.Sinks {
		if s == name {
			return true
		}
	}
	return false
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.ToLower(strings.TrimSpace(part)); p != "" {
			out = append(out, p)
		}
	}
	return out
}
