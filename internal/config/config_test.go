package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("IDCARD_ENV", "test")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.Storage.Driver)
	assert.Equal(t, "fs", cfg.Blob.Driver)
	assert.Equal(t, 8, cfg.Registry.MaxIDAttempts)
	assert.Equal(t, 5*time.Second, cfg.Card.AvatarTimeout)
	assert.Equal(t, []string{"log"}, cfg.Audit.Sinks)
	assert.False(t, cfg.Discord.Enabled())
	assert.False(t, cfg.HTTP.Enabled())
	assert.False(t, cfg.OTel.Enabled())
	assert.False(t, cfg.IsDevelopment())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("IDCARD_ENV", "production")
	t.Setenv("IDCARD_STORAGE_DRIVER", "redis")
	t.Setenv("IDCARD_REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("IDCARD_MAX_ID_ATTEMPTS", "3")
	t.Setenv("IDCARD_AVATAR_TIMEOUT", "750ms")
	t.Setenv("IDCARD_AUDIT_SINKS", "log, Redis,kafka")
	t.Setenv("IDCARD_KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("DISCORD_TOKEN", "token")
	t.Setenv("DISCORD_APP_ID", "1160000000000000000")
	t.Setenv("ADMIN_ROLE_ID", "1160000000000000001")
	t.Setenv("IDCARD_BLOB_S3_PATH_STYLE", "true")

	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, 3, cfg.Registry.MaxIDAttempts)
	assert.Equal(t, 750*time.Millisecond, cfg.Card.AvatarTimeout)
	assert.Equal(t, []string{"log", "redis", "kafka"}, cfg.Audit.Sinks)
	assert.True(t, cfg.Audit.HasSink("kafka"))
	assert.False(t, cfg.Audit.HasSink("amqp"))
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Audit.KafkaBrokers)
	assert.Equal(t, snowflake.ID(1160000000000000000), cfg.Discord.AppID)
	assert.Equal(t, "1160000000000000001", cfg.Discord.AdminRoleID.String())
	assert.True(t, cfg.Blob.S3PathStyle)
}

func TestLoadReadsDotEnvInDevelopment(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("IDCARD_STORAGE_DRIVER=memory\nIDCARD_HTTP_ADDR=:9090\nIDCARD_ADMIN_API_KEY=secret\n"), 0o600))
	t.Chdir(dir)
	t.Setenv("IDCARD_ENV", "development")
	// Registered with t.Setenv so the values godotenv sets are restored afterwards.
	t.Setenv("IDCARD_STORAGE_DRIVER", "")
	t.Setenv("IDCARD_HTTP_ADDR", "")
	t.Setenv("IDCARD_ADMIN_API_KEY", "")
	for _, key := range []string{"IDCARD_STORAGE_DRIVER", "IDCARD_HTTP_ADDR", "IDCARD_ADMIN_API_KEY"} {
		require.NoError(t, os.Unsetenv(key))
	}

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "memory", cfg.Storage.Driver)
	assert.Equal(t, ":9090", cfg.HTTP.Addr)
	assert.True(t, cfg.HTTP.Enabled())
}

func TestLoadRejectsInvalid(t *testing.T) {
	cases := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"unknown driver", map[string]string{"IDCARD_STORAGE_DRIVER": "mongo"}, `unsupported IDCARD_STORAGE_DRIVER "mongo"`},
		{"postgres without dsn", map[string]string{"IDCARD_STORAGE_DRIVER": "postgres"}, "IDCARD_POSTGRES_DSN is required"},
		{"redis without url", map[string]string{"IDCARD_STORAGE_DRIVER": "redis"}, "IDCARD_REDIS_URL is required"},
		{"s3 without bucket", map[string]string{"IDCARD_BLOB_DRIVER": "s3"}, "IDCARD_BLOB_S3_BUCKET is required"},
		{"zero attempts", map[string]string{"IDCARD_MAX_ID_ATTEMPTS": "0"}, "IDCARD_MAX_ID_ATTEMPTS must be at least 1"},
		{"bad snowflake", map[string]string{"ADMIN_ROLE_ID": "not-a-number"}, "ADMIN_ROLE_ID: invalid snowflake"},
		{"discord without app", map[string]string{"DISCORD_TOKEN": "token"}, "DISCORD_APP_ID is required"},
		{"http without key", map[string]string{"IDCARD_HTTP_ADDR": ":8080"}, "IDCARD_ADMIN_API_KEY is required"},
		{"kafka without brokers", map[string]string{"IDCARD_AUDIT_SINKS": "kafka"}, "requires IDCARD_KAFKA_BROKERS"},
		{"unknown sink", map[string]string{"IDCARD_AUDIT_SINKS": "carrier-pigeon"}, `unknown audit sink "carrier-pigeon"`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv("IDCARD_ENV", "test")
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}
