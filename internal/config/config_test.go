package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "sqlite", cfg.Store)
	assert.Equal(t, "agromart.db", cfg.DBDSN)
	assert.Equal(t, "order-events", cfg.Notify.KafkaTopic)
	assert.Equal(t, 5, cfg.Notify.MaxRetries)
	assert.Equal(t, time.Second, cfg.Notify.BaseBackoff)
	assert.Empty(t, cfg.Notify.KafkaBrokers)
	assert.True(t, cfg.CSRF)
}

func TestLoadFromEnv(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("AGROMART_STORE", "Mongo")
	t.Setenv("AGROMART_KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("AGROMART_ADMIN_EMAIL", "root@agromart.test")
	t.Setenv("AGROMART_ADMIN_PASSWORD", "Secr3t!pass")
	t.Setenv("AGROMART_NOTIFY_BASE_BACKOFF", "250ms")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "mongo", cfg.Store)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Notify.KafkaBrokers)
	assert.Equal(t, "root@agromart.test", cfg.Auth.AdminEmail)
	assert.Equal(t, 250*time.Millisecond, cfg.Notify.BaseBackoff)
}

func TestValidate(t *testing.T) {
	base := Config{Store: "sqlite"}
	require.NoError(t, base.Validate())

	bad := base
	bad.Store = "postgres"
	assert.Error(t, bad.Validate())

	prod := base
	prod.Env = "production"
	prod.Auth.JWTSecret = "short"
	assert.Error(t, prod.Validate())

	half := base
	half.Auth.AdminEmail = "root@agromart.test"
	assert.Error(t, half.Validate())
}
