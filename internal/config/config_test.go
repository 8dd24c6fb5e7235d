package config

import (
	"encoding/base64"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// inEmptyDir keeps a developer's .env out of the test.
func inEmptyDir(t *testing.T) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}

func TestDefaults(t *testing.T) {
	inEmptyDir(t)
	for _, k := range []string{"PORT", "DB_DRIVER", "DATABASE_URL", "DB_PATH", "ALLOW_ANONYMOUS_ORDERS",
		"PUBLIC_ORDER_LIST", "ADMIN_USERNAME", "DEFAULT_LANGUAGE", "LOG_LEVEL", "CSRF_KEY", "SESSION_KEY"} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "8000", cfg.Port)
	assert.Equal(t, "sqlite", cfg.DBDriver)
	assert.Equal(t, "./felix_hub.db", cfg.DBSource)
	assert.True(t, cfg.AllowAnonymousOrders)
	assert.True(t, cfg.PublicOrderList)
	assert.Equal(t, "admin", cfg.AdminUsername)
	assert.Equal(t, "ru", cfg.DefaultLanguage)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
	assert.Len(t, cfg.CSRFKey, 32)
	assert.Len(t, cfg.SessionKey, 32)
	assert.NotEmpty(t, cfg.AssetVersion)
}

func TestPostgresURLSelectsDriver(t *testing.T) {
	inEmptyDir(t)
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("DATABASE_URL", "postgres://felix@localhost/felix?sslmode=disable")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "postgres", cfg.DBDriver)
	assert.Equal(t, "postgres://felix@localhost/felix?sslmode=disable", cfg.DBSource)
}

func TestOverrides(t *testing.T) {
	inEmptyDir(t)
	key := base64.StdEncoding.EncodeToString([]byte("0123456789abcdef0123456789abcdef"))
	t.Setenv("CSRF_KEY", key)
	t.Setenv("PORT", "not-a-port")
	t.Setenv("ALLOW_ANONYMOUS_ORDERS", "false")
	t.Setenv("COOKIE_SECURE", "yes please")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, []byte("0123456789abcdef0123456789abcdef"), cfg.CSRFKey)
	assert.Equal(t, "8000", cfg.Port)
	assert.False(t, cfg.AllowAnonymousOrders)
	assert.False(t, cfg.CookieSecure, "unparseable booleans keep the default")
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
}

func TestDotEnvFile(t *testing.T) {
	inEmptyDir(t)
	os.Unsetenv("ADMIN_USERNAME")
	require.NoError(t, os.WriteFile(".env", []byte("ADMIN_USERNAME=boss\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("ADMIN_USERNAME") })

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "boss", cfg.AdminUsername)
}
