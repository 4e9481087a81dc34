package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var storefrontKeys = []string{
	"STOREFRONT_HTTP_ADDR",
	"STOREFRONT_HTTP_READ_TIMEOUT",
	"STOREFRONT_HTTP_WRITE_TIMEOUT",
	"STOREFRONT_HTTP_IDLE_TIMEOUT",
	"STOREFRONT_SHUTDOWN_TIMEOUT",
	"STOREFRONT_BACKEND_BASE_URL",
	"STOREFRONT_BACKEND_TIMEOUT",
	"STOREFRONT_PLACEHOLDER_IMAGE_URL",
	"STOREFRONT_QUANTITY_CAP",
	"STOREFRONT_CATALOG_CONCURRENCY",
	"STOREFRONT_ADMIN_BASE_PATH",
	"STOREFRONT_FIREBASE_PROJECT_ID",
	"STOREFRONT_LOG_LEVEL",
}

// clearEnv unsets every storefront key for the duration of the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range storefrontKeys {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(WithEnvFile(""))
	require.NoError(t, err)

	require.Equal(t, ":8080", cfg.Server.Address)
	require.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)
	require.Equal(t, 8*time.Second, cfg.Backend.Timeout)
	require.True(t, cfg.UsesMemoryBackend())
	require.Empty(t, cfg.Catalog.PlaceholderImageURL)
	require.Equal(t, 10, cfg.Catalog.QuantityCap)
	require.Equal(t, 4, cfg.Catalog.Concurrency)
	require.Equal(t, "/admin", cfg.Admin.BasePath)
	require.Equal(t, "info", cfg.LogLevel)
}

func TestLoadFromEnvironment(t *testing.T) {
	clearEnv(t)
	t.Setenv("STOREFRONT_HTTP_ADDR", ":9090")
	t.Setenv("STOREFRONT_BACKEND_BASE_URL", "http://localhost:5000/")
	t.Setenv("STOREFRONT_BACKEND_TIMEOUT", "3s")
	t.Setenv("STOREFRONT_ADMIN_BASE_PATH", "ops/")
	t.Setenv("STOREFRONT_QUANTITY_CAP", "25")
	t.Setenv("STOREFRONT_FIREBASE_PROJECT_ID", " clothhaven-dev ")

	cfg, err := Load(WithEnvFile(""))
	require.NoError(t, err)

	require.Equal(t, ":9090", cfg.Server.Address)
	require.Equal(t, "http://localhost:5000", cfg.Backend.BaseURL)
	require.False(t, cfg.UsesMemoryBackend())
	require.Equal(t, 3*time.Second, cfg.Backend.Timeout)
	require.Equal(t, "/ops", cfg.Admin.BasePath)
	require.Equal(t, 25, cfg.Catalog.QuantityCap)
	require.Equal(t, "clothhaven-dev", cfg.Firebase.ProjectID)
}

func TestLoadReadsDotEnvWithoutOverridingEnvironment(t *testing.T) {
	clearEnv(t)
	t.Setenv("STOREFRONT_HTTP_ADDR", ":7000")

	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	content := "STOREFRONT_HTTP_ADDR=:6000\nSTOREFRONT_CATALOG_CONCURRENCY=8\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(WithEnvFile(path))
	require.NoError(t, err)
	require.Equal(t, ":7000", cfg.Server.Address)
	require.Equal(t, 8, cfg.Catalog.Concurrency)
}

func TestLoadMissingDotEnvIsIgnored(t *testing.T) {
	clearEnv(t)

	_, err := Load(WithEnvFile(filepath.Join(t.TempDir(), "missing.env")))
	require.NoError(t, err)
}

func TestLoadValidation(t *testing.T) {
	clearEnv(t)
	t.Setenv("STOREFRONT_BACKEND_BASE_URL", "not a url")
	t.Setenv("STOREFRONT_QUANTITY_CAP", "-1")
	t.Setenv("STOREFRONT_CATALOG_CONCURRENCY", "0")

	_, err := Load(WithEnvFile(""))
	require.Error(t, err)

	var vErr *ValidationError
	require.True(t, errors.As(err, &vErr))
	require.ElementsMatch(t, []string{"Backend.BaseURL", "Catalog.QuantityCap", "Catalog.Concurrency"}, vErr.Fields())
	require.Contains(t, err.Error(), "config validation failed")
}

func TestLoadRejectsMalformedDuration(t *testing.T) {
	clearEnv(t)
	t.Setenv("STOREFRONT_BACKEND_TIMEOUT", "soon")

	_, err := Load(WithEnvFile(""))
	require.Error(t, err)
	var vErr *ValidationError
	require.False(t, errors.As(err, &vErr))
}
