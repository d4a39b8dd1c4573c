package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadFrom(t *testing.T, yaml string) *Config {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if yaml != "" {
		require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))
	}
	t.Setenv("FIXTRACK_CONFIG", path)
	// keep a stray .env in the working dir from leaking in
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	return Load()
}

func TestLoadDefaults(t *testing.T) {
	cfg := loadFrom(t, "")

	assert.Equal(t, 5000, cfg.Server.Port)
	assert.Equal(t, "fixtrack", cfg.Database.Name)
	assert.Equal(t, 24*time.Hour, cfg.TokenTTL())
	assert.Equal(t, time.Minute, cfg.SummaryTTL())
	assert.Equal(t, "http://localhost:5000/api", cfg.Client.APIURL)
	assert.Equal(t, 500*time.Millisecond, cfg.Client.Debounce())
	assert.Equal(t, 30*time.Second, cfg.Client.Timeout())
	assert.Equal(t, "Asia/Kolkata", cfg.Shop.Zone)
	assert.False(t, cfg.R2.Enabled())
}

func TestLoadFileAndEnvOverrides(t *testing.T) {
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("DB_PORT", "6543")
	t.Setenv("JWT_SECRET", "from-env")
	t.Setenv("FIXTRACK_API_URL", "https://shop.example.com/api")
	t.Setenv("R2_ACCOUNT_ID", "acc123")

	cfg := loadFrom(t, `
server:
  port: 9000
database:
  name: repairs
jwt:
  secret: from-file
  expiration_hours: 8
r2:
  bucket: photos
  access_key: ak
  secret_key: sk
shop:
  name: Galaxy Mobiles
`)

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, "repairs", cfg.Database.Name)
	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, 6543, cfg.Database.Port)
	assert.Equal(t, "from-env", cfg.JWT.Secret)
	assert.Equal(t, 8*time.Hour, cfg.TokenTTL())
	assert.Equal(t, "https://shop.example.com/api", cfg.Client.APIURL)
	assert.Equal(t, "Galaxy Mobiles", cfg.Shop.Name)

	assert.True(t, cfg.R2.Enabled())
	assert.Equal(t, "https://acc123.r2.cloudflarestorage.com", cfg.R2.ResolvedEndpoint())
	assert.Contains(t, cfg.DSN(), "@db.internal:6543/repairs?sslmode=disable")
}
