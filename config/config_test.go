package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:8080", cfg.Server.BindAddress)
	assert.Equal(t, []string{"*"}, cfg.Server.CORSOrigins)
	assert.Equal(t, "disk", cfg.Storage.Type)
	assert.Equal(t, 720*time.Hour, cfg.Auth.SessionMaxAge)
	assert.False(t, cfg.OIDCEnabled())
}

func TestLoadEnvFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "test.env")
	content := "HTTP_TLS_DOMAINS=a.example.com,b.example.com\nDB_MYSQL_DSN=root:@tcp(127.0.0.1:3306)/memoria\nAUTH_ISSUER=https://id.example.com\nAUTH_CLIENT_ID=memoria\n"
	require.NoError(t, os.WriteFile(file, []byte(content), 0o600))
	t.Cleanup(func() {
		for _, k := range []string{"HTTP_TLS_DOMAINS", "DB_MYSQL_DSN", "AUTH_ISSUER", "AUTH_CLIENT_ID"} {
			os.Unsetenv(k)
		}
	})
	t.Setenv("STORAGE_TYPE", "s3")

	cfg, err := Load(file)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.example.com", "b.example.com"}, cfg.Server.TLSDomains)
	assert.Equal(t, "root:@tcp(127.0.0.1:3306)/memoria", cfg.Database.MySQLDSN)
	assert.Equal(t, "s3", cfg.Storage.Type)
	assert.True(t, cfg.OIDCEnabled())
}
