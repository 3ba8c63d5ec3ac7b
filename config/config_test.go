package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "127.0.0.1", cfg.Database.Host)
	assert.Equal(t, 9669, cfg.Database.Port)
	assert.Equal(t, 60, cfg.Transaction.DefaultTimeoutSecs)
	assert.Equal(t, "root", cfg.Auth.DefaultUsername)
	assert.True(t, cfg.Bootstrap.AutoCreateDefaultSpace)
}

func TestDerivedTimeouts(t *testing.T) {
	cfg := Default()
	assert.Equal(t, time.Minute, cfg.DefaultTimeout())

	// the session idle timeout defaults to ten times the transaction
	// timeout
	assert.Equal(t, 10*time.Minute, cfg.SessionIdleTimeout())

	cfg.Auth.SessionIdleTimeoutSecs = 30
	assert.Equal(t, 30*time.Second, cfg.SessionIdleTimeout())
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "graphdb.yaml")
	body := `
database:
  port: 7001
  storage_path: /tmp/test.db
transaction:
  default_timeout: 5
auth:
  enable_authorize: true
  default_username: admin
bootstrap:
  default_space_name: main
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 7001, cfg.Database.Port)
	assert.Equal(t, "/tmp/test.db", cfg.Database.StoragePath)
	assert.Equal(t, 5, cfg.Transaction.DefaultTimeoutSecs)
	assert.True(t, cfg.Auth.EnableAuthorize)
	assert.Equal(t, "admin", cfg.Auth.DefaultUsername)
	assert.Equal(t, "main", cfg.Bootstrap.DefaultSpaceName)

	// untouched keys keep their defaults
	assert.Equal(t, "127.0.0.1", cfg.Database.Host)
	assert.Equal(t, 50*time.Second, cfg.SessionIdleTimeout())
}

func TestLoadMissingFileFails(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLoadWithoutPathUsesDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 9669, cfg.Database.Port)
}
