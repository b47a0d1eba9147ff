package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "monitcollectord.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "db_dsn: postgres://localhost/monit\n"))
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:2811", cfg.ListenAddr)
	assert.Equal(t, "postgres://localhost/monit", cfg.DBDSN)
	assert.Equal(t, "concurrent", cfg.Collector.Mode)
	assert.Equal(t, int64(1<<20), cfg.Collector.MaxBodyBytes)
	assert.Equal(t, "monit.events", cfg.NATS.Subject)
	assert.Equal(t, 1024, cfg.Registry.Size)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadFull(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
listen_addr: ":8080"
collector:
  basic_user: monit
  basic_pass: secret
  mode: sequential
  max_body_bytes: 4096
  rate_limit:
    rps: 5
    burst: 10
nats:
  url: nats://127.0.0.1:4222
  subject: ops.monit
registry:
  size: 16
api_keys:
  - name: ops
    key: k1
    role: admin
  - name: dash
    key: k2
log:
  level: debug
  format: text
`))
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.Equal(t, "monit", cfg.Collector.BasicUser)
	assert.Equal(t, "sequential", cfg.Collector.Mode)
	assert.Equal(t, int64(4096), cfg.Collector.MaxBodyBytes)
	assert.Equal(t, 5.0, cfg.Collector.RateLimit.RPS)
	assert.Equal(t, 10, cfg.Collector.RateLimit.Burst)
	assert.Equal(t, "ops.monit", cfg.NATS.Subject)
	assert.Equal(t, 16, cfg.Registry.Size)
	require.Len(t, cfg.APIKeys, 2)
	assert.Equal(t, "k1", cfg.APIKeys[0].Key)
	assert.Equal(t, RoleAdmin, cfg.APIKeys[0].Role)
	assert.Equal(t, RoleRead, cfg.APIKeys[1].Role)
	assert.Equal(t, "text", cfg.Log.Format)
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"bad mode", "collector:\n  mode: forking\n"},
		{"bad format", "log:\n  format: xml\n"},
		{"negative rate", "collector:\n  rate_limit:\n    rps: -1\n"},
		{"bad yaml", "listen_addr: [\n"},
		{"unknown role", "api_keys:\n  - name: ops\n    key: k1\n    role: owner\n"},
		{"empty key", "api_keys:\n  - name: ops\n    role: read\n"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tc.body))
			assert.Error(t, err)
		})
	}

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
