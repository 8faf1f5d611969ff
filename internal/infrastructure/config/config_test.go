package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/easydapp/jelly-packages/internal/core/graph"
	"github.com/easydapp/jelly-packages/pkg/validation"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "jelly.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	require.NoError(t, cfg.Validate())

	cfg, err = Load(writeConfig(t, `
log:
  level: debug
check:
  afflux_policy: strict
  compile_cache_size: 16
store:
  driver: sqlite
  dsn: file::memory:
`))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format, "unset fields keep their default")
	assert.Equal(t, graph.AffluxStrict, cfg.Policy())
	assert.Equal(t, 16, cfg.Check.CompileCacheSize)
	assert.Equal(t, DefaultTenant, cfg.Check.Tenant)

	_, err = Load(writeConfig(t, "check:\n  unknown: 1\n"))
	assert.Error(t, err)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
		err    error
	}{
		{name: "bad level", mutate: func(c *Config) { c.Log.Level = "loud" }, field: "log.level"},
		{name: "bad tenant", mutate: func(c *Config) { c.Check.Tenant = "tenant" }, field: "check.tenant"},
		{name: "bad policy", mutate: func(c *Config) { c.Check.AffluxPolicy = "loose" }, field: "check.afflux_policy"},
		{name: "negative cache", mutate: func(c *Config) { c.Check.CompileCacheSize = -1 }, field: "check.compile_cache_size"},
		{name: "bad driver", mutate: func(c *Config) { c.Store.Driver = "mysql" }, field: "store.driver"},
		{name: "bad addr", mutate: func(c *Config) { c.Server.Addr = "localhost" }, field: "server.addr"},
		{name: "sqlite without dsn", mutate: func(c *Config) { c.Store.Driver = "sqlite" }, err: ErrMissingDSN},
		{name: "sandbox without command", mutate: func(c *Config) { c.Check.SandboxEnabled = true }, field: "check.sandbox_command"},
		{name: "sandbox with command", mutate: func(c *Config) {
			c.Check.SandboxEnabled = true
			c.Check.SandboxCommand = "node runner.js"
		}},
		{name: "bad compression", mutate: func(c *Config) { c.Store.Compression = "lz4" }, field: "store.compression"},
		{name: "short encrypt key", mutate: func(c *Config) { c.Store.EncryptKey = "abcd" }, field: "store.encrypt_key"},
		{name: "sealed gzip store", mutate: func(c *Config) {
			c.Store.Compression = "gzip"
			c.Store.EncryptKey = "000102030405060708090a0b0c0d0e0f"
		}},
		{name: "memory without dsn", mutate: func(c *Config) { c.Store.Driver = "memory" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			switch {
			case tt.err != nil:
				assert.ErrorIs(t, err, tt.err)
			case tt.field != "":
				var errs validation.ValidationErrors
				require.ErrorAs(t, err, &errs)
				assert.Equal(t, []string{tt.field}, errs.Fields())
			default:
				assert.NoError(t, err)
			}
		})
	}
}
