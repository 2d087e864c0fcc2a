package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFrom_Defaults(t *testing.T) {
	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.ServerPort)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "/wp-admin", cfg.AdminPath)
	assert.Equal(t, 10, cfg.MaxConcurrency)
	assert.Equal(t, 15*time.Second, cfg.ProbeTimeout)
	assert.Equal(t, 20, cfg.MaxRedirects)
	assert.Equal(t, time.Hour, cfg.RunTTL)
	assert.Zero(t, cfg.ProbeRatePerSecond)
}

func TestLoadFrom_EnvironmentOverridesFile(t *testing.T) {
	envFile := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("SITE_URL=https://from-file.example\nMAX_CONCURRENCY=4\nPROBE_TIMEOUT=3s\n"), 0o644))
	t.Setenv("MAX_CONCURRENCY", "7")
	t.Setenv("PROBE_RATE_PER_SECOND", "2.5")
	t.Setenv("RUN_TTL", "30m")

	cfg, err := LoadFrom(envFile)
	require.NoError(t, err)

	assert.Equal(t, "https://from-file.example", cfg.SiteURL)
	assert.Equal(t, 7, cfg.MaxConcurrency)
	assert.Equal(t, 3*time.Second, cfg.ProbeTimeout)
	assert.Equal(t, 2.5, cfg.ProbeRatePerSecond)
	assert.Equal(t, 30*time.Minute, cfg.RunTTL)
}

func TestValidate(t *testing.T) {
	valid := Config{SiteURL: "https://ex.com", MaxConcurrency: 10, ProbeTimeout: time.Second}
	assert.NoError(t, valid.Validate())

	for name, mutate := range map[string]func(*Config){
		"relative site":    func(c *Config) { c.SiteURL = "/blog" },
		"empty site":       func(c *Config) { c.SiteURL = "" },
		"zero concurrency": func(c *Config) { c.MaxConcurrency = 0 },
		"zero timeout":     func(c *Config) { c.ProbeTimeout = 0 },
		"negative rate":    func(c *Config) { c.ProbeRatePerSecond = -1 },
	} {
		t.Run(name, func(t *testing.T) {
			cfg := valid
			mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestProxies(t *testing.T) {
	cfg := &Config{}
	assert.Nil(t, cfg.Proxies())

	cfg.ProbeProxies = "http://p1:8000,http://p2:8000"
	assert.Equal(t, []string{"http://p1:8000", "http://p2:8000"}, cfg.Proxies())
}
