package ops

import (
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"carrytrader/pkg/exception"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yanun0323/errors"
)

const sampleYAML = `
debug: true
gateway:
  environment: live
  account: ACC1
  timeout: 3s
engine:
  capacity: 500
  submit_timeout: 2s
  timeout: 0s
strategy:
  name: carry-ggal
  symbols: [GGAL/DIC23]
  size: 5
  rate_taker: 0.001
  max_deriv_spread: 0.005
risk:
  max_order_size: 10
  order_rate_limit: 3
  order_rate_window: 1s
metrics:
  addr: ":9100"
`

func writeFile(t *testing.T, name, body string) string {
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	t.Setenv(EnvUsername, "user")
	t.Setenv(EnvPassword, "pass")

	cfg, err := Load(writeFile(t, "config.yaml", sampleYAML))
	require.NoError(t, err)

	assert.True(t, cfg.Debug)
	assert.Equal(t, "live", cfg.Gateway.Environment)
	assert.Equal(t, "ACC1", cfg.Gateway.Account)
	assert.Equal(t, "user", cfg.Gateway.Username)
	assert.Equal(t, "pass", cfg.Gateway.Password)
	assert.Equal(t, 3*time.Second, cfg.Gateway.Timeout)
	assert.Equal(t, "ROFX", cfg.Gateway.Market)
	assert.Equal(t, 500, cfg.Engine.Capacity)
	assert.Equal(t, 4096, cfg.Engine.QueueSize)
	assert.Equal(t, 2*time.Second, cfg.Engine.SubmitTimeout)
	assert.Zero(t, cfg.Engine.Timeout)
	assert.Equal(t, "carry-ggal", cfg.Strategy.Name)
	assert.Equal(t, []string{"GGAL/DIC23"}, cfg.Strategy.Symbols)
	assert.Equal(t, 5.0, cfg.Strategy.Size)
	assert.Equal(t, 0.001, cfg.Strategy.RateTaker)
	assert.Equal(t, 1e-4, cfg.Strategy.RatePayer)
	assert.Equal(t, 0.005, cfg.Strategy.MaxDerivSpread)
	assert.Equal(t, 10.0, cfg.Risk.MaxOrderSize)
	assert.Equal(t, 3, cfg.Risk.OrderRateLimit)
	assert.Equal(t, time.Second, cfg.Risk.OrderRateWindow)
	assert.Equal(t, ":9100", cfg.Metrics.Addr)
	assert.NoError(t, cfg.Validate())
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = Load(writeFile(t, "bad.yaml", "engine: [\n"))
	assert.Error(t, err)
}

func TestLoadDotEnv(t *testing.T) {
	t.Setenv(EnvAccount, "")
	require.NoError(t, os.Unsetenv(EnvAccount))
	path := writeFile(t, ".env", EnvAccount+"=FROMENV\n")

	LoadDotEnv(path, filepath.Join(t.TempDir(), "nope.env"))
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "FROMENV", cfg.Gateway.Account)
}

func TestValidate(t *testing.T) {
	paper := func(mod func(c *Config)) Config {
		c := Default()
		c.Gateway.Paper = true
		mod(&c)
		return c
	}

	testCases := []struct {
		desc string
		cfg  Config
		ok   bool
	}{
		{desc: "paper defaults", cfg: paper(func(*Config) {}), ok: true},
		{desc: "no symbols", cfg: paper(func(c *Config) { c.Strategy.Symbols = nil })},
		{desc: "blank symbol", cfg: paper(func(c *Config) { c.Strategy.Symbols = []string{" "} })},
		{desc: "zero size", cfg: paper(func(c *Config) { c.Strategy.Size = 0 })},
		{desc: "negative threshold", cfg: paper(func(c *Config) { c.Strategy.RateTaker = -1 })},
		{desc: "zero capacity", cfg: paper(func(c *Config) { c.Engine.Capacity = 0 })},
		{desc: "zero submit timeout", cfg: paper(func(c *Config) { c.Engine.SubmitTimeout = 0 })},
		{desc: "live without credentials", cfg: paper(func(c *Config) { c.Gateway.Paper = false })},
		{desc: "unknown environment", cfg: paper(func(c *Config) {
			c.Gateway.Paper = false
			c.Gateway.Environment = "prod"
		})},
		{desc: "live with credentials", cfg: paper(func(c *Config) {
			c.Gateway.Paper = false
			c.Gateway.Username, c.Gateway.Password, c.Gateway.Account = "u", "p", "a"
		}), ok: true},
	}

	for _, tc := range testCases {
		t.Run(tc.desc, func(t *testing.T) {
			err := tc.cfg.Validate()
			if tc.ok {
				assert.NoError(t, err)
				return
			}
			assert.True(t, errors.Is(err, exception.ErrInvalidArgument))
		})
	}
}

func TestFlagsApply(t *testing.T) {
	f, err := ParseFlags("carrytrader", []string{
		"-s", "GGAL/DIC23, YPFD/DIC23,", "-rt", "0.01", "-t", "2m", "-paper", "-spread", "0.005", "-config", "x.yaml",
	}, io.Discard)
	require.NoError(t, err)
	assert.Equal(t, "x.yaml", f.ConfigPath)

	cfg := Default()
	cfg.Strategy.RatePayer = 0.5
	f.Apply(&cfg)

	assert.Equal(t, []string{"GGAL/DIC23", "YPFD/DIC23"}, cfg.Strategy.Symbols)
	assert.Equal(t, 0.01, cfg.Strategy.RateTaker)
	assert.Equal(t, 0.5, cfg.Strategy.RatePayer)
	assert.Equal(t, 2*time.Minute, cfg.Engine.Timeout)
	assert.True(t, cfg.Gateway.Paper)
	assert.Equal(t, 0.005, cfg.Strategy.MaxDerivSpread)
	assert.Equal(t, 100_000, cfg.Engine.Capacity)

	_, err = ParseFlags("carrytrader", []string{"-nope"}, io.Discard)
	assert.Error(t, err)
}
