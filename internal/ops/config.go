// Package ops resolves the runtime configuration: YAML file, environment
// and command line overrides.
package ops

import (
	"os"
	"strings"
	"time"

	"carrytrader/internal/risk"
	"carrytrader/pkg/exception"

	"github.com/joho/godotenv"
	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"
	"gopkg.in/yaml.v3"
)

const (
	EnvUsername = "PRIMARY_USERNAME"
	EnvPassword = "PRIMARY_PASSWORD"
	EnvAccount  = "PRIMARY_ACCOUNT"
)

// Config mirrors the YAML config layout.
type Config struct {
	Debug     bool            `yaml:"debug"`
	Gateway   GatewayConfig   `yaml:"gateway"`
	Engine    EngineConfig    `yaml:"engine"`
	Strategy  StrategyConfig  `yaml:"strategy"`
	Reference ReferenceConfig `yaml:"reference"`
	Risk      risk.Config     `yaml:"risk"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// GatewayConfig selects and configures the broker session.
type GatewayConfig struct {
	Paper         bool          `yaml:"paper"`
	PaperInterval time.Duration `yaml:"paper_interval"`
	Environment   string        `yaml:"environment"`
	BaseURL       string        `yaml:"base_url"`
	WSURL         string        `yaml:"ws_url"`
	Market        string        `yaml:"market"`
	Account       string        `yaml:"account"`
	Username      string        `yaml:"username"`
	Password      string        `yaml:"password"`
	Timeout       time.Duration `yaml:"timeout"`
	MaxReconnects int           `yaml:"max_reconnects"`
}

// EngineConfig sizes the dispatcher.
type EngineConfig struct {
	Capacity      int           `yaml:"capacity"`
	QueueSize     int           `yaml:"queue_size"`
	SubmitTimeout time.Duration `yaml:"submit_timeout"`
	// Timeout is the session length. Zero runs until interrupted.
	Timeout      time.Duration `yaml:"timeout"`
	SpecsPath    string        `yaml:"specs_path"`
	RefreshSpecs bool          `yaml:"refresh_specs"`
}

// StrategyConfig configures the carry strategy.
type StrategyConfig struct {
	Name           string        `yaml:"name"`
	Symbols        []string      `yaml:"symbols"`
	Size           float64       `yaml:"size"`
	RateTaker      float64       `yaml:"rate_taker"`
	RatePayer      float64       `yaml:"rate_payer"`
	MaxDerivSpread float64       `yaml:"max_deriv_spread"`
	BoardEvery     time.Duration `yaml:"board_every"`
}

// ReferenceConfig configures the underlying quote refresher.
type ReferenceConfig struct {
	BaseURL string        `yaml:"base_url"`
	Suffix  string        `yaml:"suffix"`
	Every   time.Duration `yaml:"every"`
	Timeout time.Duration `yaml:"timeout"`
	Retries int           `yaml:"retries"`
}

// MetricsConfig configures the observability endpoints. Empty disables.
type MetricsConfig struct {
	Addr      string `yaml:"addr"`
	Pyroscope string `yaml:"pyroscope"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Gateway: GatewayConfig{
			PaperInterval: 500 * time.Millisecond,
			Environment:   "remarkets",
			Market:        "ROFX",
			Timeout:       10 * time.Second,
			MaxReconnects: 10,
		},
		Engine: EngineConfig{
			Capacity:      100_000,
			QueueSize:     4096,
			SubmitTimeout: 5 * time.Second,
			Timeout:       60 * time.Second,
			SpecsPath:     "instruments.json",
		},
		Strategy: StrategyConfig{
			Name:       "carry",
			Symbols:    []string{"YPFD/DIC23", "PAMP/DIC23", "GGAL/DIC23"},
			Size:       1,
			RateTaker:  1e-4,
			RatePayer:  1e-4,
			BoardEvery: 30 * time.Second,
		},
		Reference: ReferenceConfig{
			BaseURL: "https://query1.finance.yahoo.com",
			Suffix:  ".BA",
			Every:   60 * time.Second,
			Timeout: 10 * time.Second,
			Retries: 2,
		},
	}
}

// Load reads the YAML file at path over the defaults and applies the
// environment. An empty path skips the file.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, errors.Wrapf(err, "read config %s", path)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, errors.Wrapf(err, "parse config %s", path)
		}
	}
	ApplyEnv(&cfg)
	return cfg, nil
}

// LoadDotEnv loads .env style files into the process environment. Missing
// files are ignored.
func LoadDotEnv(files ...string) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			logs.Warnf("load env file %s, err: %+v", f, err)
		}
	}
}

// ApplyEnv overrides the broker credentials from the environment.
func ApplyEnv(cfg *Config) {
	if cfg.Gateway.Username != "" || cfg.Gateway.Password != "" {
		logs.Warnf("broker credentials found in config file, prefer %s / %s", EnvUsername, EnvPassword)
	}
	if v := os.Getenv(EnvUsername); v != "" {
		cfg.Gateway.Username = v
	}
	if v := os.Getenv(EnvPassword); v != "" {
		cfg.Gateway.Password = v
	}
	if v := os.Getenv(EnvAccount); v != "" {
		cfg.Gateway.Account = v
	}
}

// Validate reports the first invalid field.
func (c Config) Validate() error {
	invalid := func(format string, args ...any) error {
		return errors.Wrapf(exception.ErrInvalidArgument, format, args...)
	}

	if len(c.Strategy.Symbols) == 0 {
		return invalid("strategy.symbols is empty")
	}
	for _, s := range c.Strategy.Symbols {
		if strings.TrimSpace(s) == "" {
			return invalid("strategy.symbols has an empty symbol")
		}
	}
	if c.Strategy.Name == "" {
		return invalid("strategy.name is empty")
	}
	if c.Strategy.Size <= 0 {
		return invalid("strategy.size must be > 0, got %v", c.Strategy.Size)
	}
	if c.Strategy.RateTaker < 0 || c.Strategy.RatePayer < 0 {
		return invalid("strategy thresholds must be >= 0")
	}
	if c.Strategy.MaxDerivSpread < 0 {
		return invalid("strategy.max_deriv_spread must be >= 0")
	}
	if c.Engine.Capacity <= 0 {
		return invalid("engine.capacity must be > 0, got %d", c.Engine.Capacity)
	}
	if c.Engine.QueueSize <= 0 {
		return invalid("engine.queue_size must be > 0, got %d", c.Engine.QueueSize)
	}
	if c.Engine.SubmitTimeout <= 0 {
		return invalid("engine.submit_timeout must be > 0")
	}
	if c.Engine.Timeout < 0 {
		return invalid("engine.timeout must be >= 0")
	}
	if c.Reference.Every <= 0 || c.Reference.Timeout <= 0 {
		return invalid("reference.every and reference.timeout must be > 0")
	}
	if c.Gateway.Paper {
		return nil
	}
	switch c.Gateway.Environment {
	case "remarkets", "live":
	default:
		return invalid("gateway.environment %q is not remarkets or live", c.Gateway.Environment)
	}
	if c.Gateway.Username == "" || c.Gateway.Password == "" {
		return invalid("broker credentials missing, set %s and %s", EnvUsername, EnvPassword)
	}
	if c.Gateway.Account == "" {
		return invalid("gateway.account is empty, set %s", EnvAccount)
	}
	return nil
}
