package ops

import (
	"flag"
	"io"
	"strings"
	"time"

	"github.com/yanun0323/errors"
)

// Flags are the command line overrides. Only flags given on the command
// line replace config values.
type Flags struct {
	fs *flag.FlagSet

	ConfigPath string

	symbols      string
	debug        bool
	rateTaker    float64
	ratePayer    float64
	timeout      time.Duration
	paper        bool
	metricsAddr  string
	pyroscope    string
	size         float64
	spread       float64
	capacity     int
	refreshSpecs bool
}

// ParseFlags parses args (without the program name).
func ParseFlags(name string, args []string, output io.Writer) (*Flags, error) {
	d := Default()
	f := &Flags{fs: flag.NewFlagSet(name, flag.ContinueOnError)}
	if output != nil {
		f.fs.SetOutput(output)
	}

	f.fs.StringVar(&f.ConfigPath, "config", "", "Path to YAML config")
	f.fs.StringVar(&f.symbols, "s", strings.Join(d.Strategy.Symbols, ","), "Comma separated derivative symbols")
	f.fs.BoolVar(&f.debug, "d", false, "Debug logging")
	f.fs.Float64Var(&f.rateTaker, "rt", d.Strategy.RateTaker, "Taker rate threshold (per day)")
	f.fs.Float64Var(&f.ratePayer, "rp", d.Strategy.RatePayer, "Payer rate threshold (per day)")
	f.fs.DurationVar(&f.timeout, "t", d.Engine.Timeout, "Session timeout (0=until interrupted)")
	f.fs.BoolVar(&f.paper, "paper", false, "Use the paper gateway")
	f.fs.StringVar(&f.metricsAddr, "metrics-addr", "", "Prometheus listen address (empty=disable)")
	f.fs.StringVar(&f.pyroscope, "pyroscope", "", "Pyroscope server address (empty=disable)")
	f.fs.Float64Var(&f.size, "size", d.Strategy.Size, "Order size")
	f.fs.Float64Var(&f.spread, "spread", d.Strategy.MaxDerivSpread, "Max relative derivative spread (0=disable)")
	f.fs.IntVar(&f.capacity, "capacity", d.Engine.Capacity, "Tick history capacity")
	f.fs.BoolVar(&f.refreshSpecs, "refresh-specs", false, "Download instrument specs even when cached")

	if err := f.fs.Parse(args); err != nil {
		return nil, errors.Wrap(err, "parse flags")
	}
	return f, nil
}

// Apply writes the flags set on the command line into cfg.
func (f *Flags) Apply(cfg *Config) {
	f.fs.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "s":
			cfg.Strategy.Symbols = splitSymbols(f.symbols)
		case "d":
			cfg.Debug = f.debug
		case "rt":
			cfg.Strategy.RateTaker = f.rateTaker
		case "rp":
			cfg.Strategy.RatePayer = f.ratePayer
		case "t":
			cfg.Engine.Timeout = f.timeout
		case "paper":
			cfg.Gateway.Paper = f.paper
		case "metrics-addr":
			cfg.Metrics.Addr = f.metricsAddr
		case "pyroscope":
			cfg.Metrics.Pyroscope = f.pyroscope
		case "size":
			cfg.Strategy.Size = f.size
		case "spread":
			cfg.Strategy.MaxDerivSpread = f.spread
		case "capacity":
			cfg.Engine.Capacity = f.capacity
		case "refresh-specs":
			cfg.Engine.RefreshSpecs = f.refreshSpecs
		}
	})
}

func splitSymbols(s string) []string {
	var out []string
	for _, v := range strings.Split(s, ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
