// Package instrument holds the session catalog of derivative specs.
package instrument

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"carrytrader/internal/schema"
	"carrytrader/pkg/exception"

	"github.com/bytedance/sonic"
	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"
)

// Fetcher downloads the instrument specs from the broker.
type Fetcher interface {
	Instruments(ctx context.Context) ([]schema.InstrumentSpec, error)
}

// Catalog is a read-only symbol -> spec map for the session.
type Catalog struct {
	mu    sync.RWMutex
	specs map[string]schema.InstrumentSpec
}

// NewCatalog normalizes specs into a catalog. Invalid specs are skipped.
func NewCatalog(specs []schema.InstrumentSpec) *Catalog {
	c := &Catalog{specs: make(map[string]schema.InstrumentSpec, len(specs))}
	for _, s := range specs {
		s = Normalize(s)
		if err := s.Validate(); err != nil {
			logs.Debugf("skip instrument %q, err: %+v", s.Symbol, err)
			continue
		}
		c.specs[s.Symbol] = s
	}
	return c
}

// Load reads the catalog from the cache file at path. When the file is
// missing, unreadable or refresh is set, it downloads the specs and
// rewrites the cache. An empty path disables the cache.
func Load(ctx context.Context, f Fetcher, path string, refresh bool) (*Catalog, error) {
	if path != "" && !refresh {
		specs, err := ReadFile(path)
		if err == nil && len(specs) != 0 {
			logs.Infof("instrument specs loaded from %s, count: %d", path, len(specs))
			return NewCatalog(specs), nil
		}
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			logs.Warnf("read instrument cache %s, err: %+v", path, err)
		}
	}

	if f == nil {
		return nil, errors.Wrap(exception.ErrNilInstance, "instrument fetcher")
	}
	specs, err := f.Instruments(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "download instrument specs")
	}
	c := NewCatalog(specs)
	logs.Infof("instrument specs downloaded, count: %d", c.Len())

	if path != "" {
		if err := c.Save(path); err != nil {
			logs.Warnf("write instrument cache %s, err: %+v", path, err)
		}
	}
	return c, nil
}

// Lookup returns the spec of symbol.
func (c *Catalog) Lookup(symbol string) (schema.InstrumentSpec, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.specs[symbol]
	return s, ok
}

// Len returns the number of specs.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.specs)
}

// Symbols returns every symbol, sorted.
func (c *Catalog) Symbols() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.specs))
	for s := range c.specs {
		out = append(out, s)
	}
	slices.Sort(out)
	return out
}

// Save writes the catalog to path.
func (c *Catalog) Save(path string) error {
	c.mu.RLock()
	specs := make([]schema.InstrumentSpec, 0, len(c.specs))
	for _, s := range c.specs {
		specs = append(specs, s)
	}
	c.mu.RUnlock()
	slices.SortFunc(specs, func(a, b schema.InstrumentSpec) int { return strings.Compare(a.Symbol, b.Symbol) })
	return WriteFile(path, specs)
}

// ReadFile reads a spec cache file.
func ReadFile(path string) ([]schema.InstrumentSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var specs []schema.InstrumentSpec
	if err := sonic.Unmarshal(data, &specs); err != nil {
		return nil, errors.Wrapf(err, "decode %s", path)
	}
	return specs, nil
}

// WriteFile writes a spec cache file, creating its directory.
func WriteFile(path string, specs []schema.InstrumentSpec) error {
	data, err := sonic.ConfigStd.MarshalIndent(specs, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encode specs")
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrapf(err, "create %s", dir)
		}
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return errors.Wrapf(err, "write %s", tmp)
	}
	return os.Rename(tmp, path)
}

// Normalize trims the symbol fields and derives the underlying from the
// derivative symbol ("GGAL/DIC23" -> "GGAL") when the broker left it empty.
func Normalize(s schema.InstrumentSpec) schema.InstrumentSpec {
	s.Symbol = strings.TrimSpace(s.Symbol)
	s.Market = strings.TrimSpace(s.Market)
	s.UnderlyingSymbol = strings.TrimSpace(s.UnderlyingSymbol)
	if s.UnderlyingSymbol == "" {
		s.UnderlyingSymbol = UnderlyingOf(s.Symbol)
	}
	return s
}

// UnderlyingOf returns the ticker part of a derivative symbol.
func UnderlyingOf(symbol string) string {
	head, _, found := strings.Cut(symbol, "/")
	if !found {
		return ""
	}
	// "MERV - XMEV - GGAL - 48hs" style names carry the ticker in a later field.
	if strings.Contains(head, " - ") {
		return ""
	}
	return strings.TrimSpace(head)
}
