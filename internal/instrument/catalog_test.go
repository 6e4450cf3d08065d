package instrument

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"carrytrader/internal/schema"
	"carrytrader/pkg/exception"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFetcher struct {
	specs []schema.InstrumentSpec
	err   error
	calls int
}

func (f *fakeFetcher) Instruments(context.Context) ([]schema.InstrumentSpec, error) {
	f.calls++
	return f.specs, f.err
}

func sampleSpecs() []schema.InstrumentSpec {
	maturity := time.Date(2023, 12, 29, 0, 0, 0, 0, time.UTC)
	return []schema.InstrumentSpec{
		{Symbol: " GGAL/DIC23 ", Market: "ROFX", MaturityDate: maturity, TickSize: 0.5, VolumeMin: 1, VolumeMax: 1000},
		{Symbol: "YPFD/DIC23", UnderlyingSymbol: "YPF", MaturityDate: maturity},
		{Symbol: "", TickSize: 1},
	}
}

func TestNewCatalog(t *testing.T) {
	c := NewCatalog(sampleSpecs())
	assert.Equal(t, 2, c.Len())
	assert.Equal(t, []string{"GGAL/DIC23", "YPFD/DIC23"}, c.Symbols())

	g, ok := c.Lookup("GGAL/DIC23")
	require.True(t, ok)
	assert.Equal(t, "GGAL", g.UnderlyingSymbol)

	y, ok := c.Lookup("YPFD/DIC23")
	require.True(t, ok)
	assert.Equal(t, "YPF", y.UnderlyingSymbol, "broker underlying wins")
}

func TestUnderlyingOf(t *testing.T) {
	testCases := []struct {
		desc     string
		symbol   string
		expected string
	}{
		{"future", "GGAL/DIC23", "GGAL"},
		{"dollar future", "DLR/ENE24", "DLR"},
		{"spot name", "MERV - XMEV - GGAL - 48hs", ""},
		{"spot with slash", "MERV - XMEV - A/B - 48hs", ""},
		{"no slash", "GGAL", ""},
	}

	for _, tc := range testCases {
		t.Run(tc.desc, func(t *testing.T) {
			assert.Equal(t, tc.expected, UnderlyingOf(tc.symbol))
		})
	}
}

func TestLoadUsesCache(t *testing.T) {
	path := filepath.Join(t.TempDir(), "docs", "specs.json")
	f := &fakeFetcher{specs: sampleSpecs()}

	c, err := Load(t.Context(), f, path, false)
	require.NoError(t, err)
	assert.Equal(t, 1, f.calls)
	assert.Equal(t, 2, c.Len())
	_, err = os.Stat(path)
	require.NoError(t, err)

	c, err = Load(t.Context(), f, path, false)
	require.NoError(t, err)
	assert.Equal(t, 1, f.calls, "second load reads the cache")
	g, ok := c.Lookup("GGAL/DIC23")
	require.True(t, ok)
	assert.Equal(t, 0.5, g.TickSize)
	assert.True(t, g.MaturityDate.Equal(time.Date(2023, 12, 29, 0, 0, 0, 0, time.UTC)))

	_, err = Load(t.Context(), f, path, true)
	require.NoError(t, err)
	assert.Equal(t, 2, f.calls, "refresh forces a download")
}

func TestLoadFetchFailure(t *testing.T) {
	f := &fakeFetcher{err: exception.ErrGatewayAuth}
	_, err := Load(t.Context(), f, filepath.Join(t.TempDir(), "specs.json"), false)
	assert.Error(t, err)

	_, err = Load(t.Context(), nil, "", false)
	assert.Error(t, err)
}

func TestLoadCorruptCache(t *testing.T) {
	path := filepath.Join(t.TempDir(), "specs.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))
	f := &fakeFetcher{specs: sampleSpecs()}

	c, err := Load(t.Context(), f, path, false)
	require.NoError(t, err)
	assert.Equal(t, 1, f.calls)
	assert.Equal(t, 2, c.Len())
}
