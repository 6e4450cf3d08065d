package obs

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsSnapshot(t *testing.T) {
	m := NewMetrics()
	m.ObserveTick("GGAL/DIC23", 3*time.Millisecond)
	m.ObserveTick("GGAL/DIC23", 5*time.Millisecond)
	m.Inc(CounterTickDropped)
	m.ObserveSignal("carry", true, time.Millisecond, 4*time.Millisecond)
	m.ObserveSignal("carry", false, time.Millisecond, 2*time.Millisecond)
	m.ObserveDenied("carry")

	s := m.Snapshot()
	assert.Equal(t, uint64(2), s.Counters[CounterTick])
	assert.Equal(t, uint64(1), s.Counters[CounterTickDropped])
	assert.Equal(t, uint64(1), s.Counters[CounterSignalSent])
	assert.Equal(t, uint64(1), s.Counters[CounterSignalFailed])
	assert.Equal(t, uint64(1), s.Counters[CounterSignalDenied])
	assert.NotContains(t, s.Counters, CounterStrategyFault)

	assert.Equal(t, uint64(2), s.TickDelay.Count)
	assert.Equal(t, 3*time.Millisecond, s.TickDelay.Min)
	assert.Equal(t, 5*time.Millisecond, s.TickDelay.Max)
	assert.Equal(t, 4*time.Millisecond, s.TickDelay.Avg)
	assert.Equal(t, 3*time.Millisecond, s.ExecLatency.Avg)
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	m.Inc(CounterTick)
	m.ObserveTick("X", time.Millisecond)
	m.ObserveSignal("s", true, 0, 0)
	assert.Zero(t, m.Count(CounterTick))
	assert.Empty(t, m.Snapshot().Counters)
}

func TestRegisterGather(t *testing.T) {
	m := NewMetrics()
	reg := prometheus.NewRegistry()
	require.NoError(t, m.Register(reg))
	m.ObserveTick("GGAL/DIC23", time.Millisecond)
	m.ObserveSignal("carry", true, time.Millisecond, time.Millisecond)

	mfs, err := reg.Gather()
	require.NoError(t, err)
	names := make(map[string]bool)
	for _, mf := range mfs {
		names[mf.GetName()] = true
	}
	assert.True(t, names["carrytrader_events_total"])
	assert.True(t, names["carrytrader_symbol_ticks_total"])
	assert.True(t, names["carrytrader_strategy_signals_total"])
	assert.True(t, names["carrytrader_signal_execution_seconds"])

	assert.Error(t, m.Register(reg))
}
