// Package obs holds the engine counters and their Prometheus exposition.
package obs

import (
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const _namespace = "carrytrader"

// Counter names an engine event counter.
type Counter uint8

const (
	CounterTick Counter = iota
	CounterTickDropped
	CounterStrategyFault
	CounterSignalIgnored
	CounterSignalDenied
	CounterSignalSent
	CounterSignalFailed
	CounterOrderReport
	CounterFeedError
	CounterQueueDrop
	CounterQueueClosed
	_counterEnd
)

func (c Counter) String() string {
	switch c {
	case CounterTick:
		return "ticks"
	case CounterTickDropped:
		return "ticks_dropped"
	case CounterStrategyFault:
		return "strategy_faults"
	case CounterSignalIgnored:
		return "signals_ignored"
	case CounterSignalDenied:
		return "signals_denied"
	case CounterSignalSent:
		return "signals_sent"
	case CounterSignalFailed:
		return "signals_failed"
	case CounterOrderReport:
		return "order_reports"
	case CounterFeedError:
		return "feed_errors"
	case CounterQueueDrop:
		return "queue_drops"
	case CounterQueueClosed:
		return "queue_closed"
	default:
		return "unknown"
	}
}

// Metrics collects lightweight counters and latency stats. A nil *Metrics
// is a no-op.
type Metrics struct {
	counters [_counterEnd]uint64

	tickDelay   LatencyStats
	invocation  LatencyStats
	sendLatency LatencyStats
	execLatency LatencyStats

	ticksBySymbol *prometheus.CounterVec
	signals       *prometheus.CounterVec
	execHist      *prometheus.HistogramVec
}

// LatencyStats aggregates duration samples in nanoseconds.
type LatencyStats struct {
	count uint64
	sum   uint64
	min   uint64
	max   uint64
}

// LatencySnapshot is a point-in-time view of latency stats.
type LatencySnapshot struct {
	Count uint64
	Min   time.Duration
	Max   time.Duration
	Avg   time.Duration
}

// Snapshot captures the current metrics values.
type Snapshot struct {
	Counters    map[Counter]uint64
	TickDelay   LatencySnapshot
	Invocation  LatencySnapshot
	SendLatency LatencySnapshot
	ExecLatency LatencySnapshot
}

// NewMetrics allocates a metrics container.
func NewMetrics() *Metrics {
	return &Metrics{
		ticksBySymbol: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: _namespace,
			Name:      "symbol_ticks_total",
			Help:      "Ticks stored per derivative symbol.",
		}, []string{"symbol"}),
		signals: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: _namespace,
			Name:      "strategy_signals_total",
			Help:      "Signals handled per strategy and outcome.",
		}, []string{"strategy", "outcome"}),
		execHist: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: _namespace,
			Name:      "signal_execution_seconds",
			Help:      "Time from strategy invocation to gateway response.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 14),
		}, []string{"strategy"}),
	}
}

// Inc increments counter c.
func (m *Metrics) Inc(c Counter) {
	if m == nil || c >= _counterEnd {
		return
	}
	atomic.AddUint64(&m.counters[c], 1)
}

// Count reads counter c.
func (m *Metrics) Count(c Counter) uint64 {
	if m == nil || c >= _counterEnd {
		return 0
	}
	return atomic.LoadUint64(&m.counters[c])
}

// ObserveTick records a stored tick and its feed delay.
func (m *Metrics) ObserveTick(symbol string, delay time.Duration) {
	if m == nil {
		return
	}
	m.Inc(CounterTick)
	m.ticksBySymbol.WithLabelValues(symbol).Inc()
	m.tickDelay.Observe(delay)
}

// ObserveInvocation records the duration of one strategy call.
func (m *Metrics) ObserveInvocation(d time.Duration) {
	if m == nil {
		return
	}
	m.invocation.Observe(d)
}

// ObserveSignal records a signal sent to the gateway with its latencies
// relative to the strategy invocation.
func (m *Metrics) ObserveSignal(strategy string, ok bool, send, exec time.Duration) {
	if m == nil {
		return
	}
	outcome := "ok"
	if ok {
		m.Inc(CounterSignalSent)
	} else {
		outcome = "failed"
		m.Inc(CounterSignalFailed)
	}
	m.signals.WithLabelValues(strategy, outcome).Inc()
	m.sendLatency.Observe(send)
	m.execLatency.Observe(exec)
	m.execHist.WithLabelValues(strategy).Observe(exec.Seconds())
}

// ObserveDenied records a signal blocked before the gateway.
func (m *Metrics) ObserveDenied(strategy string) {
	if m == nil {
		return
	}
	m.Inc(CounterSignalDenied)
	m.signals.WithLabelValues(strategy, "denied").Inc()
}

// Snapshot returns a copy of the current metrics values.
func (m *Metrics) Snapshot() Snapshot {
	if m == nil {
		return Snapshot{}
	}
	counters := make(map[Counter]uint64)
	for i := range m.counters {
		if v := atomic.LoadUint64(&m.counters[i]); v > 0 {
			counters[Counter(i)] = v
		}
	}
	return Snapshot{
		Counters:    counters,
		TickDelay:   m.tickDelay.Snapshot(),
		Invocation:  m.invocation.Snapshot(),
		SendLatency: m.sendLatency.Snapshot(),
		ExecLatency: m.execLatency.Snapshot(),
	}
}

// Observe records a duration sample.
func (l *LatencyStats) Observe(d time.Duration) {
	if d < 0 {
		return
	}
	nanos := uint64(d)
	atomic.AddUint64(&l.count, 1)
	atomic.AddUint64(&l.sum, nanos)

	for {
		cur := atomic.LoadUint64(&l.min)
		if cur != 0 && nanos >= cur {
			break
		}
		if atomic.CompareAndSwapUint64(&l.min, cur, nanos) {
			break
		}
	}

	for {
		cur := atomic.LoadUint64(&l.max)
		if nanos <= cur {
			break
		}
		if atomic.CompareAndSwapUint64(&l.max, cur, nanos) {
			break
		}
	}
}

// Snapshot returns the aggregated latency stats.
func (l *LatencyStats) Snapshot() LatencySnapshot {
	count := atomic.LoadUint64(&l.count)
	if count == 0 {
		return LatencySnapshot{}
	}
	return LatencySnapshot{
		Count: count,
		Min:   time.Duration(atomic.LoadUint64(&l.min)),
		Max:   time.Duration(atomic.LoadUint64(&l.max)),
		Avg:   time.Duration(atomic.LoadUint64(&l.sum) / count),
	}
}
