package obs

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"
)

var (
	_eventsDesc = prometheus.NewDesc(
		prometheus.BuildFQName(_namespace, "", "events_total"),
		"Engine events by kind.",
		[]string{"kind"}, nil,
	)
	_latencyDesc = prometheus.NewDesc(
		prometheus.BuildFQName(_namespace, "", "latency_avg_seconds"),
		"Average latency by stage.",
		[]string{"stage"}, nil,
	)
)

// Describe implements prometheus.Collector for the atomic counters.
func (m *Metrics) Describe(ch chan<- *prometheus.Desc) {
	ch <- _eventsDesc
	ch <- _latencyDesc
}

// Collect implements prometheus.Collector for the atomic counters.
func (m *Metrics) Collect(ch chan<- prometheus.Metric) {
	for c := Counter(0); c < _counterEnd; c++ {
		ch <- prometheus.MustNewConstMetric(_eventsDesc, prometheus.CounterValue, float64(m.Count(c)), c.String())
	}
	s := m.Snapshot()
	for stage, l := range map[string]LatencySnapshot{
		"tick_delay": s.TickDelay,
		"invocation": s.Invocation,
		"send":       s.SendLatency,
		"execution":  s.ExecLatency,
	} {
		ch <- prometheus.MustNewConstMetric(_latencyDesc, prometheus.GaugeValue, l.Avg.Seconds(), stage)
	}
}

// Register adds every engine metric to reg.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{m, m.ticksBySymbol, m.signals, m.execHist} {
		if err := reg.Register(c); err != nil {
			return errors.Wrap(err, "register collector")
		}
	}
	return nil
}

// Serve exposes g on addr at /metrics until ctx is done.
func Serve(ctx context.Context, addr string, g prometheus.Gatherer) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(g, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	logs.Infof("metrics listening on %s", addr)

	select {
	case err := <-errCh:
		return errors.Wrapf(err, "serve metrics on %s", addr)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
