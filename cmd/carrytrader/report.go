package main

import (
	"carrytrader/internal/engine"
	"carrytrader/internal/ledger"
	"carrytrader/internal/obs"
	"carrytrader/internal/strategy"

	"github.com/yanun0323/logs"
)

type strategyReport struct {
	Info    strategy.Info
	Summary ledger.Summary
}

func reports(removed []strategy.Strategy) []strategyReport {
	out := make([]strategyReport, 0, len(removed))
	for _, s := range removed {
		out = append(out, strategyReport{Info: s.Info(), Summary: s.Ledger().Summary()})
	}
	return out
}

// report logs the session summary: ledgers, order states and metrics.
func report(removed []strategyReport, d *engine.Dispatcher, m *obs.Metrics) {
	for _, r := range removed {
		logs.Infof("strategy %s: state %s, signals %d (accepted %d, failed %d), exec latency avg %.3fms max %.3fms, last executed %s",
			r.Info.Name, r.Info.State, r.Summary.Total, r.Summary.Accepted, r.Summary.Failed,
			r.Summary.AvgExecLatencyMs, r.Summary.MaxExecLatencyMs, r.Info.LastExecutedAt.Format("15:04:05.000"))
	}

	for state, n := range d.Orders().Counts() {
		logs.Infof("orders %s: %d", state, n)
	}

	snap := m.Snapshot()
	for c, n := range snap.Counters {
		if n != 0 {
			logs.Infof("%s: %d", c, n)
		}
	}
	logs.Infof("tick delay avg %s, invocation avg %s, exec avg %s",
		snap.TickDelay.Avg, snap.Invocation.Avg, snap.ExecLatency.Avg)
	logs.Infof("ticks stored: %d", d.Store().Len())
}
