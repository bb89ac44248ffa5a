// Package metrics exposes shell-bridge state as Prometheus collectors.
//
// Relay and registry figures are read at scrape time through CounterFunc and
// GaugeFunc collectors, so the hot push path does not touch Prometheus.
// Lifecycle transitions are counted through Metrics acting as a
// shell.Observer, and the host API reports each request it serves.
//
//	m := metrics.New(metrics.Sources{Relay: rl, Registry: reg, Hub: hub})
//	coord.AddObserver(m)
//	mux.Handle("/metrics", m.Handler())
package metrics
