// Package telemetry holds the Prometheus collectors for the simulation
// service.
package telemetry

import "github.com/prometheus/client_golang/prometheus"

// Metrics groups every collector the simulation core records into.
type Metrics struct {
	TicksTotal        *prometheus.CounterVec
	TradesTotal       *prometheus.CounterVec
	SignalsRejected   *prometheus.CounterVec
	ActiveSimulations prometheus.Gauge
	TickDuration      prometheus.Histogram
	PredictionErrors  prometheus.Counter
}

// New registers all collectors on reg and returns them.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		TicksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "papertrade_ticks_total",
				Help: "Simulation ticks executed, by strategy and outcome",
			},
			[]string{"strategy", "outcome"},
		),
		TradesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "papertrade_trades_total",
				Help: "Trades executed, by side",
			},
			[]string{"side"},
		),
		SignalsRejected: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "papertrade_signals_rejected_total",
				Help: "Signals rejected by the ledger, by reason",
			},
			[]string{"reason"},
		),
		ActiveSimulations: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "papertrade_active_simulations",
				Help: "Number of simulations currently running",
			},
		),
		TickDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "papertrade_tick_duration_seconds",
				Help:    "Duration of one evaluate-execute-value tick",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
			},
		),
		PredictionErrors: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "papertrade_prediction_errors_total",
				Help: "Failed calls to the prediction service",
			},
		),
	}

	reg.MustRegister(
		m.TicksTotal,
		m.TradesTotal,
		m.SignalsRejected,
		m.ActiveSimulations,
		m.TickDuration,
		m.PredictionErrors,
	)
	return m
}
