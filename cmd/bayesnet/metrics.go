package main

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	mcmcRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bayesnet_mcmc_runs_total",
		Help: "Total MCMC runs by result",
	}, []string{"result"})

	mcmcStepsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bayesnet_mcmc_steps_total",
		Help: "Total Gibbs steps taken over all successful runs",
	})

	mcmcDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "bayesnet_mcmc_duration_seconds",
		Help:    "MCMC run duration",
		Buckets: []float64{0.0001, 0.001, 0.01, 0.1, 1, 10},
	})

	networkLoadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bayesnet_network_loads_total",
		Help: "Network definition loads by result",
	}, []string{"result"})
)

const (
	resultOK    = "ok"
	resultError = "error"
)
