package main

import (
	"context"
	"log/slog"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/CTAG07/bayesnet/pkg/bayes"
	"github.com/google/uuid"
)

// Sampler runs MCMC on a loaded network one call at a time and records every
// successful run. The network's random source is not safe for concurrent
// use, so all inference from the REPL and the API goes through here.
type Sampler struct {
	mu      sync.Mutex
	net     *bayes.Network
	history *History // nil when history is disabled
	logger  *slog.Logger
}

// NewSampler creates a sampler for net. history may be nil.
func NewSampler(net *bayes.Network, history *History, logger *slog.Logger) *Sampler {
	return &Sampler{
		net:     net,
		history: history,
		logger:  logger,
	}
}

// Network returns the network the sampler runs on.
func (s *Sampler) Network() *bayes.Network {
	return s.net
}

// History returns the run history, or nil when it is disabled.
func (s *Sampler) History() *History {
	return s.history
}

// Run estimates the query distributions and records the run. A failure to
// record is logged and does not fail the run.
func (s *Sampler) Run(ctx context.Context, evidence bayes.Evidence, query []string, steps int) (*Run, error) {
	s.mu.Lock()
	start := time.Now()
	estimate, err := s.net.MCMC(ctx, evidence, query, steps)
	elapsed := time.Since(start)
	s.mu.Unlock()

	if err != nil {
		mcmcRunsTotal.WithLabelValues(resultError).Inc()
		return nil, err
	}
	mcmcRunsTotal.WithLabelValues(resultOK).Inc()
	mcmcStepsTotal.Add(float64(steps))
	mcmcDuration.Observe(elapsed.Seconds())

	run := &Run{
		ID:        uuid.NewString(),
		CreatedAt: start.UTC(),
		Evidence:  maps.Clone(evidence),
		Query:     slices.Clone(query),
		Steps:     steps,
		Estimate:  estimate,
		Duration:  elapsed,
	}
	if run.Evidence == nil {
		run.Evidence = bayes.Evidence{}
	}
	if s.history != nil {
		if err = s.history.Record(ctx, run); err != nil {
			s.logger.Warn("Failed to record MCMC run", "error", err)
		}
	}
	s.logger.Info("MCMC run finished",
		slog.Int("steps", steps),
		slog.Any("query", query),
		slog.Duration("elapsed", elapsed),
	)
	return run, nil
}
