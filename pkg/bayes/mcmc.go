package bayes

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"
	"time"

	"gonum.org/v1/gonum/floats"
)

var (
	// ErrInvalidSteps is returned when MCMC is asked for fewer than one step.
	ErrInvalidSteps = errors.New("number of steps must be positive")
	// ErrNoSupport is returned when every value of a variable has zero weight
	// under the current state, which happens when evidence contradicts the tables.
	ErrNoSupport = errors.New("no value has non-zero probability")
)

// Evidence assigns observed values to variables.
type Evidence map[string]string

func (e Evidence) String() string {
	names := slices.Sorted(maps.Keys(e))
	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, name+": "+e[name])
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// Distribution maps each value of a variable to its estimated probability.
type Distribution map[string]float64

// Values returns the values of the distribution in lexical order.
func (d Distribution) Values() []string {
	return slices.Sorted(maps.Keys(d))
}

// Sum returns the total probability mass of the distribution.
func (d Distribution) Sum() float64 {
	var sum float64
	for _, v := range d.Values() {
		sum += d[v]
	}
	return sum
}

func (d Distribution) String() string {
	parts := make([]string, 0, len(d))
	for _, v := range d.Values() {
		parts = append(parts, fmt.Sprintf("%s: %v", v, d[v]))
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// Estimate maps each query variable to its estimated posterior distribution.
type Estimate map[string]Distribution

func (e Estimate) String() string {
	names := slices.Sorted(maps.Keys(e))
	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, name+": "+e[name].String())
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// MCMC estimates the posterior distribution of every query variable given the
// evidence, using steps iterations of Gibbs sampling.
//
// The evidence map is copied and never modified. Every variable without
// evidence starts from a uniformly drawn value. Each step picks one of those
// variables uniformly, resamples it from its Markov blanket conditional and
// then counts the current value of every query variable. The counts are
// normalised into one distribution per query variable.
//
// The context is only used for logging; sampling cannot be cancelled, steps
// is the only bound on the work done.
func (n *Network) MCMC(ctx context.Context, evidence Evidence, query []string, steps int) (Estimate, error) {
	if !n.Loaded() {
		return nil, ErrNotLoaded
	}
	if steps < 1 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidSteps, steps)
	}
	for name := range evidence {
		if !n.Has(name) {
			return nil, fmt.Errorf("evidence: %w: '%s'", ErrUnknownVariable, name)
		}
	}
	for _, name := range query {
		if !n.Has(name) {
			return nil, fmt.Errorf("query: %w: '%s'", ErrUnknownVariable, name)
		}
	}
	start := time.Now()

	state := maps.Clone(evidence)
	if state == nil {
		state = make(Evidence)
	}
	var unknown []string
	for _, name := range n.order {
		if _, ok := state[name]; !ok {
			unknown = append(unknown, name)
			state[name] = n.nodes[name].Random(n.rand)
		}
	}

	counters := make(map[string]map[string]int, len(query))
	for _, name := range query {
		counts := make(map[string]int, len(n.nodes[name].Values))
		for _, v := range n.nodes[name].Values {
			counts[v] = 0
		}
		counters[name] = counts
	}

	for range steps {
		if len(unknown) > 0 {
			name := unknown[n.rand.IntN(len(unknown))]
			value, err := n.mbSampling(name, state)
			if err != nil {
				return nil, err
			}
			state[name] = value
		}
		for name, counts := range counters {
			counts[state[name]]++
		}
	}

	estimate := make(Estimate, len(counters))
	for name, counts := range counters {
		var total int
		for _, c := range counts {
			total += c
		}
		dist := make(Distribution, len(counts))
		for v, c := range counts {
			dist[v] = float64(c) / float64(total)
		}
		estimate[name] = dist
	}

	n.logger.DebugContext(ctx, "MCMC finished",
		slog.Int("steps", steps),
		slog.Int("evidence", len(evidence)),
		slog.Int("unknown", len(unknown)),
		slog.Int("query", len(query)),
		slog.Duration("elapsed", time.Since(start)),
	)
	return estimate, nil
}

// mbSampling draws a new value for name from its distribution conditioned on
// the Markov blanket, by inverse CDF over the values in lexical order.
func (n *Network) mbSampling(name string, state Evidence) (string, error) {
	values := slices.Sorted(slices.Values(n.nodes[name].Values))
	weights := make([]float64, len(values))
	for i, v := range values {
		weights[i] = n.pValue(name, state, v)
	}

	total := floats.Sum(weights)
	if total == 0 {
		return "", fmt.Errorf("%w: '%s'", ErrNoSupport, name)
	}
	floats.Scale(1/total, weights)

	draw := n.rand.Float64()
	var running float64
	last := ""
	for i, w := range weights {
		if w == 0 {
			continue
		}
		last = values[i]
		running += w
		if running >= draw {
			return values[i], nil
		}
	}
	// Rounding left the running total just below the draw.
	return last, nil
}

// pValue returns the unnormalised weight of name = value: its own conditional
// probability times the conditional probability of every child under the
// current state.
func (n *Network) pValue(name string, state Evidence, value string) float64 {
	previous, had := state[name]
	state[name] = value
	defer func() {
		if had {
			state[name] = previous
		} else {
			delete(state, name)
		}
	}()

	p := n.pConditional(name, state, value)
	for _, child := range n.edges[name] {
		p *= n.pConditional(child, state, state[child])
	}
	return p
}

// pConditional returns P(name = value | parents) with the parent values taken
// from state. A parent assignment missing from the table has probability 0.
func (n *Network) pConditional(name string, state Evidence, value string) float64 {
	node := n.nodes[name]
	parentValues := make([]string, len(node.Parents))
	for i, parent := range node.Parents {
		parentValues[i] = state[parent]
	}
	p, _ := node.Probability(strings.Join(parentValues, ","), value)
	return p
}
