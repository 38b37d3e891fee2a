package bayes

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"slices"
	"strings"
)

const indent = "  "

var (
	// ErrEmptyNetwork is returned when a network has no nodes.
	ErrEmptyNetwork = errors.New("no nodes in network")
	// ErrCycle is returned when the parent relations contain a cycle.
	ErrCycle = errors.New("cycles found in graph")
	// ErrNotLoaded is returned by queries against a network that holds no valid definition.
	ErrNotLoaded = errors.New("network is not loaded")
	// ErrUnknownVariable is returned when a name does not refer to a node of the network.
	ErrUnknownVariable = errors.New("variable not found in network")
)

// Option configures a Network.
type Option func(*Network)

// WithRand sets the random source used for sampling. A *rand.Rand is not safe
// for concurrent use, so neither is a Network that owns one.
func WithRand(r *rand.Rand) Option {
	return func(n *Network) {
		if r != nil {
			n.rand = r
		}
	}
}

// WithSeed seeds the random source so that sampling is reproducible.
func WithSeed(seed uint64) Option {
	return func(n *Network) { n.rand = rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)) }
}

// WithTolerance makes validation accept probability blocks whose sum is
// within eps of 1. The default of 0 requires the float64 sum to equal 1 exactly.
func WithTolerance(eps float64) Option {
	return func(n *Network) {
		if eps >= 0 {
			n.tolerance = eps
		}
	}
}

// WithLogger sets the logger, see SetLogger.
func WithLogger(logger *slog.Logger) Option {
	return func(n *Network) { n.SetLogger(logger) }
}

// Network is a discrete Bayesian network. It is either empty (unloaded) or
// holds a definition that passed validation; a failed load always leaves it
// empty.
type Network struct {
	nodes map[string]*Node
	// order is the declared node order, used wherever iteration order is observable.
	order []string
	// edges maps a node to its children. It is derived from the nodes' parents
	// and rebuilt by connect whenever nodes change.
	edges     map[string][]string
	rand      *rand.Rand
	tolerance float64
	logger    *slog.Logger
}

// NewNetwork returns an empty network.
func NewNetwork(opts ...Option) *Network {
	n := &Network{
		nodes:  make(map[string]*Node),
		edges:  make(map[string][]string),
		rand:   rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// SetLogger sets the logger for the network. By default, all logs are discarded.
func (n *Network) SetLogger(logger *slog.Logger) {
	if logger != nil {
		n.logger = logger
	}
}

// Load decodes a JSON network definition from r and replaces the current
// network with it. On any error the network is reset to empty.
func (n *Network) Load(r io.Reader) error {
	def, err := DecodeDefinition(r)
	if err != nil {
		n.reset()
		n.logger.Warn("Network load failed", slog.String("error", err.Error()))
		return err
	}
	return n.LoadDefinition(def)
}

// LoadFile reads a network definition from path, see ReadDefinitionFile.
func (n *Network) LoadFile(path string) error {
	def, err := ReadDefinitionFile(path)
	if err != nil {
		n.reset()
		n.logger.Warn("Network load failed", slog.String("path", path), slog.String("error", err.Error()))
		return err
	}
	if err = n.LoadDefinition(def); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

// LoadDefinition builds nodes from def, connects and validates them. The
// network is replaced only if every step succeeds.
func (n *Network) LoadDefinition(def *Definition) error {
	if def == nil {
		n.reset()
		return ErrEmptyNetwork
	}
	nodes, order, err := def.Build()
	if err != nil {
		n.reset()
		n.logger.Warn("Network load failed", slog.String("error", err.Error()))
		return err
	}
	n.nodes = nodes
	n.order = order
	n.connect()

	if err = n.Validate(); err != nil {
		n.reset()
		n.logger.Warn("Network validation failed", slog.String("error", err.Error()))
		return err
	}

	n.logger.Info("Network loaded",
		slog.Int("nodes", len(n.order)),
		slog.Int("edges", n.edgeCount()),
	)
	return nil
}

func (n *Network) reset() {
	n.nodes = make(map[string]*Node)
	n.order = nil
	n.edges = make(map[string][]string)
}

// connect rebuilds the child index from every node's parents.
func (n *Network) connect() {
	n.edges = make(map[string][]string, len(n.order))
	for _, name := range n.order {
		n.edges[name] = nil
	}
	for _, name := range n.order {
		for _, parent := range n.nodes[name].Parents {
			n.edges[parent] = append(n.edges[parent], name)
		}
	}
}

// Validate checks that the network is non-empty, that every node's table is
// valid and that the graph is acyclic.
func (n *Network) Validate() error {
	if len(n.nodes) == 0 {
		return ErrEmptyNetwork
	}
	for _, name := range n.order {
		if err := n.nodes[name].ValidateWithin(n.tolerance); err != nil {
			return fmt.Errorf("node '%s': %w", name, err)
		}
	}
	if n.CheckCycles() {
		return ErrCycle
	}
	return nil
}

// Loaded reports whether the network holds a valid definition.
func (n *Network) Loaded() bool {
	return len(n.nodes) > 0
}

// Names returns the node names in declared order.
func (n *Network) Names() []string {
	return slices.Clone(n.order)
}

// Has reports whether name is a node of the network.
func (n *Network) Has(name string) bool {
	_, ok := n.nodes[name]
	return ok
}

// Node returns a copy of the named node.
func (n *Network) Node(name string) (*Node, error) {
	node, ok := n.nodes[name]
	if !ok {
		return nil, fmt.Errorf("%w: '%s'", ErrUnknownVariable, name)
	}
	return node.clone(), nil
}

// Nodes returns copies of every node in declared order.
func (n *Network) Nodes() []*Node {
	out := make([]*Node, 0, len(n.order))
	for _, name := range n.order {
		out = append(out, n.nodes[name].clone())
	}
	return out
}

// Children returns the names of the direct children of name, in declared order.
func (n *Network) Children(name string) []string {
	return slices.Clone(n.edges[name])
}

// Edges returns a copy of the child index.
func (n *Network) Edges() map[string][]string {
	out := make(map[string][]string, len(n.edges))
	for k, v := range n.edges {
		out[k] = slices.Clone(v)
	}
	return out
}

func (n *Network) edgeCount() int {
	var count int
	for _, children := range n.edges {
		count += len(children)
	}
	return count
}

// String renders the nodes block followed by the edges block.
func (n *Network) String() string {
	var sb strings.Builder
	sb.WriteString("nodes:\n")
	for _, name := range n.order {
		sb.WriteString(indent + name + ":\n" + indent + indent)
		sb.WriteString(strings.ReplaceAll(n.nodes[name].String(), "\n", "\n"+indent+indent))
		sb.WriteString("\n")
	}
	sb.WriteString("edges:\n")
	for _, name := range n.order {
		sb.WriteString(indent + name + ": [" + strings.Join(n.edges[name], ", ") + "]\n")
	}
	return sb.String()
}
