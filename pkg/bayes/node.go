package bayes

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"slices"
	"strings"
)

var (
	// ErrNoProbabilities is returned when a node has an empty probability table.
	ErrNoProbabilities = errors.New("no probabilities assigned")
	// ErrUndefinedProbability is returned when a table row has a zero probability.
	ErrUndefinedProbability = errors.New("probability is not defined")
	// ErrBadBlockSum is returned when the rows for one parent assignment do not sum to 1.
	ErrBadBlockSum = errors.New("probabilities do not sum to 1")
	// ErrBadTableSize is returned when a table does not hold one row per value and parent assignment.
	ErrBadTableSize = errors.New("wrong number of probability rows")
)

// Node is a single discrete random variable of the network.
type Node struct {
	Name string
	// Parents are the names of the parent variables. The order is significant,
	// parent assignment keys are built by joining parent values in this order.
	Parents []string
	// Values are the possible values of the variable.
	Values []string
	// Probabilities is the conditional probability table.
	Probabilities []ConditionalProbability
}

// NewNode returns an empty node with the given name.
func NewNode(name string) *Node {
	return &Node{Name: name}
}

// Sort puts the probability rows in canonical order (child, then parents).
// It is idempotent.
func (n *Node) Sort() {
	slices.SortStableFunc(n.Probabilities, ConditionalProbability.Compare)
}

// Validate checks the probability table with exact floating point equality.
// See ValidateWithin.
func (n *Node) Validate() error {
	return n.ValidateWithin(0)
}

// ValidateWithin checks that the table is non-empty, that every row is
// defined, that there is exactly one row per (parent assignment, value) and
// that the rows of every parent assignment sum to 1. The sum is accumulated in
// canonical row order and compared with a tolerance of eps; eps of 0 demands
// exact equality, which rejects some tables whose decimal values add up to 1
// but whose float64 sum does not.
func (n *Node) ValidateWithin(eps float64) error {
	if len(n.Probabilities) == 0 {
		return ErrNoProbabilities
	}
	n.Sort()

	for _, row := range n.Probabilities {
		if !row.Validate() {
			return fmt.Errorf("%w for key '%s'", ErrUndefinedProbability, JoinKey(row.Parents, row.Child))
		}
	}

	blocks := n.blocks()
	if want := len(n.Values) * len(blocks.keys); len(n.Probabilities) != want {
		return fmt.Errorf("%w: have %d, want %d", ErrBadTableSize, len(n.Probabilities), want)
	}

	values := slices.Sorted(slices.Values(n.Values))
	for _, key := range blocks.keys {
		rows := blocks.rows[key]
		if len(rows) != len(values) {
			return fmt.Errorf("%w for parents '%s': have %d, want %d", ErrBadTableSize, key, len(rows), len(values))
		}
		var sum float64
		for i, row := range rows {
			if row.Child != values[i] {
				return fmt.Errorf("%w for parents '%s': unexpected value '%s'", ErrBadTableSize, key, row.Child)
			}
			sum += row.Probability
		}
		if eps == 0 {
			if sum != 1.0 {
				return fmt.Errorf("%w for parents '%s': sum is %v", ErrBadBlockSum, key, sum)
			}
		} else if math.Abs(sum-1.0) > eps {
			return fmt.Errorf("%w for parents '%s': sum is %v", ErrBadBlockSum, key, sum)
		}
	}
	return nil
}

type rowBlocks struct {
	keys []string
	rows map[string][]ConditionalProbability
}

// blocks groups the sorted rows by parent assignment. Keys are returned in
// lexical order and the rows of a block keep the canonical row order.
func (n *Node) blocks() rowBlocks {
	b := rowBlocks{rows: make(map[string][]ConditionalProbability)}
	for _, row := range n.Probabilities {
		if _, ok := b.rows[row.Parents]; !ok {
			b.keys = append(b.keys, row.Parents)
		}
		b.rows[row.Parents] = append(b.rows[row.Parents], row)
	}
	slices.Sort(b.keys)
	return b
}

// Random draws one of the node's values uniformly, ignoring probabilities.
func (n *Node) Random(r *rand.Rand) string {
	return n.Values[r.IntN(len(n.Values))]
}

// Probability looks up P(n = child | parents = parentsKey) in the table.
func (n *Node) Probability(parentsKey, child string) (float64, bool) {
	for _, row := range n.Probabilities {
		if row.Parents == parentsKey && row.Child == child {
			return row.Probability, true
		}
	}
	return 0, false
}

// HasValue reports whether value is one of the node's possible values.
func (n *Node) HasValue(value string) bool {
	return slices.Contains(n.Values, value)
}

// clone returns a deep copy of the node.
func (n *Node) clone() *Node {
	return &Node{
		Name:          n.Name,
		Parents:       slices.Clone(n.Parents),
		Values:        slices.Clone(n.Values),
		Probabilities: slices.Clone(n.Probabilities),
	}
}

func (n *Node) String() string {
	var sb strings.Builder
	sb.WriteString("parents: [")
	sb.WriteString(strings.Join(n.Parents, ", "))
	sb.WriteString("]\n")
	sb.WriteString("values: [")
	sb.WriteString(strings.Join(n.Values, ", "))
	sb.WriteString("]\n")
	sb.WriteString("probabilities:")
	for _, row := range n.Probabilities {
		fmt.Fprintf(&sb, "\n%s%s: %v", indent, JoinKey(row.Parents, row.Child), row.Probability)
	}
	return sb.String()
}
