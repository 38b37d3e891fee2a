package bayes

import (
	"github.com/montanaflynn/stats"
)

// NetworkStats holds aggregated statistics for a loaded network.
type NetworkStats struct {
	Nodes       int     `json:"nodes"`        // The number of variables
	Edges       int     `json:"edges"`        // The number of parent -> child links
	TableRows   int     `json:"table_rows"`   // The number of probability rows over all nodes
	Roots       int     `json:"roots"`        // Nodes without parents
	Leaves      int     `json:"leaves"`       // Nodes without children
	MeanParents float64 `json:"mean_parents"` // Average number of parents per node
	MaxParents  int     `json:"max_parents"`  // Largest number of parents of a single node
	MaxBlanket  int     `json:"max_blanket"`  // Largest Markov blanket
}

// Stats returns a snapshot of statistics for the network.
func (n *Network) Stats() (*NetworkStats, error) {
	if !n.Loaded() {
		return nil, ErrNotLoaded
	}

	s := &NetworkStats{Nodes: len(n.order), Edges: n.edgeCount()}
	parents := make([]float64, 0, len(n.order))
	for _, name := range n.order {
		node := n.nodes[name]
		s.TableRows += len(node.Probabilities)
		parents = append(parents, float64(len(node.Parents)))
		if len(node.Parents) == 0 {
			s.Roots++
		}
		if len(n.edges[name]) == 0 {
			s.Leaves++
		}
		blanket, err := n.MarkovBlanket(name)
		if err != nil {
			return nil, err
		}
		s.MaxBlanket = max(s.MaxBlanket, len(blanket))
	}

	mean, err := stats.Mean(parents)
	if err != nil {
		return nil, err
	}
	maxParents, err := stats.Max(parents)
	if err != nil {
		return nil, err
	}
	s.MeanParents = mean
	s.MaxParents = int(maxParents)
	return s, nil
}
