package bayes

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const alarmPath = "testdata/alarm.json"

// chainJSON is the three node chain A -> B -> C.
const chainJSON = `{
  "nodes": ["A", "B", "C"],
  "relations": {
    "A": {"parents": [], "probabilities": {"T": 0.3, "F": 0.7}},
    "B": {"parents": ["A"], "probabilities": {"T,T": 0.8, "T,F": 0.2, "F,T": 0.1, "F,F": 0.9}},
    "C": {"parents": ["B"], "probabilities": {"T,T": 0.6, "T,F": 0.4, "F,T": 0.5, "F,F": 0.5}}
  }
}`

// setupNetwork loads the given JSON definition into a seeded network.
func setupNetwork(t *testing.T, definition string) *Network {
	t.Helper()
	n := NewNetwork(WithSeed(1))
	if err := n.Load(strings.NewReader(definition)); err != nil {
		t.Fatalf("setup: Load() failed: %v", err)
	}
	return n
}

// setupAlarmNetwork loads the alarm network from testdata.
func setupAlarmNetwork(t *testing.T) *Network {
	t.Helper()
	n := NewNetwork(WithSeed(7))
	if err := n.LoadFile(alarmPath); err != nil {
		t.Fatalf("setup: LoadFile() failed: %v", err)
	}
	return n
}

// writeFile writes content to a file in a fresh temporary directory.
func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
	return path
}

// enumerate computes P(query = value | evidence) exactly by summing the joint
// distribution over every full assignment. It is the oracle for MCMC tests.
func enumerate(t *testing.T, n *Network, evidence Evidence, query, value string) float64 {
	t.Helper()
	var num, den float64
	assignment := make(Evidence, len(n.order))

	var walk func(i int)
	walk = func(i int) {
		if i == len(n.order) {
			p := 1.0
			for _, name := range n.order {
				p *= n.pConditional(name, assignment, assignment[name])
			}
			den += p
			if assignment[query] == value {
				num += p
			}
			return
		}
		name := n.order[i]
		if v, ok := evidence[name]; ok {
			assignment[name] = v
			walk(i + 1)
			return
		}
		for _, v := range n.nodes[name].Values {
			assignment[name] = v
			walk(i + 1)
		}
	}
	walk(0)

	if den == 0 {
		t.Fatalf("enumerate: evidence %v has zero probability", evidence)
	}
	return num / den
}
