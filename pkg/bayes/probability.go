package bayes

import (
	"cmp"
	"strings"
)

// ConditionalProbability is a single row of a conditional probability table:
// P(child = Child | parents = Parents) = Probability. Parents holds the parent
// values joined by commas in the node's declared parent order, and is empty
// for nodes without parents.
type ConditionalProbability struct {
	Parents     string  `json:"parents"`
	Child       string  `json:"child"`
	Probability float64 `json:"probability"`
}

// Validate reports whether the probability is defined. A zero probability is
// treated as undefined and fails validation.
func (cp ConditionalProbability) Validate() bool {
	return cp.Probability != 0
}

// Compare orders rows by child value first and parent assignment second, both
// lexically. It returns -1, 0 or +1 in the manner of strings.Compare.
func (cp ConditionalProbability) Compare(other ConditionalProbability) int {
	if c := cmp.Compare(cp.Child, other.Child); c != 0 {
		return c
	}
	return cmp.Compare(cp.Parents, other.Parents)
}

// Less reports whether cp sorts before other.
func (cp ConditionalProbability) Less(other ConditionalProbability) bool {
	return cp.Compare(other) < 0
}

// Equal reports whether both rows describe the same (parents, child) cell,
// regardless of their probability.
func (cp ConditionalProbability) Equal(other ConditionalProbability) bool {
	return cp.Compare(other) == 0
}

// SplitKey splits a probability table key into the parent assignment and the
// child value. The child value is the last comma separated token; everything
// before it is the parent assignment. A key with no comma has no parents.
//
//	SplitKey("T,T,F")  // "T,T", "F"
//	SplitKey("single") // "", "single"
func SplitKey(key string) (parents, child string) {
	i := strings.LastIndexByte(key, ',')
	if i < 0 {
		return "", key
	}
	return key[:i], key[i+1:]
}

// JoinKey is the inverse of SplitKey.
func JoinKey(parents, child string) string {
	if parents == "" {
		return child
	}
	return parents + "," + child
}
