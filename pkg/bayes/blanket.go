package bayes

import "fmt"

// MarkovBlanket returns the Markov blanket of name: first its parents, then
// for every child (in edge order) the child itself followed by the child's
// other parents. Names already listed in the children part are skipped,
// but nothing is deduplicated against the parents part, so a node that is both
// a parent and a co-parent appears twice.
func (n *Network) MarkovBlanket(name string) ([]string, error) {
	node, ok := n.nodes[name]
	if !ok {
		return nil, fmt.Errorf("%w: '%s'", ErrUnknownVariable, name)
	}

	blanket := append([]string{}, node.Parents...)
	seen := make(map[string]struct{})
	for _, child := range n.edges[name] {
		if _, dup := seen[child]; !dup {
			seen[child] = struct{}{}
			blanket = append(blanket, child)
		}
		for _, parent := range n.nodes[child].Parents {
			if parent == name {
				continue
			}
			if _, dup := seen[parent]; dup {
				continue
			}
			seen[parent] = struct{}{}
			blanket = append(blanket, parent)
		}
	}
	return blanket, nil
}
