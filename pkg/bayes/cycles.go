package bayes

// CheckCycles reports whether the child index contains a directed cycle.
//
// It runs a depth first walk from every unvisited node. visited records every
// node ever entered; onStack holds only the nodes on the current path, so a
// child that was finished by an earlier walk (a shared descendant) is not
// mistaken for a back edge.
func (n *Network) CheckCycles() bool {
	visited := make(map[string]bool, len(n.edges))
	onStack := make(map[string]bool)

	var walk func(name string) bool
	walk = func(name string) bool {
		visited[name] = true
		onStack[name] = true
		defer delete(onStack, name)

		for _, child := range n.edges[name] {
			if !visited[child] {
				if walk(child) {
					return true
				}
			} else if onStack[child] {
				return true
			}
		}
		return false
	}

	for _, name := range n.order {
		if !visited[name] && walk(name) {
			return true
		}
	}
	// Nodes that only appear in the index, e.g. when edges were modified by hand.
	for name := range n.edges {
		if !visited[name] && walk(name) {
			return true
		}
	}
	return false
}
