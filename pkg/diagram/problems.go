package diagram

// NodeProblem counts the transitions of a node whose target cannot be
// resolved.
type NodeProblem struct {
	NodeName     string `json:"nodeName"`
	MissingPorts int    `json:"missingPorts"`
}

// Problems reports, per node in insertion order, how many transitions have
// an empty target or name a node that is not in the model. END and subflow
// targets are never problems. Nodes without problems are omitted.
func Problems(m *Model) []NodeProblem {
	var out []NodeProblem
	for _, n := range m.order {
		missing := 0
		for _, t := range n.next {
			switch {
			case t.Node == "":
				missing++
			case t.IsTerminal():
			case m.NodeByName(t.Node) == nil:
				missing++
			}
		}
		if missing > 0 {
			out = append(out, NodeProblem{NodeName: n.Name, MissingPorts: missing})
		}
	}
	return out
}
