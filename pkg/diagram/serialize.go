package diagram

import (
	"slices"

	"github.com/matzehuels/flowdiagram/pkg/flow"
)

// Serialize converts the model back into canonical form.
//
// Each node's transitions are rebuilt from its output ports: when out<i>
// carries a link, Next[i] targets the node at the far end of that link and
// keeps its condition. Unlinked ports pass the previous transition through,
// which is how END and subflow targets survive.
func Serialize(m *Model) flow.Document {
	doc := flow.Document{
		Nodes: make([]flow.Node, 0, len(m.order)),
		Links: SerializeLinks(m),
	}
	for _, n := range m.order {
		doc.Nodes = append(doc.Nodes, serializeNode(m, n))
	}
	return doc
}

func serializeNode(m *Model, n *Node) flow.Node {
	next := make([]flow.Transition, len(n.next))
	for i, t := range n.next {
		next[i] = t
		if i >= len(n.out) {
			continue
		}
		port := n.out[i]
		for _, l := range port.links {
			far := l.other(port)
			if !m.livePort(far) {
				continue
			}
			next[i] = flow.Transition{Condition: t.Condition, Node: far.node.Name}
			break
		}
	}

	return flow.Node{
		ID:        n.ID,
		Name:      n.Name,
		Type:      n.Kind.String(),
		Skill:     n.Skill,
		X:         n.X,
		Y:         n.Y,
		OnEnter:   slices.Clone(n.OnEnter),
		OnReceive: slices.Clone(n.OnReceive),
		Next:      next,
		Revision:  n.Revision,
	}
}

// SerializeLinks converts every fully attached link to canonical form. A
// link drawn from an input port is reversed so that SourcePort is always
// the output side and Target always owns the "in" port.
func SerializeLinks(m *Model) []flow.Link {
	links := m.Links()
	out := make([]flow.Link, 0, len(links))
	for _, l := range links {
		if l.source == nil || l.target == nil || l.source.node == nil || l.target.node == nil {
			continue
		}
		out = append(out, canonicalLink(l))
	}
	return out
}

// canonicalLink converts a single fully attached link.
func canonicalLink(l *Link) flow.Link {
	rec := flow.Link{
		Source:     l.source.node.ID,
		SourcePort: l.source.name,
		Target:     l.target.node.ID,
		Points:     clonePoints(l.Points),
	}
	if l.source.name == InPort {
		rec.Source, rec.Target = rec.Target, rec.Source
		rec.SourcePort = l.target.name
		slices.Reverse(rec.Points)
	}
	return rec
}

func clonePoints(pts []flow.Point) []flow.Point {
	if pts == nil {
		return []flow.Point{}
	}
	return slices.Clone(pts)
}
