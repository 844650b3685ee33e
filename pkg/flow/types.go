package flow

import (
	"regexp"
	"slices"
)

// Node types.
const (
	TypeStandard  = "standard"
	TypeSkillCall = "skill-call"
)

// EndTarget is the transition target that terminates the conversation.
const EndTarget = "END"

var (
	endRe     = regexp.MustCompile(`(?i)^END$`)
	subflowRe = regexp.MustCompile(`(?i)\.flow`)
)

// =============================================================================
// Document
// =============================================================================

// Document is a flow as persisted by the store.
type Document struct {
	Name      string         `json:"name" bson:"name"`
	Location  string         `json:"location,omitempty" bson:"location,omitempty"`
	Version   string         `json:"version,omitempty" bson:"version,omitempty"`
	StartNode string         `json:"startNode" bson:"startNode"`
	CatchAll  map[string]any `json:"catchAll,omitempty" bson:"catchAll,omitempty"`
	Nodes     []Node         `json:"nodes" bson:"nodes"`
	Links     []Link         `json:"links,omitempty" bson:"links,omitempty"`
}

// NodeByID returns a pointer into d.Nodes, or nil.
func (d *Document) NodeByID(id string) *Node {
	for i := range d.Nodes {
		if d.Nodes[i].ID == id {
			return &d.Nodes[i]
		}
	}
	return nil
}

// NodeByName returns a pointer into d.Nodes, or nil.
func (d *Document) NodeByName(name string) *Node {
	for i := range d.Nodes {
		if d.Nodes[i].Name == name {
			return &d.Nodes[i]
		}
	}
	return nil
}

// Clone returns a deep copy of the document. Callers that need to edit a
// snapshot handed to them clone it first; snapshots are treated as immutable.
func (d *Document) Clone() *Document {
	if d == nil {
		return nil
	}
	out := *d
	if d.CatchAll != nil {
		out.CatchAll = make(map[string]any, len(d.CatchAll))
		for k, v := range d.CatchAll {
			out.CatchAll[k] = v
		}
	}
	out.Nodes = make([]Node, len(d.Nodes))
	for i, n := range d.Nodes {
		out.Nodes[i] = n.Clone()
	}
	out.Links = make([]Link, len(d.Links))
	for i, l := range d.Links {
		out.Links[i] = l.Clone()
	}
	return &out
}

// =============================================================================
// Node
// =============================================================================

// Node is a flow node in canonical form.
//
// Revision is the change marker: whenever the store edits a node it must
// bump Revision, and a diagram re-syncs a node only when it differs.
type Node struct {
	ID        string       `json:"id" bson:"id"`
	Name      string       `json:"name" bson:"name"`
	Type      string       `json:"type,omitempty" bson:"type,omitempty"`
	Skill     string       `json:"skill,omitempty" bson:"skill,omitempty"`
	X         float64      `json:"x" bson:"x"`
	Y         float64      `json:"y" bson:"y"`
	OnEnter   []string     `json:"onEnter" bson:"onEnter"`
	OnReceive []string     `json:"onReceive" bson:"onReceive"`
	Next      []Transition `json:"next" bson:"next"`
	Revision  uint64       `json:"lastModified" bson:"lastModified"`
}

// IsSkillCall reports whether the node invokes a skill.
func (n *Node) IsSkillCall() bool { return n.Type == TypeSkillCall }

// Clone returns a copy of n that shares no slices with it.
func (n Node) Clone() Node {
	n.OnEnter = slices.Clone(n.OnEnter)
	n.OnReceive = slices.Clone(n.OnReceive)
	n.Next = slices.Clone(n.Next)
	return n
}

// Transition is a conditionally taken edge to a named target.
// An empty Condition is unconditional.
type Transition struct {
	Condition string `json:"condition" bson:"condition"`
	Node      string `json:"node" bson:"node"`
}

// IsTerminal reports whether the target never materializes as a link.
func (t Transition) IsTerminal() bool { return IsEnd(t.Node) || IsSubflow(t.Node) }

// IsEnd reports whether target is the END marker (case-insensitive).
func IsEnd(target string) bool { return endRe.MatchString(target) }

// IsSubflow reports whether target refers to another flow.
func IsSubflow(target string) bool { return subflowRe.MatchString(target) }

// =============================================================================
// Link
// =============================================================================

// Point is a position in graph space.
type Point struct {
	X float64 `json:"x" bson:"x"`
	Y float64 `json:"y" bson:"y"`
}

// Link records a drawn connection. SourcePort is always the output side
// ("out<i>") and Target is always the node owning the "in" port.
type Link struct {
	Source     string  `json:"source" bson:"source"`
	SourcePort string  `json:"sourcePort" bson:"sourcePort"`
	Target     string  `json:"target" bson:"target"`
	Points     []Point `json:"points" bson:"points"`
}

// Clone returns a copy of l with its own Points.
func (l Link) Clone() Link {
	l.Points = slices.Clone(l.Points)
	return l
}

// Matches reports whether l connects the given triple.
func (l Link) Matches(source, target, sourcePort string) bool {
	return l.Source == source && l.Target == target && l.SourcePort == sourcePort
}
