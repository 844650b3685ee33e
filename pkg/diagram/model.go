package diagram

import (
	"errors"
	"slices"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/matzehuels/flowdiagram/pkg/flow"
)

// Port names.
const (
	// InPort is the single input port every node owns.
	InPort = "in"

	outPrefix = "out"
)

// DefaultGridSize is the snapping grid applied to new models.
const DefaultGridSize = 5

var (
	// ErrInvalidNodeID is returned by [Model.AddNode] for an empty node ID.
	ErrInvalidNodeID = errors.New("node ID must not be empty")

	// ErrDuplicateNodeID is returned by [Model.AddNode] when the ID is taken.
	ErrDuplicateNodeID = errors.New("duplicate node ID")
)

// OutPort returns the name of the output port wired to transition i.
func OutPort(i int) string { return outPrefix + strconv.Itoa(i) }

// IsOutPort reports whether name is an output port name.
func IsOutPort(name string) bool { return strings.HasPrefix(name, outPrefix) }

// OutPortIndex returns the transition index of an output port name.
func OutPortIndex(name string) (int, bool) {
	if !IsOutPort(name) {
		return 0, false
	}
	i, err := strconv.Atoi(strings.TrimPrefix(name, outPrefix))
	if err != nil || i < 0 {
		return 0, false
	}
	return i, true
}

// =============================================================================
// Port
// =============================================================================

// Port is a named connection point on a node. It keeps the links attached
// to it in attachment order.
type Port struct {
	name  string
	node  *Node
	links []*Link
}

// Name returns the port name ("in", "out0", ...).
func (p *Port) Name() string { return p.name }

// Node returns the node owning the port.
func (p *Port) Node() *Node { return p.node }

// IsIn reports whether this is the input port.
func (p *Port) IsIn() bool { return p.name == InPort }

// Links returns a copy of the attached links, oldest first.
func (p *Port) Links() []*Link { return slices.Clone(p.links) }

func (p *Port) attach(l *Link) { p.links = append(p.links, l) }

func (p *Port) detach(l *Link) {
	p.links = slices.DeleteFunc(p.links, func(x *Link) bool { return x == l })
}

// =============================================================================
// Node
// =============================================================================

// NodeKind discriminates node types.
type NodeKind int

const (
	KindStandard NodeKind = iota
	KindSkillCall
)

// String returns the flow document type name.
func (k NodeKind) String() string {
	if k == KindSkillCall {
		return flow.TypeSkillCall
	}
	return flow.TypeStandard
}

func kindOf(typ string) NodeKind {
	if typ == flow.TypeSkillCall {
		return KindSkillCall
	}
	return KindStandard
}

// Node is the runtime form of a flow node.
//
// The output ports mirror the transition list: out<i> exists exactly for
// every index of Next. Both change together through [Model.SetNext].
type Node struct {
	ID        string
	Name      string
	Kind      NodeKind
	Skill     string
	X, Y      float64
	OnEnter   []string
	OnReceive []string
	Revision  uint64

	IsStartNode   bool
	IsHighlighted bool
	Selected      bool

	next []flow.Transition
	in   *Port
	out  []*Port
}

// NewNode builds a detached node from its canonical form.
func NewNode(fn flow.Node) *Node {
	n := &Node{
		ID:       fn.ID,
		X:        fn.X,
		Y:        fn.Y,
		Revision: fn.Revision,
	}
	n.in = &Port{name: InPort, node: n}
	n.setData(fn)
	n.setNext(fn.Next)
	return n
}

// setData copies the pass-through display fields.
func (n *Node) setData(fn flow.Node) {
	n.Name = fn.Name
	n.Kind = kindOf(fn.Type)
	n.Skill = fn.Skill
	n.OnEnter = slices.Clone(fn.OnEnter)
	n.OnReceive = slices.Clone(fn.OnReceive)
}

// setNext replaces the transitions and resizes the output ports, returning
// the ports that were dropped.
func (n *Node) setNext(next []flow.Transition) []*Port {
	n.next = slices.Clone(next)

	var dropped []*Port
	if len(n.out) > len(next) {
		dropped = n.out[len(next):]
		n.out = slices.Clone(n.out[:len(next)])
	}
	for i := len(n.out); i < len(next); i++ {
		n.out = append(n.out, &Port{name: OutPort(i), node: n})
	}
	return dropped
}

// Next returns a copy of the ordered transitions.
func (n *Node) Next() []flow.Transition { return slices.Clone(n.next) }

// InPort returns the input port.
func (n *Node) InPort() *Port { return n.in }

// OutPorts returns the output ports in transition order.
func (n *Node) OutPorts() []*Port { return slices.Clone(n.out) }

// Ports returns the input port followed by the output ports.
func (n *Node) Ports() []*Port { return append([]*Port{n.in}, n.out...) }

// Port returns the port with the given name, or nil.
func (n *Node) Port(name string) *Port {
	if name == InPort {
		return n.in
	}
	i, ok := OutPortIndex(name)
	if !ok || i >= len(n.out) {
		return nil
	}
	return n.out[i]
}

// SetPosition moves the node.
func (n *Node) SetPosition(x, y float64) {
	n.X, n.Y = x, y
}

// =============================================================================
// Link
// =============================================================================

// Link connects two ports. A link may be half attached while the user is
// still dragging it; the sanitizer removes such links.
type Link struct {
	Points   []flow.Point
	Selected bool

	id     string
	seq    uint64
	source *Port
	target *Port
}

// ID returns the link identifier.
func (l *Link) ID() string { return l.id }

// Source returns the source port, or nil.
func (l *Link) Source() *Port { return l.source }

// Target returns the target port, or nil.
func (l *Link) Target() *Port { return l.target }

// Seq returns the creation sequence number; higher is newer.
func (l *Link) Seq() uint64 { return l.seq }

// other returns the endpoint that is not p.
func (l *Link) other(p *Port) *Port {
	if l.source == p {
		return l.target
	}
	return l.source
}

// =============================================================================
// Model
// =============================================================================

// Model is the in-memory diagram: nodes, links, lock flag and the pan/zoom
// transform. It is owned by one editor session and is not safe for
// concurrent use.
type Model struct {
	nodes map[string]*Node
	order []*Node
	links map[string]*Link
	seq   uint64

	locked    bool
	gridSize  int
	zoom      float64
	offsetX   float64
	offsetY   float64
	linksHash string
}

// New creates an empty model at 100% zoom.
func New() *Model {
	return &Model{
		nodes:    make(map[string]*Node),
		links:    make(map[string]*Link),
		gridSize: DefaultGridSize,
		zoom:     1,
	}
}

// AddNode inserts n. The node keeps its ports and any links already
// attached to them.
func (m *Model) AddNode(n *Node) error {
	if n.ID == "" {
		return ErrInvalidNodeID
	}
	if _, ok := m.nodes[n.ID]; ok {
		return ErrDuplicateNodeID
	}
	m.nodes[n.ID] = n
	m.order = append(m.order, n)
	return nil
}

// RemoveNode deletes the node and every link attached to it. It reports
// whether the node existed.
func (m *Model) RemoveNode(id string) bool {
	n, ok := m.nodes[id]
	if !ok {
		return false
	}
	delete(m.nodes, id)
	m.order = slices.DeleteFunc(m.order, func(x *Node) bool { return x == n })
	for _, p := range n.Ports() {
		for _, l := range p.Links() {
			m.RemoveLink(l.id)
		}
	}
	return true
}

// Node returns the node with the given ID.
func (m *Model) Node(id string) (*Node, bool) {
	n, ok := m.nodes[id]
	return n, ok
}

// NodeByName returns the first node (in insertion order) with the given
// name, or nil.
func (m *Model) NodeByName(name string) *Node {
	for _, n := range m.order {
		if n.Name == name {
			return n
		}
	}
	return nil
}

// Nodes returns the nodes in insertion order.
func (m *Model) Nodes() []*Node { return slices.Clone(m.order) }

// NodeCount returns the number of nodes.
func (m *Model) NodeCount() int { return len(m.nodes) }

// SetNext replaces a node's transitions and its output port set in one
// step. Links attached to ports that no longer exist are removed.
func (m *Model) SetNext(n *Node, next []flow.Transition) {
	for _, p := range n.setNext(next) {
		for _, l := range p.Links() {
			m.RemoveLink(l.id)
		}
	}
}

// AddLink creates a link between two ports. Either port may be nil.
func (m *Model) AddLink(source, target *Port, points []flow.Point) *Link {
	m.seq++
	l := &Link{
		id:     uuid.NewString(),
		seq:    m.seq,
		source: source,
		target: target,
		Points: slices.Clone(points),
	}
	if source != nil {
		source.attach(l)
	}
	if target != nil {
		target.attach(l)
	}
	m.links[l.id] = l
	return l
}

// RemoveLink deletes a link and detaches it from its ports. It reports
// whether the link existed.
func (m *Model) RemoveLink(id string) bool {
	l, ok := m.links[id]
	if !ok {
		return false
	}
	delete(m.links, id)
	if l.source != nil {
		l.source.detach(l)
	}
	if l.target != nil {
		l.target.detach(l)
	}
	return true
}

// Link returns the link with the given ID.
func (m *Model) Link(id string) (*Link, bool) {
	l, ok := m.links[id]
	return l, ok
}

// Links returns all links, oldest first.
func (m *Model) Links() []*Link {
	out := make([]*Link, 0, len(m.links))
	for _, l := range m.links {
		out = append(out, l)
	}
	slices.SortFunc(out, func(a, b *Link) int {
		switch {
		case a.seq < b.seq:
			return -1
		case a.seq > b.seq:
			return 1
		}
		return 0
	})
	return out
}

// LinkCount returns the number of links.
func (m *Model) LinkCount() int { return len(m.links) }

// livePort reports whether p belongs to a node in the model and is still
// one of that node's ports.
func (m *Model) livePort(p *Port) bool {
	if p == nil || p.node == nil {
		return false
	}
	if n, ok := m.nodes[p.node.ID]; !ok || n != p.node {
		return false
	}
	return p.node.Port(p.name) == p
}

// =============================================================================
// Selection
// =============================================================================

// SelectedNodes returns the selected nodes in insertion order.
func (m *Model) SelectedNodes() []*Node {
	var out []*Node
	for _, n := range m.order {
		if n.Selected {
			out = append(out, n)
		}
	}
	return out
}

// SelectedLinks returns the selected links, oldest first.
func (m *Model) SelectedLinks() []*Link {
	var out []*Link
	for _, l := range m.Links() {
		if l.Selected {
			out = append(out, l)
		}
	}
	return out
}

// UnselectAll clears the selection.
func (m *Model) UnselectAll() {
	for _, n := range m.order {
		n.Selected = false
	}
	for _, l := range m.links {
		l.Selected = false
	}
}

// =============================================================================
// Lock, grid and transform
// =============================================================================

// SetLocked toggles read-only mode.
func (m *Model) SetLocked(locked bool) { m.locked = locked }

// Locked reports whether the model is read-only.
func (m *Model) Locked() bool { return m.locked }

// GridSize returns the snapping grid.
func (m *Model) GridSize() int { return m.gridSize }

// Zoom returns the zoom factor (1 == 100%).
func (m *Model) Zoom() float64 { return m.zoom }

// ZoomLevel returns the zoom as a percentage.
func (m *Model) ZoomLevel() float64 { return m.zoom * 100 }

// SetZoom sets the zoom factor. Non-positive factors are ignored.
func (m *Model) SetZoom(factor float64) {
	if factor > 0 {
		m.zoom = factor
	}
}

// Offset returns the pan offset in screen pixels.
func (m *Model) Offset() (x, y float64) { return m.offsetX, m.offsetY }

// SetOffset sets the pan offset.
func (m *Model) SetOffset(x, y float64) { m.offsetX, m.offsetY = x, y }

// ToGraph converts canvas-relative screen coordinates to graph space:
// graph = screen/zoom - offset/zoom.
func (m *Model) ToGraph(screen flow.Point) flow.Point {
	return flow.Point{
		X: screen.X/m.zoom - m.offsetX/m.zoom,
		Y: screen.Y/m.zoom - m.offsetY/m.zoom,
	}
}

// LinksHash returns the hash of the last link set handed to the store.
func (m *Model) LinksHash() string { return m.linksHash }

// SetLinksHash records the hash of the link set handed to the store.
func (m *Model) SetLinksHash(h string) { m.linksHash = h }
