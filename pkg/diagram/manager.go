package diagram

import (
	"slices"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/flowdiagram/pkg/cache"
	errs "github.com/matzehuels/flowdiagram/pkg/errors"
	"github.com/matzehuels/flowdiagram/pkg/flow"
	"github.com/matzehuels/flowdiagram/pkg/observability"
)

// SelectDelay is how long a newly created node waits before it is selected,
// giving the view time to mount it.
const SelectDelay = 150 * time.Millisecond

// StoreActions is the part of the owning store the manager calls back into.
type StoreActions interface {
	// SwitchFlowNode focuses the editor on the node with the given ID.
	SwitchFlowNode(id string)
}

// View is the widget drawing the model.
type View interface {
	ForceUpdate()
}

// Scheduler runs f once after d. The default uses time.AfterFunc.
// Implementations must not call f before AfterFunc returns.
type Scheduler interface {
	AfterFunc(d time.Duration, f func())
}

// SchedulerFunc adapts a function to [Scheduler].
type SchedulerFunc func(d time.Duration, f func())

// AfterFunc calls fn(d, f).
func (fn SchedulerFunc) AfterFunc(d time.Duration, f func()) { fn(d, f) }

var timeScheduler = SchedulerFunc(func(d time.Duration, f func()) { time.AfterFunc(d, f) })

// SyncStats reports what an incremental sync did.
type SyncStats struct {
	Added     int `json:"added"`
	Removed   int `json:"removed"`
	Resynced  int `json:"resynced"`
	Refreshed int `json:"refreshed"`
	Sanitized int `json:"sanitized"`
}

// Option configures a Manager.
type Option func(*Manager)

// WithScheduler replaces the deferred-task mechanism.
func WithScheduler(s Scheduler) Option {
	return func(m *Manager) {
		if s != nil {
			m.scheduler = s
		}
	}
}

// WithPadding sets the fit-to-view margin.
func WithPadding(p float64) Option {
	return func(m *Manager) { m.padding = p }
}

// Manager keeps a diagram [Model] in step with the flow document owned by a
// store. It rebuilds the model wholesale with [Manager.InitializeModel] and
// applies later snapshots incrementally with [Manager.SyncModel].
//
// Calls are serialized by an internal mutex; the only asynchronous work is
// the deferred selection of new nodes. Views and store callbacks are always
// invoked without the mutex held.
type Manager struct {
	mu        sync.Mutex
	actions   StoreActions
	logger    *log.Logger
	scheduler Scheduler
	padding   float64

	model       *Model
	current     *flow.Document
	highlighted string
	readOnly    bool
	view        View
	container   Size
}

// NewManager creates a manager with an empty model. actions may be nil; a
// nil logger uses log.Default().
func NewManager(actions StoreActions, logger *log.Logger, opts ...Option) *Manager {
	if logger == nil {
		logger = log.Default()
	}
	m := &Manager{
		actions:   actions,
		logger:    logger,
		scheduler: timeScheduler,
		padding:   DefaultPadding,
		model:     New(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// =============================================================================
// Session state
// =============================================================================

// SetCurrentFlow hands the manager a new document snapshot. The snapshot is
// read, never modified.
func (m *Manager) SetCurrentFlow(doc *flow.Document) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = doc
}

// CurrentFlow returns the last snapshot handed to the manager.
func (m *Manager) CurrentFlow() *flow.Document {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// SetHighlightedNodeName marks the node to highlight on the next sync.
func (m *Manager) SetHighlightedNodeName(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.highlighted = name
}

// SetReadOnly locks or unlocks the diagram.
func (m *Manager) SetReadOnly(readOnly bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.readOnly = readOnly
	m.model.SetLocked(readOnly)
}

// SetDiagramContainer registers the view and its visible size.
func (m *Manager) SetDiagramContainer(view View, size Size) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.view = view
	m.container = size
}

// Model returns the active model. It is only safe to use while no other
// goroutine calls the manager; shared managers must be read through Inspect.
func (m *Manager) Model() *Model {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.model
}

// Inspect calls fn with the active model while holding the manager lock.
// fn must not keep the model or call back into the manager.
func (m *Manager) Inspect(fn func(model *Model)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	fn(m.model)
}

// Counts returns the number of nodes and links in the active model.
func (m *Manager) Counts() (nodes, links int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.model.NodeCount(), m.model.LinkCount()
}

// =============================================================================
// Store -> diagram
// =============================================================================

// InitializeModel discards the current model and builds a new one from the
// current flow, then fits it into the container.
func (m *Manager) InitializeModel() {
	start := time.Now()
	m.mu.Lock()
	m.model = m.newModel()

	doc := m.current
	if doc == nil {
		view := m.view
		m.mu.Unlock()
		m.redraw(view)
		return
	}

	nodes := make([]*Node, 0, len(doc.Nodes))
	for _, fn := range doc.Nodes {
		n := m.newNode(fn)
		if err := m.model.AddNode(n); err != nil {
			m.logger.Warn("skipping node", "id", fn.ID, "name", fn.Name, "err", err)
			continue
		}
		nodes = append(nodes, n)
	}
	for _, n := range nodes {
		m.createNodeLinks(n, doc.Links)
	}
	removed := Sanitize(m.model)
	m.updateZoomLevel(nodes)

	nodeCount, linkCount := m.model.NodeCount(), m.model.LinkCount()
	view := m.view
	m.mu.Unlock()

	m.logger.Debug("initialized diagram",
		"flow", doc.Name,
		"nodes", nodeCount,
		"links", linkCount,
		"sanitized", removed)
	observability.Diagram().OnInitialize(nodeCount, linkCount, time.Since(start))
	m.redraw(view)
}

// SyncModel applies the current flow to the existing model, touching only
// what changed:
//
//  1. nodes absent from the flow are deleted with their links
//  2. unknown nodes are created and selected shortly after
//  3. nodes whose revision changed are re-synced: display fields, position,
//     ports and outbound links are rebuilt, reusing the routing points of
//     the link that previously joined the same ports
//  4. other nodes only get their display fields refreshed
//
// Links are then sanitized, the lock flag reapplied and a redraw requested.
func (m *Manager) SyncModel() SyncStats {
	start := time.Now()
	m.mu.Lock()

	var stats SyncStats
	doc := m.current
	if doc == nil {
		m.mu.Unlock()
		return stats
	}

	snapshot := sync.OnceValue(func() []flow.Link { return SerializeLinks(m.model) })

	live := make(map[string]bool, len(doc.Nodes))
	for _, fn := range doc.Nodes {
		live[fn.ID] = true
	}
	for _, n := range m.model.Nodes() {
		if !live[n.ID] {
			m.model.RemoveNode(n.ID)
			stats.Removed++
		}
	}

	var added []*Node
	isAdded := make(map[string]bool)
	for _, fn := range doc.Nodes {
		if _, ok := m.model.Node(fn.ID); ok {
			continue
		}
		if n := m.addNode(fn); n != nil {
			added = append(added, n)
			isAdded[fn.ID] = true
			stats.Added++
		}
	}

	for _, fn := range doc.Nodes {
		n, ok := m.model.Node(fn.ID)
		switch {
		case !ok, isAdded[fn.ID]:
		case n.Revision != fn.Revision:
			m.syncNode(fn, n, snapshot())
			stats.Resynced++
		default:
			m.refreshNode(fn, n)
			stats.Refreshed++
		}
	}

	for _, n := range added {
		m.createNodeLinks(n, doc.Links)
	}

	stats.Sanitized = Sanitize(m.model)
	m.model.SetLocked(m.readOnly)
	view := m.view
	m.mu.Unlock()

	m.logger.Debug("synced diagram",
		"flow", doc.Name,
		"added", stats.Added,
		"removed", stats.Removed,
		"resynced", stats.Resynced,
		"sanitized", stats.Sanitized)
	observability.Diagram().OnSync(observability.SyncEvent(stats), time.Since(start))
	m.redraw(view)
	return stats
}

// ClearModel replaces the model with an empty one.
func (m *Manager) ClearModel() {
	m.mu.Lock()
	m.model = m.newModel()
	view := m.view
	m.mu.Unlock()
	m.redraw(view)
}

func (m *Manager) newModel() *Model {
	model := New()
	model.SetLocked(m.readOnly)
	return model
}

func (m *Manager) newNode(fn flow.Node) *Node {
	n := NewNode(fn)
	m.setFlags(n)
	return n
}

func (m *Manager) setFlags(n *Node) {
	n.IsStartNode = m.current != nil && m.current.StartNode == n.Name
	n.IsHighlighted = m.highlighted != "" && m.highlighted == n.Name
}

// addNode inserts a node created since the last sync and schedules its
// selection. The callback only acts if the same model is still active and
// still contains the node.
func (m *Manager) addNode(fn flow.Node) *Node {
	n := m.newNode(fn)
	if err := m.model.AddNode(n); err != nil {
		m.logger.Warn("skipping node", "id", fn.ID, "err", err)
		return nil
	}

	model, id := m.model, n.ID
	m.scheduler.AfterFunc(SelectDelay, func() { m.selectCreated(model, id) })
	return n
}

func (m *Manager) selectCreated(model *Model, id string) {
	m.mu.Lock()
	if m.model != model {
		m.mu.Unlock()
		return
	}
	n, ok := model.Node(id)
	if !ok {
		m.mu.Unlock()
		return
	}
	n.Selected = true
	actions, view := m.actions, m.view
	m.mu.Unlock()

	if actions != nil {
		actions.SwitchFlowNode(id)
	}
	m.redraw(view)
}

func (m *Manager) syncNode(fn flow.Node, n *Node, snapshot []flow.Link) {
	n.setData(fn)
	m.setFlags(n)
	m.model.SetNext(n, fn.Next)
	n.SetPosition(fn.X, fn.Y)

	for _, p := range n.out {
		for _, l := range p.Links() {
			m.model.RemoveLink(l.id)
		}
	}
	m.createNodeLinks(n, snapshot)
	n.Revision = fn.Revision
}

// refreshNode updates display fields without touching ports or links.
func (m *Manager) refreshNode(fn flow.Node, n *Node) {
	n.Name = fn.Name
	n.Skill = fn.Skill
	n.OnEnter = slices.Clone(fn.OnEnter)
	n.OnReceive = slices.Clone(fn.OnReceive)
	m.setFlags(n)
}

// createNodeLinks wires out<i> to the "in" port of the node named by
// Next[i]. Terminal and unresolved targets produce no link. Routing points
// are copied from the existing link joining the same ports, if any.
func (m *Manager) createNodeLinks(n *Node, existing []flow.Link) {
	for i, t := range n.next {
		if t.Node == "" || t.IsTerminal() {
			continue
		}
		target := m.model.NodeByName(t.Node)
		if target == nil {
			m.logger.Debug("transition target not found", "node", n.Name, "target", t.Node)
			continue
		}

		source := n.out[i]
		var points []flow.Point
		if j := slices.IndexFunc(existing, func(l flow.Link) bool {
			return l.Matches(n.ID, target.ID, source.name)
		}); j >= 0 {
			points = existing[j].Points
		}
		m.model.AddLink(source, target.in, points)
	}
}

// =============================================================================
// Viewport
// =============================================================================

func (m *Manager) updateZoomLevel(nodes []*Node) {
	vp, ok := FitToView(nodePositions(nodes), m.container, m.padding)
	if !ok {
		return
	}
	m.model.SetZoom(vp.Zoom)
	m.model.SetOffset(vp.OffsetX, vp.OffsetY)
}

// FitToView refits the current model into the container.
func (m *Manager) FitToView() Viewport {
	m.mu.Lock()
	m.updateZoomLevel(m.model.Nodes())
	vp := m.viewport()
	view := m.view
	m.mu.Unlock()
	m.redraw(view)
	return vp
}

// Viewport returns the current zoom and offset.
func (m *Manager) Viewport() Viewport {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.viewport()
}

func (m *Manager) viewport() Viewport {
	x, y := m.model.Offset()
	return Viewport{Zoom: m.model.Zoom(), OffsetX: x, OffsetY: y}
}

// ActiveModelOffset returns the pan offset.
func (m *Manager) ActiveModelOffset() (x, y float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.model.Offset()
}

// RealPosition maps canvas-relative screen coordinates to graph space.
func (m *Manager) RealPosition(x, y float64) flow.Point {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.model.ToGraph(flow.Point{X: x, Y: y})
}

func (m *Manager) redraw(view View) {
	if view != nil {
		view.ForceUpdate()
	}
}

// =============================================================================
// Diagram -> store
// =============================================================================

// Serialize converts the model to canonical form.
func (m *Manager) Serialize() flow.Document {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Serialize(m.model)
}

// LinksRequiringUpdate returns the serialized links and true when they
// differ from the set returned last time, or nil and false otherwise.
func (m *Manager) LinksRequiringUpdate() ([]flow.Link, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	links := SerializeLinks(m.model)
	h, err := cache.HashJSON(links)
	if err != nil {
		m.logger.Warn("hash links", "err", err)
		return links, true
	}
	if m.model.LinksHash() == h {
		return nil, false
	}
	m.model.SetLinksHash(h)
	return links, true
}

// ResetLinksHash forgets the links returned by the last LinksRequiringUpdate,
// so the next call reports them again.
func (m *Manager) ResetLinksHash() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.model.SetLinksHash("")
}

// NodeProblems reports nodes with unresolved transitions.
func (m *Manager) NodeProblems() []NodeProblem {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Problems(m.model)
}

// =============================================================================
// Link maintenance
// =============================================================================

// SanitizeLinks runs the sanitizer and returns how many links it removed.
func (m *Manager) SanitizeLinks() int {
	m.mu.Lock()
	removed := Sanitize(m.model)
	view := m.view
	m.mu.Unlock()

	if removed > 0 {
		observability.Diagram().OnSanitize(removed)
		m.redraw(view)
	}
	return removed
}

// CleanPortLinks drops port references to links that no longer exist.
func (m *Manager) CleanPortLinks() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return PruneDanglingLinks(m.model)
}

// DisconnectPorts removes every link attached to the node.
func (m *Manager) DisconnectPorts(nodeID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	n, ok := m.model.Node(nodeID)
	if !ok {
		return errs.New(errs.ErrCodeNodeNotFound, "node %s not found", nodeID)
	}
	for _, p := range n.Ports() {
		for _, l := range p.Links() {
			m.model.RemoveLink(l.id)
		}
	}
	return nil
}

// =============================================================================
// Selection
// =============================================================================

// SelectedNode returns the first selected node, or nil.
func (m *Manager) SelectedNode() *Node {
	m.mu.Lock()
	defer m.mu.Unlock()
	if sel := m.model.SelectedNodes(); len(sel) > 0 {
		return sel[0]
	}
	return nil
}

// UnselectAllElements clears the selection.
func (m *Manager) UnselectAllElements() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.model.UnselectAll()
}
