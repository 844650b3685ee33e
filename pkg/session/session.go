// Package session binds a stored flow to a live diagram.
//
// A [Session] owns one flow document, the [diagram.Manager] drawing it and
// the [store.Store] persisting it. Two directions of change flow through it:
//
//   - store side: [Session.Apply] and [Session.Reload] replace the document
//     and let the manager sync incrementally
//   - diagram side: [Session.Move], [Session.Connect], [Session.Disconnect]
//     and [Session.DeleteNode] edit the graph, then [Session.Commit] folds
//     the serialized graph back into the document, bumps the revision of
//     every node whose position or transitions changed and persists it
//
// # Usage
//
//	s, err := session.Open(ctx, st, "main.flow.json", session.Options{Logger: logger})
//	if err != nil {
//	    return err
//	}
//	if err := s.Move(ctx, "n1", 120, 40); err != nil {
//	    return err
//	}
//	problems := s.Problems()
//
// Sessions are safe for concurrent use; edits are serialized.
package session

import (
	"context"
	"slices"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/matzehuels/flowdiagram/pkg/diagram"
	errs "github.com/matzehuels/flowdiagram/pkg/errors"
	"github.com/matzehuels/flowdiagram/pkg/flow"
	"github.com/matzehuels/flowdiagram/pkg/store"
)

// Options configures a session.
type Options struct {
	Logger    *log.Logger
	Size      diagram.Size
	Padding   float64
	ReadOnly  bool
	View      diagram.View
	Scheduler diagram.Scheduler
}

// CommitResult describes what [Session.Commit] wrote.
type CommitResult struct {
	Changed      []string `json:"changed"`
	Removed      []string `json:"removed"`
	LinksChanged bool     `json:"linksChanged"`
	Persisted    bool     `json:"persisted"`
}

// Session is an editing session on one flow.
type Session struct {
	mu      sync.Mutex
	store   store.Store
	name    string
	doc     *flow.Document
	manager *diagram.Manager
	logger  *log.Logger

	focusMu sync.Mutex
	focused string
}

// Open loads name from st and builds its diagram.
func Open(ctx context.Context, st store.Store, name string, opts Options) (*Session, error) {
	doc, err := st.Get(ctx, name)
	if err != nil {
		return nil, err
	}
	return newSession(st, doc, opts), nil
}

// Create stores doc as a new flow and opens a session on it. It fails with
// CONFLICT when a flow of that name exists.
func Create(ctx context.Context, st store.Store, doc *flow.Document, opts Options) (*Session, error) {
	if err := store.ValidateName(doc.Name); err != nil {
		return nil, err
	}
	if _, err := st.Get(ctx, doc.Name); err == nil {
		return nil, errs.New(errs.ErrCodeConflict, "flow %s already exists", doc.Name)
	} else if !errs.Is(err, errs.ErrCodeFlowNotFound) {
		return nil, err
	}
	doc = doc.Clone()
	doc.Normalize()
	if err := st.Put(ctx, doc); err != nil {
		return nil, err
	}
	return newSession(st, doc, opts), nil
}

func newSession(st store.Store, doc *flow.Document, opts Options) *Session {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	s := &Session{store: st, name: doc.Name, doc: doc, logger: logger}

	mopts := []diagram.Option{diagram.WithScheduler(opts.Scheduler)}
	if opts.Padding > 0 {
		mopts = append(mopts, diagram.WithPadding(opts.Padding))
	}
	s.manager = diagram.NewManager(s, logger, mopts...)
	s.manager.SetDiagramContainer(opts.View, opts.Size)
	s.manager.SetReadOnly(opts.ReadOnly)
	s.manager.SetCurrentFlow(doc)
	s.manager.InitializeModel()
	s.manager.LinksRequiringUpdate()
	return s
}

// Name returns the flow name.
func (s *Session) Name() string { return s.name }

// Manager returns the diagram manager.
func (s *Session) Manager() *diagram.Manager { return s.manager }

// Document returns a copy of the current document.
func (s *Session) Document() *flow.Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.Clone()
}

// SwitchFlowNode records the node the editor focuses. The diagram calls it
// when it selects a newly created node.
func (s *Session) SwitchFlowNode(id string) {
	s.focusMu.Lock()
	defer s.focusMu.Unlock()
	s.focused = id
}

// Focused returns the ID of the focused node, or "".
func (s *Session) Focused() string {
	s.focusMu.Lock()
	defer s.focusMu.Unlock()
	return s.focused
}

// SetHighlightedNode marks a node by name and re-syncs display flags.
func (s *Session) SetHighlightedNode(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.manager.SetHighlightedNodeName(name)
	s.manager.SyncModel()
}

// =============================================================================
// Store -> diagram
// =============================================================================

// Apply persists doc as the new state of the flow and syncs the diagram.
// Callers editing a node must bump its Revision for the diagram to rebuild
// its links.
func (s *Session) Apply(ctx context.Context, doc *flow.Document) (diagram.SyncStats, error) {
	if doc.Name != s.name {
		return diagram.SyncStats{}, errs.New(errs.ErrCodeInvalidInput,
			"document %q does not belong to session %q", doc.Name, s.name)
	}
	doc = doc.Clone()

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.apply(ctx, doc)
}

// apply stores doc, which the session now owns, and syncs the diagram.
// s.mu must be held.
func (s *Session) apply(ctx context.Context, doc *flow.Document) (diagram.SyncStats, error) {
	doc.Normalize()
	if err := s.store.Put(ctx, doc); err != nil {
		return diagram.SyncStats{}, err
	}
	return s.setDocument(doc), nil
}

// Reload re-reads the flow from the store and syncs the diagram.
func (s *Session) Reload(ctx context.Context) (diagram.SyncStats, error) {
	doc, err := s.store.Get(ctx, s.name)
	if err != nil {
		return diagram.SyncStats{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.setDocument(doc), nil
}

func (s *Session) setDocument(doc *flow.Document) diagram.SyncStats {
	s.doc = doc
	s.manager.SetCurrentFlow(doc)
	stats := s.manager.SyncModel()
	s.manager.LinksRequiringUpdate()
	return stats
}

// AddNode appends a node to the flow. An empty ID is replaced by a UUID.
// Node names must be unique within a flow.
func (s *Session) AddNode(ctx context.Context, n flow.Node) (flow.Node, error) {
	if n.Name == "" {
		return flow.Node{}, errs.New(errs.ErrCodeInvalidInput, "node name is required")
	}
	if n.ID == "" {
		n.ID = uuid.NewString()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc := s.doc.Clone()
	if doc.NodeByID(n.ID) != nil {
		return flow.Node{}, errs.New(errs.ErrCodeConflict, "node %s already exists", n.ID)
	}
	if doc.NodeByName(n.Name) != nil {
		return flow.Node{}, errs.New(errs.ErrCodeConflict, "node name %q is taken", n.Name)
	}
	doc.Nodes = append(doc.Nodes, n.Clone())

	if _, err := s.apply(ctx, doc); err != nil {
		return flow.Node{}, err
	}
	return s.doc.NodeByID(n.ID).Clone(), nil
}

// =============================================================================
// Diagram -> store
// =============================================================================

// Move drags a node and commits.
func (s *Session) Move(ctx context.Context, id string, x, y float64) error {
	if err := s.manager.MoveNode(id, x, y); err != nil {
		return err
	}
	_, err := s.Commit(ctx)
	return err
}

// Connect draws a link and commits. It returns the link in canonical form.
func (s *Session) Connect(ctx context.Context, sourceID, sourcePort, targetID, targetPort string, points []flow.Point) (flow.Link, error) {
	l, err := s.manager.ConnectPorts(sourceID, sourcePort, targetID, targetPort, points)
	if err != nil {
		return flow.Link{}, err
	}
	if _, err := s.Commit(ctx); err != nil {
		return flow.Link{}, err
	}
	return l, nil
}

// Disconnect removes the link leaving an output port and commits. The
// transition keeps its target.
func (s *Session) Disconnect(ctx context.Context, nodeID, port string) error {
	id, _, ok := s.manager.LinkAt(nodeID, port)
	if !ok {
		return errs.New(errs.ErrCodeLinkNotFound, "no link on %s.%s", nodeID, port)
	}
	if err := s.manager.RemoveLink(id); err != nil {
		return err
	}
	_, err := s.Commit(ctx)
	return err
}

// DeleteNode removes a node with its links and commits. Transitions of other
// nodes targeting it are kept and show up in [Session.Problems].
func (s *Session) DeleteNode(ctx context.Context, id string) error {
	if err := s.manager.RemoveNode(id); err != nil {
		return err
	}
	_, err := s.Commit(ctx)
	return err
}

// Commit folds the serialized diagram into the document. Nodes whose
// position or transitions changed get their revision bumped; nodes missing
// from the diagram are dropped; the link list is replaced when it changed.
// Nothing is written when nothing changed.
func (s *Session) Commit(ctx context.Context) (CommitResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var res CommitResult
	graph := s.manager.Serialize()
	byID := make(map[string]flow.Node, len(graph.Nodes))
	for _, n := range graph.Nodes {
		byID[n.ID] = n
	}

	doc := s.doc.Clone()
	kept := doc.Nodes[:0]
	for _, n := range doc.Nodes {
		g, ok := byID[n.ID]
		if !ok {
			res.Removed = append(res.Removed, n.ID)
			continue
		}
		if n.X != g.X || n.Y != g.Y || !slices.Equal(n.Next, g.Next) {
			n.X, n.Y = g.X, g.Y
			n.Next = g.Next
			n.Revision++
			res.Changed = append(res.Changed, n.ID)
		}
		kept = append(kept, n)
	}
	doc.Nodes = kept

	if links, changed := s.manager.LinksRequiringUpdate(); changed {
		doc.Links = links
		res.LinksChanged = true
	}

	if len(res.Changed) == 0 && len(res.Removed) == 0 && !res.LinksChanged {
		return res, nil
	}
	if err := s.store.Put(ctx, doc); err != nil {
		// Forget the link hash so the next commit retries the links.
		s.manager.ResetLinksHash()
		return res, err
	}
	res.Persisted = true
	s.setDocument(doc)

	s.logger.Debug("committed flow",
		"flow", s.name,
		"changed", len(res.Changed),
		"removed", len(res.Removed),
		"links", res.LinksChanged)
	return res, nil
}

// =============================================================================
// Queries
// =============================================================================

// Problems reports nodes with unresolved transitions.
func (s *Session) Problems() []diagram.NodeProblem { return s.manager.NodeProblems() }

// Viewport returns the current zoom and offset.
func (s *Session) Viewport() diagram.Viewport { return s.manager.Viewport() }

// FitToView refits the diagram into its container.
func (s *Session) FitToView() diagram.Viewport { return s.manager.FitToView() }
