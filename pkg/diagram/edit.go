package diagram

import (
	errs "github.com/matzehuels/flowdiagram/pkg/errors"
	"github.com/matzehuels/flowdiagram/pkg/flow"
)

// User edits. Each one is refused on a locked diagram, runs to completion
// and leaves a sanitized model behind. The caller serializes afterwards and
// hands the result to the store.

// MoveNode drags a node to a new position.
func (m *Manager) MoveNode(id string, x, y float64) error {
	m.mu.Lock()
	n, err := m.editableNode(id)
	if err != nil {
		m.mu.Unlock()
		return err
	}
	n.SetPosition(x, y)
	view := m.view
	m.mu.Unlock()

	m.redraw(view)
	return nil
}

// ConnectPorts draws a link between two ports and returns it in canonical
// form. Connecting an output port that already has a link replaces that
// link. A connection the sanitizer rejects (in to in, out to out, a node to
// itself) yields ErrCodeInvalidPort.
func (m *Manager) ConnectPorts(sourceID, sourcePort, targetID, targetPort string, points []flow.Point) (flow.Link, error) {
	m.mu.Lock()
	src, err := m.editablePort(sourceID, sourcePort)
	if err != nil {
		m.mu.Unlock()
		return flow.Link{}, err
	}
	tgt, err := m.editablePort(targetID, targetPort)
	if err != nil {
		m.mu.Unlock()
		return flow.Link{}, err
	}
	if src.node == tgt.node || src.IsIn() == tgt.IsIn() {
		m.mu.Unlock()
		return flow.Link{}, errs.New(errs.ErrCodeInvalidPort,
			"cannot connect %s.%s to %s.%s", sourceID, sourcePort, targetID, targetPort)
	}

	l := m.model.AddLink(src, tgt, points)
	Sanitize(m.model)
	if _, ok := m.model.Link(l.id); !ok {
		m.mu.Unlock()
		return flow.Link{}, errs.New(errs.ErrCodeInvalidPort,
			"cannot connect %s.%s to %s.%s", sourceID, sourcePort, targetID, targetPort)
	}
	rec := canonicalLink(l)
	view := m.view
	m.mu.Unlock()

	m.redraw(view)
	return rec, nil
}

// RemoveLink deletes a link by ID.
func (m *Manager) RemoveLink(id string) error {
	m.mu.Lock()
	if m.model.Locked() {
		m.mu.Unlock()
		return errs.New(errs.ErrCodeReadOnly, "diagram is read-only")
	}
	if !m.model.RemoveLink(id) {
		m.mu.Unlock()
		return errs.New(errs.ErrCodeLinkNotFound, "link %s not found", id)
	}
	view := m.view
	m.mu.Unlock()

	m.redraw(view)
	return nil
}

// RemoveNode deletes a node and its links.
func (m *Manager) RemoveNode(id string) error {
	m.mu.Lock()
	if _, err := m.editableNode(id); err != nil {
		m.mu.Unlock()
		return err
	}
	m.model.RemoveNode(id)
	Sanitize(m.model)
	view := m.view
	m.mu.Unlock()

	m.redraw(view)
	return nil
}

// LinkAt returns the canonical form of the link leaving an output port.
func (m *Manager) LinkAt(nodeID, port string) (string, flow.Link, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	n, ok := m.model.Node(nodeID)
	if !ok {
		return "", flow.Link{}, false
	}
	p := n.Port(port)
	if p == nil || len(p.links) == 0 {
		return "", flow.Link{}, false
	}
	l := p.links[0]
	return l.id, canonicalLink(l), true
}

func (m *Manager) editableNode(id string) (*Node, error) {
	if m.model.Locked() {
		return nil, errs.New(errs.ErrCodeReadOnly, "diagram is read-only")
	}
	n, ok := m.model.Node(id)
	if !ok {
		return nil, errs.New(errs.ErrCodeNodeNotFound, "node %s not found", id)
	}
	return n, nil
}

func (m *Manager) editablePort(nodeID, port string) (*Port, error) {
	n, err := m.editableNode(nodeID)
	if err != nil {
		return nil, err
	}
	p := n.Port(port)
	if p == nil {
		return nil, errs.New(errs.ErrCodeInvalidPort, "node %s has no port %q", nodeID, port)
	}
	return p, nil
}
