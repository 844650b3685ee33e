package diagram

import (
	"io"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/flowdiagram/pkg/flow"
)

func node(id, name string, next ...string) flow.Node {
	n := flow.Node{ID: id, Name: name, Type: flow.TypeStandard, Next: []flow.Transition{}}
	for _, target := range next {
		n.Next = append(n.Next, flow.Transition{Condition: "true", Node: target})
	}
	return n
}

func doc(nodes ...flow.Node) *flow.Document {
	return &flow.Document{Name: "test.flow.json", StartNode: nodes[0].Name, Nodes: nodes}
}

func buildModel(t *testing.T, nodes ...flow.Node) *Model {
	t.Helper()
	m := New()
	for _, fn := range nodes {
		if err := m.AddNode(NewNode(fn)); err != nil {
			t.Fatalf("AddNode(%s): %v", fn.ID, err)
		}
	}
	return m
}

func mustNode(t *testing.T, m *Model, id string) *Node {
	t.Helper()
	n, ok := m.Node(id)
	if !ok {
		t.Fatalf("node %s not found", id)
	}
	return n
}

func connect(t *testing.T, m *Model, src, srcPort, tgt, tgtPort string) *Link {
	t.Helper()
	s := mustNode(t, m, src).Port(srcPort)
	d := mustNode(t, m, tgt).Port(tgtPort)
	if s == nil || d == nil {
		t.Fatalf("missing port %s.%s or %s.%s", src, srcPort, tgt, tgtPort)
	}
	return m.AddLink(s, d, nil)
}

// fakeScheduler captures deferred tasks so tests can run them explicitly.
type fakeScheduler struct {
	mu    sync.Mutex
	tasks []func()
	delay time.Duration
}

func (s *fakeScheduler) AfterFunc(d time.Duration, f func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delay = d
	s.tasks = append(s.tasks, f)
}

func (s *fakeScheduler) runAll() {
	s.mu.Lock()
	tasks := s.tasks
	s.tasks = nil
	s.mu.Unlock()
	for _, f := range tasks {
		f()
	}
}

type recordingActions struct {
	switched []string
}

func (a *recordingActions) SwitchFlowNode(id string) { a.switched = append(a.switched, id) }

type countingView struct {
	updates int
}

func (v *countingView) ForceUpdate() { v.updates++ }

func newTestManager(d *flow.Document) (*Manager, *fakeScheduler, *recordingActions, *countingView) {
	sched := &fakeScheduler{}
	actions := &recordingActions{}
	view := &countingView{}
	logger := log.New(io.Discard)
	m := NewManager(actions, logger, WithScheduler(sched))
	m.SetDiagramContainer(view, Size{})
	m.SetCurrentFlow(d)
	return m, sched, actions, view
}
