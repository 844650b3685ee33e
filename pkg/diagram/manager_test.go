package diagram

import (
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	errs "github.com/matzehuels/flowdiagram/pkg/errors"
	"github.com/matzehuels/flowdiagram/pkg/flow"
	"github.com/matzehuels/flowdiagram/pkg/observability"
)

func TestInitializeModel(t *testing.T) {
	d := doc(
		node("n1", "entry", "greet"),
		node("n2", "greet", "END"),
	)
	m, _, _, view := newTestManager(d)
	m.SetHighlightedNodeName("greet")
	m.InitializeModel()

	model := m.Model()
	if model.NodeCount() != 2 || model.LinkCount() != 1 {
		t.Fatalf("nodes=%d links=%d", model.NodeCount(), model.LinkCount())
	}
	if !mustNode(t, model, "n1").IsStartNode || mustNode(t, model, "n2").IsStartNode {
		t.Error("start flag wrong")
	}
	if !mustNode(t, model, "n2").IsHighlighted || mustNode(t, model, "n1").IsHighlighted {
		t.Error("highlight flag wrong")
	}
	if view.updates != 1 {
		t.Errorf("view updates = %d, want 1", view.updates)
	}
}

func TestInitializeModelRestoresPoints(t *testing.T) {
	d := doc(node("n1", "entry", "greet"), node("n2", "greet"))
	d.Links = []flow.Link{{Source: "n1", SourcePort: "out0", Target: "n2", Points: []flow.Point{{X: 5, Y: 5}}}}

	m, _, _, _ := newTestManager(d)
	m.InitializeModel()

	links := m.Model().Links()
	if len(links) != 1 || len(links[0].Points) != 1 || links[0].Points[0] != (flow.Point{X: 5, Y: 5}) {
		t.Errorf("points not restored: %+v", links)
	}
}

func TestInitializeModelNilFlow(t *testing.T) {
	m, _, _, view := newTestManager(nil)
	m.InitializeModel()

	if m.Model().NodeCount() != 0 {
		t.Error("expected an empty model")
	}
	if view.updates != 1 {
		t.Errorf("view updates = %d", view.updates)
	}
}

func TestInitializeModelFits(t *testing.T) {
	d := doc(node("n1", "A"), node("n2", "B"))
	d.Nodes[1].X, d.Nodes[1].Y = 400, 300

	m, _, _, view := newTestManager(d)
	m.SetDiagramContainer(view, Size{Width: 800, Height: 600})
	m.InitializeModel()

	vp := m.Viewport()
	if vp.Zoom != 1 || vp.OffsetX != 100 || vp.OffsetY != 100 {
		t.Errorf("viewport = %+v, want zoom 1 offset (100, 100)", vp)
	}
	if x, y := m.ActiveModelOffset(); x != 100 || y != 100 {
		t.Errorf("ActiveModelOffset = (%v, %v)", x, y)
	}
}

func TestInitializeModelSkipsFitWithoutContainer(t *testing.T) {
	d := doc(node("n1", "A"))
	d.Nodes[0].X = 5000

	m, _, _, _ := newTestManager(d)
	m.InitializeModel()

	if vp := m.Viewport(); vp.Zoom != 1 || vp.OffsetX != 0 || vp.OffsetY != 0 {
		t.Errorf("viewport = %+v, want the default", vp)
	}
}

func TestSyncModelMinimal(t *testing.T) {
	d := doc(
		node("n1", "entry", "greet"),
		node("n2", "greet", "bye"),
		node("n3", "bye", "END"),
	)
	m, _, _, _ := newTestManager(d)
	m.InitializeModel()

	before := m.Model().Links()
	n2Before := mustNode(t, m.Model(), "n2")

	next := d.Clone()
	next.Nodes[0].OnEnter = []string{"changed"}
	m.SetCurrentFlow(next)
	stats := m.SyncModel()

	if stats.Added != 0 || stats.Removed != 0 || stats.Resynced != 0 || stats.Sanitized != 0 {
		t.Errorf("stats = %+v, want only refreshes", stats)
	}
	if stats.Refreshed != 3 {
		t.Errorf("refreshed = %d, want 3", stats.Refreshed)
	}
	after := m.Model().Links()
	if len(after) != len(before) {
		t.Fatalf("links %d -> %d", len(before), len(after))
	}
	for i := range before {
		if before[i] != after[i] {
			t.Errorf("link %d was rebuilt", i)
		}
	}
	if mustNode(t, m.Model(), "n2") != n2Before {
		t.Error("untouched node was replaced")
	}
	if got := mustNode(t, m.Model(), "n1").OnEnter; len(got) != 1 || got[0] != "changed" {
		t.Errorf("display field not refreshed: %v", got)
	}
}

func TestSyncModelRefreshKeepsStructure(t *testing.T) {
	d := doc(node("n1", "entry", "greet"), node("n2", "greet"))
	m, _, _, _ := newTestManager(d)
	m.InitializeModel()

	// Same revision: position and transitions are ignored.
	next := d.Clone()
	next.Nodes[0].X = 999
	next.Nodes[0].Next = nil
	m.SetCurrentFlow(next)
	m.SyncModel()

	n1 := mustNode(t, m.Model(), "n1")
	if n1.X != 0 || len(n1.OutPorts()) != 1 || m.Model().LinkCount() != 1 {
		t.Errorf("refresh touched structure: x=%v ports=%d links=%d", n1.X, len(n1.OutPorts()), m.Model().LinkCount())
	}
}

func TestSyncModelResyncPreservesPoints(t *testing.T) {
	d := doc(
		node("n1", "entry", "greet"),
		node("n2", "greet"),
		node("n3", "other"),
	)
	m, _, _, _ := newTestManager(d)
	m.InitializeModel()

	link := m.Model().Links()[0]
	link.Points = []flow.Point{{X: 1, Y: 2}, {X: 3, Y: 4}}

	next := d.Clone()
	next.Nodes[0].Revision++
	next.Nodes[0].X = 50
	next.Nodes[0].Next = append(next.Nodes[0].Next, flow.Transition{Condition: "else", Node: "other"})
	m.SetCurrentFlow(next)
	stats := m.SyncModel()

	if stats.Resynced != 1 {
		t.Errorf("resynced = %d, want 1", stats.Resynced)
	}
	n1 := mustNode(t, m.Model(), "n1")
	if n1.X != 50 || n1.Revision != next.Nodes[0].Revision {
		t.Errorf("n1 = x %v rev %d", n1.X, n1.Revision)
	}
	if len(n1.OutPorts()) != 2 {
		t.Fatalf("out ports = %d, want 2", len(n1.OutPorts()))
	}

	links := SerializeLinks(m.Model())
	if len(links) != 2 {
		t.Fatalf("links = %+v", links)
	}
	var kept, fresh *flow.Link
	for i := range links {
		switch {
		case links[i].Matches("n1", "n2", "out0"):
			kept = &links[i]
		case links[i].Matches("n1", "n3", "out1"):
			fresh = &links[i]
		}
	}
	if kept == nil || fresh == nil {
		t.Fatalf("unexpected links %+v", links)
	}
	if len(kept.Points) != 2 || kept.Points[1] != (flow.Point{X: 3, Y: 4}) {
		t.Errorf("waypoints lost: %+v", kept.Points)
	}
	if len(fresh.Points) != 0 {
		t.Errorf("new link points = %+v", fresh.Points)
	}
}

func TestSyncModelRemovesNodes(t *testing.T) {
	d := doc(node("n1", "entry", "greet"), node("n2", "greet"))
	m, _, _, _ := newTestManager(d)
	m.InitializeModel()

	next := d.Clone()
	next.Nodes = next.Nodes[:1]
	m.SetCurrentFlow(next)
	stats := m.SyncModel()

	if stats.Removed != 1 {
		t.Errorf("removed = %d", stats.Removed)
	}
	if m.Model().LinkCount() != 0 {
		t.Errorf("links = %d, want 0", m.Model().LinkCount())
	}
	if got := len(mustNode(t, m.Model(), "n1").Port("out0").Links()); got != 0 {
		t.Errorf("n1.out0 links = %d", got)
	}
}

func TestSyncModelSelectsNewNode(t *testing.T) {
	d := doc(node("n1", "entry"))
	m, sched, actions, view := newTestManager(d)
	m.InitializeModel()

	next := d.Clone()
	next.Nodes[0].Next = []flow.Transition{{Condition: "true", Node: "fresh"}}
	next.Nodes[0].Revision++
	next.Nodes = append(next.Nodes, node("n2", "fresh", "entry"))
	m.SetCurrentFlow(next)
	stats := m.SyncModel()

	if stats.Added != 1 {
		t.Fatalf("added = %d", stats.Added)
	}
	if m.Model().LinkCount() != 2 {
		t.Errorf("links = %d, want both directions", m.Model().LinkCount())
	}
	if len(sched.tasks) != 1 || sched.delay != SelectDelay {
		t.Fatalf("scheduled %d tasks with delay %v", len(sched.tasks), sched.delay)
	}
	if mustNode(t, m.Model(), "n2").Selected {
		t.Error("node selected before the delay elapsed")
	}

	updates := view.updates
	sched.runAll()

	if !mustNode(t, m.Model(), "n2").Selected {
		t.Error("new node not selected")
	}
	if len(actions.switched) != 1 || actions.switched[0] != "n2" {
		t.Errorf("SwitchFlowNode calls = %v", actions.switched)
	}
	if view.updates != updates+1 {
		t.Errorf("view updates = %d, want %d", view.updates, updates+1)
	}
}

func TestSyncModelDeferredSelectionIsNoopAfterRemoval(t *testing.T) {
	d := doc(node("n1", "entry"))
	m, sched, actions, _ := newTestManager(d)
	m.InitializeModel()

	withNew := d.Clone()
	withNew.Nodes = append(withNew.Nodes, node("n2", "fresh"))
	m.SetCurrentFlow(withNew)
	m.SyncModel()

	m.SetCurrentFlow(d)
	m.SyncModel()
	sched.runAll()

	if len(actions.switched) != 0 {
		t.Errorf("SwitchFlowNode called for removed node: %v", actions.switched)
	}
}

func TestSyncModelDeferredSelectionIsNoopAfterReinit(t *testing.T) {
	d := doc(node("n1", "entry"))
	m, sched, actions, _ := newTestManager(d)
	m.InitializeModel()

	withNew := d.Clone()
	withNew.Nodes = append(withNew.Nodes, node("n2", "fresh"))
	m.SetCurrentFlow(withNew)
	m.SyncModel()
	m.InitializeModel()
	sched.runAll()

	if len(actions.switched) != 0 {
		t.Errorf("SwitchFlowNode called on a stale model: %v", actions.switched)
	}
	if mustNode(t, m.Model(), "n2").Selected {
		t.Error("node of the new model selected by a stale task")
	}
}

func TestSyncModelTerminalTargets(t *testing.T) {
	d := doc(node("n1", "entry", "END", "billing.flow", "end"))
	m, _, _, _ := newTestManager(d)
	m.InitializeModel()

	if got := m.Model().LinkCount(); got != 0 {
		t.Errorf("links = %d, want 0", got)
	}
	if got := m.NodeProblems(); len(got) != 0 {
		t.Errorf("problems = %+v", got)
	}
	out := m.Serialize().Nodes[0].Next
	if len(out) != 3 || out[0].Node != "END" || out[1].Node != "billing.flow" || out[2].Node != "end" {
		t.Errorf("next = %+v", out)
	}
}

func TestTerminalTargetsIgnoreSameNamedNodes(t *testing.T) {
	d := doc(
		node("n1", "entry", "END", "billing.flow"),
		node("n2", "END"),
		node("n3", "billing.flow"),
	)
	m, _, _, _ := newTestManager(d)
	m.InitializeModel()

	if got := m.Model().LinkCount(); got != 0 {
		t.Errorf("links after init = %d, want 0", got)
	}
	if got := m.NodeProblems(); len(got) != 0 {
		t.Errorf("problems = %+v", got)
	}

	// A re-sync of the source node must not link to them either.
	next := d.Clone()
	next.Nodes[0].Revision++
	m.SetCurrentFlow(next)
	m.SyncModel()
	if got := m.Model().LinkCount(); got != 0 {
		t.Errorf("links after sync = %d, want 0", got)
	}
	out := m.Serialize().Nodes[0].Next
	if len(out) != 2 || out[0].Node != "END" || out[1].Node != "billing.flow" {
		t.Errorf("next = %+v", out)
	}
}

func TestSyncModelReadOnly(t *testing.T) {
	d := doc(node("n1", "entry"))
	m, _, _, _ := newTestManager(d)
	m.SetReadOnly(true)
	m.InitializeModel()

	if !m.Model().Locked() {
		t.Error("model not locked after init")
	}
	m.SyncModel()
	if !m.Model().Locked() {
		t.Error("model not locked after sync")
	}
	m.SetReadOnly(false)
	if m.Model().Locked() {
		t.Error("model still locked")
	}
}

func TestSyncModelHook(t *testing.T) {
	defer observability.Reset()

	var got observability.SyncEvent
	observability.SetDiagramHooks(syncRecorder{ev: &got})

	d := doc(node("n1", "entry"))
	m, _, _, _ := newTestManager(d)
	m.InitializeModel()

	next := d.Clone()
	next.Nodes = append(next.Nodes, node("n2", "fresh"))
	m.SetCurrentFlow(next)
	m.SyncModel()

	if got.Added != 1 || got.Refreshed != 1 {
		t.Errorf("hook saw %+v", got)
	}
}

type syncRecorder struct {
	observability.NoopDiagramHooks
	ev *observability.SyncEvent
}

func (r syncRecorder) OnSync(ev observability.SyncEvent, _ time.Duration) { *r.ev = ev }

func TestLinksRequiringUpdate(t *testing.T) {
	d := doc(node("n1", "entry", "greet"), node("n2", "greet"))
	m, _, _, _ := newTestManager(d)
	m.InitializeModel()

	links, changed := m.LinksRequiringUpdate()
	if !changed || len(links) != 1 {
		t.Fatalf("first call = %v, %v", links, changed)
	}
	if links, changed := m.LinksRequiringUpdate(); changed || links != nil {
		t.Errorf("unchanged set reported: %v, %v", links, changed)
	}

	m.Model().Links()[0].Points = []flow.Point{{X: 1, Y: 1}}
	if _, changed := m.LinksRequiringUpdate(); !changed {
		t.Error("moved waypoint not reported")
	}
}

func TestDisconnectPorts(t *testing.T) {
	d := doc(node("n1", "entry", "greet"), node("n2", "greet", "entry"))
	m, _, _, _ := newTestManager(d)
	m.InitializeModel()

	if err := m.DisconnectPorts("n2"); err != nil {
		t.Fatalf("DisconnectPorts: %v", err)
	}
	if m.Model().LinkCount() != 0 {
		t.Errorf("links = %d", m.Model().LinkCount())
	}
	if err := m.DisconnectPorts("nope"); errs.GetCode(err) != errs.ErrCodeNodeNotFound {
		t.Errorf("err = %v", err)
	}
}

func TestSelection(t *testing.T) {
	d := doc(node("n1", "entry"), node("n2", "greet"))
	m, _, _, _ := newTestManager(d)
	m.InitializeModel()

	if m.SelectedNode() != nil {
		t.Error("nothing should be selected")
	}
	mustNode(t, m.Model(), "n2").Selected = true
	if n := m.SelectedNode(); n == nil || n.ID != "n2" {
		t.Errorf("SelectedNode = %v", n)
	}
	m.UnselectAllElements()
	if m.SelectedNode() != nil {
		t.Error("selection not cleared")
	}
}

func TestClearModel(t *testing.T) {
	m, _, _, _ := newTestManager(doc(node("n1", "entry")))
	m.InitializeModel()
	m.ClearModel()
	if m.Model().NodeCount() != 0 {
		t.Error("model not cleared")
	}
}

func TestLockedAccessors(t *testing.T) {
	m, _, _, _ := newTestManager(doc(node("n1", "entry", "greet"), node("n2", "greet")))
	m.InitializeModel()

	if nodes, links := m.Counts(); nodes != 2 || links != 1 {
		t.Errorf("Counts() = %d, %d; want 2, 1", nodes, links)
	}

	var names []string
	m.Inspect(func(model *Model) {
		for _, n := range model.Nodes() {
			names = append(names, n.Name)
		}
	})
	if len(names) != 2 || names[0] != "entry" {
		t.Errorf("Inspect saw %v", names)
	}

	if _, changed := m.LinksRequiringUpdate(); !changed {
		t.Fatal("first LinksRequiringUpdate reported no change")
	}
	if _, changed := m.LinksRequiringUpdate(); changed {
		t.Fatal("unchanged links reported as changed")
	}
	m.ResetLinksHash()
	if links, changed := m.LinksRequiringUpdate(); !changed || len(links) != 1 {
		t.Errorf("after ResetLinksHash: %d links, changed=%v", len(links), changed)
	}
}

func TestInspectExcludesSync(t *testing.T) {
	d := doc(node("n1", "entry", "greet"), node("n2", "greet"))
	m, _, _, _ := newTestManager(d)
	m.InitializeModel()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := range 200 {
			next := d.Clone()
			next.Nodes[0].X = float64(i)
			next.Nodes[0].Revision = uint64(i + 1)
			m.SetCurrentFlow(next)
			m.SyncModel()
		}
	}()
	go func() {
		defer wg.Done()
		for range 200 {
			m.Inspect(func(model *Model) {
				if links := SerializeLinks(model); len(links) != 1 {
					t.Errorf("mid-sync snapshot has %d links", len(links))
				}
			})
		}
	}()
	wg.Wait()
}

func TestNewManagerDefaults(t *testing.T) {
	m := NewManager(nil, nil)
	if m.logger != log.Default() {
		t.Error("nil logger should fall back to log.Default()")
	}
	if m.padding != DefaultPadding {
		t.Errorf("padding = %v, want %v", m.padding, DefaultPadding)
	}
}
