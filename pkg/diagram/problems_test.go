package diagram

import (
	"testing"

	"github.com/matzehuels/flowdiagram/pkg/flow"
)

func TestProblems(t *testing.T) {
	m := buildModel(t,
		node("a", "A", "B", "missing", "END"),
		node("b", "B", "end", "other.flow"),
		node("c", "C", "gone", "also-gone"),
	)
	c := mustNode(t, m, "c")
	m.SetNext(c, append(c.Next(), flow.Transition{Condition: "else", Node: ""}))

	got := Problems(m)
	want := []NodeProblem{
		{NodeName: "A", MissingPorts: 1},
		{NodeName: "C", MissingPorts: 3},
	}
	if len(got) != len(want) {
		t.Fatalf("Problems = %+v, want %+v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("problem %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestProblemsClean(t *testing.T) {
	m := buildModel(t, node("a", "A", "B"), node("b", "B", "END"))
	if got := Problems(m); len(got) != 0 {
		t.Errorf("Problems = %+v, want none", got)
	}
}

func TestManagerNodeProblems(t *testing.T) {
	m, _, _, _ := newTestManager(doc(node("a", "A", "missing_node")))
	m.InitializeModel()

	got := m.NodeProblems()
	if len(got) != 1 || got[0].NodeName != "A" || got[0].MissingPorts != 1 {
		t.Errorf("NodeProblems = %+v", got)
	}
}
