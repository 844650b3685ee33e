// Package flow defines the canonical flow document exchanged with the store.
//
// A flow document describes a bot conversation graph: nodes with ordered
// transitions, plus links that remember user-adjusted routing points. It is
// the store-owned source of truth; the in-memory diagram (pkg/diagram) is
// derived from it and serialized back into it.
//
// # Transitions
//
// A [Transition] points at a target node by name. Two kinds of target are
// terminal and never become links in the diagram:
//
//	flow.IsEnd("END")              // end of conversation
//	flow.IsSubflow("billing.flow") // jump into another flow
//
// The position of a transition inside [Node.Next] is meaningful: Next[i]
// is wired to the output port "out<i>" of the diagram node.
//
// # Files
//
// Documents are stored as JSON:
//
//	doc, err := flow.ReadFile("main.flow.json")
//	if err != nil {
//	    return err
//	}
//	err = flow.WriteFile(doc, "main.flow.json")
package flow
