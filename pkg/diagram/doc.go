// Package diagram keeps the node/link drawing of a conversation flow in step
// with the flow document a store owns.
//
// # Overview
//
// A flow document ([flow.Document]) is a list of nodes, each with ordered
// transitions naming their targets. The editor draws it as a graph: every
// node owns one input port "in" and one output port "out<i>" per
// transition, and a link joins out<i> of the source to "in" of the target.
//
// The package has four parts:
//
//   - [Model]: nodes, ports, links, lock flag and the pan/zoom transform
//   - [Sanitize]: repairs the link set after edits so structural rules hold
//   - [Serialize] and [SerializeLinks]: convert the model back to
//     canonical form for the store
//   - [Manager]: builds the model from a document and applies later
//     snapshots incrementally
//
// # Building and Syncing
//
//	m := diagram.NewManager(store, logger)
//	m.SetDiagramContainer(view, diagram.Size{Width: 800, Height: 600})
//	m.SetCurrentFlow(doc)
//	m.InitializeModel() // full rebuild, fit to view
//
//	// later, after the store edits the document
//	m.SetCurrentFlow(next)
//	stats := m.SyncModel()
//
// [Manager.SyncModel] only touches what changed. A node is rebuilt when its
// Revision differs from the one the model holds; otherwise only its display
// fields are refreshed. Links are rebuilt only for rebuilt nodes, and the
// routing points of a link that joined the same ports before are kept.
//
// # Terminal Targets
//
// Transitions to "END" (any case) or to another flow (a target containing
// ".flow") never become links. Serializing passes them through unchanged,
// and [Problems] does not count them.
//
// # Link Rules
//
// After [Sanitize] every link joins two live ports, exactly one of which is
// "in"; an output port carries at most one link (the newest wins); and no
// link joins a node to itself. Sanitize never fails and is idempotent.
package diagram
