// Package pkg provides the libraries behind flowdiagram, the diagram manager
// of a conversational flow editor.
//
// # Overview
//
// A flow document lists nodes, each with ordered transitions naming the node
// to move to when a condition holds. flowdiagram keeps an interactive node/link
// diagram consistent with that document. The pkg directory is organized into
// these areas:
//
//  1. [flow] - Document types and their JSON encoding
//  2. [diagram] - Graph model, serializer, link sanitizer, sync engine and viewport
//  3. [store] and [session] - Persistence of flows (file, Redis, MongoDB) and edit sessions
//  4. [cache] and [pipeline] - Cached rendering of diagrams to DOT, SVG, PDF, PNG and JSON
//  5. [server] - HTTP access to stored flows
//
// # Architecture
//
// The typical data flow through flowdiagram:
//
//	Flow document (file or store)
//	         ↓
//	    [session] package (load, edit, commit)
//	         ↓
//	    [diagram] package (sync nodes and links, fit viewport)
//	         ↓
//	    [pipeline] package (cache + render)
//	         ↓
//	    DOT/SVG/PDF/PNG/JSON output
//
// # Quick Start
//
// Build a diagram for a document and list the nodes whose transitions do not
// resolve:
//
//	doc, _ := flow.ReadFile("main.flow.json")
//
//	m := diagram.NewManager(nil, nil)
//	m.SetCurrentFlow(doc)
//	m.InitializeModel()
//
//	for _, p := range m.NodeProblems() {
//	    fmt.Println(p.NodeName, p.MissingPorts)
//	}
//
// # Error Handling
//
// Operations return errors carrying a code from [errors]. Use errors.GetCode
// to branch on the category and errors.HTTPStatus to map it to a response.
package pkg
