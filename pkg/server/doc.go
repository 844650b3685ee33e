// Package server exposes flows over HTTP.
//
// Every route under /flows/{flow} resolves the flow through a
// [session.Pool], so concurrent requests on one flow share a single diagram
// and its selection state. Edits are committed to the store before the
// response is written.
//
// # Routes
//
//	GET    /healthz
//	GET    /flows
//	GET    /flows/{flow}
//	PUT    /flows/{flow}
//	DELETE /flows/{flow}
//	GET    /flows/{flow}/problems
//	GET    /flows/{flow}/viewport
//	POST   /flows/{flow}/fit
//	GET    /flows/{flow}/diagram?format=svg&pinned=true
//	POST   /flows/{flow}/nodes
//	PATCH  /flows/{flow}/nodes/{node}/position
//	DELETE /flows/{flow}/nodes/{node}
//	DELETE /flows/{flow}/nodes/{node}/links/{port}
//	POST   /flows/{flow}/links
//
// Failed requests answer with an [ErrorResponse] whose status is derived
// from the error code.
package server
