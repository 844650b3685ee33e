// Package cli implements the flowdiagram command-line interface.
//
// This package provides commands for checking, syncing and rendering
// conversational flow documents, for moving flows between files and the
// configured store, and for serving flows over HTTP. The CLI is built using
// cobra and logs via the charmbracelet/log library.
//
// # Commands
//
// The main commands are:
//   - check: Report nodes with unresolved transitions
//   - sync: Rewrite the stored links of a flow file from its transitions
//   - fit: Compute the viewport framing a flow
//   - render: Generate DOT, SVG, PDF, PNG or canonical JSON output
//   - inspect: Browse the nodes of a flow interactively
//   - flows: List, push, pull and delete flows in the configured store
//   - serve: Expose the store over HTTP
//
// # Configuration
//
// Settings are read from ~/.config/flowdiagram/config.toml, or the file named
// by --config. A missing file leaves the defaults in place.
//
// # Logging
//
// All commands support --verbose (-v) for debug-level logging. Library events
// (diagram syncs, store round trips, cache lookups) are logged at debug level
// through the observability hooks.
package cli
