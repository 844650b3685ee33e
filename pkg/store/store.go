// Package store persists flow documents.
//
// A flow is addressed by its name ("main.flow.json"). Four backends are
// provided:
//
//   - memory: in-process map, for tests and the throwaway server mode
//   - file: one JSON file per flow in a directory, for the CLI
//   - redis: one key per flow, for shared deployments
//   - mongo: one document per flow in a collection
//
// Open picks a backend from a [Config]:
//
//	s, err := store.Open(ctx, store.Config{Backend: store.BackendFile, Dir: "flows"})
//	if err != nil {
//	    return err
//	}
//	defer s.Close()
//
//	doc, err := s.Get(ctx, "main.flow.json")
//
// Documents handed to and returned from a store are never shared with it:
// every backend stores and returns copies. A missing flow is reported as an
// error with code FLOW_NOT_FOUND.
package store

import (
	"context"
	"strings"
	"time"

	errs "github.com/matzehuels/flowdiagram/pkg/errors"
	"github.com/matzehuels/flowdiagram/pkg/flow"
	"github.com/matzehuels/flowdiagram/pkg/observability"
)

// Store is the interface for flow storage backends.
type Store interface {
	// Get loads a flow by name.
	Get(ctx context.Context, name string) (*flow.Document, error)

	// Put creates or replaces the flow named doc.Name.
	Put(ctx context.Context, doc *flow.Document) error

	// Delete removes a flow. Deleting a missing flow is not an error.
	Delete(ctx context.Context, name string) error

	// List returns the names of all stored flows, sorted.
	List(ctx context.Context) ([]string, error)

	// Close releases backend resources.
	Close() error
}

// ValidateName rejects flow names that cannot be used as keys or file names.
func ValidateName(name string) error {
	switch {
	case strings.TrimSpace(name) == "":
		return errs.New(errs.ErrCodeInvalidInput, "flow name is required")
	case name == "." || name == "..":
		return errs.New(errs.ErrCodeInvalidInput, "invalid flow name %q", name)
	case strings.ContainsAny(name, `/\`):
		return errs.New(errs.ErrCodeInvalidInput, "flow name %q must not contain path separators", name)
	}
	return nil
}

func notFound(name string) error {
	return errs.New(errs.ErrCodeFlowNotFound, "flow %s not found", name)
}

// =============================================================================
// Instrumentation
// =============================================================================

// instrumented reports loads and saves to the registered store hooks.
type instrumented struct {
	Store
	backend string
}

// WithHooks wraps s so that Get and Put are reported to
// [observability.Store] under the given backend name.
func WithHooks(backend string, s Store) Store {
	return &instrumented{Store: s, backend: backend}
}

func (s *instrumented) Get(ctx context.Context, name string) (*flow.Document, error) {
	start := time.Now()
	doc, err := s.Store.Get(ctx, name)
	observability.Store().OnLoad(ctx, s.backend, name, time.Since(start), err)
	return doc, err
}

func (s *instrumented) Put(ctx context.Context, doc *flow.Document) error {
	start := time.Now()
	err := s.Store.Put(ctx, doc)
	observability.Store().OnSave(ctx, s.backend, doc.Name, time.Since(start), err)
	return err
}
