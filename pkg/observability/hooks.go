// Package observability provides hooks for metrics, tracing, and logging.
//
// Libraries in this module emit events through package-level hook registries
// instead of depending on a metrics backend. The defaults are no-ops; a
// binary registers real implementations once at startup.
//
// # Usage
//
//	func main() {
//	    observability.SetDiagramHooks(myDiagramHooks{})
//	    observability.SetStoreHooks(myStoreHooks{})
//	    // ... run application
//	}
//
// Libraries call:
//
//	observability.Diagram().OnSync(observability.SyncEvent{Added: 1}, time.Since(start))
//
// Diagram hooks take no context: the diagram core runs synchronously inside a
// single editor turn and never blocks.
package observability

import (
	"context"
	"sync"
	"time"
)

// =============================================================================
// Diagram Hooks
// =============================================================================

// SyncEvent summarizes one incremental sync.
type SyncEvent struct {
	Added     int // nodes created
	Removed   int // nodes deleted
	Resynced  int // nodes whose revision changed
	Refreshed int // nodes with display-only refresh
	Sanitized int // links removed by the sanitizer
}

// DiagramHooks receives events from the diagram manager.
type DiagramHooks interface {
	OnInitialize(nodeCount, linkCount int, duration time.Duration)
	OnSync(ev SyncEvent, duration time.Duration)
	OnSanitize(removed int)
}

// =============================================================================
// Store Hooks
// =============================================================================

// StoreHooks receives events from flow document stores.
type StoreHooks interface {
	OnLoad(ctx context.Context, backend, name string, duration time.Duration, err error)
	OnSave(ctx context.Context, backend, name string, duration time.Duration, err error)
}

// =============================================================================
// Cache Hooks
// =============================================================================

// CacheHooks receives events from artifact cache lookups.
type CacheHooks interface {
	OnCacheHit(ctx context.Context, keyType string)
	OnCacheMiss(ctx context.Context, keyType string)
	OnCacheSet(ctx context.Context, keyType string, size int)
}

// =============================================================================
// No-op Implementations
// =============================================================================

// NoopDiagramHooks is a no-op implementation of DiagramHooks.
type NoopDiagramHooks struct{}

func (NoopDiagramHooks) OnInitialize(int, int, time.Duration) {}
func (NoopDiagramHooks) OnSync(SyncEvent, time.Duration)      {}
func (NoopDiagramHooks) OnSanitize(int)                       {}

// NoopStoreHooks is a no-op implementation of StoreHooks.
type NoopStoreHooks struct{}

func (NoopStoreHooks) OnLoad(context.Context, string, string, time.Duration, error) {}
func (NoopStoreHooks) OnSave(context.Context, string, string, time.Duration, error) {}

// NoopCacheHooks is a no-op implementation of CacheHooks.
type NoopCacheHooks struct{}

func (NoopCacheHooks) OnCacheHit(context.Context, string)      {}
func (NoopCacheHooks) OnCacheMiss(context.Context, string)     {}
func (NoopCacheHooks) OnCacheSet(context.Context, string, int) {}

// =============================================================================
// Global Hook Registry
// =============================================================================

var (
	diagramHooks DiagramHooks = NoopDiagramHooks{}
	storeHooks   StoreHooks   = NoopStoreHooks{}
	cacheHooks   CacheHooks   = NoopCacheHooks{}
	hooksMu      sync.RWMutex
)

// SetDiagramHooks registers diagram hooks. Nil is ignored.
func SetDiagramHooks(h DiagramHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		diagramHooks = h
	}
}

// SetStoreHooks registers store hooks. Nil is ignored.
func SetStoreHooks(h StoreHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		storeHooks = h
	}
}

// SetCacheHooks registers cache hooks. Nil is ignored.
func SetCacheHooks(h CacheHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		cacheHooks = h
	}
}

// Diagram returns the registered diagram hooks.
func Diagram() DiagramHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return diagramHooks
}

// Store returns the registered store hooks.
func Store() StoreHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return storeHooks
}

// Cache returns the registered cache hooks.
func Cache() CacheHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return cacheHooks
}

// Reset restores all hooks to their no-op defaults.
func Reset() {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	diagramHooks = NoopDiagramHooks{}
	storeHooks = NoopStoreHooks{}
	cacheHooks = NoopCacheHooks{}
}
