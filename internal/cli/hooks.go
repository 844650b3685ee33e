package cli

import (
	"context"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/flowdiagram/pkg/observability"
)

// logHooks reports library events at debug level.
type logHooks struct {
	logger *log.Logger
}

func installHooks(logger *log.Logger) {
	h := logHooks{logger: logger}
	observability.SetDiagramHooks(h)
	observability.SetStoreHooks(h)
	observability.SetCacheHooks(h)
}

func (h logHooks) OnInitialize(nodes, links int, d time.Duration) {
	h.logger.Debug("diagram initialized", "nodes", nodes, "links", links, "duration", d)
}

func (h logHooks) OnSync(ev observability.SyncEvent, d time.Duration) {
	h.logger.Debug("diagram synced",
		"added", ev.Added,
		"removed", ev.Removed,
		"resynced", ev.Resynced,
		"refreshed", ev.Refreshed,
		"sanitized", ev.Sanitized,
		"duration", d)
}

func (h logHooks) OnSanitize(removed int) {
	if removed > 0 {
		h.logger.Warn("removed invalid links", "count", removed)
	}
}

func (h logHooks) OnLoad(_ context.Context, backend, name string, d time.Duration, err error) {
	if err != nil {
		h.logger.Debug("load failed", "backend", backend, "flow", name, "error", err)
		return
	}
	h.logger.Debug("loaded flow", "backend", backend, "flow", name, "duration", d)
}

func (h logHooks) OnSave(_ context.Context, backend, name string, d time.Duration, err error) {
	if err != nil {
		h.logger.Error("save failed", "backend", backend, "flow", name, "error", err)
		return
	}
	h.logger.Debug("saved flow", "backend", backend, "flow", name, "duration", d)
}

func (h logHooks) OnCacheHit(_ context.Context, keyType string) {
	h.logger.Debug("cache hit", "type", keyType)
}

func (h logHooks) OnCacheMiss(_ context.Context, keyType string) {
	h.logger.Debug("cache miss", "type", keyType)
}

func (h logHooks) OnCacheSet(_ context.Context, keyType string, size int) {
	h.logger.Debug("cache set", "type", keyType, "bytes", size)
}

var (
	_ observability.DiagramHooks = logHooks{}
	_ observability.StoreHooks   = logHooks{}
	_ observability.CacheHooks   = logHooks{}
)
