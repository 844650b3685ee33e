package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/flowdiagram/pkg/cache"
	"github.com/matzehuels/flowdiagram/pkg/diagram"
	"github.com/matzehuels/flowdiagram/pkg/flow"
	"github.com/matzehuels/flowdiagram/pkg/observability"
	"github.com/matzehuels/flowdiagram/pkg/render/nodelink"
)

// Runner encapsulates export with caching.
// Both CLI and server use this to avoid duplicating caching logic.
//
// The Runner is stateless except for the cache and logger. Multiple
// goroutines can safely use the same Runner with different options.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger
}

// NewRunner creates a runner with the given cache and keyer.
// If keyer is nil, a DefaultKeyer is used.
// If cache is nil, a NullCache is used (caching disabled).
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Cache:  c,
		Keyer:  keyer,
		Logger: logger,
	}
}

// Source is a diagram that may be edited concurrently. Inspect must hold
// off edits while fn runs; *diagram.Manager implements it.
type Source interface {
	Inspect(fn func(model *diagram.Model))
}

// snapshot is what Render needs from the model, captured in one Inspect call
// so that edits can proceed while Graphviz runs.
type snapshot struct {
	doc          flow.Document
	dot          string
	nodes, links int
}

func takeSnapshot(src Source, opts Options) snapshot {
	var snap snapshot
	src.Inspect(func(m *diagram.Model) {
		snap.doc = diagram.Serialize(m)
		snap.dot = nodelink.ToDOT(m, opts.NodelinkOptions())
		snap.nodes, snap.links = m.NodeCount(), m.LinkCount()
	})
	return snap
}

// Render exports src in every requested format. Artifacts are looked up in
// the cache by the hash of the serialized diagram unless opts.Refresh is set.
func (r *Runner) Render(ctx context.Context, src Source, opts Options) (*Result, error) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}

	snap := takeSnapshot(src, opts)
	doc, dot := snap.doc, snap.dot
	hash, err := cache.HashJSON(doc)
	if err != nil {
		return nil, fmt.Errorf("hash diagram: %w", err)
	}

	result := &Result{
		DiagramHash: hash,
		Artifacts:   make(map[string][]byte, len(opts.Formats)),
		Stats:       Stats{NodeCount: snap.nodes, LinkCount: snap.links},
		CacheHit:    true,
	}

	start := time.Now()
	for _, format := range opts.Formats {
		key := r.Keyer.ArtifactKey(hash, opts.ArtifactKeyOpts(format))
		if !opts.Refresh {
			if data, hit, err := r.Cache.Get(ctx, key); err == nil && hit {
				observability.Cache().OnCacheHit(ctx, format)
				result.Artifacts[format] = data
				continue
			}
			observability.Cache().OnCacheMiss(ctx, format)
		}
		result.CacheHit = false

		data, err := renderFormat(ctx, format, dot, &doc, opts)
		if err != nil {
			return nil, fmt.Errorf("render %s: %w", format, err)
		}
		result.Artifacts[format] = data

		if err := r.Cache.Set(ctx, key, data, cache.TTLArtifact); err != nil {
			opts.Logger.Warn("cache write failed", "format", format, "error", err)
		} else {
			observability.Cache().OnCacheSet(ctx, format, len(data))
		}
	}
	result.Stats.RenderTime = time.Since(start)

	opts.Logger.Debug("rendered outputs",
		"formats", opts.Formats,
		"cached", result.CacheHit,
		"nodes", result.Stats.NodeCount,
		"duration", result.Stats.RenderTime)

	return result, nil
}

func renderFormat(ctx context.Context, format, dot string, doc *flow.Document, opts Options) ([]byte, error) {
	switch format {
	case FormatDOT:
		return []byte(dot), nil
	case FormatSVG:
		return nodelink.RenderSVG(ctx, dot)
	case FormatPDF:
		return nodelink.RenderPDF(ctx, dot)
	case FormatPNG:
		return nodelink.RenderPNG(ctx, dot, opts.Scale)
	case FormatJSON:
		return flow.Marshal(doc)
	}
	return nil, ValidateFormat(format)
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}
