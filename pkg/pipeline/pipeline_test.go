package pipeline

import (
	"context"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/flowdiagram/pkg/cache"
	"github.com/matzehuels/flowdiagram/pkg/diagram"
	errs "github.com/matzehuels/flowdiagram/pkg/errors"
	"github.com/matzehuels/flowdiagram/pkg/flow"
)

func TestValidateFormat(t *testing.T) {
	tests := []struct {
		format  string
		wantErr bool
	}{
		{"svg", false},
		{"png", false},
		{"pdf", false},
		{"json", false},
		{"dot", false},
		{"invalid", true},
		{"SVG", true}, // case-sensitive
		{"", true},
	}

	for _, tt := range tests {
		err := ValidateFormat(tt.format)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateFormat(%q) error = %v, wantErr %v", tt.format, err, tt.wantErr)
		}
		if err != nil && errs.GetCode(err) != errs.ErrCodeInvalidInput {
			t.Errorf("ValidateFormat(%q) code = %q", tt.format, errs.GetCode(err))
		}
	}
}

func TestValidateFormats(t *testing.T) {
	if err := ValidateFormats([]string{"svg", "png"}); err != nil {
		t.Errorf("Valid formats should pass: %v", err)
	}

	if err := ValidateFormats([]string{"svg", "invalid"}); err == nil {
		t.Error("Invalid format should fail")
	}

	// Empty slice is valid
	if err := ValidateFormats(nil); err != nil {
		t.Errorf("Empty formats should pass: %v", err)
	}
}

func TestValidateAndSetDefaults(t *testing.T) {
	var opts Options
	if err := opts.ValidateAndSetDefaults(); err != nil {
		t.Fatal(err)
	}
	if len(opts.Formats) != 1 || opts.Formats[0] != FormatSVG {
		t.Errorf("Formats = %v, want [svg]", opts.Formats)
	}
	if opts.Scale != DefaultScale {
		t.Errorf("Scale = %v, want %v", opts.Scale, DefaultScale)
	}
	if opts.Logger == nil {
		t.Error("Logger not defaulted")
	}
}

func TestArtifactKeyOpts(t *testing.T) {
	opts := Options{Pinned: true, Scale: 3}
	if got := opts.ArtifactKeyOpts(FormatSVG); got.Scale != 0 || !got.Pinned {
		t.Errorf("svg key opts = %+v", got)
	}
	if got := opts.ArtifactKeyOpts(FormatPNG); got.Scale != 3 {
		t.Errorf("png key opts = %+v", got)
	}
}

type mapCache struct {
	mu   sync.Mutex
	data map[string][]byte
	gets int
}

func newMapCache() *mapCache { return &mapCache{data: map[string][]byte{}} }

func (c *mapCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gets++
	d, ok := c.data[key]
	return d, ok, nil
}

func (c *mapCache) Set(_ context.Context, key string, data []byte, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = data
	return nil
}

func (c *mapCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
	return nil
}

func (c *mapCache) Close() error { return nil }

var _ cache.Cache = (*mapCache)(nil)

func testManager() *diagram.Manager {
	m := diagram.NewManager(nil, log.New(io.Discard))
	m.SetCurrentFlow(&flow.Document{
		Name:      "main.flow.json",
		StartNode: "entry",
		Nodes: []flow.Node{
			{ID: "n1", Name: "entry", Next: []flow.Transition{{Condition: "true", Node: "greet"}}},
			{ID: "n2", Name: "greet", Next: []flow.Transition{{Condition: "true", Node: "END"}}},
		},
	})
	m.InitializeModel()
	return m
}

func TestRunnerCachesArtifacts(t *testing.T) {
	ctx := context.Background()
	c := newMapCache()
	r := NewRunner(c, nil, log.New(io.Discard))
	m := testManager()
	opts := Options{Formats: []string{FormatDOT, FormatJSON}}

	first, err := r.Render(ctx, m, opts)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if first.CacheHit {
		t.Error("first render reported a cache hit")
	}
	if !strings.Contains(string(first.Artifacts[FormatDOT]), `"n1" -> "n2";`) {
		t.Errorf("dot = %s", first.Artifacts[FormatDOT])
	}
	doc, err := flow.Unmarshal(first.Artifacts[FormatJSON])
	if err != nil || len(doc.Nodes) != 2 || len(doc.Links) != 1 {
		t.Errorf("json artifact = %+v, %v", doc, err)
	}
	if first.Stats.NodeCount != 2 || first.Stats.LinkCount != 1 {
		t.Errorf("stats = %+v", first.Stats)
	}
	if len(c.data) != 2 {
		t.Errorf("cached %d entries, want 2", len(c.data))
	}

	second, err := r.Render(ctx, m, opts)
	if err != nil {
		t.Fatal(err)
	}
	if !second.CacheHit || second.DiagramHash != first.DiagramHash {
		t.Errorf("second render = hit %v hash %s", second.CacheHit, second.DiagramHash)
	}
}

func TestRunnerRefreshSkipsCache(t *testing.T) {
	ctx := context.Background()
	c := newMapCache()
	r := NewRunner(c, nil, log.New(io.Discard))

	res, err := r.Render(ctx, testManager(), Options{Formats: []string{FormatDOT}, Refresh: true})
	if err != nil {
		t.Fatal(err)
	}
	if res.CacheHit || c.gets != 0 {
		t.Errorf("refresh read the cache: hit=%v gets=%d", res.CacheHit, c.gets)
	}
	if len(c.data) != 1 {
		t.Error("refresh did not write the fresh artifact")
	}
}

func TestRunnerOptionsChangeKey(t *testing.T) {
	ctx := context.Background()
	c := newMapCache()
	r := NewRunner(c, nil, log.New(io.Discard))
	m := testManager()

	if _, err := r.Render(ctx, m, Options{Formats: []string{FormatDOT}}); err != nil {
		t.Fatal(err)
	}
	res, err := r.Render(ctx, m, Options{Formats: []string{FormatDOT}, Pinned: true})
	if err != nil {
		t.Fatal(err)
	}
	if res.CacheHit {
		t.Error("pinned render served from the unpinned entry")
	}
	if !strings.Contains(string(res.Artifacts[FormatDOT]), "layout=neato;") {
		t.Error("pinned dot missing neato layout")
	}
}

func TestRunnerInvalidFormat(t *testing.T) {
	r := NewRunner(nil, nil, log.New(io.Discard))
	if _, err := r.Render(context.Background(), testManager(), Options{Formats: []string{"gif"}}); err == nil {
		t.Error("expected error for invalid format")
	}
}

// countingSource records how often the runner reads the model.
type countingSource struct {
	*diagram.Manager
	reads int
}

func (s *countingSource) Inspect(fn func(*diagram.Model)) {
	s.reads++
	s.Manager.Inspect(fn)
}

func TestRunnerReadsModelOnce(t *testing.T) {
	src := &countingSource{Manager: testManager()}
	r := NewRunner(nil, nil, log.New(io.Discard))

	opts := Options{Formats: []string{FormatDOT, FormatJSON}}
	if _, err := r.Render(context.Background(), src, opts); err != nil {
		t.Fatal(err)
	}
	if src.reads != 1 {
		t.Errorf("model read %d times, want 1", src.reads)
	}
}
