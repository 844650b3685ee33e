package cli

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"

	"github.com/matzehuels/flowdiagram/pkg/flow"
	"github.com/matzehuels/flowdiagram/pkg/observability"
	"github.com/matzehuels/flowdiagram/pkg/pipeline"
	"github.com/matzehuels/flowdiagram/pkg/store"
)

func testCLI(t *testing.T) *CLI {
	t.Helper()
	c := New(io.Discard, log.InfoLevel)
	c.Config.Cache.Disabled = true
	return c
}

// writeFlow writes a three-node flow whose stored links are missing.
func writeFlow(t *testing.T, dir string, broken bool) string {
	t.Helper()
	last := "END"
	if broken {
		last = "ghost"
	}
	doc := &flow.Document{
		Name:      "main.flow.json",
		StartNode: "entry",
		Nodes: []flow.Node{
			{ID: "n1", Name: "entry", Next: []flow.Transition{{Condition: "true", Node: "greet"}}},
			{ID: "n2", Name: "greet", X: 200, Next: []flow.Transition{{Condition: "true", Node: "bye"}}},
			{ID: "n3", Name: "bye", X: 400, Next: []flow.Transition{{Condition: "true", Node: last}}},
		},
	}
	path := filepath.Join(dir, "main.flow.json")
	if err := flow.WriteFile(doc, path); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	data := `
[canvas]
width = 640
height = 480
padding = 20

[store]
backend = "redis"
redis_addr = "localhost:6379"

[server]
addr = ":9090"
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error: %v", err)
	}
	if cfg.Canvas.Width != 640 || cfg.Canvas.Height != 480 || cfg.Canvas.Padding != 20 {
		t.Errorf("canvas = %+v", cfg.Canvas)
	}
	if cfg.Store.Backend != store.BackendRedis || cfg.Store.RedisAddr != "localhost:6379" {
		t.Errorf("store = %+v", cfg.Store)
	}
	if cfg.Server.Addr != ":9090" {
		t.Errorf("server addr = %q", cfg.Server.Addr)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("LoadConfig() error: %v", err)
	}
	if cfg != DefaultConfig() {
		t.Errorf("missing file should yield defaults, got %+v", cfg)
	}
}

func TestLoadConfigInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.toml")
	_ = os.WriteFile(path, []byte("[canvas\nwidth = "), 0o644)
	if _, err := LoadConfig(path); err == nil {
		t.Error("expected parse error")
	}
}

func TestParseFormats(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"", []string{pipeline.FormatSVG}},
		{"svg", []string{"svg"}},
		{"dot, png", []string{"dot", "png"}},
	}
	for _, tt := range tests {
		got := parseFormats(tt.in)
		if strings.Join(got, ",") != strings.Join(tt.want, ",") {
			t.Errorf("parseFormats(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestBasePath(t *testing.T) {
	tests := []struct {
		output, input, want string
	}{
		{"", "flows/main.flow.json", "flows/main"},
		{"", "main.json", "main"},
		{"out.svg", "main.flow.json", "out"},
		{"out/diagram", "main.flow.json", "out/diagram"},
	}
	for _, tt := range tests {
		if got := basePath(tt.output, tt.input); got != tt.want {
			t.Errorf("basePath(%q, %q) = %q, want %q", tt.output, tt.input, got, tt.want)
		}
	}
}

func TestRunCheck(t *testing.T) {
	c := testCLI(t)

	ok, err := c.runCheck(writeFlow(t, t.TempDir(), false))
	if err != nil || !ok {
		t.Errorf("clean flow: ok=%v err=%v", ok, err)
	}

	ok, err = c.runCheck(writeFlow(t, t.TempDir(), true))
	if err != nil || ok {
		t.Errorf("broken flow: ok=%v err=%v", ok, err)
	}

	if _, err := c.runCheck(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("missing file should fail")
	}
}

func TestRunSyncWritesLinks(t *testing.T) {
	c := testCLI(t)
	path := writeFlow(t, t.TempDir(), false)

	if err := c.runSync(context.Background(), path, true); err != nil {
		t.Fatal(err)
	}
	doc, _ := flow.ReadFile(path)
	if len(doc.Links) != 0 {
		t.Fatal("dry run wrote links")
	}

	if err := c.runSync(context.Background(), path, false); err != nil {
		t.Fatalf("runSync() error: %v", err)
	}
	doc, err := flow.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(doc.Links) != 2 {
		t.Errorf("links = %+v, want 2", doc.Links)
	}

	// A second sync finds nothing to do.
	if err := c.runSync(context.Background(), path, false); err != nil {
		t.Fatal(err)
	}
}

func TestRunRenderDOT(t *testing.T) {
	c := testCLI(t)
	dir := t.TempDir()
	path := writeFlow(t, dir, false)
	out := filepath.Join(dir, "out.dot")

	opts := pipeline.Options{Formats: []string{pipeline.FormatDOT}, Pinned: true}
	if err := c.runRender(context.Background(), path, opts, out, "greet", true); err != nil {
		t.Fatalf("runRender() error: %v", err)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	dot := string(data)
	if !strings.Contains(dot, "layout=neato;") || !strings.Contains(dot, "lightyellow") {
		t.Errorf("dot = %s", dot)
	}
}

func TestWriteArtifactsRefusesInput(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "main.json")
	err := writeArtifacts(map[string][]byte{"json": []byte("{}")}, []string{"json"}, input, "")
	if err == nil {
		t.Error("writeArtifacts() overwrote its input")
	}
}

func TestSameLinks(t *testing.T) {
	a := []flow.Link{{Source: "n1", SourcePort: "out0", Target: "n2"}}
	b := []flow.Link{{Source: "n1", SourcePort: "out0", Target: "n2", Points: []flow.Point{}}}
	if !sameLinks(a, b) {
		t.Error("nil and empty points should compare equal")
	}
	b[0].Target = "n3"
	if sameLinks(a, b) {
		t.Error("different targets compared equal")
	}
}

func TestNodeListModel(t *testing.T) {
	c := testCLI(t)
	m, err := c.loadModel(writeFlow(t, t.TempDir(), true))
	if err != nil {
		t.Fatal(err)
	}

	model := NewNodeListModel("main.flow.json", m)
	if len(model.visible()) != 3 {
		t.Fatalf("visible = %d rows", len(model.visible()))
	}

	next, _ := model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("p")})
	model = next.(NodeListModel)
	rows := model.visible()
	if len(rows) != 1 || rows[0].node.Name != "bye" {
		t.Errorf("problem rows = %+v", rows)
	}

	next, _ = model.Update(tea.KeyMsg{Type: tea.KeyEnter})
	model = next.(NodeListModel)
	view := model.View()
	if !strings.Contains(view, "bye") || !strings.Contains(view, "ghost") {
		t.Errorf("view missing node detail:\n%s", view)
	}

	_, cmd := model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if cmd == nil {
		t.Error("q should quit")
	}
}

func TestNodeListModelNavigation(t *testing.T) {
	c := testCLI(t)
	m, err := c.loadModel(writeFlow(t, t.TempDir(), false))
	if err != nil {
		t.Fatal(err)
	}
	model := NewNodeListModel("main.flow.json", m)
	model.Height = 2

	for range 5 {
		next, _ := model.Update(tea.KeyMsg{Type: tea.KeyDown})
		model = next.(NodeListModel)
	}
	if model.Cursor != 2 || model.Offset != 1 {
		t.Errorf("cursor=%d offset=%d, want 2 and 1", model.Cursor, model.Offset)
	}
}

func TestInstallHooks(t *testing.T) {
	t.Cleanup(observability.Reset)
	installHooks(log.New(io.Discard))
	if _, ok := observability.Store().(logHooks); !ok {
		t.Errorf("store hooks = %T", observability.Store())
	}
}

func TestRootCommandRegistersSubcommands(t *testing.T) {
	root := testCLI(t).RootCommand()
	for _, name := range []string{"check", "sync", "fit", "render", "inspect", "flows", "serve", "cache", "config"} {
		if cmd, _, err := root.Find([]string{name}); err != nil || cmd.Name() != name {
			t.Errorf("subcommand %q not registered", name)
		}
	}
}
