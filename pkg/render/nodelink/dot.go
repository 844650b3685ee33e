package nodelink

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/flowdiagram/pkg/diagram"
	"github.com/matzehuels/flowdiagram/pkg/flow"
	"github.com/matzehuels/flowdiagram/pkg/render"
)

// Options configures diagram export.
type Options struct {
	// Detailed adds the skill and the onEnter/onReceive action counts to
	// node labels. When false, only the node name is shown.
	Detailed bool

	// Pinned places nodes at their editor positions instead of letting
	// Graphviz lay them out.
	Pinned bool

	// Terminals draws END and subflow transitions as edges to small
	// terminal nodes.
	Terminals bool
}

const endNodeID = "__END__"

// ToDOT converts a diagram model to Graphviz DOT format.
// The resulting DOT string can be rendered using [RenderSVG], [RenderPDF], or [RenderPNG].
//
// Edges follow the links of the model, labelled with the transition
// condition. The start node is drawn with a double border, skill calls with a
// dashed one, and highlighted nodes are filled.
func ToDOT(m *diagram.Model, opts Options) string {
	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	buf.WriteString("  rankdir=TB;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	if opts.Pinned {
		buf.WriteString("  layout=neato;\n")
		buf.WriteString("  inputscale=72;\n")
		buf.WriteString("  splines=true;\n")
	}
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=14, margin=\"0.2,0.1\"];\n")
	buf.WriteString("  edge [fontsize=10];\n")
	buf.WriteString("  ranksep=0.5;\n")
	buf.WriteString("  nodesep=0.3;\n")
	buf.WriteString("\n")

	for _, n := range m.Nodes() {
		label := fmtLabel(n, opts.Detailed)
		attrs := fmtAttrs(n, label, opts.Pinned)
		fmt.Fprintf(&buf, "  %q [%s];\n", n.ID, strings.Join(attrs, ", "))
	}

	buf.WriteString("\n")
	for _, l := range diagram.SerializeLinks(m) {
		src, ok := m.Node(l.Source)
		if !ok {
			continue
		}
		fmt.Fprintf(&buf, "  %q -> %q%s;\n", l.Source, l.Target, edgeAttrs(condition(src, l.SourcePort)))
	}

	if opts.Terminals {
		writeTerminals(&buf, m)
	}

	buf.WriteString("}\n")
	return buf.String()
}

func writeTerminals(buf *bytes.Buffer, m *diagram.Model) {
	subflows := map[string]bool{}
	var edges []string
	end := false
	for _, n := range m.Nodes() {
		for _, t := range n.Next() {
			switch {
			case flow.IsEnd(t.Node):
				end = true
				edges = append(edges, fmt.Sprintf("  %q -> %q%s;\n", n.ID, endNodeID, edgeAttrs(t.Condition)))
			case flow.IsSubflow(t.Node):
				subflows[t.Node] = true
				edges = append(edges, fmt.Sprintf("  %q -> %q%s;\n", n.ID, t.Node, edgeAttrs(t.Condition)))
			}
		}
	}
	if len(edges) == 0 {
		return
	}

	buf.WriteString("\n")
	if end {
		fmt.Fprintf(buf, "  %q [label=\"END\", shape=doublecircle, fontsize=10, fillcolor=lightgrey];\n", endNodeID)
	}
	for _, n := range m.Nodes() {
		for _, t := range n.Next() {
			if subflows[t.Node] {
				fmt.Fprintf(buf, "  %q [shape=folder, fillcolor=lightgrey];\n", t.Node)
				delete(subflows, t.Node)
			}
		}
	}
	for _, e := range edges {
		buf.WriteString(e)
	}
}

func condition(n *diagram.Node, port string) string {
	i, ok := diagram.OutPortIndex(port)
	next := n.Next()
	if !ok || i >= len(next) {
		return ""
	}
	return next[i].Condition
}

func edgeAttrs(cond string) string {
	if cond == "" || cond == "true" {
		return ""
	}
	return fmt.Sprintf(" [label=%q]", cond)
}

func fmtLabel(n *diagram.Node, detailed bool) string {
	if !detailed {
		return n.Name
	}

	var parts []string
	if n.Kind == diagram.KindSkillCall && n.Skill != "" {
		parts = append(parts, "skill: "+n.Skill)
	}
	parts = append(parts,
		fmt.Sprintf("onEnter: %d", len(n.OnEnter)),
		fmt.Sprintf("onReceive: %d", len(n.OnReceive)),
	)
	return n.Name + "\n" + strings.Join(parts, "\n")
}

func fmtAttrs(n *diagram.Node, label string, pinned bool) []string {
	attrs := []string{fmt.Sprintf("label=%q", label)}
	style := []string{"rounded", "filled"}
	if n.Kind == diagram.KindSkillCall {
		style = append(style, "dashed")
	}
	if len(style) > 2 {
		attrs = append(attrs, fmt.Sprintf("style=%q", strings.Join(style, ",")))
	}
	if n.IsStartNode {
		attrs = append(attrs, "peripheries=2")
	}
	if n.IsHighlighted {
		attrs = append(attrs, "fillcolor=lightyellow")
	}
	if pinned {
		// Graphviz's y axis points up.
		attrs = append(attrs, fmt.Sprintf("pos=\"%s,%s!\"", fmtFloat(n.X), fmtFloat(-n.Y)))
	}
	return attrs
}

func fmtFloat(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) }

// RenderSVG lays out a DOT graph with Graphviz and returns the SVG. Pinned
// graphs (layout=neato) keep their node positions.
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()
	if strings.Contains(dot, "layout=neato;") {
		gv.SetLayout(graphviz.NEATO)
	}

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return normalizeViewBox(buf.Bytes()), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}

	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}

	newSvg := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`,
		w, h, w, h)

	return svgTagRe.ReplaceAll(svg, []byte(newSvg))
}

// RenderPDF renders a DOT graph as PDF via [render.ToPDF].
func RenderPDF(ctx context.Context, dot string) ([]byte, error) {
	svg, err := RenderSVG(ctx, dot)
	if err != nil {
		return nil, err
	}
	return render.ToPDF(ctx, svg)
}

// RenderPNG renders a DOT graph as PNG via [render.ToPNG].
func RenderPNG(ctx context.Context, dot string, scale float64) ([]byte, error) {
	svg, err := RenderSVG(ctx, dot)
	if err != nil {
		return nil, err
	}
	return render.ToPNG(ctx, svg, scale)
}
