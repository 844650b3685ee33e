// Package nodelink exports flow diagrams as node-link drawings.
//
// # Overview
//
// This package produces directed graph visualizations of a [diagram.Model]
// using Graphviz: nodes appear as rounded boxes, links as arrows labelled
// with their transition condition. It backs the CLI render command and the
// server's SVG endpoint.
//
// # Usage
//
// Convert a model to DOT format, then render to SVG:
//
//	dot := nodelink.ToDOT(model, nodelink.Options{Pinned: true})
//	svg, err := nodelink.RenderSVG(ctx, dot)
//
// For PDF or PNG output, use the render functions:
//
//	pdf, err := nodelink.RenderPDF(ctx, dot)
//	png, err := nodelink.RenderPNG(ctx, dot, 2.0)  // 2x scale
//
// # Options
//
// The [Options] struct controls diagram generation:
//
//   - Detailed: node labels include the skill and action counts
//   - Pinned: nodes keep their editor positions (neato layout)
//   - Terminals: END and subflow transitions are drawn
//
// Without Pinned, Graphviz lays the flow out top to bottom.
//
// # Dependencies
//
// This package uses [github.com/goccy/go-graphviz] for in-process SVG
// rendering. PDF and PNG conversion requires librsvg (rsvg-convert).
package nodelink
