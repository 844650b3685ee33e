package diagram

import (
	"math"

	"github.com/matzehuels/flowdiagram/pkg/flow"
)

// DefaultPadding is the margin kept around the graph when fitting it.
const DefaultPadding = 100

// Size is the visible canvas area in screen pixels.
type Size struct {
	Width  float64 `json:"width" toml:"width"`
	Height float64 `json:"height" toml:"height"`
}

// Viewport is a zoom factor and a pan offset.
type Viewport struct {
	Zoom    float64 `json:"zoom"`
	OffsetX float64 `json:"offsetX"`
	OffsetY float64 `json:"offsetY"`
}

// FitToView frames the bounding box of points, padded by padding on every
// side, inside the canvas. The zoom is the smaller of the horizontal and
// vertical fit and never exceeds 1. The offset moves the padded top-left
// corner to the canvas origin.
//
// It returns false when there is nothing to fit or the canvas is empty.
func FitToView(points []flow.Point, size Size, padding float64) (Viewport, bool) {
	if len(points) == 0 || size.Width <= 0 || size.Height <= 0 {
		return Viewport{}, false
	}

	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, p := range points {
		minX, maxX = math.Min(minX, p.X), math.Max(maxX, p.X)
		minY, maxY = math.Min(minY, p.Y), math.Max(maxY, p.Y)
	}

	zoomX := math.Min(1, size.Width/(maxX-minX+2*padding))
	zoomY := math.Min(1, size.Height/(maxY-minY+2*padding))
	zoom := math.Min(zoomX, zoomY)

	return Viewport{
		Zoom:    zoom,
		OffsetX: (padding - minX) * zoom,
		OffsetY: (padding - minY) * zoom,
	}, true
}

// nodePositions returns the positions of nodes.
func nodePositions(nodes []*Node) []flow.Point {
	pts := make([]flow.Point, len(nodes))
	for i, n := range nodes {
		pts[i] = flow.Point{X: n.X, Y: n.Y}
	}
	return pts
}
