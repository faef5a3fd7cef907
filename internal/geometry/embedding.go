package geometry

import (
	"math"
	"strconv"

	"github.com/daviddao/mobsinet_viewer/internal/snapshot"
)

// EmbeddingColor is the marker color of embedding points.
const EmbeddingColor = "#000000"

// AxisColor is the color of the embedding axes.
const AxisColor = "#6c7086"

// Embedding builds a scatter plot of node vectors: the first component on the
// x axis and the second on the y axis, or zero for one-dimensional vectors.
// The window is symmetric around the origin, 10% wider than the largest
// magnitude, with both axes drawn through the origin. Labels carry the words
// when showLabels is set.
func Embedding(words []string, vectors [][]float64, showLabels bool) Shapes {
	peak := 0.0
	points := make([]Point, len(vectors))
	for i, v := range vectors {
		var p Point
		if len(v) > 0 {
			p.X = v[0]
		}
		if len(v) > 1 {
			p.Y = v[1]
		}
		points[i] = p
		peak = math.Max(peak, math.Max(math.Abs(p.X), math.Abs(p.Y)))
	}
	if peak == 0 {
		peak = 1
	}
	r := peak * 1.1

	s := Shapes{
		Layout: LayoutState{
			XRange: [2]float64{-r, r},
			YRange: [2]float64{-r, r},
		},
		Markers: make([]Marker, len(points)),
		Boundary: []Segment{
			{ID: "axis-x", From: Point{-r, 0}, To: Point{r, 0}, Color: AxisColor, Width: boundaryWidth},
			{ID: "axis-y", From: Point{0, -r}, To: Point{0, r}, Color: AxisColor, Width: boundaryWidth},
		},
	}
	for i, p := range points {
		m := Marker{At: p, Size: 10, Color: EmbeddingColor}
		if i < len(words) {
			if id, err := strconv.Atoi(words[i]); err == nil {
				m.ID = snapshot.NodeID(id)
			}
			if showLabels {
				m.Label = words[i]
			}
		}
		s.Markers[i] = m
	}
	return s
}
