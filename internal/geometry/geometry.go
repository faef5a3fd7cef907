// Package geometry derives renderable shapes from a topology snapshot.
//
// Build is a pure function: it maps nodes, links, highlighted edges and the
// current view window onto node markers, the simulation boundary box, edge
// segments and arrowhead triangles. It never mutates its inputs, so it can be
// called from any goroutine on a copy of the synchronized state.
package geometry

import (
	"fmt"
	"math"

	"github.com/daviddao/mobsinet_viewer/internal/snapshot"
)

// Shape colors. Edge color carries an alpha channel.
const (
	HighlightColor = "#ff0000"
	EdgeColor      = "#0000003a"
	ArrowColor     = "#813131"
	BoundaryColor  = "#000000"
)

const (
	arrowHalfAngle = math.Pi / 24
	arrowScale     = 0.02
	markerScale    = 5

	edgeWidth      = 2
	highlightWidth = 5
	boundaryWidth  = 1
)

// Point is a position in simulation space.
type Point struct {
	X, Y float64
}

// HighlightedLink is an edge emphasized because it lies on a queried path.
type HighlightedLink struct {
	Source snapshot.NodeID
	Target snapshot.NodeID
}

// PathLinks turns an ordered node path into one directed edge per
// consecutive pair. Paths shorter than two nodes yield no edges.
func PathLinks(path []snapshot.NodeID) []HighlightedLink {
	if len(path) < 2 {
		return nil
	}
	out := make([]HighlightedLink, 0, len(path)-1)
	for i := 0; i+1 < len(path); i++ {
		out = append(out, HighlightedLink{Source: path[i], Target: path[i+1]})
	}
	return out
}

// Marker is one node drawn at its position.
type Marker struct {
	ID    snapshot.NodeID
	At    Point
	Size  float64
	Color string
	Label string // empty unless ids are shown
}

// Segment is a straight line between two points.
type Segment struct {
	ID          string
	From, To    Point
	Color       string
	Width       float64
	Highlighted bool
}

// Arrow is an arrowhead triangle. Tip is the vertex on the segment endpoint
// and Angle the direction the arrow points in.
type Arrow struct {
	Wings       [2]Point
	Tip         Point
	Angle       float64
	Color       string
	Highlighted bool
}

// Shapes is everything needed to draw one frame.
type Shapes struct {
	Layout   LayoutState
	Markers  []Marker
	Boundary []Segment
	Edges    []Segment
	Arrows   []Arrow
}

// Input groups the render state handed to Build.
type Input struct {
	Nodes      []snapshot.Node
	Links      []snapshot.Link
	Highlights []HighlightedLink

	// Layout is the current view window; nil means derive the default
	// window from the simulation dimensions.
	Layout *LayoutState

	DimX, DimY float64
	Arrows     bool
	ShowIDs    bool
}

// Build derives the shapes for one frame.
func Build(in Input) Shapes {
	layout := DefaultLayout(in.DimX, in.DimY)
	if in.Layout != nil {
		layout = *in.Layout
	}

	s := Shapes{
		Layout:   layout,
		Markers:  make([]Marker, 0, len(in.Nodes)),
		Boundary: boundaryBox(in.DimX, in.DimY),
	}

	byID := make(map[snapshot.NodeID]snapshot.Node, len(in.Nodes))
	for _, n := range in.Nodes {
		byID[n.ID] = n
		m := Marker{
			ID:    n.ID,
			At:    Point{n.X, n.Y},
			Size:  markerScale * n.Size,
			Color: n.Color,
		}
		if in.ShowIDs {
			m.Label = n.ID.String()
		}
		s.Markers = append(s.Markers, m)
	}

	for _, l := range in.Links {
		src, ok := byID[l.Source]
		if !ok {
			continue
		}
		dst, ok := byID[l.Target]
		if !ok {
			continue
		}
		from, to := Point{src.X, src.Y}, Point{dst.X, dst.Y}
		match := matchHighlight(in.Highlights, l)

		seg := Segment{
			ID:    fmt.Sprintf("link-%d-%d", l.Source, l.Target),
			From:  from,
			To:    to,
			Color: EdgeColor,
			Width: edgeWidth,
		}
		if match != notHighlighted {
			seg.Color = HighlightColor
			seg.Width = highlightWidth
			seg.Highlighted = true
		}
		s.Edges = append(s.Edges, seg)

		if !in.Arrows && match == notHighlighted {
			continue
		}
		size := arrowSize(layout, from, to)
		angle := math.Atan2(to.Y-from.Y, to.X-from.X)
		if in.Arrows || match == highlightedForward {
			s.Arrows = append(s.Arrows, arrowhead(to, angle, size, match == highlightedForward))
		}
		if (in.Arrows && l.Bidirectional) || match == highlightedReverse {
			s.Arrows = append(s.Arrows, arrowhead(from, angle+math.Pi, size, match == highlightedReverse))
		}
	}

	return s
}

type highlightMatch int

const (
	notHighlighted highlightMatch = iota
	highlightedForward
	highlightedReverse
)

// matchHighlight returns how the first highlighted entry touching l is
// oriented relative to it.
func matchHighlight(highlights []HighlightedLink, l snapshot.Link) highlightMatch {
	for _, h := range highlights {
		if h.Source == l.Target && h.Target == l.Source {
			return highlightedReverse
		}
		if h.Source == l.Source && h.Target == l.Target {
			return highlightedForward
		}
	}
	return notHighlighted
}

// arrowSize is capped by both the visible window and the edge length.
func arrowSize(layout LayoutState, from, to Point) float64 {
	length := math.Hypot(to.X-from.X, to.Y-from.Y)
	return math.Min(math.Min(layout.XSpan(), layout.YSpan()), length*10) * arrowScale
}

// arrowhead builds the triangle whose tip sits on the endpoint and whose
// wings open back along angle by the fixed half-angle.
func arrowhead(tip Point, angle, size float64, highlighted bool) Arrow {
	color := ArrowColor
	if highlighted {
		color = HighlightColor
	}
	return Arrow{
		Wings: [2]Point{
			{tip.X - size*math.Cos(angle-arrowHalfAngle), tip.Y - size*math.Sin(angle-arrowHalfAngle)},
			{tip.X - size*math.Cos(angle+arrowHalfAngle), tip.Y - size*math.Sin(angle+arrowHalfAngle)},
		},
		Tip:         tip,
		Angle:       angle,
		Color:       color,
		Highlighted: highlighted,
	}
}

func boundaryBox(dimX, dimY float64) []Segment {
	corners := []Point{{0, 0}, {dimX, 0}, {dimX, dimY}, {0, dimY}}
	out := make([]Segment, 0, len(corners))
	for i, c := range corners {
		out = append(out, Segment{
			ID:    fmt.Sprintf("boundary-%d", i),
			From:  c,
			To:    corners[(i+1)%len(corners)],
			Color: BoundaryColor,
			Width: boundaryWidth,
		})
	}
	return out
}
