package render

import (
	"bytes"
	"strings"
	"testing"

	"github.com/daviddao/mobsinet_viewer/internal/geometry"
)

func TestSVGProjectsAndFlipsY(t *testing.T) {
	s := geometry.Shapes{
		Layout: geometry.LayoutState{XRange: [2]float64{0, 100}, YRange: [2]float64{0, 100}},
		Markers: []geometry.Marker{
			{ID: 3, At: geometry.Point{X: 25, Y: 75}, Size: 10, Color: "#000000", Label: "a<b"},
		},
		Edges: []geometry.Segment{
			{ID: "l1", From: geometry.Point{}, To: geometry.Point{X: 100, Y: 100}, Color: "#ff000080", Width: 1, Highlighted: true},
		},
		Arrows: []geometry.Arrow{{
			Tip:   geometry.Point{X: 50, Y: 100},
			Wings: [2]geometry.Point{{X: 0, Y: 50}, {X: 100, Y: 50}},
			Color: "#123456",
		}},
	}

	var buf bytes.Buffer
	if err := SVG(&buf, s, 200, 200); err != nil {
		t.Fatalf("SVG: %v", err)
	}
	out := buf.String()

	want := []string{
		`<svg xmlns="http://www.w3.org/2000/svg" width="200" height="200" viewBox="0 0 200 200">`,
		`<rect width="100%" height="100%" fill="#ffffff"/>`,
		`<circle id="node-3" cx="50" cy="50" r="5" fill="#000000"/>`,
		`<text x="50" y="43" text-anchor="middle" font-size="12">a&lt;b</text>`,
		`<line id="l1" class="link highlighted" x1="0" y1="200" x2="200" y2="0" stroke-width="1" stroke="#ff0000" stroke-opacity="0.50`,
		`<polygon class="arrow" points="100,0 0,100 200,100" fill="#123456"/>`,
	}
	for _, w := range want {
		if !strings.Contains(out, w) {
			t.Errorf("output missing %q\n%s", w, out)
		}
	}
	if !strings.HasSuffix(out, "</svg>\n") {
		t.Errorf("document not closed:\n%s", out)
	}
}

func TestSVGRejectsEmptySize(t *testing.T) {
	var buf bytes.Buffer
	if err := SVG(&buf, geometry.Shapes{}, 0, 10); err == nil {
		t.Error("zero width should fail")
	}
	if buf.Len() != 0 {
		t.Errorf("nothing should be written on error, got %q", buf.String())
	}
}
