package render

import (
	"bufio"
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/daviddao/mobsinet_viewer/internal/geometry"
)

// DefaultSVGSize is the edge length of an exported image in pixels.
const DefaultSVGSize = 1000

// SVG writes shapes as a standalone SVG document of width x height pixels on
// a white background. Colors are written as given; an alpha channel in
// #rrggbbaa becomes an opacity attribute.
func SVG(w io.Writer, s geometry.Shapes, width, height int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("svg: size must be positive, got %dx%d", width, height)
	}
	bw := bufio.NewWriter(w)
	p := svgProjector{layout: s.Layout, w: float64(width), h: float64(height)}

	fmt.Fprintf(bw, `<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">`+"\n",
		width, height, width, height)
	fmt.Fprintf(bw, `<rect width="100%%" height="100%%" fill="#ffffff"/>`+"\n")

	for _, seg := range s.Boundary {
		p.line(bw, seg, "boundary")
	}
	for _, seg := range s.Edges {
		class := "link"
		if seg.Highlighted {
			class = "link highlighted"
		}
		p.line(bw, seg, class)
	}
	for _, a := range s.Arrows {
		var pts strings.Builder
		for i, pt := range []geometry.Point{a.Tip, a.Wings[0], a.Wings[1]} {
			if i > 0 {
				pts.WriteByte(' ')
			}
			x, y := p.project(pt)
			pts.WriteString(num(x) + "," + num(y))
		}
		fmt.Fprintf(bw, `<polygon class="arrow" points="%s"%s/>`+"\n", pts.String(), paint("fill", a.Color))
	}
	for _, m := range s.Markers {
		x, y := p.project(m.At)
		fmt.Fprintf(bw, `<circle id="node-%d" cx="%s" cy="%s" r="%s"%s/>`+"\n",
			m.ID, num(x), num(y), num(m.Size/2), paint("fill", m.Color))
		if m.Label != "" {
			fmt.Fprintf(bw, `<text x="%s" y="%s" text-anchor="middle" font-size="12">`, num(x), num(y-m.Size/2-2))
			xml.EscapeText(bw, []byte(m.Label)) //nolint:errcheck
			bw.WriteString("</text>\n")
		}
	}
	bw.WriteString("</svg>\n")
	return bw.Flush()
}

// svgProjector maps simulation coordinates onto pixels, y growing downward.
type svgProjector struct {
	layout geometry.LayoutState
	w, h   float64
}

func (p svgProjector) project(pt geometry.Point) (float64, float64) {
	x0, x1 := p.layout.XRange[0], p.layout.XRange[1]
	y0, y1 := p.layout.YRange[0], p.layout.YRange[1]
	var fx, fy float64
	if x1 != x0 {
		fx = (pt.X - x0) / (x1 - x0)
	}
	if y1 != y0 {
		fy = (pt.Y - y0) / (y1 - y0)
	}
	return fx * p.w, (1 - fy) * p.h
}

func (p svgProjector) line(w io.Writer, seg geometry.Segment, class string) {
	x1, y1 := p.project(seg.From)
	x2, y2 := p.project(seg.To)
	id := ""
	if seg.ID != "" {
		id = ` id="` + xmlAttr(seg.ID) + `"`
	}
	fmt.Fprintf(w, `<line%s class="%s" x1="%s" y1="%s" x2="%s" y2="%s" stroke-width="%s"%s/>`+"\n",
		id, class, num(x1), num(y1), num(x2), num(y2), num(seg.Width), paint("stroke", seg.Color))
}

// paint renders a fill or stroke attribute, splitting a trailing alpha byte
// into an opacity attribute.
func paint(attr, color string) string {
	c := strings.TrimSpace(color)
	if c == "" {
		return ""
	}
	if len(c) == 9 && c[0] == '#' {
		if a, err := strconv.ParseUint(c[7:], 16, 8); err == nil {
			return fmt.Sprintf(` %s="%s" %s-opacity="%s"`, attr, c[:7], attr, num(float64(a)/255))
		}
	}
	return fmt.Sprintf(` %s="%s"`, attr, xmlAttr(c))
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func xmlAttr(s string) string {
	var b strings.Builder
	xml.EscapeText(&b, []byte(s)) //nolint:errcheck
	return b.String()
}
