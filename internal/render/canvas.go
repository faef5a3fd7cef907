package render

import (
	"math"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	colorful "github.com/lucasb-eyer/go-colorful"

	"github.com/daviddao/mobsinet_viewer/internal/geometry"
)

// Default terminal palette, matching the rest of the UI.
const (
	DefaultBackground = "#1E1E2E"
	FallbackInk       = "#6C7086"
)

// minContrast is the Lab distance below which a color is considered
// invisible on the background and swapped for FallbackInk.
const minContrast = 0.25

// Draw order; a cell keeps the highest priority written to it.
const (
	prioBoundary = iota + 1
	prioEdge
	prioHighlightEdge
	prioArrow
	prioMarker
	prioLabel
)

var namedColors = map[string]string{
	"black":   "#000000",
	"white":   "#ffffff",
	"red":     "#ff0000",
	"green":   "#008000",
	"lime":    "#00ff00",
	"blue":    "#0000ff",
	"yellow":  "#ffff00",
	"orange":  "#ffa500",
	"purple":  "#800080",
	"magenta": "#ff00ff",
	"cyan":    "#00ffff",
	"pink":    "#ffc0cb",
	"brown":   "#a52a2a",
	"gray":    "#808080",
	"grey":    "#808080",
}

// arrowGlyphs by octant, counter-clockwise from east.
var arrowGlyphs = [8]rune{'→', '↗', '↑', '↖', '←', '↙', '↓', '↘'}

// Canvas rasterizes shapes onto a character grid. Only the canvas touches
// the terminal surface; geometry stays pure.
type Canvas struct {
	Width      int
	Height     int
	Background string // hex; empty means DefaultBackground
}

type cell struct {
	r     rune
	color string
	prio  int
}

type grid struct {
	w, h  int
	cells []cell
}

func newGrid(w, h int) *grid {
	return &grid{w: w, h: h, cells: make([]cell, w*h)}
}

func (g *grid) set(col, row int, r rune, color string, prio int) {
	if col < 0 || row < 0 || col >= g.w || row >= g.h {
		return
	}
	c := &g.cells[row*g.w+col]
	if prio >= c.prio {
		*c = cell{r: r, color: color, prio: prio}
	}
}

// projector maps simulation coordinates onto fractional cell coordinates.
// Rows grow downward, so y is flipped.
type projector struct {
	layout geometry.LayoutState
	w, h   int
}

func (p projector) project(pt geometry.Point) (float64, float64) {
	x0, x1 := p.layout.XRange[0], p.layout.XRange[1]
	y0, y1 := p.layout.YRange[0], p.layout.YRange[1]
	var fx, fy float64
	if x1 != x0 {
		fx = (pt.X - x0) / (x1 - x0)
	}
	if y1 != y0 {
		fy = (pt.Y - y0) / (y1 - y0)
	}
	return fx * float64(p.w-1), (1 - fy) * float64(p.h-1)
}

func (p projector) cell(pt geometry.Point) (int, int) {
	x, y := p.project(pt)
	return int(math.Round(x)), int(math.Round(y))
}

// Draw renders one frame. The result has exactly Height lines of Width
// visible cells, or is empty for a zero-sized canvas.
func (c Canvas) Draw(s geometry.Shapes) string {
	if c.Width <= 0 || c.Height <= 0 {
		return ""
	}
	g := newGrid(c.Width, c.Height)
	p := projector{layout: s.Layout, w: c.Width, h: c.Height}

	for _, seg := range s.Boundary {
		g.line(p, seg.From, seg.To, seg.Color, prioBoundary, false)
	}
	for _, seg := range s.Edges {
		prio := prioEdge
		if seg.Highlighted {
			prio = prioHighlightEdge
		}
		g.line(p, seg.From, seg.To, seg.Color, prio, seg.Highlighted)
	}
	for _, a := range s.Arrows {
		g.arrow(p, a)
	}
	for _, m := range s.Markers {
		col, row := p.cell(m.At)
		g.set(col, row, '●', m.Color, prioMarker)
		if m.Label != "" {
			g.label(col, row, m.Label, m.Color)
		}
	}

	return g.render(newPalette(c.Background))
}

// line draws a segment clipped to the grid.
func (g *grid) line(p projector, from, to geometry.Point, color string, prio int, heavy bool) {
	x0, y0 := p.project(from)
	x1, y1 := p.project(to)
	x0, y0, x1, y1, ok := clip(x0, y0, x1, y1, float64(g.w-1), float64(g.h-1))
	if !ok {
		return
	}
	glyph := lineGlyph(x1-x0, y1-y0, heavy)

	c0, r0 := int(math.Round(x0)), int(math.Round(y0))
	c1, r1 := int(math.Round(x1)), int(math.Round(y1))
	dc, dr := abs(c1-c0), -abs(r1-r0)
	sc, sr := sign(c1-c0), sign(r1-r0)
	e := dc + dr
	for {
		g.set(c0, r0, glyph, color, prio)
		if c0 == c1 && r0 == r1 {
			return
		}
		e2 := 2 * e
		if e2 >= dr {
			e += dr
			c0 += sc
		}
		if e2 <= dc {
			e += dc
			r0 += sr
		}
	}
}

// arrow fills the cells covered by the triangle and marks the cell just
// behind the tip with a direction glyph, since the tip cell itself is
// taken by the node marker.
func (g *grid) arrow(p projector, a geometry.Arrow) {
	tx, ty := p.project(a.Tip)
	ax, ay := p.project(a.Wings[0])
	bx, by := p.project(a.Wings[1])

	minC := int(math.Floor(math.Min(tx, math.Min(ax, bx))))
	maxC := int(math.Ceil(math.Max(tx, math.Max(ax, bx))))
	minR := int(math.Floor(math.Min(ty, math.Min(ay, by))))
	maxR := int(math.Ceil(math.Max(ty, math.Max(ay, by))))
	for r := max(minR, 0); r <= min(maxR, g.h-1); r++ {
		for c := max(minC, 0); c <= min(maxC, g.w-1); c++ {
			if inTriangle(float64(c), float64(r), tx, ty, ax, ay, bx, by) {
				g.set(c, r, '▪', a.Color, prioArrow)
			}
		}
	}

	col, row := int(math.Round(tx)), int(math.Round(ty))
	col -= int(math.Round(math.Cos(a.Angle)))
	row += int(math.Round(math.Sin(a.Angle)))
	g.set(col, row, arrowGlyph(a.Angle), a.Color, prioArrow)
}

// label centers text on the row above the marker, or below it on the top row.
func (g *grid) label(col, row int, text, color string) {
	r := row - 1
	if r < 0 {
		r = row + 1
	}
	start := col - len(text)/2
	for i, ch := range text {
		g.set(start+i, r, ch, color, prioLabel)
	}
}

func (g *grid) render(pal *palette) string {
	var b strings.Builder
	for row := 0; row < g.h; row++ {
		if row > 0 {
			b.WriteRune('\n')
		}
		var run strings.Builder
		runColor := ""
		flush := func() {
			if run.Len() == 0 {
				return
			}
			if runColor == "" {
				b.WriteString(run.String())
			} else {
				b.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color(runColor)).Render(run.String()))
			}
			run.Reset()
		}
		for col := 0; col < g.w; col++ {
			c := g.cells[row*g.w+col]
			r, color := c.r, ""
			if c.prio == 0 {
				r = ' '
			} else {
				color = pal.resolve(c.color)
			}
			if color != runColor {
				flush()
				runColor = color
			}
			run.WriteRune(r)
		}
		flush()
	}
	return b.String()
}

// palette maps shape colors onto terminal colors readable on the background.
type palette struct {
	bg    colorful.Color
	cache map[string]string
}

func newPalette(background string) *palette {
	if background == "" {
		background = DefaultBackground
	}
	bg, err := colorful.Hex(background)
	if err != nil {
		bg, _ = colorful.Hex(DefaultBackground)
	}
	return &palette{bg: bg, cache: make(map[string]string)}
}

// resolve returns a #rrggbb color, FallbackInk for colors lost against the
// background, or "" for colors it cannot parse.
func (p *palette) resolve(color string) string {
	if out, ok := p.cache[color]; ok {
		return out
	}
	out := p.resolveUncached(color)
	p.cache[color] = out
	return out
}

func (p *palette) resolveUncached(color string) string {
	hex := strings.ToLower(strings.TrimSpace(color))
	if named, ok := namedColors[hex]; ok {
		hex = named
	}
	if !strings.HasPrefix(hex, "#") {
		return ""
	}

	alpha := 1.0
	if len(hex) == 9 {
		a, err := strconv.ParseUint(hex[7:], 16, 8)
		if err != nil {
			return ""
		}
		alpha = float64(a) / 255
		hex = hex[:7]
	}
	c, err := colorful.Hex(hex)
	if err != nil {
		return ""
	}
	if alpha < 1 {
		c = p.bg.BlendRgb(c, alpha)
	}
	if c.DistanceLab(p.bg) < minContrast {
		return FallbackInk
	}
	return c.Clamped().Hex()
}

func lineGlyph(dx, dy float64, heavy bool) rune {
	adx, ady := math.Abs(dx), math.Abs(dy)
	switch {
	case ady <= adx/2:
		if heavy {
			return '━'
		}
		return '─'
	case adx <= ady/2:
		if heavy {
			return '┃'
		}
		return '│'
	case (dx > 0) == (dy > 0):
		return '╲'
	default:
		return '╱'
	}
}

func arrowGlyph(angle float64) rune {
	oct := int(math.Round(angle/(math.Pi/4))) % 8
	if oct < 0 {
		oct += 8
	}
	return arrowGlyphs[oct]
}

// clip is Liang-Barsky against [0,maxX] x [0,maxY].
func clip(x0, y0, x1, y1, maxX, maxY float64) (float64, float64, float64, float64, bool) {
	t0, t1 := 0.0, 1.0
	dx, dy := x1-x0, y1-y0
	for _, e := range [4][2]float64{{-dx, x0}, {dx, maxX - x0}, {-dy, y0}, {dy, maxY - y0}} {
		p, q := e[0], e[1]
		if p == 0 {
			if q < 0 {
				return 0, 0, 0, 0, false
			}
			continue
		}
		r := q / p
		if p < 0 {
			if r > t1 {
				return 0, 0, 0, 0, false
			}
			t0 = math.Max(t0, r)
		} else {
			if r < t0 {
				return 0, 0, 0, 0, false
			}
			t1 = math.Min(t1, r)
		}
	}
	return x0 + t0*dx, y0 + t0*dy, x0 + t1*dx, y0 + t1*dy, true
}

func inTriangle(px, py, ax, ay, bx, by, cx, cy float64) bool {
	d1 := (px-bx)*(ay-by) - (ax-bx)*(py-by)
	d2 := (px-cx)*(by-cy) - (bx-cx)*(py-cy)
	d3 := (px-ax)*(cy-ay) - (cx-ax)*(py-ay)
	neg := d1 < 0 || d2 < 0 || d3 < 0
	pos := d1 > 0 || d2 > 0 || d3 > 0
	return !(neg && pos)
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

func sign(n int) int {
	switch {
	case n > 0:
		return 1
	case n < 0:
		return -1
	}
	return 0
}
