package geometry

import "math"

// LayoutState is the visible window in simulation coordinates.
type LayoutState struct {
	XRange [2]float64
	YRange [2]float64
}

// DefaultLayout frames the simulation area with a 10% margin on each side.
func DefaultLayout(dimX, dimY float64) LayoutState {
	return LayoutState{
		XRange: [2]float64{dimX * -0.1, dimX * 1.1},
		YRange: [2]float64{dimY * -0.1, dimY * 1.1},
	}
}

// XSpan is the absolute width of the window.
func (l LayoutState) XSpan() float64 { return math.Abs(l.XRange[1] - l.XRange[0]) }

// YSpan is the absolute height of the window.
func (l LayoutState) YSpan() float64 { return math.Abs(l.YRange[1] - l.YRange[0]) }

// Pan shifts the window by the given fractions of its span.
func (l LayoutState) Pan(fx, fy float64) LayoutState {
	dx := (l.XRange[1] - l.XRange[0]) * fx
	dy := (l.YRange[1] - l.YRange[0]) * fy
	return LayoutState{
		XRange: [2]float64{l.XRange[0] + dx, l.XRange[1] + dx},
		YRange: [2]float64{l.YRange[0] + dy, l.YRange[1] + dy},
	}
}

// Zoom scales the window around its center. A factor below 1 zooms in.
func (l LayoutState) Zoom(factor float64) LayoutState {
	if factor <= 0 {
		return l
	}
	return LayoutState{
		XRange: scaleRange(l.XRange, factor),
		YRange: scaleRange(l.YRange, factor),
	}
}

func scaleRange(r [2]float64, factor float64) [2]float64 {
	mid := (r[0] + r[1]) / 2
	half := (r[1] - r[0]) / 2 * factor
	return [2]float64{mid - half, mid + half}
}
