package widget

import "math"

// Point is a viewport position in CSS pixels
type Point struct {
	X, Y float64
}

// Add returns p offset by q
func (p Point) Add(q Point) Point { return Point{p.X + q.X, p.Y + q.Y} }

// Size is a width and height
type Size struct {
	Width, Height float64
}

// Rect is a fixed-position box
type Rect struct {
	Left, Top     float64
	Width, Height float64
}

// Center returns the centre point
func (r Rect) Center() Point {
	return Point{r.Left + r.Width/2, r.Top + r.Height/2}
}

// Contains reports whether p lies inside r, edges included
func (r Rect) Contains(p Point) bool {
	return p.X >= r.Left && p.X <= r.Left+r.Width && p.Y >= r.Top && p.Y <= r.Top+r.Height
}

// MoveTo returns r with its top-left corner at p
func (r Rect) MoveTo(p Point) Rect {
	r.Left, r.Top = p.X, p.Y
	return r
}

// Viewport is the visible page area
type Viewport struct {
	Width, Height float64
}

// Layout constants
const (
	OrbSize     = 18
	OrbRight    = 20
	OrbTop      = 20
	PanelWidth  = 260
	PanelRight  = 16
	PanelTop    = 16
	PanelHeight = 190
	MenuWidth   = 180
	MenuHeight  = 120

	// edgeMargin keeps panels and menus off the viewport border
	edgeMargin = 8
	// panelGap separates the open panel from the orb
	panelGap = 12
	// clickSlop is the largest |dx|+|dy| an orb press may move and still
	// count as a click
	clickSlop = 3
)

// HUDOffset places the hover HUD below and right of the cursor
var HUDOffset = Point{12, 12}

// anchoredRight places a box of size s at the given right and top offsets
func anchoredRight(vp Viewport, s Size, right, top float64) Rect {
	return Rect{Left: vp.Width - right - s.Width, Top: top, Width: s.Width, Height: s.Height}
}

// clamp limits v to [lo, hi]. When the range is empty lo wins.
func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(v, hi))
}

// alignToOrb puts the panel left of the orb and slightly above it,
// clamped inside the viewport
func alignToOrb(panel, orb Rect, vp Viewport) Rect {
	left := orb.Left - panel.Width - panelGap
	top := orb.Top - 10
	panel.Left = clamp(left, edgeMargin, vp.Width-panel.Width-edgeMargin)
	panel.Top = clamp(top, edgeMargin, vp.Height-panel.Height-edgeMargin)
	return panel
}

// placeMenu opens the menu up and left of the trigger point, flipping to
// the other side near an edge, always inside the viewport
func placeMenu(at Point, s Size, vp Viewport) Rect {
	x := at.X - s.Width - edgeMargin
	y := at.Y - s.Height - edgeMargin
	if x < edgeMargin {
		x = math.Min(at.X+edgeMargin, vp.Width-s.Width-edgeMargin)
	}
	if y < edgeMargin {
		y = math.Min(at.Y+edgeMargin, vp.Height-s.Height-edgeMargin)
	}
	return Rect{
		Left:   clamp(x, edgeMargin, vp.Width-s.Width-edgeMargin),
		Top:    clamp(y, edgeMargin, vp.Height-s.Height-edgeMargin),
		Width:  s.Width,
		Height: s.Height,
	}
}

// followStep eases the orb centre toward a point gap pixels short of the
// cursor, moving factor of the remaining distance
func followStep(orb Rect, cursor Point, gap, factor float64) Rect {
	c := orb.Center()
	dx, dy := cursor.X-c.X, cursor.Y-c.Y
	dist := math.Hypot(dx, dy)
	if dist == 0 {
		dist = 1
	}
	tx := cursor.X - dx/dist*gap
	ty := cursor.Y - dy/dist*gap
	nx := c.X + (tx-c.X)*factor
	ny := c.Y + (ty-c.Y)*factor
	return orb.MoveTo(Point{nx - orb.Width/2, ny - orb.Height/2})
}
