package widget

import "math"

// Target is the element an event landed on
type Target int

const (
	TargetPage Target = iota
	TargetOrb
	TargetPanel
	TargetHeader
	TargetMenu
)

// Button identifies the pointer that produced an event. Touch behaves
// like the left mouse button.
type Button int

const (
	ButtonLeft Button = iota
	ButtonMiddle
	ButtonRight
	ButtonTouch
)

func (b Button) primary() bool { return b == ButtonLeft || b == ButtonTouch }

// PointerDown starts dragging the orb (primary button only) or the panel
// header (any button)
func (w *Widget) PointerDown(t Target, p Point, b Button) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.mouse = p
	switch t {
	case TargetOrb:
		if !b.primary() {
			return
		}
		w.drag = drag{kind: dragOrb, start: p, from: w.orb}
	case TargetHeader:
		w.drag = drag{kind: dragPanel, start: p, from: w.panel}
	default:
		return
	}
	w.ui.AnyDragging = true
}

// PointerMove tracks the cursor for follow mode and moves a dragged element
func (w *Widget) PointerMove(p Point) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.mouse = p

	d := &w.drag
	dx, dy := p.X-d.start.X, p.Y-d.start.Y
	switch d.kind {
	case dragOrb:
		if math.Abs(dx)+math.Abs(dy) > clickSlop {
			d.moved = true
		}
		w.orb = d.from.MoveTo(Point{d.from.Left + dx, d.from.Top + dy})
		w.orbPin = true
		if !w.ui.Minimized {
			w.panel = alignToOrb(w.panel, w.orb, w.vp)
		}
	case dragPanel:
		w.panel = d.from.MoveTo(Point{d.from.Left + dx, d.from.Top + dy})
		w.panPin = true
	}
}

// PointerUp ends a drag. An orb press released by the primary button
// without moving past the click slop toggles the panel.
func (w *Widget) PointerUp(p Point, b Button) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.mouse = p
	d := w.drag
	if d.kind == dragNone {
		return
	}
	w.drag = drag{}
	w.ui.AnyDragging = false

	if d.kind != dragOrb || !b.primary() || d.moved {
		return
	}
	w.showLocked(w.ui.Minimized)
}

// ContextMenu opens the menu when the orb or panel is right-clicked
func (w *Widget) ContextMenu(t Target, p Point) {
	if t != TargetOrb && t != TargetPanel && t != TargetHeader {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.ui.MenuOpen = true
	// Following pauses while the menu is open
	if w.ui.FollowMode {
		w.loop.Stop()
	}
	w.menu = placeMenu(p, Size{MenuWidth, MenuHeight}, w.vp)
}

// DocumentClick closes an open menu when the click lands outside it
func (w *Widget) DocumentClick(p Point) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.ui.MenuOpen && !w.menu.Contains(p) {
		w.hideMenuLocked()
	}
}

// KeyDown handles keyboard input; Escape closes the menu
func (w *Widget) KeyDown(key string) {
	if key != "Escape" {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.hideMenuLocked()
}

// CloseMenu hides the menu
func (w *Widget) CloseMenu() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.hideMenuLocked()
}

func (w *Widget) hideMenuLocked() {
	w.ui.MenuOpen = false
	if w.ui.FollowMode && w.ui.Minimized {
		w.startFollowLocked()
	}
}

// HoverEnter shows the HUD over the orb or panel. Hovering the orb also
// pauses following so it can be caught.
func (w *Widget) HoverEnter(t Target, p Point) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t == TargetOrb {
		w.ui.FollowPaused = true
	}
	w.showHUDLocked(t, p)
}

// HoverMove keeps the HUD under the cursor
func (w *Widget) HoverMove(t Target, p Point) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.showHUDLocked(t, p)
}

// HoverLeave hides the HUD and resumes following after the orb is left
func (w *Widget) HoverLeave(t Target, p Point) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t == TargetOrb {
		w.ui.FollowPaused = false
	}
	if t == TargetOrb || t == TargetPanel || t == TargetHeader {
		w.hud.Visible = false
	}
}

func (w *Widget) showHUDLocked(t Target, p Point) {
	if t != TargetOrb && t != TargetPanel && t != TargetHeader {
		return
	}
	w.hud = HUD{Visible: true, At: p.Add(HUDOffset), Text: w.hudTextLocked()}
}

// Resize records a new viewport. Elements still at their default
// top-right anchor move with the right edge.
func (w *Widget) Resize(vp Viewport) {
	if vp.Width <= 0 || vp.Height <= 0 {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.vp = vp
	if !w.orbPin {
		w.orb = anchoredRight(vp, Size{OrbSize, OrbSize}, OrbRight, OrbTop)
	}
	if !w.panPin {
		w.panel = anchoredRight(vp, Size{PanelWidth, PanelHeight}, PanelRight, PanelTop)
	}
}
