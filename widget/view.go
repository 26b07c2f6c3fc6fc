package widget

// HUD is the hover summary that tracks the cursor
type HUD struct {
	Visible bool
	At      Point
	Text    string
}

// Footer shows the sync server without its scheme; Title is the full URL
type Footer struct {
	Server string
	Title  string
}

// Rows are the panel's value column
type Rows struct {
	Status    string
	Users     string
	Energy    string
	Heartbeat string
	CRDT      string
}

// View is a snapshot of everything a renderer draws
type View struct {
	State        UIState
	FollowActive bool
	Pulsing      bool
	ShowGear     bool

	Orb   Rect
	Panel Rect
	// Menu is only meaningful while State.MenuOpen
	Menu      Rect
	MenuItems []MenuItem
	Dot       string
	Rows      Rows
	HUD       HUD
	Footer    Footer
	Viewport  Viewport
	Cursor    Point
}

// PanelVisible reports whether the panel is shown
func (v View) PanelVisible() bool { return !v.State.Minimized }

// View returns the current snapshot
func (w *Widget) View() View {
	w.mu.Lock()
	defer w.mu.Unlock()
	v := View{
		State:     w.ui,
		Pulsing:   w.pulsing,
		ShowGear:  w.cfg.AllowServerSwitch,
		Orb:       w.orb,
		Panel:     w.panel,
		Menu:      w.menu,
		MenuItems: w.menuItemsLocked(),
		Dot:       w.dot,
		Rows: Rows{
			Status:    w.status,
			Users:     w.users,
			Energy:    w.energy,
			Heartbeat: w.heartbeatAt,
			CRDT:      w.crdtRow,
		},
		HUD:      w.hud,
		Footer:   w.footerLocked(),
		Viewport: w.vp,
		Cursor:   w.mouse,
	}
	if !w.ui.ShowUsers {
		v.Rows.Users = ""
	}
	v.FollowActive = w.loop.Active()
	return v
}
