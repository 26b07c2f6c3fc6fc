package widget

import (
	"net/url"

	"github.com/teranos/worldtree/crdt"
	"github.com/teranos/worldtree/errors"
	"github.com/teranos/worldtree/logger"
)

// Action is a context menu entry
type Action int

const (
	ActionVisit Action = iota
	ActionToggleUsers
	ActionToggleHush
	ActionToggleFollow
	ActionSummon
	ActionChangeServer
	ActionAppendTest
)

// MenuItem is one rendered menu entry
type MenuItem struct {
	Action Action
	Label  string
}

// ServerPrompt is the change-server dialog text
const ServerPrompt = "Enter sync server WebSocket URL"

// isoMillis is RFC 3339 with exactly three fractional digits
const isoMillis = "2006-01-02T15:04:05.000Z07:00"

func (w *Widget) menuItemsLocked() []MenuItem {
	users := "Turn on users activity"
	if w.ui.ShowUsers {
		users = "Turn off users activity"
	}
	hush := "Hush heartbeat"
	if w.ui.HushHeartbeat {
		hush = "Unhush heartbeat"
	}
	follow := "Follow cursor"
	if w.ui.FollowMode {
		follow = "Stop Follow cursor"
	}
	items := []MenuItem{
		{ActionVisit, "Visit WorldTree"},
		{ActionToggleUsers, users},
		{ActionToggleHush, hush},
		{ActionToggleFollow, follow},
		{ActionSummon, "Summon (invite others here)"},
	}
	if w.cfg.AllowServerSwitch {
		items = append(items, MenuItem{ActionChangeServer, "Change sync server…"})
	}
	return append(items, MenuItem{ActionAppendTest, "Comments: Append test"})
}

// Select closes the menu and runs the action. Actions that are not on
// the menu, such as changing server when switching is not allowed, are
// ignored.
func (w *Widget) Select(a Action) {
	w.mu.Lock()
	offered := false
	for _, it := range w.menuItemsLocked() {
		if it.Action == a {
			offered = true
			break
		}
	}
	w.hideMenuLocked()
	w.mu.Unlock()
	if !offered {
		return
	}

	switch a {
	case ActionVisit:
		if w.cfg.Host != nil {
			if err := w.cfg.Host.OpenURL(w.cfg.HomeURL); err != nil {
				w.log.Debugw("Open home URL failed", logger.FieldError, err)
			}
		}
	case ActionToggleUsers:
		w.ToggleUsers()
	case ActionToggleHush:
		w.ToggleHush()
	case ActionToggleFollow:
		w.ToggleFollow()
	case ActionSummon:
		w.Summon()
	case ActionChangeServer:
		w.ChangeServer()
	case ActionAppendTest:
		w.AppendTest()
	}
}

// Summon invites others to the current page. Nothing is sent while the
// heartbeat channel is closed.
func (w *Widget) Summon() {
	if w.cfg.Heartbeat == nil {
		return
	}
	if err := w.cfg.Heartbeat.SendSummon(w.cfg.PageURL); err != nil {
		w.log.Debugw("Summon not sent", logger.FieldError, err)
	}
}

// AppendTest adds a timestamped test comment
func (w *Widget) AppendTest() {
	if w.cfg.Comments == nil {
		return
	}
	now := w.cfg.Clock.Now()
	_, err := w.cfg.Comments.Add(crdt.Record{
		"text": "test:" + now.UTC().Format(isoMillis),
		"ts":   now.UnixMilli(),
	})
	if err != nil {
		w.log.Debugw("Append test comment failed", logger.FieldError, err)
	}
}

// currentServer is the prompt's initial value: the stored override, the
// sync server, the heartbeat server, then the local default
func (w *Widget) currentServer() string {
	if w.cfg.Overrides != nil {
		if s, ok := w.cfg.Overrides.Get(); ok && s != "" {
			return s
		}
	}
	if w.cfg.Comments != nil {
		if s := w.cfg.Comments.SyncServer(); s != "" {
			return s
		}
	}
	if w.cfg.HeartbeatServer != "" {
		return w.cfg.HeartbeatServer
	}
	return FallbackServer
}

// ChangeServer prompts for a sync server and hot-swaps the comments
// bridge, which persists the override. Without an installed bridge the
// widget persists it itself. Empty or cancelled input does nothing.
func (w *Widget) ChangeServer() {
	if w.cfg.Host == nil || !w.cfg.AllowServerSwitch {
		return
	}
	next, ok := w.cfg.Host.Prompt(ServerPrompt, w.currentServer())
	if !ok || next == "" {
		return
	}
	if u, err := url.Parse(next); err != nil || (u.Scheme != "ws" && u.Scheme != "wss") || u.Host == "" {
		w.cfg.Host.Alert("Not a WebSocket URL: " + next)
		return
	}

	if w.cfg.Comments == nil {
		w.persistServer(next)
		return
	}
	err := w.cfg.Comments.Configure(crdt.ConfigureOptions{Server: next})
	switch {
	case err == nil:
	case errors.Is(err, errors.ErrNotInstalled):
		w.persistServer(next)
		w.log.Infow("Server override stored; no comments document installed", logger.FieldServer, next)
	default:
		w.cfg.Host.Alert("Could not switch sync server: " + err.Error())
	}
}

func (w *Widget) persistServer(server string) {
	if w.cfg.Overrides == nil {
		return
	}
	if err := w.cfg.Overrides.Set(server); err != nil {
		w.log.Warnw("Server override not persisted", logger.FieldServer, server, logger.FieldError, err)
	}
}
