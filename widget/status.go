package widget

import (
	"fmt"

	"github.com/teranos/worldtree/crdt"
	"github.com/teranos/worldtree/endpoint"
	"github.com/teranos/worldtree/heartbeat"
)

// Status dot colours
const (
	DotIdle         = "#7a8b98"
	DotConnecting   = "#7a8b98"
	DotConnected    = "#4de38e"
	DotDisconnected = "#c55"
	DotError        = "#e6854d"
	DotBadURL       = "#d66"
)

func dotFor(state heartbeat.State, label string) string {
	if label == heartbeat.LabelBadURL {
		return DotBadURL
	}
	switch state {
	case heartbeat.StateConnecting:
		return DotConnecting
	case heartbeat.StateConnected:
		return DotConnected
	case heartbeat.StateDisconnected:
		return DotDisconnected
	case heartbeat.StateError:
		return DotError
	}
	return DotIdle
}

// OnState implements heartbeat.Observer
func (w *Widget) OnState(state heartbeat.State, label string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.status = label
	// Welcome relabels the row but keeps the dot
	if label != heartbeat.LabelWelcome {
		w.dot = dotFor(state, label)
	}
}

// OnWelcome implements heartbeat.Observer
func (w *Widget) OnWelcome() {}

// OnPing implements heartbeat.Observer. A ping pulses the orb when it is
// minimized and the heartbeat is not hushed.
func (w *Widget) OnPing(s heartbeat.Sample) {
	w.mu.Lock()
	w.heartbeatAt = s.Time
	if w.heartbeatAt == "" {
		w.heartbeatAt = "—"
	}
	if s.HasUsers {
		w.users = fmt.Sprint(s.Users)
	}
	if s.HasEnergy {
		w.energy = heartbeat.FormatEnergy(s.Energy)
	}
	pulse := w.ui.Minimized && !w.ui.HushHeartbeat && !w.closed
	if pulse {
		w.startPulseLocked()
	}
	onPulse := w.cfg.OnPulse
	w.mu.Unlock()

	if pulse && onPulse != nil {
		onPulse()
	}
}

func (w *Widget) startPulseLocked() {
	if w.pulseTimer != nil {
		w.pulseTimer.Stop()
	}
	w.pulsing = true
	w.pulseGen++
	gen := w.pulseGen
	w.pulseTimer = w.cfg.Clock.AfterFunc(w.cfg.PulseDuration, func() {
		w.mu.Lock()
		defer w.mu.Unlock()
		if w.pulseGen == gen {
			w.pulsing = false
		}
	})
}

// OnUsers implements heartbeat.Observer
func (w *Widget) OnUsers(n int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.users = fmt.Sprint(n)
}

// OnEnergy implements heartbeat.Observer
func (w *Widget) OnEnergy(v interface{}) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.energy = heartbeat.FormatEnergy(v)
}

// OnCRDTStatus updates the CRDT row and, once a sync server is known, the
// footer. Pass it to crdt.Bridge.SetOnStatus.
func (w *Widget) OnCRDTStatus(s crdt.Status) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.crdtRow = s.String()
	if s.Server != "" {
		w.footerServer = s.Server
	}
}

// SetSyncServer shows server in the footer
func (w *Widget) SetSyncServer(server string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.footerServer = server
}

func (w *Widget) hudTextLocked() string {
	return fmt.Sprintf("worldtree seed · users %s · energy %s · hb %s", w.users, w.energy, w.heartbeatAt)
}

func (w *Widget) footerLocked() Footer {
	return Footer{Server: endpoint.DisplayHost(w.footerServer), Title: w.footerServer}
}

// SetCRDTRow shows text in the CRDT row as is
func (w *Widget) SetCRDTRow(text string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.crdtRow = text
}
