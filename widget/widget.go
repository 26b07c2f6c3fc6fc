// Package widget is the headless orb and panel. It keeps the UI state
// machine, geometry and labels that a renderer would draw, and reacts to
// pointer, keyboard and viewport events fed in by the host.
package widget

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/teranos/worldtree/anim"
	"github.com/teranos/worldtree/crdt"
	"github.com/teranos/worldtree/heartbeat"
	"github.com/teranos/worldtree/internal/clock"
	"github.com/teranos/worldtree/logger"
)

// Defaults used when Config leaves a field zero
const (
	DefaultFollowGap     = 20.0
	DefaultFollowFactor  = 0.045
	DefaultPulseDuration = 240 * time.Millisecond
	DefaultHomeURL       = "https://worldtree.online"
	FallbackServer       = "ws://localhost:3030"
)

// Host provides the blocking dialogs and navigation of the embedding page
type Host interface {
	// Prompt asks for a line of text. ok is false when cancelled.
	Prompt(message, initial string) (value string, ok bool)
	Alert(message string)
	OpenURL(url string) error
}

// Summoner sends an invite for the current page
type Summoner interface {
	SendSummon(pageURL string) error
}

// Comments is the part of the comments bridge the menu drives
type Comments interface {
	Add(rec crdt.Record) (string, error)
	Configure(opts crdt.ConfigureOptions) error
	SyncServer() string
}

// Config configures a Widget
type Config struct {
	Viewport          Viewport
	Minimized         bool
	Follow            bool
	AllowServerSwitch bool

	// HeartbeatServer is shown in the footer until a sync server is known
	HeartbeatServer string
	HomeURL         string
	PageURL         string

	FollowGap     float64
	FollowFactor  float64
	PulseDuration time.Duration

	Scheduler anim.Scheduler
	Clock     clock.Clock
	Host      Host
	Heartbeat Summoner
	Comments  Comments
	Overrides crdt.OverrideStore

	// OnPulse is called for each orb pulse
	OnPulse func()
	Logger  *zap.SugaredLogger
}

type dragKind int

const (
	dragNone dragKind = iota
	dragOrb
	dragPanel
)

type drag struct {
	kind  dragKind
	start Point
	from  Rect
	moved bool
}

// Widget is the orb/panel state machine. All methods are safe for
// concurrent use; frame callbacks and heartbeat events arrive on other
// goroutines.
type Widget struct {
	cfg  Config
	log  *zap.SugaredLogger
	loop *anim.Loop
	// ticker is set when New created the scheduler; Close stops it
	ticker *anim.TickerScheduler

	mu               sync.Mutex
	ui               UIState
	followBeforeOpen bool

	vp     Viewport
	orb    Rect
	panel  Rect
	menu   Rect
	mouse  Point
	drag   drag
	orbPin bool // orb moved away from its top-right anchor
	panPin bool

	status, dot                string
	users, energy, heartbeatAt string
	crdtRow                    string
	footerServer               string

	hud        HUD
	pulsing    bool
	pulseGen   uint64
	pulseTimer clock.Timer
	closed     bool
}

// UIState holds the orthogonal widget flags
type UIState struct {
	Minimized     bool
	FollowMode    bool
	HushHeartbeat bool
	ShowUsers     bool
	MenuOpen      bool
	FollowPaused  bool
	AnyDragging   bool
}

var _ heartbeat.Observer = (*Widget)(nil)

// New builds the widget and starts following when cfg.Follow is set
func New(cfg Config) *Widget {
	if cfg.FollowGap <= 0 {
		cfg.FollowGap = DefaultFollowGap
	}
	if cfg.FollowFactor <= 0 || cfg.FollowFactor > 1 {
		cfg.FollowFactor = DefaultFollowFactor
	}
	if cfg.PulseDuration <= 0 {
		cfg.PulseDuration = DefaultPulseDuration
	}
	if cfg.HomeURL == "" {
		cfg.HomeURL = DefaultHomeURL
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.Real{}
	}
	if cfg.Viewport.Width <= 0 || cfg.Viewport.Height <= 0 {
		cfg.Viewport = Viewport{1280, 800}
	}

	w := &Widget{
		cfg:          cfg,
		log:          logger.OrNop(cfg.Logger),
		vp:           cfg.Viewport,
		status:       "—",
		dot:          DotIdle,
		users:        "—",
		energy:       "—",
		heartbeatAt:  "—",
		crdtRow:      "—",
		footerServer: cfg.HeartbeatServer,
	}
	w.ui.ShowUsers = true
	w.orb = anchoredRight(w.vp, Size{OrbSize, OrbSize}, OrbRight, OrbTop)
	w.panel = anchoredRight(w.vp, Size{PanelWidth, PanelHeight}, PanelRight, PanelTop)
	w.menu = Rect{Width: MenuWidth, Height: MenuHeight}

	if cfg.Scheduler == nil {
		w.ticker = anim.NewTickerScheduler(anim.DefaultFPS)
		cfg.Scheduler = w.ticker
		w.cfg.Scheduler = cfg.Scheduler
	}
	w.loop = anim.NewLoop(cfg.Scheduler, w.followFrame)

	w.ui.Minimized = cfg.Minimized
	if !w.ui.Minimized {
		w.panel = alignToOrb(w.panel, w.orb, w.vp)
		w.panPin = true
	}
	if cfg.Follow {
		w.ui.FollowMode = true
		w.loop.Start()
	}
	return w
}

// State returns a copy of the flags
func (w *Widget) State() UIState {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.ui
}

// FollowActive reports whether a follow frame is pending
func (w *Widget) FollowActive() bool {
	return w.loop.Active()
}

// Pulsing reports whether the orb is inside a pulse
func (w *Widget) Pulsing() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.pulsing
}

// Close stops the follow loop and any pending pulse, and the frame
// scheduler when the widget created it
func (w *Widget) Close() {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	w.closed = true
	w.ui.FollowMode = false
	w.loop.Stop()
	if w.pulseTimer != nil {
		w.pulseTimer.Stop()
	}
	w.mu.Unlock()

	if w.ticker != nil {
		w.ticker.Stop()
	}
}

// Toggle opens a minimized widget or minimizes an open one
func (w *Widget) Toggle() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.showLocked(w.ui.Minimized)
}

// showLocked opens or closes the panel. Opening pauses following and
// remembers whether it was on; closing resumes it.
func (w *Widget) showLocked(expand bool) {
	w.ui.Minimized = !expand
	if expand {
		w.followBeforeOpen = w.ui.FollowMode
		w.loop.Stop()
		w.panel = alignToOrb(w.panel, w.orb, w.vp)
		w.panPin = true
		return
	}
	if w.followBeforeOpen {
		w.startFollowLocked()
	}
	w.followBeforeOpen = false
}

// ToggleFollow flips follow mode and starts or stops the loop
func (w *Widget) ToggleFollow() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.ui.FollowMode = !w.ui.FollowMode
	if w.ui.FollowMode {
		w.startFollowLocked()
	} else {
		w.loop.Stop()
	}
}

// startFollowLocked starts the loop unless the open menu holds it paused;
// closing the menu starts it then
func (w *Widget) startFollowLocked() {
	if w.ui.MenuOpen || w.loop.Active() {
		return
	}
	w.loop.Start()
}

// ToggleUsers shows or hides the users row
func (w *Widget) ToggleUsers() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.ui.ShowUsers = !w.ui.ShowUsers
}

// ToggleHush silences or restores the ping pulse
func (w *Widget) ToggleHush() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.ui.HushHeartbeat = !w.ui.HushHeartbeat
}

// followFrame runs once per frame while the loop is active. It ends the
// loop when follow mode is off and only moves a minimized orb.
func (w *Widget) followFrame(time.Time) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.ui.FollowMode {
		return false
	}
	if w.ui.AnyDragging || w.ui.FollowPaused || w.ui.MenuOpen {
		return true
	}
	if w.ui.Minimized {
		w.orb = followStep(w.orb, w.mouse, w.cfg.FollowGap, w.cfg.FollowFactor)
		w.orbPin = true
	}
	return true
}
