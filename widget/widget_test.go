package widget

import (
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/worldtree/anim"
	"github.com/teranos/worldtree/crdt"
	"github.com/teranos/worldtree/errors"
	"github.com/teranos/worldtree/heartbeat"
	"github.com/teranos/worldtree/internal/clock/clocktest"
)

var epoch = time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

type fakeHost struct {
	answer  string
	ok      bool
	prompts []string
	initial []string
	alerts  []string
	opened  []string
}

func (h *fakeHost) Prompt(msg, initial string) (string, bool) {
	h.prompts = append(h.prompts, msg)
	h.initial = append(h.initial, initial)
	return h.answer, h.ok
}

func (h *fakeHost) Alert(msg string) { h.alerts = append(h.alerts, msg) }

func (h *fakeHost) OpenURL(u string) error {
	h.opened = append(h.opened, u)
	return nil
}

type fakeSummoner struct{ pages []string }

func (s *fakeSummoner) SendSummon(page string) error {
	s.pages = append(s.pages, page)
	return nil
}

// fakeComments persists a configured server into over on success, as
// the bridge does
type fakeComments struct {
	mu         sync.Mutex
	added      []crdt.Record
	configured []crdt.ConfigureOptions
	server     string
	err        error
	over       *memoryOverrides
}

func (c *fakeComments) Add(rec crdt.Record) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.added = append(c.added, rec)
	return "id", nil
}

func (c *fakeComments) Configure(opts crdt.ConfigureOptions) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.configured = append(c.configured, opts)
	if c.err == nil && c.over != nil && opts.Server != "" {
		_ = c.over.Set(opts.Server)
	}
	return c.err
}

func (c *fakeComments) SyncServer() string { return c.server }

type memoryOverrides struct {
	value  string
	set    bool
	writes int
}

func (m *memoryOverrides) Get() (string, bool) { return m.value, m.set }
func (m *memoryOverrides) Set(s string) error {
	m.value, m.set = s, true
	m.writes++
	return nil
}
func (m *memoryOverrides) Clear() error { m.value, m.set = "", false; return nil }

type fixture struct {
	w        *Widget
	sched    *anim.ManualScheduler
	clock    *clocktest.FakeClock
	host     *fakeHost
	summoner *fakeSummoner
	comments *fakeComments
	over     *memoryOverrides
	pulses   int
}

func newFixture(t *testing.T, mutate func(*Config)) *fixture {
	t.Helper()
	f := &fixture{
		sched:    anim.NewManualScheduler(epoch),
		clock:    clocktest.NewFakeClock(epoch),
		host:     &fakeHost{},
		summoner: &fakeSummoner{},
		comments: &fakeComments{},
		over:     &memoryOverrides{},
	}
	f.comments.over = f.over
	cfg := Config{
		Viewport:        Viewport{1280, 800},
		Minimized:       true,
		HeartbeatServer: "wss://hb.example",
		PageURL:         "https://example.com/page",
		Scheduler:       f.sched,
		Clock:           f.clock,
		Host:            f.host,
		Heartbeat:       f.summoner,
		Comments:        f.comments,
		Overrides:       f.over,
		OnPulse:         func() { f.pulses++ },
	}
	if mutate != nil {
		mutate(&cfg)
	}
	f.w = New(cfg)
	t.Cleanup(f.w.Close)
	return f
}

func (f *fixture) click(target Target, p Point) {
	f.w.PointerDown(target, p, ButtonLeft)
	f.w.PointerUp(p, ButtonLeft)
}

func labels(items []MenuItem) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.Label
	}
	return out
}

func TestInitialLayout(t *testing.T) {
	f := newFixture(t, nil)
	v := f.w.View()

	assert.True(t, v.State.Minimized)
	assert.False(t, v.PanelVisible())
	assert.False(t, v.FollowActive)
	assert.True(t, v.State.ShowUsers)
	assert.Equal(t, Rect{Left: 1242, Top: 20, Width: 18, Height: 18}, v.Orb)
	assert.Equal(t, Rect{Left: 1004, Top: 16, Width: 260, Height: PanelHeight}, v.Panel)
	assert.Equal(t, Rows{Status: "—", Users: "—", Energy: "—", Heartbeat: "—", CRDT: "—"}, v.Rows)
	assert.Equal(t, Footer{Server: "hb.example", Title: "wss://hb.example"}, v.Footer)
	assert.Equal(t, []string{
		"Visit WorldTree",
		"Turn off users activity",
		"Hush heartbeat",
		"Follow cursor",
		"Summon (invite others here)",
		"Comments: Append test",
	}, labels(v.MenuItems))
}

func TestStartExpanded(t *testing.T) {
	f := newFixture(t, func(c *Config) { c.Minimized = false })
	v := f.w.View()
	assert.True(t, v.PanelVisible())
	assert.Equal(t, 970.0, v.Panel.Left)
	assert.Equal(t, 10.0, v.Panel.Top)
}

func TestOrbClickTogglesPanel(t *testing.T) {
	f := newFixture(t, nil)

	f.click(TargetOrb, Point{1250, 28})
	v := f.w.View()
	require.False(t, v.State.Minimized)
	// Left of the orb, 12px gap, 10px above, clamped to the 8px margin
	assert.Equal(t, 1242.0-260-12, v.Panel.Left)
	assert.Equal(t, 10.0, v.Panel.Top)
	assert.False(t, v.State.AnyDragging)

	f.click(TargetOrb, Point{1250, 28})
	assert.True(t, f.w.State().Minimized)
}

func TestOrbClickSlop(t *testing.T) {
	f := newFixture(t, nil)

	// |dx|+|dy| of exactly 3 is still a click
	f.w.PointerDown(TargetOrb, Point{1250, 28}, ButtonLeft)
	f.w.PointerMove(Point{1252, 29})
	f.w.PointerUp(Point{1252, 29}, ButtonLeft)
	assert.False(t, f.w.State().Minimized)

	f.w.PointerDown(TargetOrb, Point{1250, 28}, ButtonTouch)
	f.w.PointerMove(Point{1200, 60})
	f.w.PointerMove(Point{1250, 28})
	f.w.PointerUp(Point{1250, 28}, ButtonTouch)
	assert.False(t, f.w.State().Minimized, "a drag that returns to its start is not a click")
}

func TestOrbDragMovesOrbAndKeepsPanelAligned(t *testing.T) {
	f := newFixture(t, func(c *Config) { c.Minimized = false })

	f.w.PointerDown(TargetOrb, Point{1250, 28}, ButtonLeft)
	assert.True(t, f.w.State().AnyDragging)
	f.w.PointerMove(Point{650, 428})
	v := f.w.View()
	assert.Equal(t, Rect{Left: 642, Top: 420, Width: 18, Height: 18}, v.Orb)
	assert.Equal(t, 642.0-260-12, v.Panel.Left)
	assert.Equal(t, 410.0, v.Panel.Top)

	f.w.PointerUp(Point{650, 428}, ButtonLeft)
	assert.False(t, f.w.State().AnyDragging)
	assert.False(t, f.w.State().Minimized)
}

func TestRightButtonNeverToggles(t *testing.T) {
	f := newFixture(t, nil)
	f.w.PointerDown(TargetOrb, Point{1250, 28}, ButtonRight)
	f.w.PointerUp(Point{1250, 28}, ButtonRight)
	assert.True(t, f.w.State().Minimized)
	assert.False(t, f.w.State().AnyDragging)

	// A left press released by another button ends the drag only
	f.w.PointerDown(TargetOrb, Point{1250, 28}, ButtonLeft)
	f.w.PointerUp(Point{1250, 28}, ButtonRight)
	assert.True(t, f.w.State().Minimized)
	assert.False(t, f.w.State().AnyDragging)
}

func TestHeaderDragMovesPanel(t *testing.T) {
	f := newFixture(t, func(c *Config) { c.Minimized = false })
	before := f.w.View().Panel

	f.w.PointerDown(TargetHeader, Point{1000, 20}, ButtonLeft)
	f.w.PointerMove(Point{900, 120})
	f.w.PointerUp(Point{900, 120}, ButtonLeft)

	after := f.w.View().Panel
	assert.Equal(t, before.Left-100, after.Left)
	assert.Equal(t, before.Top+100, after.Top)
	assert.False(t, f.w.State().Minimized)
}

func TestFollowToggleRoundTrip(t *testing.T) {
	f := newFixture(t, nil)

	f.w.ToggleFollow()
	assert.True(t, f.w.FollowActive())
	assert.Equal(t, 1, f.sched.Pending())
	assert.Equal(t, "Stop Follow cursor", labels(f.w.View().MenuItems)[3])

	f.w.ToggleFollow()
	assert.False(t, f.w.FollowActive())
	assert.Zero(t, f.sched.Pending())
	assert.Zero(t, f.sched.Step())
	assert.Equal(t, "Follow cursor", labels(f.w.View().MenuItems)[3])
}

func TestFollowEasesTowardCursor(t *testing.T) {
	f := newFixture(t, func(c *Config) { c.Follow = true })
	cursor := Point{100, 100}
	f.w.PointerMove(cursor)

	dist := func() float64 {
		c := f.w.View().Orb.Center()
		return math.Hypot(cursor.X-c.X, cursor.Y-c.Y)
	}
	d0 := dist()
	f.sched.Step()
	// One frame covers 4.5% of the way to the point 20px short of the cursor
	assert.InDelta(t, d0-DefaultFollowFactor*(d0-DefaultFollowGap), dist(), 1e-9)

	for i := 0; i < 1000; i++ {
		f.sched.Step()
	}
	assert.InDelta(t, DefaultFollowGap, dist(), 0.01)
	assert.Equal(t, 1, f.sched.Pending())
}

func TestFollowPausedByHoverAndDrag(t *testing.T) {
	f := newFixture(t, func(c *Config) { c.Follow = true })
	f.w.PointerMove(Point{100, 100})
	orb := f.w.View().Orb

	f.w.HoverEnter(TargetOrb, Point{1250, 28})
	f.sched.Step()
	assert.Equal(t, orb, f.w.View().Orb)
	assert.True(t, f.w.FollowActive(), "paused, not stopped")

	f.w.HoverLeave(TargetOrb, Point{1250, 28})
	f.w.PointerDown(TargetHeader, Point{1000, 20}, ButtonLeft)
	f.sched.Step()
	f.w.PointerUp(Point{1000, 20}, ButtonLeft)

	f.w.PointerMove(Point{100, 100})
	f.sched.Step()
	assert.NotEqual(t, orb, f.w.View().Orb)
}

func TestOpeningPanelPausesFollowAndClosingRestoresIt(t *testing.T) {
	f := newFixture(t, func(c *Config) { c.Follow = true })
	require.True(t, f.w.FollowActive())

	f.w.Toggle()
	assert.False(t, f.w.FollowActive())
	assert.Zero(t, f.sched.Pending())
	assert.True(t, f.w.State().FollowMode, "intent is kept")

	f.w.Toggle()
	assert.True(t, f.w.FollowActive())
	assert.Equal(t, 1, f.sched.Pending())

	// Not following before opening: closing does not start it
	g := newFixture(t, nil)
	g.w.Toggle()
	g.w.Toggle()
	assert.False(t, g.w.FollowActive())
}

func TestContextMenuPlacementAndFollowPause(t *testing.T) {
	f := newFixture(t, func(c *Config) { c.Follow = true })

	f.w.ContextMenu(TargetOrb, Point{600, 400})
	v := f.w.View()
	require.True(t, v.State.MenuOpen)
	assert.Equal(t, Rect{Left: 412, Top: 272, Width: 180, Height: 120}, v.Menu)
	assert.False(t, v.FollowActive)
	assert.Zero(t, f.sched.Pending())

	f.w.KeyDown("Enter")
	assert.True(t, f.w.State().MenuOpen)
	f.w.KeyDown("Escape")
	assert.False(t, f.w.State().MenuOpen)
	assert.True(t, f.w.FollowActive())

	// Near the top-left corner it opens down and right
	f.w.ContextMenu(TargetPanel, Point{10, 10})
	assert.Equal(t, Rect{Left: 18, Top: 18, Width: 180, Height: 120}, f.w.View().Menu)

	// Page right-clicks are not ours
	f.w.CloseMenu()
	f.w.ContextMenu(TargetPage, Point{500, 500})
	assert.False(t, f.w.State().MenuOpen)
}

func TestDocumentClickClosesMenuOutsideOnly(t *testing.T) {
	f := newFixture(t, nil)
	f.w.ContextMenu(TargetOrb, Point{600, 400})

	f.w.DocumentClick(Point{450, 300})
	assert.True(t, f.w.State().MenuOpen)
	f.w.DocumentClick(Point{50, 50})
	assert.False(t, f.w.State().MenuOpen)
}

func TestMenuStaysClosedWhileExpanded(t *testing.T) {
	f := newFixture(t, func(c *Config) { c.Follow = true })
	f.w.Toggle()
	f.w.ContextMenu(TargetPanel, Point{600, 400})
	f.w.KeyDown("Escape")
	assert.False(t, f.w.FollowActive(), "follow resumes only when minimized")
}

func TestPingPulsesOnlyWhenMinimizedAndNotHushed(t *testing.T) {
	for _, tt := range []struct {
		name      string
		minimized bool
		hushed    bool
		pulse     bool
	}{
		{"minimized", true, false, true},
		{"minimized hushed", true, true, false},
		{"expanded", false, false, false},
		{"expanded hushed", false, true, false},
	} {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, func(c *Config) { c.Minimized = tt.minimized })
			if tt.hushed {
				f.w.ToggleHush()
			}
			f.w.OnPing(heartbeat.Sample{Time: "12:00:00"})
			assert.Equal(t, tt.pulse, f.w.Pulsing())
			assert.Equal(t, tt.pulse, f.pulses == 1)
		})
	}
}

func TestPulseEndsAfterDuration(t *testing.T) {
	f := newFixture(t, nil)
	f.w.OnPing(heartbeat.Sample{})
	require.True(t, f.w.Pulsing())

	f.clock.Advance(200 * time.Millisecond)
	f.w.OnPing(heartbeat.Sample{})
	f.clock.Advance(200 * time.Millisecond)
	assert.True(t, f.w.Pulsing(), "a second ping restarts the pulse")
	f.clock.Advance(40 * time.Millisecond)
	assert.False(t, f.w.Pulsing())
	assert.Equal(t, 2, f.pulses)
}

func TestPingUpdatesRows(t *testing.T) {
	f := newFixture(t, nil)
	f.w.OnPing(heartbeat.Sample{Time: "12:00:00", Users: 3, HasUsers: true, Energy: float64(42), HasEnergy: true})

	rows := f.w.View().Rows
	assert.Equal(t, "12:00:00", rows.Heartbeat)
	assert.Equal(t, "3", rows.Users)
	assert.Equal(t, "42", rows.Energy)

	f.w.OnUsers(5)
	f.w.OnEnergy(nil)
	rows = f.w.View().Rows
	assert.Equal(t, "5", rows.Users)
	assert.Equal(t, "—", rows.Energy)

	f.w.ToggleUsers()
	assert.Empty(t, f.w.View().Rows.Users)
	assert.Equal(t, "Turn on users activity", labels(f.w.View().MenuItems)[1])
}

func TestStatusRowAndDot(t *testing.T) {
	f := newFixture(t, nil)
	f.w.OnState(heartbeat.StateConnected, heartbeat.LabelConnected)
	v := f.w.View()
	assert.Equal(t, "Connected", v.Rows.Status)
	assert.Equal(t, DotConnected, v.Dot)

	f.w.OnState(heartbeat.StateConnected, heartbeat.LabelWelcome)
	v = f.w.View()
	assert.Equal(t, "Welcome", v.Rows.Status)
	assert.Equal(t, DotConnected, v.Dot)

	f.w.OnState(heartbeat.StateError, heartbeat.LabelBadURL)
	assert.Equal(t, DotBadURL, f.w.View().Dot)
	f.w.OnState(heartbeat.StateDisconnected, heartbeat.LabelDisconnected)
	assert.Equal(t, DotDisconnected, f.w.View().Dot)
}

func TestCRDTStatusUpdatesRowAndFooter(t *testing.T) {
	f := newFixture(t, nil)
	f.w.OnCRDTStatus(crdt.Status{State: crdt.StateConnected, DocID: "abc", Key: "secretkey", Server: "wss://sync.example", Stats: crdt.Stats{In: 12, Out: 7}})
	v := f.w.View()
	assert.Equal(t, "connected · doc abc · key se…ey · io 12/7", v.Rows.CRDT)
	assert.Equal(t, Footer{Server: "sync.example", Title: "wss://sync.example"}, v.Footer)
}

func TestHUDTracksCursor(t *testing.T) {
	f := newFixture(t, nil)

	f.w.HoverEnter(TargetOrb, Point{50, 60})
	hud := f.w.View().HUD
	assert.True(t, hud.Visible)
	assert.Equal(t, Point{62, 72}, hud.At)
	assert.Equal(t, "worldtree seed · users — · energy — · hb —", hud.Text)

	f.w.OnPing(heartbeat.Sample{Time: "12:00:00", Users: 3, HasUsers: true, Energy: float64(42), HasEnergy: true})
	f.w.HoverMove(TargetPanel, Point{70, 80})
	hud = f.w.View().HUD
	assert.Equal(t, Point{82, 92}, hud.At)
	assert.Equal(t, "worldtree seed · users 3 · energy 42 · hb 12:00:00", hud.Text)

	f.w.HoverLeave(TargetPanel, Point{70, 80})
	assert.False(t, f.w.View().HUD.Visible)
}

func TestResizeMovesAnchoredElements(t *testing.T) {
	f := newFixture(t, nil)
	f.w.Resize(Viewport{1000, 600})
	assert.Equal(t, 962.0, f.w.View().Orb.Left)

	f.w.PointerDown(TargetOrb, Point{970, 28}, ButtonLeft)
	f.w.PointerMove(Point{500, 300})
	f.w.PointerUp(Point{500, 300}, ButtonLeft)
	moved := f.w.View().Orb
	f.w.Resize(Viewport{1400, 900})
	assert.Equal(t, moved, f.w.View().Orb)
}

func TestMenuActions(t *testing.T) {
	f := newFixture(t, nil)

	f.w.ContextMenu(TargetOrb, Point{600, 400})
	f.w.Select(ActionVisit)
	assert.False(t, f.w.State().MenuOpen)
	assert.Equal(t, []string{DefaultHomeURL}, f.host.opened)

	f.w.Select(ActionSummon)
	assert.Equal(t, []string{"https://example.com/page"}, f.summoner.pages)

	f.w.Select(ActionToggleHush)
	assert.True(t, f.w.State().HushHeartbeat)
	assert.Equal(t, "Unhush heartbeat", labels(f.w.View().MenuItems)[2])

	f.w.Select(ActionToggleFollow)
	assert.True(t, f.w.FollowActive())

	f.w.Select(ActionAppendTest)
	require.Len(t, f.comments.added, 1)
	assert.Equal(t, crdt.Record{"text": "test:2024-01-02T03:04:05.000Z", "ts": epoch.UnixMilli()}, f.comments.added[0])
}

func TestChangeServerRequiresPermission(t *testing.T) {
	f := newFixture(t, nil)
	f.host.answer, f.host.ok = "wss://other.example", true
	f.w.Select(ActionChangeServer)
	f.w.ChangeServer()
	assert.Empty(t, f.host.prompts)
	assert.Empty(t, f.comments.configured)
}

func TestChangeServer(t *testing.T) {
	f := newFixture(t, func(c *Config) { c.AllowServerSwitch = true })
	v := f.w.View()
	assert.True(t, v.ShowGear)
	assert.Equal(t, "Change sync server…", labels(v.MenuItems)[5])

	f.host.answer, f.host.ok = "wss://other.example", true
	f.w.Select(ActionChangeServer)

	assert.Equal(t, []string{ServerPrompt}, f.host.prompts)
	assert.Equal(t, []string{"wss://hb.example"}, f.host.initial)
	assert.Equal(t, "wss://other.example", f.over.value)
	assert.Equal(t, 1, f.over.writes, "the bridge owns the write")
	assert.Equal(t, []crdt.ConfigureOptions{{Server: "wss://other.example"}}, f.comments.configured)
	assert.Empty(t, f.host.alerts)

	// The stored override is offered next time
	f.host.ok = false
	f.w.ChangeServer()
	assert.Equal(t, "wss://other.example", f.host.initial[1])
	assert.Len(t, f.comments.configured, 1)
}

func TestChangeServerInitialValueChain(t *testing.T) {
	f := newFixture(t, func(c *Config) {
		c.AllowServerSwitch = true
		c.HeartbeatServer = ""
	})
	assert.Equal(t, FallbackServer, f.w.currentServer())

	f.comments.server = "wss://sync.example"
	assert.Equal(t, "wss://sync.example", f.w.currentServer())

	require.NoError(t, f.over.Set("ws://override.example"))
	assert.Equal(t, "ws://override.example", f.w.currentServer())
}

func TestChangeServerRejectsInputs(t *testing.T) {
	f := newFixture(t, func(c *Config) { c.AllowServerSwitch = true })

	f.host.answer, f.host.ok = "", true
	f.w.ChangeServer()
	assert.Empty(t, f.comments.configured)
	assert.Empty(t, f.host.alerts)

	f.host.answer = "https://not-a-socket.example"
	f.w.ChangeServer()
	assert.Empty(t, f.comments.configured)
	assert.False(t, f.over.set)
	require.Len(t, f.host.alerts, 1)

	// Without an installed document the override is still kept
	f.comments.err = errors.ErrNotInstalled
	f.host.answer = "ws://localhost:3030"
	f.w.ChangeServer()
	assert.Equal(t, "ws://localhost:3030", f.over.value)
	assert.Equal(t, 1, f.over.writes)
	assert.Len(t, f.host.alerts, 1)

	f.comments.err = errors.New("network adapter failed")
	f.w.ChangeServer()
	assert.Len(t, f.host.alerts, 2)
}

func TestChangeServerWithoutCommentsPersists(t *testing.T) {
	f := newFixture(t, func(c *Config) {
		c.AllowServerSwitch = true
		c.Comments = nil
	})
	f.host.answer, f.host.ok = "ws://solo.example", true
	f.w.ChangeServer()
	assert.Equal(t, "ws://solo.example", f.over.value)
	assert.Equal(t, 1, f.over.writes)
}

func TestOpenMenuHoldsFollowPaused(t *testing.T) {
	f := newFixture(t, func(c *Config) { c.Follow = true })
	f.w.PointerMove(Point{200, 300})

	f.w.ContextMenu(TargetOrb, Point{600, 400})
	f.w.Toggle()
	f.w.Toggle()
	assert.True(t, f.w.State().MenuOpen)
	assert.False(t, f.w.FollowActive())

	start := f.w.View().Orb
	f.sched.Step()
	f.sched.Step()
	assert.Equal(t, start, f.w.View().Orb)

	f.w.ToggleFollow()
	f.w.ToggleFollow()
	assert.True(t, f.w.State().FollowMode)
	assert.False(t, f.w.FollowActive())
	f.sched.Step()
	assert.Equal(t, start, f.w.View().Orb)

	// Closing the menu resumes following
	f.w.KeyDown("Escape")
	assert.True(t, f.w.FollowActive())
	f.sched.Step()
	assert.NotEqual(t, start, f.w.View().Orb)
}

func TestCloseStopsFollow(t *testing.T) {
	f := newFixture(t, func(c *Config) { c.Follow = true })
	f.w.Close()
	assert.False(t, f.w.FollowActive())
	assert.Zero(t, f.sched.Pending())
	f.w.OnPing(heartbeat.Sample{})
	assert.False(t, f.w.Pulsing())
}

func TestCloseLeavesCallerSchedulerRunning(t *testing.T) {
	sched := anim.NewTickerScheduler(200)
	defer sched.Stop()
	w := New(Config{Scheduler: sched, Clock: clocktest.NewFakeClock(epoch)})
	w.Close()

	ran := make(chan struct{})
	sched.Request(func(time.Time) { close(ran) })
	select {
	case <-ran:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler stopped by a widget that does not own it")
	}
}

func TestCloseStopsOwnScheduler(t *testing.T) {
	w := New(Config{Follow: true, Clock: clocktest.NewFakeClock(epoch)})
	require.NotNil(t, w.ticker)
	w.Close()
	assert.False(t, w.FollowActive())
	assert.Zero(t, w.ticker.Pending())
}
