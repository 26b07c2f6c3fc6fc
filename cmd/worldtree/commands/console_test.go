package commands

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/worldtree/anim"
	"github.com/teranos/worldtree/crdt"
	"github.com/teranos/worldtree/internal/clock/clocktest"
	"github.com/teranos/worldtree/widget"
)

var epoch = time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

// fakeSession stands in for a running session
type fakeSession struct {
	mu         sync.Mutex
	w          *widget.Widget
	reconnects int
	added      []crdt.Record
	configured []crdt.ConfigureOptions
}

func (s *fakeSession) Widget() *widget.Widget { return s.w }

func (s *fakeSession) Reconnect() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reconnects++
	return nil
}

func (s *fakeSession) Comments() []crdt.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return crdt.CloneList(s.added)
}

func (s *fakeSession) Add(rec crdt.Record) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec = rec.Clone()
	rec["id"] = "c1"
	s.added = append(s.added, rec)
	return "c1", nil
}

func (s *fakeSession) Configure(opts crdt.ConfigureOptions) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.configured = append(s.configured, opts)
	return nil
}

func (s *fakeSession) SyncServer() string { return "wss://sync.example" }

func newTestConsole(t *testing.T, allowSwitch bool) (*console, *fakeSession, chan string) {
	t.Helper()
	lines := make(chan string, 4)
	done := make(chan struct{})
	t.Cleanup(func() { close(done) })

	con := newConsole(lines, done)
	con.open = func(string) error { return nil }

	sess := &fakeSession{}
	sess.w = widget.New(widget.Config{
		Minimized:         true,
		AllowServerSwitch: allowSwitch,
		HeartbeatServer:   "wss://hb.example",
		Scheduler:         anim.NewManualScheduler(epoch),
		Clock:             clocktest.NewFakeClock(epoch),
		Host:              con,
		Comments:          sess,
	})
	t.Cleanup(sess.w.Close)
	con.ctl = sess
	return con, sess, lines
}

func TestConsoleToggles(t *testing.T) {
	con, sess, _ := newTestConsole(t, false)
	w := sess.w

	assert.False(t, con.dispatch("toggle"))
	assert.False(t, w.State().Minimized)
	con.dispatch("toggle")
	assert.True(t, w.State().Minimized)

	con.dispatch("follow")
	assert.True(t, w.State().FollowMode)
	assert.True(t, w.FollowActive())

	con.dispatch("hush")
	assert.True(t, w.State().HushHeartbeat)

	con.dispatch("users")
	assert.False(t, w.State().ShowUsers)
}

func TestConsoleMenu(t *testing.T) {
	con, sess, _ := newTestConsole(t, false)
	w := sess.w

	con.dispatch("menu")
	require.True(t, w.State().MenuOpen)

	con.dispatch("escape")
	assert.False(t, w.State().MenuOpen)

	// Third entry is "Hush heartbeat"
	con.dispatch("menu 3")
	assert.False(t, w.State().MenuOpen)
	assert.True(t, w.State().HushHeartbeat)

	// Out of range leaves the menu open and changes nothing
	con.dispatch("menu 42")
	assert.True(t, w.State().MenuOpen)
	assert.True(t, w.State().HushHeartbeat)
}

func TestConsoleAppendAndList(t *testing.T) {
	con, sess, _ := newTestConsole(t, false)

	con.dispatch("append")
	list := sess.Comments()
	require.Len(t, list, 1)
	assert.Equal(t, "test:2024-01-02T03:04:05.000Z", list[0].Text())
	assert.Equal(t, epoch.UnixMilli(), list[0]["ts"])

	assert.False(t, con.dispatch("comments"))
}

func TestConsoleServerPromptReadsNextLine(t *testing.T) {
	con, sess, lines := newTestConsole(t, true)

	lines <- "ws://relay.example:3030"
	con.dispatch("server")

	require.Len(t, sess.configured, 1)
	assert.Equal(t, "ws://relay.example:3030", sess.configured[0].Server)
}

func TestConsoleServerPromptEmptyLineKeepsCurrent(t *testing.T) {
	con, _, lines := newTestConsole(t, true)

	lines <- "   "
	got, ok := con.Prompt(widget.ServerPrompt, "wss://sync.example")
	assert.True(t, ok)
	assert.Equal(t, "wss://sync.example", got)
}

func TestConsolePromptCancelledWhenStdinCloses(t *testing.T) {
	con, sess, lines := newTestConsole(t, true)

	close(lines)
	con.dispatch("server")
	assert.Empty(t, sess.configured)
}

func TestConsoleServerNotOfferedWithoutPermission(t *testing.T) {
	con, sess, lines := newTestConsole(t, false)

	lines <- "ws://relay.example:3030"
	con.dispatch("server")
	assert.Empty(t, sess.configured)
	// The line was not consumed
	assert.Len(t, lines, 1)
}

func TestConsoleReconnectAndQuit(t *testing.T) {
	con, sess, _ := newTestConsole(t, false)

	assert.False(t, con.dispatch("reconnect"))
	assert.Equal(t, 1, sess.reconnects)

	assert.False(t, con.dispatch(""))
	assert.False(t, con.dispatch("bogus"))
	assert.True(t, con.dispatch("quit"))
	assert.True(t, con.dispatch("exit"))
}

func TestConsoleVisitOpensHomeURL(t *testing.T) {
	con, _, _ := newTestConsole(t, false)
	var opened string
	con.open = func(url string) error {
		opened = url
		return nil
	}

	con.dispatch("menu 1")
	assert.Equal(t, widget.DefaultHomeURL, opened)
}

func TestExtraFieldsSorted(t *testing.T) {
	rec := crdt.Record{"id": "x", "text": "hi", "ts": 5, "author": "ana"}
	assert.Equal(t, "author=ana ts=5", extraFields(rec))
}
