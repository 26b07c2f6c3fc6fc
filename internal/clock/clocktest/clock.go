package clocktest

import (
	"sort"
	"sync"
	"time"

	"github.com/teranos/worldtree/internal/clock"
)

// FakeClock is a deterministic Clock for tests. Timers fire synchronously
// from Advance, in deadline order.
type FakeClock struct {
	mu     sync.Mutex
	now    time.Time
	seq    int
	timers []*fakeTimer
}

var _ clock.Clock = (*FakeClock)(nil)

type fakeTimer struct {
	c       *FakeClock
	seq     int
	when    time.Time
	f       func()
	stopped bool
	fired   bool
}

// NewFakeClock returns a FakeClock starting at the given time.
func NewFakeClock(start time.Time) *FakeClock {
	return &FakeClock{now: start}
}

// Now implements clock.Clock.
func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// AfterFunc implements clock.Clock.
func (c *FakeClock) AfterFunc(d time.Duration, f func()) clock.Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	t := &fakeTimer{c: c, seq: c.seq, when: c.now.Add(d), f: f}
	c.timers = append(c.timers, t)
	return t
}

// Advance moves time forward by d, running every timer that comes due.
// Callbacks run on the caller's goroutine without the clock lock held, so
// they may schedule further timers.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now.Add(d)
	c.mu.Unlock()

	for {
		c.mu.Lock()
		next := c.nextDueLocked(target)
		if next == nil {
			c.now = target
			c.mu.Unlock()
			return
		}
		c.now = next.when
		next.fired = true
		c.removeLocked(next)
		c.mu.Unlock()

		next.f()
	}
}

// Pending returns how many timers are scheduled and not yet fired or stopped.
func (c *FakeClock) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.timers)
}

func (c *FakeClock) nextDueLocked(target time.Time) *fakeTimer {
	sort.SliceStable(c.timers, func(i, j int) bool {
		if c.timers[i].when.Equal(c.timers[j].when) {
			return c.timers[i].seq < c.timers[j].seq
		}
		return c.timers[i].when.Before(c.timers[j].when)
	})
	if len(c.timers) == 0 || c.timers[0].when.After(target) {
		return nil
	}
	return c.timers[0]
}

func (c *FakeClock) removeLocked(t *fakeTimer) {
	for i, x := range c.timers {
		if x == t {
			c.timers = append(c.timers[:i], c.timers[i+1:]...)
			return
		}
	}
}

func (t *fakeTimer) Stop() bool {
	t.c.mu.Lock()
	defer t.c.mu.Unlock()
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	t.c.removeLocked(t)
	return true
}
