// Package anim drives per-frame work. A Scheduler hands out frames and a
// Loop keeps exactly one frame pending while it is active.
package anim

import (
	"sync"
	"time"
)

// FrameID identifies a requested frame; zero is never issued
type FrameID uint64

// Scheduler delivers frame callbacks
type Scheduler interface {
	// Request schedules f for the next frame. f never runs synchronously
	// from inside Request.
	Request(f func(time.Time)) FrameID
	// Cancel drops a pending frame. Unknown or already-run ids are ignored.
	Cancel(id FrameID)
}

// queue is the pending-frame bookkeeping shared by both schedulers
type queue struct {
	mu      sync.Mutex
	next    FrameID
	order   []FrameID
	pending map[FrameID]func(time.Time)
}

func (q *queue) request(f func(time.Time)) FrameID {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.pending == nil {
		q.pending = make(map[FrameID]func(time.Time))
	}
	q.next++
	q.pending[q.next] = f
	q.order = append(q.order, q.next)
	return q.next
}

func (q *queue) cancel(id FrameID) {
	q.mu.Lock()
	defer q.mu.Unlock()
	delete(q.pending, id)
}

// drain removes and returns the callbacks due this frame, in request order
func (q *queue) drain() []func(time.Time) {
	q.mu.Lock()
	defer q.mu.Unlock()
	var due []func(time.Time)
	for _, id := range q.order {
		if f, ok := q.pending[id]; ok {
			due = append(due, f)
			delete(q.pending, id)
		}
	}
	q.order = q.order[:0]
	return due
}

func (q *queue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// TickerScheduler runs frames from one goroutine at a fixed rate
type TickerScheduler struct {
	q      queue
	ticker *time.Ticker
	done   chan struct{}
	wg     sync.WaitGroup
	once   sync.Once
}

var _ Scheduler = (*TickerScheduler)(nil)

// DefaultFPS matches a typical display refresh rate
const DefaultFPS = 60

// NewTickerScheduler starts a scheduler at fps frames per second.
// Non-positive fps uses DefaultFPS.
func NewTickerScheduler(fps int) *TickerScheduler {
	if fps <= 0 {
		fps = DefaultFPS
	}
	s := &TickerScheduler{
		ticker: time.NewTicker(time.Second / time.Duration(fps)),
		done:   make(chan struct{}),
	}
	s.wg.Add(1)
	go s.run()
	return s
}

func (s *TickerScheduler) run() {
	defer s.wg.Done()
	for {
		select {
		case <-s.done:
			return
		case now := <-s.ticker.C:
			for _, f := range s.q.drain() {
				f(now)
			}
		}
	}
}

// Request implements Scheduler
func (s *TickerScheduler) Request(f func(time.Time)) FrameID { return s.q.request(f) }

// Cancel implements Scheduler
func (s *TickerScheduler) Cancel(id FrameID) { s.q.cancel(id) }

// Pending returns the number of frames waiting to run
func (s *TickerScheduler) Pending() int { return s.q.len() }

// Stop halts the ticker goroutine. Pending frames never run.
func (s *TickerScheduler) Stop() {
	s.once.Do(func() {
		s.ticker.Stop()
		close(s.done)
	})
	s.wg.Wait()
}

// ManualScheduler runs frames only when Step is called
type ManualScheduler struct {
	q   queue
	mu  sync.Mutex
	now time.Time
}

var _ Scheduler = (*ManualScheduler)(nil)

// NewManualScheduler returns a scheduler whose first frame is at start
func NewManualScheduler(start time.Time) *ManualScheduler {
	return &ManualScheduler{now: start}
}

// Request implements Scheduler
func (s *ManualScheduler) Request(f func(time.Time)) FrameID { return s.q.request(f) }

// Cancel implements Scheduler
func (s *ManualScheduler) Cancel(id FrameID) { s.q.cancel(id) }

// Pending returns the number of frames waiting to run
func (s *ManualScheduler) Pending() int { return s.q.len() }

// Step advances one frame of 1/60 s and runs every callback that was
// pending before the call. It returns how many ran.
func (s *ManualScheduler) Step() int {
	s.mu.Lock()
	s.now = s.now.Add(time.Second / DefaultFPS)
	now := s.now
	s.mu.Unlock()

	due := s.q.drain()
	for _, f := range due {
		f(now)
	}
	return len(due)
}
