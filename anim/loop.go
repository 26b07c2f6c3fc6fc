package anim

import (
	"sync"
	"time"
)

// StepFunc advances an animation by one frame. Returning false ends the loop.
type StepFunc func(now time.Time) bool

// Loop repeats a step once per frame
type Loop struct {
	sched Scheduler
	step  StepFunc

	mu     sync.Mutex
	active bool
	gen    uint64
	id     FrameID
}

// NewLoop creates an inactive loop
func NewLoop(sched Scheduler, step StepFunc) *Loop {
	return &Loop{sched: sched, step: step}
}

// Start schedules the first frame. It is a no-op while the loop is active.
func (l *Loop) Start() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.active {
		return
	}
	l.active = true
	l.gen++
	l.id = l.sched.Request(l.frame(l.gen))
}

// Stop cancels the pending frame
func (l *Loop) Stop() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.active {
		return
	}
	l.sched.Cancel(l.id)
	l.active = false
	l.id = 0
}

// Active reports whether a frame is pending
func (l *Loop) Active() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.active
}

// frame requests the next frame before running the step, so a step that
// calls Stop cancels its successor
func (l *Loop) frame(gen uint64) func(time.Time) {
	return func(now time.Time) {
		l.mu.Lock()
		if !l.active || l.gen != gen {
			l.mu.Unlock()
			return
		}
		l.id = l.sched.Request(l.frame(gen))
		l.mu.Unlock()

		if l.step(now) {
			return
		}

		l.mu.Lock()
		defer l.mu.Unlock()
		if l.active && l.gen == gen {
			l.sched.Cancel(l.id)
			l.active = false
			l.id = 0
		}
	}
}
