package automerge

import (
	"sync"

	"go.uber.org/zap"

	"github.com/teranos/worldtree/logger"
)

// DefaultChannel is the bus name used when none is given
const DefaultChannel = "automerge-repo"

type bus struct {
	mu      sync.Mutex
	members []*BroadcastAdapter
}

var (
	busesMu sync.Mutex
	buses   = map[string]*bus{}
)

func busFor(name string) *bus {
	busesMu.Lock()
	defer busesMu.Unlock()
	b, ok := buses[name]
	if !ok {
		b = &bus{}
		buses[name] = b
	}
	return b
}

// BroadcastAdapter shares documents between repos of the same process over
// a named bus. Delivery is synchronous and carries the whole saved
// document in both directions; a merge that brings nothing new ends the
// exchange.
type BroadcastAdapter struct {
	bus *bus
	log *zap.SugaredLogger

	mu     sync.Mutex
	repo   *Repo
	closed bool
}

// NewBroadcastAdapter joins the named bus once attached to a repo
func NewBroadcastAdapter(channel string, log *zap.SugaredLogger) *BroadcastAdapter {
	if channel == "" {
		channel = DefaultChannel
	}
	return &BroadcastAdapter{bus: busFor(channel), log: logger.OrNop(log)}
}

func (a *BroadcastAdapter) attach(r *Repo) {
	a.mu.Lock()
	a.repo = r
	a.mu.Unlock()

	a.bus.mu.Lock()
	a.bus.members = append(a.bus.members, a)
	a.bus.mu.Unlock()
}

func (a *BroadcastAdapter) announce(h *Handle) {
	a.bus.mu.Lock()
	peers := make([]*BroadcastAdapter, 0, len(a.bus.members))
	for _, m := range a.bus.members {
		if m != a {
			peers = append(peers, m)
		}
	}
	a.bus.mu.Unlock()
	if len(peers) == 0 {
		return
	}

	data := h.Save()
	for _, p := range peers {
		p.deliver(h.id, data)
	}

	// Pull what peers already hold so a newly tracked document fills in
	for _, p := range peers {
		theirs := p.snapshot(h.id)
		if theirs == nil {
			continue
		}
		changed, err := h.merge(theirs)
		if err != nil {
			a.log.Debugw("Broadcast merge failed", logger.FieldDocID, h.id, logger.FieldError, err)
			continue
		}
		if changed {
			a.mu.Lock()
			repo := a.repo
			a.mu.Unlock()
			repo.remoteChanged(h, a)
		}
	}
}

// snapshot returns the saved document id if this adapter's repo tracks it
func (a *BroadcastAdapter) snapshot(id string) []byte {
	a.mu.Lock()
	repo, closed := a.repo, a.closed
	a.mu.Unlock()
	if closed || repo == nil {
		return nil
	}
	repo.mu.Lock()
	h, ok := repo.handles[id]
	repo.mu.Unlock()
	if !ok {
		return nil
	}
	return h.Save()
}

func (a *BroadcastAdapter) deliver(id string, data []byte) {
	a.mu.Lock()
	repo, closed := a.repo, a.closed
	a.mu.Unlock()
	if closed || repo == nil {
		return
	}
	h := repo.lookup(id)
	if h == nil {
		return
	}
	changed, err := h.merge(data)
	if err != nil {
		a.log.Debugw("Broadcast merge failed", logger.FieldDocID, id, logger.FieldError, err)
		return
	}
	if changed {
		repo.remoteChanged(h, a)
	}
}

// Close leaves the bus
func (a *BroadcastAdapter) Close() error {
	a.mu.Lock()
	a.closed = true
	a.mu.Unlock()

	a.bus.mu.Lock()
	defer a.bus.mu.Unlock()
	for i, m := range a.bus.members {
		if m == a {
			a.bus.members = append(a.bus.members[:i], a.bus.members[i+1:]...)
			break
		}
	}
	return nil
}
