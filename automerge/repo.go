// Package automerge is the CRDT runtime behind the comments bridge: a
// repository of automerge documents synced over WebSocket and an
// in-process broadcast bus.
package automerge

import (
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/teranos/worldtree/crdt"
	"github.com/teranos/worldtree/errors"
	"github.com/teranos/worldtree/logger"
)

// adapter is a transport a Repo can drive
type adapter interface {
	crdt.NetworkAdapter
	// attach binds the adapter to its repo; called once
	attach(r *Repo)
	// announce offers the current state of h to the adapter's peers
	announce(h *Handle)
}

// Repo tracks documents by id and keeps them in sync through its adapters
type Repo struct {
	peerID string
	// serve creates documents on first contact from a peer instead of
	// ignoring unknown ids
	serve bool
	log   *zap.SugaredLogger

	mu       sync.Mutex
	closed   bool
	handles  map[string]*Handle
	adapters []adapter
}

// NewRepo builds a client repository over adapters created by this
// package. Ownership of the adapters passes to the repo.
func NewRepo(log *zap.SugaredLogger, adapters ...crdt.NetworkAdapter) (*Repo, error) {
	r := newRepo(log, false)
	for _, a := range adapters {
		ad, ok := a.(adapter)
		if !ok {
			return nil, errors.Newf("unsupported network adapter %T", a)
		}
		r.addAdapter(ad)
	}
	return r, nil
}

func newRepo(log *zap.SugaredLogger, serve bool) *Repo {
	return &Repo{
		peerID:  uuid.NewString(),
		serve:   serve,
		log:     logger.OrNop(log),
		handles: make(map[string]*Handle),
	}
}

// PeerID identifies this repo to sync peers
func (r *Repo) PeerID() string { return r.peerID }

// Find returns the handle for docURL, creating an empty local replica that
// fills in as peers sync it
func (r *Repo) Find(docURL string) (crdt.Handle, error) {
	h, err := r.find(docURL)
	if err != nil {
		return nil, err
	}
	return h, nil
}

func (r *Repo) find(docURL string) (*Handle, error) {
	id, err := ParseURL(docURL)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil, errors.ErrClosed
	}
	h, ok := r.handles[id]
	if !ok {
		h = newHandle(r, id)
		r.handles[id] = h
	}
	adapters := append([]adapter(nil), r.adapters...)
	r.mu.Unlock()

	if !ok {
		r.log.Debugw("Document tracked", logger.FieldDocID, id)
		for _, a := range adapters {
			a.announce(h)
		}
	}
	return h, nil
}

// Create starts a new document and returns its handle
func (r *Repo) Create() (*Handle, error) {
	return r.find(NewDocumentURL())
}

// lookup returns a tracked handle. A serving repo creates unknown ones.
func (r *Repo) lookup(id string) *Handle {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	h, ok := r.handles[id]
	if !ok && r.serve {
		if _, err := ParseURL(id); err != nil {
			return nil
		}
		h = newHandle(r, id)
		r.handles[id] = h
	}
	return h
}

// Handles returns every tracked handle
func (r *Repo) Handles() []*Handle {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Handle, 0, len(r.handles))
	for _, h := range r.handles {
		out = append(out, h)
	}
	return out
}

func (r *Repo) addAdapter(a adapter) {
	r.mu.Lock()
	r.adapters = append(r.adapters, a)
	r.mu.Unlock()
	a.attach(r)
}

func (r *Repo) removeAdapter(a adapter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, x := range r.adapters {
		if x == a {
			r.adapters = append(r.adapters[:i], r.adapters[i+1:]...)
			return
		}
	}
}

// changed offers h to every adapter except from, which delivered the
// change
func (r *Repo) changed(h *Handle, from adapter) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	adapters := append([]adapter(nil), r.adapters...)
	r.mu.Unlock()
	for _, a := range adapters {
		if a != from {
			a.announce(h)
		}
	}
}

// remoteChanged is called by adapters after merging a peer's change
func (r *Repo) remoteChanged(h *Handle, from adapter) {
	h.notify()
	r.changed(h, from)
}

// Close closes every adapter. Handles stay readable.
func (r *Repo) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	adapters := r.adapters
	r.adapters = nil
	r.mu.Unlock()

	var errs []error
	for _, a := range adapters {
		if err := a.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return errors.Newf("close adapters: %v", errs)
	}
	return nil
}
