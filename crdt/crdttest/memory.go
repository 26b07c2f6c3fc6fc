// Package crdttest provides an in-memory CRDT runtime for tests. Documents
// live in a shared Runtime so every repo built from it sees the same data,
// the way peers of one sync server would.
package crdttest

import (
	"strings"
	"sync"

	"github.com/teranos/worldtree/crdt"
	"github.com/teranos/worldtree/errors"
)

// Runtime is a fake sync server plus the constructors that reach it
type Runtime struct {
	mu          sync.Mutex
	docs        map[string]*document
	servers     []string
	repos       []*Repo
	failNetwork error
	failRepo    error
}

// NewRuntime creates an empty runtime
func NewRuntime() *Runtime {
	return &Runtime{docs: make(map[string]*document)}
}

// Constructors returns the runtime's capabilities, broadcast included
func (rt *Runtime) Constructors() crdt.Constructors {
	return crdt.Constructors{
		NewRepo:      rt.newRepo,
		NewNetwork:   rt.newNetwork,
		NewBroadcast: func() (crdt.NetworkAdapter, error) { return &Adapter{kind: "broadcast"}, nil },
	}
}

// FailNetwork makes every following NewNetwork call return err
func (rt *Runtime) FailNetwork(err error) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	rt.failNetwork = err
}

// FailRepo makes every following NewRepo call return err
func (rt *Runtime) FailRepo(err error) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	rt.failRepo = err
}

// Servers lists the server of every network adapter built, in order
func (rt *Runtime) Servers() []string {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return append([]string(nil), rt.servers...)
}

// Repos lists every repo built, in order
func (rt *Runtime) Repos() []*Repo {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return append([]*Repo(nil), rt.repos...)
}

// Seed stores list under docURL as if a peer had written it
func (rt *Runtime) Seed(docURL string, list []crdt.Record) {
	d := rt.doc(docURL)
	d.mu.Lock()
	d.lists[crdt.CommentsKey] = crdt.CloneList(list)
	d.mu.Unlock()
}

// RemoteChange applies fn to docURL and notifies every attached handle,
// simulating a change arriving from another peer
func (rt *Runtime) RemoteChange(docURL string, fn func(crdt.Mutable) error) error {
	return rt.doc(docURL).change(fn)
}

func (rt *Runtime) doc(docURL string) *document {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	d, ok := rt.docs[docURL]
	if !ok {
		d = &document{id: strings.TrimPrefix(docURL, crdt.URLPrefix), lists: make(map[string][]crdt.Record)}
		rt.docs[docURL] = d
	}
	return d
}

func (rt *Runtime) newNetwork(server string) (crdt.NetworkAdapter, error) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	if rt.failNetwork != nil {
		return nil, rt.failNetwork
	}
	rt.servers = append(rt.servers, server)
	return &Adapter{kind: "network", Server: server}, nil
}

func (rt *Runtime) newRepo(adapters ...crdt.NetworkAdapter) (crdt.Repo, error) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	if rt.failRepo != nil {
		return nil, rt.failRepo
	}
	r := &Repo{rt: rt, adapters: adapters}
	rt.repos = append(rt.repos, r)
	return r, nil
}

// Adapter is a network adapter that records whether it was closed
type Adapter struct {
	kind   string
	Server string

	mu     sync.Mutex
	closed bool
}

func (a *Adapter) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.closed = true
	return nil
}

// Closed reports whether Close was called
func (a *Adapter) Closed() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.closed
}

// Repo is one runtime instance
type Repo struct {
	rt       *Runtime
	adapters []crdt.NetworkAdapter

	mu      sync.Mutex
	closed  bool
	handles []*handle
}

// Find rejects identifiers that are empty or contain whitespace
func (r *Repo) Find(docURL string) (crdt.Handle, error) {
	id := strings.TrimPrefix(docURL, crdt.URLPrefix)
	if id == "" || strings.ContainsAny(id, " \t\n") {
		return nil, errors.Wrapf(errors.ErrInvalidDocument, "malformed id %q", id)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, errors.ErrClosed
	}
	d := r.rt.doc(docURL)
	h := &handle{doc: d, listeners: make(map[int]func())}
	d.attach(h)
	r.handles = append(r.handles, h)
	return h, nil
}

func (r *Repo) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	for _, h := range r.handles {
		h.doc.detach(h)
	}
	for _, a := range r.adapters {
		_ = a.Close()
	}
	return nil
}

// Closed reports whether Close was called
func (r *Repo) Closed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

// Adapters returns the adapters the repo was built with
func (r *Repo) Adapters() []crdt.NetworkAdapter {
	return r.adapters
}

type document struct {
	id string

	mu      sync.Mutex
	lists   map[string][]crdt.Record
	handles []*handle
}

func (d *document) attach(h *handle) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handles = append(d.handles, h)
}

func (d *document) detach(h *handle) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i, x := range d.handles {
		if x == h {
			d.handles = append(d.handles[:i], d.handles[i+1:]...)
			return
		}
	}
}

// change applies fn to a scratch copy and commits it only on success
func (d *document) change(fn func(crdt.Mutable) error) error {
	d.mu.Lock()
	scratch := &mutable{lists: make(map[string][]crdt.Record, len(d.lists))}
	for k, v := range d.lists {
		scratch.lists[k] = crdt.CloneList(v)
	}
	if err := fn(scratch); err != nil {
		d.mu.Unlock()
		return err
	}
	d.lists = scratch.lists
	handles := append([]*handle(nil), d.handles...)
	d.mu.Unlock()

	for _, h := range handles {
		h.notify()
	}
	return nil
}

func (d *document) list(key string) []crdt.Record {
	d.mu.Lock()
	defer d.mu.Unlock()
	l, ok := d.lists[key]
	if !ok {
		return nil
	}
	return crdt.CloneList(l)
}

type handle struct {
	doc *document

	mu        sync.Mutex
	next      int
	listeners map[int]func()
}

func (h *handle) DocumentID() string { return h.doc.id }

func (h *handle) View() (crdt.View, bool) { return docView{h.doc}, true }

func (h *handle) Change(fn func(crdt.Mutable) error) error { return h.doc.change(fn) }

func (h *handle) OnChange(fn func()) func() {
	h.mu.Lock()
	id := h.next
	h.next++
	h.listeners[id] = fn
	h.mu.Unlock()
	return func() {
		h.mu.Lock()
		delete(h.listeners, id)
		h.mu.Unlock()
	}
}

func (h *handle) notify() {
	h.mu.Lock()
	fns := make([]func(), 0, len(h.listeners))
	for i := 0; i < h.next; i++ {
		if fn, ok := h.listeners[i]; ok {
			fns = append(fns, fn)
		}
	}
	h.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

type docView struct{ doc *document }

func (v docView) List(key string) []crdt.Record { return v.doc.list(key) }

type mutable struct {
	lists map[string][]crdt.Record
}

func (m *mutable) List(key string) []crdt.Record {
	l, ok := m.lists[key]
	if !ok {
		return nil
	}
	return crdt.CloneList(l)
}

func (m *mutable) SetList(key string, list []crdt.Record) error {
	m.lists[key] = crdt.CloneList(list)
	return nil
}

func (m *mutable) Append(key string, rec crdt.Record) error {
	m.lists[key] = append(m.lists[key], rec.Clone())
	return nil
}

func (m *mutable) Merge(key string, index int, patch crdt.Record) error {
	l := m.lists[key]
	if index < 0 || index >= len(l) {
		return errors.Wrapf(errors.ErrNotFound, "index %d", index)
	}
	for k, v := range patch {
		l[index][k] = v
	}
	return nil
}

func (m *mutable) Delete(key string, index int) error {
	l := m.lists[key]
	if index < 0 || index >= len(l) {
		return errors.Wrapf(errors.ErrNotFound, "index %d", index)
	}
	m.lists[key] = append(l[:index], l[index+1:]...)
	return nil
}
