package automerge

import (
	"slices"
	"sync"

	amg "github.com/automerge/automerge-go"

	"github.com/teranos/worldtree/crdt"
	"github.com/teranos/worldtree/errors"
)

const commitMessage = "worldtree"

// Handle is one automerge document tracked by a Repo. All access to the
// underlying document goes through mu.
type Handle struct {
	repo *Repo
	id   string

	mu  sync.Mutex
	doc *amg.Doc

	lmu       sync.Mutex
	next      int
	listeners map[int]func()
}

func newHandle(r *Repo, id string) *Handle {
	return &Handle{repo: r, id: id, doc: amg.New(), listeners: make(map[int]func())}
}

// DocumentID returns the base58 id
func (h *Handle) DocumentID() string { return h.id }

// URL returns the "automerge:" URL
func (h *Handle) URL() string { return crdt.URLPrefix + h.id }

// View reads the current document
func (h *Handle) View() (crdt.View, bool) { return handleView{h}, true }

// Change runs fn as one commit. fn writes to a fork of the document that is
// merged back only after it commits, so a failing fn leaves no partial
// writes behind. Listeners and adapters are notified before Change
// returns, and only when fn wrote something.
func (h *Handle) Change(fn func(crdt.Mutable) error) error {
	h.mu.Lock()
	fork, err := h.doc.Fork()
	if err != nil {
		h.mu.Unlock()
		return errors.Wrap(err, "fork document")
	}
	// Same actor, so the merged change continues this replica's sequence
	if err := fork.SetActorID(h.doc.ActorID()); err != nil {
		h.mu.Unlock()
		return errors.Wrap(err, "set fork actor")
	}
	m := &mutable{doc: fork}
	if err := fn(m); err != nil {
		h.mu.Unlock()
		return err
	}
	if !m.dirty {
		h.mu.Unlock()
		return nil
	}
	if _, err := fork.Commit(commitMessage); err != nil {
		h.mu.Unlock()
		return errors.Wrap(err, "commit")
	}
	if _, err := h.doc.Merge(fork); err != nil {
		h.mu.Unlock()
		return errors.Wrap(err, "merge change")
	}
	h.mu.Unlock()

	h.notify()
	h.repo.changed(h, nil)
	return nil
}

// OnChange registers fn for local and remote changes
func (h *Handle) OnChange(fn func()) func() {
	h.lmu.Lock()
	id := h.next
	h.next++
	h.listeners[id] = fn
	h.lmu.Unlock()
	return func() {
		h.lmu.Lock()
		delete(h.listeners, id)
		h.lmu.Unlock()
	}
}

// notify runs listeners in registration order
func (h *Handle) notify() {
	h.lmu.Lock()
	fns := make([]func(), 0, len(h.listeners))
	for i := 0; i < h.next; i++ {
		if fn, ok := h.listeners[i]; ok {
			fns = append(fns, fn)
		}
	}
	h.lmu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

// Save returns the full document in automerge's binary format
func (h *Handle) Save() []byte {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.doc.Save()
}

// merge loads a saved document and merges it, reporting whether anything
// new arrived
func (h *Handle) merge(data []byte) (bool, error) {
	other, err := amg.Load(data)
	if err != nil {
		return false, errors.Wrap(err, "load document")
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	hashes, err := h.doc.Merge(other)
	if err != nil {
		return false, errors.Wrap(err, "merge document")
	}
	return len(hashes) > 0, nil
}

func (h *Handle) newSyncState() *amg.SyncState {
	h.mu.Lock()
	defer h.mu.Unlock()
	return amg.NewSyncState(h.doc)
}

// generate returns the next sync message for a peer, if there is one
func (h *Handle) generate(st *amg.SyncState) ([]byte, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	msg, ok := st.GenerateMessage()
	if !ok {
		return nil, false
	}
	return msg.Bytes(), true
}

// receive applies a peer's sync message, reporting whether the document
// changed
func (h *Handle) receive(st *amg.SyncState, data []byte) (bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	before := h.doc.Heads()
	if _, err := st.ReceiveMessage(data); err != nil {
		return false, errors.Wrap(err, "receive sync message")
	}
	return !slices.Equal(before, h.doc.Heads()), nil
}

type handleView struct{ h *Handle }

func (v handleView) List(key string) []crdt.Record {
	v.h.mu.Lock()
	defer v.h.mu.Unlock()
	return readList(v.h.doc, key)
}

// readList converts the list at key to records. Anything that is not a
// list of maps reads as absent.
func readList(doc *amg.Doc, key string) []crdt.Record {
	val, err := doc.Path(key).Get()
	if err != nil || val.Kind() != amg.KindList {
		return nil
	}
	items, err := amg.As[[]map[string]any](val)
	if err != nil {
		return nil
	}
	out := make([]crdt.Record, len(items))
	for i, item := range items {
		out[i] = crdt.Record(item)
	}
	return out
}

// mutable applies writes to the document inside one pending commit
type mutable struct {
	doc   *amg.Doc
	dirty bool
}

func (m *mutable) List(key string) []crdt.Record { return readList(m.doc, key) }

func (m *mutable) SetList(key string, list []crdt.Record) error {
	items := make([]map[string]any, len(list))
	for i, r := range list {
		items[i] = map[string]any(r.Clone())
	}
	if err := m.doc.Path(key).Set(items); err != nil {
		return errors.Wrapf(err, "set %s", key)
	}
	m.dirty = true
	return nil
}

func (m *mutable) Append(key string, rec crdt.Record) error {
	if err := m.doc.Path(key).List().Append(map[string]any(rec.Clone())); err != nil {
		return errors.Wrapf(err, "append to %s", key)
	}
	m.dirty = true
	return nil
}

func (m *mutable) Merge(key string, index int, patch crdt.Record) error {
	if index < 0 || index >= m.doc.Path(key).List().Len() {
		return errors.Wrapf(errors.ErrNotFound, "%s[%d]", key, index)
	}
	target := m.doc.Path(key, index).Map()
	for k, v := range patch {
		if err := target.Set(k, v); err != nil {
			return errors.Wrapf(err, "set %s[%d].%s", key, index, k)
		}
		m.dirty = true
	}
	return nil
}

// Delete goes through the list value itself; a path-addressed list has no
// object id until it is written to
func (m *mutable) Delete(key string, index int) error {
	val, err := m.doc.Path(key).Get()
	if err != nil || val.Kind() != amg.KindList {
		return errors.Wrapf(errors.ErrNotFound, "%s[%d]", key, index)
	}
	list := val.List()
	if index < 0 || index >= list.Len() {
		return errors.Wrapf(errors.ErrNotFound, "%s[%d]", key, index)
	}
	if err := list.Delete(index); err != nil {
		return errors.Wrapf(err, "delete %s[%d]", key, index)
	}
	m.dirty = true
	return nil
}
