package crdt

import (
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/teranos/worldtree/errors"
	"github.com/teranos/worldtree/logger"
)

// OverrideStore persists a user-chosen sync server
type OverrideStore interface {
	Get() (string, bool)
	Set(server string) error
	Clear() error
}

// Callbacks observe the comment list. Every callback is optional and a
// panicking callback is recovered and logged.
type Callbacks struct {
	OnRemoteSet   func(list []Record)
	OnLocalSet    func(list []Record)
	OnLocalAdd    func(rec Record)
	OnLocalEdit   func(id string, patch Record)
	OnLocalRemove func(id string)
}

// BridgeConfig configures a Bridge
type BridgeConfig struct {
	Constructors Constructors
	// DefaultServer is used when the override store holds nothing
	DefaultServer string
	Overrides     OverrideStore
	// Key is only ever displayed, masked
	Key       string
	Callbacks Callbacks
	OnStatus  func(Status)
	Logger    *zap.SugaredLogger
}

// ConfigureOptions reconfigure a running bridge. Empty fields keep the
// current value; DocURL wins over DocID.
type ConfigureOptions struct {
	Server string
	DocURL string
	DocID  string
}

// installation is one repo bound to one document. Reconfiguration
// replaces it wholesale.
type installation struct {
	repo        Repo
	handle      Handle
	docURL      string
	unsubscribe func()
}

// Bridge exposes set/add/edit/remove over the comments document and keeps a
// mirror of the list for synchronous reads
type Bridge struct {
	ctors         Constructors
	defaultServer string
	overrides     OverrideStore
	key           string
	callbacks     Callbacks
	log           *zap.SugaredLogger

	mu       sync.Mutex
	onStatus func(Status)
	gen      uint64
	inst     *installation
	server   string
	docURL   string
	mirror   []Record
	state    ConnState
	stats    Stats
}

// NewBridge creates an idle bridge. Call Start to build the runtime
// instance and install the document.
func NewBridge(cfg BridgeConfig) *Bridge {
	return &Bridge{
		ctors:         cfg.Constructors,
		defaultServer: cfg.DefaultServer,
		overrides:     cfg.Overrides,
		key:           cfg.Key,
		callbacks:     cfg.Callbacks,
		onStatus:      cfg.OnStatus,
		log:           logger.OrNop(cfg.Logger),
		state:         StateIdle,
	}
}

// SetOnStatus replaces the status observer
func (b *Bridge) SetOnStatus(fn func(Status)) {
	b.mu.Lock()
	b.onStatus = fn
	b.mu.Unlock()
}

// PreferredServer returns the stored override, else the default server
func (b *Bridge) PreferredServer() string {
	if b.overrides != nil {
		if s, ok := b.overrides.Get(); ok {
			return s
		}
	}
	return b.defaultServer
}

// Start builds a runtime instance against the preferred server and, when
// rawDoc is non-empty, installs the comments document. Without a document
// the bridge stays idle and only records the server.
func (b *Bridge) Start(rawDoc string) error {
	server := b.PreferredServer()

	b.mu.Lock()
	b.server = server
	b.mu.Unlock()

	if rawDoc == "" {
		b.setState(StateIdle)
		return nil
	}
	repo, err := NewRuntimeInstance(b.ctors, server)
	if err != nil {
		b.setState(StateIdle)
		return err
	}
	return b.install(repo, server, NormalizeDocURL(rawDoc))
}

// Install binds an already built repo to rawDoc. The repo is owned by the
// bridge from here on and closed when replaced.
func (b *Bridge) Install(repo Repo, server, rawDoc string) error {
	if rawDoc == "" {
		_ = repo.Close()
		return errors.NewInvalidRequestError("empty document identifier")
	}
	return b.install(repo, server, NormalizeDocURL(rawDoc))
}

// install binds repo and docURL as the current installation, replacing and
// closing any previous one
func (b *Bridge) install(repo Repo, server, docURL string) error {
	b.mu.Lock()
	b.gen++
	gen := b.gen
	old := b.inst
	b.inst = nil
	b.server = server
	b.docURL = docURL
	b.mu.Unlock()

	if old != nil {
		old.close()
	}

	handle, err := repo.Find(docURL)
	if err != nil {
		_ = repo.Close()
		b.log.Errorw("Invalid comments document identifier", logger.FieldDocID, docURL, logger.FieldError, err)
		b.setState(StateIdle)
		return errors.WrapInvalidDocument(err, docURL)
	}

	inst := &installation{repo: repo, handle: handle, docURL: docURL}

	b.mu.Lock()
	if gen != b.gen {
		b.mu.Unlock()
		inst.close()
		return errors.Wrap(errors.ErrClosed, "installation superseded")
	}
	b.inst = inst
	b.mirror = nil
	if v, ok := handle.View(); ok {
		b.mirror = v.List(CommentsKey)
	}
	b.mu.Unlock()

	// Subscribe after publishing inst so a change notification arriving
	// immediately finds it
	unsubscribe := handle.OnChange(func() { b.onChange(gen) })
	b.mu.Lock()
	if gen != b.gen {
		b.mu.Unlock()
		unsubscribe()
		return errors.Wrap(errors.ErrClosed, "installation superseded")
	}
	inst.unsubscribe = unsubscribe
	b.mu.Unlock()

	b.log.Infow("Comments document installed",
		logger.FieldDocID, handle.DocumentID(),
		logger.FieldServer, server)
	b.setState(StateConnecting)
	b.emitRemoteSet(b.Comments())
	return nil
}

func (inst *installation) close() {
	if inst.unsubscribe != nil {
		inst.unsubscribe()
	}
	// Closing a stale repo is best-effort
	_ = inst.repo.Close()
}

// onChange refreshes the mirror from the handle of installation gen
func (b *Bridge) onChange(gen uint64) {
	b.mu.Lock()
	if gen != b.gen || b.inst == nil {
		b.mu.Unlock()
		return
	}
	v, ok := b.inst.handle.View()
	if ok {
		b.mirror = v.List(CommentsKey)
		b.stats.In = payloadSize(b.mirror)
	}
	snapshot := CloneList(b.mirror)
	b.mu.Unlock()

	b.emitRemoteSet(snapshot)
	b.setState(StateConnected)
}

// payloadSize is the serialized length of list, or 0 if it cannot be
// serialized
func payloadSize(list []Record) int {
	if list == nil {
		list = []Record{}
	}
	data, err := json.Marshal(list)
	if err != nil {
		return 0
	}
	return len(data)
}

func (b *Bridge) current() (*installation, uint64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.inst == nil {
		return nil, 0, errors.ErrNotInstalled
	}
	return b.inst, b.gen, nil
}

// change runs fn as one atomic change and records the outbound size
func (b *Bridge) change(fn func(Mutable) error) error {
	inst, gen, err := b.current()
	if err != nil {
		return err
	}
	if err := inst.handle.Change(fn); err != nil {
		return errors.Wrap(err, "comments change")
	}

	b.mu.Lock()
	if gen == b.gen {
		if v, ok := inst.handle.View(); ok {
			b.mirror = v.List(CommentsKey)
			b.stats.Out = payloadSize(b.mirror)
		}
	}
	b.mu.Unlock()
	return nil
}

// Set replaces the whole comment list
func (b *Bridge) Set(list []Record) error {
	list = CloneList(list)
	if err := b.change(func(d Mutable) error {
		return d.SetList(CommentsKey, list)
	}); err != nil {
		return err
	}
	b.safeCall("OnLocalSet", func() {
		if b.callbacks.OnLocalSet != nil {
			b.callbacks.OnLocalSet(CloneList(list))
		}
	})
	return nil
}

// Add appends rec with a generated id and empty text as defaults; fields in
// rec override both. It returns the id of the stored record.
func (b *Bridge) Add(rec Record) (string, error) {
	stored := Record{"id": uuid.NewString(), "text": ""}
	for k, v := range rec {
		stored[k] = v
	}
	if err := b.change(func(d Mutable) error {
		return d.Append(CommentsKey, stored)
	}); err != nil {
		return "", err
	}
	b.safeCall("OnLocalAdd", func() {
		if b.callbacks.OnLocalAdd != nil {
			b.callbacks.OnLocalAdd(stored.Clone())
		}
	})
	return stored.ID(), nil
}

// Edit shallow-merges patch into the first record with id. A missing id is
// a no-op change.
func (b *Bridge) Edit(id string, patch Record) error {
	patch = patch.Clone()
	if err := b.change(func(d Mutable) error {
		i := IndexOf(d.List(CommentsKey), id)
		if i < 0 {
			return nil
		}
		return d.Merge(CommentsKey, i, patch)
	}); err != nil {
		return err
	}
	b.safeCall("OnLocalEdit", func() {
		if b.callbacks.OnLocalEdit != nil {
			b.callbacks.OnLocalEdit(id, patch.Clone())
		}
	})
	return nil
}

// Remove deletes the first record with id. A missing id is a no-op change.
func (b *Bridge) Remove(id string) error {
	if err := b.change(func(d Mutable) error {
		i := IndexOf(d.List(CommentsKey), id)
		if i < 0 {
			return nil
		}
		return d.Delete(CommentsKey, i)
	}); err != nil {
		return err
	}
	b.safeCall("OnLocalRemove", func() {
		if b.callbacks.OnLocalRemove != nil {
			b.callbacks.OnLocalRemove(id)
		}
	})
	return nil
}

// Configure persists a new server (best-effort), closes the current
// runtime instance and reinstalls against the new server with the same
// or the given document.
func (b *Bridge) Configure(opts ConfigureOptions) error {
	b.mu.Lock()
	docURL := b.docURL
	b.mu.Unlock()

	switch {
	case opts.DocURL != "":
		docURL = NormalizeDocURL(opts.DocURL)
	case opts.DocID != "":
		docURL = NormalizeDocURL(opts.DocID)
	}
	if docURL == "" {
		return errors.ErrNotInstalled
	}

	server := ""
	if opts.Server != "" {
		if b.overrides != nil {
			if err := b.overrides.Set(opts.Server); err != nil {
				b.log.Warnw("Server override not persisted", logger.FieldServer, opts.Server, logger.FieldError, err)
			}
		}
		server = opts.Server
	}
	if server == "" {
		server = b.PreferredServer()
	}

	// Close the old instance before building its replacement
	b.mu.Lock()
	b.gen++
	old := b.inst
	b.inst = nil
	b.mu.Unlock()
	if old != nil {
		old.close()
	}

	b.setState(StateConnecting)
	repo, err := NewRuntimeInstance(b.ctors, server)
	if err != nil {
		b.mu.Lock()
		b.server = server
		b.mu.Unlock()
		b.setState(StateIdle)
		return err
	}
	b.log.Infow("Comments reconfigured", logger.FieldServer, server, logger.FieldDocID, docURL)
	return b.install(repo, server, docURL)
}

// Comments returns a snapshot of the mirrored comment list
func (b *Bridge) Comments() []Record {
	b.mu.Lock()
	defer b.mu.Unlock()
	return CloneList(b.mirror)
}

// SyncServer returns the server of the current runtime instance, or ""
// before Start
func (b *Bridge) SyncServer() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.server
}

// DocURL returns the installed document URL, or ""
func (b *Bridge) DocURL() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.docURL
}

// Installed reports whether a document is bound
func (b *Bridge) Installed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.inst != nil
}

// Stats returns the payload metric
func (b *Bridge) Stats() Stats {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.stats
}

// Status returns the status row contents
func (b *Bridge) Status() Status {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.statusLocked()
}

func (b *Bridge) statusLocked() Status {
	doc := ""
	if b.inst != nil {
		doc = b.inst.handle.DocumentID()
	}
	return Status{State: b.state, DocID: doc, Key: b.key, Server: b.server, Stats: b.stats}
}

// Close tears down the current installation
func (b *Bridge) Close() error {
	b.mu.Lock()
	b.gen++
	old := b.inst
	b.inst = nil
	b.mu.Unlock()
	if old != nil {
		old.close()
	}
	b.setState(StateIdle)
	return nil
}

func (b *Bridge) setState(s ConnState) {
	b.mu.Lock()
	b.state = s
	status := b.statusLocked()
	fn := b.onStatus
	b.mu.Unlock()
	if fn != nil {
		b.safeCall("OnStatus", func() { fn(status) })
	}
}

func (b *Bridge) emitRemoteSet(list []Record) {
	if b.callbacks.OnRemoteSet == nil {
		return
	}
	b.safeCall("OnRemoteSet", func() { b.callbacks.OnRemoteSet(list) })
}

// safeCall runs a host callback, logging instead of propagating a panic
func (b *Bridge) safeCall(name string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Warnw("Comments callback panicked", "callback", name, "panic", r)
		}
	}()
	fn()
}
