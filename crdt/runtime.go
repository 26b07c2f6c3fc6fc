// Package crdt bridges a comments list held in an external CRDT runtime to
// the rest of the agent. The runtime owns the authoritative document; the
// bridge keeps a read-only mirror refreshed on every change notification.
package crdt

import (
	"strings"

	"github.com/teranos/worldtree/errors"
)

// CommentsKey is the document field holding the comment list
const CommentsKey = "comments"

// URLPrefix marks a document URL
const URLPrefix = "automerge:"

// View is a read-only view of a document
type View interface {
	// List returns a copy of the list stored at key, or nil when absent
	List(key string) []Record
}

// Mutable is the document inside one atomic change. Writes to a missing
// list create it.
type Mutable interface {
	View
	SetList(key string, list []Record) error
	Append(key string, rec Record) error
	// Merge shallow-merges patch into the element at index
	Merge(key string, index int, patch Record) error
	Delete(key string, index int) error
}

// Handle is one document in a Repo
type Handle interface {
	DocumentID() string
	// View returns the current document; ok is false until it is available
	View() (v View, ok bool)
	// Change applies fn as one atomic change. Listeners registered with
	// OnChange have run by the time Change returns.
	Change(fn func(Mutable) error) error
	// OnChange registers fn for every local or remote change
	OnChange(fn func()) (unsubscribe func())
}

// Repo resolves documents and owns the network adapters it was built with
type Repo interface {
	// Find returns the handle for docURL, failing with ErrInvalidDocument
	// for identifiers the runtime rejects
	Find(docURL string) (Handle, error)
	Close() error
}

// NetworkAdapter is a transport a Repo syncs over
type NetworkAdapter interface {
	Close() error
}

// Constructors are the capabilities a runtime provides. NewBroadcast is
// optional.
type Constructors struct {
	NewRepo      func(adapters ...NetworkAdapter) (Repo, error)
	NewNetwork   func(server string) (NetworkAdapter, error)
	NewBroadcast func() (NetworkAdapter, error)
}

// Complete reports whether both required constructors are present
func (c Constructors) Complete() bool {
	return c.NewRepo != nil && c.NewNetwork != nil
}

// NewRuntimeInstance builds a Repo syncing with server. The local broadcast
// adapter is attached when available; failing to build it is ignored.
func NewRuntimeInstance(c Constructors, server string) (Repo, error) {
	if !c.Complete() {
		return nil, errors.Wrap(errors.ErrRuntimeUnavailable, "incomplete constructors")
	}
	var adapters []NetworkAdapter
	if c.NewBroadcast != nil {
		if bc, err := c.NewBroadcast(); err == nil && bc != nil {
			adapters = append(adapters, bc)
		}
	}
	ws, err := c.NewNetwork(server)
	if err != nil {
		closeAll(adapters)
		return nil, errors.Wrapf(err, "network adapter for %s", server)
	}
	adapters = append(adapters, ws)

	repo, err := c.NewRepo(adapters...)
	if err != nil {
		closeAll(adapters)
		return nil, errors.Wrap(err, "create repo")
	}
	return repo, nil
}

func closeAll(adapters []NetworkAdapter) {
	for _, a := range adapters {
		_ = a.Close()
	}
}

// NormalizeDocURL prefixes a bare document id with "automerge:"
func NormalizeDocURL(raw string) string {
	if strings.HasPrefix(raw, URLPrefix) {
		return raw
	}
	return URLPrefix + raw
}
