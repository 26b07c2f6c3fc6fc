package automerge

import (
	"strings"

	"github.com/google/uuid"
	"github.com/mr-tron/base58"

	"github.com/teranos/worldtree/crdt"
	"github.com/teranos/worldtree/errors"
)

// NewDocumentID returns a fresh base58-encoded 16-byte id
func NewDocumentID() string {
	id := uuid.New()
	return base58.Encode(id[:])
}

// NewDocumentURL returns a fresh "automerge:" URL
func NewDocumentURL() string {
	return crdt.URLPrefix + NewDocumentID()
}

// ParseURL extracts the document id from "automerge:<id>" or a bare id.
// The id must be non-empty base58.
func ParseURL(raw string) (string, error) {
	id := strings.TrimPrefix(strings.TrimSpace(raw), crdt.URLPrefix)
	if id == "" {
		return "", errors.Wrap(errors.ErrInvalidDocument, "empty document id")
	}
	b, err := base58.Decode(id)
	if err != nil || len(b) == 0 {
		return "", errors.Wrapf(errors.ErrInvalidDocument, "document id %q is not base58", id)
	}
	return id, nil
}
