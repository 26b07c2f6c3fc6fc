package crdt

import (
	"fmt"
	"strings"
)

// ConnState is the bridge's sync state shown in the CRDT status row
type ConnState string

const (
	StateIdle       ConnState = "idle"
	StateConnecting ConnState = "connecting"
	StateConnected  ConnState = "connected"
)

// Stats holds the crude payload metric: the serialized size of the comment
// list after the latest remote (In) and local (Out) change
type Stats struct {
	In  int
	Out int
}

// Status is everything the CRDT status row shows
type Status struct {
	State  ConnState
	DocID  string
	Key    string
	Server string
	Stats  Stats
}

// String renders "<state> · doc <id> · key <masked> · io <in>/<out>"
func (s Status) String() string {
	doc := s.DocID
	if doc == "" {
		doc = "—"
	}
	return fmt.Sprintf("%s · doc %s · key %s · io %d/%d", s.State, doc, MaskKey(s.Key), s.Stats.In, s.Stats.Out)
}

// MaskKey hides a key for display: "—" when empty, all stars up to four
// characters, otherwise the first and last two around an ellipsis
func MaskKey(k string) string {
	r := []rune(k)
	switch {
	case len(r) == 0:
		return "—"
	case len(r) <= 4:
		return strings.Repeat("*", len(r))
	}
	return string(r[:2]) + "…" + string(r[len(r)-2:])
}
