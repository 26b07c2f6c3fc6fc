package automerge

import (
	"sync"

	amg "github.com/automerge/automerge-go"
	"go.uber.org/zap"

	"github.com/teranos/worldtree/errors"
	"github.com/teranos/worldtree/logger"
)

// link runs the sync protocol for one connection between a repo and one
// remote peer. Each document gets its own sync state per link.
type link struct {
	conn  Conn
	repo  *Repo
	owner adapter
	log   *zap.SugaredLogger

	mu     sync.Mutex
	states map[string]*amg.SyncState
	remote string

	// writeMu serialises frames; the socket allows one writer
	writeMu sync.Mutex
}

func newLink(conn Conn, repo *Repo, owner adapter, log *zap.SugaredLogger) *link {
	return &link{
		conn:   conn,
		repo:   repo,
		owner:  owner,
		log:    logger.OrNop(log),
		states: make(map[string]*amg.SyncState),
	}
}

func (l *link) state(h *Handle) *amg.SyncState {
	l.mu.Lock()
	defer l.mu.Unlock()
	st, ok := l.states[h.id]
	if !ok {
		st = h.newSyncState()
		l.states[h.id] = st
	}
	return st
}

// tracks reports whether a sync state exists for id, which on a relay
// means the peer has asked about the document
func (l *link) tracks(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.states[id]
	return ok
}

// announce sends the next sync message for h, if there is one
func (l *link) announce(h *Handle) error {
	data, ok := h.generate(l.state(h))
	if !ok {
		return nil
	}
	return l.send(Msg{Type: MsgSync, DocumentID: h.id, Data: data})
}

func (l *link) join() error {
	return l.send(Msg{Type: MsgJoin, PeerID: l.repo.PeerID()})
}

func (l *link) send(m Msg) error {
	l.writeMu.Lock()
	defer l.writeMu.Unlock()
	if err := l.conn.WriteJSON(m); err != nil {
		return errors.Wrapf(err, "send %s", m.Type)
	}
	return nil
}

// serve reads frames until the connection fails
func (l *link) serve() error {
	for {
		var m Msg
		if err := l.conn.ReadJSON(&m); err != nil {
			return err
		}
		switch m.Type {
		case MsgJoin:
			l.mu.Lock()
			l.remote = m.PeerID
			l.mu.Unlock()
			l.log.Debugw("Sync peer joined", "peer_id", m.PeerID)

		case MsgSync:
			h := l.repo.lookup(m.DocumentID)
			if h == nil {
				continue
			}
			changed, err := h.receive(l.state(h), m.Data)
			if err != nil {
				l.log.Warnw("Sync message rejected", logger.FieldDocID, m.DocumentID, logger.FieldError, err)
				continue
			}
			if changed {
				l.repo.remoteChanged(h, l.owner)
			}
			if err := l.announce(h); err != nil {
				return err
			}

		default:
			// Unknown kinds are ignored
		}
	}
}

// remotePeer returns the id the peer joined with, if any
func (l *link) remotePeer() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.remote
}
