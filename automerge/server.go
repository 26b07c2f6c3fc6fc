package automerge

import (
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/teranos/worldtree/logger"
)

// SyncHandler is a relay sync server. It keeps a replica of every document
// a client mentions and forwards changes between connected clients.
type SyncHandler struct {
	repo     *Repo
	upgrader websocket.Upgrader
	log      *zap.SugaredLogger
}

// NewSyncHandler creates a relay with an empty repository
func NewSyncHandler(log *zap.SugaredLogger) *SyncHandler {
	return &SyncHandler{
		repo: newRepo(log, true),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Widgets connect from arbitrary embedding pages
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		log: logger.OrNop(log),
	}
}

// Repo returns the relay's own repository
func (s *SyncHandler) Repo() *Repo { return s.repo }

// ServeHTTP upgrades the request and runs the sync protocol until the
// client goes away
func (s *SyncHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Errorw("Sync WebSocket upgrade failed", logger.FieldError, err)
		return
	}

	p := &peerAdapter{}
	p.link = newLink(&gorillaConn{conn: conn}, s.repo, p, s.log)
	s.repo.addAdapter(p)
	defer s.repo.removeAdapter(p)
	defer p.Close()

	s.log.Infow("Sync peer connected", "remote_addr", r.RemoteAddr)
	err = p.link.serve()
	s.log.Infow("Sync peer disconnected",
		"remote_addr", r.RemoteAddr,
		"peer_id", p.link.remotePeer(),
		logger.FieldError, err)
}

// peerAdapter is the relay's end of one client connection
type peerAdapter struct {
	link *link
	once sync.Once
}

func (p *peerAdapter) attach(*Repo) {}

// announce only forwards documents the client has synced on this link
func (p *peerAdapter) announce(h *Handle) {
	if !p.link.tracks(h.id) {
		return
	}
	_ = p.link.announce(h)
}

func (p *peerAdapter) Close() error {
	var err error
	p.once.Do(func() { err = p.link.conn.Close() })
	return err
}
