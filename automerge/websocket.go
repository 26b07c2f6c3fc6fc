package automerge

import (
	"context"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/teranos/worldtree/errors"
	"github.com/teranos/worldtree/logger"
)

// Default adapter timings
const (
	DefaultReconnectDelay   = 3 * time.Second
	DefaultHandshakeTimeout = 10 * time.Second
)

// DialFunc opens a connection to a sync server
type DialFunc func(ctx context.Context, url string) (Conn, error)

// WebSocketOptions configure a WebSocketAdapter. Zero values pick defaults.
type WebSocketOptions struct {
	ReconnectDelay   time.Duration
	HandshakeTimeout time.Duration
	Dial             DialFunc
	Logger           *zap.SugaredLogger
}

// WebSocketAdapter syncs a repo with one sync server, redialling after a
// fixed delay whenever the connection drops
type WebSocketAdapter struct {
	url   string
	delay time.Duration
	dial  DialFunc
	log   *zap.SugaredLogger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu        sync.Mutex
	repo      *Repo
	link      *link
	connected bool
}

// NewWebSocketAdapter validates server and returns an adapter that starts
// connecting once a repo attaches it
func NewWebSocketAdapter(server string, opts WebSocketOptions) (*WebSocketAdapter, error) {
	u, err := url.Parse(server)
	if err != nil || (u.Scheme != "ws" && u.Scheme != "wss") || u.Host == "" {
		return nil, errors.Wrapf(errors.ErrBadURL, "sync server %q", server)
	}
	a := &WebSocketAdapter{
		url:   server,
		delay: opts.ReconnectDelay,
		dial:  opts.Dial,
		log:   logger.OrNop(opts.Logger),
	}
	if a.delay <= 0 {
		a.delay = DefaultReconnectDelay
	}
	if a.dial == nil {
		timeout := opts.HandshakeTimeout
		if timeout <= 0 {
			timeout = DefaultHandshakeTimeout
		}
		a.dial = gorillaDialer(timeout)
	}
	a.ctx, a.cancel = context.WithCancel(context.Background())
	return a, nil
}

func gorillaDialer(timeout time.Duration) DialFunc {
	return func(ctx context.Context, url string) (Conn, error) {
		d := websocket.Dialer{HandshakeTimeout: timeout}
		conn, _, err := d.DialContext(ctx, url, nil)
		if err != nil {
			return nil, errors.Wrapf(errors.ErrTransport, "dial %s: %v", url, err)
		}
		return &gorillaConn{conn: conn}, nil
	}
}

// URL returns the sync server
func (a *WebSocketAdapter) URL() string { return a.url }

// Connected reports whether a connection is currently up
func (a *WebSocketAdapter) Connected() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.connected
}

func (a *WebSocketAdapter) attach(r *Repo) {
	a.mu.Lock()
	a.repo = r
	a.mu.Unlock()
	a.wg.Add(1)
	go a.run()
}

func (a *WebSocketAdapter) announce(h *Handle) {
	a.mu.Lock()
	l := a.link
	a.mu.Unlock()
	if l == nil {
		return
	}
	if err := l.announce(h); err != nil {
		a.log.Debugw("Sync announce failed", logger.FieldDocID, h.id, logger.FieldError, err)
	}
}

func (a *WebSocketAdapter) run() {
	defer a.wg.Done()
	for attempt := 1; ; attempt++ {
		conn, err := a.dial(a.ctx, a.url)
		if err == nil {
			attempt = 0
			a.serve(conn)
		} else {
			a.log.Debugw("Sync server unreachable", logger.FieldServer, a.url, logger.FieldAttempt, attempt, logger.FieldError, err)
		}
		select {
		case <-a.ctx.Done():
			return
		case <-time.After(a.delay):
		}
	}
}

// serve runs one connection: join, offer every tracked document, then
// answer frames until the connection fails
func (a *WebSocketAdapter) serve(conn Conn) {
	a.mu.Lock()
	if a.ctx.Err() != nil {
		a.mu.Unlock()
		_ = conn.Close()
		return
	}
	repo := a.repo
	l := newLink(conn, repo, a, a.log)
	a.link = l
	a.connected = true
	a.mu.Unlock()

	a.log.Infow("Sync server connected", logger.FieldServer, a.url)

	if err := l.join(); err == nil {
		for _, h := range repo.Handles() {
			if err := l.announce(h); err != nil {
				break
			}
		}
	}
	err := l.serve()

	a.mu.Lock()
	a.link = nil
	a.connected = false
	a.mu.Unlock()
	_ = conn.Close()

	if a.ctx.Err() == nil {
		a.log.Infow("Sync server connection lost", logger.FieldServer, a.url, logger.FieldError, err)
	}
}

// Close stops redialling and closes the current connection
func (a *WebSocketAdapter) Close() error {
	a.cancel()
	a.mu.Lock()
	l := a.link
	a.mu.Unlock()
	if l != nil {
		_ = l.conn.Close()
	}
	a.wg.Wait()
	return nil
}
