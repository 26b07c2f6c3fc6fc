package heartbeat

import (
	"context"
	"net/url"
	"time"

	"github.com/gorilla/websocket"

	"github.com/teranos/worldtree/errors"
)

// Conn is one open heartbeat channel
type Conn interface {
	// ReadMessage blocks for the next text or binary frame
	ReadMessage() ([]byte, error)
	WriteJSON(v interface{}) error
	Close() error
}

// Dialer opens heartbeat channels
type Dialer interface {
	Dial(ctx context.Context, url string) (Conn, error)
}

// WebSocketDialer dials with gorilla/websocket
type WebSocketDialer struct {
	HandshakeTimeout time.Duration
}

// Dial implements Dialer
func (d WebSocketDialer) Dial(ctx context.Context, rawURL string) (Conn, error) {
	dialer := websocket.Dialer{
		Proxy:            websocket.DefaultDialer.Proxy,
		HandshakeTimeout: d.HandshakeTimeout,
	}
	conn, _, err := dialer.DialContext(ctx, rawURL, nil)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrTransport, "dial %s: %v", rawURL, err)
	}
	return &gorillaConn{conn: conn}, nil
}

type gorillaConn struct {
	conn *websocket.Conn
}

func (c *gorillaConn) ReadMessage() ([]byte, error) {
	_, data, err := c.conn.ReadMessage()
	return data, err
}

func (c *gorillaConn) WriteJSON(v interface{}) error { return c.conn.WriteJSON(v) }

func (c *gorillaConn) Close() error { return c.conn.Close() }

// ValidateURL rejects URLs a WebSocket cannot be constructed from
func ValidateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return errors.Wrapf(errors.ErrBadURL, "%q: %v", raw, err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return errors.Wrapf(errors.ErrBadURL, "%q: scheme must be ws or wss", raw)
	}
	if u.Host == "" {
		return errors.Wrapf(errors.ErrBadURL, "%q: missing host", raw)
	}
	if u.Fragment != "" {
		return errors.Wrapf(errors.ErrBadURL, "%q: fragments are not allowed", raw)
	}
	return nil
}

// isCleanClose reports a normal closure, which is not an error
func isCleanClose(err error) bool {
	return websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway)
}
