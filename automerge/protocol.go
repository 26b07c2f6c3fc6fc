package automerge

import (
	"github.com/gorilla/websocket"
)

// Sync protocol message types exchanged over one WebSocket.
//
// The protocol is symmetric: after an optional join, either side sends
// automerge sync messages for any document it tracks and answers every
// message it receives with its next one, until both report nothing to send.
type MsgType string

const (
	// MsgJoin introduces a peer: "here's my peer id"
	MsgJoin MsgType = "join"

	// MsgSync carries one automerge sync message for one document
	MsgSync MsgType = "sync"
)

// Msg is the envelope for all sync protocol messages. Data is base64 in
// JSON.
type Msg struct {
	Type       MsgType `json:"type"`
	PeerID     string  `json:"peerId,omitempty"`
	DocumentID string  `json:"documentId,omitempty"`
	Data       []byte  `json:"data,omitempty"`
}

// Conn abstracts the WebSocket connection for testability.
// The real implementation wraps gorilla/websocket; tests use a channel pair.
type Conn interface {
	ReadJSON(v interface{}) error
	WriteJSON(v interface{}) error
	Close() error
}

// gorillaConn wraps gorilla/websocket.Conn to implement Conn
type gorillaConn struct {
	conn *websocket.Conn
}

func (c *gorillaConn) ReadJSON(v interface{}) error  { return c.conn.ReadJSON(v) }
func (c *gorillaConn) WriteJSON(v interface{}) error { return c.conn.WriteJSON(v) }
func (c *gorillaConn) Close() error                  { return c.conn.Close() }
