// Package endpoint resolves where the widget talks to: the sync server
// WebSocket URL and the startup behaviour flags.
package endpoint

import (
	"net/url"
	"strings"
)

// DefaultServer is used when nothing else names a server
const DefaultServer = "wss://worldtree.online"

// SyncEndpoint is the resolved server. RestBase is always derived from WSURL.
type SyncEndpoint struct {
	WSURL             string
	RestBase          string
	AllowServerSwitch bool
}

// New builds an endpoint for wsURL
func New(wsURL string, allowSwitch bool) SyncEndpoint {
	return SyncEndpoint{WSURL: wsURL, RestBase: RestBase(wsURL), AllowServerSwitch: allowSwitch}
}

// Inputs are the places a server may be named, highest precedence first.
type Inputs struct {
	Attribute string // data-server on the embedding element
	Global    string // WORLD_TREE_SERVER
	ScriptSrc string // the widget script's own URL, possibly relative to PageURL
	PageURL   string // the embedding page location
}

// ResolveServer applies attribute, global, script ?server=, same-origin,
// then the default.
func ResolveServer(in Inputs) string {
	if in.Attribute != "" {
		return in.Attribute
	}
	if in.Global != "" {
		return in.Global
	}

	page, _ := url.Parse(in.PageURL)
	if in.ScriptSrc != "" {
		if src, err := url.Parse(in.ScriptSrc); err == nil {
			if page != nil {
				src = page.ResolveReference(src)
			}
			if qp := src.Query().Get("server"); qp != "" {
				return qp
			}
		}
	}

	if page != nil && page.Host != "" {
		if page.Scheme == "https" {
			return "wss://" + page.Host
		}
		return "ws://" + page.Host
	}
	return DefaultServer
}

// RestBase derives the HTTP base from a WebSocket URL
func RestBase(ws string) string {
	switch {
	case strings.HasPrefix(ws, "wss://"):
		return "https://" + ws[len("wss://"):]
	case strings.HasPrefix(ws, "ws://"):
		return "http://" + ws[len("ws://"):]
	case strings.HasPrefix(ws, "ws"):
		return "http" + ws[len("ws"):]
	}
	return ws
}

// DisplayHost strips the ws scheme for compact display
func DisplayHost(ws string) string {
	ws = strings.TrimPrefix(ws, "wss://")
	return strings.TrimPrefix(ws, "ws://")
}
