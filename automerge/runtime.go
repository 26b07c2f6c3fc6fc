package automerge

import (
	"time"

	"go.uber.org/zap"

	"github.com/teranos/worldtree/bootstrap"
	"github.com/teranos/worldtree/crdt"
)

// Registered module names and the release they stand in for
const (
	RepoModule      = "automerge-repo"
	WebSocketModule = "automerge-repo-network-websocket"
	ModuleVersion   = "1.2.1"
)

// Options configure the runtime's constructors
type Options struct {
	// Channel names the broadcast bus; empty uses DefaultChannel
	Channel          string
	ReconnectDelay   time.Duration
	HandshakeTimeout time.Duration
	Logger           *zap.SugaredLogger
}

// Constructors returns the runtime's capabilities
func Constructors(opts Options) crdt.Constructors {
	return crdt.Constructors{
		NewRepo:      repoCtor(opts),
		NewNetwork:   networkCtor(opts),
		NewBroadcast: broadcastCtor(opts),
	}
}

func repoCtor(opts Options) func(...crdt.NetworkAdapter) (crdt.Repo, error) {
	return func(adapters ...crdt.NetworkAdapter) (crdt.Repo, error) {
		return NewRepo(opts.Logger, adapters...)
	}
}

func networkCtor(opts Options) func(string) (crdt.NetworkAdapter, error) {
	return func(server string) (crdt.NetworkAdapter, error) {
		return NewWebSocketAdapter(server, WebSocketOptions{
			ReconnectDelay:   opts.ReconnectDelay,
			HandshakeTimeout: opts.HandshakeTimeout,
			Logger:           opts.Logger,
		})
	}
}

func broadcastCtor(opts Options) func() (crdt.NetworkAdapter, error) {
	return func() (crdt.NetworkAdapter, error) {
		return NewBroadcastAdapter(opts.Channel, opts.Logger), nil
	}
}

// Provider exposes the runtime in-process, so bootstrapping never loads a
// remote source
func Provider(opts Options) bootstrap.Provider {
	c := Constructors(opts)
	return bootstrap.ProviderFunc(func() (crdt.Constructors, bool) { return c, true })
}

// Register adds the runtime to reg under the names remote manifests use.
// The network module exports its adapter as a default export.
func Register(reg *bootstrap.Registry, opts Options) error {
	if err := reg.Register(RepoModule, ModuleVersion, &bootstrap.Module{
		Repo:      repoCtor(opts),
		Broadcast: broadcastCtor(opts),
	}); err != nil {
		return err
	}
	return reg.Register(WebSocketModule, ModuleVersion, &bootstrap.Module{
		Default: &bootstrap.Module{Network: networkCtor(opts)},
	})
}
