package bootstrap

import (
	"github.com/teranos/worldtree/crdt"
	"github.com/teranos/worldtree/errors"
)

// Module is what one loaded source exports. A module may put its
// constructors under Default instead of exporting them by name; the named
// export wins when both are present.
type Module struct {
	Repo      func(adapters ...crdt.NetworkAdapter) (crdt.Repo, error)
	Network   func(server string) (crdt.NetworkAdapter, error)
	Broadcast func() (crdt.NetworkAdapter, error)
	Default   *Module
}

func (m *Module) repo() func(...crdt.NetworkAdapter) (crdt.Repo, error) {
	if m == nil {
		return nil
	}
	if m.Repo != nil {
		return m.Repo
	}
	if m.Default != nil {
		return m.Default.Repo
	}
	return nil
}

func (m *Module) network() func(string) (crdt.NetworkAdapter, error) {
	if m == nil {
		return nil
	}
	if m.Network != nil {
		return m.Network
	}
	if m.Default != nil {
		return m.Default.Network
	}
	return nil
}

func (m *Module) broadcast() func() (crdt.NetworkAdapter, error) {
	if m == nil {
		return nil
	}
	if m.Broadcast != nil {
		return m.Broadcast
	}
	if m.Default != nil {
		return m.Default.Broadcast
	}
	return nil
}

// Normalize combines the repo half and the network half of a source pair.
// The broadcast constructor is taken from whichever half has one.
func Normalize(repoMod, netMod *Module) (crdt.Constructors, error) {
	c := crdt.Constructors{
		NewRepo:      repoMod.repo(),
		NewNetwork:   netMod.network(),
		NewBroadcast: repoMod.broadcast(),
	}
	if c.NewBroadcast == nil {
		c.NewBroadcast = netMod.broadcast()
	}
	if c.NewRepo == nil {
		return crdt.Constructors{}, errors.New("repo module exports no Repo constructor")
	}
	if c.NewNetwork == nil {
		return crdt.Constructors{}, errors.New("network module exports no adapter constructor")
	}
	return c, nil
}

// Provider supplies constructors that are already available in-process.
// When it reports ok, no source is loaded.
type Provider interface {
	Constructors() (c crdt.Constructors, ok bool)
}

// ProviderFunc adapts a function to Provider
type ProviderFunc func() (crdt.Constructors, bool)

func (f ProviderFunc) Constructors() (crdt.Constructors, bool) { return f() }
