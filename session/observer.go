package session

import "github.com/teranos/worldtree/heartbeat"

// fanout delivers heartbeat events to every observer in order
type fanout []heartbeat.Observer

var _ heartbeat.Observer = fanout(nil)

func (f fanout) OnState(s heartbeat.State, label string) {
	for _, o := range f {
		o.OnState(s, label)
	}
}

func (f fanout) OnWelcome() {
	for _, o := range f {
		o.OnWelcome()
	}
}

func (f fanout) OnPing(s heartbeat.Sample) {
	for _, o := range f {
		o.OnPing(s)
	}
}

func (f fanout) OnUsers(n int) {
	for _, o := range f {
		o.OnUsers(n)
	}
}

func (f fanout) OnEnergy(v interface{}) {
	for _, o := range f {
		o.OnEnergy(v)
	}
}
