package heartbeat

// State is the heartbeat channel lifecycle state
type State int

const (
	StateIdle State = iota
	StateConnecting
	StateConnected
	StateDisconnected
	StateError
)

// Status labels shown in the widget's status row
const (
	LabelConnecting   = "Connecting..."
	LabelConnected    = "Connected"
	LabelDisconnected = "Disconnected"
	LabelError        = "Error"
	LabelBadURL       = "Bad URL"
	LabelWelcome      = "Welcome"
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateDisconnected:
		return "disconnected"
	case StateError:
		return "error"
	}
	return "unknown"
}

// Sample is the most recent heartbeat. Older samples are not kept.
type Sample struct {
	Time      string
	Users     int
	HasUsers  bool
	Energy    interface{}
	HasEnergy bool
}

// Observer receives heartbeat events in the order they happen. Observer
// methods must not call Connect or Cleanup.
type Observer interface {
	OnState(state State, label string)
	OnWelcome()
	OnPing(sample Sample)
	OnUsers(n int)
	OnEnergy(v interface{})
}

// NopObserver ignores every event. Embed it to implement a subset.
type NopObserver struct{}

func (NopObserver) OnState(State, string) {}
func (NopObserver) OnWelcome()            {}
func (NopObserver) OnPing(Sample)         {}
func (NopObserver) OnUsers(int)           {}
func (NopObserver) OnEnergy(interface{})  {}
