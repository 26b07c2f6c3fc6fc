// Package heartbeat keeps one WebSocket channel open to the sync server,
// reconnecting after a fixed delay, and reports presence samples.
package heartbeat

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/teranos/worldtree/errors"
	"github.com/teranos/worldtree/internal/clock"
	"github.com/teranos/worldtree/logger"
)

// Default timings
const (
	DefaultReconnectDelay   = 3000 * time.Millisecond
	DefaultHandshakeTimeout = 10 * time.Second
)

// Config configures a Manager. Zero values pick defaults.
type Config struct {
	URL              string
	Dialer           Dialer
	Clock            clock.Clock
	ReconnectDelay   time.Duration
	HandshakeTimeout time.Duration
	// SummonPerMinute throttles invite messages; 0 disables the limit.
	SummonPerMinute int
	Observer        Observer
	Logger          *zap.SugaredLogger
}

// Stats are cumulative counters for the manager's lifetime
type Stats struct {
	Dials      uint64
	Reconnects uint64
	MessagesIn uint64
	Malformed  uint64
}

// Manager owns the heartbeat channel. At most one channel and one reconnect
// timer exist at any time; events from superseded channels are ignored by
// comparing generations.
type Manager struct {
	dialer           Dialer
	clock            clock.Clock
	delay            time.Duration
	handshakeTimeout time.Duration
	observer         Observer
	limiter          *rate.Limiter
	log              *zap.SugaredLogger

	mu         sync.Mutex
	url        string
	gen        uint64
	conn       Conn
	open       bool
	dialCancel context.CancelFunc
	timer      clock.Timer
	state      State
	label      string
	sample     Sample

	// emitMu keeps observer delivery in mutation order
	emitMu sync.Mutex
	// writeMu serialises frames; the socket allows one writer
	writeMu sync.Mutex

	dials, reconnects, messagesIn, malformed atomic.Uint64
}

// NewManager creates an idle manager. Call Connect to open the channel.
func NewManager(cfg Config) *Manager {
	m := &Manager{
		url:              cfg.URL,
		dialer:           cfg.Dialer,
		clock:            cfg.Clock,
		delay:            cfg.ReconnectDelay,
		handshakeTimeout: cfg.HandshakeTimeout,
		observer:         cfg.Observer,
		log:              logger.OrNop(cfg.Logger),
		state:            StateIdle,
	}
	if m.handshakeTimeout <= 0 {
		m.handshakeTimeout = DefaultHandshakeTimeout
	}
	if m.dialer == nil {
		m.dialer = WebSocketDialer{HandshakeTimeout: m.handshakeTimeout}
	}
	if m.clock == nil {
		m.clock = clock.Real{}
	}
	if m.delay <= 0 {
		m.delay = DefaultReconnectDelay
	}
	if m.observer == nil {
		m.observer = NopObserver{}
	}
	if cfg.SummonPerMinute > 0 {
		m.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.SummonPerMinute)), 1)
	}
	return m
}

// SetObserver replaces the observer. Used when the widget is built after
// the manager.
func (m *Manager) SetObserver(o Observer) {
	if o == nil {
		o = NopObserver{}
	}
	m.emitMu.Lock()
	defer m.emitMu.Unlock()
	m.observer = o
}

// URL returns the server the next Connect dials
func (m *Manager) URL() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.url
}

// SetURL changes the server used by the next Connect
func (m *Manager) SetURL(url string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.url = url
}

// State returns the current channel state
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// StatusLabel returns the status row text
func (m *Manager) StatusLabel() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.label
}

// Sample returns the latest heartbeat sample
func (m *Manager) Sample() Sample {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sample
}

// Stats returns cumulative counters
func (m *Manager) Stats() Stats {
	return Stats{
		Dials:      m.dials.Load(),
		Reconnects: m.reconnects.Load(),
		MessagesIn: m.messagesIn.Load(),
		Malformed:  m.malformed.Load(),
	}
}

// Connect tears down any channel or pending reconnect and opens a new
// channel. A URL that cannot be dialled at all returns ErrBadURL and
// schedules nothing; Connect must be called again explicitly.
func (m *Manager) Connect() error {
	m.mu.Lock()
	m.teardownLocked()
	gen := m.gen
	url := m.url
	m.sample = Sample{}
	m.setStateLocked(StateConnecting, LabelConnecting)

	if err := ValidateURL(url); err != nil {
		m.setStateLocked(StateError, LabelBadURL)
		m.emitLocked(func(o Observer) {
			o.OnState(StateConnecting, LabelConnecting)
			o.OnState(StateError, LabelBadURL)
		})
		m.log.Warnw("Heartbeat URL rejected", logger.FieldURL, url, logger.FieldError, err)
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), m.handshakeTimeout)
	m.dialCancel = cancel
	m.emitLocked(func(o Observer) { o.OnState(StateConnecting, LabelConnecting) })

	m.dials.Add(1)
	m.log.Debugw("Heartbeat connecting", logger.FieldServer, url, logger.FieldGeneration, gen)
	go m.run(ctx, cancel, gen, url)
	return nil
}

// Cleanup closes the channel and cancels any reconnect. The manager can be
// connected again afterwards.
func (m *Manager) Cleanup() {
	m.mu.Lock()
	m.teardownLocked()
	m.sample = Sample{}
	m.setStateLocked(StateIdle, "")
	m.emitLocked(func(o Observer) { o.OnState(StateIdle, "") })
}

// SendSummon invites others to pageURL. It fails when the channel is not
// open or the summon rate is exceeded; callers may ignore the error.
func (m *Manager) SendSummon(pageURL string) error {
	if m.limiter != nil && !m.limiter.Allow() {
		return errors.New("summon rate limited")
	}
	return m.send(summon(pageURL))
}

// teardownLocked stops the timer, abandons any dial and closes the channel.
// Bumping the generation makes every callback of the old channel stale.
func (m *Manager) teardownLocked() {
	m.gen++
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
	if m.dialCancel != nil {
		m.dialCancel()
		m.dialCancel = nil
	}
	if m.conn != nil {
		_ = m.conn.Close()
		m.conn = nil
	}
	m.open = false
}

func (m *Manager) setStateLocked(s State, label string) {
	m.state = s
	m.label = label
}

// emitLocked releases mu and delivers fn to the observer. Delivery is
// ordered with respect to other emissions.
func (m *Manager) emitLocked(fn func(Observer)) {
	m.emitMu.Lock()
	m.mu.Unlock()
	defer m.emitMu.Unlock()
	fn(m.observer)
}

func (m *Manager) run(ctx context.Context, cancel context.CancelFunc, gen uint64, url string) {
	conn, err := m.dialer.Dial(ctx, url)
	cancel()

	m.mu.Lock()
	if gen != m.gen {
		m.mu.Unlock()
		if conn != nil {
			_ = conn.Close()
		}
		return
	}
	m.dialCancel = nil
	if err != nil {
		m.log.Infow("Heartbeat dial failed", logger.FieldServer, url, logger.FieldError, err)
		m.closedLocked(gen, true)
		return
	}

	m.conn = conn
	m.open = true
	m.setStateLocked(StateConnected, LabelConnected)
	m.emitLocked(func(o Observer) { o.OnState(StateConnected, LabelConnected) })
	m.log.Infow("Heartbeat connected", logger.FieldServer, url)

	for {
		data, err := conn.ReadMessage()
		if err != nil {
			m.mu.Lock()
			if gen != m.gen {
				m.mu.Unlock()
				return
			}
			m.log.Infow("Heartbeat channel closed", logger.FieldServer, url, logger.FieldError, err)
			m.closedLocked(gen, !isCleanClose(err))
			return
		}
		m.handleMessage(gen, data)
	}
}

// closedLocked handles the end of channel gen: an optional Error state,
// then Disconnected with exactly one reconnect scheduled.
func (m *Manager) closedLocked(gen uint64, failed bool) {
	if m.conn != nil {
		_ = m.conn.Close()
		m.conn = nil
	}
	m.open = false
	m.timer = m.clock.AfterFunc(m.delay, func() { m.reconnect(gen) })
	m.setStateLocked(StateDisconnected, LabelDisconnected)
	m.emitLocked(func(o Observer) {
		if failed {
			o.OnState(StateError, LabelError)
		}
		o.OnState(StateDisconnected, LabelDisconnected)
	})
	m.log.Debugw("Heartbeat reconnect scheduled", logger.FieldDelayMS, m.delay.Milliseconds())
}

func (m *Manager) reconnect(gen uint64) {
	m.mu.Lock()
	if gen != m.gen || m.timer == nil {
		m.mu.Unlock()
		return
	}
	m.timer = nil
	m.mu.Unlock()

	m.reconnects.Add(1)
	_ = m.Connect()
}

func (m *Manager) handleMessage(gen uint64, data []byte) {
	m.messagesIn.Add(1)
	msg, ok := parseInbound(data)
	if !ok {
		m.malformed.Add(1)
		return
	}

	m.mu.Lock()
	if gen != m.gen {
		m.mu.Unlock()
		return
	}

	switch msg.Type {
	case TypeWelcome:
		m.label = LabelWelcome
		state := m.state
		m.emitLocked(func(o Observer) {
			o.OnState(state, LabelWelcome)
			o.OnWelcome()
		})
		// Announce once so this session shows up in peers' user lists
		_ = m.send(zeroCoordinate())

	case TypePing:
		m.sample.Time = msg.timeText()
		if n, ok := msg.users(); ok {
			m.sample.Users, m.sample.HasUsers = n, true
		}
		if e, ok := msg.energy(); ok {
			m.sample.Energy, m.sample.HasEnergy = e, true
		}
		sample := m.sample
		m.emitLocked(func(o Observer) { o.OnPing(sample) })

	case TypeServerInfo, TypeUserUpdate:
		n, ok := msg.users()
		if !ok {
			m.mu.Unlock()
			return
		}
		m.sample.Users, m.sample.HasUsers = n, true
		m.emitLocked(func(o Observer) { o.OnUsers(n) })

	case TypeEnergyUpdate:
		e, ok := msg.energy()
		if !ok {
			m.mu.Unlock()
			return
		}
		m.sample.Energy, m.sample.HasEnergy = e, true
		m.emitLocked(func(o Observer) { o.OnEnergy(e) })

	default:
		m.mu.Unlock()
	}
}

// send writes v on the open channel
func (m *Manager) send(v interface{}) error {
	m.mu.Lock()
	conn, open := m.conn, m.open
	m.mu.Unlock()
	if conn == nil || !open {
		return errors.Wrap(errors.ErrTransport, "heartbeat channel not open")
	}

	m.writeMu.Lock()
	defer m.writeMu.Unlock()
	if err := conn.WriteJSON(v); err != nil {
		return errors.Wrap(err, "heartbeat write")
	}
	return nil
}
