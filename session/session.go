// Package session owns one running widget: the resolved endpoint, the
// heartbeat channel, the CRDT runtime bootstrap, the comments bridge and
// the widget state machine. It is the host-facing API.
package session

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/teranos/worldtree/am"
	"github.com/teranos/worldtree/anim"
	"github.com/teranos/worldtree/automerge"
	"github.com/teranos/worldtree/bootstrap"
	"github.com/teranos/worldtree/crdt"
	"github.com/teranos/worldtree/endpoint"
	"github.com/teranos/worldtree/errors"
	"github.com/teranos/worldtree/heartbeat"
	"github.com/teranos/worldtree/internal/clock"
	"github.com/teranos/worldtree/logger"
	"github.com/teranos/worldtree/widget"
)

// Config is what the embedding page would supply: element attributes,
// page globals, the script's own URL and the page location
type Config struct {
	Attributes endpoint.Attributes
	Globals    endpoint.Globals
	ScriptSrc  string
	PageURL    string
	// Settings supplies timings, sources and geometry; nil uses defaults
	Settings *am.Config
}

// Deps are the collaborators a session is built from. Every field is
// optional.
type Deps struct {
	Dialer    heartbeat.Dialer
	Clock     clock.Clock
	Scheduler anim.Scheduler
	Host      widget.Host
	Overrides crdt.OverrideStore
	Watcher   *am.ConfigWatcher

	// Provider short-circuits runtime loading when it has constructors
	Provider bootstrap.Provider
	// Loader fetches module sources; nil uses a manifest loader backed by
	// the built-in automerge runtime
	Loader bootstrap.Loader

	// Observer receives heartbeat events after the widget
	Observer  heartbeat.Observer
	OnStatus  func(crdt.Status)
	Callbacks crdt.Callbacks
	Logger    *zap.SugaredLogger
}

// Reconfig replaces parts of a running session. Empty fields are kept.
type Reconfig struct {
	HeartbeatServer string
	SyncServer      string
	DocID           string
}

// Session is one widget instance. Methods are safe for concurrent use.
type Session struct {
	cfg      Config
	deps     Deps
	settings *am.Config
	log      *zap.SugaredLogger

	mu        sync.Mutex
	started   bool
	destroyed bool
	endpoint  endpoint.SyncEndpoint
	opts      endpoint.Options
	hb        *heartbeat.Manager
	boot      *bootstrap.Bootstrapper
	bridge    *crdt.Bridge
	widget    *widget.Widget
	bootErr   error

	ready  chan struct{}
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

var _ widget.Comments = (*Session)(nil)

// New creates a session. Nothing runs until Init.
func New(cfg Config, deps Deps) *Session {
	settings := cfg.Settings
	if settings == nil {
		settings = &am.Config{}
	}
	if deps.Clock == nil {
		deps.Clock = clock.Real{}
	}
	return &Session{
		cfg:      cfg,
		deps:     deps,
		settings: settings,
		log:      logger.OrNop(deps.Logger),
		ready:    make(chan struct{}),
	}
}

// Init resolves the endpoint and options, builds the widget, connects the
// heartbeat and starts loading the CRDT runtime in the background. Ready
// is closed when loading ends.
func (s *Session) Init(ctx context.Context) error {
	s.mu.Lock()
	if s.destroyed {
		s.mu.Unlock()
		return errors.ErrClosed
	}
	if s.started {
		s.mu.Unlock()
		return errors.NewInvalidRequestError("session already initialised")
	}
	s.started = true

	s.opts = endpoint.ResolveOptions(s.cfg.Attributes, s.cfg.Globals)
	server := endpoint.ResolveServer(endpoint.ServerInputs(s.cfg.Attributes, s.cfg.Globals, s.cfg.ScriptSrc, s.cfg.PageURL))
	s.endpoint = endpoint.New(server, s.opts.AllowServerSwitch)

	st := s.settings
	s.hb = heartbeat.NewManager(heartbeat.Config{
		URL:              server,
		Dialer:           s.deps.Dialer,
		Clock:            s.deps.Clock,
		ReconnectDelay:   st.ReconnectDelay(),
		HandshakeTimeout: st.HandshakeTimeout(),
		SummonPerMinute:  st.Heartbeat.SummonPerMinute,
		Logger:           logger.Named(s.deps.Logger, "heartbeat"),
	})

	sched := s.deps.Scheduler
	if sched == nil {
		sched = anim.NewTickerScheduler(st.UI.FPS)
	}
	s.widget = widget.New(widget.Config{
		Viewport:          widget.Viewport{Width: float64(st.UI.ViewportWidth), Height: float64(st.UI.ViewportHeight)},
		Minimized:         s.opts.Minimized,
		Follow:            s.opts.Follow,
		AllowServerSwitch: s.opts.AllowServerSwitch,
		HeartbeatServer:   server,
		HomeURL:           st.GetHomeURL(),
		PageURL:           s.cfg.PageURL,
		FollowGap:         st.UI.FollowGap,
		FollowFactor:      st.UI.FollowFactor,
		PulseDuration:     st.PulseDuration(),
		Scheduler:         sched,
		Clock:             s.deps.Clock,
		Host:              s.deps.Host,
		Heartbeat:         s.hb,
		Comments:          s,
		Overrides:         s.deps.Overrides,
		Logger:            logger.Named(s.deps.Logger, "widget"),
	})

	observers := fanout{s.widget}
	if s.deps.Observer != nil {
		observers = append(observers, s.deps.Observer)
	}
	s.hb.SetObserver(observers)

	s.boot = bootstrap.New(bootstrap.Config{
		Provider: s.deps.Provider,
		Loader:   s.loader(),
		Sources:  sources(st),
		Logger:   logger.Named(s.deps.Logger, "bootstrap"),
	})

	if w := s.deps.Watcher; w != nil {
		// The new override becomes the preferred server on reconfigure
		w.OnChange(func(server string, ok bool) {
			s.log.Infow("Server override changed on disk", logger.FieldServer, server, "set", ok)
			s.ConfigureComments(crdt.ConfigureOptions{})
		})
		w.Start()
	}

	ctx, s.cancel = context.WithCancel(ctx)
	s.wg.Add(1)
	hb, opts, ep := s.hb, s.opts, s.endpoint
	s.mu.Unlock()

	if err := hb.Connect(); err != nil {
		s.log.Warnw("Heartbeat not connected", logger.FieldServer, server, logger.FieldError, err)
	}
	go s.bootstrapComments(ctx, opts)

	s.log.Infow("Session started",
		logger.FieldServer, server,
		"rest_base", ep.RestBase,
		logger.FieldDocID, opts.DocID,
		"minimized", opts.Minimized,
		"follow", opts.Follow)
	return nil
}

// loader returns the configured loader or a manifest loader over the
// built-in runtime
func (s *Session) loader() bootstrap.Loader {
	if s.deps.Loader != nil {
		return s.deps.Loader
	}
	reg := bootstrap.NewRegistry()
	log := logger.Named(s.deps.Logger, "automerge")
	if err := automerge.Register(reg, automerge.Options{
		ReconnectDelay:   s.settings.ReconnectDelay(),
		HandshakeTimeout: s.settings.HandshakeTimeout(),
		Logger:           log,
	}); err != nil {
		s.log.Errorw("Built-in runtime not registered", logger.FieldError, err)
	}
	return bootstrap.NewManifestLoader(reg, s.settings.FetchTimeout(), logger.Named(s.deps.Logger, "loader"))
}

func sources(st *am.Config) []bootstrap.SourcePair {
	if len(st.Runtime.Sources) == 0 {
		return nil
	}
	out := make([]bootstrap.SourcePair, len(st.Runtime.Sources))
	for i, src := range st.Runtime.Sources {
		out[i] = bootstrap.SourcePair{Repo: src.Repo, Network: src.Network}
	}
	return out
}

// bootstrapComments loads the runtime and installs the bridge. Any failure
// leaves the CRDT row idle; the heartbeat keeps working.
func (s *Session) bootstrapComments(ctx context.Context, opts endpoint.Options) {
	defer s.wg.Done()
	defer close(s.ready)

	ctors, err := s.boot.Load(ctx)
	if err != nil {
		s.log.Warnw("CRDT runtime unavailable; comments disabled", logger.FieldError, err)
		s.mu.Lock()
		s.bootErr = err
		s.mu.Unlock()
		s.widget.SetCRDTRow(string(crdt.StateIdle))
		return
	}

	bridge := crdt.NewBridge(crdt.BridgeConfig{
		Constructors:  ctors,
		DefaultServer: s.HeartbeatServer(),
		Overrides:     s.deps.Overrides,
		Key:           opts.CRDTKey,
		Callbacks:     s.deps.Callbacks,
		OnStatus:      s.onStatus,
		Logger:        logger.Named(s.deps.Logger, "comments"),
	})

	s.mu.Lock()
	if s.destroyed {
		s.mu.Unlock()
		_ = bridge.Close()
		return
	}
	s.bridge = bridge
	s.mu.Unlock()

	if err := bridge.Start(opts.DocID); err != nil {
		s.log.Warnw("Comments document not installed", logger.FieldDocID, opts.DocID, logger.FieldError, err)
		s.widget.SetCRDTRow(string(crdt.StateIdle))
	} else if opts.DocID == "" {
		s.widget.SetCRDTRow(string(crdt.StateIdle))
	}
	s.widget.SetSyncServer(bridge.SyncServer())
}

func (s *Session) onStatus(st crdt.Status) {
	s.widget.OnCRDTStatus(st)
	if s.deps.OnStatus != nil {
		s.deps.OnStatus(st)
	}
}

// Ready is closed once runtime bootstrap has finished, successfully or not
func (s *Session) Ready() <-chan struct{} { return s.ready }

// Err returns the bootstrap failure, if any, once Ready is closed
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bootErr
}

// Reconnect reopens the heartbeat channel
func (s *Session) Reconnect() error {
	hb := s.heartbeat()
	if hb == nil {
		return errors.ErrNotInstalled
	}
	return hb.Connect()
}

// Reconfigure replaces the heartbeat endpoint and reinstalls the comments
// bridge. The document is kept unless DocID names a new one.
func (s *Session) Reconfigure(rc Reconfig) error {
	s.mu.Lock()
	if !s.started || s.destroyed {
		s.mu.Unlock()
		return errors.ErrClosed
	}
	hb, bridge := s.hb, s.bridge
	if rc.HeartbeatServer != "" {
		s.endpoint = endpoint.New(rc.HeartbeatServer, s.endpoint.AllowServerSwitch)
	}
	s.mu.Unlock()

	if rc.HeartbeatServer != "" {
		hb.SetURL(rc.HeartbeatServer)
		if err := hb.Connect(); err != nil {
			s.log.Warnw("Heartbeat not connected", logger.FieldServer, rc.HeartbeatServer, logger.FieldError, err)
		}
	}
	if rc.SyncServer == "" && rc.DocID == "" {
		return nil
	}
	if bridge == nil {
		return errors.Wrap(errors.ErrRuntimeUnavailable, "comments bridge not ready")
	}
	if err := bridge.Configure(crdt.ConfigureOptions{Server: rc.SyncServer, DocID: rc.DocID}); err != nil {
		return err
	}
	s.widget.SetSyncServer(bridge.SyncServer())
	return nil
}

// ConfigureComments forwards opts to the bridge. It does nothing until a
// document has been installed.
func (s *Session) ConfigureComments(opts crdt.ConfigureOptions) {
	if err := s.Configure(opts); err != nil && !errors.Is(err, errors.ErrNotInstalled) {
		s.log.Warnw("Comments reconfiguration failed", logger.FieldError, err)
	}
}

// Configure implements widget.Comments
func (s *Session) Configure(opts crdt.ConfigureOptions) error {
	bridge := s.Bridge()
	if bridge == nil || !bridge.Installed() {
		return errors.ErrNotInstalled
	}
	if err := bridge.Configure(opts); err != nil {
		return err
	}
	s.widget.SetSyncServer(bridge.SyncServer())
	return nil
}

// Add implements widget.Comments
func (s *Session) Add(rec crdt.Record) (string, error) {
	bridge := s.Bridge()
	if bridge == nil {
		return "", errors.ErrNotInstalled
	}
	return bridge.Add(rec)
}

// Comments returns a snapshot of the comment list, empty when no bridge
// is installed
func (s *Session) Comments() []crdt.Record {
	bridge := s.Bridge()
	if bridge == nil {
		return []crdt.Record{}
	}
	return bridge.Comments()
}

// SyncServer returns the server the bridge uses, else the preferred one
func (s *Session) SyncServer() string {
	if bridge := s.Bridge(); bridge != nil {
		if server := bridge.SyncServer(); server != "" {
			return server
		}
		return bridge.PreferredServer()
	}
	if s.deps.Overrides != nil {
		if server, ok := s.deps.Overrides.Get(); ok && server != "" {
			return server
		}
	}
	return s.HeartbeatServer()
}

// HeartbeatServer returns the heartbeat endpoint URL
func (s *Session) HeartbeatServer() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.endpoint.WSURL
}

// Endpoint returns the resolved endpoint
func (s *Session) Endpoint() endpoint.SyncEndpoint {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.endpoint
}

// Options returns the resolved startup options
func (s *Session) Options() endpoint.Options {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.opts
}

// Bridge returns the comments bridge, nil before bootstrap succeeds
func (s *Session) Bridge() *crdt.Bridge {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bridge
}

// Widget returns the widget, nil before Init
func (s *Session) Widget() *widget.Widget {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.widget
}

// Heartbeat returns the heartbeat manager, nil before Init
func (s *Session) Heartbeat() *heartbeat.Manager { return s.heartbeat() }

func (s *Session) heartbeat() *heartbeat.Manager {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hb
}

// Destroy tears everything down. It waits for a pending bootstrap to
// observe cancellation and is safe to call more than once.
func (s *Session) Destroy() {
	s.mu.Lock()
	if s.destroyed {
		s.mu.Unlock()
		return
	}
	s.destroyed = true
	cancel := s.cancel
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	s.wg.Wait()

	s.mu.Lock()
	hb, bridge, w := s.hb, s.bridge, s.widget
	s.mu.Unlock()

	if s.deps.Watcher != nil {
		if err := s.deps.Watcher.Stop(); err != nil {
			s.log.Debugw("Override watcher stop failed", logger.FieldError, err)
		}
	}
	if hb != nil {
		hb.Cleanup()
	}
	if bridge != nil {
		if err := bridge.Close(); err != nil {
			s.log.Debugw("Comments bridge close failed", logger.FieldError, err)
		}
	}
	if w != nil {
		w.Close()
	}
	s.log.Infow("Session destroyed")
}
