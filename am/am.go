package am

import "time"

// Config represents the worldtree agent configuration.
//
// The widget section is the counterpart of the page globals a host page
// sets before loading the widget (WORLD_TREE_SERVER, WORLD_TREE_DOC_ID, ...).
type Config struct {
	Widget    WidgetConfig    `mapstructure:"widget"`
	Heartbeat HeartbeatConfig `mapstructure:"heartbeat"`
	Runtime   RuntimeConfig   `mapstructure:"runtime"`
	UI        UIConfig        `mapstructure:"ui"`
	Log       LogConfig       `mapstructure:"log"`
}

// WidgetConfig holds the global overrides. Pointer fields distinguish
// "explicitly set" from "absent".
type WidgetConfig struct {
	Server            string `mapstructure:"server"`
	DocID             string `mapstructure:"doc_id"`
	CRDTKey           string `mapstructure:"crdt_key"`
	Follow            *bool  `mapstructure:"follow"`
	Minimized         *bool  `mapstructure:"minimized"`
	AllowServerSwitch bool   `mapstructure:"allow_server_switch"`
	HomeURL           string `mapstructure:"home_url"` // target of "Visit WorldTree"
}

// HeartbeatConfig configures the heartbeat channel
type HeartbeatConfig struct {
	ReconnectDelayMS   int `mapstructure:"reconnect_delay_ms"`
	HandshakeTimeoutMS int `mapstructure:"handshake_timeout_ms"`
	PulseMS            int `mapstructure:"pulse_ms"`
	SummonPerMinute    int `mapstructure:"summon_per_minute"` // 0 = unlimited
}

// RuntimeConfig configures CRDT runtime bootstrap
type RuntimeConfig struct {
	Sources        []SourceConfig `mapstructure:"sources"` // empty = built-in source list
	FetchTimeoutMS int            `mapstructure:"fetch_timeout_ms"`
}

// SourceConfig is one repository/network module source pair
type SourceConfig struct {
	Repo    string `mapstructure:"repo"`
	Network string `mapstructure:"network"`
}

// UIConfig configures the headless widget geometry and animation
type UIConfig struct {
	ViewportWidth  int     `mapstructure:"viewport_width"`
	ViewportHeight int     `mapstructure:"viewport_height"`
	FPS            int     `mapstructure:"fps"`
	FollowGap      float64 `mapstructure:"follow_gap"`
	FollowFactor   float64 `mapstructure:"follow_factor"`
}

// LogConfig configures console log output
type LogConfig struct {
	Theme string `mapstructure:"theme"` // gruvbox, everforest
}

// File system constants
const (
	DefaultDirPermissions  = 0755
	DefaultFilePermissions = 0644
)

// ReconnectDelay returns the fixed heartbeat reconnect delay
func (c *Config) ReconnectDelay() time.Duration {
	return millis(c.Heartbeat.ReconnectDelayMS, DefaultReconnectDelayMS)
}

// HandshakeTimeout returns the heartbeat dial handshake timeout
func (c *Config) HandshakeTimeout() time.Duration {
	return millis(c.Heartbeat.HandshakeTimeoutMS, DefaultHandshakeTimeoutMS)
}

// PulseDuration returns how long the orb pulse lasts after a ping
func (c *Config) PulseDuration() time.Duration {
	return millis(c.Heartbeat.PulseMS, DefaultPulseMS)
}

// FetchTimeout returns the per-module fetch timeout for runtime bootstrap
func (c *Config) FetchTimeout() time.Duration {
	return millis(c.Runtime.FetchTimeoutMS, DefaultFetchTimeoutMS)
}

// FrameInterval returns the animation frame period derived from ui.fps
func (c *Config) FrameInterval() time.Duration {
	fps := c.UI.FPS
	if fps <= 0 {
		fps = DefaultFPS
	}
	return time.Second / time.Duration(fps)
}

// millis converts a millisecond setting; zero or negative means def
func millis(v, def int) time.Duration {
	if v <= 0 {
		v = def
	}
	return time.Duration(v) * time.Millisecond
}
