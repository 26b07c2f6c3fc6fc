package am

import (
	"github.com/spf13/viper"
)

// Default values shared between SetDefaults and the Config accessors
const (
	DefaultReconnectDelayMS   = 3000
	DefaultHandshakeTimeoutMS = 10000
	DefaultPulseMS            = 240
	DefaultSummonPerMinute    = 6
	DefaultFetchTimeoutMS     = 15000
	DefaultFPS                = 60
	DefaultFollowGap          = 20.0
	DefaultFollowFactor       = 0.045
	DefaultViewportWidth      = 1280
	DefaultViewportHeight     = 800
	DefaultHomeURL            = "https://worldtree.online"
	DefaultLogTheme           = "everforest"
)

// SetDefaults configures default values for all configuration options.
// Widget overrides have no defaults: absent means "not set by the host".
func SetDefaults(v *viper.Viper) {
	v.SetDefault("widget.home_url", DefaultHomeURL)
	v.SetDefault("widget.allow_server_switch", false)

	v.SetDefault("heartbeat.reconnect_delay_ms", DefaultReconnectDelayMS)
	v.SetDefault("heartbeat.handshake_timeout_ms", DefaultHandshakeTimeoutMS)
	v.SetDefault("heartbeat.pulse_ms", DefaultPulseMS)
	v.SetDefault("heartbeat.summon_per_minute", DefaultSummonPerMinute)

	v.SetDefault("runtime.fetch_timeout_ms", DefaultFetchTimeoutMS)

	v.SetDefault("ui.viewport_width", DefaultViewportWidth)
	v.SetDefault("ui.viewport_height", DefaultViewportHeight)
	v.SetDefault("ui.fps", DefaultFPS)
	v.SetDefault("ui.follow_gap", DefaultFollowGap)
	v.SetDefault("ui.follow_factor", DefaultFollowFactor)

	v.SetDefault("log.theme", DefaultLogTheme)
}

// BindGlobalEnvVars binds the widget overrides to both the WORLDTREE_*
// names and the WORLD_TREE_* names host pages already use.
func BindGlobalEnvVars(v *viper.Viper) {
	_ = v.BindEnv("widget.server", "WORLDTREE_WIDGET_SERVER", "WORLD_TREE_SERVER")
	_ = v.BindEnv("widget.doc_id", "WORLDTREE_WIDGET_DOC_ID", "WORLD_TREE_DOC_ID")
	_ = v.BindEnv("widget.crdt_key", "WORLDTREE_WIDGET_CRDT_KEY", "WORLD_TREE_CRDT_KEY")
	_ = v.BindEnv("widget.follow", "WORLDTREE_WIDGET_FOLLOW", "WORLD_TREE_FOLLOW")
	_ = v.BindEnv("widget.minimized", "WORLDTREE_WIDGET_MINIMIZED", "WORLD_TREE_MINIMIZED")
	_ = v.BindEnv("log.theme", "WORLDTREE_LOG_THEME")
}

// GetLogTheme returns the log theme (default: everforest)
func (c *Config) GetLogTheme() string {
	if c.Log.Theme == "" {
		return DefaultLogTheme
	}
	return c.Log.Theme
}

// GetHomeURL returns the "Visit WorldTree" target
func (c *Config) GetHomeURL() string {
	if c.Widget.HomeURL == "" {
		return DefaultHomeURL
	}
	return c.Widget.HomeURL
}
