package am

import (
	"net/url"

	"github.com/teranos/worldtree/errors"
)

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	// 0 = use default, negative = invalid
	if c.Heartbeat.ReconnectDelayMS < 0 {
		return errors.Newf("heartbeat.reconnect_delay_ms must be >= 0, got %d", c.Heartbeat.ReconnectDelayMS)
	}
	if c.Heartbeat.HandshakeTimeoutMS < 0 {
		return errors.Newf("heartbeat.handshake_timeout_ms must be >= 0, got %d", c.Heartbeat.HandshakeTimeoutMS)
	}
	if c.Heartbeat.PulseMS < 0 {
		return errors.Newf("heartbeat.pulse_ms must be >= 0, got %d", c.Heartbeat.PulseMS)
	}
	if c.Heartbeat.SummonPerMinute < 0 {
		return errors.Newf("heartbeat.summon_per_minute must be >= 0 (0 = unlimited), got %d", c.Heartbeat.SummonPerMinute)
	}
	if c.Runtime.FetchTimeoutMS < 0 {
		return errors.Newf("runtime.fetch_timeout_ms must be >= 0, got %d", c.Runtime.FetchTimeoutMS)
	}

	if c.UI.FPS <= 0 {
		return errors.Newf("ui.fps must be > 0, got %d", c.UI.FPS)
	}
	if c.UI.FollowFactor <= 0 || c.UI.FollowFactor > 1 {
		return errors.Newf("ui.follow_factor must be in (0, 1], got %g", c.UI.FollowFactor)
	}
	if c.UI.FollowGap < 0 {
		return errors.Newf("ui.follow_gap must be >= 0, got %g", c.UI.FollowGap)
	}
	if c.UI.ViewportWidth < 0 || c.UI.ViewportHeight < 0 {
		return errors.Newf("ui viewport must be non-negative, got %dx%d", c.UI.ViewportWidth, c.UI.ViewportHeight)
	}

	if c.Widget.Server != "" {
		if err := validateURL("widget.server", c.Widget.Server); err != nil {
			return err
		}
	}
	for i, src := range c.Runtime.Sources {
		if src.Repo == "" || src.Network == "" {
			return errors.WithHint(
				errors.Newf("runtime.sources[%d] needs both repo and network", i),
				"each source is a pair: { repo = \"...\", network = \"...\" }")
		}
		if err := validateURL("runtime.sources.repo", src.Repo); err != nil {
			return err
		}
		if err := validateURL("runtime.sources.network", src.Network); err != nil {
			return err
		}
	}

	return nil
}

func validateURL(key, raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return errors.Wrapf(err, "%s: malformed url %q", key, raw)
	}
	if u.Scheme == "" {
		return errors.Newf("%s: url %q has no scheme", key, raw)
	}
	return nil
}
