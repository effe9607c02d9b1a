// Package sessionkit is a client-side controller for real-time media
// sessions: it owns the connect/disconnect lifecycle, samples network
// statistics, classifies connection quality, maps quality to video
// capture presets, and derives participant render ordering for a UI.
//
// The Client type ties the pieces together for the common case; each
// underlying package (session, netmon, quality, roster) is usable on its
// own for callers that need finer control.
package sessionkit

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/sessionkit/config"
	"github.com/opd-ai/sessionkit/netmon"
	"github.com/opd-ai/sessionkit/quality"
	"github.com/opd-ai/sessionkit/roster"
	"github.com/opd-ai/sessionkit/session"
	"github.com/opd-ai/sessionkit/wstransport"
)

// Options configures a Client. Config and Factory have defaults; the
// rest are optional collaborators.
type Options struct {
	// Config supplies tunables; nil selects config.Default().
	Config *config.Config

	// Factory allocates the session transport. Nil builds a websocket
	// transport from Config.SignalingURL; one of the two must be set.
	Factory session.TransportFactory

	// Media acquires local capture tracks. Nil means a receive-only
	// session.
	Media session.LocalMedia

	// Stats exposes the live transport's counters to the network
	// monitor. Nil keeps the monitor on its fallback estimate.
	Stats netmon.StatsSource

	// Hint feeds the fallback estimate used while no stats source is
	// attached.
	Hint netmon.HintFunc
}

// Client is the top-level facade: one Client per session attempt
// lifecycle, reusable across attempts via Reset.
type Client struct {
	cfg         *config.Config
	controller  *session.Controller
	monitor     *netmon.Monitor
	roster      *roster.Roster
	prioritizer *roster.Prioritizer
	stats       netmon.StatsSource

	mu          sync.Mutex
	tierCb      func(quality.Tier, quality.Metrics)
	hasTier     bool
	lastTier    quality.Tier
	autoAdapt   bool
	hasApplied  bool
	lastApplied quality.Preset
	unsubscribe func()
}

// New builds a Client from the given options.
func New(opts Options) (*Client, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	cfg.ConfigureLogging()

	preset, err := quality.ParsePreset(cfg.DefaultPreset)
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	factory := opts.Factory
	if factory == nil {
		if cfg.SignalingURL == "" {
			return nil, errors.New("either a transport factory or a signaling URL is required")
		}
		factory = &wstransport.Factory{URL: cfg.SignalingURL}
	}

	r := roster.New()
	controller, err := session.NewController(factory, opts.Media, r, &session.ControllerConfig{
		ConnectTimeout: cfg.ConnectTimeout,
		DefaultPreset:  preset,
	})
	if err != nil {
		return nil, err
	}

	c := &Client{
		cfg:         cfg,
		controller:  controller,
		monitor:     netmon.NewMonitor(cfg.SampleInterval, opts.Hint),
		roster:      r,
		prioritizer: roster.NewPrioritizer(),
		stats:       opts.Stats,
		autoAdapt:   preset == quality.PresetAuto,
	}

	logrus.WithFields(logrus.Fields{
		"function":       "New",
		"default_preset": preset.String(),
		"auto_adapt":     c.autoAdapt,
	}).Info("Session client created")

	return c, nil
}

// Join runs the full join sequence: initialize the transport, connect,
// then start quality monitoring against the live session.
func (c *Client) Join(ctx context.Context, sessionID, credential, displayName string) error {
	if err := c.controller.Initialize(sessionID, credential, displayName); err != nil {
		return err
	}
	if err := c.controller.Connect(ctx); err != nil {
		return err
	}

	if c.stats != nil {
		c.monitor.AttachSource(c.stats)
	}

	c.mu.Lock()
	if c.unsubscribe == nil {
		c.unsubscribe = c.monitor.Subscribe(c.onSample)
	}
	c.mu.Unlock()

	c.monitor.Start()

	logrus.WithFields(logrus.Fields{
		"function":   "Join",
		"session_id": sessionID,
	}).Info("Session joined")

	return nil
}

// Leave stops monitoring and tears the session down. Best-effort and
// always safe to call.
func (c *Client) Leave() {
	c.monitor.Stop()
	c.monitor.DetachSource()

	c.mu.Lock()
	if c.unsubscribe != nil {
		c.unsubscribe()
		c.unsubscribe = nil
	}
	c.hasTier = false
	c.hasApplied = false
	c.mu.Unlock()

	c.controller.Disconnect()
}

// Reset prepares the client for a fresh Join after a terminal state.
func (c *Client) Reset() error {
	if err := c.controller.Reset(); err != nil {
		return err
	}

	c.mu.Lock()
	c.hasTier = false
	c.hasApplied = false
	c.mu.Unlock()

	return nil
}

// Status returns the session lifecycle status.
func (c *Client) Status() session.Status {
	return c.controller.Status()
}

// OnStatus registers a session status callback.
func (c *Client) OnStatus(cb func(session.Status)) {
	c.controller.OnStatusChange(cb)
}

// OnTier registers a callback invoked whenever the classified quality
// tier changes. The callback also receives the metrics that produced the
// tier.
func (c *Client) OnTier(cb func(quality.Tier, quality.Metrics)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tierCb = cb
}

// SetPreset selects the outgoing video preset. PresetAuto re-enables
// recommendation-driven adaptation; any fixed preset disables it and is
// applied immediately.
func (c *Client) SetPreset(p quality.Preset) error {
	c.mu.Lock()
	c.autoAdapt = p == quality.PresetAuto
	c.hasApplied = false
	c.mu.Unlock()

	if p == quality.PresetAuto {
		return nil
	}
	return c.controller.ApplyPreset(p)
}

// Participants returns a point-in-time copy of the roster.
func (c *Client) Participants() []roster.Participant {
	return c.roster.Snapshot()
}

// View derives the current render ordering from the roster and UI
// intent.
func (c *Client) View() roster.View {
	return c.prioritizer.View(c.roster.Snapshot())
}

// Pin fixes a participant as the primary rendered subject; empty clears.
func (c *Client) Pin(id string) {
	c.prioritizer.Pin(id)
}

// SetLayout selects the render layout mode.
func (c *Client) SetLayout(l roster.Layout) {
	c.prioritizer.SetLayout(l)
}

// Watch subscribes to a remote participant's stream at the current
// outgoing preset's quality level.
func (c *Client) Watch(participantID, streamKey string) error {
	return c.controller.Subscribe(participantID, streamKey, c.controller.CurrentPreset())
}

// Monitor exposes the network monitor for callers that want raw samples.
func (c *Client) Monitor() *netmon.Monitor {
	return c.monitor
}

// onSample is the single consumer of monitor samples: it classifies the
// tier, notifies the tier callback on change, and when auto adaptation
// is active applies the recommended preset.
func (c *Client) onSample(s netmon.Sample) {
	// The delta-suppressed first reading after a source attach has no
	// bandwidth figure; classifying it would flash a spurious low tier
	// at session start. Fallback estimates always carry throughput.
	if !s.HasThroughput {
		return
	}

	metrics := s.Metrics()
	tier := quality.Classify(metrics)

	c.mu.Lock()
	var tierNotify func()
	if !c.hasTier || tier != c.lastTier {
		c.hasTier = true
		c.lastTier = tier
		if cb := c.tierCb; cb != nil {
			tierNotify = func() { cb(tier, metrics) }
		}
	}
	autoAdapt := c.autoAdapt
	c.mu.Unlock()

	if tierNotify != nil {
		tierNotify()
	}

	if !autoAdapt {
		return
	}
	if c.controller.Status() != session.StatusConnected {
		return
	}

	recommended := quality.RecommendPreset(metrics)

	c.mu.Lock()
	changed := !c.hasApplied || recommended != c.lastApplied
	if changed {
		c.hasApplied = true
		c.lastApplied = recommended
	}
	c.mu.Unlock()

	if !changed {
		return
	}

	logrus.WithFields(logrus.Fields{
		"function": "onSample",
		"tier":     tier.String(),
		"preset":   recommended.String(),
	}).Info("Applying recommended preset")

	if err := c.controller.ApplyPreset(recommended); err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "onSample",
			"error":    err.Error(),
		}).Warn("Preset application failed")
	}
}
