// Package session owns the connect/disconnect state machine for a live
// media session and mediates quality-preset changes against the remote
// endpoint.
//
// The controller is deliberately thin on participant logic: remote events
// are forwarded verbatim to the roster through a single dispatch point,
// and quality decisions are made elsewhere (the quality package) and
// merely executed here.
//
// The connect path is the one genuinely ambiguous part of the underlying
// transport contract: the transport's Connect call returning and its
// connected event firing are two independent signals, and either may win.
// The controller resolves the race through a single transition function
// consuming tagged events, guaranteeing exactly one resolution path and
// exactly one listener deregistration.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/opd-ai/sessionkit/quality"
	"github.com/opd-ai/sessionkit/roster"
)

// DefaultConnectTimeout bounds a connect attempt when the config does not
// override it.
const DefaultConnectTimeout = 25 * time.Second

// disconnectTimeout bounds the best-effort transport teardown.
const disconnectTimeout = 5 * time.Second

// connEvent is a tagged event consumed by the connect race's single
// transition function.
type connEvent int

const (
	connEventConnected connEvent = iota
	connEventDisconnected
	connEventTimeout
)

// ControllerConfig carries the tunables for a Controller.
type ControllerConfig struct {
	// ConnectTimeout bounds Connect; zero selects DefaultConnectTimeout.
	ConnectTimeout time.Duration

	// DefaultPreset selects the capture constraints used when acquiring
	// local media. Zero value is PresetAuto.
	DefaultPreset quality.Preset
}

// Controller owns the connection lifecycle of exactly one session.
//
// All state transitions happen entirely under the controller's mutex and
// are never observed half-applied. Callbacks are invoked outside the
// lock.
type Controller struct {
	mu sync.Mutex

	id        string
	sessionID string
	status    Status

	factory TransportFactory
	media   LocalMedia
	roster  *roster.Roster

	connectTimeout time.Duration
	defaultPreset  quality.Preset

	transport   Transport
	localTracks []Track

	// connectWaiter receives the first tagged event of an in-flight
	// connect race; nil when no attempt is in flight.
	connectWaiter chan connEvent

	// Preset renegotiation reentrancy guard: concurrent ApplyPreset
	// callers are coalesced, keeping only the latest requested preset.
	presetInFlight bool
	pendingPreset  *quality.Preset
	currentPreset  quality.Preset

	statusCb func(Status)
}

// NewController creates a session controller.
//
// The transport factory and roster are required; media may be nil for a
// receive-only session. A nil config selects defaults.
func NewController(factory TransportFactory, media LocalMedia, r *roster.Roster, cfg *ControllerConfig) (*Controller, error) {
	if factory == nil {
		return nil, fmt.Errorf("%w: transport factory cannot be nil", ErrInitialization)
	}
	if r == nil {
		return nil, fmt.Errorf("%w: roster cannot be nil", ErrInitialization)
	}
	if cfg == nil {
		cfg = &ControllerConfig{}
	}

	timeout := cfg.ConnectTimeout
	if timeout <= 0 {
		timeout = DefaultConnectTimeout
	}

	c := &Controller{
		id:             uuid.NewString(),
		status:         StatusUninitialized,
		factory:        factory,
		media:          media,
		roster:         r,
		connectTimeout: timeout,
		defaultPreset:  cfg.DefaultPreset,
		currentPreset:  cfg.DefaultPreset,
	}

	logrus.WithFields(logrus.Fields{
		"function":        "NewController",
		"controller_id":   c.id,
		"connect_timeout": timeout,
		"default_preset":  c.defaultPreset.String(),
	}).Info("Session controller created")

	return c, nil
}

// OnStatusChange registers a callback invoked on every status transition.
// The callback runs outside the controller's lock. Nil disables it.
func (c *Controller) OnStatusChange(cb func(Status)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.statusCb = cb
}

// Status returns the current lifecycle status.
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// SessionID returns the id of the session being joined, empty before
// Initialize.
func (c *Controller) SessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID
}

// CurrentPreset returns the last successfully applied preset.
func (c *Controller) CurrentPreset() quality.Preset {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.currentPreset
}

// Roster returns the roster this controller dispatches remote events to.
func (c *Controller) Roster() *roster.Roster {
	return c.roster
}

// Initialize allocates the underlying transport for the given session.
//
// Valid only in StatusUninitialized; calling it twice without a Reset in
// between is a programmer error (ErrInvalidState). A malformed credential
// or a factory failure yields ErrInitialization and leaves the controller
// in StatusFailed.
func (c *Controller) Initialize(sessionID, credential, displayName string) error {
	c.mu.Lock()

	if c.status != StatusUninitialized {
		status := c.status
		c.mu.Unlock()
		logrus.WithFields(logrus.Fields{
			"function": "Initialize",
			"status":   status.String(),
		}).Error("Initialize called outside uninitialized state")
		return fmt.Errorf("%w: initialize requires uninitialized, have %s", ErrInvalidState, status)
	}

	if sessionID == "" || credential == "" {
		notify := c.setStatusLocked(StatusFailed)
		c.mu.Unlock()
		notify()
		return fmt.Errorf("%w: session id and credential are required", ErrInitialization)
	}

	transport, err := c.factory.NewTransport(TransportConfig{
		SessionID:   sessionID,
		Credential:  credential,
		DisplayName: displayName,
	})
	if err != nil {
		notify := c.setStatusLocked(StatusFailed)
		c.mu.Unlock()
		notify()
		logrus.WithFields(logrus.Fields{
			"function":   "Initialize",
			"session_id": sessionID,
			"error":      err.Error(),
		}).Error("Transport allocation failed")
		return fmt.Errorf("%w: %v", ErrInitialization, err)
	}

	c.transport = transport
	c.sessionID = sessionID
	transport.SetEventHandler(c.dispatchEvent)
	c.roster.SetLocal(displayName)

	notify := c.setStatusLocked(StatusInitializing)
	c.mu.Unlock()
	notify()

	logrus.WithFields(logrus.Fields{
		"function":      "Initialize",
		"controller_id": c.id,
		"session_id":    sessionID,
	}).Info("Session initialized")

	return nil
}

// Connect runs the connect attempt against the transport.
//
// Internally this is a race between two independent signals: the
// transport's Connect call returning, and a connected event arriving on
// the event stream. The first tagged event to reach resolveConnect wins;
// a disconnected event before any successful connect rejects with
// ErrConnectAborted, and the deadline rejects with ErrConnectTimeout.
// Whatever the outcome, the race's listener is deregistered exactly once.
func (c *Controller) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.status != StatusInitializing {
		status := c.status
		c.mu.Unlock()
		return fmt.Errorf("%w: connect requires initializing, have %s", ErrInvalidState, status)
	}

	transport := c.transport
	timeout := c.connectTimeout
	waiter := make(chan connEvent, 2)
	c.connectWaiter = waiter
	notify := c.setStatusLocked(StatusConnecting)
	c.mu.Unlock()
	notify()

	// The dial inherits a context that dies with the race: once any
	// branch settles, an in-flight transport call is abandoned rather
	// than left running against the caller's (possibly background)
	// context.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Deregistered exactly once no matter which branch wins below.
	var once sync.Once
	deregister := func() {
		once.Do(func() {
			c.mu.Lock()
			if c.connectWaiter == waiter {
				c.connectWaiter = nil
			}
			c.mu.Unlock()
		})
	}
	defer deregister()

	tracks, err := c.acquireLocalMedia(ctx)
	if err != nil {
		c.mu.Lock()
		failNotify := c.setStatusLocked(StatusFailed)
		c.mu.Unlock()
		failNotify()
		return err
	}

	errCh := make(chan error, 1)
	go func() { errCh <- transport.Connect(ctx) }()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		select {
		case ev := <-waiter:
			if err := c.resolveConnect(ev); err != nil {
				return err
			}
			c.publishLocalTracks(transport, tracks)
			return nil

		case err := <-errCh:
			if err != nil {
				logrus.WithFields(logrus.Fields{
					"function": "Connect",
					"error":    err.Error(),
				}).Warn("Transport connect call failed")
				return c.resolveConnect(connEventDisconnected)
			}
			// The call resolved first. If the transport already reports
			// connected, that settles the race; otherwise keep waiting
			// for the event.
			if transport.State() == TransportConnected {
				if err := c.resolveConnect(connEventConnected); err != nil {
					return err
				}
				c.publishLocalTracks(transport, tracks)
				return nil
			}
			errCh = nil

		case <-timer.C:
			return c.resolveConnect(connEventTimeout)

		case <-ctx.Done():
			// An abandoned attempt still settles: resources are
			// released through the same single path.
			return c.resolveConnect(connEventTimeout)
		}
	}
}

// resolveConnect is the single transition function of the connect race.
// Exactly one call settles a given attempt; the mapping from tagged event
// to outcome is total.
func (c *Controller) resolveConnect(ev connEvent) error {
	c.mu.Lock()

	var notify func()
	var err error
	switch ev {
	case connEventConnected:
		notify = c.setStatusLocked(StatusConnected)
	case connEventDisconnected:
		notify = c.setStatusLocked(StatusFailed)
		err = ErrConnectAborted
	default:
		notify = c.setStatusLocked(StatusFailed)
		err = ErrConnectTimeout
	}

	c.mu.Unlock()
	notify()

	logrus.WithFields(logrus.Fields{
		"function":      "resolveConnect",
		"controller_id": c.id,
		"event":         int(ev),
		"status":        c.Status().String(),
	}).Debug("Connect race resolved")

	return err
}

// acquireLocalMedia captures local tracks using the default preset's
// constraints. Nil media means a receive-only session.
func (c *Controller) acquireLocalMedia(ctx context.Context) ([]Track, error) {
	if c.media == nil {
		return nil, nil
	}

	tracks, err := c.media.AcquireTracks(ctx, quality.Lookup(c.defaultPreset))
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "acquireLocalMedia",
			"error":    err.Error(),
		}).Error("Local media acquisition failed")
		return nil, fmt.Errorf("acquiring local media: %w", err)
	}

	c.mu.Lock()
	c.localTracks = tracks
	c.mu.Unlock()

	logrus.WithFields(logrus.Fields{
		"function":    "acquireLocalMedia",
		"track_count": len(tracks),
	}).Debug("Local media acquired")

	return tracks, nil
}

// publishLocalTracks publishes the acquired tracks after a successful
// connect. Publish failures degrade to a logged warning; the session
// itself stays up.
func (c *Controller) publishLocalTracks(transport Transport, tracks []Track) {
	if len(tracks) == 0 {
		return
	}
	if err := transport.AddStream("camera", tracks); err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "publishLocalTracks",
			"error":    err.Error(),
		}).Warn("Publishing local tracks failed")
	}
}

// Disconnect tears the session down: local tracks stopped, transport torn
// down, listeners cleared. Best-effort by design; transport errors are
// swallowed and logged, never re-thrown, and calling Disconnect again is
// always safe.
func (c *Controller) Disconnect() {
	c.mu.Lock()
	transport := c.transport
	tracks := c.localTracks
	c.transport = nil
	c.localTracks = nil
	c.connectWaiter = nil
	c.pendingPreset = nil
	c.presetInFlight = false
	notify := c.setStatusLocked(StatusDisconnected)
	c.mu.Unlock()

	for _, track := range tracks {
		track.Stop()
	}

	if transport != nil {
		transport.SetEventHandler(nil)

		ctx, cancel := context.WithTimeout(context.Background(), disconnectTimeout)
		defer cancel()
		if err := transport.Disconnect(ctx); err != nil {
			logrus.WithFields(logrus.Fields{
				"function": "Disconnect",
				"error":    err.Error(),
			}).Warn("Transport teardown failed, continuing")
		}
	}

	c.roster.Clear()
	notify()

	logrus.WithFields(logrus.Fields{
		"function":      "Disconnect",
		"controller_id": c.id,
	}).Info("Session disconnected")
}

// Reset returns a terminal controller to StatusUninitialized so a fresh
// Initialize can run. Calling it from a non-terminal state is a
// programmer error.
func (c *Controller) Reset() error {
	c.mu.Lock()

	if !c.status.terminal() && c.status != StatusUninitialized {
		status := c.status
		c.mu.Unlock()
		return fmt.Errorf("%w: reset requires a terminal state, have %s", ErrInvalidState, status)
	}

	transport := c.transport
	tracks := c.localTracks
	c.transport = nil
	c.localTracks = nil
	c.sessionID = ""
	c.connectWaiter = nil
	c.pendingPreset = nil
	c.presetInFlight = false
	c.currentPreset = c.defaultPreset
	notify := c.setStatusLocked(StatusUninitialized)
	c.mu.Unlock()

	// A failed attempt can still hold capture devices and a transport;
	// resetting releases them the same way Disconnect does.
	for _, track := range tracks {
		track.Stop()
	}
	if transport != nil {
		transport.SetEventHandler(nil)

		ctx, cancel := context.WithTimeout(context.Background(), disconnectTimeout)
		defer cancel()
		if err := transport.Disconnect(ctx); err != nil {
			logrus.WithFields(logrus.Fields{
				"function": "Reset",
				"error":    err.Error(),
			}).Warn("Transport teardown failed, continuing")
		}
	}

	notify()

	return nil
}

// ApplyPreset requests replacement of the outgoing video constraints.
//
// No-op unless the session is connected. A call arriving while a
// renegotiation is already in flight does not start another one; it
// records the latest requested preset and exactly one follow-up
// renegotiation runs with it once the current one completes. Intermediate
// requests are discarded, not queued.
func (c *Controller) ApplyPreset(p quality.Preset) error {
	c.mu.Lock()

	if c.status != StatusConnected {
		status := c.status
		c.mu.Unlock()
		logrus.WithFields(logrus.Fields{
			"function": "ApplyPreset",
			"preset":   p.String(),
			"status":   status.String(),
		}).Debug("Ignoring preset request outside connected state")
		return nil
	}

	if c.presetInFlight {
		c.pendingPreset = &p
		c.mu.Unlock()
		logrus.WithFields(logrus.Fields{
			"function": "ApplyPreset",
			"preset":   p.String(),
		}).Debug("Renegotiation in flight, coalescing preset request")
		return nil
	}

	c.presetInFlight = true
	transport := c.transport
	c.mu.Unlock()

	return c.renegotiate(transport, p)
}

// renegotiate applies the preset's constraints and then drains at most one
// coalesced follow-up request, always using the latest preset.
func (c *Controller) renegotiate(transport Transport, p quality.Preset) error {
	for {
		logrus.WithFields(logrus.Fields{
			"function": "renegotiate",
			"preset":   p.String(),
		}).Info("Requesting video constraint renegotiation")

		err := transport.ReplaceVideoConstraints(quality.Lookup(p))

		c.mu.Lock()
		if err == nil {
			c.currentPreset = p
		}
		if next := c.pendingPreset; err == nil && next != nil && c.status == StatusConnected {
			p = *next
			c.pendingPreset = nil
			c.mu.Unlock()
			continue
		}
		c.pendingPreset = nil
		c.presetInFlight = false
		c.mu.Unlock()

		if err != nil {
			return fmt.Errorf("replacing video constraints: %w", err)
		}
		return nil
	}
}

// Subscribe requests a remote participant's stream at the given preset.
// Valid only while connected.
func (c *Controller) Subscribe(participantID, streamKey string, preset quality.Preset) error {
	c.mu.Lock()
	if c.status != StatusConnected {
		status := c.status
		c.mu.Unlock()
		return fmt.Errorf("%w: subscribe requires connected, have %s", ErrInvalidState, status)
	}
	transport := c.transport
	c.mu.Unlock()

	logrus.WithFields(logrus.Fields{
		"function":       "Subscribe",
		"participant_id": participantID,
		"stream_key":     streamKey,
		"preset":         preset.String(),
	}).Debug("Subscribing to remote stream")

	return transport.AddSubscription(participantID, streamKey, SubscribeOptions{Preset: preset})
}

// dispatchEvent is the single point through which every remote event
// flows. Participant events are forwarded verbatim to the roster; the
// controller keeps no participant business logic of its own.
func (c *Controller) dispatchEvent(ev Event) {
	switch ev.Type {
	case EventConnected:
		c.mu.Lock()
		if w := c.connectWaiter; w != nil {
			select {
			case w <- connEventConnected:
			default:
			}
		}
		notify := func() {}
		if c.status == StatusReconnecting {
			notify = c.setStatusLocked(StatusConnected)
		}
		c.mu.Unlock()
		notify()

	case EventDisconnected:
		c.mu.Lock()
		if w := c.connectWaiter; w != nil {
			select {
			case w <- connEventDisconnected:
			default:
			}
		}
		notify := func() {}
		if c.status == StatusConnected {
			// Expose the reconnecting hook; retrying is the caller's
			// decision, never this controller's.
			notify = c.setStatusLocked(StatusReconnecting)
		}
		c.mu.Unlock()
		notify()

	case EventParticipantJoined:
		c.roster.Join(ev.Participant)

	case EventParticipantLeft:
		c.roster.Leave(ev.ParticipantID)

	case EventParticipantUpdated:
		update := ev.Participant
		c.roster.Update(update.ID, func(p *roster.Participant) {
			p.DisplayName = update.DisplayName
			p.IsHost = update.IsHost
			p.IsSpeaking = update.IsSpeaking
			p.IsVideoOff = update.IsVideoOff
			p.IsScreenSharing = update.IsScreenSharing
			p.IsHandRaised = update.IsHandRaised
		})

	case EventStreamPublished:
		c.roster.SetStreamPublished(ev.ParticipantID, ev.StreamKey, true)

	case EventStreamUnpublished:
		c.roster.SetStreamPublished(ev.ParticipantID, ev.StreamKey, false)
	}
}

// setStatusLocked records a transition and returns the callback to invoke
// once the lock is released. Must be called with the mutex held.
func (c *Controller) setStatusLocked(s Status) func() {
	if c.status == s {
		return func() {}
	}

	old := c.status
	c.status = s

	logrus.WithFields(logrus.Fields{
		"function":      "setStatusLocked",
		"controller_id": c.id,
		"old_status":    old.String(),
		"new_status":    s.String(),
	}).Debug("Session status changed")

	cb := c.statusCb
	if cb == nil {
		return func() {}
	}
	return func() { cb(s) }
}
