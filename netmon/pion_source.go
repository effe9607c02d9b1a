package netmon

import (
	"context"
	"fmt"
	"time"

	"github.com/pion/webrtc/v3"
	"github.com/sirupsen/logrus"
)

// StatsGetter is the slice of *webrtc.PeerConnection the source needs,
// split out so tests can substitute a canned report.
type StatsGetter interface {
	GetStats() webrtc.StatsReport
}

// PeerConnectionSource reads raw counters from a pion peer connection's
// statistics report. It aggregates the inbound video RTP streams for
// byte, packet, loss, and jitter counters and takes the round-trip time
// from the succeeded ICE candidate pair.
type PeerConnectionSource struct {
	pc           StatsGetter
	timeProvider TimeProvider
}

// NewPeerConnectionSource creates a stats source over the given peer
// connection.
func NewPeerConnectionSource(pc StatsGetter) *PeerConnectionSource {
	return &PeerConnectionSource{
		pc:           pc,
		timeProvider: DefaultTimeProvider{},
	}
}

// SetTimeProvider sets the time provider for deterministic testing.
func (s *PeerConnectionSource) SetTimeProvider(tp TimeProvider) {
	if tp == nil {
		tp = DefaultTimeProvider{}
	}
	s.timeProvider = tp
}

// ReadCounters implements StatsSource.
func (s *PeerConnectionSource) ReadCounters(ctx context.Context) (RawCounters, error) {
	if err := ctx.Err(); err != nil {
		return RawCounters{}, fmt.Errorf("%w: %v", ErrStatsCollection, err)
	}
	if s.pc == nil {
		return RawCounters{}, fmt.Errorf("%w: no peer connection", ErrStatsCollection)
	}

	report := s.pc.GetStats()

	counters := RawCounters{Timestamp: s.timeProvider.Now()}
	foundVideo := false

	for _, stat := range report {
		switch v := stat.(type) {
		case webrtc.InboundRTPStreamStats:
			if v.Kind != "video" {
				continue
			}
			foundVideo = true
			counters.BytesReceived += v.BytesReceived
			counters.PacketsReceived += uint64(v.PacketsReceived)
			if v.PacketsLost > 0 {
				counters.PacketsLost += uint64(v.PacketsLost)
			}
			// Jitter arrives in seconds.
			counters.Jitter = time.Duration(v.Jitter * float64(time.Second))

		case webrtc.ICECandidatePairStats:
			if v.State != webrtc.StatsICECandidatePairStateSucceeded {
				continue
			}
			counters.RoundTripTime = time.Duration(v.CurrentRoundTripTime * float64(time.Second))
		}
	}

	if !foundVideo {
		return RawCounters{}, fmt.Errorf("%w: %w", ErrStatsCollection, ErrNoInboundVideo)
	}

	if logrus.IsLevelEnabled(logrus.TraceLevel) {
		logrus.WithFields(logrus.Fields{
			"function":         "ReadCounters",
			"bytes_received":   counters.BytesReceived,
			"packets_received": counters.PacketsReceived,
			"packets_lost":     counters.PacketsLost,
			"rtt_ms":           counters.RoundTripTime.Milliseconds(),
		}).Trace("Read peer connection counters")
	}

	return counters, nil
}
