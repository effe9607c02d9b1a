package netmon

import "errors"

// Sentinel errors for netmon package operations.
// These errors enable reliable error classification using errors.Is().

var (
	// ErrStatsCollection indicates counters could not be read this tick.
	// The monitor logs it and skips the sample; it never reaches
	// subscribers.
	ErrStatsCollection = errors.New("stats collection failed")

	// ErrNoInboundVideo indicates the stats report contained no inbound
	// video stream to read counters from.
	ErrNoInboundVideo = errors.New("no inbound video stream in stats report")
)
