package session

import (
	"context"

	"github.com/opd-ai/sessionkit/quality"
)

// Track is one local capture track held by the controller for the lifetime
// of the session. Stop releases the underlying device; it must be safe to
// call more than once.
type Track interface {
	ID() string
	Kind() string // "audio" or "video"
	Stop()
}

// LocalMedia acquires local capture tracks. Implementations wrap the
// platform's media-device surface; failures are classified with
// ErrPermissionDenied and ErrDeviceNotFound.
type LocalMedia interface {
	AcquireTracks(ctx context.Context, c quality.Constraints) ([]Track, error)
}
