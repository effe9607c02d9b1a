package session

import "errors"

// Sentinel errors for session package operations.
// These errors enable reliable error classification using errors.Is().

// Local media acquisition errors.
var (
	// ErrPermissionDenied indicates camera or microphone access was
	// denied. User-recoverable; callers may surface a retry action.
	ErrPermissionDenied = errors.New("media permission denied")

	// ErrDeviceNotFound indicates no capture device is present.
	// Not retryable without a hardware change.
	ErrDeviceNotFound = errors.New("capture device not found")
)

// Lifecycle errors.
var (
	// ErrInitialization indicates a malformed credential or a transport
	// setup failure. Fatal to the current session attempt.
	ErrInitialization = errors.New("session initialization failed")

	// ErrInvalidState indicates an operation was called from a state
	// that does not permit it. This is a programmer error.
	ErrInvalidState = errors.New("invalid session state for operation")
)

// Connect errors. Both are recoverable; the caller may retry Connect
// after a fresh Initialize.
var (
	// ErrConnectTimeout indicates the connect attempt exceeded its
	// deadline before either transport signal arrived.
	ErrConnectTimeout = errors.New("connect timed out")

	// ErrConnectAborted indicates the transport disconnected before the
	// connect attempt succeeded.
	ErrConnectAborted = errors.New("connect aborted by disconnect")
)
