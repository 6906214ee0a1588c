package diskxfer

import "errors"

// Sentinel errors returned from the core. Callers compare with errors.Is.
var (
	// ErrProtocolViolation is returned when the sender FSM would have to
	// skip an unread block or re-absorb an already-hashed block into MD5.
	ErrProtocolViolation = errors.New("diskxfer: protocol violation")

	// ErrAborted is returned when a transfer ends because the caller
	// requested cancellation (context cancellation or keyboard abort).
	ErrAborted = errors.New("diskxfer: transfer aborted")

	// ErrDeviceGeometry is returned when the configured geometry is not
	// fully specified or cannot address the requested start sector.
	ErrDeviceGeometry = errors.New("diskxfer: invalid device geometry")

	// ErrBadBaud is returned when a baud rate outside the fixed
	// enumeration in SupportedBauds is requested.
	ErrBadBaud = errors.New("diskxfer: unsupported baud rate")

	// ErrHandshakeTimeout is returned when the sender never observes the
	// receiver's start token within handshakeTimeout.
	ErrHandshakeTimeout = errors.New("diskxfer: handshake timeout waiting for start token")

	// ErrShortWrite is returned by writeAll when a Serial's WriteBytes
	// accepts zero bytes without reporting an error.
	ErrShortWrite = errors.New("diskxfer: short write to serial")
)
