package tracker

import (
	"errors"

	pkgerrors "github.com/pkg/errors"
)

// --------------------------------------------------------------------------------------------- //

// Sentinel errors returned by the public API. Wrap with pkg/errors at the call site so a caller
// can still recover the sentinel via errors.Is after unwrapping with errors.Cause.
var (
	// ErrUnsupportedScheme is returned by AddTorrent when the tracker URL is not a well-formed
	// udp:// URL: its scheme is anything other than "udp", or it has no host or a bad port.
	ErrUnsupportedScheme = errors.New("tracker: unsupported scheme (only udp:// is accepted)")

	// ErrClosed is returned by AddTorrent when it is called after the client's reactor has stopped.
	ErrClosed = errors.New("tracker: client is closed")
)

// --------------------------------------------------------------------------------------------- //

/*
wrapf wraps err with a formatted message using pkg/errors, preserving the original cause for
errors.Cause/errors.Is.
*/
func wrapf(err error, format string, args ...interface{}) error {
	return pkgerrors.Wrapf(err, format, args...)
}
