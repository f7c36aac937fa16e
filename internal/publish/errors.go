package publish

import "errors"

var (
	// ErrWriterFailure marks a batch aborted because an output could not be
	// written or removed. The batch's requests stay pending.
	ErrWriterFailure = errors.New("writer failure")
	// ErrRenderFailure marks a batch aborted because the renderer failed or
	// returned an incomplete page set. The batch's requests stay pending.
	ErrRenderFailure = errors.New("render failure")
)

// Recoverable reports whether err leaves the queue intact and the daemon may
// retry after a backoff.
func Recoverable(err error) bool {
	return errors.Is(err, ErrWriterFailure) || errors.Is(err, ErrRenderFailure)
}
