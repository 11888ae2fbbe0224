package coordinator

import "errors"

var (
	// ErrNotReady is returned by Start when the first refresh cycle fails.
	// The host is expected to retry initialization later.
	ErrNotReady = errors.New("device is not ready")

	// ErrUpdateFailed wraps any error that fails a refresh cycle. The
	// previous snapshot is left untouched and the next scheduled cycle
	// retries.
	ErrUpdateFailed = errors.New("update failed")
)
