package dahua

import (
	"errors"
	"fmt"
)

var (
	ErrDeviceError   = errors.New("device returned error response")
	ErrReaderStopped = errors.New("event reader stopped")
)

// APIError is returned for transport-level failures against the device CGI
// API. Probe call sites match on it with errors.As to swallow expected
// failures on unsupported endpoints.
type APIError struct {
	Endpoint   string
	StatusCode int
}

func (e *APIError) Error() string {
	return fmt.Sprintf("device API request failed: endpoint=%s status=%d", e.Endpoint, e.StatusCode)
}
