package backend

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrTransport marks failures reaching the backend at all (DNS, refused, timeout).
var ErrTransport = errors.New("backend: transport failure")

// StatusError reports a non-2xx response. Message is the backend's text, suitable for
// showing to an operator verbatim.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("backend: status %d: %s", e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("backend: status %d: %s", e.StatusCode, e.Message)
}

// IsTransportFailure reports whether err came from talking to the backend, either a
// network failure or a non-2xx response.
func IsTransportFailure(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrTransport) {
		return true
	}
	var statusErr *StatusError
	return errors.As(err, &statusErr)
}

// IsNotFound reports whether err is a 404 from the backend.
func IsNotFound(err error) bool {
	var statusErr *StatusError
	return errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusNotFound
}

// OperatorMessage returns the text to show an operator for err.
func OperatorMessage(err error) string {
	if err == nil {
		return ""
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) && statusErr.Message != "" {
		return statusErr.Message
	}
	return err.Error()
}
