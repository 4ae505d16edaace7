package backend

import (
	"errors"
	"fmt"
)

// Sentinel errors every gateway caller switches on. Together with
// DomainError and TransportError they form the exhaustive outcome shape
// of a gateway call: success, ErrAuthRequired, ErrAuthRejected,
// DomainError, TransportError.
var (
	// ErrAuthRequired means no valid credential was available; the call
	// was never attempted.
	ErrAuthRequired = errors.New("authentication required")

	// ErrAuthRejected means the backend refused the presented credential.
	// The session layer logs the user out before this surfaces.
	ErrAuthRejected = errors.New("authorization rejected by backend")
)

// DomainError is a business failure the backend reported with a non-2xx
// status. Message is passed through to the user verbatim when present.
type DomainError struct {
	Status  int
	Message string
}

func (e *DomainError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("backend returned status %d", e.Status)
}

// TransportError is a network failure, timeout, or malformed response.
// Full detail is for logs only; users get a generic try-again message.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// AsDomainError returns the DomainError in err's chain, if any.
func AsDomainError(err error) (*DomainError, bool) {
	var de *DomainError
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}

// IsTransportError reports whether err's chain contains a TransportError.
func IsTransportError(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}
