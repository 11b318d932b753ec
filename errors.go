package hrclient

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrNetwork matches request failures where no HTTP response was received.
	ErrNetwork = errors.New("network error")
	// ErrClientError matches non-2xx responses below 500 that were not handled by the refresh protocol.
	ErrClientError = errors.New("client error")
	// ErrServerError matches 5xx responses.
	ErrServerError = errors.New("server error")
	// ErrAuthExpired matches requests that could not be authorized, either because the
	// refresh failed or because the replay was rejected again. Callers should send the
	// user back through sign-in.
	ErrAuthExpired = errors.New("authentication expired")
	// ErrRefreshNoToken is the refresh failure cause when the backend answered 2xx
	// without an access token.
	ErrRefreshNoToken = errors.New("no access token in refresh response")
	// ErrNoProfile is returned by LoadProfile when no profile has been cached.
	ErrNoProfile = errors.New("no cached profile")
	// ErrInvalidRequest is returned by Do for requests that cannot be encoded.
	ErrInvalidRequest = errors.New("invalid request")
)

// ErrorKind classifies a RequestError.
type ErrorKind int

const (
	// KindNetwork is a transport failure: DNS, connection, timeout or cancellation.
	KindNetwork ErrorKind = iota + 1
	// KindClientError is a 4xx (or other non-2xx, non-5xx) response.
	KindClientError
	// KindServerError is a 5xx response.
	KindServerError
	// KindAuthExpired means re-authentication is required.
	KindAuthExpired
)

func (k ErrorKind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindClientError:
		return "client_error"
	case KindServerError:
		return "server_error"
	case KindAuthExpired:
		return "auth_expired"
	default:
		return "unknown"
	}
}

func (k ErrorKind) sentinel() error {
	switch k {
	case KindNetwork:
		return ErrNetwork
	case KindClientError:
		return ErrClientError
	case KindServerError:
		return ErrServerError
	case KindAuthExpired:
		return ErrAuthExpired
	default:
		return nil
	}
}

// RequestError is the error type returned by Client.Do and the helpers built on it.
//
// Status and Body are populated whenever the backend answered. Message is the
// backend's human readable reason (the "message" or "detail" field of the JSON
// body) when one could be extracted. Err carries the underlying cause: the
// transport error for KindNetwork, the refresh failure for KindAuthExpired.
type RequestError struct {
	Kind    ErrorKind
	Status  int
	Body    []byte
	Message string
	Method  string
	Path    string
	Err     error
}

func (e *RequestError) Error() string {
	if e == nil {
		return "<nil>"
	}

	prefix := fmt.Sprintf("hrclient: %s %s", e.Method, e.Path)
	switch {
	case e.Kind == KindAuthExpired && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", prefix, ErrAuthExpired, e.Err)
	case e.Kind == KindAuthExpired:
		return fmt.Sprintf("%s: %s", prefix, ErrAuthExpired)
	case e.Kind == KindNetwork:
		return fmt.Sprintf("%s: %s: %v", prefix, ErrNetwork, e.Err)
	}

	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.Status)
	}
	return fmt.Sprintf("%s: %d %s", prefix, e.Status, msg)
}

func (e *RequestError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is lets errors.Is match a RequestError against the Err* kind sentinels.
func (e *RequestError) Is(target error) bool {
	if e == nil {
		return false
	}
	s := e.Kind.sentinel()
	return s != nil && target == s
}

// KindOf returns the kind of the first RequestError in err's chain.
func KindOf(err error) (ErrorKind, bool) {
	var reqErr *RequestError
	if !errors.As(err, &reqErr) {
		return 0, false
	}
	return reqErr.Kind, true
}

// StatusOf returns the HTTP status carried by err, or 0.
func StatusOf(err error) int {
	var reqErr *RequestError
	if !errors.As(err, &reqErr) {
		return 0
	}
	return reqErr.Status
}

// IsAuthExpired reports whether err requires the user to sign in again.
func IsAuthExpired(err error) bool {
	return errors.Is(err, ErrAuthExpired)
}

// IsNotFound reports whether err is a 404 response.
func IsNotFound(err error) bool {
	return StatusOf(err) == http.StatusNotFound
}
