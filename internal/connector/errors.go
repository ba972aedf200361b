package connector

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/crimson-sun/standup/internal/connector/httpclient"
)

var (
	// ErrUnavailable marks a source whose backend (file system, API, binary) cannot be reached.
	ErrUnavailable = errors.New("source unavailable")

	// ErrAuth marks a source that rejected the configured credentials.
	ErrAuth = errors.New("source authentication failed")

	// ErrDisabled is returned by constructors whose connector is not configured.
	ErrDisabled = errors.New("connector disabled")
)

// SourceError wraps a connector failure with its kind.
type SourceError struct {
	Connector string
	Kind      error // ErrUnavailable or ErrAuth
	Err       error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("%s connector: %v: %v", e.Connector, e.Kind, e.Err)
}

func (e *SourceError) Unwrap() []error {
	return []error{e.Kind, e.Err}
}

// Unavailable wraps err as an ErrUnavailable failure of the named connector.
func Unavailable(name string, err error) error {
	return &SourceError{Connector: name, Kind: ErrUnavailable, Err: err}
}

// Auth wraps err as an ErrAuth failure of the named connector.
func Auth(name string, err error) error {
	return &SourceError{Connector: name, Kind: ErrAuth, Err: err}
}

// FromHTTP classifies an error returned by httpclient.
// 401 and 403 become ErrAuth; everything else, transport errors included, ErrUnavailable.
// Context cancellation passes through untouched.
func FromHTTP(name string, err error) error {
	if err == nil {
		return nil
	}
	if isContextErr(err) {
		return err
	}
	var apiErr *httpclient.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return Auth(name, err)
		}
	}
	return Unavailable(name, err)
}

func isContextErr(err error) bool {
	return errors.Is(err, context.Canceled)
}

// Disabled wraps ErrDisabled with the reason the connector is inert.
func Disabled(name, reason string) error {
	return fmt.Errorf("%s connector: %w: %s", name, ErrDisabled, reason)
}
