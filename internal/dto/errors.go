package dto

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound            = errors.New("errRecordNotFound")
	ErrAuthExpired         = errors.New("errSessionExpired")
	ErrEndpointUnavailable = errors.New("errEndpointUnavailable")
)

// ValidationError marks malformed input that no amount of retrying can fix,
// e.g. an unparseable pay rate.
type ValidationError struct {
	Field  string
	Value  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid value in field '%s'=%s: %s", e.Field, e.Value, e.Reason)
}

// TransientHTTPError carries the last non-2xx response after retries are
// exhausted.
type TransientHTTPError struct {
	Status int
	Body   string
}

func (e *TransientHTTPError) Error() string {
	return fmt.Sprintf("%d %s", e.Status, e.Body)
}
