package query

import (
	"errors"
)

// ErrInvalidMethod is returned for a method selector other than exhaustive
// or vp_tree.
var ErrInvalidMethod = errors.New("invalid method")

// ClientError marks a failure caused by the request rather than the service.
// A transport layer maps it to a 4xx response.
type ClientError struct {
	Err error
}

func (e *ClientError) Error() string { return e.Err.Error() }

func (e *ClientError) Unwrap() error { return e.Err }

func clientError(err error) error { return &ClientError{Err: err} }

// IsClientError reports whether err was caused by the request.
func IsClientError(err error) bool {
	var ce *ClientError
	return errors.As(err, &ce)
}
