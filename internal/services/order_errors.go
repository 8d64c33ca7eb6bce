package services

import "errors"

// ErrUnauthenticated is returned when an operation runs without a resolved
// user identity. The authentication middleware should make this unreachable
// for HTTP callers.
var ErrUnauthenticated = errors.New("user not authenticated")

// InvalidRequestError is returned when an order request is structurally
// unusable: empty cart, missing sections, or inconsistent totals. The message
// is safe to show to the client.
type InvalidRequestError struct {
	Message string
}

func (e *InvalidRequestError) Error() string {
	return e.Message
}
