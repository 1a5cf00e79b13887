package democlient

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by Run.
var (
	ErrUnhealthy = errors.New("service is not healthy")
	ErrMismatch  = errors.New("server results differ from local aggregation")
	ErrFailed    = errors.New("demo sessions failed")
)

// APIError is a non-2xx response decoded from the service error body.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%d %s: %s", e.Status, e.Code, e.Message)
}
