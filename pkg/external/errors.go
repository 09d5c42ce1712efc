package external

import (
	"errors"
	"fmt"
)

// Sentinel error kinds for storefront API failures. Callers classify with
// errors.Is: not-found means the item or location is unlinked on the
// storefront side, rate-limited means back off, transient means retry at the
// next reconciliation pass.
var (
	ErrNotFound    = errors.New("inventory item not found")
	ErrRateLimited = errors.New("storefront rate limit exceeded")
	ErrTransient   = errors.New("transient storefront error")
)

// APIError carries the failed operation and HTTP status alongside the error kind
type APIError struct {
	Op      string
	Status  int
	Message string
	kind    error
}

func (e *APIError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("storefront %s failed: status %d: %s", e.Op, e.Status, e.Message)
	}
	return fmt.Sprintf("storefront %s failed: %s", e.Op, e.Message)
}

func (e *APIError) Unwrap() error {
	return e.kind
}

func newAPIError(op string, status int, message string, kind error) *APIError {
	return &APIError{Op: op, Status: status, Message: message, kind: kind}
}
