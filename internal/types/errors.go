package types

import "fmt"

// ValidationError reports an inbound request that fails basic shape checks.
// It is terminal: no provider is attempted for an invalid request.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid request: %s %s", e.Field, e.Reason)
}
