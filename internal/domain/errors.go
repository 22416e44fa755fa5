package domain

import "fmt"

// ValidationError covers bad or missing codes and teams. Returned before any
// reservation is made, so no compensation is needed.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

// ConflictError means a concurrent winner got the seat or the code first.
// The caller may retry with a different team.
type ConflictError struct {
	Reason string
}

func (e *ConflictError) Error() string { return e.Reason }

// CredentialError wraps a failure to decrypt or use a stored team credential.
type CredentialError struct {
	Err error
}

func (e *CredentialError) Error() string { return fmt.Sprintf("credential error: %v", e.Err) }
func (e *CredentialError) Unwrap() error { return e.Err }

// ExternalServiceError carries the provider's failure detail back to the caller.
type ExternalServiceError struct {
	Service string
	Detail  string
	Err     error
}

func (e *ExternalServiceError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s", e.Service, e.Detail)
	}
	return fmt.Sprintf("%s: %v", e.Service, e.Err)
}

func (e *ExternalServiceError) Unwrap() error { return e.Err }

// PersistenceError wraps an unexpected storage failure.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string { return fmt.Sprintf("%s: %v", e.Op, e.Err) }
func (e *PersistenceError) Unwrap() error { return e.Err }

// RateLimitError reports how long the caller has to wait before the next
// status lookup with the same key.
type RateLimitError struct {
	RetryAfterSeconds int
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("too many lookups, retry in %d seconds", e.RetryAfterSeconds)
}
