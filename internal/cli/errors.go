package cli

import (
	"fmt"
)

// NotFoundError indicates an unknown endpoint or domain. Never retried; the
// caller is expected to surface Alternatives to the user.
type NotFoundError struct {
	Kind         string // "endpoint" or "domain"
	ID           string
	Alternatives []string
}

func (e *NotFoundError) Error() string {
	if len(e.Alternatives) == 0 {
		return fmt.Sprintf("%s %q not found", e.Kind, e.ID)
	}
	return fmt.Sprintf("%s %q not found (did you mean: %v?)", e.Kind, e.ID, e.Alternatives)
}

func (e *NotFoundError) Is(target error) bool {
	_, ok := target.(*NotFoundError)
	return ok
}

// ValidationError indicates a bad URL, SSRF rejection, bad params, or
// unsupported scheme. Fatal for the call, never retried.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

func (e *ValidationError) Is(target error) bool {
	_, ok := target.(*ValidationError)
	return ok
}

// TransientError wraps a DNS, connect, timeout, or 5xx failure. Surfaced as
// a call failure; batch replay isolates these per request.
type TransientError struct {
	Endpoint string
	Reason   error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("transient failure calling %s: %v", e.Endpoint, e.Reason)
}

func (e *TransientError) Unwrap() error { return e.Reason }

func (e *TransientError) Is(target error) bool {
	_, ok := target.(*TransientError)
	return ok
}

// AuthError wraps a 401/403 that survived the single refresh-and-retry
// cycle. Carries the fields surfaced in the replay engine's structured
// auth-error envelope.
type AuthError struct {
	Domain     string
	Suggestion string
	Reason     error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("authentication failed for %s: %s", e.Domain, e.Suggestion)
}

func (e *AuthError) Unwrap() error { return e.Reason }

func (e *AuthError) Is(target error) bool {
	_, ok := target.(*AuthError)
	return ok
}

// IntegrityError indicates a signature mismatch, decryption failure, or a
// tampered skill file. Import rejects; the credential store treats it as
// empty. Fails closed.
type IntegrityError struct {
	Reason string
}

func (e *IntegrityError) Error() string { return "integrity check failed: " + e.Reason }

func (e *IntegrityError) Is(target error) bool {
	_, ok := target.(*IntegrityError)
	return ok
}

// CapacityError indicates the capture-session cap was reached, a browser
// timed out, or a response exceeded the configured memory bound.
type CapacityError struct {
	Reason string
}

func (e *CapacityError) Error() string { return "capacity exceeded: " + e.Reason }

func (e *CapacityError) Is(target error) bool {
	_, ok := target.(*CapacityError)
	return ok
}

// Exit codes for CLI commands: 0 on success, 1 on a generic error, and a
// refined code per error category so scripted callers can branch.
const (
	ExitCodeSuccess      = 0
	ExitCodeError        = 1
	ExitCodeValidation   = 2
	ExitCodeNotFound     = 3
	ExitCodeAuthRequired = 4
	ExitCodeCapacity     = 5
)

// ExitCodeFor maps an error returned from a core operation to a process
// exit code.
func ExitCodeFor(err error) int {
	if err == nil {
		return ExitCodeSuccess
	}
	switch err.(type) {
	case *ValidationError:
		return ExitCodeValidation
	case *NotFoundError:
		return ExitCodeNotFound
	case *AuthError:
		return ExitCodeAuthRequired
	case *CapacityError:
		return ExitCodeCapacity
	default:
		return ExitCodeError
	}
}
