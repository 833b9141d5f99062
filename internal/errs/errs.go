// Package errs defines the error taxonomy shared across the reconciliation
// engine. Components return one of these sentinel kinds, wrapped with
// context via fmt.Errorf("...: %w", ...), so callers can classify failures
// with errors.Is regardless of which component raised them.
package errs

import "errors"

// Sentinel error kinds. Surfacing (HTTP status, CLI exit code, retry
// eligibility) is a decision for the caller, not this package.
var (
	// ErrNotFound indicates a referenced entity does not exist.
	ErrNotFound = errors.New("not found")
	// ErrValidation indicates malformed or out-of-range input.
	ErrValidation = errors.New("validation failed")
	// ErrConfigurationMissing indicates required credentials or endpoints are absent.
	ErrConfigurationMissing = errors.New("configuration missing")
	// ErrTransientExternal indicates a network or file-transfer failure that may succeed on retry.
	ErrTransientExternal = errors.New("transient external failure")
	// ErrStorage indicates a persistence-layer failure during a write.
	ErrStorage = errors.New("storage failure")
	// ErrModelUnavailable indicates inference was requested but no model artifact is loaded.
	ErrModelUnavailable = errors.New("model unavailable")
	// ErrInvariantViolated indicates a programming invariant was broken (e.g. no routing rule matched).
	ErrInvariantViolated = errors.New("invariant violated")
)
