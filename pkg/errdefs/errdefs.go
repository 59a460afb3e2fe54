// Package errdefs defines the failure kinds a migration run can end with.
//
// Every fatal condition is reported as an *Error whose Kind is one of the
// sentinel values below, so callers can branch with errors.Is and pull the
// offending version or file out with errors.As:
//
//	_, err := runner.Run(ctx, params)
//	if errors.Is(err, errdefs.ErrContentDrift) {
//		var e *errdefs.Error
//		errors.As(err, &e)
//		log.Printf("%s was edited after it was applied", e.File)
//	}
package errdefs

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrDiscovery indicates the migration location could not be read.
	ErrDiscovery = errors.New("migration discovery failed")

	// ErrOrderingViolation indicates a never-applied migration whose version is
	// not greater than the last applied version.
	ErrOrderingViolation = errors.New("migration ordering violation")

	// ErrContentDrift indicates an applied migration whose content changed.
	ErrContentDrift = errors.New("migration content drift")

	// ErrExecution indicates a migration statement failed.
	ErrExecution = errors.New("migration execution failed")

	// ErrDuplicateVersion indicates two migrations (or ledger rows) share a version.
	ErrDuplicateVersion = errors.New("duplicate migration version")

	// ErrLedger indicates the ledger table could not be read or written.
	ErrLedger = errors.New("ledger access failed")

	// ErrInvalidConfig indicates configuration that failed validation.
	ErrInvalidConfig = errors.New("invalid configuration")
)

// Error is the single error type surfaced by a migration run.
type Error struct {
	Kind    error
	Version string
	File    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Kind.Error()
	}

	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}

	return msg
}

// Unwrap returns the underlying cause, if any.
func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is the kind of this error.
func (e *Error) Is(target error) bool { return target == e.Kind }

// Discovery wraps a failure to read location.
func Discovery(location string, err error) *Error {
	return &Error{
		Kind:    ErrDiscovery,
		Message: fmt.Sprintf("failed to read migration location %q", location),
		Err:     err,
	}
}

// OrderingViolation reports a candidate version that cannot be applied after last.
func OrderingViolation(file string, current, last int64) *Error {
	return &Error{
		Kind:    ErrOrderingViolation,
		Version: fmt.Sprint(current),
		File:    file,
		Message: fmt.Sprintf(
			"can't execute %s: version %d must be greater than last applied version %d",
			file, current, last,
		),
	}
}

// ContentDrift reports an applied migration whose hash no longer matches.
func ContentDrift(file, version, recorded, current string) *Error {
	return &Error{
		Kind:    ErrContentDrift,
		Version: version,
		File:    file,
		Message: fmt.Sprintf("invalid file hash for %s (recorded %s, found %s)", file, recorded, current),
	}
}

// Execution wraps the failure of statement n (1-based) of file.
func Execution(file, version string, n int, err error) *Error {
	return &Error{
		Kind:    ErrExecution,
		Version: version,
		File:    file,
		Message: fmt.Sprintf("failed to execute statement %d of %s", n, file),
		Err:     err,
	}
}

// DuplicateVersion reports a version claimed twice.
func DuplicateVersion(version, detail string, err error) *Error {
	return &Error{
		Kind:    ErrDuplicateVersion,
		Version: version,
		Message: fmt.Sprintf("duplicate migration version %s: %s", version, detail),
		Err:     err,
	}
}

// Ledger wraps a failed ledger operation.
func Ledger(op string, err error) *Error {
	return &Error{
		Kind:    ErrLedger,
		Message: "ledger " + op + " failed",
		Err:     err,
	}
}

// InvalidConfig wraps a configuration validation failure.
func InvalidConfig(err error) *Error {
	return &Error{Kind: ErrInvalidConfig, Err: err}
}
