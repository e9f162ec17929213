package detector

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidConfig marks configuration values outside their domain.
	// Nothing useful can be computed without a valid config, so the whole
	// scan fails immediately.
	ErrInvalidConfig = errors.New("detector: invalid config")

	// ErrInternal marks a broken invariant, e.g. a confidence score outside
	// [0,1]. It is surfaced loudly instead of being clamped so the defect is
	// caught by tests rather than masked in production.
	ErrInternal = errors.New("detector: internal invariant violation")

	// ErrFileTooLarge is reported per file when content exceeds the
	// configured size cap. Bounding cost this way avoids mid-file
	// cancellation.
	ErrFileTooLarge = errors.New("detector: file exceeds size limit")
)

// PatternError reports a rule whose textual pattern failed to compile.
type PatternError struct {
	Pattern string
	Err     error
}

func (e *PatternError) Error() string {
	return fmt.Sprintf("detector: pattern %q: %v", e.Pattern, e.Err)
}

func (e *PatternError) Unwrap() error {
	return e.Err
}

// FileError pairs a path with the error that prevented scanning it.
// File errors are isolated per file and never abort a batch scan.
type FileError struct {
	Path string
	Err  error
}

func (e FileError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

func (e FileError) Unwrap() error {
	return e.Err
}
