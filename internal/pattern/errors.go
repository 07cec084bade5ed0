package pattern

import "errors"

// Domain errors for the pattern package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, pattern.ErrPatternNotFound) {
//	    // handle not found case
//	}
var (
	// ErrPatternNotFound is returned when a pattern ID or slug does not exist.
	ErrPatternNotFound = errors.New("pattern: not found")

	// ErrPatternExists is returned when creating a pattern whose ID or slug
	// already exists.
	ErrPatternExists = errors.New("pattern: already exists")

	// ErrInvalidPattern is returned when pattern validation fails.
	ErrInvalidPattern = errors.New("pattern: invalid")

	// ErrInvalidName is returned when a pattern name is empty or too long.
	ErrInvalidName = errors.New("pattern: invalid name")

	// ErrInvalidSlug is returned when a slug format is invalid.
	ErrInvalidSlug = errors.New("pattern: invalid slug")

	// ErrInvalidStep is returned when a step has a negative duration.
	// Out-of-range levels are clamped, never rejected.
	ErrInvalidStep = errors.New("pattern: invalid step")

	// ErrInvalidHeader is returned when a pattern file carries no name in
	// its header and no fallback name is available.
	ErrInvalidHeader = errors.New("pattern: invalid file header")

	// ErrInvalidStepSyntax is returned when a pattern file step line does
	// not match the level-durationUNIT form.
	ErrInvalidStepSyntax = errors.New("pattern: invalid step syntax")
)
