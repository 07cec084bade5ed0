package pattern

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/vibelink/vibelink-core/internal/radio"
)

// Validation limits.
const (
	maxNameLength   = 128
	maxAuthorLength = 128
	maxSteps        = 1000
)

// slugPattern matches lowercase alphanumerics separated by single hyphens.
var slugPattern = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)

// ValidatePattern checks a pattern and normalises its steps in place.
//
// Out-of-range step levels are clamped rather than rejected, matching
// the codec's contract. Negative durations are the only step fault.
func ValidatePattern(p *Pattern) error {
	if p.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidName)
	}
	if len(p.Name) > maxNameLength {
		return fmt.Errorf("%w: name exceeds %d characters", ErrInvalidName, maxNameLength)
	}
	if len(p.Author) > maxAuthorLength {
		return fmt.Errorf("%w: author exceeds %d characters", ErrInvalidPattern, maxAuthorLength)
	}
	if p.Slug == "" || !slugPattern.MatchString(p.Slug) {
		return fmt.Errorf("%w: %q", ErrInvalidSlug, p.Slug)
	}
	if p.Source != SourceAPI && p.Source != SourceFile {
		return fmt.Errorf("%w: unknown source %q", ErrInvalidPattern, p.Source)
	}
	if len(p.Steps) > maxSteps {
		return fmt.Errorf("%w: %d steps exceeds maximum %d", ErrInvalidPattern, len(p.Steps), maxSteps)
	}

	for i := range p.Steps {
		if p.Steps[i].DurationMS < 0 {
			return fmt.Errorf("%w: step %d has negative duration", ErrInvalidStep, i)
		}
		p.Steps[i].Level = radio.Clamp(p.Steps[i].Level)
	}

	return nil
}

// GenerateID returns a new unique pattern identifier.
func GenerateID() string {
	return uuid.NewString()
}

// GenerateSlug derives a URL-safe slug from a display name.
//
// Non-alphanumeric runs collapse to single hyphens; leading and
// trailing hyphens are trimmed. An empty result (all-symbol name)
// falls back to a fresh ID.
func GenerateSlug(name string) string {
	var b strings.Builder
	lastHyphen := true // suppress leading hyphen
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastHyphen = false
		default:
			if !lastHyphen {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
	}
	slug := strings.TrimSuffix(b.String(), "-")
	if slug == "" {
		return GenerateID()
	}
	return slug
}
