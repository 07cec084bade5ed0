package pattern

import (
	"time"

	"github.com/vibelink/vibelink-core/internal/scheduler"
)

// Source identifies where a pattern came from.
type Source string

// Pattern sources.
const (
	// SourceAPI marks patterns created through the HTTP API.
	SourceAPI Source = "api"

	// SourceFile marks patterns loaded from .vibepattern files. File
	// patterns are upserted by slug on every load, so editing the file
	// updates the stored pattern.
	SourceFile Source = "file"
)

// Step is one playback step: hold an intensity level for a duration.
//
// Durations are stored as integer milliseconds. The file format accepts
// fractional seconds ("0.5s"); they are converted at parse time.
type Step struct {
	Level      int   `json:"level"`
	DurationMS int64 `json:"duration_ms"`
}

// Hold returns the step duration as a time.Duration.
func (s Step) Hold() time.Duration {
	return time.Duration(s.DurationMS) * time.Millisecond
}

// Pattern is a named ordered sequence of steps plus display metadata.
type Pattern struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Author    string    `json:"author,omitempty"`
	Slug      string    `json:"slug"`
	Source    Source    `json:"source"`
	Steps     []Step    `json:"steps"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DisplayName returns the human-facing name, including the author when
// one is set.
func (p *Pattern) DisplayName() string {
	if p.Author == "" {
		return p.Name
	}
	return p.Name + " by " + p.Author
}

// DeepCopy returns a full copy of the pattern. The registry hands out
// copies so callers can never mutate its cache.
func (p *Pattern) DeepCopy() *Pattern {
	if p == nil {
		return nil
	}
	cp := *p
	cp.Steps = append([]Step(nil), p.Steps...)
	return &cp
}

// SchedulerSteps converts the pattern's steps into the scheduler's step
// type for playback.
func (p *Pattern) SchedulerSteps() []scheduler.Step {
	steps := make([]scheduler.Step, len(p.Steps))
	for i, s := range p.Steps {
		steps[i] = scheduler.Step{Level: s.Level, Hold: s.Hold()}
	}
	return steps
}
