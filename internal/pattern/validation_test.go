package pattern

import (
	"errors"
	"strings"
	"testing"
)

func validPattern() *Pattern {
	return &Pattern{
		ID:     GenerateID(),
		Name:   "Test Pattern",
		Author: "dev",
		Slug:   "test-pattern",
		Source: SourceAPI,
		Steps: []Step{
			{Level: 3, DurationMS: 500},
			{Level: 0, DurationMS: 250},
		},
	}
}

func TestValidatePattern_Valid(t *testing.T) {
	if err := ValidatePattern(validPattern()); err != nil {
		t.Errorf("ValidatePattern() error = %v", err)
	}
}

func TestValidatePattern_ClampsLevels(t *testing.T) {
	p := validPattern()
	p.Steps = []Step{
		{Level: -2, DurationMS: 100},
		{Level: 42, DurationMS: 100},
	}

	if err := ValidatePattern(p); err != nil {
		t.Fatalf("ValidatePattern() error = %v", err)
	}
	if p.Steps[0].Level != 0 {
		t.Errorf("Steps[0].Level = %d, want 0 (clamped)", p.Steps[0].Level)
	}
	if p.Steps[1].Level != 9 {
		t.Errorf("Steps[1].Level = %d, want 9 (clamped)", p.Steps[1].Level)
	}
}

func TestValidatePattern_Errors(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(p *Pattern)
		wantErr error
	}{
		{"empty name", func(p *Pattern) { p.Name = "" }, ErrInvalidName},
		{"name too long", func(p *Pattern) { p.Name = strings.Repeat("x", 129) }, ErrInvalidName},
		{"empty slug", func(p *Pattern) { p.Slug = "" }, ErrInvalidSlug},
		{"bad slug", func(p *Pattern) { p.Slug = "Has Spaces" }, ErrInvalidSlug},
		{"unknown source", func(p *Pattern) { p.Source = "magic" }, ErrInvalidPattern},
		{"negative duration", func(p *Pattern) { p.Steps[0].DurationMS = -1 }, ErrInvalidStep},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := validPattern()
			tt.mutate(p)
			if err := ValidatePattern(p); !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidatePattern() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestGenerateSlug(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"Test Pattern", "test-pattern"},
		{"UPPER case", "upper-case"},
		{"lots   of spaces", "lots-of-spaces"},
		{"trailing! ", "trailing"},
		{"42 beats", "42-beats"},
	}

	for _, tt := range tests {
		if got := GenerateSlug(tt.name); got != tt.want {
			t.Errorf("GenerateSlug(%q) = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestGenerateSlug_AllSymbols(t *testing.T) {
	// Falls back to a generated ID, which must itself be a valid slug.
	got := GenerateSlug("!!!")
	if got == "" || !slugPattern.MatchString(got) {
		t.Errorf("GenerateSlug(\"!!!\") = %q, not a valid slug", got)
	}
}

func TestDisplayName(t *testing.T) {
	p := &Pattern{Name: "Waves", Author: "dev"}
	if got := p.DisplayName(); got != "Waves by dev" {
		t.Errorf("DisplayName() = %q, want %q", got, "Waves by dev")
	}

	p.Author = ""
	if got := p.DisplayName(); got != "Waves" {
		t.Errorf("DisplayName() without author = %q, want Waves", got)
	}
}

func TestDeepCopy(t *testing.T) {
	p := validPattern()
	cp := p.DeepCopy()

	cp.Steps[0].Level = 9
	if p.Steps[0].Level == 9 {
		t.Error("DeepCopy() shares step storage with the original")
	}
}
