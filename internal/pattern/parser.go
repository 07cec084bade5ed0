package pattern

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

// FileExtension is the on-disk extension for pattern files.
const FileExtension = ".vibepattern"

// fileHeader is the JSON header on the first line of a pattern file.
type fileHeader struct {
	Name   string `json:"name"`
	Author string `json:"author"`
}

// stepLine matches one step: "level-durationUNIT", e.g. "3-0.5s" or
// "0-250ms". Fractional values are accepted for both units.
var stepLine = regexp.MustCompile(`^(\d+)-(\d+(?:\.\d+)?)(ms|s)$`)

// Parse reads a pattern from its file format.
//
// Line 1 is a JSON header {"name": ..., "author": ...}; every further
// non-blank line is one step in level-durationUNIT form. Durations
// convert to integer milliseconds, rounding to the nearest.
//
// Pattern files are hand-edited, so the parser is forgiving: a missing
// or unreadable header falls back to fallbackName (a non-JSON first
// line is treated as a step), and lines that are not valid steps are
// skipped rather than failing the whole file. Whether a pattern with no
// steps is worth keeping is the caller's call.
func Parse(data []byte, fallbackName string) (*Pattern, error) {
	scanner := bufio.NewScanner(bytes.NewReader(data))

	var header fileHeader
	var steps []Step
	first := true
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if first {
			first = false
			if json.Unmarshal([]byte(line), &header) == nil {
				continue
			}
		}
		if line == "" {
			continue
		}

		step, err := parseStep(line)
		if err != nil {
			continue
		}
		steps = append(steps, step)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("pattern: reading file: %w", err)
	}

	name := header.Name
	if name == "" {
		name = fallbackName
	}
	if name == "" {
		return nil, fmt.Errorf("%w: missing name", ErrInvalidHeader)
	}

	p := &Pattern{
		Name:   name,
		Author: header.Author,
		Slug:   GenerateSlug(name),
		Source: SourceFile,
		Steps:  steps,
	}
	if err := ValidatePattern(p); err != nil {
		return nil, err
	}
	return p, nil
}

// ParseFile reads and parses a pattern file from disk. The file's base
// name is the fallback pattern name when the header is missing.
func ParseFile(path string) (*Pattern, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- path comes from the configured pattern directory
	if err != nil {
		return nil, fmt.Errorf("pattern: reading %s: %w", path, err)
	}
	name := strings.TrimSuffix(filepath.Base(path), FileExtension)
	return Parse(data, name)
}

// parseStep parses one level-durationUNIT line.
func parseStep(line string) (Step, error) {
	m := stepLine.FindStringSubmatch(line)
	if m == nil {
		return Step{}, fmt.Errorf("%w: %q", ErrInvalidStepSyntax, line)
	}

	level, err := strconv.Atoi(m[1])
	if err != nil {
		return Step{}, fmt.Errorf("%w: level %q", ErrInvalidStepSyntax, m[1])
	}

	value, err := strconv.ParseFloat(m[2], 64)
	if err != nil {
		return Step{}, fmt.Errorf("%w: duration %q", ErrInvalidStepSyntax, m[2])
	}

	var ms float64
	switch m[3] {
	case "s":
		ms = value * 1000
	case "ms":
		ms = value
	}

	return Step{Level: level, DurationMS: int64(math.Round(ms))}, nil
}
