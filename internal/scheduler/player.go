package scheduler

import "time"

// Step is one pattern step: hold an intensity level for a duration.
type Step struct {
	Level int
	Hold  time.Duration
}

// SequencePlayer iterates an ordered list of steps with wrap-around.
//
// It owns only the iteration position; transmission is the scheduler's
// job. Not safe for concurrent use: each pattern session gets its own
// player.
type SequencePlayer struct {
	steps  []Step
	pos    int
	cycles int
}

// NewSequencePlayer creates a player over a copy of steps.
func NewSequencePlayer(steps []Step) *SequencePlayer {
	return &SequencePlayer{steps: append([]Step(nil), steps...)}
}

// Len returns the number of steps in one cycle.
func (p *SequencePlayer) Len() int {
	return len(p.steps)
}

// Next returns the next step and advances the position, wrapping to the
// start after the last step. Returns false for an empty sequence.
func (p *SequencePlayer) Next() (Step, bool) {
	if len(p.steps) == 0 {
		return Step{}, false
	}
	step := p.steps[p.pos]
	p.pos++
	if p.pos == len(p.steps) {
		p.pos = 0
		p.cycles++
	}
	return step, true
}

// Cycles returns the number of fully completed passes through the
// sequence.
func (p *SequencePlayer) Cycles() int {
	return p.cycles
}
