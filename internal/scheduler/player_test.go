package scheduler

import (
	"testing"
	"time"
)

func TestSequencePlayer_Empty(t *testing.T) {
	p := NewSequencePlayer(nil)

	if p.Len() != 0 {
		t.Errorf("Len() = %d, want 0", p.Len())
	}
	if _, ok := p.Next(); ok {
		t.Error("Next() on empty player returned a step")
	}
}

func TestSequencePlayer_WrapAround(t *testing.T) {
	steps := []Step{
		{Level: 3, Hold: 500 * time.Millisecond},
		{Level: 0, Hold: 250 * time.Millisecond},
	}
	p := NewSequencePlayer(steps)

	want := []int{3, 0, 3, 0, 3}
	for i, wantLevel := range want {
		step, ok := p.Next()
		if !ok {
			t.Fatalf("Next() call %d returned no step", i)
		}
		if step.Level != wantLevel {
			t.Errorf("Next() call %d level = %d, want %d", i, step.Level, wantLevel)
		}
	}

	if p.Cycles() != 2 {
		t.Errorf("Cycles() = %d, want 2", p.Cycles())
	}
}

func TestSequencePlayer_CopiesSteps(t *testing.T) {
	steps := []Step{{Level: 5, Hold: time.Second}}
	p := NewSequencePlayer(steps)

	steps[0].Level = 9
	step, _ := p.Next()
	if step.Level != 5 {
		t.Error("player must copy the step slice at construction")
	}
}
