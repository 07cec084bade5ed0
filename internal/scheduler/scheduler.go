package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/vibelink/vibelink-core/internal/radio"
)

// Kind identifies the control source that owns the current session.
type Kind string

// Session kinds.
const (
	KindIdle       Kind = "idle"
	KindOnce       Kind = "once"
	KindContinuous Kind = "continuous"
	KindPattern    Kind = "pattern"
)

// Config holds the scheduler's timing parameters. Zero values are
// replaced with defaults.
type Config struct {
	// Tick is how long each continuous-mode transmission holds the
	// broadcast before refreshing it.
	Tick time.Duration

	// PollInterval bounds preemption latency: holds and waits check for
	// supersession at least this often.
	PollInterval time.Duration

	// StartTimeout is how long to wait for the radio to confirm a
	// broadcast started before reporting it unavailable.
	StartTimeout time.Duration

	// StopPulse is how long the stop command is held on the air.
	StopPulse time.Duration
}

// Defaults applied when Config fields are zero.
const (
	DefaultTick         = 100 * time.Millisecond
	DefaultPollInterval = 15 * time.Millisecond
	DefaultStartTimeout = 2 * time.Second
	DefaultStopPulse    = 50 * time.Millisecond
)

func (c *Config) setDefaults() {
	if c.Tick <= 0 {
		c.Tick = DefaultTick
	}
	if c.PollInterval <= 0 {
		c.PollInterval = DefaultPollInterval
	}
	if c.StartTimeout <= 0 {
		c.StartTimeout = DefaultStartTimeout
	}
	if c.StopPulse <= 0 {
		c.StopPulse = DefaultStopPulse
	}
}

// Logger is the logging interface the scheduler needs. Compatible with
// logging.Logger.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Warn(string, ...any)  {}

// EventSink receives session lifecycle and transmission events.
//
// Implementations must not block: the scheduler calls the sink from the
// transmission path.
type EventSink interface {
	// Session is called on lifecycle transitions. Event is one of
	// "started", "completed", "superseded", "stopped".
	Session(event string, kind Kind, generation uint64, patternID string)

	// Transmission is called once per broadcast that reached the air.
	Transmission(level int, hold time.Duration, kind Kind, generation uint64)
}

type noopSink struct{}

func (noopSink) Session(string, Kind, uint64, string)          {}
func (noopSink) Transmission(int, time.Duration, Kind, uint64) {}

// Status is a snapshot of the scheduler's current session.
type Status struct {
	Kind       Kind   `json:"kind"`
	Generation uint64 `json:"generation"`
	PatternID  string `json:"pattern_id,omitempty"`
}

// Scheduler serialises all radio access and guarantees at most one
// control source drives the actuator at any instant.
//
// Every Start*/SendOnce/StopAll call atomically increments a generation
// counter; that increment is the single linearization point. Loops and
// in-flight holds tagged with an older generation observe the mismatch
// at their next poll and terminate without further transmissions. This
// is cooperative, last-writer-wins preemption with bounded latency and
// no forced goroutine termination.
//
// Thread Safety: all methods are safe for concurrent use.
type Scheduler struct {
	adv  radio.Advertiser
	cfg  Config
	log  Logger
	sink EventSink

	// mu guards the session descriptor. Held only for short critical
	// sections, never across a transmission.
	mu         sync.Mutex
	generation uint64
	kind       Kind
	patternID  string

	// radioMu serialises physical transmissions: at most one broadcast
	// is open at a time, under any interleaving.
	radioMu sync.Mutex

	wg sync.WaitGroup
}

// Option configures optional scheduler collaborators.
type Option func(*Scheduler)

// WithLogger sets the scheduler's logger.
func WithLogger(log Logger) Option {
	return func(s *Scheduler) {
		if log != nil {
			s.log = log
		}
	}
}

// WithEvents sets the sink for session and transmission events.
func WithEvents(sink EventSink) Option {
	return func(s *Scheduler) {
		if sink != nil {
			s.sink = sink
		}
	}
}

// New creates a scheduler driving the given advertiser.
func New(adv radio.Advertiser, cfg Config, opts ...Option) *Scheduler {
	cfg.setDefaults()
	s := &Scheduler{
		adv:  adv,
		cfg:  cfg,
		log:  noopLogger{},
		sink: noopSink{},
		kind: KindIdle,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// begin supersedes the active session and records the new one. This is
// the linearization point for all scheduler operations.
func (s *Scheduler) begin(kind Kind, patternID string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generation++
	s.kind = kind
	s.patternID = patternID
	return s.generation
}

// finish marks the session idle if it is still the current one.
func (s *Scheduler) finish(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generation == gen {
		s.kind = KindIdle
		s.patternID = ""
	}
}

// superseded reports whether a newer session has taken over.
func (s *Scheduler) superseded(gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generation != gen
}

// Status returns a snapshot of the current session.
func (s *Scheduler) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Status{
		Kind:       s.kind,
		Generation: s.generation,
		PatternID:  s.patternID,
	}
}

// SendOnce supersedes any active session, transmits one command at the
// given level, holds it for hold, then closes the broadcast.
//
// It returns after the transmission window completes, or early with
// ErrSuperseded if a newer session cut the wait short. Either way the
// broadcast is closed before return: no dangling advertisement.
//
// Out-of-range levels are clamped, negative holds treated as zero.
func (s *Scheduler) SendOnce(ctx context.Context, level int, hold time.Duration) error {
	level = radio.Clamp(level)
	if hold < 0 {
		hold = 0
	}

	gen := s.begin(KindOnce, "")
	s.sink.Session("started", KindOnce, gen, "")

	err := s.transmit(ctx, gen, level, hold, KindOnce)
	switch {
	case err == nil:
		s.finish(gen)
		s.sink.Session("completed", KindOnce, gen, "")
	case errors.Is(err, ErrSuperseded):
		s.sink.Session("superseded", KindOnce, gen, "")
	default:
		s.finish(gen)
	}
	return err
}

// StartContinuous supersedes any active session and begins a background
// loop that re-transmits level at every tick until superseded. Returns
// immediately.
//
// Level 0 means stop: it is equivalent to StopAll.
func (s *Scheduler) StartContinuous(level int) {
	level = radio.Clamp(level)
	if level == radio.MinLevel {
		s.StopAll()
		return
	}

	gen := s.begin(KindContinuous, "")
	s.sink.Session("started", KindContinuous, gen, "")

	s.wg.Add(1)
	go s.runContinuous(gen, level)
}

func (s *Scheduler) runContinuous(gen uint64, level int) {
	defer s.wg.Done()

	for {
		err := s.transmit(context.Background(), gen, level, s.cfg.Tick, KindContinuous)
		switch {
		case err == nil:
		case errors.Is(err, ErrSuperseded):
			s.sink.Session("superseded", KindContinuous, gen, "")
			return
		default:
			// A single missed pulse must not abort an otherwise healthy
			// session. Back off one tick, then try again.
			s.log.Warn("continuous transmission failed", "level", level, "error", err)
			if !s.wait(gen, s.cfg.Tick) {
				s.sink.Session("superseded", KindContinuous, gen, "")
				return
			}
		}
	}
}

// StartPattern supersedes any active session and begins a background
// loop that plays steps repeatedly with wrap-around until superseded.
// Returns immediately.
//
// An empty sequence terminates at once but still emits one stop pulse.
func (s *Scheduler) StartPattern(patternID string, steps []Step) {
	gen := s.begin(KindPattern, patternID)
	s.sink.Session("started", KindPattern, gen, patternID)

	s.wg.Add(1)
	go s.runPattern(gen, patternID, NewSequencePlayer(steps))
}

func (s *Scheduler) runPattern(gen uint64, patternID string, player *SequencePlayer) {
	defer s.wg.Done()

	for player.Len() > 0 {
		if s.superseded(gen) {
			// The superseding call tears the radio down and emits its
			// own payloads; this loop must go quiet immediately.
			s.sink.Session("superseded", KindPattern, gen, patternID)
			return
		}

		step, _ := player.Next()
		err := s.transmit(context.Background(), gen, step.Level, step.Hold, KindPattern)
		switch {
		case err == nil:
		case errors.Is(err, ErrSuperseded):
			s.sink.Session("superseded", KindPattern, gen, patternID)
			return
		default:
			// A single missed step must not abort an otherwise healthy
			// session, but retrying instantly would spin against a dead
			// radio. Back off one tick before the next step.
			s.log.Warn("pattern step transmission failed",
				"pattern_id", patternID, "level", step.Level, "error", err)
			if !s.wait(gen, s.cfg.Tick) {
				s.sink.Session("superseded", KindPattern, gen, patternID)
				return
			}
		}
	}

	// Empty sequence: return the actuator to rest. The stop pulse goes
	// through the same generation-guarded path, so it is skipped if a
	// newer session has already taken over.
	err := s.transmit(context.Background(), gen, radio.MinLevel, s.cfg.StopPulse, KindPattern)
	if err != nil && !errors.Is(err, ErrSuperseded) {
		s.log.Warn("pattern stop pulse failed", "pattern_id", patternID, "error", err)
	}

	s.finish(gen)
	s.sink.Session("completed", KindPattern, gen, patternID)
}

// StopAll supersedes whatever is active and emits one stop pulse to
// guarantee the actuator returns to rest. Idempotent and safe to call
// from any goroutine at any time, including when nothing is active.
//
// Radio failures during the stop pulse are logged, never surfaced: the
// cancellation itself has already happened at the generation increment.
func (s *Scheduler) StopAll() {
	gen := s.begin(KindIdle, "")
	s.sink.Session("stopped", KindIdle, gen, "")

	err := s.transmit(context.Background(), gen, radio.MinLevel, s.cfg.StopPulse, KindIdle)
	if err != nil && !errors.Is(err, ErrSuperseded) {
		s.log.Warn("stop pulse failed", "error", err)
	}
}

// Close stops any active session and waits for background loops to
// drain. The advertiser itself is owned by the caller.
func (s *Scheduler) Close() error {
	s.StopAll()
	s.wg.Wait()
	return nil
}

// transmit opens one broadcast for level, waits for start confirmation,
// holds it for hold while polling for supersession, then closes it.
//
// radioMu guarantees at most one broadcast is open at a time: a
// superseding call's first transmission blocks here until the
// superseded session's broadcast is fully closed.
func (s *Scheduler) transmit(ctx context.Context, gen uint64, level int, hold time.Duration, kind Kind) error {
	s.radioMu.Lock()
	defer s.radioMu.Unlock()

	if s.superseded(gen) {
		return ErrSuperseded
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	bc, err := s.adv.Open(radio.Payload(level))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrRadioUnavailable, err)
	}
	// The broadcast is closed on every path out of this function.
	defer bc.Close()

	if err := s.awaitStart(ctx, gen, bc); err != nil {
		return err
	}

	s.sink.Transmission(level, hold, kind, gen)
	s.log.Debug("transmission on air", "level", level, "hold", hold, "kind", kind, "generation", gen)

	if err := s.hold(ctx, gen, hold); err != nil {
		return err
	}
	return nil
}

// awaitStart waits for the broadcast's start confirmation, polling for
// supersession so preemption is not blocked behind an unresponsive
// radio. A radio-reported start failure surfaces as ErrRadioUnavailable,
// never as a confirmation.
func (s *Scheduler) awaitStart(ctx context.Context, gen uint64, bc radio.Broadcast) error {
	deadline := time.Now().Add(s.cfg.StartTimeout)
	for {
		select {
		case <-bc.Started():
			return nil
		case <-bc.Failed():
			return fmt.Errorf("%w: %w", ErrRadioUnavailable, bc.Err())
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(s.cfg.PollInterval):
		}

		if s.superseded(gen) {
			return ErrSuperseded
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("%w: no start confirmation within %v", ErrRadioUnavailable, s.cfg.StartTimeout)
		}
	}
}

// hold keeps the broadcast open for d, sliced into poll intervals so a
// generation change cuts the wait short within bounded latency.
func (s *Scheduler) hold(ctx context.Context, gen uint64, d time.Duration) error {
	deadline := time.Now().Add(d)
	for {
		if s.superseded(gen) {
			return ErrSuperseded
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil
		}
		sleep := s.cfg.PollInterval
		if remaining < sleep {
			sleep = remaining
		}
		time.Sleep(sleep)
	}
}

// wait sleeps for d in poll-interval slices. Returns false if the
// session was superseded during the wait.
func (s *Scheduler) wait(gen uint64, d time.Duration) bool {
	deadline := time.Now().Add(d)
	for {
		if s.superseded(gen) {
			return false
		}
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return true
		}
		sleep := s.cfg.PollInterval
		if remaining < sleep {
			sleep = remaining
		}
		time.Sleep(sleep)
	}
}
