package scheduler_test

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/vibelink/vibelink-core/internal/radio"
	"github.com/vibelink/vibelink-core/internal/scheduler"
)

// fastConfig keeps test runtime short while preserving the ratios the
// scheduler cares about (poll much smaller than tick and holds).
func fastConfig() scheduler.Config {
	return scheduler.Config{
		Tick:         20 * time.Millisecond,
		PollInterval: 2 * time.Millisecond,
		StartTimeout: 250 * time.Millisecond,
		StopPulse:    10 * time.Millisecond,
	}
}

// waitFor polls cond until it returns true or the timeout elapses.
func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal("condition not reached within timeout")
}

// countPayload returns how many recorded transmissions carry the
// payload for the given level.
func countPayload(records []radio.Transmission, level int) int {
	want := radio.Payload(level)
	n := 0
	for _, r := range records {
		if bytes.Equal(r.Payload, want) {
			n++
		}
	}
	return n
}

func TestSendOnce_Completes(t *testing.T) {
	lb := radio.NewLoopback()
	s := scheduler.New(lb, fastConfig())
	defer s.Close()

	if err := s.SendOnce(context.Background(), 5, 30*time.Millisecond); err != nil {
		t.Fatalf("SendOnce() error = %v", err)
	}

	records := lb.Transmissions()
	if len(records) != 1 {
		t.Fatalf("transmissions = %d, want 1", len(records))
	}
	if !bytes.Equal(records[0].Payload, radio.Payload(5)) {
		t.Errorf("payload = %x, want level-5 payload", records[0].Payload)
	}
	if records[0].ClosedAt.IsZero() {
		t.Error("broadcast not closed after SendOnce returned")
	}

	if got := s.Status().Kind; got != scheduler.KindIdle {
		t.Errorf("Status().Kind = %q, want idle after completion", got)
	}
}

func TestSendOnce_ClampsLevel(t *testing.T) {
	lb := radio.NewLoopback()
	s := scheduler.New(lb, fastConfig())
	defer s.Close()

	if err := s.SendOnce(context.Background(), 42, 10*time.Millisecond); err != nil {
		t.Fatalf("SendOnce() error = %v", err)
	}

	records := lb.Transmissions()
	if !bytes.Equal(records[0].Payload, radio.Payload(9)) {
		t.Errorf("payload for level 42 = %x, want level-9 payload", records[0].Payload)
	}
}

func TestSendOnce_CutShortBySupersedingCall(t *testing.T) {
	lb := radio.NewLoopback()
	s := scheduler.New(lb, fastConfig())
	defer s.Close()

	firstDone := make(chan error, 1)
	go func() {
		firstDone <- s.SendOnce(context.Background(), 9, time.Second)
	}()

	// Let the first transmission get on the air.
	waitFor(t, time.Second, func() bool { return len(lb.Transmissions()) == 1 })

	start := time.Now()
	if err := s.SendOnce(context.Background(), 0, 20*time.Millisecond); err != nil {
		t.Fatalf("superseding SendOnce() error = %v", err)
	}

	var firstErr error
	select {
	case firstErr = <-firstDone:
	case <-time.After(time.Second):
		t.Fatal("superseded SendOnce did not return")
	}

	if !errors.Is(firstErr, scheduler.ErrSuperseded) {
		t.Errorf("superseded SendOnce error = %v, want ErrSuperseded", firstErr)
	}
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Errorf("preemption took %v, the 1s hold was not cut short", elapsed)
	}

	// After the superseding call, only the stop payload transmits.
	records := lb.Transmissions()
	last := records[len(records)-1]
	if !bytes.Equal(last.Payload, radio.Payload(0)) {
		t.Errorf("last payload = %x, want stop payload", last.Payload)
	}
	if countPayload(records, 9) != 1 {
		t.Errorf("level-9 transmissions = %d, want exactly 1", countPayload(records, 9))
	}
}

func TestStartContinuous_RepeatsUntilStopped(t *testing.T) {
	lb := radio.NewLoopback()
	s := scheduler.New(lb, fastConfig())
	defer s.Close()

	s.StartContinuous(5)

	if got := s.Status().Kind; got != scheduler.KindContinuous {
		t.Errorf("Status().Kind = %q, want continuous", got)
	}

	// Several ticks should produce several transmissions.
	waitFor(t, time.Second, func() bool { return countPayload(lb.Transmissions(), 5) >= 3 })

	s.StopAll()
	// Loop drains after supersession.
	waitFor(t, time.Second, func() bool { return lb.ActiveCount() == 0 })

	records := lb.Transmissions()
	last := records[len(records)-1]
	if !bytes.Equal(last.Payload, radio.Payload(0)) {
		t.Errorf("last payload = %x, want stop payload after StopAll", last.Payload)
	}

	if got := s.Status().Kind; got != scheduler.KindIdle {
		t.Errorf("Status().Kind = %q, want idle after StopAll", got)
	}
}

func TestStartContinuous_ZeroIsStop(t *testing.T) {
	lb := radio.NewLoopback()
	s := scheduler.New(lb, fastConfig())
	defer s.Close()

	s.StartContinuous(5)
	waitFor(t, time.Second, func() bool { return countPayload(lb.Transmissions(), 5) >= 2 })

	s.StartContinuous(0)
	waitFor(t, time.Second, func() bool {
		records := lb.Transmissions()
		return len(records) > 0 && bytes.Equal(records[len(records)-1].Payload, radio.Payload(0))
	})

	// No further level-5 payloads after the stop takes effect.
	countAtStop := countPayload(lb.Transmissions(), 5)
	time.Sleep(100 * time.Millisecond)
	if got := countPayload(lb.Transmissions(), 5); got != countAtStop {
		t.Errorf("level-5 transmissions continued after StartContinuous(0): %d -> %d", countAtStop, got)
	}
}

func TestStartPattern_EmptyEmitsOneStopPulse(t *testing.T) {
	lb := radio.NewLoopback()
	s := scheduler.New(lb, fastConfig())

	s.StartPattern("empty", nil)

	waitFor(t, time.Second, func() bool { return len(lb.Transmissions()) == 1 })
	time.Sleep(50 * time.Millisecond)

	records := lb.Transmissions()
	if len(records) != 1 {
		t.Fatalf("transmissions = %d, want exactly 1", len(records))
	}
	if !bytes.Equal(records[0].Payload, radio.Payload(0)) {
		t.Errorf("payload = %x, want stop payload", records[0].Payload)
	}

	waitFor(t, time.Second, func() bool { return s.Status().Kind == scheduler.KindIdle })
	s.Close()
}

func TestStartPattern_StoppedMidCycle(t *testing.T) {
	lb := radio.NewLoopback()
	s := scheduler.New(lb, fastConfig())
	defer s.Close()

	steps := []scheduler.Step{
		{Level: 3, Hold: 50 * time.Millisecond},
		{Level: 0, Hold: 25 * time.Millisecond},
	}
	s.StartPattern("pulse", steps)

	if got := s.Status().PatternID; got != "pulse" {
		t.Errorf("Status().PatternID = %q, want pulse", got)
	}

	// One full cycle is 75ms; stop during the second cycle.
	time.Sleep(90 * time.Millisecond)
	s.StopAll()
	waitFor(t, time.Second, func() bool { return lb.ActiveCount() == 0 })
	time.Sleep(50 * time.Millisecond)

	records := lb.Transmissions()
	// Two cycles of two steps plus the StopAll pulse is the absolute
	// ceiling; a third cycle would exceed it.
	if len(records) > 5 {
		t.Errorf("transmissions = %d, a third cycle was emitted", len(records))
	}
	if got := countPayload(records, 3); got > 2 {
		t.Errorf("level-3 transmissions = %d, want at most 2", got)
	}
}

func TestStopAll_Idempotent(t *testing.T) {
	lb := radio.NewLoopback()
	s := scheduler.New(lb, fastConfig())
	defer s.Close()

	s.StopAll()
	s.StopAll()

	records := lb.Transmissions()
	if len(records) != 2 {
		t.Fatalf("transmissions = %d, want 2 stop pulses", len(records))
	}
	for i, r := range records {
		if !bytes.Equal(r.Payload, radio.Payload(0)) {
			t.Errorf("transmission %d payload = %x, want stop payload", i, r.Payload)
		}
	}
}

func TestSendOnce_RadioUnavailable(t *testing.T) {
	lb := radio.NewLoopback()
	cfg := fastConfig()
	cfg.StartTimeout = 30 * time.Millisecond
	s := scheduler.New(lb, cfg)
	defer s.Close()

	lb.SetStartDelay(time.Second)
	err := s.SendOnce(context.Background(), 5, 50*time.Millisecond)
	if !errors.Is(err, scheduler.ErrRadioUnavailable) {
		t.Fatalf("SendOnce() error = %v, want ErrRadioUnavailable", err)
	}

	// Failure is local to one transmission; the scheduler stays usable.
	lb.SetStartDelay(0)
	if err := s.SendOnce(context.Background(), 5, 10*time.Millisecond); err != nil {
		t.Fatalf("SendOnce() after radio recovery error = %v", err)
	}
}

func TestSendOnce_StartFailure(t *testing.T) {
	lb := radio.NewLoopback()
	rec := &eventRecorder{}
	s := scheduler.New(lb, fastConfig(), scheduler.WithEvents(rec))
	defer s.Close()

	// The radio accepts the command but reports the broadcast can never
	// start. This must surface as a failure, not as an on-air send.
	lb.SetStartErr(errors.New("adapter fault"))

	start := time.Now()
	err := s.SendOnce(context.Background(), 5, 50*time.Millisecond)
	if !errors.Is(err, scheduler.ErrRadioUnavailable) {
		t.Fatalf("SendOnce() error = %v, want ErrRadioUnavailable", err)
	}
	if elapsed := time.Since(start); elapsed > 150*time.Millisecond {
		t.Errorf("SendOnce() took %v, the reported failure was not acted on promptly", elapsed)
	}
	if got := rec.transmissionCount(); got != 0 {
		t.Errorf("transmission events = %d, want 0 for a broadcast that never started", got)
	}
	if lb.ActiveCount() != 0 {
		t.Error("broadcast left open after start failure")
	}

	// Failure is local to one transmission; the scheduler stays usable.
	lb.SetStartErr(nil)
	if err := s.SendOnce(context.Background(), 5, 10*time.Millisecond); err != nil {
		t.Fatalf("SendOnce() after radio recovery error = %v", err)
	}
}

// countingAdvertiser counts Open attempts so tests can bound how often
// a loop retries against a failing radio.
type countingAdvertiser struct {
	inner *radio.Loopback
	mu    sync.Mutex
	opens int
}

func (c *countingAdvertiser) Open(payload []byte) (radio.Broadcast, error) {
	c.mu.Lock()
	c.opens++
	c.mu.Unlock()
	return c.inner.Open(payload)
}

func (c *countingAdvertiser) Close() error { return c.inner.Close() }

func (c *countingAdvertiser) openCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.opens
}

func TestStartPattern_FailedStepBacksOff(t *testing.T) {
	lb := radio.NewLoopback()
	lb.SetOpenErr(errors.New("adapter gone"))
	adv := &countingAdvertiser{inner: lb}
	s := scheduler.New(adv, fastConfig())
	defer s.Close()

	s.StartPattern("p", []scheduler.Step{{Level: 5, Hold: 10 * time.Millisecond}})

	// With a one-tick (20ms) backoff per failed step, 200ms allows
	// roughly ten attempts. Orders of magnitude more means the loop is
	// spinning instead of backing off.
	time.Sleep(200 * time.Millisecond)
	s.StopAll()

	if got := adv.openCount(); got > 30 {
		t.Errorf("open attempts = %d in 200ms, want roughly 10 with a one-tick backoff", got)
	}
	if got := adv.openCount(); got < 2 {
		t.Errorf("open attempts = %d, the loop gave up instead of retrying", got)
	}
}

func TestSendOnce_ContextCancelled(t *testing.T) {
	lb := radio.NewLoopback()
	s := scheduler.New(lb, fastConfig())
	defer s.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- s.SendOnce(ctx, 4, time.Second)
	}()

	waitFor(t, time.Second, func() bool { return len(lb.Transmissions()) == 1 })
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("SendOnce() error = %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("SendOnce did not return after context cancellation")
	}

	if lb.ActiveCount() != 0 {
		t.Error("broadcast left open after context cancellation")
	}
}

// TestConcurrentCallers hammers the scheduler from many goroutines and
// relies on the loopback advertiser to detect any overlapping
// broadcasts.
func TestConcurrentCallers(t *testing.T) {
	lb := radio.NewLoopback()
	s := scheduler.New(lb, fastConfig())

	var wg sync.WaitGroup
	var mu sync.Mutex
	var overlap error

	record := func(err error) {
		if err == nil || errors.Is(err, scheduler.ErrSuperseded) {
			return
		}
		if errors.Is(err, radio.ErrBroadcastActive) {
			mu.Lock()
			overlap = err
			mu.Unlock()
		}
	}

	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				switch (n + j) % 4 {
				case 0:
					record(s.SendOnce(context.Background(), n%10, 5*time.Millisecond))
				case 1:
					s.StartContinuous(n%9 + 1)
				case 2:
					s.StartPattern("p", []scheduler.Step{{Level: 2, Hold: 5 * time.Millisecond}})
				case 3:
					s.StopAll()
				}
			}
		}(i)
	}
	wg.Wait()

	s.Close()

	if overlap != nil {
		t.Errorf("overlapping broadcast detected: %v", overlap)
	}
	if lb.ActiveCount() != 0 {
		t.Errorf("ActiveCount() = %d after Close, want 0", lb.ActiveCount())
	}
}

// eventRecorder captures scheduler events for assertions.
type eventRecorder struct {
	mu            sync.Mutex
	sessions      []string
	transmissions int
}

func (r *eventRecorder) Session(event string, kind scheduler.Kind, _ uint64, _ string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions = append(r.sessions, string(kind)+":"+event)
}

func (r *eventRecorder) Transmission(int, time.Duration, scheduler.Kind, uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transmissions++
}

func (r *eventRecorder) transmissionCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.transmissions
}

func (r *eventRecorder) has(entry string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.sessions {
		if s == entry {
			return true
		}
	}
	return false
}

func TestEvents(t *testing.T) {
	lb := radio.NewLoopback()
	rec := &eventRecorder{}
	s := scheduler.New(lb, fastConfig(), scheduler.WithEvents(rec))
	defer s.Close()

	if err := s.SendOnce(context.Background(), 3, 10*time.Millisecond); err != nil {
		t.Fatalf("SendOnce() error = %v", err)
	}
	if !rec.has("once:started") || !rec.has("once:completed") {
		t.Error("missing once session lifecycle events")
	}

	s.StartContinuous(5)
	s.StopAll()
	waitFor(t, time.Second, func() bool { return rec.has("continuous:superseded") })
}
