package radio

import (
	"sync"
	"time"
)

// Broadcast is a single open advertisement.
//
// Started() is closed when the radio confirms the advertisement is on
// the air; until then the payload may not have reached the device.
// Failed() is closed instead when the radio reports the advertisement
// cannot start; Err() returns the reason once Failed() is closed.
// Close stops the advertisement and releases the radio. Close is
// idempotent.
type Broadcast interface {
	Started() <-chan struct{}
	Failed() <-chan struct{}
	Err() error
	Close() error
}

// Advertiser opens BLE advertising broadcasts.
//
// Implementations must serialise broadcasts: Open blocks or fails while
// a previous broadcast from this advertiser is still open. Close shuts
// the advertiser down; any open broadcast is closed first.
type Advertiser interface {
	Open(payload []byte) (Broadcast, error)
	Close() error
}

// Transmission records one broadcast observed by the Loopback advertiser.
type Transmission struct {
	Payload  []byte
	OpenedAt time.Time
	ClosedAt time.Time // zero until the broadcast is closed
}

// Loopback is an in-process Advertiser for development and tests.
//
// It records every broadcast instead of touching a radio. Started()
// closes after an optional configurable delay, which lets tests exercise
// the scheduler's start-timeout path.
type Loopback struct {
	mu         sync.Mutex
	closed     bool
	active     *loopbackBroadcast
	records    []Transmission
	startDelay time.Duration
	openErr    error
	startErr   error
}

// NewLoopback creates a loopback advertiser with immediate start
// confirmation.
func NewLoopback() *Loopback {
	return &Loopback{}
}

// SetStartDelay delays the Started() signal of subsequent broadcasts.
// A delay longer than the scheduler's start timeout simulates an
// unresponsive radio.
func (l *Loopback) SetStartDelay(d time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.startDelay = d
}

// SetOpenErr makes subsequent Open calls fail with err. Pass nil to
// restore normal behaviour.
func (l *Loopback) SetOpenErr(err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.openErr = err
}

// SetStartErr makes subsequent broadcasts report a start failure with
// err instead of a confirmation, simulating a radio that accepts the
// command but cannot get it on the air. Pass nil to restore normal
// behaviour.
func (l *Loopback) SetStartErr(err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.startErr = err
}

// Open records the payload and returns a broadcast whose Started()
// channel closes after the configured delay.
func (l *Loopback) Open(payload []byte) (Broadcast, error) {
	if len(payload) != PayloadSize {
		return nil, ErrPayloadSize
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return nil, ErrClosed
	}
	if l.openErr != nil {
		return nil, l.openErr
	}
	if l.active != nil {
		return nil, ErrBroadcastActive
	}

	idx := len(l.records)
	l.records = append(l.records, Transmission{
		Payload:  append([]byte(nil), payload...),
		OpenedAt: time.Now(),
	})

	b := &loopbackBroadcast{
		parent:  l,
		index:   idx,
		started: make(chan struct{}),
		failed:  make(chan struct{}),
	}
	l.active = b

	switch {
	case l.startErr != nil:
		b.fail(l.startErr)
	case l.startDelay == 0:
		close(b.started)
	default:
		delay := l.startDelay
		go func() {
			time.Sleep(delay)
			b.startOnce.Do(func() { close(b.started) })
		}()
	}

	return b, nil
}

// Close shuts the advertiser down. Any open broadcast is closed.
func (l *Loopback) Close() error {
	l.mu.Lock()
	active := l.active
	l.closed = true
	l.mu.Unlock()

	if active != nil {
		return active.Close()
	}
	return nil
}

// Transmissions returns a snapshot of all recorded broadcasts.
func (l *Loopback) Transmissions() []Transmission {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]Transmission, len(l.records))
	copy(out, l.records)
	return out
}

// ActiveCount returns the number of currently open broadcasts (0 or 1).
func (l *Loopback) ActiveCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.active != nil {
		return 1
	}
	return 0
}

type loopbackBroadcast struct {
	parent    *Loopback
	index     int
	started   chan struct{}
	startOnce sync.Once
	failed    chan struct{}
	failOnce  sync.Once
	failErr   error
	closeOnce sync.Once
}

func (b *loopbackBroadcast) Started() <-chan struct{} {
	return b.started
}

func (b *loopbackBroadcast) Failed() <-chan struct{} {
	return b.failed
}

// Err returns the failure reason. Valid once Failed() is closed.
func (b *loopbackBroadcast) Err() error {
	return b.failErr
}

func (b *loopbackBroadcast) fail(err error) {
	b.failOnce.Do(func() {
		b.failErr = err
		close(b.failed)
	})
}

func (b *loopbackBroadcast) Close() error {
	b.closeOnce.Do(func() {
		// A waiter still blocked on the start signal learns the
		// broadcast is gone rather than seeing a phantom confirmation.
		b.fail(ErrClosed)

		b.parent.mu.Lock()
		b.parent.records[b.index].ClosedAt = time.Now()
		if b.parent.active == b {
			b.parent.active = nil
		}
		b.parent.mu.Unlock()
	})
	return nil
}
