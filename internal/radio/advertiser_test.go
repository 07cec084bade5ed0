package radio

import (
	"errors"
	"testing"
	"time"
)

func TestLoopback_OpenClose(t *testing.T) {
	lb := NewLoopback()

	bc, err := lb.Open(Payload(5))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	select {
	case <-bc.Started():
	case <-time.After(time.Second):
		t.Fatal("Started() not closed for immediate loopback")
	}

	if lb.ActiveCount() != 1 {
		t.Errorf("ActiveCount() = %d, want 1", lb.ActiveCount())
	}

	if err := bc.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if lb.ActiveCount() != 0 {
		t.Errorf("ActiveCount() after Close = %d, want 0", lb.ActiveCount())
	}

	records := lb.Transmissions()
	if len(records) != 1 {
		t.Fatalf("Transmissions() = %d records, want 1", len(records))
	}
	if records[0].ClosedAt.IsZero() {
		t.Error("ClosedAt not recorded after Close")
	}
}

func TestLoopback_SecondOpenWhileActive(t *testing.T) {
	lb := NewLoopback()

	bc, err := lb.Open(Payload(1))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer bc.Close()

	if _, err := lb.Open(Payload(2)); !errors.Is(err, ErrBroadcastActive) {
		t.Errorf("second Open() error = %v, want ErrBroadcastActive", err)
	}
}

func TestLoopback_PayloadSize(t *testing.T) {
	lb := NewLoopback()

	if _, err := lb.Open([]byte{0x01, 0x02}); !errors.Is(err, ErrPayloadSize) {
		t.Errorf("Open() with short payload error = %v, want ErrPayloadSize", err)
	}
}

func TestLoopback_OpenAfterClose(t *testing.T) {
	lb := NewLoopback()
	if err := lb.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	if _, err := lb.Open(Payload(0)); !errors.Is(err, ErrClosed) {
		t.Errorf("Open() after Close error = %v, want ErrClosed", err)
	}
}

func TestLoopback_StartDelay(t *testing.T) {
	lb := NewLoopback()
	lb.SetStartDelay(30 * time.Millisecond)

	bc, err := lb.Open(Payload(4))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer bc.Close()

	select {
	case <-bc.Started():
		t.Fatal("Started() closed before the configured delay")
	case <-time.After(5 * time.Millisecond):
	}

	select {
	case <-bc.Started():
	case <-time.After(time.Second):
		t.Fatal("Started() never closed")
	}
}

func TestLoopback_CloseIdempotent(t *testing.T) {
	lb := NewLoopback()
	bc, err := lb.Open(Payload(7))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	if err := bc.Close(); err != nil {
		t.Fatalf("first Close() error = %v", err)
	}
	if err := bc.Close(); err != nil {
		t.Fatalf("second Close() error = %v", err)
	}
}

func TestLoopback_StartErr(t *testing.T) {
	lb := NewLoopback()
	wantErr := errors.New("adapter fault")
	lb.SetStartErr(wantErr)

	bc, err := lb.Open(Payload(4))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	select {
	case <-bc.Failed():
	default:
		t.Fatal("Failed() not closed for a failing start")
	}
	if !errors.Is(bc.Err(), wantErr) {
		t.Errorf("Err() = %v, want %v", bc.Err(), wantErr)
	}
	select {
	case <-bc.Started():
		t.Fatal("Started() closed despite the start failure")
	default:
	}
	bc.Close()

	lb.SetStartErr(nil)
	bc, err = lb.Open(Payload(4))
	if err != nil {
		t.Fatalf("Open() after clearing error = %v", err)
	}
	select {
	case <-bc.Started():
	case <-time.After(time.Second):
		t.Fatal("Started() not closed after clearing the start error")
	}
	bc.Close()
}

func TestLoopback_OpenErr(t *testing.T) {
	lb := NewLoopback()
	wantErr := errors.New("adapter gone")
	lb.SetOpenErr(wantErr)

	if _, err := lb.Open(Payload(3)); !errors.Is(err, wantErr) {
		t.Errorf("Open() error = %v, want %v", err, wantErr)
	}

	lb.SetOpenErr(nil)
	bc, err := lb.Open(Payload(3))
	if err != nil {
		t.Fatalf("Open() after clearing error = %v", err)
	}
	bc.Close()
}
