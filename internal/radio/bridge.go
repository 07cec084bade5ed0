package radio

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/vibelink/vibelink-core/internal/infrastructure/mqtt"
)

// Bus is the subset of the MQTT client the bridge needs. *mqtt.Client
// satisfies it.
type Bus interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
	Unsubscribe(topic string) error
}

// advertiseQoS is the QoS for bridge commands. At-least-once: a lost
// start command means a silent device, a lost stop means a stuck one.
const advertiseQoS = 1

// advertiseCommand is the wire format sent to the BLE bridge on
// vibelink/bridge/ble/advertise.
type advertiseCommand struct {
	Action    string `json:"action"` // "start" or "stop"
	ID        string `json:"id"`
	CompanyID int    `json:"company_id,omitempty"`
	Payload   string `json:"payload,omitempty"` // hex-encoded manufacturer data
}

// bridgeStatus is the wire format received from the BLE bridge on
// vibelink/bridge/ble/status.
type bridgeStatus struct {
	ID    string `json:"id"`
	State string `json:"state"` // "advertising", "stopped", "error"
	Error string `json:"error,omitempty"`
}

// Bridge is an Advertiser that relays broadcasts over MQTT to a
// host-side BLE bridge process.
//
// The bridge process owns the physical adapter; Core only describes the
// advertisement. Each broadcast gets a unique ID so start confirmations
// can be matched to the request that caused them.
type Bridge struct {
	bus    Bus
	topics mqtt.Topics

	mu      sync.Mutex
	closed  bool
	active  *bridgeBroadcast
	pending map[string]*bridgeBroadcast
}

// NewBridge creates a bridge advertiser and subscribes to the bridge
// status topic for start confirmations.
func NewBridge(bus Bus) (*Bridge, error) {
	b := &Bridge{
		bus:     bus,
		pending: make(map[string]*bridgeBroadcast),
	}

	if err := bus.Subscribe(b.topics.BridgeStatus(), advertiseQoS, b.handleStatus); err != nil {
		return nil, fmt.Errorf("radio: subscribe bridge status: %w", err)
	}

	return b, nil
}

// Open publishes a start command and returns a broadcast whose Started()
// channel closes when the bridge confirms the advertisement is on the
// air.
func (b *Bridge) Open(payload []byte) (Broadcast, error) {
	if len(payload) != PayloadSize {
		return nil, ErrPayloadSize
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil, ErrClosed
	}
	if b.active != nil {
		b.mu.Unlock()
		return nil, ErrBroadcastActive
	}

	bc := &bridgeBroadcast{
		parent:  b,
		id:      uuid.NewString(),
		started: make(chan struct{}),
		failed:  make(chan struct{}),
	}
	b.active = bc
	b.pending[bc.id] = bc
	b.mu.Unlock()

	cmd := advertiseCommand{
		Action:    "start",
		ID:        bc.id,
		CompanyID: CompanyID,
		Payload:   hex.EncodeToString(payload),
	}
	data, err := json.Marshal(cmd)
	if err != nil {
		b.release(bc)
		return nil, fmt.Errorf("radio: marshal start command: %w", err)
	}

	if err := b.bus.Publish(b.topics.BridgeAdvertise(), data, advertiseQoS, false); err != nil {
		b.release(bc)
		return nil, fmt.Errorf("radio: publish start command: %w", err)
	}

	return bc, nil
}

// Close unsubscribes from the status topic and closes any open
// broadcast.
func (b *Bridge) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	active := b.active
	b.mu.Unlock()

	if active != nil {
		if err := active.Close(); err != nil {
			return err
		}
	}

	if err := b.bus.Unsubscribe(b.topics.BridgeStatus()); err != nil {
		return fmt.Errorf("radio: unsubscribe bridge status: %w", err)
	}
	return nil
}

// handleStatus matches bridge confirmations to pending broadcasts.
func (b *Bridge) handleStatus(_ string, payload []byte) error {
	var status bridgeStatus
	if err := json.Unmarshal(payload, &status); err != nil {
		return fmt.Errorf("radio: decode bridge status: %w", err)
	}

	b.mu.Lock()
	bc, ok := b.pending[status.ID]
	b.mu.Unlock()
	if !ok {
		return nil // stale or foreign confirmation
	}

	switch status.State {
	case "advertising":
		bc.startOnce.Do(func() { close(bc.started) })
	case "stopped", "error":
		// The broadcast never becomes startable. Report the failure so
		// waiters do not mistake it for a confirmation, and forget the
		// ID.
		reason := fmt.Errorf("radio: bridge reported %s", status.State)
		if status.Error != "" {
			reason = fmt.Errorf("radio: bridge reported %s: %s", status.State, status.Error)
		}
		bc.fail(reason)
		b.mu.Lock()
		delete(b.pending, status.ID)
		b.mu.Unlock()
	}

	return nil
}

// release drops a broadcast that failed before the start command was
// published.
func (b *Bridge) release(bc *bridgeBroadcast) {
	b.mu.Lock()
	if b.active == bc {
		b.active = nil
	}
	delete(b.pending, bc.id)
	b.mu.Unlock()
}

type bridgeBroadcast struct {
	parent    *Bridge
	id        string
	started   chan struct{}
	startOnce sync.Once
	failed    chan struct{}
	failOnce  sync.Once
	failErr   error
	closeOnce sync.Once
	closeErr  error
}

func (bc *bridgeBroadcast) Started() <-chan struct{} {
	return bc.started
}

func (bc *bridgeBroadcast) Failed() <-chan struct{} {
	return bc.failed
}

// Err returns the failure reason. Valid once Failed() is closed.
func (bc *bridgeBroadcast) Err() error {
	return bc.failErr
}

func (bc *bridgeBroadcast) fail(err error) {
	bc.failOnce.Do(func() {
		bc.failErr = err
		close(bc.failed)
	})
}

// Close publishes a stop command for this broadcast.
func (bc *bridgeBroadcast) Close() error {
	bc.closeOnce.Do(func() {
		// A waiter still blocked on the start signal learns the
		// broadcast is gone rather than seeing a phantom confirmation.
		bc.fail(ErrClosed)

		b := bc.parent
		b.mu.Lock()
		if b.active == bc {
			b.active = nil
		}
		delete(b.pending, bc.id)
		b.mu.Unlock()

		cmd := advertiseCommand{
			Action: "stop",
			ID:     bc.id,
		}
		data, err := json.Marshal(cmd)
		if err != nil {
			bc.closeErr = fmt.Errorf("radio: marshal stop command: %w", err)
			return
		}
		if err := b.bus.Publish(b.topics.BridgeAdvertise(), data, advertiseQoS, false); err != nil {
			bc.closeErr = fmt.Errorf("radio: publish stop command: %w", err)
		}
	})
	return bc.closeErr
}
