package events

import (
	"encoding/json"
	"time"

	"github.com/vibelink/vibelink-core/internal/infrastructure/influxdb"
	"github.com/vibelink/vibelink-core/internal/infrastructure/mqtt"
	"github.com/vibelink/vibelink-core/internal/scheduler"
)

// eventQoS is the QoS for outbound event publications. Fire-and-forget;
// events are observability, not control.
const eventQoS = 0

// Broadcaster pushes an event to connected WebSocket clients. *api.Hub
// satisfies it.
type Broadcaster interface {
	Broadcast(channel string, payload any)
}

// Publisher is the subset of the MQTT client the fanout needs.
// *mqtt.Client satisfies it.
type Publisher interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
}

// Logger is the subset of the logging interface the fanout uses.
type Logger interface {
	Debug(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}

// SessionEvent is the payload broadcast for session lifecycle changes.
type SessionEvent struct {
	Event      string         `json:"event"`
	Kind       scheduler.Kind `json:"kind"`
	Generation uint64         `json:"generation"`
	PatternID  string         `json:"pattern_id,omitempty"`
	Timestamp  string         `json:"timestamp"`
}

// TransmissionEvent is the payload broadcast for each payload sent to
// the radio.
type TransmissionEvent struct {
	Level      int            `json:"level"`
	DurationMS int64          `json:"duration_ms"`
	Kind       scheduler.Kind `json:"kind"`
	Generation uint64         `json:"generation"`
	Timestamp  string         `json:"timestamp"`
}

// Fanout distributes scheduler events to the WebSocket hub, the
// time-series store, and the MQTT bus. It implements
// scheduler.EventSink. Every sink is optional; a nil sink is skipped.
//
// Transmission events go to WebSocket and InfluxDB only. Continuous
// mode produces one transmission per tick and publishing each one to
// the broker would be noise for no consumer.
type Fanout struct {
	hub    Broadcaster
	tsdb   *influxdb.Client
	bus    Publisher
	topics mqtt.Topics
	log    Logger
}

// Option configures a Fanout.
type Option func(*Fanout)

// WithHub attaches a WebSocket broadcaster.
func WithHub(hub Broadcaster) Option {
	return func(f *Fanout) { f.hub = hub }
}

// WithTSDB attaches a time-series client.
func WithTSDB(tsdb *influxdb.Client) Option {
	return func(f *Fanout) { f.tsdb = tsdb }
}

// WithBus attaches an MQTT publisher for session events.
func WithBus(bus Publisher) Option {
	return func(f *Fanout) { f.bus = bus }
}

// WithLogger attaches a logger.
func WithLogger(log Logger) Option {
	return func(f *Fanout) {
		if log != nil {
			f.log = log
		}
	}
}

// NewFanout creates a fanout with the given sinks.
func NewFanout(opts ...Option) *Fanout {
	f := &Fanout{log: noopLogger{}}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Session distributes a session lifecycle event.
func (f *Fanout) Session(event string, kind scheduler.Kind, generation uint64, patternID string) {
	payload := SessionEvent{
		Event:      event,
		Kind:       kind,
		Generation: generation,
		PatternID:  patternID,
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
	}

	f.log.Debug("session event", "event", event, "kind", kind, "generation", generation)

	if f.hub != nil {
		f.hub.Broadcast("session", payload)
	}
	if f.tsdb != nil {
		f.tsdb.WriteSessionEvent(event, string(kind), generation)
	}
	if f.bus != nil {
		data, err := json.Marshal(payload)
		if err == nil {
			//nolint:errcheck // Fire-and-forget; a dropped event is not actionable
			f.bus.Publish(f.topics.Event("session"), data, eventQoS, false)
		}
	}
}

// Transmission distributes one transmission record.
func (f *Fanout) Transmission(level int, hold time.Duration, kind scheduler.Kind, generation uint64) {
	if f.hub != nil {
		f.hub.Broadcast("transmission", TransmissionEvent{
			Level:      level,
			DurationMS: hold.Milliseconds(),
			Kind:       kind,
			Generation: generation,
			Timestamp:  time.Now().UTC().Format(time.RFC3339),
		})
	}
	if f.tsdb != nil {
		f.tsdb.WriteTransmission(level, hold.Milliseconds(), string(kind), generation)
	}
}
