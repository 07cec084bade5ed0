package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/vibelink/vibelink-core/internal/infrastructure/mqtt"
	"github.com/vibelink/vibelink-core/internal/pattern"
	"github.com/vibelink/vibelink-core/internal/scheduler"
)

// controlQoS is the QoS for inbound control commands. At-least-once;
// the scheduler's supersession semantics make duplicate delivery
// harmless.
const controlQoS = 1

// maxSendDuration caps one-shot holds requested over the bus, mirroring
// the HTTP API's limit.
const maxSendDuration = 10 * time.Minute

// Bus is the subset of the MQTT client the listener needs. *mqtt.Client
// satisfies it.
type Bus interface {
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
	Unsubscribe(topic string) error
}

// Logger is the subset of the logging interface the listener uses.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Warn(string, ...any)  {}

// command is the wire format accepted on vibelink/command/control.
type command struct {
	Command    string `json:"command"` // "send", "continuous", "pattern", "stop"
	Level      int    `json:"level,omitempty"`
	DurationMS int64  `json:"duration_ms,omitempty"`
	PatternID  string `json:"pattern_id,omitempty"`
}

// Listener receives control commands over MQTT and dispatches them to
// the scheduler. It gives dashboards and automations the same control
// surface as the HTTP API without going through HTTP.
type Listener struct {
	bus       Bus
	scheduler *scheduler.Scheduler
	patterns  *pattern.Registry
	topics    mqtt.Topics
	log       Logger
}

// NewListener creates a listener. It does not subscribe until Start().
func NewListener(bus Bus, sched *scheduler.Scheduler, patterns *pattern.Registry) *Listener {
	return &Listener{
		bus:       bus,
		scheduler: sched,
		patterns:  patterns,
		log:       noopLogger{},
	}
}

// SetLogger attaches a logger. Safe to call before Start().
func (l *Listener) SetLogger(log Logger) {
	if log != nil {
		l.log = log
	}
}

// Start subscribes to the control command topic.
func (l *Listener) Start() error {
	if err := l.bus.Subscribe(l.topics.ControlCommand(), controlQoS, l.handleCommand); err != nil {
		return fmt.Errorf("remote: subscribe control commands: %w", err)
	}
	return nil
}

// Close unsubscribes from the control command topic.
func (l *Listener) Close() error {
	if l.bus == nil {
		return nil
	}
	if err := l.bus.Unsubscribe(l.topics.ControlCommand()); err != nil {
		return fmt.Errorf("remote: unsubscribe control commands: %w", err)
	}
	return nil
}

// handleCommand parses and dispatches one control message. Malformed
// messages are logged and dropped; returning an error here would only
// trigger broker-level retries that cannot fix a bad payload.
func (l *Listener) handleCommand(topic string, payload []byte) error {
	var cmd command
	if err := json.Unmarshal(payload, &cmd); err != nil {
		l.log.Warn("malformed control command", "topic", topic, "error", err)
		return nil
	}

	l.log.Debug("control command received", "command", cmd.Command)

	switch cmd.Command {
	case "send":
		l.dispatchSend(cmd)
	case "continuous":
		l.scheduler.StartContinuous(cmd.Level)
	case "pattern":
		l.dispatchPattern(cmd)
	case "stop":
		l.scheduler.StopAll()
	default:
		l.log.Warn("unknown control command", "command", cmd.Command)
	}

	return nil
}

// dispatchSend validates and launches a one-shot send in the background.
func (l *Listener) dispatchSend(cmd command) {
	hold := time.Duration(cmd.DurationMS) * time.Millisecond
	if hold <= 0 || hold > maxSendDuration {
		l.log.Warn("control send rejected", "duration_ms", cmd.DurationMS)
		return
	}

	go func() {
		err := l.scheduler.SendOnce(context.Background(), cmd.Level, hold)
		if err != nil && !errors.Is(err, scheduler.ErrSuperseded) {
			l.log.Warn("control send failed", "level", cmd.Level, "error", err)
		}
	}()
}

// dispatchPattern resolves a pattern and starts looping playback.
func (l *Listener) dispatchPattern(cmd command) {
	p, err := l.patterns.GetPattern(context.Background(), cmd.PatternID)
	if err != nil {
		l.log.Warn("control pattern not found", "pattern_id", cmd.PatternID, "error", err)
		return
	}

	l.scheduler.StartPattern(p.ID, p.SchedulerSteps())
}
