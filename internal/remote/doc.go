// Package remote exposes the control surface over MQTT.
//
// A Listener subscribes to the control command topic and dispatches
// JSON commands to the scheduler, mirroring the HTTP control endpoints:
//
//	{"command": "send", "level": 5, "duration_ms": 2000}
//	{"command": "continuous", "level": 3}
//	{"command": "pattern", "pattern_id": "..."}
//	{"command": "stop"}
//
// Commands arrive at QoS 1. Duplicate delivery is safe because every
// dispatch goes through the scheduler's supersession semantics.
package remote
