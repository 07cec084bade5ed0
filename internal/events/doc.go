// Package events fans scheduler events out to observers.
//
// The scheduler reports session lifecycle changes and individual
// transmissions through a narrow sink interface. Fanout implements that
// sink and forwards each event to whichever observers are configured:
// the WebSocket hub for live dashboards, InfluxDB for telemetry, and
// the MQTT bus for external automations.
package events
