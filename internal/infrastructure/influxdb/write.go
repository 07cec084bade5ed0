package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// WriteTransmission records a single radio transmission.
//
// Every successfully opened broadcast produces one transmission point,
// whether it came from a one-shot send, a continuous tick, or a pattern
// step. The write is non-blocking; data is batched and sent asynchronously.
//
// Parameters:
//   - level: Intensity level transmitted (0-9)
//   - durationMS: Intended hold duration in milliseconds
//   - kind: Session kind ("once", "continuous", "pattern", "stop")
//   - generation: Scheduler generation the transmission belonged to
//
// Example:
//
//	client.WriteTransmission(5, 1500, "once", 42)
func (c *Client) WriteTransmission(level int, durationMS int64, kind string, generation uint64) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"transmission",
		map[string]string{
			"kind": kind,
		},
		map[string]interface{}{
			"level":       level,
			"duration_ms": durationMS,
			"generation":  int64(generation), // #nosec G115 -- generation fits int64 for practical lifetimes
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WriteSessionEvent records a session lifecycle event.
//
// Used for tracking session churn and preemption rates over time.
//
// Parameters:
//   - event: Event name ("started", "superseded", "stopped", "completed")
//   - kind: Session kind ("once", "continuous", "pattern")
//   - generation: Scheduler generation of the session
func (c *Client) WriteSessionEvent(event string, kind string, generation uint64) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"session_events",
		map[string]string{
			"event": event,
			"kind":  kind,
		},
		map[string]interface{}{
			"generation": int64(generation), // #nosec G115 -- generation fits int64 for practical lifetimes
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WritePatternMetric records a pattern playback measurement.
//
// Parameters:
//   - patternID: Pattern identifier
//   - metricName: Metric name (e.g., "cycles_completed", "steps_played")
//   - value: The metric value
func (c *Client) WritePatternMetric(patternID string, metricName string, value float64) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"pattern_metrics",
		map[string]string{
			"pattern_id": patternID,
			"metric":     metricName,
		},
		map[string]interface{}{
			"value": value,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WritePoint writes a custom point with full control over tags and fields.
//
// Use this for custom measurements that don't fit the helper methods.
//
// Parameters:
//   - measurement: The measurement name (table)
//   - tags: Key-value pairs for indexing (low cardinality)
//   - fields: Key-value pairs for the actual data
//
// Example:
//
//	client.WritePoint("system_stats",
//	    map[string]string{"host": "core-01"},
//	    map[string]interface{}{"cpu_percent": 45.2, "memory_mb": 512})
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, time.Now())
	c.writeAPI.WritePoint(point)
}

// WritePointWithTime writes a custom point with a specific timestamp.
//
// Use this when the timestamp is not "now" (e.g., delayed data).
//
// Parameters:
//   - measurement: The measurement name
//   - tags: Key-value pairs for indexing
//   - fields: Key-value pairs for the data
//   - timestamp: The exact time for this data point
func (c *Client) WritePointWithTime(measurement string, tags map[string]string, fields map[string]interface{}, timestamp time.Time) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, timestamp)
	c.writeAPI.WritePoint(point)
}
