// Package radio provides the Bluetooth LE advertising primitives for
// VibeLink Core.
//
// The target device has no connection handshake: it reacts to manufacturer
// data carried in BLE advertising packets. Commanding the device therefore
// means opening a broadcast with the right payload, holding it for the
// desired duration, and closing it again.
//
// # Components
//
//   - Codec: maps intensity levels (0-9) to the fixed manufacturer-data
//     payloads the device firmware recognises
//   - Advertiser / Broadcast: the transmission abstraction the scheduler
//     drives; at most one broadcast is open at a time
//   - Bridge: an Advertiser that relays start/stop commands over MQTT to
//     a host-side BLE bridge process that owns the physical adapter
//   - Loopback: an in-process Advertiser for development and tests
//
// # Invariants
//
// Advertiser implementations must guarantee that Open does not return
// until any previous broadcast has been fully closed, and that exactly
// one of Broadcast.Started() and Broadcast.Failed() is closed first:
// Started() when the radio confirms the advertisement is on the air,
// Failed() when it reports the advertisement can never start.
package radio
