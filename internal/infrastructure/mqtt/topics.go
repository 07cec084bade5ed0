package mqtt

// Topic prefixes for the VibeLink MQTT hierarchy.
//
// Flat scheme: vibelink/{category}/...
const (
	// TopicPrefix is the base for all VibeLink topics.
	TopicPrefix = "vibelink"

	// TopicPrefixSystem is the base for system topics.
	TopicPrefixSystem = "vibelink/system"

	// TopicPrefixBridge is the base for BLE bridge topics.
	TopicPrefixBridge = "vibelink/bridge/ble"
)

// Topics provides builders for VibeLink MQTT topics.
// Using these helpers ensures consistent topic naming across the codebase.
//
//	topics := mqtt.Topics{}
//	topics.BridgeAdvertise() // "vibelink/bridge/ble/advertise"
type Topics struct{}

// SystemStatus returns the topic carrying Core's online/offline status.
// The broker retains the last message; the LWT publishes here on crash.
func (Topics) SystemStatus() string {
	return TopicPrefixSystem + "/status"
}

// ControlCommand returns the topic remote producers publish control
// commands to (send, continuous, pattern, stop).
func (Topics) ControlCommand() string {
	return TopicPrefix + "/command/control"
}

// BridgeAdvertise returns the topic carrying broadcast start/stop
// commands to the BLE advertising bridge.
func (Topics) BridgeAdvertise() string {
	return TopicPrefixBridge + "/advertise"
}

// BridgeStatus returns the topic the BLE bridge reports broadcast
// lifecycle updates on (started, stopped, failed).
func (Topics) BridgeStatus() string {
	return TopicPrefixBridge + "/status"
}

// Event returns the topic for a scheduler or pattern event channel.
//
// Example: vibelink/event/session.started
func (Topics) Event(channel string) string {
	return TopicPrefix + "/event/" + channel
}
