// Package mqtt provides the MQTT client for VibeLink Core.
//
// It wraps paho.mqtt.golang with connection lifecycle management, Last
// Will and Testament on vibelink/system/status, automatic re-subscription
// after reconnect, and panic-safe message handlers.
//
// Core uses MQTT for three things:
//   - Transporting broadcast start/stop commands to the BLE advertising
//     bridge (vibelink/bridge/ble/...)
//   - Accepting remote control commands (vibelink/command/control)
//   - Publishing scheduler and pattern events (vibelink/event/...)
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	err = client.Subscribe(mqtt.Topics{}.ControlCommand(), 1, handler)
//
// # Thread Safety
//
// All methods are safe for concurrent use from multiple goroutines.
package mqtt
