package websocket

import "time"

// MessageType defines the type of WebSocket message
type MessageType string

const (
	// Device-related messages
	MessageTypeDeviceSaved   MessageType = "device_saved"
	MessageTypeDeviceDeleted MessageType = "device_deleted"

	// Edit session messages
	MessageTypeSessionSubmitted MessageType = "session_submitted"

	// System messages
	MessageTypeSystemStatus MessageType = "system_status"
)

// Message represents a WebSocket message
type Message struct {
	Type      MessageType `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
}

// DeviceEventData identifies the device a change refers to
type DeviceEventData struct {
	DeviceID   string `json:"device_id"`
	Name       string `json:"name,omitempty"`
	DeviceType string `json:"device_type,omitempty"`
}

// SessionEventData links a submitted session to the saved device
type SessionEventData struct {
	SessionID string `json:"session_id"`
	DeviceID  string `json:"device_id"`
}

// NewMessage creates a new message with current timestamp
func NewMessage(msgType MessageType, data interface{}) Message {
	return Message{
		Type:      msgType,
		Timestamp: time.Now(),
		Data:      data,
	}
}

func NewDeviceSavedMessage(deviceID, name, deviceType string) Message {
	return NewMessage(MessageTypeDeviceSaved, DeviceEventData{
		DeviceID:   deviceID,
		Name:       name,
		DeviceType: deviceType,
	})
}

func NewDeviceDeletedMessage(deviceID string) Message {
	return NewMessage(MessageTypeDeviceDeleted, DeviceEventData{DeviceID: deviceID})
}

func NewSessionSubmittedMessage(sessionID, deviceID string) Message {
	return NewMessage(MessageTypeSessionSubmitted, SessionEventData{
		SessionID: sessionID,
		DeviceID:  deviceID,
	})
}

func NewSystemStatusMessage(status interface{}) Message {
	return NewMessage(MessageTypeSystemStatus, status)
}
