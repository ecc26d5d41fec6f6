package models

import "encoding/json"

// Realtime event names.
const (
	EventGetOnlineUsers = "getOnlineUsers"
	EventNewMessage     = "newMessage"
	EventMessagesRead   = "messagesRead"

	// EventMessageRead is sent by a client that has just read the messages of senderId.
	EventMessageRead = "messageRead"
)

// ServerEvent is pushed to websocket clients.
type ServerEvent struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// ClientEvent is received from websocket clients. Data is decoded per event.
type ClientEvent struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// ReadReceipt is the payload of messagesRead (server to sender) and of
// messageRead (client to server). On the way out SenderID holds the reader.
type ReadReceipt struct {
	SenderID string `json:"senderId"`
}
