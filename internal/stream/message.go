package stream

import (
	"encoding/json"
	"time"
)

// Server message types.
const (
	MessageOpportunity = "opportunity"
	MessageSnapshot    = "snapshot"
	MessagePong        = "pong"
	MessageError       = "error"
)

// Client message types.
const (
	MessageSubscribe   = "subscribe"
	MessageUnsubscribe = "unsubscribe"
	MessagePing        = "ping"
)

// Message is the envelope written to stream clients.
type Message struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// ClientMessage is a command sent by a stream client.
type ClientMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// ErrorData is the payload of an error message.
type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
