package webui

import (
	"time"
)

// Message types pushed over /ws.
const (
	MessageTypeOutput = "output"
	MessageTypeState  = "state"
	MessageTypeError  = "error"
)

// WSMessage is the envelope of every websocket frame.
type WSMessage struct {
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data,omitempty"`
}

// NewWSMessage stamps data with the current time.
func NewWSMessage(msgType string, data any) WSMessage {
	return WSMessage{
		Type:      msgType,
		Timestamp: time.Now(),
		Data:      data,
	}
}

// StateData reports the orchestrator state.
type StateData struct {
	State string `json:"state"`
	Busy  bool   `json:"busy"`
}

// ErrorData is a server-side problem not tied to a generation.
type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// NewOutputMessage wraps an output view.
func NewOutputMessage(v OutputView) WSMessage {
	return NewWSMessage(MessageTypeOutput, v)
}

// NewStateMessage wraps a state change.
func NewStateMessage(d StateData) WSMessage {
	return NewWSMessage(MessageTypeState, d)
}

// NewErrorMessage wraps an error report.
func NewErrorMessage(code, message string) WSMessage {
	return NewWSMessage(MessageTypeError, ErrorData{Code: code, Message: message})
}
