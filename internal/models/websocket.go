package models

import (
	"sync"
	"time"

	"github.com/gofiber/contrib/websocket"
	"golang.org/x/time/rate"
)

// ClientMessage represents a message from the client
type ClientMessage struct {
	Type        string `json:"type"` // "message", "audio_ready", "cancel_recording", "ping"
	SessionID   string `json:"session_id,omitempty"`
	Content     string `json:"content,omitempty"`
	RecordingID string `json:"recording_id,omitempty"` // for "audio_ready" / "cancel_recording"
	ModelID     string `json:"model_id,omitempty"`     // optional model selection
	Format      string `json:"format,omitempty"`       // explicit tool-format override ("auto" default)
}

// ServerMessage represents a message sent to the client
type ServerMessage struct {
	Type         string                 `json:"type"` // "connected", "response", "tool_call", "tool_result", "error", "recording_cancelled", "pong"
	SessionID    string                 `json:"session_id,omitempty"`
	Content      string                 `json:"content,omitempty"`
	ToolName     string                 `json:"tool_name,omitempty"`
	Arguments    map[string]interface{} `json:"arguments,omitempty"`
	Result       string                 `json:"result,omitempty"`
	RecordingID  string                 `json:"recording_id,omitempty"`
	ErrorCode    string                 `json:"code,omitempty"`
	ErrorMessage string                 `json:"message,omitempty"`
}

// UserConnection represents a single WebSocket connection. One connection
// carries one or more tutoring sessions sequentially.
type UserConnection struct {
	ConnID    string
	Conn      *websocket.Conn
	SessionID string
	ModelID   string
	Format    string
	CreatedAt time.Time
	WriteChan chan ServerMessage
	TurnRate  *rate.Limiter // per-connection turn rate limit
	Mutex     sync.Mutex
	closed    bool
}

// SafeSend sends a message to WriteChan safely, returning false if the channel is closed
func (uc *UserConnection) SafeSend(msg ServerMessage) bool {
	uc.Mutex.Lock()
	if uc.closed {
		uc.Mutex.Unlock()
		return false
	}
	uc.Mutex.Unlock()

	// Use defer/recover to handle panic from send on closed channel
	defer func() {
		if r := recover(); r != nil {
			uc.Mutex.Lock()
			uc.closed = true
			uc.Mutex.Unlock()
		}
	}()

	uc.WriteChan <- msg
	return true
}

// MarkClosed marks the connection as closed
func (uc *UserConnection) MarkClosed() {
	uc.Mutex.Lock()
	uc.closed = true
	uc.Mutex.Unlock()
}

// IsClosed returns true if the connection has been marked as closed
func (uc *UserConnection) IsClosed() bool {
	uc.Mutex.Lock()
	defer uc.Mutex.Unlock()
	return uc.closed
}
