package models

import (
	"strings"
	"time"
)

// Role identifies who produced a conversation message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
	RoleThinking  Role = "thinking"
)

// AnalysisMarker tags message content that carries structured audio-analysis
// data. The preparer retains marked messages beyond the token cutoff and the
// enricher uses the marker to avoid double-injection.
const AnalysisMarker = "[AUDIO_ANALYSIS]"

// ToolCall is a model-emitted request to invoke a tool with arguments.
type ToolCall struct {
	ID        string                 `json:"id"`
	Name      string                 `json:"name"`
	Arguments map[string]interface{} `json:"arguments"`
}

// Message is a single entry in a session's conversation history.
type Message struct {
	Role       Role       `json:"role"`
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`   // assistant messages only
	ToolCallID string     `json:"tool_call_id,omitempty"` // tool messages only
	ToolName   string     `json:"tool_name,omitempty"`    // tool messages only
	Timestamp  int64      `json:"timestamp,omitempty"`    // unix milliseconds
}

// NewMessage builds a timestamped message.
func NewMessage(role Role, content string) Message {
	return Message{
		Role:      role,
		Content:   content,
		Timestamp: time.Now().UnixMilli(),
	}
}

// HasAnalysisContext reports whether the message carries audio-analysis data.
func (m Message) HasAnalysisContext() bool {
	return strings.Contains(m.Content, AnalysisMarker)
}

// ThinkingEntry is a derived, read-only view of one thinking message for
// introspection endpoints. Position is the index within the full history.
type ThinkingEntry struct {
	Text     string `json:"text"`
	Position int    `json:"position"`
	Preview  string `json:"preview"` // neighboring-message preview
}
