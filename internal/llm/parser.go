package llm

import (
	"encoding/json"
	"log"
	"strconv"
	"strings"
)

// ToolCallRequest is one extracted tool invocation, in the order it
// appeared in the model output.
type ToolCallRequest struct {
	Name      string
	Arguments map[string]interface{}
}

// ToolCallParser extracts structured tool calls from a model response.
// Malformed tool-call markup never produces an error — it yields zero calls
// so the turn loop falls back to plain-text treatment, and Strip performs a
// best-effort cleanup of the broken markers for the user-visible message.
type ToolCallParser interface {
	Extract(msg *CompletionMessage) []ToolCallRequest
	Strip(text string) string
}

// ─────────────────────────────────────────────────────────────────────────────
// Native parser — the backend already returned a structured tool_calls field

// NativeParser validates the structured tool_calls array some backends
// return alongside the message content.
type NativeParser struct{}

func (NativeParser) Extract(msg *CompletionMessage) []ToolCallRequest {
	var calls []ToolCallRequest
	for _, tc := range msg.ToolCalls {
		if tc.Function.Name == "" {
			continue
		}
		args := map[string]interface{}{}
		if tc.Function.Arguments != "" {
			if err := json.Unmarshal([]byte(tc.Function.Arguments), &args); err != nil {
				log.Printf("⚠️  [PARSE] Dropping tool call %s: bad arguments JSON: %v", tc.Function.Name, err)
				continue
			}
		}
		calls = append(calls, ToolCallRequest{Name: tc.Function.Name, Arguments: args})
	}
	return calls
}

func (NativeParser) Strip(text string) string { return text }

// ─────────────────────────────────────────────────────────────────────────────
// Tagged-JSON parser — <tool_call>{"name": ..., "arguments": {...}}</tool_call>

const (
	toolCallOpen  = "<tool_call>"
	toolCallClose = "</tool_call>"
)

// TaggedJSONParser scans for <tool_call> delimiter pairs and parses the
// JSON object inside each.
type TaggedJSONParser struct{}

type taggedCall struct {
	Name      string                 `json:"name"`
	Arguments map[string]interface{} `json:"arguments"`
}

func (TaggedJSONParser) Extract(msg *CompletionMessage) []ToolCallRequest {
	var calls []ToolCallRequest
	text := msg.Content
	for {
		start := strings.Index(text, toolCallOpen)
		if start < 0 {
			break
		}
		end := strings.Index(text[start+len(toolCallOpen):], toolCallClose)
		if end < 0 {
			break
		}
		body := text[start+len(toolCallOpen) : start+len(toolCallOpen)+end]
		text = text[start+len(toolCallOpen)+end+len(toolCallClose):]

		var call taggedCall
		if err := json.Unmarshal([]byte(strings.TrimSpace(body)), &call); err != nil || call.Name == "" {
			log.Printf("⚠️  [PARSE] Skipping malformed <tool_call> block: %v", err)
			continue
		}
		if call.Arguments == nil {
			call.Arguments = map[string]interface{}{}
		}
		calls = append(calls, ToolCallRequest{Name: call.Name, Arguments: call.Arguments})
	}
	return calls
}

func (TaggedJSONParser) Strip(text string) string {
	for {
		start := strings.Index(text, toolCallOpen)
		if start < 0 {
			break
		}
		end := strings.Index(text[start+len(toolCallOpen):], toolCallClose)
		if end < 0 {
			// broken marker: drop just the opening tag
			text = text[:start] + text[start+len(toolCallOpen):]
			continue
		}
		text = text[:start] + text[start+len(toolCallOpen)+end+len(toolCallClose):]
	}
	return strings.TrimSpace(strings.ReplaceAll(text, toolCallClose, ""))
}

// ─────────────────────────────────────────────────────────────────────────────
// Key:value block parser — TOOL_CALL / END_TOOL_CALL with simple lines

const (
	blockOpen  = "TOOL_CALL"
	blockClose = "END_TOOL_CALL"
)

// KeyValueParser scans TOOL_CALL/END_TOOL_CALL blocks containing
// "key: value" lines. A value of "|" starts a block scalar: all following
// indented lines belong to that key, which lets payloads like text-format
// MIDI carry embedded newlines.
type KeyValueParser struct{}

func (KeyValueParser) Extract(msg *CompletionMessage) []ToolCallRequest {
	var calls []ToolCallRequest
	lines := strings.Split(msg.Content, "\n")
	for i := 0; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) != blockOpen {
			continue
		}
		call, next, ok := parseKeyValueBlock(lines, i+1)
		i = next
		if !ok {
			log.Printf("⚠️  [PARSE] Skipping malformed TOOL_CALL block")
			continue
		}
		calls = append(calls, call)
	}
	return calls
}

// parseKeyValueBlock consumes lines from start until END_TOOL_CALL.
// Returns the call, the index of the last consumed line, and validity.
func parseKeyValueBlock(lines []string, start int) (ToolCallRequest, int, bool) {
	call := ToolCallRequest{Arguments: map[string]interface{}{}}
	i := start
	for ; i < len(lines); i++ {
		line := lines[i]
		if strings.TrimSpace(line) == blockClose {
			return call, i, call.Name != ""
		}
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		key, value, found := strings.Cut(trimmed, ":")
		if !found {
			return call, i, false
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)

		if value == "|" {
			// block scalar: consume indented lines verbatim
			var block []string
			for i+1 < len(lines) {
				next := lines[i+1]
				if strings.TrimSpace(next) == blockClose || (next != "" && !strings.HasPrefix(next, "  ")) {
					break
				}
				block = append(block, strings.TrimPrefix(next, "  "))
				i++
			}
			value = strings.Join(block, "\n")
			if key == "tool" {
				return call, i, false
			}
			call.Arguments[key] = value
			continue
		}

		if key == "tool" {
			call.Name = value
			continue
		}
		call.Arguments[key] = coerceScalar(value)
	}
	// ran out of lines without END_TOOL_CALL
	return call, i, false
}

// coerceScalar converts unambiguous numeric/boolean strings
func coerceScalar(value string) interface{} {
	if b, err := strconv.ParseBool(value); err == nil {
		return b
	}
	if n, err := strconv.ParseFloat(value, 64); err == nil {
		return n
	}
	return value
}

func (KeyValueParser) Strip(text string) string {
	lines := strings.Split(text, "\n")
	var kept []string
	inBlock := false
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		switch {
		case trimmed == blockOpen:
			inBlock = true
		case trimmed == blockClose:
			inBlock = false
		case !inBlock:
			kept = append(kept, line)
		}
	}
	return strings.TrimSpace(strings.Join(kept, "\n"))
}

// ─────────────────────────────────────────────────────────────────────────────
// Hybrid parser — fixed precedence, first strategy with a valid call wins

// HybridParser tries its strategies in order and returns the result of the
// first one that extracts at least one syntactically valid call.
type HybridParser struct {
	Strategies []ToolCallParser
}

// NewHybridParser builds the default precedence: structured field first,
// then tagged JSON, then key:value blocks.
func NewHybridParser() HybridParser {
	return HybridParser{Strategies: []ToolCallParser{
		NativeParser{},
		TaggedJSONParser{},
		KeyValueParser{},
	}}
}

func (p HybridParser) Extract(msg *CompletionMessage) []ToolCallRequest {
	for _, s := range p.Strategies {
		if calls := s.Extract(msg); len(calls) > 0 {
			return calls
		}
	}
	return nil
}

func (p HybridParser) Strip(text string) string {
	for _, s := range p.Strategies {
		text = s.Strip(text)
	}
	return text
}
