package llm

import (
	"strings"
	"testing"
)

func TestNativeParserExtract(t *testing.T) {
	msg := &CompletionMessage{
		Role: "assistant",
		ToolCalls: []WireToolCall{
			{ID: "1", Type: "function", Function: FunctionCall{Name: "show_widget", Arguments: `{"widget":"metronome"}`}},
			{ID: "2", Type: "function", Function: FunctionCall{Name: "broken", Arguments: `{not json`}},
		},
	}
	calls := NativeParser{}.Extract(msg)
	if len(calls) != 1 {
		t.Fatalf("got %d calls, want 1 (malformed arguments skipped)", len(calls))
	}
	if calls[0].Name != "show_widget" || calls[0].Arguments["widget"] != "metronome" {
		t.Errorf("call = %+v", calls[0])
	}
}

func TestTaggedJSONParserExtract(t *testing.T) {
	msg := &CompletionMessage{Content: `Let me check.
<tool_call>{"name": "request_recording", "arguments": {"prompt": "Play the C major scale", "max_duration": 30}}</tool_call>
<tool_call>{"name": "show_widget", "arguments": {"widget": "metronome"}}</tool_call>`}

	calls := TaggedJSONParser{}.Extract(msg)
	if len(calls) != 2 {
		t.Fatalf("got %d calls, want 2", len(calls))
	}
	if calls[0].Name != "request_recording" {
		t.Errorf("first call = %q, want order preserved", calls[0].Name)
	}
	if calls[0].Arguments["max_duration"] != float64(30) {
		t.Errorf("max_duration = %v", calls[0].Arguments["max_duration"])
	}
	if calls[1].Name != "show_widget" {
		t.Errorf("second call = %q", calls[1].Name)
	}
}

func TestTaggedJSONParserMalformed(t *testing.T) {
	msg := &CompletionMessage{Content: `<tool_call>{"name": broken}</tool_call> sorry`}
	if calls := (TaggedJSONParser{}).Extract(msg); len(calls) != 0 {
		t.Fatalf("got %d calls, want 0 for malformed JSON", len(calls))
	}
}

func TestTaggedJSONParserStrip(t *testing.T) {
	text := `Before <tool_call>{"name":"x","arguments":{}}</tool_call> after`
	stripped := TaggedJSONParser{}.Strip(text)
	if strings.Contains(stripped, "tool_call") || strings.Contains(stripped, "{") {
		t.Errorf("stripped = %q", stripped)
	}
	// broken opening marker gets cleaned up too
	stripped = TaggedJSONParser{}.Strip("text <tool_call>{half a call")
	if strings.Contains(stripped, "<tool_call>") {
		t.Errorf("stripped = %q, want broken marker removed", stripped)
	}
}

func TestKeyValueParserExtract(t *testing.T) {
	msg := &CompletionMessage{Content: `Here you go.
TOOL_CALL
tool: render_midi
tempo: 90
midi_text: |
  C4 quarter
  D4 quarter
  E4 half
END_TOOL_CALL`}

	calls := KeyValueParser{}.Extract(msg)
	if len(calls) != 1 {
		t.Fatalf("got %d calls, want 1", len(calls))
	}
	call := calls[0]
	if call.Name != "render_midi" {
		t.Errorf("name = %q", call.Name)
	}
	if call.Arguments["tempo"] != float64(90) {
		t.Errorf("tempo = %v (%T), want numeric coercion", call.Arguments["tempo"], call.Arguments["tempo"])
	}
	want := "C4 quarter\nD4 quarter\nE4 half"
	if call.Arguments["midi_text"] != want {
		t.Errorf("midi_text = %q, want %q", call.Arguments["midi_text"], want)
	}
}

func TestKeyValueParserUnterminatedBlock(t *testing.T) {
	msg := &CompletionMessage{Content: "TOOL_CALL\ntool: show_widget\nwidget: tuner"}
	if calls := (KeyValueParser{}).Extract(msg); len(calls) != 0 {
		t.Fatalf("got %d calls, want 0 for missing END_TOOL_CALL", len(calls))
	}
}

func TestKeyValueParserStrip(t *testing.T) {
	text := "Listen to this:\nTOOL_CALL\ntool: render_midi\nEND_TOOL_CALL\nDone."
	stripped := KeyValueParser{}.Strip(text)
	if stripped != "Listen to this:\nDone." {
		t.Errorf("stripped = %q", stripped)
	}
}

func TestHybridParserPrecedence(t *testing.T) {
	p := NewHybridParser()

	// structured field wins over markup in the content
	msg := &CompletionMessage{
		Content:   `<tool_call>{"name": "from_text", "arguments": {}}</tool_call>`,
		ToolCalls: []WireToolCall{{Function: FunctionCall{Name: "from_field", Arguments: "{}"}}},
	}
	calls := p.Extract(msg)
	if len(calls) != 1 || calls[0].Name != "from_field" {
		t.Fatalf("calls = %+v, want structured field to win", calls)
	}

	// falls through to key:value blocks when nothing else matches
	msg = &CompletionMessage{Content: "TOOL_CALL\ntool: show_widget\nwidget: tuner\nEND_TOOL_CALL"}
	calls = p.Extract(msg)
	if len(calls) != 1 || calls[0].Name != "show_widget" {
		t.Fatalf("calls = %+v, want key:value fallback", calls)
	}

	if calls := p.Extract(&CompletionMessage{Content: "just words"}); calls != nil {
		t.Errorf("calls = %+v, want nil for plain text", calls)
	}
}
