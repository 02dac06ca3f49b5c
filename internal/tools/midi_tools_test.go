package tools

import (
	"strings"
	"testing"
)

func TestParseNote(t *testing.T) {
	tests := []struct {
		name string
		midi int
		ok   bool
	}{
		{"C4", 60, true},
		{"A4", 69, true},
		{"C#4", 61, true},
		{"Bb3", 58, true},
		{"C0", 12, true},
		{"H4", 0, false},
		{"C", 0, false},
		{"C#x", 0, false},
	}
	for _, tt := range tests {
		midi, err := parseNote(tt.name)
		if tt.ok && (err != nil || midi != tt.midi) {
			t.Errorf("parseNote(%q) = (%d, %v), want %d", tt.name, midi, err, tt.midi)
		}
		if !tt.ok && err == nil {
			t.Errorf("parseNote(%q) = %d, want error", tt.name, midi)
		}
	}
}

func TestParseMIDIText(t *testing.T) {
	events, err := parseMIDIText("C4 quarter\n\n# a comment\nD4 eighth\nE4 half")
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 3 {
		t.Fatalf("got %d events", len(events))
	}
	if events[1].StartBeat != 1 {
		t.Errorf("second event starts at %v, want 1", events[1].StartBeat)
	}
	if events[2].StartBeat != 1.5 {
		t.Errorf("third event starts at %v, want 1.5", events[2].StartBeat)
	}
}

func TestParseMIDITextErrors(t *testing.T) {
	if _, err := parseMIDIText(""); err == nil {
		t.Error("want error for empty input")
	}
	if _, err := parseMIDIText("C4 foo"); err == nil {
		t.Error("want error for unknown duration")
	}
	if _, err := parseMIDIText("C4 quarter extra"); err == nil {
		t.Error("want error for malformed line")
	}
}

func TestRenderMIDITool(t *testing.T) {
	c := NewMIDICollection()
	result := c.CallTool("render_midi", map[string]interface{}{
		"midi_text": "C4 quarter\nD4 quarter",
		"tempo":     float64(120),
	})
	if result["status"] != "midi_rendered" {
		t.Fatalf("result = %v", result)
	}
	if result["duration_seconds"] != 1.0 {
		t.Errorf("duration_seconds = %v, want 1 (2 beats at 120 BPM)", result["duration_seconds"])
	}

	// out-of-range tempo is a hard error, not silently clamped
	result = c.CallTool("render_midi", map[string]interface{}{
		"midi_text": "C4 quarter",
		"tempo":     float64(500),
	})
	if isErr, _ := result["error"].(bool); !isErr {
		t.Fatalf("result = %v, want error payload", result)
	}
}

func TestRenderMIDIBadInputIsPayloadNotError(t *testing.T) {
	c := NewMIDICollection()
	result := c.CallTool("parse_midi_text", map[string]interface{}{
		"midi_text": "not notes at all",
	})
	if isErr, _ := result["error"].(bool); !isErr {
		t.Fatalf("result = %v, want structured error the model can read", result)
	}
	if result["error_type"] != "invalid_midi_text" {
		t.Errorf("error_type = %v", result["error_type"])
	}
}

func TestGenerateExercise(t *testing.T) {
	c := NewMIDICollection()
	result := c.CallTool("generate_exercise", map[string]interface{}{
		"root":    "C4",
		"pattern": "major",
	})
	if result["status"] != "exercise_generated" {
		t.Fatalf("result = %v", result)
	}
	midiText, _ := result["midi_text"].(string)
	lines := strings.Split(strings.TrimSpace(midiText), "\n")
	// 8 ascending + 7 descending for a full octave there-and-back
	if len(lines) != 15 {
		t.Errorf("got %d notes, want 15: %q", len(lines), midiText)
	}
	if !strings.HasPrefix(lines[0], "C4") {
		t.Errorf("first line = %q", lines[0])
	}
	if !strings.HasPrefix(lines[len(lines)-1], "C4") {
		t.Errorf("last line = %q, want descent back to the root", lines[len(lines)-1])
	}
}
