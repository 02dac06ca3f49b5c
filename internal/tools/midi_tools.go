package tools

import (
	"fmt"
	"strings"
)

// noteOffsets maps note letters to semitone offsets from C
var noteOffsets = map[byte]int{'C': 0, 'D': 2, 'E': 4, 'F': 5, 'G': 7, 'A': 9, 'B': 11}

// durationBeats maps duration names to lengths in beats
var durationBeats = map[string]float64{
	"whole":     4,
	"half":      2,
	"quarter":   1,
	"eighth":    0.5,
	"sixteenth": 0.25,
}

// scalePatterns maps exercise names to semitone interval sequences
var scalePatterns = map[string][]int{
	"major":          {0, 2, 4, 5, 7, 9, 11, 12},
	"natural_minor":  {0, 2, 3, 5, 7, 8, 10, 12},
	"chromatic":      {0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12},
	"major_arpeggio": {0, 4, 7, 12},
	"minor_arpeggio": {0, 3, 7, 12},
}

// MIDIEvent is one parsed note from text-format MIDI
type MIDIEvent struct {
	Note      string  `json:"note"`       // e.g. "C#4"
	MIDINote  int     `json:"midi_note"`  // 0-127
	Beats     float64 `json:"beats"`      // duration in beats
	StartBeat float64 `json:"start_beat"` // cumulative position
}

// MIDICollection owns the MIDI utilities: parsing the text-format notation
// the model emits (which may arrive as multi-line block values in tool
// calls), rendering it into a playable event list, and generating practice
// exercises.
type MIDICollection struct {
	baseCollection
}

// NewMIDICollection creates the MIDI tool collection
func NewMIDICollection() *MIDICollection {
	c := &MIDICollection{}
	c.name = "midi"
	c.tools = []*Tool{
		{
			Name:        "parse_midi_text",
			Description: "Validate and parse text-format MIDI (one '<note> <duration>' per line, e.g. 'C4 quarter')",
			Category:    CategoryMIDI,
			Parameters: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"midi_text": map[string]interface{}{
						"type":        "string",
						"description": "Lines of '<note><octave> <duration>'. Durations: whole, half, quarter, eighth, sixteenth.",
					},
				},
				"required": []string{"midi_text"},
			},
			Execute: executeParseMIDIText,
		},
		{
			Name:        "render_midi",
			Description: "Render text-format MIDI into a playable event list the client can sequence",
			Category:    CategoryMIDI,
			Parameters: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"midi_text": map[string]interface{}{
						"type":        "string",
						"description": "Text-format MIDI to render",
					},
					"tempo": map[string]interface{}{
						"type":        "number",
						"description": "Tempo in BPM",
						"default":     90,
					},
				},
				"required": []string{"midi_text"},
			},
			Guidance: "Use this to play melodies, scales and exercises for the student. " +
				"Keep rendered passages short; the client plays them immediately.",
			Execute: executeRenderMIDI,
		},
		{
			Name:        "generate_exercise",
			Description: "Generate a practice exercise (scale or arpeggio pattern) as text-format MIDI",
			Category:    CategoryMIDI,
			Parameters: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"root": map[string]interface{}{
						"type":        "string",
						"description": "Root note with octave, e.g. 'C4' or 'F#3'",
					},
					"pattern": map[string]interface{}{
						"type":        "string",
						"description": "Pattern: 'major', 'natural_minor', 'chromatic', 'major_arpeggio', 'minor_arpeggio'",
						"default":     "major",
					},
					"descending": map[string]interface{}{
						"type":        "boolean",
						"description": "Also include the descending half",
						"default":     true,
					},
				},
				"required": []string{"root"},
			},
			Execute: executeGenerateExercise,
		},
	}
	return c
}

// parseNote converts "C#4" style names into MIDI note numbers
func parseNote(name string) (int, error) {
	if len(name) < 2 {
		return 0, fmt.Errorf("invalid note %q", name)
	}
	offset, ok := noteOffsets[name[0]]
	if !ok {
		return 0, fmt.Errorf("invalid note letter in %q", name)
	}
	rest := name[1:]
	switch rest[0] {
	case '#':
		offset++
		rest = rest[1:]
	case 'b':
		offset--
		rest = rest[1:]
	}
	if len(rest) != 1 || rest[0] < '0' || rest[0] > '9' {
		return 0, fmt.Errorf("invalid octave in %q", name)
	}
	octave := int(rest[0] - '0')
	midi := (octave+1)*12 + offset
	if midi < 0 || midi > 127 {
		return 0, fmt.Errorf("note %q is out of MIDI range", name)
	}
	return midi, nil
}

// parseMIDIText parses the text format into an ordered event list
func parseMIDIText(text string) ([]MIDIEvent, error) {
	var events []MIDIEvent
	position := 0.0
	for lineNo, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 2 {
			return nil, fmt.Errorf("line %d: expected '<note> <duration>', got %q", lineNo+1, line)
		}
		midi, err := parseNote(fields[0])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo+1, err)
		}
		beats, ok := durationBeats[strings.ToLower(fields[1])]
		if !ok {
			return nil, fmt.Errorf("line %d: unknown duration %q", lineNo+1, fields[1])
		}
		events = append(events, MIDIEvent{
			Note:      fields[0],
			MIDINote:  midi,
			Beats:     beats,
			StartBeat: position,
		})
		position += beats
	}
	if len(events) == 0 {
		return nil, fmt.Errorf("no notes found in midi_text")
	}
	return events, nil
}

func executeParseMIDIText(args map[string]interface{}) (map[string]interface{}, error) {
	text := stringArg(args, "midi_text", "")
	events, err := parseMIDIText(text)
	if err != nil {
		return ErrorResult("invalid_midi_text", err.Error()), nil
	}
	total := 0.0
	for _, e := range events {
		total += e.Beats
	}
	return map[string]interface{}{
		"status":         "parsed",
		"events":         events,
		"note_count":     len(events),
		"duration_beats": total,
	}, nil
}

func executeRenderMIDI(args map[string]interface{}) (map[string]interface{}, error) {
	text := stringArg(args, "midi_text", "")
	tempo := floatArg(args, "tempo", 90)
	if tempo < 20 || tempo > 300 {
		return nil, fmt.Errorf("tempo %v is out of range (20-300 BPM)", tempo)
	}
	events, err := parseMIDIText(text)
	if err != nil {
		return ErrorResult("invalid_midi_text", err.Error()), nil
	}
	totalBeats := 0.0
	for _, e := range events {
		totalBeats += e.Beats
	}
	return map[string]interface{}{
		"status":           "midi_rendered",
		"events":           events,
		"tempo":            tempo,
		"duration_beats":   totalBeats,
		"duration_seconds": totalBeats * 60 / tempo,
	}, nil
}

func executeGenerateExercise(args map[string]interface{}) (map[string]interface{}, error) {
	root := stringArg(args, "root", "")
	pattern := stringArg(args, "pattern", "major")
	descending := true
	if v, ok := args["descending"].(bool); ok {
		descending = v
	}

	rootMIDI, err := parseNote(root)
	if err != nil {
		return nil, err
	}
	intervals, ok := scalePatterns[pattern]
	if !ok {
		return nil, fmt.Errorf("unknown pattern %q", pattern)
	}

	notes := make([]int, 0, len(intervals)*2)
	for _, iv := range intervals {
		notes = append(notes, rootMIDI+iv)
	}
	if descending {
		for i := len(intervals) - 2; i >= 0; i-- {
			notes = append(notes, rootMIDI+intervals[i])
		}
	}

	var sb strings.Builder
	for _, n := range notes {
		if n > 127 {
			return nil, fmt.Errorf("pattern from root %q exceeds the MIDI range", root)
		}
		fmt.Fprintf(&sb, "%s quarter\n", midiNoteName(n))
	}
	return map[string]interface{}{
		"status":    "exercise_generated",
		"pattern":   pattern,
		"root":      root,
		"midi_text": sb.String(),
	}, nil
}

var sharpNames = []string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

func midiNoteName(midi int) string {
	return fmt.Sprintf("%s%d", sharpNames[midi%12], midi/12-1)
}
