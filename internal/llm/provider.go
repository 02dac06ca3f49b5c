package llm

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"maestro/internal/tools"
)

// ToolProvider renders the tool catalog into the form a model family
// expects, and declares how the orchestrator must deliver it: injected into
// the prompt as text, passed as a structured API parameter, or both.
// The two booleans are independent — a provider may require both to
// reinforce tool-calling behavior on weaker models.
type ToolProvider interface {
	FormatToolInstructions() string
	FormatToolSchemas(catalogTools []*tools.Tool) string
	ToolCallExamples() string
	InjectsToolsAsText() bool
	PassesToolsAsParameter() bool
	GenerateToolSummary(catalogTools []*tools.Tool) string
}

// categoryOrder fixes the presentation order of tool categories in summaries
var categoryOrder = []tools.Category{
	tools.CategoryWidget,
	tools.CategoryRecording,
	tools.CategoryAudioAnalysis,
	tools.CategoryMIDI,
	tools.CategoryOther,
}

var categoryLabels = map[tools.Category]string{
	tools.CategoryWidget:        "Lesson widgets",
	tools.CategoryRecording:     "Recording",
	tools.CategoryAudioAnalysis: "Audio analysis",
	tools.CategoryMIDI:          "MIDI",
	tools.CategoryOther:         "Other",
}

// toolSummary renders a categorized, human-readable tool overview shared by
// all providers.
func toolSummary(catalogTools []*tools.Tool) string {
	byCategory := make(map[tools.Category][]*tools.Tool)
	for _, t := range catalogTools {
		byCategory[t.Category] = append(byCategory[t.Category], t)
	}

	var sb strings.Builder
	sb.WriteString("Available tools:\n")
	for _, cat := range categoryOrder {
		group := byCategory[cat]
		if len(group) == 0 {
			continue
		}
		fmt.Fprintf(&sb, "\n%s:\n", categoryLabels[cat])
		for _, t := range group {
			fmt.Fprintf(&sb, "- %s: %s\n", t.Name, t.Description)
		}
	}
	return sb.String()
}

// guidanceBlock collects the long-form usage guidance tools declare
func guidanceBlock(catalogTools []*tools.Tool) string {
	var sb strings.Builder
	for _, t := range catalogTools {
		if t.Guidance != "" {
			fmt.Fprintf(&sb, "%s: %s\n", t.Name, t.Guidance)
		}
	}
	return sb.String()
}

// ─────────────────────────────────────────────────────────────────────────────
// XML provider — fenced JSON schema array wrapped in <tools>, Hermes-style
// <tool_call> invocation convention. Used by Qwen/Llama-family models.

type XMLToolProvider struct{}

func (XMLToolProvider) FormatToolInstructions() string {
	return "You may call tools to run the lesson. To call a tool, reply with a " +
		"<tool_call> block containing a JSON object with \"name\" and \"arguments\". " +
		"Emit one block per call and nothing else inside the block. " +
		"After a tool responds you will see its result and can continue."
}

func (XMLToolProvider) FormatToolSchemas(catalogTools []*tools.Tool) string {
	schemas := make([]map[string]interface{}, 0, len(catalogTools))
	for _, t := range catalogTools {
		schemas = append(schemas, t.Schema())
	}
	encoded, err := json.MarshalIndent(schemas, "", "  ")
	if err != nil {
		return ""
	}
	var sb strings.Builder
	sb.WriteString("<tools>\n")
	sb.Write(encoded)
	sb.WriteString("\n</tools>\n")
	if g := guidanceBlock(catalogTools); g != "" {
		sb.WriteString("\nTool usage notes:\n")
		sb.WriteString(g)
	}
	return sb.String()
}

func (XMLToolProvider) ToolCallExamples() string {
	return "Example:\n" +
		"<tool_call>{\"name\": \"request_recording\", \"arguments\": " +
		"{\"prompt\": \"Play the C major scale slowly\", \"max_duration\": 30}}</tool_call>"
}

func (XMLToolProvider) InjectsToolsAsText() bool     { return true }
func (XMLToolProvider) PassesToolsAsParameter() bool { return false }

func (XMLToolProvider) GenerateToolSummary(catalogTools []*tools.Tool) string {
	return toolSummary(catalogTools)
}

// ─────────────────────────────────────────────────────────────────────────────
// Block provider — minimal key:value rendering for small models that cannot
// emit reliable JSON. Injects text AND passes the structured parameter so
// tool-calling is doubly reinforced.

type BlockToolProvider struct{}

func (BlockToolProvider) FormatToolInstructions() string {
	return "To use a tool, write a block of exactly this shape:\n" +
		"TOOL_CALL\n" +
		"tool: <tool name>\n" +
		"<argument>: <value>\n" +
		"END_TOOL_CALL\n" +
		"For multi-line values (like midi_text), write '<argument>: |' and indent " +
		"each following line by two spaces."
}

func (BlockToolProvider) FormatToolSchemas(catalogTools []*tools.Tool) string {
	var sb strings.Builder
	for _, t := range catalogTools {
		fmt.Fprintf(&sb, "%s: %s\n", t.Name, t.Description)
		props, _ := t.Parameters["properties"].(map[string]interface{})
		required := requiredSet(t.Parameters)
		names := make([]string, 0, len(props))
		for name := range props {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			prop, _ := props[name].(map[string]interface{})
			desc, _ := prop["description"].(string)
			marker := ""
			if required[name] {
				marker = " (required)"
			}
			fmt.Fprintf(&sb, "  %s%s: %s\n", name, marker, desc)
		}
	}
	if g := guidanceBlock(catalogTools); g != "" {
		sb.WriteString("\nTool usage notes:\n")
		sb.WriteString(g)
	}
	return sb.String()
}

func requiredSet(parameters map[string]interface{}) map[string]bool {
	set := make(map[string]bool)
	switch req := parameters["required"].(type) {
	case []string:
		for _, name := range req {
			set[name] = true
		}
	case []interface{}:
		for _, name := range req {
			if s, ok := name.(string); ok {
				set[s] = true
			}
		}
	}
	return set
}

func (BlockToolProvider) ToolCallExamples() string {
	return "Example:\n" +
		"TOOL_CALL\n" +
		"tool: render_midi\n" +
		"tempo: 90\n" +
		"midi_text: |\n" +
		"  C4 quarter\n" +
		"  D4 quarter\n" +
		"  E4 half\n" +
		"END_TOOL_CALL"
}

func (BlockToolProvider) InjectsToolsAsText() bool     { return true }
func (BlockToolProvider) PassesToolsAsParameter() bool { return true }

func (BlockToolProvider) GenerateToolSummary(catalogTools []*tools.Tool) string {
	return toolSummary(catalogTools)
}

// ─────────────────────────────────────────────────────────────────────────────
// Native provider — the backend's own templating injects schemas; nothing is
// rendered into the prompt.

type NativeToolProvider struct{}

func (NativeToolProvider) FormatToolInstructions() string                  { return "" }
func (NativeToolProvider) FormatToolSchemas(_ []*tools.Tool) string        { return "" }
func (NativeToolProvider) ToolCallExamples() string                        { return "" }
func (NativeToolProvider) InjectsToolsAsText() bool                        { return false }
func (NativeToolProvider) PassesToolsAsParameter() bool                    { return true }
func (NativeToolProvider) GenerateToolSummary(ts []*tools.Tool) string     { return toolSummary(ts) }
