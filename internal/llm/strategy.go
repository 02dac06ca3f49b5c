package llm

import (
	"fmt"
	"strings"
)

// Sampling holds the generation parameters a model family prefers
type Sampling struct {
	Temperature float64
	TopP        float64
	TopK        int
}

// Thinking configures a model family's private-reasoning mode
type Thinking struct {
	Enabled   bool
	Suffix    string // appended to the user message to request reasoning (e.g. "/think")
	MaxTokens int
}

// ModelStrategy bundles everything that differs between model families:
// how tools are rendered, how tool calls are parsed, sampling defaults,
// thinking mode, and which backend the family prefers.
type ModelStrategy struct {
	Family           string
	Provider         ToolProvider
	Parser           ToolCallParser
	Sampling         Sampling
	Thinking         Thinking
	PreferredBackend string
}

// Copy returns an isolated copy. Sampling and Thinking are value structs so
// a session mutating its copy can never perturb the template table; Provider
// and Parser are stateless and safely shared.
func (s *ModelStrategy) Copy() *ModelStrategy {
	copied := *s
	return &copied
}

// familyEntry pairs a model-identifier keyword with its strategy template.
// The list is ordered most specific first: a dotted-version family must come
// before its generic parent so "qwen2.5" wins over "qwen".
type familyEntry struct {
	keyword  string
	strategy ModelStrategy
}

// nativeKeywords identify models whose APIs do native structured tool calling
var nativeKeywords = []string{"gpt-4", "gpt-3.5", "gpt-4o", "o1", "o3", "claude", "gemini", "grok"}

var (
	qwen25Strategy = ModelStrategy{
		Family:   "qwen2.5",
		Provider: XMLToolProvider{},
		Parser:   TaggedJSONParser{},
		Sampling: Sampling{Temperature: 0.7, TopP: 0.8, TopK: 20},
		Thinking: Thinking{Enabled: true, Suffix: "/think", MaxTokens: 1024},
	}
	qwenStrategy = ModelStrategy{
		Family:   "qwen",
		Provider: XMLToolProvider{},
		Parser:   TaggedJSONParser{},
		Sampling: Sampling{Temperature: 0.7, TopP: 0.8, TopK: 20},
	}
	llamaStrategy = ModelStrategy{
		Family:   "llama",
		Provider: XMLToolProvider{},
		Parser:   NewHybridParser(),
		Sampling: Sampling{Temperature: 0.7, TopP: 0.9, TopK: 40},
	}
	gemmaStrategy = ModelStrategy{
		Family:   "gemma",
		Provider: BlockToolProvider{},
		Parser:   KeyValueParser{},
		Sampling: Sampling{Temperature: 0.8, TopP: 0.95, TopK: 64},
	}
	mistralStrategy = ModelStrategy{
		Family:   "mistral",
		Provider: XMLToolProvider{},
		Parser:   NewHybridParser(),
		Sampling: Sampling{Temperature: 0.7, TopP: 0.9, TopK: 40},
	}
	nativeStrategy = ModelStrategy{
		Family:   "native",
		Provider: NativeToolProvider{},
		Parser:   NativeParser{},
		Sampling: Sampling{Temperature: 0.7, TopP: 1.0},
	}
	defaultStrategy = ModelStrategy{
		Family:   "generic",
		Provider: XMLToolProvider{},
		Parser:   NewHybridParser(),
		Sampling: Sampling{Temperature: 0.7, TopP: 0.95, TopK: 40},
	}
)

// familyTable is the ordered keyword table for auto-detection. Built once,
// never mutated after init.
var familyTable = []familyEntry{
	{"qwen2.5", qwen25Strategy},
	{"qwen", qwenStrategy},
	{"llama", llamaStrategy},
	{"gemma", gemmaStrategy},
	{"mistral", mistralStrategy},
}

// formatOverrides maps explicit format keys to strategy templates
var formatOverrides = map[string]*ModelStrategy{
	"native": &nativeStrategy,
	"xml":    &qwenStrategy,
	"block":  &gemmaStrategy,
	"hybrid": &defaultStrategy,
}

// SelectStrategy resolves the strategy for a model identifier.
// Resolution order: explicit override (unless "auto") -> ordered family
// keyword match -> native tool-calling keyword set -> default family.
// The returned strategy is always a copy so per-session mutation is
// isolated from the template table. An unknown explicit override is a
// configuration error.
func SelectStrategy(modelID, formatOverride string) (*ModelStrategy, error) {
	if formatOverride != "" && formatOverride != "auto" {
		tmpl, ok := formatOverrides[strings.ToLower(formatOverride)]
		if !ok {
			return nil, fmt.Errorf("unknown model format %q (use auto, native, xml, block or hybrid)", formatOverride)
		}
		return tmpl.Copy(), nil
	}

	id := strings.ToLower(modelID)
	for _, entry := range familyTable {
		if strings.Contains(id, entry.keyword) {
			return entry.strategy.Copy(), nil
		}
	}
	for _, keyword := range nativeKeywords {
		if strings.Contains(id, keyword) {
			return nativeStrategy.Copy(), nil
		}
	}
	return defaultStrategy.Copy(), nil
}
