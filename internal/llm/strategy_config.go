package llm

import (
	"fmt"
	"log"
	"os"

	"gopkg.in/yaml.v3"
)

// samplingOverride is one family's entry in strategies.yaml
type samplingOverride struct {
	Temperature *float64 `yaml:"temperature"`
	TopP        *float64 `yaml:"top_p"`
	TopK        *int     `yaml:"top_k"`
	Thinking    *struct {
		Enabled   *bool  `yaml:"enabled"`
		Suffix    string `yaml:"suffix"`
		MaxTokens *int   `yaml:"max_tokens"`
	} `yaml:"thinking"`
}

// ApplyStrategyOverrides loads optional per-family sampling overrides from a
// YAML file and applies them to the strategy template table. Called once at
// startup, before any session selects a strategy. A missing file is not an
// error; a malformed one is fatal configuration.
func ApplyStrategyOverrides(path string) error {
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			log.Printf("⚙️  No strategies file at %s, using built-in defaults", path)
			return nil
		}
		return fmt.Errorf("failed to read strategies file: %w", err)
	}

	var overrides map[string]samplingOverride
	if err := yaml.Unmarshal(data, &overrides); err != nil {
		return fmt.Errorf("failed to parse strategies file: %w", err)
	}

	for family, ov := range overrides {
		applied := false
		for i := range familyTable {
			if familyTable[i].strategy.Family == family {
				applyOverride(&familyTable[i].strategy, ov)
				applied = true
			}
		}
		for _, tmpl := range formatOverrides {
			if tmpl.Family == family {
				applyOverride(tmpl, ov)
				applied = true
			}
		}
		if defaultStrategy.Family == family {
			applyOverride(&defaultStrategy, ov)
			applied = true
		}
		if nativeStrategy.Family == family {
			applyOverride(&nativeStrategy, ov)
			applied = true
		}
		if !applied {
			return fmt.Errorf("strategies file references unknown family %q", family)
		}
		log.Printf("⚙️  Applied sampling overrides for family %q", family)
	}
	return nil
}

func applyOverride(s *ModelStrategy, ov samplingOverride) {
	if ov.Temperature != nil {
		s.Sampling.Temperature = *ov.Temperature
	}
	if ov.TopP != nil {
		s.Sampling.TopP = *ov.TopP
	}
	if ov.TopK != nil {
		s.Sampling.TopK = *ov.TopK
	}
	if ov.Thinking != nil {
		if ov.Thinking.Enabled != nil {
			s.Thinking.Enabled = *ov.Thinking.Enabled
		}
		if ov.Thinking.Suffix != "" {
			s.Thinking.Suffix = ov.Thinking.Suffix
		}
		if ov.Thinking.MaxTokens != nil {
			s.Thinking.MaxTokens = *ov.Thinking.MaxTokens
		}
	}
}
