package services

import (
	"fmt"
	"strings"
	"unicode"

	"maestro/internal/config"
	"maestro/internal/models"
)

// ValidationFailure describes why a generated response was rejected.
// Validators return nil on pass and never panic — a failure terminates the
// current turn with a safe message, it is not an exception.
type ValidationFailure struct {
	ErrorType string `json:"error_type"`
	Details   string `json:"error_details"`
}

// ResponseValidator is the post-generation safety net: token ceiling,
// gibberish/repetition detection, and tool-call loop detection. Thresholds
// come from configuration, captured once at construction.
type ResponseValidator struct {
	tokenCeiling       int
	maxResponseWords   int
	minUniqueWordRatio float64
	maxFragmentRatio   float64
	maxConsecutive     int
	patternWindow      int
}

// NewResponseValidator builds a validator from the config snapshot
func NewResponseValidator(cfg *config.Config) *ResponseValidator {
	return &ResponseValidator{
		tokenCeiling:       cfg.TokenSafetyCeiling,
		maxResponseWords:   cfg.MaxResponseWords,
		minUniqueWordRatio: cfg.MinUniqueWordRatio,
		maxFragmentRatio:   cfg.MaxFragmentRatio,
		maxConsecutive:     cfg.MaxConsecutiveToolCalls,
		patternWindow:      cfg.ToolPatternWindow,
	}
}

// ValidateTokenLimit is the last-resort circuit breaker: it fails when the
// whole message set exceeds the safety ceiling. The preparation budget is
// the primary mechanism; this only catches it failing.
func (v *ResponseValidator) ValidateTokenLimit(messages []models.Message) *ValidationFailure {
	total := EstimateMessagesTokens(messages)
	if total > v.tokenCeiling {
		return &ValidationFailure{
			ErrorType: "token_limit_exceeded",
			Details:   fmt.Sprintf("conversation is %d tokens, ceiling is %d", total, v.tokenCeiling),
		}
	}
	return nil
}

// ValidateResponseContent checks a generated reply for runaway length,
// repetition loops and garbled output.
func (v *ResponseValidator) ValidateResponseContent(content string) *ValidationFailure {
	words := strings.Fields(content)
	if len(words) > v.maxResponseWords {
		return &ValidationFailure{
			ErrorType: "response_too_long",
			Details:   fmt.Sprintf("response is %d words, maximum is %d", len(words), v.maxResponseWords),
		}
	}

	if len(words) > 50 {
		unique := make(map[string]bool, len(words))
		for _, w := range words {
			unique[strings.ToLower(w)] = true
		}
		ratio := float64(len(unique)) / float64(len(words))
		if ratio < v.minUniqueWordRatio {
			return &ValidationFailure{
				ErrorType: "repetitive_response",
				Details:   fmt.Sprintf("unique-word ratio %.2f is below %.2f", ratio, v.minUniqueWordRatio),
			}
		}
	}

	if len(words) > 10 {
		fragments := 0
		for _, w := range words {
			if len(w) == 1 || isNumericToken(w) {
				fragments++
			}
		}
		ratio := float64(fragments) / float64(len(words))
		if ratio > v.maxFragmentRatio {
			return &ValidationFailure{
				ErrorType: "garbled_response",
				Details:   fmt.Sprintf("%.0f%% of tokens are single characters or numbers", ratio*100),
			}
		}
	}
	return nil
}

func isNumericToken(w string) bool {
	for _, r := range w {
		if !unicode.IsDigit(r) && r != '.' && r != ',' && r != '-' {
			return false
		}
	}
	return true
}

// ValidateToolCallLoops guards against a model invoking tools forever:
// it fails when consecutive tool-invoking turns exceed the maximum, or when
// the trailing window of recent tool names is uniform.
func (v *ResponseValidator) ValidateToolCallLoops(consecutiveToolCalls int, recentToolNames []string) *ValidationFailure {
	if consecutiveToolCalls > v.maxConsecutive {
		return &ValidationFailure{
			ErrorType: "too_many_tool_calls",
			Details:   fmt.Sprintf("%d consecutive tool-calling turns, maximum is %d", consecutiveToolCalls, v.maxConsecutive),
		}
	}

	if v.patternWindow > 1 && len(recentToolNames) >= v.patternWindow {
		window := recentToolNames[len(recentToolNames)-v.patternWindow:]
		uniform := true
		for _, name := range window[1:] {
			if name != window[0] {
				uniform = false
				break
			}
		}
		if uniform {
			return &ValidationFailure{
				ErrorType: "repetitive_tool_calls",
				Details:   fmt.Sprintf("last %d tool calls were all %q", v.patternWindow, window[0]),
			}
		}
	}
	return nil
}
