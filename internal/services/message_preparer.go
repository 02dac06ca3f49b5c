package services

import (
	"log"

	"maestro/internal/models"
)

// MessagePreparer compresses a session's full history into a bounded view
// that fits the token budget for one backend call. The full history is never
// mutated; preparation recomputes the view each turn.
type MessagePreparer struct{}

// NewMessagePreparer creates a preparer
func NewMessagePreparer() *MessagePreparer {
	return &MessagePreparer{}
}

// Prepare selects a bounded subsequence of history:
//   - thinking messages are dropped when forUser is set (they are an internal
//     scratchpad, never shown to the student),
//   - the token budget is spent greedily from the most recent message
//     backward,
//   - messages carrying audio-analysis context are retained even when older
//     than the cutoff, because losing them breaks downstream interpretation,
//   - a leading system message is folded into the first user message of the
//     result — not every backend accepts a system-only input.
func (p *MessagePreparer) Prepare(history []models.Message, maxTokens int, forUser bool) []models.Message {
	if len(history) == 0 {
		return []models.Message{}
	}

	systemContent := ""
	rest := history
	if history[0].Role == models.RoleSystem {
		systemContent = history[0].Content
		rest = history[1:]
	}

	// drop thinking scratchpad for user-facing views
	candidates := make([]models.Message, 0, len(rest))
	for _, msg := range rest {
		if forUser && msg.Role == models.RoleThinking {
			continue
		}
		candidates = append(candidates, msg)
	}

	// greedy budget from the newest message backward
	budget := maxTokens - EstimateTokens(systemContent)
	keep := make([]bool, len(candidates))
	spent := 0
	cutoff := 0
	for i := len(candidates) - 1; i >= 0; i-- {
		cost := EstimateMessageTokens(candidates[i])
		if spent+cost > budget {
			cutoff = i + 1
			break
		}
		spent += cost
		keep[i] = true
	}

	// preferential retention: analysis context survives the cutoff
	for i := 0; i < cutoff; i++ {
		if candidates[i].HasAnalysisContext() {
			keep[i] = true
		}
	}

	result := make([]models.Message, 0, len(candidates)+1)
	for i, msg := range candidates {
		if keep[i] {
			result = append(result, msg)
		}
	}
	if len(result) < len(candidates) {
		log.Printf("📉 [PREP] Compressed history %d -> %d messages (~%d tokens)", len(candidates), len(result), spent)
	}

	if systemContent == "" {
		return result
	}

	// fold the system prompt into the leading user turn
	for i := range result {
		if result[i].Role == models.RoleUser {
			result[i].Content = systemContent + "\n\n" + result[i].Content
			return result
		}
	}
	seeded := models.Message{Role: models.RoleUser, Content: systemContent}
	return append([]models.Message{seeded}, result...)
}
