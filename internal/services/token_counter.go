package services

import (
	"encoding/json"

	"maestro/internal/models"
)

// EstimateTokens returns an approximate token count using the ~4 chars/token
// heuristic. Deterministic for identical text, which is all the budgeting
// logic requires.
func EstimateTokens(text string) int {
	if len(text) == 0 {
		return 0
	}
	return (len(text) + 3) / 4
}

// EstimateMessageTokens estimates the token count of one message.
// Accounts for role overhead (~4 tokens for role and separators).
func EstimateMessageTokens(msg models.Message) int {
	total := 4 + EstimateTokens(msg.Content)
	if len(msg.ToolCalls) > 0 {
		encoded, _ := json.Marshal(msg.ToolCalls)
		total += EstimateTokens(string(encoded))
	}
	return total
}

// EstimateMessagesTokens estimates the total token count for a message list
func EstimateMessagesTokens(messages []models.Message) int {
	total := 0
	for _, msg := range messages {
		total += EstimateMessageTokens(msg)
	}
	return total
}

// EstimateToolDefTokens estimates the overhead of the tool definitions sent
// with a request.
func EstimateToolDefTokens(schemas []map[string]interface{}) int {
	if len(schemas) == 0 {
		return 0
	}
	encoded, _ := json.Marshal(schemas)
	return EstimateTokens(string(encoded))
}
