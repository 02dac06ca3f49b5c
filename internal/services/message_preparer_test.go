package services

import (
	"strings"
	"testing"

	"maestro/internal/models"
)

func TestPrepareEmptyHistory(t *testing.T) {
	p := NewMessagePreparer()
	if got := p.Prepare(nil, 4096, false); len(got) != 0 {
		t.Errorf("got %d messages, want none", len(got))
	}
}

func TestPrepareFoldsSystemIntoFirstUser(t *testing.T) {
	p := NewMessagePreparer()
	history := []models.Message{
		models.NewMessage(models.RoleSystem, "You are a music tutor."),
		models.NewMessage(models.RoleUser, "teach me scales"),
		models.NewMessage(models.RoleAssistant, "Gladly."),
	}
	prepared := p.Prepare(history, 4096, false)
	if len(prepared) != 2 {
		t.Fatalf("got %d messages", len(prepared))
	}
	if prepared[0].Role != models.RoleUser {
		t.Fatalf("first role = %s, want user", prepared[0].Role)
	}
	if !strings.HasPrefix(prepared[0].Content, "You are a music tutor.") {
		t.Errorf("system prompt not folded in: %q", prepared[0].Content)
	}
	if !strings.Contains(prepared[0].Content, "teach me scales") {
		t.Errorf("user content lost: %q", prepared[0].Content)
	}
}

func TestPrepareSeedsUserWhenNoneSurvives(t *testing.T) {
	p := NewMessagePreparer()
	history := []models.Message{
		models.NewMessage(models.RoleSystem, "You are a music tutor."),
		models.NewMessage(models.RoleAssistant, "Welcome back."),
	}
	prepared := p.Prepare(history, 4096, false)
	if len(prepared) != 2 {
		t.Fatalf("got %d messages", len(prepared))
	}
	if prepared[0].Role != models.RoleUser || prepared[0].Content != "You are a music tutor." {
		t.Errorf("first message = %+v, want seeded user carrying the system prompt", prepared[0])
	}
}

func TestPrepareBudgetKeepsNewest(t *testing.T) {
	p := NewMessagePreparer()
	history := []models.Message{
		models.NewMessage(models.RoleUser, strings.Repeat("old ", 400)),
		models.NewMessage(models.RoleAssistant, strings.Repeat("older ", 400)),
		models.NewMessage(models.RoleUser, "what should I practice today"),
	}
	// budget enough for the last message only
	prepared := p.Prepare(history, 40, false)
	if len(prepared) != 1 {
		t.Fatalf("got %d messages: %+v", len(prepared), prepared)
	}
	if prepared[0].Content != "what should I practice today" {
		t.Errorf("kept %q, want the newest message", prepared[0].Content)
	}
}

func TestPrepareRetainsAnalysisPastCutoff(t *testing.T) {
	p := NewMessagePreparer()
	analysis := models.NewMessage(models.RoleUser,
		models.AnalysisMarker+` {"tempo_bpm": 92, "pitch_accuracy": 0.81}`)
	history := []models.Message{
		analysis,
		models.NewMessage(models.RoleAssistant, strings.Repeat("filler ", 400)),
		models.NewMessage(models.RoleUser, "so how was my timing"),
	}
	prepared := p.Prepare(history, 40, false)

	foundAnalysis := false
	for _, msg := range prepared {
		if msg.HasAnalysisContext() {
			foundAnalysis = true
		}
		if strings.Contains(msg.Content, "filler") {
			t.Error("filler survived a budget that should have dropped it")
		}
	}
	if !foundAnalysis {
		t.Error("analysis context was dropped by the budget")
	}
}

func TestPrepareDropsThinkingForUser(t *testing.T) {
	p := NewMessagePreparer()
	history := []models.Message{
		models.NewMessage(models.RoleUser, "hi"),
		models.NewMessage(models.RoleThinking, "internal scratchpad"),
		models.NewMessage(models.RoleAssistant, "hello"),
	}

	forUser := p.Prepare(history, 4096, true)
	for _, msg := range forUser {
		if msg.Role == models.RoleThinking {
			t.Fatal("thinking message leaked into user-facing view")
		}
	}

	forModel := p.Prepare(history, 4096, false)
	found := false
	for _, msg := range forModel {
		if msg.Role == models.RoleThinking {
			found = true
		}
	}
	if !found {
		t.Error("thinking message missing from model-facing view")
	}
}

func TestPrepareNeverMutatesHistory(t *testing.T) {
	p := NewMessagePreparer()
	history := []models.Message{
		models.NewMessage(models.RoleSystem, "system"),
		models.NewMessage(models.RoleUser, "question"),
	}
	p.Prepare(history, 4096, false)
	if history[1].Content != "question" {
		t.Errorf("history mutated: %q", history[1].Content)
	}
}
