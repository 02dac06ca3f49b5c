package database

import (
	"path/filepath"
	"testing"

	"maestro/internal/models"
)

func openTestDB(t *testing.T) *Database {
	t.Helper()
	db, err := New(filepath.Join(t.TempDir(), "transcripts.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestSaveAndLoadTranscript(t *testing.T) {
	db := openTestDB(t)

	user := models.NewMessage(models.RoleUser, "teach me scales")
	assistant := models.NewMessage(models.RoleAssistant, "")
	assistant.ToolCalls = []models.ToolCall{{
		ID:        "call-1",
		Name:      "generate_exercise",
		Arguments: map[string]interface{}{"root": "C4"},
	}}
	toolResult := models.NewMessage(models.RoleTool, `{"status":"exercise_generated"}`)
	toolResult.ToolCallID = "call-1"
	toolResult.ToolName = "generate_exercise"

	for _, msg := range []models.Message{user, assistant, toolResult} {
		if err := db.SaveMessage("session-a", msg); err != nil {
			t.Fatal(err)
		}
	}
	if err := db.SaveMessage("session-b", models.NewMessage(models.RoleUser, "other session")); err != nil {
		t.Fatal(err)
	}

	loaded, err := db.LoadTranscript("session-a")
	if err != nil {
		t.Fatal(err)
	}
	if len(loaded) != 3 {
		t.Fatalf("got %d messages, want 3", len(loaded))
	}
	if loaded[0].Role != models.RoleUser || loaded[0].Content != "teach me scales" {
		t.Errorf("first message = %+v", loaded[0])
	}
	if len(loaded[1].ToolCalls) != 1 || loaded[1].ToolCalls[0].Name != "generate_exercise" {
		t.Errorf("tool calls = %+v", loaded[1].ToolCalls)
	}
	if loaded[2].ToolCallID != "call-1" || loaded[2].ToolName != "generate_exercise" {
		t.Errorf("tool message = %+v", loaded[2])
	}
}

func TestLoadTranscriptUnknownSession(t *testing.T) {
	db := openTestDB(t)
	loaded, err := db.LoadTranscript("nope")
	if err != nil {
		t.Fatal(err)
	}
	if len(loaded) != 0 {
		t.Errorf("got %d messages, want none", len(loaded))
	}
}

func TestDeleteTranscript(t *testing.T) {
	db := openTestDB(t)
	if err := db.SaveMessage("session-c", models.NewMessage(models.RoleUser, "hello")); err != nil {
		t.Fatal(err)
	}
	if err := db.DeleteTranscript("session-c"); err != nil {
		t.Fatal(err)
	}
	loaded, err := db.LoadTranscript("session-c")
	if err != nil {
		t.Fatal(err)
	}
	if len(loaded) != 0 {
		t.Errorf("transcript survived deletion: %+v", loaded)
	}
}
