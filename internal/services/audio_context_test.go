package services

import (
	"strings"
	"testing"

	"maestro/internal/models"
)

func TestEnrichSkipsMarkedContent(t *testing.T) {
	e := NewAudioContextEnricher()
	content := models.AnalysisMarker + ` {"tempo_bpm": 100}`
	got, injected := e.Enrich(content, nil)
	if injected || got != content {
		t.Errorf("Enrich rewrote already-marked content: %q", got)
	}
}

func TestEnrichIgnoresUnrelatedMessages(t *testing.T) {
	e := NewAudioContextEnricher()
	got, injected := e.Enrich("what is a dominant seventh chord", nil)
	if injected {
		t.Errorf("theory question was enriched: %q", got)
	}
}

func TestEnrichInjectsLatestAnalysis(t *testing.T) {
	e := NewAudioContextEnricher()
	history := []models.Message{
		models.NewMessage(models.RoleUser, "hi"),
		models.NewMessage(models.RoleUser,
			models.AnalysisMarker+` {"tempo_bpm": 88, "pitch_accuracy": 0.7}`),
		models.NewMessage(models.RoleUser,
			models.AnalysisMarker+` {"tempo_bpm": 95, "pitch_accuracy": 0.9}`),
	}
	got, injected := e.Enrich("how was my timing on that recording", history)
	if !injected {
		t.Fatal("expected enrichment")
	}
	if !strings.Contains(got, `"tempo_bpm": 95`) {
		t.Errorf("did not pick the newest analysis: %q", got)
	}
	if strings.Contains(got, `"tempo_bpm": 88`) {
		t.Errorf("picked a stale analysis: %q", got)
	}
	if !strings.Contains(got, "how was my timing on that recording") {
		t.Errorf("original question lost: %q", got)
	}
}

func TestEnrichNoAnalysisNote(t *testing.T) {
	e := NewAudioContextEnricher()
	got, injected := e.Enrich("how did I play", nil)
	if !injected {
		t.Fatal("expected rewrite")
	}
	if !strings.Contains(got, "ask them to record themselves first") {
		t.Errorf("got %q", got)
	}
	if !strings.Contains(got, "how did I play") {
		t.Errorf("original question lost: %q", got)
	}
}
