package services

import (
	"fmt"
	"log"
	"strings"

	"maestro/internal/models"
)

// audioKeywords are the topic words that suggest a message is about the
// student's playing and could use analysis context.
var audioKeywords = []string{
	"recording", "played", "playing", "performance", "tempo", "pitch",
	"timing", "rhythm", "audio", "practice", "practiced", "intonation",
	"dynamics", "how did i", "how was i", "my scale", "analysis",
}

// dataEvidence are substrings whose presence suggests a history message
// actually carries structured analysis data, not just talk about it.
var dataEvidence = []string{"{", "[", `"tempo_bpm"`, `"pitch_accuracy"`}

const enrichTemplate = `%s

The student's latest audio analysis data follows. Answer ONLY from this data.
Never fabricate measurements that are not in it.

%s

Student's question: %s`

const noAnalysisTemplate = `%s

(No audio analysis is available for this session yet. Do not guess how the
student played — ask them to record themselves first.)`

// AudioContextEnricher rewrites an incoming user message to carry the most
// recent audio-analysis result when the message appears to reference the
// student's playing but has no analysis data of its own. It is deliberately
// heuristic — a false negative degrades to "no analysis available".
type AudioContextEnricher struct{}

// NewAudioContextEnricher creates an enricher
func NewAudioContextEnricher() *AudioContextEnricher {
	return &AudioContextEnricher{}
}

// Enrich returns the possibly-rewritten message content and whether it was
// rewritten.
func (e *AudioContextEnricher) Enrich(content string, history []models.Message) (string, bool) {
	// already carries analysis data: avoid double-injection
	if strings.Contains(content, models.AnalysisMarker) {
		return content, false
	}

	lower := strings.ToLower(content)
	mentionsAudio := false
	for _, kw := range audioKeywords {
		if strings.Contains(lower, kw) {
			mentionsAudio = true
			break
		}
	}
	if !mentionsAudio {
		return content, false
	}

	// newest-first search for the latest message with analysis data
	for i := len(history) - 1; i >= 0; i-- {
		msg := history[i]
		if !msg.HasAnalysisContext() {
			continue
		}
		hasData := false
		for _, ev := range dataEvidence {
			if strings.Contains(msg.Content, ev) {
				hasData = true
				break
			}
		}
		if !hasData {
			continue
		}
		log.Printf("🎧 [ENRICH] Injecting analysis context from history position %d", i)
		return fmt.Sprintf(enrichTemplate, models.AnalysisMarker, msg.Content, content), true
	}

	return fmt.Sprintf(noAnalysisTemplate, content), true
}
