package tools

import (
	"fmt"
	"testing"
)

// fakeAnalyzer serves canned analysis results keyed by recording ID
type fakeAnalyzer struct {
	results map[string]map[string]interface{}
	latest  map[string]interface{}
}

func (f *fakeAnalyzer) Analyze(recordingID, sessionID string) (map[string]interface{}, error) {
	result, ok := f.results[recordingID]
	if !ok {
		return nil, fmt.Errorf("no such recording %q", recordingID)
	}
	f.latest = result
	return result, nil
}

func (f *fakeAnalyzer) Latest(sessionID string) (map[string]interface{}, bool) {
	return f.latest, f.latest != nil
}

func TestAnalyzePerformance(t *testing.T) {
	analyzer := &fakeAnalyzer{results: map[string]map[string]interface{}{
		"rec-1": {"tempo_bpm": 92.0, "pitch_accuracy": 0.8},
	}}
	c := NewAnalysisCollection(analyzer)

	result := c.CallTool("analyze_performance", map[string]interface{}{
		"recording_id": "rec-1",
		"session_id":   "s1",
	})
	if result["tempo_bpm"] != 92.0 {
		t.Errorf("result = %v", result)
	}

	missing := c.CallTool("analyze_performance", map[string]interface{}{
		"recording_id": "rec-404",
	})
	if missing["error_type"] != "analysis_failed" {
		t.Errorf("result = %v, want analysis_failed payload", missing)
	}
}

func TestGetLatestAnalysis(t *testing.T) {
	analyzer := &fakeAnalyzer{results: map[string]map[string]interface{}{}}
	c := NewAnalysisCollection(analyzer)

	empty := c.CallTool("get_latest_analysis", map[string]interface{}{"session_id": "s1"})
	if empty["error_type"] != "no_analysis" {
		t.Errorf("result = %v, want no_analysis before any recording", empty)
	}
}

func TestCompareRecordings(t *testing.T) {
	analyzer := &fakeAnalyzer{results: map[string]map[string]interface{}{
		"before": {"tempo_bpm": 80.0, "pitch_accuracy": 0.6, "label": "x"},
		"after":  {"tempo_bpm": 90.0, "pitch_accuracy": 0.8, "label": "y"},
	}}
	c := NewAnalysisCollection(analyzer)

	result := c.CallTool("compare_recordings", map[string]interface{}{
		"recording_id_a": "before",
		"recording_id_b": "after",
	})
	if result["status"] != "comparison_ready" {
		t.Fatalf("result = %v", result)
	}
	deltas, _ := result["deltas"].(map[string]interface{})
	if deltas["tempo_bpm"] != 10.0 {
		t.Errorf("tempo delta = %v, want 10", deltas["tempo_bpm"])
	}
	if _, ok := deltas["label"]; ok {
		t.Error("non-numeric field leaked into deltas")
	}
}
