package tools

import "fmt"

// Analyzer is the narrow contract the analysis tools need from the audio
// subsystem. The DSP itself is an external collaborator.
type Analyzer interface {
	Analyze(recordingID, sessionID string) (map[string]interface{}, error)
	Latest(sessionID string) (map[string]interface{}, bool)
}

// AnalysisCollection owns the tools that read audio-analysis results.
// The orchestrator injects "session_id" into the arguments of every call so
// results are scoped to the calling session.
type AnalysisCollection struct {
	baseCollection
	analyzer Analyzer
}

// NewAnalysisCollection creates the audio-analysis tool collection
func NewAnalysisCollection(analyzer Analyzer) *AnalysisCollection {
	c := &AnalysisCollection{analyzer: analyzer}
	c.name = "audio_analysis"
	c.tools = []*Tool{
		{
			Name:        "analyze_performance",
			Description: "Run feature extraction (tempo, pitch, timing, dynamics) on a finished recording",
			Category:    CategoryAudioAnalysis,
			Parameters: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"recording_id": map[string]interface{}{
						"type":        "string",
						"description": "ID of a recording the student has uploaded",
					},
				},
				"required": []string{"recording_id"},
			},
			Guidance: "Only call this after the student has actually recorded something. " +
				"Base all feedback strictly on the returned data.",
			Execute: c.executeAnalyzePerformance,
		},
		{
			Name:        "get_latest_analysis",
			Description: "Fetch the most recent audio-analysis result for this session",
			Category:    CategoryAudioAnalysis,
			Parameters: map[string]interface{}{
				"type":       "object",
				"properties": map[string]interface{}{},
				"required":   []string{},
			},
			Execute: c.executeGetLatestAnalysis,
		},
		{
			Name:        "compare_recordings",
			Description: "Compare two analyzed recordings and report what improved or regressed",
			Category:    CategoryAudioAnalysis,
			Parameters: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"recording_id_a": map[string]interface{}{
						"type":        "string",
						"description": "Earlier recording",
					},
					"recording_id_b": map[string]interface{}{
						"type":        "string",
						"description": "Later recording",
					},
				},
				"required": []string{"recording_id_a", "recording_id_b"},
			},
			Execute: c.executeCompareRecordings,
		},
	}
	return c
}

func (c *AnalysisCollection) executeAnalyzePerformance(args map[string]interface{}) (map[string]interface{}, error) {
	recordingID := stringArg(args, "recording_id", "")
	if recordingID == "" {
		return nil, fmt.Errorf("recording_id is required")
	}
	sessionID := stringArg(args, "session_id", "")

	result, err := c.analyzer.Analyze(recordingID, sessionID)
	if err != nil {
		return ErrorResult("analysis_failed", err.Error()), nil
	}
	return result, nil
}

func (c *AnalysisCollection) executeGetLatestAnalysis(args map[string]interface{}) (map[string]interface{}, error) {
	sessionID := stringArg(args, "session_id", "")
	result, ok := c.analyzer.Latest(sessionID)
	if !ok {
		return ErrorResult("no_analysis", "no analysis available yet — ask the student to record first"), nil
	}
	return result, nil
}

func (c *AnalysisCollection) executeCompareRecordings(args map[string]interface{}) (map[string]interface{}, error) {
	idA := stringArg(args, "recording_id_a", "")
	idB := stringArg(args, "recording_id_b", "")
	if idA == "" || idB == "" {
		return nil, fmt.Errorf("recording_id_a and recording_id_b are required")
	}
	sessionID := stringArg(args, "session_id", "")

	a, err := c.analyzer.Analyze(idA, sessionID)
	if err != nil {
		return ErrorResult("analysis_failed", fmt.Sprintf("recording %s: %v", idA, err)), nil
	}
	b, err := c.analyzer.Analyze(idB, sessionID)
	if err != nil {
		return ErrorResult("analysis_failed", fmt.Sprintf("recording %s: %v", idB, err)), nil
	}

	return map[string]interface{}{
		"status":      "comparison_ready",
		"recording_a": a,
		"recording_b": b,
		"deltas":      compareMetrics(a, b),
	}, nil
}

// compareMetrics diffs the numeric top-level metrics two analyses share
func compareMetrics(a, b map[string]interface{}) map[string]interface{} {
	deltas := make(map[string]interface{})
	for key, av := range a {
		af, ok := av.(float64)
		if !ok {
			continue
		}
		if bf, ok := b[key].(float64); ok {
			deltas[key] = bf - af
		}
	}
	return deltas
}
