package audio

import (
	"bytes"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"net/http"
	"time"

	cache "github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"
)

// Service is the client for the external audio feature-extraction service.
// The DSP itself (beat tracking, chroma, pitch) lives in that service; this
// client only speaks its HTTP contract and caches results per session so the
// analysis tools and the context enricher read the same snapshot.
//
// With no analyzer URL configured the service runs in offline mode and
// produces deterministic synthetic metrics, which keeps local development
// and tests independent of the DSP deployment.
type Service struct {
	httpClient  *http.Client
	analyzerURL string
	results     *cache.Cache // sessionID -> latest analysis result
	byRecording *cache.Cache // recordingID -> analysis result
	logger      *logrus.Logger
}

// NewService creates an analyzer client. An empty analyzerURL enables
// offline synthetic mode.
func NewService(analyzerURL string) *Service {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	return &Service{
		httpClient:  &http.Client{Timeout: 60 * time.Second},
		analyzerURL: analyzerURL,
		results:     cache.New(2*time.Hour, 30*time.Minute),
		byRecording: cache.New(2*time.Hour, 30*time.Minute),
		logger:      logger,
	}
}

// analyzeRequest is the wire request to the analyzer service
type analyzeRequest struct {
	RecordingID string `json:"recording_id"`
}

// Analyze runs feature extraction for a recording and caches the result for
// the owning session. Repeated calls for the same recording hit the cache.
func (s *Service) Analyze(recordingID, sessionID string) (map[string]interface{}, error) {
	if cached, ok := s.byRecording.Get(recordingID); ok {
		return cached.(map[string]interface{}), nil
	}

	start := time.Now()
	var result map[string]interface{}
	var err error
	if s.analyzerURL == "" {
		result = s.syntheticAnalysis(recordingID)
	} else {
		result, err = s.remoteAnalyze(recordingID)
		if err != nil {
			s.logger.WithFields(logrus.Fields{
				"recording_id": recordingID,
				"error":        err.Error(),
			}).Error("analysis failed")
			return nil, err
		}
	}

	result["recording_id"] = recordingID
	result["analyzed_at"] = time.Now().UTC().Format(time.RFC3339)

	s.byRecording.Set(recordingID, result, cache.DefaultExpiration)
	if sessionID != "" {
		s.results.Set(sessionID, result, cache.DefaultExpiration)
	}

	s.logger.WithFields(logrus.Fields{
		"recording_id": recordingID,
		"session_id":   sessionID,
		"duration_ms":  time.Since(start).Milliseconds(),
		"offline":      s.analyzerURL == "",
	}).Info("analysis complete")
	return result, nil
}

// Latest returns the most recent analysis result for a session
func (s *Service) Latest(sessionID string) (map[string]interface{}, bool) {
	cached, ok := s.results.Get(sessionID)
	if !ok {
		return nil, false
	}
	return cached.(map[string]interface{}), true
}

func (s *Service) remoteAnalyze(recordingID string) (map[string]interface{}, error) {
	body, err := json.Marshal(analyzeRequest{RecordingID: recordingID})
	if err != nil {
		return nil, err
	}
	resp, err := s.httpClient.Post(s.analyzerURL+"/analyze", "application/json", bytes.NewBuffer(body))
	if err != nil {
		return nil, fmt.Errorf("analyzer request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("analyzer returned status %d", resp.StatusCode)
	}
	var result map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("malformed analyzer response: %w", err)
	}
	return result, nil
}

// syntheticAnalysis derives stable metrics from the recording ID so offline
// runs behave deterministically.
func (s *Service) syntheticAnalysis(recordingID string) map[string]interface{} {
	h := fnv.New32a()
	h.Write([]byte(recordingID))
	seed := h.Sum32()

	return map[string]interface{}{
		"tempo_bpm":          60 + float64(seed%80),
		"tempo_stability":    0.7 + float64(seed%30)/100,
		"pitch_accuracy":     0.6 + float64(seed%40)/100,
		"mean_pitch_cents":   float64(int32(seed%60)) - 30,
		"timing_deviation":   float64(seed%120) / 1000,
		"dynamics_range_db":  12 + float64(seed%24),
		"note_count":         int(10 + seed%40),
		"duration_seconds":   5 + float64(seed%55),
	}
}
