package tools

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	cache "github.com/patrickmn/go-cache"
)

// DefaultMaxRecordingSeconds bounds how long the client may record for one request
const DefaultMaxRecordingSeconds = 60

// RecordingCollection owns the tools the model uses to ask the student to
// record themselves playing. Pending recording requests are tracked so the
// transport can cancel them.
type RecordingCollection struct {
	baseCollection
	pending *cache.Cache // recordingID -> sessionID
}

// NewRecordingCollection creates the recording tool collection
func NewRecordingCollection() *RecordingCollection {
	c := &RecordingCollection{
		pending: cache.New(10*time.Minute, 30*time.Minute),
	}
	c.name = "recording"
	c.tools = []*Tool{
		{
			Name:        "request_recording",
			Description: "Ask the student to record themselves playing. Returns a recording ID the client uses to upload audio.",
			Category:    CategoryRecording,
			Parameters: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"prompt": map[string]interface{}{
						"type":        "string",
						"description": "What the student should play (e.g., 'Play the C major scale slowly')",
					},
					"max_duration": map[string]interface{}{
						"type":        "number",
						"description": "Maximum recording length in seconds",
						"default":     DefaultMaxRecordingSeconds,
					},
				},
				"required": []string{"prompt"},
			},
			Guidance: "Use this whenever you need to hear the student play before giving feedback. " +
				"Never invent analysis results — wait for the recording to be analyzed.",
			Execute: c.executeRequestRecording,
		},
		{
			Name:        "cancel_recording",
			Description: "Cancel a previously requested recording",
			Category:    CategoryRecording,
			Parameters: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"recording_id": map[string]interface{}{
						"type":        "string",
						"description": "ID returned by request_recording",
					},
				},
				"required": []string{"recording_id"},
			},
			Execute: c.executeCancelRecording,
		},
	}
	return c
}

func (c *RecordingCollection) executeRequestRecording(args map[string]interface{}) (map[string]interface{}, error) {
	prompt := stringArg(args, "prompt", "")
	if prompt == "" {
		return nil, fmt.Errorf("prompt is required")
	}
	maxDuration := floatArg(args, "max_duration", DefaultMaxRecordingSeconds)
	if maxDuration <= 0 || maxDuration > 300 {
		maxDuration = DefaultMaxRecordingSeconds
	}

	recordingID := uuid.New().String()
	sessionID := stringArg(args, "session_id", "")
	c.pending.Set(recordingID, sessionID, cache.DefaultExpiration)

	return map[string]interface{}{
		"status":       "recording_requested",
		"recording_id": recordingID,
		"prompt":       prompt,
		"max_duration": maxDuration,
	}, nil
}

func (c *RecordingCollection) executeCancelRecording(args map[string]interface{}) (map[string]interface{}, error) {
	recordingID := stringArg(args, "recording_id", "")
	if recordingID == "" {
		return nil, fmt.Errorf("recording_id is required")
	}
	if !c.Cancel(recordingID) {
		return ErrorResult("unknown_recording", fmt.Sprintf("no pending recording %q", recordingID)), nil
	}
	return map[string]interface{}{
		"status":       "recording_cancelled",
		"recording_id": recordingID,
	}, nil
}

// Cancel removes a pending recording request. It is also called directly by
// the transport when the client sends a cancel_recording event.
func (c *RecordingCollection) Cancel(recordingID string) bool {
	if _, ok := c.pending.Get(recordingID); !ok {
		return false
	}
	c.pending.Delete(recordingID)
	return true
}

// IsPending reports whether a recording request is still outstanding
func (c *RecordingCollection) IsPending(recordingID string) bool {
	_, ok := c.pending.Get(recordingID)
	return ok
}
