package tools

import "testing"

func TestRequestRecording(t *testing.T) {
	c := NewRecordingCollection()
	result := c.CallTool("request_recording", map[string]interface{}{
		"prompt":       "Play the C major scale slowly",
		"max_duration": float64(30),
	})
	if result["status"] != "recording_requested" {
		t.Fatalf("result = %v", result)
	}
	recordingID, _ := result["recording_id"].(string)
	if recordingID == "" {
		t.Fatal("no recording_id in result")
	}
	if !c.IsPending(recordingID) {
		t.Error("recording not tracked as pending")
	}
	if result["max_duration"] != float64(30) {
		t.Errorf("max_duration = %v", result["max_duration"])
	}
}

func TestRequestRecordingMissingPrompt(t *testing.T) {
	c := NewRecordingCollection()
	result := c.CallTool("request_recording", map[string]interface{}{})
	if isErr, _ := result["error"].(bool); !isErr {
		t.Fatalf("result = %v, want error payload", result)
	}
}

func TestRequestRecordingClampsDuration(t *testing.T) {
	c := NewRecordingCollection()
	result := c.CallTool("request_recording", map[string]interface{}{
		"prompt":       "play something",
		"max_duration": float64(9999),
	})
	if result["max_duration"] != float64(DefaultMaxRecordingSeconds) {
		t.Errorf("max_duration = %v, want clamp to default", result["max_duration"])
	}
}

func TestCancelRecording(t *testing.T) {
	c := NewRecordingCollection()
	result := c.CallTool("request_recording", map[string]interface{}{"prompt": "play"})
	recordingID := result["recording_id"].(string)

	cancelled := c.CallTool("cancel_recording", map[string]interface{}{"recording_id": recordingID})
	if cancelled["status"] != "recording_cancelled" {
		t.Fatalf("result = %v", cancelled)
	}
	if c.IsPending(recordingID) {
		t.Error("recording still pending after cancel")
	}

	// second cancel finds nothing
	again := c.CallTool("cancel_recording", map[string]interface{}{"recording_id": recordingID})
	if isErr, _ := again["error"].(bool); !isErr {
		t.Errorf("result = %v, want error for unknown recording", again)
	}
}
