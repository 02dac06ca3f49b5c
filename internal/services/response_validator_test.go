package services

import (
	"strings"
	"testing"

	"maestro/internal/config"
	"maestro/internal/models"
)

func testValidator() *ResponseValidator {
	return NewResponseValidator(&config.Config{
		TokenSafetyCeiling:      7168,
		MaxResponseWords:        800,
		MinUniqueWordRatio:      0.3,
		MaxFragmentRatio:        0.5,
		MaxConsecutiveToolCalls: 6,
		ToolPatternWindow:       4,
	})
}

func TestValidateTokenLimit(t *testing.T) {
	v := testValidator()
	small := []models.Message{models.NewMessage(models.RoleUser, "hello")}
	if f := v.ValidateTokenLimit(small); f != nil {
		t.Errorf("failure = %+v, want pass", f)
	}

	huge := []models.Message{models.NewMessage(models.RoleUser, strings.Repeat("word ", 10000))}
	f := v.ValidateTokenLimit(huge)
	if f == nil || f.ErrorType != "token_limit_exceeded" {
		t.Errorf("failure = %+v, want token_limit_exceeded", f)
	}
}

func TestValidateResponseContentLength(t *testing.T) {
	v := testValidator()
	f := v.ValidateResponseContent(strings.Repeat("note ", 801))
	if f == nil || f.ErrorType != "response_too_long" {
		t.Errorf("failure = %+v, want response_too_long", f)
	}
}

func TestValidateResponseContentRepetition(t *testing.T) {
	v := testValidator()
	// 60 words, 2 unique: ratio far below 0.3
	f := v.ValidateResponseContent(strings.Repeat("practice scales ", 30))
	if f == nil || f.ErrorType != "repetitive_response" {
		t.Errorf("failure = %+v, want repetitive_response", f)
	}

	// short responses are exempt from the ratio check
	if f := v.ValidateResponseContent("yes yes yes yes"); f != nil {
		t.Errorf("failure = %+v, want short repetition to pass", f)
	}
}

func TestValidateResponseContentFragments(t *testing.T) {
	v := testValidator()
	f := v.ValidateResponseContent("1 2 3 4 5 6 7 8 9 10 11 12")
	if f == nil || f.ErrorType != "garbled_response" {
		t.Errorf("failure = %+v, want garbled_response", f)
	}

	if f := v.ValidateResponseContent("Play each note slowly and keep your wrist relaxed throughout the whole exercise"); f != nil {
		t.Errorf("failure = %+v, want normal prose to pass", f)
	}
}

func TestValidateToolCallLoopsConsecutive(t *testing.T) {
	v := testValidator()
	if f := v.ValidateToolCallLoops(6, nil); f != nil {
		t.Errorf("failure = %+v, want pass at the limit", f)
	}
	f := v.ValidateToolCallLoops(7, nil)
	if f == nil || f.ErrorType != "too_many_tool_calls" {
		t.Errorf("failure = %+v, want too_many_tool_calls", f)
	}
}

func TestValidateToolCallLoopsPattern(t *testing.T) {
	v := testValidator()

	// alternating names are legitimate workflow, not a loop
	alternating := []string{"request_recording", "analyze_performance", "request_recording", "analyze_performance"}
	if f := v.ValidateToolCallLoops(4, alternating); f != nil {
		t.Errorf("failure = %+v, want alternating pattern to pass", f)
	}

	uniform := []string{"show_widget", "show_widget", "show_widget", "show_widget"}
	f := v.ValidateToolCallLoops(4, uniform)
	if f == nil || f.ErrorType != "repetitive_tool_calls" {
		t.Errorf("failure = %+v, want repetitive_tool_calls", f)
	}

	// window not yet full
	if f := v.ValidateToolCallLoops(2, []string{"show_widget", "show_widget"}); f != nil {
		t.Errorf("failure = %+v, want short window to pass", f)
	}
}
