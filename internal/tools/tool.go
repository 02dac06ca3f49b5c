package tools

import "fmt"

// Category groups tools by what they do in a lesson
type Category string

const (
	CategoryWidget        Category = "widget"
	CategoryRecording     Category = "recording"
	CategoryAudioAnalysis Category = "audio_analysis"
	CategoryMIDI          Category = "midi"
	CategoryOther         Category = "other"
)

// Tool represents a callable tool with its metadata and execution function.
// Immutable once registered.
type Tool struct {
	Name        string
	Description string
	Category    Category
	Parameters  map[string]interface{} // JSON schema: name -> type/required/default
	Guidance    string                 // optional long-form usage guidance for the model
	Execute     ExecuteFunc
}

// ExecuteFunc is the function signature for tool execution. It returns a
// structured result; errors are turned into error payloads by CallTool so
// the model always sees well-formed data.
type ExecuteFunc func(args map[string]interface{}) (map[string]interface{}, error)

// Schema returns the tool definition in OpenAI function-calling format
func (t *Tool) Schema() map[string]interface{} {
	return map[string]interface{}{
		"type": "function",
		"function": map[string]interface{}{
			"name":        t.Name,
			"description": t.Description,
			"parameters":  t.Parameters,
		},
	}
}

// Collection is a group of related tools owned by one subsystem.
// CallTool never panics and never returns a raw error — internal failures
// come back as {"error": true, "error_type": ..., "message": ...}.
type Collection interface {
	Name() string
	ListTools() []*Tool
	CallTool(name string, args map[string]interface{}) map[string]interface{}
}

// baseCollection provides the shared list/dispatch plumbing for the built-in
// collections.
type baseCollection struct {
	name  string
	tools []*Tool
}

func (c *baseCollection) Name() string { return c.name }

func (c *baseCollection) ListTools() []*Tool { return c.tools }

func (c *baseCollection) CallTool(name string, args map[string]interface{}) map[string]interface{} {
	for _, t := range c.tools {
		if t.Name != name {
			continue
		}
		result, err := safeExecute(t, args)
		if err != nil {
			return ErrorResult("tool_execution_error", err.Error())
		}
		return result
	}
	return ErrorResult("unknown_tool", fmt.Sprintf("tool %q is not part of collection %q", name, c.name))
}

// safeExecute converts a panicking tool into an error return so a buggy tool
// can never take down a turn.
func safeExecute(t *Tool, args map[string]interface{}) (result map[string]interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("tool %s panicked: %v", t.Name, r)
		}
	}()
	return t.Execute(args)
}

// ErrorResult builds the structured error payload tools return on failure
func ErrorResult(errorType, message string) map[string]interface{} {
	return map[string]interface{}{
		"error":      true,
		"error_type": errorType,
		"message":    message,
	}
}

// stringArg extracts an optional string argument with a default
func stringArg(args map[string]interface{}, key, def string) string {
	if v, ok := args[key].(string); ok && v != "" {
		return v
	}
	return def
}

// floatArg extracts a numeric argument, tolerating JSON's float64 and ints
func floatArg(args map[string]interface{}, key string, def float64) float64 {
	switch v := args[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	}
	return def
}
