package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"
)

// BackendConfig carries everything a backend needs to initialize.
type BackendConfig struct {
	BaseURL       string
	APIKey        string
	Model         string
	ContextWindow int
	GPULayers     int // only meaningful for a local llama-server runtime
	Timeout       time.Duration
	Temperature   float64
	TopP          float64
}

// FunctionCall is the wire form of a structured tool invocation
type FunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"` // JSON-encoded argument object
}

// WireToolCall is one entry of an OpenAI-style tool_calls array
type WireToolCall struct {
	ID       string       `json:"id"`
	Type     string       `json:"type"`
	Function FunctionCall `json:"function"`
}

// CompletionMessage is the assistant message inside a completion choice
type CompletionMessage struct {
	Role      string         `json:"role"`
	Content   string         `json:"content"`
	ToolCalls []WireToolCall `json:"tool_calls,omitempty"`
}

// Choice is one completion alternative
type Choice struct {
	Message      CompletionMessage `json:"message"`
	FinishReason string            `json:"finish_reason"`
}

// ChatCompletion is the backend's response shape
type ChatCompletion struct {
	Choices []Choice `json:"choices"`
}

// ChatCompletionRequest is the request shape for an OpenAI-compatible
// /chat/completions endpoint. Messages are already in wire form.
type ChatCompletionRequest struct {
	Model       string                   `json:"model"`
	Messages    []map[string]interface{} `json:"messages"`
	Tools       []map[string]interface{} `json:"tools,omitempty"`
	Temperature float64                  `json:"temperature,omitempty"`
	TopP        float64                  `json:"top_p,omitempty"`
	TopK        int                      `json:"top_k,omitempty"`
	Stream      bool                     `json:"stream"`
}

// ErrNotInitialized is returned when a backend is used before Initialize
// succeeded.
var ErrNotInitialized = errors.New("backend is not initialized")

// Backend is the narrow contract the orchestrator consumes inference
// through. Implementations must never leave partially-initialized state
// visible as initialized.
type Backend interface {
	Initialize(ctx context.Context, cfg BackendConfig) error
	CreateChatCompletion(ctx context.Context, req *ChatCompletionRequest) (*ChatCompletion, error)
	SupportsTools() bool
	ContextWindow() int
	Close() error
}

// HTTPBackend talks to any OpenAI-compatible completion endpoint — a local
// llama-server runtime or a remote API.
type HTTPBackend struct {
	client        *http.Client
	baseURL       string
	apiKey        string
	contextWindow int
	supportsTools bool
	initialized   bool
}

// NewHTTPBackend creates an uninitialized HTTP backend
func NewHTTPBackend() *HTTPBackend {
	return &HTTPBackend{}
}

// Initialize validates the config and builds the HTTP client. All fields are
// assigned only after validation so a failed call leaves the backend
// uninitialized.
func (b *HTTPBackend) Initialize(ctx context.Context, cfg BackendConfig) error {
	if cfg.BaseURL == "" {
		return fmt.Errorf("backend base URL is required")
	}
	if cfg.ContextWindow <= 0 {
		return fmt.Errorf("context window must be positive, got %d", cfg.ContextWindow)
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 120 * time.Second
	}

	b.client = &http.Client{Timeout: timeout}
	b.baseURL = cfg.BaseURL
	b.apiKey = cfg.APIKey
	b.contextWindow = cfg.ContextWindow
	b.supportsTools = true
	b.initialized = true
	log.Printf("🧠 [BACKEND] Initialized HTTP backend (%s, ctx=%d)", cfg.BaseURL, cfg.ContextWindow)
	return nil
}

// CreateChatCompletion issues a non-streaming completion request. The
// context bounds the call; a hung backend surfaces as a context error, not a
// wedged session.
func (b *HTTPBackend) CreateChatCompletion(ctx context.Context, req *ChatCompletionRequest) (*ChatCompletion, error) {
	if !b.initialized {
		return nil, ErrNotInitialized
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+"/chat/completions", bytes.NewBuffer(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if b.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+b.apiKey)
	}

	resp, err := b.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(respBody))
	}

	var completion ChatCompletion
	if err := json.NewDecoder(resp.Body).Decode(&completion); err != nil {
		return nil, fmt.Errorf("malformed completion: %w", err)
	}
	if len(completion.Choices) == 0 {
		return nil, fmt.Errorf("malformed completion: no choices")
	}
	return &completion, nil
}

// SupportsTools reports whether the backend accepts a structured tools parameter
func (b *HTTPBackend) SupportsTools() bool { return b.supportsTools }

// ContextWindow returns the configured context window in tokens
func (b *HTTPBackend) ContextWindow() int { return b.contextWindow }

// Close releases the backend. Safe to call on an uninitialized backend.
func (b *HTTPBackend) Close() error {
	if b.client != nil {
		b.client.CloseIdleConnections()
	}
	b.initialized = false
	return nil
}
