package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"log/slog"
	"strings"
	"sync"
	"time"

	"maestro/internal/config"
	"maestro/internal/llm"
	"maestro/internal/logging"
	"maestro/internal/models"
	"maestro/internal/tools"

	"github.com/google/uuid"
)

// EventSink receives the turn's outward-facing events (tool activity and the
// final response) as they happen. The websocket layer feeds these to the
// client; tests collect them in a slice.
type EventSink func(models.ServerMessage)

// TranscriptStore persists conversation messages. Persistence failures are
// logged, never fatal to a turn.
type TranscriptStore interface {
	SaveMessage(sessionID string, msg models.Message) error
}

// TurnError is a turn that ended without a deliverable response
type TurnError struct {
	Type    string
	Message string
}

func (e *TurnError) Error() string {
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// user-safe notices for turns ended by a guard; the validator's details stay
// in the logs
const (
	validationNotice = "I had trouble putting together a clear answer there. Could you ask that again?"
	toolLoopNotice   = "I got stuck repeating the same tool calls, so I stopped this attempt. Try rephrasing or narrowing down the request."
)

// ChatService runs the conversation turn loop: it sends prepared history to
// the model, executes any tool calls the model makes, feeds results back,
// and repeats until the model produces a plain-text answer or a guard
// stops the turn.
type ChatService struct {
	cfg       *config.Config
	backend   llm.Backend
	catalog   *tools.Catalog
	preparer  *MessagePreparer
	enricher  *AudioContextEnricher
	validator *ResponseValidator
	metrics   *Metrics
	store     TranscriptStore // may be nil
}

// NewChatService wires the turn loop
func NewChatService(cfg *config.Config, backend llm.Backend, catalog *tools.Catalog, validator *ResponseValidator, metrics *Metrics, store TranscriptStore) *ChatService {
	return &ChatService{
		cfg:       cfg,
		backend:   backend,
		catalog:   catalog,
		preparer:  NewMessagePreparer(),
		enricher:  NewAudioContextEnricher(),
		validator: validator,
		metrics:   metrics,
		store:     store,
	}
}

// ProcessTurn runs one full conversation turn for a session. The caller must
// hold the session's turn (BeginTurn) before calling. Events stream to sink;
// the returned error, if any, is a *TurnError describing why no response was
// produced.
func (s *ChatService) ProcessTurn(ctx context.Context, session *Session, userContent string, sink EventSink) error {
	start := time.Now()
	strategy, err := s.strategyFor(session)
	if err != nil {
		return &TurnError{Type: "configuration_error", Message: err.Error()}
	}

	enriched, injected := s.enricher.Enrich(userContent, session.Messages)
	if injected {
		log.Printf("🎧 [TURN] Audio context injected for session %s", session.ID)
	}
	s.append(session, models.NewMessage(models.RoleUser, enriched))

	consecutiveToolCalls := 0
	ring := newNameRing(s.cfg.ToolPatternWindow)

	for iteration := 1; iteration <= s.cfg.MaxTurnIterations; iteration++ {
		turnLog := logging.WithTurn(session.ID, iteration)
		turnLog.Debug("model round-trip", "history_len", len(session.Messages))

		msg, err := s.completeOnce(ctx, session, strategy)
		if err != nil {
			s.metrics.BackendErrors.Inc()
			s.finish(start, iteration, "backend_error")
			return &TurnError{Type: "backend_error", Message: err.Error()}
		}

		thinking, cleaned := llm.ExtractThinking(msg.Content)
		if thinking != "" {
			s.append(session, models.NewMessage(models.RoleThinking, thinking))
		}
		msg.Content = cleaned

		calls := strategy.Parser.Extract(msg)
		if len(calls) == 0 {
			final := strings.TrimSpace(strategy.Parser.Strip(cleaned))
			if failure := s.checkResponse(session, final); failure != nil {
				s.finish(start, iteration, failure.ErrorType)
				return &TurnError{Type: failure.ErrorType, Message: validationNotice}
			}
			s.append(session, models.NewMessage(models.RoleAssistant, final))
			sink(models.ServerMessage{Type: "response", SessionID: session.ID, Content: final})
			s.finish(start, iteration, "ok")
			return nil
		}

		// one tool-invoking round-trip, regardless of how many calls it made
		consecutiveToolCalls++
		for _, call := range calls {
			ring.Push(call.Name)
		}
		if failure := s.validator.ValidateToolCallLoops(consecutiveToolCalls, ring.Window()); failure != nil {
			s.metrics.ValidationFailures.WithLabelValues(failure.ErrorType).Inc()
			log.Printf("🛑 [TURN] Tool loop guard tripped (%s) for session %s after %d tool turns",
				failure.ErrorType, session.ID, consecutiveToolCalls)
			s.append(session, models.NewMessage(models.RoleAssistant, toolLoopNotice))
			s.finish(start, iteration, failure.ErrorType)
			return &TurnError{Type: failure.ErrorType, Message: toolLoopNotice}
		}

		s.executeToolCalls(session, turnLog, calls, sink)
	}

	s.finish(start, s.cfg.MaxTurnIterations, "max_iterations_exceeded")
	return &TurnError{
		Type:    "max_iterations_exceeded",
		Message: fmt.Sprintf("turn did not converge within %d model round-trips", s.cfg.MaxTurnIterations),
	}
}

// strategyFor lazily resolves and caches a session's model strategy
func (s *ChatService) strategyFor(session *Session) (*llm.ModelStrategy, error) {
	if session.Strategy != nil {
		return session.Strategy, nil
	}
	strategy, err := llm.SelectStrategy(s.cfg.Model, s.cfg.ModelFormat)
	if err != nil {
		return nil, err
	}
	session.Strategy = strategy
	log.Printf("🧭 [TURN] Session %s using %s strategy for model %s", session.ID, strategy.Family, s.cfg.Model)
	return strategy, nil
}

// completeOnce prepares the wire messages and runs a single model call
func (s *ChatService) completeOnce(ctx context.Context, session *Session, strategy *llm.ModelStrategy) (*llm.CompletionMessage, error) {
	// structured tool definitions ride along with every request, so their
	// token cost comes out of the history budget
	budget := s.cfg.MaxContextTokens
	var schemas []map[string]interface{}
	if strategy.Provider.PassesToolsAsParameter() && s.backend.SupportsTools() {
		schemas = s.catalog.AllSchemas()
		budget -= EstimateToolDefTokens(schemas)
	}
	injection := s.toolInjection(strategy)
	budget -= EstimateTokens(injection)

	prepared := s.preparer.Prepare(session.Messages, budget, false)
	wire := s.wireMessages(prepared, strategy, injection)

	model := session.ModelID
	if model == "" {
		model = s.cfg.Model
	}
	req := &llm.ChatCompletionRequest{
		Model:       model,
		Messages:    wire,
		Temperature: strategy.Sampling.Temperature,
		TopP:        strategy.Sampling.TopP,
		TopK:        strategy.Sampling.TopK,
		Tools:       schemas,
	}

	callCtx, cancel := context.WithTimeout(ctx, s.cfg.BackendTimeout)
	defer cancel()

	completion, err := s.backend.CreateChatCompletion(callCtx, req)
	if err != nil {
		return nil, err
	}
	if len(completion.Choices) == 0 {
		return nil, fmt.Errorf("completion contained no choices")
	}
	return &completion.Choices[0].Message, nil
}

// toolInjection renders the prompt text for strategies that teach tool use
// through the conversation rather than the structured tools parameter.
func (s *ChatService) toolInjection(strategy *llm.ModelStrategy) string {
	if !strategy.Provider.InjectsToolsAsText() {
		return ""
	}
	var sb strings.Builder
	sb.WriteString(strategy.Provider.FormatToolInstructions())
	sb.WriteString("\n\n")
	sb.WriteString(strategy.Provider.FormatToolSchemas(s.catalog.AllTools()))
	if examples := strategy.Provider.ToolCallExamples(); examples != "" {
		sb.WriteString("\n")
		sb.WriteString(examples)
	}
	return sb.String()
}

// wireMessages converts prepared history to the wire shape, injecting
// text-rendered tool instructions and the thinking-mode suffix where the
// strategy calls for them.
func (s *ChatService) wireMessages(prepared []models.Message, strategy *llm.ModelStrategy, injection string) []map[string]interface{} {
	wire := make([]map[string]interface{}, 0, len(prepared))
	for _, msg := range prepared {
		// the thinking scratchpad stays server-side; backends only accept
		// the standard chat roles
		if msg.Role == models.RoleThinking {
			continue
		}
		entry := map[string]interface{}{
			"role":    string(msg.Role),
			"content": msg.Content,
		}
		if msg.Role == models.RoleAssistant && len(msg.ToolCalls) > 0 {
			var toolCalls []map[string]interface{}
			for _, call := range msg.ToolCalls {
				args, _ := json.Marshal(call.Arguments)
				toolCalls = append(toolCalls, map[string]interface{}{
					"id":   call.ID,
					"type": "function",
					"function": map[string]interface{}{
						"name":      call.Name,
						"arguments": string(args),
					},
				})
			}
			entry["tool_calls"] = toolCalls
		}
		if msg.Role == models.RoleTool {
			entry["tool_call_id"] = msg.ToolCallID
			entry["name"] = msg.ToolName
		}
		wire = append(wire, entry)
	}

	if len(wire) > 0 && injection != "" {
		first := wire[0]
		first["content"] = injection + "\n\n" + first["content"].(string)
	}

	if strategy.Thinking.Enabled && strategy.Thinking.Suffix != "" {
		for i := len(wire) - 1; i >= 0; i-- {
			if wire[i]["role"] == string(models.RoleUser) {
				content := wire[i]["content"].(string)
				if !strings.HasSuffix(content, strategy.Thinking.Suffix) {
					wire[i]["content"] = content + " " + strategy.Thinking.Suffix
				}
				break
			}
		}
	}
	return wire
}

// executeToolCalls records the assistant's tool-call message, runs the calls
// concurrently, and appends results in the order the model requested them.
func (s *ChatService) executeToolCalls(session *Session, turnLog *slog.Logger, calls []llm.ToolCallRequest, sink EventSink) {
	assistantCalls := make([]models.ToolCall, len(calls))
	for i, call := range calls {
		args := s.prepareArgs(session, call)
		if tool, _, ok := s.catalog.Resolve(call.Name); ok {
			logging.WithTool(turnLog, tool.Name, string(tool.Category)).Debug("executing tool")
		}
		assistantCalls[i] = models.ToolCall{ID: uuid.New().String(), Name: call.Name, Arguments: args}
		sink(models.ServerMessage{
			Type:      "tool_call",
			SessionID: session.ID,
			ToolName:  call.Name,
			Arguments: args,
		})
	}
	assistantMsg := models.NewMessage(models.RoleAssistant, "")
	assistantMsg.ToolCalls = assistantCalls
	s.append(session, assistantMsg)

	results := make([]map[string]interface{}, len(calls))
	var wg sync.WaitGroup
	for i, call := range assistantCalls {
		wg.Add(1)
		go func(i int, call models.ToolCall) {
			defer wg.Done()
			results[i] = s.catalog.Call(call.Name, call.Arguments)
		}(i, call)
	}
	wg.Wait()

	for i, call := range assistantCalls {
		result := results[i]
		s.metrics.ToolCallsTotal.WithLabelValues(call.Name).Inc()
		if isError, _ := result["error"].(bool); isError {
			s.metrics.ToolFailuresTotal.WithLabelValues(call.Name).Inc()
			log.Printf("⚠️  [TOOL] %s failed: %v", call.Name, result["message"])
		}

		encoded, err := json.Marshal(result)
		if err != nil {
			encoded = []byte(`{"error":true,"error_type":"encoding_error","message":"tool result could not be encoded"}`)
		}
		toolMsg := models.NewMessage(models.RoleTool, string(encoded))
		toolMsg.ToolCallID = call.ID
		toolMsg.ToolName = call.Name
		s.append(session, toolMsg)

		sink(models.ServerMessage{
			Type:      "tool_result",
			SessionID: session.ID,
			ToolName:  call.Name,
			Result:    string(encoded),
		})
	}
}

// prepareArgs copies a call's arguments, injecting the session ID for tools
// whose execution is session-scoped (audio analysis reads the session's own
// recordings).
func (s *ChatService) prepareArgs(session *Session, call llm.ToolCallRequest) map[string]interface{} {
	args := make(map[string]interface{}, len(call.Arguments)+1)
	for k, v := range call.Arguments {
		args[k] = v
	}
	if tool, _, ok := s.catalog.Resolve(call.Name); ok && tool.Category == tools.CategoryAudioAnalysis {
		args["session_id"] = session.ID
	}
	return args
}

// checkResponse runs the response validators. The first failure ends the
// turn; the student gets the canned notice, the details go to the log.
func (s *ChatService) checkResponse(session *Session, final string) *ValidationFailure {
	failure := s.validator.ValidateTokenLimit(session.Messages)
	if failure == nil {
		failure = s.validator.ValidateResponseContent(final)
	}
	if failure != nil {
		s.metrics.ValidationFailures.WithLabelValues(failure.ErrorType).Inc()
		log.Printf("🛑 [VALIDATE] %s for session %s: %s", failure.ErrorType, session.ID, failure.Details)
	}
	return failure
}

// append writes to session history and best-effort persists
func (s *ChatService) append(session *Session, msg models.Message) {
	session.Append(msg)
	if s.store != nil {
		if err := s.store.SaveMessage(session.ID, msg); err != nil {
			log.Printf("⚠️  [DB] Failed to persist %s message for session %s: %v", msg.Role, session.ID, err)
		}
	}
}

// finish records turn metrics
func (s *ChatService) finish(start time.Time, iterations int, outcome string) {
	s.metrics.TurnsTotal.WithLabelValues(outcome).Inc()
	s.metrics.TurnDuration.Observe(time.Since(start).Seconds())
	s.metrics.TurnIterations.Observe(float64(iterations))
}
