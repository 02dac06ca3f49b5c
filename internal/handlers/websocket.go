package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"maestro/internal/audio"
	"maestro/internal/config"
	"maestro/internal/llm"
	"maestro/internal/models"
	"maestro/internal/services"
	"maestro/internal/tools"

	"github.com/gofiber/contrib/websocket"
	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

const readDeadline = 360 * time.Second

// WebSocketHandler handles the tutoring websocket: one connection per
// student, one session per conversation, one turn at a time.
type WebSocketHandler struct {
	cfg           *config.Config
	connManager   *services.ConnectionManager
	conversations *services.ConversationService
	chatService   *services.ChatService
	recordings    *tools.RecordingCollection
	analyzer      *audio.Service
}

// NewWebSocketHandler creates a new websocket handler
func NewWebSocketHandler(cfg *config.Config, connManager *services.ConnectionManager, conversations *services.ConversationService, chatService *services.ChatService, recordings *tools.RecordingCollection, analyzer *audio.Service) *WebSocketHandler {
	return &WebSocketHandler{
		cfg:           cfg,
		connManager:   connManager,
		conversations: conversations,
		chatService:   chatService,
		recordings:    recordings,
		analyzer:      analyzer,
	}
}

// Handle runs a websocket connection to completion
func (h *WebSocketHandler) Handle(c *websocket.Conn) {
	connID := uuid.New().String()
	done := make(chan struct{})

	userConn := &models.UserConnection{
		ConnID:    connID,
		Conn:      c,
		CreatedAt: time.Now(),
		WriteChan: make(chan models.ServerMessage, 100),
		TurnRate:  rate.NewLimiter(rate.Every(time.Minute/time.Duration(h.cfg.TurnsPerMinute)), h.cfg.TurnsPerMinute),
	}

	h.connManager.Register(userConn)
	defer func() {
		close(done)
		userConn.MarkClosed()
		h.connManager.Unregister(connID)
	}()

	c.SetReadDeadline(time.Now().Add(readDeadline))
	c.SetPongHandler(func(string) error {
		c.SetReadDeadline(time.Now().Add(readDeadline))
		return nil
	})

	go h.pingLoop(userConn, done)
	go h.writeLoop(userConn)

	userConn.WriteChan <- models.ServerMessage{
		Type:    "connected",
		Content: "Connected. Send a message to start the lesson.",
	}

	h.readLoop(userConn)
}

// pingLoop keeps the connection alive across long turns
func (h *WebSocketHandler) pingLoop(userConn *models.UserConnection, done <-chan struct{}) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if userConn.IsClosed() {
				return
			}
			userConn.Mutex.Lock()
			err := userConn.Conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(10*time.Second))
			userConn.Mutex.Unlock()
			if err != nil {
				log.Printf("⚠️ Ping failed for %s: %v", userConn.ConnID, err)
				return
			}
		}
	}
}

// readLoop dispatches incoming client messages
func (h *WebSocketHandler) readLoop(userConn *models.UserConnection) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("❌ Panic in readLoop: %v", r)
		}
	}()

	for {
		_, msg, err := userConn.Conn.ReadMessage()
		if err != nil {
			log.Printf("🔌 WebSocket closed for %s: %v", userConn.ConnID, err)
			return
		}
		userConn.Conn.SetReadDeadline(time.Now().Add(readDeadline))

		var clientMsg models.ClientMessage
		if err := json.Unmarshal(msg, &clientMsg); err != nil {
			log.Printf("⚠️  Invalid message format from %s: %v", userConn.ConnID, err)
			userConn.SafeSend(models.ServerMessage{
				Type:         "error",
				ErrorCode:    "invalid_format",
				ErrorMessage: "Invalid message format",
			})
			continue
		}

		switch clientMsg.Type {
		case "ping":
			userConn.SafeSend(models.ServerMessage{Type: "pong"})
		case "message":
			h.handleMessage(userConn, clientMsg)
		case "audio_ready":
			h.handleAudioReady(userConn, clientMsg)
		case "cancel_recording":
			h.handleCancelRecording(userConn, clientMsg)
		default:
			log.Printf("⚠️  Unknown message type from %s: %s", userConn.ConnID, clientMsg.Type)
		}
	}
}

// handleMessage starts a conversation turn for a student message
func (h *WebSocketHandler) handleMessage(userConn *models.UserConnection, clientMsg models.ClientMessage) {
	if clientMsg.Content == "" {
		h.sendError(userConn, "empty_message", "Message content is required")
		return
	}
	h.runTurn(userConn, clientMsg, clientMsg.Content)
}

// handleAudioReady analyzes a finished recording and runs a turn on the
// result so the model comments on what the student actually played.
func (h *WebSocketHandler) handleAudioReady(userConn *models.UserConnection, clientMsg models.ClientMessage) {
	if clientMsg.RecordingID == "" {
		h.sendError(userConn, "missing_recording_id", "recording_id is required for audio_ready")
		return
	}
	if !h.recordings.Cancel(clientMsg.RecordingID) {
		h.sendError(userConn, "unknown_recording", "No pending recording with that ID")
		return
	}

	session := h.sessionFor(userConn, clientMsg)
	analysis, err := h.analyzer.Analyze(clientMsg.RecordingID, session.ID)
	if err != nil {
		h.sendError(userConn, "analysis_failed", err.Error())
		return
	}
	encoded, err := json.Marshal(analysis)
	if err != nil {
		h.sendError(userConn, "analysis_failed", "analysis result could not be encoded")
		return
	}

	content := fmt.Sprintf("%s The student finished recording %s. Performance analysis: %s",
		models.AnalysisMarker, clientMsg.RecordingID, string(encoded))
	h.runTurn(userConn, clientMsg, content)
}

// handleCancelRecording drops a pending recording request
func (h *WebSocketHandler) handleCancelRecording(userConn *models.UserConnection, clientMsg models.ClientMessage) {
	if h.recordings.Cancel(clientMsg.RecordingID) {
		userConn.SafeSend(models.ServerMessage{
			Type:        "recording_cancelled",
			RecordingID: clientMsg.RecordingID,
		})
		return
	}
	h.sendError(userConn, "unknown_recording", "No pending recording with that ID")
}

// sessionFor resolves the connection's session, honoring a client-supplied
// session ID and per-connection model selection.
func (h *WebSocketHandler) sessionFor(userConn *models.UserConnection, clientMsg models.ClientMessage) *services.Session {
	if clientMsg.SessionID != "" {
		userConn.SessionID = clientMsg.SessionID
	}
	if clientMsg.ModelID != "" {
		userConn.ModelID = clientMsg.ModelID
	}
	if clientMsg.Format != "" {
		userConn.Format = clientMsg.Format
	}

	session := h.conversations.GetOrCreate(userConn.SessionID)
	userConn.SessionID = session.ID

	// per-connection model selection pins the session's strategy before the
	// turn loop resolves its default
	if session.Strategy == nil && userConn.ModelID != "" {
		strategy, err := llm.SelectStrategy(userConn.ModelID, userConn.Format)
		if err != nil {
			log.Printf("⚠️  Ignoring model selection for %s: %v", userConn.ConnID, err)
		} else {
			session.Strategy = strategy
			session.ModelID = userConn.ModelID
			log.Printf("🎯 Model selected for %s: %s (%s strategy)", userConn.ConnID, userConn.ModelID, strategy.Family)
		}
	}
	return session
}

// runTurn enforces the per-connection rate limit and single-turn rule, then
// hands the content to the turn loop.
func (h *WebSocketHandler) runTurn(userConn *models.UserConnection, clientMsg models.ClientMessage, content string) {
	if !userConn.TurnRate.Allow() {
		h.sendError(userConn, "rate_limited", "Too many messages, slow down a little")
		return
	}

	session := h.sessionFor(userConn, clientMsg)
	if !session.BeginTurn() {
		h.sendError(userConn, "turn_in_progress", "A response is already being generated for this session")
		return
	}

	go func() {
		defer session.EndTurn()
		defer func() {
			if r := recover(); r != nil {
				log.Printf("❌ Panic in turn for session %s: %v", session.ID, r)
				h.sendError(userConn, "internal_error", "Something went wrong processing the turn")
			}
		}()

		sink := func(msg models.ServerMessage) { userConn.SafeSend(msg) }
		err := h.chatService.ProcessTurn(context.Background(), session, content, sink)
		if err != nil {
			var turnErr *services.TurnError
			if errors.As(err, &turnErr) {
				h.sendError(userConn, turnErr.Type, turnErr.Message)
				return
			}
			h.sendError(userConn, "internal_error", err.Error())
		}
	}()
}

func (h *WebSocketHandler) sendError(userConn *models.UserConnection, code, message string) {
	userConn.SafeSend(models.ServerMessage{
		Type:         "error",
		SessionID:    userConn.SessionID,
		ErrorCode:    code,
		ErrorMessage: message,
	})
}

// writeLoop serializes all outbound writes for a connection
func (h *WebSocketHandler) writeLoop(userConn *models.UserConnection) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("❌ Panic in writeLoop: %v", r)
		}
	}()

	for msg := range userConn.WriteChan {
		if err := userConn.Conn.WriteJSON(msg); err != nil {
			log.Printf("❌ WebSocket write error for %s: %v", userConn.ConnID, err)
			return
		}
	}
}
