package handlers

import (
	"maestro/internal/database"
	"maestro/internal/services"

	"github.com/gofiber/fiber/v2"
)

// SessionHandler serves read-only session introspection endpoints
type SessionHandler struct {
	conversations *services.ConversationService
	db            *database.Database
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(conversations *services.ConversationService, db *database.Database) *SessionHandler {
	return &SessionHandler{conversations: conversations, db: db}
}

// Transcript returns a session's persisted transcript
func (h *SessionHandler) Transcript(c *fiber.Ctx) error {
	sessionID := c.Params("id")
	messages, err := h.db.LoadTranscript(sessionID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to load transcript",
		})
	}
	if len(messages) == 0 {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "no transcript for session",
		})
	}
	return c.JSON(fiber.Map{
		"session_id": sessionID,
		"messages":   messages,
	})
}

// Thinking returns the model's reasoning trace for a live session. The
// trace is a derived view; requesting it never alters the conversation.
func (h *SessionHandler) Thinking(c *fiber.Ctx) error {
	sessionID := c.Params("id")
	if _, ok := h.conversations.Get(sessionID); !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "unknown session",
		})
	}
	entries := h.conversations.Thinking(sessionID)
	return c.JSON(fiber.Map{
		"session_id": sessionID,
		"thinking":   entries,
	})
}
