package handlers

import (
	"time"

	"maestro/internal/services"

	"github.com/gofiber/fiber/v2"
)

// HealthHandler handles health check requests
type HealthHandler struct {
	connManager   *services.ConnectionManager
	conversations *services.ConversationService
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(connManager *services.ConnectionManager, conversations *services.ConversationService) *HealthHandler {
	return &HealthHandler{connManager: connManager, conversations: conversations}
}

// Handle responds with server health status
func (h *HealthHandler) Handle(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":      "healthy",
		"connections": h.connManager.Count(),
		"sessions":    h.conversations.Count(),
		"timestamp":   time.Now().Format(time.RFC3339),
	})
}
