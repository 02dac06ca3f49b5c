package services

import (
	"log"
	"sync"
	"time"

	"maestro/internal/llm"
	"maestro/internal/models"

	"github.com/google/uuid"
)

// Session owns one student's conversation. Its history grows monotonically;
// the bounded prepared view is derived per turn and never stored. All
// mutation happens from the session's own turn loop — turns never
// interleave (see BeginTurn).
type Session struct {
	ID         string
	Messages   []models.Message
	ModelID    string // empty means the configured default model
	Strategy   *llm.ModelStrategy
	CreatedAt  time.Time
	LastActive time.Time

	mu       sync.Mutex
	inFlight bool
}

// BeginTurn claims the session for one turn. It returns false when a turn
// is already running — the transport rejects the second message instead of
// interleaving history mutations.
func (s *Session) BeginTurn() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inFlight {
		return false
	}
	s.inFlight = true
	return true
}

// EndTurn releases the session
func (s *Session) EndTurn() {
	s.mu.Lock()
	s.inFlight = false
	s.mu.Unlock()
}

// Append adds a message to the full history and bumps activity. The lock
// synchronizes with readers outside the turn loop (sweeper, introspection);
// within the loop the turn claim already serializes access.
func (s *Session) Append(msg models.Message) {
	s.mu.Lock()
	s.Messages = append(s.Messages, msg)
	s.LastActive = time.Now()
	s.mu.Unlock()
}

// History returns a point-in-time view of the message slice for readers
// that do not hold the turn. The view is capacity-limited, so concurrent
// appends never write into it.
func (s *Session) History() []models.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Messages[:len(s.Messages):len(s.Messages)]
}

// ConversationService manages per-session message history. Histories are
// lazily seeded with the current system prompt on first access.
type ConversationService struct {
	sessions map[string]*Session
	mutex    sync.RWMutex
	prompts  *PromptService
}

// NewConversationService creates the session store
func NewConversationService(prompts *PromptService) *ConversationService {
	return &ConversationService{
		sessions: make(map[string]*Session),
		prompts:  prompts,
	}
}

// GetOrCreate returns the session for an ID, creating and seeding it on
// first access. An empty ID allocates a fresh session.
func (cs *ConversationService) GetOrCreate(id string) *Session {
	if id == "" {
		id = uuid.New().String()
	}

	cs.mutex.RLock()
	session, ok := cs.sessions[id]
	cs.mutex.RUnlock()
	if ok {
		return session
	}

	cs.mutex.Lock()
	defer cs.mutex.Unlock()
	if session, ok := cs.sessions[id]; ok {
		return session
	}

	now := time.Now()
	session = &Session{
		ID:         id,
		CreatedAt:  now,
		LastActive: now,
	}
	session.Messages = append(session.Messages, models.NewMessage(models.RoleSystem, cs.prompts.Get()))
	cs.sessions[id] = session
	log.Printf("🆕 Session created: %s (total: %d)", id, len(cs.sessions))
	return session
}

// Get returns an existing session without creating one
func (cs *ConversationService) Get(id string) (*Session, bool) {
	cs.mutex.RLock()
	defer cs.mutex.RUnlock()
	session, ok := cs.sessions[id]
	return session, ok
}

// Remove drops a session from the store
func (cs *ConversationService) Remove(id string) {
	cs.mutex.Lock()
	defer cs.mutex.Unlock()
	delete(cs.sessions, id)
}

// Count returns the number of live sessions
func (cs *ConversationService) Count() int {
	cs.mutex.RLock()
	defer cs.mutex.RUnlock()
	return len(cs.sessions)
}

// IdleSessions returns sessions whose last activity is older than ttl and
// that have no turn in flight.
func (cs *ConversationService) IdleSessions(ttl time.Duration) []*Session {
	cs.mutex.RLock()
	defer cs.mutex.RUnlock()

	var idle []*Session
	deadline := time.Now().Add(-ttl)
	for _, session := range cs.sessions {
		session.mu.Lock()
		busy := session.inFlight
		last := session.LastActive
		session.mu.Unlock()
		if !busy && last.Before(deadline) {
			idle = append(idle, session)
		}
	}
	return idle
}

// Thinking returns a derived, read-only view of the thinking messages in a
// session's history with neighboring-message previews. Never mutates
// history.
func (cs *ConversationService) Thinking(id string) []models.ThinkingEntry {
	session, ok := cs.Get(id)
	if !ok {
		return nil
	}

	history := session.History()
	var entries []models.ThinkingEntry
	for i, msg := range history {
		if msg.Role != models.RoleThinking {
			continue
		}
		preview := ""
		if i+1 < len(history) {
			preview = truncate(history[i+1].Content, 80)
		} else if i > 0 {
			preview = truncate(history[i-1].Content, 80)
		}
		entries = append(entries, models.ThinkingEntry{
			Text:     msg.Content,
			Position: i,
			Preview:  preview,
		})
	}
	return entries
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
