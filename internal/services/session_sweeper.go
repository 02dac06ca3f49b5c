package services

import (
	"log"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// SessionSweeper evicts idle sessions on a fixed schedule. Transcripts
// survive eviction because every message was persisted as it was appended;
// only the in-memory history is dropped.
type SessionSweeper struct {
	conversations *ConversationService
	ttl           time.Duration
	scheduler     gocron.Scheduler
}

// NewSessionSweeper builds the sweeper and its scheduler
func NewSessionSweeper(conversations *ConversationService, ttl, interval time.Duration) (*SessionSweeper, error) {
	sweeper := &SessionSweeper{
		conversations: conversations,
		ttl:           ttl,
	}

	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}
	_, err = scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(sweeper.Sweep),
	)
	if err != nil {
		return nil, err
	}
	sweeper.scheduler = scheduler
	return sweeper, nil
}

// Start begins the sweep schedule
func (s *SessionSweeper) Start() {
	s.scheduler.Start()
	log.Printf("🧹 Session sweeper started (ttl=%s)", s.ttl)
}

// Stop shuts the scheduler down
func (s *SessionSweeper) Stop() {
	if err := s.scheduler.Shutdown(); err != nil {
		log.Printf("⚠️ Session sweeper shutdown: %v", err)
	}
}

// Sweep evicts every idle session past the TTL. Sessions with a turn in
// flight are never evicted.
func (s *SessionSweeper) Sweep() {
	idle := s.conversations.IdleSessions(s.ttl)
	for _, session := range idle {
		s.conversations.Remove(session.ID)
	}
	if len(idle) > 0 {
		log.Printf("🧹 Swept %d idle session(s) (remaining: %d)", len(idle), s.conversations.Count())
	}
}
