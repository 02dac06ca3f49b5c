package database

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"maestro/internal/models"

	_ "modernc.org/sqlite"
)

// Database persists conversation transcripts to SQLite. One row per
// message, append-only; the in-memory session is the source of truth while
// a session is live.
type Database struct {
	db *sql.DB
}

// New opens (or creates) the transcript database and runs migrations
func New(path string) (*Database, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// modernc sqlite is single-writer; serialize access through one conn
	db.SetMaxOpenConns(1)

	d := &Database{db: db}
	if err := d.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	log.Printf("✅ Transcript database ready: %s", path)
	return d, nil
}

func (d *Database) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS transcript_messages (
		id           INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id   TEXT NOT NULL,
		role         TEXT NOT NULL,
		content      TEXT NOT NULL,
		tool_calls   TEXT,
		tool_call_id TEXT,
		tool_name    TEXT,
		created_at   INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_transcript_session
		ON transcript_messages (session_id, id);`
	if _, err := d.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}

// SaveMessage appends one message to a session's transcript
func (d *Database) SaveMessage(sessionID string, msg models.Message) error {
	var toolCalls interface{}
	if len(msg.ToolCalls) > 0 {
		encoded, err := json.Marshal(msg.ToolCalls)
		if err != nil {
			return fmt.Errorf("failed to encode tool calls: %w", err)
		}
		toolCalls = string(encoded)
	}

	createdAt := msg.Timestamp
	if createdAt == 0 {
		createdAt = time.Now().UnixMilli()
	}

	_, err := d.db.Exec(
		`INSERT INTO transcript_messages
			(session_id, role, content, tool_calls, tool_call_id, tool_name, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		sessionID, string(msg.Role), msg.Content, toolCalls,
		nullable(msg.ToolCallID), nullable(msg.ToolName), createdAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save message: %w", err)
	}
	return nil
}

// LoadTranscript returns a session's messages in append order
func (d *Database) LoadTranscript(sessionID string) ([]models.Message, error) {
	rows, err := d.db.Query(
		`SELECT role, content, tool_calls, tool_call_id, tool_name, created_at
		 FROM transcript_messages
		 WHERE session_id = ?
		 ORDER BY id`,
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load transcript: %w", err)
	}
	defer rows.Close()

	var messages []models.Message
	for rows.Next() {
		var (
			role, content          string
			toolCalls              sql.NullString
			toolCallID, toolName   sql.NullString
			createdAt              int64
		)
		if err := rows.Scan(&role, &content, &toolCalls, &toolCallID, &toolName, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}

		msg := models.Message{
			Role:       models.Role(role),
			Content:    content,
			ToolCallID: toolCallID.String,
			ToolName:   toolName.String,
			Timestamp:  createdAt,
		}
		if toolCalls.Valid && toolCalls.String != "" {
			if err := json.Unmarshal([]byte(toolCalls.String), &msg.ToolCalls); err != nil {
				log.Printf("⚠️  [DB] Skipping unreadable tool_calls for session %s: %v", sessionID, err)
			}
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

// DeleteTranscript removes a session's transcript
func (d *Database) DeleteTranscript(sessionID string) error {
	_, err := d.db.Exec(`DELETE FROM transcript_messages WHERE session_id = ?`, sessionID)
	return err
}

// Close closes the database
func (d *Database) Close() error {
	return d.db.Close()
}

func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
