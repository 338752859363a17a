package store

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/petclinic/genai-service/internal/domain"
)

// SQLiteSessionStore implements agent.SessionStore backed by SQLite.
// Conversations survive process restarts; maxMessages bounds how much
// history is replayed into the model context.
type SQLiteSessionStore struct {
	db          *DB
	maxMessages int
}

// NewSQLiteSessionStore creates a session store using the given database.
func NewSQLiteSessionStore(db *DB, maxMessages int) *SQLiteSessionStore {
	return &SQLiteSessionStore{db: db, maxMessages: maxMessages}
}

// GetOrCreate finds an existing session by ID or creates a new one.
func (s *SQLiteSessionStore) GetOrCreate(id string) *domain.Session {
	if sess := s.Get(id); sess != nil {
		return sess
	}

	sess := domain.Session{
		ID:        id,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	_, err := s.db.sql.Exec(
		`INSERT INTO sessions (id, created_at, updated_at) VALUES (?, ?, ?)`,
		sess.ID, sess.CreatedAt.Format(time.DateTime), sess.UpdatedAt.Format(time.DateTime),
	)
	if err != nil {
		s.db.log.Error().Err(err).Str("session", id).Msg("failed to create session")
	}
	return &sess
}

// Get returns a session by ID with its messages, or nil if not found.
func (s *SQLiteSessionStore) Get(id string) *domain.Session {
	var sess domain.Session
	var createdAt, updatedAt string

	err := s.db.sql.QueryRow(
		`SELECT id, created_at, updated_at FROM sessions WHERE id = ?`, id,
	).Scan(&sess.ID, &createdAt, &updatedAt)
	if err != nil {
		return nil
	}

	sess.CreatedAt, _ = time.Parse(time.DateTime, createdAt)
	sess.UpdatedAt, _ = time.Parse(time.DateTime, updatedAt)
	sess.Messages = s.loadMessages(id)
	return &sess
}

// Append adds a message, creating the session row if it does not exist. A
// reset can race an in-flight turn; the turn's later appends then start a
// fresh session rather than vanish (last write wins).
func (s *SQLiteSessionStore) Append(sessionID string, msg domain.Message) {
	var toolCallsJSON sql.NullString
	if len(msg.ToolCalls) > 0 {
		if data, err := json.Marshal(msg.ToolCalls); err == nil {
			toolCallsJSON = sql.NullString{String: string(data), Valid: true}
		}
	}

	ts := msg.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}

	now := time.Now().Format(time.DateTime)
	if _, err := s.db.sql.Exec(
		`INSERT OR IGNORE INTO sessions (id, created_at, updated_at) VALUES (?, ?, ?)`,
		sessionID, now, now,
	); err != nil {
		s.db.log.Error().Err(err).Str("session", sessionID).Msg("failed to ensure session")
		return
	}

	_, err := s.db.sql.Exec(
		`INSERT INTO messages (session_id, role, content, timestamp, tool_calls, tool_call_id)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		sessionID, msg.Role, msg.Content, ts.Format(time.DateTime), toolCallsJSON, msg.ToolCallID,
	)
	if err != nil {
		s.db.log.Error().Err(err).Str("session", sessionID).Msg("failed to append message")
		return
	}

	_, _ = s.db.sql.Exec(
		`UPDATE sessions SET updated_at = ? WHERE id = ?`,
		time.Now().Format(time.DateTime), sessionID,
	)
}

// History returns the message history for a session, trimmed to the
// configured bound.
func (s *SQLiteSessionStore) History(sessionID string) []domain.Message {
	return domain.TrimMessages(s.loadMessages(sessionID), s.maxMessages)
}

// Reset deletes a session and all its messages.
func (s *SQLiteSessionStore) Reset(sessionID string) {
	if _, err := s.db.sql.Exec(`DELETE FROM sessions WHERE id = ?`, sessionID); err != nil {
		s.db.log.Error().Err(err).Str("session", sessionID).Msg("failed to reset session")
		return
	}
	s.db.log.Info().Str("session", sessionID).Msg("session reset")
}

// List returns all session IDs, most recently updated first.
func (s *SQLiteSessionStore) List() []string {
	rows, err := s.db.sql.Query(`SELECT id FROM sessions ORDER BY updated_at DESC`)
	if err != nil {
		return nil
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids
}

// loadMessages loads all messages for a session in insertion order.
func (s *SQLiteSessionStore) loadMessages(sessionID string) []domain.Message {
	rows, err := s.db.sql.Query(
		`SELECT role, content, timestamp, tool_calls, tool_call_id
		 FROM messages WHERE session_id = ? ORDER BY id`, sessionID,
	)
	if err != nil {
		return nil
	}
	defer rows.Close()

	var msgs []domain.Message
	for rows.Next() {
		var msg domain.Message
		var ts string
		var toolCallsJSON sql.NullString

		if err := rows.Scan(&msg.Role, &msg.Content, &ts, &toolCallsJSON, &msg.ToolCallID); err != nil {
			continue
		}
		msg.Timestamp, _ = time.Parse(time.DateTime, ts)

		if toolCallsJSON.Valid && toolCallsJSON.String != "" {
			_ = json.Unmarshal([]byte(toolCallsJSON.String), &msg.ToolCalls)
		}

		msgs = append(msgs, msg)
	}
	return msgs
}
