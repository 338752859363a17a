package agent

import (
	"sync"
	"time"

	"github.com/petclinic/genai-service/internal/domain"
)

// SessionStore manages conversation sessions.
type SessionStore interface {
	// GetOrCreate finds an existing session by ID or creates a new one.
	GetOrCreate(id string) *domain.Session

	// Get returns a session by ID, or nil if not found.
	Get(id string) *domain.Session

	// Append adds a message to a session, creating the session if needed.
	Append(sessionID string, msg domain.Message)

	// History returns the message history for a session, trimmed to the
	// store's bound.
	History(sessionID string) []domain.Message

	// Reset discards a session and all its messages.
	Reset(sessionID string)

	// List returns all session IDs.
	List() []string
}

// MemorySessionStore is an in-memory SessionStore implementation. History
// lives only as long as the process; maxMessages bounds what is replayed
// into the model context.
type MemorySessionStore struct {
	mu          sync.RWMutex
	sessions    map[string]*domain.Session
	maxMessages int
}

// NewMemorySessionStore creates an in-memory session store.
func NewMemorySessionStore(maxMessages int) *MemorySessionStore {
	return &MemorySessionStore{
		sessions:    make(map[string]*domain.Session),
		maxMessages: maxMessages,
	}
}

func (s *MemorySessionStore) GetOrCreate(id string) *domain.Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sess, ok := s.sessions[id]; ok {
		return sess
	}
	sess := &domain.Session{
		ID:        id,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	s.sessions[id] = sess
	return sess
}

func (s *MemorySessionStore) Get(id string) *domain.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sessions[id]
}

// Append adds a message, creating the session if it does not exist. A reset
// can race an in-flight turn; the turn's later appends then start a fresh
// session rather than vanish (last write wins).
func (s *MemorySessionStore) Append(sessionID string, msg domain.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		sess = &domain.Session{
			ID:        sessionID,
			CreatedAt: time.Now(),
		}
		s.sessions[sessionID] = sess
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}
	sess.Messages = append(sess.Messages, msg)
	sess.UpdatedAt = time.Now()
}

func (s *MemorySessionStore) History(sessionID string) []domain.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return nil
	}
	msgs := make([]domain.Message, len(sess.Messages))
	copy(msgs, sess.Messages)
	return domain.TrimMessages(msgs, s.maxMessages)
}

func (s *MemorySessionStore) Reset(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
}

func (s *MemorySessionStore) List() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.sessions))
	for id := range s.sessions {
		ids = append(ids, id)
	}
	return ids
}
