package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ChatMessage is one turn of a conversation.
type ChatMessage struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Session holds the state of one conversation: its system prompt and the
// full message history in order.
type Session struct {
	ID           string
	SystemPrompt string
	Messages     []ChatMessage
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// SessionStore persists chat sessions.
// This interface is defined from the service layer's perspective (consumer-first).
type SessionStore interface {
	// Create creates a session with the given system prompt and returns it.
	Create(ctx context.Context, systemPrompt string) (*Session, error)
	// Get returns the session with the given id, or ErrSessionNotFound.
	Get(ctx context.Context, id string) (*Session, error)
	// Put replaces the stored state of an existing session.
	Put(ctx context.Context, session *Session) error
	// Delete removes a session, or returns ErrSessionNotFound.
	Delete(ctx context.Context, id string) error
}

// memorySessionStore keeps sessions in process memory. Sessions do not
// survive a restart; clients are expected to create a new one.
type memorySessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewMemorySessionStore creates an in-memory SessionStore.
func NewMemorySessionStore() SessionStore {
	return &memorySessionStore{
		sessions: make(map[string]*Session),
	}
}

func (s *memorySessionStore) Create(ctx context.Context, systemPrompt string) (*Session, error) {
	now := time.Now().UTC()
	session := &Session{
		ID:           uuid.NewString(),
		SystemPrompt: systemPrompt,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	s.mu.Lock()
	s.sessions[session.ID] = session
	s.mu.Unlock()

	return copySession(session), nil
}

func (s *memorySessionStore) Get(ctx context.Context, id string) (*Session, error) {
	s.mu.RLock()
	session, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	return copySession(session), nil
}

func (s *memorySessionStore) Put(ctx context.Context, session *Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[session.ID]; !ok {
		return ErrSessionNotFound
	}
	stored := copySession(session)
	stored.UpdatedAt = time.Now().UTC()
	s.sessions[session.ID] = stored
	return nil
}

func (s *memorySessionStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[id]; !ok {
		return ErrSessionNotFound
	}
	delete(s.sessions, id)
	return nil
}

// copySession deep-copies a session so callers cannot mutate stored state
// behind the store's lock.
func copySession(session *Session) *Session {
	clone := *session
	clone.Messages = make([]ChatMessage, len(session.Messages))
	copy(clone.Messages, session.Messages)
	return &clone
}
