package service

import (
	"context"
	"sync"
	"time"

	"finchat-ai/internal/contextutil"
	"finchat-ai/internal/llm"
	"finchat-ai/internal/retrieval"
)

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_chat_service.go -package=mocks -mock_names=ChatService=MockChatService finchat-ai/internal/service ChatService
//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_deps.go -package=mocks finchat-ai/internal/service Retriever,Completer,SessionStore

const (
	// retrievalTopK is how many context chunks a chat turn retrieves.
	retrievalTopK = 5

	// maxHistoryMessages bounds the conversation window sent to the model.
	maxHistoryMessages = 20
)

// Retriever runs hybrid retrieval for a user query.
// This interface is defined from the service layer's perspective (consumer-first).
type Retriever interface {
	Retrieve(ctx context.Context, query string, topK int) (retrieval.Result, error)
}

// Completer generates a chat completion from a message history.
type Completer interface {
	ChatWithMessages(ctx context.Context, messages []llm.Message, params llm.ChatParams) (string, error)
}

// ChatRequest represents a chat turn in the domain layer. An empty SessionID
// starts a new session with the default system prompt.
type ChatRequest struct {
	SessionID string
	Message   string `validate:"required"`
}

// ChatResponse represents the outcome of a chat turn.
type ChatResponse struct {
	SessionID   string
	Content     string
	Suggestions []string
}

// ChatService provides retrieval-augmented chat over sessions.
type ChatService interface {
	// Chat processes one user message inside a session and returns the reply.
	Chat(ctx context.Context, req ChatRequest) (ChatResponse, error)
	// CreateSession starts a new session; an empty prompt uses the default.
	CreateSession(ctx context.Context, systemPrompt string) (*Session, error)
	// UpdateSystemPrompt replaces a session's system prompt.
	UpdateSystemPrompt(ctx context.Context, sessionID, systemPrompt string) error
	// GetHistory returns a session's message history in order.
	GetHistory(ctx context.Context, sessionID string) ([]ChatMessage, error)
	// DeleteSession removes a session and its history.
	DeleteSession(ctx context.Context, sessionID string) error
}

// chatService implements ChatService.
type chatService struct {
	sessions  SessionStore
	retriever Retriever
	completer Completer

	// turnLocks serializes read-modify-write turns per session so two
	// concurrent chats on the same session cannot lose each other's messages.
	turnLocks sync.Map // session id -> *sync.Mutex
}

// NewChatService creates a new ChatService.
func NewChatService(sessions SessionStore, retriever Retriever, completer Completer) ChatService {
	return &chatService{
		sessions:  sessions,
		retriever: retriever,
		completer: completer,
	}
}

// Chat appends the user message to the session, retrieves context for it,
// asks the model for a reply with that context injected, and persists both
// sides of the turn. Retrieval failures degrade to an uncontextualized reply.
func (s *chatService) Chat(ctx context.Context, req ChatRequest) (ChatResponse, error) {
	logger := contextutil.LoggerFromContext(ctx)

	if req.Message == "" {
		logger.WarnContext(ctx, "empty message in chat request")
		return ChatResponse{}, &ValidationError{
			Field:   "message",
			Message: "cannot be empty",
		}
	}

	if req.SessionID == "" {
		created, err := s.CreateSession(ctx, "")
		if err != nil {
			return ChatResponse{}, err
		}
		req.SessionID = created.ID
	}

	lock := s.sessionLock(req.SessionID)
	lock.Lock()
	defer lock.Unlock()

	session, err := s.sessions.Get(ctx, req.SessionID)
	if err != nil {
		return ChatResponse{}, err
	}

	var suggestions []string
	contextMsg := noContextMessage
	result, err := s.retriever.Retrieve(ctx, req.Message, retrievalTopK)
	if err != nil {
		logger.WarnContext(ctx, "retrieval failed, answering without context", "error", err)
	} else {
		suggestions = result.Suggestions
		contextMsg = buildContextMessage(result.Results)
	}

	session.Messages = append(session.Messages, ChatMessage{
		Role:      llm.RoleUser,
		Content:   req.Message,
		Timestamp: time.Now().UTC(),
	})

	reply, err := s.completer.ChatWithMessages(ctx, buildCompletionMessages(session, contextMsg), llm.ChatParams{
		Temperature:      0.7,
		MaxTokens:        2000,
		TopP:             0.9,
		PresencePenalty:  0.6,
		FrequencyPenalty: 0.4,
	})
	if err != nil {
		logger.ErrorContext(ctx, "failed to get chat completion", "error", err)
		return ChatResponse{}, WrapError(err, "failed to get chat completion")
	}

	session.Messages = append(session.Messages, ChatMessage{
		Role:      llm.RoleAssistant,
		Content:   reply,
		Timestamp: time.Now().UTC(),
	})
	if err := s.sessions.Put(ctx, session); err != nil {
		logger.ErrorContext(ctx, "failed to persist session", "error", err, "session_id", session.ID)
		return ChatResponse{}, WrapError(err, "failed to persist session")
	}

	logger.InfoContext(ctx, "chat turn processed",
		"session_id", session.ID,
		"message_length", len(req.Message),
		"reply_length", len(reply),
		"suggestions", len(suggestions),
	)
	return ChatResponse{
		SessionID:   session.ID,
		Content:     reply,
		Suggestions: suggestions,
	}, nil
}

// buildCompletionMessages assembles the model input: the session's system
// prompt, the retrieval context as a second system message, and the most
// recent window of the conversation.
func buildCompletionMessages(session *Session, contextMsg string) []llm.Message {
	history := session.Messages
	if len(history) > maxHistoryMessages {
		history = history[len(history)-maxHistoryMessages:]
	}

	messages := make([]llm.Message, 0, len(history)+2)
	messages = append(messages,
		llm.Message{Role: llm.RoleSystem, Content: session.SystemPrompt},
		llm.Message{Role: llm.RoleSystem, Content: contextMsg},
	)
	for _, m := range history {
		// Client-supplied system messages are never forwarded; the session
		// prompt is the only steering channel.
		if m.Role == llm.RoleSystem {
			continue
		}
		messages = append(messages, llm.Message{Role: m.Role, Content: m.Content})
	}
	return messages
}

func (s *chatService) CreateSession(ctx context.Context, systemPrompt string) (*Session, error) {
	logger := contextutil.LoggerFromContext(ctx)

	if systemPrompt == "" {
		systemPrompt = defaultSystemPrompt
	}
	session, err := s.sessions.Create(ctx, systemPrompt)
	if err != nil {
		return nil, WrapError(err, "failed to create session")
	}

	logger.InfoContext(ctx, "session created", "session_id", session.ID)
	return session, nil
}

// sessionLock returns the mutex serializing turns for one session.
func (s *chatService) sessionLock(sessionID string) *sync.Mutex {
	lock, _ := s.turnLocks.LoadOrStore(sessionID, &sync.Mutex{})
	return lock.(*sync.Mutex)
}

func (s *chatService) UpdateSystemPrompt(ctx context.Context, sessionID, systemPrompt string) error {
	if systemPrompt == "" {
		return &ValidationError{
			Field:   "system_prompt",
			Message: "cannot be empty",
		}
	}

	lock := s.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return err
	}
	session.SystemPrompt = systemPrompt
	return s.sessions.Put(ctx, session)
}

func (s *chatService) GetHistory(ctx context.Context, sessionID string) ([]ChatMessage, error) {
	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return session.Messages, nil
}

func (s *chatService) DeleteSession(ctx context.Context, sessionID string) error {
	logger := contextutil.LoggerFromContext(ctx)

	if err := s.sessions.Delete(ctx, sessionID); err != nil {
		return err
	}
	s.turnLocks.Delete(sessionID)
	logger.InfoContext(ctx, "session deleted", "session_id", sessionID)
	return nil
}
