package service

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestMemorySessionStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	store := NewMemorySessionStore()

	session, err := store.Create(ctx, "prompt")
	if err != nil {
		t.Fatalf("Create() unexpected error: %v", err)
	}
	if session.ID == "" {
		t.Fatal("Create() returned a session without an id")
	}
	if session.SystemPrompt != "prompt" {
		t.Errorf("system prompt = %q, want %q", session.SystemPrompt, "prompt")
	}

	session.Messages = append(session.Messages, ChatMessage{
		Role:      "user",
		Content:   "giá hpg",
		Timestamp: time.Now().UTC(),
	})
	if err := store.Put(ctx, session); err != nil {
		t.Fatalf("Put() unexpected error: %v", err)
	}

	got, err := store.Get(ctx, session.ID)
	if err != nil {
		t.Fatalf("Get() unexpected error: %v", err)
	}
	if len(got.Messages) != 1 || got.Messages[0].Content != "giá hpg" {
		t.Errorf("Get() messages = %v, want the stored turn", got.Messages)
	}

	if err := store.Delete(ctx, session.ID); err != nil {
		t.Fatalf("Delete() unexpected error: %v", err)
	}
	if _, err := store.Get(ctx, session.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Get() after delete = %v, want ErrSessionNotFound", err)
	}
}

func TestMemorySessionStoreNotFound(t *testing.T) {
	ctx := context.Background()
	store := NewMemorySessionStore()

	if _, err := store.Get(ctx, "missing"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Get() = %v, want ErrSessionNotFound", err)
	}
	if err := store.Delete(ctx, "missing"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Delete() = %v, want ErrSessionNotFound", err)
	}
	if err := store.Put(ctx, &Session{ID: "missing"}); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Put() = %v, want ErrSessionNotFound", err)
	}
}

func TestMemorySessionStoreCopiesState(t *testing.T) {
	ctx := context.Background()
	store := NewMemorySessionStore()

	session, err := store.Create(ctx, "prompt")
	if err != nil {
		t.Fatalf("Create() unexpected error: %v", err)
	}

	// Mutating a returned session must not touch the stored copy.
	session.SystemPrompt = "mutated"
	session.Messages = append(session.Messages, ChatMessage{Role: "user", Content: "x"})

	got, err := store.Get(ctx, session.ID)
	if err != nil {
		t.Fatalf("Get() unexpected error: %v", err)
	}
	if got.SystemPrompt != "prompt" {
		t.Errorf("stored prompt = %q, caller mutation leaked", got.SystemPrompt)
	}
	if len(got.Messages) != 0 {
		t.Errorf("stored messages = %v, caller mutation leaked", got.Messages)
	}
}
