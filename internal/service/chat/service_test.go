package chat_test

import (
	"context"
	"errors"
	"testing"

	"github.com/zhouzirui/zai-studio/backend/internal/model/persona"
	"github.com/zhouzirui/zai-studio/backend/internal/service/ai"
	"github.com/zhouzirui/zai-studio/backend/internal/service/ai/aitest"
	chat "github.com/zhouzirui/zai-studio/backend/internal/service/chat"
)

func newTestService(t *testing.T, model *aitest.ChatModel) *chat.Service {
	t.Helper()
	responder, err := ai.NewService(context.Background(), model, ai.Options{Stream: true})
	if err != nil {
		t.Fatalf("ai.NewService err: %v", err)
	}
	return chat.NewService(persona.NewMemoryStore(persona.Seed()), responder, nil)
}

func TestServiceGetSession(t *testing.T) {
	svc := newTestService(t, aitest.NewChatModel("hi"))
	ctx := context.Background()

	session, err := svc.CreateSession(ctx, "storyboard")
	if err != nil {
		t.Fatalf("CreateSession err: %v", err)
	}

	got, err := svc.GetSession(ctx, session.ID())
	if err != nil {
		t.Fatalf("GetSession err: %v", err)
	}

	if got.ID() != session.ID() {
		t.Fatalf("unexpected session ID: got %s want %s", got.ID(), session.ID())
	}
	if got.Persona().ID != "storyboard" {
		t.Fatalf("unexpected persona ID: got %s", got.Persona().ID)
	}
}

func TestServiceGetSessionNotFound(t *testing.T) {
	svc := newTestService(t, aitest.NewChatModel())
	ctx := context.Background()

	if _, err := svc.GetSession(ctx, "missing"); !errors.Is(err, chat.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestServiceCreateSessionDefaultsToZAI(t *testing.T) {
	svc := newTestService(t, aitest.NewChatModel())

	session, err := svc.CreateSession(context.Background(), "")
	if err != nil {
		t.Fatalf("CreateSession err: %v", err)
	}
	transcript := session.Transcript()
	if len(transcript) != 1 {
		t.Fatalf("expected greeting turn, got %d turns", len(transcript))
	}
	if transcript[0].Text != "Hello! I'm Z-AI, your creative partner. How can I help you be creative today?" {
		t.Fatalf("unexpected greeting: %q", transcript[0].Text)
	}
	if !transcript[0].Synthetic {
		t.Fatal("greeting should be synthetic")
	}
}

func TestServiceCreateSessionUnknownPersona(t *testing.T) {
	svc := newTestService(t, aitest.NewChatModel())

	if _, err := svc.CreateSession(context.Background(), "nobody"); !errors.Is(err, chat.ErrPersonaNotFound) {
		t.Fatalf("expected ErrPersonaNotFound, got %v", err)
	}
}

func TestServiceDeleteSessionClosesIt(t *testing.T) {
	svc := newTestService(t, aitest.NewChatModel("ok"))
	ctx := context.Background()

	session, _ := svc.CreateSession(ctx, "")
	events := session.Subscribe()

	if err := svc.DeleteSession(ctx, session.ID()); err != nil {
		t.Fatalf("DeleteSession err: %v", err)
	}
	if _, ok := <-events; ok {
		t.Fatal("expected subscription to be closed")
	}
	if _, err := session.Send(ctx, "hello", nil); !errors.Is(err, chat.ErrSessionClosed) {
		t.Fatalf("expected ErrSessionClosed, got %v", err)
	}
	if err := svc.DeleteSession(ctx, session.ID()); !errors.Is(err, chat.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestServiceListSessions(t *testing.T) {
	svc := newTestService(t, aitest.NewChatModel())
	ctx := context.Background()

	first, _ := svc.CreateSession(ctx, "")
	second, _ := svc.CreateSession(ctx, "storyboard")

	infos := svc.ListSessions(ctx)
	if len(infos) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(infos))
	}
	ids := map[string]bool{infos[0].ID: true, infos[1].ID: true}
	if !ids[first.ID()] || !ids[second.ID()] {
		t.Fatalf("unexpected session list: %+v", infos)
	}
}
