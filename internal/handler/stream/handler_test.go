package stream

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/zai-studio/backend/internal/model/persona"
	"github.com/zhouzirui/zai-studio/backend/internal/service/ai"
	"github.com/zhouzirui/zai-studio/backend/internal/service/ai/aitest"
	chatservice "github.com/zhouzirui/zai-studio/backend/internal/service/chat"
)

func setup(t *testing.T, model *aitest.ChatModel) (*chi.Mux, *chatservice.Service) {
	t.Helper()
	responder, err := ai.NewService(context.Background(), model, ai.Options{Stream: true})
	if err != nil {
		t.Fatalf("ai.NewService err: %v", err)
	}
	chatSvc := chatservice.NewService(persona.NewMemoryStore(persona.Seed()), responder, nil)

	r := chi.NewRouter()
	New(chatSvc, nil).RegisterRoutes(r)
	return r, chatSvc
}

func TestStreamSendsSnapshots(t *testing.T) {
	r, chatSvc := setup(t, aitest.NewChatModel("Hel", "lo"))
	session, _ := chatSvc.CreateSession(context.Background(), "")

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/stream/"+session.ID()+"?message=hi", nil))

	body := resp.Body.String()
	for _, want := range []string{
		"event: start\n",
		`"event":"snapshot","content":"Hel"`,
		`"event":"snapshot","content":"Hello"`,
		"event: end\n",
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("expected %q in body:\n%s", want, body)
		}
	}

	transcript := session.Transcript()
	if got := transcript[len(transcript)-1].Text; got != "Hello" {
		t.Fatalf("unexpected reply: %q", got)
	}
}

func TestStreamReportsFailure(t *testing.T) {
	model := aitest.NewChatModel()
	model.StartErr = aitest.ErrScripted
	r, chatSvc := setup(t, model)
	session, _ := chatSvc.CreateSession(context.Background(), "")

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/stream/"+session.ID()+"?message=hi", nil))

	if !strings.Contains(resp.Body.String(), `"error":"Sorry, I encountered an error. Please try again."`) {
		t.Fatalf("expected failure event, got:\n%s", resp.Body.String())
	}
}

func TestStreamRequiresMessage(t *testing.T) {
	r, chatSvc := setup(t, aitest.NewChatModel())
	session, _ := chatSvc.CreateSession(context.Background(), "")

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/stream/"+session.ID()+"?message=%20", nil))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestStreamUnknownSession(t *testing.T) {
	r, _ := setup(t, aitest.NewChatModel())

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/stream/missing?message=hi", nil))
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}
}
