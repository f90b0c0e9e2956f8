package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	personaModel "github.com/zhouzirui/zai-studio/backend/internal/model/persona"
	mediaService "github.com/zhouzirui/zai-studio/backend/internal/service/media"
	"github.com/zhouzirui/zai-studio/backend/internal/storage"
)

func newTestRouter() http.Handler {
	return NewRouter(Deps{
		Personas: personaModel.NewMemoryStore(personaModel.Seed()),
		MediaSvc: mediaService.NewService(mediaService.PipelineConfig{
			Store:          storage.NewMemory(),
			Video:          &mediaService.StubVideoBackend{Ticks: 1},
			StatusInterval: time.Millisecond,
		}),
	})
}

func TestRouterHealthz(t *testing.T) {
	resp := httptest.NewRecorder()
	newTestRouter().ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
}

func TestRouterWithoutTextProvider(t *testing.T) {
	r := newTestRouter()

	cases := []struct {
		method string
		path   string
		want   int
	}{
		{http.MethodGet, "/api/personas", http.StatusOK},
		{http.MethodPost, "/api/chat/sessions", http.StatusServiceUnavailable},
		{http.MethodGet, "/api/stream/abc?message=hi", http.StatusServiceUnavailable},
		{http.MethodPost, "/api/media/refine", http.StatusServiceUnavailable},
		{http.MethodPost, "/api/media/workspaces", http.StatusCreated},
		{http.MethodOptions, "/api/media/workspaces", http.StatusNoContent},
	}

	for _, tc := range cases {
		resp := httptest.NewRecorder()
		r.ServeHTTP(resp, httptest.NewRequest(tc.method, tc.path, nil))
		if resp.Code != tc.want {
			t.Fatalf("%s %s: expected %d, got %d", tc.method, tc.path, tc.want, resp.Code)
		}
	}
}
