package media

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/zai-studio/backend/internal/service/ai"
	"github.com/zhouzirui/zai-studio/backend/internal/service/ai/aitest"
	mediaservice "github.com/zhouzirui/zai-studio/backend/internal/service/media"
	"github.com/zhouzirui/zai-studio/backend/internal/service/refine"
	"github.com/zhouzirui/zai-studio/backend/internal/storage"
)

func setupRouter(t *testing.T, provider http.HandlerFunc, model *aitest.ChatModel) (*chi.Mux, *mediaservice.Service) {
	t.Helper()

	cfg := mediaservice.PipelineConfig{
		Store:          storage.NewMemory(),
		Video:          &mediaservice.StubVideoBackend{Ticks: 2},
		ImageModel:     "sdxl",
		StatusInterval: time.Millisecond,
	}
	if provider != nil {
		srv := httptest.NewServer(provider)
		t.Cleanup(srv.Close)
		client, err := mediaservice.NewInferenceClient(mediaservice.InferenceOptions{BaseURL: srv.URL, Token: "hf_test", Timeout: time.Second})
		if err != nil {
			t.Fatalf("NewInferenceClient err: %v", err)
		}
		cfg.Client = client
	}
	mediaSvc := mediaservice.NewService(cfg)

	var refiner *refine.Refiner
	if model != nil {
		svc, err := ai.NewService(context.Background(), model, ai.Options{})
		if err != nil {
			t.Fatalf("ai.NewService err: %v", err)
		}
		refiner = refine.NewRefiner(svc, nil)
	}

	r := chi.NewRouter()
	New(mediaSvc, refiner, nil).RegisterRoutes(r)
	return r, mediaSvc
}

func postJSON(r http.Handler, path string, body any) *httptest.ResponseRecorder {
	payload, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

func TestRefine(t *testing.T) {
	r, _ := setupRouter(t, nil, aitest.NewChatModel("A majestic cat"))

	resp := postJSON(r, "/media/refine", map[string]string{"prompt": "a cat"})
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), `"prompt":"A majestic cat"`) {
		t.Fatalf("unexpected body: %s", resp.Body.String())
	}
}

func TestRefineEmptyPromptEchoes(t *testing.T) {
	model := aitest.NewChatModel("unused")
	r, _ := setupRouter(t, nil, model)

	resp := postJSON(r, "/media/refine", map[string]string{"prompt": ""})
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if len(model.Calls()) != 0 {
		t.Fatal("empty prompt must not reach the model")
	}
}

func TestRefineFailure(t *testing.T) {
	model := aitest.NewChatModel()
	model.StartErr = aitest.ErrScripted
	r, _ := setupRouter(t, nil, model)

	resp := postJSON(r, "/media/refine", map[string]string{"prompt": "a cat"})
	if resp.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", resp.Code)
	}
}

func TestGenerateImageAndFetchBlob(t *testing.T) {
	r, _ := setupRouter(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write([]byte("PNGBYTES"))
	}, nil)

	created := postJSON(r, "/media/workspaces", nil)
	if created.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", created.Code)
	}
	var ws struct{ ID string }
	_ = json.Unmarshal(created.Body.Bytes(), &ws)

	resp := postJSON(r, "/media/workspaces/"+ws.ID+"/generate", map[string]string{"prompt": "a cat", "kind": "image"})
	body := resp.Body.String()
	if !strings.Contains(body, "event: result\n") || !strings.Contains(body, `"status":"ready"`) {
		t.Fatalf("unexpected stream: %s", body)
	}

	idx := strings.Index(body, `"url":"`)
	if idx < 0 {
		t.Fatalf("missing url in %s", body)
	}
	url := body[idx+len(`"url":"`):]
	url = url[:strings.Index(url, `"`)]
	path := strings.TrimPrefix(url, "/api")

	blob := httptest.NewRecorder()
	r.ServeHTTP(blob, httptest.NewRequest(http.MethodGet, path, nil))
	if blob.Code != http.StatusOK || blob.Body.String() != "PNGBYTES" {
		t.Fatalf("unexpected blob response: %d %q", blob.Code, blob.Body.String())
	}
	if blob.Header().Get("Content-Type") != "image/png" {
		t.Fatalf("unexpected content type: %s", blob.Header().Get("Content-Type"))
	}
}

func TestGenerateVideoStreamsStatus(t *testing.T) {
	r, mediaSvc := setupRouter(t, nil, nil)
	ws := mediaSvc.CreateWorkspace(context.Background())

	resp := postJSON(r, "/media/workspaces/"+ws.ID()+"/generate", map[string]string{"prompt": "a sunset", "kind": "video"})
	body := resp.Body.String()

	if strings.Count(body, "event: status\n") != 2 {
		t.Fatalf("expected 2 status events: %s", body)
	}
	if !strings.Contains(body, mediaservice.FlavorMessages[0]) {
		t.Fatalf("missing first flavor message: %s", body)
	}
	if !strings.Contains(body, `"kind":"service_unavailable"`) {
		t.Fatalf("expected service_unavailable result: %s", body)
	}
}

func TestGenerateUnknownWorkspace(t *testing.T) {
	r, _ := setupRouter(t, nil, nil)

	resp := postJSON(r, "/media/workspaces/missing/generate", map[string]string{"prompt": "x"})
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}
}

func TestBlobRejectsInvalidLocator(t *testing.T) {
	r, _ := setupRouter(t, nil, nil)

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/media/blobs/not-a-locator", nil))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}

	resp = httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/media/blobs/"+string(storage.NewLocator()), nil))
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}
}
