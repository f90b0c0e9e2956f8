package media

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/zhouzirui/zai-studio/backend/internal/model/media"
	mediaService "github.com/zhouzirui/zai-studio/backend/internal/service/media"
	"github.com/zhouzirui/zai-studio/backend/internal/service/refine"
	"github.com/zhouzirui/zai-studio/backend/internal/storage"
	"github.com/zhouzirui/zai-studio/backend/pkg/logger"
	"github.com/zhouzirui/zai-studio/backend/pkg/utils"
)

// BlobPath is the URL prefix under which stored media is served.
const BlobPath = "/api/media/blobs/"

// Handler 媒体生成与提示词优化的HTTP处理器
type Handler struct {
	mediaSvc *mediaService.Service
	refiner  *refine.Refiner
	logger   *zap.Logger
}

// New 创建媒体处理器。refiner 为 nil 时优化接口返回 503。
func New(mediaSvc *mediaService.Service, refiner *refine.Refiner, log *zap.Logger) *Handler {
	return &Handler{
		mediaSvc: mediaSvc,
		refiner:  refiner,
		logger:   logger.OrNop(log).Named("media"),
	}
}

// RegisterRoutes 注册媒体相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/media", func(r chi.Router) {
		r.Post("/refine", h.handleRefine)
		r.Post("/workspaces", h.handleCreateWorkspace)
		r.Delete("/workspaces/{workspaceID}", h.handleDeleteWorkspace)
		r.Post("/workspaces/{workspaceID}/generate", h.handleGenerate)
		r.Get("/blobs/{locator}", h.handleBlob)
	})
}

type promptPayload struct {
	Prompt string `json:"prompt"`
}

// handleRefine 优化提示词；空提示词原样返回，不调用模型
func (h *Handler) handleRefine(w http.ResponseWriter, r *http.Request) {
	var payload promptPayload
	if err := utils.DecodeJSON(r, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if h.refiner == nil {
		utils.RespondError(w, http.StatusServiceUnavailable, "prompt refinement is unavailable: text provider is not configured")
		return
	}

	refined, err := h.refiner.Refine(r.Context(), payload.Prompt)
	switch {
	case errors.Is(err, refine.ErrEmptyPrompt):
		utils.RespondJSON(w, http.StatusOK, payload)
	case err != nil:
		utils.RespondError(w, http.StatusBadGateway, refine.ErrRefineFailed.Error())
	default:
		utils.RespondJSON(w, http.StatusOK, promptPayload{Prompt: refined})
	}
}

func (h *Handler) handleCreateWorkspace(w http.ResponseWriter, r *http.Request) {
	ws := h.mediaSvc.CreateWorkspace(r.Context())
	utils.RespondJSON(w, http.StatusCreated, map[string]string{"id": ws.ID()})
}

func (h *Handler) handleDeleteWorkspace(w http.ResponseWriter, r *http.Request) {
	if err := h.mediaSvc.DeleteWorkspace(r.Context(), chi.URLParam(r, "workspaceID")); err != nil {
		utils.RespondError(w, http.StatusNotFound, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type resultEvent struct {
	media.Result
	URL  string                 `json:"url,omitempty"`
	Kind mediaService.ErrorKind `json:"kind,omitempty"`
}

// handleGenerate 以 SSE 推送进度消息，最后发送 result 事件
func (h *Handler) handleGenerate(w http.ResponseWriter, r *http.Request) {
	ws, err := h.mediaSvc.Workspace(chi.URLParam(r, "workspaceID"))
	if err != nil {
		utils.RespondError(w, http.StatusNotFound, err.Error())
		return
	}

	var req media.Request
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Kind == "" {
		req.Kind = media.KindImage
	}

	sse, ok := utils.NewSSEWriter(w)
	if !ok {
		utils.RespondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	result, err := ws.Generate(r.Context(), req.Prompt, req.Kind, func(message string) {
		if err := sse.Send("status", media.Pending(message)); err != nil {
			h.logger.Debug("sse write failed", zap.Error(err))
		}
	})
	if errors.Is(err, mediaService.ErrPipelineBusy) {
		_ = sse.Send("result", resultEvent{Result: media.Failed(err.Error()), Kind: "busy"})
		return
	}

	evt := resultEvent{Result: result}
	if e, ok := mediaService.AsError(err); ok {
		evt.Kind = e.Kind
	}
	if result.Status == media.StatusReady {
		evt.URL = BlobPath + result.Locator
	}
	if err := sse.Send("result", evt); err != nil {
		h.logger.Debug("sse write failed", zap.Error(err))
	}
}

// handleBlob 返回已存储的媒体内容
func (h *Handler) handleBlob(w http.ResponseWriter, r *http.Request) {
	loc, err := storage.ParseLocator(chi.URLParam(r, "locator"))
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	blob, err := h.mediaSvc.Store().Get(r.Context(), loc)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, storage.ErrNotFound) {
			status = http.StatusNotFound
		}
		utils.RespondError(w, status, err.Error())
		return
	}

	contentType := blob.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(blob.Data)))
	w.Header().Set("Cache-Control", "private, max-age=3600")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(blob.Data); err != nil {
		h.logger.Debug("blob write failed", zap.Error(err))
	}
}
