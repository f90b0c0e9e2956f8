package stream

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	chatService "github.com/zhouzirui/zai-studio/backend/internal/service/chat"
	"github.com/zhouzirui/zai-studio/backend/pkg/logger"
	"github.com/zhouzirui/zai-studio/backend/pkg/utils"
)

// Handler streams assistant replies via Server-Sent Events.
type Handler struct {
	chatSvc *chatService.Service
	logger  *zap.Logger
}

// New creates a new stream handler
func New(chatSvc *chatService.Service, log *zap.Logger) *Handler {
	return &Handler{
		chatSvc: chatSvc,
		logger:  logger.OrNop(log).Named("stream"),
	}
}

// StreamResponse represents a streaming response chunk
type StreamResponse struct {
	Event     string `json:"event"`
	Content   string `json:"content,omitempty"`
	SessionID string `json:"sessionId,omitempty"`
	Finished  bool   `json:"finished,omitempty"`
	Error     string `json:"error,omitempty"`
}

// RegisterRoutes 注册流式接口
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/stream/{sessionID}", h.handleStream)
}

// handleStream sends the message and streams snapshots of the growing reply.
func (h *Handler) handleStream(w http.ResponseWriter, r *http.Request) {
	if h.chatSvc == nil {
		utils.RespondError(w, http.StatusServiceUnavailable, "ai streaming unavailable")
		return
	}

	sessionID := chi.URLParam(r, "sessionID")
	message := strings.TrimSpace(r.URL.Query().Get("message"))
	if message == "" {
		utils.RespondError(w, http.StatusBadRequest, "message query parameter is required")
		return
	}

	ctx := r.Context()
	session, err := h.chatSvc.GetSession(ctx, sessionID)
	if err != nil {
		utils.RespondError(w, http.StatusNotFound, err.Error())
		return
	}
	if session.Busy() {
		utils.RespondError(w, http.StatusConflict, chatService.ErrSessionBusy.Error())
		return
	}

	sse, ok := utils.NewSSEWriter(w)
	if !ok {
		utils.RespondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	h.send(sse, StreamResponse{Event: "start", SessionID: sessionID})

	turn, err := session.Send(ctx, message, func(snapshot string) {
		h.send(sse, StreamResponse{Event: "snapshot", SessionID: sessionID, Content: snapshot})
	})
	if err != nil {
		msg := chatService.FailureMessage
		if errors.Is(err, chatService.ErrSessionBusy) || errors.Is(err, chatService.ErrSessionClosed) {
			msg = err.Error()
		}
		h.logger.Warn("stream failed", zap.String("session", sessionID), zap.Error(err))
		h.send(sse, StreamResponse{Event: "error", SessionID: sessionID, Error: msg})
		return
	}

	h.send(sse, StreamResponse{Event: "end", SessionID: sessionID, Content: turn.Text, Finished: true})
	h.logger.Info("stream completed", zap.String("session", sessionID), zap.Int("length", len(turn.Text)))
}

func (h *Handler) send(sse *utils.SSEWriter, resp StreamResponse) {
	if err := sse.Send(resp.Event, resp); err != nil {
		h.logger.Debug("sse write failed", zap.Error(err))
	}
}
