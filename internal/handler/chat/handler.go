package chat

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/zhouzirui/zai-studio/backend/internal/model/chat"
	"github.com/zhouzirui/zai-studio/backend/internal/render"
	chatService "github.com/zhouzirui/zai-studio/backend/internal/service/chat"
	"github.com/zhouzirui/zai-studio/backend/pkg/logger"
	"github.com/zhouzirui/zai-studio/backend/pkg/utils"
)

// Handler 聊天会话的HTTP处理器
type Handler struct {
	chatSvc  *chatService.Service
	markdown *render.Markdown
	logger   *zap.Logger
}

// New 创建聊天处理器。chatSvc 为 nil 时所有接口返回 503。
func New(chatSvc *chatService.Service, markdown *render.Markdown, log *zap.Logger) *Handler {
	if markdown == nil {
		markdown = render.NewMarkdown()
	}
	return &Handler{
		chatSvc:  chatSvc,
		markdown: markdown,
		logger:   logger.OrNop(log).Named("chat"),
	}
}

// RegisterRoutes 注册聊天相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/chat/sessions", func(r chi.Router) {
		r.Use(h.requireService)
		r.Post("/", h.handleCreateSession)
		r.Get("/", h.handleListSessions)
		r.Get("/{sessionID}", h.handleGetSession)
		r.Delete("/{sessionID}", h.handleDeleteSession)
	})
}

func (h *Handler) requireService(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.chatSvc == nil {
			utils.RespondError(w, http.StatusServiceUnavailable, "chat is unavailable: text provider is not configured")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// handleCreateSession 创建会话，未指定 personaId 时使用默认助手
func (h *Handler) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		PersonaID string `json:"personaId"`
	}

	if err := utils.DecodeJSON(r, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	session, err := h.chatSvc.CreateSession(r.Context(), payload.PersonaID)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, chatService.ErrPersonaNotFound) {
			status = http.StatusBadRequest
		}
		utils.RespondError(w, status, err.Error())
		return
	}

	utils.RespondJSON(w, http.StatusCreated, session.Info())
}

func (h *Handler) handleListSessions(w http.ResponseWriter, r *http.Request) {
	utils.RespondJSON(w, http.StatusOK, h.chatSvc.ListSessions(r.Context()))
}

type renderedTurn struct {
	chat.Turn
	HTML string `json:"html,omitempty"`
}

type sessionResponse struct {
	chat.SessionInfo
	Transcript []renderedTurn `json:"transcript"`
}

// handleGetSession 返回会话记录；format=html 时附带渲染后的 HTML
func (h *Handler) handleGetSession(w http.ResponseWriter, r *http.Request) {
	session, err := h.chatSvc.GetSession(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		utils.RespondError(w, http.StatusNotFound, err.Error())
		return
	}

	info := session.Info()
	if r.URL.Query().Get("format") != "html" {
		utils.RespondJSON(w, http.StatusOK, info)
		return
	}

	resp := sessionResponse{SessionInfo: info, Transcript: make([]renderedTurn, 0, len(info.Transcript))}
	for _, turn := range info.Transcript {
		html, err := h.markdown.HTML(turn.Text)
		if err != nil {
			h.logger.Warn("render markdown failed", zap.Error(err))
		}
		resp.Transcript = append(resp.Transcript, renderedTurn{Turn: turn, HTML: html})
	}
	utils.RespondJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := h.chatSvc.DeleteSession(r.Context(), chi.URLParam(r, "sessionID")); err != nil {
		utils.RespondError(w, http.StatusNotFound, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
