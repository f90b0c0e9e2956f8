package persona

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/zai-studio/backend/internal/model/persona"
	"github.com/zhouzirui/zai-studio/backend/pkg/utils"
)

// Handler 助手人设的只读HTTP接口
type Handler struct {
	personas persona.Store
}

// New 创建persona处理器
func New(personas persona.Store) *Handler {
	return &Handler{personas: personas}
}

// RegisterRoutes 注册persona相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/personas", func(r chi.Router) {
		r.Get("/", h.handleListPersonas)
		r.Get("/{personaID}", h.handleGetPersona)
	})
}

func (h *Handler) handleListPersonas(w http.ResponseWriter, r *http.Request) {
	utils.RespondJSON(w, http.StatusOK, h.personas.List())
}

// handleGetPersona 返回单个人设；开场白随人设一起返回，系统指令不对外暴露
func (h *Handler) handleGetPersona(w http.ResponseWriter, r *http.Request) {
	p, err := persona.Resolve(h.personas, chi.URLParam(r, "personaID"))
	if errors.Is(err, persona.ErrNotFound) {
		utils.RespondError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		utils.RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	utils.RespondJSON(w, http.StatusOK, p)
}
