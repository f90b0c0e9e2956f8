package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/zhouzirui/zai-studio/backend/internal/handler/chat"
	"github.com/zhouzirui/zai-studio/backend/internal/handler/media"
	"github.com/zhouzirui/zai-studio/backend/internal/handler/persona"
	"github.com/zhouzirui/zai-studio/backend/internal/handler/stream"
	middlewarePkg "github.com/zhouzirui/zai-studio/backend/internal/middleware"
	personaModel "github.com/zhouzirui/zai-studio/backend/internal/model/persona"
	"github.com/zhouzirui/zai-studio/backend/internal/render"
	chatService "github.com/zhouzirui/zai-studio/backend/internal/service/chat"
	mediaService "github.com/zhouzirui/zai-studio/backend/internal/service/media"
	"github.com/zhouzirui/zai-studio/backend/internal/service/refine"
	"github.com/zhouzirui/zai-studio/backend/pkg/logger"
	"github.com/zhouzirui/zai-studio/backend/pkg/utils"
)

// Deps holds the services exposed over HTTP. ChatSvc and Refiner are nil when
// no text provider is configured; their routes then answer 503.
type Deps struct {
	Personas personaModel.Store
	ChatSvc  *chatService.Service
	Refiner  *refine.Refiner
	MediaSvc *mediaService.Service
	Markdown *render.Markdown
	Logger   *zap.Logger
}

// NewRouter wires HTTP routes to core services.
func NewRouter(deps Deps) http.Handler {
	log := logger.OrNop(deps.Logger)
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middlewarePkg.Logger(log))
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)

	started := time.Now()
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		utils.RespondJSON(w, http.StatusOK, map[string]any{
			"status":    "ok",
			"uptime":    time.Since(started).Round(time.Second).String(),
			"chat":      deps.ChatSvc != nil,
			"refine":    deps.Refiner != nil,
			"mediaPath": media.BlobPath,
		})
	})

	r.Route("/api", func(api chi.Router) {
		persona.New(deps.Personas).RegisterRoutes(api)
		chat.New(deps.ChatSvc, deps.Markdown, log).RegisterRoutes(api)
		chat.NewWebSocketHandler(deps.ChatSvc, log).RegisterRoutes(api)
		stream.New(deps.ChatSvc, log).RegisterRoutes(api)
		media.New(deps.MediaSvc, deps.Refiner, log).RegisterRoutes(api)
	})

	return r
}
