// Package app assembles the services shared by the HTTP server and the CLI.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/zhouzirui/zai-studio/backend/internal/config"
	"github.com/zhouzirui/zai-studio/backend/internal/handler"
	"github.com/zhouzirui/zai-studio/backend/internal/model/persona"
	"github.com/zhouzirui/zai-studio/backend/internal/render"
	"github.com/zhouzirui/zai-studio/backend/internal/service/ai"
	"github.com/zhouzirui/zai-studio/backend/internal/service/chat"
	"github.com/zhouzirui/zai-studio/backend/internal/service/media"
	"github.com/zhouzirui/zai-studio/backend/internal/service/refine"
	"github.com/zhouzirui/zai-studio/backend/internal/storage"
	"github.com/zhouzirui/zai-studio/backend/pkg/logger"
)

// App holds the wired services. LLM, Chat and Refiner are nil when no text
// provider credentials are configured.
type App struct {
	Config   *config.Config
	Personas persona.Store
	LLM      *ai.Service
	Chat     *chat.Service
	Refiner  *refine.Refiner
	Media    *media.Service
	Store    storage.BlobStore
	Markdown *render.Markdown

	logger *zap.Logger
}

// New builds every service from cfg. Missing credentials disable the affected
// feature and are logged; any other failure is returned.
func New(ctx context.Context, cfg *config.Config, log *zap.Logger) (*App, error) {
	log = logger.OrNop(log)
	a := &App{
		Config:   cfg,
		Personas: persona.NewMemoryStore(persona.Seed()),
		Markdown: render.NewMarkdown(),
		logger:   log,
	}

	if err := a.initText(ctx); err != nil {
		return nil, err
	}

	store, err := storage.Open(cfg.Storage, log)
	if err != nil {
		return nil, fmt.Errorf("open media store: %w", err)
	}
	a.Store = store

	if err := a.initMedia(); err != nil {
		_ = store.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) initText(ctx context.Context) error {
	chatModel, err := ai.NewChatModel(ctx, a.Config.AI)
	if err != nil {
		if config.IsConfigurationError(err) {
			a.logger.Warn("text provider not configured, chat and refine disabled",
				zap.String("provider", a.Config.AI.Provider),
				zap.Error(err),
			)
			return nil
		}
		return fmt.Errorf("create chat model: %w", err)
	}

	llm, err := ai.NewService(ctx, chatModel, ai.Options{
		HistoryLimit: a.Config.AI.HistoryLimit,
		Stream:       a.Config.AI.StreamResponse,
		Logger:       a.logger,
	})
	if err != nil {
		return fmt.Errorf("create ai service: %w", err)
	}

	a.LLM = llm
	a.Chat = chat.NewService(a.Personas, llm, a.logger)
	a.Refiner = refine.NewRefiner(llm, a.logger)
	a.logger.Info("text provider ready", zap.String("provider", a.Config.AI.Provider))
	return nil
}

func (a *App) initMedia() error {
	mc := a.Config.Media

	// 保持接口值为 nil，避免把 nil 指针包进 Inferencer。
	var client media.Inferencer
	hf, err := media.NewInferenceClient(media.InferenceOptions{
		BaseURL: mc.BaseURL,
		Token:   mc.Token,
		Timeout: mc.Timeout,
		Logger:  a.logger,
	})
	switch {
	case err == nil:
		client = hf
	case config.IsConfigurationError(err):
		a.logger.Warn("HUGGINGFACE_TOKEN not set, media generation will report a missing credential")
	default:
		return fmt.Errorf("create inference client: %w", err)
	}

	video, err := media.NewVideoBackend(mc, client)
	if err != nil {
		return err
	}

	a.Media = media.NewService(media.PipelineConfig{
		Client:         client,
		Store:          a.Store,
		Video:          video,
		ImageModel:     mc.ImageModel,
		StatusInterval: mc.StatusInterval,
		Logger:         a.logger,
	})
	a.logger.Info("media pipeline ready",
		zap.String("video_backend", video.Name()),
		zap.String("store", a.Config.Storage.Backend),
	)
	return nil
}

// Router returns the HTTP handler for the API server.
func (a *App) Router() http.Handler {
	return handler.NewRouter(handler.Deps{
		Personas: a.Personas,
		ChatSvc:  a.Chat,
		Refiner:  a.Refiner,
		MediaSvc: a.Media,
		Markdown: a.Markdown,
		Logger:   a.Logger(),
	})
}

// Close ends all sessions and closes the media store.
func (a *App) Close() error {
	var errs []error
	if a.Chat != nil {
		a.Chat.Close()
	}
	if a.Store != nil {
		if err := a.Store.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
