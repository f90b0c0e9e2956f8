package media

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/zhouzirui/zai-studio/backend/internal/model/media"
	"github.com/zhouzirui/zai-studio/backend/internal/storage"
	"github.com/zhouzirui/zai-studio/backend/pkg/logger"
	"github.com/zhouzirui/zai-studio/backend/pkg/telemetry"
)

const defaultStatusInterval = 3 * time.Second

// StatusFunc receives progress messages while a video job runs.
type StatusFunc func(message string)

// PipelineConfig holds the dependencies shared by every pipeline.
type PipelineConfig struct {
	// Client may be nil when no inference token is configured; image
	// requests then fail with MissingCredential.
	Client         Inferencer
	Store          storage.BlobStore
	Video          VideoBackend
	ImageModel     string
	StatusInterval time.Duration
	Logger         *zap.Logger
}

// Pipeline turns prompts into stored media. It holds at most one displayed
// result and runs one request at a time.
type Pipeline struct {
	id       string
	client   Inferencer
	store    storage.BlobStore
	video    VideoBackend
	model    string
	interval time.Duration
	logger   *zap.Logger

	mu      sync.Mutex
	busy    bool
	current storage.Locator
}

// NewPipeline builds a pipeline identified by id.
func NewPipeline(id string, cfg PipelineConfig) *Pipeline {
	interval := cfg.StatusInterval
	if interval <= 0 {
		interval = defaultStatusInterval
	}
	return &Pipeline{
		id:       id,
		client:   cfg.Client,
		store:    cfg.Store,
		video:    cfg.Video,
		model:    cfg.ImageModel,
		interval: interval,
		logger:   logger.OrNop(cfg.Logger).Named("media").With(zap.String("workspace", id)),
	}
}

func (p *Pipeline) ID() string { return p.id }

// Current returns the locator of the displayed result, if any.
func (p *Pipeline) Current() (storage.Locator, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current, p.current != ""
}

// Generate runs one request. The returned Result is Ready or Failed; a Failed
// result is accompanied by a *Error. ErrPipelineBusy is returned with a zero
// Result when another request is in flight.
func (p *Pipeline) Generate(ctx context.Context, prompt string, kind media.Kind, onStatus StatusFunc) (media.Result, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return p.failed(invalidInput(msgEmptyPrompt))
	}
	if !kind.Valid() {
		return p.failed(invalidInput(fmt.Sprintf("Unsupported media kind %q.", kind)))
	}

	p.mu.Lock()
	if p.busy {
		p.mu.Unlock()
		return media.Result{}, ErrPipelineBusy
	}
	p.busy = true
	previous := p.current
	p.current = ""
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		p.busy = false
		p.mu.Unlock()
	}()

	p.release(ctx, previous)

	ctx, span := telemetry.Start(ctx, "zai/media", "media.generate",
		attribute.String("workspace.id", p.id),
		attribute.String("media.kind", string(kind)),
	)
	result, err := p.run(ctx, prompt, kind, onStatus)
	telemetry.End(span, err)
	return result, err
}

func (p *Pipeline) run(ctx context.Context, prompt string, kind media.Kind, onStatus StatusFunc) (media.Result, error) {
	var (
		out Output
		err error
	)
	switch kind {
	case media.KindImage:
		out, err = p.generateImage(ctx, prompt)
	case media.KindVideo:
		out, err = p.generateVideo(ctx, prompt, onStatus)
	}
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		return p.failed(classify(err, kind == media.KindVideo))
	}

	loc, err := p.store.Put(ctx, storage.Blob{ContentType: out.ContentType, Data: out.Data})
	if err != nil {
		return p.failed(&Error{Kind: KindProviderError, Message: msgStoreFailed, Err: err})
	}
	if err := ctx.Err(); err != nil {
		p.release(ctx, loc)
		return p.failed(classify(err, false))
	}

	p.mu.Lock()
	p.current = loc
	p.mu.Unlock()

	p.logger.Info("media ready",
		zap.String("kind", string(kind)),
		zap.String("locator", string(loc)),
		zap.Int("bytes", len(out.Data)),
	)
	return media.Ready(string(loc)), nil
}

func (p *Pipeline) generateImage(ctx context.Context, prompt string) (Output, error) {
	if p.client == nil {
		return Output{}, &Error{Kind: KindMissingCredential, Message: msgMissingToken}
	}
	return p.client.Infer(ctx, p.model, prompt)
}

// generateVideo emits a status message, waits one interval, then checks the
// job, until the job reaches a terminal state.
func (p *Pipeline) generateVideo(ctx context.Context, prompt string, onStatus StatusFunc) (Output, error) {
	if p.video == nil {
		return Output{}, &Error{Kind: KindServiceUnavailable, Message: msgStubUnavailable}
	}

	job, err := p.video.Start(ctx, prompt)
	if err != nil {
		return Output{}, err
	}

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for i := 0; ; i++ {
		if onStatus != nil {
			onStatus(FlavorMessages[i%len(FlavorMessages)])
		}

		select {
		case <-ctx.Done():
			return Output{}, ctx.Err()
		case <-ticker.C:
		case <-job.Done():
		}

		done, out, err := job.Poll()
		if done {
			return out, err
		}
	}
}

// Release deletes the displayed result.
func (p *Pipeline) Release(ctx context.Context) {
	p.mu.Lock()
	loc := p.current
	p.current = ""
	p.mu.Unlock()
	p.release(ctx, loc)
}

func (p *Pipeline) release(ctx context.Context, loc storage.Locator) {
	if loc == "" {
		return
	}
	if err := p.store.Delete(context.WithoutCancel(ctx), loc); err != nil {
		p.logger.Warn("release failed", zap.String("locator", string(loc)), zap.Error(err))
	}
}

func (p *Pipeline) failed(e *Error) (media.Result, error) {
	if e.Kind == KindInvalidInput {
		p.logger.Debug("request rejected", zap.String("reason", e.Message))
	} else {
		p.logger.Warn("generation failed", zap.String("kind", string(e.Kind)), zap.Int("status", e.Status), zap.Error(e.Err))
	}
	return media.Failed(e.Message), e
}
