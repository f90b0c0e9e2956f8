package media

import (
	"context"
	"fmt"
	"sync"

	"github.com/zhouzirui/zai-studio/backend/internal/config"
)

// FlavorMessages are shown, in order and cycling, while a video job runs.
var FlavorMessages = []string{
	"Warming up the video engine...",
	"Gathering creative digital particles...",
	"Directing the digital actors...",
	"Rendering the first few frames...",
	"This is taking a bit longer than usual, but good things come to those who wait!",
	"Polishing the pixels...",
	"Applying cinematic filters...",
	"Finalizing the masterpiece...",
}

// VideoBackend starts long-running video generation jobs.
type VideoBackend interface {
	Name() string
	Start(ctx context.Context, prompt string) (Job, error)
}

// Job is a running generation. Poll must not block. Done, when non-nil, is
// closed once Poll would report a terminal state.
type Job interface {
	Poll() (done bool, out Output, err error)
	Done() <-chan struct{}
}

// NewVideoBackend selects the backend named by cfg.VideoBackend. client may be
// nil when no token is configured.
func NewVideoBackend(cfg config.MediaConfig, client Inferencer) (VideoBackend, error) {
	switch cfg.VideoBackend {
	case config.VideoBackendReal, "":
		return &RealVideoBackend{client: client, model: cfg.VideoModel}, nil
	case config.VideoBackendStub:
		return &StubVideoBackend{Ticks: cfg.StubTicks}, nil
	default:
		return nil, fmt.Errorf("unknown video backend %q", cfg.VideoBackend)
	}
}

// RealVideoBackend runs the provider call in the background and reports
// completion through Poll.
type RealVideoBackend struct {
	client Inferencer
	model  string
}

// NewRealVideoBackend builds the provider-backed video backend.
func NewRealVideoBackend(client Inferencer, model string) *RealVideoBackend {
	return &RealVideoBackend{client: client, model: model}
}

func (b *RealVideoBackend) Name() string { return config.VideoBackendReal }

func (b *RealVideoBackend) Start(ctx context.Context, prompt string) (Job, error) {
	if b.client == nil {
		return nil, &Error{Kind: KindMissingCredential, Message: msgMissingToken}
	}

	job := &realJob{done: make(chan struct{})}
	go func() {
		out, err := b.client.Infer(ctx, b.model, prompt)
		job.mu.Lock()
		job.out, job.err = out, err
		job.mu.Unlock()
		close(job.done)
	}()
	return job, nil
}

type realJob struct {
	done chan struct{}

	mu  sync.Mutex
	out Output
	err error
}

func (j *realJob) Poll() (bool, Output, error) {
	select {
	case <-j.done:
	default:
		return false, Output{}, nil
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.err != nil {
		return true, Output{}, classify(j.err, true)
	}
	return true, j.out, nil
}

func (j *realJob) Done() <-chan struct{} { return j.done }

// StubVideoBackend never contacts a provider. Its jobs fail with
// ServiceUnavailable after Ticks polls.
type StubVideoBackend struct {
	Ticks int
}

func (b *StubVideoBackend) Name() string { return config.VideoBackendStub }

func (b *StubVideoBackend) Start(context.Context, string) (Job, error) {
	ticks := b.Ticks
	if ticks <= 0 {
		ticks = len(FlavorMessages)
	}
	return &stubJob{remaining: ticks}, nil
}

type stubJob struct {
	remaining int
}

func (j *stubJob) Poll() (bool, Output, error) {
	j.remaining--
	if j.remaining > 0 {
		return false, Output{}, nil
	}
	return true, Output{}, &Error{Kind: KindServiceUnavailable, Message: msgStubUnavailable}
}

func (j *stubJob) Done() <-chan struct{} { return nil }
