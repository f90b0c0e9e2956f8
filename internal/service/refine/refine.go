// Package refine rewrites short user prompts into detailed generation prompts.
package refine

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/zhouzirui/zai-studio/backend/internal/service/ai"
	"github.com/zhouzirui/zai-studio/backend/pkg/logger"
	"github.com/zhouzirui/zai-studio/backend/pkg/telemetry"
)

// SystemInstruction is sent with every refinement request.
const SystemInstruction = "You are an expert prompt engineer for generative AI. Refine the following user prompt to make it more descriptive, vivid, and detailed for generating a high-quality image or video. Your response should be a single, continuous string of text that is the refined prompt itself, without any introductory phrases, explanations, or markdown formatting."

var (
	ErrEmptyPrompt  = errors.New("prompt is empty")
	ErrRefineFailed = errors.New("failed to refine prompt")
)

// Refiner turns a prompt into a more descriptive one with a single
// non-streaming completion. It holds no state between calls.
type Refiner struct {
	llm    *ai.Service
	logger *zap.Logger
}

// NewRefiner builds a Refiner on the shared AI service.
func NewRefiner(llm *ai.Service, log *zap.Logger) *Refiner {
	return &Refiner{llm: llm, logger: logger.OrNop(log).Named("refine")}
}

// Refine returns the refined prompt. Provider failures and empty output are
// reported as ErrRefineFailed.
func (r *Refiner) Refine(ctx context.Context, prompt string) (string, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", ErrEmptyPrompt
	}

	ctx, span := telemetry.Start(ctx, "zai/refine", "refine.prompt", attribute.Int("prompt.length", len(prompt)))
	refined, err := r.refine(ctx, prompt)
	telemetry.End(span, err)
	return refined, err
}

func (r *Refiner) refine(ctx context.Context, prompt string) (string, error) {
	query := `Refine this prompt: "` + prompt + `"`
	msg, err := r.llm.GenerateResponse(ctx, SystemInstruction, nil, query)
	if err != nil {
		r.logger.Warn("refine failed", zap.Error(err))
		return "", fmt.Errorf("%w: %w", ErrRefineFailed, err)
	}

	refined := cleanOutput(msg.Content)
	if refined == "" {
		r.logger.Warn("refine returned empty output")
		return "", ErrRefineFailed
	}
	return refined, nil
}

// cleanOutput trims whitespace and one layer of wrapping quotes.
func cleanOutput(s string) string {
	s = strings.TrimSpace(s)
	for _, q := range []string{`"`, "'", "`", "“"} {
		end := q
		if q == "“" {
			end = "”"
		}
		if len(s) >= len(q)+len(end) && strings.HasPrefix(s, q) && strings.HasSuffix(s, end) {
			return strings.TrimSpace(s[len(q) : len(s)-len(end)])
		}
	}
	return s
}
