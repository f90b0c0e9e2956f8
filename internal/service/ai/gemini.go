package ai

import (
	"context"
	"errors"
	"iter"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"google.golang.org/genai"
)

// ContentGenerator is the subset of *genai.Models used by GeminiChatModel.
type ContentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
	GenerateContentStream(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) iter.Seq2[*genai.GenerateContentResponse, error]
}

// GeminiOptions holds generation defaults; per-call model.Option values override them.
type GeminiOptions struct {
	Model       string
	Temperature *float32
	TopP        *float32
	MaxTokens   *int
}

// GeminiChatModel adapts the genai SDK to eino's model.ChatModel so the Gemini
// provider can be dropped into the same chains as the Ark model.
type GeminiChatModel struct {
	models ContentGenerator
	opts   GeminiOptions
}

var errEmptyGeminiResponse = errors.New("gemini: response contained no candidates")

// NewGeminiChatModel wraps a content generator (usually client.Models).
func NewGeminiChatModel(models ContentGenerator, opts GeminiOptions) *GeminiChatModel {
	if opts.Model == "" {
		opts.Model = "gemini-2.5-flash"
	}
	return &GeminiChatModel{models: models, opts: opts}
}

func (g *GeminiChatModel) Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	modelName, contents, cfg := g.convert(input, opts)

	resp, err := g.models.GenerateContent(ctx, modelName, contents, cfg)
	if err != nil {
		return nil, err
	}
	text, ok := candidateText(resp)
	if !ok {
		return nil, errEmptyGeminiResponse
	}
	return schema.AssistantMessage(text, nil), nil
}

func (g *GeminiChatModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	modelName, contents, cfg := g.convert(input, opts)
	sr, sw := schema.Pipe[*schema.Message](16)

	go func() {
		defer sw.Close()
		for chunk, err := range g.models.GenerateContentStream(ctx, modelName, contents, cfg) {
			if err != nil {
				sw.Send(nil, err)
				return
			}
			text, ok := candidateText(chunk)
			if !ok || text == "" {
				continue
			}
			if closed := sw.Send(schema.AssistantMessage(text, nil), nil); closed {
				return
			}
		}
	}()

	return sr, nil
}

// BindTools is not supported; chat and refine never bind tools.
func (g *GeminiChatModel) BindTools(tools []*schema.ToolInfo) error {
	if len(tools) == 0 {
		return nil
	}
	return errors.New("gemini: tool binding is not supported")
}

func (g *GeminiChatModel) convert(input []*schema.Message, opts []model.Option) (string, []*genai.Content, *genai.GenerateContentConfig) {
	common := model.GetCommonOptions(&model.Options{
		Model:       &g.opts.Model,
		Temperature: g.opts.Temperature,
		TopP:        g.opts.TopP,
		MaxTokens:   g.opts.MaxTokens,
	}, opts...)

	cfg := &genai.GenerateContentConfig{
		Temperature: common.Temperature,
		TopP:        common.TopP,
	}
	if common.MaxTokens != nil {
		cfg.MaxOutputTokens = int32(*common.MaxTokens)
	}
	if len(common.Stop) > 0 {
		cfg.StopSequences = common.Stop
	}

	var (
		system   []*genai.Part
		contents = make([]*genai.Content, 0, len(input))
	)
	for _, msg := range input {
		if msg == nil || msg.Content == "" {
			continue
		}
		switch msg.Role {
		case schema.System:
			system = append(system, &genai.Part{Text: msg.Content})
		case schema.Assistant:
			contents = append(contents, &genai.Content{Role: "model", Parts: []*genai.Part{{Text: msg.Content}}})
		default:
			contents = append(contents, &genai.Content{Role: "user", Parts: []*genai.Part{{Text: msg.Content}}})
		}
	}
	if len(system) > 0 {
		cfg.SystemInstruction = &genai.Content{Parts: system}
	}

	modelName := g.opts.Model
	if common.Model != nil && *common.Model != "" {
		modelName = *common.Model
	}
	return modelName, contents, cfg
}

// candidateText concatenates the non-thought text parts of the first candidate.
func candidateText(resp *genai.GenerateContentResponse) (string, bool) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", false
	}
	var sb strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		if p == nil || p.Thought {
			continue
		}
		sb.WriteString(p.Text)
	}
	return sb.String(), true
}

var _ model.ChatModel = (*GeminiChatModel)(nil)
