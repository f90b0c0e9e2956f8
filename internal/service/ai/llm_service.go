package ai

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"go.uber.org/zap"

	"github.com/zhouzirui/zai-studio/backend/internal/model/chat"
	"github.com/zhouzirui/zai-studio/backend/pkg/logger"
)

// Service runs conversations through an eino chain: chat template -> chat model.
// Chat sessions and the prompt refiner share one Service.
type Service struct {
	chatModel    model.ChatModel
	chain        compose.Runnable[map[string]any, *schema.Message]
	historyLimit int
	stream       bool
	logger       *zap.Logger
}

// Options configures NewService.
type Options struct {
	// HistoryLimit caps the number of prior turns sent as context; 0 sends all of them.
	HistoryLimit int
	// Stream selects chain.Stream over chain.Invoke for chat replies.
	Stream bool
	Logger *zap.Logger
}

// NewService compiles the prompt chain around chatModel.
func NewService(ctx context.Context, chatModel model.ChatModel, opts Options) (*Service, error) {
	if chatModel == nil {
		return nil, fmt.Errorf("chat model is required")
	}

	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage("{system}"),
		schema.MessagesPlaceholder("history", true),
		schema.UserMessage("{query}"),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile chat chain: %w", err)
	}

	return &Service{
		chatModel:    chatModel,
		chain:        runnable,
		historyLimit: opts.HistoryLimit,
		stream:       opts.Stream,
		logger:       logger.OrNop(opts.Logger).Named("ai"),
	}, nil
}

// StreamingEnabled 指示聊天回复是否走流式输出。
func (s *Service) StreamingEnabled() bool {
	return s.stream
}

// GenerateResponse runs one non-streaming completion.
func (s *Service) GenerateResponse(ctx context.Context, system string, history []chat.Turn, query string) (*schema.Message, error) {
	input := s.buildChainInput(system, history, query)

	response, err := s.chain.Invoke(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("failed to run AI chain: %w", err)
	}

	s.logger.Debug("generated response", zap.Int("history", len(history)), zap.Int("length", len(response.Content)))
	return response, nil
}

// StreamResponse streams completion chunks via the chain.
func (s *Service) StreamResponse(ctx context.Context, system string, history []chat.Turn, query string) (*schema.StreamReader[*schema.Message], error) {
	input := s.buildChainInput(system, history, query)

	stream, err := s.chain.Stream(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("failed to stream AI chain output: %w", err)
	}

	return stream, nil
}

// ChatModel 返回底层的聊天模型。
func (s *Service) ChatModel() model.ChatModel {
	return s.chatModel
}

func (s *Service) buildChainInput(system string, history []chat.Turn, query string) map[string]any {
	return map[string]any{
		"system":  system,
		"history": s.buildHistoryMessages(history),
		"query":   query,
	}
}

// buildHistoryMessages keeps the most recent non-synthetic turns.
func (s *Service) buildHistoryMessages(turns []chat.Turn) []*schema.Message {
	history := make([]*schema.Message, 0, len(turns))
	for _, turn := range turns {
		if turn.Synthetic || turn.Text == "" {
			continue
		}
		switch turn.Role {
		case chat.RoleUser:
			history = append(history, schema.UserMessage(turn.Text))
		case chat.RoleAssistant:
			history = append(history, schema.AssistantMessage(turn.Text, nil))
		}
	}

	if s.historyLimit > 0 && len(history) > s.historyLimit {
		history = history[len(history)-s.historyLimit:]
	}
	return history
}
