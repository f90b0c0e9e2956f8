package ai

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino/components/model"
	"google.golang.org/genai"

	"github.com/zhouzirui/zai-studio/backend/internal/config"
)

// NewChatModel 根据 TEXT_PROVIDER 构造聊天模型。凭证缺失时返回 *config.ConfigurationError，且不会发起任何网络请求。
func NewChatModel(ctx context.Context, cfg config.AIConfig) (model.ChatModel, error) {
	switch cfg.Provider {
	case config.ProviderGemini, "":
		return newGeminiModel(ctx, cfg)
	case config.ProviderArk:
		return newArkModel(ctx, cfg)
	default:
		return nil, fmt.Errorf("unsupported text provider %q", cfg.Provider)
	}
}

func newGeminiModel(ctx context.Context, cfg config.AIConfig) (model.ChatModel, error) {
	if cfg.GeminiAPIKey == "" {
		return nil, config.MissingCredential("GEMINI_API_KEY")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	return NewGeminiChatModel(client.Models, GeminiOptions{
		Model:       cfg.GeminiModel,
		Temperature: toFloat32(cfg.Temperature),
		TopP:        toFloat32(cfg.TopP),
		MaxTokens:   cfg.MaxTokens,
	}), nil
}

func newArkModel(ctx context.Context, cfg config.AIConfig) (model.ChatModel, error) {
	if cfg.Model == "" {
		return nil, config.MissingCredential("Model")
	}
	if cfg.APIKey == "" && (cfg.AccessKey == "" || cfg.SecretKey == "") {
		return nil, &config.ConfigurationError{Key: "ARK_API_KEY", Reason: "or ARK_ACCESS_KEY + ARK_SECRET_KEY must be set"}
	}

	var maxTokens *int
	if cfg.MaxTokens != nil {
		val := *cfg.MaxTokens
		maxTokens = &val
	}

	arkCfg := &ark.ChatModelConfig{
		BaseURL:     cfg.BaseURL,
		Region:      cfg.Region,
		APIKey:      cfg.APIKey,
		AccessKey:   cfg.AccessKey,
		SecretKey:   cfg.SecretKey,
		Model:       cfg.Model,
		MaxTokens:   maxTokens,
		Temperature: toFloat32(cfg.Temperature),
		TopP:        toFloat32(cfg.TopP),
	}

	return ark.NewChatModel(ctx, arkCfg)
}

func toFloat32(v *float64) *float32 {
	if v == nil {
		return nil
	}
	val := float32(*v)
	return &val
}
