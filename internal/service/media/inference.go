package media

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/zhouzirui/zai-studio/backend/internal/config"
	"github.com/zhouzirui/zai-studio/backend/pkg/logger"
)

// Output is the raw payload returned by the inference provider.
type Output struct {
	ContentType string
	Data        []byte
}

// Inferencer runs a text-to-media model.
type Inferencer interface {
	Infer(ctx context.Context, model, prompt string) (Output, error)
}

// StatusError is a non-2xx response from the inference provider.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("inference provider returned status %d", e.StatusCode)
}

// InferenceOptions configures NewInferenceClient.
type InferenceOptions struct {
	BaseURL string
	Token   string
	Timeout time.Duration
	// HTTPClient overrides the default client; Timeout is ignored when set.
	HTTPClient *http.Client
	Logger     *zap.Logger
}

// InferenceClient posts prompts to the hosted inference API.
type InferenceClient struct {
	client  *http.Client
	baseURL string
	token   string
	logger  *zap.Logger
}

// NewInferenceClient validates the token and builds a client. No request is
// made here.
func NewInferenceClient(opts InferenceOptions) (*InferenceClient, error) {
	if strings.TrimSpace(opts.Token) == "" {
		return nil, config.MissingCredential("HUGGINGFACE_TOKEN")
	}
	if opts.BaseURL == "" {
		return nil, fmt.Errorf("inference base URL is required")
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: opts.Timeout}
	}

	return &InferenceClient{
		client:  httpClient,
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		token:   opts.Token,
		logger:  logger.OrNop(opts.Logger).Named("inference"),
	}, nil
}

type inferenceRequest struct {
	Inputs string `json:"inputs"`
}

// Infer sends {"inputs": prompt} to <base>/<model> and returns the response bytes.
func (c *InferenceClient) Infer(ctx context.Context, model, prompt string) (Output, error) {
	body, err := json.Marshal(inferenceRequest{Inputs: prompt})
	if err != nil {
		return Output{}, fmt.Errorf("marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/"+model, bytes.NewReader(body))
	if err != nil {
		return Output{}, fmt.Errorf("create request: %w", err)
	}
	c.setHeaders(req)

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return Output{}, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	return c.handleResponse(resp, model, time.Since(start))
}

func (c *InferenceClient) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")
}

func (c *InferenceClient) handleResponse(resp *http.Response, model string, elapsed time.Duration) (Output, error) {
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return Output{}, fmt.Errorf("read response: %w", err)
	}

	c.logger.Debug("inference response",
		zap.String("model", model),
		zap.Int("status", resp.StatusCode),
		zap.Int("bytes", len(data)),
		zap.Duration("elapsed", elapsed),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Output{}, &StatusError{StatusCode: resp.StatusCode, Body: string(data)}
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	return Output{ContentType: contentType, Data: data}, nil
}
