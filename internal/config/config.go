package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// 文本模型提供方。
const (
	ProviderGemini = "gemini"
	ProviderArk    = "ark"
)

// 视频生成后端。
const (
	VideoBackendReal = "real"
	VideoBackendStub = "stub"
)

// 媒体存储后端。
const (
	StoreMemory = "memory"
	StoreBadger = "badger"
	StoreS3     = "s3"
)

// Config 聚合整个服务的配置项。
type Config struct {
	Server    ServerConfig
	AI        AIConfig
	Media     MediaConfig
	Storage   StorageConfig
	Log       LogConfig
	Telemetry TelemetryConfig
}

// Load 从环境变量加载配置。凭证缺失不会在这里报错，而是在构造对应组件时返回 ConfigurationError。
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	ai, err := loadAIConfig()
	if err != nil {
		return nil, err
	}

	media, err := loadMediaConfig()
	if err != nil {
		return nil, err
	}

	storage, err := loadStorageConfig()
	if err != nil {
		return nil, err
	}

	logCfg, err := loadLogConfig()
	if err != nil {
		return nil, err
	}

	telemetry, err := loadTelemetryConfig()
	if err != nil {
		return nil, err
	}

	return &Config{
		Server:    server,
		AI:        ai,
		Media:     media,
		Storage:   storage,
		Log:       logCfg,
		Telemetry: telemetry,
	}, nil
}

// ServerConfig 描述 HTTP 服务配置。
type ServerConfig struct {
	Addr string
}

// loadServerConfig 解析服务器监听地址。
func loadServerConfig() (ServerConfig, error) {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8080"
	}

	if strings.Contains(port, ":") {
		// 允许用户直接传入 ":8080" 或 "127.0.0.1:8080"。
		return ServerConfig{Addr: port}, nil
	}

	if strings.Contains(port, " ") {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	return ServerConfig{Addr: ":" + port}, nil
}

// AIConfig 描述文本大模型相关配置，聊天与提示词优化共用同一个模型实例。
type AIConfig struct {
	Provider string

	GeminiAPIKey string
	GeminiModel  string

	APIKey    string
	AccessKey string
	SecretKey string
	Model     string
	BaseURL   string
	Region    string

	Temperature    *float64
	TopP           *float64
	MaxTokens      *int
	StreamResponse bool
	HistoryLimit   int
}

// MediaConfig 描述图像/视频推理服务配置。
type MediaConfig struct {
	Token          string
	BaseURL        string
	ImageModel     string
	VideoModel     string
	VideoBackend   string
	StatusInterval time.Duration
	StubTicks      int
	Timeout        time.Duration
}

// StorageConfig 描述生成结果的存储位置。
type StorageConfig struct {
	Backend     string
	Dir         string
	S3Bucket    string
	S3Prefix    string
	S3Region    string
	S3Endpoint  string
	S3AccessKey string
	S3SecretKey string
}

// LogConfig 日志配置。
type LogConfig struct {
	Debug bool
}

// TelemetryConfig 链路追踪配置。
type TelemetryConfig struct {
	Enabled     bool
	ServiceName string
}

func loadAIConfig() (AIConfig, error) {
	provider := strings.ToLower(getEnvOrDefault("TEXT_PROVIDER", ProviderGemini))
	if provider != ProviderGemini && provider != ProviderArk {
		return AIConfig{}, fmt.Errorf("invalid TEXT_PROVIDER value %q: expected %s or %s", provider, ProviderGemini, ProviderArk)
	}

	temperature, err := parseOptionalFloatEnv("AI_TEMPERATURE")
	if err != nil {
		return AIConfig{}, err
	}

	topP, err := parseOptionalFloatEnv("AI_TOP_P")
	if err != nil {
		return AIConfig{}, err
	}

	maxTokens, err := parseOptionalIntEnv("AI_MAX_TOKENS")
	if err != nil {
		return AIConfig{}, err
	}

	stream, err := parseBoolEnv("CHAT_STREAM", true)
	if err != nil {
		return AIConfig{}, err
	}

	historyLimit := 20
	if override, err := parseOptionalIntEnv("CHAT_HISTORY_LIMIT"); err != nil {
		return AIConfig{}, err
	} else if override != nil {
		if *override < 0 {
			historyLimit = 0
		} else {
			historyLimit = *override
		}
	}

	return AIConfig{
		Provider:       provider,
		GeminiAPIKey:   strings.TrimSpace(os.Getenv("GEMINI_API_KEY")),
		GeminiModel:    getEnvOrDefault("GEMINI_MODEL", "gemini-2.5-flash"),
		APIKey:         strings.TrimSpace(os.Getenv("ARK_API_KEY")),
		AccessKey:      strings.TrimSpace(os.Getenv("ARK_ACCESS_KEY")),
		SecretKey:      strings.TrimSpace(os.Getenv("ARK_SECRET_KEY")),
		Model:          strings.TrimSpace(os.Getenv("Model")),
		BaseURL:        getEnvOrDefault("ARK_BASE_URL", "https://ark.cn-beijing.volces.com/api/v3"),
		Region:         getEnvOrDefault("ARK_REGION", "cn-beijing"),
		Temperature:    temperature,
		TopP:           topP,
		MaxTokens:      maxTokens,
		StreamResponse: stream,
		HistoryLimit:   historyLimit,
	}, nil
}

func loadMediaConfig() (MediaConfig, error) {
	backend := strings.ToLower(getEnvOrDefault("VIDEO_BACKEND", VideoBackendReal))
	if backend != VideoBackendReal && backend != VideoBackendStub {
		return MediaConfig{}, fmt.Errorf("invalid VIDEO_BACKEND value %q: expected %s or %s", backend, VideoBackendReal, VideoBackendStub)
	}

	interval, err := parseDurationEnv("VIDEO_STATUS_INTERVAL", 3*time.Second)
	if err != nil {
		return MediaConfig{}, err
	}
	if interval <= 0 {
		return MediaConfig{}, fmt.Errorf("invalid VIDEO_STATUS_INTERVAL value %q: must be positive", interval)
	}

	timeout, err := parseDurationEnv("HF_TIMEOUT", 5*time.Minute)
	if err != nil {
		return MediaConfig{}, err
	}

	stubTicks := 8
	if override, err := parseOptionalIntEnv("VIDEO_STUB_TICKS"); err != nil {
		return MediaConfig{}, err
	} else if override != nil && *override > 0 {
		stubTicks = *override
	}

	return MediaConfig{
		Token:          strings.TrimSpace(os.Getenv("HUGGINGFACE_TOKEN")),
		BaseURL:        strings.TrimRight(getEnvOrDefault("HF_BASE_URL", "https://router.huggingface.co/hf-inference/models"), "/"),
		ImageModel:     getEnvOrDefault("HF_IMAGE_MODEL", "stabilityai/stable-diffusion-xl-base-1.0"),
		VideoModel:     getEnvOrDefault("HF_VIDEO_MODEL", "damo-vilab/text-to-video-ms-1.7b"),
		VideoBackend:   backend,
		StatusInterval: interval,
		StubTicks:      stubTicks,
		Timeout:        timeout,
	}, nil
}

func loadStorageConfig() (StorageConfig, error) {
	backend := strings.ToLower(getEnvOrDefault("MEDIA_STORE", StoreMemory))
	switch backend {
	case StoreMemory, StoreBadger, StoreS3:
	default:
		return StorageConfig{}, fmt.Errorf("invalid MEDIA_STORE value %q", backend)
	}

	cfg := StorageConfig{
		Backend:     backend,
		Dir:         getEnvOrDefault("MEDIA_STORE_DIR", "data/media"),
		S3Bucket:    strings.TrimSpace(os.Getenv("S3_BUCKET")),
		S3Prefix:    strings.Trim(strings.TrimSpace(os.Getenv("S3_PREFIX")), "/"),
		S3Region:    getEnvOrDefault("S3_REGION", "us-east-1"),
		S3Endpoint:  strings.TrimSpace(os.Getenv("S3_ENDPOINT")),
		S3AccessKey: strings.TrimSpace(os.Getenv("S3_ACCESS_KEY")),
		S3SecretKey: strings.TrimSpace(os.Getenv("S3_SECRET_KEY")),
	}

	if backend == StoreS3 && cfg.S3Bucket == "" {
		return StorageConfig{}, &ConfigurationError{Key: "S3_BUCKET", Reason: "required when MEDIA_STORE=s3"}
	}
	return cfg, nil
}

func loadLogConfig() (LogConfig, error) {
	debug, err := parseBoolEnv("LOG_DEBUG", false)
	if err != nil {
		return LogConfig{}, err
	}
	return LogConfig{Debug: debug}, nil
}

func loadTelemetryConfig() (TelemetryConfig, error) {
	enabled, err := parseBoolEnv("OTEL_ENABLED", false)
	if err != nil {
		return TelemetryConfig{}, err
	}
	return TelemetryConfig{
		Enabled:     enabled,
		ServiceName: getEnvOrDefault("OTEL_SERVICE_NAME", "zai-studio"),
	}, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func parseBoolEnv(key string, defaultValue bool) (bool, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	val, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return val, nil
}

func parseDurationEnv(key string, defaultValue time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	val, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return val, nil
}

func parseOptionalFloatEnv(key string) (*float64, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}

func parseOptionalIntEnv(key string) (*int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}
