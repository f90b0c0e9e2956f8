package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "TEXT_PROVIDER", "VIDEO_BACKEND", "MEDIA_STORE", "CHAT_HISTORY_LIMIT", "VIDEO_STATUS_INTERVAL"} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load err: %v", err)
	}

	if cfg.Server.Addr != ":8080" {
		t.Fatalf("unexpected addr: %s", cfg.Server.Addr)
	}
	if cfg.AI.Provider != ProviderGemini {
		t.Fatalf("unexpected provider: %s", cfg.AI.Provider)
	}
	if cfg.AI.HistoryLimit != 20 {
		t.Fatalf("unexpected history limit: %d", cfg.AI.HistoryLimit)
	}
	if cfg.Media.VideoBackend != VideoBackendReal {
		t.Fatalf("unexpected video backend: %s", cfg.Media.VideoBackend)
	}
	if cfg.Media.StatusInterval != 3*time.Second {
		t.Fatalf("unexpected status interval: %s", cfg.Media.StatusInterval)
	}
	if cfg.Storage.Backend != StoreMemory {
		t.Fatalf("unexpected store: %s", cfg.Storage.Backend)
	}
}

func TestLoadRejectsUnknownProvider(t *testing.T) {
	t.Setenv("TEXT_PROVIDER", "openai")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for unknown provider")
	}
}

func TestLoadRejectsInvalidInterval(t *testing.T) {
	t.Setenv("VIDEO_STATUS_INTERVAL", "soon")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for invalid interval")
	}
}

func TestLoadS3RequiresBucket(t *testing.T) {
	t.Setenv("MEDIA_STORE", "s3")
	t.Setenv("S3_BUCKET", "")

	_, err := Load()
	if !IsConfigurationError(err) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestServerAddrAcceptsHostPort(t *testing.T) {
	t.Setenv("PORT", "127.0.0.1:9000")
	cfg, err := loadServerConfig()
	if err != nil {
		t.Fatalf("loadServerConfig err: %v", err)
	}
	if cfg.Addr != "127.0.0.1:9000" {
		t.Fatalf("unexpected addr: %s", cfg.Addr)
	}
}
