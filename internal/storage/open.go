package storage

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/zhouzirui/zai-studio/backend/internal/config"
)

// Open builds the BlobStore selected by MEDIA_STORE.
func Open(cfg config.StorageConfig, logger *zap.Logger) (BlobStore, error) {
	switch cfg.Backend {
	case config.StoreMemory, "":
		return NewMemory(), nil
	case config.StoreBadger:
		return NewBadger(BadgerOptions{Dir: cfg.Dir, Logger: logger})
	case config.StoreS3:
		if cfg.S3Bucket == "" {
			return nil, config.MissingCredential("S3_BUCKET")
		}
		client := NewS3Client(S3Options{
			Region:    cfg.S3Region,
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
		})
		return NewS3(client, cfg.S3Bucket, cfg.S3Prefix), nil
	default:
		return nil, fmt.Errorf("storage: unknown backend %q", cfg.Backend)
	}
}
