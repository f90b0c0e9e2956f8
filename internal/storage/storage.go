// Package storage keeps generated media behind opaque locators. The
// presentation layer receives a Locator instead of raw bytes and dereferences
// it when the content is displayed.
package storage

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a locator does not reference stored content.
var ErrNotFound = errors.New("storage: blob not found")

// ErrInvalidLocator is returned for strings that were not minted by NewLocator.
var ErrInvalidLocator = errors.New("storage: invalid locator")

const locatorPrefix = "blob_"

// Locator is an opaque handle to stored binary content.
type Locator string

// NewLocator mints a fresh locator.
func NewLocator() Locator {
	return Locator(locatorPrefix + uuid.NewString())
}

// ParseLocator validates a locator received from a client.
func ParseLocator(raw string) (Locator, error) {
	id, ok := strings.CutPrefix(strings.TrimSpace(raw), locatorPrefix)
	if !ok {
		return "", ErrInvalidLocator
	}
	if _, err := uuid.Parse(id); err != nil {
		return "", ErrInvalidLocator
	}
	return Locator(locatorPrefix + id), nil
}

// Blob is stored content with its media type.
type Blob struct {
	ContentType string
	Data        []byte
}

// BlobStore persists generated media. Implementations must be safe for
// concurrent use. Delete is idempotent.
type BlobStore interface {
	Put(ctx context.Context, blob Blob) (Locator, error)
	Get(ctx context.Context, loc Locator) (Blob, error)
	Delete(ctx context.Context, loc Locator) error
	Close() error
}
