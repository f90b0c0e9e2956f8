package storage

import (
	"context"
	"errors"

	badger "github.com/dgraph-io/badger/v4"
	"go.uber.org/zap"

	"github.com/zhouzirui/zai-studio/backend/pkg/logger"
)

// Badger is a BlobStore backed by BadgerDB. Each blob is written as two keys,
// "<locator>:type" and "<locator>:data", inside one transaction.
type Badger struct {
	db *badger.DB
}

// BadgerOptions configures the Badger store.
type BadgerOptions struct {
	// Dir is required unless InMemory is set.
	Dir string
	// InMemory runs badger without disk persistence.
	InMemory bool
	Logger   *zap.Logger
}

// NewBadger opens a Badger-backed store.
func NewBadger(opts BadgerOptions) (*Badger, error) {
	if !opts.InMemory && opts.Dir == "" {
		return nil, errors.New("storage: BadgerOptions.Dir is required for on-disk mode")
	}
	dbOpts := badger.DefaultOptions(opts.Dir)
	if opts.InMemory {
		dbOpts = dbOpts.WithInMemory(true)
	}
	dbOpts = dbOpts.WithLogger(badgerLogger{l: logger.OrNop(opts.Logger).Sugar().Named("badger")})

	db, err := badger.Open(dbOpts)
	if err != nil {
		return nil, err
	}
	return &Badger{db: db}, nil
}

func typeKey(loc Locator) []byte { return []byte(string(loc) + ":type") }
func dataKey(loc Locator) []byte { return []byte(string(loc) + ":data") }

func (b *Badger) Put(_ context.Context, blob Blob) (Locator, error) {
	loc := NewLocator()
	err := b.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(typeKey(loc), []byte(blob.ContentType)); err != nil {
			return err
		}
		return txn.Set(dataKey(loc), blob.Data)
	})
	if err != nil {
		return "", err
	}
	return loc, nil
}

func (b *Badger) Get(_ context.Context, loc Locator) (Blob, error) {
	var blob Blob
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(dataKey(loc))
		if err != nil {
			return err
		}
		if blob.Data, err = item.ValueCopy(nil); err != nil {
			return err
		}
		item, err = txn.Get(typeKey(loc))
		if err != nil {
			return err
		}
		contentType, err := item.ValueCopy(nil)
		blob.ContentType = string(contentType)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return Blob{}, ErrNotFound
	}
	return blob, err
}

func (b *Badger) Delete(_ context.Context, loc Locator) error {
	err := b.db.Update(func(txn *badger.Txn) error {
		if err := txn.Delete(typeKey(loc)); err != nil {
			return err
		}
		return txn.Delete(dataKey(loc))
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil
	}
	return err
}

func (b *Badger) Close() error {
	return b.db.Close()
}

var _ BlobStore = (*Badger)(nil)

// badgerLogger forwards warnings and errors to zap and drops the rest.
type badgerLogger struct {
	l *zap.SugaredLogger
}

func (g badgerLogger) Errorf(f string, v ...interface{})   { g.l.Errorf(f, v...) }
func (g badgerLogger) Warningf(f string, v ...interface{}) { g.l.Warnf(f, v...) }
func (badgerLogger) Infof(string, ...interface{})          {}
func (badgerLogger) Debugf(string, ...interface{})         {}

