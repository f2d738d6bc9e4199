package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	cfg "imaginarium/src/configuration"
)

var (
	ErrNotFound      = errors.New("key not found")
	ErrQuotaExceeded = errors.New("storage quota exceeded")
)

type (
	// KeyValueStore is the per-identity keyed storage behind galleries, settings,
	// users and tokens. Values larger than the configured quota are rejected.
	KeyValueStore interface {
		Get(ctx context.Context, key string) (string, error)
		Set(ctx context.Context, key, value string, ttl time.Duration) error
		Delete(ctx context.Context, key string) error
		// Take returns the value and removes it in one step.
		Take(ctx context.Context, key string) (string, error)
		Ping(ctx context.Context) error
		Close() error
	}

	InMemoryDB struct {
		mu            sync.Mutex
		table         map[string]entry
		maxValueBytes int
		now           func() time.Time
	}

	entry struct {
		value   string
		expires time.Time
	}
)

// NewKeyValueStore picks the backend named in the store properties.
func NewKeyValueStore(config *cfg.Properties) (KeyValueStore, error) {
	if config == nil {
		return nil, fmt.Errorf("config is not valid")
	}
	switch config.Store.Backend {
	case "", "memory":
		return NewInMemoryDB(config.Store.MaxValueBytes), nil
	case "redis":
		return NewRedisDB(config.Store.RedisAddr, config.Store.RedisPassword, config.Store.RedisDB, config.Store.MaxValueBytes), nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", config.Store.Backend)
	}
}

// NewInMemoryDB creates an empty store. maxValueBytes <= 0 disables the quota.
func NewInMemoryDB(maxValueBytes int) *InMemoryDB {
	return &InMemoryDB{
		table:         make(map[string]entry),
		maxValueBytes: maxValueBytes,
		now:           time.Now,
	}
}

func (i *InMemoryDB) Get(_ context.Context, key string) (string, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	e, ok := i.lookup(key)
	if !ok {
		return "", ErrNotFound
	}
	return e.value, nil
}

func (i *InMemoryDB) Set(_ context.Context, key, value string, ttl time.Duration) error {
	if err := checkQuota(value, i.maxValueBytes); err != nil {
		return err
	}
	e := entry{value: value}
	if ttl > 0 {
		e.expires = i.now().Add(ttl)
	}
	i.mu.Lock()
	i.table[key] = e
	i.mu.Unlock()
	return nil
}

func (i *InMemoryDB) Delete(_ context.Context, key string) error {
	i.mu.Lock()
	delete(i.table, key)
	i.mu.Unlock()
	return nil
}

func (i *InMemoryDB) Take(_ context.Context, key string) (string, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	e, ok := i.lookup(key)
	if !ok {
		return "", ErrNotFound
	}
	delete(i.table, key)
	return e.value, nil
}

func (i *InMemoryDB) Ping(context.Context) error { return nil }

func (i *InMemoryDB) Close() error { return nil }

// lookup must be called with mu held; expired entries are dropped.
func (i *InMemoryDB) lookup(key string) (entry, bool) {
	e, ok := i.table[key]
	if !ok {
		return entry{}, false
	}
	if !e.expires.IsZero() && !i.now().Before(e.expires) {
		delete(i.table, key)
		return entry{}, false
	}
	return e, true
}

func checkQuota(value string, maxValueBytes int) error {
	if maxValueBytes > 0 && len(value) > maxValueBytes {
		return fmt.Errorf("%w: %d bytes over limit %d", ErrQuotaExceeded, len(value), maxValueBytes)
	}
	return nil
}
