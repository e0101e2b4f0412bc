package weather

import (
	"context"
	"fmt"
	"time"

	"github.com/stuartleeks/home-dash/epaper-dash/data"
)

// Store persists the single cached forecast entry.
// Load returns (nil, nil) when nothing has been saved yet.
type Store interface {
	Load(ctx context.Context) (*CachedForecast, error)
	Save(ctx context.Context, entry CachedForecast) error
	Close() error
}

const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

// OpenStore opens the store for the named backend. path is the JSON file for "file"
// and the database file for "sqlite"; "memory" ignores it.
func OpenStore(backend, path string) (Store, error) {
	switch backend {
	case BackendFile, "":
		return NewFileStore(path), nil
	case BackendSQLite:
		return NewSQLiteStore(path)
	case BackendMemory:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown weather cache backend %q", backend)
	}
}

// FileStore keeps the entry as a JSON document on disk.
type FileStore struct {
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) Load(_ context.Context) (*CachedForecast, error) {
	return data.JsonReadSharedLock[CachedForecast](s.path)
}

func (s *FileStore) Save(_ context.Context, entry CachedForecast) error {
	return data.JsonWriteExclusiveLock(s.path, entry)
}

func (s *FileStore) Close() error { return nil }

const memoryKey = "weather"

// MemoryStore keeps the entry in process; it is lost on restart.
type MemoryStore struct {
	cache *data.Cache[string, CachedForecast]
}

func NewMemoryStore() *MemoryStore {
	// entries are checked against their own expiry by Cache; this only bounds retention
	return &MemoryStore{cache: data.NewCache[string, CachedForecast](24 * time.Hour)}
}

func (s *MemoryStore) Load(_ context.Context) (*CachedForecast, error) {
	return s.cache.Get(memoryKey), nil
}

func (s *MemoryStore) Save(_ context.Context, entry CachedForecast) error {
	s.cache.Set(memoryKey, &entry)
	return nil
}

func (s *MemoryStore) Close() error { return nil }
