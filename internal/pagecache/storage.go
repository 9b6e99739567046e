package pagecache

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

// Storage is a fiber.Storage whose entries live under one namespace and can be dropped at once.
type Storage interface {
	fiber.Storage
	Clear(ctx context.Context) error
}

// RedisStorage keeps cached pages in Redis under "<namespace>:".
type RedisStorage struct {
	rdb       *redis.Client
	namespace string
}

// NewRedisStorage wraps rdb; the client stays owned by the caller.
func NewRedisStorage(rdb *redis.Client, namespace string) *RedisStorage {
	return &RedisStorage{rdb: rdb, namespace: namespace}
}

func (s *RedisStorage) key(k string) string {
	return s.namespace + ":" + k
}

// Get returns nil, nil when the key is absent.
func (s *RedisStorage) Get(key string) ([]byte, error) {
	if key == "" {
		return nil, nil
	}
	val, err := s.rdb.Get(context.Background(), s.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	return val, err
}

func (s *RedisStorage) Set(key string, val []byte, exp time.Duration) error {
	if key == "" || len(val) == 0 {
		return nil
	}
	return s.rdb.Set(context.Background(), s.key(key), val, exp).Err()
}

func (s *RedisStorage) Delete(key string) error {
	if key == "" {
		return nil
	}
	return s.rdb.Del(context.Background(), s.key(key)).Err()
}

func (s *RedisStorage) Reset() error {
	return s.Clear(context.Background())
}

// Clear deletes every key under the namespace using SCAN so Redis is never blocked.
func (s *RedisStorage) Clear(ctx context.Context) error {
	var cursor uint64
	pattern := s.namespace + ":*"
	for {
		keys, next, err := s.rdb.Scan(ctx, cursor, pattern, 500).Result()
		if err != nil {
			return err
		}
		if len(keys) > 0 {
			if err := s.rdb.Del(ctx, keys...).Err(); err != nil {
				return err
			}
		}
		cursor = next
		if cursor == 0 {
			return nil
		}
	}
}

// Close is a no-op; the Redis client is shared.
func (s *RedisStorage) Close() error {
	return nil
}

type memoryEntry struct {
	val     []byte
	expires time.Time
}

// MemoryStorage is an in-process Storage used when Redis is not configured.
type MemoryStorage struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	now     func() time.Time
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{entries: make(map[string]memoryEntry), now: time.Now}
}

func (s *MemoryStorage) Get(key string) ([]byte, error) {
	s.mu.RLock()
	e, ok := s.entries[key]
	s.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	if !e.expires.IsZero() && !s.now().Before(e.expires) {
		s.mu.Lock()
		if cur, ok := s.entries[key]; ok && cur.expires.Equal(e.expires) {
			delete(s.entries, key)
		}
		s.mu.Unlock()
		return nil, nil
	}
	return e.val, nil
}

func (s *MemoryStorage) Set(key string, val []byte, exp time.Duration) error {
	if key == "" || len(val) == 0 {
		return nil
	}
	e := memoryEntry{val: append([]byte(nil), val...)}
	if exp > 0 {
		e.expires = s.now().Add(exp)
	}
	s.mu.Lock()
	s.entries[key] = e
	s.mu.Unlock()
	return nil
}

func (s *MemoryStorage) Delete(key string) error {
	s.mu.Lock()
	delete(s.entries, key)
	s.mu.Unlock()
	return nil
}

func (s *MemoryStorage) Reset() error {
	return s.Clear(context.Background())
}

func (s *MemoryStorage) Clear(context.Context) error {
	s.mu.Lock()
	s.entries = make(map[string]memoryEntry)
	s.mu.Unlock()
	return nil
}

func (s *MemoryStorage) Close() error {
	return nil
}

// Len reports how many entries are held, expired or not.
func (s *MemoryStorage) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
