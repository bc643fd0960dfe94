package gate

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// SessionStore keeps authenticated session ids.
type SessionStore interface {
	// Create stores id; ttl 0 means no expiry.
	Create(ctx context.Context, id string, ttl time.Duration) error
	Exists(ctx context.Context, id string) (bool, error)
	Delete(ctx context.Context, id string) error
	Ping(ctx context.Context) error
}

// MemoryStore is a process-local SessionStore.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]time.Time // zero time = no expiry
	now      func() time.Time
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]time.Time), now: time.Now}
}

func (m *MemoryStore) Create(_ context.Context, id string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var expires time.Time
	if ttl > 0 {
		expires = m.now().Add(ttl)
	}
	m.sessions[id] = expires
	return nil
}

func (m *MemoryStore) Exists(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	expires, ok := m.sessions[id]
	if !ok {
		return false, nil
	}
	if !expires.IsZero() && !m.now().Before(expires) {
		delete(m.sessions, id)
		return false, nil
	}
	return true, nil
}

func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

func (m *MemoryStore) Ping(context.Context) error { return nil }

const sessionPrefix = "surveydash:session:"

// RedisStore keeps sessions in Redis under "surveydash:session:{id}".
type RedisStore struct {
	rdb *redis.Client
}

// NewRedisStore creates a RedisStore.
func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb}
}

func (r *RedisStore) Create(ctx context.Context, id string, ttl time.Duration) error {
	if err := r.rdb.Set(ctx, sessionPrefix+id, time.Now().UTC().Format(time.RFC3339), ttl).Err(); err != nil {
		return fmt.Errorf("sessions: redis set: %w", err)
	}
	return nil
}

func (r *RedisStore) Exists(ctx context.Context, id string) (bool, error) {
	n, err := r.rdb.Exists(ctx, sessionPrefix+id).Result()
	if err != nil {
		return false, fmt.Errorf("sessions: redis exists: %w", err)
	}
	return n > 0, nil
}

func (r *RedisStore) Delete(ctx context.Context, id string) error {
	if err := r.rdb.Del(ctx, sessionPrefix+id).Err(); err != nil {
		return fmt.Errorf("sessions: redis del: %w", err)
	}
	return nil
}

func (r *RedisStore) Ping(ctx context.Context) error {
	return r.rdb.Ping(ctx).Err()
}
