package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/markdave123-py/botdesk/internal/core"
)

// StateStore keeps conversation state between HTTP requests.
type StateStore interface {
	Load(ctx context.Context, chatbotID, sessionID string) (State, bool, error)
	Save(ctx context.Context, st State) error
	Delete(ctx context.Context, chatbotID, sessionID string) error
}

func stateKey(chatbotID, sessionID string) string {
	return "conversation:" + chatbotID + ":" + sessionID
}

type memoryEntry struct {
	state   State
	expires time.Time
}

// MemoryStore is a process-local StateStore with a sliding TTL.
type MemoryStore struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]memoryEntry
	now     func() time.Time
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{ttl: ttl, entries: make(map[string]memoryEntry), now: time.Now}
}

func (m *MemoryStore) Load(_ context.Context, chatbotID, sessionID string) (State, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := stateKey(chatbotID, sessionID)
	e, ok := m.entries[key]
	if !ok {
		return State{}, false, nil
	}
	if m.ttl > 0 && m.now().After(e.expires) {
		delete(m.entries, key)
		return State{}, false, nil
	}
	return e.state, true, nil
}

func (m *MemoryStore) Save(_ context.Context, st State) error {
	if st.SessionID == "" {
		return fmt.Errorf("save state without session: %w", core.ErrValidation)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries[stateKey(st.ChatbotID, st.SessionID)] = memoryEntry{state: st, expires: m.now().Add(m.ttl)}
	m.sweepLocked()
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, chatbotID, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, stateKey(chatbotID, sessionID))
	return nil
}

func (m *MemoryStore) sweepLocked() {
	if m.ttl <= 0 {
		return
	}
	now := m.now()
	for k, e := range m.entries {
		if now.After(e.expires) {
			delete(m.entries, k)
		}
	}
}

// RedisStore keeps state as JSON with a TTL refreshed on every save.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

// DialRedis connects and pings.
func DialRedis(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("connect redis %s: %w", addr, err)
	}
	return rdb, nil
}

func (r *RedisStore) Load(ctx context.Context, chatbotID, sessionID string) (State, bool, error) {
	raw, err := r.client.Get(ctx, stateKey(chatbotID, sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return State{}, false, nil
	}
	if err != nil {
		return State{}, false, fmt.Errorf("load conversation: %w: %v", core.ErrStorage, err)
	}

	var st State
	if err := json.Unmarshal(raw, &st); err != nil {
		return State{}, false, fmt.Errorf("decode conversation: %w", err)
	}
	return st, true, nil
}

func (r *RedisStore) Save(ctx context.Context, st State) error {
	if st.SessionID == "" {
		return fmt.Errorf("save state without session: %w", core.ErrValidation)
	}
	raw, err := json.Marshal(st)
	if err != nil {
		return err
	}
	if err := r.client.Set(ctx, stateKey(st.ChatbotID, st.SessionID), raw, r.ttl).Err(); err != nil {
		return fmt.Errorf("save conversation: %w: %v", core.ErrStorage, err)
	}
	return nil
}

func (r *RedisStore) Delete(ctx context.Context, chatbotID, sessionID string) error {
	if err := r.client.Del(ctx, stateKey(chatbotID, sessionID)).Err(); err != nil {
		return fmt.Errorf("delete conversation: %w: %v", core.ErrStorage, err)
	}
	return nil
}

var (
	_ StateStore = (*MemoryStore)(nil)
	_ StateStore = (*RedisStore)(nil)
)
