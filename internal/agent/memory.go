package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/hasebahmdai-arch/lead-nurturing-agent/internal/core/errx"
	"github.com/hasebahmdai-arch/lead-nurturing-agent/internal/domain"
)

const (
	defaultMaxTurns  = 50
	defaultThreadTTL = 72 * time.Hour
	threadKeyPrefix  = "leadnurture:thread:"
)

// Turn is one question and the agent's answer in a thread.
type Turn struct {
	Query string       `json:"query"`
	Route domain.Route `json:"route"`
	Reply string       `json:"reply"`
	At    time.Time    `json:"at"`
}

// Memory keeps the recent turns of agent threads.
type Memory interface {
	Append(ctx context.Context, threadID string, turn Turn) error
	Recent(ctx context.Context, threadID string, limit int) ([]Turn, error)
}

// ThreadID names the thread of a campaign lead.
func ThreadID(campaignLeadID int64) string {
	return fmt.Sprintf("campaign-lead-%d", campaignLeadID)
}

// InMemoryMemory keeps threads in process. Threads are capped at maxTurns.
type InMemoryMemory struct {
	mu       sync.RWMutex
	threads  map[string][]Turn
	maxTurns int
}

func NewInMemoryMemory(maxTurns int) *InMemoryMemory {
	if maxTurns <= 0 {
		maxTurns = defaultMaxTurns
	}
	return &InMemoryMemory{threads: make(map[string][]Turn), maxTurns: maxTurns}
}

func (m *InMemoryMemory) Append(_ context.Context, threadID string, turn Turn) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	turns := append(m.threads[threadID], turn)
	if len(turns) > m.maxTurns {
		turns = turns[len(turns)-m.maxTurns:]
	}
	m.threads[threadID] = turns
	return nil
}

func (m *InMemoryMemory) Recent(_ context.Context, threadID string, limit int) ([]Turn, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	turns := m.threads[threadID]
	if limit > 0 && len(turns) > limit {
		turns = turns[len(turns)-limit:]
	}
	out := make([]Turn, len(turns))
	copy(out, turns)
	return out, nil
}

// RedisMemory keeps threads in redis lists that expire after ttl of inactivity.
type RedisMemory struct {
	client   *redis.Client
	maxTurns int
	ttl      time.Duration
}

func NewRedisMemory(client *redis.Client, maxTurns int, ttl time.Duration) *RedisMemory {
	if maxTurns <= 0 {
		maxTurns = defaultMaxTurns
	}
	if ttl <= 0 {
		ttl = defaultThreadTTL
	}
	return &RedisMemory{client: client, maxTurns: maxTurns, ttl: ttl}
}

func (m *RedisMemory) Append(ctx context.Context, threadID string, turn Turn) error {
	payload, err := json.Marshal(turn)
	if err != nil {
		return fmt.Errorf("failed to encode turn: %w", err)
	}
	key := threadKeyPrefix + threadID
	pipe := m.client.TxPipeline()
	pipe.RPush(ctx, key, payload)
	pipe.LTrim(ctx, key, int64(-m.maxTurns), -1)
	pipe.Expire(ctx, key, m.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return errx.WrapRedis(err)
	}
	return nil
}

func (m *RedisMemory) Recent(ctx context.Context, threadID string, limit int) ([]Turn, error) {
	start := int64(0)
	if limit > 0 {
		start = int64(-limit)
	}
	items, err := m.client.LRange(ctx, threadKeyPrefix+threadID, start, -1).Result()
	if err != nil {
		return nil, errx.WrapRedis(err)
	}
	turns := make([]Turn, 0, len(items))
	for _, item := range items {
		var t Turn
		if err := json.Unmarshal([]byte(item), &t); err != nil {
			return nil, fmt.Errorf("failed to decode turn: %w", err)
		}
		turns = append(turns, t)
	}
	return turns, nil
}
