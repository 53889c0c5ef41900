package agent

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hasebahmdai-arch/lead-nurturing-agent/internal/domain"
	pkgredis "github.com/hasebahmdai-arch/lead-nurturing-agent/pkg/redis"
)

func TestThreadID(t *testing.T) {
	assert.Equal(t, "campaign-lead-42", ThreadID(42))
}

func TestInMemoryMemoryCapsTurns(t *testing.T) {
	ctx := context.Background()
	m := NewInMemoryMemory(3)
	for i := 0; i < 5; i++ {
		require.NoError(t, m.Append(ctx, "t", Turn{Query: fmt.Sprint(i), Route: domain.RouteRAG}))
	}

	turns, err := m.Recent(ctx, "t", 0)
	require.NoError(t, err)
	require.Len(t, turns, 3)
	assert.Equal(t, "2", turns[0].Query)

	turns, err = m.Recent(ctx, "t", 1)
	require.NoError(t, err)
	require.Len(t, turns, 1)
	assert.Equal(t, "4", turns[0].Query)

	empty, err := m.Recent(ctx, "other", 5)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestRedisMemory(t *testing.T) {
	url := os.Getenv("REDIS_URL")
	if url == "" {
		t.Skip("REDIS_URL not set")
	}
	cfg := pkgredis.Config{URL: url, ReadTimeout: 3, WriteTimeout: 3, DialTimeout: 5}
	client, err := cfg.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	ctx := context.Background()
	thread := fmt.Sprintf("test-%d", time.Now().UnixNano())
	t.Cleanup(func() { client.Del(ctx, threadKeyPrefix+thread) })

	m := NewRedisMemory(client, 2, time.Minute)
	for _, q := range []string{"a", "b", "c"} {
		require.NoError(t, m.Append(ctx, thread, Turn{Query: q, Route: domain.RouteT2SQL}))
	}
	turns, err := m.Recent(ctx, thread, 0)
	require.NoError(t, err)
	require.Len(t, turns, 2)
	assert.Equal(t, "b", turns[0].Query)
	assert.Equal(t, "c", turns[1].Query)
}
