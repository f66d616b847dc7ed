// internal/cache/redis_test.go
package cache

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/tripeaks/internal/config"
	"github.com/jason-s-yu/tripeaks/internal/game"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRecord(t *testing.T) {
	score := 6
	ev := game.GameEvent{Type: game.EventGameWon, GameID: uuid.New(), Seq: 41, Value: &score}

	rec := NewRecord(ev)
	assert.Equal(t, ev.GameID, rec.GameID)
	assert.Equal(t, 41, rec.Seq)
	assert.Equal(t, "game_won", rec.EventType)
	require.NotNil(t, rec.Value)
	assert.Equal(t, 6, *rec.Value)
	assert.True(t, rec.Terminal())
	assert.NotZero(t, rec.Timestamp)

	var decoded game.GameEvent
	require.NoError(t, json.Unmarshal(rec.Payload, &decoded))
	assert.Equal(t, ev.Type, decoded.Type)
	assert.Equal(t, ev.Seq, decoded.Seq)
}

func TestPublisherLogsFailedPushes(t *testing.T) {
	logger, hook := test.NewNullLogger()
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1, DialTimeout: 100 * time.Millisecond})
	defer rdb.Close()

	p := NewPublisher(rdb, "", logger)
	p.OnEvent(game.GameEvent{Type: game.EventGameStarted, GameID: uuid.New(), Seq: 1})
	p.Close()
	p.Close()

	require.NotEmpty(t, hook.AllEntries())
	assert.Equal(t, logrus.ErrorLevel, hook.LastEntry().Level)
}

// redisOrSkip connects to the default Redis address or skips.
func redisOrSkip(t *testing.T) *redis.Client {
	t.Helper()
	cfg := config.Default().Redis
	rdb, err := ConnectRedis(context.Background(), cfg)
	if err != nil {
		t.Skipf("redis not available: %v", err)
	}
	t.Cleanup(func() { rdb.Close() })
	return rdb
}

func TestPublisherPushesInOrder(t *testing.T) {
	rdb := redisOrSkip(t)
	ctx := context.Background()
	queue := "tripeaks_test_" + uuid.NewString()
	t.Cleanup(func() { rdb.Del(ctx, queue) })

	logger, _ := test.NewNullLogger()
	p := NewPublisher(rdb, queue, logger)
	gameID := uuid.New()
	for seq := 1; seq <= 5; seq++ {
		p.OnEvent(game.GameEvent{Type: game.EventStockCountChanged, GameID: gameID, Seq: seq})
	}
	p.Close()

	items, err := rdb.LRange(ctx, queue, 0, -1).Result()
	require.NoError(t, err)
	require.Len(t, items, 5)
	for i, raw := range items {
		var rec EventRecord
		require.NoError(t, json.Unmarshal([]byte(raw), &rec))
		assert.Equal(t, gameID, rec.GameID)
		assert.Equal(t, i+1, rec.Seq)
	}
}
