package cache

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"

	"github.com/nghiaht/iroha-companion/internal/model/chat"
)

const historyKeyFormat = "chat:history:%d"

// HistoryCache keeps recent session transcripts in redis so the relay can
// rebuild prompt context without a database round trip per turn.
type HistoryCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewHistoryCache wraps a redis client. ttl bounds staleness after writes
// that bypass the cache.
func NewHistoryCache(client *redis.Client, ttl time.Duration) *HistoryCache {
	return &HistoryCache{client: client, ttl: ttl}
}

// GetHistory returns the cached transcript, or nil, nil on a miss.
func (c *HistoryCache) GetHistory(ctx context.Context, sessionID uint) ([]chat.Message, error) {
	key := fmt.Sprintf(historyKeyFormat, sessionID)
	raw, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get history cache %s failed: %w", key, err)
	}

	var messages []chat.Message
	if err := sonic.Unmarshal(raw, &messages); err != nil {
		// A corrupt entry is treated as a miss, not a failure.
		log.Printf("[cache] dropping unreadable entry %s: %v", key, err)
		c.client.Del(ctx, key)
		return nil, nil
	}
	return messages, nil
}

// SetHistory stores a transcript for the configured TTL.
func (c *HistoryCache) SetHistory(ctx context.Context, sessionID uint, messages []chat.Message) error {
	raw, err := sonic.Marshal(messages)
	if err != nil {
		return fmt.Errorf("marshal history for session %d failed: %w", sessionID, err)
	}

	key := fmt.Sprintf(historyKeyFormat, sessionID)
	if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("set history cache %s failed: %w", key, err)
	}
	return nil
}

// DeleteHistory invalidates a session's cached transcript.
func (c *HistoryCache) DeleteHistory(ctx context.Context, sessionID uint) error {
	key := fmt.Sprintf(historyKeyFormat, sessionID)
	if err := c.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("delete history cache %s failed: %w", key, err)
	}
	return nil
}
