// internal/cache/redis.go

// Package cache publishes the engine's action feed to Redis. An out-of-process
// historian drains the list and builds replays; the engine only ever produces.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// DefaultQueueName is the Redis list (queue) name for action records.
var DefaultQueueName = "skirmish_actions"

// ActionRecord holds one accepted mutation plus the snapshot it produced.
type ActionRecord struct {
	RoomID     string          `json:"room_id"`
	ActionType string          `json:"action_type"`
	PlayerID   string          `json:"player_id"`
	Timestamp  int64           `json:"timestamp"`
	Snapshot   json.RawMessage `json:"snapshot,omitempty"`
}

// Feed is a connected action-feed producer.
type Feed struct {
	rdb    *redis.Client
	queue  string
	logger *logrus.Logger
}

// ConnectFeed initializes the feed from environment variables:
//   - REDIS_ADDR (e.g. "localhost:6379")
//   - REDIS_DB (optional, default 0)
//   - HISTORIAN_QUEUE_NAME (optional)
func ConnectFeed(ctx context.Context, logger *logrus.Logger) (*Feed, error) {
	addr := getEnv("REDIS_ADDR", "localhost:6379")
	dbIdx := getEnvInt("REDIS_DB", 0)

	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   dbIdx,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}

	return &Feed{
		rdb:    rdb,
		queue:  getEnv("HISTORIAN_QUEUE_NAME", DefaultQueueName),
		logger: logger,
	}, nil
}

// Publish serializes the record and pushes it onto the queue.
func (f *Feed) Publish(ctx context.Context, record ActionRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal ActionRecord: %w", err)
	}
	if err := f.rdb.RPush(ctx, f.queue, data).Err(); err != nil {
		return fmt.Errorf("failed to RPush to Redis list '%s': %w", f.queue, err)
	}
	return nil
}

// PublishAsync publishes in the background so a slow Redis never stalls a
// room's mutation queue.
func (f *Feed) PublishAsync(record ActionRecord) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := f.Publish(ctx, record); err != nil {
			f.logger.Warnf("action feed publish failed for room %s: %v", record.RoomID, err)
		}
	}()
}

// Close releases the client.
func (f *Feed) Close() error { return f.rdb.Close() }

// getEnv is a helper to read an environment variable or return a default value.
func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

// getEnvInt is a helper to parse an environment variable as integer, else a default value.
func getEnvInt(key string, def int) int {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}
