// SPDX-License-Identifier: AGPL-3.0-only

// Package history persists conversation turns in Redis. Each conversation
// is one list keyed by its conversation id; appends trim the list to the
// retention cap and refresh a TTL so idle conversations expire whole.
package history

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/RakeshReddy1602/m.s.organics-agent/internal/config"
	"github.com/RakeshReddy1602/m.s.organics-agent/internal/logging"
	"github.com/RakeshReddy1602/m.s.organics-agent/internal/model"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "conversation:"

// Store is a Redis-backed conversation log.
type Store struct {
	client   redis.Cmdable
	maxTurns int
	ttl      time.Duration
	logger   *logging.Logger
}

// NewStore connects to Redis using the history configuration. RedisURL
// wins over RedisAddr when both are set.
func NewStore(cfg *config.HistoryConfig, logger *logging.Logger) (*Store, error) {
	var opts *redis.Options
	if cfg.RedisURL != "" {
		parsed, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("invalid Redis URL: %w", err)
		}
		opts = parsed
	} else {
		opts = &redis.Options{Addr: cfg.RedisAddr}
	}
	return &Store{
		client:   redis.NewClient(opts),
		maxTurns: cfg.MaxTurns,
		ttl:      cfg.TTL,
		logger:   logger,
	}, nil
}

// NewStoreWithClient builds a store around an existing client. Tests use
// this with a miniature in-process backend.
func NewStoreWithClient(client redis.Cmdable, cfg *config.HistoryConfig, logger *logging.Logger) *Store {
	return &Store{
		client:   client,
		maxTurns: cfg.MaxTurns,
		ttl:      cfg.TTL,
		logger:   logger,
	}
}

func conversationKey(id string) string {
	return keyPrefix + id
}

// Append adds turns to the end of the conversation log, trims the log to
// the retention cap and refreshes the conversation TTL. All three happen
// in one pipeline round trip.
func (s *Store) Append(ctx context.Context, conversationID string, turns ...model.Turn) error {
	if len(turns) == 0 {
		return nil
	}
	payloads := make([]interface{}, len(turns))
	for i, turn := range turns {
		raw, err := json.Marshal(turn)
		if err != nil {
			return fmt.Errorf("failed to encode turn: %w", err)
		}
		payloads[i] = raw
	}

	key := conversationKey(conversationID)
	pipe := s.client.TxPipeline()
	pipe.RPush(ctx, key, payloads...)
	pipe.LTrim(ctx, key, int64(-s.maxTurns), -1)
	pipe.Expire(ctx, key, s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to append history: %w", err)
	}
	return nil
}

// ReadRecent returns up to limit most recent turns, oldest first. A turn
// that no longer decodes is skipped rather than poisoning the whole
// conversation.
func (s *Store) ReadRecent(ctx context.Context, conversationID string, limit int) ([]model.Turn, error) {
	if limit < 1 {
		limit = s.maxTurns
	}
	raw, err := s.client.LRange(ctx, conversationKey(conversationID), int64(-limit), -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read history: %w", err)
	}
	turns := make([]model.Turn, 0, len(raw))
	for _, entry := range raw {
		var turn model.Turn
		if err := json.Unmarshal([]byte(entry), &turn); err != nil {
			s.logger.Warnf("skipping undecodable history entry for %s: %v", conversationID, err)
			continue
		}
		turns = append(turns, turn)
	}
	return turns, nil
}

// Clear deletes the whole conversation log.
func (s *Store) Clear(ctx context.Context, conversationID string) error {
	if err := s.client.Del(ctx, conversationKey(conversationID)).Err(); err != nil {
		return fmt.Errorf("failed to clear history: %w", err)
	}
	return nil
}

// Ping verifies the Redis connection is alive.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
