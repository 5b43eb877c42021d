// Package convstore persists conversation history outside the process.
package convstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/0xcro3dile/docqa-go/internal/domain/entities"
)

const (
	defaultPrefix = "docqa:conv:"
	defaultTTL    = 24 * time.Hour
)

// RedisOptions configures RedisStore.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	Prefix   string        // key prefix, default "docqa:conv:"
	TTL      time.Duration // sliding expiry per session, default 24h
	MaxTurns int           // LTRIM bound, 0 keeps everything
}

// RedisStore implements ports.ConversationStore on Redis lists.
// Data model: key prefix+sessionID => list of JSON turns, oldest first.
type RedisStore struct {
	client   redis.UniversalClient
	prefix   string
	ttl      time.Duration
	maxTurns int
}

type storedTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// NewRedisStore connects and pings the server.
func NewRedisStore(ctx context.Context, opts RedisOptions) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connecting to redis at %s: %w", opts.Addr, err)
	}
	return NewRedisStoreWithClient(client, opts), nil
}

// NewRedisStoreWithClient wraps an existing client. Connection fields of opts are ignored.
func NewRedisStoreWithClient(client redis.UniversalClient, opts RedisOptions) *RedisStore {
	if opts.Prefix == "" {
		opts.Prefix = defaultPrefix
	}
	if opts.TTL <= 0 {
		opts.TTL = defaultTTL
	}
	return &RedisStore{
		client:   client,
		prefix:   opts.Prefix,
		ttl:      opts.TTL,
		maxTurns: opts.MaxTurns,
	}
}

func (s *RedisStore) key(sessionID string) string {
	return s.prefix + sessionID
}

// History returns the session's turns, oldest first.
func (s *RedisStore) History(ctx context.Context, sessionID string) ([]entities.ConversationTurn, error) {
	raw, err := s.client.LRange(ctx, s.key(sessionID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("reading history: %w", err)
	}

	turns := make([]entities.ConversationTurn, 0, len(raw))
	for _, item := range raw {
		var st storedTurn
		if err := json.Unmarshal([]byte(item), &st); err != nil {
			return nil, fmt.Errorf("decoding turn: %w", err)
		}
		turns = append(turns, entities.ConversationTurn{
			Role:    entities.ParseRole(st.Role),
			Content: st.Content,
		})
	}
	return turns, nil
}

// Append pushes turns in one MULTI/EXEC so concurrent rounds never interleave.
func (s *RedisStore) Append(ctx context.Context, sessionID string, turns ...entities.ConversationTurn) error {
	if len(turns) == 0 {
		return nil
	}

	values := make([]interface{}, 0, len(turns))
	for _, t := range turns {
		b, err := json.Marshal(storedTurn{Role: t.Role.String(), Content: t.Content})
		if err != nil {
			return fmt.Errorf("encoding turn: %w", err)
		}
		values = append(values, string(b))
	}

	key := s.key(sessionID)
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, key, values...)
		if s.maxTurns > 0 {
			pipe.LTrim(ctx, key, int64(-s.maxTurns), -1)
		}
		pipe.Expire(ctx, key, s.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("appending history: %w", err)
	}
	return nil
}

// Clear deletes the session's history.
func (s *RedisStore) Clear(ctx context.Context, sessionID string) error {
	if err := s.client.Del(ctx, s.key(sessionID)).Err(); err != nil {
		return fmt.Errorf("clearing history: %w", err)
	}
	return nil
}

// Close releases the connection pool.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
