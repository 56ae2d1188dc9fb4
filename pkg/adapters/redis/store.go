// Package redis stores conversation documents in Redis hashes and provides a
// Redis-backed distributed lock.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aretw0/chatflow/pkg/domain"
	"github.com/aretw0/chatflow/pkg/ports"
	json "github.com/goccy/go-json"
	backend "github.com/redis/go-redis/v9"
)

const defaultPrefix = "chatflow:conversation:"

// Store implements ports.ExecutionStore on a Redis hash per conversation.
// The execution lives in the flow_execution field; other fields of the hash are
// owned by other subsystems and never touched.
type Store struct {
	client *backend.Client
	prefix string
	ttl    time.Duration
}

var (
	_ ports.ExecutionStore = (*Store)(nil)
	_ ports.HandoffMarker  = (*Store)(nil)
)

// Option configures a Store.
type Option func(*Store)

// WithTTL sets the expiration refreshed on every write. Zero disables expiration.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		s.ttl = ttl
	}
}

// WithPrefix sets the key prefix of conversation documents.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// New creates a Store with its own client.
func New(address, password string, db int, opts ...Option) *Store {
	rdb := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewFromClient(rdb, opts...)
}

// NewFromClient creates a Store from an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *Store {
	store := &Store{
		client: client,
		prefix: defaultPrefix,
	}
	for _, opt := range opts {
		opt(store)
	}
	return store
}

// Client exposes the underlying client, e.g. to share it with a Locker.
func (s *Store) Client() *backend.Client {
	return s.client
}

func (s *Store) key(conversationID string) string {
	return s.prefix + conversationID
}

// Read returns the conversation's execution, or nil when there is none.
func (s *Store) Read(ctx context.Context, conversationID string) (*domain.ExecutionState, error) {
	val, err := s.client.HGet(ctx, s.key(conversationID), ports.FieldFlowExecution).Bytes()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read execution from redis: %w", err)
	}

	var state domain.ExecutionState
	if err := json.Unmarshal(val, &state); err != nil {
		return nil, fmt.Errorf("failed to unmarshal execution: %w", err)
	}
	return &state, nil
}

// Write sets the execution field, or deletes it when state is nil.
func (s *Store) Write(ctx context.Context, conversationID string, state *domain.ExecutionState) error {
	key := s.key(conversationID)
	if state == nil {
		if err := s.client.HDel(ctx, key, ports.FieldFlowExecution).Err(); err != nil {
			return fmt.Errorf("failed to clear execution: %w", err)
		}
		return nil
	}

	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal execution: %w", err)
	}
	return s.setField(ctx, key, ports.FieldFlowExecution, data)
}

// MarkHandoff sets the human_takeover field of the conversation.
func (s *Store) MarkHandoff(ctx context.Context, conversationID string) error {
	return s.setField(ctx, s.key(conversationID), ports.FieldHumanTakeover, "true")
}

func (s *Store) setField(ctx context.Context, key, field string, value any) error {
	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, key, field, value)
	if s.ttl > 0 {
		pipe.Expire(ctx, key, s.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to write to redis: %w", err)
	}
	return nil
}

// Close closes the redis client.
func (s *Store) Close() error {
	return s.client.Close()
}
