// Package badger stores conversation documents in an embedded Badger database.
package badger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aretw0/chatflow/pkg/domain"
	"github.com/aretw0/chatflow/pkg/ports"
	backend "github.com/dgraph-io/badger/v3"
	json "github.com/goccy/go-json"
)

// Store implements ports.ExecutionStore with one Badger key per conversation.
// The value is the JSON conversation document; writes are read-modify-write
// transactions touching a single field.
type Store struct {
	db     *backend.DB
	prefix string
	ttl    time.Duration
}

var (
	_ ports.ExecutionStore = (*Store)(nil)
	_ ports.HandoffMarker  = (*Store)(nil)
)

// Option configures a Store.
type Option func(*Store)

// WithTTL expires conversation documents ttl after their last write.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		s.ttl = ttl
	}
}

// WithPrefix sets the key prefix.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// Open opens (or creates) a database at dir. An empty dir opens an in-memory database.
func Open(dir string, opts ...Option) (*Store, error) {
	bopts := backend.DefaultOptions(dir).WithLogger(nil)
	if dir == "" {
		bopts = bopts.WithInMemory(true)
	}
	db, err := backend.Open(bopts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger: %w", err)
	}
	return NewFromDB(db, opts...), nil
}

// NewFromDB wraps an already opened database.
func NewFromDB(db *backend.DB, opts ...Option) *Store {
	s := &Store{db: db, prefix: "conversation:"}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) key(conversationID string) []byte {
	return []byte(s.prefix + conversationID)
}

// Read returns the conversation's execution, or nil when there is none.
func (s *Store) Read(ctx context.Context, conversationID string) (*domain.ExecutionState, error) {
	var state *domain.ExecutionState
	err := s.db.View(func(txn *backend.Txn) error {
		doc, err := s.load(txn, conversationID)
		if err != nil {
			return err
		}
		raw, ok := doc[ports.FieldFlowExecution]
		if !ok {
			return nil
		}
		state = &domain.ExecutionState{}
		return json.Unmarshal(raw, state)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read execution: %w", err)
	}
	return state, nil
}

// Write sets the execution field, or removes it when state is nil.
func (s *Store) Write(ctx context.Context, conversationID string, state *domain.ExecutionState) error {
	if state == nil {
		return s.update(conversationID, func(doc map[string]json.RawMessage) {
			delete(doc, ports.FieldFlowExecution)
		})
	}
	raw, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal execution: %w", err)
	}
	return s.update(conversationID, func(doc map[string]json.RawMessage) {
		doc[ports.FieldFlowExecution] = raw
	})
}

// MarkHandoff sets the human_takeover field.
func (s *Store) MarkHandoff(ctx context.Context, conversationID string) error {
	return s.update(conversationID, func(doc map[string]json.RawMessage) {
		doc[ports.FieldHumanTakeover] = json.RawMessage("true")
	})
}

// Document returns the raw conversation document.
func (s *Store) Document(conversationID string) (map[string]json.RawMessage, error) {
	var doc map[string]json.RawMessage
	err := s.db.View(func(txn *backend.Txn) error {
		var err error
		doc, err = s.load(txn, conversationID)
		return err
	})
	return doc, err
}

func (s *Store) update(conversationID string, mutate func(map[string]json.RawMessage)) error {
	err := s.db.Update(func(txn *backend.Txn) error {
		doc, err := s.load(txn, conversationID)
		if err != nil {
			return err
		}
		mutate(doc)
		data, err := json.Marshal(doc)
		if err != nil {
			return err
		}
		entry := backend.NewEntry(s.key(conversationID), data)
		if s.ttl > 0 {
			entry = entry.WithTTL(s.ttl)
		}
		return txn.SetEntry(entry)
	})
	if err != nil {
		return fmt.Errorf("failed to write conversation document: %w", err)
	}
	return nil
}

func (s *Store) load(txn *backend.Txn, conversationID string) (map[string]json.RawMessage, error) {
	doc := make(map[string]json.RawMessage)
	item, err := txn.Get(s.key(conversationID))
	if errors.Is(err, backend.ErrKeyNotFound) {
		return doc, nil
	}
	if err != nil {
		return nil, err
	}
	err = item.Value(func(val []byte) error {
		return json.Unmarshal(val, &doc)
	})
	return doc, err
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
