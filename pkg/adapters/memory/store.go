package memory

import (
	"context"
	"sync"

	"github.com/aretw0/chatflow/pkg/domain"
	"github.com/aretw0/chatflow/pkg/ports"
	json "github.com/goccy/go-json"
)

// document is a conversation document: field name to encoded value.
type document map[string]json.RawMessage

// Store implements ports.ExecutionStore in memory.
// The execution is kept as one field of a per-conversation document, encoded the
// same way the networked stores encode it. Safe for concurrent use.
type Store struct {
	docs map[string]document
	mu   sync.RWMutex
}

var (
	_ ports.ExecutionStore = (*Store)(nil)
	_ ports.HandoffMarker  = (*Store)(nil)
)

// NewStore creates a new in-memory store.
func NewStore() *Store {
	return &Store{
		docs: make(map[string]document),
	}
}

// Read returns the conversation's execution, or nil when there is none.
func (s *Store) Read(ctx context.Context, conversationID string) (*domain.ExecutionState, error) {
	s.mu.RLock()
	raw, ok := s.docs[conversationID][ports.FieldFlowExecution]
	s.mu.RUnlock()
	if !ok {
		return nil, nil
	}

	var state domain.ExecutionState
	if err := json.Unmarshal(raw, &state); err != nil {
		return nil, err
	}
	return &state, nil
}

// Write replaces the execution field; a nil state removes it. Other fields are kept.
func (s *Store) Write(ctx context.Context, conversationID string, state *domain.ExecutionState) error {
	if state == nil {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.docs[conversationID], ports.FieldFlowExecution)
		return nil
	}

	raw, err := json.Marshal(state)
	if err != nil {
		return err
	}
	return s.SetField(ctx, conversationID, ports.FieldFlowExecution, json.RawMessage(raw))
}

// MarkHandoff sets the human takeover flag of the conversation.
func (s *Store) MarkHandoff(ctx context.Context, conversationID string) error {
	return s.SetField(ctx, conversationID, ports.FieldHumanTakeover, true)
}

// HumanTakeover reports whether the conversation was handed to a human.
func (s *Store) HumanTakeover(conversationID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var v bool
	_ = json.Unmarshal(s.docs[conversationID][ports.FieldHumanTakeover], &v)
	return v
}

// SetField writes an arbitrary field of the conversation document, standing in
// for the other subsystems that share it.
func (s *Store) SetField(ctx context.Context, conversationID, field string, value any) error {
	raw, ok := value.(json.RawMessage)
	if !ok {
		var err error
		if raw, err = json.Marshal(value); err != nil {
			return err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	doc, exists := s.docs[conversationID]
	if !exists {
		doc = make(document)
		s.docs[conversationID] = doc
	}
	doc[field] = raw
	return nil
}

// Field returns the raw value of a document field.
func (s *Store) Field(conversationID, field string) (json.RawMessage, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	raw, ok := s.docs[conversationID][field]
	return raw, ok
}
