package http

import (
	"log/slog"
	"sync"
)

// StreamManager fans execution diffs out to SSE subscribers of a conversation.
// Streams are scoped by tenant, so equal conversation IDs never share events.
type StreamManager struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan<- string]struct{} // tenant/conversation -> set of channels
	logger      *slog.Logger
}

func NewStreamManager(logger *slog.Logger) *StreamManager {
	return &StreamManager{
		subscribers: make(map[string]map[chan<- string]struct{}),
		logger:      logger,
	}
}

func streamKey(tenantID, conversationID string) string {
	return tenantID + "/" + conversationID
}

// Subscribe registers a channel for the conversation. The returned func
// unregisters and closes it.
func (sm *StreamManager) Subscribe(tenantID, conversationID string) (<-chan string, func()) {
	key := streamKey(tenantID, conversationID)

	sm.mu.Lock()
	defer sm.mu.Unlock()

	ch := make(chan string, 10)
	if _, ok := sm.subscribers[key]; !ok {
		sm.subscribers[key] = make(map[chan<- string]struct{})
	}
	sm.subscribers[key][ch] = struct{}{}

	return ch, func() {
		sm.mu.Lock()
		defer sm.mu.Unlock()
		if subs, ok := sm.subscribers[key]; ok {
			if _, ok := subs[ch]; !ok {
				return
			}
			delete(subs, ch)
			close(ch)
			if len(subs) == 0 {
				delete(sm.subscribers, key)
			}
		}
	}
}

// Broadcast never blocks: slow subscribers miss messages.
func (sm *StreamManager) Broadcast(tenantID, conversationID string, msg string) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	for ch := range sm.subscribers[streamKey(tenantID, conversationID)] {
		select {
		case ch <- msg:
		default:
			sm.logger.Warn("SSE: client buffer full, dropping message", "tenant_id", tenantID, "conversation_id", conversationID)
		}
	}
}

// Subscribers returns the number of open streams for the conversation.
func (sm *StreamManager) Subscribers(tenantID, conversationID string) int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return len(sm.subscribers[streamKey(tenantID, conversationID)])
}
