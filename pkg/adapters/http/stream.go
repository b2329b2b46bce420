package http

import (
	"log/slog"
	"sync"
)

// StreamManager fans session updates out to SSE subscribers.
type StreamManager struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan<- string]struct{} // session key -> set of channels
	logger      *slog.Logger
}

// NewStreamManager creates an empty StreamManager.
func NewStreamManager(logger *slog.Logger) *StreamManager {
	return &StreamManager{
		subscribers: make(map[string]map[chan<- string]struct{}),
		logger:      logger,
	}
}

// Subscribe registers a channel for key. The returned func unsubscribes and closes it.
func (sm *StreamManager) Subscribe(key string) (<-chan string, func()) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	ch := make(chan string, 10)
	if _, ok := sm.subscribers[key]; !ok {
		sm.subscribers[key] = make(map[chan<- string]struct{})
	}
	sm.subscribers[key][ch] = struct{}{}

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			sm.mu.Lock()
			defer sm.mu.Unlock()
			if subs, ok := sm.subscribers[key]; ok {
				delete(subs, ch)
				if len(subs) == 0 {
					delete(sm.subscribers, key)
				}
			}
			close(ch)
		})
	}
}

// Subscribers returns the number of subscribers for key.
func (sm *StreamManager) Subscribers(key string) int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return len(sm.subscribers[key])
}

// Broadcast sends msg to every subscriber of key. Slow clients drop messages.
func (sm *StreamManager) Broadcast(key string, msg string) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	for ch := range sm.subscribers[key] {
		select {
		case ch <- msg:
		default:
			sm.logger.Warn("SSE: Client buffer full, dropping message", "session_key", key)
		}
	}
}
