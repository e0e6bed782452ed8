// Package notify fans session changes out to every open tab of a client.
package notify

import (
	"sync"

	"login-portal/internal/domain/auth"
)

// Hub delivers the latest session of a client to its subscribers. A slow
// subscriber only ever sees the most recent value; older undelivered values
// are dropped.
type Hub struct {
	mu   sync.Mutex
	subs map[string]map[*subscription]struct{}
}

type subscription struct {
	ch chan auth.Session
}

func NewHub() *Hub {
	return &Hub{subs: make(map[string]map[*subscription]struct{})}
}

// Subscribe registers interest in clientID. The returned func unsubscribes
// and closes the channel; it is safe to call more than once.
func (h *Hub) Subscribe(clientID string) (<-chan auth.Session, func()) {
	sub := &subscription{ch: make(chan auth.Session, 1)}

	h.mu.Lock()
	set, ok := h.subs[clientID]
	if !ok {
		set = make(map[*subscription]struct{})
		h.subs[clientID] = set
	}
	set[sub] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return sub.ch, func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			delete(set, sub)
			if len(set) == 0 {
				delete(h.subs, clientID)
			}
			close(sub.ch)
		})
	}
}

func (h *Hub) Publish(clientID string, s auth.Session) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for sub := range h.subs[clientID] {
		select {
		case sub.ch <- s:
		default:
			// Replace the pending value with the newer one.
			select {
			case <-sub.ch:
			default:
			}
			sub.ch <- s
		}
	}
}

// Subscribers returns how many subscriptions clientID currently has.
func (h *Hub) Subscribers(clientID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[clientID])
}
