package server

import (
	"sync"

	"github.com/stratego-online/stratego-server-go/internal/game"
)

// FanOut returns a handler that forwards each notification to every handler in order.
func FanOut(handlers ...game.NotificationHandler) game.NotificationHandler {
	return func(n game.GameNotification) {
		for _, h := range handlers {
			if h != nil {
				h(n)
			}
		}
	}
}

// Broadcaster delivers engine notifications to per-game subscribers. A slow
// subscriber misses notifications rather than blocking the others.
type Broadcaster struct {
	mu   sync.Mutex
	subs map[string]map[chan game.GameNotification]struct{}
}

// NewBroadcaster creates an empty broadcaster
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{subs: make(map[string]map[chan game.GameNotification]struct{})}
}

// Subscribe registers interest in one game. The returned cancel func must be called
// once the subscriber is done; it closes the channel.
func (b *Broadcaster) Subscribe(gameID string) (<-chan game.GameNotification, func()) {
	ch := make(chan game.GameNotification, 16)

	b.mu.Lock()
	if b.subs[gameID] == nil {
		b.subs[gameID] = make(map[chan game.GameNotification]struct{})
	}
	b.subs[gameID][ch] = struct{}{}
	b.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			delete(b.subs[gameID], ch)
			if len(b.subs[gameID]) == 0 {
				delete(b.subs, gameID)
			}
			close(ch)
		})
	}
}

// Publish is a game.NotificationHandler.
func (b *Broadcaster) Publish(n game.GameNotification) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subs[n.GameID] {
		select {
		case ch <- n:
		default:
		}
	}
}

// Subscribers returns the number of open subscriptions to a game.
func (b *Broadcaster) Subscribers(gameID string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs[gameID])
}
