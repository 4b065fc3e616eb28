// Package bus is the cross-component notification collaborator: a
// plain observer list. Components publish domain events ("billing
// changed elsewhere, reload"); subscribers react. Delivery is
// synchronous and in-process; subscribers that need async work hand
// off to their own queue.
package bus

import "sync"

// Event types published by the services.
const (
	EventLevelUp        = "level_up"
	EventPointsAwarded  = "points_awarded"
	EventStreakBonus    = "streak_bonus"
	EventQuestComplete  = "quest_complete"
	EventWalletChanged  = "wallet_changed"
	EventBillingUpdated = "billing_updated"
)

// Event carries an account-scoped fact.
type Event struct {
	Type      string
	AccountID string
	Data      map[string]string
}

type Handler func(Event)

type Bus struct {
	mu       sync.RWMutex
	handlers []Handler
}

func New() *Bus {
	return &Bus{}
}

// Subscribe registers a handler for every published event.
// There is no unsubscribe; subscribers live as long as the process.
func (b *Bus) Subscribe(h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = append(b.handlers, h)
}

// Publish delivers the event to all handlers in subscription order.
func (b *Bus) Publish(e Event) {
	b.mu.RLock()
	handlers := make([]Handler, len(b.handlers))
	copy(handlers, b.handlers)
	b.mu.RUnlock()

	for _, h := range handlers {
		h(e)
	}
}
