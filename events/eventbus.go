package events

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/mezonai/powledger/logx"
)

const subscriberBufferSize = 50

type SubscriberID string

type subscription struct {
	ch      chan LedgerEvent
	dropped uint64
}

// EventBus fans ledger events out to buffered subscriber channels. Publishing
// never blocks the ledger.
type EventBus struct {
	mu   sync.RWMutex
	subs map[SubscriberID]*subscription
}

func NewEventBus() *EventBus {
	return &EventBus{subs: make(map[SubscriberID]*subscription)}
}

// Subscribe registers a new listener. The returned channel is closed by
// Unsubscribe.
func (eb *EventBus) Subscribe() (SubscriberID, chan LedgerEvent) {
	id := SubscriberID(uuid.Must(uuid.NewV7()).String())
	sub := &subscription{ch: make(chan LedgerEvent, subscriberBufferSize)}

	eb.mu.Lock()
	eb.subs[id] = sub
	n := len(eb.subs)
	eb.mu.Unlock()

	logx.Debug("EVENTBUS", fmt.Sprintf("Listener added | id=%s | listeners=%d", id, n))
	return id, sub.ch
}

func (eb *EventBus) Unsubscribe(id SubscriberID) bool {
	eb.mu.Lock()
	sub, ok := eb.subs[id]
	if ok {
		delete(eb.subs, id)
		close(sub.ch)
	}
	eb.mu.Unlock()

	if !ok {
		return false
	}
	if sub.dropped > 0 {
		logx.Warn("EVENTBUS", fmt.Sprintf("Listener %s removed after missing %d events", id, sub.dropped))
	}
	return true
}

// Publish hands event to every listener with room in its buffer. Listeners
// that fall behind miss the event.
func (eb *EventBus) Publish(event LedgerEvent) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	for id, sub := range eb.subs {
		select {
		case sub.ch <- event:
		default:
			sub.dropped++
			if sub.dropped == 1 {
				logx.Warn("EVENTBUS", fmt.Sprintf("Listener %s is behind, dropping %s", id, event.Type()))
			}
		}
	}
}

func (eb *EventBus) GetTotalSubscriptions() int {
	eb.mu.RLock()
	defer eb.mu.RUnlock()
	return len(eb.subs)
}
