package agent

import (
	"sync"
	"time"

	"github.com/rxtech-lab/argo-sizing/internal/strategy"
	"github.com/rxtech-lab/argo-sizing/internal/types"
)

// EventType identifies a strategy transition.
type EventType string

const (
	EventRestore EventType = "restore"
	EventInit    EventType = "init"
	EventTrade   EventType = "trade"
	EventReset   EventType = "reset"
)

// subscriberBuffer is the channel capacity of each subscription.
// Events are dropped for subscribers that fall this far behind.
const subscriberBuffer = 64

// Event is published after every transition of the current strategy.
type Event struct {
	Type       EventType   `json:"type"`
	BotID      string      `json:"bot_id"`
	StrategyID strategy.ID `json:"strategy_id"`
	Time       time.Time   `json:"time"`
	Valid      bool        `json:"valid"`
	// Fill and Result are set for trade events.
	Fill   *types.Fill        `json:"fill,omitempty"`
	Result *types.TradeResult `json:"result,omitempty"`
	// State is the exported state with non-finite numbers spelled out.
	State map[string]any `json:"state"`
}

// Subscription receives agent events until it is unsubscribed.
type Subscription struct {
	id uint64
	ch chan Event
}

// Events returns the event channel. It is closed on Unsubscribe.
func (s *Subscription) Events() <-chan Event {
	return s.ch
}

type broadcaster struct {
	mu     sync.Mutex
	nextID uint64
	subs   map[uint64]chan Event
}

func newBroadcaster() *broadcaster {
	return &broadcaster{
		subs: make(map[uint64]chan Event),
	}
}

func (b *broadcaster) subscribe() *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	sub := &Subscription{id: b.nextID, ch: make(chan Event, subscriberBuffer)}
	b.subs[sub.id] = sub.ch

	return sub
}

func (b *broadcaster) unsubscribe(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if ch, ok := b.subs[sub.id]; ok {
		delete(b.subs, sub.id)
		close(ch)
	}
}

// publish delivers ev without blocking and returns the number of subscribers that missed it.
func (b *broadcaster) publish(ev Event) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	dropped := 0

	for _, ch := range b.subs {
		select {
		case ch <- ev:
		default:
			dropped++
		}
	}

	return dropped
}

func (b *broadcaster) close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
}
