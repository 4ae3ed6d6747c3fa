// Package events provides an in-process publish-subscribe bus keyed by event type.
//
// Unlike a package-level registry, every [Bus] is independent, so concurrent login attempts (and tests)
// never observe each other's events.
package events

import (
	"sync"
	"sync/atomic"

	"github.com/charmbracelet/log"
)

// Event is any comparable value; its zero value identifies the event type on the bus.
type Event comparable

// Subscription allows unsubscribing from an event.
type Subscription struct {
	key    any
	once   bool
	active atomic.Bool
}

// Active reports whether the subscription can still receive events.
func (s *Subscription) Active() bool {
	return s != nil && s.active.Load()
}

type subscribers map[*Subscription]func(any)

// Bus manages event subscriptions and emissions.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[any]subscribers
	inflight    sync.WaitGroup
	logger      *log.Logger
}

// NewBus creates an empty [Bus]. A nil logger disables debug output.
func NewBus(logger *log.Logger) *Bus {
	return &Bus{
		subscribers: make(map[any]subscribers),
		logger:      logger,
	}
}

// Subscribe registers callback for every event of type T until unsubscribed.
func Subscribe[T Event](b *Bus, callback func(evt T)) *Subscription {
	return subscribe(b, false, callback)
}

// SubscribeOnce registers callback for the next event of type T only.
//
// The subscription is removed before callback runs; if it is unsubscribed while an event is in flight,
// the callback is never invoked.
func SubscribeOnce[T Event](b *Bus, callback func(evt T)) *Subscription {
	return subscribe(b, true, callback)
}

func subscribe[T Event](b *Bus, once bool, callback func(evt T)) *Subscription {
	var key T
	sub := &Subscription{key: key, once: once}
	sub.active.Store(true)

	deliver := func(data any) {
		if once {
			if !sub.active.CompareAndSwap(true, false) {
				return
			}
			b.remove(sub)
		} else if !sub.active.Load() {
			return
		}
		callback(data.(T))
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.subscribers[key] == nil {
		b.subscribers[key] = make(subscribers)
	}
	b.subscribers[key][sub] = deliver
	return sub
}

// Unsubscribe removes the given subscription. It reports whether the subscription was still active,
// so a second call is a harmless no-op.
func (b *Bus) Unsubscribe(sub *Subscription) bool {
	if sub == nil || !sub.active.CompareAndSwap(true, false) {
		return false
	}
	b.remove(sub)
	return true
}

func (b *Bus) remove(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if subs, ok := b.subscribers[sub.key]; ok {
		delete(subs, sub)
		if len(subs) == 0 {
			delete(b.subscribers, sub.key)
		}
	}
}

// Emit notifies all subscribers of evt. Callbacks are invoked asynchronously in separate goroutines.
func Emit[T Event](b *Bus, evt T) {
	var key T

	b.mu.RLock()
	defer b.mu.RUnlock()

	subs := b.subscribers[key]
	if b.logger != nil {
		b.logger.Debug("emit", "event", typeName(key), "subscribers", len(subs))
	}
	for _, cb := range subs {
		b.inflight.Add(1)
		go func(cb func(any)) {
			defer b.inflight.Done()
			cb(evt)
		}(cb)
	}
}

// Count returns the number of active subscriptions for events of type T.
func Count[T Event](b *Bus) int {
	var key T
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers[key])
}

// Wait blocks until every callback dispatched so far has returned.
func (b *Bus) Wait() {
	b.inflight.Wait()
}
