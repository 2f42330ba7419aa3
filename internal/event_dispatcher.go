package internal

import (
	"context"
	"fmt"
	"sync"

	"github.com/lychee-technology/tca"
)

type subscription struct {
	id       uint64
	listener tca.EventListener
}

// EventDispatcher delivers events synchronously to the listeners of their
// name. Stoppable events end dispatching once propagation is stopped.
type EventDispatcher struct {
	mu        sync.RWMutex
	nextID    uint64
	listeners map[tca.EventName][]subscription
}

var _ tca.EventDispatcher = (*EventDispatcher)(nil)

func NewEventDispatcher() *EventDispatcher {
	return &EventDispatcher{listeners: make(map[tca.EventName][]subscription)}
}

// Subscribe registers listener for name and returns a function that removes it.
func (d *EventDispatcher) Subscribe(name tca.EventName, listener tca.EventListener) func() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.nextID++
	id := d.nextID
	d.listeners[name] = append(d.listeners[name], subscription{id: id, listener: listener})

	return func() {
		d.mu.Lock()
		defer d.mu.Unlock()

		subs := d.listeners[name]
		for i, sub := range subs {
			if sub.id == id {
				d.listeners[name] = append(subs[:i:i], subs[i+1:]...)
				break
			}
		}
	}
}

// Dispatch runs the listeners in subscription order and returns the event.
func (d *EventDispatcher) Dispatch(ctx context.Context, event tca.Event) (tca.Event, error) {
	d.mu.RLock()
	subs := d.listeners[event.Name()]
	d.mu.RUnlock()

	stoppable, isStoppable := event.(tca.StoppableEvent)
	for _, sub := range subs {
		if isStoppable && stoppable.IsPropagationStopped() {
			break
		}
		if err := sub.listener(ctx, event); err != nil {
			return event, fmt.Errorf("listener for %s failed: %w", event.Name(), err)
		}
	}
	return event, nil
}

// Clear removes all listeners.
func (d *EventDispatcher) Clear() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.listeners = make(map[tca.EventName][]subscription)
}
