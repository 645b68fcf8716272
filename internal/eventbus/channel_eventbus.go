// Package eventbus provides event bus implementations
package eventbus

import (
	"context"
	"fmt"
	"log"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// ChannelEventBus is an implementation of EventBus using Go channels.
//
// Publishing is best-effort: when the buffer is full the event is dropped and
// counted instead of blocking the request path. Diagnostics must never slow a
// query down.
type ChannelEventBus struct {
	// subscribers maps event types to a map of subscription IDs to event handlers
	subscribers map[EventType]map[string]EventHandler

	// allSubscribers contains handlers that receive all events regardless of type
	allSubscribers map[string]EventHandler

	// eventChan is the channel where events are published
	eventChan chan eventWithContext

	// done is used to signal graceful shutdown
	done chan struct{}

	// closed indicates if the event bus has been shut down
	closed bool

	// dropped counts events discarded because the buffer was full
	dropped atomic.Int64

	// wg keeps track of active goroutines
	wg sync.WaitGroup

	// mutex protects the subscribers and allSubscribers maps
	mutex sync.RWMutex

	bufferSize  int
	workerCount int
}

// eventWithContext bundles an event with its context for processing
type eventWithContext struct {
	ctx   context.Context
	event Event
}

// ChannelEventBusOption configures the channel-based event bus
type ChannelEventBusOption func(*ChannelEventBus)

// WithBufferSize sets the event channel buffer size
func WithBufferSize(size int) ChannelEventBusOption {
	return func(eb *ChannelEventBus) {
		eb.bufferSize = size
	}
}

// WithWorkerCount sets the number of event processing workers
func WithWorkerCount(count int) ChannelEventBusOption {
	return func(eb *ChannelEventBus) {
		eb.workerCount = count
	}
}

// NewChannelEventBus creates a new channel-based event bus
func NewChannelEventBus(options ...ChannelEventBusOption) *ChannelEventBus {
	eb := &ChannelEventBus{
		subscribers:    make(map[EventType]map[string]EventHandler),
		allSubscribers: make(map[string]EventHandler),
		done:           make(chan struct{}),

		// Default configuration
		bufferSize:  100,
		workerCount: 4,
	}

	for _, option := range options {
		option(eb)
	}

	eb.eventChan = make(chan eventWithContext, eb.bufferSize)

	eb.startWorkers()

	return eb
}

// startWorkers initializes the goroutines that process events
func (eb *ChannelEventBus) startWorkers() {
	for i := 0; i < eb.workerCount; i++ {
		eb.wg.Add(1)
		go eb.worker()
	}
}

// worker processes events from the event channel
func (eb *ChannelEventBus) worker() {
	defer eb.wg.Done()

	for {
		select {
		case <-eb.done:
			return
		case evt := <-eb.eventChan:
			eb.processEvent(evt)
		}
	}
}

// processEvent handles the event dispatch to all relevant subscribers
func (eb *ChannelEventBus) processEvent(evt eventWithContext) {
	if evt.ctx.Err() != nil {
		return
	}

	eb.mutex.RLock()

	// Copy the handler maps so handlers can subscribe or unsubscribe without
	// deadlocking against dispatch.
	typeHandlers := make(map[string]EventHandler)
	if handlers, exists := eb.subscribers[evt.event.Type()]; exists {
		for id, handler := range handlers {
			typeHandlers[id] = handler
		}
	}

	allHandlers := make(map[string]EventHandler)
	for id, handler := range eb.allSubscribers {
		allHandlers[id] = handler
	}

	eb.mutex.RUnlock()

	for _, handler := range typeHandlers {
		eb.executeHandler(evt.ctx, evt.event, handler)
	}

	for _, handler := range allHandlers {
		eb.executeHandler(evt.ctx, evt.event, handler)
	}
}

// executeHandler runs a single handler. A failing handler is logged and
// skipped; it never blocks other handlers and is not retried.
func (eb *ChannelEventBus) executeHandler(ctx context.Context, event Event, handler EventHandler) {
	if ctx.Err() != nil {
		return
	}

	if err := handler(ctx, event); err != nil {
		log.Printf("Event handler error (event_type: %s): %v", event.Type(), err)
	}
}

// Publish queues an event for dispatch. It never blocks: if the buffer is
// full the event is dropped and counted.
func (eb *ChannelEventBus) Publish(ctx context.Context, event Event) error {
	eb.mutex.RLock()
	closed := eb.closed
	eb.mutex.RUnlock()
	if closed {
		return fmt.Errorf("event bus is closed")
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case eb.eventChan <- eventWithContext{ctx: ctx, event: event}:
		return nil
	default:
		eb.dropped.Add(1)
		return nil
	}
}

// Dropped returns the number of events discarded due to a full buffer.
func (eb *ChannelEventBus) Dropped() int64 {
	return eb.dropped.Load()
}

// Subscribe registers a handler for specific event types
func (eb *ChannelEventBus) Subscribe(eventTypes []EventType, handler EventHandler) (string, error) {
	if handler == nil {
		return "", fmt.Errorf("handler cannot be nil")
	}

	if len(eventTypes) == 0 {
		return "", fmt.Errorf("at least one event type is required")
	}

	subscriptionID := uuid.New().String()

	eb.mutex.Lock()
	defer eb.mutex.Unlock()

	if eb.closed {
		return "", fmt.Errorf("event bus is closed")
	}

	for _, eventType := range eventTypes {
		if _, exists := eb.subscribers[eventType]; !exists {
			eb.subscribers[eventType] = make(map[string]EventHandler)
		}
		eb.subscribers[eventType][subscriptionID] = handler
	}

	return subscriptionID, nil
}

// SubscribeAll registers a handler for all event types
func (eb *ChannelEventBus) SubscribeAll(handler EventHandler) (string, error) {
	if handler == nil {
		return "", fmt.Errorf("handler cannot be nil")
	}

	subscriptionID := uuid.New().String()

	eb.mutex.Lock()
	defer eb.mutex.Unlock()

	if eb.closed {
		return "", fmt.Errorf("event bus is closed")
	}

	eb.allSubscribers[subscriptionID] = handler

	return subscriptionID, nil
}

// Unsubscribe removes a subscription by ID
func (eb *ChannelEventBus) Unsubscribe(subscriptionID string) error {
	eb.mutex.Lock()
	defer eb.mutex.Unlock()

	delete(eb.allSubscribers, subscriptionID)

	for eventType, subscribers := range eb.subscribers {
		if _, exists := subscribers[subscriptionID]; exists {
			delete(eb.subscribers[eventType], subscriptionID)
		}
	}

	return nil
}

// Close shuts down the event bus, cleaning up resources
func (eb *ChannelEventBus) Close() error {
	eb.mutex.Lock()
	if eb.closed {
		eb.mutex.Unlock()
		return nil
	}

	eb.closed = true
	eb.mutex.Unlock()

	close(eb.done)
	eb.wg.Wait()

	return nil
}
