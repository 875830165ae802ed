// Package events is the in-process event bus for command, stream and
// service lifecycle notifications. The execution engine and the service
// initializer publish; the CLI's run command subscribes to service
// readiness.
package events

import (
	"sync"
	"time"
)

// BusEvent is anything publishable on the bus.
type BusEvent interface {
	EventType() string
}

// Callback receives published events. Callbacks run on the publisher's
// worker goroutine and must not block.
type Callback func(BusEvent)

// EventBus fans events out to subscribers by type.
type EventBus struct {
	mu     sync.RWMutex
	nextID int
	byType map[string]map[int]Callback
	all    map[int]Callback
}

// NewEventBus creates a bus. Subscriptions are unbuffered callbacks;
// buffering lives in the Emitter.
func NewEventBus() *EventBus {
	return &EventBus{
		byType: make(map[string]map[int]Callback),
		all:    make(map[int]Callback),
	}
}

// Subscribe registers a callback for one event type and returns an
// unsubscribe func.
func (b *EventBus) Subscribe(eventType string, cb Callback) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.nextID
	b.nextID++
	if b.byType[eventType] == nil {
		b.byType[eventType] = make(map[int]Callback)
	}
	b.byType[eventType][id] = cb
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.byType[eventType], id)
	}
}

// SubscribeAll registers a callback for every event.
func (b *EventBus) SubscribeAll(cb Callback) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.nextID
	b.nextID++
	b.all[id] = cb
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.all, id)
	}
}

// Publish delivers an event synchronously to matching subscribers.
func (b *EventBus) Publish(ev BusEvent) {
	if ev == nil {
		return
	}
	b.mu.RLock()
	var cbs []Callback
	for _, cb := range b.byType[ev.EventType()] {
		cbs = append(cbs, cb)
	}
	for _, cb := range b.all {
		cbs = append(cbs, cb)
	}
	b.mu.RUnlock()

	for _, cb := range cbs {
		cb(ev)
	}
}

// CommandStarted is published when a command has been delivered to a pane.
type CommandStarted struct {
	CmdID   string
	PaneID  string
	Command string
	At      time.Time
}

func (CommandStarted) EventType() string { return "command_started" }

// CommandCompleted is published when a command reaches a terminal status.
type CommandCompleted struct {
	CmdID   string
	PaneID  string
	Status  string
	Elapsed time.Duration
	At      time.Time
}

func (CommandCompleted) EventType() string { return "command_completed" }

// StreamRestarted is published when stream health recovery kicked in.
type StreamRestarted struct {
	PaneID string
	At     time.Time
}

func (StreamRestarted) EventType() string { return "stream_restarted" }

// ServiceReady is published by the initializer when a service has
// started: after its ready pattern matched, or right after its command
// was sent when it has no ready pattern.
type ServiceReady struct {
	Group   string
	Service string
	PaneID  string
	At      time.Time
}

func (ServiceReady) EventType() string { return "service_ready" }
