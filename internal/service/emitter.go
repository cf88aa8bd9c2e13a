package service

import (
	"context"
	"sync"
)

// Event names published by the services.
const (
	EventBlockCreated       = "block:created"
	EventBlockUpdated       = "block:updated"
	EventBlockDeleted       = "block:deleted"
	EventBlockWriteRejected = "block:write-rejected"
	EventImageUpdated       = "image:updated"
	EventImageDeleted       = "image:deleted"
	EventAttachmentCreated  = "attachment:created"
	EventAttachmentDeleted  = "attachment:deleted"
	EventBlocksChanged      = "blocks:changed"
)

// ─────────────────────────────────────────────────────────────
// EventEmitter decouples services from the transport
// ─────────────────────────────────────────────────────────────

// EventEmitter publishes change notifications. Services receive this
// interface instead of a concrete transport, which makes them testable
// with a mock emitter.
type EventEmitter interface {
	Emit(ctx context.Context, event string, data any)
}

// NopEmitter drops every event.
type NopEmitter struct{}

func (NopEmitter) Emit(context.Context, string, any) {}

// MultiEmitter fans an event out to several emitters in order.
type MultiEmitter []EventEmitter

func (m MultiEmitter) Emit(ctx context.Context, event string, data any) {
	for _, e := range m {
		e.Emit(ctx, event, data)
	}
}

// MockEmitter is a test-friendly EventEmitter that records all calls.
type MockEmitter struct {
	mu     sync.Mutex
	Events []EmittedEvent
}

// EmittedEvent holds a single recorded emission for test assertions.
type EmittedEvent struct {
	Event string
	Data  any
}

func (m *MockEmitter) Emit(_ context.Context, event string, data any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Events = append(m.Events, EmittedEvent{Event: event, Data: data})
}

// Names returns the recorded event names in order.
func (m *MockEmitter) Names() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	names := make([]string, len(m.Events))
	for i, e := range m.Events {
		names[i] = e.Event
	}
	return names
}

// Count returns how many times event was emitted.
func (m *MockEmitter) Count(event string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, e := range m.Events {
		if e.Event == event {
			n++
		}
	}
	return n
}
