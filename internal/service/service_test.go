package service_test

import (
	"context"
	"testing"

	"blockcanvas/internal/service"
)

// ─────────────────────────────────────────────────────────────
// Emitter tests
// ─────────────────────────────────────────────────────────────

func TestMockEmitter_RecordsEvents(t *testing.T) {
	m := &service.MockEmitter{}
	ctx := context.Background()

	m.Emit(ctx, "test:event", map[string]string{"foo": "bar"})
	m.Emit(ctx, "test:event2", nil)

	if len(m.Events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(m.Events))
	}
	if m.Events[0].Event != "test:event" {
		t.Errorf("expected 'test:event', got %q", m.Events[0].Event)
	}
	if m.Count("test:event2") != 1 {
		t.Errorf("expected one test:event2, got %d", m.Count("test:event2"))
	}
}

func TestMultiEmitter_FansOut(t *testing.T) {
	a, b := &service.MockEmitter{}, &service.MockEmitter{}
	service.MultiEmitter{a, service.NopEmitter{}, b}.Emit(context.Background(), "x", 1)

	if len(a.Events) != 1 || len(b.Events) != 1 {
		t.Fatalf("expected both emitters to record, got %d and %d", len(a.Events), len(b.Events))
	}
}
