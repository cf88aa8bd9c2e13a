package canvas

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"blockcanvas/internal/domain"
	"blockcanvas/internal/service"

	"github.com/charmbracelet/log"
)

const testDebounce = 20 * time.Millisecond

func newTestCoordinator(t *testing.T, gw *fakeGateway, content string) (*SaveCoordinator, domain.Block, *service.MockEmitter) {
	t.Helper()
	b := gw.seed(domain.Block{PageID: 1, X: 50, Y: 50, Width: 300, Height: 200, Content: content})
	em := &service.MockEmitter{}
	c := NewSaveCoordinator(gw, b, nil, CoordinatorOptions{
		Debounce: testDebounce,
		Logger:   log.New(io.Discard),
		Emitter:  em,
	})
	t.Cleanup(func() { c.Discard() })
	return c, b, em
}

// ─────────────────────────────────────────────────────────────
// Debounce
// ─────────────────────────────────────────────────────────────

func TestSaveCoordinator_CoalescesEdits(t *testing.T) {
	gw := newFakeGateway()
	c, b, _ := newTestCoordinator(t, gw, "")
	ctx := context.Background()

	c.EditContent(ctx, "<p>H</p>")
	c.EditContent(ctx, "<p>He</p>")
	c.EditTitle("Draft")
	c.EditContent(ctx, "<p>Hello</p>")

	eventually(t, "debounced save", func() bool { return len(gw.calls()) == 1 })
	time.Sleep(3 * testDebounce)

	calls := gw.calls()
	if len(calls) != 1 {
		t.Fatalf("expected exactly one update, got %d", len(calls))
	}
	p := calls[0].Patch
	if p.Content == nil || *p.Content != "<p>Hello</p>" {
		t.Errorf("expected final content, got %v", p.Content)
	}
	if p.Title == nil || *p.Title != "Draft" {
		t.Errorf("expected title in the same write, got %v", p.Title)
	}
	if p.HasGeometry() {
		t.Error("content save must not carry geometry")
	}
	if got := gw.stored(b.ID).Content; got != "<p>Hello</p>" {
		t.Errorf("expected stored content, got %q", got)
	}
}

func TestSaveCoordinator_NoWriteBeforeQuietPeriod(t *testing.T) {
	gw := newFakeGateway()
	c, _, _ := newTestCoordinator(t, gw, "")
	c.EditContent(context.Background(), "<p>x</p>")
	if n := len(gw.calls()); n != 0 {
		t.Fatalf("expected no write before the quiet period, got %d", n)
	}
	if !c.Pending() {
		t.Error("expected the edit to be buffered")
	}
}

// ─────────────────────────────────────────────────────────────
// Anti-deletion guard
// ─────────────────────────────────────────────────────────────

func TestSaveCoordinator_BlankEditDropped(t *testing.T) {
	gw := newFakeGateway()
	c, b, em := newTestCoordinator(t, gw, "<p>Hello</p>")

	for _, blank := range []string{"", "<p><br></p>", "<p>\u200b</p>"} {
		if c.EditContent(context.Background(), blank) {
			t.Errorf("EditContent(%q) accepted a blanking edit", blank)
		}
	}
	time.Sleep(3 * testDebounce)

	if n := len(gw.calls()); n != 0 {
		t.Errorf("expected no writes, got %d", n)
	}
	if c.Snapshot() != "<p>Hello</p>" {
		t.Errorf("snapshot changed to %q", c.Snapshot())
	}
	if gw.stored(b.ID).Content != "<p>Hello</p>" {
		t.Errorf("stored content changed to %q", gw.stored(b.ID).Content)
	}
	if em.Count(EventWriteRejected) != 3 {
		t.Errorf("expected 3 write-rejected events, got %v", em.Names())
	}
}

func TestSaveCoordinator_BlankAfterEditsDropped(t *testing.T) {
	gw := newFakeGateway()
	c, _, _ := newTestCoordinator(t, gw, "")
	ctx := context.Background()

	if !c.EditContent(ctx, "<p>typed</p>") {
		t.Fatal("first edit should be accepted")
	}
	if c.EditContent(ctx, "") {
		t.Fatal("clearing typed content should be refused")
	}
	eventually(t, "save", func() bool { return len(gw.calls()) == 1 })
	if got := *gw.calls()[0].Patch.Content; got != "<p>typed</p>" {
		t.Errorf("expected typed content saved, got %q", got)
	}
}

func TestSaveCoordinator_SanitizesBeforeGuard(t *testing.T) {
	gw := newFakeGateway()
	c, _, _ := newTestCoordinator(t, gw, "<p>keep</p>")
	if c.EditContent(context.Background(), "<p>\u202e\u200f</p>") {
		t.Fatal("content made only of bidi marks must count as blank")
	}
}

func TestSaveCoordinator_ServerRejectionIsFinal(t *testing.T) {
	gw := newFakeGateway()
	gw.failUpdates = 1
	gw.failErr = domain.Rejectf("blank")
	c, _, em := newTestCoordinator(t, gw, "")

	c.EditTitle("t")
	eventually(t, "rejected write", func() bool { return len(gw.calls()) == 1 })
	eventually(t, "rejection event", func() bool { return em.Count(EventWriteRejected) == 1 })
	if c.Pending() {
		t.Error("a rejected write must not stay buffered")
	}
	if em.Count(EventNotice) != 0 {
		t.Errorf("rejections are silent, got %v", em.Names())
	}
}

// ─────────────────────────────────────────────────────────────
// Failures and in-flight ordering
// ─────────────────────────────────────────────────────────────

func TestSaveCoordinator_FailedWriteReissuedWithNextEdit(t *testing.T) {
	gw := newFakeGateway()
	gw.failUpdates = 1
	gw.failErr = errors.Join(domain.ErrStorageUnavailable, errors.New("connection reset"))
	c, _, em := newTestCoordinator(t, gw, "")
	ctx := context.Background()

	c.EditTitle("first")
	eventually(t, "failed write", func() bool { return len(gw.calls()) == 1 })
	eventually(t, "notice", func() bool { return em.Count(EventNotice) == 1 })

	time.Sleep(3 * testDebounce)
	if n := len(gw.calls()); n != 1 {
		t.Fatalf("expected no background retry, got %d calls", n)
	}

	c.EditContent(ctx, "<p>second</p>")
	eventually(t, "re-issued write", func() bool { return len(gw.calls()) == 2 })
	p := gw.calls()[1].Patch
	if p.Title == nil || *p.Title != "first" {
		t.Errorf("expected failed title re-issued, got %v", p.Title)
	}
	if p.Content == nil || *p.Content != "<p>second</p>" {
		t.Errorf("expected new content, got %v", p.Content)
	}
}

func TestSaveCoordinator_OneWriteInFlight(t *testing.T) {
	gw := newFakeGateway()
	gw.gate = make(chan struct{})
	c, _, _ := newTestCoordinator(t, gw, "")
	ctx := context.Background()

	c.EditContent(ctx, "<p>one</p>")
	eventually(t, "first write in flight", func() bool {
		gw.mu.Lock()
		defer gw.mu.Unlock()
		return gw.inflight == 1
	})

	c.EditContent(ctx, "<p>two</p>")
	c.EditContent(ctx, "<p>three</p>")
	time.Sleep(4 * testDebounce)

	gw.mu.Lock()
	if gw.inflight != 1 {
		t.Errorf("expected one write in flight, got %d", gw.inflight)
	}
	gw.mu.Unlock()

	close(gw.gate)
	eventually(t, "deferred write", func() bool { return len(gw.calls()) == 2 })
	if got := *gw.calls()[1].Patch.Content; got != "<p>three</p>" {
		t.Errorf("expected latest buffered content, got %q", got)
	}
	gw.mu.Lock()
	defer gw.mu.Unlock()
	if gw.maxInflight != 1 {
		t.Errorf("expected at most one concurrent write, saw %d", gw.maxInflight)
	}
}

func TestSaveCoordinator_Flush(t *testing.T) {
	gw := newFakeGateway()
	b := gw.seed(domain.Block{PageID: 1})
	c := NewSaveCoordinator(gw, b, nil, CoordinatorOptions{Debounce: time.Hour, Logger: log.New(io.Discard)})

	c.EditContent(context.Background(), "<p>now</p>")
	if err := c.Flush(context.Background()); err != nil {
		t.Fatalf("flush: %v", err)
	}
	if n := len(gw.calls()); n != 1 {
		t.Fatalf("expected flush to write once, got %d", n)
	}
	if err := c.Close(context.Background()); err != nil {
		t.Fatalf("close: %v", err)
	}
	if c.EditContent(context.Background(), "<p>late</p>") {
		t.Error("edits after Close must be ignored")
	}
}

// ─────────────────────────────────────────────────────────────
// Geometry
// ─────────────────────────────────────────────────────────────

func TestSaveCoordinator_GeometryIsImmediate(t *testing.T) {
	gw := newFakeGateway()
	b := gw.seed(domain.Block{PageID: 1})
	c := NewSaveCoordinator(gw, b, nil, CoordinatorOptions{Debounce: time.Hour, Logger: log.New(io.Discard)})
	defer c.Discard()

	r := domain.Rect{X: 190, Y: 190, Width: 300, Height: 200}
	c.SaveGeometry(context.Background(), r)
	if err := c.WaitGeometry(context.Background()); err != nil {
		t.Fatalf("wait: %v", err)
	}

	calls := gw.calls()
	if len(calls) != 1 {
		t.Fatalf("expected one write, got %d", len(calls))
	}
	p := calls[0].Patch
	if p.X == nil || p.Y == nil || p.Width == nil || p.Height == nil {
		t.Fatalf("geometry write must carry the full rectangle: %+v", p)
	}
	if p.Content != nil || p.Title != nil {
		t.Error("geometry write must not carry content")
	}
	if gw.stored(b.ID).Rect() != r {
		t.Errorf("expected stored %+v, got %+v", r, gw.stored(b.ID).Rect())
	}
}
