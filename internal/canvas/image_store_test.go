package canvas

import (
	"context"
	"strings"
	"testing"

	"blockcanvas/internal/domain"
)

func TestImageDimensionStore_InsertDefaults(t *testing.T) {
	gw := newFakeGateway()
	b := gw.seed(domain.Block{PageID: 1})
	s := NewImageDimensionStore(gw, b.ID)

	d, err := s.Insert(context.Background(), "/files/big.png", "big.png", 800, 600)
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if d.Width != 300 || d.Height != 200 {
		t.Errorf("expected display 300x200, got %dx%d", d.Width, d.Height)
	}
	if d.OriginalWidth != 800 || d.OriginalHeight != 600 {
		t.Errorf("expected original 800x600, got %dx%d", d.OriginalWidth, d.OriginalHeight)
	}

	unknown, _ := s.Insert(context.Background(), "/files/x.png", "x.png", 0, 0)
	if unknown.OriginalWidth != 300 || unknown.OriginalHeight != 200 {
		t.Errorf("expected 300x200 original fallback, got %dx%d", unknown.OriginalWidth, unknown.OriginalHeight)
	}
}

func TestImageDimensionStore_StoreWinsOnReload(t *testing.T) {
	gw := newFakeGateway()
	b := gw.seed(domain.Block{PageID: 1})
	ctx := context.Background()

	s := NewImageDimensionStore(gw, b.ID)
	s.Insert(ctx, "/files/a.png", "a.png", 0, 0)
	if _, err := s.Resize(ctx, "/files/a.png", 420, 280); err != nil {
		t.Fatalf("resize: %v", err)
	}

	// a fresh store, as after a reload
	reloaded := NewImageDimensionStore(gw, b.ID)
	if err := reloaded.Load(ctx); err != nil {
		t.Fatalf("load: %v", err)
	}
	out := reloaded.ApplyToContent(`<p><img src="/files/a.png" width="10" height="10" style="width: 10px"></p>`)
	for _, want := range []string{`width="420"`, `height="280"`, "width: 420px", "height: 280px"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in %s", want, out)
		}
	}
	if strings.Contains(out, "10px") || strings.Contains(out, `"10"`) {
		t.Errorf("markup size survived: %s", out)
	}
}

func TestImageDimensionStore_UpsertKeepsOneRow(t *testing.T) {
	gw := newFakeGateway()
	b := gw.seed(domain.Block{PageID: 1})
	ctx := context.Background()
	s := NewImageDimensionStore(gw, b.ID)

	s.Insert(ctx, "/files/a.png", "a.png", 0, 0)
	s.Resize(ctx, "/files/a.png", 100, 80)
	s.Move(ctx, "/files/a.png", 12, 4)

	rows, _ := gw.ListImageDimensions(ctx, b.ID)
	if len(rows) != 1 {
		t.Fatalf("expected a single row, got %d", len(rows))
	}
	if rows[0].Width != 100 || rows[0].PositionX != 12 || rows[0].PositionY != 4 {
		t.Errorf("unexpected row: %+v", rows[0])
	}
}

func TestImageDimensionStore_DeleteAndReset(t *testing.T) {
	gw := newFakeGateway()
	b := gw.seed(domain.Block{PageID: 1})
	ctx := context.Background()
	s := NewImageDimensionStore(gw, b.ID)

	s.Insert(ctx, "/files/a.png", "a.png", 0, 0)
	s.Insert(ctx, "/files/b.png", "b.png", 0, 0)
	if err := s.Delete(ctx, "/files/a.png"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := s.Delete(ctx, "/files/a.png"); err != nil {
		t.Fatalf("deleting a missing row should succeed: %v", err)
	}
	if _, ok := s.Get("/files/a.png"); ok {
		t.Error("deleted row still cached")
	}
	s.Reset()
	if s.Len() != 0 {
		t.Errorf("expected empty cache after reset, got %d", s.Len())
	}
}

func TestImageDimensionStore_RejectsNonPositive(t *testing.T) {
	gw := newFakeGateway()
	b := gw.seed(domain.Block{PageID: 1})
	s := NewImageDimensionStore(gw, b.ID)
	if _, err := s.Resize(context.Background(), "/files/a.png", 0, 10); err == nil {
		t.Fatal("expected zero width to be rejected")
	}
}
