package canvas

import (
	"context"
	"sync"
	"testing"
	"time"

	"blockcanvas/internal/domain"
)

type updateCall struct {
	ID    int64
	Patch domain.BlockPatch
}

// fakeGateway is an in-memory domain.Gateway with hooks for failures and
// for holding updates in flight.
type fakeGateway struct {
	mu      sync.Mutex
	nextID  int64
	blocks  map[int64]domain.Block
	dims    map[int64]map[string]domain.ImageDimension
	updates []updateCall
	deletes []int64

	failUpdates int   // number of upcoming updates to fail
	failErr     error // error returned for failed updates
	gate        chan struct{}
	inflight    int
	maxInflight int
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		blocks: make(map[int64]domain.Block),
		dims:   make(map[int64]map[string]domain.ImageDimension),
	}
}

func (g *fakeGateway) seed(b domain.Block) domain.Block {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.nextID++
	b.ID = g.nextID
	if b.Type == "" {
		b.Type = domain.BlockTypeText
	}
	g.blocks[b.ID] = b
	return b
}

func (g *fakeGateway) CreateBlock(_ context.Context, pageID int64, r domain.Rect) (*domain.Block, error) {
	b := g.seed(domain.Block{PageID: pageID, X: r.X, Y: r.Y, Width: r.Width, Height: r.Height})
	return &b, nil
}

func (g *fakeGateway) UpdateBlock(_ context.Context, id int64, p domain.BlockPatch) (*domain.Block, error) {
	g.mu.Lock()
	g.inflight++
	g.maxInflight = max(g.maxInflight, g.inflight)
	gate := g.gate
	g.mu.Unlock()

	if gate != nil {
		<-gate
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	g.inflight--
	g.updates = append(g.updates, updateCall{ID: id, Patch: p})
	if g.failUpdates > 0 {
		g.failUpdates--
		return nil, g.failErr
	}
	b, ok := g.blocks[id]
	if !ok {
		return nil, domain.NotFoundf("block %d", id)
	}
	p.Apply(&b)
	g.blocks[id] = b
	return &b, nil
}

func (g *fakeGateway) DeleteBlock(_ context.Context, id int64) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.deletes = append(g.deletes, id)
	if _, ok := g.blocks[id]; !ok {
		return domain.NotFoundf("block %d", id)
	}
	delete(g.blocks, id)
	delete(g.dims, id)
	return nil
}

func (g *fakeGateway) ListBlocksForPage(_ context.Context, pageID int64) ([]domain.Block, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	var out []domain.Block
	for _, b := range g.blocks {
		if b.PageID == pageID {
			out = append(out, b)
		}
	}
	return out, nil
}

func (g *fakeGateway) ListImageDimensions(_ context.Context, blockID int64) ([]domain.ImageDimension, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	var out []domain.ImageDimension
	for _, d := range g.dims[blockID] {
		out = append(out, d)
	}
	return out, nil
}

func (g *fakeGateway) UpsertImageDimension(_ context.Context, blockID int64, url string, f domain.ImageDimensionFields) (*domain.ImageDimension, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.blocks[blockID]; !ok {
		return nil, domain.NotFoundf("block %d", blockID)
	}
	if g.dims[blockID] == nil {
		g.dims[blockID] = make(map[string]domain.ImageDimension)
	}
	d, ok := g.dims[blockID][url]
	if !ok {
		g.nextID++
		d = domain.NewImageDimension(blockID, url, f)
		d.ID = g.nextID
	} else {
		f.Apply(&d)
	}
	g.dims[blockID][url] = d
	return &d, nil
}

func (g *fakeGateway) DeleteImageDimension(_ context.Context, blockID int64, url string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.dims[blockID][url]; !ok {
		return domain.NotFoundf("image dimension %s", url)
	}
	delete(g.dims[blockID], url)
	return nil
}

func (g *fakeGateway) CreateAttachment(_ context.Context, blockID int64, name, url string, t domain.AttachmentType) (*domain.Attachment, error) {
	return &domain.Attachment{BlockID: blockID, Name: name, URL: url, Type: t}, nil
}

func (g *fakeGateway) DeleteAttachment(_ context.Context, id int64) (*domain.Attachment, error) {
	return nil, domain.NotFoundf("attachment %d", id)
}

func (g *fakeGateway) calls() []updateCall {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]updateCall(nil), g.updates...)
}

func (g *fakeGateway) stored(id int64) domain.Block {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.blocks[id]
}

// eventually polls cond until it holds or a second passes.
func eventually(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}
