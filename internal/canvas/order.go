package canvas

import (
	"cmp"
	"slices"

	"blockcanvas/internal/domain"
)

// RowBand is the height of a reading-order row: blocks whose y falls in
// the same band read left to right.
const RowBand = 50

// BlockView is a block with its display number in reading order.
type BlockView struct {
	domain.Block
	Number int `json:"number"`
	// Rendered is the content with stored image geometry applied.
	Rendered string `json:"rendered"`
}

// SortReadingOrder orders blocks top-to-bottom by 50px band, then left to
// right, then by id. The order is for display only.
func SortReadingOrder(blocks []domain.Block) {
	slices.SortStableFunc(blocks, func(a, b domain.Block) int {
		if c := cmp.Compare(a.Y/RowBand, b.Y/RowBand); c != 0 {
			return c
		}
		if c := cmp.Compare(a.X, b.X); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
}
