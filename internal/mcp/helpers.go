package mcpserver

import (
	"strings"

	"blockcanvas/internal/domain"
	"blockcanvas/internal/richtext"
)

// splitIDs parses a comma-separated id list, skipping blanks and junk.
func splitIDs(s string) []int64 {
	var ids []int64
	for _, part := range strings.Split(s, ",") {
		if id, ok := getID(map[string]any{"id": strings.TrimSpace(part)}, "id"); ok {
			ids = append(ids, id)
		}
	}
	return ids
}

// blockSummary is the compact block shape returned to agents.
type blockSummary struct {
	ID      int64  `json:"id"`
	Number  int    `json:"number,omitempty"`
	Type    string `json:"type"`
	Title   string `json:"title,omitempty"`
	X       int    `json:"x"`
	Y       int    `json:"y"`
	Width   int    `json:"width"`
	Height  int    `json:"height"`
	Images  int    `json:"images,omitempty"`
	Preview string `json:"preview"` // visible text, first 200 runes
}

func summarizeBlock(b domain.Block) blockSummary {
	preview := richtext.PlainText(b.Content, 200)
	return blockSummary{
		ID:      b.ID,
		Type:    string(b.Type),
		Title:   b.Title,
		X:       b.X,
		Y:       b.Y,
		Width:   b.Width,
		Height:  b.Height,
		Images:  len(b.ImageDimensions),
		Preview: preview,
	}
}
