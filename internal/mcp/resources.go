package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"blockcanvas/internal/canvas"

	"github.com/mark3labs/mcp-go/mcp"
)

const pageBlocksPrefix = "canvas://page/"

func (s *Server) registerResources() {
	// ── canvas://page/{pageId}/blocks ──────────────────
	s.mcp.AddResourceTemplate(
		mcp.NewResourceTemplate(
			pageBlocksPrefix+"{pageId}/blocks",
			"Blocks on a Page",
		),
		s.handlePageBlocksResource,
	)
}

func (s *Server) handlePageBlocksResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	uri := req.Params.URI
	pageID, ok := pageIDFromURI(uri)
	if !ok {
		return nil, fmt.Errorf("could not extract pageId from URI: %s", uri)
	}

	blocks, err := s.blocks.ListBlocksForPage(ctx, pageID)
	if err != nil {
		return nil, err
	}
	canvas.SortReadingOrder(blocks)

	summaries := make([]blockSummary, len(blocks))
	for i, b := range blocks {
		summaries[i] = summarizeBlock(b)
		summaries[i].Number = i + 1
	}

	data, err := json.MarshalIndent(summaries, "", "  ")
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

// pageIDFromURI extracts the page id from "canvas://page/{id}/blocks".
func pageIDFromURI(uri string) (int64, bool) {
	rest, ok := strings.CutPrefix(uri, pageBlocksPrefix)
	if !ok {
		return 0, false
	}
	idStr, ok := strings.CutSuffix(rest, "/blocks")
	if !ok {
		return 0, false
	}
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
