package mcpserver

import (
	"context"
	"fmt"

	"blockcanvas/internal/canvas"

	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerPageTools() {
	// ── set_active_page ────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("set_active_page",
		mcp.WithDescription("Set the active page for subsequent tool calls. Tools that accept pageId will default to this."),
		mcp.WithNumber("pageId",
			mcp.Description("ID of the page to make active"),
			mcp.Required(),
		),
	), s.handleSetActivePage)

	// ── get_page_state ─────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("get_page_state",
		mcp.WithDescription("Get a page's blocks in reading order (numbered as shown on the canvas) and its scrollable height"),
		mcp.WithNumber("pageId", mcp.Description("Page ID (optional, defaults to active page)")),
		mcp.WithNumber("viewportHeight", mcp.Description("Viewport height used for an empty page (default 900)")),
	), s.handleGetPageState)
}

func (s *Server) handleSetActivePage(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	pageID, ok := getID(req.GetArguments(), "pageId")
	if !ok {
		return nil, fmt.Errorf("pageId is required")
	}
	s.mu.Lock()
	s.activePageID = pageID
	s.mu.Unlock()
	return textResult(fmt.Sprintf("Active page set to %d", pageID)), nil
}

type pageState struct {
	PageID int64          `json:"pageId"`
	Extent int            `json:"extent"`
	Blocks []blockSummary `json:"blocks"`
}

func (s *Server) handleGetPageState(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	pageID, err := s.resolvePageID(args)
	if err != nil {
		return nil, err
	}
	blocks, err := s.blocks.ListBlocksForPage(ctx, pageID)
	if err != nil {
		return errorResult("list blocks", err), nil
	}
	canvas.SortReadingOrder(blocks)

	st := pageState{
		PageID: pageID,
		Extent: canvas.InitialExtent(blocks, getInt(args, "viewportHeight", canvas.DefaultViewportHeight)),
		Blocks: make([]blockSummary, len(blocks)),
	}
	for i, b := range blocks {
		st.Blocks[i] = summarizeBlock(b)
		st.Blocks[i].Number = i + 1
	}
	return jsonResult(st)
}
