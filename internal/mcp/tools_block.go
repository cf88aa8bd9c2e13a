package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"blockcanvas/internal/canvas"
	"blockcanvas/internal/domain"

	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerBlockTools() {
	// ── create_block ───────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("create_block",
		mcp.WithDescription("Create a new text block on the canvas. Position is auto-calculated if not provided."),
		mcp.WithNumber("pageId", mcp.Description("Page ID (optional, defaults to active page)")),
		mcp.WithNumber("x", mcp.Description("X position (optional, auto-layout if omitted)")),
		mcp.WithNumber("y", mcp.Description("Y position (optional, auto-layout if omitted)")),
		mcp.WithNumber("width", mcp.Description("Width (optional, default 300)")),
		mcp.WithNumber("height", mcp.Description("Height (optional, default 200)")),
		mcp.WithString("title", mcp.Description("Block title (optional)")),
		mcp.WithString("content", mcp.Description("Initial HTML content (optional)")),
	), s.handleCreateBlock)

	// ── update_block_content ───────────────────────────
	s.mcp.AddTool(mcp.NewTool("update_block_content",
		mcp.WithDescription("Replace the HTML content of a block. Writes that would blank a non-empty block are refused."),
		mcp.WithNumber("blockId", mcp.Description("Block ID"), mcp.Required()),
		mcp.WithString("content", mcp.Description("New HTML content"), mcp.Required()),
	), s.handleUpdateBlockContent)

	// ── update_block_title ─────────────────────────────
	s.mcp.AddTool(mcp.NewTool("update_block_title",
		mcp.WithDescription("Set the title of a block"),
		mcp.WithNumber("blockId", mcp.Description("Block ID"), mcp.Required()),
		mcp.WithString("title", mcp.Description("New title"), mcp.Required()),
	), s.handleUpdateBlockTitle)

	// ── list_blocks ────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("list_blocks",
		mcp.WithDescription("List all blocks on a page in reading order, optionally filtered by type"),
		mcp.WithNumber("pageId", mcp.Description("Page ID (optional, defaults to active page)")),
		mcp.WithString("type", mcp.Description("Filter by block type: text, image, file (optional)")),
	), s.handleListBlocks)

	// ── delete_block (destructive) ─────────────────────
	s.mcp.AddTool(mcp.NewTool("delete_block",
		mcp.WithDescription("DESTRUCTIVE: Delete a block with its attachments and image dimensions."),
		mcp.WithNumber("blockId", mcp.Description("Block ID to delete"), mcp.Required()),
		mcp.WithToolAnnotation(mcp.ToolAnnotation{DestructiveHint: boolPtr(true)}),
	), s.handleDeleteBlock)

	// ── move_block ─────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("move_block",
		mcp.WithDescription("Move a block to a new position on the canvas"),
		mcp.WithNumber("blockId", mcp.Description("Block ID"), mcp.Required()),
		mcp.WithNumber("x", mcp.Description("New X position"), mcp.Required()),
		mcp.WithNumber("y", mcp.Description("New Y position"), mcp.Required()),
	), s.handleMoveBlock)

	// ── resize_block ───────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("resize_block",
		mcp.WithDescription("Resize a block (50×30 to 2000×1500)"),
		mcp.WithNumber("blockId", mcp.Description("Block ID"), mcp.Required()),
		mcp.WithNumber("width", mcp.Description("New width"), mcp.Required()),
		mcp.WithNumber("height", mcp.Description("New height"), mcp.Required()),
	), s.handleResizeBlock)

	// ── batch_move_blocks ──────────────────────────────
	s.mcp.AddTool(mcp.NewTool("batch_move_blocks",
		mcp.WithDescription("Move multiple blocks by a relative offset (dx, dy)"),
		mcp.WithString("blockIds",
			mcp.Description("Comma-separated block IDs"),
			mcp.Required(),
		),
		mcp.WithNumber("dx", mcp.Description("Horizontal offset"), mcp.Required()),
		mcp.WithNumber("dy", mcp.Description("Vertical offset"), mcp.Required()),
	), s.handleBatchMoveBlocks)

	// ── batch_update_blocks ────────────────────────────
	s.mcp.AddTool(mcp.NewTool("batch_update_blocks",
		mcp.WithDescription("Update multiple blocks at once (move and/or resize). Pass a JSON array of patch objects with blockId and optional x, y, width, height."),
		mcp.WithString("patches",
			mcp.Description("JSON array of patch objects [{blockId, x?, y?, width?, height?}, ...]"),
			mcp.Required(),
		),
	), s.handleBatchUpdateBlocks)

	// ── batch_delete_blocks ────────────────────────────
	s.mcp.AddTool(mcp.NewTool("batch_delete_blocks",
		mcp.WithDescription("DESTRUCTIVE: Delete multiple blocks at once."),
		mcp.WithString("blockIds",
			mcp.Description("Comma-separated block IDs to delete"),
			mcp.Required(),
		),
		mcp.WithToolAnnotation(mcp.ToolAnnotation{DestructiveHint: boolPtr(true)}),
	), s.handleBatchDeleteBlocks)

	// ── arrange_blocks ─────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("arrange_blocks",
		mcp.WithDescription("Auto-arrange all blocks on a page in reading order using a grid layout"),
		mcp.WithNumber("pageId", mcp.Description("Page ID (optional, defaults to active page)")),
		mcp.WithNumber("startX", mcp.Description("Starting X position (default 0)")),
		mcp.WithNumber("startY", mcp.Description("Starting Y position (default 0)")),
	), s.handleArrangeBlocks)

	// ── swap_blocks ────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("swap_blocks",
		mcp.WithDescription("Swap positions of two blocks"),
		mcp.WithNumber("blockIdA", mcp.Description("First block ID"), mcp.Required()),
		mcp.WithNumber("blockIdB", mcp.Description("Second block ID"), mcp.Required()),
	), s.handleSwapBlocks)
}

func boolPtr(v bool) *bool { return &v }

// ── Handlers ───────────────────────────────────────────────

func (s *Server) handleCreateBlock(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	pageID, err := s.resolvePageID(args)
	if err != nil {
		return nil, err
	}

	r := domain.Rect{
		Width:  getInt(args, "width", domain.DefaultBlockWidth),
		Height: getInt(args, "height", domain.DefaultBlockHeight),
	}.Clamp()

	// Auto-layout if position not provided
	_, hasX := args["x"].(float64)
	_, hasY := args["y"].(float64)
	if hasX && hasY {
		r.X, r.Y = getInt(args, "x", 0), getInt(args, "y", 0)
	} else {
		existing, err := s.blocks.ListBlocksForPage(ctx, pageID)
		if err != nil {
			return errorResult("list blocks", err), nil
		}
		r.X, r.Y = s.layout.NextPosition(existing, r.Width, r.Height)
	}

	block, err := s.blocks.CreateBlock(ctx, pageID, r)
	if err != nil {
		return errorResult("create block", err), nil
	}

	var p domain.BlockPatch
	if title, ok := args["title"].(string); ok && title != "" {
		p.Title = &title
	}
	if content, ok := args["content"].(string); ok && content != "" {
		p.Content = &content
	}
	if !p.Empty() {
		if block, err = s.blocks.UpdateBlock(ctx, block.ID, p); err != nil {
			return errorResult("set initial content", err), nil
		}
	}

	s.emitBlocksChanged(ctx, pageID)
	return jsonResult(block)
}

func (s *Server) handleUpdateBlockContent(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	content, ok := args["content"].(string)
	if !ok {
		return nil, fmt.Errorf("content is required")
	}
	return s.patchBlock(ctx, args, domain.BlockPatch{Content: &content}, "update content")
}

func (s *Server) handleUpdateBlockTitle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	title, ok := args["title"].(string)
	if !ok {
		return nil, fmt.Errorf("title is required")
	}
	return s.patchBlock(ctx, args, domain.BlockPatch{Title: &title}, "update title")
}

func (s *Server) handleMoveBlock(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	x, y := getInt(args, "x", -1), getInt(args, "y", -1)
	if x < 0 || y < 0 {
		return nil, fmt.Errorf("x and y must be non-negative numbers")
	}
	return s.patchBlock(ctx, args, domain.BlockPatch{X: &x, Y: &y}, "move block")
}

func (s *Server) handleResizeBlock(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	w, h := getInt(args, "width", 0), getInt(args, "height", 0)
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("width and height must be positive numbers")
	}
	return s.patchBlock(ctx, args, domain.BlockPatch{Width: &w, Height: &h}, "resize block")
}

// patchBlock applies p to the block named by blockId and returns the
// stored result.
func (s *Server) patchBlock(ctx context.Context, args map[string]any, p domain.BlockPatch, op string) (*mcp.CallToolResult, error) {
	id, ok := getID(args, "blockId")
	if !ok {
		return nil, fmt.Errorf("blockId is required")
	}
	block, err := s.blocks.UpdateBlock(ctx, id, p)
	if err != nil {
		return errorResult(op, err), nil
	}
	s.emitBlocksChanged(ctx, block.PageID)
	return jsonResult(summarizeBlock(*block))
}

func (s *Server) handleListBlocks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
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

	filterType, _ := args["type"].(string)
	summaries := []blockSummary{}
	for i, b := range blocks {
		if filterType != "" && string(b.Type) != filterType {
			continue
		}
		sum := summarizeBlock(b)
		sum.Number = i + 1
		summaries = append(summaries, sum)
	}
	return jsonResult(summaries)
}

func (s *Server) handleDeleteBlock(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	block, err := s.getBlockForTool(ctx, req.GetArguments())
	if err != nil {
		return errorResult("delete block", err), nil
	}
	if err := s.blocks.DeleteBlock(ctx, block.ID); err != nil {
		return errorResult("delete block", err), nil
	}

	s.emitBlocksChanged(ctx, block.PageID)
	return textResult(fmt.Sprintf("Block %d deleted", block.ID)), nil
}

func (s *Server) handleBatchMoveBlocks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	idsStr, _ := args["blockIds"].(string)
	dx := getInt(args, "dx", 0)
	dy := getInt(args, "dy", 0)

	ids := splitIDs(idsStr)
	if len(ids) == 0 {
		return nil, fmt.Errorf("blockIds is required")
	}

	pages := map[int64]struct{}{}
	for _, id := range ids {
		block, err := s.blocks.GetBlock(ctx, id)
		if err != nil {
			return errorResult(fmt.Sprintf("get block %d", id), err), nil
		}
		x, y := max(block.X+dx, 0), max(block.Y+dy, 0)
		if _, err := s.blocks.UpdateBlock(ctx, id, domain.BlockPatch{X: &x, Y: &y}); err != nil {
			return errorResult(fmt.Sprintf("move block %d", id), err), nil
		}
		pages[block.PageID] = struct{}{}
	}

	for pageID := range pages {
		s.emitBlocksChanged(ctx, pageID)
	}
	return textResult(fmt.Sprintf("Moved %d blocks by (%d, %d)", len(ids), dx, dy)), nil
}

func (s *Server) handleArrangeBlocks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
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

	arranged := s.layout.ArrangeGroup(blocks, getInt(args, "startX", 0), getInt(args, "startY", 0))
	for _, b := range arranged {
		if _, err := s.blocks.UpdateBlock(ctx, b.ID, domain.GeometryPatch(b.Rect())); err != nil {
			return errorResult(fmt.Sprintf("update position %d", b.ID), err), nil
		}
	}

	s.emitBlocksChanged(ctx, pageID)
	return textResult(fmt.Sprintf("Arranged %d blocks", len(arranged))), nil
}

func (s *Server) handleSwapBlocks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	idA, okA := getID(args, "blockIdA")
	idB, okB := getID(args, "blockIdB")
	if !okA || !okB {
		return nil, fmt.Errorf("blockIdA and blockIdB are required")
	}

	a, err := s.blocks.GetBlock(ctx, idA)
	if err != nil {
		return errorResult(fmt.Sprintf("get block %d", idA), err), nil
	}
	b, err := s.blocks.GetBlock(ctx, idB)
	if err != nil {
		return errorResult(fmt.Sprintf("get block %d", idB), err), nil
	}

	// Swap positions, keep sizes
	if _, err := s.blocks.UpdateBlock(ctx, a.ID, domain.BlockPatch{X: &b.X, Y: &b.Y}); err != nil {
		return errorResult("swap", err), nil
	}
	if _, err := s.blocks.UpdateBlock(ctx, b.ID, domain.BlockPatch{X: &a.X, Y: &a.Y}); err != nil {
		return errorResult("swap", err), nil
	}

	s.emitBlocksChanged(ctx, a.PageID)
	return textResult(fmt.Sprintf("Swapped positions of blocks %d and %d", idA, idB)), nil
}

func (s *Server) handleBatchUpdateBlocks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	patchesJSON, _ := args["patches"].(string)

	var patches []struct {
		BlockID int64 `json:"blockId"`
		X       *int  `json:"x"`
		Y       *int  `json:"y"`
		Width   *int  `json:"width"`
		Height  *int  `json:"height"`
	}
	if err := json.Unmarshal([]byte(patchesJSON), &patches); err != nil {
		return nil, fmt.Errorf("parse patches JSON: %w", err)
	}
	if len(patches) == 0 {
		return nil, fmt.Errorf("patches array is empty")
	}

	pages := map[int64]struct{}{}
	for _, p := range patches {
		patch := domain.BlockPatch{X: p.X, Y: p.Y, Width: p.Width, Height: p.Height}
		if patch.Empty() {
			continue
		}
		block, err := s.blocks.UpdateBlock(ctx, p.BlockID, patch)
		if err != nil {
			return errorResult(fmt.Sprintf("update block %d", p.BlockID), err), nil
		}
		pages[block.PageID] = struct{}{}
	}

	for pageID := range pages {
		s.emitBlocksChanged(ctx, pageID)
	}
	return textResult(fmt.Sprintf("Updated %d blocks", len(patches))), nil
}

func (s *Server) handleBatchDeleteBlocks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	idsStr, _ := args["blockIds"].(string)
	ids := splitIDs(idsStr)
	if len(ids) == 0 {
		return nil, fmt.Errorf("blockIds is required")
	}

	pages := map[int64]struct{}{}
	var missing []string
	for _, id := range ids {
		block, err := s.blocks.GetBlock(ctx, id)
		if err != nil {
			missing = append(missing, fmt.Sprint(id))
			continue // skip missing blocks
		}
		if err := s.blocks.DeleteBlock(ctx, block.ID); err != nil {
			return errorResult(fmt.Sprintf("delete block %d", id), err), nil
		}
		pages[block.PageID] = struct{}{}
	}

	for pageID := range pages {
		s.emitBlocksChanged(ctx, pageID)
	}
	msg := fmt.Sprintf("Deleted %d blocks", len(ids)-len(missing))
	if len(missing) > 0 {
		msg += fmt.Sprintf(" (not found: %s)", strings.Join(missing, ", "))
	}
	return textResult(msg), nil
}
