package mcpserver

import (
	"context"
	"fmt"

	"blockcanvas/internal/domain"

	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerImageTools() {
	// ── list_image_dimensions ──────────────────────────
	s.mcp.AddTool(mcp.NewTool("list_image_dimensions",
		mcp.WithDescription("List the stored size and position of every image embedded in a block's content"),
		mcp.WithNumber("blockId", mcp.Description("Block ID"), mcp.Required()),
	), s.handleListImageDimensions)

	// ── set_image_dimension ────────────────────────────
	s.mcp.AddTool(mcp.NewTool("set_image_dimension",
		mcp.WithDescription("Set the display size and/or offset of an image embedded in a block. The stored values override the markup when the block renders."),
		mcp.WithNumber("blockId", mcp.Description("Block ID"), mcp.Required()),
		mcp.WithString("imageUrl", mcp.Description("The image's src URL"), mcp.Required()),
		mcp.WithNumber("width", mcp.Description("Display width (optional)")),
		mcp.WithNumber("height", mcp.Description("Display height (optional)")),
		mcp.WithNumber("positionX", mcp.Description("Horizontal offset (optional)")),
		mcp.WithNumber("positionY", mcp.Description("Vertical offset (optional)")),
	), s.handleSetImageDimension)

	// ── delete_image_dimension ─────────────────────────
	s.mcp.AddTool(mcp.NewTool("delete_image_dimension",
		mcp.WithDescription("Forget the stored geometry of an image that was removed from a block"),
		mcp.WithNumber("blockId", mcp.Description("Block ID"), mcp.Required()),
		mcp.WithString("imageUrl", mcp.Description("The image's src URL"), mcp.Required()),
	), s.handleDeleteImageDimension)
}

func (s *Server) handleListImageDimensions(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, ok := getID(req.GetArguments(), "blockId")
	if !ok {
		return nil, fmt.Errorf("blockId is required")
	}
	dims, err := s.blocks.ListImageDimensions(ctx, id)
	if err != nil {
		return errorResult("list image dimensions", err), nil
	}
	if dims == nil {
		dims = []domain.ImageDimension{}
	}
	return jsonResult(dims)
}

func (s *Server) handleSetImageDimension(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	block, url, err := s.imageArgs(ctx, args)
	if err != nil {
		return errorResult("set image dimension", err), nil
	}

	var f domain.ImageDimensionFields
	for key, dst := range map[string]**int{
		"width":     &f.Width,
		"height":    &f.Height,
		"positionX": &f.PositionX,
		"positionY": &f.PositionY,
	} {
		if _, ok := args[key].(float64); ok {
			v := getInt(args, key, 0)
			*dst = &v
		}
	}

	d, err := s.blocks.UpsertImageDimension(ctx, block.ID, url, f)
	if err != nil {
		return errorResult("set image dimension", err), nil
	}
	s.emitBlocksChanged(ctx, block.PageID)
	return jsonResult(d)
}

func (s *Server) handleDeleteImageDimension(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	block, url, err := s.imageArgs(ctx, req.GetArguments())
	if err != nil {
		return errorResult("delete image dimension", err), nil
	}
	if err := s.blocks.DeleteImageDimension(ctx, block.ID, url); err != nil {
		return errorResult("delete image dimension", err), nil
	}
	s.emitBlocksChanged(ctx, block.PageID)
	return textResult(fmt.Sprintf("Image %s forgotten on block %d", url, block.ID)), nil
}

func (s *Server) imageArgs(ctx context.Context, args map[string]any) (*domain.Block, string, error) {
	url, _ := args["imageUrl"].(string)
	if url == "" {
		return nil, "", domain.Rejectf("imageUrl is required")
	}
	block, err := s.getBlockForTool(ctx, args)
	if err != nil {
		return nil, "", err
	}
	return block, url, nil
}
