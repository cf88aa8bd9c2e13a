package mcpserver

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerPrompts() {
	s.mcp.AddPrompt(mcp.NewPrompt("outline_page",
		mcp.WithPromptDescription("Turn an outline into a set of text blocks laid out on a page"),
		mcp.WithArgument("topic",
			mcp.ArgumentDescription("Topic or title for the page"),
			mcp.RequiredArgument(),
		),
	), s.handleOutlinePrompt)

	s.mcp.AddPrompt(mcp.NewPrompt("tidy_page",
		mcp.WithPromptDescription("Review the blocks on the active page and tidy their layout without losing content"),
	), s.handleTidyPrompt)
}

func (s *Server) handleOutlinePrompt(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	topic := req.Params.Arguments["topic"]
	return &mcp.GetPromptResult{
		Description: fmt.Sprintf("Outline a page about: %s", topic),
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.TextContent{
					Type: "text",
					Text: fmt.Sprintf(`Create an outline about "%s" on the active page. Follow these steps:

1. Use create_block with title "%s" and a short HTML introduction as content
2. Create one block per section, each with a title and a few <p> paragraphs
3. Leave positions out so auto-layout places the blocks without overlaps
4. Finish with get_page_state and check the reading order matches the outline`, topic, topic),
				},
			},
		},
	}, nil
}

func (s *Server) handleTidyPrompt(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	return &mcp.GetPromptResult{
		Description: "Tidy the active page",
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.TextContent{
					Type: "text",
					Text: `Tidy the active page. Follow these steps:

1. Call get_page_state to see the blocks in reading order
2. Resize blocks whose content is clipped with resize_block
3. Use arrange_blocks, or batch_update_blocks for a custom layout, so blocks no longer overlap
4. Never send empty content with update_block_content; blank writes over existing content are refused`,
				},
			},
		},
	}, nil
}
