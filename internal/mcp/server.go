package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"sync"

	"blockcanvas/internal/domain"
	"blockcanvas/internal/service"

	"github.com/charmbracelet/log"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Backend is the gateway the tools act on. service.BlockService and
// httpapi.Client both satisfy it.
type Backend interface {
	domain.Gateway
	GetBlock(ctx context.Context, id int64) (*domain.Block, error)
}

// EventEmitter notifies canvases that an agent changed a page.
type EventEmitter interface {
	Emit(ctx context.Context, event string, data any)
}

// Server is the MCP server for the block canvas.
// It exposes tools, resources, and prompts so AI agents can work on pages.
type Server struct {
	mcp     *server.MCPServer
	blocks  Backend
	emitter EventEmitter
	layout  *LayoutEngine
	logger  *log.Logger

	mu           sync.Mutex
	activePageID int64 // set by set_active_page
}

// Deps holds everything the MCP server needs from the application.
type Deps struct {
	Blocks  Backend
	Emitter EventEmitter
	Logger  *log.Logger
	Version string
}

// New creates and configures a new MCP server with all tools and resources.
func New(deps Deps) *Server {
	if deps.Emitter == nil {
		deps.Emitter = service.NopEmitter{}
	}
	if deps.Logger == nil {
		deps.Logger = log.Default()
	}
	if deps.Version == "" {
		deps.Version = "dev"
	}
	s := &Server{
		blocks:  deps.Blocks,
		emitter: deps.Emitter,
		layout:  NewLayoutEngine(),
		logger:  deps.Logger,
	}

	s.mcp = server.NewMCPServer(
		"blockcanvas-mcp",
		deps.Version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(true, false),
		server.WithPromptCapabilities(true),
	)

	s.registerPageTools()
	s.registerBlockTools()
	s.registerImageTools()
	s.registerResources()
	s.registerPrompts()
	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	s.logger.Info("starting stdio server")
	return server.ServeStdio(s.mcp)
}

// MCP exposes the underlying server, e.g. for in-process clients.
func (s *Server) MCP() *server.MCPServer { return s.mcp }

// ── Helpers ────────────────────────────────────────────────

// emitBlocksChanged tells open canvases to reload a page.
func (s *Server) emitBlocksChanged(ctx context.Context, pageID int64) {
	s.emitter.Emit(ctx, service.EventBlocksChanged, map[string]any{"pageId": pageID, "source": "mcp"})
}

// textResult creates a simple text tool result.
func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

// jsonResult serializes v to JSON and wraps it in a text tool result.
func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal result: %w", err)
	}
	return textResult(string(data)), nil
}

// errorResult reports a domain failure to the agent as a tool error
// instead of a protocol error, so it can correct itself.
func errorResult(op string, err error) *mcp.CallToolResult {
	return mcp.NewToolResultError(fmt.Sprintf("%s: %s (%s)", op, err, domain.KindOf(err)))
}

// resolvePageID returns the pageId from tool args or falls back to the active page.
func (s *Server) resolvePageID(args map[string]any) (int64, error) {
	if id, ok := getID(args, "pageId"); ok {
		return id, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.activePageID != 0 {
		return s.activePageID, nil
	}
	return 0, fmt.Errorf("no pageId provided and no active page set (use set_active_page first)")
}

// getBlockForTool retrieves the block named by the blockId argument.
func (s *Server) getBlockForTool(ctx context.Context, args map[string]any) (*domain.Block, error) {
	id, ok := getID(args, "blockId")
	if !ok {
		return nil, fmt.Errorf("blockId is required")
	}
	return s.blocks.GetBlock(ctx, id)
}

// getID reads a positive id that may arrive as a JSON number or a string.
func getID(args map[string]any, key string) (int64, bool) {
	switch v := args[key].(type) {
	case float64:
		if v > 0 && v == float64(int64(v)) {
			return int64(v), true
		}
	case string:
		if id, err := strconv.ParseInt(v, 10, 64); err == nil && id > 0 {
			return id, true
		}
	}
	return 0, false
}

func getInt(args map[string]any, key string, fallback int) int {
	if v, ok := args[key].(float64); ok {
		return int(math.Round(v))
	}
	return fallback
}
