package app

import (
	"blockcanvas/internal/httpapi"
	"blockcanvas/internal/logging"
	mcpserver "blockcanvas/internal/mcp"
	"blockcanvas/internal/service"

	"github.com/charmbracelet/log"
)

// ServeMCP runs the MCP server on stdin/stdout against this process's
// storage. Writes reach running API servers through their page watcher,
// and through redis when events are configured.
func (a *App) ServeMCP(version string) error {
	srv := mcpserver.New(mcpserver.Deps{
		Blocks:  a.blocks,
		Emitter: a.emitter,
		Logger:  logging.Component(a.logger, "mcp"),
		Version: version,
	})
	return srv.ServeStdio()
}

// ServeMCPRemote runs the MCP server on stdin/stdout against a running
// HTTP API at baseURL instead of opening storage directly.
func ServeMCPRemote(baseURL, version string, logger *log.Logger) error {
	client := httpapi.NewClient(baseURL, nil)
	logger.Info("using remote api", "url", baseURL)
	srv := mcpserver.New(mcpserver.Deps{
		Blocks:  client,
		Emitter: service.NopEmitter{},
		Logger:  logging.Component(logger, "mcp"),
		Version: version,
	})
	return srv.ServeStdio()
}
