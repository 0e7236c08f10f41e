package mcp

import (
	"context"
	"log/slog"
	"os"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/rendis/txlens/internal/layout"
	"github.com/rendis/txlens/internal/store"
	"github.com/rendis/txlens/internal/validation"
)

// TxlensServerDeps holds the dependencies for creating a TxlensServer.
type TxlensServerDeps struct {
	Store     store.Store
	Engine    *layout.Engine
	Validator *validation.DocumentValidator
	Logger    *slog.Logger
}

// TxlensServer wraps an MCP server with transaction-graph tool handlers.
type TxlensServer struct {
	store     store.Store
	engine    *layout.Engine
	validator *validation.DocumentValidator
	logger    *slog.Logger
	mcpServer *server.MCPServer
}

// NewTxlensServer creates a new TxlensServer with all 4 tools registered.
func NewTxlensServer(deps TxlensServerDeps) *TxlensServer {
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}
	engine := deps.Engine
	if engine == nil {
		engine = layout.NewEngine(layout.DefaultConfig())
	}

	s := &TxlensServer{
		store:     deps.Store,
		engine:    engine,
		validator: deps.Validator,
		logger:    logger,
	}

	mcpSrv := server.NewMCPServer(
		"txlens",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithRecovery(),
		server.WithInstructions("Txlens turns blockchain transactions into positioned graphs. Use txlens.trace to parse diagnostic trace lines into an invocation tree, txlens.layout to compute a positioned node graph for a cached transaction, txlens.export to render it as Mermaid or a PNG image, and txlens.query to list cached transactions."),
	)

	mcpSrv.AddTools(s.tools()...)
	s.mcpServer = mcpSrv
	return s
}

// Serve starts the stdio transport and blocks until ctx is cancelled or stdin closes.
func (s *TxlensServer) Serve(ctx context.Context) error {
	stdio := server.NewStdioServer(s.mcpServer)
	return stdio.Listen(ctx, os.Stdin, os.Stdout)
}

// MCPServer returns the underlying MCPServer for testing or custom transports.
func (s *TxlensServer) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// tools returns the 4 registered MCP tools as ServerTool entries.
func (s *TxlensServer) tools() []server.ServerTool {
	return []server.ServerTool{
		{Tool: traceTool(), Handler: s.handleTrace},
		{Tool: layoutTool(), Handler: s.handleLayout},
		{Tool: exportTool(), Handler: s.handleExport},
		{Tool: queryTool(), Handler: s.handleQuery},
	}
}

// --- Tool definitions ---

func traceTool() mcp.Tool {
	return mcp.NewTool("txlens.trace",
		mcp.WithDescription("Parse diagnostic trace lines into invocation records and the contract call tree"),
		mcp.WithArray("lines", mcp.Required(), mcp.Description("Raw diagnostic event lines, one per entry")),
	)
}

func layoutTool() mcp.Tool {
	return mcp.NewTool("txlens.layout",
		mcp.WithDescription("Compute a positioned node graph for a cached transaction"),
		mcp.WithString("tx_hash", mcp.Required(), mcp.Description("Hash of the cached transaction")),
		mcp.WithString("mode", mcp.Enum("horizontal", "staggered", "vertical", "hierarchical"),
			mcp.Description("Layout mode (default: horizontal; hierarchical is forced when the transaction has a call trace)"),
		),
		mcp.WithString("cursor", mcp.Description("Replay cursor position, -1 for none (default: -1)")),
		mcp.WithString("edges", mcp.Description("Include edges (default: true)")),
	)
}

func exportTool() mcp.Tool {
	return mcp.NewTool("txlens.export",
		mcp.WithDescription("Render a cached transaction's graph. Returns Mermaid flowchart syntax or a base64-encoded PNG image"),
		mcp.WithString("tx_hash", mcp.Required(), mcp.Description("Hash of the cached transaction")),
		mcp.WithString("format", mcp.Required(),
			mcp.Enum("mermaid", "image"),
			mcp.Description("Output format: mermaid (flowchart syntax) or image (base64 PNG)"),
		),
		mcp.WithString("mode", mcp.Description("Layout mode (default: horizontal)")),
		mcp.WithString("cursor", mcp.Description("Replay cursor position (default: -1)")),
	)
}

func queryTool() mcp.Tool {
	return mcp.NewTool("txlens.query",
		mcp.WithDescription("List cached transactions"),
		mcp.WithObject("filter", mcp.Description("Filter criteria (network, limit)")),
	)
}
