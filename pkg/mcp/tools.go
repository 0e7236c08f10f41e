package mcp

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/rendis/txlens/internal/layout"
	"github.com/rendis/txlens/internal/render"
	"github.com/rendis/txlens/internal/store"
	"github.com/rendis/txlens/internal/trace"
	"github.com/rendis/txlens/pkg/schema"
)

// handleTrace parses diagnostic lines into records and the call tree.
func (s *TxlensServer) handleTrace(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	lines := extractStrings(req.GetArguments(), "lines")
	if lines == nil {
		return mcp.NewToolResultError("lines is required and must be an array of strings"), nil
	}

	records := trace.Parse(lines)
	forest := trace.Hierarchy(records)

	return marshalResult(map[string]any{
		"records": records,
		"calls":   forest,
	})
}

// handleLayout computes a positioned graph for a cached transaction.
func (s *TxlensServer) handleLayout(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	txHash, err := req.RequireString("tx_hash")
	if err != nil {
		return mcp.NewToolResultError("tx_hash is required"), nil
	}

	layoutReq, loadErr := s.buildRequest(ctx, txHash, req)
	if loadErr != nil {
		return mcp.NewToolResultError(fmt.Sprintf("layout failed: %v", loadErr)), nil
	}

	nodes, edges := s.engine.Compute(*layoutReq)
	return marshalResult(map[string]any{
		"tx_hash": txHash,
		"nodes":   nodes,
		"edges":   edges,
	})
}

// handleExport renders a cached transaction's graph in the requested format.
func (s *TxlensServer) handleExport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	txHash, err := req.RequireString("tx_hash")
	if err != nil {
		return mcp.NewToolResultError("tx_hash is required"), nil
	}
	format, err := req.RequireString("format")
	if err != nil {
		return mcp.NewToolResultError("format is required"), nil
	}
	if format != "mermaid" && format != "image" {
		return mcp.NewToolResultError("format must be mermaid or image"), nil
	}

	layoutReq, loadErr := s.buildRequest(ctx, txHash, req)
	if loadErr != nil {
		return mcp.NewToolResultError(fmt.Sprintf("export failed: %v", loadErr)), nil
	}
	layoutReq.WithEdges = true

	nodes, edges := s.engine.Compute(*layoutReq)

	switch format {
	case "mermaid":
		return mcp.NewToolResultText(render.Mermaid(txHash, nodes, edges)), nil
	default:
		png, imgErr := render.Image(txHash, nodes, edges)
		if imgErr != nil {
			return mcp.NewToolResultError(fmt.Sprintf("image render failed: %v", imgErr)), nil
		}
		return mcp.NewToolResultText(base64.StdEncoding.EncodeToString(png)), nil
	}
}

// handleQuery lists cached transactions based on filters.
func (s *TxlensServer) handleQuery(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	filter := mcp.ParseStringMap(req, "filter", nil)

	tf := store.TransactionFilter{
		Limit: extractInt(filter, "limit", 50),
	}
	if network, ok := filter["network"].(string); ok {
		tf.Network = network
	}

	txs, err := s.store.ListTransactions(ctx, tf)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("query failed: %v", err)), nil
	}

	summaries := make([]map[string]any, 0, len(txs))
	for _, tx := range txs {
		summaries = append(summaries, map[string]any{
			"hash":       tx.Hash,
			"network":    tx.Network,
			"fetched_at": tx.FetchedAt,
		})
	}
	return marshalResult(map[string]any{"transactions": summaries})
}

// --- Internal helpers ---

// buildRequest loads a cached transaction and assembles a layout request
// from the tool arguments.
func (s *TxlensServer) buildRequest(ctx context.Context, txHash string, req mcp.CallToolRequest) (*layout.Request, error) {
	tx, err := s.store.GetTransaction(ctx, txHash)
	if err != nil {
		return nil, err
	}

	var ops []schema.Operation
	if len(tx.Operations) > 0 {
		if err := json.Unmarshal(tx.Operations, &ops); err != nil {
			return nil, fmt.Errorf("cached operations for %s are corrupt: %w", txHash, err)
		}
	}

	var forest []trace.InvocationRecord
	if len(tx.TraceLines) > 0 {
		forest = trace.Hierarchy(trace.Parse(tx.TraceLines))
	}

	cursor := -1
	if raw := req.GetString("cursor", ""); raw != "" {
		if n, convErr := strconv.Atoi(raw); convErr == nil {
			cursor = n
		}
	}

	return &layout.Request{
		Mode:       schema.LayoutMode(req.GetString("mode", "")),
		Operations: ops,
		Forest:     forest,
		Cursor:     cursor,
		WithEdges:  req.GetString("edges", "true") != "false",
	}, nil
}

// extractStrings pulls a string slice out of the raw argument map.
func extractStrings(args map[string]any, key string) []string {
	raw, ok := args[key]
	if !ok {
		return nil
	}
	items, ok := raw.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		str, ok := item.(string)
		if !ok {
			return nil
		}
		out = append(out, str)
	}
	return out
}

// extractInt safely extracts an integer from a filter map.
func extractInt(filter map[string]any, key string, defaultVal int) int {
	if filter == nil {
		return defaultVal
	}
	v, ok := filter[key]
	if !ok {
		return defaultVal
	}
	switch val := v.(type) {
	case float64:
		return int(val)
	case int:
		return val
	case string:
		if n, err := strconv.Atoi(val); err == nil {
			return n
		}
	}
	return defaultVal
}

// marshalResult converts a value to a JSON text tool result.
func marshalResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcp.NewToolResultJSON(json.RawMessage(data))
}
