package mcp

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rendis/txlens/internal/store"
	"github.com/rendis/txlens/pkg/schema"
)

// --- Mock Store ---

type mockStore struct {
	store.Store // embed for unimplemented methods

	transactions map[string]*store.Transaction
}

func newMockStore() *mockStore {
	return &mockStore{transactions: make(map[string]*store.Transaction)}
}

func (m *mockStore) GetTransaction(_ context.Context, hash string) (*store.Transaction, error) {
	if tx, ok := m.transactions[hash]; ok {
		return tx, nil
	}
	return nil, schema.NewErrorf(schema.ErrCodeNotFound, "transaction not found").WithTx(hash)
}

func (m *mockStore) ListTransactions(_ context.Context, filter store.TransactionFilter) ([]*store.Transaction, error) {
	result := make([]*store.Transaction, 0)
	for _, tx := range m.transactions {
		if filter.Network != "" && tx.Network != filter.Network {
			continue
		}
		result = append(result, tx)
	}
	if filter.Limit > 0 && len(result) > filter.Limit {
		result = result[:filter.Limit]
	}
	return result, nil
}

// --- Helpers ---

func newTestServer(ms *mockStore) *TxlensServer {
	return NewTxlensServer(TxlensServerDeps{Store: ms})
}

func buildRequest(toolName string, args map[string]any) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      toolName,
			Arguments: args,
		},
	}
}

func extractText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, result.Content)
	return mcp.GetTextFromContent(result.Content[0])
}

func unmarshalResult(t *testing.T, result *mcp.CallToolResult, target any) {
	t.Helper()
	text := extractText(t, result)
	require.NoError(t, json.Unmarshal([]byte(text), target))
}

func cachedTx(hash string, ops string, traceLines []string) *store.Transaction {
	return &store.Transaction{
		ID:         "tx-" + hash,
		Hash:       hash,
		Network:    "testnet",
		Operations: json.RawMessage(ops),
		TraceLines: traceLines,
	}
}

// --- Tests ---

func TestTraceTool(t *testing.T) {
	s := newTestServer(newMockStore())

	req := buildRequest("txlens.trace", map[string]any{
		"lines": []any{
			"GABC invoked contract CXYZ swap(100, 50) → 48",
			" Invoked contract CDEF transfer(A, B, 100)",
		},
	})
	result, err := s.handleTrace(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, result.IsError)

	var out struct {
		Records []map[string]any `json:"records"`
		Calls   []map[string]any `json:"calls"`
	}
	unmarshalResult(t, result, &out)
	require.Len(t, out.Records, 2)
	assert.Equal(t, "call-0", out.Records[0]["id"])
	assert.Len(t, out.Calls, 2)
}

func TestTraceTool_MissingLines(t *testing.T) {
	s := newTestServer(newMockStore())

	result, err := s.handleTrace(context.Background(), buildRequest("txlens.trace", map[string]any{}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestTraceTool_NonStringEntry(t *testing.T) {
	s := newTestServer(newMockStore())

	req := buildRequest("txlens.trace", map[string]any{"lines": []any{"ok", 42}})
	result, err := s.handleTrace(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestLayoutTool(t *testing.T) {
	ms := newMockStore()
	ms.transactions["abc123"] = cachedTx("abc123",
		`[{"id":"op1","type":"payment"},{"id":"op2","type":"payment"}]`, nil)
	s := newTestServer(ms)

	req := buildRequest("txlens.layout", map[string]any{
		"tx_hash": "abc123",
		"cursor":  "0",
	})
	result, err := s.handleLayout(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, result.IsError)

	var out struct {
		TxHash string              `json:"tx_hash"`
		Nodes  []schema.LayoutNode `json:"nodes"`
		Edges  []schema.LayoutEdge `json:"edges"`
	}
	unmarshalResult(t, result, &out)
	assert.Equal(t, "abc123", out.TxHash)
	require.Len(t, out.Nodes, 2)
	assert.Equal(t, schema.ExecutionStateExecuting, out.Nodes[0].ExecutionState)
	assert.Equal(t, schema.ExecutionStatePending, out.Nodes[1].ExecutionState)
	assert.Len(t, out.Edges, 1)
}

func TestLayoutTool_TraceForcesHierarchy(t *testing.T) {
	ms := newMockStore()
	ms.transactions["abc123"] = cachedTx("abc123",
		`[{"id":"op1","type":"invoke_contract"}]`,
		[]string{
			"GABC invoked contract CXYZ swap(100, 50) → 48",
			" Invoked contract CDEF transfer(A, B, 100)",
		})
	s := newTestServer(ms)

	req := buildRequest("txlens.layout", map[string]any{
		"tx_hash": "abc123",
		"mode":    "horizontal",
	})
	result, err := s.handleLayout(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, result.IsError)

	var out struct {
		Nodes []schema.LayoutNode `json:"nodes"`
	}
	unmarshalResult(t, result, &out)
	require.Len(t, out.Nodes, 2)
	assert.Equal(t, "call-0", out.Nodes[0].ID)
	assert.Equal(t, "call-1", out.Nodes[1].ID)
}

func TestLayoutTool_EdgesDisabled(t *testing.T) {
	ms := newMockStore()
	ms.transactions["abc123"] = cachedTx("abc123",
		`[{"id":"op1","type":"payment"},{"id":"op2","type":"payment"}]`, nil)
	s := newTestServer(ms)

	req := buildRequest("txlens.layout", map[string]any{
		"tx_hash": "abc123",
		"edges":   "false",
	})
	result, err := s.handleLayout(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, result.IsError)

	var out struct {
		Edges []schema.LayoutEdge `json:"edges"`
	}
	unmarshalResult(t, result, &out)
	assert.Empty(t, out.Edges)
}

func TestLayoutTool_MissingTxHash(t *testing.T) {
	s := newTestServer(newMockStore())

	result, err := s.handleLayout(context.Background(), buildRequest("txlens.layout", map[string]any{}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestLayoutTool_UnknownTransaction(t *testing.T) {
	s := newTestServer(newMockStore())

	req := buildRequest("txlens.layout", map[string]any{"tx_hash": "missing"})
	result, err := s.handleLayout(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, extractText(t, result), "layout failed")
}

func TestExportTool_Mermaid(t *testing.T) {
	ms := newMockStore()
	ms.transactions["abc123"] = cachedTx("abc123",
		`[{"id":"op1","type":"payment"},{"id":"op2","type":"payment"}]`, nil)
	s := newTestServer(ms)

	req := buildRequest("txlens.export", map[string]any{
		"tx_hash": "abc123",
		"format":  "mermaid",
	})
	result, err := s.handleExport(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, result.IsError)

	text := extractText(t, result)
	assert.Contains(t, text, "graph LR")
	assert.Contains(t, text, "op1")
	assert.Contains(t, text, "op1 --> op2")
}

func TestExportTool_Image(t *testing.T) {
	ms := newMockStore()
	ms.transactions["abc123"] = cachedTx("abc123",
		`[{"id":"op1","type":"payment"}]`, nil)
	s := newTestServer(ms)

	req := buildRequest("txlens.export", map[string]any{
		"tx_hash": "abc123",
		"format":  "image",
	})
	result, err := s.handleExport(context.Background(), req)
	require.NoError(t, err)
	require.False(t, result.IsError, extractText(t, result))

	png, decErr := base64.StdEncoding.DecodeString(extractText(t, result))
	require.NoError(t, decErr)
	assert.NotEmpty(t, png)
}

func TestExportTool_BadFormat(t *testing.T) {
	s := newTestServer(newMockStore())

	req := buildRequest("txlens.export", map[string]any{
		"tx_hash": "abc123",
		"format":  "svg",
	})
	result, err := s.handleExport(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestQueryTool(t *testing.T) {
	ms := newMockStore()
	ms.transactions["abc123"] = cachedTx("abc123", `[]`, nil)
	other := cachedTx("def456", `[]`, nil)
	other.Network = "mainnet"
	ms.transactions["def456"] = other
	s := newTestServer(ms)

	req := buildRequest("txlens.query", map[string]any{
		"filter": map[string]any{"network": "mainnet"},
	})
	result, err := s.handleQuery(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, result.IsError)

	var out struct {
		Transactions []map[string]any `json:"transactions"`
	}
	unmarshalResult(t, result, &out)
	require.Len(t, out.Transactions, 1)
	assert.Equal(t, "def456", out.Transactions[0]["hash"])
}

func TestQueryTool_NoFilter(t *testing.T) {
	ms := newMockStore()
	ms.transactions["abc123"] = cachedTx("abc123", `[]`, nil)
	s := newTestServer(ms)

	result, err := s.handleQuery(context.Background(), buildRequest("txlens.query", map[string]any{}))
	require.NoError(t, err)
	assert.False(t, result.IsError)

	var out struct {
		Transactions []map[string]any `json:"transactions"`
	}
	unmarshalResult(t, result, &out)
	assert.Len(t, out.Transactions, 1)
}

func TestToolDefinitions(t *testing.T) {
	s := newTestServer(newMockStore())

	tools := s.tools()
	require.Len(t, tools, 4)

	names := make([]string, 0, len(tools))
	for _, tool := range tools {
		names = append(names, tool.Tool.Name)
	}
	assert.ElementsMatch(t, names,
		[]string{"txlens.trace", "txlens.layout", "txlens.export", "txlens.query"})
}
