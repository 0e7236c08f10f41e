package render

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rendis/txlens/pkg/schema"
)

func TestMermaid_BasicFlowchart(t *testing.T) {
	nodes := []schema.LayoutNode{
		{ID: "op1", Label: "payment", ExecutionState: schema.ExecutionStateCompleted},
		{ID: "op2", Label: "create_account", ExecutionState: schema.ExecutionStateExecuting},
	}
	edges := []schema.LayoutEdge{
		{ID: "edge-op1-op2", Source: "op1", Target: "op2", Active: true},
	}

	out := Mermaid("abc123", nodes, edges)

	assert.True(t, strings.HasPrefix(out, "graph LR\n"))
	assert.Contains(t, out, "%% abc123")
	assert.Contains(t, out, `op1["payment"]`)
	assert.Contains(t, out, `op2["create_account"]`)
	assert.Contains(t, out, "op1 --> op2")
	assert.Contains(t, out, "class op1 completed")
	assert.Contains(t, out, "class op2 executing")
}

func TestMermaid_HeaderNodesUseSubroutineShape(t *testing.T) {
	nodes := []schema.LayoutNode{
		{ID: "group-0-header", Label: "payments (2)", Header: true},
		{ID: "op1", Label: "payment", GroupIndex: 0},
	}

	out := Mermaid("", nodes, nil)
	assert.Contains(t, out, `group_0_header[["payments (2)"]]`)
}

func TestMermaid_CrossGroupEdgesDashed(t *testing.T) {
	nodes := []schema.LayoutNode{
		{ID: "group-0-header", Header: true},
		{ID: "op1", GroupIndex: 0},
		{ID: "op2", GroupIndex: 1},
	}
	edges := []schema.LayoutEdge{
		{Source: "op1", Target: "op2", SameGroup: false},
	}

	out := Mermaid("", nodes, edges)
	assert.Contains(t, out, "op1 -.-> op2")
}

func TestMermaid_UndefinedStateGetsNoClass(t *testing.T) {
	nodes := []schema.LayoutNode{
		{ID: "op1", Label: "payment"},
	}

	out := Mermaid("", nodes, nil)
	assert.NotContains(t, out, "class op1")
}

func TestMermaid_SanitizesIDs(t *testing.T) {
	nodes := []schema.LayoutNode{
		{ID: "call-0", Label: "CXYZ.swap"},
		{ID: "call-1", Label: "CDEF.transfer"},
	}
	edges := []schema.LayoutEdge{
		{Source: "call-0", Target: "call-1"},
	}

	out := Mermaid("", nodes, edges)
	assert.Contains(t, out, `call_0["CXYZ.swap"]`)
	assert.Contains(t, out, "call_0 --> call_1")
}
