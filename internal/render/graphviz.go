package render

import (
	"bytes"
	"context"
	"fmt"

	"github.com/goccy/go-graphviz"
	"github.com/goccy/go-graphviz/cgraph"

	"github.com/rendis/txlens/pkg/schema"
)

// Image renders a computed layout as a PNG image using graphviz.
// Returns the PNG bytes. Like Mermaid, this is a static export; the
// interactive renderer consumes the positioned nodes directly.
func Image(title string, nodes []schema.LayoutNode, edges []schema.LayoutEdge) ([]byte, error) {
	ctx := context.Background()

	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("render: create graphviz: %w", err)
	}
	defer gv.Close()

	gv.SetLayout(graphviz.DOT)

	graph, err := gv.Graph()
	if err != nil {
		return nil, fmt.Errorf("render: create graph: %w", err)
	}
	defer graph.Close()

	graph.SetRankDir(cgraph.LRRank)
	if title != "" {
		graph.SetLabel(title)
	}

	// Create nodes.
	gvNodes := make(map[string]*cgraph.Node, len(nodes))
	for _, node := range nodes {
		gvNode, nErr := graph.CreateNodeByName(node.ID)
		if nErr != nil {
			return nil, fmt.Errorf("render: create node %s: %w", node.ID, nErr)
		}
		label := node.Label
		if label == "" {
			label = node.ID
		}
		gvNode.SetLabel(label)
		applyNodeStyle(gvNode, &node)
		gvNodes[node.ID] = gvNode
	}

	// Create edges. Cross-group connections are dashed, inactive ones dimmed.
	for _, edge := range edges {
		fromGV, toGV := gvNodes[edge.Source], gvNodes[edge.Target]
		if fromGV == nil || toGV == nil {
			continue
		}
		e, eErr := graph.CreateEdgeByName("", fromGV, toGV)
		if eErr != nil {
			continue
		}
		if !edge.SameGroup {
			e.SetStyle(cgraph.DashedEdgeStyle)
		}
		if !edge.Active {
			e.SetColor("#bbbbbb")
		}
	}

	// Render to PNG.
	var buf bytes.Buffer
	if err := gv.Render(ctx, graph, graphviz.PNG, &buf); err != nil {
		return nil, fmt.Errorf("render: render PNG: %w", err)
	}

	return buf.Bytes(), nil
}

// applyNodeStyle sets graphviz attributes based on node role and state.
func applyNodeStyle(gvNode *cgraph.Node, node *schema.LayoutNode) {
	if node.Header {
		gvNode.SetShape(cgraph.BoxShape)
		gvNode.SetStyle(cgraph.DashedNodeStyle)
		return
	}
	gvNode.SetShape(cgraph.BoxShape)

	switch node.ExecutionState {
	case schema.ExecutionStateCompleted:
		gvNode.SetStyle(cgraph.FilledNodeStyle)
		gvNode.SetFillColor("#2d6a2d")
		gvNode.SetFontColor("white")
	case schema.ExecutionStateExecuting:
		gvNode.SetStyle(cgraph.FilledNodeStyle)
		gvNode.SetFillColor("#1a5276")
		gvNode.SetFontColor("white")
	case schema.ExecutionStateFailed:
		gvNode.SetStyle(cgraph.FilledNodeStyle)
		gvNode.SetFillColor("#8b1a1a")
		gvNode.SetFontColor("white")
	case schema.ExecutionStatePending:
		gvNode.SetStyle(cgraph.FilledNodeStyle)
		gvNode.SetFillColor("#d3d3d3")
		gvNode.SetFontColor("black")
	}
}
