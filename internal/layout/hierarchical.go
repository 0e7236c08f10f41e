package layout

import (
	"fmt"

	"github.com/rendis/txlens/internal/trace"
	"github.com/rendis/txlens/pkg/schema"
)

// hierarchical lays out a call forest left to right by nesting depth.
// Records in the same level are stacked vertically and every level is
// centered within the tallest level's extent.
func (e *Engine) hierarchical(req Request) ([]schema.LayoutNode, []schema.LayoutEdge) {
	buckets := trace.LevelBuckets(req.Forest)
	if len(buckets) == 0 {
		return nil, nil
	}

	rowHeight := e.cfg.NodeHeight + e.cfg.NodeGap

	maxHeight := 0.0
	for _, bucket := range buckets {
		if h := float64(len(bucket)) * rowHeight; h > maxHeight {
			maxHeight = h
		}
	}

	// Ordinal index of each record in forest order drives execution state.
	ordinals := make(map[string]int, len(req.Forest))
	for i, rec := range req.Forest {
		ordinals[rec.ID] = i
	}

	nodes := make([]schema.LayoutNode, 0, len(req.Forest))
	for level, bucket := range buckets {
		top := (maxHeight - float64(len(bucket))*rowHeight) / 2
		for i, rec := range bucket {
			nodes = append(nodes, schema.LayoutNode{
				ID:    rec.ID,
				Label: rec.ContractRef + "." + rec.FunctionName,
				Position: schema.Position{
					X: float64(level)*e.cfg.LevelWidth + e.cfg.LevelOffset,
					Y: top + float64(i)*rowHeight,
				},
				ExecutionState: executionState(ordinals[rec.ID], req.Cursor),
				Level:          level,
			})
		}
	}

	if !req.WithEdges {
		return nodes, nil
	}

	// Connect each node at level L to a node at level L-1 by proportional
	// index mapping. Under irregular fan-out this can attach a child to a
	// neighbor of its true caller; consumers only rely on level adjacency.
	var edges []schema.LayoutEdge
	for level := 1; level < len(buckets); level++ {
		children, parents := buckets[level], buckets[level-1]
		if len(parents) == 0 {
			continue
		}
		ratio := float64(len(children)) / float64(len(parents))
		if ratio < 1 {
			ratio = 1
		}
		for i, child := range children {
			parentIdx := int(float64(i) / ratio)
			if parentIdx >= len(parents) {
				parentIdx = len(parents) - 1
			}
			parent := parents[parentIdx]
			edges = append(edges, schema.LayoutEdge{
				ID:     fmt.Sprintf("edge-%s-%s", parent.ID, child.ID),
				Source: parent.ID,
				Target: child.ID,
				Active: req.Cursor >= 0 && ordinals[parent.ID] <= req.Cursor,
			})
		}
	}

	return nodes, edges
}
