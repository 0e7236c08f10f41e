package layout

import (
	"fmt"

	"github.com/rendis/txlens/pkg/schema"
)

// horizontal keeps each operation's supplied x and aligns everything on a
// single axis.
func (e *Engine) horizontal(req Request) ([]schema.LayoutNode, []schema.LayoutEdge) {
	nodes := make([]schema.LayoutNode, 0, len(req.Operations))
	for i, op := range req.Operations {
		nodes = append(nodes, schema.LayoutNode{
			ID:             op.ID,
			Label:          op.Type,
			Position:       schema.Position{X: op.Position.X, Y: e.cfg.FlatY},
			ExecutionState: executionState(i, req.Cursor),
		})
	}
	return nodes, e.chronologicalEdges(req, nil)
}

// staggered keeps the supplied x and alternates y by ordinal parity.
func (e *Engine) staggered(req Request) ([]schema.LayoutNode, []schema.LayoutEdge) {
	nodes := make([]schema.LayoutNode, 0, len(req.Operations))
	for i, op := range req.Operations {
		y := e.cfg.StaggerLowY
		if i%2 == 1 {
			y = e.cfg.StaggerHighY
		}
		nodes = append(nodes, schema.LayoutNode{
			ID:             op.ID,
			Label:          op.Type,
			Position:       schema.Position{X: op.Position.X, Y: y},
			ExecutionState: executionState(i, req.Cursor),
		})
	}
	return nodes, e.chronologicalEdges(req, nil)
}

// chronologicalEdges connects consecutive operations in original order.
// When groups is non-nil (vertical mode) each edge is tagged with whether
// both endpoints share a group.
func (e *Engine) chronologicalEdges(req Request, groups []int) []schema.LayoutEdge {
	if !req.WithEdges || len(req.Operations) < 2 {
		return nil
	}

	edges := make([]schema.LayoutEdge, 0, len(req.Operations)-1)
	for i := 1; i < len(req.Operations); i++ {
		prev, cur := req.Operations[i-1], req.Operations[i]
		edge := schema.LayoutEdge{
			ID:     fmt.Sprintf("edge-%s-%s", prev.ID, cur.ID),
			Source: prev.ID,
			Target: cur.ID,
			Active: req.Cursor >= 0 && i-1 <= req.Cursor,
		}
		if groups != nil {
			edge.SameGroup = groups[i-1] == groups[i]
		}
		edges = append(edges, edge)
	}
	return edges
}
