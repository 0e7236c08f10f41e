package layout

import (
	"fmt"

	"github.com/rendis/txlens/pkg/schema"
)

// vertical stacks operations into per-group columns. Each group gets a fixed
// column x, its members keep their original chronological order top to
// bottom, and a non-interactive header pseudo-node sits above the first real
// node of the group.
func (e *Engine) vertical(req Request) ([]schema.LayoutNode, []schema.LayoutEdge) {
	groups := Groups(req.Operations)
	if groups == nil {
		return nil, nil
	}

	rowHeight := e.cfg.NodeHeight + e.cfg.NodeGap

	groupSize := make(map[int]int)
	for _, g := range groups {
		groupSize[g]++
	}

	groupCount := groups[len(groups)-1] + 1
	nodes := make([]schema.LayoutNode, 0, len(req.Operations)+groupCount)
	rowInGroup := make(map[int]int)
	for i, op := range req.Operations {
		g := groups[i]
		row := rowInGroup[g]
		if row == 0 {
			nodes = append(nodes, schema.LayoutNode{
				ID:         fmt.Sprintf("group-%d-header", g),
				Label:      headerLabel(op.Type, groupSize[g]),
				Position:   schema.Position{X: float64(g) * e.cfg.ColumnWidth, Y: e.cfg.HeaderY},
				GroupIndex: g,
				Header:     true,
			})
		}
		nodes = append(nodes, schema.LayoutNode{
			ID:             op.ID,
			Label:          op.Type,
			Position:       schema.Position{X: float64(g) * e.cfg.ColumnWidth, Y: e.cfg.GroupTopY + float64(row)*rowHeight},
			ExecutionState: executionState(i, req.Cursor),
			GroupIndex:     g,
		})
		rowInGroup[g] = row + 1
	}

	return nodes, e.chronologicalEdges(req, groups)
}

// headerLabel names a group after its first operation's type, with a
// pluralized count suffix for multi-operation groups.
func headerLabel(opType string, size int) string {
	if size > 1 {
		return fmt.Sprintf("%ss (%d)", opType, size)
	}
	return opType
}
