package layout

import (
	"github.com/rendis/txlens/internal/trace"
	"github.com/rendis/txlens/pkg/schema"
)

// Config holds the spatial constants for all layout modes.
type Config struct {
	NodeHeight   float64 // box height used for vertical stacking
	NodeGap      float64 // vertical gap between stacked boxes
	LevelWidth   float64 // horizontal distance between hierarchy levels
	LevelOffset  float64 // x of level 0
	ColumnWidth  float64 // horizontal distance between vertical-mode groups
	FlatY        float64 // shared y in horizontal mode
	StaggerLowY  float64 // y of even-index nodes in staggered mode
	StaggerHighY float64 // y of odd-index nodes in staggered mode
	HeaderY      float64 // y of group header pseudo-nodes
	GroupTopY    float64 // y of the first real node in a group
}

// DefaultConfig returns the layout constants used by the rendering layer.
func DefaultConfig() Config {
	return Config{
		NodeHeight:   80,
		NodeGap:      40,
		LevelWidth:   280,
		LevelOffset:  60,
		ColumnWidth:  220,
		FlatY:        200,
		StaggerLowY:  140,
		StaggerHighY: 260,
		HeaderY:      40,
		GroupTopY:    120,
	}
}

// Request carries everything a layout computation depends on. Layout is a
// pure function of the request: identical requests yield structurally
// identical results.
type Request struct {
	Mode       schema.LayoutMode
	Operations []schema.Operation
	Forest     []trace.InvocationRecord
	Cursor     int // -1 means playback not started
	WithEdges  bool
}

// Engine computes node positions and edges for one of the four layout modes.
type Engine struct {
	cfg Config
}

// NewEngine creates an Engine with the given spatial configuration.
func NewEngine(cfg Config) *Engine {
	return &Engine{cfg: cfg}
}

// Compute derives a fresh node/edge set from the request. A non-empty call
// forest takes priority over the requested mode; with no forest the
// hierarchical mode falls through to horizontal. Compute never fails:
// empty or partial input yields an empty or best-effort result.
func (e *Engine) Compute(req Request) ([]schema.LayoutNode, []schema.LayoutEdge) {
	if len(req.Forest) > 0 {
		return e.hierarchical(req)
	}

	switch req.Mode {
	case schema.LayoutModeVertical:
		return e.vertical(req)
	case schema.LayoutModeStaggered:
		return e.staggered(req)
	default:
		return e.horizontal(req)
	}
}

// executionState derives a node's replay state from its ordinal index and
// the execution cursor. With cursor -1 playback has not started and the
// state stays undefined.
func executionState(ordinal, cursor int) schema.ExecutionState {
	switch {
	case cursor < 0:
		return schema.ExecutionStateUndefined
	case ordinal == cursor:
		return schema.ExecutionStateExecuting
	case ordinal < cursor:
		return schema.ExecutionStateCompleted
	default:
		return schema.ExecutionStatePending
	}
}
