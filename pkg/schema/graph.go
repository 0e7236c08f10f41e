package schema

// LayoutMode selects one of the four spatial layout strategies.
type LayoutMode string

const (
	LayoutModeHorizontal   LayoutMode = "horizontal"
	LayoutModeStaggered    LayoutMode = "staggered"
	LayoutModeVertical     LayoutMode = "vertical"
	LayoutModeHierarchical LayoutMode = "hierarchical"
)

// ExecutionState is the replay-derived visual state of a node.
type ExecutionState string

const (
	ExecutionStateUndefined ExecutionState = ""
	ExecutionStatePending   ExecutionState = "pending"
	ExecutionStateExecuting ExecutionState = "executing"
	ExecutionStateCompleted ExecutionState = "completed"
	ExecutionStateFailed    ExecutionState = "failed"
)

// Position is a 2-D layout coordinate.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// LayoutNode is one positioned node of the computed graph.
type LayoutNode struct {
	ID             string         `json:"id"`
	Label          string         `json:"label,omitempty"`
	Position       Position       `json:"position"`
	ExecutionState ExecutionState `json:"execution_state,omitempty"`
	GroupIndex     int            `json:"group_index,omitempty"` // vertical mode
	Level          int            `json:"level,omitempty"`       // hierarchical mode
	Header         bool           `json:"header,omitempty"`      // non-interactive group header
}

// LayoutEdge connects two layout nodes. Active and SameGroup are the
// categorical inputs to edge styling; styling itself lives downstream.
type LayoutEdge struct {
	ID        string `json:"id"`
	Source    string `json:"source"`
	Target    string `json:"target"`
	Active    bool   `json:"active"`
	SameGroup bool   `json:"same_group,omitempty"` // vertical mode
}

// PlaybackState is a read-only snapshot of the replay controller.
// Cursor is -1 when playback has not started.
type PlaybackState struct {
	Cursor    int  `json:"cursor"`
	NodeCount int  `json:"node_count"`
	IsPlaying bool `json:"is_playing"`
	SpeedMs   int  `json:"speed_ms"`
}

// Stream event types published on the frame hub.
const (
	EventLayoutUpdated    = "layout_updated"
	EventCursorMoved      = "cursor_moved"
	EventPlaybackStarted  = "playback_started"
	EventPlaybackPaused   = "playback_paused"
	EventPlaybackFinished = "playback_finished"
	EventPlaybackReset    = "playback_reset"
)
