package server

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/rendis/txlens/internal/layout"
	"github.com/rendis/txlens/internal/playback"
	"github.com/rendis/txlens/internal/streaming"
	"github.com/rendis/txlens/internal/trace"
	"github.com/rendis/txlens/pkg/schema"
)

// Frame is the per-tick payload streamed to session subscribers: the
// playback snapshot plus the freshly derived node/edge set.
type Frame struct {
	State schema.PlaybackState `json:"state"`
	Nodes []schema.LayoutNode  `json:"nodes"`
	Edges []schema.LayoutEdge  `json:"edges,omitempty"`
}

// Session is one viewing session over a cached transaction. It owns a
// playback controller; layout is recomputed from scratch on every cursor
// change so node/edge state always agrees with the cursor.
type Session struct {
	ID        string
	TxHash    string
	Mode      schema.LayoutMode
	WithEdges bool

	ops    []schema.Operation
	forest []trace.InvocationRecord

	controller *playback.Controller
	wasPlaying atomic.Bool
}

// Frame derives the current frame for the session.
func (s *Session) Frame(engine *layout.Engine) Frame {
	state := s.controller.Snapshot()
	nodes, edges := engine.Compute(layout.Request{
		Mode:       s.Mode,
		Operations: s.ops,
		Forest:     s.forest,
		Cursor:     state.Cursor,
		WithEdges:  s.WithEdges,
	})
	return Frame{State: state, Nodes: nodes, Edges: edges}
}

// SessionManager tracks live viewing sessions and publishes their frames.
type SessionManager struct {
	engine *layout.Engine
	hub    streaming.EventHub
	logger *slog.Logger

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewSessionManager creates an empty SessionManager.
func NewSessionManager(engine *layout.Engine, hub streaming.EventHub, logger *slog.Logger) *SessionManager {
	return &SessionManager{
		engine:   engine,
		hub:      hub,
		logger:   logger,
		sessions: make(map[string]*Session),
	}
}

// Create opens a session over the given operations and trace lines.
// A non-empty parsed trace switches the session to hierarchical layout;
// node count for playback always follows the flat operation list.
func (m *SessionManager) Create(ops []schema.Operation, traceLines []string, mode schema.LayoutMode, speed time.Duration, withEdges bool, txHash string) *Session {
	forest := trace.Hierarchy(trace.Parse(traceLines))

	s := &Session{
		ID:        uuid.New().String(),
		TxHash:    txHash,
		Mode:      mode,
		WithEdges: withEdges,
		ops:       ops,
		forest:    forest,
	}

	s.controller = playback.NewController(len(ops), speed, func(state schema.PlaybackState) {
		m.publishFrame(s, state)
	}, m.logger)

	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()

	m.logger.Info("session created",
		slog.String("session_id", s.ID),
		slog.String("tx_hash", txHash),
		slog.String("mode", string(mode)),
		slog.Int("operations", len(ops)),
		slog.Int("calls", len(forest)),
	)
	return s
}

// Get returns a session by ID, or nil.
func (m *SessionManager) Get(id string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessions[id]
}

// Close tears down a session, cancelling any pending playback tick.
func (m *SessionManager) Close(id string) {
	m.mu.Lock()
	s := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()

	if s != nil {
		s.controller.Close()
		m.logger.Info("session closed", slog.String("session_id", id))
	}
}

// CloseAll tears down every live session.
func (m *SessionManager) CloseAll() {
	m.mu.Lock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	for _, s := range sessions {
		s.controller.Close()
	}
}

// publishFrame pushes a freshly derived frame onto the hub.
func (m *SessionManager) publishFrame(s *Session, state schema.PlaybackState) {
	nodes, edges := m.engine.Compute(layout.Request{
		Mode:       s.Mode,
		Operations: s.ops,
		Forest:     s.forest,
		Cursor:     state.Cursor,
		WithEdges:  s.WithEdges,
	})

	prevPlaying := s.wasPlaying.Swap(state.IsPlaying)
	eventType := schema.EventCursorMoved
	switch {
	case state.IsPlaying && !prevPlaying:
		eventType = schema.EventPlaybackStarted
	case !state.IsPlaying && state.Cursor == state.NodeCount-1:
		eventType = schema.EventPlaybackFinished
	case !state.IsPlaying && state.Cursor < 0:
		eventType = schema.EventPlaybackReset
	case !state.IsPlaying && prevPlaying:
		eventType = schema.EventPlaybackPaused
	}

	err := m.hub.Publish(context.Background(), streaming.StreamEvent{
		SessionID: s.ID,
		TxHash:    s.TxHash,
		EventType: eventType,
		Payload:   Frame{State: state, Nodes: nodes, Edges: edges},
	})
	if err != nil {
		m.logger.Error("publish frame failed",
			slog.String("session_id", s.ID),
			slog.String("error", err.Error()),
		)
	}
}
