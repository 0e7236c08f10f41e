package server

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rendis/txlens/internal/layout"
	"github.com/rendis/txlens/internal/streaming"
	"github.com/rendis/txlens/pkg/schema"
)

func newTestManager() (*SessionManager, streaming.EventHub) {
	hub := streaming.NewMemoryHub()
	engine := layout.NewEngine(layout.DefaultConfig())
	return NewSessionManager(engine, hub, slog.Default()), hub
}

func sessionOps() []schema.Operation {
	return []schema.Operation{
		{ID: "op1", Type: "payment", From: "A", To: "B"},
		{ID: "op2", Type: "payment", From: "B", To: "C"},
	}
}

func TestSessionManager_CreateAndGet(t *testing.T) {
	m, _ := newTestManager()
	defer m.CloseAll()

	sess := m.Create(sessionOps(), nil, schema.LayoutModeHorizontal, time.Hour, true, "abc123")
	require.NotEmpty(t, sess.ID)
	assert.Equal(t, "abc123", sess.TxHash)

	assert.Same(t, sess, m.Get(sess.ID))
	assert.Nil(t, m.Get("missing"))
}

func TestSessionManager_FrameDerivesFromCursor(t *testing.T) {
	m, _ := newTestManager()
	defer m.CloseAll()

	sess := m.Create(sessionOps(), nil, schema.LayoutModeHorizontal, time.Hour, true, "abc123")
	engine := layout.NewEngine(layout.DefaultConfig())

	frame := sess.Frame(engine)
	assert.Equal(t, -1, frame.State.Cursor)
	assert.Equal(t, schema.ExecutionStateUndefined, frame.Nodes[0].ExecutionState)

	sess.controller.StepForward()
	frame = sess.Frame(engine)
	assert.Equal(t, 0, frame.State.Cursor)
	assert.Equal(t, schema.ExecutionStateExecuting, frame.Nodes[0].ExecutionState)
	assert.Equal(t, schema.ExecutionStatePending, frame.Nodes[1].ExecutionState)
}

func TestSessionManager_TraceForcesHierarchy(t *testing.T) {
	m, _ := newTestManager()
	defer m.CloseAll()

	traceLines := []string{
		"GABC invoked contract CXYZ swap(100, 50) → 48",
		" Invoked contract CDEF transfer(A, B, 100)",
	}
	sess := m.Create(sessionOps(), traceLines, schema.LayoutModeHorizontal, time.Hour, true, "abc123")

	frame := sess.Frame(layout.NewEngine(layout.DefaultConfig()))
	require.Len(t, frame.Nodes, 2)
	assert.Equal(t, "call-0", frame.Nodes[0].ID)
}

func TestSessionManager_PublishesStepEvents(t *testing.T) {
	m, hub := newTestManager()
	defer m.CloseAll()

	ch, cancel, err := hub.Subscribe(context.Background(), streaming.EventFilter{})
	require.NoError(t, err)
	defer cancel()

	sess := m.Create(sessionOps(), nil, schema.LayoutModeHorizontal, time.Hour, true, "abc123")

	sess.controller.StepForward()
	event := waitForEvent(t, ch)
	assert.Equal(t, sess.ID, event.SessionID)
	assert.Equal(t, "abc123", event.TxHash)
	assert.Equal(t, schema.EventCursorMoved, event.EventType)

	frame, ok := event.Payload.(Frame)
	require.True(t, ok)
	assert.Equal(t, 0, frame.State.Cursor)
	assert.Len(t, frame.Nodes, 2)

	// Final step lands on the last node: finished.
	sess.controller.StepForward()
	event = waitForEvent(t, ch)
	assert.Equal(t, schema.EventPlaybackFinished, event.EventType)
}

func TestSessionManager_PublishesPlayPauseEvents(t *testing.T) {
	m, hub := newTestManager()
	defer m.CloseAll()

	ch, cancel, err := hub.Subscribe(context.Background(), streaming.EventFilter{})
	require.NoError(t, err)
	defer cancel()

	sess := m.Create(sessionOps(), nil, schema.LayoutModeHorizontal, time.Hour, true, "abc123")

	sess.controller.StepForward()
	assert.Equal(t, schema.EventCursorMoved, waitForEvent(t, ch).EventType)

	sess.controller.PlayPause()
	assert.Equal(t, schema.EventPlaybackStarted, waitForEvent(t, ch).EventType)

	sess.controller.PlayPause()
	assert.Equal(t, schema.EventPlaybackPaused, waitForEvent(t, ch).EventType)

	sess.controller.Reset()
	assert.Equal(t, schema.EventPlaybackReset, waitForEvent(t, ch).EventType)
}

func TestSessionManager_Close(t *testing.T) {
	m, _ := newTestManager()

	sess := m.Create(sessionOps(), nil, schema.LayoutModeHorizontal, time.Hour, true, "abc123")
	m.Close(sess.ID)
	assert.Nil(t, m.Get(sess.ID))

	// Closing an unknown session is a no-op.
	m.Close("missing")
}

func TestSessionManager_CloseAll(t *testing.T) {
	m, _ := newTestManager()

	first := m.Create(sessionOps(), nil, schema.LayoutModeHorizontal, time.Hour, true, "abc123")
	second := m.Create(sessionOps(), nil, schema.LayoutModeVertical, time.Hour, true, "def456")

	m.CloseAll()
	assert.Nil(t, m.Get(first.ID))
	assert.Nil(t, m.Get(second.ID))
}

func waitForEvent(t *testing.T, ch <-chan streaming.StreamEvent) streaming.StreamEvent {
	t.Helper()
	select {
	case event := <-ch:
		return event
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for stream event")
		return streaming.StreamEvent{}
	}
}
