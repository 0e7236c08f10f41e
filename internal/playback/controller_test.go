package playback

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rendis/txlens/pkg/schema"
)

func TestNewController_StartsIdle(t *testing.T) {
	c := NewController(5, time.Second, nil, nil)

	state := c.Snapshot()
	assert.Equal(t, -1, state.Cursor)
	assert.Equal(t, 5, state.NodeCount)
	assert.False(t, state.IsPlaying)
	assert.Equal(t, 1000, state.SpeedMs)
	assert.Equal(t, PhaseIdle, c.Phase())
}

func TestNewController_NonPositiveSpeedDefaults(t *testing.T) {
	c := NewController(3, 0, nil, nil)
	assert.Equal(t, int(DefaultSpeed/time.Millisecond), c.Snapshot().SpeedMs)
}

func TestStepForward_AdvancesAndClamps(t *testing.T) {
	c := NewController(2, time.Second, nil, nil)

	assert.Equal(t, 0, c.StepForward().Cursor)
	assert.Equal(t, 1, c.StepForward().Cursor)
	assert.Equal(t, PhaseFinished, c.Phase())

	// Past the last node: clamped no-op, never an error.
	assert.Equal(t, 1, c.StepForward().Cursor)
}

func TestStepBackward_RewindsAndClamps(t *testing.T) {
	c := NewController(3, time.Second, nil, nil)
	c.StepForward()
	c.StepForward()

	assert.Equal(t, 0, c.StepBackward().Cursor)
	assert.Equal(t, -1, c.StepBackward().Cursor)
	assert.Equal(t, -1, c.StepBackward().Cursor)
	assert.Equal(t, PhaseIdle, c.Phase())
}

func TestStep_NotifiesOnlyOnMovement(t *testing.T) {
	var ticks []schema.PlaybackState
	c := NewController(1, time.Second, func(s schema.PlaybackState) {
		ticks = append(ticks, s)
	}, nil)

	c.StepForward() // moves to 0
	c.StepForward() // clamped, no notification
	c.StepBackward()
	c.StepBackward() // clamped, no notification

	require.Len(t, ticks, 2)
	assert.Equal(t, 0, ticks[0].Cursor)
	assert.Equal(t, -1, ticks[1].Cursor)
}

func TestPlayPause_Toggles(t *testing.T) {
	c := NewController(10, time.Hour, nil, nil)
	defer c.Close()

	state := c.PlayPause()
	assert.True(t, state.IsPlaying)
	assert.Equal(t, PhasePlaying, c.Phase())

	state = c.PlayPause()
	assert.False(t, state.IsPlaying)
}

func TestPlayPause_AtEndRewindsBeforePlaying(t *testing.T) {
	c := NewController(2, time.Hour, nil, nil)
	defer c.Close()

	c.StepForward()
	c.StepForward()
	require.Equal(t, 1, c.Snapshot().Cursor)

	state := c.PlayPause()
	assert.Equal(t, -1, state.Cursor)
	assert.True(t, state.IsPlaying)
}

func TestAutoPlay_RunsToCompletion(t *testing.T) {
	ticks := make(chan schema.PlaybackState, 32)
	c := NewController(5, 5*time.Millisecond, func(s schema.PlaybackState) {
		ticks <- s
	}, nil)
	defer c.Close()

	c.PlayPause()

	deadline := time.After(2 * time.Second)
	var last schema.PlaybackState
	for {
		select {
		case last = <-ticks:
		case <-deadline:
			t.Fatalf("playback did not finish, last state %+v", last)
		}
		if last.Cursor == 4 && !last.IsPlaying {
			assert.Equal(t, PhaseFinished, c.Phase())
			return
		}
	}
}

func TestAutoPlay_TickCursorsAreMonotonic(t *testing.T) {
	ticks := make(chan schema.PlaybackState, 32)
	c := NewController(3, 5*time.Millisecond, func(s schema.PlaybackState) {
		ticks <- s
	}, nil)
	defer c.Close()

	c.PlayPause()

	prev := -2
	deadline := time.After(2 * time.Second)
	for {
		select {
		case s := <-ticks:
			assert.GreaterOrEqual(t, s.Cursor, prev)
			prev = s.Cursor
			if s.Cursor == 2 && !s.IsPlaying {
				return
			}
		case <-deadline:
			t.Fatal("playback did not finish")
		}
	}
}

func TestReset_RewindsAndStopsTimer(t *testing.T) {
	c := NewController(5, time.Hour, nil, nil)
	c.StepForward()
	c.PlayPause()

	state := c.Reset()
	assert.Equal(t, -1, state.Cursor)
	assert.False(t, state.IsPlaying)
	assert.Equal(t, PhaseIdle, c.Phase())
}

func TestSetSpeed_IgnoresNonPositive(t *testing.T) {
	c := NewController(5, time.Second, nil, nil)

	c.SetSpeed(0)
	assert.Equal(t, 1000, c.Snapshot().SpeedMs)
	c.SetSpeed(-time.Second)
	assert.Equal(t, 1000, c.Snapshot().SpeedMs)

	c.SetSpeed(250 * time.Millisecond)
	assert.Equal(t, 250, c.Snapshot().SpeedMs)
}

func TestClose_CancelsPendingTick(t *testing.T) {
	var ticked bool
	c := NewController(5, 20*time.Millisecond, func(s schema.PlaybackState) {
		if s.Cursor >= 0 {
			ticked = true
		}
	}, nil)

	c.PlayPause()
	c.Close()
	cursorAtClose := c.Snapshot().Cursor

	// A cancelled timer must never advance the cursor afterwards.
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, cursorAtClose, c.Snapshot().Cursor)
	assert.False(t, c.Snapshot().IsPlaying)
	_ = ticked
}

func TestClose_Idempotent(t *testing.T) {
	c := NewController(3, time.Second, nil, nil)
	c.Close()
	c.Close()
	assert.Equal(t, -1, c.Snapshot().Cursor)
}

func TestZeroNodes(t *testing.T) {
	c := NewController(0, time.Second, nil, nil)
	defer c.Close()

	assert.Equal(t, -1, c.StepForward().Cursor)
	assert.Equal(t, -1, c.StepBackward().Cursor)
}
