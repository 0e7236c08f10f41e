package playback

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/rendis/txlens/pkg/schema"
)

// DefaultSpeed is the tick interval used when none is configured.
const DefaultSpeed = time.Second

// Phase is the derived lifecycle state of a controller.
type Phase string

const (
	PhaseIdle     Phase = "idle"     // cursor = -1
	PhaseStepping Phase = "stepping" // cursor in [0, N-1], not playing
	PhasePlaying  Phase = "playing"
	PhaseFinished Phase = "finished" // cursor = N-1
)

// TickFunc is invoked after every cursor change, manual or timer-driven,
// with a snapshot of the new state.
type TickFunc func(state schema.PlaybackState)

// Controller is the execution-replay state machine. It owns an integer
// cursor over the flat operation sequence and a cancellable tick timer.
// It never touches node or edge structures; the layout engine turns the
// cursor into per-node state.
type Controller struct {
	mu        sync.Mutex
	nodeCount int
	cursor    int
	playing   bool
	speed     time.Duration
	onTick    TickFunc
	logger    *slog.Logger

	cancel context.CancelFunc
	done   chan struct{}
}

// NewController creates a Controller over nodeCount nodes in the Idle state.
// onTick may be nil. A non-positive speed falls back to DefaultSpeed.
func NewController(nodeCount int, speed time.Duration, onTick TickFunc, logger *slog.Logger) *Controller {
	if speed <= 0 {
		speed = DefaultSpeed
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		nodeCount: nodeCount,
		cursor:    -1,
		speed:     speed,
		onTick:    onTick,
		logger:    logger,
	}
}

// Snapshot returns a read-only copy of the playback state.
func (c *Controller) Snapshot() schema.PlaybackState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Controller) snapshotLocked() schema.PlaybackState {
	return schema.PlaybackState{
		Cursor:    c.cursor,
		NodeCount: c.nodeCount,
		IsPlaying: c.playing,
		SpeedMs:   int(c.speed / time.Millisecond),
	}
}

// Phase derives the lifecycle state from cursor and playing flag.
func (c *Controller) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch {
	case c.playing:
		return PhasePlaying
	case c.cursor < 0:
		return PhaseIdle
	case c.cursor == c.nodeCount-1:
		return PhaseFinished
	default:
		return PhaseStepping
	}
}

// StepForward advances the cursor by one. A step past the last node is a
// clamped no-op, never an error.
func (c *Controller) StepForward() schema.PlaybackState {
	c.mu.Lock()
	moved := false
	if c.cursor < c.nodeCount-1 {
		c.cursor++
		moved = true
	}
	state := c.snapshotLocked()
	c.mu.Unlock()

	if moved {
		c.notify(state)
	}
	return state
}

// StepBackward moves the cursor back by one, stopping at -1.
func (c *Controller) StepBackward() schema.PlaybackState {
	c.mu.Lock()
	moved := false
	if c.cursor > -1 {
		c.cursor--
		moved = true
	}
	state := c.snapshotLocked()
	c.mu.Unlock()

	if moved {
		c.notify(state)
	}
	return state
}

// PlayPause toggles timer-driven playback. Invoked at the final cursor it
// rewinds to -1 before starting, so replay restarts from the beginning.
func (c *Controller) PlayPause() schema.PlaybackState {
	c.mu.Lock()
	if c.playing {
		c.stopLoopLocked()
		c.playing = false
		state := c.snapshotLocked()
		c.mu.Unlock()
		c.notify(state)
		return state
	}

	if c.cursor == c.nodeCount-1 {
		c.cursor = -1
	}
	c.playing = true
	c.startLoopLocked()
	state := c.snapshotLocked()
	c.mu.Unlock()

	c.notify(state)
	return state
}

// Reset rewinds to Idle and cancels any pending tick.
func (c *Controller) Reset() schema.PlaybackState {
	c.mu.Lock()
	c.stopLoopLocked()
	c.cursor = -1
	c.playing = false
	state := c.snapshotLocked()
	c.mu.Unlock()

	c.notify(state)
	return state
}

// SetSpeed changes the tick interval. Non-positive values are ignored.
// The new interval applies from the next scheduled tick.
func (c *Controller) SetSpeed(speed time.Duration) {
	if speed <= 0 {
		return
	}
	c.mu.Lock()
	c.speed = speed
	c.mu.Unlock()
}

// Close cancels any pending tick unconditionally. It is idempotent and
// side-effect-free beyond stopping the timer; a closed controller still
// answers Snapshot.
func (c *Controller) Close() {
	c.mu.Lock()
	c.stopLoopLocked()
	c.playing = false
	c.mu.Unlock()
}

// startLoopLocked launches the tick loop. Any previous loop is cancelled
// first so a stale timer can never advance the cursor.
func (c *Controller) startLoopLocked() {
	c.stopLoopLocked()

	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.done = make(chan struct{})
	go c.loop(ctx, c.done)
}

// stopLoopLocked cancels the tick loop and waits for it to exit.
func (c *Controller) stopLoopLocked() {
	if c.cancel == nil {
		return
	}
	c.cancel()
	done := c.done
	c.cancel = nil
	c.done = nil

	// The loop never takes c.mu while we hold it here except inside advance,
	// which is serialized by the same mutex; release before waiting.
	c.mu.Unlock()
	<-done
	c.mu.Lock()
}

// loop fires a tick every speed interval until playback finishes or the
// loop is cancelled.
func (c *Controller) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	for {
		c.mu.Lock()
		interval := c.speed
		c.mu.Unlock()

		timer := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			if !c.advance(ctx) {
				return
			}
		}
	}
}

// advance performs one timer-driven step. Returns false once the last node
// is reached, which also flips playing off.
func (c *Controller) advance(ctx context.Context) bool {
	c.mu.Lock()
	if err := ctx.Err(); err != nil {
		c.mu.Unlock()
		return false
	}
	if !c.playing {
		c.mu.Unlock()
		return false
	}

	if c.cursor < c.nodeCount-1 {
		c.cursor++
	}
	finished := c.cursor >= c.nodeCount-1
	if finished {
		c.playing = false
		c.cancel = nil // loop exits on its own; nothing left to cancel
		c.done = nil
	}
	state := c.snapshotLocked()
	c.mu.Unlock()

	c.notify(state)
	return !finished
}

func (c *Controller) notify(state schema.PlaybackState) {
	if c.onTick != nil {
		c.onTick(state)
	}
}
