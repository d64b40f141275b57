// Package playback steps through a prepared motion in real time.
package playback

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/teslashibe/go-mocap/internal/log"
	"github.com/teslashibe/go-mocap/pkg/motion"
)

var (
	// ErrAlreadyPlaying is returned when trying to play while already playing.
	ErrAlreadyPlaying = errors.New("playback: already playing")

	// ErrEmptyMotion is returned for motions with no frames or no time step.
	ErrEmptyMotion = errors.New("playback: motion has no frames")
)

// State represents the current state of playback.
type State int

const (
	// StateStopped means nothing is playing.
	StateStopped State = iota

	// StatePlaying means a motion is actively playing.
	StatePlaying

	// StatePaused means playback is temporarily paused.
	StatePaused
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	default:
		return "unknown"
	}
}

// Callback is called for each frame during playback.
// Return false to stop playback early.
type Callback func(frame motion.Frame, index int, elapsed time.Duration) bool

// Options configures playback.
type Options struct {
	// Speed multiplier (1.0 = normal, 2.0 = 2x speed).
	Speed float64

	// Loop causes the motion to repeat when finished.
	Loop bool

	// LinkedAlpha blends in the linked motion when greater than zero.
	LinkedAlpha float64
}

// DefaultOptions returns normal-speed, single-pass playback.
func DefaultOptions() Options {
	return Options{Speed: 1.0}
}

// Player plays one motion at a time.
type Player struct {
	mu      sync.RWMutex
	state   State
	motion  *motion.Motion
	startAt time.Time
	played  time.Duration
	stopCh  chan struct{}
}

// NewPlayer creates a stopped player.
func NewPlayer() *Player {
	return &Player{
		state:  StateStopped,
		stopCh: make(chan struct{}),
	}
}

// Play plays m once at normal speed. It blocks until playback completes or
// is stopped.
func (p *Player) Play(ctx context.Context, m *motion.Motion, cb Callback) error {
	return p.PlayWithOptions(ctx, m, cb, DefaultOptions())
}

// PlayWithOptions plays m, calling cb once per motion time step.
func (p *Player) PlayWithOptions(ctx context.Context, m *motion.Motion, cb Callback, opts Options) error {
	if len(m.Frames) == 0 || m.TimeStep <= 0 {
		return ErrEmptyMotion
	}
	if opts.Speed <= 0 {
		opts.Speed = 1
	}

	p.mu.Lock()
	if p.state != StateStopped {
		p.mu.Unlock()
		return ErrAlreadyPlaying
	}
	p.motion = m
	p.state = StatePlaying
	p.startAt = time.Now()
	p.played = 0
	p.stopCh = make(chan struct{})
	stopCh := p.stopCh
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		p.state = StateStopped
		p.mu.Unlock()
	}()

	tick := time.Duration(m.TimeStep / opts.Speed * float64(time.Second))
	if tick <= 0 {
		tick = time.Millisecond
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	log.Debug("playback started", "motion", m.Name, "frames", len(m.Frames), "loop", opts.Loop)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case <-stopCh:
			return nil

		case <-ticker.C:
			if p.State() == StatePaused {
				continue
			}

			elapsed := time.Duration(float64(p.Elapsed()) * opts.Speed)
			frame, idx, done := FrameAt(m, elapsed, opts)
			if !cb(frame, idx, elapsed) || done {
				return nil
			}
		}
	}
}

// FrameAt returns the frame shown elapsed into m, its index, and whether it
// is the final frame of a non-looping pass.
func FrameAt(m *motion.Motion, elapsed time.Duration, opts Options) (motion.Frame, int, bool) {
	n := len(m.Frames)
	if n == 0 || m.TimeStep <= 0 {
		return motion.Frame{}, 0, true
	}

	idx := int(elapsed.Seconds() / m.TimeStep)
	if idx < 0 {
		idx = 0
	}
	done := false
	switch {
	case opts.Loop:
		idx %= n
	case idx >= n-1:
		idx, done = n-1, true
	}

	if opts.LinkedAlpha > 0 && m.Linked() != nil {
		if f, err := m.LinkedFrame(idx, opts.LinkedAlpha); err == nil {
			return f, idx, done
		}
	}
	return m.Frames[idx], idx, done
}

// Stop halts playback immediately.
func (p *Player) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state == StatePlaying || p.state == StatePaused {
		close(p.stopCh)
		p.state = StateStopped
	}
}

// Pause temporarily stops playback.
func (p *Player) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state == StatePlaying {
		p.played += time.Since(p.startAt)
		p.state = StatePaused
	}
}

// Resume continues paused playback.
func (p *Player) Resume() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state == StatePaused {
		p.startAt = time.Now()
		p.state = StatePlaying
	}
}

// State returns the current playback state.
func (p *Player) State() State {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.state
}

// Current returns the motion being played, if any.
func (p *Player) Current() *motion.Motion {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.state == StateStopped {
		return nil
	}
	return p.motion
}

// Elapsed returns unscaled play time, excluding pauses.
func (p *Player) Elapsed() time.Duration {
	p.mu.RLock()
	defer p.mu.RUnlock()

	switch p.state {
	case StateStopped:
		return 0
	case StatePaused:
		return p.played
	default:
		return p.played + time.Since(p.startAt)
	}
}
