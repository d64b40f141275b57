package motion

import (
	"fmt"
	"math"
	"strings"

	"github.com/teslashibe/go-mocap/internal/log"
	"github.com/teslashibe/go-mocap/pkg/vecmath"
)

// LoopMode selects how Clean turns a raw capture into a playable clip.
type LoopMode int

const (
	// LoopNone only trims the capture-start frame.
	LoopNone LoopMode = iota

	// Loop keeps every frame and appends a wrap-around transition.
	Loop

	// ShortLoop crops to the best-matching inner segment, then appends a
	// wrap-around transition.
	ShortLoop
)

// String returns the config name of the mode.
func (m LoopMode) String() string {
	switch m {
	case LoopNone:
		return "none"
	case Loop:
		return "loop"
	case ShortLoop:
		return "shortLoop"
	default:
		return "unknown"
	}
}

// ParseLoopMode parses "none", "loop" or "shortLoop" (case-insensitive;
// "short_loop" and "short-loop" are accepted too).
func ParseLoopMode(s string) (LoopMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return LoopNone, nil
	case "loop":
		return Loop, nil
	case "shortloop", "short_loop", "short-loop":
		return ShortLoop, nil
	}
	return LoopNone, fmt.Errorf("%w: %q", ErrInvalidLoopMode, s)
}

// MarshalText implements encoding.TextMarshaler.
func (m LoopMode) MarshalText() ([]byte, error) {
	if m < LoopNone || m > ShortLoop {
		return nil, fmt.Errorf("%w: %d", ErrInvalidLoopMode, int(m))
	}
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *LoopMode) UnmarshalText(text []byte) error {
	mode, err := ParseLoopMode(string(text))
	if err != nil {
		return err
	}
	*m = mode
	return nil
}

// Seam is the loop boundary found by FindSeam: B in the first half of the
// clip, E in the second, with the smallest pose distance between them.
type Seam struct {
	B, E     int
	Distance float64
}

// FindSeam compares every frame of the first half [0, N/2) against every
// frame of the second half [N/2, N) and returns the closest pair. Ties keep
// the lowest B, then the lowest E. ok is false when a half is empty.
func FindSeam(frames []Frame) (seam Seam, ok bool) {
	n := len(frames)
	half := n / 2
	if half == 0 || half == n {
		return Seam{}, false
	}

	sigs := signatures(frames)
	seam.Distance = math.MaxFloat64
	for b := 0; b < half; b++ {
		for e := half; e < n; e++ {
			if d := vecmath.L1(sigs[b], sigs[e]); d < seam.Distance {
				seam = Seam{B: b, E: e, Distance: d}
				ok = true
			}
		}
	}
	return seam, ok
}

// Clean repairs the raw capture in place: the first frame is dropped, and for
// the looping modes a seam is located, the clip optionally cropped to it, and
// a transition from the last frame back to the first is appended.
func (m *Motion) Clean(mode LoopMode, steps int) {
	if len(m.Frames) > 0 {
		m.Frames = m.Frames[1:]
	}
	if mode == LoopNone {
		return
	}

	seam, ok := FindSeam(m.Frames)
	if ok {
		log.Debug("loop seam found", "motion", m.Name, "begin", seam.B, "end", seam.E, "distance", seam.Distance)
	}
	if mode == ShortLoop && ok {
		cropped := make([]Frame, seam.E-seam.B)
		copy(cropped, m.Frames[seam.B:seam.E])
		m.Frames = cropped
	}

	if len(m.Frames) == 0 {
		return
	}
	first := m.Frames[0]
	last := m.Frames[len(m.Frames)-1]
	m.Frames = append(m.Frames, Transition(last, first, steps)...)
}
