package motion

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/teslashibe/go-mocap/internal/log"
	"github.com/teslashibe/go-mocap/pkg/vecmath"
)

// Transition step limits. Steps outside the range are clamped.
const (
	MinTransitionSteps = 2
	MaxTransitionSteps = 100

	// transitionStart is the first alpha sampled; the start frame itself is
	// never emitted.
	transitionStart = 0.1
)

// Blend interpolates f1 toward f2 at alpha. Alpha is not clamped.
// If the frames disagree on rotation count a warning is logged and the
// rotations of the common prefix are returned.
func Blend(f1, f2 Frame, alpha float64) Frame {
	f, err := BlendStrict(f1, f2, alpha)
	if err != nil {
		log.Warn("blend produced a partial frame", "error", err)
	}
	return f
}

// BlendStrict is Blend, but reports a rotation count mismatch as
// ErrShapeMismatch alongside the partial frame.
func BlendStrict(f1, f2 Frame, alpha float64) (Frame, error) {
	n := len(f1.Rotations)
	if len(f2.Rotations) < n {
		n = len(f2.Rotations)
	}

	f := Frame{
		Translation: vecmath.LerpVec3(f1.Translation, f2.Translation, alpha),
		Rotations:   make([]mgl64.Vec3, n),
	}
	for i := 0; i < n; i++ {
		f.Rotations[i] = vecmath.LerpVec3(f1.Rotations[i], f2.Rotations[i], alpha)
	}

	if len(f1.Rotations) != len(f2.Rotations) {
		return f, fmt.Errorf("%w: %d vs %d joints", ErrShapeMismatch, len(f1.Rotations), len(f2.Rotations))
	}
	return f, nil
}

// Transition returns frames moving from f1 toward f2. Steps below 1 yield no
// frames; otherwise steps is clamped to [MinTransitionSteps, MaxTransitionSteps]
// and alpha runs from 0.1 in increments of 1/steps while it is <= 1.
func Transition(f1, f2 Frame, steps int) []Frame {
	alphas := transitionAlphas(steps)
	frames := make([]Frame, 0, len(alphas))
	for _, alpha := range alphas {
		frames = append(frames, Blend(f1, f2, alpha))
	}
	return frames
}

// transitionAlphas returns the blend factors Transition samples. Alpha is
// accumulated, not multiplied out; the sample count depends on it.
func transitionAlphas(steps int) []float64 {
	if steps < 1 {
		return nil
	}
	step := 1.0 / vecmath.Clamp(float64(steps), MinTransitionSteps, MaxTransitionSteps)

	var alphas []float64
	for alpha := transitionStart; alpha <= 1.0; alpha += step {
		alphas = append(alphas, alpha)
	}
	return alphas
}
