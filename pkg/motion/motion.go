// Package motion prepares captured skeletal clips for playback.
//
// A Motion is built once through Create (load, clean, normalize) and is then
// read-only. The package also finds pose-matched transitions between two
// clips (Mix). Everything here is synchronous and CPU bound.
package motion

import (
	"fmt"
	"math"
	"strings"
	"time"
	"weak"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"
	"github.com/tiendc/go-deepcopy"

	"github.com/teslashibe/go-mocap/internal/log"
	"github.com/teslashibe/go-mocap/pkg/vecmath"
)

// MixSeparator marks generated clips: a name containing it is a mix.
const MixSeparator = "_"

// Motion is a skeleton plus a time-ordered sequence of frames.
type Motion struct {
	// ID uniquely identifies this instance.
	ID uuid.UUID

	// Name is the clip identifier (e.g., "run", "walk_run").
	Name string

	// Joints is the skeleton, root first.
	Joints Skeleton

	// Frames holds one rotation per joint per frame.
	Frames []Frame

	// TimeStep is the duration of one frame in seconds.
	TimeStep float64

	maxStep float64
	link    weak.Pointer[Motion]
}

// Loader turns a capture file into a raw Motion (joints, frames, time step).
type Loader interface {
	Load(path string) (*Motion, error)
}

// LoaderFunc adapts a function to the Loader interface.
type LoaderFunc func(path string) (*Motion, error)

// Load calls f(path).
func (f LoaderFunc) Load(path string) (*Motion, error) {
	return f(path)
}

// New returns a raw motion. It does not clean or normalize the frames.
func New(name string, joints Skeleton, frames []Frame, timeStep float64) *Motion {
	return &Motion{
		ID:       uuid.New(),
		Name:     name,
		Joints:   joints,
		Frames:   frames,
		TimeStep: timeStep,
	}
}

// Create loads a capture through loader and prepares it with Prepare.
func Create(loader Loader, name, path string, mode LoopMode, steps int) (*Motion, error) {
	if loader == nil {
		return nil, ErrNilLoader
	}

	m, err := loader.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load motion %q: %w", name, err)
	}
	m.Name = name
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}

	Prepare(m, mode, steps)
	return m, nil
}

// Prepare runs the creation pipeline on a raw motion in place: it records
// the max step, cleans the clip with mode and steps, and normalizes the root.
func Prepare(m *Motion, mode LoopMode, steps int) {
	raw := len(m.Frames)
	m.maxStep = measureMaxStep(m.Frames)
	m.Clean(mode, steps)
	m.normalize()

	log.Info("motion prepared",
		"motion", m.Name,
		"mode", mode.String(),
		"raw_frames", raw,
		"frames", len(m.Frames),
		"max_step", m.maxStep)
}

// measureMaxStep returns the largest root translation between consecutive
// frames, scanning i in [0, N-2). The last gap is not scanned.
func measureMaxStep(frames []Frame) float64 {
	var max float64
	for i := 0; i < len(frames)-2; i++ {
		step := frames[i+1].Translation.Sub(frames[i].Translation).Len()
		if step > max {
			max = step
		}
	}
	return max
}

// normalize shifts root translations so every axis has minimum 0, wraps root
// rotations into [0, 360) and shifts them so every axis has minimum 0.
func (m *Motion) normalize() {
	if len(m.Frames) == 0 {
		return
	}

	translations := make([]mgl64.Vec3, len(m.Frames))
	for i := range m.Frames {
		translations[i] = m.Frames[i].Translation
	}
	minT := vecmath.MinComponents(translations)

	var roots []mgl64.Vec3
	for i := range m.Frames {
		f := &m.Frames[i]
		f.Translation = f.Translation.Sub(minT)
		if len(f.Rotations) == 0 {
			continue
		}
		// frames may share rotation storage with the raw capture
		f.Rotations = append([]mgl64.Vec3(nil), f.Rotations...)
		f.Rotations[0] = vecmath.Wrap360(f.Rotations[0])
		roots = append(roots, f.Rotations[0])
	}
	if len(roots) == 0 {
		return
	}

	minR := vecmath.MinComponents(roots)
	for i := range m.Frames {
		if f := &m.Frames[i]; len(f.Rotations) > 0 {
			f.Rotations[0] = f.Rotations[0].Sub(minR)
		}
	}
}

// MaxStep returns the largest consecutive root translation measured before
// cleaning.
func (m *Motion) MaxStep() float64 {
	return m.maxStep
}

// IsMix reports whether the motion is a generated clip, by naming convention.
func (m *Motion) IsMix() bool {
	return strings.Contains(m.Name, MixSeparator)
}

// Duration returns the playback length of the clip.
func (m *Motion) Duration() time.Duration {
	return time.Duration(float64(len(m.Frames)) * m.TimeStep * float64(time.Second))
}

// Link sets other as the linked layer of m. The link does not keep other
// alive; pass nil to clear it.
func (m *Motion) Link(other *Motion) {
	if other == nil {
		m.link = weak.Pointer[Motion]{}
		return
	}
	m.link = weak.Make(other)
}

// Linked returns the linked motion, or nil if none is set or it was released.
func (m *Motion) Linked() *Motion {
	return m.link.Value()
}

// LinkedFrame blends frame idx of m with the linked motion's frame at the
// same relative position, floor(idx * len(linked)/len(m)).
func (m *Motion) LinkedFrame(idx int, alpha float64) (Frame, error) {
	linked := m.Linked()
	if linked == nil {
		return Frame{}, ErrNotLinked
	}
	if idx < 0 || idx >= len(m.Frames) {
		return Frame{}, fmt.Errorf("%w: %d of %d", ErrFrameOutOfRange, idx, len(m.Frames))
	}
	if len(linked.Frames) == 0 {
		return Frame{}, fmt.Errorf("%w: linked motion %q is empty", ErrFrameOutOfRange, linked.Name)
	}

	factor := float64(len(linked.Frames)) / float64(len(m.Frames))
	cf := int(math.Floor(float64(idx) * factor))
	if cf >= len(linked.Frames) {
		cf = len(linked.Frames) - 1
	}
	return Blend(m.Frames[idx], linked.Frames[cf], alpha), nil
}

// Validate checks the skeleton and that every frame has one rotation per joint.
func (m *Motion) Validate() error {
	if err := m.Joints.Validate(); err != nil {
		return err
	}
	for i, f := range m.Frames {
		if len(f.Rotations) != len(m.Joints) {
			return fmt.Errorf("%w: frame %d has %d rotations for %d joints",
				ErrShapeMismatch, i, len(f.Rotations), len(m.Joints))
		}
	}
	return nil
}

// Clone returns a deep copy of m with a new ID. The link is not copied.
func (m *Motion) Clone() (*Motion, error) {
	c := &Motion{
		ID:       uuid.New(),
		Name:     m.Name,
		TimeStep: m.TimeStep,
		maxStep:  m.maxStep,
	}
	if err := deepcopy.Copy(&c.Joints, m.Joints); err != nil {
		return nil, fmt.Errorf("failed to copy joints: %w", err)
	}
	if err := deepcopy.Copy(&c.Frames, m.Frames); err != nil {
		return nil, fmt.Errorf("failed to copy frames: %w", err)
	}
	return c, nil
}
