package motion

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/teslashibe/go-mocap/pkg/vecmath"
)

// Frame is one sample of a clip: a rotation per joint (index 0 is the root)
// and the root translation. Rotations are Euler angles in degrees.
type Frame struct {
	Rotations   []mgl64.Vec3
	Translation mgl64.Vec3
}

// Clone returns a copy of f that shares no memory with it.
func (f Frame) Clone() Frame {
	rot := make([]mgl64.Vec3, len(f.Rotations))
	copy(rot, f.Rotations)
	return Frame{Rotations: rot, Translation: f.Translation}
}

// Weights scales the three terms of a pose signature.
type Weights struct {
	Translation  float64
	RootRotation float64
	Joints       float64
}

// DefaultWeights ignores translation and root rotation, so a signature is the
// sum of the non-root joint rotations.
var DefaultWeights = Weights{Translation: 0, RootRotation: 0, Joints: 1}

// Signature reduces f to a comparable vector using DefaultWeights.
func (f Frame) Signature() mgl64.Vec3 {
	return f.SignatureWith(DefaultWeights)
}

// SignatureWith reduces f to
//
//	w.Translation*translation + w.RootRotation*root + w.Joints*(sum(rotations) - root)
//
// A frame without rotations reduces to its weighted translation.
func (f Frame) SignatureWith(w Weights) mgl64.Vec3 {
	var root, sum mgl64.Vec3
	if len(f.Rotations) > 0 {
		root = f.Rotations[0]
	}
	for _, r := range f.Rotations {
		sum = sum.Add(r)
	}
	return f.Translation.Mul(w.Translation).
		Add(root.Mul(w.RootRotation)).
		Add(sum.Sub(root).Mul(w.Joints))
}

// Distance returns the L1 distance between the signatures of a and b.
func Distance(a, b Frame) float64 {
	return vecmath.L1(a.Signature(), b.Signature())
}

// signatures computes the signature of every frame once.
func signatures(frames []Frame) []mgl64.Vec3 {
	out := make([]mgl64.Vec3, len(frames))
	for i := range frames {
		out[i] = frames[i].Signature()
	}
	return out
}
