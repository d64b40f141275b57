// Package vecmath holds the small vector and transform helpers shared by the
// motion packages. Vectors are mgl64 values; angles are in degrees.
package vecmath

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Axis indices into a Vec3.
const (
	AxisX = iota
	AxisY
	AxisZ
)

// UnitX returns the X axis unit vector.
func UnitX() mgl64.Vec3 { return mgl64.Vec3{1, 0, 0} }

// UnitY returns the Y axis unit vector.
func UnitY() mgl64.Vec3 { return mgl64.Vec3{0, 1, 0} }

// UnitZ returns the Z axis unit vector.
func UnitZ() mgl64.Vec3 { return mgl64.Vec3{0, 0, 1} }

// Lerp performs linear interpolation between two values. t is not clamped.
func Lerp(a, b, t float64) float64 {
	return a + t*(b-a)
}

// LerpVec3 interpolates each component of a and b. t is not clamped.
func LerpVec3(a, b mgl64.Vec3, t float64) mgl64.Vec3 {
	return mgl64.Vec3{
		Lerp(a[0], b[0], t),
		Lerp(a[1], b[1], t),
		Lerp(a[2], b[2], t),
	}
}

// Clamp restricts a value to a range.
func Clamp(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

// CompAdd returns the sum of the components of v.
func CompAdd(v mgl64.Vec3) float64 {
	return v[0] + v[1] + v[2]
}

// Abs returns v with every component made non-negative.
func Abs(v mgl64.Vec3) mgl64.Vec3 {
	return mgl64.Vec3{math.Abs(v[0]), math.Abs(v[1]), math.Abs(v[2])}
}

// L1 returns the Manhattan distance between a and b.
func L1(a, b mgl64.Vec3) float64 {
	return CompAdd(Abs(a.Sub(b)))
}

// Wrap360 wraps every component of v into [0, 360).
func Wrap360(v mgl64.Vec3) mgl64.Vec3 {
	for i := range v {
		w := math.Mod(v[i], 360)
		if w < 0 {
			w += 360
		}
		// -1e-14 + 360 rounds to 360
		if w >= 360 {
			w = 0
		}
		v[i] = w
	}
	return v
}

// MinComponents returns the per-axis minimum over vs.
// Every axis is +Inf when vs is empty.
func MinComponents(vs []mgl64.Vec3) mgl64.Vec3 {
	m := mgl64.Vec3{math.Inf(1), math.Inf(1), math.Inf(1)}
	for _, v := range vs {
		for i := range m {
			if v[i] < m[i] {
				m[i] = v[i]
			}
		}
	}
	return m
}

// Translate returns m post-multiplied by a translation of t.
func Translate(m mgl64.Mat4, t mgl64.Vec3) mgl64.Mat4 {
	return m.Mul4(mgl64.Translate3D(t[0], t[1], t[2]))
}

// Rotate returns m post-multiplied by rotations about Z, then Y, then X.
// r holds the X, Y and Z angles in degrees.
func Rotate(m mgl64.Mat4, r mgl64.Vec3) mgl64.Mat4 {
	m = m.Mul4(mgl64.HomogRotate3D(mgl64.DegToRad(r[AxisZ]), UnitZ()))
	m = m.Mul4(mgl64.HomogRotate3D(mgl64.DegToRad(r[AxisY]), UnitY()))
	m = m.Mul4(mgl64.HomogRotate3D(mgl64.DegToRad(r[AxisX]), UnitX()))
	return m
}
