package motion

import (
	"errors"
	"math"
	"runtime"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testSkeleton returns a root with n-1 chained children.
func testSkeleton(n int) Skeleton {
	joints := make(Skeleton, n)
	for i := range joints {
		joints[i] = Joint{Name: string(rune('a' + i)), Parent: i - 1, Transform: mgl64.Ident4()}
	}
	joints[0].Parent = NoParent
	return joints
}

// jointFrame returns a two-joint frame whose non-root joint rotates v degrees about X.
func jointFrame(v float64) Frame {
	return Frame{Rotations: []mgl64.Vec3{{0, 0, 0}, {v, 0, 0}}}
}

func TestMeasureMaxStep_ExcludesLastGap(t *testing.T) {
	frames := []Frame{
		{Translation: mgl64.Vec3{0, 0, 0}},
		{Translation: mgl64.Vec3{0, 0, 3}},
		{Translation: mgl64.Vec3{0, 0, 100}},
	}
	assert.Equal(t, 3.0, measureMaxStep(frames))
	assert.Equal(t, 0.0, measureMaxStep(frames[:2]))
	assert.Equal(t, 0.0, measureMaxStep(nil))
}

func TestPrepare_MaxStepMeasuredBeforeClean(t *testing.T) {
	m := New("walk", testSkeleton(1), []Frame{
		{Rotations: []mgl64.Vec3{{}}, Translation: mgl64.Vec3{0, 0, 0}},
		{Rotations: []mgl64.Vec3{{}}, Translation: mgl64.Vec3{0, 0, 3}},
		{Rotations: []mgl64.Vec3{{}}, Translation: mgl64.Vec3{0, 0, 100}},
	}, 1.0/30)

	Prepare(m, LoopNone, 0)

	assert.Equal(t, 3.0, m.MaxStep())
	assert.Len(t, m.Frames, 2)
}

func TestPrepare_Normalizes(t *testing.T) {
	frames := []Frame{
		{Rotations: []mgl64.Vec3{{-10, 370, 5}, {1, 2, 3}}, Translation: mgl64.Vec3{5, -2, 7}},
		{Rotations: []mgl64.Vec3{{-30, 400, 725}, {1, 2, 3}}, Translation: mgl64.Vec3{3, 4, -1}},
		{Rotations: []mgl64.Vec3{{20, 15, -90}, {1, 2, 3}}, Translation: mgl64.Vec3{8, 1, 2}},
		{Rotations: []mgl64.Vec3{{45, -45, 180}, {1, 2, 3}}, Translation: mgl64.Vec3{-6, 9, 0}},
		{Rotations: []mgl64.Vec3{{90, 10, 10}, {4, 5, 6}}, Translation: mgl64.Vec3{2, 2, 2}},
	}
	m := New("walk", testSkeleton(2), frames, 1.0/30)

	Prepare(m, Loop, 4)
	require.NotEmpty(t, m.Frames)

	for axis := 0; axis < 3; axis++ {
		minT, minR := math.Inf(1), math.Inf(1)
		for _, f := range m.Frames {
			assert.GreaterOrEqual(t, f.Translation[axis], 0.0)
			r := f.Rotations[0][axis]
			assert.GreaterOrEqual(t, r, 0.0)
			assert.Less(t, r, 360.0)
			minT = math.Min(minT, f.Translation[axis])
			minR = math.Min(minR, r)
		}
		assert.InDelta(t, 0.0, minT, 1e-9, "translation axis %d", axis)
		assert.InDelta(t, 0.0, minR, 1e-9, "rotation axis %d", axis)
	}

	// Non-root rotations are untouched
	assert.Equal(t, mgl64.Vec3{1, 2, 3}, m.Frames[0].Rotations[1])
}

func TestPrepare_SharedRotationStorage(t *testing.T) {
	shared := []mgl64.Vec3{{-90, 0, 0}}
	frames := []Frame{
		{Rotations: shared},
		{Rotations: shared},
		{Rotations: shared},
	}
	m := New("idle", testSkeleton(1), frames, 1.0/30)

	Prepare(m, LoopNone, 0)

	for _, f := range m.Frames {
		assert.Equal(t, mgl64.Vec3{0, 0, 0}, f.Rotations[0])
	}
	assert.Equal(t, mgl64.Vec3{-90, 0, 0}, shared[0], "input storage must not be modified")
}

func TestCreate(t *testing.T) {
	loader := LoaderFunc(func(path string) (*Motion, error) {
		assert.Equal(t, "clips/run.bvh", path)
		frames := make([]Frame, 11)
		for i := range frames {
			frames[i] = jointFrame(float64(i))
		}
		return &Motion{Joints: testSkeleton(2), Frames: frames, TimeStep: 0.01}, nil
	})

	m, err := Create(loader, "run", "clips/run.bvh", LoopNone, 0)
	require.NoError(t, err)

	assert.Equal(t, "run", m.Name)
	assert.NotEqual(t, uuid.Nil, m.ID)
	assert.Len(t, m.Frames, 10)
	assert.NoError(t, m.Validate())
}

func TestCreate_Errors(t *testing.T) {
	_, err := Create(nil, "run", "run.bvh", Loop, 10)
	assert.ErrorIs(t, err, ErrNilLoader)

	boom := errors.New("boom")
	_, err = Create(LoaderFunc(func(string) (*Motion, error) { return nil, boom }), "run", "run.bvh", Loop, 10)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), `"run"`)
}

func TestIsMix(t *testing.T) {
	assert.False(t, New("run", nil, nil, 0).IsMix())
	assert.True(t, New("walk_run", nil, nil, 0).IsMix())
	assert.True(t, New("_", nil, nil, 0).IsMix())
}

func TestLinkedFrame(t *testing.T) {
	upper := New("run", testSkeleton(2), []Frame{
		jointFrame(0), jointFrame(10), jointFrame(20), jointFrame(30),
	}, 0.01)
	lower := New("run-lower", testSkeleton(2), []Frame{
		jointFrame(100), jointFrame(200),
	}, 0.01)

	_, err := upper.LinkedFrame(0, 0.5)
	assert.ErrorIs(t, err, ErrNotLinked)

	upper.Link(lower)
	require.Same(t, lower, upper.Linked())

	// idx 3 maps to floor(3 * 2/4) = 1
	f, err := upper.LinkedFrame(3, 0.5)
	require.NoError(t, err)
	assert.InDelta(t, 115.0, f.Rotations[1][0], 1e-9)

	// idx 1 maps to floor(1 * 0.5) = 0
	f, err = upper.LinkedFrame(1, 0)
	require.NoError(t, err)
	assert.InDelta(t, 10.0, f.Rotations[1][0], 1e-9)

	_, err = upper.LinkedFrame(4, 0.5)
	assert.ErrorIs(t, err, ErrFrameOutOfRange)
	_, err = upper.LinkedFrame(-1, 0.5)
	assert.ErrorIs(t, err, ErrFrameOutOfRange)

	upper.Link(nil)
	assert.Nil(t, upper.Linked())

	runtime.KeepAlive(lower)
}

func TestClone(t *testing.T) {
	m := New("walk", testSkeleton(2), []Frame{jointFrame(1), jointFrame(2), jointFrame(3)}, 0.02)
	m.Joints[1].EndSite = &EndSite{Offset: mgl64.Vec3{0, 1, 0}}
	m.maxStep = 4

	c, err := m.Clone()
	require.NoError(t, err)

	assert.NotEqual(t, m.ID, c.ID)
	assert.Equal(t, m.Name, c.Name)
	assert.Equal(t, 4.0, c.MaxStep())
	assert.Equal(t, m.Frames, c.Frames)

	c.Frames[0].Rotations[1][0] = 99
	c.Joints[1].EndSite.Offset[1] = 5
	assert.Equal(t, 1.0, m.Frames[0].Rotations[1][0])
	assert.Equal(t, 1.0, m.Joints[1].EndSite.Offset[1])
}

func TestValidate(t *testing.T) {
	m := New("walk", testSkeleton(2), []Frame{jointFrame(1), {Rotations: []mgl64.Vec3{{}}}}, 0.02)
	assert.ErrorIs(t, m.Validate(), ErrShapeMismatch)

	bad := testSkeleton(3)
	bad[2].Parent = 5
	assert.ErrorIs(t, New("x", bad, nil, 0).Validate(), ErrInvalidSkeleton)

	root := testSkeleton(2)
	root[0].Parent = 1
	assert.ErrorIs(t, root.Validate(), ErrInvalidSkeleton)
}

func TestSkeleton(t *testing.T) {
	s := testSkeleton(3)
	s = append(s, Joint{Name: "d", Parent: 0})

	assert.Equal(t, "a", s.Root().Name)
	assert.Equal(t, []int{1, 3}, s.Children(0))
	assert.Equal(t, 2, s.Index("c"))
	assert.Equal(t, -1, s.Index("missing"))
}

func TestDuration(t *testing.T) {
	m := New("walk", nil, make([]Frame, 30), 0.5)
	assert.Equal(t, 15.0, m.Duration().Seconds())
}
