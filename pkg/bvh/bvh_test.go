package bvh

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/teslashibe/go-mocap/pkg/motion"
)

const sample = `HIERARCHY
ROOT Hips
{
	OFFSET 0.0 0.0 0.0
	CHANNELS 6 Xposition Yposition Zposition Zrotation Xrotation Yrotation
	JOINT Chest
	{
		OFFSET 0.0 5.2 0.0
		CHANNELS 3 Zrotation Xrotation Yrotation
		End Site
		{
			OFFSET 0.0 4.0 0.0
		}
	}
	JOINT LeftHip
	{
		OFFSET 3.4 0.0 0.0
		CHANNELS 3 Zrotation Xrotation Yrotation
		End Site
		{
			OFFSET 0.0 -8.0 0.0
		}
	}
}
MOTION
Frames: 2
Frame Time: 0.033333
1 2 3 10 20 30 1 2 3 4 5 6
4 5 6 -10 -20 -30 7 8 9 0 0 0
`

func TestParse(t *testing.T) {
	m, err := Parse(strings.NewReader(sample))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if len(m.Joints) != 3 {
		t.Fatalf("Expected 3 joints, got %d", len(m.Joints))
	}
	names := []string{"Hips", "Chest", "LeftHip"}
	parents := []int{motion.NoParent, 0, 0}
	for i, j := range m.Joints {
		if j.Name != names[i] || j.Parent != parents[i] {
			t.Errorf("Joint %d: got %q parent %d", i, j.Name, j.Parent)
		}
	}
	if m.Joints[1].Offset != (mgl64.Vec3{0, 5.2, 0}) {
		t.Errorf("Unexpected chest offset %v", m.Joints[1].Offset)
	}
	if m.Joints[1].Transform.Col(3) != (mgl64.Vec4{0, 5.2, 0, 1}) {
		t.Errorf("Transform should translate by the offset, got %v", m.Joints[1].Transform)
	}
	if m.Joints[2].EndSite == nil || m.Joints[2].EndSite.Offset != (mgl64.Vec3{0, -8, 0}) {
		t.Errorf("Unexpected end site %+v", m.Joints[2].EndSite)
	}
	if m.Joints[0].EndSite != nil {
		t.Error("Root should have no end site")
	}

	if len(m.Frames) != 2 {
		t.Fatalf("Expected 2 frames, got %d", len(m.Frames))
	}
	if m.TimeStep != 0.033333 {
		t.Errorf("Expected frame time 0.033333, got %v", m.TimeStep)
	}

	f := m.Frames[0]
	if f.Translation != (mgl64.Vec3{1, 2, 3}) {
		t.Errorf("Unexpected translation %v", f.Translation)
	}
	// Z X Y channel order is stored as X Y Z
	if f.Rotations[0] != (mgl64.Vec3{20, 30, 10}) {
		t.Errorf("Unexpected root rotation %v", f.Rotations[0])
	}
	if f.Rotations[1] != (mgl64.Vec3{2, 3, 1}) || f.Rotations[2] != (mgl64.Vec3{5, 6, 4}) {
		t.Errorf("Unexpected joint rotations %v", f.Rotations[1:])
	}
	if m.Frames[1].Rotations[0] != (mgl64.Vec3{-20, -30, -10}) {
		t.Errorf("Unexpected second frame root rotation %v", m.Frames[1].Rotations[0])
	}

	if err := m.Validate(); err != nil {
		t.Errorf("Parsed motion should be valid: %v", err)
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want error
	}{
		{"empty", "", ErrSyntax},
		{"no root", "HIERARCHY\nMOTION\n", ErrNoRoot},
		{"bad channel", "HIERARCHY ROOT a { OFFSET 0 0 0 CHANNELS 1 Wrotation }", ErrSyntax},
		{"bad number", "HIERARCHY ROOT a { OFFSET 0 x 0 }", ErrSyntax},
		{"truncated", "HIERARCHY ROOT a { OFFSET 0 0 0 CHANNELS 3 Xrotation Yrotation Zrotation", ErrSyntax},
		{"short data", strings.Replace(sample, "0 0 0\n", "0 0\n", 1), ErrChannelCount},
		{"extra data", sample + "1\n", ErrChannelCount},
	}

	for _, tc := range tests {
		_, err := Parse(strings.NewReader(tc.doc))
		if !errors.Is(err, tc.want) {
			t.Errorf("%s: expected %v, got %v", tc.name, tc.want, err)
		}
	}
}

func TestLoader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "walk.bvh")
	if err := os.WriteFile(path, []byte(sample), 0644); err != nil {
		t.Fatal(err)
	}

	m, err := motion.Create(Loader{}, "walk", path, motion.LoopNone, 0)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if m.Name != "walk" || len(m.Frames) != 1 {
		t.Errorf("Unexpected motion %q with %d frames", m.Name, len(m.Frames))
	}

	if _, err := (Loader{}).Load(filepath.Join(t.TempDir(), "missing.bvh")); err == nil {
		t.Error("Expected error for missing file")
	}
}
