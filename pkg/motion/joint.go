package motion

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
)

// NoParent is the Parent index of the root joint.
const NoParent = -1

// Joint is one node of a skeleton. Joints are stored in a flat slice, root
// first, and refer to their parent by index so the tree holds no cycles.
type Joint struct {
	// Name is the joint identifier from the capture file.
	Name string

	// Offset is the static offset from the parent joint.
	Offset mgl64.Vec3

	// Transform is the static local transform built from Offset.
	Transform mgl64.Mat4

	// Parent is the index of the parent joint, or NoParent for the root.
	Parent int

	// EndSite is the optional terminal child of a leaf joint.
	EndSite *EndSite
}

// EndSite is the terminal point of a joint chain. It carries no rotation.
type EndSite struct {
	Offset mgl64.Vec3
}

// Skeleton is an ordered joint hierarchy, root first.
type Skeleton []Joint

// Root returns the root joint. It panics on an empty skeleton.
func (s Skeleton) Root() Joint {
	return s[0]
}

// Children returns the indices of the joints whose parent is i.
func (s Skeleton) Children(i int) []int {
	var out []int
	for j := range s {
		if s[j].Parent == i {
			out = append(out, j)
		}
	}
	return out
}

// Index returns the index of the joint with the given name, or -1.
func (s Skeleton) Index(name string) int {
	for i := range s {
		if s[i].Name == name {
			return i
		}
	}
	return -1
}

// Validate checks that joint 0 is the only root and that every other joint
// refers to an earlier joint as its parent.
func (s Skeleton) Validate() error {
	for i, j := range s {
		switch {
		case i == 0 && j.Parent != NoParent:
			return fmt.Errorf("%w: root %q has parent %d", ErrInvalidSkeleton, j.Name, j.Parent)
		case i > 0 && (j.Parent < 0 || j.Parent >= i):
			return fmt.Errorf("%w: joint %q has parent %d", ErrInvalidSkeleton, j.Name, j.Parent)
		}
	}
	return nil
}
