package motion

import "errors"

var (
	// ErrShapeMismatch is returned when two frames, or a frame and a skeleton,
	// disagree on the number of joint rotations.
	ErrShapeMismatch = errors.New("motion: rotation count mismatch")

	// ErrInvalidLoopMode is returned when parsing an unknown loop mode.
	ErrInvalidLoopMode = errors.New("motion: invalid loop mode")

	// ErrNotLinked is returned when resampling a motion that has no live link.
	ErrNotLinked = errors.New("motion: no linked motion")

	// ErrFrameOutOfRange is returned when a frame index is outside the clip.
	ErrFrameOutOfRange = errors.New("motion: frame index out of range")

	// ErrNilLoader is returned by Create when no loader is supplied.
	ErrNilLoader = errors.New("motion: loader is required")

	// ErrInvalidSkeleton is returned when joint parent links do not form a tree.
	ErrInvalidSkeleton = errors.New("motion: invalid skeleton")
)
