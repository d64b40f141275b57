package motion

import (
	"math"
	"sort"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/mat"

	"github.com/teslashibe/go-mocap/internal/log"
	"github.com/teslashibe/go-mocap/pkg/vecmath"
)

// MixTransitionSteps is the step count of every transition built by Mix.
const MixTransitionSteps = 10

// Pair is a winning match: frame Source of one clip is closest to frame
// Target of the other.
type Pair struct {
	Source int `json:"source"`
	Target int `json:"target"`
}

// Transition is the result for one source frame: the best target frame and
// the sub-motion blending from the source frame toward it.
type Transition struct {
	Target int
	Motion *Motion
}

// TransitionMap maps every source frame index to its Transition.
type TransitionMap map[int]Transition

// DiagnosticSink receives the full distance matrix and the winning pairs of a
// mix. Implementations must not retain the matrix beyond the call.
type DiagnosticSink interface {
	WriteMix(source, target string, distances *mat.Dense, pairs []Pair) error
}

// Match finds, for every frame of a in order, the frame of b with the
// smallest pose distance; ties keep the lowest index of b. It also returns
// the len(a) x len(b) distance matrix, or nil if either side is empty.
func Match(a, b []Frame) ([]Pair, *mat.Dense) {
	if len(a) == 0 || len(b) == 0 {
		return nil, nil
	}

	sa := signatures(a)
	sb := signatures(b)
	distances := mat.NewDense(len(a), len(b), nil)
	pairs := make([]Pair, 0, len(a))

	for i := range sa {
		best, bestDist := 0, math.Inf(1)
		for j := range sb {
			d := vecmath.L1(sa[i], sb[j])
			distances.Set(i, j, d)
			if d < bestDist {
				best, bestDist = j, d
			}
		}
		pairs = append(pairs, Pair{Source: i, Target: best})
	}
	return pairs, distances
}

// Mix builds a transition from every frame of m toward its best match in
// other. Each sub-motion has MixTransitionSteps frames, shares m's skeleton
// and runs at the mean of both time steps. If sink is non-nil it receives the
// distance matrix and pairs; a sink error is logged and otherwise ignored.
func (m *Motion) Mix(other *Motion, sink DiagnosticSink) TransitionMap {
	result := make(TransitionMap, len(m.Frames))

	pairs, distances := Match(m.Frames, other.Frames)
	if len(pairs) == 0 {
		return result
	}

	name := m.Name + MixSeparator + other.Name
	timeStep := (m.TimeStep + other.TimeStep) * 0.5
	for _, p := range pairs {
		frames := Transition(m.Frames[p.Source], other.Frames[p.Target], MixTransitionSteps)
		sub := &Motion{
			ID:       uuid.New(),
			Name:     name,
			Joints:   m.Joints,
			Frames:   frames,
			TimeStep: timeStep,
			maxStep:  measureMaxStep(frames),
		}
		result[p.Source] = Transition{Target: p.Target, Motion: sub}
	}

	if sink != nil {
		if err := sink.WriteMix(m.Name, other.Name, distances, pairs); err != nil {
			log.Warn("mix diagnostics not written", "source", m.Name, "target", other.Name, "error", err)
		}
	}

	log.Debug("motions mixed", "source", m.Name, "target", other.Name, "transitions", len(result))
	return result
}

// Pairs returns the map's source/target pairs ordered by source index.
func (tm TransitionMap) Pairs() []Pair {
	pairs := make([]Pair, 0, len(tm))
	for i, t := range tm {
		pairs = append(pairs, Pair{Source: i, Target: t.Target})
	}
	sort.Slice(pairs, func(a, b int) bool { return pairs[a].Source < pairs[b].Source })
	return pairs
}
