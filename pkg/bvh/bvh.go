// Package bvh reads Biovision Hierarchy capture files into raw motions.
//
// Only the data the motion pipeline needs is kept: joint names, offsets and
// parent links, the root translation and one Euler rotation (degrees, stored
// as X, Y, Z regardless of the file's channel order) per joint per frame.
package bvh

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/teslashibe/go-mocap/internal/log"
	"github.com/teslashibe/go-mocap/pkg/motion"
	"github.com/teslashibe/go-mocap/pkg/vecmath"
)

var (
	// ErrSyntax is returned for malformed hierarchy or motion sections.
	ErrSyntax = errors.New("bvh: syntax error")

	// ErrNoRoot is returned when the hierarchy has no ROOT joint.
	ErrNoRoot = errors.New("bvh: no root joint")

	// ErrChannelCount is returned when frame data does not match the declared channels.
	ErrChannelCount = errors.New("bvh: channel count mismatch")
)

// channel is one animated degree of freedom of a joint.
type channel struct {
	position bool
	axis     int
}

var channelNames = map[string]channel{
	"xposition": {position: true, axis: vecmath.AxisX},
	"yposition": {position: true, axis: vecmath.AxisY},
	"zposition": {position: true, axis: vecmath.AxisZ},
	"xrotation": {axis: vecmath.AxisX},
	"yrotation": {axis: vecmath.AxisY},
	"zrotation": {axis: vecmath.AxisZ},
}

// Loader loads BVH files from disk. It implements motion.Loader.
type Loader struct{}

// Load reads and parses the BVH file at path.
func (Loader) Load(path string) (*motion.Motion, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open capture: %w", err)
	}
	defer f.Close()

	m, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	log.Debug("capture loaded", "path", path, "joints", len(m.Joints), "frames", len(m.Frames))
	return m, nil
}

// Parse reads a BVH document. The returned motion has no name.
func Parse(r io.Reader) (*motion.Motion, error) {
	p, err := newParser(r)
	if err != nil {
		return nil, err
	}

	if err := p.expect("HIERARCHY"); err != nil {
		return nil, err
	}
	if !p.peekIs("ROOT") {
		return nil, ErrNoRoot
	}
	p.next()
	if err := p.parseJoint(motion.NoParent); err != nil {
		return nil, err
	}
	if p.peekIs("ROOT") {
		return nil, fmt.Errorf("%w: multiple roots", ErrSyntax)
	}

	frames, timeStep, err := p.parseMotion()
	if err != nil {
		return nil, err
	}
	return motion.New("", p.joints, frames, timeStep), nil
}

type parser struct {
	tokens   []string
	pos      int
	joints   motion.Skeleton
	channels [][]channel
	total    int
}

func newParser(r io.Reader) (*parser, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 16*1024*1024)
	sc.Split(bufio.ScanWords)

	p := &parser{}
	for sc.Scan() {
		p.tokens = append(p.tokens, sc.Text())
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read capture: %w", err)
	}
	return p, nil
}

func (p *parser) peekIs(tok string) bool {
	return p.pos < len(p.tokens) && p.tokens[p.pos] == tok
}

func (p *parser) next() (string, error) {
	if p.pos >= len(p.tokens) {
		return "", fmt.Errorf("%w: unexpected end of file", ErrSyntax)
	}
	tok := p.tokens[p.pos]
	p.pos++
	return tok, nil
}

func (p *parser) expect(want string) error {
	tok, err := p.next()
	if err != nil {
		return err
	}
	if tok != want {
		return fmt.Errorf("%w: expected %q, got %q", ErrSyntax, want, tok)
	}
	return nil
}

func (p *parser) float() (float64, error) {
	tok, err := p.next()
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseFloat(tok, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: bad number %q", ErrSyntax, tok)
	}
	return v, nil
}

func (p *parser) int() (int, error) {
	tok, err := p.next()
	if err != nil {
		return 0, err
	}
	v, err := strconv.Atoi(tok)
	if err != nil {
		return 0, fmt.Errorf("%w: bad integer %q", ErrSyntax, tok)
	}
	return v, nil
}

func (p *parser) vec3() (mgl64.Vec3, error) {
	var v mgl64.Vec3
	for i := range v {
		f, err := p.float()
		if err != nil {
			return v, err
		}
		v[i] = f
	}
	return v, nil
}

// parseJoint reads "<name> { OFFSET .. CHANNELS .. children }" after ROOT or JOINT.
func (p *parser) parseJoint(parent int) error {
	name, err := p.next()
	if err != nil {
		return err
	}
	if err := p.expect("{"); err != nil {
		return err
	}

	idx := len(p.joints)
	p.joints = append(p.joints, motion.Joint{Name: name, Parent: parent})
	p.channels = append(p.channels, nil)

	for {
		tok, err := p.next()
		if err != nil {
			return err
		}
		switch tok {
		case "OFFSET":
			off, err := p.vec3()
			if err != nil {
				return err
			}
			p.joints[idx].Offset = off
			p.joints[idx].Transform = vecmath.Translate(mgl64.Ident4(), off)

		case "CHANNELS":
			n, err := p.int()
			if err != nil {
				return err
			}
			chans := make([]channel, n)
			for i := range chans {
				tok, err := p.next()
				if err != nil {
					return err
				}
				c, ok := channelNames[strings.ToLower(tok)]
				if !ok {
					return fmt.Errorf("%w: unknown channel %q", ErrSyntax, tok)
				}
				chans[i] = c
			}
			p.channels[idx] = chans
			p.total += n

		case "JOINT":
			if err := p.parseJoint(idx); err != nil {
				return err
			}

		case "End":
			if err := p.parseEndSite(idx); err != nil {
				return err
			}

		case "}":
			return nil

		default:
			return fmt.Errorf("%w: unexpected %q in joint %q", ErrSyntax, tok, name)
		}
	}
}

func (p *parser) parseEndSite(idx int) error {
	if err := p.expect("Site"); err != nil {
		return err
	}
	if err := p.expect("{"); err != nil {
		return err
	}
	if err := p.expect("OFFSET"); err != nil {
		return err
	}
	off, err := p.vec3()
	if err != nil {
		return err
	}
	p.joints[idx].EndSite = &motion.EndSite{Offset: off}
	return p.expect("}")
}

func (p *parser) parseMotion() ([]motion.Frame, float64, error) {
	if err := p.expect("MOTION"); err != nil {
		return nil, 0, err
	}
	if err := p.expect("Frames:"); err != nil {
		return nil, 0, err
	}
	n, err := p.int()
	if err != nil {
		return nil, 0, err
	}
	if err := p.expect("Frame"); err != nil {
		return nil, 0, err
	}
	if err := p.expect("Time:"); err != nil {
		return nil, 0, err
	}
	timeStep, err := p.float()
	if err != nil {
		return nil, 0, err
	}

	if have := len(p.tokens) - p.pos; have != n*p.total {
		return nil, 0, fmt.Errorf("%w: %d values for %d frames of %d channels", ErrChannelCount, have, n, p.total)
	}

	frames := make([]motion.Frame, n)
	for i := range frames {
		f := motion.Frame{Rotations: make([]mgl64.Vec3, len(p.joints))}
		for j, chans := range p.channels {
			for _, c := range chans {
				v, err := p.float()
				if err != nil {
					return nil, 0, fmt.Errorf("frame %d: %w", i, err)
				}
				switch {
				case !c.position:
					f.Rotations[j][c.axis] = v
				case j == 0:
					f.Translation[c.axis] = v
				}
			}
		}
		frames[i] = f
	}
	return frames, timeStep, nil
}
