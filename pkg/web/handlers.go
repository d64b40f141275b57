package web

import (
	"context"
	"strconv"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/teslashibe/go-mocap/internal/log"
	"github.com/teslashibe/go-mocap/pkg/hub"
	"github.com/teslashibe/go-mocap/pkg/motion"
	"github.com/teslashibe/go-mocap/pkg/playback"
)

// MotionInfo summarizes a registered motion.
type MotionInfo struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Frames   int     `json:"frames"`
	Joints   int     `json:"joints"`
	TimeStep float64 `json:"time_step"`
	Duration float64 `json:"duration"`
	MaxStep  float64 `json:"max_step"`
	Mix      bool    `json:"mix"`
	Linked   string  `json:"linked,omitempty"`
}

// JointInfo describes one joint of a skeleton.
type JointInfo struct {
	Name   string     `json:"name"`
	Parent int        `json:"parent"`
	Offset mgl64.Vec3 `json:"offset"`
}

// MotionDetail is a motion summary plus its skeleton.
type MotionDetail struct {
	MotionInfo
	Skeleton []JointInfo `json:"skeleton"`
}

// FrameInfo is one pose.
type FrameInfo struct {
	Index       int          `json:"index"`
	Translation mgl64.Vec3   `json:"translation"`
	Rotations   []mgl64.Vec3 `json:"rotations"`
}

// MixRequest is the request body for POST /api/mix.
type MixRequest struct {
	Source   string `json:"source"`
	Target   string `json:"target"`
	Register bool   `json:"register"`
}

// TransitionInfo describes the sub-motion built for one source frame.
type TransitionInfo struct {
	Source int    `json:"source"`
	Target int    `json:"target"`
	Name   string `json:"name"`
	Frames int    `json:"frames"`
}

// MixResponse is the result of a mix.
type MixResponse struct {
	Source      string           `json:"source"`
	Target      string           `json:"target"`
	Transitions []TransitionInfo `json:"transitions"`
}

func motionInfo(m *motion.Motion) MotionInfo {
	info := MotionInfo{
		ID:       m.ID.String(),
		Name:     m.Name,
		Frames:   len(m.Frames),
		Joints:   len(m.Joints),
		TimeStep: m.TimeStep,
		Duration: m.Duration().Seconds(),
		MaxStep:  m.MaxStep(),
		Mix:      m.IsMix(),
	}
	if linked := m.Linked(); linked != nil {
		info.Linked = linked.Name
	}
	return info
}

func frameInfo(idx int, f motion.Frame) FrameInfo {
	return FrameInfo{Index: idx, Translation: f.Translation, Rotations: f.Rotations}
}

// handleListMotions returns every motion, optionally filtered by ?q=.
func (s *Server) handleListMotions(c *fiber.Ctx) error {
	names := s.lib.List()
	if q := c.Query("q"); q != "" {
		names = s.lib.Search(q)
	}

	infos := make([]MotionInfo, 0, len(names))
	for _, name := range names {
		m, err := s.lib.Get(name)
		if err != nil {
			// removed concurrently
			continue
		}
		infos = append(infos, motionInfo(m))
	}
	return c.JSON(infos)
}

func (s *Server) handleGetMotion(c *fiber.Ctx) error {
	m, err := s.lib.Get(c.Params("name"))
	if err != nil {
		return err
	}

	detail := MotionDetail{MotionInfo: motionInfo(m)}
	for _, j := range m.Joints {
		detail.Skeleton = append(detail.Skeleton, JointInfo{Name: j.Name, Parent: j.Parent, Offset: j.Offset})
	}
	return c.JSON(detail)
}

func (s *Server) handleDeleteMotion(c *fiber.Ctx) error {
	name := c.Params("name")
	if _, err := s.lib.Get(name); err != nil {
		return err
	}
	s.lib.Unregister(name)
	return c.SendStatus(fiber.StatusNoContent)
}

// handleGetFrame returns one frame. ?linked=alpha blends in the linked motion.
func (s *Server) handleGetFrame(c *fiber.Ctx) error {
	m, err := s.lib.Get(c.Params("name"))
	if err != nil {
		return err
	}

	idx, err := c.ParamsInt("index")
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid frame index")
	}
	if idx < 0 || idx >= len(m.Frames) {
		return fiber.NewError(fiber.StatusNotFound, "frame index out of range")
	}

	raw := c.Query("linked")
	if raw == "" {
		return c.JSON(frameInfo(idx, m.Frames[idx]))
	}

	alpha, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid linked alpha")
	}
	f, err := m.LinkedFrame(idx, alpha)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return c.JSON(frameInfo(idx, f))
}

func (s *Server) handleMix(c *fiber.Ctx) error {
	var req MixRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if req.Source == "" || req.Target == "" {
		return fiber.NewError(fiber.StatusBadRequest, "source and target are required")
	}

	tm, err := s.lib.Mix(req.Source, req.Target, req.Register)
	if err != nil {
		return err
	}

	resp := MixResponse{Source: req.Source, Target: req.Target, Transitions: []TransitionInfo{}}
	for _, p := range tm.Pairs() {
		sub := tm[p.Source].Motion
		resp.Transitions = append(resp.Transitions, TransitionInfo{
			Source: p.Source,
			Target: p.Target,
			Name:   sub.Name,
			Frames: len(sub.Frames),
		})
	}
	return c.JSON(resp)
}

// handleEventsWS attaches the connection to the library event hub.
func (s *Server) handleEventsWS(c *websocket.Conn) {
	hub.NewClient(s.events, c).Run()
}

// handlePlayWS streams a motion's frames in real time. Query parameters:
// speed, loop=true, linked=alpha.
func (s *Server) handlePlayWS(c *websocket.Conn) {
	name := c.Params("name")
	m, err := s.lib.Get(name)
	if err != nil {
		c.WriteJSON(fiber.Map{"error": err.Error()})
		return
	}

	opts := playback.DefaultOptions()
	opts.Loop = c.Query("loop") == "true"
	if v, err := strconv.ParseFloat(c.Query("speed"), 64); err == nil && v > 0 {
		opts.Speed = v
	}
	if v, err := strconv.ParseFloat(c.Query("linked"), 64); err == nil {
		opts.LinkedAlpha = v
	}

	ctx, cancel := context.WithCancel(s.ctx)
	defer cancel()

	// reading detects the client going away
	go func() {
		defer cancel()
		for {
			if _, _, err := c.ReadMessage(); err != nil {
				return
			}
		}
	}()

	player := playback.NewPlayer()
	err = player.PlayWithOptions(ctx, m, func(f motion.Frame, idx int, _ time.Duration) bool {
		return c.WriteJSON(hub.Envelope{Kind: hub.KindFrame, Data: frameInfo(idx, f)}) == nil
	}, opts)
	if err != nil {
		log.Debug("playback stream ended", "motion", name, "error", err)
		return
	}
	c.WriteJSON(hub.Envelope{Kind: hub.KindDone})
}
