package web

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/go-mocap/internal/config"
	"github.com/teslashibe/go-mocap/pkg/library"
	"github.com/teslashibe/go-mocap/pkg/motion"
)

func testLoader(path string) (*motion.Motion, error) {
	joints := motion.Skeleton{
		{Name: "hips", Parent: motion.NoParent},
		{Name: "chest", Parent: 0, Offset: mgl64.Vec3{0, 10, 0}},
	}
	frames := make([]motion.Frame, 8)
	for i := range frames {
		frames[i] = motion.Frame{
			Rotations: []mgl64.Vec3{{}, {float64(i * 10), 0, 0}},
		}
	}
	return motion.New("", joints, frames, 0.5), nil
}

func newTestServer(t *testing.T) (*Server, *library.Library) {
	t.Helper()
	lib := library.New(library.WithLoader(motion.LoaderFunc(testLoader)))
	require.NoError(t, lib.Load([]config.MotionSpec{
		{Name: "walk", Path: "walk.bvh", Link: "wave"},
		{Name: "wave", Path: "wave.bvh"},
	}))
	s := NewServer(":0", lib)
	t.Cleanup(func() { s.Shutdown() })
	return s, lib
}

func do(t *testing.T, s *Server, method, target, body string) (*http.Response, []byte) {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := s.App().Test(req, -1)
	require.NoError(t, err)
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, data
}

func TestListMotions(t *testing.T) {
	s, _ := newTestServer(t)

	resp, body := do(t, s, http.MethodGet, "/api/motions", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var infos []MotionInfo
	require.NoError(t, json.Unmarshal(body, &infos))
	require.Len(t, infos, 2)
	assert.Equal(t, "walk", infos[0].Name)
	assert.Equal(t, "wave", infos[0].Linked)
	assert.Equal(t, 7, infos[0].Frames)
	assert.Equal(t, 0.5, infos[0].TimeStep)

	_, body = do(t, s, http.MethodGet, "/api/motions?q=WAV", "")
	require.NoError(t, json.Unmarshal(body, &infos))
	require.Len(t, infos, 1)
	assert.Equal(t, "wave", infos[0].Name)
}

func TestGetMotion(t *testing.T) {
	s, _ := newTestServer(t)

	resp, body := do(t, s, http.MethodGet, "/api/motions/walk", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var detail MotionDetail
	require.NoError(t, json.Unmarshal(body, &detail))
	require.Len(t, detail.Skeleton, 2)
	assert.Equal(t, "chest", detail.Skeleton[1].Name)
	assert.Equal(t, mgl64.Vec3{0, 10, 0}, detail.Skeleton[1].Offset)

	resp, body = do(t, s, http.MethodGet, "/api/motions/nope", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Contains(t, string(body), `"error"`)
}

func TestGetFrame(t *testing.T) {
	s, _ := newTestServer(t)

	resp, body := do(t, s, http.MethodGet, "/api/motions/walk/frames/2", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var f FrameInfo
	require.NoError(t, json.Unmarshal(body, &f))
	assert.Equal(t, 2, f.Index)
	assert.Len(t, f.Rotations, 2)

	resp, _ = do(t, s, http.MethodGet, "/api/motions/walk/frames/2?linked=0", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	tests := []struct {
		target string
		status int
	}{
		{"/api/motions/walk/frames/99", http.StatusNotFound},
		{"/api/motions/walk/frames/x", http.StatusBadRequest},
		{"/api/motions/walk/frames/1?linked=abc", http.StatusBadRequest},
		{"/api/motions/wave/frames/1?linked=0.5", http.StatusBadRequest},
		{"/api/motions/ghost/frames/0", http.StatusNotFound},
	}
	for _, tc := range tests {
		resp, _ := do(t, s, http.MethodGet, tc.target, "")
		assert.Equal(t, tc.status, resp.StatusCode, tc.target)
	}
}

func TestMix(t *testing.T) {
	s, lib := newTestServer(t)

	resp, body := do(t, s, http.MethodPost, "/api/mix", `{"source":"walk","target":"wave","register":true}`)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	var out MixResponse
	require.NoError(t, json.Unmarshal(body, &out))
	require.Len(t, out.Transitions, 7)
	assert.Equal(t, "walk_wave_0", out.Transitions[0].Name)
	assert.Equal(t, motion.MixTransitionSteps, out.Transitions[0].Frames)
	assert.Len(t, lib.Mixes(), 7)

	resp, _ = do(t, s, http.MethodPost, "/api/mix", `{"source":"walk"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = do(t, s, http.MethodPost, "/api/mix", `{"source":"walk","target":"ghost"}`)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestDeleteMotion(t *testing.T) {
	s, lib := newTestServer(t)

	resp, _ := do(t, s, http.MethodDelete, "/api/motions/wave", "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, []string{"walk"}, lib.List())

	resp, _ = do(t, s, http.MethodDelete, "/api/motions/wave", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestWebSocketRequiresUpgrade(t *testing.T) {
	s, _ := newTestServer(t)

	resp, _ := do(t, s, http.MethodGet, "/ws/events", "")
	assert.Equal(t, http.StatusUpgradeRequired, resp.StatusCode)
}
