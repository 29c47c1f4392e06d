package web

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mogaika/model_viewer/config"
	"github.com/mogaika/model_viewer/render"
	"github.com/mogaika/model_viewer/status"
	"github.com/mogaika/model_viewer/vfs"
	"github.com/mogaika/model_viewer/viewer"
)

type manualFrames struct {
	ch chan time.Time
}

func (m *manualFrames) Frames() <-chan time.Time { return m.ch }
func (m *manualFrames) Stop()                    {}

const cubeMtl = "newmtl gray\nKd 0.5 0.5 0.5\n"

const cubeObj = `mtllib cube_0.mtl
o cube
v -1 -1 -1
v 1 -1 -1
v 1 1 -1
v -1 1 -1
v -1 -1 1
v 1 -1 1
v 1 1 1
v -1 1 1
usemtl gray
f 1 2 3 4
f 5 6 7 8
f 1 5 8 4
`

type testServer struct {
	*httptest.Server
	frames *manualFrames
}

func startServer(t *testing.T) *testServer {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "cube_0.mtl"), []byte(cubeMtl), 0666))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "cube_0.obj"), []byte(cubeObj), 0666))
	assets := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(assets, "note.txt"), []byte("asset"), 0666))

	cfg := config.Default()
	cfg.BaseURL = dir
	cfg.Model = "cube_0"
	cfg.Viewport.Width, cfg.Viewport.Height = 64, 48

	hub := status.NewHub()
	t.Cleanup(hub.Close)
	renderer := render.New(cfg.Viewport.Width, cfg.Viewport.Height)
	frames := &manualFrames{ch: make(chan time.Time)}
	v, err := viewer.New(cfg, vfs.NewDirectorySource(dir), renderer, hub, frames)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	go v.Run(ctx)
	t.Cleanup(func() {
		cancel()
		<-v.Loop().Done()
	})

	ts := httptest.NewServer(NewServer(v, hub, renderer, assets).Handler())
	t.Cleanup(ts.Close)
	return &testServer{Server: ts, frames: frames}
}

func (ts *testServer) get(t *testing.T, path string) (*http.Response, string) {
	resp, err := http.Get(ts.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body)
}

func (ts *testServer) state(t *testing.T) map[string]interface{} {
	resp, body := ts.get(t, "/json/state")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var state map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(body), &state))
	return state
}

func (ts *testServer) waitLoaded(t *testing.T) {
	require.Eventually(t, func() bool {
		return ts.state(t)["phase"] == "loaded"
	}, 5*time.Second, 10*time.Millisecond)
}

func TestIndexPage(t *testing.T) {
	ts := startServer(t)
	resp, body := ts.get(t, "/")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `id="loading"`)

	resp, body = ts.get(t, "/assets/note.txt")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "asset", body)
}

func TestStateAndFrame(t *testing.T) {
	ts := startServer(t)
	ts.waitLoaded(t)

	state := ts.state(t)
	assert.Equal(t, false, state["loading"])
	assert.Equal(t, "cube_0", state["model"])
	assert.EqualValues(t, 6, state["triangles"])

	ts.frames.ch <- time.Now()
	// a loop round trip, the frame is published once it returns
	assert.EqualValues(t, 1, ts.state(t)["frames"])
	resp, body := ts.get(t, "/frame.png")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))
	assert.True(t, strings.HasPrefix(body, "\x89PNG"))
}

func TestActions(t *testing.T) {
	ts := startServer(t)
	ts.waitLoaded(t)

	resp, _ := ts.get(t, "/action/resize/0/10")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp, _ = ts.get(t, "/action/resize/32/24")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := ts.get(t, "/action/orbit?theta=abc")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, body, "theta")

	for _, q := range []string{"theta=Inf", "phi=NaN", "zoom=-Inf", "panx=1e400"} {
		resp, _ = ts.get(t, "/action/orbit?"+q)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, q)
	}
	ts.frames.ch <- time.Now()
	assert.EqualValues(t, "loaded", ts.state(t)["phase"])

	resp, _ = ts.get(t, "/action/orbit?theta=0.5&zoom=1.2")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp, _ = ts.get(t, "/action/reset")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = ts.get(t, "/action/load/a..b")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestDumps(t *testing.T) {
	ts := startServer(t)
	ts.waitLoaded(t)

	resp, body := ts.get(t, "/dump/model.glb")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "glTF", body[:4])
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "cube_0.glb")

	resp, body = ts.get(t, "/dump/config.yaml")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "model: cube_0")

	resp, body = ts.get(t, "/json/config")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `"model":"cube_0"`)
	assert.Contains(t, body, `"background":"#b8b8b8"`)

	resp, body = ts.get(t, "/json/config?format=yaml")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/yaml", resp.Header.Get("Content-Type"))
	assert.Contains(t, body, "base_url:")
}

func TestStatusSocket(t *testing.T) {
	ts := startServer(t)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/ws/status", nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	for {
		var msg map[string]interface{}
		require.NoError(t, conn.ReadJSON(&msg))
		if msg["type"] == "LOADED" {
			break
		}
		assert.NotEqual(t, "ERROR", msg["type"])
	}
}
