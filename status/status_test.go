package status

import (
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func next(t *testing.T, ch <-chan Message) Message {
	select {
	case m := <-ch:
		return m
	case <-time.After(5 * time.Second):
		t.Fatal("no status message")
		return Message{}
	}
}

func TestHideLoadingOnce(t *testing.T) {
	h := NewHub()
	defer h.Close()
	ch, unsubscribe := h.Subscribe(16)
	defer unsubscribe()

	assert.True(t, h.LoadingVisible())
	assert.True(t, h.HideLoading())
	assert.False(t, h.HideLoading())
	assert.False(t, h.FailLoading(errors.New("late")))
	assert.False(t, h.LoadingVisible())
	h.Info("done")

	assert.Equal(t, LOADED, next(t, ch).Type)
	m := next(t, ch)
	assert.Equal(t, INFO, m.Type)
	assert.Equal(t, "done", m.Message)
}

func TestFailLoading(t *testing.T) {
	h := NewHub()
	defer h.Close()
	ch, unsubscribe := h.Subscribe(16)
	defer unsubscribe()

	assert.True(t, h.FailLoading(errors.New("404")))
	assert.False(t, h.HideLoading())
	assert.False(t, h.LoadingVisible())

	m := next(t, ch)
	assert.Equal(t, ERROR, m.Type)
	assert.Equal(t, "failed to load model: 404", m.Message)

	h.ShowLoading("loading %s", "cube_0")
	assert.True(t, h.LoadingVisible())
	assert.Equal(t, INFO, next(t, ch).Type)
	assert.True(t, h.HideLoading())
	assert.Equal(t, LOADED, next(t, ch).Type)
}

func TestProgressSanitized(t *testing.T) {
	h := NewHub()
	defer h.Close()
	ch, unsubscribe := h.Subscribe(4)
	defer unsubscribe()

	h.Progress(float32(math.Inf(1)), "cube_0.obj")
	h.Progress(float32(math.NaN()), "cube_0.obj")
	h.Progress(0.5, "cube_0.obj")
	for _, want := range []float32{0, 0, 0.5} {
		m := next(t, ch)
		assert.Equal(t, PROGRESS, m.Type)
		assert.Equal(t, want, m.Progress)
	}
}

func TestWebsocketClient(t *testing.T) {
	h := NewHub()
	defer h.Close()
	ch, unsubscribe := h.Subscribe(4)
	defer unsubscribe()

	h.Info("loading cube_0")
	next(t, ch)

	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		h.NewClient(conn)
	}))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	read := func() map[string]interface{} {
		_, data, err := conn.ReadMessage()
		require.NoError(t, err)
		var m map[string]interface{}
		require.NoError(t, json.Unmarshal(data, &m))
		return m
	}

	// last message replayed on connect
	m := read()
	assert.Equal(t, "INFO", m["type"])
	assert.Equal(t, "loading cube_0", m["message"])

	h.HideLoading()
	m = read()
	assert.Equal(t, "LOADED", m["type"])
}
