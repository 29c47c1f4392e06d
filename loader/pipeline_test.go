package loader

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"

	"github.com/mogaika/model_viewer/vfs"
)

type memSource struct {
	mu       sync.Mutex
	files    map[string][]byte
	requests []string
	// gate blocks Open of the named file until closed
	gate map[string]chan struct{}
}

func newMemSource(files map[string][]byte) *memSource {
	return &memSource{files: files, gate: make(map[string]chan struct{})}
}

func (s *memSource) URL(name string) string { return "mem://" + name }

func (s *memSource) Open(ctx context.Context, name string) (*vfs.Resource, error) {
	s.mu.Lock()
	s.requests = append(s.requests, name)
	gate := s.gate[name]
	data, ok := s.files[name]
	s.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if !ok {
		return nil, errors.Wrapf(vfs.ErrNotFound, "%s", name)
	}
	return &vfs.Resource{
		ReadCloser: io.NopCloser(bytes.NewReader(data)),
		Name:       name,
		URL:        s.URL(name),
		Size:       int64(len(data)),
	}, nil
}

func (s *memSource) Requests() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.requests...)
}

func pngBytes(t *testing.T) []byte {
	img := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	img.Set(0, 0, color.NRGBA{R: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

const cubeMtl = `newmtl skin
Kd 1 1 1
map_Kd tex/skin.png
newmtl missing
map_Kd tex/nope.png
`

const cubeObj = `mtllib cube_0.mtl
o cube
v -1 -1 -1
v 1 -1 -1
v 1 1 1
usemtl skin
f 1 2 3
`

func await(t *testing.T, task *Task[*Model]) (*Model, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return task.Await(ctx)
}

func TestPipelineLoadOrder(t *testing.T) {
	src := newMemSource(map[string][]byte{
		"cube_0.mtl":   []byte(cubeMtl),
		"cube_0.obj":   []byte(cubeObj),
		"tex/skin.png": pngBytes(t),
	})
	var progress []Progress
	var stages []string
	p := NewPipeline(src, Options{
		OnProgress: func(pr Progress) { progress = append(progress, pr) },
		OnStage:    func(_ uuid.UUID, stage string) { stages = append(stages, stage) },
	})

	task, err := p.Load(context.Background(), "cube_0")
	require.NoError(t, err)
	model, err := await(t, task)
	require.NoError(t, err)

	assert.Equal(t, []string{"cube_0.mtl", "tex/skin.png", "tex/nope.png", "cube_0.obj"}, src.Requests())
	assert.Equal(t, []string{StageMaterial, StageTexture, StageGeometry}, stages)
	assert.False(t, p.InFlight())

	require.NotNil(t, model.Root)
	assert.Equal(t, "cube_0", model.Name)
	skin := model.Materials.Get("skin")
	require.NotNil(t, skin)
	require.NotNil(t, skin.DiffuseMap)
	assert.True(t, skin.DiffuseMap.Loaded())
	assert.False(t, model.Materials.Get("missing").DiffuseMap.Loaded())
	require.Len(t, model.Warnings, 1)
	assert.Contains(t, model.Warnings[0], "tex/nope.png")

	group := model.Root.Find("cube")
	require.NotNil(t, group)
	require.Len(t, group.Childs, 1)
	mesh := group.Childs[0].Mesh
	require.NotNil(t, mesh)
	assert.Same(t, skin, mesh.Material)

	require.NotEmpty(t, progress)
	last := progress[len(progress)-1]
	assert.Equal(t, "cube_0.obj", last.ResourceID)
	assert.Equal(t, last.BytesTotal, last.BytesLoaded)
	assert.Equal(t, float32(1), last.Fraction())
}

func TestPipelineMaterialFailureSkipsGeometry(t *testing.T) {
	src := newMemSource(map[string][]byte{
		"cube_0.obj": []byte(cubeObj),
	})
	p := NewPipeline(src, Options{})

	task, err := p.Load(context.Background(), "cube_0")
	require.NoError(t, err)
	model, err := await(t, task)
	assert.Nil(t, model)

	var ferr *FetchError
	require.True(t, errors.As(err, &ferr))
	assert.Equal(t, StageMaterial, ferr.Stage)
	assert.Equal(t, "mem://cube_0.mtl", ferr.URL)
	assert.True(t, errors.Is(err, vfs.ErrNotFound))

	assert.Equal(t, []string{"cube_0.mtl"}, src.Requests())
	assert.False(t, p.InFlight())
}

func TestPipelineMalformedGeometry(t *testing.T) {
	src := newMemSource(map[string][]byte{
		"m.mtl": []byte("newmtl a\n"),
		"m.obj": []byte("v 0 0 0\nf 1 2 3\n"),
	})
	task, err := NewPipeline(src, Options{}).Load(context.Background(), "m")
	require.NoError(t, err)
	_, err = await(t, task)

	var ferr *FetchError
	require.True(t, errors.As(err, &ferr))
	assert.Equal(t, StageGeometry, ferr.Stage)
}

func TestPipelineRejectsSecondLoad(t *testing.T) {
	src := newMemSource(map[string][]byte{
		"cube_0.mtl": []byte("newmtl a\n"),
		"cube_0.obj": []byte(cubeObj),
	})
	release := make(chan struct{})
	src.gate["cube_0.mtl"] = release
	p := NewPipeline(src, Options{})

	task, err := p.Load(context.Background(), "cube_0")
	require.NoError(t, err)
	assert.True(t, p.InFlight())

	_, err = p.Load(context.Background(), "other")
	assert.Equal(t, ErrLoadInFlight, err)

	close(release)
	_, err = await(t, task)
	require.NoError(t, err)
	for _, r := range src.Requests() {
		assert.NotContains(t, r, "other")
	}

	// released after completion
	task, err = p.Load(context.Background(), "cube_0")
	require.NoError(t, err)
	_, err = await(t, task)
	assert.NoError(t, err)
}

func TestPipelineCancel(t *testing.T) {
	src := newMemSource(map[string][]byte{"cube_0.mtl": []byte("")})
	src.gate["cube_0.mtl"] = make(chan struct{})
	ctx, cancel := context.WithCancel(context.Background())

	task, err := NewPipeline(src, Options{}).Load(ctx, "cube_0")
	require.NoError(t, err)
	cancel()
	_, err = await(t, task)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, []string{"cube_0.mtl"}, src.Requests())
}

func TestPipelineEncoding(t *testing.T) {
	// "Дом" in windows-1251
	name := []byte{0xc4, 0xee, 0xec}
	src := newMemSource(map[string][]byte{
		"enc.mtl": append(append([]byte("newmtl "), name...), '\n'),
		"enc.obj": append(append([]byte("v 0 0 0\nv 1 0 0\nv 0 1 0\nusemtl "), name...), []byte("\nf 1 2 3\n")...),
	})
	task, err := NewPipeline(src, Options{Encoding: charmap.Windows1251}).Load(context.Background(), "enc")
	require.NoError(t, err)
	model, err := await(t, task)
	require.NoError(t, err)
	assert.NotNil(t, model.Materials.Get("Дом"))
	assert.Empty(t, model.Warnings)
}

func TestThenShortCircuits(t *testing.T) {
	ctx := context.Background()
	called := false
	first := Go(ctx, func(ctx context.Context) (int, error) { return 0, errors.New("boom") })
	second := Then(ctx, first, func(ctx context.Context, v int) (string, error) {
		called = true
		return "x", nil
	})
	v, err := second.Await(ctx)
	assert.EqualError(t, err, "boom")
	assert.Equal(t, "", v)
	assert.False(t, called)
}
