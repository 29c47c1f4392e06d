package config

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyQueryOverrides(t *testing.T) {
	c := Default()
	problems := c.ApplyQuery("?model=cube_0&point_light=0.5&ambient_light=1.2&point_light_color=%23ff0000&ambient_light_color=teal")
	assert.Empty(t, problems)
	assert.Equal(t, "cube_0", c.Model)
	assert.Equal(t, float32(0.5), c.Lights.Point)
	assert.Equal(t, float32(1.2), c.Lights.Ambient)
	assert.Equal(t, Color(0xff0000), c.Lights.PointColor)
	assert.Equal(t, Color(0x008080), c.Lights.AmbientColor)
}

func TestApplyQueryMalformedKeepsDefault(t *testing.T) {
	c := Default()
	problems := c.ApplyQuery("point_light=abc&ambient_light=-1&point_light_color=zz&model=../etc")
	require.Len(t, problems, 4)
	assert.Equal(t, float32(0.1), c.Lights.Point)
	assert.Equal(t, float32(0.8), c.Lights.Ambient)
	assert.Equal(t, Color(0x636363), c.Lights.PointColor)
	assert.Equal(t, DefaultModel, c.Model)

	var perr *ParamError
	require.True(t, errors.As(problems[0], &perr))
	assert.Equal(t, "model", perr.Param)
	require.True(t, errors.As(problems[1], &perr))
	assert.Equal(t, "point_light", perr.Param)
	assert.Equal(t, "abc", perr.Value)
}

func TestApplyQueryIgnoresUnknown(t *testing.T) {
	c := Default()
	assert.Empty(t, c.ApplyQuery("foo=bar"))
	assert.Equal(t, Default(), c)
}

func TestParseColor(t *testing.T) {
	for in, want := range map[string]Color{
		"#636363":  0x636363,
		"636363":   0x636363,
		"0xFFFFFF": 0xffffff,
		"#fff":     0xffffff,
		"16711680": 0xff0000,
		"White":    0xffffff,
		" red ":    0xff0000,
	} {
		got, err := ParseColor(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	for _, in := range []string{"", "#12345", "0x1000000", "notacolor", "99999999"} {
		_, err := ParseColor(in)
		assert.Error(t, err, in)
	}
	assert.Equal(t, "#b8b8b8", Color(0xB8B8B8).String())
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "viewer.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
base_url: file:///srv/models
model: cube_0
background: "#000"
lights:
  point: 0.3
  point_color: "0xffffff"
viewport:
  fps: 30
`), 0666))

	c := Default()
	require.NoError(t, c.LoadFile(path))
	assert.Equal(t, "file:///srv/models", c.BaseURL)
	assert.Equal(t, "cube_0", c.Model)
	assert.Equal(t, Color(0), c.Background)
	assert.Equal(t, float32(0.3), c.Lights.Point)
	assert.Equal(t, Color(0xffffff), c.Lights.PointColor)
	assert.Equal(t, float32(0.8), c.Lights.Ambient)
	assert.Equal(t, 30, c.Viewport.FPS)
	assert.Equal(t, 800, c.Viewport.Width)

	assert.Error(t, c.LoadFile(filepath.Join(t.TempDir(), "missing.yaml")))
}

func TestLoadFileBadColor(t *testing.T) {
	path := filepath.Join(t.TempDir(), "viewer.yaml")
	require.NoError(t, os.WriteFile(path, []byte("background: nope\n"), 0666))
	c := Default()
	assert.Error(t, c.LoadFile(path))
}

func TestYAMLRoundTrip(t *testing.T) {
	c := Default()
	data, err := c.YAML()
	require.NoError(t, err)
	assert.Contains(t, string(data), "#b8b8b8")

	path := filepath.Join(t.TempDir(), "viewer.yaml")
	require.NoError(t, os.WriteFile(path, data, 0666))
	var back Config
	require.NoError(t, back.LoadFile(path))
	assert.Equal(t, c, back)
}

func TestSanitize(t *testing.T) {
	c := Default()
	assert.Empty(t, c.Sanitize())

	c.Lights.Point = float32(math.NaN())
	c.Camera.Near = 0
	c.Viewport.FPS = 0
	c.Encoding = "klingon"
	c.Controls.MaxDistance = 1
	problems := c.Sanitize()
	assert.Len(t, problems, 5)
	assert.Equal(t, Default(), c)
}

func TestLookupEncoding(t *testing.T) {
	enc, err := LookupEncoding("")
	require.NoError(t, err)
	assert.Nil(t, enc)

	enc, err = LookupEncoding("gbk")
	require.NoError(t, err)
	text, err := DecodeText(enc, []byte{0xc4, 0xe3, 0xba, 0xc3})
	require.NoError(t, err)
	assert.Equal(t, "你好", string(text))

	enc, err = LookupEncoding("Windows 1251")
	require.NoError(t, err)
	text, err = DecodeText(enc, []byte{0xcf, 0xf0, 0xe8})
	require.NoError(t, err)
	assert.Equal(t, "При", string(text))

	_, err = LookupEncoding("klingon")
	assert.Error(t, err)
	assert.Contains(t, ListEncodings(), EncodingUTF8)
}
