package config

import (
	"fmt"
	"math"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

const (
	DefaultBaseURL = "https://liyang-assets.explorium.cn/3d/VCOE2100080-S3R1/"
	DefaultModel   = "VCOE2100080-S3R1_0"
)

type Lights struct {
	Point        float32 `yaml:"point" json:"point"`
	PointColor   Color   `yaml:"point_color" json:"point_color"`
	Ambient      float32 `yaml:"ambient" json:"ambient"`
	AmbientColor Color   `yaml:"ambient_color" json:"ambient_color"`
}

type Camera struct {
	Fov      float32    `yaml:"fov" json:"fov"`
	Near     float32    `yaml:"near" json:"near"`
	Far      float32    `yaml:"far" json:"far"`
	Position [3]float32 `yaml:"position,flow" json:"position"`
}

type Controls struct {
	MinDistance     float32 `yaml:"min_distance" json:"min_distance"`
	MaxDistance     float32 `yaml:"max_distance" json:"max_distance"`
	EnableDamping   bool    `yaml:"enable_damping" json:"enable_damping"`
	DampingFactor   float32 `yaml:"damping_factor" json:"damping_factor"`
	EnablePan       bool    `yaml:"enable_pan" json:"enable_pan"`
	AutoRotate      bool    `yaml:"auto_rotate" json:"auto_rotate"`
	AutoRotateSpeed float32 `yaml:"auto_rotate_speed" json:"auto_rotate_speed"`
}

type Viewport struct {
	Width  int `yaml:"width" json:"width"`
	Height int `yaml:"height" json:"height"`
	FPS    int `yaml:"fps" json:"fps"`
}

// Config is built once at startup: Default, then LoadFile, ApplyQuery and
// flags, then Sanitize.
type Config struct {
	BaseURL    string   `yaml:"base_url" json:"base_url"`
	Model      string   `yaml:"model" json:"model"`
	Encoding   string   `yaml:"encoding" json:"encoding"`
	Listen     string   `yaml:"listen" json:"listen"`
	AssetsDir  string   `yaml:"assets_dir" json:"assets_dir"`
	Background Color    `yaml:"background" json:"background"`
	Lights     Lights   `yaml:"lights" json:"lights"`
	Camera     Camera   `yaml:"camera" json:"camera"`
	Controls   Controls `yaml:"controls" json:"controls"`
	Viewport   Viewport `yaml:"viewport" json:"viewport"`
}

func Default() Config {
	return Config{
		BaseURL:    DefaultBaseURL,
		Model:      DefaultModel,
		Encoding:   EncodingUTF8,
		Listen:     ":8000",
		Background: 0xB8B8B8,
		Lights: Lights{
			Point:        0.1,
			PointColor:   0x636363,
			Ambient:      0.8,
			AmbientColor: 0xffffff,
		},
		Camera: Camera{
			Fov:      40,
			Near:     1,
			Far:      20000,
			Position: [3]float32{-10, 0, 23},
		},
		Controls: Controls{
			MinDistance:     100,
			MaxDistance:     500,
			EnableDamping:   true,
			DampingFactor:   0.05,
			EnablePan:       true,
			AutoRotateSpeed: 2,
		},
		Viewport: Viewport{
			Width:  800,
			Height: 600,
			FPS:    60,
		},
	}
}

// ParamError reports a malformed parameter that was replaced by its default
type ParamError struct {
	Param string
	Value string
	Err   error
}

func (e *ParamError) Error() string {
	return fmt.Sprintf("parameter %s=%q: %v, using default", e.Param, e.Value, e.Err)
}

func (e *ParamError) Unwrap() error {
	return e.Err
}

// LoadFile overlays yaml file at path onto c
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrapf(err, "Failed to read config")
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return errors.Wrapf(err, "Failed to unmarshal config %q", path)
	}
	return nil
}

func (c *Config) YAML() ([]byte, error) {
	return yaml.Marshal(c)
}

// ApplyQuery overlays url query parameters (model, point_light, ambient_light,
// point_light_color, ambient_light_color). Unknown parameters are ignored,
// malformed ones keep the current value and are reported.
func (c *Config) ApplyQuery(raw string) []error {
	var problems []error
	values, err := url.ParseQuery(strings.TrimPrefix(raw, "?"))
	if err != nil {
		problems = append(problems, &ParamError{Param: "query", Value: raw, Err: err})
	}

	if v := values.Get("model"); v != "" {
		if err := ValidateModelName(v); err != nil {
			problems = append(problems, &ParamError{Param: "model", Value: v, Err: err})
		} else {
			c.Model = v
		}
	}
	intensity := func(param string, dst *float32) {
		if v := values.Get(param); v != "" {
			if f, err := ParseIntensity(v); err != nil {
				problems = append(problems, &ParamError{Param: param, Value: v, Err: err})
			} else {
				*dst = f
			}
		}
	}
	color := func(param string, dst *Color) {
		if v := values.Get(param); v != "" {
			if col, err := ParseColor(v); err != nil {
				problems = append(problems, &ParamError{Param: param, Value: v, Err: err})
			} else {
				*dst = col
			}
		}
	}
	intensity("point_light", &c.Lights.Point)
	intensity("ambient_light", &c.Lights.Ambient)
	color("point_light_color", &c.Lights.PointColor)
	color("ambient_light_color", &c.Lights.AmbientColor)
	return problems
}

// ParseIntensity accepts finite non negative floats only
func ParseIntensity(s string) (float32, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 32)
	if err != nil {
		return 0, errors.Errorf("not a number")
	}
	if math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
		return 0, errors.Errorf("intensity must be a finite non negative number")
	}
	return float32(f), nil
}

// ValidateModelName rejects names that could escape the base url
func ValidateModelName(name string) error {
	if strings.ContainsAny(name, "/\\") || strings.Contains(name, "..") {
		return errors.Errorf("model name must not contain path separators")
	}
	return nil
}

// Sanitize resets every invalid field to its default and reports it
func (c *Config) Sanitize() []error {
	def := Default()
	var problems []error
	reset := func(param string, value interface{}, reason string, fix func()) {
		problems = append(problems, &ParamError{Param: param, Value: fmt.Sprint(value), Err: errors.New(reason)})
		fix()
	}
	finite := func(f float32) bool {
		return !math.IsNaN(float64(f)) && !math.IsInf(float64(f), 0)
	}

	if c.BaseURL == "" {
		reset("base_url", c.BaseURL, "empty", func() { c.BaseURL = def.BaseURL })
	}
	if c.Model == "" || ValidateModelName(c.Model) != nil {
		reset("model", c.Model, "invalid model name", func() { c.Model = def.Model })
	}
	if _, err := LookupEncoding(c.Encoding); err != nil {
		reset("encoding", c.Encoding, err.Error(), func() { c.Encoding = def.Encoding })
	}
	if !finite(c.Lights.Point) || c.Lights.Point < 0 {
		reset("point_light", c.Lights.Point, "invalid intensity", func() { c.Lights.Point = def.Lights.Point })
	}
	if !finite(c.Lights.Ambient) || c.Lights.Ambient < 0 {
		reset("ambient_light", c.Lights.Ambient, "invalid intensity", func() { c.Lights.Ambient = def.Lights.Ambient })
	}
	if !finite(c.Camera.Fov) || c.Camera.Fov <= 0 || c.Camera.Fov >= 180 {
		reset("camera.fov", c.Camera.Fov, "must be in (0, 180)", func() { c.Camera.Fov = def.Camera.Fov })
	}
	if !finite(c.Camera.Near) || !finite(c.Camera.Far) || c.Camera.Near <= 0 || c.Camera.Far <= c.Camera.Near {
		reset("camera.near/far", [2]float32{c.Camera.Near, c.Camera.Far}, "need 0 < near < far", func() {
			c.Camera.Near, c.Camera.Far = def.Camera.Near, def.Camera.Far
		})
	}
	if c.Controls.MinDistance < 0 || c.Controls.MaxDistance < c.Controls.MinDistance {
		reset("controls.distance", [2]float32{c.Controls.MinDistance, c.Controls.MaxDistance}, "need 0 <= min <= max", func() {
			c.Controls.MinDistance, c.Controls.MaxDistance = def.Controls.MinDistance, def.Controls.MaxDistance
		})
	}
	if !(c.Controls.DampingFactor > 0 && c.Controls.DampingFactor <= 1) {
		reset("controls.damping_factor", c.Controls.DampingFactor, "must be in (0, 1]", func() {
			c.Controls.DampingFactor = def.Controls.DampingFactor
		})
	}
	if c.Viewport.Width <= 0 || c.Viewport.Height <= 0 {
		reset("viewport", [2]int{c.Viewport.Width, c.Viewport.Height}, "must be positive", func() {
			c.Viewport.Width, c.Viewport.Height = def.Viewport.Width, def.Viewport.Height
		})
	}
	if c.Viewport.FPS <= 0 || c.Viewport.FPS > 240 {
		reset("viewport.fps", c.Viewport.FPS, "must be in [1, 240]", func() { c.Viewport.FPS = def.Viewport.FPS })
	}
	return problems
}
