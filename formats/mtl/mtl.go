// Package mtl decodes Wavefront material libraries (*.mtl).
// Only the subset used by the viewer is interpreted: colors, shininess,
// opacity, illumination model and texture maps with scale/offset options.
package mtl

import (
	"fmt"
	"image"
	"path"
	"strconv"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"

	"github.com/mogaika/model_viewer/r3d"
	"github.com/mogaika/model_viewer/utils"
)

type Library struct {
	Materials map[string]*r3d.Material
	// material names in declaration order
	Order    []string
	Warnings []string

	textures     map[string]*r3d.Texture
	textureOrder []string
}

func NewLibrary() *Library {
	return &Library{
		Materials: make(map[string]*r3d.Material),
		textures:  make(map[string]*r3d.Texture),
	}
}

// Get returns material by name or nil
func (l *Library) Get(name string) *r3d.Material {
	if l == nil {
		return nil
	}
	return l.Materials[name]
}

// TexturePaths lists unique texture paths referenced by materials, in order of first use
func (l *Library) TexturePaths() []string {
	return append([]string(nil), l.textureOrder...)
}

// SetTextureImage attaches decoded image to every material slot referencing texturePath
func (l *Library) SetTextureImage(texturePath string, img image.Image) bool {
	if tex, ok := l.textures[texturePath]; ok {
		tex.Image = img
		return true
	}
	return false
}

func (l *Library) texture(p string) *r3d.Texture {
	if tex, ok := l.textures[p]; ok {
		return tex
	}
	tex := &r3d.Texture{Path: p}
	l.textures[p] = tex
	l.textureOrder = append(l.textureOrder, p)
	return tex
}

func (l *Library) warn(line int, format string, a ...interface{}) {
	l.Warnings = append(l.Warnings, fmt.Sprintf("mtl line %d: %s", line, fmt.Sprintf(format, a...)))
}

// Decode parses material library text. Unsupported statements are collected
// as warnings, malformed values of supported ones are errors.
func Decode(text []byte) (*Library, error) {
	statements, err := tokenize(text)
	if err != nil {
		return nil, err
	}

	lib := NewLibrary()
	var current *r3d.Material
	for _, st := range statements {
		if st.keyword == "newmtl" {
			name := strings.Join(st.strings(), " ")
			if name == "" {
				return nil, errors.Errorf("mtl line %d: newmtl without name", st.line)
			}
			current = r3d.DefaultMaterial()
			current.Name = name
			current.Diffuse = utils.ColorFloat{1, 1, 1, 1}
			current.Ambient = utils.ColorFloat{1, 1, 1, 1}
			if _, exists := lib.Materials[name]; exists {
				lib.warn(st.line, "material %q redefined", name)
			} else {
				lib.Order = append(lib.Order, name)
			}
			lib.Materials[name] = current
			continue
		}
		if current == nil {
			lib.warn(st.line, "statement %q before newmtl", st.keyword)
			continue
		}
		if err := lib.decodeStatement(current, st); err != nil {
			return nil, errors.Wrapf(err, "mtl line %d", st.line)
		}
	}
	return lib, nil
}

func (l *Library) decodeStatement(m *r3d.Material, st *statement) error {
	args := st.strings()
	var err error
	switch st.keyword {
	case "Ka":
		m.Ambient, err = parseColor(args)
	case "Kd":
		m.Diffuse, err = parseColor(args)
	case "Ks":
		m.Specular, err = parseColor(args)
	case "Ke":
		m.Emissive, err = parseColor(args)
	case "Ns":
		m.Shininess, err = parseFloat(args)
	case "d":
		m.Opacity, err = parseFloat(args)
	case "Tr":
		var tr float32
		if tr, err = parseFloat(args); err == nil {
			m.Opacity = 1 - tr
		}
	case "illum":
		if len(args) < 1 {
			return errors.Errorf("illum without value")
		}
		m.Illum, err = strconv.Atoi(args[0])
	case "map_Kd":
		var opts r3d.TextureOptions
		m.DiffuseMap, opts, err = l.parseMap(args)
		m.DiffuseMapOptions = opts
	case "map_Ka":
		m.AmbientMap, _, err = l.parseMap(args)
	case "map_Ks":
		m.SpecularMap, _, err = l.parseMap(args)
	case "map_d":
		m.AlphaMap, _, err = l.parseMap(args)
	case "map_Bump", "map_bump", "bump":
		m.BumpMap, _, err = l.parseMap(args)
	case "Ni", "Tf", "sharpness", "map_Ns", "disp", "decal", "refl":
		// recognized, not used by the viewer
	default:
		l.warn(st.line, "statement %q not supported", st.keyword)
	}
	return errors.Wrapf(err, "%s", st.keyword)
}

// Ka r [g b]; a single value is gray
func parseColor(args []string) (utils.ColorFloat, error) {
	if len(args) > 0 && (args[0] == "spectral" || args[0] == "xyz") {
		return utils.ColorFloat{1, 1, 1, 1}, nil
	}
	if len(args) != 1 && len(args) < 3 {
		return utils.ColorFloat{}, errors.Errorf("expected 1 or 3 components, got %d", len(args))
	}
	var c [3]float32
	for i := range c {
		src := args[0]
		if len(args) >= 3 {
			src = args[i]
		}
		v, err := strconv.ParseFloat(src, 32)
		if err != nil {
			return utils.ColorFloat{}, errors.Wrapf(err, "component %d", i)
		}
		c[i] = float32(v)
	}
	return utils.NewColorFloat(c[:]), nil
}

func parseFloat(args []string) (float32, error) {
	if len(args) < 1 {
		return 0, errors.Errorf("missing value")
	}
	v, err := strconv.ParseFloat(args[0], 32)
	return float32(v), err
}

// number of parameters of texture map options, -s/-o/-t take up to 3 numbers
var mapOptionArgs = map[string]int{
	"-s": 3, "-o": 3, "-t": 3,
	"-bm": 1, "-blendu": 1, "-blendv": 1, "-boost": 1, "-cc": 1, "-clamp": 1,
	"-imfchan": 1, "-mm": 2, "-texres": 1, "-type": 1,
}

// map_Kd [options] file name with spaces
func (l *Library) parseMap(args []string) (*r3d.Texture, r3d.TextureOptions, error) {
	opts := r3d.TextureOptions{Scale: mgl32.Vec2{1, 1}}
	i := 0
	for i < len(args) {
		count, isOption := mapOptionArgs[args[i]]
		if !isOption {
			break
		}
		option := args[i]
		i++
		values := make([]float32, 0, count)
		for n := 0; n < count && i < len(args); n++ {
			v, err := strconv.ParseFloat(args[i], 32)
			if err != nil {
				if option == "-s" || option == "-o" || option == "-t" {
					break
				}
				// on/off and channel flags
				i++
				continue
			}
			values = append(values, float32(v))
			i++
		}
		switch option {
		case "-s":
			if len(values) >= 2 {
				opts.Scale = mgl32.Vec2{values[0], values[1]}
			} else if len(values) == 1 {
				opts.Scale = mgl32.Vec2{values[0], values[0]}
			}
		case "-o":
			if len(values) >= 2 {
				opts.Offset = mgl32.Vec2{values[0], values[1]}
			} else if len(values) == 1 {
				opts.Offset = mgl32.Vec2{values[0], 0}
			}
		}
	}
	if i >= len(args) {
		return nil, opts, errors.Errorf("texture map without file name")
	}
	p := path.Clean(strings.ReplaceAll(strings.Join(args[i:], " "), "\\", "/"))
	return l.texture(p), opts, nil
}
