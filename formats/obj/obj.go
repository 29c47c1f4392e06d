// Package obj decodes Wavefront geometry (*.obj) into an r3d node hierarchy.
// Every object (o) or group (g) becomes a child node, split into one mesh
// node per run of faces sharing a material. Polygons are triangulated as fans.
package obj

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"

	"github.com/mogaika/model_viewer/r3d"
	"github.com/mogaika/model_viewer/utils"
)

// MaterialSource resolves usemtl names, *mtl.Library implements it
type MaterialSource interface {
	Get(name string) *r3d.Material
}

type Result struct {
	Root         *r3d.Node
	MaterialLibs []string
	Warnings     []string
}

const blanks = "\r\n\t "

type corner struct {
	v, vt, vn int // -1 when absent
}

type face struct {
	corners  []corner
	material string
	line     int
}

type object struct {
	name  string
	faces []face
}

type decoder struct {
	materials MaterialSource
	names     utils.RandomNameGenerator

	positions []mgl32.Vec3
	normals   []mgl32.Vec3
	uvs       []mgl32.Vec2

	objects     []*object
	current     *object
	usemtl      string
	matlibs     []string
	warnings    []string
	line        int
	unsupported map[string]bool

	defaultMaterial *r3d.Material
	resolved        map[string]*r3d.Material
}

// Decode reads geometry from r. materials may be nil, then every face gets the default material.
func Decode(r io.Reader, name string, materials MaterialSource) (*Result, error) {
	dec := &decoder{
		materials:   materials,
		unsupported: make(map[string]bool),
		resolved:    make(map[string]*r3d.Material),
	}
	if err := dec.parse(r); err != nil {
		return nil, err
	}
	root, err := dec.build(name)
	if err != nil {
		return nil, err
	}
	return &Result{Root: root, MaterialLibs: dec.matlibs, Warnings: dec.warnings}, nil
}

func (dec *decoder) warn(format string, a ...interface{}) {
	dec.warnings = append(dec.warnings, fmt.Sprintf("obj line %d: %s", dec.line, fmt.Sprintf(format, a...)))
}

func (dec *decoder) formatError(format string, a ...interface{}) error {
	return errors.Errorf("obj line %d: %s", dec.line, fmt.Sprintf(format, a...))
}

func (dec *decoder) parse(r io.Reader) error {
	bufin := bufio.NewReader(r)
	dec.line = 1
	for {
		line, err := bufin.ReadString('\n')
		if err != nil && err != io.EOF {
			return errors.Wrapf(err, "obj line %d: read", dec.line)
		}
		if perr := dec.parseLine(strings.Trim(line, blanks)); perr != nil {
			return perr
		}
		if err == io.EOF {
			return nil
		}
		dec.line++
	}
}

func (dec *decoder) parseLine(line string) error {
	fields := strings.Fields(line)
	if len(fields) == 0 || strings.HasPrefix(fields[0], "#") {
		return nil
	}
	switch fields[0] {
	case "mtllib":
		if len(fields) < 2 {
			return dec.formatError("mtllib with no fields")
		}
		dec.matlibs = append(dec.matlibs, strings.Join(fields[1:], " "))
	case "o", "g":
		// groups are treated as objects
		name := ""
		if len(fields) > 1 {
			name = strings.Join(fields[1:], " ")
		}
		dec.newObject(name)
	case "v":
		v, err := dec.parseVec3(fields[1:])
		if err != nil {
			return err
		}
		dec.positions = append(dec.positions, v)
	case "vn":
		v, err := dec.parseVec3(fields[1:])
		if err != nil {
			return err
		}
		dec.normals = append(dec.normals, v)
	case "vt":
		if len(fields) < 2 {
			return dec.formatError("less than 1 texture coordinate in 'vt' line")
		}
		var uv mgl32.Vec2
		for i := 0; i < 2 && i+1 < len(fields); i++ {
			val, err := strconv.ParseFloat(fields[i+1], 32)
			if err != nil {
				return dec.formatError("vt: %v", err)
			}
			uv[i] = float32(val)
		}
		dec.uvs = append(dec.uvs, uv)
	case "f":
		return dec.parseFace(fields[1:])
	case "usemtl":
		if len(fields) < 2 {
			return dec.formatError("usemtl with no fields")
		}
		dec.usemtl = strings.Join(fields[1:], " ")
	case "s":
		// smoothing groups are ignored, normals come from the file or faces
	default:
		if !dec.unsupported[fields[0]] {
			dec.unsupported[fields[0]] = true
			dec.warn("field not supported: %s", utils.DumpToOneLineString([]byte(fields[0])))
		}
	}
	return nil
}

func (dec *decoder) newObject(name string) {
	if name == "" {
		name = dec.names.RandomName()
	} else {
		dec.names.Reserve(name)
	}
	dec.current = &object{name: name}
	dec.objects = append(dec.objects, dec.current)
}

func (dec *decoder) parseVec3(fields []string) (mgl32.Vec3, error) {
	var v mgl32.Vec3
	if len(fields) < 3 {
		return v, dec.formatError("less than 3 components")
	}
	for i := range v {
		val, err := strconv.ParseFloat(fields[i], 32)
		if err != nil {
			return v, dec.formatError("%v", err)
		}
		v[i] = float32(val)
	}
	return v, nil
}

// resolveIndex turns 1 based or negative relative index into 0 based
func (dec *decoder) resolveIndex(s string, count int) (int, error) {
	val, err := strconv.ParseInt(s, 10, 32)
	if err != nil {
		return 0, dec.formatError("face index %q: %v", s, err)
	}
	var idx int
	switch {
	case val > 0:
		idx = int(val - 1)
	case val < 0:
		idx = count + int(val)
	default:
		return 0, dec.formatError("face index equal to 0")
	}
	if idx < 0 || idx >= count {
		return 0, dec.formatError("face index %d out of range (%d defined)", val, count)
	}
	return idx, nil
}

// f v1[/vt1][/vn1] v2[/vt2][/vn2] v3[/vt3][/vn3] ...
func (dec *decoder) parseFace(fields []string) error {
	if len(fields) < 3 {
		return dec.formatError("face line with less than 3 fields")
	}
	if dec.current == nil {
		// faces before any o/g line go to an anonymous object
		dec.newObject("")
	}

	f := face{corners: make([]corner, len(fields)), material: dec.usemtl, line: dec.line}
	for i, field := range fields {
		parts := strings.Split(field, "/")
		c := corner{v: -1, vt: -1, vn: -1}
		var err error
		if c.v, err = dec.resolveIndex(parts[0], len(dec.positions)); err != nil {
			return err
		}
		if len(parts) > 1 && parts[1] != "" {
			if c.vt, err = dec.resolveIndex(parts[1], len(dec.uvs)); err != nil {
				return err
			}
		}
		if len(parts) > 2 && parts[2] != "" {
			if c.vn, err = dec.resolveIndex(parts[2], len(dec.normals)); err != nil {
				return err
			}
		}
		f.corners[i] = c
	}
	dec.current.faces = append(dec.current.faces, f)
	return nil
}

func (dec *decoder) material(name string) *r3d.Material {
	if m, ok := dec.resolved[name]; ok {
		return m
	}
	var m *r3d.Material
	if name != "" && dec.materials != nil {
		m = dec.materials.Get(name)
	}
	if m == nil {
		if name != "" {
			dec.warnings = append(dec.warnings, fmt.Sprintf("material %q not found, using default", name))
		}
		if dec.defaultMaterial == nil {
			dec.defaultMaterial = r3d.DefaultMaterial()
		}
		m = dec.defaultMaterial
	}
	dec.resolved[name] = m
	return m
}

func (dec *decoder) build(name string) (*r3d.Node, error) {
	root := r3d.NewNode(name)
	for _, ob := range dec.objects {
		if len(ob.faces) == 0 {
			continue
		}
		group := r3d.NewNode(ob.name)
		var mesh *r3d.Mesh
		withUVs := false
		flush := func() {
			if mesh == nil {
				return
			}
			if !withUVs {
				mesh.UVs = nil
			}
			group.Add(r3d.NewMeshNode(mesh.Name, mesh))
		}
		for i := range ob.faces {
			f := &ob.faces[i]
			if mesh == nil || mesh.Material != dec.material(f.material) {
				flush()
				mesh = &r3d.Mesh{
					Name:     fmt.Sprintf("%s_%d", ob.name, len(group.Childs)),
					Material: dec.material(f.material),
				}
				withUVs = false
			}
			if dec.appendFace(mesh, f) {
				withUVs = true
			}
		}
		flush()
		root.Add(group)
	}
	return root, nil
}

// appendFace copies face corners into mesh and triangulates as a fan, returns whether uvs were present
func (dec *decoder) appendFace(mesh *r3d.Mesh, f *face) bool {
	base := uint32(len(mesh.Positions))
	hasNormals := true
	hasUVs := false
	for _, c := range f.corners {
		mesh.Positions = append(mesh.Positions, dec.positions[c.v])
		if c.vn >= 0 {
			mesh.Normals = append(mesh.Normals, dec.normals[c.vn])
		} else {
			hasNormals = false
			mesh.Normals = append(mesh.Normals, mgl32.Vec3{})
		}
		if c.vt >= 0 {
			hasUVs = true
			mesh.UVs = append(mesh.UVs, dec.uvs[c.vt])
		} else {
			mesh.UVs = append(mesh.UVs, mgl32.Vec2{})
		}
	}
	for k := 2; k < len(f.corners); k++ {
		mesh.Indices = append(mesh.Indices, base, base+uint32(k-1), base+uint32(k))
	}
	if !hasNormals {
		a, b, c := mesh.Positions[base], mesh.Positions[base+1], mesh.Positions[base+2]
		n := b.Sub(a).Cross(c.Sub(a))
		if n.Len() > 0 {
			n = n.Normalize()
		}
		for i := range f.corners {
			mesh.Normals[int(base)+i] = n
		}
	}
	return hasUVs
}
