package render

import (
	"image"
	"math"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"

	"github.com/mogaika/model_viewer/r3d"
	"github.com/mogaika/model_viewer/utils"
)

const minClipW = 1e-5

type lighting struct {
	ambient  utils.ColorFloat
	point    utils.ColorFloat
	pointPos mgl32.Vec3
	eye      mgl32.Vec3
}

// shade lights both faces: the normal is flipped toward the eye
func (l *lighting) shade(base, emissive utils.ColorFloat, centroid, normal mgl32.Vec3) utils.ColorFloat {
	if normal.Dot(l.eye.Sub(centroid)) < 0 {
		normal = normal.Mul(-1)
	}
	light := l.ambient
	toLight := l.pointPos.Sub(centroid)
	if d := toLight.Len(); d > 0 {
		if lambert := normal.Dot(toLight.Mul(1 / d)); lambert > 0 {
			light = light.Add(l.point.Scale(lambert))
		}
	}
	return base.Mul(light).Add(emissive)
}

type screenVertex struct {
	x, y, z float32
	invW    float32
	uv      mgl32.Vec2
}

type texSampler struct {
	img    image.Image
	scale  mgl32.Vec2
	offset mgl32.Vec2
}

func newTexSampler(mat *r3d.Material, mesh *r3d.Mesh) *texSampler {
	if !mat.DiffuseMap.Loaded() || len(mesh.UVs) != len(mesh.Positions) {
		return nil
	}
	s := &texSampler{img: mat.DiffuseMap.Image, scale: mat.DiffuseMapOptions.Scale, offset: mat.DiffuseMapOptions.Offset}
	if s.scale == (mgl32.Vec2{}) {
		s.scale = mgl32.Vec2{1, 1}
	}
	return s
}

// sample wraps uv (repeat) and reads the nearest texel, v grows upwards
func (s *texSampler) sample(uv mgl32.Vec2) utils.ColorFloat {
	u := uv[0]*s.scale[0] + s.offset[0]
	v := uv[1]*s.scale[1] + s.offset[1]
	u -= float32(math.Floor(float64(u)))
	v -= float32(math.Floor(float64(v)))

	b := s.img.Bounds()
	x := b.Min.X + int(u*float32(b.Dx()))
	y := b.Min.Y + int((1-v)*float32(b.Dy()))
	if x >= b.Max.X {
		x = b.Max.X - 1
	}
	if y >= b.Max.Y {
		y = b.Max.Y - 1
	}
	return utils.NewColorFloatFromColor(s.img.At(x, y))
}

func (r *Renderer) drawMesh(mesh *r3d.Mesh, world, viewProj mgl32.Mat4, lights *lighting) error {
	mat := mesh.Material
	if mat == nil {
		mat = r3d.DefaultMaterial()
	}
	mvp := viewProj.Mul4(world)
	tex := newTexSampler(mat, mesh)
	w, h := float32(r.width), float32(r.height)

	for i := 0; i+2 < len(mesh.Indices); i += 3 {
		var idx [3]uint32
		copy(idx[:], mesh.Indices[i:i+3])

		var wp [3]mgl32.Vec3
		var sv [3]screenVertex
		visible := true
		for k, vi := range idx {
			if int(vi) >= len(mesh.Positions) {
				return errors.Errorf("mesh %q: index %d out of range", mesh.Name, vi)
			}
			p := mesh.Positions[vi].Vec4(1)
			wp[k] = world.Mul4x1(p).Vec3()
			clip := mvp.Mul4x1(p)
			if clip.W() < minClipW {
				// behind or on the eye plane, no near clipping
				visible = false
				break
			}
			invW := 1 / clip.W()
			sv[k] = screenVertex{
				x:    (clip.X()*invW + 1) * 0.5 * w,
				y:    (1 - clip.Y()*invW) * 0.5 * h,
				z:    clip.Z() * invW,
				invW: invW,
			}
			if tex != nil {
				sv[k].uv = mesh.UVs[vi]
			}
		}
		if !visible {
			r.stats.Culled++
			continue
		}

		area := edge(sv[0].x, sv[0].y, sv[1].x, sv[1].y, sv[2].x, sv[2].y)
		// screen y points down, counter clockwise front faces get a negative area
		if !r.onScreen(&sv) || area == 0 || math.IsNaN(float64(area)) || math.IsInf(float64(area), 0) || (r.CullBackfaces && area > 0) {
			r.stats.Culled++
			continue
		}

		normal := wp[1].Sub(wp[0]).Cross(wp[2].Sub(wp[0]))
		if l := normal.Len(); l > 0 {
			normal = normal.Mul(1 / l)
		}
		centroid := wp[0].Add(wp[1]).Add(wp[2]).Mul(1.0 / 3)
		shade := lights.shade(mat.Diffuse, mat.Emissive, centroid, normal)

		r.rasterize(&sv, area, shade, tex)
		r.stats.Triangles++
	}
	return nil
}

func edge(ax, ay, bx, by, px, py float32) float32 {
	return (bx-ax)*(py-ay) - (by-ay)*(px-ax)
}

// onScreen reports whether the triangle box is finite and overlaps the viewport
func (r *Renderer) onScreen(sv *[3]screenVertex) bool {
	for _, v := range sv {
		for _, c := range [...]float32{v.x, v.y, v.z} {
			if math.IsNaN(float64(c)) || math.IsInf(float64(c), 0) {
				return false
			}
		}
	}
	return max3(sv[0].x, sv[1].x, sv[2].x) >= 0 && min3(sv[0].x, sv[1].x, sv[2].x) <= float32(r.width) &&
		max3(sv[0].y, sv[1].y, sv[2].y) >= 0 && min3(sv[0].y, sv[1].y, sv[2].y) <= float32(r.height)
}

func (r *Renderer) rasterize(sv *[3]screenVertex, area float32, shade utils.ColorFloat, tex *texSampler) {
	minX := int(math.Max(0, math.Floor(float64(min3(sv[0].x, sv[1].x, sv[2].x)))))
	maxX := int(math.Min(float64(r.width-1), math.Ceil(float64(max3(sv[0].x, sv[1].x, sv[2].x)))))
	minY := int(math.Max(0, math.Floor(float64(min3(sv[0].y, sv[1].y, sv[2].y)))))
	maxY := int(math.Min(float64(r.height-1), math.Ceil(float64(max3(sv[0].y, sv[1].y, sv[2].y)))))

	flat := shade.NRGBA()
	invArea := 1 / area
	for y := minY; y <= maxY; y++ {
		for x := minX; x <= maxX; x++ {
			px, py := float32(x)+0.5, float32(y)+0.5

			b0 := edge(sv[1].x, sv[1].y, sv[2].x, sv[2].y, px, py) * invArea
			b1 := edge(sv[2].x, sv[2].y, sv[0].x, sv[0].y, px, py) * invArea
			b2 := edge(sv[0].x, sv[0].y, sv[1].x, sv[1].y, px, py) * invArea
			if b0 < 0 || b1 < 0 || b2 < 0 {
				continue
			}

			z := b0*sv[0].z + b1*sv[1].z + b2*sv[2].z
			if z < -1 || z > 1 {
				continue
			}
			di := y*r.width + x
			if z >= r.depth[di] {
				continue
			}
			r.depth[di] = z

			c := flat
			if tex != nil {
				// perspective correct uv
				w0, w1, w2 := b0*sv[0].invW, b1*sv[1].invW, b2*sv[2].invW
				if sum := w0 + w1 + w2; sum != 0 {
					uv := sv[0].uv.Mul(w0).Add(sv[1].uv.Mul(w1)).Add(sv[2].uv.Mul(w2)).Mul(1 / sum)
					c = shade.Mul(tex.sample(uv)).NRGBA()
				}
			}
			pi := r.back.PixOffset(x, y)
			r.back.Pix[pi+0] = c.R
			r.back.Pix[pi+1] = c.G
			r.back.Pix[pi+2] = c.B
			r.back.Pix[pi+3] = 255
		}
	}
}

func min3(a, b, c float32) float32 {
	return float32(math.Min(float64(a), math.Min(float64(b), float64(c))))
}

func max3(a, b, c float32) float32 {
	return float32(math.Max(float64(a), math.Max(float64(b), float64(c))))
}
