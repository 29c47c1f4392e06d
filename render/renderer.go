// Package render is a software rasterizer drawing r3d scenes into RGBA images.
// Shading is per face: ambient plus one lambert point light, optionally
// modulated by the diffuse texture.
package render

import (
	"image"
	"image/color"
	"image/png"
	"io"
	"math"
	"sync"

	"github.com/pkg/errors"

	"github.com/mogaika/model_viewer/r3d"
)

const maxSide = 4096

type Stats struct {
	Frames    uint64 `json:"frames"`
	Triangles int    `json:"triangles"`
	Culled    int    `json:"culled"`
}

type Renderer struct {
	// CullBackfaces skips triangles whose counter clockwise side faces away
	CullBackfaces bool

	width, height int
	back          *image.RGBA
	depth         []float32
	stats         Stats

	lock  sync.Mutex
	front *image.RGBA
	last  Stats
}

func New(width, height int) *Renderer {
	r := &Renderer{}
	r.SetSize(width, height)
	return r
}

// SetSize reallocates buffers, the shown frame stays until the next Render
func (r *Renderer) SetSize(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	if width > maxSide {
		width = maxSide
	}
	if height > maxSide {
		height = maxSide
	}
	if width == r.width && height == r.height && r.back != nil {
		return
	}
	r.width, r.height = width, height
	r.back = image.NewRGBA(image.Rect(0, 0, width, height))
	r.depth = make([]float32, width*height)
}

func (r *Renderer) Size() (int, int) {
	return r.width, r.height
}

// Render draws scene from cam and publishes the frame for Snapshot
func (r *Renderer) Render(scene *r3d.Scene, cam *r3d.PerspectiveCamera) error {
	if r.back == nil {
		return errors.Errorf("renderer has no surface")
	}
	if scene == nil || cam == nil {
		return errors.Errorf("nothing to render")
	}

	r.clear(scene.Background.NRGBA())
	r.stats.Triangles, r.stats.Culled = 0, 0

	viewProj := cam.GetViewProjectionMatrix()
	lights := lighting{
		ambient:  scene.Ambient.Color.Scale(scene.Ambient.Intensity),
		point:    scene.Point.Color.Scale(scene.Point.Intensity),
		pointPos: scene.PointLightPosition(cam),
		eye:      cam.Position,
	}

	var err error
	scene.Root.Traverse(func(n *r3d.Node) {
		if n.Mesh == nil || err != nil {
			return
		}
		err = r.drawMesh(n.Mesh, n.MatrixWorld(), viewProj, &lights)
	})
	if err != nil {
		return errors.Wrapf(err, "Failed to render")
	}

	r.stats.Frames++
	r.lock.Lock()
	if r.front == nil || r.front.Bounds() != r.back.Bounds() {
		r.front = image.NewRGBA(r.back.Bounds())
	}
	copy(r.front.Pix, r.back.Pix)
	r.last = r.stats
	r.lock.Unlock()
	return nil
}

func (r *Renderer) clear(bg color.NRGBA) {
	pix := r.back.Pix
	if len(pix) == 0 {
		return
	}
	pix[0], pix[1], pix[2], pix[3] = bg.R, bg.G, bg.B, 255
	for i := 4; i < len(pix); i *= 2 {
		copy(pix[i:], pix[:i])
	}
	inf := float32(math.Inf(1))
	if len(r.depth) > 0 {
		r.depth[0] = inf
		for i := 1; i < len(r.depth); i *= 2 {
			copy(r.depth[i:], r.depth[:i])
		}
	}
}

// Snapshot copies the last published frame, nil before the first Render
func (r *Renderer) Snapshot() *image.RGBA {
	r.lock.Lock()
	defer r.lock.Unlock()
	if r.front == nil {
		return nil
	}
	img := image.NewRGBA(r.front.Bounds())
	copy(img.Pix, r.front.Pix)
	return img
}

func (r *Renderer) Stats() Stats {
	r.lock.Lock()
	defer r.lock.Unlock()
	return r.last
}

func (r *Renderer) EncodePNG(w io.Writer) error {
	img := r.Snapshot()
	if img == nil {
		return errors.Errorf("no frame rendered yet")
	}
	enc := png.Encoder{CompressionLevel: png.BestSpeed}
	return errors.Wrapf(enc.Encode(w, img), "Failed to encode frame")
}
