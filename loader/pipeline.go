// Package loader fetches a model as material library, textures and geometry,
// strictly in that order, and hands back a ready node hierarchy.
package loader

import (
	"bytes"
	"context"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"log"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
	"golang.org/x/text/encoding"
	"golang.org/x/text/transform"

	"github.com/mogaika/model_viewer/config"
	"github.com/mogaika/model_viewer/formats/mtl"
	"github.com/mogaika/model_viewer/formats/obj"
	"github.com/mogaika/model_viewer/r3d"
	"github.com/mogaika/model_viewer/vfs"
)

type Model struct {
	ID        uuid.UUID
	Name      string
	Root      *r3d.Node
	Materials *mtl.Library
	Warnings  []string
}

type Options struct {
	// Encoding of material and geometry text, nil for utf-8
	Encoding encoding.Encoding
	// OnProgress is called from the loading goroutine
	OnProgress func(Progress)
	// OnStage is called from the loading goroutine when a stage starts
	OnStage func(id uuid.UUID, stage string)
}

type Pipeline struct {
	source   vfs.Source
	opts     Options
	inFlight int32
}

func NewPipeline(source vfs.Source, opts Options) *Pipeline {
	return &Pipeline{source: source, opts: opts}
}

// InFlight reports whether a load is running
func (p *Pipeline) InFlight() bool {
	return atomic.LoadInt32(&p.inFlight) != 0
}

// Load starts loading {name}.mtl, its textures and {name}.obj.
// Only one load may run at a time, otherwise ErrLoadInFlight is returned
// without touching the source.
func (p *Pipeline) Load(ctx context.Context, name string) (*Task[*Model], error) {
	if !atomic.CompareAndSwapInt32(&p.inFlight, 0, 1) {
		return nil, ErrLoadInFlight
	}

	model := &Model{ID: uuid.New(), Name: name}
	log.Printf("[loader] Loading model %q (%v)", name, model.ID)

	materials := Go(ctx, func(ctx context.Context) (*mtl.Library, error) {
		return p.loadMaterials(ctx, model)
	})
	textures := Then(ctx, materials, func(ctx context.Context, lib *mtl.Library) (*mtl.Library, error) {
		p.preloadTextures(ctx, model, lib)
		return lib, nil
	})
	geometry := Then(ctx, textures, func(ctx context.Context, lib *mtl.Library) (*Model, error) {
		return p.loadGeometry(ctx, model, lib)
	})

	return Go(ctx, func(ctx context.Context) (*Model, error) {
		defer atomic.StoreInt32(&p.inFlight, 0)
		// stages honor ctx themselves, wait for the chain to settle before releasing
		m, err := geometry.Await(context.Background())
		if err != nil {
			log.Printf("[loader] Model %q failed: %v", name, err)
		}
		return m, err
	}), nil
}

func (p *Pipeline) stage(model *Model, stage string) {
	if p.opts.OnStage != nil {
		p.opts.OnStage(model.ID, stage)
	}
}

func (p *Pipeline) fetch(ctx context.Context, stage, name string) ([]byte, error) {
	res, err := p.source.Open(ctx, name)
	if err != nil {
		return nil, &FetchError{Stage: stage, URL: p.source.URL(name), Err: err}
	}
	defer res.Close()

	data, err := io.ReadAll(withProgress(res, name, res.Size, p.opts.OnProgress))
	if err != nil {
		return nil, &FetchError{Stage: stage, URL: res.URL, Err: errors.Wrapf(err, "read")}
	}
	return data, nil
}

func (p *Pipeline) loadMaterials(ctx context.Context, model *Model) (*mtl.Library, error) {
	p.stage(model, StageMaterial)
	name := model.Name + ".mtl"
	data, err := p.fetch(ctx, StageMaterial, name)
	if err != nil {
		return nil, err
	}
	if data, err = config.DecodeText(p.opts.Encoding, data); err != nil {
		return nil, &FetchError{Stage: StageMaterial, URL: p.source.URL(name), Err: err}
	}
	lib, err := mtl.Decode(data)
	if err != nil {
		return nil, &FetchError{Stage: StageMaterial, URL: p.source.URL(name), Err: err}
	}
	model.Materials = lib
	model.Warnings = append(model.Warnings, lib.Warnings...)
	return lib, nil
}

// preloadTextures never fails the load, missing textures leave material slots empty
func (p *Pipeline) preloadTextures(ctx context.Context, model *Model, lib *mtl.Library) {
	p.stage(model, StageTexture)
	for _, texPath := range lib.TexturePaths() {
		if ctx.Err() != nil {
			return
		}
		img, err := p.loadTexture(ctx, texPath)
		if err != nil {
			log.Printf("[loader] Texture skipped: %v", err)
			model.Warnings = append(model.Warnings, err.Error())
			continue
		}
		lib.SetTextureImage(texPath, img)
	}
}

func (p *Pipeline) loadTexture(ctx context.Context, texPath string) (image.Image, error) {
	data, err := p.fetch(ctx, StageTexture, texPath)
	if err != nil {
		return nil, err
	}
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, &FetchError{Stage: StageTexture, URL: p.source.URL(texPath), Err: errors.Wrapf(err, "decode")}
	}
	log.Printf("[loader] Texture %q decoded as %s %v", texPath, format, img.Bounds().Size())
	return img, nil
}

func (p *Pipeline) loadGeometry(ctx context.Context, model *Model, lib *mtl.Library) (*Model, error) {
	p.stage(model, StageGeometry)
	name := model.Name + ".obj"
	res, err := p.source.Open(ctx, name)
	if err != nil {
		return nil, &FetchError{Stage: StageGeometry, URL: p.source.URL(name), Err: err}
	}
	defer res.Close()

	var r io.Reader = withProgress(res, name, res.Size, p.opts.OnProgress)
	if p.opts.Encoding != nil {
		r = transform.NewReader(r, p.opts.Encoding.NewDecoder())
	}
	decoded, err := obj.Decode(r, model.Name, lib)
	if err != nil {
		return nil, &FetchError{Stage: StageGeometry, URL: res.URL, Err: err}
	}
	model.Root = decoded.Root
	model.Warnings = append(model.Warnings, decoded.Warnings...)

	meshes, vertices, triangles := model.Root.Stats()
	log.Printf("[loader] Model %q loaded: %d meshes, %d vertices, %d triangles, %d warnings",
		model.Name, meshes, vertices, triangles, len(model.Warnings))
	return model, nil
}
