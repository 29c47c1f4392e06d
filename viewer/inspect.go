package viewer

import (
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/mogaika/model_viewer/loader"
	"github.com/mogaika/model_viewer/r3d"
	"github.com/mogaika/model_viewer/utils"
)

// DumpInspector writes a spew dump of the material library and the node tree
type DumpInspector struct {
	W io.Writer
}

func (d DumpInspector) Inspect(m *loader.Model) {
	var b strings.Builder
	fmt.Fprintf(&b, "model %q (%v)\n", m.Name, m.ID)
	if m.Materials != nil {
		for _, name := range m.Materials.Order {
			fmt.Fprintf(&b, "material %s", utils.SDump(m.Materials.Materials[name]))
		}
	}
	m.Root.Traverse(func(n *r3d.Node) {
		depth := 0
		for p := n.Parent; p != nil && p != m.Root.Parent; p = p.Parent {
			depth++
		}
		fmt.Fprintf(&b, "%s%s", strings.Repeat("  ", depth), n.Name)
		if n.Mesh != nil {
			fmt.Fprintf(&b, " mesh: %d vertices %d triangles", len(n.Mesh.Positions), n.Mesh.TrianglesCount())
			if mat := n.Mesh.Material; mat != nil {
				fmt.Fprintf(&b, " material %q #%06x", mat.Name, mat.Diffuse.Hex())
			}
		}
		b.WriteByte('\n')
	})
	if _, err := io.WriteString(d.W, b.String()); err != nil {
		log.Printf("[viewer] Failed to write dump: %v", err)
	}
}

// LogInspector prints model statistics and warnings
type LogInspector struct{}

func (LogInspector) Inspect(m *loader.Model) {
	meshes, vertices, triangles := m.Root.Stats()
	textures, loaded := 0, 0
	if m.Materials != nil {
		for _, mat := range m.Materials.Materials {
			for _, t := range mat.Textures() {
				textures++
				if t.Loaded() {
					loaded++
				}
			}
		}
	}
	log.Printf("[viewer] %q: %d meshes %d vertices %d triangles, %d/%d texture slots loaded, diagonal %.3f",
		m.Name, meshes, vertices, triangles, loaded, textures, r3d.ComputeBounds(m.Root).Diagonal())
	for _, w := range m.Warnings {
		log.Printf("[viewer] %q warning: %s", m.Name, w)
	}
}
