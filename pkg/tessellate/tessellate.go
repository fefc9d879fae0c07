// Package tessellate walks a document's solid bodies and produces triangle
// meshes using a geometry kernel. One mesh is produced per body.
package tessellate

import (
	"fmt"
	"io"

	"github.com/coolOrangeLabs/inventor-thread-modeler/pkg/kernel"
	"github.com/hschendel/stl"
)

// BodyMesher lists a document's bodies and meshes them.
type BodyMesher interface {
	Bodies(doc kernel.DocumentID) ([]kernel.BodyID, error)
	kernel.Mesher
}

// Tessellate produces one triangle mesh per body of doc, in the kernel's
// body order. The tessellator is read-only and never mutates the document.
func Tessellate(k BodyMesher, doc kernel.DocumentID) ([]*kernel.Mesh, error) {
	bodies, err := k.Bodies(doc)
	if err != nil {
		return nil, fmt.Errorf("tessellate: listing bodies: %w", err)
	}

	meshes := make([]*kernel.Mesh, 0, len(bodies))
	for _, id := range bodies {
		mesh, err := k.ToMesh(doc, id)
		if err != nil {
			return nil, fmt.Errorf("tessellate: ToMesh failed for body %s: %w", id, err)
		}
		if mesh.BodyName == "" {
			mesh.BodyName = string(id)
		}
		meshes = append(meshes, mesh)
	}
	return meshes, nil
}

// ToSolid merges meshes into one STL solid. Empty meshes contribute
// nothing.
func ToSolid(name string, meshes []*kernel.Mesh) *stl.Solid {
	s := &stl.Solid{Name: name}
	for _, m := range meshes {
		if m == nil || m.IsEmpty() {
			continue
		}
		for i := 0; i < m.TriangleCount(); i++ {
			tri := stl.Triangle{Normal: m.FacetNormal(i)}
			for j, v := range m.Triangle(i) {
				tri.Vertices[j] = v
			}
			s.Triangles = append(s.Triangles, tri)
		}
	}
	return s
}

// WriteSTL writes meshes as a single binary STL solid, or ASCII STL when
// ascii is set.
func WriteSTL(w io.Writer, name string, meshes []*kernel.Mesh, ascii bool) error {
	s := ToSolid(name, meshes)
	s.IsAscii = ascii
	if err := s.WriteAll(w); err != nil {
		return fmt.Errorf("tessellate: writing STL: %w", err)
	}
	return nil
}
