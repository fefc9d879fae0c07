package tessellate_test

import (
	"bytes"
	"errors"
	"testing"

	"github.com/coolOrangeLabs/inventor-thread-modeler/pkg/kernel"
	"github.com/coolOrangeLabs/inventor-thread-modeler/pkg/kernel/sdfx"
	"github.com/coolOrangeLabs/inventor-thread-modeler/pkg/tessellate"
	"github.com/hschendel/stl"
	"gonum.org/v1/gonum/spatial/r3"
)

// newKernel returns a coarse sdfx kernel so tests stay fast.
func newKernel() *sdfx.Kernel {
	return sdfx.New(sdfx.WithMeshCells(24))
}

func TestTessellateBodies(t *testing.T) {
	k := newKernel()
	doc := k.NewDocument("part", kernel.UnitMillimeter)
	if _, _, err := k.AddShaft(doc, "Bolt", r3.Vec{}, r3.Vec{Z: 1}, 1, 4); err != nil {
		t.Fatalf("AddShaft: %v", err)
	}
	if _, _, err := k.AddBore(doc, "", r3.Vec{X: 5}, r3.Vec{Z: 1}, 1, 2, 2); err != nil {
		t.Fatalf("AddBore: %v", err)
	}

	meshes, err := tessellate.Tessellate(k, doc)
	if err != nil {
		t.Fatalf("Tessellate: %v", err)
	}
	if len(meshes) != 2 {
		t.Fatalf("expected 2 meshes, got %d", len(meshes))
	}

	names := []string{"Bolt", "Solid2"}
	for i, m := range meshes {
		if m.IsEmpty() {
			t.Errorf("mesh %d is empty", i)
		}
		if m.BodyName != names[i] {
			t.Errorf("mesh %d name = %q, want %q", i, m.BodyName, names[i])
		}
	}
}

func TestTessellateEmptyDocument(t *testing.T) {
	k := newKernel()
	doc := k.NewDocument("empty", kernel.UnitMillimeter)
	meshes, err := tessellate.Tessellate(k, doc)
	if err != nil {
		t.Fatalf("Tessellate: %v", err)
	}
	if len(meshes) != 0 {
		t.Fatalf("expected no meshes, got %d", len(meshes))
	}
}

func TestTessellateUnknownDocument(t *testing.T) {
	_, err := tessellate.Tessellate(newKernel(), "missing")
	if !errors.Is(err, kernel.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestToSolid(t *testing.T) {
	mesh := &kernel.Mesh{
		Vertices: []float32{0, 0, 0, 1, 0, 0, 0, 1, 0},
		Normals:  []float32{0, 0, 1, 0, 0, 1, 0, 0, 1},
		Indices:  []uint32{0, 1, 2},
	}
	s := tessellate.ToSolid("tri", []*kernel.Mesh{mesh, {}, nil})
	if len(s.Triangles) != 1 {
		t.Fatalf("expected 1 triangle, got %d", len(s.Triangles))
	}
	tri := s.Triangles[0]
	if tri.Vertices[1] != (stl.Vec3{1, 0, 0}) {
		t.Errorf("vertex 1 = %v", tri.Vertices[1])
	}
	if tri.Normal != (stl.Vec3{0, 0, 1}) {
		t.Errorf("normal = %v", tri.Normal)
	}
}

func TestWriteSTL(t *testing.T) {
	k := newKernel()
	doc := k.NewDocument("part", kernel.UnitMillimeter)
	if _, _, err := k.AddShaft(doc, "Bolt", r3.Vec{}, r3.Vec{Z: 1}, 1, 4); err != nil {
		t.Fatalf("AddShaft: %v", err)
	}
	meshes, err := tessellate.Tessellate(k, doc)
	if err != nil {
		t.Fatalf("Tessellate: %v", err)
	}

	for _, ascii := range []bool{false, true} {
		var buf bytes.Buffer
		if err := tessellate.WriteSTL(&buf, "part", meshes, ascii); err != nil {
			t.Fatalf("WriteSTL(ascii=%v): %v", ascii, err)
		}
		got, err := stl.ReadAll(bytes.NewReader(buf.Bytes()))
		if err != nil {
			t.Fatalf("ReadAll(ascii=%v): %v", ascii, err)
		}
		if len(got.Triangles) != meshes[0].TriangleCount() {
			t.Errorf("ascii=%v: read %d triangles, wrote %d", ascii, len(got.Triangles), meshes[0].TriangleCount())
		}
	}
}
