package kernel

import "math"

// Mesh is the triangulated surface of one body. Vertices and Normals hold
// three floats per vertex; Indices holds three vertex indices per triangle.
type Mesh struct {
	Vertices []float32 `json:"vertices"`
	Normals  []float32 `json:"normals"`
	Indices  []uint32  `json:"indices"`
	BodyName string    `json:"bodyName"`
}

func (m *Mesh) VertexCount() int { return len(m.Vertices) / 3 }

func (m *Mesh) TriangleCount() int { return len(m.Indices) / 3 }

// IsEmpty reports whether the mesh has no triangles. A body whose thin
// features fall below the meshing resolution yields an empty mesh.
func (m *Mesh) IsEmpty() bool {
	return len(m.Vertices) == 0 || len(m.Indices) < 3
}

// Triangle returns the corners of triangle i.
func (m *Mesh) Triangle(i int) [3][3]float32 {
	var tri [3][3]float32
	for j := range tri {
		tri[j] = at(m.Vertices, m.Indices[3*i+j])
	}
	return tri
}

// FacetNormal returns the normal of triangle i: the vertex normal of its
// first corner when normals are present, otherwise the winding normal.
func (m *Mesh) FacetNormal(i int) [3]float32 {
	if len(m.Normals) == len(m.Vertices) {
		return at(m.Normals, m.Indices[3*i])
	}
	tri := m.Triangle(i)
	var e1, e2 [3]float64
	for j := 0; j < 3; j++ {
		e1[j] = float64(tri[1][j] - tri[0][j])
		e2[j] = float64(tri[2][j] - tri[0][j])
	}
	n := [3]float64{
		e1[1]*e2[2] - e1[2]*e2[1],
		e1[2]*e2[0] - e1[0]*e2[2],
		e1[0]*e2[1] - e1[1]*e2[0],
	}
	l := math.Sqrt(n[0]*n[0] + n[1]*n[1] + n[2]*n[2])
	if l == 0 {
		return [3]float32{}
	}
	return [3]float32{float32(n[0] / l), float32(n[1] / l), float32(n[2] / l)}
}

// Bounds returns the axis-aligned box around the mesh vertices. ok is false
// for an empty mesh.
func (m *Mesh) Bounds() (lo, hi [3]float32, ok bool) {
	if m.VertexCount() == 0 {
		return lo, hi, false
	}
	lo, hi = at(m.Vertices, 0), at(m.Vertices, 0)
	for v := 1; v < m.VertexCount(); v++ {
		p := at(m.Vertices, uint32(v))
		for j := 0; j < 3; j++ {
			lo[j] = min(lo[j], p[j])
			hi[j] = max(hi[j], p[j])
		}
	}
	return lo, hi, true
}

func at(buf []float32, idx uint32) [3]float32 {
	o := int(idx) * 3
	return [3]float32{buf[o], buf[o+1], buf[o+2]}
}
