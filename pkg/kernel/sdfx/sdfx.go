// Package sdfx implements the kernel.GeometryKernel interface as an
// in-memory parametric part kernel backed by the github.com/deadsy/sdfx
// SDF-based CAD library.
//
// Documents keep a feature history (revolves and coils) that is replayed
// into sdfx solids on every change. Parameter expressions are recomputed
// through the zygomys engine. Transactions snapshot document state and
// restore it on abort.
package sdfx

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/coolOrangeLabs/inventor-thread-modeler/pkg/engine"
	"github.com/coolOrangeLabs/inventor-thread-modeler/pkg/kernel"
	"github.com/deadsy/sdfx/render"
)

// Compile-time interface checks.
var (
	_ kernel.GeometryKernel = (*Kernel)(nil)
	_ kernel.Browser        = (*Kernel)(nil)
	_ kernel.Mesher         = (*Kernel)(nil)
)

// defaultMeshCells controls marching cubes tessellation resolution.
const defaultMeshCells = 200

// Kernel is the reference kernel. It is safe for concurrent use; all
// document access is serialized.
type Kernel struct {
	mu     sync.Mutex
	docs   map[kernel.DocumentID]*document
	order  []kernel.DocumentID
	seq    uint64
	eng    *engine.Engine
	log    *slog.Logger
	cells  int
	global *transaction // open global-scope transaction, if any
	local  map[kernel.DocumentID]*transaction

	faults map[string]*fault
	calls  map[string]int
}

type fault struct {
	err    error
	onCall int // 0 fails every call
	panic  bool
}

// Option configures a Kernel.
type Option func(*Kernel)

// WithLogger sets the logger used for transaction tracing.
func WithLogger(l *slog.Logger) Option {
	return func(k *Kernel) { k.log = l }
}

// WithMeshCells sets the marching cubes resolution used by ToMesh.
func WithMeshCells(n int) Option {
	return func(k *Kernel) {
		if n > 0 {
			k.cells = n
		}
	}
}

// WithFault makes every call to the named method fail with err.
func WithFault(op string, err error) Option {
	return func(k *Kernel) { k.faults[op] = &fault{err: err} }
}

// WithFaultOnCall makes only the n-th call (1-based) to the named method
// fail with err.
func WithFaultOnCall(op string, n int, err error) Option {
	return func(k *Kernel) { k.faults[op] = &fault{err: err, onCall: n} }
}

// WithPanic makes every call to the named method panic.
func WithPanic(op string) Option {
	return func(k *Kernel) { k.faults[op] = &fault{panic: true} }
}

// New returns an empty Kernel.
func New(opts ...Option) *Kernel {
	k := &Kernel{
		docs:   make(map[kernel.DocumentID]*document),
		local:  make(map[kernel.DocumentID]*transaction),
		eng:    engine.NewEngine(),
		log:    slog.Default(),
		cells:  defaultMeshCells,
		faults: make(map[string]*fault),
		calls:  make(map[string]int),
	}
	for _, o := range opts {
		o(k)
	}
	return k
}

// inject is called on entry of each faultable method with k.mu held.
func (k *Kernel) inject(op string) error {
	k.calls[op]++
	f, ok := k.faults[op]
	if !ok {
		return nil
	}
	if f.onCall != 0 && f.onCall != k.calls[op] {
		return nil
	}
	if f.panic {
		panic(fmt.Sprintf("sdfx: injected panic in %s", op))
	}
	return f.err
}

func (k *Kernel) nextID(prefix string) string {
	k.seq++
	return fmt.Sprintf("%s-%d", prefix, k.seq)
}

func (k *Kernel) doc(id kernel.DocumentID) (*document, error) {
	d, ok := k.docs[id]
	if !ok {
		return nil, fmt.Errorf("sdfx: document %s: %w", id, kernel.ErrNotFound)
	}
	return d, nil
}

// Counts reports the number of bodies, sketches, parameters and solid
// features in a document.
func (k *Kernel) Counts(doc kernel.DocumentID) (Counts, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	d, err := k.doc(doc)
	if err != nil {
		return Counts{}, err
	}
	return d.counts(), nil
}

// ToMesh converts a body to a triangle mesh using marching cubes.
func (k *Kernel) ToMesh(doc kernel.DocumentID, id kernel.BodyID) (*kernel.Mesh, error) {
	k.mu.Lock()
	d, err := k.doc(doc)
	if err != nil {
		k.mu.Unlock()
		return nil, err
	}
	sdf3, ok := d.solids[id]
	name := d.bodyNames[id]
	cells := k.cells
	k.mu.Unlock()
	if !ok || sdf3 == nil {
		return nil, fmt.Errorf("sdfx: body %s: %w", id, kernel.ErrNotFound)
	}

	renderer := render.NewMarchingCubesUniform(cells)
	triangles := render.ToTriangles(sdf3, renderer)

	numVerts := len(triangles) * 3

	vertices := make([]float32, 0, numVerts*3)
	normals := make([]float32, 0, numVerts*3)
	indices := make([]uint32, 0, numVerts)

	for i, tri := range triangles {
		n := tri.Normal()
		nx, ny, nz := float32(n.X), float32(n.Y), float32(n.Z)

		for j := 0; j < 3; j++ {
			v := tri[j]
			vertices = append(vertices, float32(v.X), float32(v.Y), float32(v.Z))
			normals = append(normals, nx, ny, nz)
			indices = append(indices, uint32(i*3+j))
		}
	}

	return &kernel.Mesh{
		Vertices: vertices,
		Normals:  normals,
		Indices:  indices,
		BodyName: name,
	}, nil
}
