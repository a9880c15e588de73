package rendering

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/turtacn/ARChemistry/internal/domain/graph"
)

const eps = 1e-9

func ethene() *graph.MolecularGraph {
	g := graph.New()
	g.AddVertex(graph.NewAtom("C", 0, 0, -0.5, 0, 0))
	g.AddVertex(graph.NewAtom("C", 50, 0, 0.5, 0, 0))
	g.MustAddEdge(0, 1, 2)
	return g
}

func assertVecNear(t *testing.T, want, got r3.Vec) {
	t.Helper()
	assert.InDelta(t, want.X, got.X, 1e-6)
	assert.InDelta(t, want.Y, got.Y, 1e-6)
	assert.InDelta(t, want.Z, got.Z, 1e-6)
}

func TestAtomStyle(t *testing.T) {
	c, r := AtomStyle("H")
	assert.Equal(t, White, c)
	assert.Equal(t, 0.25, r)

	c, r = AtomStyle("BR")
	assert.Equal(t, BromineRd, c)
	assert.Equal(t, 0.4, r)

	c, _ = AtomStyle("cl")
	assert.Equal(t, Green, c)

	c, r = AtomStyle("Xe")
	assert.Equal(t, Fallback, c)
	assert.Equal(t, 0.4, r)
}

func TestBuildScene_Ethene(t *testing.T) {
	s := BuildScene(ethene(), DefaultOptions())
	require.Len(t, s.Spheres, 2)
	require.Len(t, s.Cylinders, 1)
	assert.Empty(t, s.Skipped)

	assert.InDelta(t, -0.2, s.Spheres[0].Center.X, eps)
	assert.InDelta(t, 0.4*0.4, s.Spheres[0].Radius, eps)
	assert.Equal(t, "C", s.Spheres[1].Element)

	cyl := s.Cylinders[0]
	assert.Equal(t, 2, cyl.Order)
	assert.InDelta(t, 0.4, cyl.Length, eps)
	assert.InDelta(t, 0.08*0.4, cyl.Radius, eps)
	assertVecNear(t, r3.Vec{}, cyl.Center.Vec())
	assert.Equal(t, Gray, cyl.Color)

	// +Y must land on the bond direction, +X here.
	assertVecNear(t, r3.Vec{X: 1}, Rotate(cyl.Rotation.Number(), r3.Vec{Y: 1}))
}

func TestBuildScene_ZeroOptionsUseDefaults(t *testing.T) {
	assert.Equal(t, BuildScene(ethene(), DefaultOptions()), BuildScene(ethene(), Options{}))
}

func TestBuildScene_SkipsDegenerateBonds(t *testing.T) {
	g := graph.New()
	g.AddVertex(graph.NewAtom("C", 0, 0, 1, 1, 1))
	g.AddVertex(graph.NewAtom("O", 0, 0, 1, 1, 1))
	g.MustAddEdge(0, 1, 1)
	s := BuildScene(g, DefaultOptions())
	assert.Empty(t, s.Cylinders)
	assert.Equal(t, []graph.BondID{0}, s.Skipped)
	assert.Equal(t, "2 spheres, 0 cylinders, 1 skipped", s.Summary())
}

func TestBuildScene_SkipsDanglingBonds(t *testing.T) {
	g := graph.FromParts(
		[]graph.Atom{graph.NewAtom("C", 0, 0, 0, 0, 0)},
		[]graph.Bond{{Source: 0, Target: 7, Order: 1}},
	)
	s := BuildScene(g, DefaultOptions())
	assert.Empty(t, s.Cylinders)
	assert.Equal(t, []graph.BondID{0}, s.Skipped)
}

func TestAlignY(t *testing.T) {
	dirs := []r3.Vec{
		{Y: 1},
		{Y: -1},
		{X: 1},
		{Z: -1},
		r3.Unit(r3.Vec{X: 1, Y: 2, Z: 3}),
		r3.Unit(r3.Vec{X: -0.3, Y: -0.9, Z: 0.1}),
	}
	for _, d := range dirs {
		q := alignY(d)
		n := math.Sqrt(q.Real*q.Real + q.Imag*q.Imag + q.Jmag*q.Jmag + q.Kmag*q.Kmag)
		assert.InDelta(t, 1, n, 1e-9)
		assertVecNear(t, d, Rotate(q, r3.Vec{Y: 1}))
	}
}

func TestDescribe(t *testing.T) {
	g := graph.New()
	g.AddVertex(graph.NewAtom("C", 0, 0, -0.5, 0, 0))
	g.AddVertex(graph.NewAtom("BR", 0, 0, 0.5, 0, 0))
	g.MustAddEdge(0, 1, 1)

	lines := Describe(g)
	assert.Equal(t, []string{
		"Rendering molecule with 2 atoms",
		"atom C at (-0.5, 0, 0)",
		"atom Br at (0.5, 0, 0)",
		"bond between C and Br with order 1",
		"Molecule rendering completed",
	}, lines)
}
