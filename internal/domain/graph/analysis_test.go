package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFragments(t *testing.T) {
	g := New()
	for i := 0; i < 5; i++ {
		g.AddVertex(NewAtom("C", 0, 0, 0, 0, 0))
	}
	g.MustAddEdge(3, 4, 1)
	g.MustAddEdge(0, 1, 2)
	g.MustAddEdge(1, 0, 1)

	assert.Equal(t, [][]AtomID{{0, 1}, {2}, {3, 4}}, g.Fragments())
}

func TestFragments_Empty(t *testing.T) {
	assert.Nil(t, New().Fragments())
}

func TestFragments_IgnoresInvalidBonds(t *testing.T) {
	atoms := []Atom{NewAtom("C", 0, 0, 0, 0, 0), NewAtom("C", 0, 0, 0, 0, 0)}
	g := FromParts(atoms, []Bond{{0, 0, 1}, {1, 9, 1}})
	assert.Equal(t, [][]AtomID{{0}, {1}}, g.Fragments())
}

func TestFormula(t *testing.T) {
	g, _, _ := ethene(t)
	assert.Equal(t, "C2H4", g.Formula())

	br := New()
	br.AddVertex(NewAtom("BR", 0, 0, 0, 0, 0))
	br.AddVertex(NewAtom("Br", 0, 0, 0, 0, 0))
	assert.Equal(t, "Br2", br.Formula())

	water := New()
	water.AddVertex(NewAtom("O", 0, 0, 0, 0, 0))
	water.AddImplicitHydrogens()
	assert.Equal(t, "H2O", water.Formula())

	assert.Equal(t, "", New().Formula())
}

func TestFormula_HillOrderWithHetero(t *testing.T) {
	g := New()
	c := g.AddVertex(NewAtom("C", 0, 0, 0, 0, 0))
	o := g.AddVertex(NewAtom("O", 0, 0, 0, 0, 0))
	b := g.AddVertex(NewAtom("Br", 0, 0, 0, 0, 0))
	g.MustAddEdge(c, o, 1)
	g.MustAddEdge(c, b, 1)
	g.AddImplicitHydrogens()

	// CH2 + OH + Br
	assert.Equal(t, "CH3BrO", g.Formula())
}

func TestFingerprint(t *testing.T) {
	g, c1, _ := ethene(t)
	fp := g.Fingerprint()
	assert.Len(t, fp, 64)
	assert.Equal(t, fp, g.Clone().Fingerprint())

	a, _ := g.Atom(c1)
	a.Y3D = 0.25
	assert.NotEqual(t, fp, g.Fingerprint())

	other, _, _ := ethene(t)
	other.SetEdgeWeight(0, 1)
	assert.NotEqual(t, fp, other.Fingerprint())
}
