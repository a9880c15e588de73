package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAddImplicitHydrogens_Ethene(t *testing.T) {
	g, c1, c2 := ethene(t)
	a, _ := g.Atom(c1)
	b, _ := g.Atom(c2)
	assert.Equal(t, 2, a.ImplicitHydrogens)
	assert.Equal(t, 2, b.ImplicitHydrogens)
}

func TestAddImplicitHydrogens_PerElement(t *testing.T) {
	g := New()
	c := g.AddVertex(NewAtom("C", 0, 0, 0, 0, 0))
	o := g.AddVertex(NewAtom("O", 0, 0, 0, 0, 0))
	n := g.AddVertex(NewAtom("N", 0, 0, 0, 0, 0))
	br := g.AddVertex(NewAtom("Br", 0, 0, 0, 0, 0))
	lone := g.AddVertex(NewAtom("N", 0, 0, 0, 0, 0))

	brAtom, _ := g.Atom(br)
	brAtom.ImplicitHydrogens = 9

	g.MustAddEdge(c, o, 1)
	g.MustAddEdge(c, n, 1)
	g.MustAddEdge(c, br, 1)
	g.AddImplicitHydrogens()

	got := func(id AtomID) int {
		a, _ := g.Atom(id)
		return a.ImplicitHydrogens
	}
	assert.Equal(t, 1, got(c))
	assert.Equal(t, 1, got(o))
	assert.Equal(t, 2, got(n))
	assert.Equal(t, 9, got(br), "non C/O/N atoms are untouched")
	assert.Equal(t, 3, got(lone))
}

func TestAddImplicitHydrogens_Idempotent(t *testing.T) {
	g, _, _ := ethene(t)
	before := g.VertexSet()
	g.AddImplicitHydrogens()
	assert.Equal(t, before, g.VertexSet())
}

func TestAddImplicitHydrogens_MultiEdgesCount(t *testing.T) {
	g := New()
	a := g.AddVertex(NewAtom("C", 0, 0, 0, 0, 0))
	b := g.AddVertex(NewAtom("C", 0, 0, 0, 0, 0))
	g.MustAddEdge(a, b, 1)
	g.MustAddEdge(a, b, 1)
	g.AddImplicitHydrogens()

	atom, _ := g.Atom(a)
	assert.Equal(t, 2, atom.ImplicitHydrogens)
	assert.Equal(t, 2, g.BondOrderSum(a))
}

func TestAddImplicitHydrogens_NegativeKept(t *testing.T) {
	g := New()
	o := g.AddVertex(NewAtom("O", 0, 0, 0, 0, 0))
	c := g.AddVertex(NewAtom("C", 0, 0, 0, 0, 0))
	g.MustAddEdge(o, c, 3)
	g.AddImplicitHydrogens()

	atom, _ := g.Atom(o)
	assert.Equal(t, -1, atom.ImplicitHydrogens)
	assert.Equal(t, []AtomID{o}, g.OverBonded())
}

func TestStandardValence(t *testing.T) {
	v, ok := StandardValence("C")
	assert.True(t, ok)
	assert.Equal(t, 4, v)
	_, ok = StandardValence("c")
	assert.False(t, ok)
	_, ok = StandardValence("Br")
	assert.False(t, ok)
}

func TestAddImplicitHydrogens_LowercaseSymbolUntouched(t *testing.T) {
	g := New()
	lower := NewAtom("c", 0, 0, 0, 0, 0)
	lower.ImplicitHydrogens = 7
	l := g.AddVertex(lower)
	n := g.AddVertex(NewAtom("n", 1, 0, 0, 0, 0))
	c := g.AddVertex(NewAtom("C", 2, 0, 0, 0, 0))
	g.AddImplicitHydrogens()

	atom, _ := g.Atom(l)
	assert.Equal(t, 7, atom.ImplicitHydrogens)
	atom, _ = g.Atom(n)
	assert.Equal(t, 0, atom.ImplicitHydrogens)
	atom, _ = g.Atom(c)
	assert.Equal(t, 4, atom.ImplicitHydrogens)
}

func TestTotalHydrogens(t *testing.T) {
	g, _, _ := ethene(t)
	assert.Equal(t, 4, g.TotalHydrogens())

	g.AddVertex(NewAtom("H", 0, 0, 0, 0, 0))
	assert.Equal(t, 5, g.TotalHydrogens())
}
