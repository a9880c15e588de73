package graph

import (
	"fmt"

	"github.com/turtacn/ARChemistry/pkg/errors"
)

// MolecularGraph is an undirected multigraph of atoms and bonds.  Atoms and
// bonds keep insertion order; multiple bonds between the same pair are allowed.
// The zero value is an empty, ready-to-use graph.
type MolecularGraph struct {
	atoms []Atom
	bonds []Bond
}

// New returns an empty graph.
func New() *MolecularGraph {
	return &MolecularGraph{}
}

// FromParts builds a graph from existing atom and bond slices without checking
// bond invariants.  Decoders call Validate afterwards.  The slices are copied.
func FromParts(atoms []Atom, bonds []Bond) *MolecularGraph {
	g := &MolecularGraph{
		atoms: make([]Atom, len(atoms)),
		bonds: make([]Bond, len(bonds)),
	}
	copy(g.atoms, atoms)
	copy(g.bonds, bonds)
	return g
}

// ─────────────────────────────────────────────────────────────────────────────
// Mutation
// ─────────────────────────────────────────────────────────────────────────────

// AddVertex appends a to the atom arena and returns its ID.
func (g *MolecularGraph) AddVertex(a Atom) AtomID {
	g.atoms = append(g.atoms, a)
	return AtomID(len(g.atoms) - 1)
}

// AddEdge appends a bond between source and target.  Both endpoints must
// already be in the graph, must differ, and order must be at least 1.
func (g *MolecularGraph) AddEdge(source, target AtomID, order int) (BondID, error) {
	if err := g.checkBond(Bond{Source: source, Target: target, Order: order}); err != nil {
		return -1, err
	}
	g.bonds = append(g.bonds, Bond{Source: source, Target: target, Order: order})
	return BondID(len(g.bonds) - 1), nil
}

// AddBond is an alias for AddEdge.
func (g *MolecularGraph) AddBond(source, target AtomID, order int) (BondID, error) {
	return g.AddEdge(source, target, order)
}

// MustAddEdge is like AddEdge but panics on error.  Intended for literal
// fixtures.
func (g *MolecularGraph) MustAddEdge(source, target AtomID, order int) BondID {
	id, err := g.AddEdge(source, target, order)
	if err != nil {
		panic(err)
	}
	return id
}

func (g *MolecularGraph) checkBond(b Bond) error {
	if !g.ContainsVertex(b.Source) || !g.ContainsVertex(b.Target) {
		return errors.New(errors.ErrCodeGraphDanglingBond, "bond references an atom outside the graph").
			WithDetail(fmt.Sprintf("source=%d target=%d atoms=%d", b.Source, b.Target, len(g.atoms)))
	}
	if b.Source == b.Target {
		return errors.New(errors.ErrCodeGraphSelfLoop, "bond source equals target").
			WithDetail(fmt.Sprintf("atom=%d", b.Source))
	}
	if b.Order < OrderSingle {
		return errors.New(errors.ErrCodeGraphInvalidBondOrder, "bond order must be at least 1").
			WithDetail(fmt.Sprintf("order=%d", b.Order))
	}
	return nil
}

// Validate re-checks every bond against the invariants AddEdge enforces.  It
// returns the first violation found, with the bond index in the detail.
func (g *MolecularGraph) Validate() error {
	for i, b := range g.bonds {
		if err := g.checkBond(b); err != nil {
			if ae, ok := err.(*errors.AppError); ok {
				return ae.WithDetail(fmt.Sprintf("bond=%d %s", i, ae.Detail))
			}
			return err
		}
	}
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Query
// ─────────────────────────────────────────────────────────────────────────────

// AtomCount returns the number of atoms.
func (g *MolecularGraph) AtomCount() int { return len(g.atoms) }

// BondCount returns the number of bonds.
func (g *MolecularGraph) BondCount() int { return len(g.bonds) }

// ContainsVertex reports whether id addresses an atom of g.
func (g *MolecularGraph) ContainsVertex(id AtomID) bool {
	return id >= 0 && int(id) < len(g.atoms)
}

// VertexSet returns a copy of the atoms in insertion order.
func (g *MolecularGraph) VertexSet() []Atom {
	out := make([]Atom, len(g.atoms))
	copy(out, g.atoms)
	return out
}

// EdgeSet returns a copy of the bonds in insertion order.
func (g *MolecularGraph) EdgeSet() []Bond {
	out := make([]Bond, len(g.bonds))
	copy(out, g.bonds)
	return out
}

// Atom returns a pointer to the atom with the given ID for in-place updates.
// The pointer is invalidated by the next AddVertex.
func (g *MolecularGraph) Atom(id AtomID) (*Atom, bool) {
	if !g.ContainsVertex(id) {
		return nil, false
	}
	return &g.atoms[id], true
}

// Bond returns a pointer to the bond with the given ID.  The pointer is
// invalidated by the next AddEdge.
func (g *MolecularGraph) Bond(id BondID) (*Bond, bool) {
	if id < 0 || int(id) >= len(g.bonds) {
		return nil, false
	}
	return &g.bonds[id], true
}

// EdgeSource returns the stored source of bond id, or InvalidAtom.
func (g *MolecularGraph) EdgeSource(id BondID) AtomID {
	b, ok := g.Bond(id)
	if !ok {
		return InvalidAtom
	}
	return b.Source
}

// EdgeTarget returns the stored target of bond id, or InvalidAtom.
func (g *MolecularGraph) EdgeTarget(id BondID) AtomID {
	b, ok := g.Bond(id)
	if !ok {
		return InvalidAtom
	}
	return b.Target
}

// EdgeWeight returns the bond order as a float, or 0 for an unknown bond.
func (g *MolecularGraph) EdgeWeight(id BondID) float64 {
	b, ok := g.Bond(id)
	if !ok {
		return 0
	}
	return float64(b.Order)
}

// SetEdgeWeight sets the bond order from w, truncated toward zero.  It
// reports false for an unknown bond.
func (g *MolecularGraph) SetEdgeWeight(id BondID, w float64) bool {
	b, ok := g.Bond(id)
	if !ok {
		return false
	}
	b.Order = int(w)
	return true
}

// EdgesOf returns the bonds incident to a, in insertion order.
func (g *MolecularGraph) EdgesOf(a AtomID) []BondID {
	var out []BondID
	for i, b := range g.bonds {
		if b.Touches(a) {
			out = append(out, BondID(i))
		}
	}
	return out
}

// Degree returns the number of bonds incident to a.
func (g *MolecularGraph) Degree(a AtomID) int {
	return len(g.EdgesOf(a))
}

// BondsWithOrder returns the IDs of bonds whose order equals order, in
// insertion order.  The result is a snapshot.
func (g *MolecularGraph) BondsWithOrder(order int) []BondID {
	var out []BondID
	for i, b := range g.bonds {
		if b.Order == order {
			out = append(out, BondID(i))
		}
	}
	return out
}

// Clone returns a deep copy of g.  Bond indices stay valid against the copy's
// atom arena.
func (g *MolecularGraph) Clone() *MolecularGraph {
	return FromParts(g.atoms, g.bonds)
}
