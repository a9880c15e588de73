// Package graph provides the molecular graph model used by the ARChemistry
// reaction core.  A MolecularGraph is an undirected multigraph stored as two
// arenas: atoms addressed by AtomID and bonds that reference atoms by index.
// Two atoms with identical fields are still distinct nodes; identity is the
// arena position.
//
// The package performs no locking.  A single graph follows single-writer
// discipline; distinct graphs may be used from different goroutines freely.
package graph

import "strings"

// AtomID is the arena index of an atom within its MolecularGraph.
type AtomID int

// BondID is the position of a bond in its MolecularGraph's bond sequence.
type BondID int

// InvalidAtom is returned by accessors when a bond does not exist.
const InvalidAtom AtomID = -1

// Bond orders used by the reaction rules.
const (
	OrderSingle = 1
	OrderDouble = 2
	OrderTriple = 3
)

// Atom is a single atom record.  The element symbol is fixed at creation;
// coordinates and the implicit hydrogen count may change.
type Atom struct {
	element string

	// X and Y are the 2D layout coordinates.
	X, Y float64

	// X3D, Y3D and Z3D locate the atom in model space.
	X3D, Y3D, Z3D float64

	// ImplicitHydrogens is signed: an over-bonded atom carries a negative count.
	ImplicitHydrogens int
}

// NewAtom constructs an Atom with zero implicit hydrogens.
func NewAtom(element string, x, y, x3d, y3d, z3d float64) Atom {
	return Atom{element: element, X: x, Y: y, X3D: x3d, Y3D: y3d, Z3D: z3d}
}

// Element returns the element symbol as it was given at creation.
func (a Atom) Element() string { return a.element }

// Symbol returns the element symbol in canonical case ("BR" → "Br").
func (a Atom) Symbol() string { return NormalizeSymbol(a.element) }

// NormalizeSymbol returns s with its first letter upper-cased and the rest
// lower-cased.
func NormalizeSymbol(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return s
	}
	r := []rune(s)
	return strings.ToUpper(string(r[:1])) + strings.ToLower(string(r[1:]))
}

// Bond is an undirected bond between two atoms.  Source and Target are stored
// as given and never canonicalised.
type Bond struct {
	Source AtomID
	Target AtomID
	Order  int
}

// Other returns the endpoint of b opposite to a, or InvalidAtom if a is not an
// endpoint.
func (b Bond) Other(a AtomID) AtomID {
	switch a {
	case b.Source:
		return b.Target
	case b.Target:
		return b.Source
	default:
		return InvalidAtom
	}
}

// Touches reports whether a is one of b's endpoints.
func (b Bond) Touches(a AtomID) bool {
	return b.Source == a || b.Target == a
}
