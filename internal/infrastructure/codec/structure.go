package codec

import (
	"fmt"

	"github.com/turtacn/ARChemistry/internal/domain/graph"
	"github.com/turtacn/ARChemistry/pkg/errors"
)

// LayoutScale maps model-space x/y coordinates onto the 2D layout plane when a
// structure carries 3D coordinates only.
const LayoutScale = 50.0

// StructureData is the JSON structure payload: element symbols, one [x, y, z]
// per atom, and [source, target, order] bond tuples.  Error is set by the
// backend when it could not produce a structure.
type StructureData struct {
	Atoms  []string    `json:"atoms" yaml:"atoms"`
	Coords [][]float64 `json:"coords" yaml:"coords"`
	Bonds  [][]int     `json:"bonds" yaml:"bonds"`
	Error  string      `json:"error,omitempty" yaml:"error,omitempty"`
}

// ReactionResponse is the body returned by the recognition backend.
type ReactionResponse struct {
	Reactant *StructureData `json:"reactant,omitempty" yaml:"reactant,omitempty"`
	Product  *StructureData `json:"product,omitempty" yaml:"product,omitempty"`
	Error    string         `json:"error,omitempty" yaml:"error,omitempty"`
}

// Check reports whether s carries a complete structure.
func (s *StructureData) Check() error {
	if s == nil || s.Atoms == nil || s.Coords == nil || s.Bonds == nil {
		return incomplete("atoms, coords and bonds are required")
	}
	if len(s.Coords) != len(s.Atoms) {
		return incomplete(fmt.Sprintf("%d atoms but %d coordinates", len(s.Atoms), len(s.Coords)))
	}
	for i, c := range s.Coords {
		if len(c) < 3 {
			return incomplete(fmt.Sprintf("coordinate %d has %d components", i, len(c)))
		}
	}
	for i, b := range s.Bonds {
		if len(b) < 2 {
			return incomplete(fmt.Sprintf("bond %d has %d fields", i, len(b)))
		}
	}
	return nil
}

// ToGraph builds a MolecularGraph from s.  Coordinates become the 3D position;
// the 2D position is the x/y projection scaled by LayoutScale.  A bond tuple
// without an order is single.  Implicit hydrogens are inferred afterwards.
func ToGraph(s *StructureData) (*graph.MolecularGraph, error) {
	if err := s.Check(); err != nil {
		return nil, err
	}

	g := graph.New()
	for i, el := range s.Atoms {
		c := s.Coords[i]
		g.AddVertex(graph.NewAtom(el, c[0]*LayoutScale, c[1]*LayoutScale, c[0], c[1], c[2]))
	}
	for i, b := range s.Bonds {
		order := graph.OrderSingle
		if len(b) >= 3 {
			order = b[2]
		}
		if _, err := g.AddEdge(graph.AtomID(b[0]), graph.AtomID(b[1]), order); err != nil {
			return nil, errors.Wrap(err, errors.CodeUnknown, fmt.Sprintf("structure bond %d is invalid", i))
		}
	}
	g.AddImplicitHydrogens()
	return g, nil
}

// FromGraph converts g into the structure payload using 3D coordinates.
func FromGraph(g *graph.MolecularGraph) *StructureData {
	atoms := g.VertexSet()
	bonds := g.EdgeSet()
	s := &StructureData{
		Atoms:  make([]string, len(atoms)),
		Coords: make([][]float64, len(atoms)),
		Bonds:  make([][]int, len(bonds)),
	}
	for i, a := range atoms {
		s.Atoms[i] = a.Element()
		s.Coords[i] = []float64{a.X3D, a.Y3D, a.Z3D}
	}
	for i, b := range bonds {
		s.Bonds[i] = []int{int(b.Source), int(b.Target), b.Order}
	}
	return s
}

func incomplete(detail string) error {
	return errors.New(errors.ErrCodeRecognitionIncomplete, "incomplete model data").WithDetail(detail)
}
