// Package reaction implements the reagent catalog and the rule-based reaction
// engine that turns a reactant MolecularGraph into a product.
package reaction

import (
	"github.com/turtacn/ARChemistry/pkg/errors"
)

// Kind selects the transformation rule applied by the Engine.
type Kind int

const (
	// KindUnknown makes Execute return an unchanged copy of the reactant.
	KindUnknown Kind = iota
	KindHydrogenation
	KindBromination
	KindDihydroxylation
)

// String returns the reaction-type label of k.
func (k Kind) String() string {
	switch k {
	case KindHydrogenation:
		return "Hydrogenation"
	case KindBromination:
		return "Bromination"
	case KindDihydroxylation:
		return "Dihydroxylation"
	default:
		return "Unknown"
	}
}

// Catalog display names.
const (
	NameHydrogen     = "H₂ (Hydrogen)"
	NameBromine      = "Br₂ (Bromine)"
	NamePermanganate = "KMnO₄ (Potassium permanganate)"
)

// Reagent names a reagent and the reaction it drives.  Name and ReactionType
// are display labels; Kind drives dispatch.
type Reagent struct {
	Name         string `json:"name" yaml:"name"`
	ReactionType string `json:"reaction_type" yaml:"reaction_type"`
	Kind         Kind   `json:"-" yaml:"-"`
}

var catalog = []Reagent{
	{Name: NameHydrogen, ReactionType: KindHydrogenation.String(), Kind: KindHydrogenation},
	{Name: NameBromine, ReactionType: KindBromination.String(), Kind: KindBromination},
	{Name: NamePermanganate, ReactionType: KindDihydroxylation.String(), Kind: KindDihydroxylation},
}

// Catalog returns the supported reagents in display order.
func Catalog() []Reagent {
	out := make([]Reagent, len(catalog))
	copy(out, catalog)
	return out
}

// NewReagent builds a Reagent whose Kind is resolved from name by exact match
// against the catalog.  Names outside the catalog get KindUnknown.
func NewReagent(name, reactionType string) Reagent {
	r := Reagent{Name: name, ReactionType: reactionType, Kind: KindUnknown}
	for _, c := range catalog {
		if c.Name == name {
			r.Kind = c.Kind
			break
		}
	}
	return r
}

// ParseReagent returns the catalog entry named name, or an
// ErrCodeReagentUnknown error.
func ParseReagent(name string) (Reagent, error) {
	for _, c := range catalog {
		if c.Name == name {
			return c, nil
		}
	}
	return Reagent{}, errors.New(errors.ErrCodeReagentUnknown, "reagent is not in the catalog").
		WithDetail("name=" + name)
}

// Known reports whether r resolves to a reaction rule.
func (r Reagent) Known() bool { return r.ResolvedKind() != KindUnknown }

// ResolvedKind returns r.Kind, falling back to an exact catalog lookup of
// r.Name when Kind is unset.  A literal Reagent{Name: NameHydrogen} still
// hydrogenates.
func (r Reagent) ResolvedKind() Kind {
	if r.Kind != KindUnknown {
		return r.Kind
	}
	for _, c := range catalog {
		if c.Name == r.Name {
			return c.Kind
		}
	}
	return KindUnknown
}
