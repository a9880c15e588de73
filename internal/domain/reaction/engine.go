package reaction

import (
	"github.com/turtacn/ARChemistry/internal/domain/graph"
	"github.com/turtacn/ARChemistry/internal/infrastructure/monitoring/logging"
)

// Substituent placement relative to the carbon it is attached to.
const (
	SubstituentOffset2D = 20.0
	SubstituentOffset3D = 0.5
)

// Engine applies reagent rules to reactant graphs.  It holds no per-call state
// and is safe for concurrent use on distinct reactants.
type Engine struct {
	logger logging.Logger
}

// NewEngine constructs an Engine.  A nil logger discards output.
func NewEngine(logger logging.Logger) *Engine {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Engine{logger: logger.Named("reaction")}
}

// Execute returns the product of reacting reactant with reagent.  The reactant
// is never modified; the product is always a distinct graph, even when no rule
// applies.
func (e *Engine) Execute(reactant *graph.MolecularGraph, reagent Reagent) *graph.MolecularGraph {
	product := reactant.Clone()

	switch reagent.ResolvedKind() {
	case KindHydrogenation:
		e.hydrogenate(product)
	case KindBromination:
		e.addAcross(product, "Br", 0)
	case KindDihydroxylation:
		e.addAcross(product, "O", 1)
	case KindUnknown:
		e.logger.Warn("unknown reagent, returning reactant copy",
			logging.String("reagent", reagent.Name),
			logging.String("reaction_type", reagent.ReactionType))
		return product
	}

	e.logger.Info("reaction executed",
		logging.String("reagent", reagent.Name),
		logging.String("reactant_formula", reactant.Formula()),
		logging.String("product_formula", product.Formula()),
		logging.Int("atoms", product.AtomCount()),
		logging.Int("bonds", product.BondCount()))
	return product
}

// hydrogenate demotes every double bond and gives each endpoint one more
// implicit hydrogen.
func (e *Engine) hydrogenate(g *graph.MolecularGraph) {
	doubles := g.BondsWithOrder(graph.OrderDouble)
	if len(doubles) == 0 {
		e.logger.Debug("no double bonds to hydrogenate")
	}
	for _, id := range doubles {
		b, _ := g.Bond(id)
		if malformed(g, b) {
			e.logger.Warn("skipping malformed double bond", logging.Int("bond", int(id)))
			continue
		}
		b.Order = graph.OrderSingle
		for _, end := range [2]graph.AtomID{b.Source, b.Target} {
			a, _ := g.Atom(end)
			a.ImplicitHydrogens++
		}
	}
}

// addAcross demotes every double bond and attaches one new atom of element to
// each endpoint with a single bond.  Each new atom gets hydrogens implicit
// hydrogens.
func (e *Engine) addAcross(g *graph.MolecularGraph, element string, hydrogens int) {
	doubles := g.BondsWithOrder(graph.OrderDouble)
	if len(doubles) == 0 {
		e.logger.Debug("no double bonds for addition", logging.String("element", element))
	}
	for _, id := range doubles {
		b, _ := g.Bond(id)
		c1, c2 := b.Source, b.Target
		if malformed(g, b) {
			e.logger.Warn("skipping malformed double bond", logging.Int("bond", int(id)))
			continue
		}
		b.Order = graph.OrderSingle

		s1 := g.AddVertex(substituent(g, c1, element, hydrogens))
		s2 := g.AddVertex(substituent(g, c2, element, hydrogens))

		g.MustAddEdge(c1, s1, graph.OrderSingle)
		g.MustAddEdge(c2, s2, graph.OrderSingle)
	}
}

// malformed reports a self-loop or an endpoint outside the arena.  Graphs
// built through AddEdge never contain one, but decoded graphs may.
func malformed(g *graph.MolecularGraph, b *graph.Bond) bool {
	return b.Source == b.Target || !g.ContainsVertex(b.Source) || !g.ContainsVertex(b.Target)
}

func substituent(g *graph.MolecularGraph, carbon graph.AtomID, element string, hydrogens int) graph.Atom {
	c, _ := g.Atom(carbon)
	a := graph.NewAtom(element,
		c.X+SubstituentOffset2D,
		c.Y+SubstituentOffset2D,
		c.X3D+SubstituentOffset3D,
		c.Y3D+SubstituentOffset3D,
		c.Z3D)
	a.ImplicitHydrogens = hydrogens
	return a
}

// Report summarises what a reaction changed.
type Report struct {
	Reagent          string `json:"reagent" yaml:"reagent"`
	ReactionType     string `json:"reaction_type" yaml:"reaction_type"`
	ReactantFormula  string `json:"reactant_formula" yaml:"reactant_formula"`
	ProductFormula   string `json:"product_formula" yaml:"product_formula"`
	ConvertedBonds   int    `json:"converted_bonds" yaml:"converted_bonds"`
	AddedAtoms       int    `json:"added_atoms" yaml:"added_atoms"`
	AddedBonds       int    `json:"added_bonds" yaml:"added_bonds"`
	ProductFragments int    `json:"product_fragments" yaml:"product_fragments"`
}

// Report compares reactant and product.  A converted bond is a reactant bond
// whose order changed at the same index in the product.
func (e *Engine) Report(reactant, product *graph.MolecularGraph, reagent Reagent) Report {
	r := Report{
		Reagent:          reagent.Name,
		ReactionType:     reagent.ReactionType,
		ReactantFormula:  reactant.Formula(),
		ProductFormula:   product.Formula(),
		AddedAtoms:       product.AtomCount() - reactant.AtomCount(),
		AddedBonds:       product.BondCount() - reactant.BondCount(),
		ProductFragments: len(product.Fragments()),
	}
	before := reactant.EdgeSet()
	after := product.EdgeSet()
	for i := 0; i < len(before) && i < len(after); i++ {
		if before[i].Order != after[i].Order {
			r.ConvertedBonds++
		}
	}
	return r
}
