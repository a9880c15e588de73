package graph

// standardValence holds the valences used for implicit hydrogen inference.
var standardValence = map[string]int{
	"C": 4,
	"O": 2,
	"N": 3,
}

// StandardValence returns the valence used for symbol and whether the symbol
// participates in implicit hydrogen inference.  The match is exact: "c" is
// not carbon here.
func StandardValence(symbol string) (int, bool) {
	v, ok := standardValence[symbol]
	return v, ok
}

// BondOrderSum returns the sum of the orders of all bonds incident to a.
func (g *MolecularGraph) BondOrderSum(a AtomID) int {
	sum := 0
	for _, b := range g.bonds {
		if b.Touches(a) {
			sum += b.Order
		}
	}
	return sum
}

// AddImplicitHydrogens sets ImplicitHydrogens = valence − Σ incident bond
// order for every C, O and N atom.  Other elements are left unchanged.
// Negative results are stored as is; see OverBonded.
func (g *MolecularGraph) AddImplicitHydrogens() {
	sums := make([]int, len(g.atoms))
	for _, b := range g.bonds {
		if g.ContainsVertex(b.Source) {
			sums[b.Source] += b.Order
		}
		if b.Target != b.Source && g.ContainsVertex(b.Target) {
			sums[b.Target] += b.Order
		}
	}
	for i := range g.atoms {
		v, ok := StandardValence(g.atoms[i].element)
		if !ok {
			continue
		}
		g.atoms[i].ImplicitHydrogens = v - sums[i]
	}
}

// OverBonded returns the atoms whose implicit hydrogen count is negative.
func (g *MolecularGraph) OverBonded() []AtomID {
	var out []AtomID
	for i, a := range g.atoms {
		if a.ImplicitHydrogens < 0 {
			out = append(out, AtomID(i))
		}
	}
	return out
}

// TotalHydrogens returns the explicit H atom count plus every positive
// implicit hydrogen count.
func (g *MolecularGraph) TotalHydrogens() int {
	n := 0
	for _, a := range g.atoms {
		if a.Symbol() == "H" {
			n++
		}
		if a.ImplicitHydrogens > 0 {
			n += a.ImplicitHydrogens
		}
	}
	return n
}
