package graph

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"math"
	"sort"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
)

// Fragments returns the connected components of g.  Each fragment lists its
// atoms in ascending ID order and fragments are ordered by their smallest
// atom.  Bonds that fail Validate are ignored.
func (g *MolecularGraph) Fragments() [][]AtomID {
	if len(g.atoms) == 0 {
		return nil
	}

	ug := simple.NewUndirectedGraph()
	for i := range g.atoms {
		ug.AddNode(simple.Node(i))
	}
	for _, b := range g.bonds {
		if b.Source == b.Target || !g.ContainsVertex(b.Source) || !g.ContainsVertex(b.Target) {
			continue
		}
		// SetEdge collapses multi-bonds onto one edge; connectivity is unaffected.
		ug.SetEdge(ug.NewEdge(simple.Node(b.Source), simple.Node(b.Target)))
	}

	components := topo.ConnectedComponents(ug)
	out := make([][]AtomID, 0, len(components))
	for _, c := range components {
		frag := make([]AtomID, len(c))
		for i, n := range c {
			frag[i] = AtomID(n.ID())
		}
		sort.Slice(frag, func(i, j int) bool { return frag[i] < frag[j] })
		out = append(out, frag)
	}
	sort.Slice(out, func(i, j int) bool { return out[i][0] < out[j][0] })
	return out
}

// ElementCounts returns the number of atoms per canonical symbol, with
// hydrogens from TotalHydrogens folded into "H".
func (g *MolecularGraph) ElementCounts() map[string]int {
	counts := make(map[string]int)
	for _, a := range g.atoms {
		if s := a.Symbol(); s != "H" && s != "" {
			counts[s]++
		}
	}
	if h := g.TotalHydrogens(); h > 0 {
		counts["H"] = h
	}
	return counts
}

// Formula returns the molecular formula in Hill order: C first, H second, the
// rest alphabetically.  Without carbon every symbol is alphabetical.
func (g *MolecularGraph) Formula() string {
	counts := g.ElementCounts()
	if len(counts) == 0 {
		return ""
	}

	symbols := make([]string, 0, len(counts))
	for s := range counts {
		symbols = append(symbols, s)
	}
	_, hasCarbon := counts["C"]
	sort.Slice(symbols, func(i, j int) bool {
		if hasCarbon {
			ri, rj := hillRank(symbols[i]), hillRank(symbols[j])
			if ri != rj {
				return ri < rj
			}
		}
		return symbols[i] < symbols[j]
	})

	var sb strings.Builder
	for _, s := range symbols {
		sb.WriteString(s)
		if n := counts[s]; n > 1 {
			sb.WriteString(strconv.Itoa(n))
		}
	}
	return sb.String()
}

func hillRank(symbol string) int {
	switch symbol {
	case "C":
		return 0
	case "H":
		return 1
	default:
		return 2
	}
}

// Fingerprint returns a hex SHA-256 digest over every atom field and every
// bond in insertion order.  Equal fingerprints mean structurally identical
// arenas, including coordinates.
func (g *MolecularGraph) Fingerprint() string {
	h := sha256.New()
	var buf [8]byte
	putInt := func(v int64) {
		binary.BigEndian.PutUint64(buf[:], uint64(v))
		h.Write(buf[:])
	}
	putFloat := func(f float64) {
		binary.BigEndian.PutUint64(buf[:], math.Float64bits(f))
		h.Write(buf[:])
	}

	putInt(int64(len(g.atoms)))
	for _, a := range g.atoms {
		putInt(int64(len(a.element)))
		h.Write([]byte(a.element))
		putFloat(a.X)
		putFloat(a.Y)
		putFloat(a.X3D)
		putFloat(a.Y3D)
		putFloat(a.Z3D)
		putInt(int64(a.ImplicitHydrogens))
	}
	putInt(int64(len(g.bonds)))
	for _, b := range g.bonds {
		putInt(int64(b.Source))
		putInt(int64(b.Target))
		putInt(int64(b.Order))
	}
	return hex.EncodeToString(h.Sum(nil))
}
