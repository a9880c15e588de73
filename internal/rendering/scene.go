// Package rendering turns a molecular graph into ball-and-stick primitives
// for a 3D viewer: one sphere per atom and one cylinder per bond.
package rendering

import (
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/turtacn/ARChemistry/internal/domain/graph"
)

const (
	DefaultScale      = 0.4
	DefaultBondRadius = 0.08

	// MinBondLength is the scaled length below which a bond is not drawn.
	MinBondLength = 1e-4
)

// Color is linear RGB in [0, 1].
type Color struct {
	R float64 `json:"r" yaml:"r"`
	G float64 `json:"g" yaml:"g"`
	B float64 `json:"b" yaml:"b"`
}

var (
	White     = Color{1, 1, 1}
	DarkGray  = Color{0.25, 0.25, 0.25}
	Gray      = Color{0.53, 0.53, 0.53}
	Blue      = Color{0, 0, 1}
	Red       = Color{1, 0, 0}
	Green     = Color{0, 1, 0}
	Yellow    = Color{1, 1, 0}
	BromineRd = Color{0.6, 0.1, 0.1}
	Violet    = Color{0.4, 0, 0.6}
	Orange    = Color{1, 0.5, 0}
	Fallback  = Color{0.8, 0.5, 0.8}
)

type atomStyle struct {
	color  Color
	radius float64
}

var atomStyles = map[string]atomStyle{
	"H":  {White, 0.25},
	"C":  {DarkGray, 0.4},
	"N":  {Blue, 0.35},
	"O":  {Red, 0.35},
	"F":  {Green, 0.35},
	"Cl": {Green, 0.35},
	"Br": {BromineRd, 0.4},
	"I":  {Violet, 0.45},
	"P":  {Orange, 0.45},
	"S":  {Yellow, 0.45},
}

// AtomStyle returns the colour and unscaled radius for an element symbol,
// matched case-insensitively.
func AtomStyle(symbol string) (Color, float64) {
	if s, ok := atomStyles[graph.NormalizeSymbol(symbol)]; ok {
		return s.color, s.radius
	}
	return Fallback, 0.4
}

// Options controls scene construction.
type Options struct {
	Scale      float64 `json:"scale"`
	BondRadius float64 `json:"bond_radius"`
}

// DefaultOptions returns the standard ball-and-stick proportions.
func DefaultOptions() Options {
	return Options{Scale: DefaultScale, BondRadius: DefaultBondRadius}
}

// Vec3 is a JSON-friendly point.
type Vec3 struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
	Z float64 `json:"z" yaml:"z"`
}

func fromR3(v r3.Vec) Vec3 { return Vec3{v.X, v.Y, v.Z} }

// Vec returns v as an r3.Vec.
func (v Vec3) Vec() r3.Vec { return r3.Vec{X: v.X, Y: v.Y, Z: v.Z} }

// Quaternion is a unit rotation, W being the real part.
type Quaternion struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
	Z float64 `json:"z" yaml:"z"`
	W float64 `json:"w" yaml:"w"`
}

func fromQuat(q quat.Number) Quaternion {
	return Quaternion{X: q.Imag, Y: q.Jmag, Z: q.Kmag, W: q.Real}
}

// Number returns q as a gonum quaternion.
func (q Quaternion) Number() quat.Number {
	return quat.Number{Real: q.W, Imag: q.X, Jmag: q.Y, Kmag: q.Z}
}

// Sphere draws one atom.
type Sphere struct {
	Atom    graph.AtomID `json:"atom" yaml:"atom"`
	Element string       `json:"element" yaml:"element"`
	Center  Vec3         `json:"center" yaml:"center"`
	Radius  float64      `json:"radius" yaml:"radius"`
	Color   Color        `json:"color" yaml:"color"`
}

// Cylinder draws one bond.  The cylinder's axis is +Y before Rotation is
// applied, and Center is its midpoint.
type Cylinder struct {
	Bond     graph.BondID `json:"bond" yaml:"bond"`
	Order    int          `json:"order" yaml:"order"`
	Center   Vec3         `json:"center" yaml:"center"`
	Length   float64      `json:"length" yaml:"length"`
	Radius   float64      `json:"radius" yaml:"radius"`
	Rotation Quaternion   `json:"rotation" yaml:"rotation"`
	Color    Color        `json:"color" yaml:"color"`
}

// Scene is the full set of primitives for a graph.
type Scene struct {
	Spheres   []Sphere   `json:"spheres" yaml:"spheres"`
	Cylinders []Cylinder `json:"cylinders" yaml:"cylinders"`
	// Skipped lists bonds with a missing endpoint or near-zero length.
	Skipped []graph.BondID `json:"skipped,omitempty" yaml:"skipped,omitempty"`
}

var yAxis = r3.Vec{Y: 1}

// BuildScene lays out g using its 3D coordinates.  Zero option fields take
// their defaults.
func BuildScene(g *graph.MolecularGraph, opts Options) *Scene {
	if opts.Scale == 0 {
		opts.Scale = DefaultScale
	}
	if opts.BondRadius == 0 {
		opts.BondRadius = DefaultBondRadius
	}

	atoms := g.VertexSet()
	scene := &Scene{
		Spheres:   make([]Sphere, 0, len(atoms)),
		Cylinders: make([]Cylinder, 0, g.BondCount()),
	}
	positions := make([]r3.Vec, len(atoms))
	for i, a := range atoms {
		positions[i] = r3.Scale(opts.Scale, r3.Vec{X: a.X3D, Y: a.Y3D, Z: a.Z3D})
		color, radius := AtomStyle(a.Element())
		scene.Spheres = append(scene.Spheres, Sphere{
			Atom:    graph.AtomID(i),
			Element: a.Symbol(),
			Center:  fromR3(positions[i]),
			Radius:  radius * opts.Scale,
			Color:   color,
		})
	}

	for i, b := range g.EdgeSet() {
		id := graph.BondID(i)
		if !g.ContainsVertex(b.Source) || !g.ContainsVertex(b.Target) {
			scene.Skipped = append(scene.Skipped, id)
			continue
		}
		p1, p2 := positions[b.Source], positions[b.Target]
		diff := r3.Sub(p2, p1)
		length := r3.Norm(diff)
		if length <= MinBondLength {
			scene.Skipped = append(scene.Skipped, id)
			continue
		}
		scene.Cylinders = append(scene.Cylinders, Cylinder{
			Bond:     id,
			Order:    b.Order,
			Center:   fromR3(r3.Scale(0.5, r3.Add(p1, p2))),
			Length:   length,
			Radius:   opts.BondRadius * opts.Scale,
			Rotation: fromQuat(alignY(r3.Scale(1/length, diff))),
			Color:    Gray,
		})
	}
	return scene
}

// alignY returns the rotation taking +Y onto the unit vector dir.
func alignY(dir r3.Vec) quat.Number {
	d := math.Max(-1, math.Min(1, r3.Dot(yAxis, dir)))
	switch {
	case d > 0.9999:
		return quat.Number{Real: 1}
	case d < -0.9999:
		// Half turn about X.
		return quat.Number{Imag: 1}
	}
	axis := r3.Unit(r3.Cross(yAxis, dir))
	half := math.Acos(d) / 2
	s := math.Sin(half)
	return quat.Number{Real: math.Cos(half), Imag: axis.X * s, Jmag: axis.Y * s, Kmag: axis.Z * s}
}

// Rotate applies the unit quaternion q to v.
func Rotate(q quat.Number, v r3.Vec) r3.Vec {
	p := quat.Mul(quat.Mul(q, quat.Number{Imag: v.X, Jmag: v.Y, Kmag: v.Z}), quat.Conj(q))
	return r3.Vec{X: p.Imag, Y: p.Jmag, Z: p.Kmag}
}

// Describe lists the atoms and bonds a viewer would draw, one line each.
func Describe(g *graph.MolecularGraph) []string {
	atoms := g.VertexSet()
	lines := make([]string, 0, len(atoms)+g.BondCount()+2)
	lines = append(lines, fmt.Sprintf("Rendering molecule with %d atoms", len(atoms)))
	for _, a := range atoms {
		lines = append(lines, fmt.Sprintf("atom %s at (%g, %g, %g)", a.Symbol(), a.X3D, a.Y3D, a.Z3D))
	}
	for _, b := range g.EdgeSet() {
		src, srcOK := g.Atom(b.Source)
		dst, dstOK := g.Atom(b.Target)
		if !srcOK || !dstOK {
			lines = append(lines, fmt.Sprintf("bond %d-%d skipped: missing atom", b.Source, b.Target))
			continue
		}
		lines = append(lines, fmt.Sprintf("bond between %s and %s with order %d", src.Symbol(), dst.Symbol(), b.Order))
	}
	lines = append(lines, "Molecule rendering completed")
	return lines
}

// Summary is a one-line description of a scene.
func (s *Scene) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d spheres, %d cylinders", len(s.Spheres), len(s.Cylinders))
	if len(s.Skipped) > 0 {
		fmt.Fprintf(&b, ", %d skipped", len(s.Skipped))
	}
	return b.String()
}
