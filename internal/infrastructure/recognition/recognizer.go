// Package recognition turns a photographed reaction drawing into a reactant
// MolecularGraph.  Client talks to the remote image-recognition backend;
// Placeholder returns a fixed ethene graph for offline use.
package recognition

import (
	"context"
	"io"

	"github.com/turtacn/ARChemistry/internal/domain/graph"
)

// Image is the uploaded drawing.
type Image struct {
	// Filename is sent as the multipart file name.
	Filename string
	// Data is the encoded image.
	Data io.Reader
}

// Result is what a Recognizer produced for one image.
type Result struct {
	Reactant *graph.MolecularGraph
	// RemoteProduct is the product computed by the backend, when it sent one.
	RemoteProduct *graph.MolecularGraph
	// RequestID correlates the call with backend logs.
	RequestID string
}

// Recognizer extracts a reactant structure from an image.
type Recognizer interface {
	Recognize(ctx context.Context, img Image, reagentName string) (*Result, error)
}

// EtheneGraph returns the demonstration reactant: two carbons joined by a
// double bond, with implicit hydrogens computed.
func EtheneGraph() *graph.MolecularGraph {
	g := graph.New()
	c1 := g.AddVertex(graph.NewAtom("C", 0, 0, -0.5, 0, 0))
	c2 := g.AddVertex(graph.NewAtom("C", 50, 0, 0.5, 0, 0))
	g.MustAddEdge(c1, c2, graph.OrderDouble)
	g.AddImplicitHydrogens()
	return g
}

// Placeholder is a Recognizer that ignores the image and returns EtheneGraph.
type Placeholder struct{}

// Recognize implements Recognizer.
func (Placeholder) Recognize(ctx context.Context, _ Image, _ string) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &Result{Reactant: EtheneGraph(), RequestID: "placeholder"}, nil
}
