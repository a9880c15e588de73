package codec

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/ARChemistry/internal/domain/graph"
	"github.com/turtacn/ARChemistry/pkg/errors"
)

const etheneJSON = `{"atoms":["C","C"],"coords":[[-0.5,0,0],[0.5,0,0]],"bonds":[[0,1,2]]}`

func TestToGraph_Ethene(t *testing.T) {
	var s StructureData
	require.NoError(t, json.Unmarshal([]byte(etheneJSON), &s))

	g, err := ToGraph(&s)
	require.NoError(t, err)
	require.Equal(t, 2, g.AtomCount())

	a, _ := g.Atom(0)
	assert.Equal(t, -0.5, a.X3D)
	assert.Equal(t, -25.0, a.X)
	assert.Equal(t, 0.0, a.Y)
	assert.Equal(t, 2, a.ImplicitHydrogens)
	assert.Equal(t, 2, g.EdgeSet()[0].Order)
}

func TestToGraph_DefaultOrder(t *testing.T) {
	s := &StructureData{
		Atoms:  []string{"C", "O"},
		Coords: [][]float64{{0, 0, 0}, {1, 0, 0}},
		Bonds:  [][]int{{0, 1}},
	}
	g, err := ToGraph(s)
	require.NoError(t, err)
	assert.Equal(t, graph.OrderSingle, g.EdgeSet()[0].Order)
}

func TestToGraph_Incomplete(t *testing.T) {
	cases := map[string]*StructureData{
		"nil":            nil,
		"missing bonds":  {Atoms: []string{"C"}, Coords: [][]float64{{0, 0, 0}}},
		"coord mismatch": {Atoms: []string{"C", "C"}, Coords: [][]float64{{0, 0, 0}}, Bonds: [][]int{}},
		"short coord":    {Atoms: []string{"C"}, Coords: [][]float64{{0, 0}}, Bonds: [][]int{}},
		"short bond":     {Atoms: []string{"C"}, Coords: [][]float64{{0, 0, 0}}, Bonds: [][]int{{0}}},
	}
	for name, s := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ToGraph(s)
			assert.True(t, errors.IsCode(err, errors.ErrCodeRecognitionIncomplete), "got %v", err)
		})
	}
}

func TestToGraph_InvalidBondKeepsGraphCode(t *testing.T) {
	s := &StructureData{
		Atoms:  []string{"C"},
		Coords: [][]float64{{0, 0, 0}},
		Bonds:  [][]int{{0, 0, 1}},
	}
	_, err := ToGraph(s)
	assert.Equal(t, errors.ErrCodeGraphSelfLoop, errors.GetCode(err))
}

func TestFromGraph_RoundTrip(t *testing.T) {
	g := bromoethane()
	s := FromGraph(g)

	assert.Equal(t, []string{"C", "C", "Br"}, s.Atoms)
	assert.Equal(t, []float64{0.5, 0, 0.125}, s.Coords[1])
	assert.Equal(t, []int{0, 2, 1}, s.Bonds[1])

	back, err := ToGraph(s)
	require.NoError(t, err)
	assert.Equal(t, g.EdgeSet(), back.EdgeSet())
	for i, a := range back.VertexSet() {
		orig := g.VertexSet()[i]
		assert.Equal(t, orig.Element(), a.Element())
		assert.Equal(t, orig.X3D, a.X3D)
		assert.Equal(t, orig.ImplicitHydrogens, a.ImplicitHydrogens)
	}
}

func TestReactionResponse_JSON(t *testing.T) {
	body := `{"reactant":` + etheneJSON + `,"error":null}`
	var r ReactionResponse
	require.NoError(t, json.Unmarshal([]byte(body), &r))
	require.NotNil(t, r.Reactant)
	assert.Nil(t, r.Product)
	assert.Empty(t, r.Error)
	assert.NoError(t, r.Reactant.Check())
}
