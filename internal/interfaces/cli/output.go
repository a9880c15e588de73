package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	appRxn "github.com/turtacn/ARChemistry/internal/application/reaction"
	"github.com/turtacn/ARChemistry/internal/domain/graph"
	domainRxn "github.com/turtacn/ARChemistry/internal/domain/reaction"
	"github.com/turtacn/ARChemistry/internal/infrastructure/codec"
	"github.com/turtacn/ARChemistry/internal/rendering"
	"github.com/turtacn/ARChemistry/pkg/errors"
)

// ReagentList is the reagents command result.
type ReagentList []domainRxn.Reagent

func (l ReagentList) TableHeaders() []string { return []string{"#", "NAME", "REACTION"} }

func (l ReagentList) TableRows() [][]string {
	rows := make([][]string, len(l))
	for i, r := range l {
		rows[i] = []string{strconv.Itoa(i + 1), r.Name, r.ReactionType}
	}
	return rows
}

// ReactionOutput is the react and recognize command result.
type ReactionOutput struct {
	RequestID   string               `json:"request_id" yaml:"request_id"`
	ReactantKey string               `json:"reactant_key,omitempty" yaml:"reactant_key,omitempty"`
	ProductKey  string               `json:"product_key,omitempty" yaml:"product_key,omitempty"`
	Exported    []string             `json:"exported,omitempty" yaml:"exported,omitempty"`
	CacheHit    bool                 `json:"cache_hit" yaml:"cache_hit"`
	Report      domainRxn.Report     `json:"report" yaml:"report"`
	Reactant    *codec.StructureData `json:"reactant" yaml:"reactant"`
	Product     *codec.StructureData `json:"product" yaml:"product"`
	Remote      *codec.StructureData `json:"remote_product,omitempty" yaml:"remote_product,omitempty"`
	Summary     []string             `json:"summary" yaml:"summary"`
}

func newReactionOutput(res *appRxn.ReactResult) *ReactionOutput {
	out := &ReactionOutput{
		RequestID:   res.RequestID,
		ReactantKey: res.ReactantKey,
		ProductKey:  res.ProductKey,
		CacheHit:    res.CacheHit,
		Report:      res.Report,
		Reactant:    codec.FromGraph(res.Reactant),
		Product:     codec.FromGraph(res.Product),
		Summary:     rendering.Describe(res.Product),
	}
	if res.RemoteProduct != nil {
		out.Remote = codec.FromGraph(res.RemoteProduct)
	}
	return out
}

func (o *ReactionOutput) String() string {
	var sb strings.Builder
	r := o.Report
	fmt.Fprintf(&sb, "Reagent:   %s (%s)\n", r.Reagent, r.ReactionType)
	fmt.Fprintf(&sb, "Reactant:  %s\n", r.ReactantFormula)
	fmt.Fprintf(&sb, "Product:   %s\n", r.ProductFormula)
	fmt.Fprintf(&sb, "Changes:   %d converted bonds, %d added atoms, %d added bonds, %d fragments\n",
		r.ConvertedBonds, r.AddedAtoms, r.AddedBonds, r.ProductFragments)
	if o.ReactantKey != "" {
		fmt.Fprintf(&sb, "Stored:    %s, %s\n", o.ReactantKey, o.ProductKey)
	}
	for _, path := range o.Exported {
		fmt.Fprintf(&sb, "Exported:  %s\n", path)
	}
	if o.CacheHit {
		sb.WriteString("Cache:     hit\n")
	}
	for _, line := range o.Summary {
		sb.WriteString("  " + line + "\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}

// GraphOutput is the inspect command result.
type GraphOutput struct {
	Source    string               `json:"source" yaml:"source"`
	Formula   string               `json:"formula" yaml:"formula"`
	Atoms     int                  `json:"atoms" yaml:"atoms"`
	Bonds     int                  `json:"bonds" yaml:"bonds"`
	Structure *codec.StructureData `json:"structure" yaml:"structure"`
	Summary   []string             `json:"summary" yaml:"summary"`
}

func newGraphOutput(source string, g *graph.MolecularGraph) *GraphOutput {
	return &GraphOutput{
		Source:    source,
		Formula:   g.Formula(),
		Atoms:     g.AtomCount(),
		Bonds:     g.BondCount(),
		Structure: codec.FromGraph(g),
		Summary:   rendering.Describe(g),
	}
}

func (o *GraphOutput) String() string {
	lines := []string{
		fmt.Sprintf("%s: %s, %d atoms, %d bonds", o.Source, o.Formula, o.Atoms, o.Bonds),
	}
	for _, l := range o.Summary {
		lines = append(lines, "  "+l)
	}
	return strings.Join(lines, "\n")
}

// SceneOutput is the inspect --scene result.
type SceneOutput struct {
	Source string           `json:"source" yaml:"source"`
	Scene  *rendering.Scene `json:"scene" yaml:"scene"`
}

func (o *SceneOutput) String() string {
	return o.Source + ": " + o.Scene.Summary()
}

// KeyList is the graphs list result.
type KeyList []string

func (l KeyList) TableHeaders() []string { return []string{"KEY"} }

func (l KeyList) TableRows() [][]string {
	rows := make([][]string, len(l))
	for i, k := range l {
		rows[i] = []string{k}
	}
	return rows
}

// readGraphFile loads a structure JSON document or a binary snapshot.
func readGraphFile(path string) (*graph.MolecularGraph, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeNotFound, "cannot read graph file").WithDetail("path=" + path)
	}
	if trimmed := bytes.TrimSpace(data); len(trimmed) > 0 && trimmed[0] == '{' {
		var s codec.StructureData
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeValidation, "malformed structure JSON").WithDetail("path=" + path)
		}
		return codec.ToGraph(&s)
	}
	return codec.Decode(data)
}
