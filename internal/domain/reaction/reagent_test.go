package reaction

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/turtacn/ARChemistry/pkg/errors"
)

func TestCatalog(t *testing.T) {
	c := Catalog()
	assert.Len(t, c, 3)
	assert.Equal(t, Reagent{Name: "H₂ (Hydrogen)", ReactionType: "Hydrogenation", Kind: KindHydrogenation}, c[0])
	assert.Equal(t, Reagent{Name: "Br₂ (Bromine)", ReactionType: "Bromination", Kind: KindBromination}, c[1])
	assert.Equal(t, Reagent{Name: "KMnO₄ (Potassium permanganate)", ReactionType: "Dihydroxylation", Kind: KindDihydroxylation}, c[2])

	c[0].Name = "mutated"
	assert.Equal(t, NameHydrogen, Catalog()[0].Name)
}

func TestNewReagent_ResolvesKindByName(t *testing.T) {
	assert.Equal(t, KindBromination, NewReagent(NameBromine, "anything").Kind)
	assert.Equal(t, "anything", NewReagent(NameBromine, "anything").ReactionType)

	// Matching is exact.
	assert.Equal(t, KindUnknown, NewReagent("br₂ (bromine)", "Bromination").Kind)
	assert.False(t, NewReagent("", "").Known())
	assert.True(t, NewReagent(NameHydrogen, "").Known())
}

func TestParseReagent(t *testing.T) {
	r, err := ParseReagent(NamePermanganate)
	assert.NoError(t, err)
	assert.Equal(t, KindDihydroxylation, r.Kind)

	_, err = ParseReagent("Cl₂ (Chlorine)")
	assert.True(t, errors.IsCode(err, errors.ErrCodeReagentUnknown))
}

func TestKind_String(t *testing.T) {
	assert.Equal(t, "Hydrogenation", KindHydrogenation.String())
	assert.Equal(t, "Unknown", KindUnknown.String())
	assert.Equal(t, "Unknown", Kind(42).String())
}
