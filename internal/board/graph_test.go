package board

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultGraphIsValid(t *testing.T) {
	g := Default()
	require.NoError(t, g.Validate())
	assert.Len(t, g.Cities(), 27)
	assert.True(t, g.Has(Capital))
	assert.Equal(t, RegionAtillaUdvara, g.Region(Capital))
}

func TestAdjacencySymmetry(t *testing.T) {
	g := Default()
	for _, a := range g.Cities() {
		for _, b := range g.Neighbors(a) {
			assert.Truef(t, g.IsNeighbor(b, a), "%s -> %s has no reverse edge", a, b)
		}
	}
}

func TestGraphIsConnected(t *testing.T) {
	g := Default()
	for _, city := range g.Cities() {
		assert.GreaterOrEqualf(t, g.Distance(Capital, city), 0, "%s unreachable from capital", city)
	}
}

func TestNewGraphRejectsAsymmetricEdges(t *testing.T) {
	defs := []CityDef{{"A", "R"}, {"B", "R"}}
	_, err := NewGraph(defs, map[string][]string{"A": {"B"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not symmetric")
}

func TestNewGraphRejectsDisconnectedMap(t *testing.T) {
	defs := []CityDef{{"A", "R"}, {"B", "R"}, {"C", "S"}}
	_, err := NewGraph(defs, map[string][]string{"A": {"B"}, "B": {"A"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"C" is unreachable`)

	g, err := NewGraph(defs, map[string][]string{"A": {"B"}, "B": {"A", "C"}, "C": {"B"}})
	require.NoError(t, err)
	assert.Equal(t, 2, g.Distance("A", "C"))
	assert.Equal(t, 0, g.Distance("C", "C"))
}

func TestNewGraphRejectsUnknownNeighbor(t *testing.T) {
	defs := []CityDef{{"A", "R"}}
	_, err := NewGraph(defs, map[string][]string{"A": {"Z"}})
	require.Error(t, err)
}

func TestShortestStepToward(t *testing.T) {
	g := Default()

	step, ok := g.ShortestStepToward("Etil", []string{"Dnyeszter"}, "")
	require.True(t, ok)
	assert.Equal(t, "Boriszténész", step)

	step, ok = g.ShortestStepToward("Ódesszosz", []string{"Etil"}, "")
	require.True(t, ok)
	assert.Equal(t, "Várna", step)
}

func TestShortestStepTowardStartIsTarget(t *testing.T) {
	g := Default()
	_, ok := g.ShortestStepToward("Etil", []string{"Buda", "Etil"}, "")
	assert.False(t, ok)
}

func TestShortestStepTowardNoTargets(t *testing.T) {
	g := Default()
	_, ok := g.ShortestStepToward("Etil", nil, "")
	assert.False(t, ok)
}

func TestShortestStepTowardTieBreaksByNeighborOrder(t *testing.T) {
	g := Default()
	// Buda and Szerém are both one step from Etil; Buda comes first.
	step, ok := g.ShortestStepToward("Etil", []string{"Szerém", "Buda"}, "")
	require.True(t, ok)
	assert.Equal(t, "Buda", step)
}

func TestShortestStepTowardAvoid(t *testing.T) {
	g := Default()

	// Dnyeszter is a dead end behind Boriszténész.
	_, ok := g.ShortestStepToward("Dnyeszter", []string{"Etil"}, "Boriszténész")
	assert.False(t, ok)

	step, ok := g.StepToward("Dnyeszter", []string{"Etil"}, "Boriszténész")
	require.True(t, ok)
	assert.Equal(t, "Boriszténész", step)

	// With Buda excluded, Pécs routes to Etil through Szeged or Szerém.
	step, ok = g.ShortestStepToward("Pécs", []string{"Etil"}, "Buda")
	require.True(t, ok)
	assert.Equal(t, "Szeged", step)
}

func TestSortCanonical(t *testing.T) {
	g := Default()
	names := []string{"Zzz", "Etil", "Dnyeszter", "Aaa"}
	g.SortCanonical(names)
	assert.Equal(t, []string{"Dnyeszter", "Etil", "Aaa", "Zzz"}, names)
}
