package depgraph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSort_LinearChain(t *testing.T) {
	deps := map[string][]string{
		"A": nil,
		"B": {"A"},
		"C": {"B"},
	}
	order, err := Sort(deps, []string{"A", "B", "C"})
	require.Nil(t, err)
	assert.Equal(t, []string{"A", "B", "C"}, order)
}

func TestSort_Diamond(t *testing.T) {
	deps := map[string][]string{
		"A": nil,
		"B": {"A"},
		"C": {"A"},
		"D": {"B", "C"},
	}
	order, err := Sort(deps, []string{"A", "B", "C", "D"})
	require.Nil(t, err)
	require.Len(t, order, 4)
	assert.Equal(t, "A", order[0])
	assert.Equal(t, "D", order[3])
}

func TestSort_TieBreakIsFirstAppearance(t *testing.T) {
	deps := map[string][]string{
		"Zebra": nil,
		"Alpha": nil,
		"Omega": {"Zebra", "Alpha"},
	}
	order, err := Sort(deps, []string{"Zebra", "Alpha", "Omega"})
	require.Nil(t, err)
	assert.Equal(t, []string{"Zebra", "Alpha", "Omega"}, order)
}

func TestSort_CycleDetected(t *testing.T) {
	deps := map[string][]string{
		"A": {"B"},
		"B": {"A"},
	}
	order, err := Sort(deps, []string{"A", "B"})
	require.Nil(t, order)
	require.NotNil(t, err)
	assert.NotEmpty(t, err.Cycle)
}

func TestDetectCycle_TwoEntity(t *testing.T) {
	deps := map[string][]string{
		"A": {"B"},
		"B": {"A"},
	}
	cycle := DetectCycle(deps)
	require.NotEmpty(t, cycle)
	assert.Equal(t, cycle[0], cycle[len(cycle)-1])
}

func TestDetectCycle_Acyclic(t *testing.T) {
	deps := map[string][]string{
		"A": nil,
		"B": {"A"},
	}
	assert.Empty(t, DetectCycle(deps))
}

func TestDetectCycle_Deterministic(t *testing.T) {
	deps := map[string][]string{
		"C": {"A"},
		"A": {"B"},
		"B": {"C"},
	}
	first := DetectCycle(deps)
	second := DetectCycle(deps)
	assert.Equal(t, first, second)
}

func TestSort_IgnoresExternalReferences(t *testing.T) {
	deps := map[string][]string{
		"A": {"external.Thing"},
	}
	order, err := Sort(deps, []string{"A"})
	require.Nil(t, err)
	assert.Equal(t, []string{"A"}, order)
}
