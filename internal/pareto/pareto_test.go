package pareto_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PaiCY-T/evoengine/internal/individual"
	"github.com/PaiCY-T/evoengine/internal/objective"
	"github.com/PaiCY-T/evoengine/internal/pareto"
)

func withMetrics(id string, m objective.Metrics) *individual.Individual {
	ind := individual.New(id, 0, nil)
	ind.SetMetrics(m)
	return ind
}

// Scenario A — dominance chain, spec.md §8.
func TestSortScenarioADominanceChain(t *testing.T) {
	s1 := withMetrics("s1", objective.Metrics{Sharpe: 2.0, Calmar: 3.0, MaxDrawdown: -0.08, TotalReturn: 0.60, WinRate: 0.70, AnnualReturn: 0.25, Success: true})
	s2 := withMetrics("s2", objective.Metrics{Sharpe: 1.5, Calmar: 2.5, MaxDrawdown: -0.12, TotalReturn: 0.50, WinRate: 0.65, AnnualReturn: 0.22, Success: true})
	s3 := withMetrics("s3", objective.Metrics{Sharpe: 1.0, Calmar: 2.0, MaxDrawdown: -0.18, TotalReturn: 0.40, WinRate: 0.55, AnnualReturn: 0.18, Success: true})
	s4 := individual.New("s4", 0, nil) // missing metrics

	ranks := pareto.Sort([]*individual.Individual{s1, s2, s3, s4})
	require.Equal(t, 1, ranks["s1"])
	require.Equal(t, 2, ranks["s2"])
	require.Equal(t, 3, ranks["s3"])
	require.Equal(t, 0, ranks["s4"])
}

func TestSortFirstFrontHasNoDominators(t *testing.T) {
	a := withMetrics("a", objective.Metrics{Sharpe: 2, Calmar: 2, MaxDrawdown: -0.1, TotalReturn: 1, WinRate: 1, AnnualReturn: 1, Success: true})
	b := withMetrics("b", objective.Metrics{Sharpe: 1, Calmar: 1, MaxDrawdown: -0.2, TotalReturn: 0.5, WinRate: 0.5, AnnualReturn: 0.5, Success: true})
	pop := []*individual.Individual{a, b}
	pareto.Apply(pop)

	front := pareto.FirstFront(pop)
	require.Len(t, front, 1)
	assert.Equal(t, "a", front[0].ID)
}

func TestSortAllIdenticalMetricsAllRankOne(t *testing.T) {
	m := objective.Metrics{Sharpe: 1, Calmar: 1, MaxDrawdown: -0.1, TotalReturn: 1, WinRate: 1, AnnualReturn: 1, Success: true}
	pop := []*individual.Individual{withMetrics("a", m), withMetrics("b", m), withMetrics("c", m)}
	ranks := pareto.Sort(pop)
	for _, id := range []string{"a", "b", "c"} {
		assert.Equal(t, 1, ranks[id])
	}
}

func TestSortOneValidOneFailed(t *testing.T) {
	valid := withMetrics("v", objective.Metrics{Sharpe: 1, Calmar: 1, MaxDrawdown: -0.1, TotalReturn: 1, WinRate: 1, AnnualReturn: 1, Success: true})
	failed := individual.New("f", 0, nil)
	failed.SetMetrics(objective.Metrics{Success: false})
	ranks := pareto.Sort([]*individual.Individual{valid, failed})
	assert.Equal(t, 1, ranks["v"])
	assert.Equal(t, 0, ranks["f"])
}

func TestSortDeterministicAcrossRepeatedRuns(t *testing.T) {
	m1 := objective.Metrics{Sharpe: 2, Calmar: 2, MaxDrawdown: -0.1, TotalReturn: 1, WinRate: 1, AnnualReturn: 1, Success: true}
	m2 := objective.Metrics{Sharpe: 1, Calmar: 1, MaxDrawdown: -0.2, TotalReturn: 0.5, WinRate: 0.5, AnnualReturn: 0.5, Success: true}
	pop := []*individual.Individual{withMetrics("a", m1), withMetrics("b", m2)}
	r1 := pareto.Sort(pop)
	r2 := pareto.Sort(pop)
	assert.Equal(t, r1, r2)
}
