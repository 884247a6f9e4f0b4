package crowding_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PaiCY-T/evoengine/internal/crowding"
	"github.com/PaiCY-T/evoengine/internal/errs"
	"github.com/PaiCY-T/evoengine/internal/individual"
	"github.com/PaiCY-T/evoengine/internal/objective"
)

func withMetrics(id string, m objective.Metrics) *individual.Individual {
	ind := individual.New(id, 0, nil)
	ind.SetMetrics(m)
	return ind
}

// Scenario B — crowding boundaries, spec.md §8.
func TestComputeScenarioBBoundaries(t *testing.T) {
	s1 := withMetrics("s1", objective.Metrics{Sharpe: 2.0, Calmar: 3.0, MaxDrawdown: -0.08, TotalReturn: 0.60, WinRate: 0.70, AnnualReturn: 0.25, Success: true})
	s2 := withMetrics("s2", objective.Metrics{Sharpe: 1.5, Calmar: 2.5, MaxDrawdown: -0.12, TotalReturn: 0.50, WinRate: 0.65, AnnualReturn: 0.22, Success: true})
	s3 := withMetrics("s3", objective.Metrics{Sharpe: 1.0, Calmar: 2.0, MaxDrawdown: -0.18, TotalReturn: 0.40, WinRate: 0.55, AnnualReturn: 0.18, Success: true})

	dist, err := crowding.Compute([]*individual.Individual{s1, s2, s3})
	require.NoError(t, err)

	assert.True(t, math.IsInf(dist["s1"], 1))
	assert.True(t, math.IsInf(dist["s3"], 1))
	assert.False(t, math.IsInf(dist["s2"], 1))
	assert.Greater(t, dist["s2"], 0.0)
}

func TestComputeInsufficientPopulation(t *testing.T) {
	s1 := withMetrics("s1", objective.Metrics{Sharpe: 1, Success: true})
	_, err := crowding.Compute([]*individual.Individual{s1})
	assert.ErrorIs(t, err, errs.ErrInsufficientPopulation)

	_, err = crowding.Compute(nil)
	assert.ErrorIs(t, err, errs.ErrInsufficientPopulation)
}

func TestComputeAllIdenticalMetricsZeroDistance(t *testing.T) {
	m := objective.Metrics{Sharpe: 1, Calmar: 1, MaxDrawdown: -0.1, TotalReturn: 1, WinRate: 1, AnnualReturn: 1, Success: true}
	pop := []*individual.Individual{withMetrics("a", m), withMetrics("b", m), withMetrics("c", m)}
	dist, err := crowding.Compute(pop)
	require.NoError(t, err)
	for _, id := range []string{"a", "b", "c"} {
		assert.Equal(t, 0.0, dist[id])
	}
}

func TestComputeDistanceNonNegative(t *testing.T) {
	s1 := withMetrics("s1", objective.Metrics{Sharpe: 2.0, Calmar: 3.0, MaxDrawdown: -0.08, TotalReturn: 0.60, WinRate: 0.70, AnnualReturn: 0.25, Success: true})
	s2 := withMetrics("s2", objective.Metrics{Sharpe: 1.5, Calmar: 2.5, MaxDrawdown: -0.12, TotalReturn: 0.50, WinRate: 0.65, AnnualReturn: 0.22, Success: true})
	s3 := withMetrics("s3", objective.Metrics{Sharpe: 1.0, Calmar: 2.0, MaxDrawdown: -0.18, TotalReturn: 0.40, WinRate: 0.55, AnnualReturn: 0.18, Success: true})
	dist, err := crowding.Compute([]*individual.Individual{s1, s2, s3})
	require.NoError(t, err)
	for _, d := range dist {
		assert.False(t, d < 0)
	}
}
