package variation

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PaiCY-T/evoengine/internal/adapters"
	"github.com/PaiCY-T/evoengine/internal/individual"
)

type stubProposer struct {
	proposeOK bool
	validOK   bool
}

func (s stubProposer) ProposeCrossover(ctx context.Context, p1, p2 *individual.Individual, target individual.Params) (string, bool, error) {
	return "synthesized", s.proposeOK, nil
}
func (s stubProposer) ProposeMutation(ctx context.Context, parent *individual.Individual, hint adapters.MutationHint) (string, bool, error) {
	return "synthesized", s.proposeOK, nil
}
func (s stubProposer) Validate(ctx context.Context, representation string) (bool, error) {
	return s.validOK, nil
}
func (s stubProposer) ParseExitProfile(ctx context.Context, representation string) (map[string]individual.Params, bool, error) {
	return map[string]individual.Params{
		"stop_loss": {"threshold": individual.Float(0.05)},
	}, true, nil
}
func (s stubProposer) SynthesizeExitProfile(ctx context.Context, parent *individual.Individual, profile map[string]individual.Params) (string, bool, error) {
	return "exit-synth", s.proposeOK, nil
}
func (s stubProposer) Seed(ctx context.Context, n int) ([]string, error) {
	out := make([]string, n)
	for i := range out {
		out[i] = "seeded"
	}
	return out, nil
}

func withWeights(id string, weights map[string]float64) *individual.Individual {
	ind := individual.New(id, 0, nil)
	ind.Parameters[individual.FactorWeightsKey] = individual.Weights(weights)
	return ind
}

func TestCompatibleForCrossoverScenarioF(t *testing.T) {
	p1 := withWeights("p1", map[string]float64{"roe": 1.0})
	p2 := withWeights("p2", map[string]float64{"pe": 1.0})
	assert.False(t, compatibleForCrossover(p1.Parameters, p2.Parameters))
}

func TestCrossoverIncompatibleParentsFails(t *testing.T) {
	e := NewEngine(42)
	p1 := withWeights("p1", map[string]float64{"roe": 1.0})
	p2 := withWeights("p2", map[string]float64{"pe": 1.0})
	cfg := Config{CrossoverRate: 1.0, MaxRetries: 3}
	_, err := e.Crossover(context.Background(), p1, p2, cfg, idGen(), 1, stubProposer{proposeOK: true, validOK: true})
	require.Error(t, err)
}

func TestCrossoverCompatibleParentsSucceeds(t *testing.T) {
	e := NewEngine(42)
	p1 := withWeights("p1", map[string]float64{"roe": 0.5, "pe": 0.5})
	p2 := withWeights("p2", map[string]float64{"pe": 0.3, "roe": 0.7})
	cfg := Config{CrossoverRate: 1.0, MaxRetries: 3}
	off, err := e.Crossover(context.Background(), p1, p2, cfg, idGen(), 1, stubProposer{proposeOK: true, validOK: true})
	require.NoError(t, err)
	require.NotNil(t, off)
	assert.Equal(t, []string{"p1", "p2"}, off.ParentIDs)

	w := off.Parameters[individual.FactorWeightsKey].Weights
	sum := 0.0
	for _, v := range w {
		assert.GreaterOrEqual(t, v, 0.0)
		sum += v
	}
	assert.InDelta(t, 1.0, sum, 1e-6)
}

func TestMutateParamsRenormalizesFactorWeights(t *testing.T) {
	e := NewEngine(7)
	params := individual.Params{
		individual.FactorWeightsKey: individual.Weights(map[string]float64{"a": 0.5, "b": 0.5}),
	}
	cfg := Config{MutationRate: 1.0, MutationStrength: 0.5}
	mutated := e.mutateParams(params, cfg)
	w := mutated[individual.FactorWeightsKey].Weights
	sum := 0.0
	for _, v := range w {
		assert.GreaterOrEqual(t, v, 0.0)
		sum += v
	}
	assert.InDelta(t, 1.0, sum, 1e-6)
}

func TestMutateParamsDoesNotMutateInputInPlace(t *testing.T) {
	e := NewEngine(7)
	params := individual.Params{"x": individual.Float(10.0)}
	cfg := Config{MutationRate: 1.0, MutationStrength: 1.0}
	_ = e.mutateParams(params, cfg)
	assert.Equal(t, 10.0, params["x"].Float)
}

func TestExitMutationTierDrawRespectsWeights(t *testing.T) {
	e := NewEngine(1)
	cfg := Config{ExitTierWeights: ExitTierWeights{Parametric: 1, Structural: 0, Relational: 0}}
	for i := 0; i < 20; i++ {
		assert.Equal(t, TierParametric, e.drawTier(cfg))
	}
}

func TestExitMutationProducesOffspringWithLineage(t *testing.T) {
	e := NewEngine(3)
	parent := individual.New("parent", 5, nil)
	parent.Parameters = individual.Params{}
	cfg := Config{MaxRetries: 5, ExitTierWeights: DefaultExitTierWeights()}
	off, err := e.ExitMutation(context.Background(), parent, cfg, idGen(), 6, stubProposer{proposeOK: true, validOK: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"parent"}, off.ParentIDs)
	assert.Equal(t, 6, off.Generation)
}

func TestVaryFallsBackToPlaceholderWhenAllOperatorsFail(t *testing.T) {
	e := NewEngine(9)
	p1 := withWeights("p1", map[string]float64{"roe": 1.0})
	p2 := withWeights("p2", map[string]float64{"pe": 1.0})
	cfg := Config{CrossoverRate: 1.0, MaxRetries: 1, ExitMutationEnabled: false}
	outcome := e.Vary(context.Background(), p1, p2, cfg, idGen(), 1, stubProposer{proposeOK: false, validOK: false})
	assert.True(t, outcome.Failed)
	assert.Equal(t, "placeholder", outcome.OperatorUsed)
	assert.Equal(t, []string{"p1", "p2"}, outcome.Offspring.ParentIDs)
	assert.Empty(t, outcome.Offspring.Representation)
}

func TestRenormalizeZeroSumGivesEqualWeights(t *testing.T) {
	p := individual.Weights(map[string]float64{"a": 0, "b": 0})
	assert.InDelta(t, 0.5, p.Weights["a"], 1e-9)
	assert.InDelta(t, 0.5, p.Weights["b"], 1e-9)
}

func TestFloat64ClampNeverExceedsBounds(t *testing.T) {
	assert.Equal(t, 1.0, clamp(5, 0, 1))
	assert.Equal(t, 0.0, clamp(-5, 0, 1))
	assert.Equal(t, math.Abs(0.5), clamp(0.5, 0, 1))
}

func idGen() func() string {
	n := 0
	return func() string {
		n++
		return "offspring-" + string(rune('a'+n))
	}
}
