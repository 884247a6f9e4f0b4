package variation

import (
	"context"
	"fmt"

	"github.com/PaiCY-T/evoengine/internal/adapters"
	"github.com/PaiCY-T/evoengine/internal/errs"
	"github.com/PaiCY-T/evoengine/internal/individual"
)

// CompatibilityThreshold is the minimum factor_weights key overlap ratio
// for two parents to be crossover-compatible (§4.7.2).
const CompatibilityThreshold = 0.30

// crossoverParams implements §4.7.1: for every key present in either
// parent, copy the sole side's value, or choose uniformly between the
// two when both have it; renormalise factor_weights afterward.
func (e *Engine) crossoverParams(p1, p2 individual.Params) individual.Params {
	out := make(individual.Params, len(p1)+len(p2))
	seen := make(map[string]bool, len(p1)+len(p2))
	for k, v := range p1 {
		seen[k] = true
		if other, ok := p2[k]; ok {
			if e.float64() < 0.5 {
				out[k] = v.Clone()
			} else {
				out[k] = other.Clone()
			}
		} else {
			out[k] = v.Clone()
		}
	}
	for k, v := range p2 {
		if seen[k] {
			continue
		}
		out[k] = v.Clone()
	}
	individual.RenormalizeFactorWeights(out)
	return out
}

// compatibleForCrossover implements §4.7.2.
func compatibleForCrossover(p1, p2 individual.Params) bool {
	w1, ok1 := p1[individual.FactorWeightsKey]
	w2, ok2 := p2[individual.FactorWeightsKey]
	if !ok1 || !ok2 || len(w1.Weights) == 0 || len(w2.Weights) == 0 {
		return false
	}
	return individual.WeightsOverlapRatio(w1.Weights, w2.Weights) >= CompatibilityThreshold
}

// Crossover implements §4.7.3: with probability 1-crossoverRate the
// operator is skipped outright; otherwise the parents must pass the
// compatibility check, and up to cfg.MaxRetries attempts are made to
// produce crossover parameters, propose a representation, and validate
// it.
func (e *Engine) Crossover(ctx context.Context, p1, p2 *individual.Individual, cfg Config, nextID func() string, generation int, proposer adapters.Proposer) (*individual.Individual, error) {
	if e.float64() < 1-cfg.CrossoverRate {
		return nil, fmt.Errorf("crossover skipped by rate: %w", errs.ErrOperatorFailed)
	}
	if !compatibleForCrossover(p1.Parameters, p2.Parameters) {
		return nil, errs.ErrIncompatibleParents
	}

	maxRetries := cfg.MaxRetries
	if maxRetries < 1 {
		maxRetries = 1
	}

	for attempt := 0; attempt < maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		target := e.crossoverParams(p1.Parameters, p2.Parameters)
		repr, ok, err := proposer.ProposeCrossover(ctx, p1, p2, target)
		if err != nil || !ok {
			continue
		}
		valid, err := proposer.Validate(ctx, repr)
		if err != nil || !valid {
			continue
		}
		offspring := individual.New(nextID(), generation, []string{p1.ID, p2.ID})
		offspring.Parameters = target
		offspring.Representation = repr
		offspring.TemplateType = p1.TemplateType
		return offspring, nil
	}
	return nil, fmt.Errorf("crossover exhausted %d retries: %w", maxRetries, errs.ErrOperatorFailed)
}
