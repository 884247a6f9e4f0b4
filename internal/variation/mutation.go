package variation

import (
	"context"
	"fmt"
	"math"

	"github.com/PaiCY-T/evoengine/internal/adapters"
	"github.com/PaiCY-T/evoengine/internal/errs"
	"github.com/PaiCY-T/evoengine/internal/individual"
)

// mutateParams implements §4.7.4: independently, with probability
// cfg.MutationRate, jitter every leaf in params. Integer leaves take a
// signed unit-or-10%-magnitude step; float leaves take a Gaussian step
// scaled by the leaf's own value and clamped to any configured bounds;
// non-numeric leaves are left untouched; factor_weights gets a dedicated
// per-weight Gaussian pass with (0,1) bounds followed by renormalisation.
func (e *Engine) mutateParams(params individual.Params, cfg Config) individual.Params {
	out := params.Clone()
	e.mutateNode(out, "", cfg)
	individual.RenormalizeFactorWeights(out)
	return out
}

func (e *Engine) mutateNode(node map[string]individual.Param, prefix string, cfg Config) {
	for k, v := range node {
		path := k
		if prefix != "" {
			path = prefix + "." + k
		}
		if v.Kind == individual.KindMap {
			// A nested mapping is not a leaf; each of its own leaves
			// draws against MutationRate.
			e.mutateNode(v.Map, path, cfg)
			continue
		}
		if e.float64() >= cfg.MutationRate {
			continue
		}
		switch v.Kind {
		case individual.KindInt:
			step := int64(math.Floor(0.1 * math.Abs(float64(v.Int))))
			if step < 1 {
				step = 1
			}
			if e.float64() < 0.5 {
				v.Int += step
			} else {
				v.Int -= step
			}
			node[k] = v
		case individual.KindFloat:
			if v.Float == 0 {
				continue
			}
			v.Float += e.normFloat64() * cfg.MutationStrength * v.Float
			if bounds, ok := cfg.Bounds[path]; ok {
				v.Float = clamp(v.Float, bounds[0], bounds[1])
			}
			node[k] = v
		case individual.KindWeights:
			for wk, wv := range v.Weights {
				wv += e.normFloat64() * cfg.MutationStrength * wv
				v.Weights[wk] = clamp(wv, 0, 1)
			}
			individual.Renormalize(&v)
			node[k] = v
		case individual.KindList:
			// List items are opaque to numeric mutation; left unchanged
			// per §4.7.4's "non-numeric leaves unchanged" rule.
		}
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// ParameterMutation implements §4.7.5: mutate parameters, then ask the
// proposer for a representation consistent with them, validating and
// retrying up to cfg.MaxRetries times.
func (e *Engine) ParameterMutation(ctx context.Context, parent *individual.Individual, cfg Config, nextID func() string, generation int, proposer adapters.Proposer) (*individual.Individual, error) {
	maxRetries := cfg.MaxRetries
	if maxRetries < 1 {
		maxRetries = 1
	}
	for attempt := 0; attempt < maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		mutated := e.mutateParams(parent.Parameters, cfg)
		repr, ok, err := proposer.ProposeMutation(ctx, parent, adapters.MutationHint{Reason: "parameter_mutation", Params: mutated})
		if err != nil || !ok {
			continue
		}
		valid, err := proposer.Validate(ctx, repr)
		if err != nil || !valid {
			continue
		}
		offspring := individual.New(nextID(), generation, []string{parent.ID})
		offspring.Parameters = mutated
		offspring.Representation = repr
		offspring.TemplateType = parent.TemplateType
		return offspring, nil
	}
	return nil, fmt.Errorf("parameter mutation exhausted %d retries: %w", maxRetries, errs.ErrOperatorFailed)
}
