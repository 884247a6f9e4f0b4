package variation

import (
	"context"
	"fmt"
	"sort"

	"github.com/PaiCY-T/evoengine/internal/adapters"
	"github.com/PaiCY-T/evoengine/internal/errs"
	"github.com/PaiCY-T/evoengine/internal/individual"
)

// ExitTier identifies one of the three structural mutation tiers (§4.7.6).
type ExitTier int

const (
	TierParametric ExitTier = iota
	TierStructural
	TierRelational
)

// knownMechanisms is the fixed catalogue of mechanism names the
// structural tier can add/remove, matching the exit-policy mechanisms
// named in §4.7.6's example (stop-loss, trailing-stop, take-profit) plus
// a time-horizon mechanism.
var knownMechanisms = []string{"stop_loss", "trailing_stop", "take_profit", "time_horizon"}

// drawTier performs the categorical draw among the three tiers using
// cfg.ExitTierWeights, defaulting to the spec's 0.5/0.3/0.2 split when
// all weights are zero.
func (e *Engine) drawTier(cfg Config) ExitTier {
	w := cfg.ExitTierWeights
	if w.Parametric == 0 && w.Structural == 0 && w.Relational == 0 {
		w = DefaultExitTierWeights()
	}
	total := w.Parametric + w.Structural + w.Relational
	u := e.float64() * total
	if u < w.Parametric {
		return TierParametric
	}
	if u < w.Parametric+w.Structural {
		return TierStructural
	}
	return TierRelational
}

// applyTier mutates profile in place according to the drawn tier,
// returning false if no applicable sub-operator existed (e.g. parametric
// draw but profile is empty).
func (e *Engine) applyTier(tier ExitTier, profile map[string]individual.Params, cfg Config) bool {
	switch tier {
	case TierParametric:
		return e.applyParametricTier(profile, cfg)
	case TierStructural:
		return e.applyStructuralTier(profile)
	case TierRelational:
		return e.applyRelationalTier(profile)
	}
	return false
}

// applyParametricTier perturbs one numeric threshold inside an existing
// mechanism by a configured multiplicative range (default [0.8, 1.2]).
func (e *Engine) applyParametricTier(profile map[string]individual.Params, cfg Config) bool {
	mechanisms := sortedKeys(profile)
	for _, mech := range mechanisms {
		params := profile[mech]
		leafKeys := numericLeafKeys(params)
		if len(leafKeys) == 0 {
			continue
		}
		key := leafKeys[e.intn(len(leafKeys))]
		lo, hi := 0.8, 1.2
		if r, ok := cfg.ExitParameterRanges[mech]; ok {
			lo, hi = r[0], r[1]
		}
		factor := lo + e.float64()*(hi-lo)
		leaf := params[key]
		leaf.Float *= factor
		params[key] = leaf
		profile[mech] = params
		return true
	}
	return false
}

// applyStructuralTier adds a mechanism absent from the profile, or
// removes one present in it, chosen uniformly between the two actions
// when both are possible.
func (e *Engine) applyStructuralTier(profile map[string]individual.Params) bool {
	present := sortedKeys(profile)
	var absent []string
	for _, m := range knownMechanisms {
		if _, ok := profile[m]; !ok {
			absent = append(absent, m)
		}
	}

	canAdd := len(absent) > 0
	canRemove := len(present) > 0
	if !canAdd && !canRemove {
		return false
	}
	doAdd := canAdd
	if canAdd && canRemove {
		doAdd = e.float64() < 0.5
	}
	if doAdd {
		mech := absent[e.intn(len(absent))]
		profile[mech] = individual.Params{"threshold": individual.Float(defaultThreshold(mech))}
		return true
	}
	mech := present[e.intn(len(present))]
	delete(profile, mech)
	return true
}

func defaultThreshold(mechanism string) float64 {
	switch mechanism {
	case "stop_loss":
		return 0.05
	case "trailing_stop":
		return 0.03
	case "take_profit":
		return 0.10
	case "time_horizon":
		return 10
	default:
		return 0.05
	}
}

// applyRelationalTier changes how mechanisms combine: toggles a
// "combinator" marker between OR and AND, and assigns a precedence order
// across mechanisms. Requires at least two mechanisms to be meaningful.
func (e *Engine) applyRelationalTier(profile map[string]individual.Params) bool {
	keys := sortedKeys(profile)
	if len(keys) < 2 {
		return false
	}
	combinator, ok := profile[keys[0]]["combinator"]
	next := "AND"
	if ok && combinator.Str == "AND" {
		next = "OR"
	}
	for i, mech := range keys {
		p := profile[mech]
		p["combinator"] = individual.String(next)
		p["precedence"] = individual.Int(int64(i))
		profile[mech] = p
	}
	return true
}

func numericLeafKeys(params individual.Params) []string {
	var out []string
	for k, v := range params {
		if v.Kind == individual.KindFloat {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}

func sortedKeys(m map[string]individual.Params) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// ExitMutation implements §4.7.6: parse the parent's exit profile, draw a
// tier and sub-operator, synthesise and validate the resulting
// representation, retrying across redraws and syntheses up to
// cfg.MaxRetries times.
func (e *Engine) ExitMutation(ctx context.Context, parent *individual.Individual, cfg Config, nextID func() string, generation int, proposer adapters.Proposer) (*individual.Individual, error) {
	profile, ok, err := proposer.ParseExitProfile(ctx, parent.Representation)
	if err != nil || !ok {
		return nil, fmt.Errorf("no exit profile to mutate: %w", errs.ErrOperatorFailed)
	}

	maxRetries := cfg.MaxRetries
	if maxRetries < 1 {
		maxRetries = 1
	}

	var lastTier ExitTier
	for attempt := 0; attempt < maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		candidate := cloneProfile(profile)
		tier := e.drawTier(cfg)
		lastTier = tier
		if !e.applyTier(tier, candidate, cfg) {
			continue
		}
		repr, ok, err := proposer.SynthesizeExitProfile(ctx, parent, candidate)
		if err != nil || !ok {
			continue
		}
		valid, err := proposer.Validate(ctx, repr)
		if err != nil || !valid {
			continue
		}
		offspring := individual.New(nextID(), generation, []string{parent.ID})
		offspring.Parameters = parent.Parameters.Clone()
		offspring.Representation = repr
		offspring.TemplateType = parent.TemplateType
		offspring.Metadata["exit_mutation_tier"] = tierName(tier)
		return offspring, nil
	}
	return nil, fmt.Errorf("exit mutation (last tier %s) exhausted %d retries: %w", tierName(lastTier), maxRetries, errs.ErrOperatorFailed)
}

func tierName(t ExitTier) string {
	switch t {
	case TierParametric:
		return "parametric"
	case TierStructural:
		return "structural"
	case TierRelational:
		return "relational"
	default:
		return "unknown"
	}
}

func cloneProfile(profile map[string]individual.Params) map[string]individual.Params {
	out := make(map[string]individual.Params, len(profile))
	for k, v := range profile {
		out[k] = v.Clone()
	}
	return out
}
