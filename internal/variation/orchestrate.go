package variation

import (
	"context"

	"github.com/PaiCY-T/evoengine/internal/adapters"
	"github.com/PaiCY-T/evoengine/internal/individual"
)

// SlotOutcome describes what happened when producing one offspring slot,
// for the scheduler's per-generation event record (§4.8 step 10, §7).
type SlotOutcome struct {
	Offspring    *individual.Individual
	OperatorUsed string // "crossover" | "exit_mutation" | "parameter_mutation" | "placeholder"
	Failed       bool   // true iff every operator attempt failed (placeholder emitted)
}

// Vary implements §4.7.7's per-slot operator choice: try crossover first,
// then (if enabled and the coin flip says so) structural exit mutation,
// then parameter mutation; if every attempt fails, emit a placeholder
// offspring and report the slot as failed.
func (e *Engine) Vary(ctx context.Context, p1, p2 *individual.Individual, cfg Config, nextID func() string, generation int, proposer adapters.Proposer) SlotOutcome {
	if off, err := e.Crossover(ctx, p1, p2, cfg, nextID, generation, proposer); err == nil {
		return SlotOutcome{Offspring: off, OperatorUsed: "crossover"}
	}

	if cfg.ExitMutationEnabled && e.float64() < cfg.ExitMutationProbability {
		if off, err := e.ExitMutation(ctx, p1, cfg, nextID, generation, proposer); err == nil {
			return SlotOutcome{Offspring: off, OperatorUsed: "exit_mutation"}
		}
	}

	if off, err := e.ParameterMutation(ctx, p1, cfg, nextID, generation, proposer); err == nil {
		return SlotOutcome{Offspring: off, OperatorUsed: "parameter_mutation"}
	}

	placeholder := individual.New(nextID(), generation, []string{p1.ID, p2.ID})
	placeholder.Parameters = p1.Parameters.Clone()
	placeholder.Representation = ""
	placeholder.TemplateType = p1.TemplateType
	placeholder.Metadata["placeholder"] = "true"
	return SlotOutcome{Offspring: placeholder, OperatorUsed: "placeholder", Failed: true}
}
