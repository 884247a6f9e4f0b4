// Package adapters declares the two external collaborator interfaces the
// core treats as opaque, out-of-process boundaries (C11, §4.11, §6.2,
// §6.3): the fitness Evaluator and the representation Proposer. Neither
// has an implementation here — the spec explicitly keeps the domain
// back-tester and the LLM-backed code generator external to the core.
package adapters

import (
	"context"

	"github.com/PaiCY-T/evoengine/internal/individual"
	"github.com/PaiCY-T/evoengine/internal/objective"
)

// Evaluator scores an individual's representation+parameters into an
// objective vector. It must be pure with respect to those immutable
// fields, may be slow, and must never panic/error for a domain-level
// evaluation failure — a failed evaluation is reported as
// objective.Metrics{Success: false}, not as a Go error. A non-nil error
// return is reserved for adapter-level failures (e.g. the evaluator
// process is unreachable) that the scheduler still converts to a failed
// metric locally (§4.8 failure semantics) rather than propagating.
type Evaluator interface {
	Evaluate(ctx context.Context, ind *individual.Individual) (objective.Metrics, error)
}

// MutationHint carries the proposer-facing explanation of what changed,
// grounded on original_source/src/evolution/prompt_builder.py's practice
// of passing a human-readable reason string alongside mutated params so
// the proposer's generated representation stays consistent with intent.
type MutationHint struct {
	Reason string
	Params individual.Params
}

// Proposer turns target parameters into a new representation, or signals
// it could not (returning ok=false) rather than erroring — a "no
// representation produced" outcome is an expected, retryable result, not
// an exceptional one, per the source design note replacing
// exception-based control flow with a result type.
type Proposer interface {
	// ProposeCrossover asks for a representation consistent with parents
	// p1, p2 and the already-computed crossover target parameters.
	ProposeCrossover(ctx context.Context, p1, p2 *individual.Individual, target individual.Params) (representation string, ok bool, err error)

	// ProposeMutation asks for a representation consistent with a
	// mutated parameter set (or a structural hint for exit mutation).
	ProposeMutation(ctx context.Context, parent *individual.Individual, hint MutationHint) (representation string, ok bool, err error)

	// Validate checks a synthesised representation for well-formedness.
	// The core never inspects the blob itself beyond the §6.4 feature
	// grammar (owned by the novelty package, not here).
	Validate(ctx context.Context, representation string) (bool, error)

	// ParseExitProfile extracts the exit-policy substructure (mechanism
	// name -> parameters) from a representation, for structural "exit"
	// mutation (§4.7.6). ok=false means the representation declares no
	// exit profile at all, which the caller treats as "operator not
	// applicable" rather than a failure.
	ParseExitProfile(ctx context.Context, representation string) (profile map[string]individual.Params, ok bool, err error)

	// SynthesizeExitProfile asks for a representation reflecting the
	// given (already-modified) exit profile, grafted onto parent's
	// existing representation.
	SynthesizeExitProfile(ctx context.Context, parent *individual.Individual, profile map[string]individual.Params) (representation string, ok bool, err error)

	// Seed produces n brand-new representations with no parent lineage,
	// for the scheduler's diversity-escalation injection request (§4.8
	// step 9: "seeding is performed by the proposer on next call").
	Seed(ctx context.Context, n int) (representations []string, err error)
}
