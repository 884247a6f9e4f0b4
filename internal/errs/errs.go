// Package errs defines the error kinds shared across the evolutionary
// engine, following the policy table in the engine design notes:
// per-individual and per-slot failures never abort a generation, while
// invariant breaches and configuration errors are surfaced to the caller.
package errs

import "errors"

// Sentinel errors identify an error's kind without encoding the message;
// wrap them with fmt.Errorf("...: %w", ErrX) for context.
var (
	// ErrInsufficientPopulation is returned by rank/crowding/novelty
	// computations whose preconditions on population size are not met.
	ErrInsufficientPopulation = errors.New("insufficient population for this computation")

	// ErrSchedulerInvariant marks a fatal invariant breach (e.g. an empty
	// front with members still present). The scheduler aborts the
	// generation when this is returned.
	ErrSchedulerInvariant = errors.New("scheduler invariant violated")

	// ErrUnknownTier is returned by the archive when asked to operate on
	// a tier name it doesn't recognise.
	ErrUnknownTier = errors.New("unknown archive tier")

	// ErrCorruptedRecord marks an archive record that failed to
	// deserialise or was missing required fields; load() treats this as
	// "not found" rather than propagating it.
	ErrCorruptedRecord = errors.New("corrupted archive record")

	// ErrCancelled names the cancellation error kind. The scheduler does
	// not return it: cancellation observed at a phase boundary is reported
	// as the context's own error (ctx.Err()).
	ErrCancelled = errors.New("evolution run cancelled")

	// ErrConfigInvalid marks a configuration that fails validation at
	// scheduler construction time; the scheduler refuses to start.
	ErrConfigInvalid = errors.New("invalid scheduler configuration")

	// ErrIncompatibleParents marks a crossover attempt between parents
	// whose factor_weights key overlap is below the compatibility
	// threshold. Crossover is skipped for the slot; this is not fatal.
	ErrIncompatibleParents = errors.New("parents are not crossover-compatible")

	// ErrOperatorFailed is the generic "try again" signal from a
	// proposer/validator round inside a variation operator.
	ErrOperatorFailed = errors.New("variation operator attempt failed")
)
