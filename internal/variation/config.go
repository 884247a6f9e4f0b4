package variation

// Config holds the tunables for every variation operator (§4.7, §6.1
// subset relevant to variation). Population-level knobs (elite count,
// tournament size, ...) live in internal/config, not here.
type Config struct {
	CrossoverRate     float64
	MutationRate      float64
	MutationStrength  float64
	MaxRetries        int

	ExitMutationEnabled     bool
	ExitMutationProbability float64
	ExitTierWeights         ExitTierWeights
	ExitParameterRanges     map[string][2]float64 // mechanism -> multiplicative [lo, hi]

	// Bounds constrains float leaves during Gaussian mutation, keyed by
	// the leaf's dotted path within Params (e.g. "risk.max_leverage").
	// A leaf with no entry is unbounded.
	Bounds map[string][2]float64
}

// ExitTierWeights are the categorical draw weights among the three exit
// mutation tiers (§4.7.6); defaults per spec are 0.5/0.3/0.2.
type ExitTierWeights struct {
	Parametric float64
	Structural float64
	Relational float64
}

// DefaultExitTierWeights returns the spec's default tier weights.
func DefaultExitTierWeights() ExitTierWeights {
	return ExitTierWeights{Parametric: 0.5, Structural: 0.3, Relational: 0.2}
}
