package individual

import (
	"time"

	"github.com/PaiCY-T/evoengine/internal/objective"
)

// Individual is the immutable-identity candidate record (§3.2). Once
// evaluated it is never mutated in place; every derived individual is a
// new record whose ParentIDs reference its source, mirroring avmi-goga's
// Solution/Individual split where CopyInto always produces a fresh value
// rather than aliasing the source.
type Individual struct {
	ID         string
	Generation int
	ParentIDs  []string

	Parameters     Params
	Representation string

	Metrics    *objective.Metrics
	HasMetrics bool

	// Rank: 0 = unranked/invalid, 1 = first Pareto front, higher = more
	// dominated (§3.2, §4.3).
	Rank int

	// Crowding distance; math.Inf(1) marks a front boundary member (§4.4).
	Crowding float64

	// Novelty score in [0, 1] (§4.5).
	Novelty float64

	TemplateType string
	CreatedAt    time.Time
	Metadata     map[string]string
}

// New creates a freshly-born individual with the given id/generation;
// callers set Parameters/Representation/TemplateType afterward.
func New(id string, generation int, parentIDs []string) *Individual {
	return &Individual{
		ID:         id,
		Generation: generation,
		ParentIDs:  append([]string(nil), parentIDs...),
		Parameters: Params{},
		Metadata:   map[string]string{},
		CreatedAt:  time.Now(),
	}
}

// SetMetrics records the result of a single evaluation (§3.2: "evaluated
// at most once by the external evaluator").
func (ind *Individual) SetMetrics(m objective.Metrics) {
	mm := m
	ind.Metrics = &mm
	ind.HasMetrics = true
}

// Dominates delegates to objective.Dominates using both individuals'
// metrics; returns false if either side lacks metrics (§4.2).
func (ind *Individual) Dominates(other *Individual) bool {
	if !ind.HasMetrics || !other.HasMetrics {
		return false
	}
	return objective.Dominates(*ind.Metrics, *other.Metrics)
}

// ParametersView returns a read-only view of the parameter tree. Go has
// no enforced immutable view, so by convention callers must treat the
// returned Params as read-only; the only defensive copy the core pays
// for is at mutation sites (variation operators clone before editing).
func (ind *Individual) ParametersView() Params {
	return ind.Parameters
}

// MetricsView returns a flat objective-name -> value mapping, or an empty
// map if the individual has no metrics yet (§4.2).
func (ind *Individual) MetricsView() map[string]float64 {
	if !ind.HasMetrics {
		return map[string]float64{}
	}
	return ind.Metrics.View()
}

// Successful reports whether this individual has metrics with Success=true.
func (ind *Individual) Successful() bool {
	return ind.HasMetrics && ind.Metrics.Success
}
