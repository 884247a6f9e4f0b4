// Package capability describes the minimal surface external consumers
// need from an individual (§4.10). It intentionally excludes any
// persistence method — serialisation is a separate surface owned by the
// archive (internal/archive), never by the domain type itself. This
// mirrors the source's "persistence methods on domain entities are
// forbidden" design note: the archive accepts entities via their
// serialise surface, not via a save/load method on the entity.
package capability

import "github.com/PaiCY-T/evoengine/internal/individual"

// DomainIndividual is the duck-typed capability protocol: any type with
// this method set is a conforming individual, discoverable at runtime by
// structural matching rather than by an explicit interface declaration
// on the concrete type.
type DomainIndividual interface {
	// Identity
	GetID() string
	GetGeneration() int

	// Comparison
	Dominates(other *individual.Individual) bool

	// Views
	ParametersView() individual.Params
	MetricsView() map[string]float64
}

// Ensure domainAdapter (the wrapper Wrap puts around *individual.Individual)
// conforms, enforced with a compile-time
// assertion rather than an explicit "implements" declaration, keeping the
// duck-typing contract intentional: nothing stops another type from
// satisfying DomainIndividual too.
var _ DomainIndividual = (*domainAdapter)(nil)

// domainAdapter adapts *individual.Individual to DomainIndividual by
// supplying the two identity accessors the capability protocol needs but
// the domain struct exposes as plain fields (ID, Generation) rather than
// methods, since struct fields aren't part of a Go interface's method set.
type domainAdapter struct {
	*individual.Individual
}

func (a *domainAdapter) GetID() string      { return a.ID }
func (a *domainAdapter) GetGeneration() int { return a.Generation }

// Wrap adapts an *individual.Individual to the DomainIndividual protocol.
func Wrap(ind *individual.Individual) DomainIndividual {
	return &domainAdapter{ind}
}
