// Package selection implements tournament selection, elite extraction,
// and the combined fitness+novelty selection weight (C6, §4.6).
//
// Tournament mechanics are grounded on avmi-goga's Island.tournament
// (island.go): sample a subset, compare by front/crowd-distance, and
// resolve ties with a coin flip — here via github.com/cpmech/gosl/rnd,
// the teacher's own randomness dependency (rnd.FlipCoin, rnd.IntGetUniqueN).
package selection

import (
	"math"
	"sort"

	"github.com/cpmech/gosl/rnd"

	"github.com/PaiCY-T/evoengine/internal/crowding"
	"github.com/PaiCY-T/evoengine/internal/errs"
	"github.com/PaiCY-T/evoengine/internal/individual"
	"github.com/PaiCY-T/evoengine/internal/pareto"
)

// MaxPairResampleAttempts bounds the retries select_parents performs
// before falling back to a uniform random distinct individual (§4.6,
// reconciled against original_source/src/evolution/selection.py which
// uses the same cap).
const MaxPairResampleAttempts = 100

// Tournament samples tournamentSize individuals without replacement from
// pop, locally ranks and crowds just that subset, sorts by (rank, -crowd),
// and returns the winner with probability selectionPressure, else a
// uniformly random member of the sample (§4.6).
func Tournament(pop []*individual.Individual, tournamentSize int, selectionPressure float64) *individual.Individual {
	sample := sampleWithoutReplacement(pop, tournamentSize)
	originals := make(map[string]*individual.Individual, len(sample))
	for i, ind := range sample {
		local := *ind
		originals[ind.ID] = ind
		sample[i] = &local
	}

	// Local rank + crowding, computed on shallow copies of the sampled
	// individuals — the population's own rank/crowding fields are untouched.
	localRanks := pareto.Sort(sample)
	for _, ind := range sample {
		ind.Rank = localRanks[ind.ID]
	}
	if front := pareto.FirstFront(sample); len(front) >= 2 {
		_ = crowding.Apply(front)
	}

	sort.SliceStable(sample, func(i, j int) bool {
		if sample[i].Rank != sample[j].Rank {
			return sample[i].Rank < sample[j].Rank
		}
		return sample[i].Crowding > sample[j].Crowding
	})

	if rnd.FlipCoin(selectionPressure) {
		return originals[sample[0].ID]
	}
	return originals[sample[uniformIndex(len(sample))].ID]
}

// uniformIndex draws a uniform index in [0, n) using gosl/rnd's
// unique-sample helper as a single-draw uniform generator, avoiding a
// second RNG dependency alongside gosl/rnd.
func uniformIndex(n int) int {
	if n <= 1 {
		return 0
	}
	return rnd.IntGetUniqueN(0, n, 1)[0]
}

// ParentPair is one selected breeding pair.
type ParentPair struct {
	A, B *individual.Individual
}

// SelectParents runs count independent tournament pairs over pop. If both
// tournaments in a pair land on the same individual, the second draw is
// re-sampled up to MaxPairResampleAttempts times before falling back to a
// uniformly random distinct individual (§4.6).
func SelectParents(pop []*individual.Individual, count int, tournamentSize int, selectionPressure float64) ([]ParentPair, error) {
	if len(pop) < 2 {
		return nil, errs.ErrInsufficientPopulation
	}
	pairs := make([]ParentPair, 0, count)
	for i := 0; i < count; i++ {
		a := Tournament(pop, tournamentSize, selectionPressure)
		b := Tournament(pop, tournamentSize, selectionPressure)
		attempts := 0
		for b.ID == a.ID && attempts < MaxPairResampleAttempts {
			b = Tournament(pop, tournamentSize, selectionPressure)
			attempts++
		}
		if b.ID == a.ID {
			b = uniformDistinct(pop, a.ID)
		}
		pairs = append(pairs, ParentPair{A: a, B: b})
	}
	return pairs, nil
}

// CombinedWeight returns the unnormalised combined selection probability
// weight from §4.6:
//
//	p(i) = (1 / (rank(i) + 1)) * (1 + diversityWeight * novelty(i))
//
// The core never samples from this weight itself; it is exposed for
// callers that build their own weighted sampler on top of the engine.
func CombinedWeight(ind *individual.Individual, diversityWeight float64) float64 {
	return (1.0 / float64(ind.Rank+1)) * (1.0 + diversityWeight*ind.Novelty)
}

// GetElite returns the top k individuals sorted descending by
// (Sharpe, Calmar), treating missing metrics as worst. Fails if k is
// larger than the population; returns an empty (non-nil) slice if k=0
// (§4.6, reconciled against original_source's selection.py which treats
// k=0 as a valid degenerate case rather than an error).
func GetElite(pop []*individual.Individual, k int) ([]*individual.Individual, error) {
	if k > len(pop) {
		return nil, errs.ErrInsufficientPopulation
	}
	if k == 0 {
		return []*individual.Individual{}, nil
	}
	ordered := append([]*individual.Individual(nil), pop...)
	sort.SliceStable(ordered, func(i, j int) bool {
		si, ci := eliteKey(ordered[i])
		sj, cj := eliteKey(ordered[j])
		if si != sj {
			return si > sj
		}
		return ci > cj
	})
	return ordered[:k], nil
}

func eliteKey(ind *individual.Individual) (sharpe, calmar float64) {
	if !ind.HasMetrics {
		return math.Inf(-1), math.Inf(-1)
	}
	return ind.Metrics.Sharpe, ind.Metrics.Calmar
}

func sampleWithoutReplacement(pop []*individual.Individual, size int) []*individual.Individual {
	if size >= len(pop) {
		size = len(pop)
	}
	idx := rnd.IntGetUniqueN(0, len(pop), size)
	out := make([]*individual.Individual, size)
	for i, j := range idx {
		out[i] = pop[j]
	}
	return out
}

func uniformDistinct(pop []*individual.Individual, excludeID string) *individual.Individual {
	for {
		cand := pop[uniformIndex(len(pop))]
		if cand.ID != excludeID {
			return cand
		}
		if len(pop) == 1 {
			return cand
		}
	}
}
