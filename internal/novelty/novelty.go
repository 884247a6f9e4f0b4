// Package novelty extracts feature sets from a representation blob and
// computes Jaccard-distance-based novelty scores (C5, §4.5, §6.4).
//
// Grounded on avmi-goga's Solution.Distance / OvaDistance (genotype and
// phenotype distance between two solutions, scaled by a population-wide
// min/max range) — this package follows the same "distance relative to
// the rest of the population" shape but over feature sets instead of
// numeric vectors, since the spec's representation blob is opaque text.
package novelty

import (
	"regexp"
	"sort"

	"github.com/PaiCY-T/evoengine/internal/errs"
	"github.com/PaiCY-T/evoengine/internal/individual"
)

// featureToken matches the two token patterns from §6.4:
//
//	data.get('<name>')
//	data.indicator('<name>')
//
// with single- or double-quoted inner strings.
var featureToken = regexp.MustCompile(`data\.(?:get|indicator)\(\s*['"]([^'"]+)['"]\s*\)`)

// FeatureSet is a set of feature tokens extracted from a representation.
type FeatureSet map[string]struct{}

// ExtractFeatures scans representation for feature tokens per the §6.4
// grammar. Returns an empty set if none are present.
func ExtractFeatures(representation string) FeatureSet {
	matches := featureToken.FindAllStringSubmatch(representation, -1)
	set := make(FeatureSet, len(matches))
	for _, m := range matches {
		set[m[1]] = struct{}{}
	}
	return set
}

// JaccardDistance computes 1 - |A∩B|/|A∪B|, with the degenerate case
// |A∪B|=0 defined as 0 (§4.5).
func JaccardDistance(a, b FeatureSet) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	inter := 0
	for k := range a {
		if _, ok := b[k]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	if union == 0 {
		return 0
	}
	return 1 - float64(inter)/float64(union)
}

// PopulationDiversity returns the mean pairwise Jaccard distance over all
// N*(N-1)/2 pairs of pop's representations. Fails if |pop| < 2.
func PopulationDiversity(pop []*individual.Individual) (float64, error) {
	n := len(pop)
	if n < 2 {
		return 0, errs.ErrInsufficientPopulation
	}
	sets := make([]FeatureSet, n)
	for i, ind := range pop {
		sets[i] = ExtractFeatures(ind.Representation)
	}
	var sum float64
	var pairs int
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			sum += JaccardDistance(sets[i], sets[j])
			pairs++
		}
	}
	return sum / float64(pairs), nil
}

// Score computes the novelty score of target against the rest of pop:
// the mean of the k' smallest Jaccard distances to every other member,
// where k' = min(k, len(pop)-1). Returns 1.0 if k' is 0 (a singleton
// population) (§4.5).
func Score(target *individual.Individual, pop []*individual.Individual, k int) float64 {
	targetSet := ExtractFeatures(target.Representation)

	dists := make([]float64, 0, len(pop))
	for _, other := range pop {
		if other.ID == target.ID {
			continue
		}
		dists = append(dists, JaccardDistance(targetSet, ExtractFeatures(other.Representation)))
	}

	kEff := k
	if kEff > len(dists) {
		kEff = len(dists)
	}
	if kEff <= 0 {
		return 1.0
	}

	sort.Float64s(dists)
	var sum float64
	for i := 0; i < kEff; i++ {
		sum += dists[i]
	}
	return sum / float64(kEff)
}

// ApplyAll computes and writes the novelty score for every member of pop,
// using k' = max(1, min(k, len(pop)-1)) as prescribed by the scheduler's
// generation loop (§4.8 step 4).
func ApplyAll(pop []*individual.Individual, k int) {
	effectiveK := k
	if len(pop)-1 < effectiveK {
		effectiveK = len(pop) - 1
	}
	if effectiveK < 1 {
		effectiveK = 1
	}
	for _, ind := range pop {
		ind.Novelty = Score(ind, pop, effectiveK)
	}
}

// ShouldRaiseMutation implements the adaptive trigger of §4.5:
// should_raise_mutation(d, threshold) = d < threshold.
func ShouldRaiseMutation(diversity, threshold float64) bool {
	return diversity < threshold
}
