// Package crowding computes the per-objective crowding distance on a
// Pareto front (C4, §4.4) — a density-estimation surrogate used to
// prefer individuals in less crowded regions of objective space.
//
// Grounded on avmi-goga's Island.update_crowding machinery, which keeps a
// per-objective min/max scaling (o.ovamin/o.ovamax, via utl.Scaling) and
// a DistCrowd field on each Solution; this package reimplements the
// classical NSGA-II boundary-infinity crowding formula from §4.4 directly
// over objective.Metrics rather than the teacher's bipartite-matching
// "crowd" niching variant (see DESIGN.md for why graph.Munkres isn't
// wired here).
package crowding

import (
	"math"
	"sort"

	"github.com/PaiCY-T/evoengine/internal/errs"
	"github.com/PaiCY-T/evoengine/internal/individual"
	"github.com/PaiCY-T/evoengine/internal/objective"
)

// Compute assigns a crowding distance to every successful member of
// front. Members without metrics or with a failed evaluation are
// ignored entirely, matching §4.4's "successful individuals" framing —
// callers should only pass a rank-homogeneous, successful-only slice
// (a Pareto front).
//
// Returns errs.ErrInsufficientPopulation if fewer than two successful
// members are present.
func Compute(front []*individual.Individual) (map[string]float64, error) {
	successful := make([]*individual.Individual, 0, len(front))
	for _, ind := range front {
		if ind.Successful() {
			successful = append(successful, ind)
		}
	}
	if len(successful) < 2 {
		return nil, errs.ErrInsufficientPopulation
	}

	dist := make(map[string]float64, len(successful))
	for _, ind := range successful {
		dist[ind.ID] = 0
	}

	for objIdx := range objective.Names {
		ordered := append([]*individual.Individual(nil), successful...)
		sort.SliceStable(ordered, func(i, j int) bool {
			return valueAt(ordered[i], objIdx) < valueAt(ordered[j], objIdx)
		})

		lo := valueAt(ordered[0], objIdx)
		hi := valueAt(ordered[len(ordered)-1], objIdx)
		spread := hi - lo
		if spread == 0 {
			continue // skip this objective entirely
		}

		dist[ordered[0].ID] = math.Inf(1)
		dist[ordered[len(ordered)-1].ID] = math.Inf(1)

		for i := 1; i < len(ordered)-1; i++ {
			id := ordered[i].ID
			if math.IsInf(dist[id], 1) {
				continue
			}
			gap := (valueAt(ordered[i+1], objIdx) - valueAt(ordered[i-1], objIdx)) / spread
			dist[id] += gap
		}
	}

	return dist, nil
}

// Apply computes crowding distance and writes it onto each individual's
// Crowding field.
func Apply(front []*individual.Individual) error {
	dist, err := Compute(front)
	if err != nil {
		return err
	}
	for _, ind := range front {
		if d, ok := dist[ind.ID]; ok {
			ind.Crowding = d
		}
	}
	return nil
}

func valueAt(ind *individual.Individual, objIdx int) float64 {
	v := ind.Metrics.View()
	return v[objective.Names[objIdx]]
}
