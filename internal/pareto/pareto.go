// Package pareto implements fast non-dominated sorting (C3, §4.3),
// assigning each individual a Pareto front rank. Grounded on avmi-goga's
// island.go NomDomSortAndCalcDistances (which drives a domination-count /
// dominated-set sweep over a population), generalised to the spec's
// explicit front-by-front peeling algorithm and the success-flag gating
// from objective.Dominates.
package pareto

import "github.com/PaiCY-T/evoengine/internal/individual"

// Sort computes front ranks for pop and returns id -> rank. Individuals
// with no metrics or a failed evaluation receive rank 0 and never
// participate in domination comparisons (§4.3).
//
// Complexity is O(M*N^2) for M objectives (folded into the pairwise
// Dominates call) and N individuals, matching the spec's stated bound.
// The result is deterministic given a fixed input ordering: ties within a
// front are broken only by input order, never by map iteration, since no
// map is used for the front-membership bookkeeping.
func Sort(pop []*individual.Individual) map[string]int {
	n := len(pop)
	ranks := make(map[string]int, n)

	valid := make([]bool, n)
	for i, ind := range pop {
		valid[i] = ind.Successful()
		if !valid[i] {
			ranks[ind.ID] = 0
		}
	}

	dominatedBy := make([][]int, n) // Sᵢ: indices i dominates
	dominationCount := make([]int, n) // nᵢ: how many dominate i

	for i := 0; i < n; i++ {
		if !valid[i] {
			continue
		}
		for j := 0; j < n; j++ {
			if i == j || !valid[j] {
				continue
			}
			if pop[i].Dominates(pop[j]) {
				dominatedBy[i] = append(dominatedBy[i], j)
			} else if pop[j].Dominates(pop[i]) {
				dominationCount[i]++
			}
		}
	}

	var front []int
	for i := 0; i < n; i++ {
		if valid[i] && dominationCount[i] == 0 {
			front = append(front, i)
		}
	}

	rank := 1
	for len(front) > 0 {
		var next []int
		for _, i := range front {
			ranks[pop[i].ID] = rank
			for _, j := range dominatedBy[i] {
				dominationCount[j]--
				if dominationCount[j] == 0 {
					next = append(next, j)
				}
			}
		}
		front = next
		rank++
	}

	return ranks
}

// Apply computes ranks and writes them onto each individual's Rank field.
func Apply(pop []*individual.Individual) {
	ranks := Sort(pop)
	for _, ind := range pop {
		ind.Rank = ranks[ind.ID]
	}
}

// FirstFront returns the members of pop with rank 1 after Apply/Sort has
// run (used for the scheduler's Pareto-front size and by tests).
func FirstFront(pop []*individual.Individual) []*individual.Individual {
	var out []*individual.Individual
	for _, ind := range pop {
		if ind.Rank == 1 {
			out = append(out, ind)
		}
	}
	return out
}
