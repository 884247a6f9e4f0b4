// Package scheduler drives the per-generation NSGA-II pipeline (C8, §4.8):
// evaluate, rank, crowd, score novelty, extract elites, select, vary,
// replace, monitor diversity, record history. Grounded on avmi-goga's
// Island.Run/update_standard (island.go) for the overall phase ordering
// and elitism-by-copy idea, and on
// mihai-snyk-descheduler/pkg/framework/plugins/multiobjective/algorithms/nsga2.go's
// Run for the worker-pool-over-a-channel parallel evaluate/vary pattern
// (§5's "internally parallelisable with defined ordering contracts").
package scheduler

import (
	"context"
	"fmt"
	"math"
	"runtime"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/PaiCY-T/evoengine/internal/adapters"
	"github.com/PaiCY-T/evoengine/internal/config"
	"github.com/PaiCY-T/evoengine/internal/crowding"
	"github.com/PaiCY-T/evoengine/internal/errs"
	"github.com/PaiCY-T/evoengine/internal/individual"
	"github.com/PaiCY-T/evoengine/internal/novelty"
	"github.com/PaiCY-T/evoengine/internal/objective"
	"github.com/PaiCY-T/evoengine/internal/pareto"
	"github.com/PaiCY-T/evoengine/internal/selection"
	"github.com/PaiCY-T/evoengine/internal/telemetry"
	"github.com/PaiCY-T/evoengine/internal/variation"
)

// GenerationEvent is one append-only history record (§3.4).
type GenerationEvent struct {
	Generation      int                      `json:"generation"`
	Diversity       float64                  `json:"diversity"`
	ParetoFrontSize int                      `json:"pareto_front_size"`
	ChampionUpdated bool                     `json:"champion_updated"`
	PhaseTimings    map[string]time.Duration `json:"phase_timings"`
	OffspringCount  int                      `json:"offspring_count"`
	FailedOffspring int                      `json:"failed_offspring"`
	MutationRate    float64                  `json:"mutation_rate"`
	SeedInjections  int                      `json:"seed_injections"`
}

// Scheduler owns one evolving population and its generation history. It
// holds no persistence surface itself — checkpointing is driven by a
// caller that also owns an *archive.Store (§4.10's domain/persistence
// separation keeps the two from being coupled here).
type Scheduler struct {
	cfg       config.Config
	evaluator adapters.Evaluator
	proposer  adapters.Proposer
	engine    *variation.Engine
	metrics   *telemetry.Metrics

	population   []*individual.Individual
	generation   int
	mutationRate float64

	seedInjectionDueAt int // target generation number at which the injection fires; -1 if none pending
	pendingSeedCount   int
	lastSeedInjectionCount int

	history []GenerationEvent

	idCounter uint64
}

// New constructs a Scheduler seeded with the given initial population,
// which must have exactly cfg.PopulationSize members with unique ids
// (§3.3). Returns errs.ErrConfigInvalid if cfg fails validation or the
// seed population's size doesn't match.
func New(cfg config.Config, evaluator adapters.Evaluator, proposer adapters.Proposer, metrics *telemetry.Metrics, seed []*individual.Individual) (*Scheduler, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if len(seed) != cfg.PopulationSize {
		return nil, fmt.Errorf("%w: seed population has %d members, want %d", errs.ErrConfigInvalid, len(seed), cfg.PopulationSize)
	}
	seen := make(map[string]bool, len(seed))
	for _, ind := range seed {
		if seen[ind.ID] {
			return nil, fmt.Errorf("%w: duplicate individual id %q in seed population", errs.ErrConfigInvalid, ind.ID)
		}
		seen[ind.ID] = true
	}
	return &Scheduler{
		cfg:                cfg,
		evaluator:          evaluator,
		proposer:           proposer,
		engine:             variation.NewEngine(cfg.RandomSeed),
		metrics:            metrics,
		population:         append([]*individual.Individual(nil), seed...),
		generation:         0,
		mutationRate:       cfg.MutationRate,
		seedInjectionDueAt: -1,
	}, nil
}

// Population returns the current population snapshot (read-only by
// convention; see individual.ParametersView's same caveat).
func (s *Scheduler) Population() []*individual.Individual {
	return s.population
}

// Generation returns the number of generations completed so far, which
// is also the index of the most recent one (0 before the first run).
func (s *Scheduler) Generation() int {
	return s.generation
}

// MutationRate returns the current effective mutation rate, which may
// have escalated above cfg.MutationRate per the diversity monitor (§4.8
// step 9).
func (s *Scheduler) MutationRate() float64 {
	return s.mutationRate
}

// History returns the append-only generation event log so far.
func (s *Scheduler) History() []GenerationEvent {
	return s.history
}

func (s *Scheduler) nextID() string {
	n := atomic.AddUint64(&s.idCounter, 1)
	return "ind-g" + strconv.Itoa(s.generation+1) + "-" + strconv.FormatUint(n, 36)
}

// RunGeneration advances the population by exactly one generation,
// implementing the ten steps of §4.8. It returns errs.ErrSchedulerInvariant
// (wrapped) if rank/crowding bookkeeping violates its own invariants, and
// ctx.Err() if cancellation was observed at a phase boundary.
func (s *Scheduler) RunGeneration(ctx context.Context) (GenerationEvent, error) {
	timings := make(map[string]time.Duration, 7)
	record := func(phase string, d time.Duration) { timings[phase] = d }

	if err := ctx.Err(); err != nil {
		return GenerationEvent{}, err
	}

	previousChampion := topByMetrics(s.population)

	// Pending diversity-escalation seed injection, requested two
	// generations ago (§4.8 step 9), lands at the start of its due
	// generation, before evaluation.
	start := time.Now()
	s.applyPendingSeedInjection(ctx)
	record("seed_injection", time.Since(start))

	// Step 1: Evaluate.
	start = time.Now()
	s.evaluate(ctx)
	record("evaluate", time.Since(start))
	if err := ctx.Err(); err != nil {
		return GenerationEvent{}, err
	}

	// Step 2: Rank.
	start = time.Now()
	ranks := pareto.Sort(s.population)
	for _, ind := range s.population {
		ind.Rank = ranks[ind.ID]
	}
	record("rank", time.Since(start))

	// Step 3: Crowd, per non-empty front.
	start = time.Now()
	if err := s.crowdFronts(); err != nil {
		return GenerationEvent{}, err
	}
	record("crowd", time.Since(start))

	// Step 4: Score novelty.
	start = time.Now()
	noveltyK := maxInt(1, minInt(s.cfg.NoveltyK, len(s.population)-1))
	novelty.ApplyAll(s.population, noveltyK)
	record("novelty", time.Since(start))

	// Step 5: Extract elites.
	start = time.Now()
	elites, err := selection.GetElite(s.population, s.cfg.EliteCount)
	if err != nil {
		return GenerationEvent{}, fmt.Errorf("%w: elite extraction: %v", errs.ErrSchedulerInvariant, err)
	}
	record("elites", time.Since(start))

	// Step 6: Select parent pairs.
	start = time.Now()
	offspringSlots := s.cfg.PopulationSize - s.cfg.EliteCount
	pairs, err := selection.SelectParents(s.population, offspringSlots, s.cfg.TournamentSize, s.cfg.SelectionPressure)
	if err != nil {
		return GenerationEvent{}, fmt.Errorf("%w: parent selection: %v", errs.ErrSchedulerInvariant, err)
	}
	record("select", time.Since(start))

	// Step 7: Vary.
	start = time.Now()
	offspring, failedCount := s.varyAll(ctx, pairs)
	record("vary", time.Since(start))
	if err := ctx.Err(); err != nil {
		return GenerationEvent{}, err
	}

	// Step 8: Replace.
	start = time.Now()
	next := replace(elites, offspring, s.population, s.cfg.PopulationSize)
	record("replace", time.Since(start))
	s.population = next
	s.generation++

	// Step 9: Diversity monitor.
	start = time.Now()
	diversity := s.monitorDiversity()
	record("diversity", time.Since(start))

	championUpdated := topByMetrics(s.population) != previousChampion

	front1 := pareto.FirstFront(s.population)

	event := GenerationEvent{
		Generation:      s.generation,
		Diversity:       diversity,
		ParetoFrontSize: len(front1),
		ChampionUpdated: championUpdated,
		PhaseTimings:    timings,
		OffspringCount:  len(offspring),
		FailedOffspring: failedCount,
		MutationRate:    s.mutationRate,
		SeedInjections:  s.lastSeedInjectionCount,
	}
	s.history = append(s.history, event)

	if s.metrics != nil {
		s.metrics.ParetoFrontSize.Set(float64(event.ParetoFrontSize))
		s.metrics.DiversityScore.Set(event.Diversity)
		s.metrics.MutationRate.Set(s.mutationRate)
		s.metrics.OffspringFailures.Add(float64(failedCount))
		if championUpdated {
			s.metrics.ChampionChanges.Inc()
		}
		s.metrics.GenerationDuration.Observe(sumDurations(timings).Seconds())
		for phase, d := range timings {
			s.metrics.PhaseDuration.WithLabelValues(phase).Observe(d.Seconds())
		}
	}

	return event, nil
}

// evaluate runs the external evaluator over every individual still
// lacking metrics, in parallel per individual (§5), tolerating a failing
// evaluator call by converting it locally to success=false metrics (§4.8
// failure semantics) rather than propagating.
func (s *Scheduler) evaluate(ctx context.Context) {
	pending := make([]*individual.Individual, 0, len(s.population))
	for _, ind := range s.population {
		if !ind.HasMetrics {
			pending = append(pending, ind)
		}
	}
	if len(pending) == 0 {
		return
	}

	numWorkers := runtime.NumCPU()
	if numWorkers > len(pending) {
		numWorkers = len(pending)
	}
	work := make(chan *individual.Individual, len(pending))
	var wg sync.WaitGroup
	for w := 0; w < numWorkers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for ind := range work {
				metrics, err := s.evaluator.Evaluate(ctx, ind)
				if err != nil {
					telemetry.Logger.WithFields(telemetry.GenerationFields(s.generation+1, 0, 0, false)).
						WithField("individual_id", ind.ID).WithError(err).
						Warn("evaluator failed; recording failed evaluation")
					metrics = objective.Metrics{Success: false}
				}
				ind.SetMetrics(metrics)
			}
		}()
	}
	for _, ind := range pending {
		work <- ind
	}
	close(work)
	wg.Wait()
}

// crowdFronts groups the population by rank and computes crowding
// distance within each front of size >= 2 (§4.4, §5's "per front,
// disjoint inputs" parallel contract). A singleton front's sole member
// gets +Inf, matching the boundary-member convention.
func (s *Scheduler) crowdFronts() error {
	byRank := map[int][]*individual.Individual{}
	for _, ind := range s.population {
		if ind.Rank > 0 {
			byRank[ind.Rank] = append(byRank[ind.Rank], ind)
		}
	}

	var wg sync.WaitGroup
	errCh := make(chan error, len(byRank))
	for _, front := range byRank {
		front := front
		if len(front) == 1 {
			front[0].Crowding = math.Inf(1)
			continue
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := crowding.Apply(front); err != nil {
				errCh <- err
			}
		}()
	}
	wg.Wait()
	close(errCh)
	for err := range errCh {
		return fmt.Errorf("%w: crowding: %v", errs.ErrSchedulerInvariant, err)
	}
	return nil
}

// varyAll produces one offspring per parent pair in parallel (§5's
// per-slot vary contract), counting placeholder fallbacks as failures.
func (s *Scheduler) varyAll(ctx context.Context, pairs []selection.ParentPair) ([]*individual.Individual, int) {
	offspring := make([]*individual.Individual, len(pairs))
	failed := make([]bool, len(pairs))

	numWorkers := runtime.NumCPU()
	if numWorkers > len(pairs) {
		numWorkers = len(pairs)
	}
	if numWorkers == 0 {
		return offspring, 0
	}
	work := make(chan int, len(pairs))
	var wg sync.WaitGroup
	varCfg := s.cfg.VariationConfig()
	varCfg.MutationRate = s.mutationRate
	for w := 0; w < numWorkers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range work {
				pair := pairs[i]
				outcome := s.engine.Vary(ctx, pair.A, pair.B, varCfg, s.nextID, s.generation+1, s.proposer)
				offspring[i] = outcome.Offspring
				failed[i] = outcome.Failed
			}
		}()
	}
	for i := range pairs {
		work <- i
	}
	close(work)
	wg.Wait()

	failedCount := 0
	for _, f := range failed {
		if f {
			failedCount++
		}
	}
	return offspring, failedCount
}

// monitorDiversity implements §4.8 step 9: escalate mutation rate under
// low diversity, and request seeded injections under severe diversity.
// A request raised while completing generation G fires at the start of
// generation G+2, consumed by applyPendingSeedInjection on the next-next
// call to RunGeneration. While a request is pending, further severe
// readings neither postpone it nor add to it.
func (s *Scheduler) monitorDiversity() float64 {
	diversity, err := novelty.PopulationDiversity(s.population)
	if err != nil {
		diversity = 1.0 // a population of 1 has no meaningful diversity signal
	}

	if diversity < s.cfg.LowDiversityThreshold {
		s.mutationRate = minFloat(0.5, s.mutationRate*1.5)
	}
	if diversity < s.cfg.SevereDiversityThreshold && s.seedInjectionDueAt < 0 {
		s.pendingSeedCount = 2
		s.seedInjectionDueAt = s.generation + 2
	}
	return diversity
}

// applyPendingSeedInjection splices freshly-seeded individuals into the
// current population in place of its worst (rank desc, crowding asc)
// members, if a diversity-escalation request raised two generations ago
// is due at the generation about to run.
func (s *Scheduler) applyPendingSeedInjection(ctx context.Context) {
	s.lastSeedInjectionCount = 0
	targetGeneration := s.generation + 1
	if s.seedInjectionDueAt != targetGeneration || s.pendingSeedCount == 0 {
		return
	}
	count := s.pendingSeedCount
	s.seedInjectionDueAt = -1
	s.pendingSeedCount = 0

	representations, err := s.proposer.Seed(ctx, count)
	if err != nil || len(representations) == 0 {
		telemetry.Logger.WithField("generation", targetGeneration).WithError(err).
			Warn("diversity-escalation seed injection failed; continuing without it")
		return
	}

	ordered := append([]*individual.Individual(nil), s.population...)
	sort.SliceStable(ordered, func(i, j int) bool { return replacementLess(ordered[i], ordered[j]) })

	n := len(representations)
	if n > len(ordered) {
		n = len(ordered)
	}
	worst := ordered[len(ordered)-n:]
	byID := make(map[string]*individual.Individual, len(s.population))
	for _, ind := range s.population {
		byID[ind.ID] = ind
	}
	for i, repr := range representations[:n] {
		seeded := individual.New(s.nextID(), s.generation, nil)
		seeded.Representation = repr
		delete(byID, worst[i].ID)
		byID[seeded.ID] = seeded
	}
	replaced := make([]*individual.Individual, 0, len(byID))
	for _, ind := range byID {
		replaced = append(replaced, ind)
	}
	sort.SliceStable(replaced, func(i, j int) bool { return replaced[i].ID < replaced[j].ID })
	s.population = replaced
	s.lastSeedInjectionCount = n
}

// replace implements §4.8 step 8: combine elites and offspring, keeping
// the best pop_size by (rank asc, crowding desc) if the union overflows,
// or topping up from the previous population (excluding ids already
// present) if it underflows. Brand-new, unevaluated offspring (rank 0)
// sort after every ranked individual, since rank 0 means "not yet judged"
// rather than "best front" (§3.2).
func replace(elites, offspring, previous []*individual.Individual, popSize int) []*individual.Individual {
	combined := make([]*individual.Individual, 0, len(elites)+len(offspring))
	seen := map[string]bool{}
	for _, ind := range append(append([]*individual.Individual(nil), elites...), offspring...) {
		if seen[ind.ID] {
			continue
		}
		seen[ind.ID] = true
		combined = append(combined, ind)
	}

	sort.SliceStable(combined, func(i, j int) bool {
		return replacementLess(combined[i], combined[j])
	})

	if len(combined) > popSize {
		return combined[:popSize]
	}
	if len(combined) == popSize {
		return combined
	}

	topUp := make([]*individual.Individual, 0, len(previous))
	for _, ind := range previous {
		if !seen[ind.ID] {
			topUp = append(topUp, ind)
		}
	}
	sort.SliceStable(topUp, func(i, j int) bool {
		return replacementLess(topUp[i], topUp[j])
	})
	for _, ind := range topUp {
		if len(combined) == popSize {
			break
		}
		seen[ind.ID] = true
		combined = append(combined, ind)
	}
	return combined
}

func replacementLess(a, b *individual.Individual) bool {
	ra, rb := effectiveRank(a), effectiveRank(b)
	if ra != rb {
		return ra < rb
	}
	return a.Crowding > b.Crowding
}

const unrankedSentinel = 1 << 30

func effectiveRank(ind *individual.Individual) int {
	if ind.Rank == 0 {
		return unrankedSentinel
	}
	return ind.Rank
}

func topByMetrics(pop []*individual.Individual) string {
	if len(pop) == 0 {
		return ""
	}
	best := pop[0]
	bestSharpe, bestCalmar := eliteKeyOf(best)
	for _, ind := range pop[1:] {
		sharpe, calmar := eliteKeyOf(ind)
		if sharpe > bestSharpe || (sharpe == bestSharpe && calmar > bestCalmar) {
			best, bestSharpe, bestCalmar = ind, sharpe, calmar
		}
	}
	return best.ID
}

func eliteKeyOf(ind *individual.Individual) (float64, float64) {
	if !ind.HasMetrics {
		return math.Inf(-1), math.Inf(-1)
	}
	return ind.Metrics.Sharpe, ind.Metrics.Calmar
}

func sumDurations(m map[string]time.Duration) time.Duration {
	var total time.Duration
	for _, d := range m {
		total += d
	}
	return total
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
