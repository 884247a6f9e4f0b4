// Package telemetry provides the structured logging and Prometheus
// metrics surfaces the scheduler emits per phase and per generation
// (§4.8 step 10, §7 "user-visible behaviour"). Grounded on
// luxfi-consensus/metrics/metric.go's pattern of constructing prometheus
// collectors directly and registering them against a caller-supplied
// prometheus.Registerer, paired with sirupsen/logrus for structured
// fields the way stojg-playlist-sorter's go.mod carries logrus alongside
// its own CLI logging.
package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
)

// Metrics holds the Prometheus collectors the scheduler updates once per
// generation and once per phase.
type Metrics struct {
	GenerationDuration prometheus.Histogram
	PhaseDuration       *prometheus.HistogramVec
	ParetoFrontSize     prometheus.Gauge
	DiversityScore      prometheus.Gauge
	OffspringFailures   prometheus.Counter
	ChampionChanges     prometheus.Counter
	MutationRate        prometheus.Gauge
}

// NewMetrics constructs and registers the scheduler's collectors against
// reg. Registration errors are not fatal to the engine: on an
// already-used registry (e.g. in tests constructing more than one
// scheduler) the failed registrations are ignored, and the returned
// Metrics' collectors for those names stay unregistered, so their values
// are not exported through reg. This mirrors the teacher corpus's
// tolerance of duplicate registration in long-lived processes.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		GenerationDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "evoengine_generation_duration_seconds",
			Help:    "Wall-clock duration of one full generation cycle.",
			Buckets: prometheus.DefBuckets,
		}),
		PhaseDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "evoengine_phase_duration_seconds",
			Help:    "Wall-clock duration of one scheduler phase.",
			Buckets: prometheus.DefBuckets,
		}, []string{"phase"}),
		ParetoFrontSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "evoengine_pareto_front_size",
			Help: "Number of individuals in the first Pareto front.",
		}),
		DiversityScore: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "evoengine_diversity_score",
			Help: "Mean pairwise Jaccard diversity of the current population.",
		}),
		OffspringFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "evoengine_offspring_failures_total",
			Help: "Count of offspring slots that fell back to a placeholder.",
		}),
		ChampionChanges: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "evoengine_champion_changes_total",
			Help: "Count of generations in which the top individual changed identity.",
		}),
		MutationRate: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "evoengine_mutation_rate",
			Help: "Current effective mutation rate after diversity escalation.",
		}),
	}

	for _, c := range []prometheus.Collector{
		m.GenerationDuration, m.PhaseDuration, m.ParetoFrontSize,
		m.DiversityScore, m.OffspringFailures, m.ChampionChanges, m.MutationRate,
	} {
		_ = reg.Register(c) // duplicate registration is non-fatal; see doc comment
	}
	return m
}

// PhaseTimer returns a func() to defer that records the elapsed duration
// for the named phase (§5's per-phase timing requirement).
func (m *Metrics) PhaseTimer(phase string) func() {
	start := time.Now()
	return func() {
		m.PhaseDuration.WithLabelValues(phase).Observe(time.Since(start).Seconds())
	}
}

// Logger is the package-wide structured logger; callers may replace its
// output/formatter but the field vocabulary (generation, phase, ...)
// stays fixed so log aggregation queries remain stable across runs.
var Logger = logrus.New()

// GenerationFields builds the base structured-log field set attached to
// every per-generation event record (§3.4, §7).
func GenerationFields(generation int, diversity float64, frontSize int, championChanged bool) logrus.Fields {
	return logrus.Fields{
		"generation":       generation,
		"diversity":        diversity,
		"front_size":       frontSize,
		"champion_changed": championChanged,
	}
}
