// Package config loads and validates the scheduler's tunable options
// (§6.1). Grounded on avmi-goga's ConfParams (params.go), which holds the
// same kind of flat numeric knob set for an island's reproduction
// operators; this package generalises that struct to the full §6.1 option
// table and adds TOML loading via github.com/BurntSushi/toml, the corpus's
// own config-file format (see stojg-playlist-sorter's config handling).
package config

import (
	"fmt"

	"github.com/BurntSushi/toml"

	"github.com/PaiCY-T/evoengine/internal/errs"
	"github.com/PaiCY-T/evoengine/internal/variation"
)

// Config is the scheduler's full recognised option set (§6.1).
type Config struct {
	PopulationSize    int     `toml:"population_size"`
	EliteCount        int     `toml:"elite_count"`
	TournamentSize    int     `toml:"tournament_size"`
	SelectionPressure float64 `toml:"selection_pressure"`

	CrossoverRate    float64 `toml:"crossover_rate"`
	MutationRate     float64 `toml:"mutation_rate"`
	MutationStrength float64 `toml:"mutation_strength"`
	MaxRetries       int     `toml:"max_retries"`

	DiversityWeight           float64 `toml:"diversity_weight"`
	NoveltyK                  int     `toml:"novelty_k"`
	LowDiversityThreshold     float64 `toml:"low_diversity_threshold"`
	SevereDiversityThreshold  float64 `toml:"severe_diversity_threshold"`

	ExitMutationEnabled     bool                         `toml:"exit_mutation_enabled"`
	ExitMutationProbability float64                      `toml:"exit_mutation_probability"`
	ExitTierWeights         variation.ExitTierWeights    `toml:"exit_tier_weights"`
	ExitParameterRanges     map[string][2]float64        `toml:"exit_parameter_ranges"`

	CheckpointEvery int `toml:"checkpoint_every"` // 0 means never

	// RandomSeed seeds the variation engine's RNG (§5 determinism).
	RandomSeed int64 `toml:"random_seed"`
}

// Default returns a Config with the spec's stated defaults where one is
// named (§6.1), and otherwise a conservative starting point.
func Default() Config {
	return Config{
		PopulationSize:           20,
		EliteCount:               2,
		TournamentSize:           3,
		SelectionPressure:        0.8,
		CrossoverRate:            0.7,
		MutationRate:             0.2,
		MutationStrength:         0.1,
		MaxRetries:               5,
		DiversityWeight:          0.3,
		NoveltyK:                 5,
		LowDiversityThreshold:    0.30,
		SevereDiversityThreshold: 0.20,
		ExitMutationEnabled:      true,
		ExitMutationProbability:  0.2,
		ExitTierWeights:          variation.DefaultExitTierWeights(),
		ExitParameterRanges:      map[string][2]float64{},
		CheckpointEvery:          10,
		RandomSeed:               42,
	}
}

// Load reads and validates a TOML configuration file, starting from
// Default() so unset fields keep their defaults rather than zero values.
func Load(path string) (Config, error) {
	cfg := Default()
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Config{}, fmt.Errorf("%w: decoding %s: %v", errs.ErrConfigInvalid, path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the option ranges named in §6.1, returning
// errs.ErrConfigInvalid wrapped with the offending field on failure.
func (c Config) Validate() error {
	switch {
	case c.PopulationSize < 2:
		return fmt.Errorf("%w: population_size must be >= 2, got %d", errs.ErrConfigInvalid, c.PopulationSize)
	case c.EliteCount < 0 || c.EliteCount > c.PopulationSize:
		return fmt.Errorf("%w: elite_count must be in [0, population_size], got %d", errs.ErrConfigInvalid, c.EliteCount)
	case c.TournamentSize < 2:
		return fmt.Errorf("%w: tournament_size must be >= 2, got %d", errs.ErrConfigInvalid, c.TournamentSize)
	case c.SelectionPressure < 0 || c.SelectionPressure > 1:
		return fmt.Errorf("%w: selection_pressure must be in [0,1], got %f", errs.ErrConfigInvalid, c.SelectionPressure)
	case c.CrossoverRate < 0 || c.CrossoverRate > 1:
		return fmt.Errorf("%w: crossover_rate must be in [0,1], got %f", errs.ErrConfigInvalid, c.CrossoverRate)
	case c.MutationRate < 0 || c.MutationRate > 1:
		return fmt.Errorf("%w: mutation_rate must be in [0,1], got %f", errs.ErrConfigInvalid, c.MutationRate)
	case c.MutationStrength <= 0:
		return fmt.Errorf("%w: mutation_strength must be > 0, got %f", errs.ErrConfigInvalid, c.MutationStrength)
	case c.MaxRetries < 1:
		return fmt.Errorf("%w: max_retries must be >= 1, got %d", errs.ErrConfigInvalid, c.MaxRetries)
	case c.DiversityWeight < 0 || c.DiversityWeight > 1:
		return fmt.Errorf("%w: diversity_weight must be in [0,1], got %f", errs.ErrConfigInvalid, c.DiversityWeight)
	case c.NoveltyK < 1:
		return fmt.Errorf("%w: novelty_k must be >= 1, got %d", errs.ErrConfigInvalid, c.NoveltyK)
	case c.ExitMutationProbability < 0 || c.ExitMutationProbability > 1:
		return fmt.Errorf("%w: exit_mutation_probability must be in [0,1], got %f", errs.ErrConfigInvalid, c.ExitMutationProbability)
	case c.ExitTierWeights.Parametric < 0 || c.ExitTierWeights.Structural < 0 || c.ExitTierWeights.Relational < 0:
		return fmt.Errorf("%w: exit_tier_weights must be non-negative", errs.ErrConfigInvalid)
	case c.CheckpointEvery < 0:
		return fmt.Errorf("%w: checkpoint_every must be >= 0, got %d", errs.ErrConfigInvalid, c.CheckpointEvery)
	}
	return nil
}

// VariationConfig projects the variation-relevant subset of Config into a
// variation.Config, the boundary between population-level and
// operator-level tunables (§6.1 vs §4.7).
func (c Config) VariationConfig() variation.Config {
	return variation.Config{
		CrossoverRate:           c.CrossoverRate,
		MutationRate:            c.MutationRate,
		MutationStrength:        c.MutationStrength,
		MaxRetries:              c.MaxRetries,
		ExitMutationEnabled:     c.ExitMutationEnabled,
		ExitMutationProbability: c.ExitMutationProbability,
		ExitTierWeights:         c.ExitTierWeights,
		ExitParameterRanges:     c.ExitParameterRanges,
	}
}
