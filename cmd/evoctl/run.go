package main

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/PaiCY-T/evoengine/internal/adapters"
	"github.com/PaiCY-T/evoengine/internal/adapters/procadapter"
	"github.com/PaiCY-T/evoengine/internal/archive"
	"github.com/PaiCY-T/evoengine/internal/config"
	"github.com/PaiCY-T/evoengine/internal/individual"
	"github.com/PaiCY-T/evoengine/internal/scheduler"
	"github.com/PaiCY-T/evoengine/internal/telemetry"
)

// runOptions carries the flags shared by `run` and `resume`: neither the
// evaluator nor the proposer has an in-core implementation (§4.11
// keeps both genuinely external), so both are wired as subprocess
// commands via internal/adapters/procadapter.
type runOptions struct {
	configPath   string
	archiveDir   string
	generations  int
	evaluatorCmd string
	proposerCmd  string
	timeout      time.Duration
}

func (o runOptions) evaluator() adapters.Evaluator {
	return procadapter.EvaluatorProcess{Command: splitCommand(o.evaluatorCmd), Timeout: o.timeout}
}

func (o runOptions) proposer() adapters.Proposer {
	return procadapter.ProposerProcess{Command: splitCommand(o.proposerCmd), Timeout: o.timeout}
}

func splitCommand(s string) []string {
	return strings.Fields(s)
}

func addRunFlags(cmd *cobra.Command, o *runOptions) {
	cmd.Flags().StringVar(&o.configPath, "config", "evoctl.toml", "path to the TOML configuration file")
	cmd.Flags().StringVar(&o.archiveDir, "archive-dir", "./evoctl-archive", "directory for checkpoints and tier archives")
	cmd.Flags().IntVar(&o.generations, "generations", 1, "number of generations to run")
	cmd.Flags().StringVar(&o.evaluatorCmd, "evaluator-cmd", "", "external evaluator command (argv as one string)")
	cmd.Flags().StringVar(&o.proposerCmd, "proposer-cmd", "", "external proposer command (argv as one string)")
	cmd.Flags().DurationVar(&o.timeout, "adapter-timeout", 30*time.Second, "per-call timeout for evaluator/proposer subprocesses")
}

func runCmd() *cobra.Command {
	var o runOptions
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Seed a fresh population and drive N generations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return doRun(cmd.Context(), o, nil)
		},
	}
	addRunFlags(cmd, &o)
	return cmd
}

func resumeCmd() *cobra.Command {
	var o runOptions
	var fromGeneration int
	cmd := &cobra.Command{
		Use:   "resume",
		Short: "Load a checkpoint and continue driving generations",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := archive.NewStore(o.archiveDir)
			if err != nil {
				return err
			}
			cp, population, err := store.LoadCheckpoint(fromGeneration)
			if err != nil {
				return err
			}
			return doRun(cmd.Context(), o, &resumeState{checkpoint: cp, population: population})
		},
	}
	addRunFlags(cmd, &o)
	cmd.Flags().IntVar(&fromGeneration, "from-generation", 0, "checkpoint generation number to resume from")
	return cmd
}

type resumeState struct {
	checkpoint *archive.Checkpoint
	population []*individual.Individual
}

func doRun(ctx context.Context, o runOptions, resume *resumeState) error {
	var cfg config.Config
	var seed []*individual.Individual

	evaluator := o.evaluator()
	proposer := o.proposer()

	if resume != nil {
		cfg = resume.checkpoint.Config
		seed = resume.population
	} else {
		loaded, err := config.Load(o.configPath)
		if err != nil {
			return err
		}
		cfg = loaded
		representations, err := proposer.Seed(ctx, cfg.PopulationSize)
		if err != nil {
			return fmt.Errorf("seeding initial population: %w", err)
		}
		seed = make([]*individual.Individual, len(representations))
		for i, repr := range representations {
			ind := individual.New(fmt.Sprintf("gen0-%d", i), 0, nil)
			ind.Representation = repr
			seed[i] = ind
		}
	}

	store, err := archive.NewStore(o.archiveDir)
	if err != nil {
		return err
	}
	metrics := telemetry.NewMetrics(prometheus.DefaultRegisterer)

	sched, err := scheduler.New(cfg, evaluator, proposer, metrics, seed)
	if err != nil {
		return err
	}

	for i := 0; i < o.generations; i++ {
		event, err := sched.RunGeneration(ctx)
		if err != nil {
			// Any aborted generation, cancellation included, gets a
			// best-effort checkpoint before doRun returns.
			if checkpointErr := store.SaveCheckpoint(sched.Generation(), sched.Population(), sched.History(), cfg, time.Now().Unix()); checkpointErr != nil {
				telemetry.Logger.WithError(checkpointErr).Warn("best-effort checkpoint on abort failed")
			}
			if errors.Is(err, context.Canceled) {
				// Cancellation is a clean stop (§7): the best-effort
				// checkpoint above is the caller's recovery point, not
				// a failure to report.
				telemetry.Logger.Info("run cancelled after best-effort checkpoint")
				return nil
			}
			return err
		}
		telemetry.Logger.WithFields(telemetry.GenerationFields(event.Generation, event.Diversity, event.ParetoFrontSize, event.ChampionUpdated)).
			Info("generation complete")

		if cfg.CheckpointEvery > 0 && event.Generation%cfg.CheckpointEvery == 0 {
			if err := store.SaveCheckpoint(event.Generation, sched.Population(), sched.History(), cfg, time.Now().Unix()); err != nil {
				return err
			}
		}
	}

	champion := bestByRankAndCrowding(sched.Population())
	if champion != nil {
		if err := store.Save(champion, archive.Champions); err != nil {
			return err
		}
	}
	return store.SaveCheckpoint(sched.Generation(), sched.Population(), sched.History(), cfg, time.Now().Unix())
}

// bestByRankAndCrowding picks the generation's strongest individual
// (lowest Pareto front, then widest crowding distance; unranked rank-0
// members come after every ranked one), the same ordering the
// scheduler's replacement step uses.
func bestByRankAndCrowding(population []*individual.Individual) *individual.Individual {
	var best *individual.Individual
	for _, ind := range population {
		if best == nil {
			best = ind
			continue
		}
		ir, br := rankOrder(ind), rankOrder(best)
		if ir < br || (ir == br && ind.Crowding > best.Crowding) {
			best = ind
		}
	}
	return best
}

// rankOrder maps rank 0 ("not yet ranked") after every real front.
func rankOrder(ind *individual.Individual) int {
	if ind.Rank == 0 {
		return math.MaxInt
	}
	return ind.Rank
}
