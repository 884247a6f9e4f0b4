// Command evoctl drives the evolutionary engine from the command line
// (C8-C11, §6.6): run generations, resume from a checkpoint, or validate
// a configuration file without starting a run.
//
// Grounded on luxfi-consensus/cmd/consensus's rootCmd+AddCommand layout
// (one cobra.Command per subcommand, constructed by a *Cmd() function and
// wired together in main), generalised from consensus's
// check/sim/benchmark/params set to run/resume/validate.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// Exit codes per the CLI surface contract (§6.6).
const (
	exitSuccess            = 0
	exitValidationFailed   = 1
	exitSchedulerInvariant = 2
	exitFatal              = 3
)

var rootCmd = &cobra.Command{
	Use:   "evoctl",
	Short: "Drive the NSGA-II strategy-evolution engine",
	Long: `evoctl runs, resumes, and validates configurations for the
multi-objective evolutionary engine: per-generation Pareto ranking,
crowding, novelty-aware selection, and variation over a candidate
strategy population.`,
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-stop
		cancel()
	}()

	rootCmd.AddCommand(runCmd(), resumeCmd(), validateCmd())
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "evoctl:", err)
		os.Exit(exitCodeFor(err))
	}
}

// exitCodeFor maps a returned error to the §6.6 exit-code contract. A
// nil error (the normal success path) never reaches this function —
// cobra's Execute only returns a non-nil error here.
func exitCodeFor(err error) int {
	switch {
	case isSchedulerInvariant(err):
		return exitSchedulerInvariant
	case isValidationFailure(err):
		return exitValidationFailed
	default:
		return exitFatal
	}
}
