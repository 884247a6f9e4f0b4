package main

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/PaiCY-T/evoengine/internal/errs"
	"github.com/PaiCY-T/evoengine/internal/individual"
)

func TestExitCodeForSchedulerInvariant(t *testing.T) {
	assert.Equal(t, exitSchedulerInvariant, exitCodeFor(fmt.Errorf("wrap: %w", errs.ErrSchedulerInvariant)))
}

func TestExitCodeForConfigInvalid(t *testing.T) {
	assert.Equal(t, exitValidationFailed, exitCodeFor(fmt.Errorf("wrap: %w", errs.ErrConfigInvalid)))
}

func TestExitCodeForUnknownErrorIsFatal(t *testing.T) {
	assert.Equal(t, exitFatal, exitCodeFor(fmt.Errorf("boom")))
}

func TestExitCodeForCancelledIsFatalWhenUnhandledUpstream(t *testing.T) {
	assert.Equal(t, exitFatal, exitCodeFor(context.Canceled))
}

func TestSplitCommandSplitsOnWhitespace(t *testing.T) {
	assert.Equal(t, []string{"python3", "evaluator.py"}, splitCommand("python3 evaluator.py"))
}

func TestBestByRankAndCrowdingPrefersLowerRank(t *testing.T) {
	a := individual.New("a", 0, nil)
	a.Rank = 2
	a.Crowding = 0
	b := individual.New("b", 0, nil)
	b.Rank = 1
	b.Crowding = 0
	best := bestByRankAndCrowding([]*individual.Individual{a, b})
	assert.Equal(t, "b", best.ID)
}

func TestBestByRankAndCrowdingPrefersWiderCrowdingOnTie(t *testing.T) {
	a := individual.New("a", 0, nil)
	a.Rank = 1
	a.Crowding = 0.1
	b := individual.New("b", 0, nil)
	b.Rank = 1
	b.Crowding = 5.0
	best := bestByRankAndCrowding([]*individual.Individual{a, b})
	assert.Equal(t, "b", best.ID)
}
