package archive

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PaiCY-T/evoengine/internal/config"
	"github.com/PaiCY-T/evoengine/internal/errs"
	"github.com/PaiCY-T/evoengine/internal/individual"
	"github.com/PaiCY-T/evoengine/internal/objective"
	"github.com/PaiCY-T/evoengine/internal/scheduler"
)

func sampleIndividual(id string) *individual.Individual {
	ind := individual.New(id, 3, []string{"p1", "p2"})
	ind.Parameters = individual.Params{
		"lookback":                individual.Int(20),
		individual.FactorWeightsKey: individual.Weights(map[string]float64{"roe": 0.4, "pe": 0.6}),
	}
	ind.Representation = "data.get('roe') and data.indicator('rsi')"
	ind.SetMetrics(objective.Metrics{Sharpe: 1.2, Calmar: 2.1, MaxDrawdown: -0.1, TotalReturn: 0.3, WinRate: 0.6, AnnualReturn: 0.15, Success: true})
	ind.Rank = 1
	ind.Crowding = math.Inf(1)
	ind.Novelty = 0.42
	ind.TemplateType = "momentum"
	ind.Metadata["note"] = "seed"
	return ind
}

func TestSaveLoadRoundTrip(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	original := sampleIndividual("ind-1")
	require.NoError(t, store.Save(original, Champions))

	loaded, err := store.Load(Champions)
	require.NoError(t, err)
	require.NotNil(t, loaded)

	assert.Equal(t, original.ID, loaded.ID)
	assert.Equal(t, original.Generation, loaded.Generation)
	assert.Equal(t, original.ParentIDs, loaded.ParentIDs)
	assert.Equal(t, original.Representation, loaded.Representation)
	assert.Equal(t, original.TemplateType, loaded.TemplateType)
	assert.Equal(t, original.Rank, loaded.Rank)
	assert.True(t, math.IsInf(loaded.Crowding, 1))
	assert.InDelta(t, original.Novelty, loaded.Novelty, 1e-9)
	assert.Equal(t, *original.Metrics, *loaded.Metrics)
	assert.InDelta(t, 0.4, loaded.Parameters[individual.FactorWeightsKey].Weights["roe"], 1e-9)
}

func TestSaveRejectsUnknownTier(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)
	err = store.Save(sampleIndividual("x"), Tier("bogus"))
	assert.ErrorIs(t, err, errs.ErrUnknownTier)
}

func TestLoadEmptyTierReturnsNil(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)
	ind, err := store.Load(Contenders)
	require.NoError(t, err)
	assert.Nil(t, ind)
}

func TestLoadSkipsCorruptedRecord(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir)
	require.NoError(t, err)

	good := sampleIndividual("good")
	require.NoError(t, store.Save(good, TierArchive))

	corruptPath := filepath.Join(dir, string(TierArchive), "bad.json")
	require.NoError(t, os.WriteFile(corruptPath, []byte("{not json"), 0o644))

	all, err := store.LoadAll(TierArchive)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "good", all[0].ID)
}

func TestLoadAllReturnsEveryRecord(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, store.Save(sampleIndividual("a"), Contenders))
	require.NoError(t, store.Save(sampleIndividual("b"), Contenders))

	all, err := store.LoadAll(Contenders)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestCheckpointRoundTrip(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	population := []*individual.Individual{sampleIndividual("a"), sampleIndividual("b")}
	history := []scheduler.GenerationEvent{
		{Generation: 1, Diversity: 0.4, ParetoFrontSize: 1, ChampionUpdated: true},
	}
	cfg := config.Default()

	require.NoError(t, store.SaveCheckpoint(1, population, history, cfg, 1234567890))

	cp, restoredPop, err := store.LoadCheckpoint(1)
	require.NoError(t, err)
	assert.Equal(t, 1, cp.Generation)
	assert.Equal(t, history, cp.History)
	assert.Equal(t, cfg, cp.Config)
	require.Len(t, restoredPop, 2)
	assert.Equal(t, "a", restoredPop[0].ID)
}

func TestLoadCheckpointMissingFileIsCorruptedRecord(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)
	_, _, err = store.LoadCheckpoint(99)
	assert.ErrorIs(t, err, errs.ErrCorruptedRecord)
}
