// Package archive implements the tier-ordered elite store and scheduler
// checkpointing (C9, §4.9, §6.5). It is the sole persistence owner in the
// engine (§4.10): it reads and writes individual.Individual via its own
// wire representation, never via a save/load method on the entity
// itself, per the design note forbidding persistence methods on domain
// entities.
//
// Grounded on mihai-snyk-descheduler's benchmarks.TestSuite.Run (directory
// creation via os.MkdirAll + filepath.Join, one file per named record) for
// the file-per-record layout, generalised from "one results file per
// problem" to "one JSON file per individual id, nested under a tier
// subdirectory".
package archive

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/PaiCY-T/evoengine/internal/config"
	"github.com/PaiCY-T/evoengine/internal/errs"
	"github.com/PaiCY-T/evoengine/internal/individual"
	"github.com/PaiCY-T/evoengine/internal/objective"
	"github.com/PaiCY-T/evoengine/internal/scheduler"
	"github.com/PaiCY-T/evoengine/internal/telemetry"
)

// Tier names the three archive buckets (§3.5, §4.9).
type Tier string

const (
	Champions  Tier = "champions"
	Contenders Tier = "contenders"
	TierArchive Tier = "archive"
)

var validTiers = map[Tier]bool{Champions: true, Contenders: true, TierArchive: true}

// schemaVersion is the current on-disk record version (§6.5). Loaders
// accept this version; earlier versions may be added to acceptedVersions
// as the format evolves.
const schemaVersion = 1

var acceptedVersions = map[int]bool{1: true}

// Store is a directory-backed tier archive rooted at Dir.
type Store struct {
	Dir string
}

// NewStore creates (if needed) the three tier subdirectories under dir and
// returns a Store rooted there.
func NewStore(dir string) (*Store, error) {
	for _, t := range []Tier{Champions, Contenders, TierArchive} {
		if err := os.MkdirAll(filepath.Join(dir, string(t)), 0o755); err != nil {
			return nil, fmt.Errorf("%w: creating tier directory %s: %v", errs.ErrConfigInvalid, t, err)
		}
	}
	return &Store{Dir: dir}, nil
}

// wireIndividual is individual.Individual's on-disk shape (§6.5): every
// JSON document carries a schema_version.
type wireIndividual struct {
	SchemaVersion  int                         `json:"schema_version"`
	ID             string                      `json:"id"`
	Generation     int                         `json:"generation"`
	ParentIDs      []string                    `json:"parent_ids"`
	Parameters     individual.Params           `json:"parameters"`
	Representation string                      `json:"representation"`
	Metrics        *objective.Metrics          `json:"metrics,omitempty"`
	HasMetrics     bool                        `json:"has_metrics"`
	Rank           int                         `json:"rank"`
	Crowding       float64                     `json:"crowding"`
	Novelty        float64                     `json:"novelty"`
	TemplateType   string                      `json:"template_type"`
	CreatedAtUnixNano int64                    `json:"created_at_unix_nano"`
	Metadata       map[string]string           `json:"metadata"`
}

func toWire(ind *individual.Individual) wireIndividual {
	w := wireIndividual{
		SchemaVersion:  schemaVersion,
		ID:             ind.ID,
		Generation:     ind.Generation,
		ParentIDs:      ind.ParentIDs,
		Parameters:     ind.Parameters,
		Representation: ind.Representation,
		HasMetrics:     ind.HasMetrics,
		Rank:           ind.Rank,
		Crowding:       crowdingForWire(ind.Crowding),
		Novelty:        ind.Novelty,
		TemplateType:   ind.TemplateType,
		CreatedAtUnixNano: ind.CreatedAt.UnixNano(),
		Metadata:       ind.Metadata,
	}
	if ind.HasMetrics {
		w.Metrics = ind.Metrics
	}
	return w
}

// crowdingForWire maps +Inf to a large finite sentinel since encoding/json
// cannot represent infinities; toIndividual reverses the mapping.
const crowdingInfSentinel = 1e308

func crowdingForWire(c float64) float64 {
	if c > crowdingInfSentinel {
		return crowdingInfSentinel
	}
	return c
}

func (w wireIndividual) toIndividual() *individual.Individual {
	ind := individual.New(w.ID, w.Generation, w.ParentIDs)
	ind.Parameters = w.Parameters
	if ind.Parameters == nil {
		ind.Parameters = individual.Params{}
	}
	ind.Representation = w.Representation
	ind.HasMetrics = w.HasMetrics
	if w.Metrics != nil {
		ind.Metrics = w.Metrics
	}
	ind.Rank = w.Rank
	ind.Crowding = w.Crowding
	if w.Crowding >= crowdingInfSentinel {
		ind.Crowding = math.Inf(1)
	}
	ind.Novelty = w.Novelty
	ind.TemplateType = w.TemplateType
	ind.CreatedAt = time.Unix(0, w.CreatedAtUnixNano)
	ind.Metadata = w.Metadata
	if ind.Metadata == nil {
		ind.Metadata = map[string]string{}
	}
	return ind
}

// Save validates tier and writes ind's serialised record keyed by id
// (§4.9).
func (s *Store) Save(ind *individual.Individual, tier Tier) error {
	if !validTiers[tier] {
		return fmt.Errorf("%w: %q", errs.ErrUnknownTier, tier)
	}
	data, err := json.MarshalIndent(toWire(ind), "", "  ")
	if err != nil {
		return fmt.Errorf("marshalling individual %s: %w", ind.ID, err)
	}
	path := filepath.Join(s.Dir, string(tier), ind.ID+".json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// Load returns a single record from tier: for champions, the sole record
// expected in that tier; otherwise an implementation-defined pick (here,
// the lexicographically first id). Returns nil, nil if the tier is empty.
// Corrupted records are skipped with a logged warning rather than
// propagated (§4.9, §7 CorruptedRecord policy).
func (s *Store) Load(tier Tier) (*individual.Individual, error) {
	if !validTiers[tier] {
		return nil, fmt.Errorf("%w: %q", errs.ErrUnknownTier, tier)
	}
	ids, err := s.listIDs(tier)
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		ind, err := s.loadOne(tier, id)
		if err != nil {
			telemetry.Logger.WithField("tier", tier).WithField("id", id).WithError(err).
				Warn("skipping corrupted archive record")
			continue
		}
		return ind, nil
	}
	return nil, nil
}

// LoadAll returns every valid record in tier, skipping corrupted ones
// (logged, not returned as an error).
func (s *Store) LoadAll(tier Tier) ([]*individual.Individual, error) {
	if !validTiers[tier] {
		return nil, fmt.Errorf("%w: %q", errs.ErrUnknownTier, tier)
	}
	ids, err := s.listIDs(tier)
	if err != nil {
		return nil, err
	}
	out := make([]*individual.Individual, 0, len(ids))
	for _, id := range ids {
		ind, err := s.loadOne(tier, id)
		if err != nil {
			telemetry.Logger.WithField("tier", tier).WithField("id", id).WithError(err).
				Warn("skipping corrupted archive record")
			continue
		}
		out = append(out, ind)
	}
	return out, nil
}

func (s *Store) listIDs(tier Tier) ([]string, error) {
	dir := filepath.Join(s.Dir, string(tier))
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("listing tier %s: %w", tier, err)
	}
	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".json" {
			ids = append(ids, e.Name()[:len(e.Name())-len(".json")])
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *Store) loadOne(tier Tier, id string) (*individual.Individual, error) {
	path := filepath.Join(s.Dir, string(tier), id+".json")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %v", errs.ErrCorruptedRecord, path, err)
	}
	var w wireIndividual
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("%w: decoding %s: %v", errs.ErrCorruptedRecord, path, err)
	}
	if !acceptedVersions[w.SchemaVersion] {
		return nil, fmt.Errorf("%w: %s has unsupported schema_version %d", errs.ErrCorruptedRecord, path, w.SchemaVersion)
	}
	if w.ID == "" {
		return nil, fmt.Errorf("%w: %s missing id field", errs.ErrCorruptedRecord, path)
	}
	return w.toIndividual(), nil
}

// Checkpoint is the scheduler-state document written once per generation
// (§6.5): population, history, and configuration, self-describing via
// schema_version.
type Checkpoint struct {
	SchemaVersion int                          `json:"schema_version"`
	Generation    int                          `json:"generation"`
	Population    []wireIndividual             `json:"population"`
	History       []scheduler.GenerationEvent  `json:"history"`
	Config        config.Config                `json:"config"`
	TimestampUnix int64                        `json:"timestamp_unix"`
}

// SaveCheckpoint writes a full scheduler-state snapshot to
// <dir>/checkpoint-<generation>.json (§6.5, §8 round-trip law).
func (s *Store) SaveCheckpoint(generation int, population []*individual.Individual, history []scheduler.GenerationEvent, cfg config.Config, timestampUnix int64) error {
	wire := make([]wireIndividual, len(population))
	for i, ind := range population {
		wire[i] = toWire(ind)
	}
	cp := Checkpoint{
		SchemaVersion: schemaVersion,
		Generation:    generation,
		Population:    wire,
		History:       history,
		Config:        cfg,
		TimestampUnix: timestampUnix,
	}
	data, err := json.MarshalIndent(cp, "", "  ")
	if err != nil {
		return fmt.Errorf("marshalling checkpoint: %w", err)
	}
	path := filepath.Join(s.Dir, fmt.Sprintf("checkpoint-%d.json", generation))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing checkpoint %s: %w", path, err)
	}
	return nil
}

// LoadCheckpoint restores a scheduler-state snapshot written by
// SaveCheckpoint, losslessly for every field in §3.2 (§8 round-trip law).
func (s *Store) LoadCheckpoint(generation int) (*Checkpoint, []*individual.Individual, error) {
	path := filepath.Join(s.Dir, fmt.Sprintf("checkpoint-%d.json", generation))
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: reading %s: %v", errs.ErrCorruptedRecord, path, err)
	}
	var cp Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return nil, nil, fmt.Errorf("%w: decoding %s: %v", errs.ErrCorruptedRecord, path, err)
	}
	if !acceptedVersions[cp.SchemaVersion] {
		return nil, nil, fmt.Errorf("%w: %s has unsupported schema_version %d", errs.ErrCorruptedRecord, path, cp.SchemaVersion)
	}
	population := make([]*individual.Individual, len(cp.Population))
	for i, w := range cp.Population {
		population[i] = w.toIndividual()
	}
	return &cp, population, nil
}
