// Package pipeline runs the sync stages in dependency order.
//
// Each stage fetches from the NHL API, transforms the payloads and loads the
// records in one transaction per batch. A failed stage does not stop the run;
// stages that depend on it are skipped.
package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"nhl_stats/ingestion/internal/metrics"
	"nhl_stats/ingestion/internal/transform"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Stage names
const (
	StageSeasons        = "seasons"
	StageTeams          = "teams"
	StageTeamSeasons    = "team_seasons"
	StagePlayers        = "players"
	StageRosters        = "rosters"
	StageStandings      = "standings"
	StagePlayerStats    = "player_stats"
	StageGames          = "games"
	StageAmateurLeagues = "amateur_leagues"
)

// ErrUnknownStage is returned for a stage name outside the valid set
var ErrUnknownStage = errors.New("unknown stage")

// Status is the outcome of one stage
type Status string

const (
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
	StatusSkipped   Status = "skipped"
)

// StageResult summarizes one stage of a run
type StageResult struct {
	Stage    string
	Status   Status
	Fetched  int
	Skipped  int
	Written  int
	Err      error
	Reason   string // why the stage was skipped
	Duration time.Duration
}

// String renders the result on one line
func (r StageResult) String() string {
	switch r.Status {
	case StatusSkipped:
		return fmt.Sprintf("%-16s skipped (%s)", r.Stage, r.Reason)
	case StatusFailed:
		return fmt.Sprintf("%-16s failed after %s: fetched=%d skipped=%d: %v",
			r.Stage, r.Duration.Round(time.Millisecond), r.Fetched, r.Skipped, r.Err)
	default:
		return fmt.Sprintf("%-16s succeeded in %s: fetched=%d skipped=%d written=%d",
			r.Stage, r.Duration.Round(time.Millisecond), r.Fetched, r.Skipped, r.Written)
	}
}

// RunSummary holds the results of a run in execution order
type RunSummary struct {
	Results  []StageResult
	Duration time.Duration
}

// Summary renders one line per stage
func (s *RunSummary) Summary() string {
	lines := make([]string, len(s.Results))
	for i, r := range s.Results {
		lines[i] = r.String()
	}
	return strings.Join(lines, "\n")
}

// Failed reports whether any stage failed
func (s *RunSummary) Failed() bool {
	for _, r := range s.Results {
		if r.Status == StatusFailed {
			return true
		}
	}
	return false
}

// Result returns the result for stage, if it ran
func (s *RunSummary) Result(stage string) (StageResult, bool) {
	for _, r := range s.Results {
		if r.Stage == stage {
			return r, true
		}
	}
	return StageResult{}, false
}

// StageInfo describes a stage for listings
type StageInfo struct {
	Name      string
	DependsOn []string
	Extended  bool // runs only when named or when extended stages are enabled
}

var stageGraph = []StageInfo{
	{Name: StageSeasons},
	{Name: StageTeams},
	{Name: StageTeamSeasons, DependsOn: []string{StageSeasons, StageTeams}},
	{Name: StagePlayers, DependsOn: []string{StageTeamSeasons}},
	{Name: StageRosters, DependsOn: []string{StageTeamSeasons, StagePlayers}},
	{Name: StageStandings, DependsOn: []string{StageSeasons, StageTeams}},
	{Name: StagePlayerStats, DependsOn: []string{StagePlayers, StageTeamSeasons}},
	{Name: StageGames, DependsOn: []string{StageTeamSeasons, StagePlayerStats}, Extended: true},
	{Name: StageAmateurLeagues, DependsOn: []string{StagePlayers}, Extended: true},
}

// Stages lists every stage in execution order
func Stages() []StageInfo {
	out := make([]StageInfo, len(stageGraph))
	copy(out, stageGraph)
	return out
}

// StageNames lists every valid stage name in execution order
func StageNames() []string {
	names := make([]string, len(stageGraph))
	for i, s := range stageGraph {
		names[i] = s.Name
	}
	return names
}

// ValidateStage returns ErrUnknownStage unless name is empty or a known stage
func ValidateStage(name string) error {
	if name == "" {
		return nil
	}
	for _, s := range stageGraph {
		if s.Name == name {
			return nil
		}
	}
	return errors.Mark(
		errors.Newf("unknown stage %q, valid stages: %s", name, strings.Join(StageNames(), ", ")),
		ErrUnknownStage,
	)
}

// Option configures an Orchestrator
type Option func(*Orchestrator)

// WithWorkers sets how many per-key fetches run at once; <= 1 is sequential
func WithWorkers(n int) Option {
	return func(o *Orchestrator) { o.workers = n }
}

// WithExtendedStages appends the extension stages to a full run
func WithExtendedStages(enabled bool) Option {
	return func(o *Orchestrator) { o.extended = enabled }
}

// WithGamesSeasonLimit sets how many of the most recent seasons the games stage covers
func WithGamesSeasonLimit(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.gamesSeasonLimit = n
		}
	}
}

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// WithLogger sets the logger
func WithLogger(l zerolog.Logger) Option {
	return func(o *Orchestrator) { o.logger = l }
}

// Orchestrator runs sync stages
type Orchestrator struct {
	api         API
	store       Store
	transformer *transform.Transformer

	workers          int
	extended         bool
	gamesSeasonLimit int
	now              func() time.Time
	logger           zerolog.Logger
}

// New creates an Orchestrator
func New(api API, store Store, transformer *transform.Transformer, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		api:              api,
		store:            store,
		transformer:      transformer,
		workers:          1,
		gamesSeasonLimit: 1,
		now:              time.Now,
		logger:           log.Logger,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run runs the full sequence when stage is empty, otherwise only the named
// stage. The only error is ErrUnknownStage, returned before any I/O; stage
// failures are reported in the summary.
func (o *Orchestrator) Run(ctx context.Context, stage string) (*RunSummary, error) {
	if err := ValidateStage(stage); err != nil {
		return nil, err
	}

	start := time.Now()
	runners := o.runners()
	status := make(map[string]Status)
	summary := &RunSummary{}

	for _, info := range o.plan(stage) {
		result := StageResult{Stage: info.Name}

		if reason := o.blocked(ctx, info, status); reason != "" {
			result.Status = StatusSkipped
			result.Reason = reason
			o.logger.Warn().Str("stage", info.Name).Str("reason", reason).Msg("Stage skipped")
		} else {
			o.logger.Info().Str("stage", info.Name).Msg("Stage starting")
			stageStart := time.Now()
			err := runners[info.Name](ctx, &result)
			result.Duration = time.Since(stageStart)
			if err != nil {
				result.Status = StatusFailed
				result.Err = err
				o.logger.Error().
					Err(err).
					Str("stage", info.Name).
					Int("fetched", result.Fetched).
					Int("skipped", result.Skipped).
					Dur("duration", result.Duration).
					Msg("Stage failed")
			} else {
				result.Status = StatusSucceeded
				o.logger.Info().
					Str("stage", info.Name).
					Int("fetched", result.Fetched).
					Int("skipped", result.Skipped).
					Int("written", result.Written).
					Dur("duration", result.Duration).
					Msg("Stage complete")
			}
			metrics.RecordStageRecords(info.Name, result.Fetched, result.Skipped, result.Written)
		}

		metrics.RecordSync(info.Name, string(result.Status), result.Duration.Seconds())
		status[info.Name] = result.Status
		summary.Results = append(summary.Results, result)
	}

	summary.Duration = time.Since(start)
	return summary, nil
}

// plan returns the stages a run covers, in order
func (o *Orchestrator) plan(stage string) []StageInfo {
	var plan []StageInfo
	for _, info := range stageGraph {
		switch {
		case stage != "":
			if info.Name == stage {
				plan = append(plan, info)
			}
		case !info.Extended || o.extended:
			plan = append(plan, info)
		}
	}
	return plan
}

// blocked returns a skip reason, or "" if the stage may run. Only
// dependencies that ran in this run and did not succeed block a stage.
func (o *Orchestrator) blocked(ctx context.Context, info StageInfo, status map[string]Status) string {
	if ctx.Err() != nil {
		return "run cancelled"
	}
	for _, dep := range info.DependsOn {
		switch status[dep] {
		case StatusFailed:
			return fmt.Sprintf("dependency %s failed", dep)
		case StatusSkipped:
			return fmt.Sprintf("dependency %s skipped", dep)
		}
	}
	return ""
}
