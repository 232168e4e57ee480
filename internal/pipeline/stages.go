package pipeline

import (
	"context"
	"fmt"
	"sort"
	"time"

	"nhl_stats/ingestion/internal/client"
	"nhl_stats/ingestion/internal/models"
	"nhl_stats/ingestion/internal/repository"
	"nhl_stats/ingestion/internal/transform"

	"github.com/cockroachdb/errors"
)

type stageFunc func(ctx context.Context, res *StageResult) error

func (o *Orchestrator) runners() map[string]stageFunc {
	return map[string]stageFunc{
		StageSeasons:        o.syncSeasons,
		StageTeams:          o.syncTeams,
		StageTeamSeasons:    o.syncTeamSeasons,
		StagePlayers:        o.syncPlayers,
		StageRosters:        o.syncRosters,
		StageStandings:      o.syncStandings,
		StagePlayerStats:    o.syncPlayerStats,
		StageGames:          o.syncGames,
		StageAmateurLeagues: o.syncAmateurLeagues,
	}
}

// skip counts one resource that could not be fetched or decoded
func (o *Orchestrator) skip(res *StageResult, resource string, err error) {
	res.Skipped++
	o.logger.Warn().
		Err(err).
		Str("stage", res.Stage).
		Str("resource", resource).
		Msg("Skipping resource")
}

// malformed counts and logs records dropped during transformation
func (o *Orchestrator) malformed(res *StageResult, errs []error) {
	res.Skipped += len(errs)
	for _, err := range errs {
		o.logger.Warn().Err(err).Str("stage", res.Stage).Msg("Skipping malformed record")
	}
}

func (o *Orchestrator) syncSeasons(ctx context.Context, res *StageResult) error {
	body, err := o.api.FetchSeasons(ctx)
	if err != nil {
		return err
	}
	seasons, err := o.transformer.Seasons(body)
	if err != nil {
		return err
	}
	res.Fetched = len(seasons.Records) + seasons.Filtered + seasons.Skipped()
	o.malformed(res, seasons.Errors)

	res.Written, err = o.store.LoadSeasons(ctx, seasons.Records)
	return err
}

func (o *Orchestrator) syncTeams(ctx context.Context, res *StageResult) error {
	body, err := o.api.FetchTeams(ctx)
	if err != nil {
		return err
	}
	teams, err := o.transformer.Teams(body)
	if err != nil {
		return err
	}
	res.Fetched = len(teams.Records) + teams.Skipped()
	o.malformed(res, teams.Errors)

	res.Written, err = o.store.LoadTeams(ctx, teams.Records)
	return err
}

// syncTeamSeasons probes the roster of every (season, team) pair. A pair
// whose roster exists is a team-season; a 404 means the team did not play
// that season.
func (o *Orchestrator) syncTeamSeasons(ctx context.Context, res *StageResult) error {
	seasons, err := o.store.ListSeasons(ctx)
	if err != nil {
		return err
	}
	teams, err := o.store.ListTeams(ctx)
	if err != nil {
		return err
	}

	var keys []models.TeamSeasonKey
	for _, s := range seasons {
		for _, t := range teams {
			if o.transformer.KnownInvalid(t.Abbreviation, s.ID) {
				continue
			}
			keys = append(keys, models.TeamSeasonKey{TeamID: t.ID, Abbreviation: t.Abbreviation, SeasonID: s.ID})
		}
	}

	outs, err := fanOut(ctx, o.workers, keys, func(ctx context.Context, k models.TeamSeasonKey) ([]byte, error) {
		return o.api.FetchRoster(ctx, k.Abbreviation, k.SeasonID)
	})
	if err != nil {
		return err
	}

	var found []models.TeamSeasonKey
	for i, out := range outs {
		key := keys[i]
		if out.Err != nil {
			if client.IsNotFound(out.Err) {
				continue
			}
			o.skip(res, fmt.Sprintf("roster %s %d", key.Abbreviation, key.SeasonID), out.Err)
			continue
		}
		res.Fetched++
		found = append(found, key)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	res.Written, err = o.store.LoadTeamSeasons(ctx, found)
	return err
}

// collectRosters fetches and transforms the roster of every stored
// team-season. Players and rosters both read from here.
func (o *Orchestrator) collectRosters(ctx context.Context, res *StageResult) ([]*transform.Roster, error) {
	all, err := o.store.ListTeamSeasons(ctx)
	if err != nil {
		return nil, err
	}
	teamSeasons := make([]models.TeamSeason, 0, len(all))
	for _, ts := range all {
		if !o.transformer.KnownInvalid(ts.Abbreviation, ts.SeasonID) {
			teamSeasons = append(teamSeasons, ts)
		}
	}

	outs, err := fanOut(ctx, o.workers, teamSeasons, func(ctx context.Context, ts models.TeamSeason) ([]byte, error) {
		return o.api.FetchRoster(ctx, ts.Abbreviation, ts.SeasonID)
	})
	if err != nil {
		return nil, err
	}

	rosters := make([]*transform.Roster, 0, len(outs))
	for i, out := range outs {
		ts := teamSeasons[i]
		resource := fmt.Sprintf("roster %s %d", ts.Abbreviation, ts.SeasonID)
		if out.Err != nil {
			o.skip(res, resource, out.Err)
			continue
		}
		roster, err := o.transformer.Roster(out.Value, ts.ID)
		if err != nil {
			o.skip(res, resource, err)
			continue
		}
		res.Fetched++
		rosters = append(rosters, roster)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return rosters, nil
}

func (o *Orchestrator) syncPlayers(ctx context.Context, res *StageResult) error {
	rosters, err := o.collectRosters(ctx, res)
	if err != nil {
		return err
	}

	// A player appears on every roster they were part of; the last one wins
	index := make(map[int]int)
	var players []models.Player
	for _, roster := range rosters {
		o.malformed(res, roster.Players.Errors)
		for _, p := range roster.Players.Records {
			if i, ok := index[p.ID]; ok {
				players[i] = p
				continue
			}
			index[p.ID] = len(players)
			players = append(players, p)
		}
	}

	res.Written, err = o.store.LoadPlayers(ctx, players)
	return err
}

func (o *Orchestrator) syncRosters(ctx context.Context, res *StageResult) error {
	rosters, err := o.collectRosters(ctx, res)
	if err != nil {
		return err
	}

	var entries []models.RosterEntry
	for _, roster := range rosters {
		o.malformed(res, roster.Entries.Errors)
		entries = append(entries, roster.Entries.Records...)
	}

	res.Written, err = o.store.LoadRosters(ctx, entries)
	return err
}

// standingsDate is the day the final regular season standings are read:
// the regular season end date, or today for a season still in progress
func standingsDate(season models.Season, today time.Time) time.Time {
	if season.RegularSeasonEndDate.After(today) {
		return today
	}
	return season.RegularSeasonEndDate
}

func (o *Orchestrator) syncStandings(ctx context.Context, res *StageResult) error {
	seasons, err := o.store.ListSeasons(ctx)
	if err != nil {
		return err
	}
	today := o.now()

	outs, err := fanOut(ctx, 1, seasons, func(ctx context.Context, s models.Season) ([]byte, error) {
		return o.api.FetchStandings(ctx, standingsDate(s, today))
	})
	if err != nil {
		return err
	}

	var standings []models.Standing
	for i, out := range outs {
		season := seasons[i]
		resource := fmt.Sprintf("standings %d", season.ID)
		if out.Err != nil {
			o.skip(res, resource, out.Err)
			continue
		}
		result, err := o.transformer.Standings(out.Value, season.ID)
		if err != nil {
			o.skip(res, resource, err)
			continue
		}
		res.Fetched++
		o.malformed(res, result.Errors)
		standings = append(standings, result.Records...)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	written, unknown, err := o.store.LoadStandings(ctx, standings)
	if err != nil {
		return err
	}
	res.Written = written
	res.Skipped += unknown
	return nil
}

func (o *Orchestrator) syncPlayerStats(ctx context.Context, res *StageResult) error {
	seasonLimit, ok, err := o.store.MinSeasonID(ctx)
	if err != nil {
		return err
	}
	if !ok {
		seasonLimit = o.transformer.SeasonThreshold()
	}

	playerIDs, err := o.store.ListPlayerIDs(ctx)
	if err != nil {
		return err
	}

	outs, err := fanOut(ctx, o.workers, playerIDs, o.api.FetchPlayerLanding)
	if err != nil {
		return err
	}

	var lines []models.StatLine
	for i, out := range outs {
		resource := fmt.Sprintf("player %d", playerIDs[i])
		if out.Err != nil {
			o.skip(res, resource, out.Err)
			continue
		}
		result, err := o.transformer.StatLines(out.Value, seasonLimit)
		if err != nil {
			o.skip(res, resource, err)
			continue
		}
		res.Fetched++
		o.malformed(res, result.Errors)
		lines = append(lines, result.Records...)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	resolved, unresolved, err := o.store.ResolveStatLines(ctx, lines)
	if err != nil {
		return err
	}
	res.Skipped += len(unresolved)

	res.Written, err = o.store.LoadStatLines(ctx, resolved)
	return err
}

// recentTeamSeasons keeps the team-seasons of the limit most recent seasons
func recentTeamSeasons(teamSeasons []models.TeamSeason, limit int) []models.TeamSeason {
	seen := make(map[int]bool)
	var seasonIDs []int
	for _, ts := range teamSeasons {
		if !seen[ts.SeasonID] {
			seen[ts.SeasonID] = true
			seasonIDs = append(seasonIDs, ts.SeasonID)
		}
	}
	sort.Sort(sort.Reverse(sort.IntSlice(seasonIDs)))
	if len(seasonIDs) > limit {
		seasonIDs = seasonIDs[:limit]
	}

	keep := make(map[int]bool, len(seasonIDs))
	for _, id := range seasonIDs {
		keep[id] = true
	}
	var out []models.TeamSeason
	for _, ts := range teamSeasons {
		if keep[ts.SeasonID] {
			out = append(out, ts)
		}
	}
	return out
}

func (o *Orchestrator) syncGames(ctx context.Context, res *StageResult) error {
	all, err := o.store.ListTeamSeasons(ctx)
	if err != nil {
		return err
	}
	teamSeasons := recentTeamSeasons(all, o.gamesSeasonLimit)

	schedules, err := fanOut(ctx, o.workers, teamSeasons, func(ctx context.Context, ts models.TeamSeason) ([]byte, error) {
		return o.api.FetchClubSchedule(ctx, ts.Abbreviation, ts.SeasonID)
	})
	if err != nil {
		return err
	}

	// Every game shows up on both clubs' schedules
	seen := make(map[int]bool)
	var gameIDs []int
	for i, out := range schedules {
		ts := teamSeasons[i]
		resource := fmt.Sprintf("schedule %s %d", ts.Abbreviation, ts.SeasonID)
		if out.Err != nil {
			o.skip(res, resource, out.Err)
			continue
		}
		ids, err := o.transformer.CompletedGames(out.Value)
		if err != nil {
			o.skip(res, resource, err)
			continue
		}
		res.Fetched++
		for _, id := range ids {
			if !seen[id] {
				seen[id] = true
				gameIDs = append(gameIDs, id)
			}
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	games, err := fanOut(ctx, o.workers, gameIDs, o.api.FetchPlayByPlay)
	if err != nil {
		return err
	}

	for i, out := range games {
		resource := fmt.Sprintf("game %d", gameIDs[i])
		if out.Err != nil {
			o.skip(res, resource, out.Err)
			continue
		}
		pbp, bad, err := o.transformer.PlayByPlay(out.Value)
		if err != nil {
			o.skip(res, resource, err)
			continue
		}
		res.Fetched++
		o.malformed(res, bad)

		written, err := o.store.LoadGame(ctx, pbp)
		if errors.Is(err, repository.ErrReferentNotFound) {
			o.skip(res, resource, err)
			continue
		}
		if err != nil {
			return err
		}
		res.Written += written
	}
	return ctx.Err()
}

func (o *Orchestrator) syncAmateurLeagues(ctx context.Context, res *StageResult) error {
	playerIDs, err := o.store.ListPlayerIDs(ctx)
	if err != nil {
		return err
	}

	outs, err := fanOut(ctx, o.workers, playerIDs, o.api.FetchPlayerLanding)
	if err != nil {
		return err
	}

	var updates []models.AmateurLeagueUpdate
	for i, out := range outs {
		resource := fmt.Sprintf("player %d", playerIDs[i])
		if out.Err != nil {
			o.skip(res, resource, out.Err)
			continue
		}
		update, ok, err := o.transformer.AmateurLeague(out.Value)
		if err != nil {
			o.skip(res, resource, err)
			continue
		}
		res.Fetched++
		if ok {
			updates = append(updates, update)
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	res.Written, err = o.store.UpdateAmateurLeagues(ctx, updates)
	return err
}
