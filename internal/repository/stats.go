package repository

import (
	"context"
	"fmt"

	"nhl_stats/ingestion/internal/models"

	"github.com/jackc/pgx/v5"
)

// Stat tables by season type. Regular season lines go to player_stats,
// every other game type to player_stats_playoffs.
const (
	regularSeasonStatsTable = "player_stats"
	playoffStatsTable       = "player_stats_playoffs"
)

var statUpsertQueries = map[string]string{
	regularSeasonStatsTable: statUpsertQuery(regularSeasonStatsTable),
	playoffStatsTable:       statUpsertQuery(playoffStatsTable),
}

func statUpsertQuery(table string) string {
	return fmt.Sprintf(`
		INSERT INTO %s (
			player_id, team_season_id, goals, assists, points, plus_minus,
			average_toi, pim, games_played
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (player_id, team_season_id) DO UPDATE SET
			goals = EXCLUDED.goals,
			assists = EXCLUDED.assists,
			points = EXCLUDED.points,
			plus_minus = EXCLUDED.plus_minus,
			average_toi = EXCLUDED.average_toi,
			pim = EXCLUDED.pim,
			games_played = EXCLUDED.games_played
	`, table)
}

// StatTable returns the table a stat line is stored in
func StatTable(line models.StatLine) string {
	if line.IsRegularSeason() {
		return regularSeasonStatsTable
	}
	return playoffStatsTable
}

// StatsRepository handles player stat database operations
type StatsRepository struct {
	db *Database
}

// Load upserts stat lines into their season-type table. Lines must carry a
// resolved TeamSeasonID.
func (r *StatsRepository) Load(ctx context.Context, lines []models.StatLine) (int, error) {
	return r.db.runBatch(ctx, "player_stats", "upsert", len(lines), func(tx pgx.Tx) (int, error) {
		written := 0
		for i, line := range lines {
			query := statUpsertQueries[StatTable(line)]
			tag, err := tx.Exec(ctx, query,
				line.PlayerID, line.TeamSeasonID, line.Goals, line.Assists, line.Points,
				line.PlusMinus, line.AverageTOI, line.PIM, line.GamesPlayed,
			)
			if err != nil {
				return 0, fmt.Errorf("stat line %d (player %d season %d): %w", i, line.PlayerID, line.SeasonID, err)
			}
			written += int(tag.RowsAffected())
		}
		return written, nil
	})
}

// ResolveTeamSeasons fills TeamSeasonID on each line. Lines whose team-season
// cannot be found are returned separately; ambiguous name matches are logged.
func (r *StatsRepository) ResolveTeamSeasons(ctx context.Context, lines []models.StatLine) (resolved, unresolved []models.StatLine, err error) {
	for _, line := range lines {
		match, err := ResolveTeamSeason(ctx, r.db.conn, line.TeamID, line.TeamName, line.SeasonID)
		if err != nil {
			return nil, nil, err
		}
		if !match.Found {
			r.db.logger.Warn().
				Int("player_id", line.PlayerID).
				Str("team", line.TeamName).
				Int("season_id", line.SeasonID).
				Msg("No team season found for stat line")
			unresolved = append(unresolved, line)
			continue
		}
		if match.Ambiguous {
			r.db.logger.Warn().
				Int("player_id", line.PlayerID).
				Str("team", line.TeamName).
				Int("season_id", line.SeasonID).
				Int("team_season_id", match.ID).
				Msg("Team name matches several team seasons, using lowest id")
		}
		line.TeamSeasonID = match.ID
		resolved = append(resolved, line)
	}
	return resolved, unresolved, nil
}
