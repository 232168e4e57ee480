package repository

import (
	"context"
	"errors"
	"fmt"

	"nhl_stats/ingestion/internal/models"

	"github.com/jackc/pgx/v5"
)

// ErrReferentNotFound means a row this record points at does not exist yet.
// The record is skipped rather than failing the batch.
var ErrReferentNotFound = errors.New("referenced row not found")

// GameRepository handles game database operations
type GameRepository struct {
	db *Database
}

// GameLoadResult reports what LoadGame changed
type GameLoadResult struct {
	GameInserted bool
	Goals        int
	HitsApplied  int
}

// Written is the number of rows inserted or updated
func (g GameLoadResult) Written() int {
	n := g.Goals + g.HitsApplied
	if g.GameInserted {
		n++
	}
	return n
}

// LoadGame stores one game with its goals and hits in a single transaction.
// A hit increments player_stats.hits only when its (game, event) pair is not
// in game_hit_events yet, so replaying a game is safe. Only regular season
// games carry hits; player_stats_playoffs has no hits column.
func (r *GameRepository) LoadGame(ctx context.Context, pbp *models.PlayByPlay) (GameLoadResult, error) {
	var result GameLoadResult

	_, err := r.db.runBatch(ctx, "games", "load game", 1, func(tx pgx.Tx) (int, error) {
		result = GameLoadResult{}
		game := pbp.Game

		homeID, ok, err := FindTeamSeasonID(ctx, tx, game.HomeTeamID, game.SeasonID)
		if err != nil {
			return 0, err
		}
		if !ok {
			return 0, fmt.Errorf("home team %d season %d: %w", game.HomeTeamID, game.SeasonID, ErrReferentNotFound)
		}
		awayID, ok, err := FindTeamSeasonID(ctx, tx, game.AwayTeamID, game.SeasonID)
		if err != nil {
			return 0, err
		}
		if !ok {
			return 0, fmt.Errorf("away team %d season %d: %w", game.AwayTeamID, game.SeasonID, ErrReferentNotFound)
		}

		sides := map[int]int{game.HomeTeamID: homeID, game.AwayTeamID: awayID}

		tag, err := tx.Exec(ctx, `
			INSERT INTO games (id, season_id, date, home_team_id, away_team_id, home_score, away_score)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (id) DO NOTHING
		`, game.ID, game.SeasonID, game.Date, homeID, awayID, game.HomeScore, game.AwayScore)
		if err != nil {
			return 0, fmt.Errorf("game %d: %w", game.ID, err)
		}
		result.GameInserted = tag.RowsAffected() == 1

		for _, goal := range pbp.Goals {
			teamSeasonID, ok := sides[goal.TeamID]
			if !ok {
				r.db.logger.Warn().
					Int("game_id", game.ID).
					Int("goal_order", goal.GoalOrder).
					Int("team_id", goal.TeamID).
					Msg("Goal credited to a team not in the game, skipping")
				continue
			}
			tag, err := tx.Exec(ctx, `
				INSERT INTO game_goals (
					game_id, team_season_id, goal_order, period, time_in_period,
					situation_code, home_score, away_score
				) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
				ON CONFLICT (game_id, goal_order) DO NOTHING
			`, game.ID, teamSeasonID, goal.GoalOrder, goal.Period, goal.TimeInPeriod,
				goal.SituationCode, goal.HomeScore, goal.AwayScore)
			if err != nil {
				return 0, fmt.Errorf("game %d goal %d: %w", game.ID, goal.GoalOrder, err)
			}
			result.Goals += int(tag.RowsAffected())
		}

		if !game.IsRegularSeason() {
			return result.Written(), nil
		}

		for _, hit := range pbp.Hits {
			teamSeasonID, ok := sides[hit.TeamID]
			if !ok {
				continue
			}
			applied, err := applyHit(ctx, tx, hit, teamSeasonID)
			if err != nil {
				return 0, err
			}
			if applied {
				result.HitsApplied++
			}
		}

		return result.Written(), nil
	})
	if err != nil {
		return GameLoadResult{}, err
	}

	return result, nil
}

// applyHit increments the player's hits for an event not yet in the ledger,
// then records the event. An event with no player_stats row to update is
// left out of the ledger so a later load can still apply it.
func applyHit(ctx context.Context, tx pgx.Tx, hit models.HitEvent, teamSeasonID int) (bool, error) {
	tag, err := tx.Exec(ctx, `
		UPDATE player_stats
		SET hits = hits + 1
		WHERE team_season_id = $1 AND player_id = $2
		AND NOT EXISTS (
			SELECT 1 FROM game_hit_events WHERE game_id = $3 AND event_id = $4
		)
	`, teamSeasonID, hit.PlayerID, hit.GameID, hit.EventID)
	if err != nil {
		return false, fmt.Errorf("hit event %d/%d: %w", hit.GameID, hit.EventID, err)
	}
	if tag.RowsAffected() == 0 {
		return false, nil
	}

	tag, err = tx.Exec(ctx, `
		INSERT INTO game_hit_events (game_id, event_id, player_id, team_season_id)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (game_id, event_id) DO NOTHING
	`, hit.GameID, hit.EventID, hit.PlayerID, teamSeasonID)
	if err != nil {
		return false, fmt.Errorf("hit event %d/%d: %w", hit.GameID, hit.EventID, err)
	}
	if tag.RowsAffected() == 0 {
		// recorded by a concurrent load after our UPDATE; roll back the increment
		return false, fmt.Errorf("hit event %d/%d recorded concurrently", hit.GameID, hit.EventID)
	}
	return true, nil
}
