package repository

import (
	"context"
	"fmt"

	"nhl_stats/ingestion/internal/models"

	"github.com/jackc/pgx/v5"
)

// PlayerRepository handles player database operations
type PlayerRepository struct {
	db *Database
}

// Load upserts player profiles. Players are never deleted.
func (r *PlayerRepository) Load(ctx context.Context, players []models.Player) (int, error) {
	query := `
		INSERT INTO players (id, first_name, last_name, birthdate, country, shoots_catches)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			first_name = EXCLUDED.first_name,
			last_name = EXCLUDED.last_name,
			birthdate = EXCLUDED.birthdate,
			country = EXCLUDED.country,
			shoots_catches = EXCLUDED.shoots_catches
	`

	return r.db.runBatch(ctx, "players", "upsert", len(players), func(tx pgx.Tx) (int, error) {
		return execEach(ctx, tx, query, players, func(p models.Player) []any {
			return []any{p.ID, p.FirstName, p.LastName, p.Birthdate, p.Country, p.ShootsCatches}
		})
	})
}

// UpdateAmateurLeagues records the league each player came up through
func (r *PlayerRepository) UpdateAmateurLeagues(ctx context.Context, updates []models.AmateurLeagueUpdate) (int, error) {
	query := `
		UPDATE players
		SET amateur_league = $2
		WHERE id = $1
	`

	return r.db.runBatch(ctx, "players", "update amateur league", len(updates), func(tx pgx.Tx) (int, error) {
		return execEach(ctx, tx, query, updates, func(u models.AmateurLeagueUpdate) []any {
			return []any{u.PlayerID, u.League}
		})
	})
}

// ListIDs returns every stored player id in ascending order
func (r *PlayerRepository) ListIDs(ctx context.Context) ([]int, error) {
	rows, err := r.db.conn.Query(ctx, `SELECT id FROM players ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list players: %w", err)
	}

	ids, err := pgx.CollectRows(rows, pgx.RowTo[int])
	if err != nil {
		return nil, fmt.Errorf("failed to scan players: %w", err)
	}
	return ids, nil
}

// RosterRepository handles roster database operations
type RosterRepository struct {
	db *Database
}

// Load upserts roster slots. The (team_season_id, player_id) key never
// changes; only jersey, position, height and weight are updated.
func (r *RosterRepository) Load(ctx context.Context, entries []models.RosterEntry) (int, error) {
	query := `
		INSERT INTO rosters (
			team_season_id, player_id, jersey_number, position,
			player_height_inches, player_weight_pounds
		) VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (team_season_id, player_id) DO UPDATE SET
			jersey_number = EXCLUDED.jersey_number,
			position = EXCLUDED.position,
			player_height_inches = EXCLUDED.player_height_inches,
			player_weight_pounds = EXCLUDED.player_weight_pounds
	`

	return r.db.runBatch(ctx, "rosters", "upsert", len(entries), func(tx pgx.Tx) (int, error) {
		return execEach(ctx, tx, query, entries, func(e models.RosterEntry) []any {
			return []any{
				e.TeamSeasonID, e.PlayerID, e.JerseyNumber, e.Position,
				e.PlayerHeightInches, e.PlayerWeightPounds,
			}
		})
	})
}
