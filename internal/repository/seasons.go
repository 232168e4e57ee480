package repository

import (
	"context"
	"fmt"

	"nhl_stats/ingestion/internal/models"

	"github.com/jackc/pgx/v5"
)

// SeasonRepository handles season database operations
type SeasonRepository struct {
	db *Database
}

// Load upserts seasons, updating every derived field on conflict
func (r *SeasonRepository) Load(ctx context.Context, seasons []models.Season) (int, error) {
	query := `
		INSERT INTO seasons (
			id, season_start_year, season_end_year, wild_card_in_use, ties_in_use,
			point_for_ot_loss, regular_season_end_date, playoff_end_date
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			season_start_year = EXCLUDED.season_start_year,
			season_end_year = EXCLUDED.season_end_year,
			wild_card_in_use = EXCLUDED.wild_card_in_use,
			ties_in_use = EXCLUDED.ties_in_use,
			point_for_ot_loss = EXCLUDED.point_for_ot_loss,
			regular_season_end_date = EXCLUDED.regular_season_end_date,
			playoff_end_date = EXCLUDED.playoff_end_date
	`

	return r.db.runBatch(ctx, "seasons", "upsert", len(seasons), func(tx pgx.Tx) (int, error) {
		return execEach(ctx, tx, query, seasons, func(s models.Season) []any {
			return []any{
				s.ID, s.SeasonStartYear, s.SeasonEndYear, s.WildCardInUse, s.TiesInUse,
				s.PointForOTLoss, s.RegularSeasonEndDate, s.PlayoffEndDate,
			}
		})
	})
}

// List returns all stored seasons ordered by id
func (r *SeasonRepository) List(ctx context.Context) ([]models.Season, error) {
	query := `
		SELECT id, season_start_year, season_end_year, wild_card_in_use, ties_in_use,
		       point_for_ot_loss, regular_season_end_date, playoff_end_date
		FROM seasons
		ORDER BY id
	`

	rows, err := r.db.conn.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list seasons: %w", err)
	}

	seasons, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.Season, error) {
		var s models.Season
		err := row.Scan(
			&s.ID, &s.SeasonStartYear, &s.SeasonEndYear, &s.WildCardInUse, &s.TiesInUse,
			&s.PointForOTLoss, &s.RegularSeasonEndDate, &s.PlayoffEndDate,
		)
		return s, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan seasons: %w", err)
	}

	return seasons, nil
}

// MinID returns the earliest stored season id. ok is false when no seasons exist.
func (r *SeasonRepository) MinID(ctx context.Context) (id int, ok bool, err error) {
	var minID *int
	if err := r.db.conn.QueryRow(ctx, `SELECT MIN(id) FROM seasons`).Scan(&minID); err != nil {
		return 0, false, fmt.Errorf("failed to get season limit: %w", err)
	}
	if minID == nil {
		return 0, false, nil
	}
	return *minID, true, nil
}
