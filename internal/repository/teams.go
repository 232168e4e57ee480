package repository

import (
	"context"
	"fmt"

	"nhl_stats/ingestion/internal/models"

	"github.com/jackc/pgx/v5"
)

// TeamRepository handles team database operations
type TeamRepository struct {
	db *Database
}

// Load inserts teams; an existing id is left untouched (first write wins)
func (r *TeamRepository) Load(ctx context.Context, teams []models.Team) (int, error) {
	query := `
		INSERT INTO teams (id, name, abbreviation, franchise_id)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO NOTHING
	`

	return r.db.runBatch(ctx, "teams", "insert", len(teams), func(tx pgx.Tx) (int, error) {
		return execEach(ctx, tx, query, teams, func(t models.Team) []any {
			return []any{t.ID, t.Name, t.Abbreviation, t.FranchiseID}
		})
	})
}

// List returns all stored teams ordered by id
func (r *TeamRepository) List(ctx context.Context) ([]models.Team, error) {
	query := `
		SELECT id, franchise_id, name, abbreviation
		FROM teams
		ORDER BY id
	`

	rows, err := r.db.conn.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list teams: %w", err)
	}

	teams, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.Team, error) {
		var t models.Team
		err := row.Scan(&t.ID, &t.FranchiseID, &t.Name, &t.Abbreviation)
		return t, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan teams: %w", err)
	}

	return teams, nil
}

// TeamSeasonRepository handles team_seasons database operations
type TeamSeasonRepository struct {
	db *Database
}

// Load creates team-season rows observed through a roster; existing rows are left as is
func (r *TeamSeasonRepository) Load(ctx context.Context, keys []models.TeamSeasonKey) (int, error) {
	query := `
		INSERT INTO team_seasons (team_id, season_id)
		VALUES ($1, $2)
		ON CONFLICT (team_id, season_id) DO NOTHING
	`

	return r.db.runBatch(ctx, "team_seasons", "insert", len(keys), func(tx pgx.Tx) (int, error) {
		return execEach(ctx, tx, query, keys, func(k models.TeamSeasonKey) []any {
			return []any{k.TeamID, k.SeasonID}
		})
	})
}

// LoadStandings applies a standings snapshot: resolves conference and
// division, then records wins/losses/ot/points/division on the team-season.
// A standing for an unknown team abbreviation is skipped, not failed.
func (r *TeamSeasonRepository) LoadStandings(ctx context.Context, standings []models.Standing) (written, skipped int, err error) {
	query := `
		INSERT INTO team_seasons (team_id, season_id, wins, losses, ot, points, division_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (team_id, season_id) DO UPDATE SET
			wins = EXCLUDED.wins,
			losses = EXCLUDED.losses,
			ot = EXCLUDED.ot,
			points = EXCLUDED.points,
			division_id = EXCLUDED.division_id
	`

	written, err = r.db.runBatch(ctx, "team_seasons", "update standings", len(standings), func(tx pgx.Tx) (int, error) {
		skipped = 0
		n := 0
		for _, s := range standings {
			var conferenceID *int
			if s.ConferenceName != nil {
				id, err := FindOrCreateConference(ctx, tx, *s.ConferenceName, s.SeasonID)
				if err != nil {
					return 0, err
				}
				conferenceID = &id
			}

			divisionID, err := FindOrCreateDivision(ctx, tx, s.DivisionName, conferenceID, s.SeasonID)
			if err != nil {
				return 0, err
			}

			teamID, ok, err := FindTeamID(ctx, tx, s.TeamAbbrev)
			if err != nil {
				return 0, err
			}
			if !ok {
				r.db.logger.Warn().
					Str("abbreviation", s.TeamAbbrev).
					Int("season_id", s.SeasonID).
					Msg("Team not found for standing, skipping")
				skipped++
				continue
			}

			tag, err := tx.Exec(ctx, query, teamID, s.SeasonID, s.Wins, s.Losses, s.OT, s.Points, divisionID)
			if err != nil {
				return 0, fmt.Errorf("standing %s %d: %w", s.TeamAbbrev, s.SeasonID, err)
			}
			n += int(tag.RowsAffected())
		}
		return n, nil
	})
	if err != nil {
		return 0, 0, err
	}
	return written, skipped, nil
}

// List returns every team-season with its team abbreviation, ordered by season then team
func (r *TeamSeasonRepository) List(ctx context.Context) ([]models.TeamSeason, error) {
	query := `
		SELECT ts.id, ts.team_id, ts.season_id, ts.wins, ts.losses, ts.ot, ts.points,
		       ts.division_id, t.abbreviation
		FROM team_seasons ts
		JOIN teams t ON ts.team_id = t.id
		ORDER BY ts.season_id, t.abbreviation
	`

	rows, err := r.db.conn.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list team seasons: %w", err)
	}

	teamSeasons, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.TeamSeason, error) {
		var ts models.TeamSeason
		err := row.Scan(
			&ts.ID, &ts.TeamID, &ts.SeasonID, &ts.Wins, &ts.Losses, &ts.OT, &ts.Points,
			&ts.DivisionID, &ts.Abbreviation,
		)
		return ts, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan team seasons: %w", err)
	}

	return teamSeasons, nil
}
