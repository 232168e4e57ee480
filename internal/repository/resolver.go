package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// The resolver functions take the handle they run on (pool or transaction)
// explicitly so they can join the caller's batch.

// FindOrCreateConference returns the id of the conference (name, seasonID),
// inserting it on first sight.
func FindOrCreateConference(ctx context.Context, q Querier, name string, seasonID int) (int, error) {
	var id int
	err := q.QueryRow(ctx, `
		SELECT id FROM conferences WHERE name = $1 AND season_id = $2
	`, name, seasonID).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("failed to look up conference %q: %w", name, err)
	}

	err = q.QueryRow(ctx, `
		INSERT INTO conferences (name, season_id)
		VALUES ($1, $2)
		RETURNING id
	`, name, seasonID).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to create conference %q: %w", name, err)
	}

	return id, nil
}

// FindOrCreateDivision returns the id of a division. With a conference the
// key is (name, conference_id); without one it is (name, conference_id IS NULL),
// which is its own grouping rather than a wildcard.
func FindOrCreateDivision(ctx context.Context, q Querier, name string, conferenceID *int, seasonID int) (int, error) {
	var id int
	var err error
	if conferenceID != nil {
		err = q.QueryRow(ctx, `
			SELECT id FROM divisions WHERE name = $1 AND conference_id = $2
		`, name, *conferenceID).Scan(&id)
	} else {
		err = q.QueryRow(ctx, `
			SELECT id FROM divisions WHERE name = $1 AND conference_id IS NULL
		`, name).Scan(&id)
	}
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("failed to look up division %q: %w", name, err)
	}

	err = q.QueryRow(ctx, `
		INSERT INTO divisions (name, conference_id, season_id)
		VALUES ($1, $2, $3)
		RETURNING id
	`, name, conferenceID, seasonID).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to create division %q: %w", name, err)
	}

	return id, nil
}

// FindTeamID looks up a team by abbreviation. A missing team is (0, false, nil).
func FindTeamID(ctx context.Context, q Querier, abbreviation string) (int, bool, error) {
	var id int
	err := q.QueryRow(ctx, `
		SELECT id FROM teams WHERE abbreviation = $1
	`, abbreviation).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to look up team %q: %w", abbreviation, err)
	}
	return id, true, nil
}

// FindTeamSeasonIDs returns every team-season of a team called teamName in
// seasonID, lowest id first. Team names are not unique across relocations.
func FindTeamSeasonIDs(ctx context.Context, q Querier, teamName string, seasonID int) ([]int, error) {
	rows, err := q.Query(ctx, `
		SELECT ts.id
		FROM team_seasons ts
		JOIN teams t ON ts.team_id = t.id
		WHERE t.name = $1 AND ts.season_id = $2
		ORDER BY ts.id
	`, teamName, seasonID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up team season %q %d: %w", teamName, seasonID, err)
	}

	ids, err := pgx.CollectRows(rows, pgx.RowTo[int])
	if err != nil {
		return nil, fmt.Errorf("failed to scan team seasons: %w", err)
	}
	return ids, nil
}

// FindTeamSeasonID looks up the team-season for (teamID, seasonID)
func FindTeamSeasonID(ctx context.Context, q Querier, teamID, seasonID int) (int, bool, error) {
	var id int
	err := q.QueryRow(ctx, `
		SELECT id FROM team_seasons WHERE team_id = $1 AND season_id = $2
	`, teamID, seasonID).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to look up team season %d %d: %w", teamID, seasonID, err)
	}
	return id, true, nil
}

// TeamSeasonMatch is the outcome of ResolveTeamSeason
type TeamSeasonMatch struct {
	ID        int
	Found     bool
	Ambiguous bool // name lookup matched more than one row; ID is the lowest
}

// ResolveTeamSeason prefers (teamID, seasonID) when the team id is known and
// falls back to a lookup by team name.
func ResolveTeamSeason(ctx context.Context, q Querier, teamID *int, teamName string, seasonID int) (TeamSeasonMatch, error) {
	if teamID != nil {
		id, ok, err := FindTeamSeasonID(ctx, q, *teamID, seasonID)
		if err != nil {
			return TeamSeasonMatch{}, err
		}
		return TeamSeasonMatch{ID: id, Found: ok}, nil
	}

	ids, err := FindTeamSeasonIDs(ctx, q, teamName, seasonID)
	if err != nil {
		return TeamSeasonMatch{}, err
	}
	if len(ids) == 0 {
		return TeamSeasonMatch{}, nil
	}
	return TeamSeasonMatch{ID: ids[0], Found: true, Ambiguous: len(ids) > 1}, nil
}
