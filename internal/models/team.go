package models

import (
	"database/sql"
)

// Team represents an NHL franchise entry from the stats API
type Team struct {
	ID           int           `db:"id"`
	FranchiseID  sql.NullInt64 `db:"franchise_id"`
	Name         string        `db:"name"`
	Abbreviation string        `db:"abbreviation"`
}

// TeamInput is one entry of the stats API team list
type TeamInput struct {
	ID          int    `json:"id" validate:"required"`
	FranchiseID *int   `json:"franchiseId"`
	FullName    string `json:"fullName" validate:"required"`
	TriCode     string `json:"triCode" validate:"required"`
}

// ToTeam converts TeamInput (from API) to Team model
func (ti *TeamInput) ToTeam() *Team {
	team := &Team{
		ID:           ti.ID,
		Name:         ti.FullName,
		Abbreviation: ti.TriCode,
	}

	if ti.FranchiseID != nil {
		team.FranchiseID = sql.NullInt64{Int64: int64(*ti.FranchiseID), Valid: true}
	}

	return team
}

// TeamSeason is a team's participation in one season
type TeamSeason struct {
	ID           int           `db:"id"`
	TeamID       int           `db:"team_id"`
	SeasonID     int           `db:"season_id"`
	Wins         sql.NullInt32 `db:"wins"`
	Losses       sql.NullInt32 `db:"losses"`
	OT           sql.NullInt32 `db:"ot"`
	Points       sql.NullInt32 `db:"points"`
	DivisionID   sql.NullInt32 `db:"division_id"`
	Abbreviation string        `db:"abbreviation"` // joined from teams
}

// TeamSeasonKey identifies a (team, season) pair before a team_seasons row exists
type TeamSeasonKey struct {
	TeamID       int
	Abbreviation string
	SeasonID     int
}
