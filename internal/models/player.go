package models

import (
	"database/sql"
	"encoding/json"
)

// Player represents an NHL player profile
type Player struct {
	ID            int            `db:"id"`
	FirstName     string         `db:"first_name"`
	LastName      string         `db:"last_name"`
	Birthdate     sql.NullTime   `db:"birthdate"`
	Country       sql.NullString `db:"country"`
	ShootsCatches sql.NullString `db:"shoots_catches"`
	AmateurLeague sql.NullString `db:"amateur_league"`
}

// RosterEntry is a player's slot on a team-season roster
type RosterEntry struct {
	TeamSeasonID       int           `db:"team_season_id"`
	PlayerID           int           `db:"player_id"`
	JerseyNumber       sql.NullInt32 `db:"jersey_number"`
	Position           string        `db:"position"`
	PlayerHeightInches sql.NullInt32 `db:"player_height_inches"`
	PlayerWeightPounds sql.NullInt32 `db:"player_weight_pounds"`
}

// RosterInput is the /v1/roster/{team}/{season} payload
type RosterInput struct {
	Forwards   []json.RawMessage `json:"forwards"`
	Defensemen []json.RawMessage `json:"defensemen"`
	Goalies    []json.RawMessage `json:"goalies"`
}

// All returns forwards, defensemen and goalies in that order
func (ri *RosterInput) All() []json.RawMessage {
	all := make([]json.RawMessage, 0, len(ri.Forwards)+len(ri.Defensemen)+len(ri.Goalies))
	all = append(all, ri.Forwards...)
	all = append(all, ri.Defensemen...)
	all = append(all, ri.Goalies...)
	return all
}

// RosterPlayerInput is one player of a roster payload
type RosterPlayerInput struct {
	ID             int           `json:"id" validate:"required"`
	FirstName      LocalizedName `json:"firstName" validate:"required"`
	LastName       LocalizedName `json:"lastName" validate:"required"`
	SweaterNumber  *int          `json:"sweaterNumber"`
	PositionCode   string        `json:"positionCode" validate:"required"`
	ShootsCatches  string        `json:"shootsCatches"`
	HeightInInches *int          `json:"heightInInches"`
	WeightInPounds *int          `json:"weightInPounds"`
	BirthDate      string        `json:"birthDate"`
	BirthCountry   string        `json:"birthCountry"`
}

// ToPlayer converts RosterPlayerInput (from API) to Player model
func (ri *RosterPlayerInput) ToPlayer() *Player {
	player := &Player{
		ID:        ri.ID,
		FirstName: ri.FirstName.String(),
		LastName:  ri.LastName.String(),
	}

	if ri.BirthDate != "" {
		if d, err := ParseDate(ri.BirthDate); err == nil {
			player.Birthdate = sql.NullTime{Time: d, Valid: true}
		}
	}
	if ri.BirthCountry != "" {
		player.Country = sql.NullString{String: ri.BirthCountry, Valid: true}
	}
	if ri.ShootsCatches != "" {
		player.ShootsCatches = sql.NullString{String: ri.ShootsCatches, Valid: true}
	}

	return player
}

// ToRosterEntry converts RosterPlayerInput (from API) to a roster slot on teamSeasonID
func (ri *RosterPlayerInput) ToRosterEntry(teamSeasonID int) *RosterEntry {
	entry := &RosterEntry{
		TeamSeasonID: teamSeasonID,
		PlayerID:     ri.ID,
		Position:     ri.PositionCode,
	}

	if ri.SweaterNumber != nil {
		entry.JerseyNumber = sql.NullInt32{Int32: int32(*ri.SweaterNumber), Valid: true}
	}
	if ri.HeightInInches != nil {
		entry.PlayerHeightInches = sql.NullInt32{Int32: int32(*ri.HeightInInches), Valid: true}
	}
	if ri.WeightInPounds != nil {
		entry.PlayerWeightPounds = sql.NullInt32{Int32: int32(*ri.WeightInPounds), Valid: true}
	}

	return entry
}

// AmateurLeagueUpdate sets the league a player came from before reaching the NHL/AHL
type AmateurLeagueUpdate struct {
	PlayerID int
	League   string
}
