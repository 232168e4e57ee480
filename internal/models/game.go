package models

import (
	"encoding/json"
	"time"
)

// Game is one played game. Home/away refer to team_seasons rows.
type Game struct {
	ID               int       `db:"id"`
	SeasonID         int       `db:"season_id"`
	Date             time.Time `db:"date"`
	HomeTeamSeasonID int       `db:"home_team_id"`
	AwayTeamSeasonID int       `db:"away_team_id"`
	HomeScore        int       `db:"home_score"`
	AwayScore        int       `db:"away_score"`
	GameType         int       `db:"-"`

	// NHL team ids, used to resolve the team-season ids
	HomeTeamID int `db:"-"`
	AwayTeamID int `db:"-"`
}

// IsRegularSeason reports whether the game counts toward regular season totals
func (g Game) IsRegularSeason() bool {
	return g.GameType == GameTypeRegular
}

// GameTypeFromID reads the game type from digits 5-6 of an NHL game id
// (2023020001 is regular season, 2023030111 playoffs)
func GameTypeFromID(id int) int {
	return (id / 10000) % 100
}

// GameGoal is one goal in scoring order (0-based)
type GameGoal struct {
	GameID        int    `db:"game_id"`
	TeamSeasonID  int    `db:"team_season_id"`
	GoalOrder     int    `db:"goal_order"`
	Period        int    `db:"period"`
	TimeInPeriod  string `db:"time_in_period"`
	SituationCode string `db:"situation_code"`
	HomeScore     int    `db:"home_score"`
	AwayScore     int    `db:"away_score"`

	TeamID int `db:"-"`
}

// HitEvent is one hit credited to a player. (GameID, EventID) is unique, so
// replaying a game never counts the same hit twice.
type HitEvent struct {
	GameID       int `db:"game_id"`
	EventID      int `db:"event_id"`
	PlayerID     int `db:"player_id"`
	TeamSeasonID int `db:"team_season_id"`

	TeamID int `db:"-"`
}

// PlayByPlay is a transformed game with its goals and hits
type PlayByPlay struct {
	Game  Game
	Goals []GameGoal
	Hits  []HitEvent
}

// PlayByPlayInput is the /v1/gamecenter/{id}/play-by-play payload
type PlayByPlayInput struct {
	ID       int               `json:"id" validate:"required"`
	Season   int               `json:"season" validate:"required"`
	GameType int               `json:"gameType"`
	GameDate string            `json:"gameDate" validate:"required"`
	HomeTeam GameTeamInput     `json:"homeTeam"`
	AwayTeam GameTeamInput     `json:"awayTeam"`
	Plays    []json.RawMessage `json:"plays"`
}

// GameTeamInput is the home or away side of a game payload
type GameTeamInput struct {
	ID         int           `json:"id" validate:"required"`
	CommonName LocalizedName `json:"commonName"`
	Abbrev     string        `json:"abbrev"`
	Score      int           `json:"score"`
}

// PlayInput is one event in a play-by-play stream
type PlayInput struct {
	EventID          int    `json:"eventId"`
	TypeDescKey      string `json:"typeDescKey"`
	TimeInPeriod     string `json:"timeInPeriod"`
	SituationCode    string `json:"situationCode"`
	PeriodDescriptor struct {
		Number int `json:"number"`
	} `json:"periodDescriptor"`
	Details struct {
		EventOwnerTeamID int `json:"eventOwnerTeamId"`
		HittingPlayerID  int `json:"hittingPlayerId"`
		HomeScore        int `json:"homeScore"`
		AwayScore        int `json:"awayScore"`
	} `json:"details"`
}

// ScheduleInput is the /v1/club-schedule-season/{team}/{season} payload
type ScheduleInput struct {
	Games []ScheduleGameInput `json:"games"`
}

// ScheduleGameInput is one scheduled game
type ScheduleGameInput struct {
	ID        int    `json:"id"`
	Season    int    `json:"season"`
	GameType  int    `json:"gameType"`
	GameState string `json:"gameState"`
}

// Completed reports whether the game has a final result
func (g ScheduleGameInput) Completed() bool {
	return g.GameState == "OFF" || g.GameState == "FINAL"
}
