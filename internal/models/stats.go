package models

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Game types on season totals
const (
	GameTypePreseason  = 1
	GameTypeRegular    = 2
	GameTypePostseason = 3
)

const (
	LeagueNHL          = "NHL"
	PositionGoaltender = "G"
)

// StatLine is a skater's aggregated totals for one team-season and game type.
// Regular season lines (game type 2) and everything else are stored separately.
type StatLine struct {
	PlayerID     int           `db:"player_id"`
	TeamSeasonID int           `db:"team_season_id"`
	SeasonType   int           `db:"-"`
	Goals        int           `db:"goals"`
	Assists      int           `db:"assists"`
	Points       int           `db:"points"`
	PlusMinus    int           `db:"plus_minus"`
	AverageTOI   time.Duration `db:"average_toi"`
	PIM          int           `db:"pim"`
	GamesPlayed  int           `db:"games_played"`

	// Used to resolve TeamSeasonID; not stored
	SeasonID int    `db:"-"`
	TeamName string `db:"-"`
	TeamID   *int   `db:"-"`
}

// IsRegularSeason reports whether the line belongs in the regular season table
func (s *StatLine) IsRegularSeason() bool {
	return s.SeasonType == GameTypeRegular
}

// PlayerLandingInput is the /v1/player/{id}/landing payload
type PlayerLandingInput struct {
	PlayerID     int               `json:"playerId"`
	Position     string            `json:"position"`
	SeasonTotals []json.RawMessage `json:"seasonTotals"`
}

// SeasonTotalInput is one entry of a player's seasonTotals
type SeasonTotalInput struct {
	Season       int           `json:"season" validate:"required"`
	GameTypeID   int           `json:"gameTypeId" validate:"required"`
	LeagueAbbrev string        `json:"leagueAbbrev" validate:"required"`
	TeamName     LocalizedName `json:"teamName"`
	TeamID       *int          `json:"teamId"`
	Goals        *int          `json:"goals"`
	Assists      *int          `json:"assists"`
	Points       *int          `json:"points"`
	PlusMinus    *int          `json:"plusMinus"`
	PIM          *int          `json:"pim"`
	GamesPlayed  *int          `json:"gamesPlayed"`
	AvgTOI       string        `json:"avgToi"`
}

// statLineInput holds the fields required once an entry is known to be a stored skater line
type statLineInput struct {
	TeamName    LocalizedName `validate:"required"`
	Goals       *int          `validate:"required"`
	Assists     *int          `validate:"required"`
	Points      *int          `validate:"required"`
	PlusMinus   *int          `validate:"required"`
	PIM         *int          `validate:"required"`
	GamesPlayed *int          `validate:"required"`
	AvgTOI      string        `validate:"required"`
}

// Required returns the fields that must be present for ToStatLine to succeed
func (si *SeasonTotalInput) Required() any {
	return &statLineInput{
		TeamName:    si.TeamName,
		Goals:       si.Goals,
		Assists:     si.Assists,
		Points:      si.Points,
		PlusMinus:   si.PlusMinus,
		PIM:         si.PIM,
		GamesPlayed: si.GamesPlayed,
		AvgTOI:      si.AvgTOI,
	}
}

// ToStatLine converts a validated SeasonTotalInput to a StatLine for playerID
func (si *SeasonTotalInput) ToStatLine(playerID int) (*StatLine, error) {
	toi, err := ParseTOI(si.AvgTOI)
	if err != nil {
		return nil, err
	}

	return &StatLine{
		PlayerID:    playerID,
		SeasonType:  si.GameTypeID,
		Goals:       *si.Goals,
		Assists:     *si.Assists,
		Points:      *si.Points,
		PlusMinus:   *si.PlusMinus,
		AverageTOI:  toi,
		PIM:         *si.PIM,
		GamesPlayed: *si.GamesPlayed,
		SeasonID:    si.Season,
		TeamName:    si.TeamName.String(),
		TeamID:      si.TeamID,
	}, nil
}

// ParseTOI parses an "M:SS" time-on-ice value
func ParseTOI(s string) (time.Duration, error) {
	minutes, seconds, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return 0, fmt.Errorf("invalid time on ice %q", s)
	}
	m, err := strconv.Atoi(minutes)
	if err != nil || m < 0 {
		return 0, fmt.Errorf("invalid time on ice %q", s)
	}
	sec, err := strconv.Atoi(seconds)
	if err != nil || sec < 0 || sec > 59 {
		return 0, fmt.Errorf("invalid time on ice %q", s)
	}
	return time.Duration(m)*time.Minute + time.Duration(sec)*time.Second, nil
}
