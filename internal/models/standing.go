package models

// Standing is one team's line in a standings snapshot. It is never stored
// directly; it updates team_seasons and resolves divisions/conferences.
type Standing struct {
	SeasonID       int
	TeamAbbrev     string
	Wins           int
	Losses         int
	OT             int
	Points         int
	DivisionName   string
	ConferenceName *string // absent for seasons without conferences
}

// StandingsInput is the /v1/standings/{date} payload
type StandingsInput struct {
	Standings []StandingInput `json:"standings"`
}

// StandingInput is one team in a standings payload
type StandingInput struct {
	TeamAbbrev     LocalizedName `json:"teamAbbrev" validate:"required"`
	Wins           *int          `json:"wins" validate:"required"`
	Losses         *int          `json:"losses" validate:"required"`
	OTLosses       *int          `json:"otLosses" validate:"required"`
	Points         *int          `json:"points" validate:"required"`
	DivisionName   string        `json:"divisionName" validate:"required"`
	ConferenceName *string       `json:"conferenceName"`
}

// ToStanding converts StandingInput (from API) to a Standing for seasonID
func (si *StandingInput) ToStanding(seasonID int) *Standing {
	standing := &Standing{
		SeasonID:     seasonID,
		TeamAbbrev:   si.TeamAbbrev.String(),
		Wins:         *si.Wins,
		Losses:       *si.Losses,
		OT:           *si.OTLosses,
		Points:       *si.Points,
		DivisionName: si.DivisionName,
	}

	if si.ConferenceName != nil && *si.ConferenceName != "" {
		name := *si.ConferenceName
		standing.ConferenceName = &name
	}

	return standing
}
