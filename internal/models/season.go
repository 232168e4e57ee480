package models

import (
	"fmt"
	"strconv"
	"time"
)

// Season represents one league year, identified by its start/end years (e.g. 20052006)
type Season struct {
	ID                   int       `db:"id"`
	SeasonStartYear      int       `db:"season_start_year"`
	SeasonEndYear        int       `db:"season_end_year"`
	WildCardInUse        bool      `db:"wild_card_in_use"`
	TiesInUse            bool      `db:"ties_in_use"`
	PointForOTLoss       bool      `db:"point_for_ot_loss"`
	RegularSeasonEndDate time.Time `db:"regular_season_end_date"`
	PlayoffEndDate       time.Time `db:"playoff_end_date"`
}

// SeasonInput is one entry of the stats API season list
type SeasonInput struct {
	ID                   int    `json:"id" validate:"required"`
	WildcardInUse        Flag   `json:"wildcardInUse"`
	TiesInUse            Flag   `json:"tiesInUse"`
	PointForOTLossInUse  Flag   `json:"pointForOTLossInUse"`
	RegularSeasonEndDate string `json:"regularSeasonEndDate" validate:"required"`
	EndDate              string `json:"endDate" validate:"required"`
}

// ToSeason converts SeasonInput (from API) to Season model
func (si *SeasonInput) ToSeason() (*Season, error) {
	start, end, err := SeasonYears(si.ID)
	if err != nil {
		return nil, err
	}

	regularEnd, err := ParseDate(si.RegularSeasonEndDate)
	if err != nil {
		return nil, fmt.Errorf("regularSeasonEndDate: %w", err)
	}
	playoffEnd, err := ParseDate(si.EndDate)
	if err != nil {
		return nil, fmt.Errorf("endDate: %w", err)
	}

	return &Season{
		ID:                   si.ID,
		SeasonStartYear:      start,
		SeasonEndYear:        end,
		WildCardInUse:        bool(si.WildcardInUse),
		TiesInUse:            bool(si.TiesInUse),
		PointForOTLoss:       bool(si.PointForOTLossInUse),
		RegularSeasonEndDate: regularEnd,
		PlayoffEndDate:       playoffEnd,
	}, nil
}

// SeasonYears splits a season id into its start and end years:
// the first four digits and the last four digits.
func SeasonYears(id int) (start, end int, err error) {
	s := strconv.Itoa(id)
	if len(s) != 8 {
		return 0, 0, fmt.Errorf("season id %d is not two 4-digit years", id)
	}
	start, _ = strconv.Atoi(s[:4])
	end, _ = strconv.Atoi(s[4:])
	return start, end, nil
}

// SeasonID joins start and end years back into a season id
func SeasonID(start, end int) int {
	return start*10000 + end
}

// ParseDate parses the date part of an ISO-8601 date or datetime
func ParseDate(s string) (time.Time, error) {
	if len(s) < 10 {
		return time.Time{}, fmt.Errorf("invalid date %q", s)
	}
	d, err := time.Parse("2006-01-02", s[:10])
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return d, nil
}
