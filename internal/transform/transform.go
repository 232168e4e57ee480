// Package transform maps raw NHL API payloads into normalized records.
//
// Every function is pure: it decodes, validates and filters, and never
// touches the network or the database. A record that cannot be decoded or
// is missing a required field is skipped and reported as ErrMalformedPayload;
// the rest of the payload is still transformed.
package transform

import (
	"encoding/json"

	"nhl_stats/ingestion/internal/models"

	"github.com/bytedance/sonic"
	"github.com/cockroachdb/errors"
	"github.com/go-playground/validator/v10"
)

// DefaultSeasonThreshold is the first season synced
const DefaultSeasonThreshold = 20052006

// ErrMalformedPayload marks records that failed decoding or validation
var ErrMalformedPayload = errors.New("malformed payload")

// Result is the outcome of transforming one payload
type Result[T any] struct {
	Records []T
	// Filtered counts records dropped by a business rule (threshold, league, position)
	Filtered int
	// Errors holds one ErrMalformedPayload per skipped record
	Errors []error
}

// Skipped is the number of malformed records
func (r *Result[T]) Skipped() int { return len(r.Errors) }

func (r *Result[T]) malformed(err error) {
	r.Errors = append(r.Errors, err)
}

// Transformer holds the filter settings shared by all mapping functions
type Transformer struct {
	validate        *validator.Validate
	seasonThreshold int
	skipRules       []SkipRule
}

// New creates a Transformer. threshold <= 0 uses DefaultSeasonThreshold.
func New(seasonThreshold int) *Transformer {
	if seasonThreshold <= 0 {
		seasonThreshold = DefaultSeasonThreshold
	}
	return &Transformer{
		validate:        validator.New(),
		seasonThreshold: seasonThreshold,
		skipRules:       DefaultSkipRules(),
	}
}

// WithSkipRules replaces the known-invalid (team, season) rules
func (t *Transformer) WithSkipRules(rules []SkipRule) *Transformer {
	t.skipRules = rules
	return t
}

// SeasonThreshold returns the minimum season id included
func (t *Transformer) SeasonThreshold() int { return t.seasonThreshold }

type dataEnvelope struct {
	Data []json.RawMessage `json:"data"`
}

// Seasons maps the season list, keeping ids >= the threshold
func (t *Transformer) Seasons(body []byte) (*Result[models.Season], error) {
	var env dataEnvelope
	if err := decode(body, &env); err != nil {
		return nil, malformed(err, "season list")
	}

	res := &Result[models.Season]{}
	for i, raw := range env.Data {
		var input models.SeasonInput
		if err := t.decodeValid(raw, &input); err != nil {
			res.malformed(malformed(err, "season #%d", i))
			continue
		}
		if input.ID < t.seasonThreshold {
			res.Filtered++
			continue
		}
		season, err := input.ToSeason()
		if err != nil {
			res.malformed(malformed(err, "season %d", input.ID))
			continue
		}
		res.Records = append(res.Records, *season)
	}
	return res, nil
}

// Teams maps the team list
func (t *Transformer) Teams(body []byte) (*Result[models.Team], error) {
	var env dataEnvelope
	if err := decode(body, &env); err != nil {
		return nil, malformed(err, "team list")
	}

	res := &Result[models.Team]{}
	for i, raw := range env.Data {
		var input models.TeamInput
		if err := t.decodeValid(raw, &input); err != nil {
			res.malformed(malformed(err, "team #%d", i))
			continue
		}
		res.Records = append(res.Records, *input.ToTeam())
	}
	return res, nil
}

// Roster is a transformed roster payload
type Roster struct {
	Players *Result[models.Player]
	Entries *Result[models.RosterEntry]
}

// Roster maps a roster payload into players and roster slots on teamSeasonID.
// The player list is forwards, then defensemen, then goalies.
func (t *Transformer) Roster(body []byte, teamSeasonID int) (*Roster, error) {
	var input models.RosterInput
	if err := decode(body, &input); err != nil {
		return nil, malformed(err, "roster")
	}

	out := &Roster{
		Players: &Result[models.Player]{},
		Entries: &Result[models.RosterEntry]{},
	}
	for i, raw := range input.All() {
		var p models.RosterPlayerInput
		if err := t.decodeValid(raw, &p); err != nil {
			err = malformed(err, "roster player #%d", i)
			out.Players.malformed(err)
			out.Entries.malformed(err)
			continue
		}
		out.Players.Records = append(out.Players.Records, *p.ToPlayer())
		out.Entries.Records = append(out.Entries.Records, *p.ToRosterEntry(teamSeasonID))
	}
	return out, nil
}

// Standings maps a standings snapshot for seasonID
func (t *Transformer) Standings(body []byte, seasonID int) (*Result[models.Standing], error) {
	var env struct {
		Standings []json.RawMessage `json:"standings"`
	}
	if err := decode(body, &env); err != nil {
		return nil, malformed(err, "standings")
	}

	res := &Result[models.Standing]{}
	for i, raw := range env.Standings {
		var input models.StandingInput
		if err := t.decodeValid(raw, &input); err != nil {
			res.malformed(malformed(err, "standing #%d", i))
			continue
		}
		res.Records = append(res.Records, *input.ToStanding(seasonID))
	}
	return res, nil
}

// StatLines maps a player landing payload into skater stat lines. Only NHL
// entries from seasonLimit onward are kept, preseason (game type 1) is
// dropped, and goaltenders produce no lines at all.
func (t *Transformer) StatLines(body []byte, seasonLimit int) (*Result[models.StatLine], error) {
	var landing models.PlayerLandingInput
	if err := decode(body, &landing); err != nil {
		return nil, malformed(err, "player landing")
	}
	if landing.PlayerID == 0 {
		return nil, malformed(nil, "player landing without playerId")
	}

	res := &Result[models.StatLine]{}
	if landing.Position == models.PositionGoaltender {
		res.Filtered = len(landing.SeasonTotals)
		return res, nil
	}

	for i, raw := range landing.SeasonTotals {
		var total models.SeasonTotalInput
		if err := t.decodeValid(raw, &total); err != nil {
			res.malformed(malformed(err, "player %d season total #%d", landing.PlayerID, i))
			continue
		}
		if total.LeagueAbbrev != models.LeagueNHL ||
			total.Season < seasonLimit ||
			total.GameTypeID == models.GameTypePreseason {
			res.Filtered++
			continue
		}
		if err := t.validate.Struct(total.Required()); err != nil {
			res.malformed(malformed(err, "player %d season %d", landing.PlayerID, total.Season))
			continue
		}
		line, err := total.ToStatLine(landing.PlayerID)
		if err != nil {
			res.malformed(malformed(err, "player %d season %d", landing.PlayerID, total.Season))
			continue
		}
		res.Records = append(res.Records, *line)
	}
	return res, nil
}

// decodeValid decodes raw into v and runs struct validation
func (t *Transformer) decodeValid(raw []byte, v any) error {
	if err := decode(raw, v); err != nil {
		return err
	}
	return t.validate.Struct(v)
}

func decode(data []byte, v any) error {
	if err := sonic.ConfigStd.Unmarshal(data, v); err != nil {
		return errors.Wrap(err, "decode")
	}
	return nil
}

// malformed marks err (or a new error when err is nil) as ErrMalformedPayload
func malformed(err error, format string, args ...any) error {
	if err == nil {
		return errors.Mark(errors.Newf(format, args...), ErrMalformedPayload)
	}
	return errors.Mark(errors.Wrapf(err, format, args...), ErrMalformedPayload)
}
