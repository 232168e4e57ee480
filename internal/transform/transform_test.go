package transform

import (
	"testing"
	"time"

	"nhl_stats/ingestion/internal/models"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seasonJSON(id string) string {
	return `{"id":` + id + `,"wildcardInUse":1,"tiesInUse":0,"pointForOTLossInUse":1,` +
		`"regularSeasonEndDate":"2007-04-08T00:00:00","endDate":"2007-06-06T00:00:00"}`
}

func TestSeasons_ThresholdFilter(t *testing.T) {
	body := []byte(`{"data":[` +
		seasonJSON("20042005") + `,` +
		seasonJSON("20052006") + `,` +
		seasonJSON("20062007") + `]}`)

	res, err := New(20052006).Seasons(body)
	require.NoError(t, err)

	require.Len(t, res.Records, 2, "Only seasons at or above the threshold are included")
	assert.Equal(t, 1, res.Filtered)
	assert.Zero(t, res.Skipped())

	assert.Equal(t, 20052006, res.Records[0].ID)
	assert.Equal(t, 2005, res.Records[0].SeasonStartYear)
	assert.Equal(t, 2006, res.Records[0].SeasonEndYear)
	assert.Equal(t, 2006, res.Records[1].SeasonStartYear)
	assert.Equal(t, 2007, res.Records[1].SeasonEndYear)

	s := res.Records[1]
	assert.True(t, s.WildCardInUse)
	assert.False(t, s.TiesInUse)
	assert.True(t, s.PointForOTLoss)
	assert.Equal(t, time.Date(2007, 4, 8, 0, 0, 0, 0, time.UTC), s.RegularSeasonEndDate)
	assert.Equal(t, time.Date(2007, 6, 6, 0, 0, 0, 0, time.UTC), s.PlayoffEndDate)
}

func TestSeasons_DefaultThreshold(t *testing.T) {
	assert.Equal(t, DefaultSeasonThreshold, New(0).SeasonThreshold())
}

func TestSeasons_MalformedRecordSkipped(t *testing.T) {
	body := []byte(`{"data":[` +
		seasonJSON("20062007") + `,` +
		`{"id":20072008,"regularSeasonEndDate":"not a date","endDate":"2008-06-04"},` +
		`{"id":"twenty"}` + `]}`)

	res, err := New(20052006).Seasons(body)
	require.NoError(t, err)

	assert.Len(t, res.Records, 1)
	require.Equal(t, 2, res.Skipped())
	for _, e := range res.Errors {
		assert.True(t, errors.Is(e, ErrMalformedPayload))
	}
}

func TestSeasons_BrokenEnvelope(t *testing.T) {
	_, err := New(0).Seasons([]byte(`<html>`))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMalformedPayload))
}

func TestTeams(t *testing.T) {
	body := []byte(`{"data":[
		{"id":10,"franchiseId":5,"fullName":"Toronto Maple Leafs","triCode":"TOR"},
		{"id":99,"fullName":"No Code"},
		{"id":59,"franchiseId":null,"fullName":"Utah Hockey Club","triCode":"UTA"}
	]}`)

	res, err := New(0).Teams(body)
	require.NoError(t, err)

	require.Len(t, res.Records, 2)
	assert.Equal(t, 1, res.Skipped(), "A team without a triCode is malformed")

	tor := res.Records[0]
	assert.Equal(t, 10, tor.ID)
	assert.Equal(t, "TOR", tor.Abbreviation)
	assert.Equal(t, "Toronto Maple Leafs", tor.Name)
	assert.True(t, tor.FranchiseID.Valid)
	assert.Equal(t, int64(5), tor.FranchiseID.Int64)
	assert.False(t, res.Records[1].FranchiseID.Valid)
}

const rosterBody = `{
	"forwards": [
		{"id":8478483,"firstName":{"default":"Mitchell"},"lastName":{"default":"Marner"},
		 "sweaterNumber":16,"positionCode":"R","shootsCatches":"R","heightInInches":72,
		 "weightInPounds":180,"birthDate":"1997-05-05","birthCountry":"CAN"}
	],
	"defensemen": [
		{"id":8476853,"firstName":"Morgan","lastName":"Rielly","positionCode":"D",
		 "shootsCatches":"L","birthDate":"1994-03-09","birthCountry":"CAN"},
		{"id":1,"firstName":{"default":"No"}}
	],
	"goalies": [
		{"id":8479361,"firstName":{"default":"Joseph","cs":"Joseph"},"lastName":{"default":"Woll"},
		 "sweaterNumber":60,"positionCode":"G","shootsCatches":"L"}
	]
}`

func TestRoster(t *testing.T) {
	res, err := New(0).Roster([]byte(rosterBody), 42)
	require.NoError(t, err)

	require.Len(t, res.Players.Records, 3)
	require.Len(t, res.Entries.Records, 3)
	assert.Equal(t, 1, res.Players.Skipped())

	// forwards, defensemen, goalies order
	assert.Equal(t, 8478483, res.Players.Records[0].ID)
	assert.Equal(t, 8476853, res.Players.Records[1].ID)
	assert.Equal(t, 8479361, res.Players.Records[2].ID)

	marner := res.Players.Records[0]
	assert.Equal(t, "Mitchell", marner.FirstName)
	assert.Equal(t, "Marner", marner.LastName)
	assert.Equal(t, time.Date(1997, 5, 5, 0, 0, 0, 0, time.UTC), marner.Birthdate.Time)
	assert.Equal(t, "CAN", marner.Country.String)

	rielly := res.Players.Records[1]
	assert.Equal(t, "Morgan", rielly.FirstName, "Plain string names are accepted")

	entry := res.Entries.Records[0]
	assert.Equal(t, 42, entry.TeamSeasonID)
	assert.Equal(t, int32(16), entry.JerseyNumber.Int32)
	assert.Equal(t, "R", entry.Position)
	assert.Equal(t, int32(72), entry.PlayerHeightInches.Int32)
	assert.Equal(t, int32(180), entry.PlayerWeightPounds.Int32)

	assert.False(t, res.Entries.Records[1].JerseyNumber.Valid, "Missing sweater number stays null")
}

func TestStandings_MissingConference(t *testing.T) {
	body := []byte(`{"standings":[
		{"teamAbbrev":{"default":"BOS"},"wins":33,"losses":16,"otLosses":7,"points":73,
		 "divisionName":"East","conferenceName":null},
		{"teamAbbrev":{"default":"TOR"},"wins":35,"losses":14,"otLosses":7,"points":77,
		 "divisionName":"North"},
		{"teamAbbrev":{"default":"EDM"},"wins":0,"losses":0,"otLosses":0,"points":0,
		 "divisionName":"Pacific","conferenceName":"Western"},
		{"teamAbbrev":{"default":"XXX"},"losses":1,"otLosses":0,"points":0,"divisionName":"Pacific"}
	]}`)

	res, err := New(0).Standings(body, 20202021)
	require.NoError(t, err)

	require.Len(t, res.Records, 3)
	assert.Equal(t, 1, res.Skipped(), "Missing wins is malformed")

	bos := res.Records[0]
	assert.Equal(t, "BOS", bos.TeamAbbrev)
	assert.Equal(t, 20202021, bos.SeasonID)
	assert.Equal(t, "East", bos.DivisionName)
	assert.Nil(t, bos.ConferenceName)
	assert.Nil(t, res.Records[1].ConferenceName, "Absent conferenceName does not fail the row")

	edm := res.Records[2]
	require.NotNil(t, edm.ConferenceName)
	assert.Equal(t, "Western", *edm.ConferenceName)
	assert.Equal(t, 0, edm.Wins, "Zero counts are valid")
}

func landingBody(position string) []byte {
	return []byte(`{"playerId":8478402,"position":"` + position + `","seasonTotals":[
		{"season":20142015,"gameTypeId":2,"leagueAbbrev":"OHL","teamName":{"default":"Erie Otters"},
		 "goals":50,"assists":70,"points":120,"plusMinus":40,"pim":10,"gamesPlayed":47,"avgToi":"20:00"},
		{"season":20152016,"gameTypeId":1,"leagueAbbrev":"NHL","teamName":{"default":"Edmonton Oilers"},
		 "goals":1,"assists":1,"points":2,"plusMinus":0,"pim":0,"gamesPlayed":3,"avgToi":"15:00"},
		{"season":20152016,"gameTypeId":2,"leagueAbbrev":"NHL","teamName":{"default":"Edmonton Oilers"},
		 "goals":16,"assists":32,"points":48,"plusMinus":-1,"pim":18,"gamesPlayed":45,"avgToi":"18:53"},
		{"season":20162017,"gameTypeId":3,"leagueAbbrev":"NHL","teamName":{"default":"Edmonton Oilers"},
		 "goals":1,"assists":8,"points":9,"plusMinus":-2,"pim":4,"gamesPlayed":13,"avgToi":"20:05"},
		{"season":20102011,"gameTypeId":2,"leagueAbbrev":"NHL","teamName":{"default":"Old Team"},
		 "goals":1,"assists":1,"points":2,"plusMinus":0,"pim":0,"gamesPlayed":3,"avgToi":"10:00"}
	]}`)
}

func TestStatLines_SkaterIncluded(t *testing.T) {
	res, err := New(0).StatLines(landingBody("C"), 20122013)
	require.NoError(t, err)

	require.Len(t, res.Records, 2)
	assert.Equal(t, 3, res.Filtered, "OHL, preseason and pre-limit entries are filtered")
	assert.Zero(t, res.Skipped())

	regular := res.Records[0]
	assert.Equal(t, 8478402, regular.PlayerID)
	assert.Equal(t, 20152016, regular.SeasonID)
	assert.True(t, regular.IsRegularSeason())
	assert.Equal(t, "Edmonton Oilers", regular.TeamName)
	assert.Equal(t, 16, regular.Goals)
	assert.Equal(t, 32, regular.Assists)
	assert.Equal(t, 48, regular.Points)
	assert.Equal(t, -1, regular.PlusMinus)
	assert.Equal(t, 18, regular.PIM)
	assert.Equal(t, 45, regular.GamesPlayed)
	assert.Equal(t, 18*time.Minute+53*time.Second, regular.AverageTOI)

	playoff := res.Records[1]
	assert.Equal(t, models.GameTypePostseason, playoff.SeasonType)
	assert.False(t, playoff.IsRegularSeason())
}

func TestStatLines_GoalieExcluded(t *testing.T) {
	res, err := New(0).StatLines(landingBody("G"), 20122013)
	require.NoError(t, err)

	assert.Empty(t, res.Records, "Goaltenders produce no stat lines")
	assert.Equal(t, 5, res.Filtered)
}

func TestStatLines_MalformedTOI(t *testing.T) {
	body := []byte(`{"playerId":1,"position":"D","seasonTotals":[
		{"season":20232024,"gameTypeId":2,"leagueAbbrev":"NHL","teamName":{"default":"A"},
		 "goals":1,"assists":1,"points":2,"plusMinus":0,"pim":0,"gamesPlayed":3,"avgToi":"abc"},
		{"season":20232024,"gameTypeId":3,"leagueAbbrev":"NHL","teamName":{"default":"A"},
		 "goals":1,"assists":1,"points":2,"plusMinus":0,"pim":0,"gamesPlayed":3}
	]}`)

	res, err := New(0).StatLines(body, 20052006)
	require.NoError(t, err)

	assert.Empty(t, res.Records)
	assert.Equal(t, 2, res.Skipped())
}

func TestKnownInvalid(t *testing.T) {
	tr := New(0)

	assert.True(t, tr.KnownInvalid("UTA", 20232024))
	assert.False(t, tr.KnownInvalid("UTA", 20242025))
	assert.False(t, tr.KnownInvalid("TOR", 20052006))

	tr.WithSkipRules([]SkipRule{{Abbrev: "SEA", BeforeSeason: 20212022}})
	assert.True(t, tr.KnownInvalid("SEA", 20202021))
	assert.False(t, tr.KnownInvalid("UTA", 20232024))
}
