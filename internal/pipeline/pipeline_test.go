package pipeline

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"nhl_stats/ingestion/internal/client"
	"nhl_stats/ingestion/internal/models"
	"nhl_stats/ingestion/internal/repository"
	"nhl_stats/ingestion/internal/transform"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeAPI serves canned bodies keyed by resource and records every call
type fakeAPI struct {
	mu     sync.Mutex
	calls  []string
	bodies map[string][]byte
	errs   map[string]error
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{bodies: map[string][]byte{}, errs: map[string]error{}}
}

func (f *fakeAPI) get(key string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, key)
	if err, ok := f.errs[key]; ok {
		return nil, err
	}
	if body, ok := f.bodies[key]; ok {
		return body, nil
	}
	return nil, fmt.Errorf("failed to fetch %s: %w", key, &client.UpstreamError{URL: key, StatusCode: 404})
}

func (f *fakeAPI) called(key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.calls {
		if c == key {
			return true
		}
	}
	return false
}

func (f *fakeAPI) FetchSeasons(context.Context) ([]byte, error) {
	return f.get("seasons")
}

func (f *fakeAPI) FetchTeams(context.Context) ([]byte, error) {
	return f.get("teams")
}

func (f *fakeAPI) FetchRoster(_ context.Context, abbrev string, seasonID int) ([]byte, error) {
	return f.get(fmt.Sprintf("roster/%s/%d", abbrev, seasonID))
}
func (f *fakeAPI) FetchStandings(_ context.Context, date time.Time) ([]byte, error) {
	return f.get("standings/" + date.Format("2006-01-02"))
}
func (f *fakeAPI) FetchPlayerLanding(_ context.Context, id int) ([]byte, error) {
	return f.get(fmt.Sprintf("player/%d", id))
}
func (f *fakeAPI) FetchClubSchedule(_ context.Context, abbrev string, seasonID int) ([]byte, error) {
	return f.get(fmt.Sprintf("schedule/%s/%d", abbrev, seasonID))
}
func (f *fakeAPI) FetchPlayByPlay(_ context.Context, gameID int) ([]byte, error) {
	return f.get(fmt.Sprintf("game/%d", gameID))
}

// fakeStore keeps whatever was loaded and serves it back to later stages
type fakeStore struct {
	seasons       []models.Season
	teams         []models.Team
	teamSeasonKey []models.TeamSeasonKey
	teamSeasons   []models.TeamSeason
	players       []models.Player
	rosters       []models.RosterEntry
	standings     []models.Standing
	statLines     []models.StatLine
	games         []*models.PlayByPlay
	amateur       []models.AmateurLeagueUpdate

	unknownTeams map[string]bool
	missingGames map[int]bool
	loadErr      map[string]error
	loadCalls    int
}

func (s *fakeStore) fail(table string) error {
	s.loadCalls++
	return s.loadErr[table]
}

func (s *fakeStore) LoadSeasons(_ context.Context, seasons []models.Season) (int, error) {
	if err := s.fail("seasons"); err != nil {
		return 0, err
	}
	s.seasons = seasons
	return len(seasons), nil
}
func (s *fakeStore) ListSeasons(context.Context) ([]models.Season, error) { return s.seasons, nil }
func (s *fakeStore) MinSeasonID(context.Context) (int, bool, error) {
	if len(s.seasons) == 0 {
		return 0, false, nil
	}
	return s.seasons[0].ID, true, nil
}
func (s *fakeStore) LoadTeams(_ context.Context, teams []models.Team) (int, error) {
	if err := s.fail("teams"); err != nil {
		return 0, err
	}
	s.teams = teams
	return len(teams), nil
}
func (s *fakeStore) ListTeams(context.Context) ([]models.Team, error) { return s.teams, nil }
func (s *fakeStore) LoadTeamSeasons(_ context.Context, keys []models.TeamSeasonKey) (int, error) {
	if err := s.fail("team_seasons"); err != nil {
		return 0, err
	}
	s.teamSeasonKey = keys
	for i, k := range keys {
		s.teamSeasons = append(s.teamSeasons, models.TeamSeason{
			ID: 100 + i, TeamID: k.TeamID, SeasonID: k.SeasonID, Abbreviation: k.Abbreviation,
		})
	}
	return len(keys), nil
}
func (s *fakeStore) ListTeamSeasons(context.Context) ([]models.TeamSeason, error) {
	return s.teamSeasons, nil
}
func (s *fakeStore) LoadStandings(_ context.Context, standings []models.Standing) (int, int, error) {
	if err := s.fail("standings"); err != nil {
		return 0, 0, err
	}
	written, skipped := 0, 0
	for _, st := range standings {
		if s.unknownTeams[st.TeamAbbrev] {
			skipped++
			continue
		}
		s.standings = append(s.standings, st)
		written++
	}
	return written, skipped, nil
}
func (s *fakeStore) LoadPlayers(_ context.Context, players []models.Player) (int, error) {
	if err := s.fail("players"); err != nil {
		return 0, err
	}
	s.players = players
	return len(players), nil
}
func (s *fakeStore) ListPlayerIDs(context.Context) ([]int, error) {
	ids := make([]int, len(s.players))
	for i, p := range s.players {
		ids[i] = p.ID
	}
	return ids, nil
}
func (s *fakeStore) UpdateAmateurLeagues(_ context.Context, updates []models.AmateurLeagueUpdate) (int, error) {
	if err := s.fail("amateur"); err != nil {
		return 0, err
	}
	s.amateur = updates
	return len(updates), nil
}
func (s *fakeStore) LoadRosters(_ context.Context, entries []models.RosterEntry) (int, error) {
	if err := s.fail("rosters"); err != nil {
		return 0, err
	}
	s.rosters = entries
	return len(entries), nil
}
func (s *fakeStore) ResolveStatLines(_ context.Context, lines []models.StatLine) ([]models.StatLine, []models.StatLine, error) {
	var resolved, unresolved []models.StatLine
	for _, l := range lines {
		for _, ts := range s.teamSeasons {
			if ts.SeasonID == l.SeasonID && l.TeamID != nil && ts.TeamID == *l.TeamID {
				l.TeamSeasonID = ts.ID
				resolved = append(resolved, l)
				break
			}
		}
		if l.TeamSeasonID == 0 {
			unresolved = append(unresolved, l)
		}
	}
	return resolved, unresolved, nil
}
func (s *fakeStore) LoadStatLines(_ context.Context, lines []models.StatLine) (int, error) {
	if err := s.fail("stats"); err != nil {
		return 0, err
	}
	s.statLines = lines
	return len(lines), nil
}
func (s *fakeStore) LoadGame(_ context.Context, pbp *models.PlayByPlay) (int, error) {
	if s.missingGames[pbp.Game.ID] {
		return 0, fmt.Errorf("home team: %w", repository.ErrReferentNotFound)
	}
	if err := s.fail("games"); err != nil {
		return 0, err
	}
	s.games = append(s.games, pbp)
	return 1 + len(pbp.Goals) + len(pbp.Hits), nil
}

const (
	seasonsBody = `{"data":[
		{"id":20222023,"wildcardInUse":1,"tiesInUse":0,"pointForOTLossInUse":1,
		 "regularSeasonEndDate":"2023-04-14T00:00:00","endDate":"2023-06-13T00:00:00"},
		{"id":20232024,"wildcardInUse":1,"tiesInUse":0,"pointForOTLossInUse":1,
		 "regularSeasonEndDate":"2024-04-18T00:00:00","endDate":"2024-06-24T00:00:00"}
	]}`
	teamsBody = `{"data":[
		{"id":10,"franchiseId":5,"fullName":"Toronto Maple Leafs","triCode":"TOR"},
		{"id":59,"fullName":"Utah Hockey Club","triCode":"UTA"}
	]}`
)

func rosterBody(ids ...int) []byte {
	players := ""
	for i, id := range ids {
		if i > 0 {
			players += ","
		}
		players += fmt.Sprintf(`{"id":%d,"firstName":{"default":"First%d"},"lastName":{"default":"Last%d"},`+
			`"sweaterNumber":%d,"positionCode":"C","heightInInches":72,"weightInPounds":190}`, id, id, id, i+10)
	}
	return []byte(`{"forwards":[` + players + `],"defensemen":[],"goalies":[]}`)
}

func standingsBody(abbrevs ...string) []byte {
	rows := ""
	for i, a := range abbrevs {
		if i > 0 {
			rows += ","
		}
		rows += `{"teamAbbrev":{"default":"` + a + `"},"wins":40,"losses":30,"otLosses":12,"points":92,` +
			`"divisionName":"Atlantic","conferenceName":"Eastern"}`
	}
	return []byte(`{"standings":[` + rows + `]}`)
}

func landingBody(playerID, teamID, season int) []byte {
	return []byte(fmt.Sprintf(`{"playerId":%d,"position":"C","seasonTotals":[
		{"season":%d,"gameTypeId":2,"leagueAbbrev":"OHL","teamName":{"default":"London Knights"}},
		{"season":%d,"gameTypeId":2,"leagueAbbrev":"NHL","teamName":{"default":"Toronto Maple Leafs"},
		 "teamId":%d,"goals":10,"assists":20,"points":30,"plusMinus":5,"pim":4,"gamesPlayed":60,"avgToi":"17:30"}
	]}`, playerID, season-10001, season, teamID))
}

// seededAPI serves a consistent two-season league with one real team
func seededAPI() *fakeAPI {
	api := newFakeAPI()
	api.bodies["seasons"] = []byte(seasonsBody)
	api.bodies["teams"] = []byte(teamsBody)
	api.bodies["roster/TOR/20222023"] = rosterBody(1, 2)
	api.bodies["roster/TOR/20232024"] = rosterBody(2, 3)
	api.bodies["standings/2023-04-14"] = standingsBody("TOR")
	api.bodies["standings/2024-04-18"] = standingsBody("TOR")
	api.bodies["player/1"] = landingBody(1, 10, 20222023)
	api.bodies["player/2"] = landingBody(2, 10, 20232024)
	api.bodies["player/3"] = landingBody(3, 10, 20232024)
	return api
}

func newTestOrchestrator(api API, store Store, opts ...Option) *Orchestrator {
	now := time.Date(2024, 10, 1, 0, 0, 0, 0, time.UTC)
	opts = append([]Option{WithLogger(zerolog.Nop()), WithClock(func() time.Time { return now })}, opts...)
	return New(api, store, transform.New(20222023), opts...)
}

func stageNames(summary *RunSummary) []string {
	names := make([]string, len(summary.Results))
	for i, r := range summary.Results {
		names[i] = r.Stage
	}
	return names
}

func TestRun_UnknownStageBeforeIO(t *testing.T) {
	api := newFakeAPI()
	store := &fakeStore{}

	summary, err := newTestOrchestrator(api, store).Run(context.Background(), "goalies")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownStage))
	assert.Contains(t, err.Error(), "player_stats", "Error lists the valid stages")
	assert.Nil(t, summary)
	assert.Empty(t, api.calls, "No fetch should happen")
	assert.Zero(t, store.loadCalls, "No load should happen")
}

func TestRun_FullSequence(t *testing.T) {
	api := seededAPI()
	store := &fakeStore{}

	summary, err := newTestOrchestrator(api, store).Run(context.Background(), "")
	require.NoError(t, err)
	assert.False(t, summary.Failed(), summary.Summary())

	assert.Equal(t, []string{
		StageSeasons, StageTeams, StageTeamSeasons, StagePlayers, StageRosters, StageStandings, StagePlayerStats,
	}, stageNames(summary), "Extension stages are off by default")

	for _, r := range summary.Results {
		assert.Equal(t, StatusSucceeded, r.Status, r.Stage)
	}

	// UTA is on the skip list before 20242025 and is never requested
	assert.False(t, api.called("roster/UTA/20222023"))
	assert.False(t, api.called("roster/UTA/20232024"))
	assert.Len(t, store.teamSeasonKey, 2)

	// Player 2 is on both rosters and stored once
	require.Len(t, store.players, 3)
	assert.Equal(t, []int{1, 2, 3}, []int{store.players[0].ID, store.players[1].ID, store.players[2].ID})
	assert.Len(t, store.rosters, 4)

	assert.Len(t, store.standings, 2)
	assert.Len(t, store.statLines, 3, "Only the NHL lines are stored")

	ts, ok := summary.Result(StageTeamSeasons)
	require.True(t, ok)
	assert.Equal(t, 2, ts.Fetched)
	assert.Equal(t, 2, ts.Written)
	assert.Zero(t, ts.Skipped, "A 404 roster is not a skip")
}

func TestRun_FailedDependencySkipsDependents(t *testing.T) {
	api := seededAPI()
	api.errs["teams"] = &client.TransportError{URL: "teams", Attempts: 5, Err: errors.New("connection refused")}
	store := &fakeStore{}

	summary, err := newTestOrchestrator(api, store).Run(context.Background(), "")
	require.NoError(t, err)
	require.True(t, summary.Failed())

	want := map[string]Status{
		StageSeasons:     StatusSucceeded,
		StageTeams:       StatusFailed,
		StageTeamSeasons: StatusSkipped,
		StagePlayers:     StatusSkipped,
		StageRosters:     StatusSkipped,
		StageStandings:   StatusSkipped,
		StagePlayerStats: StatusSkipped,
	}
	for _, r := range summary.Results {
		assert.Equal(t, want[r.Stage], r.Status, r.Stage)
	}

	teamSeasons, _ := summary.Result(StageTeamSeasons)
	assert.Equal(t, "dependency teams failed", teamSeasons.Reason)
	players, _ := summary.Result(StagePlayers)
	assert.Equal(t, "dependency team_seasons skipped", players.Reason)

	assert.Len(t, store.seasons, 2, "Independent stage still loads")
	assert.Contains(t, summary.Summary(), "teams")
}

func TestRun_LoadFailureFailsStage(t *testing.T) {
	api := seededAPI()
	store := &fakeStore{loadErr: map[string]error{
		"players": &repository.PersistenceError{Table: "players", Op: "upsert", Err: errors.New("deadlock")},
	}}

	summary, err := newTestOrchestrator(api, store).Run(context.Background(), "")
	require.NoError(t, err)

	players, _ := summary.Result(StagePlayers)
	assert.Equal(t, StatusFailed, players.Status)
	var perr *repository.PersistenceError
	assert.ErrorAs(t, players.Err, &perr)

	rosters, _ := summary.Result(StageRosters)
	assert.Equal(t, StatusSkipped, rosters.Status)
	standings, _ := summary.Result(StageStandings)
	assert.Equal(t, StatusSucceeded, standings.Status, "Standings does not depend on players")
}

func TestRun_NamedStageUsesStoredRows(t *testing.T) {
	api := seededAPI()
	store := &fakeStore{
		teamSeasons: []models.TeamSeason{{ID: 7, TeamID: 10, SeasonID: 20232024, Abbreviation: "TOR"}},
	}

	summary, err := newTestOrchestrator(api, store).Run(context.Background(), StageRosters)
	require.NoError(t, err)

	require.Equal(t, []string{StageRosters}, stageNames(summary))
	assert.Equal(t, StatusSucceeded, summary.Results[0].Status)
	require.Len(t, store.rosters, 2)
	assert.Equal(t, 7, store.rosters[0].TeamSeasonID)
	assert.False(t, api.called("seasons"))
}

func TestRun_PerResourceFailuresAreSkips(t *testing.T) {
	api := seededAPI()
	api.errs["player/2"] = &client.UpstreamError{URL: "player/2", StatusCode: 500}
	api.bodies["player/3"] = []byte(`{"playerId":3,"position":"C","seasonTotals":[
		{"season":20232024,"gameTypeId":2,"leagueAbbrev":"NHL","teamName":{"default":"Somewhere"},
		 "teamId":99,"goals":1,"assists":1,"points":2,"plusMinus":0,"pim":0,"gamesPlayed":3,"avgToi":"10:00"}
	]}`)
	store := &fakeStore{
		seasons:     []models.Season{{ID: 20222023}, {ID: 20232024}},
		players:     []models.Player{{ID: 1}, {ID: 2}, {ID: 3}},
		teamSeasons: []models.TeamSeason{{ID: 5, TeamID: 10, SeasonID: 20222023, Abbreviation: "TOR"}},
	}

	summary, err := newTestOrchestrator(api, store).Run(context.Background(), StagePlayerStats)
	require.NoError(t, err)

	r := summary.Results[0]
	assert.Equal(t, StatusSucceeded, r.Status)
	assert.Equal(t, 2, r.Fetched)
	assert.Equal(t, 2, r.Skipped, "One failed fetch and one unresolved team-season")
	assert.Equal(t, 1, r.Written)
	require.Len(t, store.statLines, 1)
	assert.Equal(t, 5, store.statLines[0].TeamSeasonID)
}

func TestRun_StandingsUnknownTeamCounted(t *testing.T) {
	api := seededAPI()
	api.bodies["standings/2024-04-18"] = standingsBody("TOR", "XXX")
	store := &fakeStore{
		seasons: []models.Season{{
			ID:                   20232024,
			RegularSeasonEndDate: time.Date(2024, 4, 18, 0, 0, 0, 0, time.UTC),
		}},
		unknownTeams: map[string]bool{"XXX": true},
	}

	summary, err := newTestOrchestrator(api, store).Run(context.Background(), StageStandings)
	require.NoError(t, err)

	r := summary.Results[0]
	assert.Equal(t, StatusSucceeded, r.Status)
	assert.Equal(t, 1, r.Written)
	assert.Equal(t, 1, r.Skipped)
	require.Len(t, store.standings, 1)
	assert.Equal(t, "Eastern", *store.standings[0].ConferenceName)
}

func TestRun_Cancelled(t *testing.T) {
	api := seededAPI()
	store := &fakeStore{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	summary, err := newTestOrchestrator(api, store).Run(ctx, "")
	require.NoError(t, err)
	for _, r := range summary.Results {
		assert.Equal(t, StatusSkipped, r.Status, r.Stage)
		assert.Equal(t, "run cancelled", r.Reason)
	}
	assert.Empty(t, api.calls)
}

func TestRun_ExtendedStages(t *testing.T) {
	api := seededAPI()
	api.bodies["schedule/TOR/20232024"] = []byte(`{"games":[
		{"id":2023010001,"season":20232024,"gameType":1,"gameState":"OFF"},
		{"id":2023020001,"season":20232024,"gameType":2,"gameState":"OFF"},
		{"id":2023020002,"season":20232024,"gameType":2,"gameState":"FINAL"},
		{"id":2023020003,"season":20232024,"gameType":2,"gameState":"FUT"}
	]}`)
	api.bodies["game/2023020001"] = []byte(`{"id":2023020001,"season":20232024,"gameDate":"2023-10-11",
		"homeTeam":{"id":10,"score":2},"awayTeam":{"id":8,"score":1},"plays":[]}`)
	api.bodies["game/2023020002"] = []byte(`{"id":2023020002,"season":20232024,"gameDate":"2023-10-14",
		"homeTeam":{"id":9,"score":2},"awayTeam":{"id":10,"score":1},"plays":[]}`)
	store := &fakeStore{missingGames: map[int]bool{2023020002: true}}

	summary, err := newTestOrchestrator(api, store, WithExtendedStages(true), WithWorkers(4)).Run(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, StageNames(), stageNames(summary))

	games, _ := summary.Result(StageGames)
	assert.Equal(t, StatusSucceeded, games.Status, summary.Summary())
	assert.Equal(t, 1, games.Skipped, "Game with an unknown team-season is skipped")
	require.Len(t, store.games, 1)
	assert.Equal(t, 2023020001, store.games[0].Game.ID)
	assert.False(t, api.called("schedule/TOR/20222023"), "Only the most recent season is covered")

	amateur, _ := summary.Result(StageAmateurLeagues)
	assert.Equal(t, StatusSucceeded, amateur.Status)
	require.Len(t, store.amateur, 3)
	assert.Equal(t, "OHL", store.amateur[0].League)
}

func TestStandingsDate(t *testing.T) {
	end := time.Date(2024, 4, 18, 0, 0, 0, 0, time.UTC)
	season := models.Season{ID: 20232024, RegularSeasonEndDate: end}

	assert.Equal(t, end, standingsDate(season, time.Date(2024, 10, 1, 0, 0, 0, 0, time.UTC)))

	midSeason := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, midSeason, standingsDate(season, midSeason))
}

func TestValidateStage(t *testing.T) {
	for _, name := range append(StageNames(), "") {
		assert.NoError(t, ValidateStage(name), name)
	}
	assert.True(t, errors.Is(ValidateStage("box_scores"), ErrUnknownStage))
}

func TestRunSummary(t *testing.T) {
	summary := &RunSummary{Results: []StageResult{
		{Stage: StageSeasons, Status: StatusSucceeded, Fetched: 3, Written: 3},
		{Stage: StageTeams, Status: StatusFailed, Err: errors.New("boom")},
		{Stage: StageTeamSeasons, Status: StatusSkipped, Reason: "dependency teams failed"},
	}}

	assert.True(t, summary.Failed())
	out := summary.Summary()
	assert.Contains(t, out, "written=3")
	assert.Contains(t, out, "boom")
	assert.Contains(t, out, "dependency teams failed")

	_, ok := summary.Result(StageGames)
	assert.False(t, ok)
}
