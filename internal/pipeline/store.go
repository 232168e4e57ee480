package pipeline

import (
	"context"
	"time"

	"nhl_stats/ingestion/internal/models"
	"nhl_stats/ingestion/internal/repository"
)

// API is the subset of the NHL client the stages fetch through.
// Every method returns the body of a 2xx response or an error.
type API interface {
	FetchSeasons(ctx context.Context) ([]byte, error)
	FetchTeams(ctx context.Context) ([]byte, error)
	FetchRoster(ctx context.Context, abbrev string, seasonID int) ([]byte, error)
	FetchStandings(ctx context.Context, date time.Time) ([]byte, error)
	FetchPlayerLanding(ctx context.Context, playerID int) ([]byte, error)
	FetchClubSchedule(ctx context.Context, abbrev string, seasonID int) ([]byte, error)
	FetchPlayByPlay(ctx context.Context, gameID int) ([]byte, error)
}

// Store is everything the stages read from and write to storage
type Store interface {
	LoadSeasons(ctx context.Context, seasons []models.Season) (int, error)
	ListSeasons(ctx context.Context) ([]models.Season, error)
	MinSeasonID(ctx context.Context) (int, bool, error)

	LoadTeams(ctx context.Context, teams []models.Team) (int, error)
	ListTeams(ctx context.Context) ([]models.Team, error)

	LoadTeamSeasons(ctx context.Context, keys []models.TeamSeasonKey) (int, error)
	ListTeamSeasons(ctx context.Context) ([]models.TeamSeason, error)
	LoadStandings(ctx context.Context, standings []models.Standing) (written, skipped int, err error)

	LoadPlayers(ctx context.Context, players []models.Player) (int, error)
	ListPlayerIDs(ctx context.Context) ([]int, error)
	UpdateAmateurLeagues(ctx context.Context, updates []models.AmateurLeagueUpdate) (int, error)
	LoadRosters(ctx context.Context, entries []models.RosterEntry) (int, error)

	ResolveStatLines(ctx context.Context, lines []models.StatLine) (resolved, unresolved []models.StatLine, err error)
	LoadStatLines(ctx context.Context, lines []models.StatLine) (int, error)

	LoadGame(ctx context.Context, pbp *models.PlayByPlay) (int, error)
}

// dbStore adapts the repository layer to Store
type dbStore struct {
	db *repository.Database
}

// NewStore returns a Store backed by db
func NewStore(db *repository.Database) Store {
	return &dbStore{db: db}
}

func (s *dbStore) LoadSeasons(ctx context.Context, seasons []models.Season) (int, error) {
	return s.db.Seasons.Load(ctx, seasons)
}

func (s *dbStore) ListSeasons(ctx context.Context) ([]models.Season, error) {
	return s.db.Seasons.List(ctx)
}

func (s *dbStore) MinSeasonID(ctx context.Context) (int, bool, error) {
	return s.db.Seasons.MinID(ctx)
}

func (s *dbStore) LoadTeams(ctx context.Context, teams []models.Team) (int, error) {
	return s.db.Teams.Load(ctx, teams)
}

func (s *dbStore) ListTeams(ctx context.Context) ([]models.Team, error) {
	return s.db.Teams.List(ctx)
}

func (s *dbStore) LoadTeamSeasons(ctx context.Context, keys []models.TeamSeasonKey) (int, error) {
	return s.db.TeamSeasons.Load(ctx, keys)
}

func (s *dbStore) ListTeamSeasons(ctx context.Context) ([]models.TeamSeason, error) {
	return s.db.TeamSeasons.List(ctx)
}

func (s *dbStore) LoadStandings(ctx context.Context, standings []models.Standing) (int, int, error) {
	return s.db.TeamSeasons.LoadStandings(ctx, standings)
}

func (s *dbStore) LoadPlayers(ctx context.Context, players []models.Player) (int, error) {
	return s.db.Players.Load(ctx, players)
}

func (s *dbStore) ListPlayerIDs(ctx context.Context) ([]int, error) {
	return s.db.Players.ListIDs(ctx)
}

func (s *dbStore) UpdateAmateurLeagues(ctx context.Context, updates []models.AmateurLeagueUpdate) (int, error) {
	return s.db.Players.UpdateAmateurLeagues(ctx, updates)
}

func (s *dbStore) LoadRosters(ctx context.Context, entries []models.RosterEntry) (int, error) {
	return s.db.Rosters.Load(ctx, entries)
}

func (s *dbStore) ResolveStatLines(ctx context.Context, lines []models.StatLine) ([]models.StatLine, []models.StatLine, error) {
	return s.db.Stats.ResolveTeamSeasons(ctx, lines)
}

func (s *dbStore) LoadStatLines(ctx context.Context, lines []models.StatLine) (int, error) {
	return s.db.Stats.Load(ctx, lines)
}

func (s *dbStore) LoadGame(ctx context.Context, pbp *models.PlayByPlay) (int, error) {
	result, err := s.db.Games.LoadGame(ctx, pbp)
	if err != nil {
		return 0, err
	}
	return result.Written(), nil
}
