package client

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// NHLClient is the NHL API client. Stats endpoints (seasons, teams) and web
// endpoints (rosters, standings, players, games) live on different hosts.
type NHLClient struct {
	statsURL string
	webURL   string
	fetcher  *Fetcher
	session  *http.Client
}

// NewNHLClient creates a client on top of fetcher. session may be nil to use
// the fetcher's own pooled client.
func NewNHLClient(statsURL, webURL string, fetcher *Fetcher, session *http.Client) *NHLClient {
	return &NHLClient{
		statsURL: strings.TrimRight(statsURL, "/"),
		webURL:   strings.TrimRight(webURL, "/"),
		fetcher:  fetcher,
		session:  session,
	}
}

// get fetches url and returns the body of a 2xx response
func (c *NHLClient) get(ctx context.Context, url string) ([]byte, error) {
	var opts []FetchOption
	if c.session != nil {
		opts = append(opts, Session(c.session))
	}

	resp, err := c.fetcher.Fetch(ctx, url, opts...)
	if err != nil {
		return nil, err
	}
	if err := resp.Err(); err != nil {
		return nil, err
	}
	return resp.Body, nil
}

// FetchSeasons fetches the season list
func (c *NHLClient) FetchSeasons(ctx context.Context) ([]byte, error) {
	body, err := c.get(ctx, c.statsURL+"/stats/rest/en/season")
	if err != nil {
		return nil, fmt.Errorf("failed to fetch seasons: %w", err)
	}
	return body, nil
}

// FetchTeams fetches the team list
func (c *NHLClient) FetchTeams(ctx context.Context) ([]byte, error) {
	body, err := c.get(ctx, c.statsURL+"/stats/rest/en/team")
	if err != nil {
		return nil, fmt.Errorf("failed to fetch teams: %w", err)
	}
	return body, nil
}

// FetchRoster fetches a team's roster for one season
func (c *NHLClient) FetchRoster(ctx context.Context, abbrev string, seasonID int) ([]byte, error) {
	url := fmt.Sprintf("%s/v1/roster/%s/%d", c.webURL, abbrev, seasonID)
	body, err := c.get(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch roster %s %d: %w", abbrev, seasonID, err)
	}
	return body, nil
}

// FetchStandings fetches the league standings snapshot on date
func (c *NHLClient) FetchStandings(ctx context.Context, date time.Time) ([]byte, error) {
	url := fmt.Sprintf("%s/v1/standings/%s", c.webURL, date.Format("2006-01-02"))
	body, err := c.get(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch standings for %s: %w", date.Format("2006-01-02"), err)
	}
	return body, nil
}

// FetchPlayerLanding fetches a player's profile with season totals
func (c *NHLClient) FetchPlayerLanding(ctx context.Context, playerID int) ([]byte, error) {
	url := fmt.Sprintf("%s/v1/player/%d/landing", c.webURL, playerID)
	body, err := c.get(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch player %d: %w", playerID, err)
	}
	return body, nil
}

// FetchClubSchedule fetches a team's full schedule for one season
func (c *NHLClient) FetchClubSchedule(ctx context.Context, abbrev string, seasonID int) ([]byte, error) {
	url := fmt.Sprintf("%s/v1/club-schedule-season/%s/%d", c.webURL, abbrev, seasonID)
	body, err := c.get(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch schedule %s %d: %w", abbrev, seasonID, err)
	}
	return body, nil
}

// FetchPlayByPlay fetches the event stream of one game
func (c *NHLClient) FetchPlayByPlay(ctx context.Context, gameID int) ([]byte, error) {
	url := fmt.Sprintf("%s/v1/gamecenter/%d/play-by-play", c.webURL, gameID)
	body, err := c.get(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch play-by-play %d: %w", gameID, err)
	}
	return body, nil
}
