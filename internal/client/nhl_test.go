package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNHLClient_Endpoints(t *testing.T) {
	var paths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := NewNHLClient(srv.URL+"/", srv.URL, newTestFetcher(&recordingSleep{}), nil)
	ctx := context.Background()

	_, err := c.FetchSeasons(ctx)
	require.NoError(t, err)
	_, err = c.FetchTeams(ctx)
	require.NoError(t, err)
	_, err = c.FetchRoster(ctx, "TOR", 20232024)
	require.NoError(t, err)
	_, err = c.FetchStandings(ctx, time.Date(2024, 4, 18, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	_, err = c.FetchPlayerLanding(ctx, 8478402)
	require.NoError(t, err)
	_, err = c.FetchClubSchedule(ctx, "EDM", 20232024)
	require.NoError(t, err)
	_, err = c.FetchPlayByPlay(ctx, 2023020205)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"/stats/rest/en/season",
		"/stats/rest/en/team",
		"/v1/roster/TOR/20232024",
		"/v1/standings/2024-04-18",
		"/v1/player/8478402/landing",
		"/v1/club-schedule-season/EDM/20232024",
		"/v1/gamecenter/2023020205/play-by-play",
	}, paths)
}

func TestNHLClient_UpstreamError(t *testing.T) {
	srv, _ := sequenceServer(t, status(http.StatusNotFound))
	c := NewNHLClient(srv.URL, srv.URL, newTestFetcher(&recordingSleep{}), nil)

	_, err := c.FetchRoster(context.Background(), "UTA", 20222023)
	require.Error(t, err)
	assert.True(t, IsNotFound(err), "Wrapped error should still expose the 404")
	assert.Contains(t, err.Error(), "UTA")
}

func TestNHLClient_ReusesSession(t *testing.T) {
	srv, _ := sequenceServer(t, status(http.StatusOK))

	var used int
	session := &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
		used++
		return http.DefaultTransport.RoundTrip(r)
	})}

	c := NewNHLClient(srv.URL, srv.URL, newTestFetcher(&recordingSleep{}), session)
	for _, id := range []int{1, 2, 3} {
		_, err := c.FetchPlayerLanding(context.Background(), id)
		require.NoError(t, err)
	}
	assert.Equal(t, 3, used)
}
