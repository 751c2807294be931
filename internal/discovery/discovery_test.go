package discovery

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nba_priors/mining/internal/client"
)

const gameFinderBody = `{"resultSets":[
	{"name":"LeagueGameFinderResults",
	 "headers":["GAME_ID","TEAM_ID","TEAM_ABBREVIATION","WL","MIN","PTS","FGA","FTA","OREB","TOV"],
	 "rowSet":[
		["0022500001",101,"BOS","W",240,110,80,20,10,15],
		["0022500001",102,"WAS","L",240,90,85,10,12,18],
		["0022500002",101,"BOS",null,null,null,null,null,null,null],
		["0012500003",103,"MIA","W",240,100,82,18,9,14],
		["0042400101",104,"OKC","W",240,105,84,16,8,12]
	]}
]}`

func newClientAgainst(t *testing.T, handler http.Handler) *client.Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return client.New(srv.URL, 5*time.Second, 0, time.Millisecond)
}

func TestDiscover_FiltersToCompletedRegularSeason(t *testing.T) {
	var query string
	c := newClientAgainst(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query = r.URL.RawQuery
		w.Write([]byte(gameFinderBody))
	}))

	sg, err := Discover(context.Background(), c, "2025-26")
	require.NoError(t, err)

	assert.Equal(t, []string{"0022500001"}, sg.GameIDs,
		"Preseason, playoff and unfinished games are dropped")
	require.Len(t, sg.Lines["0022500001"], 2)

	bos := sg.Lines["0022500001"][0]
	assert.Equal(t, 101, bos.TeamID)
	assert.Equal(t, "BOS", bos.TeamAbbr)
	assert.Equal(t, 240.0, bos.Min)
	assert.Equal(t, 80.0, bos.Fga)
	assert.Equal(t, 20.0, bos.Fta)

	assert.Contains(t, query, "PlayerOrTeam=T")
	assert.Contains(t, query, "Season=2025-26")
	assert.Contains(t, query, "LeagueID=00")
}

func TestDiscover_MinDefaultsWhenNull(t *testing.T) {
	c := newClientAgainst(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"resultSets":[
			{"name":"LeagueGameFinderResults",
			 "headers":["GAME_ID","TEAM_ID","TEAM_ABBREVIATION","WL","MIN","PTS","FGA","FTA","OREB","TOV"],
			 "rowSet":[
				["0022500001",101,"BOS","W",null,110,80,20,10,15],
				["0022500001",102,"WAS","L",240,90,85,10,12,18]
			]}
		]}`))
	}))

	sg, err := Discover(context.Background(), c, "2025-26")
	require.NoError(t, err)
	assert.Equal(t, 240.0, sg.Lines["0022500001"][0].Min)
}

func TestDiscover_NoCompletedGames(t *testing.T) {
	c := newClientAgainst(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"resultSets":[
			{"name":"LeagueGameFinderResults",
			 "headers":["GAME_ID","TEAM_ID","TEAM_ABBREVIATION","WL"],
			 "rowSet":[["0022500001",101,"BOS",null]]}
		]}`))
	}))

	_, err := Discover(context.Background(), c, "2025-26")
	var de *DiscoveryError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "no completed regular-season games", de.Reason)
}

func TestDiscover_MissingGameLogTable(t *testing.T) {
	c := newClientAgainst(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"resultSets":[
			{"name":"Something","headers":["FOO"],"rowSet":[["bar"]]}
		]}`))
	}))

	_, err := Discover(context.Background(), c, "2025-26")
	var de *DiscoveryError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "no game log table in response", de.Reason)
}

func TestDiscover_UpstreamFailureIsFatal(t *testing.T) {
	c := newClientAgainst(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	_, err := Discover(context.Background(), c, "2025-26")
	var de *DiscoveryError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "game finder fetch", de.Reason)

	var se *client.StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusNotFound, se.Code)
}
