package providers

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

// newTestClient points a client at the test server with rate limiting
// effectively disabled so tests run fast.
func newTestClient(t *testing.T, serverURL string) *BallDontLieClient {
	t.Helper()
	return NewBallDontLieClient(serverURL, "test-key", 6000, 0, 1, 2*time.Second, testLogger())
}

const teamsBody = `{"data":[
	{"id":1,"abbreviation":"BOS","full_name":"Boston Celtics"},
	{"id":2,"abbreviation":"MIA","full_name":"Miami Heat"}
]}`

func TestFetchPropLines(t *testing.T) {
	var teamHits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.Header.Get("Authorization"))

		switch r.URL.Path {
		case "/teams":
			atomic.AddInt32(&teamHits, 1)
			fmt.Fprint(w, teamsBody)
		case "/odds/player_props":
			if r.URL.Query().Get("cursor") == "" {
				fmt.Fprint(w, `{"data":[
					{"id":11,"player":{"id":100,"first_name":"Jayson","last_name":"Tatum","team":{"id":1,"abbreviation":"BOS"}},
					 "game":{"id":500,"date":"2025-01-31","home_team_id":2,"visitor_team_id":1},
					 "vendor":"book_a","prop_type":"Points","line":27.5,
					 "market":{"type":"over_under","over_odds":-115,"under_odds":-105}},
					{"id":12,"player":{"id":100,"first_name":"Jayson","last_name":"Tatum","team":{"id":1,"abbreviation":"BOS"}},
					 "game":{"id":500,"date":"2025-01-31","home_team_id":2,"visitor_team_id":1},
					 "vendor":"book_a","prop_type":"points","line":29.5,
					 "market":{"type":"milestone","over_odds":0,"under_odds":0}}
				],"meta":{"next_cursor":"page2"}}`)
				return
			}
			fmt.Fprint(w, `{"data":[
				{"id":13,"player":{"id":101,"first_name":"Bam","last_name":"Adebayo","team":{"id":2,"abbreviation":"MIA"}},
				 "game":{"id":500,"date":"2025-01-31","home_team_id":2,"visitor_team_id":1},
				 "vendor":"book_a","prop_type":"pra","line":38.5,
				 "market":{"type":"over_under","over_odds":-110,"under_odds":0}}
			],"meta":{"next_cursor":""}}`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	gameDate := time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC)

	lines, err := client.FetchPropLines(context.Background(), gameDate)
	require.NoError(t, err)
	require.Len(t, lines, 2, "non over/under markets should be skipped")

	tatum := lines[0]
	assert.Equal(t, "Jayson Tatum", tatum.PlayerName)
	assert.Equal(t, "points", tatum.StatType, "stat labels should be lowercased")
	assert.Equal(t, 27.5, tatum.Line)
	assert.Equal(t, "BOS", tatum.Team)
	assert.Equal(t, "MIA", tatum.Opponent)
	assert.Equal(t, "BOS @ MIA", tatum.GameDescription)
	assert.Equal(t, gameDate, tatum.GameDate)
	assert.Equal(t, "balldontlie", tatum.Source)
	require.NotNil(t, tatum.OverPrice)
	assert.Equal(t, -115, *tatum.OverPrice)
	require.NotNil(t, tatum.UnderPrice)
	assert.Equal(t, -105, *tatum.UnderPrice)
	assert.False(t, tatum.CapturedAt.IsZero())

	bam := lines[1]
	assert.Equal(t, "MIA", bam.Team)
	assert.Equal(t, "BOS", bam.Opponent)
	require.NotNil(t, bam.OverPrice)
	assert.Nil(t, bam.UnderPrice, "zero odds mean the side is not quoted")

	// Second fetch reuses the team index
	_, err = client.FetchPropLines(context.Background(), gameDate)
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&teamHits))
}

func TestFetchGameLogs(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/teams":
			fmt.Fprint(w, teamsBody)
		case "/stats/advanced":
			fmt.Fprint(w, `{"data":[
				{"player":{"id":100},"game":{"id":500},"usage_percentage":31.4}
			],"meta":{"next_cursor":""}}`)
		case "/stats":
			fmt.Fprint(w, `{"data":[
				{"id":1,"player":{"id":100,"first_name":"Jayson","last_name":"Tatum"},
				 "team":{"id":1,"abbreviation":"BOS"},
				 "game":{"id":500,"date":"2025-01-30","home_team_id":1,"visitor_team_id":2},
				 "min":"36:30","pts":31,"reb":8,"ast":5,"fg3m":4,"blk":1},
				{"id":2,"player":{"id":102,"first_name":"Deep","last_name":"Bench"},
				 "team":{"id":1,"abbreviation":"BOS"},
				 "game":{"id":500,"date":"2025-01-30","home_team_id":1,"visitor_team_id":2},
				 "min":"","pts":0,"reb":0,"ast":0,"fg3m":0,"blk":0}
			],"meta":{"next_cursor":""}}`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	logs, err := client.FetchGameLogs(context.Background(), time.Date(2025, 1, 30, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, logs, 1, "players with no minutes should be skipped")

	log := logs[0]
	assert.Equal(t, "Jayson Tatum", log.PlayerName)
	assert.Equal(t, "BOS", log.Team)
	assert.Equal(t, "MIA", log.Opponent)
	assert.InDelta(t, 36.5, log.Minutes, 1e-9)
	require.NotNil(t, log.Points)
	assert.Equal(t, 31.0, *log.Points)
	require.NotNil(t, log.Threes)
	assert.Equal(t, 4.0, *log.Threes)
	require.NotNil(t, log.UsageRate, "advanced stats should merge into the log")
	assert.InDelta(t, 31.4, *log.UsageRate, 1e-9)
}

func TestFetchGameLogsWithoutAdvancedStats(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/teams":
			fmt.Fprint(w, teamsBody)
		case "/stats/advanced":
			w.WriteHeader(http.StatusForbidden)
		case "/stats":
			fmt.Fprint(w, `{"data":[
				{"id":1,"player":{"id":100,"first_name":"Jayson","last_name":"Tatum"},
				 "team":{"id":1,"abbreviation":"BOS"},
				 "game":{"id":500,"date":"2025-01-30","home_team_id":1,"visitor_team_id":2},
				 "min":"30:00","pts":22,"reb":6,"ast":4,"fg3m":2,"blk":0}
			],"meta":{"next_cursor":""}}`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	logs, err := client.FetchGameLogs(context.Background(), time.Date(2025, 1, 30, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err, "a failed advanced stats fetch should not fail the ingest")
	require.Len(t, logs, 1)
	assert.Nil(t, logs[0].UsageRate)
}

func TestCircuitBreakerOpensOnRepeatedFailures(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	for i := 0; i < 3; i++ {
		var dest bdlTeamsResponse
		err := client.doRequest(context.Background(), server.URL+"/teams", &dest)
		require.Error(t, err)
	}

	var dest bdlTeamsResponse
	err := client.doRequest(context.Background(), server.URL+"/teams", &dest)
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, int32(3), atomic.LoadInt32(&hits), "an open breaker should short-circuit the request")
}

func TestParseMinutes(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected float64
	}{
		{"whole minutes", "34:00", 34},
		{"minutes and seconds", "36:30", 36.5},
		{"did not play", "", 0},
		{"bare number", "35", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, parseMinutes(tt.input), 1e-9)
		})
	}
}
