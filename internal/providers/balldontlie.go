package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/sweetspotdev/prop-edge/internal/models"
)

// BallDontLieClient fetches prop odds, box scores and advanced stats from
// the BALLDONTLIE API. Requests are rate limited, retried on transient
// failures and wrapped in a circuit breaker so a flapping upstream cannot
// stall a scan cycle.
type BallDontLieClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	limiter    *rate.Limiter
	breaker    *gobreaker.CircuitBreaker
	logger     *logrus.Logger

	teams map[int]bdlTeam // lazily loaded, id -> team
}

// NewBallDontLieClient creates a new BALLDONTLIE API client
func NewBallDontLieClient(baseURL, apiKey string, requestsPerMinute, retryMax, breakerThreshold int, timeout time.Duration, logger *logrus.Logger) *BallDontLieClient {
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = retryMax
	retryClient.RetryWaitMin = 500 * time.Millisecond
	retryClient.RetryWaitMax = 3 * time.Second
	retryClient.HTTPClient.Timeout = timeout
	retryClient.Logger = nil

	if requestsPerMinute <= 0 {
		requestsPerMinute = 5
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "balldontlie",
		MaxRequests: uint32(breakerThreshold),
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.WithFields(logrus.Fields{
				"component": "circuit_breaker",
				"service":   name,
				"from":      from.String(),
				"to":        to.String(),
			}).Info("Circuit breaker state changed")
		},
	})

	return &BallDontLieClient{
		httpClient: retryClient.StandardClient(),
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		limiter:    rate.NewLimiter(rate.Every(time.Minute/time.Duration(requestsPerMinute)), 1),
		breaker:    breaker,
		logger:     logger,
	}
}

// BALLDONTLIE API response structures
type bdlMeta struct {
	NextCursor string `json:"next_cursor"`
	PerPage    int    `json:"per_page"`
}

type bdlTeam struct {
	ID           int    `json:"id"`
	Abbreviation string `json:"abbreviation"`
	FullName     string `json:"full_name"`
}

type bdlPlayer struct {
	ID        int     `json:"id"`
	FirstName string  `json:"first_name"`
	LastName  string  `json:"last_name"`
	Team      bdlTeam `json:"team"`
}

type bdlGame struct {
	ID            int    `json:"id"`
	Date          string `json:"date"`
	Status        string `json:"status"`
	HomeTeamID    int    `json:"home_team_id"`
	VisitorTeamID int    `json:"visitor_team_id"`
}

type bdlTeamsResponse struct {
	Data []bdlTeam `json:"data"`
}

type bdlOddsEntry struct {
	ID       int       `json:"id"`
	Player   bdlPlayer `json:"player"`
	Game     bdlGame   `json:"game"`
	Vendor   string    `json:"vendor"`
	PropType string    `json:"prop_type"`
	Line     float64   `json:"line"`
	Market   bdlMarket `json:"market"`
}

type bdlMarket struct {
	Type      string `json:"type"`
	OverOdds  int    `json:"over_odds"`
	UnderOdds int    `json:"under_odds"`
}

type bdlOddsResponse struct {
	Data []bdlOddsEntry `json:"data"`
	Meta bdlMeta        `json:"meta"`
}

type bdlStatsEntry struct {
	ID     int       `json:"id"`
	Player bdlPlayer `json:"player"`
	Team   bdlTeam   `json:"team"`
	Game   bdlGame   `json:"game"`
	Min    string    `json:"min"`
	Pts    int       `json:"pts"`
	Reb    int       `json:"reb"`
	Ast    int       `json:"ast"`
	Fg3m   int       `json:"fg3m"`
	Blk    int       `json:"blk"`
}

type bdlStatsResponse struct {
	Data []bdlStatsEntry `json:"data"`
	Meta bdlMeta         `json:"meta"`
}

type bdlAdvancedEntry struct {
	Player          bdlPlayer `json:"player"`
	Game            bdlGame   `json:"game"`
	UsagePercentage float64   `json:"usage_percentage"`
}

type bdlAdvancedResponse struct {
	Data []bdlAdvancedEntry `json:"data"`
	Meta bdlMeta            `json:"meta"`
}

// FetchPropLines fetches the current player prop odds board for a game date.
// Every quote becomes an immutable snapshot stamped with capturedAt.
func (c *BallDontLieClient) FetchPropLines(ctx context.Context, gameDate time.Time) ([]models.PropLine, error) {
	teams, err := c.teamIndex(ctx)
	if err != nil {
		return nil, err
	}

	day := gameDate.UTC().Format("2006-01-02")
	capturedAt := time.Now().UTC()

	var lines []models.PropLine
	cursor := ""
	for {
		endpoint := fmt.Sprintf("%s/odds/player_props?date=%s&per_page=100", c.baseURL, day)
		if cursor != "" {
			endpoint += "&cursor=" + url.QueryEscape(cursor)
		}

		var page bdlOddsResponse
		if err := c.doRequest(ctx, endpoint, &page); err != nil {
			return nil, fmt.Errorf("failed to fetch prop odds: %w", err)
		}

		for _, entry := range page.Data {
			if entry.Market.Type != "over_under" {
				continue
			}

			line := models.PropLine{
				ExternalID: strconv.Itoa(entry.ID),
				PlayerName: playerName(entry.Player),
				Team:       entry.Player.Team.Abbreviation,
				StatType:   strings.ToLower(entry.PropType),
				Line:       entry.Line,
				GameDate:   parseGameDate(entry.Game.Date, gameDate),
				Source:     "balldontlie",
				CapturedAt: capturedAt,
			}
			if entry.Market.OverOdds != 0 {
				over := entry.Market.OverOdds
				line.OverPrice = &over
			}
			if entry.Market.UnderOdds != 0 {
				under := entry.Market.UnderOdds
				line.UnderPrice = &under
			}

			home, away := teams[entry.Game.HomeTeamID], teams[entry.Game.VisitorTeamID]
			line.GameDescription = gameDescription(home, away)
			line.Opponent = opponentOf(entry.Player.Team.ID, entry.Game, teams)
			line.StartTime = line.GameDate

			lines = append(lines, line)
		}

		if page.Meta.NextCursor == "" {
			break
		}
		cursor = page.Meta.NextCursor
	}

	c.logger.Infof("Fetched %d prop lines for %s", len(lines), day)
	return lines, nil
}

// FetchGameLogs fetches the box scores for a game date, merged with advanced
// stats so usage rates ride along when the API has them. Players with no
// recorded minutes are skipped entirely; a missing game is not a zero-stat
// game.
func (c *BallDontLieClient) FetchGameLogs(ctx context.Context, gameDate time.Time) ([]models.PlayerGameLog, error) {
	teams, err := c.teamIndex(ctx)
	if err != nil {
		return nil, err
	}

	day := gameDate.UTC().Format("2006-01-02")

	usage, err := c.fetchUsageRates(ctx, day)
	if err != nil {
		// Advanced stats are a paid tier add-on, missing usage only costs
		// the usage boost
		c.logger.Warnf("Failed to fetch advanced stats for %s: %v", day, err)
		usage = map[int]float64{}
	}

	var logs []models.PlayerGameLog
	cursor := ""
	for {
		endpoint := fmt.Sprintf("%s/stats?dates[]=%s&per_page=100", c.baseURL, day)
		if cursor != "" {
			endpoint += "&cursor=" + url.QueryEscape(cursor)
		}

		var page bdlStatsResponse
		if err := c.doRequest(ctx, endpoint, &page); err != nil {
			return nil, fmt.Errorf("failed to fetch game logs: %w", err)
		}

		for _, entry := range page.Data {
			minutes := parseMinutes(entry.Min)
			if minutes == 0 {
				continue
			}

			log := models.PlayerGameLog{
				PlayerName: playerName(entry.Player),
				GameDate:   parseGameDate(entry.Game.Date, gameDate),
				Team:       entry.Team.Abbreviation,
				Opponent:   opponentOf(entry.Team.ID, entry.Game, teams),
				Minutes:    minutes,
				Points:     floatPtr(float64(entry.Pts)),
				Rebounds:   floatPtr(float64(entry.Reb)),
				Assists:    floatPtr(float64(entry.Ast)),
				Threes:     floatPtr(float64(entry.Fg3m)),
				Blocks:     floatPtr(float64(entry.Blk)),
			}
			if pct, ok := usage[entry.Player.ID]; ok {
				log.UsageRate = floatPtr(pct)
			}
			logs = append(logs, log)
		}

		if page.Meta.NextCursor == "" {
			break
		}
		cursor = page.Meta.NextCursor
	}

	c.logger.Infof("Fetched %d game logs for %s", len(logs), day)
	return logs, nil
}

// fetchUsageRates maps player ID to usage percentage for one game date.
func (c *BallDontLieClient) fetchUsageRates(ctx context.Context, day string) (map[int]float64, error) {
	usage := make(map[int]float64)
	cursor := ""
	for {
		endpoint := fmt.Sprintf("%s/stats/advanced?dates[]=%s&per_page=100", c.baseURL, day)
		if cursor != "" {
			endpoint += "&cursor=" + url.QueryEscape(cursor)
		}

		var page bdlAdvancedResponse
		if err := c.doRequest(ctx, endpoint, &page); err != nil {
			return nil, err
		}

		for _, entry := range page.Data {
			if entry.UsagePercentage > 0 {
				usage[entry.Player.ID] = entry.UsagePercentage
			}
		}

		if page.Meta.NextCursor == "" {
			break
		}
		cursor = page.Meta.NextCursor
	}
	return usage, nil
}

// teamIndex returns the team lookup, fetching it on first use.
func (c *BallDontLieClient) teamIndex(ctx context.Context) (map[int]bdlTeam, error) {
	if c.teams != nil {
		return c.teams, nil
	}

	var resp bdlTeamsResponse
	if err := c.doRequest(ctx, c.baseURL+"/teams", &resp); err != nil {
		return nil, fmt.Errorf("failed to fetch teams: %w", err)
	}

	teams := make(map[int]bdlTeam, len(resp.Data))
	for _, team := range resp.Data {
		teams[team.ID] = team
	}
	c.teams = teams
	return teams, nil
}

// doRequest performs one rate-limited GET through the circuit breaker and
// decodes the JSON body into dest.
func (c *BallDontLieClient) doRequest(ctx context.Context, endpoint string, dest interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	_, err := c.breaker.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", c.apiKey)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("request failed: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
		}

		return nil, json.NewDecoder(resp.Body).Decode(dest)
	})
	return err
}

func playerName(p bdlPlayer) string {
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}

// parseGameDate parses the API's date field, falling back to the requested
// date when the field is malformed.
func parseGameDate(raw string, fallback time.Time) time.Time {
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		return t
	}
	f := fallback.UTC()
	return time.Date(f.Year(), f.Month(), f.Day(), 0, 0, 0, 0, time.UTC)
}

// parseMinutes converts "MM:SS" to float64 minutes
func parseMinutes(minStr string) float64 {
	parts := strings.Split(minStr, ":")
	if len(parts) != 2 {
		return 0
	}

	minutes, _ := strconv.ParseFloat(parts[0], 64)
	seconds, _ := strconv.ParseFloat(parts[1], 64)

	return minutes + (seconds / 60)
}

func opponentOf(teamID int, game bdlGame, teams map[int]bdlTeam) string {
	if teamID == game.HomeTeamID {
		return teams[game.VisitorTeamID].Abbreviation
	}
	return teams[game.HomeTeamID].Abbreviation
}

func gameDescription(home, away bdlTeam) string {
	if home.Abbreviation == "" || away.Abbreviation == "" {
		return ""
	}
	return fmt.Sprintf("%s @ %s", away.Abbreviation, home.Abbreviation)
}

func floatPtr(v float64) *float64 {
	return &v
}
