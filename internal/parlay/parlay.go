// Package parlay combines graded prop legs into a single priced ticket with
// a naive joint hit estimate and correlation warnings.
package parlay

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

const (
	MinLegs = 2
	MaxLegs = 10

	// defaultPrice is assumed for a leg without a quoted price.
	defaultPrice = -110
)

var (
	ErrTooFewLegs  = errors.New("parlay requires at least 2 legs")
	ErrTooManyLegs = errors.New("parlay supports at most 10 legs")
)

// Verdict buckets the expected value of a ticket.
type Verdict string

const (
	VerdictStrong   Verdict = "STRONG"
	VerdictPlayable Verdict = "PLAYABLE"
	VerdictNegative Verdict = "NEGATIVE_EV"
)

// strongEVThreshold marks the expected-value cutoff for a STRONG verdict.
const strongEVThreshold = 0.15

// Leg is one prop pick inside a ticket. HitRate is the leg's trailing
// 10-game hit rate as scored by the engine.
type Leg struct {
	PlayerName string  `json:"player_name" binding:"required"`
	StatType   string  `json:"stat_type" binding:"required"`
	Team       string  `json:"team"`
	Opponent   string  `json:"opponent"`
	Side       string  `json:"side" binding:"required"`
	Line       float64 `json:"line"`
	Price      *int    `json:"price,omitempty"`
	HitRate    float64 `json:"hit_rate"`
	Tier       string  `json:"tier,omitempty"`
}

// Evaluation is the combined pricing and risk picture for a ticket.
type Evaluation struct {
	Legs                int      `json:"legs"`
	CombinedDecimal     float64  `json:"combined_decimal"`
	CombinedPrice       int      `json:"combined_price"`
	ImpliedProbability  float64  `json:"implied_probability"`
	EstimatedHitRate    float64  `json:"estimated_hit_rate"`
	ExpectedValue       float64  `json:"expected_value"`
	CorrelationWarnings []string `json:"correlation_warnings,omitempty"`
	Verdict             Verdict  `json:"verdict"`
}

// Evaluate prices the ticket as the product of each leg's decimal odds and
// estimates the joint hit rate as the product of the legs' individual hit
// rates. The independence assumption is exactly what the correlation
// warnings exist to call out.
func Evaluate(legs []Leg) (*Evaluation, error) {
	if len(legs) < MinLegs {
		return nil, ErrTooFewLegs
	}
	if len(legs) > MaxLegs {
		return nil, ErrTooManyLegs
	}

	combined := 1.0
	estimated := 1.0
	for i, leg := range legs {
		price := defaultPrice
		if leg.Price != nil {
			price = *leg.Price
		}
		decimal, err := americanToDecimal(price)
		if err != nil {
			return nil, fmt.Errorf("leg %d: %w", i+1, err)
		}
		combined *= decimal
		estimated *= clamp01(leg.HitRate)
	}

	ev := estimated*combined - 1
	verdict := VerdictNegative
	switch {
	case ev >= strongEVThreshold:
		verdict = VerdictStrong
	case ev >= 0:
		verdict = VerdictPlayable
	}

	return &Evaluation{
		Legs:                len(legs),
		CombinedDecimal:     combined,
		CombinedPrice:       decimalToAmerican(combined),
		ImpliedProbability:  1 / combined,
		EstimatedHitRate:    estimated,
		ExpectedValue:       ev,
		CorrelationWarnings: correlationWarnings(legs),
		Verdict:             verdict,
	}, nil
}

// correlationWarnings flags leg pairs whose outcomes are plainly not
// independent: the same player twice, or multiple legs priced off one game.
func correlationWarnings(legs []Leg) []string {
	var warnings []string

	players := make(map[string]int)
	games := make(map[string]int)
	for _, leg := range legs {
		players[strings.ToLower(strings.TrimSpace(leg.PlayerName))]++
		if key := gameKey(leg.Team, leg.Opponent); key != "" {
			games[key]++
		}
	}

	for player, n := range players {
		if n > 1 {
			warnings = append(warnings, fmt.Sprintf("%d legs ride on %s alone", n, player))
		}
	}
	for game, n := range games {
		if n > 1 {
			warnings = append(warnings, fmt.Sprintf("%d legs come from the %s game", n, game))
		}
	}

	return warnings
}

// gameKey identifies a game independent of which side the player is on.
func gameKey(team, opponent string) string {
	a := strings.ToUpper(strings.TrimSpace(team))
	b := strings.ToUpper(strings.TrimSpace(opponent))
	if a == "" || b == "" {
		return ""
	}
	if a > b {
		a, b = b, a
	}
	return a + "@" + b
}

// americanToDecimal converts American odds to decimal odds. +150 becomes
// 2.50, -150 becomes 1.67.
func americanToDecimal(american int) (float64, error) {
	if american == 0 {
		return 0, fmt.Errorf("invalid American odds: cannot be 0")
	}
	if american > 0 {
		return (float64(american) / 100.0) + 1.0, nil
	}
	return (100.0 / float64(-american)) + 1.0, nil
}

// decimalToAmerican converts decimal odds back to the American convention.
func decimalToAmerican(decimal float64) int {
	if decimal >= 2.0 {
		return int(math.Round((decimal - 1.0) * 100.0))
	}
	return int(math.Round(-100.0 / (decimal - 1.0)))
}

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
