package client

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
)

const (
	endpointGameFinder       = "leaguegamefinder"
	endpointBoxScoreSummary  = "boxscoresummaryv2"
	endpointBoxScoreAdvanced = "boxscoreadvancedv2"
)

// LeagueGameFinder fetches the per-season team game log.
func (c *Client) LeagueGameFinder(ctx context.Context, season, leagueID, seasonType string) ([]ResultTable, error) {
	params := url.Values{}
	params.Set("PlayerOrTeam", "T")
	params.Set("Season", season)
	params.Set("LeagueID", leagueID)
	params.Set("SeasonType", seasonType)

	body, err := c.get(ctx, endpointGameFinder, params)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch game finder: %w", err)
	}
	return DecodeTables(body)
}

// BoxScoreSummary fetches a game's summary tables, including the
// quarter-by-quarter line score.
func (c *Client) BoxScoreSummary(ctx context.Context, gameID string) ([]ResultTable, error) {
	params := url.Values{}
	params.Set("GameID", gameID)

	body, err := c.get(ctx, endpointBoxScoreSummary, params)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch box score summary for %s: %w", gameID, err)
	}
	return DecodeTables(body)
}

// BoxScoreAdvanced fetches period-scoped advanced box score tables.
func (c *Client) BoxScoreAdvanced(ctx context.Context, gameID string, startPeriod, endPeriod int) ([]ResultTable, error) {
	params := url.Values{}
	params.Set("GameID", gameID)
	params.Set("StartPeriod", strconv.Itoa(startPeriod))
	params.Set("EndPeriod", strconv.Itoa(endPeriod))
	params.Set("StartRange", "0")
	params.Set("EndRange", "0")
	params.Set("RangeType", "0")

	body, err := c.get(ctx, endpointBoxScoreAdvanced, params)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch advanced box score for %s: %w", gameID, err)
	}
	return DecodeTables(body)
}
