package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"faceit-presence/internal/constants"
	"faceit-presence/internal/domain"
)

// LiveMatch queries the third-party live feed. The feed is advisory only:
// any failure at all degrades to absent so it can never stall the monitor.
func (c *Client) LiveMatch(ctx context.Context, nickname string) (*domain.LiveMatch, bool) {
	u := fmt.Sprintf("%s/stats/%s", c.liveBase, url.PathEscape(nickname))

	// No pacing gate here; this is a different host with its own budget.
	body, err := c.get(ctx, "live feed", u, false)
	if err != nil {
		c.logger.Debug().Err(err).Msg("live feed unavailable")
		return nil, false
	}

	var resp liveFeedResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		c.logger.Debug().Err(err).Msg("live feed malformed")
		return nil, false
	}
	if resp.Error != "" {
		c.logger.Debug().Str("error", resp.Error).Msg("live feed rejected nickname")
		return nil, false
	}

	return resp.toDomain(), true
}

// ongoingFromHistoryHost probes the secondary match-history API for an
// in-progress match. Best-effort fast path ahead of the official history.
func (c *Client) ongoingFromHistoryHost(ctx context.Context, playerID string) (string, bool) {
	u := fmt.Sprintf("%s/players/%s/matches?size=%d", c.historyBase, playerID, constants.HistoryProbeLimit)

	body, err := c.get(ctx, "history host", u, true)
	if err != nil {
		c.logger.Debug().Err(err).Msg("secondary history host unavailable")
		return "", false
	}

	var resp struct {
		Payload []struct {
			MatchID string `json:"match_id"`
			ID      string `json:"id"`
			Status  string `json:"status"`
		} `json:"payload"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", false
	}

	for _, m := range resp.Payload {
		if isActiveStatus(m.Status) {
			if m.MatchID != "" {
				return m.MatchID, true
			}
			if m.ID != "" {
				return m.ID, true
			}
		}
	}
	return "", false
}

type liveFeedResponse struct {
	Error   string `json:"error"`
	Present bool   `json:"present"`
	Status  string `json:"status"`

	Elo            int    `json:"elo"`
	Country        string `json:"country"`
	RegionRanking  int    `json:"region_ranking"`
	CountryRanking int    `json:"country_ranking"`

	Current struct {
		Status  string `json:"status"`
		Map     string `json:"map"`
		Score1  int    `json:"score1"`
		Score2  int    `json:"score2"`
		EloDiff string `json:"elo_diff"`
		Server  string `json:"server"`
		Queue   string `json:"queue"`
		Round   int    `json:"round"`
		FPL     string `json:"fpl"`
		FPLC    string `json:"fplc"`
		Trend   string `json:"trend"`
	} `json:"current"`

	Detail struct {
		Ladder struct {
			Position int    `json:"position"`
			Division string `json:"division"`
			Points   int    `json:"points"`
			WinRate  string `json:"win_rate"`
		} `json:"ladder"`
	} `json:"detail"`

	Today struct {
		Elo    int `json:"elo"`
		Wins   int `json:"wins"`
		Losses int `json:"losses"`
		Count  int `json:"count"`
	} `json:"today"`
}

func (r *liveFeedResponse) toDomain() *domain.LiveMatch {
	live := r.Present &&
		(strings.EqualFold(r.Status, "LIVE") || strings.EqualFold(r.Current.Status, "LIVE"))

	return &domain.LiveMatch{
		IsLive:     live,
		MapName:    r.Current.Map,
		ScoreTeam1: r.Current.Score1,
		ScoreTeam2: r.Current.Score2,
		EloAtStake: r.Current.EloDiff,
		Server:     r.Current.Server,
		QueueName:  r.Current.Queue,
		Round:      r.Current.Round,

		CurrentElo:  r.Elo,
		CountryCode: r.Country,
		RegionRank:  r.RegionRanking,
		CountryRank: r.CountryRanking,
		Ladder: domain.Ladder{
			Position: r.Detail.Ladder.Position,
			Division: r.Detail.Ladder.Division,
			Points:   r.Detail.Ladder.Points,
			WinRate:  r.Detail.Ladder.WinRate,
		},

		TodayElo:     r.Today.Elo,
		TodayWins:    r.Today.Wins,
		TodayLosses:  r.Today.Losses,
		TodayMatches: r.Today.Count,

		FPLStatus:  r.Current.FPL,
		FPLCStatus: r.Current.FPLC,
		Trend:      r.Current.Trend,
	}
}
