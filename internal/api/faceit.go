package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"faceit-presence/internal/config"
	"faceit-presence/internal/constants"
	"faceit-presence/internal/domain"

	"github.com/rs/zerolog"
	"github.com/valyala/fasthttp"
	"golang.org/x/time/rate"
)

// CS2 game id on FACEIT.
const gameID = "cs2"

type cachedPlayer struct {
	player   domain.Player
	cachedAt time.Time
}

// Client talks to the FACEIT data API, the secondary match-history host and
// the best-effort live feed. All authoritative calls are serialized through
// one pacing gate.
type Client struct {
	apiKey      string
	apiBase     string
	historyBase string
	liveBase    string

	http    *fasthttp.Client
	limiter *rate.Limiter
	logger  zerolog.Logger

	cacheMu sync.RWMutex
	players map[string]cachedPlayer
}

func NewClient(cfg *config.Config, logger zerolog.Logger) *Client {
	return &Client{
		apiKey:      cfg.FaceitAPIKey,
		apiBase:     cfg.FaceitAPIBase,
		historyBase: cfg.HistoryAPIBase,
		liveBase:    cfg.LiveFeedBase,
		http: &fasthttp.Client{
			MaxConnsPerHost:     8,
			ReadTimeout:         constants.ExternalAPITimeout,
			WriteTimeout:        constants.ExternalAPITimeout,
			MaxIdleConnDuration: 1 * time.Minute,
		},
		limiter: rate.NewLimiter(rate.Every(constants.APIRequestInterval), 1),
		logger:  logger,
		players: make(map[string]cachedPlayer),
	}
}

// ResolvePlayer looks up the tracked player by nickname. Results are cached
// for a short TTL so repeated resolutions do not burn rate budget.
func (c *Client) ResolvePlayer(ctx context.Context, nickname string) (*domain.Player, error) {
	key := strings.ToLower(nickname)

	c.cacheMu.RLock()
	cached, ok := c.players[key]
	c.cacheMu.RUnlock()
	if ok && time.Since(cached.cachedAt) < constants.PlayerCacheTTL {
		p := cached.player
		return &p, nil
	}

	u := fmt.Sprintf("%s/players?nickname=%s&game=%s", c.apiBase, url.QueryEscape(nickname), gameID)
	resp, err := doRequest[playerResponse](ctx, c, "resolve player", u)
	if err != nil {
		return nil, err
	}

	player := resp.toDomain()

	c.cacheMu.Lock()
	c.players[key] = cachedPlayer{player: *player, cachedAt: time.Now()}
	c.cacheMu.Unlock()

	return player, nil
}

// PlayerByID fetches a player by FACEIT id, bypassing the nickname cache.
func (c *Client) PlayerByID(ctx context.Context, playerID string) (*domain.Player, error) {
	u := fmt.Sprintf("%s/players/%s", c.apiBase, playerID)
	resp, err := doRequest[playerResponse](ctx, c, "player by id", u)
	if err != nil {
		return nil, err
	}
	return resp.toDomain(), nil
}

// OngoingMatchID finds a match the player is currently in. The secondary
// history host is probed first, then the official history feed. Both
// sources are best-effort; no match and total failure look the same.
func (c *Client) OngoingMatchID(ctx context.Context, playerID string) (string, bool) {
	if id, ok := c.ongoingFromHistoryHost(ctx, playerID); ok {
		return id, true
	}

	u := fmt.Sprintf("%s/players/%s/history?game=%s&limit=%d",
		c.apiBase, playerID, gameID, constants.HistoryProbeLimit)
	resp, err := doRequest[historyResponse](ctx, c, "match history", u)
	if err != nil {
		c.logger.Warn().Err(err).Msg("failed to check ongoing match")
		return "", false
	}

	for _, item := range resp.Items {
		if isActiveStatus(item.Status) {
			return item.MatchID, true
		}
	}
	return "", false
}

func isActiveStatus(status string) bool {
	switch strings.ToUpper(status) {
	case domain.StatusReady, domain.StatusOngoing, domain.StatusVoting,
		domain.StatusConfiguring, "LIVE":
		return true
	}
	return false
}

// MatchDetails fetches the authoritative snapshot of one match.
func (c *Client) MatchDetails(ctx context.Context, matchID, playerID string) (*domain.Match, error) {
	u := fmt.Sprintf("%s/matches/%s", c.apiBase, matchID)
	resp, err := doRequest[matchResponse](ctx, c, "match details", u)
	if err != nil {
		return nil, err
	}
	return resp.toDomain(matchID, playerID), nil
}

// MatchStats scans the per-round stats payload for the tracked player.
// Absent on any failure; the stats endpoint lags the live match anyway.
func (c *Client) MatchStats(ctx context.Context, matchID, playerID string) (*domain.MatchPlayer, bool) {
	u := fmt.Sprintf("%s/matches/%s/stats", c.apiBase, matchID)
	resp, err := doRequest[matchStatsResponse](ctx, c, "match stats", u)
	if err != nil {
		c.logger.Debug().Err(err).Str("match_id", matchID).Msg("match stats unavailable")
		return nil, false
	}

	for _, round := range resp.Rounds {
		for _, team := range round.Teams {
			for _, p := range team.Players {
				if p.PlayerID == playerID {
					return &domain.MatchPlayer{
						PlayerID: playerID,
						Nickname: p.Nickname,
						Kills:    atoi(p.Stats["Kills"]),
						Deaths:   atoi(p.Stats["Deaths"]),
						Assists:  atoi(p.Stats["Assists"]),
						ADR:      atof(p.Stats["ADR"]),
					}, true
				}
			}
		}
	}
	return nil, false
}

// EloChange derives the ELO gained or lost in a match by diffing recent
// history entries. Absent when the match is outside the window or is the
// oldest entry available.
func (c *Client) EloChange(ctx context.Context, playerID, matchID string) (int, bool) {
	u := fmt.Sprintf("%s/players/%s/history?game=%s&limit=%d",
		c.apiBase, playerID, gameID, constants.EloHistoryLimit)
	resp, err := doRequest[historyResponse](ctx, c, "elo history", u)
	if err != nil {
		c.logger.Debug().Err(err).Str("match_id", matchID).Msg("elo history unavailable")
		return 0, false
	}

	for i, item := range resp.Items {
		if item.MatchID == matchID {
			if i+1 < len(resp.Items) {
				return int(item.Elo - resp.Items[i+1].Elo), true
			}
			break
		}
	}
	return 0, false
}

// doRequest performs one paced, authenticated GET against the authoritative
// API and decodes the body into T.
func doRequest[T any](ctx context.Context, c *Client, op, url string) (*T, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, &Error{Kind: KindUnavailable, Op: op, Err: err}
	}

	body, err := c.get(ctx, op, url, true)
	if err != nil {
		return nil, err
	}

	var result T
	if jsonErr := json.Unmarshal(body, &result); jsonErr != nil {
		return nil, &Error{Kind: KindMalformed, Op: op, Err: jsonErr}
	}
	return &result, nil
}

func (c *Client) get(ctx context.Context, op, url string, authed bool) ([]byte, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(url)
	req.Header.SetMethod(fasthttp.MethodGet)
	req.Header.Set("Accept", "application/json")
	if authed {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(constants.ExternalAPITimeout)
	}
	if err := c.http.DoDeadline(req, resp, deadline); err != nil {
		return nil, &Error{Kind: KindUnavailable, Op: op, Err: err}
	}

	if resp.StatusCode() != fasthttp.StatusOK {
		return nil, &Error{Kind: statusKind(resp.StatusCode()), Op: op,
			Err: fmt.Errorf("status %d", resp.StatusCode())}
	}

	// resp.Body is released with the response
	body := make([]byte, len(resp.Body()))
	copy(body, resp.Body())
	return body, nil
}
