package api

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"faceit-presence/internal/domain"
)

type playerResponse struct {
	PlayerID string `json:"player_id"`
	Nickname string `json:"nickname"`
	Avatar   string `json:"avatar"`
	Games    map[string]struct {
		FaceitElo  int `json:"faceit_elo"`
		SkillLevel int `json:"skill_level"`
	} `json:"games"`
}

func (r *playerResponse) toDomain() *domain.Player {
	p := &domain.Player{
		ID:        r.PlayerID,
		Nickname:  r.Nickname,
		AvatarURL: r.Avatar,
	}
	if g, ok := r.Games[gameID]; ok {
		p.Elo = g.FaceitElo
		p.SkillLevel = g.SkillLevel
	}
	return p
}

type historyResponse struct {
	Items []historyItem `json:"items"`
}

type historyItem struct {
	MatchID string  `json:"match_id"`
	Status  string  `json:"status"`
	Elo     flexInt `json:"elo"`
}

// flexInt accepts a bare number or a quoted one; history entries have
// carried both over time.
type flexInt int

func (f *flexInt) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	n, err := strconv.Atoi(s)
	if err == nil {
		*f = flexInt(n)
	}
	return nil
}

// epochSeconds accepts either a unix number or an ISO-8601 string; the API
// has shipped both. Parse failure leaves it at zero.
type epochSeconds int64

func (e *epochSeconds) UnmarshalJSON(data []byte) error {
	var n int64
	if err := json.Unmarshal(data, &n); err == nil {
		*e = epochSeconds(n)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if t, err := time.Parse(time.RFC3339, s); err == nil {
			*e = epochSeconds(t.Unix())
		}
	}
	return nil
}

type matchResponse struct {
	Status string `json:"status"`
	Voting struct {
		Map struct {
			Pick []string `json:"pick"`
		} `json:"map"`
	} `json:"voting"`
	Teams struct {
		Faction1 faction `json:"faction1"`
		Faction2 faction `json:"faction2"`
	} `json:"teams"`
	Results struct {
		Score struct {
			Faction1 int `json:"faction1"`
			Faction2 int `json:"faction2"`
		} `json:"score"`
	} `json:"results"`
	StartedAt  epochSeconds `json:"started_at"`
	FinishedAt epochSeconds `json:"finished_at"`
	FaceitURL  string       `json:"faceit_url"`
}

type faction struct {
	Roster []rosterEntry `json:"roster"`
}

type rosterEntry struct {
	PlayerID string `json:"player_id"`
	Nickname string `json:"nickname"`
	Elo      int    `json:"elo"`
}

func (r *matchResponse) toDomain(matchID, playerID string) *domain.Match {
	mapName := "Unknown"
	if len(r.Voting.Map.Pick) > 0 {
		mapName = r.Voting.Map.Pick[0]
	}

	playerTeam := 0
	var players []domain.MatchPlayer
	eloSum, eloCount := 0, 0

	for teamNum, roster := range [][]rosterEntry{r.Teams.Faction1.Roster, r.Teams.Faction2.Roster} {
		for _, p := range roster {
			if p.PlayerID == playerID {
				playerTeam = teamNum + 1
			}
			eloSum += p.Elo
			eloCount++
			players = append(players, domain.MatchPlayer{
				PlayerID: p.PlayerID,
				Nickname: p.Nickname,
				Elo:      p.Elo,
			})
		}
	}

	avgElo := 0
	if eloCount > 0 {
		avgElo = eloSum / eloCount
	}

	status := r.Status
	if status == "" {
		status = "UNKNOWN"
	}

	return &domain.Match{
		MatchID:    matchID,
		Status:     status,
		MapName:    mapName,
		MatchURL:   strings.ReplaceAll(r.FaceitURL, "{lang}", "en"),
		Team1Score: r.Results.Score.Faction1,
		Team2Score: r.Results.Score.Faction2,
		AvgElo:     avgElo,
		StartedAt:  int64(r.StartedAt),
		FinishedAt: int64(r.FinishedAt),
		Players:    players,
		PlayerTeam: playerTeam,
	}
}

type matchStatsResponse struct {
	Rounds []struct {
		Teams []struct {
			Players []struct {
				PlayerID string            `json:"player_id"`
				Nickname string            `json:"nickname"`
				Stats    map[string]string `json:"player_stats"`
			} `json:"players"`
		} `json:"teams"`
	} `json:"rounds"`
}

// The stats endpoint reports every value as a string.
func atoi(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return n
}

func atof(s string) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return f
}
