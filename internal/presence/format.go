// Package presence renders match data into Discord activity payloads.
// Everything here is pure string building; truncation and rate limiting
// belong to the sink.
package presence

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"faceit-presence/internal/domain"
)

// Flags are the user's visibility toggles, snapshotted once per poll.
type Flags struct {
	ShowMap    bool
	ShowScore  bool
	ShowElo    bool // ELO at stake / ELO change
	ShowAvgElo bool
	ShowKDA    bool

	ShowCurrentElo bool
	ShowCountry    bool
	ShowRegionRank bool
	ShowTodayElo   bool
	ShowFPL        bool
}

const (
	brandImage = "faceit_logo"
	brandText  = "FACEIT CS2"
)

// now is swapped out in tests.
var now = time.Now

// Lobby renders the pre-match voting/configuration state.
func Lobby(m *domain.Match, f Flags) domain.Payload {
	details := "In Lobby"
	if f.ShowMap && m.MapName != "" && m.MapName != "Unknown" {
		details = "In Lobby - " + m.MapName
	}

	state := "Waiting for match"
	if f.ShowAvgElo && m.AvgElo > 0 {
		state = "Avg ELO: " + strconv.Itoa(m.AvgElo)
	}

	return domain.Payload{
		Details:    details,
		State:      state,
		LargeImage: brandImage,
		LargeText:  brandText,
		SmallImage: MapImage(m.MapName),
		SmallText:  m.MapName,
		Buttons:    matchButtons(m.MatchURL),
	}
}

// Live renders an in-progress match from the authoritative API.
func Live(m *domain.Match, stats *domain.MatchPlayer, f Flags) domain.Payload {
	var parts []string
	if f.ShowMap && m.MapName != "" && m.MapName != "Unknown" {
		parts = append(parts, m.MapName)
	}
	if f.ShowScore {
		parts = append(parts, ScoreString(m.Team1Score, m.Team2Score, m.PlayerTeam))
	}
	details := joinOr(parts, "In Match")

	var stateParts []string
	if f.ShowKDA && stats != nil {
		stateParts = append(stateParts, "K/D/A: "+FormatKDA(stats.Kills, stats.Deaths, stats.Assists))
	}
	if f.ShowAvgElo && m.AvgElo > 0 {
		stateParts = append(stateParts, "Avg ELO: "+strconv.Itoa(m.AvgElo))
	}
	state := joinOr(stateParts, "Playing")

	start := m.StartedAt
	if start == 0 {
		start = now().Unix()
	}

	return domain.Payload{
		Details:    details,
		State:      state,
		LargeImage: brandImage,
		LargeText:  brandText,
		SmallImage: MapImage(m.MapName),
		SmallText:  m.MapName,
		Start:      start,
		Buttons:    matchButtons(m.MatchURL),
	}
}

// LiveFeed renders an in-progress match from the secondary live feed.
func LiveFeed(lm *domain.LiveMatch, f Flags) domain.Payload {
	var parts []string
	if f.ShowMap && lm.MapName != "" {
		parts = append(parts, lm.MapName)
	}
	if f.ShowScore {
		parts = append(parts, fmt.Sprintf("%d:%d", lm.ScoreTeam1, lm.ScoreTeam2))
	}
	if f.ShowCurrentElo && lm.CurrentElo > 0 {
		parts = append(parts, "ELO: "+FormatElo(lm.CurrentElo))
	}
	details := joinOr(parts, "In Match")

	var stateParts []string
	if rank := countryRank(lm, f); rank != "" {
		stateParts = append(stateParts, rank)
	}
	if f.ShowTodayElo && lm.TodayMatches > 0 {
		stateParts = append(stateParts, fmt.Sprintf("Today %+d", lm.TodayElo))
	}
	if f.ShowElo && lm.EloAtStake != "" {
		stateParts = append(stateParts, lm.EloAtStake)
	}
	if lm.Server != "" {
		stateParts = append(stateParts, lm.Server)
	}
	state := joinOr(stateParts, "Playing")

	smallText := lm.MapName
	if f.ShowFPL {
		if league := leagueTag(lm); league != "" {
			if smallText != "" {
				smallText += " | " + league
			} else {
				smallText = league
			}
		}
	}

	return domain.Payload{
		Details:    details,
		State:      state,
		LargeImage: brandImage,
		LargeText:  brandText,
		SmallImage: MapImage(lm.MapName),
		SmallText:  smallText,
		Start:      now().Unix(),
	}
}

// Finished renders the post-match result.
func Finished(m *domain.Match, eloChange *int, f Flags) domain.Payload {
	won := m.Team1Score > m.Team2Score
	if m.PlayerTeam == 2 {
		won = m.Team2Score > m.Team1Score
	}

	result := "Defeat"
	if won {
		result = "Victory"
	}
	details := "Match Finished - " + result

	var stateParts []string
	if f.ShowScore {
		stateParts = append(stateParts, ScoreString(m.Team1Score, m.Team2Score, m.PlayerTeam))
	}
	if f.ShowElo && eloChange != nil {
		stateParts = append(stateParts, fmt.Sprintf("ELO: %+d", *eloChange))
	}
	state := joinOr(stateParts, "Match Complete")

	return domain.Payload{
		Details:    details,
		State:      state,
		LargeImage: brandImage,
		LargeText:  brandText,
		SmallImage: MapImage(m.MapName),
		SmallText:  m.MapName,
		Buttons:    matchButtons(m.MatchURL),
	}
}

// ScoreString orders the score with the tracked player's team first.
// Team 0 (player not found in either roster) falls back to team1-first.
func ScoreString(team1, team2, playerTeam int) string {
	if playerTeam == 2 {
		return fmt.Sprintf("%d - %d", team2, team1)
	}
	return fmt.Sprintf("%d - %d", team1, team2)
}

// FormatKDA renders kills/deaths/assists as "15/8/3".
func FormatKDA(kills, deaths, assists int) string {
	return fmt.Sprintf("%d/%d/%d", kills, deaths, assists)
}

// FormatElo renders an ELO value with thousands separators.
func FormatElo(elo int) string {
	s := strconv.Itoa(elo)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	for i := len(s) - 3; i > 0; i -= 3 {
		s = s[:i] + "," + s[i:]
	}
	if neg {
		s = "-" + s
	}
	return s
}

func countryRank(lm *domain.LiveMatch, f Flags) string {
	var parts []string
	if f.ShowCountry && lm.CountryCode != "" {
		parts = append(parts, strings.ToUpper(lm.CountryCode))
	}
	if f.ShowRegionRank && lm.RegionRank > 0 {
		parts = append(parts, "#"+FormatElo(lm.RegionRank))
	}
	return strings.Join(parts, " ")
}

// leagueTag reports pro-league participation. The feed phrases inactive
// membership as "does not participate", so an active flag is one whose
// text lacks that marker.
func leagueTag(lm *domain.LiveMatch) string {
	if lm.FPLStatus != "" && !strings.Contains(strings.ToLower(lm.FPLStatus), "participate") {
		return "FPL"
	}
	if lm.FPLCStatus != "" && !strings.Contains(strings.ToLower(lm.FPLCStatus), "participate") {
		return "FPL-C"
	}
	return ""
}

func matchButtons(url string) []domain.Button {
	if url == "" {
		return nil
	}
	return []domain.Button{{Label: "View Match", URL: url}}
}

func joinOr(parts []string, fallback string) string {
	if len(parts) == 0 {
		return fallback
	}
	return strings.Join(parts, " | ")
}
