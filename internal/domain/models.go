package domain

// Player is the tracked FACEIT account, resolved once at startup.
type Player struct {
	ID         string
	Nickname   string
	Elo        int
	SkillLevel int
	AvatarURL  string
}

// Match statuses as reported by the FACEIT data API.
const (
	StatusReady       = "READY"
	StatusVoting      = "VOTING"
	StatusConfiguring = "CONFIGURING"
	StatusOngoing     = "ONGOING"
	StatusFinished    = "FINISHED"
	StatusCancelled   = "CANCELLED"
)

// Match is an authoritative snapshot of one match, built fresh per poll.
type Match struct {
	MatchID    string
	Status     string
	MapName    string
	MatchURL   string
	Team1Score int
	Team2Score int
	AvgElo     int
	StartedAt  int64 // unix seconds, 0 when unknown
	FinishedAt int64
	Players    []MatchPlayer
	PlayerTeam int // 1 or 2, 0 when the tracked player is in neither roster
}

// MatchPlayer is one roster entry, with per-match stats when available.
type MatchPlayer struct {
	PlayerID string
	Nickname string
	Elo      int
	Kills    int
	Deaths   int
	Assists  int
	ADR      float64
}

// Ladder is the tracked player's position in the regional ladder.
type Ladder struct {
	Position int
	Division string
	Points   int
	WinRate  string
}

// LiveMatch is the best-effort snapshot from the secondary live feed.
// Any field may be zero when the feed does not supply it.
type LiveMatch struct {
	IsLive     bool
	MapName    string
	ScoreTeam1 int
	ScoreTeam2 int
	EloAtStake string // e.g. "+25/-23"
	Server     string
	QueueName  string
	Round      int

	CurrentElo  int
	CountryCode string
	RegionRank  int
	CountryRank int
	Ladder      Ladder

	TodayElo     int
	TodayWins    int
	TodayLosses  int
	TodayMatches int

	FPLStatus  string
	FPLCStatus string
	Trend      string
}

// Button is a clickable link on the presence card.
type Button struct {
	Label string
	URL   string
}

// Payload is the rendered presence bundle handed to the Discord sink.
type Payload struct {
	Details    string
	State      string
	LargeImage string
	LargeText  string
	SmallImage string
	SmallText  string
	Start      int64 // unix seconds for the elapsed timer, 0 to omit
	Buttons    []Button
}
