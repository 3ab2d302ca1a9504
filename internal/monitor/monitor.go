// Package monitor runs the polling state machine that reconciles the
// authoritative match API and the best-effort live feed into one presence
// signal.
package monitor

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"faceit-presence/internal/api"
	"faceit-presence/internal/config"
	"faceit-presence/internal/constants"
	"faceit-presence/internal/domain"
	"faceit-presence/internal/presence"

	"github.com/rs/zerolog"
	"github.com/sethvargo/go-retry"
	"golang.org/x/sync/errgroup"
)

// Upstream is the match-data surface the monitor polls.
type Upstream interface {
	ResolvePlayer(ctx context.Context, nickname string) (*domain.Player, error)
	LiveMatch(ctx context.Context, nickname string) (*domain.LiveMatch, bool)
	OngoingMatchID(ctx context.Context, playerID string) (string, bool)
	MatchDetails(ctx context.Context, matchID, playerID string) (*domain.Match, error)
	MatchStats(ctx context.Context, matchID, playerID string) (*domain.MatchPlayer, bool)
	EloChange(ctx context.Context, playerID, matchID string) (int, bool)
}

// Sink is the presence endpoint the monitor writes to.
type Sink interface {
	Connect() bool
	Connected() bool
	Reconnect() bool
	Disconnect()
	Apply(p domain.Payload)
	Clear()
}

type Monitor struct {
	cfg      *config.Config
	settings *config.Settings
	upstream Upstream
	sink     Sink
	logger   zerolog.Logger

	events chan Event

	mu             sync.RWMutex
	running        bool
	player         *domain.Player
	currentMatchID string
	lastStatus     string
	inLiveMatch    bool
	lastNotice     string

	cancel context.CancelFunc
	group  *errgroup.Group
}

func New(cfg *config.Config, settings *config.Settings, upstream Upstream, sink Sink, logger zerolog.Logger) *Monitor {
	return &Monitor{
		cfg:      cfg,
		settings: settings,
		upstream: upstream,
		sink:     sink,
		logger:   logger,
		events:   make(chan Event, constants.EventBufferSize),
	}
}

// Events is the outbound notification channel. Closed by Stop.
func (m *Monitor) Events() <-chan Event {
	return m.events
}

// Start resolves the tracked player, connects the sink and launches the
// poll loop. Bad credentials or an unknown nickname fail here; everything
// transient is retried with backoff, then left to the loop's cadence.
func (m *Monitor) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return nil
	}
	m.mu.Unlock()

	var player *domain.Player
	backoff := retry.WithMaxRetries(3, retry.NewExponential(time.Second))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		p, err := m.upstream.ResolvePlayer(ctx, m.cfg.FaceitNickname)
		if err != nil {
			if api.IsTransient(err) {
				return retry.RetryableError(err)
			}
			return err
		}
		player = p
		return nil
	})
	if err != nil {
		m.publish(EventError, fmt.Sprintf("Failed to get player info: %v", err))
		return fmt.Errorf("failed to resolve player %q: %w", m.cfg.FaceitNickname, err)
	}

	m.logger.Info().
		Str("player_id", player.ID).
		Str("nickname", player.Nickname).
		Int("elo", player.Elo).
		Msg("tracked player resolved")

	// Discord being down is recoverable; the loop keeps reconnecting.
	if !m.sink.Connect() {
		m.publish(EventError, "Failed to connect to Discord")
	}

	loopCtx, cancel := context.WithCancel(context.Background())
	group, groupCtx := errgroup.WithContext(loopCtx)

	m.mu.Lock()
	m.running = true
	m.player = player
	m.cancel = cancel
	m.group = group
	m.mu.Unlock()

	group.Go(func() error {
		return m.run(groupCtx)
	})

	m.publish(EventStatusChanged, "Monitoring started")
	m.logger.Info().Msg("match monitor started")
	return nil
}

// Stop signals the loop, waits for it within the ctx deadline, and
// releases the sink. Idempotent.
func (m *Monitor) Stop(ctx context.Context) error {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return nil
	}
	m.running = false
	cancel := m.cancel
	group := m.group
	m.mu.Unlock()

	cancel()

	joined := false
	done := make(chan error, 1)
	go func() { done <- group.Wait() }()
	select {
	case <-done:
		joined = true
	case <-ctx.Done():
		m.logger.Warn().Msg("timed out waiting for poll loop to exit")
	}

	m.sink.Clear()
	m.sink.Disconnect()

	m.mu.Lock()
	m.currentMatchID = ""
	m.lastStatus = ""
	m.inLiveMatch = false
	m.mu.Unlock()

	m.publish(EventStatusChanged, "Monitoring stopped")
	if joined {
		close(m.events)
	}

	m.logger.Info().Msg("match monitor stopped")
	return nil
}

// IsRunning reports whether the poll loop is active.
func (m *Monitor) IsRunning() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.running
}

// CurrentMatchURL returns the tracked match's page, or "" when idle.
func (m *Monitor) CurrentMatchURL(ctx context.Context) string {
	m.mu.RLock()
	matchID := m.currentMatchID
	player := m.player
	m.mu.RUnlock()

	if matchID == "" || player == nil {
		return ""
	}
	match, err := m.upstream.MatchDetails(ctx, matchID, player.ID)
	if err != nil {
		return ""
	}
	return match.MatchURL
}

// run is the poll loop. It never exits on error; failures are counted and
// the cadence doubles once the threshold is reached.
func (m *Monitor) run(ctx context.Context) error {
	consecutive := 0

	for {
		err := m.safeTick(ctx)

		var delay time.Duration
		consecutive, delay = m.afterTick(err, consecutive)

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(delay):
		}
	}
}

// afterTick updates the consecutive-failure count and picks the wait before
// the next poll. At the threshold it emits one error event, doubles the
// interval and resets the count.
func (m *Monitor) afterTick(err error, consecutive int) (int, time.Duration) {
	delay := m.settings.PollInterval()
	if err == nil {
		return 0, delay
	}

	consecutive++
	m.logger.Warn().Err(err).Int("consecutive", consecutive).Msg("poll failed")
	if consecutive >= constants.MaxConsecutiveErrors {
		m.publish(EventError, fmt.Sprintf("API errors: %v", err))
		return 0, delay * constants.ErrorBackoffFactor
	}
	return consecutive, delay
}

// safeTick keeps an unexpected panic from killing the loop; it counts as
// one more failure.
func (m *Monitor) safeTick(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("unexpected poll failure: %v", r)
		}
	}()
	return m.tick(ctx)
}

func (m *Monitor) tick(ctx context.Context) error {
	if !m.settings.Enabled() {
		m.sink.Clear()
		return nil
	}

	if !m.sink.Connected() {
		m.logger.Info().Msg("attempting to reconnect to discord")
		if !m.sink.Reconnect() {
			return nil
		}
	}

	return m.checkMatch(ctx)
}

// checkMatch classifies the player's situation for this poll. The live
// feed wins when it reports an in-progress match; the authoritative API
// is consulted otherwise.
func (m *Monitor) checkMatch(ctx context.Context) error {
	m.mu.RLock()
	player := m.player
	m.mu.RUnlock()
	if player == nil {
		return nil
	}

	flags := m.settings.Flags()

	if live, ok := m.upstream.LiveMatch(ctx, player.Nickname); ok && live.IsLive {
		m.mu.Lock()
		if !m.inLiveMatch {
			m.logger.Info().Str("map", live.MapName).Msg("live match detected")
			m.inLiveMatch = true
		}
		m.mu.Unlock()

		m.notifyStatus(fmt.Sprintf("Live: %s (%d:%d)", live.MapName, live.ScoreTeam1, live.ScoreTeam2))
		m.sink.Apply(presence.LiveFeed(live, flags))
		return nil
	}

	m.mu.Lock()
	m.inLiveMatch = false
	m.mu.Unlock()

	matchID, ok := m.upstream.OngoingMatchID(ctx, player.ID)
	if !ok {
		m.mu.Lock()
		hadMatch := m.currentMatchID != ""
		m.currentMatchID = ""
		m.lastStatus = ""
		m.mu.Unlock()

		if hadMatch {
			m.logger.Info().Msg("match ended")
			m.publish(EventMatchEnded, "No active match")
		}
		m.sink.Clear()
		return nil
	}

	match, err := m.upstream.MatchDetails(ctx, matchID, player.ID)
	if err != nil {
		return err
	}

	m.mu.Lock()
	if matchID != m.currentMatchID {
		m.logger.Info().Str("match_id", matchID).Msg("new match detected")
	}
	if match.Status != m.lastStatus {
		m.logger.Info().Str("status", match.Status).Msg("match status changed")
	}
	m.currentMatchID = matchID
	m.lastStatus = match.Status
	m.mu.Unlock()

	switch strings.ToUpper(match.Status) {
	case domain.StatusReady, domain.StatusVoting, domain.StatusConfiguring:
		m.notifyStatus("In lobby: " + match.MapName)
		m.sink.Apply(presence.Lobby(match, flags))

	case domain.StatusOngoing:
		var stats *domain.MatchPlayer
		if flags.ShowKDA {
			stats, _ = m.upstream.MatchStats(ctx, matchID, player.ID)
		}
		m.notifyStatus(fmt.Sprintf("Live: %s (%d-%d)", match.MapName, match.Team1Score, match.Team2Score))
		m.sink.Apply(presence.Live(match, stats, flags))

	case domain.StatusFinished:
		var eloChange *int
		if flags.ShowElo {
			if delta, ok := m.upstream.EloChange(ctx, player.ID, matchID); ok {
				eloChange = &delta
			}
		}
		m.notifyStatus("Finished: " + match.MapName)
		m.sink.Apply(presence.Finished(match, eloChange, flags))

	case domain.StatusCancelled:
		m.notifyStatus("Match cancelled")
		m.sink.Clear()

	default:
		// Unknown statuses are transient; keep whatever is displayed.
	}

	return nil
}

// notifyStatus publishes a StatusChanged event, deduplicated against the
// previous notice so steady state stays quiet.
func (m *Monitor) notifyStatus(message string) {
	m.mu.Lock()
	if message == m.lastNotice {
		m.mu.Unlock()
		return
	}
	m.lastNotice = message
	m.mu.Unlock()

	m.publish(EventStatusChanged, message)
}

// publish never blocks the poll loop; the oldest event is dropped when the
// buffer is full.
func (m *Monitor) publish(kind EventKind, message string) {
	ev := newEvent(kind, message)
	select {
	case m.events <- ev:
		return
	default:
	}

	select {
	case <-m.events:
	default:
	}
	select {
	case m.events <- ev:
	default:
	}
}
