package monitor

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"faceit-presence/internal/api"
	"faceit-presence/internal/config"
	"faceit-presence/internal/domain"

	"github.com/rs/zerolog"
)

type fakeUpstream struct {
	player     *domain.Player
	resolveErr error

	live   *domain.LiveMatch
	liveOK bool

	ongoingID string
	ongoingOK bool

	match    *domain.Match
	matchErr error

	stats   *domain.MatchPlayer
	statsOK bool

	elo   int
	eloOK bool

	liveCalls    int
	ongoingCalls int
	detailCalls  int
	statsCalls   int
	eloCalls     int
}

func (f *fakeUpstream) ResolvePlayer(ctx context.Context, nickname string) (*domain.Player, error) {
	if f.resolveErr != nil {
		return nil, f.resolveErr
	}
	return f.player, nil
}

func (f *fakeUpstream) LiveMatch(ctx context.Context, nickname string) (*domain.LiveMatch, bool) {
	f.liveCalls++
	return f.live, f.liveOK
}

func (f *fakeUpstream) OngoingMatchID(ctx context.Context, playerID string) (string, bool) {
	f.ongoingCalls++
	return f.ongoingID, f.ongoingOK
}

func (f *fakeUpstream) MatchDetails(ctx context.Context, matchID, playerID string) (*domain.Match, error) {
	f.detailCalls++
	return f.match, f.matchErr
}

func (f *fakeUpstream) MatchStats(ctx context.Context, matchID, playerID string) (*domain.MatchPlayer, bool) {
	f.statsCalls++
	return f.stats, f.statsOK
}

func (f *fakeUpstream) EloChange(ctx context.Context, playerID, matchID string) (int, bool) {
	f.eloCalls++
	return f.elo, f.eloOK
}

type fakeSink struct {
	mu        sync.Mutex
	connected bool
	applies   []domain.Payload
	clears    int
}

func (f *fakeSink) Connect() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connected = true
	return true
}

func (f *fakeSink) Connected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}

func (f *fakeSink) Reconnect() bool { return f.Connect() }

func (f *fakeSink) Disconnect() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connected = false
}

func (f *fakeSink) Apply(p domain.Payload) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.applies = append(f.applies, p)
}

func (f *fakeSink) Clear() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.clears++
}

func (f *fakeSink) lastApply(t *testing.T) domain.Payload {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.applies) == 0 {
		t.Fatal("no payload applied")
	}
	return f.applies[len(f.applies)-1]
}

func testSettings(t *testing.T) *config.Settings {
	t.Helper()
	cfg := &config.Config{SettingsPath: filepath.Join(t.TempDir(), "config.json")}
	s, err := config.LoadSettings(cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("LoadSettings failed: %v", err)
	}
	return s
}

func testMonitor(t *testing.T, up *fakeUpstream, sink *fakeSink) *Monitor {
	t.Helper()
	cfg := &config.Config{FaceitNickname: "tester"}
	m := New(cfg, testSettings(t), up, sink, zerolog.Nop())
	m.player = &domain.Player{ID: "p1", Nickname: "tester"}
	sink.Connect()
	return m
}

func drainEvents(m *Monitor) []Event {
	var events []Event
	for {
		select {
		case ev := <-m.events:
			events = append(events, ev)
		default:
			return events
		}
	}
}

func countKind(events []Event, kind EventKind) int {
	n := 0
	for _, ev := range events {
		if ev.Kind == kind {
			n++
		}
	}
	return n
}

func TestLiveFeedTakesPrecedence(t *testing.T) {
	up := &fakeUpstream{
		live:   &domain.LiveMatch{IsLive: true, MapName: "de_mirage", ScoreTeam1: 8, ScoreTeam2: 5},
		liveOK: true,
	}
	sink := &fakeSink{}
	m := testMonitor(t, up, sink)

	if err := m.checkMatch(context.Background()); err != nil {
		t.Fatalf("checkMatch failed: %v", err)
	}

	if up.ongoingCalls != 0 {
		t.Errorf("official API consulted %d times during live-feed poll, want 0", up.ongoingCalls)
	}
	p := sink.lastApply(t)
	if !strings.Contains(p.Details, "de_mirage") {
		t.Errorf("applied details = %q, want live-feed payload", p.Details)
	}
}

func TestLobbyState(t *testing.T) {
	up := &fakeUpstream{
		ongoingID: "m1",
		ongoingOK: true,
		match:     &domain.Match{MatchID: "m1", Status: domain.StatusReady, MapName: "de_mirage"},
	}
	sink := &fakeSink{}
	m := testMonitor(t, up, sink)

	if err := m.checkMatch(context.Background()); err != nil {
		t.Fatalf("checkMatch failed: %v", err)
	}

	p := sink.lastApply(t)
	if p.Details != "In Lobby - de_mirage" {
		t.Errorf("details = %q, want lobby payload", p.Details)
	}

	events := drainEvents(m)
	if countKind(events, EventStatusChanged) != 1 {
		t.Errorf("got %d status events, want 1", countKind(events, EventStatusChanged))
	}
}

func TestStatusNotificationDeduplicated(t *testing.T) {
	up := &fakeUpstream{
		ongoingID: "m1",
		ongoingOK: true,
		match:     &domain.Match{MatchID: "m1", Status: domain.StatusReady, MapName: "de_nuke"},
	}
	sink := &fakeSink{}
	m := testMonitor(t, up, sink)

	for i := 0; i < 3; i++ {
		if err := m.checkMatch(context.Background()); err != nil {
			t.Fatalf("checkMatch failed: %v", err)
		}
	}

	events := drainEvents(m)
	if got := countKind(events, EventStatusChanged); got != 1 {
		t.Errorf("got %d status events over identical polls, want 1", got)
	}
}

func TestMatchEndedEmittedOnce(t *testing.T) {
	up := &fakeUpstream{
		ongoingID: "m1",
		ongoingOK: true,
		match:     &domain.Match{MatchID: "m1", Status: domain.StatusOngoing, MapName: "de_dust2"},
	}
	sink := &fakeSink{}
	m := testMonitor(t, up, sink)

	if err := m.checkMatch(context.Background()); err != nil {
		t.Fatalf("checkMatch failed: %v", err)
	}

	up.ongoingOK = false
	for i := 0; i < 3; i++ {
		if err := m.checkMatch(context.Background()); err != nil {
			t.Fatalf("checkMatch failed: %v", err)
		}
	}

	events := drainEvents(m)
	if got := countKind(events, EventMatchEnded); got != 1 {
		t.Errorf("got %d match-ended events, want exactly 1", got)
	}
	if sink.clears == 0 {
		t.Error("presence not cleared after match ended")
	}
}

func TestCancelledClearsPresence(t *testing.T) {
	up := &fakeUpstream{
		ongoingID: "m1",
		ongoingOK: true,
		match:     &domain.Match{MatchID: "m1", Status: domain.StatusCancelled},
	}
	sink := &fakeSink{}
	m := testMonitor(t, up, sink)

	if err := m.checkMatch(context.Background()); err != nil {
		t.Fatalf("checkMatch failed: %v", err)
	}

	if sink.clears != 1 {
		t.Errorf("clears = %d, want 1", sink.clears)
	}
	if len(sink.applies) != 0 {
		t.Errorf("applies = %d, want 0", len(sink.applies))
	}
}

func TestUnknownStatusIsNoOp(t *testing.T) {
	up := &fakeUpstream{
		ongoingID: "m1",
		ongoingOK: true,
		match:     &domain.Match{MatchID: "m1", Status: "PAUSED"},
	}
	sink := &fakeSink{}
	m := testMonitor(t, up, sink)

	if err := m.checkMatch(context.Background()); err != nil {
		t.Fatalf("checkMatch failed: %v", err)
	}

	if sink.clears != 0 || len(sink.applies) != 0 {
		t.Errorf("unknown status touched the sink: %d applies, %d clears", len(sink.applies), sink.clears)
	}
}

func TestStatsFetchedOnlyWhenKDAShown(t *testing.T) {
	up := &fakeUpstream{
		ongoingID: "m1",
		ongoingOK: true,
		match:     &domain.Match{MatchID: "m1", Status: domain.StatusOngoing, MapName: "de_inferno"},
	}
	sink := &fakeSink{}
	m := testMonitor(t, up, sink)

	if err := m.settings.Set("show_kda", false); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := m.checkMatch(context.Background()); err != nil {
		t.Fatalf("checkMatch failed: %v", err)
	}
	if up.statsCalls != 0 {
		t.Errorf("stats fetched %d times with show_kda off, want 0", up.statsCalls)
	}

	if err := m.settings.Set("show_kda", true); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := m.checkMatch(context.Background()); err != nil {
		t.Fatalf("checkMatch failed: %v", err)
	}
	if up.statsCalls != 1 {
		t.Errorf("stats fetched %d times with show_kda on, want 1", up.statsCalls)
	}
}

func TestEloChangeFetchedOnlyWhenEloShown(t *testing.T) {
	up := &fakeUpstream{
		ongoingID: "m1",
		ongoingOK: true,
		match: &domain.Match{
			MatchID: "m1", Status: domain.StatusFinished,
			Team1Score: 13, Team2Score: 9, PlayerTeam: 1,
		},
		elo: 18, eloOK: true,
	}
	sink := &fakeSink{}
	m := testMonitor(t, up, sink)

	if err := m.settings.Set("show_elo", false); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := m.checkMatch(context.Background()); err != nil {
		t.Fatalf("checkMatch failed: %v", err)
	}
	if up.eloCalls != 0 {
		t.Errorf("elo history fetched %d times with show_elo off, want 0", up.eloCalls)
	}

	if err := m.settings.Set("show_elo", true); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := m.checkMatch(context.Background()); err != nil {
		t.Fatalf("checkMatch failed: %v", err)
	}
	p := sink.lastApply(t)
	if !strings.Contains(p.State, "ELO: +18") {
		t.Errorf("state = %q, want elo change", p.State)
	}
}

func TestDisabledClearsAndSkips(t *testing.T) {
	up := &fakeUpstream{liveOK: true, live: &domain.LiveMatch{IsLive: true}}
	sink := &fakeSink{}
	m := testMonitor(t, up, sink)

	if err := m.settings.SetEnabled(false); err != nil {
		t.Fatalf("SetEnabled failed: %v", err)
	}
	if err := m.tick(context.Background()); err != nil {
		t.Fatalf("tick failed: %v", err)
	}

	if sink.clears != 1 {
		t.Errorf("clears = %d, want 1", sink.clears)
	}
	if up.liveCalls != 0 {
		t.Errorf("upstream polled %d times while disabled, want 0", up.liveCalls)
	}
}

func TestDetailErrorPropagates(t *testing.T) {
	up := &fakeUpstream{
		ongoingID: "m1",
		ongoingOK: true,
		matchErr:  errors.New("boom"),
	}
	sink := &fakeSink{}
	m := testMonitor(t, up, sink)

	if err := m.checkMatch(context.Background()); err == nil {
		t.Fatal("checkMatch returned nil, want error")
	}
}

func TestAfterTickThreshold(t *testing.T) {
	m := testMonitor(t, &fakeUpstream{}, &fakeSink{})
	interval := m.settings.PollInterval()
	tickErr := errors.New("upstream down")

	consecutive := 0
	var delay time.Duration
	for i := 0; i < 4; i++ {
		consecutive, delay = m.afterTick(tickErr, consecutive)
		if delay != interval {
			t.Fatalf("failure %d: delay = %v, want normal interval %v", i+1, delay, interval)
		}
	}
	if consecutive != 4 {
		t.Fatalf("consecutive = %d, want 4", consecutive)
	}
	if got := countKind(drainEvents(m), EventError); got != 0 {
		t.Fatalf("got %d error events before threshold, want 0", got)
	}

	consecutive, delay = m.afterTick(tickErr, consecutive)
	if delay != 2*interval {
		t.Errorf("delay at threshold = %v, want doubled interval %v", delay, 2*interval)
	}
	if consecutive != 0 {
		t.Errorf("consecutive = %d after threshold, want reset to 0", consecutive)
	}
	if got := countKind(drainEvents(m), EventError); got != 1 {
		t.Errorf("got %d error events at threshold, want exactly 1", got)
	}

	consecutive, delay = m.afterTick(nil, 3)
	if consecutive != 0 || delay != interval {
		t.Errorf("success reset: consecutive = %d, delay = %v", consecutive, delay)
	}
}

func TestSafeTickRecoversPanic(t *testing.T) {
	sink := &fakeSink{}
	m := testMonitor(t, nil, sink) // nil upstream panics inside checkMatch

	if err := m.safeTick(context.Background()); err == nil {
		t.Fatal("safeTick swallowed the panic without returning an error")
	}
}

func TestStartStopLifecycle(t *testing.T) {
	up := &fakeUpstream{player: &domain.Player{ID: "p1", Nickname: "tester"}}
	sink := &fakeSink{}
	cfg := &config.Config{FaceitNickname: "tester"}
	m := New(cfg, testSettings(t), up, sink, zerolog.Nop())

	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if !m.IsRunning() {
		t.Fatal("monitor not running after Start")
	}
	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("second Start failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := m.Stop(ctx); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	if m.IsRunning() {
		t.Fatal("monitor still running after Stop")
	}
	if sink.Connected() {
		t.Error("sink still connected after Stop")
	}

	// Stop is idempotent.
	if err := m.Stop(ctx); err != nil {
		t.Fatalf("second Stop failed: %v", err)
	}
}

func TestStartFailsOnBadNickname(t *testing.T) {
	up := &fakeUpstream{resolveErr: &api.Error{Kind: api.KindNotFound, Op: "resolve player"}}
	cfg := &config.Config{FaceitNickname: "ghost"}
	m := New(cfg, testSettings(t), up, &fakeSink{}, zerolog.Nop())

	if err := m.Start(context.Background()); err == nil {
		t.Fatal("Start succeeded with unresolvable nickname")
	}
	if m.IsRunning() {
		t.Fatal("monitor running after failed Start")
	}
}

func TestCurrentMatchURL(t *testing.T) {
	up := &fakeUpstream{
		ongoingID: "m1",
		ongoingOK: true,
		match: &domain.Match{
			MatchID: "m1", Status: domain.StatusOngoing,
			MatchURL: "https://www.faceit.com/en/cs2/room/m1",
		},
	}
	m := testMonitor(t, up, &fakeSink{})

	if url := m.CurrentMatchURL(context.Background()); url != "" {
		t.Errorf("url = %q before any poll, want empty", url)
	}

	if err := m.checkMatch(context.Background()); err != nil {
		t.Fatalf("checkMatch failed: %v", err)
	}
	if url := m.CurrentMatchURL(context.Background()); url != "https://www.faceit.com/en/cs2/room/m1" {
		t.Errorf("url = %q, want match room url", url)
	}
}
