package constants

import "time"

const (
	// DefaultPollInterval is how often the monitor checks for match activity.
	DefaultPollInterval = 45 * time.Second

	// MaxConsecutiveErrors is the failure threshold before the monitor
	// backs off and reports an error.
	MaxConsecutiveErrors = 5

	// ErrorBackoffFactor multiplies the poll interval after the threshold.
	ErrorBackoffFactor = 2
)

const (
	// APIRequestInterval is the minimum spacing between calls to the
	// authoritative FACEIT API. The upstream rate-limits bursts.
	APIRequestInterval = 1 * time.Second

	PlayerCacheTTL     = 5 * time.Minute
	ExternalAPITimeout = 10 * time.Second

	HistoryProbeLimit = 5
	EloHistoryLimit   = 10
)

const (
	// PresenceMinInterval is Discord's own rate limit on activity updates.
	PresenceMinInterval = 15 * time.Second

	ReconnectPause = 1 * time.Second

	// Discord caps text fields at 128 characters and buttons at 2.
	PresenceMaxTextLen = 128
	PresenceMaxButtons = 2
)

const (
	ShutdownTimeout = 5 * time.Second
	EventBufferSize = 16
)
