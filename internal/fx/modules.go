package fx

import (
	"faceit-presence/internal/api"
	"faceit-presence/internal/config"
	"faceit-presence/internal/discord"
	"faceit-presence/internal/logger"
	"faceit-presence/internal/monitor"

	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

func provideMonitor(
	cfg *config.Config,
	settings *config.Settings,
	client *api.Client,
	sink *discord.Client,
	log zerolog.Logger,
) *monitor.Monitor {
	return monitor.New(cfg, settings, client, sink, log)
}

var Module = fx.Options(
	fx.Provide(logger.New),
	fx.Provide(config.Load),
	fx.Provide(config.LoadSettings),
	// upstream client
	fx.Provide(api.NewClient),
	// presence sink
	fx.Provide(discord.NewClient),
	// monitor
	fx.Provide(provideMonitor),
)
