package main

import (
	"context"

	"faceit-presence/internal/constants"
	fxmodules "faceit-presence/internal/fx"
	"faceit-presence/internal/monitor"

	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

func main() {
	fx.New(
		fxmodules.Module,
		fx.Invoke(runMonitor),
	).Run()
}

func runMonitor(lc fx.Lifecycle, mon *monitor.Monitor, logger zerolog.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := mon.Start(ctx); err != nil {
				logger.Error().Err(err).Msg("monitor failed to start")
				return err
			}
			go consumeEvents(mon, logger)
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info().Msg("shutting down")
			stopCtx, cancel := context.WithTimeout(context.Background(), constants.ShutdownTimeout)
			defer cancel()

			if err := mon.Stop(stopCtx); err != nil {
				logger.Error().Err(err).Msg("monitor shutdown failed")
				return err
			}
			logger.Info().Msg("shutdown complete")
			return nil
		},
	})
}

// consumeEvents drains monitor notifications. This is where a tray menu or
// toast surface would hook in; logging stands in for it.
func consumeEvents(mon *monitor.Monitor, logger zerolog.Logger) {
	for ev := range mon.Events() {
		switch ev.Kind {
		case monitor.EventError:
			logger.Warn().Str("event_id", ev.ID).Msg(ev.Message)
		default:
			logger.Info().Str("event_id", ev.ID).Str("kind", ev.Kind.String()).Msg(ev.Message)
		}
	}
}
