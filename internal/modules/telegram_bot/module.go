package telegram

import (
	"context"

	"signal_bot/internal/modules/config"
	"signal_bot/internal/modules/telegram_bot/service"
	subscription "signal_bot/internal/modules/subscription/service"
	"signal_bot/pkg/logger"

	tgbot "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/fx"
)

func Module() fx.Option {
	return fx.Module("telegram",
		fx.Provide(
			// nil bot means "no token configured" and downgrades the
			// whole module to stdout logging
			func(cfg *config.Config) (*tgbot.BotAPI, error) {
				if cfg.Telegram.Token == "" {
					logger.Warn("telegram token not set, notifications go to the log")
					return nil, nil
				}
				return service.NewBot(cfg.Telegram.Token)
			},
			func(bot *tgbot.BotAPI) service.Notifier {
				if bot == nil {
					return service.NewStdout()
				}
				return service.NewTelegram(bot)
			},
			func(cfg *config.Config, bot *tgbot.BotAPI, subs *subscription.Service) *service.Feed {
				if bot == nil {
					return nil
				}
				return service.NewFeed(cfg, bot, subs)
			},
		),
		fx.Invoke(
			func(lc fx.Lifecycle, ctx context.Context, feed *service.Feed) {
				if feed == nil {
					return
				}
				lc.Append(fx.Hook{
					OnStart: func(_ context.Context) error {
						feed.Start(ctx)
						return nil
					},
				})
			},
		),
	)
}
