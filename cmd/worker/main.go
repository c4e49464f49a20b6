package main

import (
	"context"
	"log"

	"signal_bot/internal/modules/chains"
	"signal_bot/internal/modules/config"
	"signal_bot/internal/modules/ledger"
	"signal_bot/internal/modules/postgres"
	"signal_bot/internal/modules/reconciler"
	signalmod "signal_bot/internal/modules/signal"
	"signal_bot/internal/modules/subscription"
	telegram "signal_bot/internal/modules/telegram_bot"
	"signal_bot/internal/modules/web"
	"signal_bot/pkg/logger"
	"signal_bot/pkg/tracing"

	"go.uber.org/fx"
)

func main() {
	if err := logger.Init("signal-worker"); err != nil {
		log.Fatal(err)
	}

	app := fx.New(
		fx.Provide(
			func() context.Context {
				return context.Background()
			},
		),
		config.Module(),
		postgres.Module(),
		ledger.Module(),
		subscription.Module(),
		chains.Module(),
		signalmod.Module(),
		telegram.Module(),
		web.Module(),
		reconciler.Module(),
		fx.Invoke(initTracing),
	)
	app.Run()
}

func initTracing(lc fx.Lifecycle, cfg *config.Config) error {
	if !cfg.Jaeger.Enabled {
		return nil
	}
	tracing.SetServiceName("signal-worker")
	_, closeTracer, err := tracing.InitTracer(tracing.Config{
		Host: cfg.Jaeger.Host,
		Port: cfg.Jaeger.Port,
	})
	if err != nil {
		return err
	}
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			closeTracer()
			return nil
		},
	})
	return nil
}
