// Standalone signal endpoint: serves / and /signal without the worker, the
// database or the bot. Useful as a public status page.
package main

import (
	"context"
	"log"
	"net/http"

	"signal_bot/internal/modules/config"
	signalmod "signal_bot/internal/modules/signal"
	signalsvc "signal_bot/internal/modules/signal/service"
	"signal_bot/internal/modules/web"
	websvc "signal_bot/internal/modules/web/service"
	"signal_bot/pkg/logger"

	"go.uber.org/fx"
)

func main() {
	if err := logger.Init("signal-web"); err != nil {
		log.Fatal(err)
	}

	app := fx.New(
		fx.Provide(
			func() context.Context {
				return context.Background()
			},
			websvc.NewState,
			func(cfg *config.Config, state *websvc.State, builder *signalsvc.Builder) *http.ServeMux {
				return web.NewMux(cfg, state, builder, nil, nil)
			},
		),
		config.Module(),
		signalmod.Module(),
		fx.Invoke(
			web.RunHTTP,
			func(state *websvc.State) {
				state.SetReady(true)
			},
		),
	)
	app.Run()
}
