package web

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"time"

	"go.uber.org/fx"

	"signal_bot/internal/modules/config"
	ledgersvc "signal_bot/internal/modules/ledger/service"
	signalsvc "signal_bot/internal/modules/signal/service"
	subscription "signal_bot/internal/modules/subscription/service"
	"signal_bot/internal/modules/web/service"
)

func NewMux(
	cfg *config.Config,
	state *service.State,
	builder *signalsvc.Builder,
	subs *subscription.Service,
	ledger *ledgersvc.Ledger,
) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte("signal bot is running"))
	})

	mux.HandleFunc("/livez", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if !state.Ready() {
			http.Error(w, "not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		reviews := 0
		if ledger != nil {
			if n, err := ledger.PendingReviews(r.Context()); err == nil {
				reviews = n
			}
		}
		resp := map[string]any{
			"ready":         state.Ready(),
			"uptimeSec":     int64(state.Uptime().Seconds()),
			"cycles":        state.Cycles(),
			"payments":      state.Payments(),
			"reviewsOpen":   reviews,
			"lastCycleUnix": func() int64 {
				t := state.LastCycle()
				if t.IsZero() {
					return 0
				}
				return t.Unix()
			}(),
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	})

	mux.HandleFunc("/signal", func(w http.ResponseWriter, r *http.Request) {
		text, err := builder.Build(r.Context())
		if err != nil {
			http.Error(w, "signal unavailable", http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(text))
	})

	// compat endpoint for external tooling that used to drive broadcasts
	mux.HandleFunc("/subscribers", func(w http.ResponseWriter, r *http.Request) {
		if subs == nil {
			http.Error(w, "not available", http.StatusNotFound)
			return
		}
		if cfg.Service.SubscribersKey == "" || r.URL.Query().Get("key") != cfg.Service.SubscribersKey {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		ids, err := subs.Active(r.Context())
		if err != nil {
			http.Error(w, "store error", http.StatusInternalServerError)
			return
		}
		if ids == nil {
			ids = []string{}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(ids)
	})

	return mux
}

func RunHTTP(lc fx.Lifecycle, cfg *config.Config, mux *http.ServeMux) {
	srv := &http.Server{
		Addr:              cfg.Service.HTTPAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			ln, err := net.Listen("tcp", srv.Addr)
			if err != nil {
				return err
			}
			go func() { _ = srv.Serve(ln) }()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return srv.Shutdown(ctx)
		},
	})
}

func Module() fx.Option {
	return fx.Module("web",
		fx.Provide(
			service.NewState,
			NewMux,
		),
		fx.Invoke(RunHTTP),
	)
}
