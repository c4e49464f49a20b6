package service

import (
	"context"
	"fmt"

	"signal_bot/internal/modules/config"
)

// candleSource lets tests feed canned closes instead of hitting Kraken.
type candleSource interface {
	Closes(ctx context.Context, pair string, intervalMin int) ([]float64, error)
}

// priceSource — optional live price override (the websocket ticker).
type priceSource interface {
	Last() float64
}

// Builder produces the broadcast text: price plus RSI / MACD / EMA over the
// configured pair and timeframe.
type Builder struct {
	cfg     *config.Config
	candles candleSource
	live    priceSource
}

func NewBuilder(cfg *config.Config, candles candleSource, live priceSource) *Builder {
	return &Builder{cfg: cfg, candles: candles, live: live}
}

func (b *Builder) Build(ctx context.Context) (string, error) {
	closes, err := b.candles.Closes(ctx, b.cfg.Signal.Pair, b.cfg.Signal.IntervalMin)
	if err != nil {
		return "", err
	}

	warmup := b.cfg.Signal.MACDSlow + b.cfg.Signal.MACDSignal
	if b.cfg.Signal.EMAPeriod > warmup {
		warmup = b.cfg.Signal.EMAPeriod
	}
	if len(closes) < warmup {
		return "", fmt.Errorf("signal: only %d candles, need %d", len(closes), warmup)
	}

	price := closes[len(closes)-1]
	if b.live != nil {
		if p := b.live.Last(); p > 0 {
			price = p
		}
	}

	rsi := rsiLast(closes, b.cfg.Signal.RSIPeriod)
	macd, macdSignal := macdLast(closes, b.cfg.Signal.MACDFast, b.cfg.Signal.MACDSlow, b.cfg.Signal.MACDSignal)
	ema := emaLast(closes, b.cfg.Signal.EMAPeriod)

	return fmt.Sprintf(
		"Price: %.2f USD\n"+
			"RSI(%d): %.2f\n"+
			"MACD: %.2f vs Signal %.2f\n"+
			"EMA(%d): %.2f\n"+
			"TF: %dm (Kraken)",
		price,
		b.cfg.Signal.RSIPeriod, rsi,
		macd, macdSignal,
		b.cfg.Signal.EMAPeriod, ema,
		b.cfg.Signal.IntervalMin,
	), nil
}
