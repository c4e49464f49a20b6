package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"signal_bot/internal/modules/config"
)

func signalConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Signal.Pair = "XBTUSD"
	cfg.Signal.IntervalMin = 5
	cfg.Signal.RSIPeriod = 14
	cfg.Signal.EMAPeriod = 50
	cfg.Signal.MACDFast = 12
	cfg.Signal.MACDSlow = 26
	cfg.Signal.MACDSignal = 9
	return cfg
}

type cannedCandles struct {
	closes []float64
	err    error
	pair   string
}

func (c *cannedCandles) Closes(_ context.Context, pair string, _ int) ([]float64, error) {
	c.pair = pair
	return c.closes, c.err
}

type cannedPrice struct{ price float64 }

func (c cannedPrice) Last() float64 { return c.price }

func flatCloses(n int, v float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func TestBuildFormatsSignalText(t *testing.T) {
	candles := &cannedCandles{closes: flatCloses(60, 65000)}
	b := NewBuilder(signalConfig(), candles, nil)

	text, err := b.Build(context.Background())
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	want := "Price: 65000.00 USD\n" +
		"RSI(14): 100.00\n" +
		"MACD: 0.00 vs Signal 0.00\n" +
		"EMA(50): 65000.00\n" +
		"TF: 5m (Kraken)"
	if text != want {
		t.Fatalf("text mismatch:\n got: %q\nwant: %q", text, want)
	}
	if candles.pair != "XBTUSD" {
		t.Errorf("requested pair = %q", candles.pair)
	}
}

func TestBuildPrefersLivePrice(t *testing.T) {
	candles := &cannedCandles{closes: flatCloses(60, 65000)}
	b := NewBuilder(signalConfig(), candles, cannedPrice{price: 65432.1})

	text, err := b.Build(context.Background())
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if !strings.HasPrefix(text, "Price: 65432.10 USD") {
		t.Fatalf("live price not used: %q", text)
	}
}

func TestBuildIgnoresStaleLivePrice(t *testing.T) {
	// Last() == 0 means the stream has no fresh quote
	candles := &cannedCandles{closes: flatCloses(60, 65000)}
	b := NewBuilder(signalConfig(), candles, cannedPrice{price: 0})

	text, err := b.Build(context.Background())
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if !strings.HasPrefix(text, "Price: 65000.00 USD") {
		t.Fatalf("stale stream must fall back to candle close: %q", text)
	}
}

func TestBuildRejectsShortHistory(t *testing.T) {
	candles := &cannedCandles{closes: flatCloses(30, 65000)} // below EMA(50) warmup
	b := NewBuilder(signalConfig(), candles, nil)

	if _, err := b.Build(context.Background()); err == nil {
		t.Fatal("expected warmup error with 30 candles")
	}
}

func TestBuildPropagatesCandleError(t *testing.T) {
	wantErr := errors.New("kraken down")
	b := NewBuilder(signalConfig(), &cannedCandles{err: wantErr}, nil)

	if _, err := b.Build(context.Background()); !errors.Is(err, wantErr) {
		t.Fatalf("err = %v, want wrapped kraken error", err)
	}
}
