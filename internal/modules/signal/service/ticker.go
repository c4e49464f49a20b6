package service

import (
	"context"
	"encoding/json"
	"math"
	"strconv"
	"sync/atomic"
	"time"

	"signal_bot/pkg/logger"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"
)

const krakenWSURL = "wss://ws.kraken.com"

// TickerStream keeps the latest trade price from the Kraken ticker channel.
// Purely best-effort: while the stream is down the signal text falls back to
// the last candle close.
type TickerStream struct {
	pair   string
	dialer *websocket.Dialer

	priceBits atomic.Uint64
	lastAt    atomic.Int64 // unix seconds of last update
}

func NewTickerStream(pair string) *TickerStream {
	return &TickerStream{
		pair:   pair,
		dialer: &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
	}
}

// Last returns the most recent price, or 0 when the stream is stale (no
// update for over a minute) or never connected.
func (t *TickerStream) Last() float64 {
	if time.Now().Unix()-t.lastAt.Load() > 60 {
		return 0
	}
	return math.Float64frombits(t.priceBits.Load())
}

// Start runs the reconnect loop until ctx is cancelled.
func (t *TickerStream) Start(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		conn, _, err := t.dialer.DialContext(ctx, krakenWSURL, nil)
		if err != nil {
			logger.Warn("ticker: dial: %v", err)
			sleepCtx(ctx, 5*time.Second)
			continue
		}

		sub := map[string]any{
			"event":        "subscribe",
			"pair":         []string{t.pair},
			"subscription": map[string]string{"name": "ticker"},
		}
		if err := conn.WriteJSON(sub); err != nil {
			logger.Warn("ticker: subscribe: %v", err)
			_ = conn.Close()
			sleepCtx(ctx, 5*time.Second)
			continue
		}

		t.readLoop(ctx, conn)
		_ = conn.Close()
	}
}

func (t *TickerStream) readLoop(ctx context.Context, conn *websocket.Conn) {
	// the watchdog unblocks the read on cancellation and must itself exit
	// when the read loop does, or every reconnect would strand one goroutine
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-done:
		}
	}()

	for {
		_ = conn.SetReadDeadline(time.Now().Add(90 * time.Second))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				logger.Warn("ticker: read: %v", err)
			}
			return
		}

		// data frames are arrays: [channelID, {"c":["price","lot"],...}, "ticker", "PAIR"];
		// everything else (events, heartbeats) is an object and skipped
		var frame []json.RawMessage
		if err := sonic.Unmarshal(msg, &frame); err != nil || len(frame) < 4 {
			continue
		}

		var payload struct {
			C []string `json:"c"`
		}
		if err := sonic.Unmarshal(frame[1], &payload); err != nil || len(payload.C) == 0 {
			continue
		}
		if price, err := strconv.ParseFloat(payload.C[0], 64); err == nil && price > 0 {
			t.priceBits.Store(math.Float64bits(price))
			t.lastAt.Store(time.Now().Unix())
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) {
	tmr := time.NewTimer(d)
	defer tmr.Stop()
	select {
	case <-ctx.Done():
	case <-tmr.C:
	}
}
