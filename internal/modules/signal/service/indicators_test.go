package service

import (
	"math"
	"testing"
)

func almostEqual(a, b, eps float64) bool {
	return math.Abs(a-b) <= eps
}

func TestEmaSeriesConstantInput(t *testing.T) {
	closes := []float64{50, 50, 50, 50, 50}
	for _, v := range emaSeries(closes, 3) {
		if v != 50 {
			t.Fatalf("EMA of a constant series must stay at the constant, got %v", v)
		}
	}
}

func TestEmaLastKnownValue(t *testing.T) {
	// k = 2/(3+1) = 0.5; seeded with the first close:
	// 10 -> 15 -> 22.5 -> 31.25
	closes := []float64{10, 20, 30, 40}
	got := emaLast(closes, 3)
	if !almostEqual(got, 31.25, 1e-9) {
		t.Fatalf("ema = %v, want 31.25", got)
	}
}

func TestEmaEmptyInput(t *testing.T) {
	if got := emaLast(nil, 14); got != 0 {
		t.Fatalf("ema of empty series = %v, want 0", got)
	}
}

func TestRsiMonotonicRise(t *testing.T) {
	closes := make([]float64, 30)
	for i := range closes {
		closes[i] = 100 + float64(i)
	}
	if got := rsiLast(closes, 14); got != 100 {
		t.Fatalf("rsi of a strictly rising series = %v, want 100", got)
	}
}

func TestRsiMonotonicFall(t *testing.T) {
	closes := make([]float64, 30)
	for i := range closes {
		closes[i] = 100 - float64(i)
	}
	if got := rsiLast(closes, 14); got != 0 {
		t.Fatalf("rsi of a strictly falling series = %v, want 0", got)
	}
}

func TestRsiAlternatingEqualMoves(t *testing.T) {
	// equal gains and losses drive RS to 1, RSI to 50
	closes := make([]float64, 101)
	for i := range closes {
		if i%2 == 0 {
			closes[i] = 100
		} else {
			closes[i] = 101
		}
	}
	got := rsiLast(closes, 14)
	if !almostEqual(got, 50, 5.0) {
		t.Fatalf("rsi of balanced moves = %v, want ~50", got)
	}
}

func TestRsiTooFewCandles(t *testing.T) {
	if got := rsiLast([]float64{1, 2, 3}, 14); got != 0 {
		t.Fatalf("rsi with too few candles = %v, want 0", got)
	}
}

func TestMacdConstantSeriesIsZero(t *testing.T) {
	closes := make([]float64, 60)
	for i := range closes {
		closes[i] = 42
	}
	macd, signal := macdLast(closes, 12, 26, 9)
	if macd != 0 || signal != 0 {
		t.Fatalf("macd of constant series = (%v, %v), want (0, 0)", macd, signal)
	}
}

func TestMacdPositiveInUptrend(t *testing.T) {
	closes := make([]float64, 100)
	for i := range closes {
		closes[i] = 100 + float64(i)*2
	}
	macd, signal := macdLast(closes, 12, 26, 9)
	if macd <= 0 {
		t.Fatalf("macd in a steady uptrend = %v, want > 0", macd)
	}
	if signal <= 0 {
		t.Fatalf("macd signal in a steady uptrend = %v, want > 0", signal)
	}
}
