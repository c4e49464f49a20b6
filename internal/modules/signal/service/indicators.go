package service

// Indicator math over a closed-candle series. Same EMA recurrence the
// strategy engines use, just computed over a snapshot slice instead of a
// stream.

func emaSeries(closes []float64, period int) []float64 {
	if len(closes) == 0 {
		return nil
	}
	if period <= 1 {
		period = 1
	}
	k := 2.0 / (float64(period) + 1)
	out := make([]float64, len(closes))
	out[0] = closes[0]
	for i := 1; i < len(closes); i++ {
		out[i] = out[i-1] + k*(closes[i]-out[i-1])
	}
	return out
}

func emaLast(closes []float64, period int) float64 {
	s := emaSeries(closes, period)
	if len(s) == 0 {
		return 0
	}
	return s[len(s)-1]
}

// rsiLast — Wilder RSI: simple average over the first period changes, then
// smoothed with alpha = 1/period.
func rsiLast(closes []float64, period int) float64 {
	if period < 1 || len(closes) < period+1 {
		return 0
	}

	var avgGain, avgLoss float64
	for i := 1; i <= period; i++ {
		change := closes[i] - closes[i-1]
		if change > 0 {
			avgGain += change
		} else {
			avgLoss -= change
		}
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)

	alpha := 1.0 / float64(period)
	for i := period + 1; i < len(closes); i++ {
		change := closes[i] - closes[i-1]
		gain, loss := 0.0, 0.0
		if change > 0 {
			gain = change
		} else {
			loss = -change
		}
		avgGain = (1-alpha)*avgGain + alpha*gain
		avgLoss = (1-alpha)*avgLoss + alpha*loss
	}

	if avgLoss == 0 {
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - (100 / (1 + rs))
}

// macdLast returns the last MACD line value and its signal line.
func macdLast(closes []float64, fast, slow, signalN int) (macd, signal float64) {
	if len(closes) == 0 {
		return 0, 0
	}
	emaFast := emaSeries(closes, fast)
	emaSlow := emaSeries(closes, slow)

	line := make([]float64, len(closes))
	for i := range line {
		line[i] = emaFast[i] - emaSlow[i]
	}
	signalSeries := emaSeries(line, signalN)

	return line[len(line)-1], signalSeries[len(signalSeries)-1]
}
