package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/bytedance/sonic"
)

const krakenBaseURL = "https://api.kraken.com"

// KrakenClient fetches public OHLC candles.
type KrakenClient struct {
	base string
	http *http.Client
}

func NewKrakenClient(client *http.Client) *KrakenClient {
	return &KrakenClient{base: krakenBaseURL, http: client}
}

type ohlcResponse struct {
	Error  []string                   `json:"error"`
	Result map[string]json.RawMessage `json:"result"`
}

// Closes returns the close prices of the requested pair, oldest first.
// Kraken keys the candle array by its own canonical pair name (XBTUSD comes
// back as XXBTZUSD), so the result is scanned for the one non-"last" key.
func (c *KrakenClient) Closes(ctx context.Context, pair string, intervalMin int) ([]float64, error) {
	q := url.Values{}
	q.Set("pair", pair)
	q.Set("interval", strconv.Itoa(intervalMin))

	u := fmt.Sprintf("%s/0/public/OHLC?%s", c.base, q.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("kraken: http %d", resp.StatusCode)
	}

	var parsed ohlcResponse
	if err := sonic.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("kraken: decode: %w", err)
	}
	if len(parsed.Error) > 0 {
		return nil, fmt.Errorf("kraken: api error: %v", parsed.Error)
	}

	for key, raw := range parsed.Result {
		if key == "last" {
			continue
		}
		// candle row: [time, open, high, low, close, vwap, volume, count]
		var rows [][]any
		if err := sonic.Unmarshal(raw, &rows); err != nil {
			return nil, fmt.Errorf("kraken: decode candles: %w", err)
		}
		closes := make([]float64, 0, len(rows))
		for _, row := range rows {
			if len(row) < 5 {
				continue
			}
			s, ok := row[4].(string)
			if !ok {
				continue
			}
			f, err := strconv.ParseFloat(s, 64)
			if err != nil {
				continue
			}
			closes = append(closes, f)
		}
		return closes, nil
	}
	return nil, fmt.Errorf("kraken: no candle data for pair %s", pair)
}
