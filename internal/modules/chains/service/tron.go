package service

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"signal_bot/internal/models"
	"signal_bot/internal/modules/config"

	"github.com/bytedance/sonic"
	"github.com/shopspring/decimal"
)

// TronWatcher reads TRC20 transfers from a TronGrid-compatible explorer.
// Cursor is the block timestamp (ms) of the newest transfer already seen;
// TronGrid pages inside one poll via the meta fingerprint.
type TronWatcher struct {
	cfg  config.ChainConfig
	http *http.Client
}

func NewTronWatcher(cfg config.ChainConfig, client *http.Client) *TronWatcher {
	return &TronWatcher{cfg: cfg, http: client}
}

func (w *TronWatcher) Chain() models.Chain { return models.ChainTRC20 }

func (w *TronWatcher) Enabled() bool {
	return w.cfg.Deposit != "" && w.cfg.APIKey != ""
}

type tronTokenInfo struct {
	Symbol   string `json:"symbol"`
	Decimals int    `json:"decimals"`
}

type tronTransfer struct {
	TransactionID  string        `json:"transaction_id"`
	BlockTimestamp int64         `json:"block_timestamp"`
	From           string        `json:"from"`
	To             string        `json:"to"`
	Type           string        `json:"type"`
	Value          string        `json:"value"`
	TokenInfo      tronTokenInfo `json:"token_info"`
}

type tronResponse struct {
	Data    []tronTransfer `json:"data"`
	Success bool           `json:"success"`
	Meta    struct {
		Fingerprint string `json:"fingerprint"`
	} `json:"meta"`
}

func (w *TronWatcher) Poll(ctx context.Context, cursor string) ([]models.TransferRecord, string, error) {
	since := int64(0)
	if cursor != "" {
		ts, err := strconv.ParseInt(cursor, 10, 64)
		if err != nil {
			return nil, cursor, fmt.Errorf("tron: bad cursor %q: %w", cursor, err)
		}
		since = ts
	}

	var (
		out         []models.TransferRecord
		fingerprint string
		newest      = since
		capped      bool
	)

	for page := 0; page < maxPagesPerPoll; page++ {
		resp, err := w.fetch(ctx, since, fingerprint)
		if err != nil {
			return nil, cursor, err
		}

		for _, tx := range resp.Data {
			if tx.BlockTimestamp > newest {
				newest = tx.BlockTimestamp
			}
			// base58 addresses are case-sensitive, compare byte-exact
			if tx.To != w.cfg.Deposit {
				continue
			}
			amount, err := normalizeAmount(tx.Value, decimalsOr(tx.TokenInfo.Decimals, w.cfg.Decimals))
			if err != nil {
				return nil, cursor, fmt.Errorf("tron: tx %s: %w", tx.TransactionID, err)
			}
			out = append(out, models.TransferRecord{
				Chain:     models.ChainTRC20,
				TxID:      tx.TransactionID,
				Token:     w.cfg.Token,
				From:      tx.From,
				To:        tx.To,
				Amount:    amount,
				BlockTime: time.UnixMilli(tx.BlockTimestamp),
			})
		}

		fingerprint = resp.Meta.Fingerprint
		if fingerprint == "" || len(resp.Data) < w.cfg.PageLimit {
			break
		}
		if page == maxPagesPerPoll-1 {
			capped = true
		}
	}

	// a capped poll may have left unfetched transfers sharing the boundary
	// timestamp; step back 1ms so the next poll re-reads it, and let the
	// tx_hash key absorb the replays
	if capped && newest > since {
		newest--
	}

	return out, strconv.FormatInt(newest, 10), nil
}

func (w *TronWatcher) fetch(ctx context.Context, since int64, fingerprint string) (*tronResponse, error) {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(w.cfg.PageLimit))
	q.Set("contract_address", w.cfg.Contract)
	q.Set("only_confirmed", "true")
	q.Set("only_to", "true")
	q.Set("order_by", "block_timestamp,asc")
	if since > 0 {
		q.Set("min_timestamp", strconv.FormatInt(since+1, 10))
	}
	if fingerprint != "" {
		q.Set("fingerprint", fingerprint)
	}

	u := fmt.Sprintf("%s/v1/accounts/%s/transactions/trc20?%s", w.cfg.Explorer, w.cfg.Deposit, q.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("TRON-PRO-API-KEY", w.cfg.APIKey)

	resp, err := w.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("tron: http %d: %s", resp.StatusCode, truncate(body))
	}

	var parsed tronResponse
	if err := sonic.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("tron: decode: %w", err)
	}
	if !parsed.Success {
		return nil, fmt.Errorf("tron: explorer reported failure: %s", truncate(body))
	}
	return &parsed, nil
}

func normalizeAmount(raw string, decimals int) (decimal.Decimal, error) {
	if raw == "" {
		raw = "0"
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("bad value %q: %w", raw, err)
	}
	return d.Shift(-int32(decimals)), nil
}

func decimalsOr(fromResponse, fallback int) int {
	if fromResponse > 0 {
		return fromResponse
	}
	return fallback
}

func truncate(b []byte) string {
	const n = 256
	if len(b) > n {
		return string(b[:n]) + "..."
	}
	return string(b)
}
