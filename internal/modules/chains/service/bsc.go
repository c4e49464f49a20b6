package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"signal_bot/internal/models"
	"signal_bot/internal/modules/config"

	"github.com/bytedance/sonic"
)

// BscWatcher reads BEP20 transfers from a BscScan-compatible explorer.
// Cursor is the block number of the newest transfer already seen.
type BscWatcher struct {
	cfg  config.ChainConfig
	http *http.Client
}

func NewBscWatcher(cfg config.ChainConfig, client *http.Client) *BscWatcher {
	return &BscWatcher{cfg: cfg, http: client}
}

func (w *BscWatcher) Chain() models.Chain { return models.ChainBEP20 }

func (w *BscWatcher) Enabled() bool {
	return w.cfg.Deposit != "" && w.cfg.APIKey != ""
}

type bscTransfer struct {
	Hash         string `json:"hash"`
	From         string `json:"from"`
	To           string `json:"to"`
	Value        string `json:"value"`
	TokenDecimal string `json:"tokenDecimal"`
	BlockNumber  string `json:"blockNumber"`
	TimeStamp    string `json:"timeStamp"`
}

// result is a list on success and a plain string on errors, hence the
// RawMessage indirection.
type bscResponse struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Result  json.RawMessage `json:"result"`
}

func (w *BscWatcher) Poll(ctx context.Context, cursor string) ([]models.TransferRecord, string, error) {
	startBlock := int64(0)
	if cursor != "" {
		b, err := strconv.ParseInt(cursor, 10, 64)
		if err != nil {
			return nil, cursor, fmt.Errorf("bsc: bad cursor %q: %w", cursor, err)
		}
		startBlock = b + 1
	}

	var (
		out    []models.TransferRecord
		newest = startBlock - 1
	)
	if newest < 0 {
		newest = 0
	}

	capped := false
	for page := 1; page <= maxPagesPerPoll; page++ {
		txs, err := w.fetch(ctx, startBlock, page)
		if err != nil {
			return nil, cursor, err
		}

		for _, tx := range txs {
			block, err := strconv.ParseInt(tx.BlockNumber, 10, 64)
			if err != nil {
				return nil, cursor, fmt.Errorf("bsc: tx %s: bad block %q", tx.Hash, tx.BlockNumber)
			}
			if block > newest {
				newest = block
			}
			// hex addresses carry EIP-55 checksum casing, compare case-insensitively
			if !strings.EqualFold(tx.To, w.cfg.Deposit) {
				continue
			}

			decimals := w.cfg.Decimals
			if d, err := strconv.Atoi(tx.TokenDecimal); err == nil && d > 0 {
				decimals = d
			}
			amount, err := normalizeAmount(tx.Value, decimals)
			if err != nil {
				return nil, cursor, fmt.Errorf("bsc: tx %s: %w", tx.Hash, err)
			}

			blockTime := time.Time{}
			if ts, err := strconv.ParseInt(tx.TimeStamp, 10, 64); err == nil {
				blockTime = time.Unix(ts, 0)
			}

			out = append(out, models.TransferRecord{
				Chain:     models.ChainBEP20,
				TxID:      tx.Hash,
				Token:     w.cfg.Token,
				From:      tx.From,
				To:        tx.To,
				Amount:    amount,
				BlockTime: blockTime,
			})
		}

		if len(txs) < w.cfg.PageLimit {
			break
		}
		if page == maxPagesPerPoll {
			capped = true
		}
	}

	// a capped poll may have left unfetched transfers in the boundary block;
	// step back one block so the next poll re-reads it, and let the tx_hash
	// key absorb the replays
	if capped && newest > 0 {
		newest--
	}

	return out, strconv.FormatInt(newest, 10), nil
}

func (w *BscWatcher) fetch(ctx context.Context, startBlock int64, page int) ([]bscTransfer, error) {
	q := url.Values{}
	q.Set("module", "account")
	q.Set("action", "tokentx")
	q.Set("contractaddress", w.cfg.Contract)
	q.Set("address", w.cfg.Deposit)
	q.Set("page", strconv.Itoa(page))
	q.Set("offset", strconv.Itoa(w.cfg.PageLimit))
	q.Set("startblock", strconv.FormatInt(startBlock, 10))
	q.Set("endblock", "999999999")
	q.Set("sort", "asc")
	q.Set("apikey", w.cfg.APIKey)

	u := fmt.Sprintf("%s/api?%s", w.cfg.Explorer, q.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}

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
		return nil, fmt.Errorf("bsc: http %d: %s", resp.StatusCode, truncate(body))
	}

	var parsed bscResponse
	if err := sonic.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("bsc: decode: %w", err)
	}

	// status "0" + "No transactions found" is an empty page, not a failure
	if parsed.Status != "1" {
		if strings.Contains(parsed.Message, "No transactions") {
			return nil, nil
		}
		return nil, fmt.Errorf("bsc: explorer error: %s %s", parsed.Message, truncate(parsed.Result))
	}

	var txs []bscTransfer
	if err := sonic.Unmarshal(parsed.Result, &txs); err != nil {
		return nil, fmt.Errorf("bsc: decode result: %w", err)
	}
	return txs, nil
}
