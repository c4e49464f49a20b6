package service

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"signal_bot/internal/modules/config"
)

func bscConfig(explorer string) config.ChainConfig {
	return config.ChainConfig{
		Name:      "BEP20",
		Explorer:  explorer,
		Contract:  "0x55d398326f99059fF775485246999027B3197955",
		Token:     "USDT",
		Decimals:  18,
		PageLimit: 50,
		Deposit:   "0xAbCd000000000000000000000000000000000001",
		APIKey:    "test-key",
	}
}

func TestBscPollMatchesAddressCaseInsensitively(t *testing.T) {
	var query string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query = r.URL.RawQuery
		fmt.Fprint(w, `{
			"status": "1", "message": "OK",
			"result": [
				{
					"hash": "0xaaa", "from": "0xsender",
					"to": "0xabcd000000000000000000000000000000000001",
					"value": "500000000000000000000",
					"tokenDecimal": "18", "blockNumber": "1200", "timeStamp": "1700000000"
				},
				{
					"hash": "0xbbb", "from": "0xsender",
					"to": "0xother00000000000000000000000000000000002",
					"value": "1000000000000000000",
					"tokenDecimal": "18", "blockNumber": "1201", "timeStamp": "1700000010"
				}
			]
		}`)
	}))
	defer srv.Close()

	w := NewBscWatcher(bscConfig(srv.URL), srv.Client())
	records, next, err := w.Poll(context.Background(), "")
	if err != nil {
		t.Fatalf("poll: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("records = %d, want 1 (lowercased deposit address must still match)", len(records))
	}
	if records[0].TxID != "0xaaa" {
		t.Errorf("txid = %q", records[0].TxID)
	}
	if records[0].Amount.String() != "500" {
		t.Errorf("amount = %s, want 500", records[0].Amount.String())
	}
	// the non-matching transfer in block 1201 still advances the cursor
	if next != "1201" {
		t.Errorf("cursor = %q, want 1201", next)
	}

	req, _ := http.NewRequest(http.MethodGet, "/?"+query, nil)
	q := req.URL.Query()
	if q.Get("sort") != "asc" {
		t.Errorf("sort = %q, want asc", q.Get("sort"))
	}
	if q.Get("startblock") != "0" {
		t.Errorf("first poll startblock = %q, want 0", q.Get("startblock"))
	}
	if q.Get("apikey") != "test-key" {
		t.Errorf("apikey = %q", q.Get("apikey"))
	}
}

func TestBscPollResumesAfterCursor(t *testing.T) {
	var startBlock string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		startBlock = r.URL.Query().Get("startblock")
		fmt.Fprint(w, `{"status": "0", "message": "No transactions found", "result": "[]"}`)
	}))
	defer srv.Close()

	w := NewBscWatcher(bscConfig(srv.URL), srv.Client())
	records, next, err := w.Poll(context.Background(), "1500")
	if err != nil {
		t.Fatalf("empty result page must not be an error: %v", err)
	}
	if startBlock != "1501" {
		t.Errorf("startblock = %q, want cursor+1", startBlock)
	}
	if len(records) != 0 {
		t.Errorf("records = %d, want 0", len(records))
	}
	if next != "1500" {
		t.Errorf("empty poll moved the cursor: %q", next)
	}
}

func TestBscPollPaginatesFullPages(t *testing.T) {
	cfg := bscConfig("")
	cfg.PageLimit = 1

	var pages []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		page := r.URL.Query().Get("page")
		pages = append(pages, page)
		switch page {
		case "1":
			fmt.Fprint(w, `{"status": "1", "message": "OK", "result": [
				{"hash": "0x1", "from": "0xs", "to": "0xabcd000000000000000000000000000000000001", "value": "70000000000000000000", "tokenDecimal": "18", "blockNumber": "10", "timeStamp": "1"}
			]}`)
		default:
			fmt.Fprint(w, `{"status": "0", "message": "No transactions found", "result": "[]"}`)
		}
	}))
	defer srv.Close()
	cfg.Explorer = srv.URL

	w := NewBscWatcher(cfg, srv.Client())
	records, next, err := w.Poll(context.Background(), "")
	if err != nil {
		t.Fatalf("poll: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("records = %d, want 1", len(records))
	}
	if len(pages) != 2 || pages[0] != "1" || pages[1] != "2" {
		t.Fatalf("pages requested = %v, want [1 2]", pages)
	}
	if next != "10" {
		t.Errorf("cursor = %q, want 10", next)
	}
}

func TestBscPollPageCapRereadsBoundaryBlock(t *testing.T) {
	cfg := bscConfig("")
	cfg.PageLimit = 1

	// eleven transfers, one more than a poll can fetch at one tx per page;
	// the last two share block 100, so the page cap lands mid-block
	type fixture struct {
		hash  string
		block int64
	}
	var all []fixture
	for i := 1; i <= 9; i++ {
		all = append(all, fixture{fmt.Sprintf("0x%d", i), int64(90 + i)})
	}
	all = append(all, fixture{"0x10", 100}, fixture{"0x11", 100})

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		start, _ := strconv.ParseInt(q.Get("startblock"), 10, 64)
		page, _ := strconv.Atoi(q.Get("page"))

		var visible []fixture
		for _, f := range all {
			if f.block >= start {
				visible = append(visible, f)
			}
		}
		if page < 1 || page > len(visible) {
			fmt.Fprint(w, `{"status": "0", "message": "No transactions found", "result": "[]"}`)
			return
		}
		f := visible[page-1]
		fmt.Fprintf(w, `{"status": "1", "message": "OK", "result": [
			{"hash": "%s", "from": "0xs", "to": "0xabcd000000000000000000000000000000000001", "value": "1000000000000000000", "tokenDecimal": "18", "blockNumber": "%d", "timeStamp": "1"}
		]}`, f.hash, f.block)
	}))
	defer srv.Close()
	cfg.Explorer = srv.URL

	w := NewBscWatcher(cfg, srv.Client())

	records, next, err := w.Poll(context.Background(), "")
	if err != nil {
		t.Fatalf("first poll: %v", err)
	}
	if len(records) != 10 {
		t.Fatalf("first poll records = %d, want the page cap of 10", len(records))
	}
	// the boundary block may hold more transfers, so the cursor must stop
	// short of it
	if next != "99" {
		t.Fatalf("capped cursor = %q, want 99", next)
	}

	records, next, err = w.Poll(context.Background(), next)
	if err != nil {
		t.Fatalf("second poll: %v", err)
	}
	seen := map[string]bool{}
	for _, rec := range records {
		seen[rec.TxID] = true
	}
	if !seen["0x11"] {
		t.Fatalf("transfer behind the page cap never observed, second poll saw %v", records)
	}
	if next != "100" {
		t.Errorf("final cursor = %q, want 100", next)
	}
}

func TestBscPollExplorerErrorKeepsCursor(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"status": "0", "message": "NOTOK", "result": "Max rate limit reached"}`)
	}))
	defer srv.Close()

	w := NewBscWatcher(bscConfig(srv.URL), srv.Client())
	_, next, err := w.Poll(context.Background(), "77")
	if err == nil {
		t.Fatal("expected error on explorer NOTOK")
	}
	if next != "77" {
		t.Errorf("cursor = %q, want untouched 77", next)
	}
}

func TestBscEnabled(t *testing.T) {
	cfg := bscConfig("http://example.invalid")
	if !NewBscWatcher(cfg, http.DefaultClient).Enabled() {
		t.Error("fully configured watcher reported disabled")
	}
	cfg.Deposit = ""
	if NewBscWatcher(cfg, http.DefaultClient).Enabled() {
		t.Error("watcher without deposit address reported enabled")
	}
}
