package service

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func testKraken(srv *httptest.Server) *KrakenClient {
	c := NewKrakenClient(srv.Client())
	c.base = srv.URL
	return c
}

func TestKrakenClosesDecodesCanonicalPairKey(t *testing.T) {
	var query string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query = r.URL.RawQuery
		// Kraken answers XBTUSD requests under its canonical XXBTZUSD key
		fmt.Fprint(w, `{
			"error": [],
			"result": {
				"XXBTZUSD": [
					[1700000000, "64900.0", "65100.0", "64800.0", "65000.0", "64950.0", "12.5", 320],
					[1700000300, "65000.0", "65300.0", "64950.0", "65250.5", "65100.0", "8.1", 210]
				],
				"last": 1700000300
			}
		}`)
	}))
	defer srv.Close()

	closes, err := testKraken(srv).Closes(context.Background(), "XBTUSD", 5)
	if err != nil {
		t.Fatalf("closes: %v", err)
	}
	if len(closes) != 2 {
		t.Fatalf("closes = %d, want 2", len(closes))
	}
	if closes[0] != 65000.0 || closes[1] != 65250.5 {
		t.Fatalf("closes = %v", closes)
	}

	req, _ := http.NewRequest(http.MethodGet, "/?"+query, nil)
	q := req.URL.Query()
	if q.Get("pair") != "XBTUSD" || q.Get("interval") != "5" {
		t.Errorf("query = %q", query)
	}
}

func TestKrakenClosesAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"error": ["EQuery:Unknown asset pair"], "result": {}}`)
	}))
	defer srv.Close()

	if _, err := testKraken(srv).Closes(context.Background(), "NOPE", 5); err == nil {
		t.Fatal("expected api error")
	}
}

func TestKrakenClosesNoCandleData(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"error": [], "result": {"last": 1700000300}}`)
	}))
	defer srv.Close()

	if _, err := testKraken(srv).Closes(context.Background(), "XBTUSD", 5); err == nil {
		t.Fatal("expected error when only the last marker is present")
	}
}
