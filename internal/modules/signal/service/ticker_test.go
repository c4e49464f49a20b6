package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func TestReadLoopReleasesWatchdogOnReconnect(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		// drop the stream immediately, like a flaky upstream
		_ = conn.Close()
	}))
	defer srv.Close()
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")

	ts := NewTickerStream("XBT/USD")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	baseline := runtime.NumGoroutine()

	// each iteration is one dropped connection of the reconnect loop
	for i := 0; i < 25; i++ {
		conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
		if err != nil {
			t.Fatalf("dial: %v", err)
		}
		ts.readLoop(ctx, conn)
		_ = conn.Close()
	}

	// goroutine count must settle back near the baseline while ctx is
	// still live; before the done channel each iteration parked one
	deadline := time.Now().Add(2 * time.Second)
	for {
		if runtime.NumGoroutine() <= baseline+3 {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("goroutines leaked across reconnects: baseline %d, now %d",
				baseline, runtime.NumGoroutine())
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestTickerLastStaleWithoutUpdates(t *testing.T) {
	ts := NewTickerStream("XBT/USD")
	if got := ts.Last(); got != 0 {
		t.Fatalf("never-connected stream Last() = %v, want 0", got)
	}
}
