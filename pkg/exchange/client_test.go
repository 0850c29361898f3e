package exchange

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

func TestExchangeStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/exchange/status" {
			t.Errorf("expected path /exchange/status, got %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(Status{TradingActive: true, ExchangeOpen: true})
	}))
	defer server.Close()

	client := NewClient(nil, WithBaseURL(server.URL))
	status, err := client.ExchangeStatus(context.Background())
	if err != nil {
		t.Fatalf("ExchangeStatus failed: %v", err)
	}
	if !status.TradingActive {
		t.Errorf("expected trading_active true")
	}
}

func TestGetMarketOrderbookSendsDepth(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("depth") != "5" {
			t.Errorf("expected depth=5, got %s", r.URL.Query().Get("depth"))
		}
		json.NewEncoder(w).Encode(Orderbook{Ticker: "T1"})
	}))
	defer server.Close()

	client := NewClient(nil, WithBaseURL(server.URL))
	book, err := client.GetMarketOrderbook(context.Background(), "T1", 5)
	if err != nil {
		t.Fatalf("GetMarketOrderbook failed: %v", err)
	}
	if book.Ticker != "T1" {
		t.Errorf("wrong ticker: got %s", book.Ticker)
	}
}

func TestGetReturnsNotFoundOn404(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := NewClient(nil, WithBaseURL(server.URL))
	_, err := client.GetMarket(context.Background(), "missing")
	if err == nil {
		t.Fatal("expected an error")
	}
}

func TestGetRetriesOnceAfter429(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		json.NewEncoder(w).Encode(Market{Ticker: "T1"})
	}))
	defer server.Close()

	client := NewClient(nil, WithBaseURL(server.URL))
	market, err := client.GetMarket(context.Background(), "T1")
	if err != nil {
		t.Fatalf("GetMarket failed: %v", err)
	}
	if market.Ticker != "T1" {
		t.Errorf("wrong ticker: got %s", market.Ticker)
	}
	if attempts.Load() != 2 {
		t.Errorf("expected 2 attempts, got %d", attempts.Load())
	}
}

func TestGetGivesUpAfterSecond429(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.Header().Set("Retry-After", "0")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := NewClient(nil, WithBaseURL(server.URL))
	_, err := client.GetMarket(context.Background(), "T1")
	if err == nil {
		t.Fatal("expected an error")
	}
	if attempts.Load() != 2 {
		t.Errorf("expected exactly 2 attempts, got %d", attempts.Load())
	}
}
