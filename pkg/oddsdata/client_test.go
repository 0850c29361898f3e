package oddsdata

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

func TestGetOddsSendsGameIDs(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("game_ids") != "g1" {
			t.Errorf("expected game_ids=g1, got %s", r.URL.Query().Get("game_ids"))
		}
		if r.Header.Get("Authorization") != "key123" {
			t.Errorf("expected Authorization header key123, got %s", r.Header.Get("Authorization"))
		}
		spread := 4.5
		json.NewEncoder(w).Encode([]OddsRecord{
			{GameID: "g1", Vendor: "draftkings", SpreadValue: &spread},
		})
	}))
	defer server.Close()

	client := NewClient(server.URL, "key123")
	records, err := client.GetOdds(context.Background(), []string{"g1"}, nil, nil)
	if err != nil {
		t.Fatalf("GetOdds failed: %v", err)
	}
	if len(records) != 1 || records[0].Vendor != "draftkings" {
		t.Errorf("unexpected records: %+v", records)
	}
}

func TestGetOddsReturnsErrorOnRateLimit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := NewClient(server.URL, "key123")
	_, err := client.GetOdds(context.Background(), []string{"g1"}, nil, nil)
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
		spread := 4.5
		json.NewEncoder(w).Encode([]OddsRecord{
			{GameID: "g1", Vendor: "draftkings", SpreadValue: &spread},
		})
	}))
	defer server.Close()

	client := NewClient(server.URL, "key123")
	records, err := client.GetOdds(context.Background(), []string{"g1"}, nil, nil)
	if err != nil {
		t.Fatalf("GetOdds failed: %v", err)
	}
	if len(records) != 1 {
		t.Errorf("expected 1 record, got %d", len(records))
	}
	if attempts.Load() != 2 {
		t.Errorf("expected 2 attempts, got %d", attempts.Load())
	}
}
