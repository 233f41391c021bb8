package marketdata

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func fixedClock() func() time.Time {
	at := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)
	return func() time.Time { return at }
}

func TestClient_Snapshot_DecodesPayload(t *testing.T) {
	var gotPath, gotUA string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotUA = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"ticker": "ACME",
			"company_name": "Acme Industrial Corp",
			"sector": "Industrials",
			"industry": "Machinery",
			"market_cap": 3000000000,
			"enterprise_value": 3200000000,
			"total_debt": 400000000,
			"total_cash": 100000000,
			"ebitda": 240000000
		}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, WithUserAgent("aperture-test/1.0"), WithClock(fixedClock()))

	snap, err := client.Snapshot(context.Background(), "acme")
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}

	if gotPath != "/v1/quote/ACME" {
		t.Errorf("expected path /v1/quote/ACME, got %s", gotPath)
	}
	if gotUA != "aperture-test/1.0" {
		t.Errorf("expected custom user agent, got %s", gotUA)
	}
	if snap.Ticker != "ACME" {
		t.Errorf("expected ticker ACME, got %s", snap.Ticker)
	}
	if snap.CompanyName != "Acme Industrial Corp" {
		t.Errorf("unexpected company name %s", snap.CompanyName)
	}
	if !snap.MarketCap.Defined || snap.MarketCap.Value != 3000000000 {
		t.Errorf("unexpected market cap %+v", snap.MarketCap)
	}
	if !snap.EnterpriseValue.Defined || snap.EnterpriseValue.Value != 3200000000 {
		t.Errorf("unexpected enterprise value %+v", snap.EnterpriseValue)
	}
	if !snap.EBITDA.Defined || snap.EBITDA.Value != 240000000 {
		t.Errorf("unexpected ebitda %+v", snap.EBITDA)
	}
	if snap.FetchedAt != fixedClock()().UnixMilli() {
		t.Errorf("expected FetchedAt from injected clock, got %d", snap.FetchedAt)
	}
}

func TestClient_Snapshot_OmittedFieldsStayUndefined(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"ticker":"ACME","market_cap":1000,"ebitda":null}`))
	}))
	defer server.Close()

	client := NewClient(server.URL)

	snap, err := client.Snapshot(context.Background(), "ACME")
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if !snap.MarketCap.Defined {
		t.Error("market cap should be defined")
	}
	if snap.EnterpriseValue.Defined {
		t.Error("omitted enterprise value should be undefined")
	}
	if snap.TotalDebt.Defined || snap.TotalCash.Defined {
		t.Error("omitted debt and cash should be undefined")
	}
	if snap.EBITDA.Defined {
		t.Error("null ebitda should be undefined")
	}
}

func TestClient_Snapshot_NotFoundIsUnavailable(t *testing.T) {
	var requests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		http.NotFound(w, r)
	}))
	defer server.Close()

	client := NewClient(server.URL, WithRetryDelay(time.Millisecond))

	_, err := client.Snapshot(context.Background(), "GHOST")
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
	if n := requests.Load(); n != 1 {
		t.Errorf("404 should not be retried, got %d requests", n)
	}
}

func TestClient_Snapshot_MissingAnchorsIsUnavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"ticker":"ACME","total_debt":100,"ebitda":50}`))
	}))
	defer server.Close()

	client := NewClient(server.URL)

	_, err := client.Snapshot(context.Background(), "ACME")
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable for payload without valuation anchor, got %v", err)
	}
}

func TestClient_Snapshot_SingleAnchorSuffices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"ticker":"ACME","enterprise_value":500}`))
	}))
	defer server.Close()

	client := NewClient(server.URL)

	snap, err := client.Snapshot(context.Background(), "ACME")
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if snap.MarketCap.Defined {
		t.Error("market cap should be undefined")
	}
	if !snap.EnterpriseValue.Defined {
		t.Error("enterprise value should be defined")
	}
}

func TestClient_Snapshot_RetriesServerErrors(t *testing.T) {
	var requests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if requests.Add(1) <= 2 {
			http.Error(w, "upstream busy", http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"ticker":"ACME","market_cap":1000}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, WithRetryDelay(time.Millisecond))

	snap, err := client.Snapshot(context.Background(), "ACME")
	if err != nil {
		t.Fatalf("Snapshot after retries: %v", err)
	}
	if snap.Ticker != "ACME" {
		t.Errorf("unexpected ticker %s", snap.Ticker)
	}
	if n := requests.Load(); n != 3 {
		t.Errorf("expected 3 requests, got %d", n)
	}
}

func TestClient_Snapshot_RetriesExhausted(t *testing.T) {
	var requests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := NewClient(server.URL, WithMaxRetries(2), WithRetryDelay(time.Millisecond))

	_, err := client.Snapshot(context.Background(), "ACME")
	if err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	if errors.Is(err, ErrUnavailable) {
		t.Error("rate limiting should not map to ErrUnavailable")
	}
	if n := requests.Load(); n != 3 {
		t.Errorf("expected 3 requests (initial + 2 retries), got %d", n)
	}
}

func TestClient_Snapshot_BadRequestFailsFast(t *testing.T) {
	var requests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		http.Error(w, "bad symbol", http.StatusBadRequest)
	}))
	defer server.Close()

	client := NewClient(server.URL, WithRetryDelay(time.Millisecond))

	_, err := client.Snapshot(context.Background(), "ACME")
	if err == nil {
		t.Fatal("expected error")
	}
	if n := requests.Load(); n != 1 {
		t.Errorf("4xx should fail fast, got %d requests", n)
	}
}

func TestClient_Snapshot_EmptyTicker(t *testing.T) {
	client := NewClient("http://localhost:0")
	if _, err := client.Snapshot(context.Background(), "  "); err == nil {
		t.Fatal("expected error for empty ticker")
	}
}
