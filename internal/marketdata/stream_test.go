package marketdata

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

func quoteFrame(payload string) []byte {
	frame, _ := json.Marshal(streamMessage{Type: "quote", Data: json.RawMessage(payload)})
	return frame
}

func TestStreamClient_Connect(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer conn.Close()

		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")

	client, err := NewStreamClient(context.Background(), wsURL, nil)
	if err != nil {
		t.Fatalf("NewStreamClient: %v", err)
	}
	defer client.Close()

	if client.closed.Load() {
		t.Error("client should not be closed")
	}
}

func TestStreamClient_SubscribeAndReceive(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer c.Close()

		// Read subscribe request
		_, msg, err := c.ReadMessage()
		if err != nil {
			return
		}

		var req streamRequest
		if err := json.Unmarshal(msg, &req); err != nil {
			t.Errorf("unmarshal request: %v", err)
			return
		}
		if req.Op != "subscribe" {
			t.Errorf("expected subscribe op, got %s", req.Op)
		}
		if len(req.Tickers) != 2 || req.Tickers[0] != "ACME" || req.Tickers[1] != "BOLT" {
			t.Errorf("unexpected tickers %v", req.Tickers)
		}

		frame := quoteFrame(`{"ticker":"ACME","company_name":"Acme Industrial Corp","market_cap":3000,"enterprise_value":3200}`)
		if err := c.WriteMessage(websocket.TextMessage, frame); err != nil {
			t.Errorf("write frame: %v", err)
			return
		}

		for {
			if _, _, err := c.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")

	client, err := NewStreamClient(context.Background(), wsURL, nil)
	if err != nil {
		t.Fatalf("NewStreamClient: %v", err)
	}
	defer client.Close()

	if err := client.Subscribe(context.Background(), "acme", "bolt"); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	select {
	case snap := <-client.Updates():
		if snap.Ticker != "ACME" {
			t.Errorf("expected ACME, got %s", snap.Ticker)
		}
		if !snap.MarketCap.Defined || snap.MarketCap.Value != 3000 {
			t.Errorf("unexpected market cap %+v", snap.MarketCap)
		}
		if snap.FetchedAt == 0 {
			t.Error("expected FetchedAt stamp")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for quote update")
	}
}

func TestStreamClient_DropsQuotesWithoutAnchor(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer c.Close()

		if _, _, err := c.ReadMessage(); err != nil {
			return
		}

		// No valuation anchor: must be dropped
		c.WriteMessage(websocket.TextMessage, quoteFrame(`{"ticker":"VOID","ebitda":50}`))
		// Valid quote follows
		c.WriteMessage(websocket.TextMessage, quoteFrame(`{"ticker":"ACME","market_cap":3000}`))

		for {
			if _, _, err := c.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")

	client, err := NewStreamClient(context.Background(), wsURL, nil)
	if err != nil {
		t.Fatalf("NewStreamClient: %v", err)
	}
	defer client.Close()

	if err := client.Subscribe(context.Background(), "VOID", "ACME"); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	select {
	case snap := <-client.Updates():
		if snap.Ticker != "ACME" {
			t.Errorf("anchorless quote should be dropped, got %s", snap.Ticker)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for quote update")
	}
}

func TestStreamClient_Close(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")

	client, err := NewStreamClient(context.Background(), wsURL, nil)
	if err != nil {
		t.Fatalf("NewStreamClient: %v", err)
	}

	if err := client.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
	if !client.closed.Load() {
		t.Error("client should be closed")
	}

	// Updates channel closes with the client
	select {
	case _, open := <-client.Updates():
		if open {
			t.Error("expected closed updates channel")
		}
	case <-time.After(time.Second):
		t.Fatal("updates channel not closed")
	}

	// Double close should be safe
	if err := client.Close(); err != nil {
		t.Errorf("double Close: %v", err)
	}
}

func TestStreamClient_SubscribeAfterClose(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")

	client, err := NewStreamClient(context.Background(), wsURL, nil)
	if err != nil {
		t.Fatalf("NewStreamClient: %v", err)
	}
	client.Close()

	if err := client.Subscribe(context.Background(), "ACME"); err == nil {
		t.Error("expected error subscribing after close")
	}
}
