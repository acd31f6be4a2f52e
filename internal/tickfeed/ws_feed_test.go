package tickfeed

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

func TestWSFeed_Connect(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Fatalf("upgrade: %v", err)
		}
		defer conn.Close()

		for {
			_, _, err := conn.ReadMessage()
			if err != nil {
				return
			}
		}
	}))
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")

	feed, err := NewWSFeed(context.Background(), wsURL, nil)
	if err != nil {
		t.Fatalf("NewWSFeed: %v", err)
	}
	defer feed.Close()

	if feed.closed.Load() {
		t.Error("feed should not be closed")
	}
}

func TestWSFeed_WatchPool(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Fatalf("upgrade: %v", err)
		}
		defer c.Close()

		_, msg, err := c.ReadMessage()
		if err != nil {
			return
		}

		var req wsRequest
		if err := json.Unmarshal(msg, &req); err != nil {
			t.Errorf("unmarshal request: %v", err)
			return
		}
		if req.Method != "tickSubscribe" {
			t.Errorf("expected tickSubscribe, got %s", req.Method)
		}
		if len(req.Params) == 0 || req.Params[0] != "testpool" {
			t.Errorf("expected pool param testpool, got %v", req.Params)
		}

		resp := wsSubscribeResponse{
			JSONRPC: "2.0",
			ID:      req.ID,
			Result:  777, // subscription ID
		}
		if err := c.WriteJSON(resp); err != nil {
			t.Errorf("write response: %v", err)
			return
		}

		time.Sleep(50 * time.Millisecond)
		notif := wsNotification{
			JSONRPC: "2.0",
			Method:  "tickNotification",
			Params: &wsNotificationParams{
				Subscription: 777,
				Result: wsNotificationResult{
					Context: &wsContext{Slot: 345},
					Value:   wsTickValue{Pool: "testpool", Tick: -1200},
				},
			},
		}
		if err := c.WriteJSON(notif); err != nil {
			t.Errorf("write notification: %v", err)
			return
		}

		for {
			_, _, err := c.ReadMessage()
			if err != nil {
				return
			}
		}
	}))
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")

	feed, err := NewWSFeed(context.Background(), wsURL, nil)
	if err != nil {
		t.Fatalf("NewWSFeed: %v", err)
	}
	defer feed.Close()

	ch, err := feed.WatchPool(context.Background(), "testpool")
	if err != nil {
		t.Fatalf("WatchPool: %v", err)
	}

	select {
	case update := <-ch:
		if update.PoolID != "testpool" {
			t.Errorf("pool = %s, want testpool", update.PoolID)
		}
		if update.Tick != -1200 {
			t.Errorf("tick = %d, want -1200", update.Tick)
		}
		if update.Slot != 345 {
			t.Errorf("slot = %d, want 345", update.Slot)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for tick update")
	}
}

func TestWSFeed_Close(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Fatalf("upgrade: %v", err)
		}
		defer conn.Close()

		for {
			_, _, err := conn.ReadMessage()
			if err != nil {
				return
			}
		}
	}))
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")

	feed, err := NewWSFeed(context.Background(), wsURL, nil)
	if err != nil {
		t.Fatalf("NewWSFeed: %v", err)
	}

	if err := feed.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
	if !feed.closed.Load() {
		t.Error("feed should be closed")
	}

	// Double close should be safe
	if err := feed.Close(); err != nil {
		t.Errorf("double Close: %v", err)
	}
}

func TestWSFeed_WatchAfterClose(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Fatalf("upgrade: %v", err)
		}
		defer conn.Close()

		for {
			_, _, err := conn.ReadMessage()
			if err != nil {
				return
			}
		}
	}))
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")

	feed, err := NewWSFeed(context.Background(), wsURL, nil)
	if err != nil {
		t.Fatalf("NewWSFeed: %v", err)
	}

	feed.Close()

	if _, err := feed.WatchPool(context.Background(), "pool"); err == nil {
		t.Error("expected error watching after close")
	}
}
