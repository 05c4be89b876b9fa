package apihttp

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func waitForClients(t *testing.T, hub *wsHub, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for hub.clientCount() != want {
		if time.Now().After(deadline) {
			t.Fatalf("clients = %d, want %d", hub.clientCount(), want)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestReloadIsBroadcast(t *testing.T) {
	env := newTestEnv(t)
	ts := httptest.NewServer(env.server)
	defer ts.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/ws", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	waitForClients(t, env.server.wsHub, 1)

	resp, err := http.Post(ts.URL+"/api/reload", "application/json", nil)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	resp.Body.Close()

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, raw, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var msg struct {
		Type string       `json:"type"`
		Data catalogEvent `json:"data"`
	}
	if err := json.Unmarshal(raw, &msg); err != nil {
		t.Fatalf("decode %s: %v", raw, err)
	}
	if msg.Type != "catalog" || msg.Data.Generation != 2 || msg.Data.Entries != 3 {
		t.Fatalf("message = %+v", msg)
	}
}

func TestHubCloseDisconnectsClients(t *testing.T) {
	env := newTestEnv(t)
	ts := httptest.NewServer(env.server)
	defer ts.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/ws", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	waitForClients(t, env.server.wsHub, 1)

	env.server.Close()
	env.server.Close()

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Fatal("expected the connection to close")
	}
}

func TestUpgraderChecksOrigin(t *testing.T) {
	up := newUpgrader(originAllowed([]string{"http://tv.local"}))
	tests := map[string]bool{
		"":                 true,
		"http://tv.local":  true,
		"http://evil.test": false,
	}
	for origin, want := range tests {
		req := httptest.NewRequest(http.MethodGet, "/ws", nil)
		if origin != "" {
			req.Header.Set("Origin", origin)
		}
		if got := up.CheckOrigin(req); got != want {
			t.Fatalf("origin %q: got %v, want %v", origin, got, want)
		}
	}
}
