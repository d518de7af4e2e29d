package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func startTestHub(t *testing.T) *wsHub {
	t.Helper()
	hub := newWSHub(zerolog.Nop())
	go hub.run()
	return hub
}

func unregisterAll(hub *wsHub, clients ...*wsClient) {
	for _, c := range clients {
		hub.unregister <- c
	}
	time.Sleep(20 * time.Millisecond)
}

func TestWSHub_RegisterAndUnregister(t *testing.T) {
	hub := startTestHub(t)

	client := &wsClient{id: "c1", hub: hub, send: make(chan []byte, 256)}
	hub.register <- client
	time.Sleep(20 * time.Millisecond)

	if hub.clientCount() != 1 {
		t.Fatalf("expected 1 client, got %d", hub.clientCount())
	}

	hub.unregister <- client
	time.Sleep(20 * time.Millisecond)

	if hub.clientCount() != 0 {
		t.Fatalf("expected 0 clients, got %d", hub.clientCount())
	}
}

func TestWSHub_BroadcastToClients(t *testing.T) {
	hub := startTestHub(t)

	c1 := &wsClient{id: "c1", hub: hub, send: make(chan []byte, 256)}
	c2 := &wsClient{id: "c2", hub: hub, send: make(chan []byte, 256)}
	hub.register <- c1
	hub.register <- c2
	time.Sleep(20 * time.Millisecond)

	hub.Broadcast("job_event", map[string]string{"type": "end"})
	time.Sleep(20 * time.Millisecond)

	for i, c := range []*wsClient{c1, c2} {
		select {
		case got := <-c.send:
			var msg wsMessage
			if err := json.Unmarshal(got, &msg); err != nil {
				t.Fatalf("client %d: unmarshal: %v", i, err)
			}
			if msg.Type != "job_event" {
				t.Fatalf("client %d: type = %q, want job_event", i, msg.Type)
			}
		default:
			t.Fatalf("client %d: no message received", i)
		}
	}
	unregisterAll(hub, c1, c2)
}

func TestWSHub_BroadcastDropsSlowClient(t *testing.T) {
	hub := startTestHub(t)

	slow := &wsClient{id: "slow", hub: hub, send: make(chan []byte, 1)}
	hub.register <- slow
	time.Sleep(20 * time.Millisecond)

	slow.send <- []byte("fill")
	hub.Broadcast("job_event", "x")
	time.Sleep(20 * time.Millisecond)

	if hub.clientCount() != 0 {
		t.Fatalf("expected slow client to be dropped, got %d", hub.clientCount())
	}
}

func TestWSHub_Broadcast_NoClients(t *testing.T) {
	hub := startTestHub(t)
	hub.Broadcast("job_event", "x") // should not panic or block
}

func TestHandleWS_UpgradeSucceeds(t *testing.T) {
	hub := startTestHub(t)
	r := gin.New()
	r.GET("/ws", hub.HandleWS)

	srv := httptest.NewServer(r)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	resp.Body.Close()
	defer conn.Close()

	time.Sleep(20 * time.Millisecond)
	if hub.clientCount() != 1 {
		t.Fatalf("expected 1 registered client, got %d", hub.clientCount())
	}
}

func TestHandleWS_NonWSRequest(t *testing.T) {
	hub := startTestHub(t)
	r := gin.New()
	r.GET("/ws", hub.HandleWS)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}
