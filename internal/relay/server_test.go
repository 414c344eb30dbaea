package relay

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func TestHandler_StatusEndpoint(t *testing.T) {
	hub := NewHub(4)
	status := NewStatus()
	status.MarkReport(time.Now().UTC(), "127.0.0.1:5000")

	srv := httptest.NewServer(Handler(status, hub))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/status")
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status=%d want 200", resp.StatusCode)
	}

	var snap StatusSnapshot
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		t.Fatalf("Decode() error: %v", err)
	}
	if snap.Service != "bus-relay" {
		t.Fatalf("service=%q want bus-relay", snap.Service)
	}
	if snap.ReportsTotal != 1 {
		t.Fatalf("reports_total=%d want 1", snap.ReportsTotal)
	}
	if snap.LastReportUTC == "" {
		t.Fatalf("last_report_utc missing")
	}
}

func TestHandler_StatusRejectsPost(t *testing.T) {
	srv := httptest.NewServer(Handler(NewStatus(), NewHub(4)))
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/api/status", "application/json", nil)
	if err != nil {
		t.Fatalf("Post() error: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("status=%d want 405", resp.StatusCode)
	}
}

func TestHandler_ServesEmbeddedUI(t *testing.T) {
	srv := httptest.NewServer(Handler(NewStatus(), NewHub(4)))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/")
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status=%d want 200", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Fatalf("content-type=%q", ct)
	}

	resp2, err := http.Get(srv.URL + "/nope")
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	defer resp2.Body.Close()
	if resp2.StatusCode != http.StatusNotFound {
		t.Fatalf("status=%d want 404", resp2.StatusCode)
	}
}

func wsDial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial(%s) error: %v", url, err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func wsReadJSON(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage() error: %v", err)
	}
	var msg map[string]any
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("Unmarshal(%q) error: %v", data, err)
	}
	return msg
}

func TestWS_ReplaysLastPositionOnConnect(t *testing.T) {
	hub := NewHub(4)
	hub.Publish([]byte(`{"type":"gps","latitude":1.5,"longitude":2.5}`), true)

	srv := httptest.NewServer(Handler(NewStatus(), hub))
	defer srv.Close()

	conn := wsDial(t, srv)
	msg := wsReadJSON(t, conn)
	if msg["type"] != "gps" || msg["latitude"] != 1.5 {
		t.Fatalf("initial state=%v", msg)
	}
}

func TestWS_PingAnsweredWithPong(t *testing.T) {
	srv := httptest.NewServer(Handler(NewStatus(), NewHub(4)))
	defer srv.Close()

	conn := wsDial(t, srv)
	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"ping"}`)); err != nil {
		t.Fatalf("WriteMessage() error: %v", err)
	}
	msg := wsReadJSON(t, conn)
	if msg["type"] != "pong" {
		t.Fatalf("reply=%v want pong", msg)
	}
}

func TestWS_HubPublishReachesClient(t *testing.T) {
	hub := NewHub(4)
	srv := httptest.NewServer(Handler(NewStatus(), hub))
	defer srv.Close()

	conn := wsDial(t, srv)
	// Give the subscription a moment to register before publishing.
	waitForClients(t, hub, 1)

	hub.Publish([]byte(`{"type":"gps","latitude":3.25,"longitude":4.75}`), true)
	msg := wsReadJSON(t, conn)
	if msg["latitude"] != 3.25 {
		t.Fatalf("message=%v", msg)
	}
}

func TestWS_ClientMessageRebroadcast(t *testing.T) {
	hub := NewHub(4)
	srv := httptest.NewServer(Handler(NewStatus(), hub))
	defer srv.Close()

	sender := wsDial(t, srv)
	receiver := wsDial(t, srv)
	waitForClients(t, hub, 2)

	if err := sender.WriteMessage(websocket.TextMessage, []byte(`{"type":"note","text":"hi"}`)); err != nil {
		t.Fatalf("WriteMessage() error: %v", err)
	}

	// Both clients see the rebroadcast, the sender included.
	for _, conn := range []*websocket.Conn{receiver, sender} {
		msg := wsReadJSON(t, conn)
		if msg["type"] != "note" || msg["text"] != "hi" {
			t.Fatalf("rebroadcast=%v", msg)
		}
	}
}

func waitForClients(t *testing.T, hub *Hub, n int) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for hub.Clients() < n {
		if time.Now().After(deadline) {
			t.Fatalf("clients=%d never reached %d", hub.Clients(), n)
		}
		time.Sleep(5 * time.Millisecond)
	}
}
