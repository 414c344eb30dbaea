package relay

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/martazahmad1/bus-track/internal/report"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The map page may be opened from file:// or another host.
	CheckOrigin: func(r *http.Request) bool { return true },
}

var pongMessage = []byte(`{"type":"pong"}`)

// wsHandler upgrades the connection, replays the last known position, and
// bridges the hub to the socket. Client messages are either ping keepalives
// (answered directly) or payloads rebroadcast to every other client.
func wsHandler(hub *Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("websocket upgrade failed: %v", err)
			return
		}
		defer func() { _ = conn.Close() }()

		id, sub := hub.Subscribe()
		defer hub.Unsubscribe(id)
		log.Printf("websocket client connected addr=%s clients=%d", conn.RemoteAddr(), hub.Clients())

		// One writer goroutine owns all writes; gorilla connections do not
		// allow concurrent writers.
		ctl := make(chan []byte, 1)
		writerDone := make(chan struct{})
		go func() {
			defer close(writerDone)
			for {
				select {
				case msg, ok := <-sub:
					if !ok {
						return
					}
					if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
						return
					}
				case msg := <-ctl:
					if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
						return
					}
				}
			}
		}()

		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				break
			}

			var msg map[string]any
			if err := json.Unmarshal(data, &msg); err != nil {
				log.Printf("websocket client sent invalid JSON addr=%s", conn.RemoteAddr())
				continue
			}

			t, _ := msg["type"].(string)
			if t == "ping" {
				select {
				case ctl <- pongMessage:
				default:
				}
				continue
			}

			hub.Publish(data, t == report.TypeGPS)
		}

		// Unblock and drain the writer before closing the socket.
		hub.Unsubscribe(id)
		<-writerDone
		log.Printf("websocket client disconnected addr=%s clients=%d", conn.RemoteAddr(), hub.Clients())
	}
}
