package relay

import (
	"context"
	"embed"
	"encoding/json"
	"net/http"
	"time"
)

//go:embed assets/index.html
var embeddedAssets embed.FS

// Handler builds the relay's HTTP surface: the map UI, the status API and
// the WebSocket endpoint.
func Handler(status *Status, hub *Hub) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/status", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.Header().Set("Allow", http.MethodGet)
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		snap := status.Snapshot(time.Now().UTC(), hub.Clients(), hub.LastPosition() != nil)
		b, err := json.MarshalIndent(snap, "", "  ")
		if err != nil {
			http.Error(w, "marshal failed", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(b)
		_, _ = w.Write([]byte("\n"))
	})

	mux.HandleFunc("/ws", wsHandler(hub))

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.Header().Set("Allow", http.MethodGet)
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if r.URL.Path != "/" && r.URL.Path != "/index.html" {
			http.NotFound(w, r)
			return
		}
		b, err := embeddedAssets.ReadFile("assets/index.html")
		if err != nil {
			http.Error(w, "ui unavailable", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Cache-Control", "no-store")
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write(b)
	})

	return mux
}

// Serve runs the HTTP server until ctx is cancelled.
func Serve(ctx context.Context, listenAddr string, status *Status, hub *Hub) error {
	srv := &http.Server{
		Addr:              listenAddr,
		Handler:           Handler(status, hub),
		ReadHeaderTimeout: 5 * time.Second,
		// No read/write timeouts: /ws connections are long-lived.
		IdleTimeout:    30 * time.Second,
		MaxHeaderBytes: 1 << 20, // 1 MiB
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}
