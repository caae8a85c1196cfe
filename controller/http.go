package main

import (
	"context"
	"encoding/json"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nunomdc/frotad/controller/observability"
	"github.com/nunomdc/frotad/controller/store"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// newHTTPServer wires the status endpoints: liveness, metrics, a rate-limited
// debug snapshot, and the WebSocket fleet stream.
func newHTTPServer(addr string, world *store.World, hub *FleetHub) *http.Server {
	limiter := NewTokenBucketLimiter(2, 5)
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	mux.Handle("/metrics", promhttp.Handler())

	mux.HandleFunc("/debug/snapshot", func(w http.ResponseWriter, r *http.Request) {
		key, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			key = r.RemoteAddr
		}
		if !limiter.Allow(key) {
			observability.SnapshotRateLimited.Inc()
			http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(world.Snapshot())
	})

	mux.HandleFunc("/ws/fleet", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("WebSocket upgrade failed: %v", err)
			return
		}
		hub.Register(conn)
		// Read pump: discard inbound frames, unregister on error.
		go func() {
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					hub.Unregister(conn)
					return
				}
			}
		}()
	})

	return &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
}

// serveHTTP runs the status server until ctx is cancelled. A bind failure is
// logged, not fatal: the pipes are the real service surface.
func serveHTTP(ctx context.Context, srv *http.Server) {
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	log.Printf("[CONTROLADOR] Servidor HTTP em %s", srv.Addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Printf("[CONTROLADOR] Servidor HTTP falhou: %v", err)
	}
}
