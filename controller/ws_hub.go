package main

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nunomdc/frotad/controller/store"
)

const maxWSConnections = 50

// FleetHub manages WebSocket connections and broadcasts the fleet snapshot.
// Single broadcaster pattern prevents N duplicate tickers.
type FleetHub struct {
	world      *store.World
	clients    map[*websocket.Conn]struct{}
	register   chan *websocket.Conn
	unregister chan *websocket.Conn
	mu         sync.RWMutex
}

func NewFleetHub(world *store.World) *FleetHub {
	return &FleetHub{
		world:      world,
		clients:    make(map[*websocket.Conn]struct{}),
		register:   make(chan *websocket.Conn),
		unregister: make(chan *websocket.Conn),
	}
}

// Run starts the hub's main loop, broadcasting the snapshot once per second.
func (h *FleetHub) Run(ctx context.Context) {
	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			h.shutdown()
			return

		case conn := <-h.register:
			h.mu.Lock()
			if len(h.clients) >= maxWSConnections {
				h.mu.Unlock()
				conn.Close()
				log.Printf("WebSocket connection rejected: max connections (%d) reached", maxWSConnections)
				continue
			}
			h.clients[conn] = struct{}{}
			h.mu.Unlock()
			log.Printf("WebSocket client registered. Total: %d", h.ClientCount())

		case conn := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[conn]; ok {
				delete(h.clients, conn)
				conn.Close()
			}
			h.mu.Unlock()
			log.Printf("WebSocket client unregistered. Total: %d", h.ClientCount())

		case <-ticker.C:
			h.broadcastAll()
		}
	}
}

func (h *FleetHub) broadcastAll() {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if len(h.clients) == 0 {
		return
	}
	snap := h.world.Snapshot()

	for conn := range h.clients {
		// Write deadline prevents blocking on dead connections.
		conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
		if err := conn.WriteJSON(snap); err != nil {
			log.Printf("WebSocket write error: %v", err)
			go h.Unregister(conn)
		}
	}
}

func (h *FleetHub) shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()

	log.Printf("Shutting down WebSocket hub with %d clients", len(h.clients))
	for conn := range h.clients {
		conn.Close()
	}
	h.clients = make(map[*websocket.Conn]struct{})
}

// Register adds a new client connection.
func (h *FleetHub) Register(conn *websocket.Conn) {
	h.register <- conn
}

// Unregister removes a client connection.
func (h *FleetHub) Unregister(conn *websocket.Conn) {
	h.unregister <- conn
}

// ClientCount returns the number of connected clients.
func (h *FleetHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
