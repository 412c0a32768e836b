package ws

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins in development
	},
}

// Client is one connected websocket watcher. matchID 0 means the client
// follows the global feed.
type Client struct {
	conn    *websocket.Conn
	matchID uint32
	send    chan []byte
}

// Hub maintains the set of connected watchers, grouped by match.
type Hub struct {
	clients    map[*Client]struct{}
	rooms      map[uint32]map[*Client]struct{}
	register   chan *Client
	unregister chan *Client
	mu         sync.RWMutex
}

// NewHub creates a new Hub.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]struct{}),
		rooms:      make(map[uint32]map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

// Run processes client registrations until the process exits.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = struct{}{}
			if client.matchID != 0 {
				if _, exists := h.rooms[client.matchID]; !exists {
					h.rooms[client.matchID] = make(map[*Client]struct{})
				}
				h.rooms[client.matchID][client] = struct{}{}
			}
			h.mu.Unlock()
			log.Printf("[WS] Watcher connected (match %d)", client.matchID)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, exists := h.clients[client]; exists {
				delete(h.clients, client)
				if room, ok := h.rooms[client.matchID]; ok {
					delete(room, client)
					if len(room) == 0 {
						delete(h.rooms, client.matchID)
					}
				}
				close(client.send)
			}
			h.mu.Unlock()
		}
	}
}

// Broadcast sends a message to every client of one match and to all global
// feed watchers.
func (h *Hub) Broadcast(matchID uint32, message interface{}) {
	data, err := json.Marshal(message)
	if err != nil {
		log.Printf("[WS] Error marshaling message: %v", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.clients {
		if client.matchID != 0 && client.matchID != matchID {
			continue
		}
		select {
		case client.send <- data:
		default:
			log.Printf("[WS] Send buffer full for match %d watcher, dropping message", client.matchID)
		}
	}
}

func (c *Client) writePump(h *Hub) {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Printf("[WS] Write error: %v", err)
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump discards inbound frames; the feed is one-way. It exists to notice
// the close handshake and pong replies.
func (c *Client) readPump(h *Hub) {
	defer func() {
		h.unregister <- c
		c.conn.Close()
	}()
	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(90 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(90 * time.Second))
		return nil
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
