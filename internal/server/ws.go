package server

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ayusman/swingcoach/internal/analyzer"
)

const (
	// clientBuffer is how many results may queue for a slow client before
	// further results are dropped for it.
	clientBuffer = 32
	writeTimeout = 2 * time.Second
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

type feedClient struct {
	conn *websocket.Conn
	send chan []byte
}

// LiveFeed broadcasts every session result to WebSocket clients as a JSON text message.
type LiveFeed struct {
	clients map[*feedClient]bool
	latest  []byte
	mu      sync.RWMutex
}

// NewLiveFeed creates an empty LiveFeed. Feed it by subscribing Publish to a session.
func NewLiveFeed() *LiveFeed {
	return &LiveFeed{
		clients: make(map[*feedClient]bool),
	}
}

// Publish queues res for every connected client without blocking.
func (h *LiveFeed) Publish(res analyzer.Result) {
	msg, err := json.Marshal(res)
	if err != nil {
		log.Printf("live feed encode error: %v", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	h.latest = msg
	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			// Client is not keeping up; it catches up with the next result.
		}
	}
}

// Clients returns the number of connected clients.
func (h *LiveFeed) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ServeHTTP handles WebSocket upgrade requests.
func (h *LiveFeed) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade error: %v", err)
		return
	}
	defer conn.Close()

	c := &feedClient{conn: conn, send: make(chan []byte, clientBuffer)}

	h.mu.Lock()
	h.clients[c] = true
	if h.latest != nil {
		c.send <- h.latest
	}
	h.mu.Unlock()

	done := make(chan struct{})
	go h.writeLoop(c, done)

	defer func() {
		h.mu.Lock()
		delete(h.clients, c)
		h.mu.Unlock()
		close(done)
	}()

	// Keep connection alive by reading messages
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}

// writeLoop is the only writer on the connection.
func (h *LiveFeed) writeLoop(c *feedClient, done <-chan struct{}) {
	for {
		select {
		case <-done:
			return
		case msg := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				c.conn.Close()
				return
			}
		}
	}
}
