// Package monitor is a read-only websocket status feed: peer count,
// tip height, and mining state, pushed to local observers. It is
// ambient observability, not part of the consensus core, and is
// disabled unless a caller wires it into an HTTP mux.
//
// Grounded on the teacher's internal/rpc/websocket.go WSHub: the same
// register/unregister/broadcast channel loop and per-client send
// buffer, generalized from peer/system events to a single periodic
// status snapshot.
package monitor

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/quantcoin/quantcoind/internal/logging"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Status is a snapshot of the node's current state, broadcast to
// every connected observer on each tick.
type Status struct {
	PeerCount  int   `json:"peer_count"`
	TipHeight  int   `json:"tip_height"`
	Mining     bool  `json:"mining"`
	Difficulty int   `json:"difficulty"`
	Timestamp  int64 `json:"timestamp"`
}

// Source supplies the fields a Status snapshot is built from. node
// and miner wiring satisfies this without either depending on monitor.
type Source interface {
	PeerCount() int
	TipHeight() int
	IsMining() bool
	Difficulty() int
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub runs the register/unregister/broadcast loop and periodically
// pulls a Status snapshot from its Source to broadcast.
type Hub struct {
	source Source

	clients    map[*client]bool
	register   chan *client
	unregister chan *client
	broadcast  chan []byte

	mu  sync.RWMutex
	log *logging.Logger
}

// NewHub builds a Hub that reports status pulled from source.
func NewHub(source Source) *Hub {
	return &Hub{
		source:     source,
		clients:    make(map[*client]bool),
		register:   make(chan *client),
		unregister: make(chan *client),
		broadcast:  make(chan []byte, 16),
		log:        logging.GetDefault().Component("monitor"),
	}
}

// Run drives the hub's event loop and periodic status tick until stop
// is closed. It is meant to run on its own goroutine for the life of
// the process.
func (h *Hub) Run(stop <-chan struct{}) {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = true
			h.mu.Unlock()
			h.log.Debug("status client connected", "clients", len(h.clients))

		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
			h.mu.Unlock()
			h.log.Debug("status client disconnected", "clients", len(h.clients))

		case data := <-h.broadcast:
			h.mu.RLock()
			for c := range h.clients {
				select {
				case c.send <- data:
				default:
					h.log.Warn("status client buffer full, dropping")
				}
			}
			h.mu.RUnlock()

		case now := <-ticker.C:
			status := Status{
				PeerCount:  h.source.PeerCount(),
				TipHeight:  h.source.TipHeight(),
				Mining:     h.source.IsMining(),
				Difficulty: h.source.Difficulty(),
				Timestamp:  now.Unix(),
			}
			data, err := json.Marshal(status)
			if err != nil {
				h.log.Error("failed to marshal status snapshot", "error", err)
				continue
			}
			select {
			case h.broadcast <- data:
			default:
			}
		}
	}
}

// ServeHTTP upgrades the request to a websocket and streams status
// snapshots to it until the connection closes.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Error("websocket upgrade failed", "error", err)
		return
	}

	c := &client{conn: conn, send: make(chan []byte, 8)}
	h.register <- c

	go h.writePump(c)
	go h.readPump(c)
}

// readPump drains and discards inbound frames; this feed is read-only
// but still needs to notice the peer closing the socket.
func (h *Hub) readPump(c *client) {
	defer func() {
		h.unregister <- c
		c.conn.Close()
	}()
	c.conn.SetReadLimit(512)
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(c *client) {
	defer c.conn.Close()
	for data := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
		if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			return
		}
	}
	c.conn.WriteMessage(websocket.CloseMessage, []byte{})
}
