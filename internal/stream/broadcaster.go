// Package stream pushes committed pool events to websocket subscribers.
package stream

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"token-launchpad/internal/domain"
	"token-launchpad/internal/observability"
)

const (
	writeWait    = 5 * time.Second
	clientBuffer = 64 // queued messages per client before it is dropped
)

// client is one subscriber. Its writer goroutine owns conn writes and
// closes conn once send is closed.
type client struct {
	conn *websocket.Conn
	pool string // "" for all pools
	send chan []byte
}

// CandleBroadcaster sends every event carrying a candle to websocket clients.
// Clients connecting with ?pool=<id> only receive that pool's events.
// Publish never blocks on a client; one that falls clientBuffer messages
// behind is disconnected.
type CandleBroadcaster struct {
	clients  map[*client]struct{}
	mu       sync.Mutex
	upgrader websocket.Upgrader
	logger   *log.Logger
}

// NewCandleBroadcaster creates a broadcaster. A nil logger logs to stdout.
func NewCandleBroadcaster(logger *log.Logger) *CandleBroadcaster {
	if logger == nil {
		logger = log.New(os.Stdout, "[stream] ", log.LstdFlags|log.Lshortfile)
	}
	return &CandleBroadcaster{
		clients:  make(map[*client]struct{}),
		upgrader: websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }},
		logger:   logger,
	}
}

// Name identifies the broadcaster as an engine sink.
func (b *CandleBroadcaster) Name() string { return "websocket" }

// Publish queues ev for subscribed clients.
func (b *CandleBroadcaster) Publish(_ context.Context, ev domain.Event) error {
	if ev.Candle == nil {
		return nil
	}
	msg, err := json.Marshal(ev)
	if err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for c := range b.clients {
		if c.pool != "" && c.pool != ev.Pool {
			continue
		}
		select {
		case c.send <- msg:
		default:
			b.logger.Printf("dropping websocket client %s: %d messages behind", c.addr(), cap(c.send))
			observability.RecordStreamDropped()
			b.removeLocked(c)
			if c.conn != nil {
				c.conn.Close() // fails the writer's pending write
			}
		}
	}
	return nil
}

func (c *client) addr() string {
	if c.conn == nil {
		return "?"
	}
	return c.conn.RemoteAddr().String()
}

func (b *CandleBroadcaster) add(c *client) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.clients[c] = struct{}{}
	observability.UpdateStreamClients(len(b.clients))
}

func (b *CandleBroadcaster) remove(c *client) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.removeLocked(c)
}

// removeLocked unregisters c and stops its writer. Safe to call twice.
func (b *CandleBroadcaster) removeLocked(c *client) {
	if _, ok := b.clients[c]; !ok {
		return
	}
	delete(b.clients, c)
	close(c.send)
	observability.UpdateStreamClients(len(b.clients))
}

func (b *CandleBroadcaster) writeLoop(c *client) {
	defer c.conn.Close()
	for msg := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			b.logger.Printf("websocket write error: %v", err)
			b.remove(c)
			return
		}
	}
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
}

// ClientCount returns the number of connected clients.
func (b *CandleBroadcaster) ClientCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.clients)
}

// Handler returns an http.HandlerFunc to accept websocket connections.
func (b *CandleBroadcaster) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := b.upgrader.Upgrade(w, r, nil)
		if err != nil {
			b.logger.Printf("websocket upgrade error: %v", err)
			return
		}
		c := &client{conn: conn, pool: r.URL.Query().Get("pool"), send: make(chan []byte, clientBuffer)}
		b.add(c)
		go b.writeLoop(c)

		// Reads only detect the client going away.
		go func() {
			defer b.remove(c)
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()
	}
}

// Close disconnects every client.
func (b *CandleBroadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for c := range b.clients {
		b.removeLocked(c)
	}
}
