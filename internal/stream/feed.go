// Package stream broadcasts committed ledger events to WebSocket
// subscribers. The feed is a sink: it only ever sees events from
// operations that committed, so subscribers cannot observe a state
// that was later rolled back.
package stream

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/chowpashing/flash-loan-project/internal/domain"
)

// FeedConfig configures WebSocket feed behavior.
type FeedConfig struct {
	// PingInterval is interval for sending ping frames.
	PingInterval time.Duration
	// WriteTimeout is timeout for writing messages.
	WriteTimeout time.Duration
	// SendBuffer is the per-client outgoing queue size. A client that
	// falls behind by more than this is disconnected.
	SendBuffer int
}

// DefaultFeedConfig returns default feed configuration.
func DefaultFeedConfig() FeedConfig {
	return FeedConfig{
		PingInterval: 30 * time.Second,
		WriteTimeout: 10 * time.Second,
		SendBuffer:   256,
	}
}

// EventMessage is the JSON frame delivered to subscribers.
type EventMessage struct {
	EventID   string `json:"event_id"`
	Kind      string `json:"kind"`
	Address   string `json:"address"`
	Actor     string `json:"actor,omitempty"`
	Pool      string `json:"pool,omitempty"`
	Amount    uint64 `json:"amount"`
	AmountOut uint64 `json:"amount_out,omitempty"`
	Fee       uint64 `json:"fee,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

// Feed fans committed ledger events out to connected WebSocket clients.
type Feed struct {
	config   FeedConfig
	logger   *log.Logger
	upgrader websocket.Upgrader

	clients   map[*client]struct{}
	clientsMu sync.Mutex

	closed atomic.Bool
	wg     sync.WaitGroup
}

type client struct {
	conn *websocket.Conn
	send chan []byte
	done chan struct{}
	once sync.Once
}

// NewFeed creates a feed. A nil logger falls back to log.Default().
func NewFeed(config *FeedConfig, logger *log.Logger) *Feed {
	cfg := DefaultFeedConfig()
	if config != nil {
		cfg = *config
	}
	if logger == nil {
		logger = log.Default()
	}

	return &Feed{
		config: cfg,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		clients: make(map[*client]struct{}),
	}
}

// Publish implements ledger.Sink. Slow clients are dropped rather than
// blocking the publisher.
func (f *Feed) Publish(events []domain.LedgerEvent) {
	if f.closed.Load() || len(events) == 0 {
		return
	}

	frames := make([][]byte, 0, len(events))
	for _, e := range events {
		data, err := json.Marshal(EventMessage{
			EventID:   e.EventID,
			Kind:      e.Kind,
			Address:   e.Address,
			Actor:     e.Actor,
			Pool:      e.Pool,
			Amount:    e.Amount,
			AmountOut: e.AmountOut,
			Fee:       e.Fee,
			Timestamp: e.Timestamp,
		})
		if err != nil {
			f.logger.Printf("marshal event %s: %v", e.EventID, err)
			continue
		}
		frames = append(frames, data)
	}

	f.clientsMu.Lock()
	defer f.clientsMu.Unlock()

	for c := range f.clients {
		if !c.enqueue(frames) {
			// Client queue full, cut it loose.
			delete(f.clients, c)
			c.close()
			f.logger.Printf("dropped slow websocket client")
		}
	}
}

// enqueue queues frames without blocking. Returns false if the client
// cannot keep up.
func (c *client) enqueue(frames [][]byte) bool {
	for _, frame := range frames {
		select {
		case c.send <- frame:
		default:
			return false
		}
	}
	return true
}

// HandleWS upgrades an HTTP request and streams events until the client
// disconnects or the feed shuts down.
func (f *Feed) HandleWS(w http.ResponseWriter, r *http.Request) {
	if f.closed.Load() {
		http.Error(w, "feed closed", http.StatusServiceUnavailable)
		return
	}

	conn, err := f.upgrader.Upgrade(w, r, nil)
	if err != nil {
		f.logger.Printf("websocket upgrade: %v", err)
		return
	}

	c := &client{
		conn: conn,
		send: make(chan []byte, f.config.SendBuffer),
		done: make(chan struct{}),
	}

	f.clientsMu.Lock()
	if f.closed.Load() {
		f.clientsMu.Unlock()
		conn.Close()
		return
	}
	f.clients[c] = struct{}{}
	f.clientsMu.Unlock()

	f.wg.Add(2)
	go f.writeLoop(c)
	go f.readLoop(c)
}

// ClientCount returns the number of connected clients.
func (f *Feed) ClientCount() int {
	f.clientsMu.Lock()
	defer f.clientsMu.Unlock()
	return len(f.clients)
}

// Close disconnects all clients and stops the feed.
func (f *Feed) Close() error {
	if f.closed.Swap(true) {
		return nil // Already closed
	}

	f.clientsMu.Lock()
	for c := range f.clients {
		delete(f.clients, c)
		c.close()
	}
	f.clientsMu.Unlock()

	f.wg.Wait()
	return nil
}

// writeLoop drains the client queue and keeps the connection alive with pings.
func (f *Feed) writeLoop(c *client) {
	defer f.wg.Done()
	defer c.conn.Close()

	ticker := time.NewTicker(f.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(f.config.WriteTimeout))
			c.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		case frame := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(f.config.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				f.remove(c)
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(f.config.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				f.remove(c)
				return
			}
		}
	}
}

// readLoop discards inbound frames and detects disconnects.
func (f *Feed) readLoop(c *client) {
	defer f.wg.Done()

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			f.remove(c)
			return
		}
	}
}

func (f *Feed) remove(c *client) {
	f.clientsMu.Lock()
	delete(f.clients, c)
	f.clientsMu.Unlock()
	c.close()
}

func (c *client) close() {
	c.once.Do(func() { close(c.done) })
}
