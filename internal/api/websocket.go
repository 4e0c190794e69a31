package api

import (
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/ryzhenkov/countd/internal/domain"
	"github.com/ryzhenkov/countd/internal/eventbus"
	"github.com/ryzhenkov/countd/internal/logger"
	"github.com/ryzhenkov/countd/internal/timer"
)

// writeWait bounds how long a single send to a subscriber may take before
// the connection is considered broken and dropped.
const writeWait = 2 * time.Second

// getWebSocketUpgrader returns an upgrader with origin validation
// based on the COUNTD_CORS_ORIGIN environment variable
func getWebSocketUpgrader() websocket.Upgrader {
	corsOrigins := os.Getenv("COUNTD_CORS_ORIGIN")
	allowedOrigins := make(map[string]bool)
	if corsOrigins != "" && corsOrigins != "*" {
		for _, origin := range strings.Split(corsOrigins, ",") {
			allowedOrigins[strings.TrimSpace(origin)] = true
		}
	}

	return websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			if corsOrigins == "*" {
				return true
			}
			if corsOrigins == "" {
				// Same-origin check: origin should match host
				origin := r.Header.Get("Origin")
				if origin == "" {
					return true // No origin header = same-origin request
				}
				return strings.Contains(origin, r.Host)
			}
			return allowedOrigins[r.Header.Get("Origin")]
		},
	}
}

// WebSocketHub is the registry of live push subscribers. All connection
// writes happen on the run goroutine, so a broadcast pass, an immediate
// snapshot on register and connection teardown never interleave.
type WebSocketHub struct {
	clients    map[*websocket.Conn]bool
	broadcast  chan timer.Payload
	register   chan *websocket.Conn
	unregister chan *websocket.Conn
	shutdownCh chan struct{}
	mu         sync.Mutex
	wg         sync.WaitGroup
	timer      *timer.Timer
	eventBus   *eventbus.EventBus
	upgrader   websocket.Upgrader
}

// NewWebSocketHub creates the hub and starts its run loop. The timer is
// consulted for the immediate snapshot sent to each new subscriber.
func NewWebSocketHub(t *timer.Timer, eb *eventbus.EventBus) *WebSocketHub {
	h := &WebSocketHub{
		clients:    make(map[*websocket.Conn]bool),
		broadcast:  make(chan timer.Payload, 8),
		register:   make(chan *websocket.Conn),
		unregister: make(chan *websocket.Conn),
		shutdownCh: make(chan struct{}),
		timer:      t,
		eventBus:   eb,
		upgrader:   getWebSocketUpgrader(),
	}

	h.wg.Add(1)
	go h.run()
	return h
}

// Broadcast queues a payload for delivery to every subscriber. It never
// blocks the caller: if the hub is backed up the payload is dropped, since
// the next tick will carry fresher state anyway.
func (h *WebSocketHub) Broadcast(payload timer.Payload) {
	select {
	case h.broadcast <- payload:
	case <-h.shutdownCh:
	default:
		logger.Warnf("WebSocket hub busy, dropping broadcast")
	}
}

func (h *WebSocketHub) run() {
	defer h.wg.Done()

	for {
		select {
		case <-h.shutdownCh:
			h.closeAll()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			total := len(h.clients)
			h.mu.Unlock()
			logger.Debugf("WebSocket client connected (total: %d)", total)
			h.publishClientEvent(domain.ClientConnected, total)

			// Immediate snapshot, independent of the tick cycle
			if err := h.send(client, h.timer.Payload()); err != nil {
				logger.Debugf("Failed to send initial snapshot: %v", err)
				h.drop(client)
			}

		case client := <-h.unregister:
			h.drop(client)

		case payload := <-h.broadcast:
			// Iterate over a stable copy; the registry is never mutated
			// mid-pass. Failed connections are dropped afterward.
			h.mu.Lock()
			conns := make([]*websocket.Conn, 0, len(h.clients))
			for client := range h.clients {
				conns = append(conns, client)
			}
			h.mu.Unlock()

			var failed []*websocket.Conn
			for _, client := range conns {
				if err := h.send(client, payload); err != nil {
					logger.Debugf("WebSocket send failed: %v", err)
					failed = append(failed, client)
				}
			}
			for _, client := range failed {
				h.drop(client)
			}
		}
	}
}

// send writes one payload with a bounded deadline. Only called from the
// run goroutine.
func (h *WebSocketHub) send(client *websocket.Conn, payload timer.Payload) error {
	if err := client.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return client.WriteJSON(payload)
}

// drop removes a connection from the registry and closes it. Idempotent:
// dropping an already-absent connection is a no-op.
func (h *WebSocketHub) drop(client *websocket.Conn) {
	h.mu.Lock()
	_, ok := h.clients[client]
	if ok {
		delete(h.clients, client)
	}
	total := len(h.clients)
	h.mu.Unlock()

	if !ok {
		return
	}
	if err := client.Close(); err != nil {
		logger.Debugf("WebSocket close error: %v", err)
	}
	logger.Debugf("WebSocket client disconnected (total: %d)", total)
	h.publishClientEvent(domain.ClientDisconnected, total)
}

func (h *WebSocketHub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		if err := client.Close(); err != nil {
			logger.Debugf("WebSocket close error during shutdown: %v", err)
		}
		delete(h.clients, client)
	}
}

func (h *WebSocketHub) publishClientEvent(eventType domain.EventType, total int) {
	if h.eventBus == nil {
		return
	}
	h.eventBus.Publish(domain.Event{
		EventType: eventType,
		EventData: map[string]interface{}{"total": total},
	})
}

// HandleConnection upgrades the request and blocks reading the connection
// until the client goes away. Incoming data is discarded; the read loop
// exists only to detect disconnects.
func (h *WebSocketHub) HandleConnection(c *gin.Context) {
	ws, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Errorf("Failed to upgrade to WebSocket: %v", err)
		return
	}

	select {
	case h.register <- ws:
	case <-h.shutdownCh:
		ws.Close()
		return
	}

	defer func() {
		select {
		case h.unregister <- ws:
		case <-h.shutdownCh:
		}
	}()

	for {
		if _, _, err := ws.ReadMessage(); err != nil {
			break
		}
	}
}

// ClientCount returns the number of connected WebSocket clients
func (h *WebSocketHub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Shutdown stops the run loop and closes every connection.
func (h *WebSocketHub) Shutdown() {
	close(h.shutdownCh)
	h.wg.Wait()
}
