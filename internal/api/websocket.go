package api

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"kaiju-arena/internal/combat"
)

const (
	// MaxWSConnectionsTotal is the maximum number of WebSocket connections allowed
	MaxWSConnectionsTotal = 500

	// MaxWSConnectionsPerIP is the maximum WebSocket connections per IP
	MaxWSConnectionsPerIP = 10

	writeWait = 5 * time.Second
)

// Message names sent to clients.
const (
	MsgCombatEvent = "combat:event"
	MsgRound       = "combat:round"
	MsgState       = "arena:state"
)

// wsClient tracks a WebSocket connection with its source IP
type wsClient struct {
	conn *websocket.Conn
	ip   string
}

// WebSocketHub fans combat events, round reports and arena snapshots out to
// connected clients.
type WebSocketHub struct {
	clients    map[*websocket.Conn]*wsClient
	broadcast  chan []byte
	register   chan *wsClient
	unregister chan *websocket.Conn
	done       chan struct{} // closed when Run returns
	mu         sync.RWMutex

	upgrader   websocket.Upgrader
	gate       *connGate
	trustProxy bool
	log        zerolog.Logger
}

// NewWebSocketHub creates a new hub with connection limiting
func NewWebSocketHub(origins *OriginChecker, trustProxy bool, logger zerolog.Logger) *WebSocketHub {
	if origins == nil {
		origins = NewOriginChecker(nil)
	}
	h := &WebSocketHub{
		clients:    make(map[*websocket.Conn]*wsClient),
		broadcast:  make(chan []byte, 256),
		register:   make(chan *wsClient),
		unregister: make(chan *websocket.Conn),
		done:       make(chan struct{}),
		gate:       newConnGate(MaxWSConnectionsTotal, MaxWSConnectionsPerIP),
		trustProxy: trustProxy,
		log:        logger.With().Str("component", "websocket").Logger(),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origins.Allowed(origin) {
				return true
			}
			h.log.Warn().Str("origin", origin).Msg("websocket connection rejected")
			RecordConnectionRejected("origin")
			return false
		},
	}
	return h
}

// Run serves registrations and broadcasts until ctx is done, then closes
// every connection.
func (h *WebSocketHub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for conn, client := range h.clients {
				h.gate.release(client.ip)
				conn.Close()
				delete(h.clients, conn)
			}
			h.mu.Unlock()
			UpdateWSConnections(0)
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.conn] = client
			count := len(h.clients)
			h.mu.Unlock()

			h.log.Debug().Str("ip", client.ip).Int("total", count).Msg("client connected")
			UpdateWSConnections(count)

		case conn := <-h.unregister:
			h.mu.Lock()
			h.drop(conn)
			count := len(h.clients)
			h.mu.Unlock()

			h.log.Debug().Int("remaining", count).Msg("client disconnected")
			UpdateWSConnections(count)

		case message := <-h.broadcast:
			h.mu.Lock()
			for conn := range h.clients {
				conn.SetWriteDeadline(time.Now().Add(writeWait))
				if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
					h.drop(conn)
				}
			}
			h.mu.Unlock()
			IncrementWSMessages()
		}
	}
}

// drop closes and forgets conn. Callers hold h.mu.
func (h *WebSocketHub) drop(conn *websocket.Conn) {
	if client, ok := h.clients[conn]; ok {
		h.gate.release(client.ip)
		delete(h.clients, conn)
		conn.Close()
	}
}

// Broadcast queues a message for all clients, dropping it when the queue is full.
func (h *WebSocketHub) Broadcast(event string, data interface{}) {
	jsonBytes, err := json.Marshal(map[string]interface{}{
		"event": event,
		"data":  data,
	})
	if err != nil {
		return
	}

	select {
	case h.broadcast <- jsonBytes:
	default:
		// Channel full, skip (backpressure)
	}
}

// EventSink forwards combat events to clients.
func (h *WebSocketHub) EventSink() combat.EventFunc {
	return func(e combat.Event) {
		if h.ClientCount() > 0 {
			h.Broadcast(MsgCombatEvent, e)
		}
	}
}

// PublishRound forwards a round report to clients.
func (h *WebSocketHub) PublishRound(r combat.RoundReport) {
	if h.ClientCount() > 0 {
		h.Broadcast(MsgRound, r)
	}
}

// ClientCount returns the number of connected clients
func (h *WebSocketHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// StartBroadcastLoop pushes the arena snapshot every interval while clients
// are connected and the snapshot changed.
func (h *WebSocketHub) StartBroadcastLoop(ctx context.Context, source func() *combat.Snapshot, interval time.Duration) {
	ticker := time.NewTicker(interval)

	go func() {
		defer ticker.Stop()
		var lastSeq uint64
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
			if h.ClientCount() == 0 {
				continue
			}
			snap := source()
			if snap == nil || snap.Sequence == lastSeq {
				continue
			}
			lastSeq = snap.Sequence
			h.Broadcast(MsgState, snap)
		}
	}()
}

// HandleWebSocket handles incoming WebSocket connections with DoS protection
func (h *WebSocketHub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	ip := clientIP(r, h.trustProxy)

	if reason := h.gate.acquire(ip); reason != "" {
		h.log.Warn().Str("ip", ip).Str("reason", reason).Msg("websocket rejected")
		RecordConnectionRejected(reason)
		code := http.StatusTooManyRequests
		if reason == "ws_total_limit" {
			code = http.StatusServiceUnavailable
		}
		http.Error(w, "Too many connections", code)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Debug().Err(err).Msg("websocket upgrade failed")
		h.gate.release(ip)
		return
	}

	select {
	case h.register <- &wsClient{conn: conn, ip: ip}:
	case <-h.done:
		h.gate.release(ip)
		conn.Close()
		return
	}

	// The feed is one-way; reads only detect disconnects.
	go func() {
		defer func() {
			select {
			case h.unregister <- conn:
			case <-h.done:
			}
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}
