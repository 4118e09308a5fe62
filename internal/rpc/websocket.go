package rpc

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/LeJamon/goSwapd/internal/core/swap"
	"github.com/LeJamon/goSwapd/internal/rpc/rpc_types"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	// DefaultSendQueue bounds the messages buffered per subscriber
	DefaultSendQueue = 256

	readLimit    = 64 * 1024
	pongWait     = 60 * time.Second
	pingInterval = 54 * time.Second
	writeWait    = 10 * time.Second
)

// Authenticator identifies the caller of a stream request.
type Authenticator func(r *http.Request) (*rpc_types.RpcContext, *rpc_types.RpcError)

// EventHub streams lifecycle events to websocket subscribers. It is an
// engine event sink: Publish never blocks, and a subscriber whose queue is
// full is disconnected. Only authenticated callers may subscribe; the admin
// sees every offer, anyone else only offers of their own account.
type EventHub struct {
	upgrader  websocket.Upgrader
	queueSize int
	log       *zap.Logger
	auth      Authenticator

	mu          sync.RWMutex
	connections map[string]*WebSocketConnection
}

var _ swap.EventSink = (*EventHub)(nil)

// WebSocketConnection represents a single subscriber
type WebSocketConnection struct {
	ID          string
	conn        *websocket.Conn
	sendChannel chan []byte
	ctx         context.Context
	cancel      context.CancelFunc
	closeOnce   sync.Once

	account string
	admin   bool

	mu sync.RWMutex
	// accounts filters the stream; empty means every event for the admin
	// and none for anyone else
	accounts map[string]bool
}

// NewEventHub creates a hub. queueSize <= 0 selects DefaultSendQueue.
func NewEventHub(queueSize int, log *zap.Logger) *EventHub {
	if queueSize <= 0 {
		queueSize = DefaultSendQueue
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &EventHub{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		queueSize:   queueSize,
		log:         log.Named("events"),
		connections: make(map[string]*WebSocketConnection),
	}
}

// Authenticate sets how stream callers are identified. A hub without an
// authenticator refuses every subscriber.
func (h *EventHub) Authenticate(fn Authenticator) {
	h.auth = fn
}

// ServeHTTP upgrades the request. Repeated "account" query parameters
// preset the subscriber's filter; without any, a non-admin caller follows
// its own account.
func (h *EventHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.auth == nil {
		http.Error(w, "stream disabled", http.StatusForbidden)
		return
	}
	caller, rpcErr := h.auth(r)
	if rpcErr != nil {
		http.Error(w, rpcErr.Error(), http.StatusForbidden)
		return
	}
	if caller.Role == rpc_types.RoleGuest {
		http.Error(w, "credentials required", http.StatusUnauthorized)
		return
	}

	admin := caller.Role >= rpc_types.RoleAdmin
	accounts := make(map[string]bool)
	for _, a := range r.URL.Query()["account"] {
		if a == "" {
			continue
		}
		if !admin && a != caller.Account {
			http.Error(w, "cannot follow account "+a, http.StatusForbidden)
			return
		}
		accounts[a] = true
	}
	if !admin {
		accounts[caller.Account] = true
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Debug("WebSocket upgrade failed", zap.Error(err))
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	wsConn := &WebSocketConnection{
		ID:          uuid.NewString(),
		conn:        conn,
		sendChannel: make(chan []byte, h.queueSize),
		ctx:         ctx,
		cancel:      cancel,
		account:     caller.Account,
		admin:       admin,
		accounts:    accounts,
	}

	h.mu.Lock()
	h.connections[wsConn.ID] = wsConn
	h.mu.Unlock()
	h.log.Debug("Subscriber connected",
		zap.String("conn", wsConn.ID),
		zap.String("account", wsConn.account),
		zap.Int("accounts", len(wsConn.accounts)))

	go h.handleConnection(wsConn)
	go h.handleSend(wsConn)
}

// Publish implements swap.EventSink
func (h *EventHub) Publish(ev swap.Event) {
	data, err := json.Marshal(rpc_types.StreamMessage{Type: "offerEvent", Event: ev})
	if err != nil {
		h.log.Error("Failed to marshal event", zap.Error(err))
		return
	}

	var slow []*WebSocketConnection
	h.mu.RLock()
	for _, conn := range h.connections {
		if !conn.wants(ev) {
			continue
		}
		select {
		case conn.sendChannel <- data:
		default:
			slow = append(slow, conn)
		}
	}
	h.mu.RUnlock()

	for _, conn := range slow {
		h.log.Warn("Subscriber too slow, disconnecting", zap.String("conn", conn.ID))
		h.closeConnection(conn)
	}
}

// ConnectionCount returns the number of live subscribers
func (h *EventHub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.connections)
}

// Close disconnects every subscriber
func (h *EventHub) Close() {
	h.mu.RLock()
	conns := make([]*WebSocketConnection, 0, len(h.connections))
	for _, c := range h.connections {
		conns = append(conns, c)
	}
	h.mu.RUnlock()
	for _, c := range conns {
		h.closeConnection(c)
	}
}

func (c *WebSocketConnection) wants(ev swap.Event) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.admin {
		return c.accounts[c.account] && ev.Concerns(c.account)
	}
	if len(c.accounts) == 0 {
		return true
	}
	for a := range c.accounts {
		if ev.Concerns(a) {
			return true
		}
	}
	return false
}

// handleConnection reads control messages until the peer goes away
func (h *EventHub) handleConnection(wsConn *WebSocketConnection) {
	defer h.closeConnection(wsConn)

	wsConn.conn.SetReadLimit(readLimit)
	wsConn.conn.SetReadDeadline(time.Now().Add(pongWait))
	wsConn.conn.SetPongHandler(func(string) error {
		wsConn.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := wsConn.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.Debug("WebSocket read failed", zap.String("conn", wsConn.ID), zap.Error(err))
			}
			return
		}
		h.handleMessage(wsConn, message)
	}
}

// handleSend writes queued messages and keeps the connection alive
func (h *EventHub) handleSend(wsConn *WebSocketConnection) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-wsConn.ctx.Done():
			return
		case <-ticker.C:
			wsConn.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := wsConn.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				h.closeConnection(wsConn)
				return
			}
		case message := <-wsConn.sendChannel:
			wsConn.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := wsConn.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				h.log.Debug("WebSocket send failed", zap.String("conn", wsConn.ID), zap.Error(err))
				h.closeConnection(wsConn)
				return
			}
		}
	}
}

// handleMessage processes subscribe and unsubscribe commands, which add
// accounts to or remove them from the filter
func (h *EventHub) handleMessage(wsConn *WebSocketConnection, message []byte) {
	var cmd rpc_types.WebSocketCommand
	if err := json.Unmarshal(message, &cmd); err != nil {
		h.sendResponse(wsConn, rpc_types.WebSocketResponse{
			Type:   "response",
			Status: "error",
			Error:  rpc_types.RpcErrorInvalidParams("Invalid JSON: " + err.Error()),
		})
		return
	}

	response := rpc_types.WebSocketResponse{Type: "response", ID: cmd.ID, Status: "success"}
	if (cmd.Command == "subscribe" || cmd.Command == "unsubscribe") && !wsConn.mayFollow(cmd.Accounts) {
		response.Status = "error"
		response.Error = rpc_types.RpcErrorForbidden()
		h.sendResponse(wsConn, response)
		return
	}
	switch cmd.Command {
	case "subscribe":
		wsConn.mu.Lock()
		for _, a := range cmd.Accounts {
			wsConn.accounts[a] = true
		}
		wsConn.mu.Unlock()
		response.Result = map[string]interface{}{"accounts": wsConn.filter()}
	case "unsubscribe":
		wsConn.mu.Lock()
		for _, a := range cmd.Accounts {
			delete(wsConn.accounts, a)
		}
		wsConn.mu.Unlock()
		response.Result = map[string]interface{}{"accounts": wsConn.filter()}
	case "":
		response.Status = "error"
		response.Error = rpc_types.RpcErrorMissingCommand()
	default:
		response.Status = "error"
		response.Error = rpc_types.RpcErrorMethodNotFound(cmd.Command)
	}
	h.sendResponse(wsConn, response)
}

// mayFollow reports whether the subscriber may change its filter for
// accounts.
func (c *WebSocketConnection) mayFollow(accounts []string) bool {
	if c.admin {
		return true
	}
	for _, a := range accounts {
		if a != c.account {
			return false
		}
	}
	return true
}

func (c *WebSocketConnection) filter() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.accounts))
	for a := range c.accounts {
		out = append(out, a)
	}
	return out
}

func (h *EventHub) sendResponse(wsConn *WebSocketConnection, response rpc_types.WebSocketResponse) {
	data, err := json.Marshal(response)
	if err != nil {
		h.log.Error("Failed to marshal WebSocket response", zap.Error(err))
		return
	}

	select {
	case wsConn.sendChannel <- data:
	case <-wsConn.ctx.Done():
	default:
		h.log.Warn("WebSocket send channel full, closing connection", zap.String("conn", wsConn.ID))
		h.closeConnection(wsConn)
	}
}

// closeConnection closes a subscriber once
func (h *EventHub) closeConnection(wsConn *WebSocketConnection) {
	wsConn.closeOnce.Do(func() {
		wsConn.cancel()

		h.mu.Lock()
		delete(h.connections, wsConn.ID)
		h.mu.Unlock()

		wsConn.conn.Close()
		h.log.Debug("Subscriber disconnected", zap.String("conn", wsConn.ID))
	})
}
