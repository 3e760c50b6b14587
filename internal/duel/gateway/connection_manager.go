package gateway

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/taskduel/taskduel/internal/challenge"
)

// MessageHandler consumes inbound traffic and disconnect notifications for
// registered connections.
type MessageHandler interface {
	HandleMessage(c *Connection, raw []byte)
	HandleDisconnect(c *Connection)
}

// ConnectionManager manages the WebSocket connections of live duels.
type ConnectionManager struct {
	// Connection groups keyed by duel ID.
	duelConnections map[uuid.UUID]map[*Connection]bool
	mu              sync.RWMutex

	upgrader websocket.Upgrader
	config   ConnectionConfig
	handler  MessageHandler

	broadcastCh chan BroadcastMessage
}

// Connection represents one participant's WebSocket connection.
type Connection struct {
	ID        string
	AccountID string
	DuelID    uuid.UUID
	Challenge *challenge.Challenge
	Conn      *websocket.Conn
	Send      chan []byte

	manager     *ConnectionManager
	ConnectedAt time.Time

	// sendMu guards Send against a close racing a broadcast.
	sendMu sync.Mutex
	closed bool
}

// trySend queues payload without blocking. It reports whether the payload was
// queued and whether the connection is already closed.
func (c *Connection) trySend(payload []byte) (sent, closed bool) {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if c.closed {
		return false, true
	}
	select {
	case c.Send <- payload:
		return true, false
	default:
		return false, false
	}
}

func (c *Connection) closeSend() {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.Send)
	}
}

// ConnectionConfig holds configuration for WebSocket connections.
type ConnectionConfig struct {
	WriteTimeout    time.Duration
	ReadTimeout     time.Duration
	PingInterval    time.Duration
	MaxMessageSize  int64
	ReadBufferSize  int
	WriteBufferSize int
	CheckOrigin     func(r *http.Request) bool
}

// BroadcastMessage is a payload destined for a duel's connection group.
type BroadcastMessage struct {
	DuelID  uuid.UUID
	Payload []byte
	// ExcludeAccount, when set, skips the sender's own connection.
	ExcludeAccount string
}

// DefaultConnectionConfig returns default WebSocket configuration.
func DefaultConnectionConfig() ConnectionConfig {
	return ConnectionConfig{
		WriteTimeout:    10 * time.Second,
		ReadTimeout:     60 * time.Second,
		PingInterval:    30 * time.Second,
		MaxMessageSize:  1024,
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			// Allow all origins in development - restrict in production
			return true
		},
	}
}

// NewConnectionManager creates a WebSocket connection manager that feeds
// inbound messages to handler.
func NewConnectionManager(config ConnectionConfig, handler MessageHandler) *ConnectionManager {
	return &ConnectionManager{
		duelConnections: make(map[uuid.UUID]map[*Connection]bool),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     config.CheckOrigin,
		},
		config:      config,
		handler:     handler,
		broadcastCh: make(chan BroadcastMessage, 256),
	}
}

// Start processes queued broadcasts until the context is cancelled.
func (cm *ConnectionManager) Start(ctx context.Context) {
	log.Info().Msg("connection manager started")

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("connection manager shutting down")
			return
		case message := <-cm.broadcastCh:
			cm.deliver(message)
		}
	}
}

// UpgradeConnection upgrades an HTTP request to a WebSocket connection bound
// to the challenge's duel group.
func (cm *ConnectionManager) UpgradeConnection(w http.ResponseWriter, r *http.Request, accountID string, ch *challenge.Challenge) error {
	conn, err := cm.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("failed to upgrade WebSocket connection")
		return fmt.Errorf("failed to upgrade connection: %w", err)
	}

	connection := &Connection{
		ID:          uuid.New().String(),
		AccountID:   accountID,
		DuelID:      ch.ID,
		Challenge:   ch,
		Conn:        conn,
		Send:        make(chan []byte, 256),
		manager:     cm,
		ConnectedAt: time.Now(),
	}

	cm.registerConnection(connection)

	go connection.writePump()
	go connection.readPump()

	log.Info().
		Str("connection_id", connection.ID).
		Str("account_id", accountID).
		Str("duel_id", ch.ID.String()).
		Msg("WebSocket connection established")

	return nil
}

func (cm *ConnectionManager) registerConnection(conn *Connection) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if cm.duelConnections[conn.DuelID] == nil {
		cm.duelConnections[conn.DuelID] = make(map[*Connection]bool)
	}
	cm.duelConnections[conn.DuelID][conn] = true

	log.Debug().
		Str("connection_id", conn.ID).
		Str("duel_id", conn.DuelID.String()).
		Int("group_size", len(cm.duelConnections[conn.DuelID])).
		Msg("connection registered")
}

func (cm *ConnectionManager) unregisterConnection(conn *Connection) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if connections, exists := cm.duelConnections[conn.DuelID]; exists {
		if _, exists := connections[conn]; exists {
			delete(connections, conn)
			conn.closeSend()

			if len(connections) == 0 {
				delete(cm.duelConnections, conn.DuelID)
			}

			log.Info().
				Str("connection_id", conn.ID).
				Str("account_id", conn.AccountID).
				Str("duel_id", conn.DuelID.String()).
				Msg("connection unregistered")
		}
	}
}

// Broadcast queues payload for every connection in the duel's group.
func (cm *ConnectionManager) Broadcast(duelID uuid.UUID, payload []byte) {
	cm.enqueue(BroadcastMessage{DuelID: duelID, Payload: payload})
}

// BroadcastExcept queues payload for every group member except the sender's
// own connection.
func (cm *ConnectionManager) BroadcastExcept(duelID uuid.UUID, excludeAccount string, payload []byte) {
	cm.enqueue(BroadcastMessage{DuelID: duelID, Payload: payload, ExcludeAccount: excludeAccount})
}

func (cm *ConnectionManager) enqueue(message BroadcastMessage) {
	select {
	case cm.broadcastCh <- message:
	default:
		log.Warn().Str("duel_id", message.DuelID.String()).Msg("broadcast channel full, dropping message")
	}
}

// deliver fans a broadcast out to its target connections.
func (cm *ConnectionManager) deliver(message BroadcastMessage) {
	cm.mu.RLock()
	connections, exists := cm.duelConnections[message.DuelID]
	if !exists {
		cm.mu.RUnlock()
		return
	}

	var targets []*Connection
	for conn := range connections {
		if message.ExcludeAccount != "" && conn.AccountID == message.ExcludeAccount {
			continue
		}
		targets = append(targets, conn)
	}
	cm.mu.RUnlock()

	for _, conn := range targets {
		sent, closed := conn.trySend(message.Payload)
		if sent || closed {
			continue
		}
		// Connection is slow/dead, close it.
		log.Warn().
			Str("connection_id", conn.ID).
			Str("account_id", conn.AccountID).
			Msg("connection send buffer full, closing connection")
		cm.unregisterConnection(conn)
		conn.Conn.Close()
	}
}

// CloseDuel unregisters and closes every connection in the duel's group. The
// close handshake flushes payloads already queued on each send channel.
func (cm *ConnectionManager) CloseDuel(duelID uuid.UUID) {
	cm.mu.Lock()
	connections := cm.duelConnections[duelID]
	var targets []*Connection
	for conn := range connections {
		targets = append(targets, conn)
	}
	cm.mu.Unlock()

	for _, conn := range targets {
		cm.unregisterConnection(conn)
	}
}

// ConnectionStats reports active duel groups and connection counts.
func (cm *ConnectionManager) ConnectionStats() (totalConnections, activeDuels int) {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	for _, connections := range cm.duelConnections {
		totalConnections += len(connections)
	}
	return totalConnections, len(cm.duelConnections)
}

// writePump sends queued payloads and pings to the WebSocket connection.
func (c *Connection) writePump() {
	ticker := time.NewTicker(c.manager.config.PingInterval)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
		c.manager.unregisterConnection(c)
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(c.manager.config.WriteTimeout))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Error().
					Err(err).
					Str("connection_id", c.ID).
					Msg("failed to write message to WebSocket")
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(c.manager.config.WriteTimeout))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Error().
					Err(err).
					Str("connection_id", c.ID).
					Msg("failed to send ping")
				return
			}
		}
	}
}

// readPump feeds inbound messages to the handler until the connection drops.
func (c *Connection) readPump() {
	defer func() {
		c.manager.handler.HandleDisconnect(c)
		c.manager.unregisterConnection(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(c.manager.config.MaxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(c.manager.config.ReadTimeout))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(c.manager.config.ReadTimeout))
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				log.Error().
					Err(err).
					Str("connection_id", c.ID).
					Msg("unexpected WebSocket close error")
			}
			break
		}

		c.manager.handler.HandleMessage(c, message)
		c.Conn.SetReadDeadline(time.Now().Add(c.manager.config.ReadTimeout))
	}
}
