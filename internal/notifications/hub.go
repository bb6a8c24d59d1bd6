package notifications

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"bizmatch/deal-engine-backend/internal/party"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 54 * time.Second
	maxMessageSize = 512
	sendBufferSize = 64
)

// Message is a deal event pushed to a connected client.
type Message struct {
	Type          string    `json:"type"`
	TransactionID uuid.UUID `json:"transaction_id"`
	ActivityType  string    `json:"activity_type"`
	Title         string    `json:"title"`
	Description   string    `json:"description"`
	CreatedAt     time.Time `json:"created_at"`
}

// Connection is one client's open WebSocket.
type Connection struct {
	ID     uuid.UUID
	UserID uuid.UUID
	conn   *websocket.Conn
	send   chan Message
}

// Hub routes deal events to the connections of the users they concern.
type Hub struct {
	mu          sync.RWMutex
	connections map[uuid.UUID]map[*Connection]bool
	upgrader    websocket.Upgrader
	logger      *zap.Logger
}

// NewHub creates a new WebSocket hub
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		connections: make(map[uuid.UUID]map[*Connection]bool),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		logger: logger,
	}
}

// RegisterRoutes registers the WebSocket endpoint. It sits inside the
// authenticated group so the caller identity is already resolved.
func (h *Hub) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/ws", h.handleConnection)
}

func (h *Hub) handleConnection(c *gin.Context) {
	caller, ok := party.FromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "caller not resolved"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("WebSocket upgrade failed", zap.Error(err))
		return
	}

	connection := &Connection{
		ID:     uuid.New(),
		UserID: caller.UserID,
		conn:   conn,
		send:   make(chan Message, sendBufferSize),
	}

	h.register(connection)
	go h.writePump(connection)
	go h.readPump(connection)
}

// Push delivers a message to every open connection of a user. Delivery is
// best effort: a slow client drops messages rather than blocking the deal
// engine.
func (h *Hub) Push(userID uuid.UUID, msg Message) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for conn := range h.connections[userID] {
		select {
		case conn.send <- msg:
		default:
			h.logger.Warn("Dropping notification for slow client",
				zap.String("user_id", userID.String()),
				zap.String("connection_id", conn.ID.String()))
		}
	}
}

// ConnectedUsers returns the number of users with at least one open
// connection.
func (h *Hub) ConnectedUsers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.connections)
}

func (h *Hub) register(conn *Connection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.connections[conn.UserID] == nil {
		h.connections[conn.UserID] = make(map[*Connection]bool)
	}
	h.connections[conn.UserID][conn] = true
}

func (h *Hub) unregister(conn *Connection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if conns, ok := h.connections[conn.UserID]; ok {
		if conns[conn] {
			delete(conns, conn)
			close(conn.send)
		}
		if len(conns) == 0 {
			delete(h.connections, conn.UserID)
		}
	}
}

func (h *Hub) readPump(conn *Connection) {
	defer func() {
		h.unregister(conn)
		conn.conn.Close()
	}()

	conn.conn.SetReadLimit(maxMessageSize)
	conn.conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.conn.SetPongHandler(func(string) error {
		conn.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := conn.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.Debug("WebSocket closed unexpectedly", zap.Error(err))
			}
			return
		}
	}
}

func (h *Hub) writePump(conn *Connection) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-conn.send:
			conn.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				conn.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.conn.WriteJSON(msg); err != nil {
				return
			}

		case <-ticker.C:
			conn.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
