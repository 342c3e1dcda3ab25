package websocket

import (
	"net/http"
	"sync"

	"github.com/MohammedAlanizy/PatientPortal/internal/middleware"
	"github.com/MohammedAlanizy/PatientPortal/internal/model"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Browser clients connect cross-origin in dev
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Client represents a single connected WebSocket client
type Client struct {
	ID   uuid.UUID
	Role string // empty for guest (kiosk) connections
	Hub  *Hub
	Conn *websocket.Conn
	Send chan []byte
}

type broadcast struct {
	payload []byte
	roles   []string // nil means every client, guests included
}

// Hub maintains the set of active clients and fans push events out to them
type Hub struct {
	clients    map[*Client]bool
	send       chan broadcast
	register   chan *Client
	unregister chan *Client
	log        zerolog.Logger
	mu         sync.Mutex
}

// NewHub initializes a new WS Hub instance
func NewHub(log zerolog.Logger) *Hub {
	return &Hub{
		send:       make(chan broadcast),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[*Client]bool),
		log:        log,
	}
}

// Register attaches a client to the hub's dispatch loop
func (h *Hub) Register(c *Client) {
	h.register <- c
}

// BroadcastAll delivers a message to every connected client
func (h *Hub) BroadcastAll(payload []byte) {
	h.send <- broadcast{payload: payload}
}

// BroadcastToRoles delivers a message only to clients holding one of the
// given roles
func (h *Hub) BroadcastToRoles(payload []byte, roles ...string) {
	h.send <- broadcast{payload: payload, roles: roles}
}

func (b broadcast) wants(c *Client) bool {
	if b.roles == nil {
		return true
	}
	for _, role := range b.roles {
		if c.Role == role {
			return true
		}
	}
	return false
}

// Run starts the core dispatch loop for WebSocket events
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			h.log.Debug().Str("client", client.ID.String()).Str("role", client.Role).Msg("websocket client connected")
		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.Send)
				h.log.Debug().Str("client", client.ID.String()).Msg("websocket client disconnected")
			}
			h.mu.Unlock()
		case msg := <-h.send:
			h.mu.Lock()
			for client := range h.clients {
				if !msg.wants(client) {
					continue
				}
				select {
				case client.Send <- msg.payload:
				default:
					close(client.Send)
					delete(h.clients, client)
				}
			}
			h.mu.Unlock()
		}
	}
}

// writePump handles writing messages from the Hub to the WebSocket connection
func (c *Client) writePump() {
	defer func() {
		_ = c.Conn.Close()
	}()
	for message := range c.Send {
		if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
			return
		}
	}
	_ = c.Conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

// readPump pumps messages from the WebSocket connection to the hub
func (c *Client) readPump() {
	defer func() {
		c.Hub.unregister <- c
		_ = c.Conn.Close()
	}()
	for {
		// Reads only keep the connection alive; clients never send frames
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				c.Hub.log.Debug().Err(err).Msg("websocket read error")
			}
			break
		}
	}
}

// ServeWs handles websocket requests from the peer. The session token comes
// in as a query parameter; the guest sentinel is accepted so the public
// kiosk can receive counter updates without a staff session.
func ServeWs(hub *Hub, auth *middleware.Auth, c *gin.Context) {
	tokenString := c.Query("token")
	if tokenString == "" {
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	role := ""
	if tokenString != middleware.GuestToken {
		claims, err := auth.ParseToken(tokenString)
		if err != nil {
			hub.log.Debug().Err(err).Msg("websocket connection rejected: invalid token")
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		if !model.IsValidRole(claims.Role) {
			c.AbortWithStatus(http.StatusForbidden)
			return
		}
		role = claims.Role
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		hub.log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	client := &Client{ID: uuid.New(), Role: role, Hub: hub, Conn: conn, Send: make(chan []byte, 256)}
	hub.Register(client)

	go client.writePump()
	go client.readPump()
}
