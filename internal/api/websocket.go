package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/calvinwijaya/card-games-api/internal/events"
	"github.com/calvinwijaya/card-games-api/internal/store"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 30 * time.Second
	maxMessageSize = 4 * 1024
	sendBuffer     = 64
)

// Message represents a WebSocket message
type Message struct {
	Type   string `json:"type"`
	GameID string `json:"gameId,omitempty"`
	Data   any    `json:"data,omitempty"`
}

// Client represents a connected WebSocket client
type Client struct {
	id    string
	conn  *websocket.Conn
	send  chan []byte
	games map[string]bool
	hub   *Hub
}

type subscription struct {
	client *Client
	gameID string
	join   bool
}

// Hub relays game events to the clients watching each game
type Hub struct {
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	subscribe  chan subscription
	games      map[string]map[*Client]bool
	done       chan struct{}
	mu         sync.RWMutex
	upgrader   websocket.Upgrader
	logger     *slog.Logger
}

// NewHub creates a new WebSocket hub. With no allowed origins every origin
// is accepted.
func NewHub(logger *slog.Logger, allowedOrigins ...string) *Hub {
	if logger == nil {
		logger = slog.Default()
	}

	allowed := make(map[string]bool, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		if origin != "" {
			allowed[origin] = true
		}
	}

	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		subscribe:  make(chan subscription),
		games:      make(map[string]map[*Client]bool),
		done:       make(chan struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return len(allowed) == 0 || origin == "" || allowed[origin]
			},
		},
		logger: logger,
	}
}

// Run owns client registration until ctx is done
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			for gameID := range client.games {
				h.join(client, gameID)
			}
			h.mu.Unlock()

			h.deliver(client, Message{
				Type: "welcome",
				Data: map[string]any{"clientId": client.id, "games": sortedGames(client)},
			})

		case client := <-h.unregister:
			h.mu.Lock()
			h.remove(client)
			h.mu.Unlock()

		case sub := <-h.subscribe:
			h.mu.Lock()
			if h.clients[sub.client] {
				if sub.join {
					h.join(sub.client, sub.gameID)
				} else {
					h.leave(sub.client, sub.gameID)
				}
			}
			h.mu.Unlock()

			typ := "subscribed"
			if !sub.join {
				typ = "unsubscribed"
			}
			h.deliver(sub.client, Message{Type: typ, GameID: sub.gameID})

		case <-ctx.Done():
			h.mu.Lock()
			for client := range h.clients {
				h.remove(client)
			}
			h.mu.Unlock()
			return
		}
	}
}

// join and leave expect h.mu to be held
func (h *Hub) join(client *Client, gameID string) {
	if _, ok := h.games[gameID]; !ok {
		h.games[gameID] = make(map[*Client]bool)
	}
	h.games[gameID][client] = true
	client.games[gameID] = true
}

func (h *Hub) leave(client *Client, gameID string) {
	delete(client.games, gameID)
	if watchers := h.games[gameID]; watchers != nil {
		delete(watchers, client)
		if len(watchers) == 0 {
			delete(h.games, gameID)
		}
	}
}

func (h *Hub) remove(client *Client) {
	if _, ok := h.clients[client]; !ok {
		return
	}
	delete(h.clients, client)
	for gameID := range client.games {
		h.leave(client, gameID)
	}
	close(client.send)
}

// Watchers returns how many clients follow gameID
func (h *Hub) Watchers(gameID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.games[gameID])
}

// Publish implements events.Notifier by broadcasting to the game's watchers
func (h *Hub) Publish(_ context.Context, event events.Event) error {
	h.BroadcastToGame(event.GameID, Message{
		Type:   string(event.Type),
		GameID: event.GameID,
		Data:   event,
	})
	return nil
}

// BroadcastToGame sends a message to all clients watching a game
func (h *Hub) BroadcastToGame(gameID string, message Message) {
	data, err := json.Marshal(message)
	if err != nil {
		h.logger.Error("error marshaling message", "gameId", gameID, "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.games[gameID] {
		select {
		case client.send <- data:
		default:
			h.logger.Warn("dropping message for slow client", "clientId", client.id, "gameId", gameID)
		}
	}
}

func (h *Hub) deliver(client *Client, message Message) {
	data, err := json.Marshal(message)
	if err != nil {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	if !h.clients[client] {
		return
	}
	select {
	case client.send <- data:
	default:
	}
}

// WebSocketHandler upgrades the connection and subscribes it to every
// valid gameId query parameter
func (h *Hub) WebSocketHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	client := &Client{
		id:    uuid.NewString(),
		conn:  conn,
		send:  make(chan []byte, sendBuffer),
		games: make(map[string]bool),
		hub:   h,
	}
	for _, gameID := range r.URL.Query()["gameId"] {
		if store.IsValidID(gameID) {
			client.games[gameID] = true
		}
	}

	h.logger.Debug("websocket client connected", "clientId", client.id, "games", len(client.games))

	go client.writePump()
	go client.readPump()

	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
	}
}

// readPump handles subscribe/unsubscribe requests from the client
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.Warn("websocket error", "clientId", c.id, "error", err)
			}
			return
		}

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil || !store.IsValidID(msg.GameID) {
			c.hub.deliver(c, Message{Type: "error", Data: "expected {type: subscribe|unsubscribe, gameId}"})
			continue
		}

		var sub subscription
		switch msg.Type {
		case "subscribe":
			sub = subscription{client: c, gameID: msg.GameID, join: true}
		case "unsubscribe":
			sub = subscription{client: c, gameID: msg.GameID, join: false}
		default:
			c.hub.deliver(c, Message{Type: "error", Data: "unknown message type " + msg.Type})
			continue
		}

		select {
		case c.hub.subscribe <- sub:
		case <-c.hub.done:
			return
		}
	}
}

// writePump pumps messages from the hub to the WebSocket connection
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func sortedGames(c *Client) []string {
	games := make([]string, 0, len(c.games))
	for gameID := range c.games {
		games = append(games, gameID)
	}
	sort.Strings(games)
	return games
}
