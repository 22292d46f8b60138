package ws

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"gigboard_backend/internal/logger"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBuffer     = 64
)

type IncomingWSMessage struct {
	Action string          `json:"action"`
	Data   json.RawMessage `json:"data,omitempty"`
}

type Client struct {
	UserID  string
	Conn    *websocket.Conn
	Send    chan any
	Manager *WebSocketManager
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// SetAllowedOrigins ограничивает Origin для апгрейда; пустой список - любой
func SetAllowedOrigins(origins []string) {
	if len(origins) == 0 {
		upgrader.CheckOrigin = func(r *http.Request) bool { return true }
		return
	}
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		allowed[o] = true
	}
	upgrader.CheckOrigin = func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || allowed[origin]
	}
}

// ServeWS апгрейдит соединение и подписывает его на события пользователя
func ServeWS(manager *WebSocketManager, w http.ResponseWriter, r *http.Request, userID string) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.CtxWithError(r.Context(), "WebSocket upgrade error", err)
		return
	}

	client := &Client{
		UserID:  userID,
		Conn:    conn,
		Send:    make(chan any, sendBuffer),
		Manager: manager,
	}

	if !manager.Register(client) {
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}

func (c *Client) readPump() {
	defer func() {
		c.Manager.Unregister(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	_ = c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		return c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, msgBytes, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Warn("WebSocket read error", "user_id", c.UserID, "error", err.Error())
			}
			return
		}

		var msg IncomingWSMessage
		if err := json.Unmarshal(msgBytes, &msg); err != nil {
			logger.Debug("Failed to parse ws message", "user_id", c.UserID, "error", err.Error())
			continue
		}

		c.handleMessage(msg)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.Send:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteJSON(msg); err != nil {
				logger.Warn("WebSocket write error", "user_id", c.UserID, "error", err.Error())
				return
			}
		case <-ticker.C:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Клиент только слушает события; входящие сообщения - служебные
func (c *Client) handleMessage(msg IncomingWSMessage) {
	switch msg.Action {
	case "ping":
		select {
		case c.Send <- map[string]string{"type": "pong"}:
		default:
		}
	default:
		logger.Debug("Unknown ws action", "user_id", c.UserID, "action", msg.Action)
	}
}
