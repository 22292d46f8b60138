package ws

import (
	"context"
	"sync"

	"gigboard_backend/internal/logger"
	"gigboard_backend/internal/metrics"
)

// WebSocketManager - хаб соединений. У одного пользователя может быть
// несколько вкладок, поэтому клиенты сгруппированы по userID.
type WebSocketManager struct {
	clients    map[string]map[*Client]struct{}
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	mu         sync.RWMutex
}

func NewWebSocketManager() *WebSocketManager {
	return &WebSocketManager{
		clients:    make(map[string]map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

// Run обслуживает регистрацию клиентов до отмены контекста
func (manager *WebSocketManager) Run(ctx context.Context) {
	defer close(manager.done)

	for {
		select {
		case <-ctx.Done():
			manager.closeAll()
			return

		case client := <-manager.register:
			manager.mu.Lock()
			set, ok := manager.clients[client.UserID]
			if !ok {
				set = make(map[*Client]struct{})
				manager.clients[client.UserID] = set
			}
			set[client] = struct{}{}
			manager.mu.Unlock()
			metrics.WebsocketClients.Inc()
			logger.Debug("ws client registered", "user_id", client.UserID, "connections", len(set))

		case client := <-manager.unregister:
			manager.remove(client)
		}
	}
}

func (manager *WebSocketManager) remove(client *Client) {
	manager.mu.Lock()
	defer manager.mu.Unlock()

	set, ok := manager.clients[client.UserID]
	if !ok {
		return
	}
	if _, ok := set[client]; !ok {
		return
	}
	close(client.Send)
	delete(set, client)
	if len(set) == 0 {
		delete(manager.clients, client.UserID)
	}
	metrics.WebsocketClients.Dec()
	logger.Debug("ws client unregistered", "user_id", client.UserID)
}

func (manager *WebSocketManager) closeAll() {
	manager.mu.Lock()
	defer manager.mu.Unlock()

	for userID, set := range manager.clients {
		for client := range set {
			close(client.Send)
			metrics.WebsocketClients.Dec()
		}
		delete(manager.clients, userID)
	}
}

// Register/Unregister не блокируются навсегда после остановки хаба
func (manager *WebSocketManager) Register(client *Client) bool {
	select {
	case manager.register <- client:
		return true
	case <-manager.done:
		return false
	}
}

func (manager *WebSocketManager) Unregister(client *Client) {
	select {
	case manager.unregister <- client:
	case <-manager.done:
	}
}

// SendToUser отправляет сообщение во все соединения пользователя.
// Клиент с переполненной очередью отключается.
func (manager *WebSocketManager) SendToUser(userID string, message any) {
	manager.mu.RLock()
	defer manager.mu.RUnlock()

	for client := range manager.clients[userID] {
		select {
		case client.Send <- message:
		default:
			logger.Warn("ws send queue full, dropping client", "user_id", userID)
			go manager.Unregister(client)
		}
	}
}

// GetClientCount возвращает количество подключенных клиентов
func (manager *WebSocketManager) GetClientCount() int {
	manager.mu.RLock()
	defer manager.mu.RUnlock()

	n := 0
	for _, set := range manager.clients {
		n += len(set)
	}
	return n
}

// IsUserConnected проверяет, есть ли у пользователя открытые соединения
func (manager *WebSocketManager) IsUserConnected(userID string) bool {
	manager.mu.RLock()
	defer manager.mu.RUnlock()
	return len(manager.clients[userID]) > 0
}
