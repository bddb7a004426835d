package websocket

import (
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Hub WebSocket连接管理中心
// 连接按会话键（社区+房间）分组；引擎的事件经 Publish 进来，
// 广播给同一会话内的全部连接。
type Hub struct {
	// 客户端连接池
	clients   map[string]*Client
	clientsMu sync.RWMutex

	// 会话键到客户端的映射
	sessionClients map[string][]*Client
	sessionMu      sync.RWMutex

	// 注册/注销通道
	register   chan *Client
	unregister chan *Client

	// 关闭控制
	done     chan struct{}
	stopOnce sync.Once

	// 日志
	logger *zap.Logger
}

// Message WebSocket消息
type Message struct {
	Type      string          `json:"type"`
	Community string          `json:"community,omitempty"`
	Room      string          `json:"room,omitempty"`
	Data      json.RawMessage `json:"data"`
	Timestamp int64           `json:"timestamp"`
}

// 系统消息类型；游戏事件类型直接使用引擎的事件名
const (
	MessageTypeConnected = "connected"
	MessageTypePing      = "ping"
	MessageTypePong      = "pong"
	MessageTypeError     = "error"
)

// sessionKey 会话键的映射键表示
func sessionKey(community, room string) string {
	return community + "/" + room
}

// NewHub 创建Hub
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		clients:        make(map[string]*Client),
		sessionClients: make(map[string][]*Client),
		register:       make(chan *Client),
		unregister:     make(chan *Client),
		done:           make(chan struct{}),
		logger:         logger,
	}
}

// Run 运行Hub
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case <-h.done:
			return
		}
	}
}

// Stop 停止Hub
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.done) })
}

// Publish 实现引擎的事件出口：向会话内所有连接广播游戏事件
func (h *Hub) Publish(community, room, event string, data map[string]interface{}) {
	payload, err := json.Marshal(data)
	if err != nil {
		h.logger.Error("序列化事件数据失败",
			zap.String("event", event),
			zap.Error(err))
		return
	}

	msg := &Message{
		Type:      event,
		Community: community,
		Room:      room,
		Data:      payload,
		Timestamp: time.Now().Unix(),
	}
	h.broadcastToSession(sessionKey(community, room), msg)
}

// registerClient 注册客户端
func (h *Hub) registerClient(client *Client) {
	h.clientsMu.Lock()
	h.clients[client.ID] = client
	h.clientsMu.Unlock()

	key := sessionKey(client.Community, client.Room)
	h.sessionMu.Lock()
	h.sessionClients[key] = append(h.sessionClients[key], client)
	h.sessionMu.Unlock()

	h.logger.Info("WebSocket客户端连接",
		zap.String("client_id", client.ID),
		zap.Int64("user_id", client.UserID),
		zap.String("session", key))

	// 发送连接成功消息
	msg := &Message{
		Type:      MessageTypeConnected,
		Community: client.Community,
		Room:      client.Room,
		Timestamp: time.Now().Unix(),
		Data:      json.RawMessage(`{"message":"连接成功"}`),
	}
	h.SendToClient(client.ID, msg)
}

// unregisterClient 注销客户端
func (h *Hub) unregisterClient(client *Client) {
	h.clientsMu.Lock()
	if _, ok := h.clients[client.ID]; ok {
		delete(h.clients, client.ID)
		close(client.Send)
	}
	h.clientsMu.Unlock()

	key := sessionKey(client.Community, client.Room)
	h.sessionMu.Lock()
	clients := h.sessionClients[key]
	for i, c := range clients {
		if c.ID == client.ID {
			h.sessionClients[key] = append(clients[:i], clients[i+1:]...)
			break
		}
	}
	if len(h.sessionClients[key]) == 0 {
		delete(h.sessionClients, key)
	}
	h.sessionMu.Unlock()

	h.logger.Info("WebSocket客户端断开",
		zap.String("client_id", client.ID),
		zap.Int64("user_id", client.UserID),
		zap.String("session", key))
}

// broadcastToSession 向会话内的全部客户端广播
func (h *Hub) broadcastToSession(key string, message *Message) {
	data, err := json.Marshal(message)
	if err != nil {
		h.logger.Error("序列化消息失败", zap.Error(err))
		return
	}

	h.sessionMu.RLock()
	clients := append([]*Client(nil), h.sessionClients[key]...)
	h.sessionMu.RUnlock()

	for _, client := range clients {
		select {
		case client.Send <- data:
		default:
			// 发送缓冲区满，丢弃该客户端的这条消息
			h.logger.Warn("客户端发送缓冲区满",
				zap.String("client_id", client.ID),
				zap.String("session", key))
		}
	}
}

// SendToClient 发送消息给指定客户端
func (h *Hub) SendToClient(clientID string, message *Message) error {
	data, err := json.Marshal(message)
	if err != nil {
		return err
	}

	h.clientsMu.RLock()
	client, ok := h.clients[clientID]
	h.clientsMu.RUnlock()

	if !ok {
		return ErrClientNotFound
	}

	select {
	case client.Send <- data:
		return nil
	default:
		return ErrSendBufferFull
	}
}

// SessionClientCount 会话内的连接数
func (h *Hub) SessionClientCount(community, room string) int {
	h.sessionMu.RLock()
	defer h.sessionMu.RUnlock()
	return len(h.sessionClients[sessionKey(community, room)])
}
