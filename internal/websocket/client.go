package websocket

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var (
	// ErrClientNotFound 客户端不存在
	ErrClientNotFound = errors.New("客户端不存在")
	// ErrSendBufferFull 发送缓冲区满
	ErrSendBufferFull = errors.New("发送缓冲区满")
)

const (
	// 写超时
	writeWait = 10 * time.Second
	// 读超时（pong间隔）
	pongWait = 60 * time.Second
	// ping周期，必须小于pongWait
	pingPeriod = (pongWait * 9) / 10
	// 最大消息大小
	maxMessageSize = 4096
	// 发送缓冲区大小
	sendBufferSize = 256
)

// Client WebSocket客户端连接
type Client struct {
	ID        string
	UserID    int64
	Community string
	Room      string
	Conn      *websocket.Conn
	Send      chan []byte
	Hub       *Hub
	logger    *zap.Logger
}

// NewClient 创建客户端连接
func NewClient(hub *Hub, conn *websocket.Conn, userID int64, community, room string, logger *zap.Logger) *Client {
	return &Client{
		ID:        uuid.New().String(),
		UserID:    userID,
		Community: community,
		Room:      room,
		Conn:      conn,
		Send:      make(chan []byte, sendBufferSize),
		Hub:       hub,
		logger:    logger,
	}
}

// Register 注册到Hub
func (c *Client) Register() {
	c.Hub.register <- c
}

// ReadPump 读取客户端消息
func (c *Client) ReadPump() {
	defer func() {
		c.Hub.unregister <- c
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Warn("WebSocket读取异常",
					zap.String("client_id", c.ID),
					zap.Error(err))
			}
			break
		}
		c.handleMessage(data)
	}
}

// WritePump 向客户端写消息
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Hub关闭了通道
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleMessage 处理客户端消息；连接是只收的事件流，客户端仅允许心跳
func (c *Client) handleMessage(data []byte) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		c.logger.Warn("无效的客户端消息",
			zap.String("client_id", c.ID),
			zap.Error(err))
		return
	}

	switch msg.Type {
	case MessageTypePing:
		pong := &Message{
			Type:      MessageTypePong,
			Timestamp: time.Now().Unix(),
			Data:      json.RawMessage(`{}`),
		}
		c.Hub.SendToClient(c.ID, pong)
	default:
		// 忽略其他消息
	}
}
