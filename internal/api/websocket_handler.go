package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/MugzLord/WIB/internal/errors"
	"github.com/MugzLord/WIB/internal/middleware"
	ws "github.com/MugzLord/WIB/internal/websocket"
)

// WebSocketHandler WebSocket接入处理器
type WebSocketHandler struct {
	hub      *ws.Hub
	upgrader websocket.Upgrader
	log      *zap.Logger
}

// NewWebSocketHandler 创建WebSocket处理器
func NewWebSocketHandler(hub *ws.Hub, log *zap.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		log: log,
	}
}

// Connect 升级为WebSocket并加入会话事件流
// @Summary WebSocket接入
// @Description 订阅指定会话的事件广播;token可经query传入
// @Tags WebSocket
// @Security Bearer
// @Param community query string true "社区"
// @Param room query string true "房间"
// @Router /ws [get]
func (h *WebSocketHandler) Connect(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		respondError(c, errors.New(errors.ErrAuthentication, "未登录"))
		return
	}

	community := c.Query("community")
	room := c.Query("room")
	if community == "" || room == "" {
		respondError(c, errors.New(errors.ErrInvalidParam, "缺少community或room参数"))
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error("WebSocket升级失败",
			zap.Int64("user_id", userID),
			zap.Error(err))
		return
	}

	client := ws.NewClient(h.hub, conn, userID, community, room, h.log)
	client.Register()

	go client.WritePump()
	go client.ReadPump()
}
