package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	gorilla "github.com/gorilla/websocket"
	"github.com/wfunc/party-game/internal/websocket"
	"go.uber.org/zap"
)

// WSHandler WebSocket处理器
type WSHandler struct {
	hub *websocket.Hub
	log *zap.Logger

	upgrader gorilla.Upgrader
}

// NewWSHandler 创建WebSocket处理器
func NewWSHandler(hub *websocket.Hub, log *zap.Logger) *WSHandler {
	return &WSHandler{
		hub: hub,
		log: log,
		upgrader: gorilla.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// 大屏和手机都在局域网里直接访问，不做来源检查
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// StateFeed 状态推送连接
// 角色通过查询参数声明（admin/display/player），默认player
// @Summary WebSocket状态推送
// @Description 升级为WebSocket连接，每次状态变更推送完整状态文档
// @Tags WebSocket
// @Param role query string false "客户端角色" Enums(admin, display, player)
// @Router /ws/state [get]
func (h *WSHandler) StateFeed(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error("WebSocket升级失败", zap.Error(err))
		return
	}

	role := c.Query("role")
	client := websocket.NewClient(h.hub, conn, role)
	h.hub.Register(client)

	go client.WritePump()
	go client.ReadPump()
}
