package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/wfunc/party-game/internal/errors"
	"github.com/wfunc/party-game/internal/models"
	"github.com/wfunc/party-game/internal/store"
	"github.com/wfunc/party-game/internal/websocket"
	"go.uber.org/zap"
)

// StateHandler 状态文档处理器
type StateHandler struct {
	store store.Store
	hub   *websocket.Hub
	log   *zap.Logger
}

// NewStateHandler 创建状态处理器
func NewStateHandler(st store.Store, hub *websocket.Hub, log *zap.Logger) *StateHandler {
	return &StateHandler{
		store: st,
		hub:   hub,
		log:   log,
	}
}

// GetState 读取状态文档
// @Summary 读取游戏状态
// @Description 返回完整状态文档和服务器时钟，首次访问时自动初始化
// @Tags State
// @Produce json
// @Success 200 {object} StateResponse
// @Failure 503 {object} ErrorResponse
// @Router /api/v1/state [get]
func (h *StateHandler) GetState(c *gin.Context) {
	state, err := h.store.Load(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, StateResponse{
		State:      state,
		ServerTime: nowMillis(),
	})
}

// ReplaceState 整文档替换（管理员）
// 模式切换、题目编辑、阶段流转、配置保存都通过这一个入口落盘
// @Summary 替换游戏状态
// @Description 管理员提交完整状态文档，校验后整体落盘
// @Tags State
// @Accept json
// @Produce json
// @Security Bearer
// @Param request body models.GameState true "完整状态文档"
// @Success 200 {object} MutationResponse
// @Failure 400 {object} ErrorResponse
// @Failure 503 {object} ErrorResponse
// @Router /api/v1/state [put]
func (h *StateHandler) ReplaceState(c *gin.Context) {
	var incoming models.GameState
	if err := c.ShouldBindJSON(&incoming); err != nil {
		respondError(c, errors.Wrap(err, errors.ErrMessageFormat))
		return
	}

	incoming.EnsureMaps()
	if err := incoming.Validate(); err != nil {
		respondError(c, errors.Wrap(err, errors.ErrInvalidParam))
		return
	}

	newState, err := h.store.Update(c.Request.Context(), func(state *models.GameState) error {
		*state = incoming
		return nil
	})
	if err != nil {
		respondError(c, err)
		return
	}

	h.log.Info("状态文档已替换",
		zap.String("status", string(newState.Status)),
		zap.String("mode", string(newState.Mode)),
		zap.Int("players", len(newState.Players)),
	)

	h.hub.BroadcastState(newState)

	c.JSON(http.StatusOK, MutationResponse{
		Success:  true,
		NewState: newState,
	})
}
