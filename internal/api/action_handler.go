package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/wfunc/party-game/internal/errors"
	"github.com/wfunc/party-game/internal/game"
	"github.com/wfunc/party-game/internal/logger"
	"github.com/wfunc/party-game/internal/models"
	"github.com/wfunc/party-game/internal/store"
	"github.com/wfunc/party-game/internal/websocket"
	"go.uber.org/zap"
)

// ActionHandler 玩家动作处理器
type ActionHandler struct {
	store     store.Store
	processor *game.Processor
	hub       *websocket.Hub
	log       *zap.Logger
}

// NewActionHandler 创建动作处理器
func NewActionHandler(st store.Store, processor *game.Processor, hub *websocket.Hub, log *zap.Logger) *ActionHandler {
	return &ActionHandler{
		store:     st,
		processor: processor,
		hub:       hub,
		log:       log,
	}
}

// HandleAction 处理玩家动作（join/vote/score）
// 动作在存储层的独占读改写内执行，两个并发动作互不丢失
// @Summary 提交玩家动作
// @Description 玩家加入、投票、提交得分，成功后返回最新状态文档
// @Tags Action
// @Accept json
// @Produce json
// @Param request body game.Action true "动作请求"
// @Success 200 {object} MutationResponse
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 503 {object} ErrorResponse
// @Router /api/v1/actions [post]
func (h *ActionHandler) HandleAction(c *gin.Context) {
	var action game.Action
	if err := c.ShouldBindJSON(&action); err != nil {
		respondError(c, errors.Wrap(err, errors.ErrMessageFormat))
		return
	}

	player := action.Data.Name
	if player == "" {
		player = action.Data.Player
	}

	newState, err := h.store.Update(c.Request.Context(), func(state *models.GameState) error {
		return h.processor.Apply(state, &action)
	})

	logger.LogGameEvent(string(action.Action), player, map[string]interface{}{
		"voted":  action.Data.VotedPerson,
		"points": action.Data.Points,
	})

	if err != nil {
		respondError(c, err)
		return
	}

	h.hub.BroadcastState(newState)

	c.JSON(http.StatusOK, MutationResponse{
		Success:  true,
		NewState: newState,
	})
}
