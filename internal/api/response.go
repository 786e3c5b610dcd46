package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/wfunc/party-game/internal/errors"
	"github.com/wfunc/party-game/internal/models"
)

// StateResponse 状态读取响应
// serverTime是服务器时钟毫秒数，客户端用它校准倒计时，比较状态前必须剥离
type StateResponse struct {
	State      *models.GameState `json:"state"`
	ServerTime int64             `json:"serverTime"`
}

// MutationResponse 状态写入响应（动作和整文档替换共用）
type MutationResponse struct {
	Success  bool              `json:"success"`
	NewState *models.GameState `json:"newState"`
}

// ErrorResponse API错误响应
type ErrorResponse struct {
	Code      int    `json:"code"`
	Message   string `json:"message"`
	Details   string `json:"details,omitempty"`
	Retryable bool   `json:"retryable"`
}

// respondError 按错误码映射HTTP状态并输出统一错误结构
func respondError(c *gin.Context, err error) {
	appErr, ok := err.(*errors.AppError)
	if !ok {
		appErr = errors.Wrap(err, errors.ErrUnknown)
	}

	c.JSON(appErr.HTTPStatus(), ErrorResponse{
		Code:      int(appErr.Code),
		Message:   appErr.Message,
		Details:   appErr.Details,
		Retryable: errors.IsRetryable(appErr),
	})
}

// nowMillis 服务器时钟毫秒数
func nowMillis() int64 {
	return time.Now().UnixMilli()
}
