package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/wfunc/party-game/internal/config"
	"github.com/wfunc/party-game/internal/errors"
	"github.com/wfunc/party-game/internal/utils"
	"go.uber.org/zap"
)

// AuthHandler 认证处理器
// 系统只有一个管理员主体，凭据来自配置而不是数据库
type AuthHandler struct {
	cfg        *config.AuthConfig
	jwtManager *utils.JWTManager
	log        *zap.Logger
}

// NewAuthHandler 创建认证处理器
func NewAuthHandler(cfg *config.AuthConfig, jwtManager *utils.JWTManager, log *zap.Logger) *AuthHandler {
	return &AuthHandler{
		cfg:        cfg,
		jwtManager: jwtManager,
		log:        log,
	}
}

// LoginRequest 登录请求
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse 登录响应
type LoginResponse struct {
	Token     string `json:"token"`
	ExpiresIn int64  `json:"expires_in"` // 秒
}

// Login 管理员登录
// @Summary 管理员登录
// @Description 校验管理员凭据，返回JWT令牌
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body LoginRequest true "登录请求"
// @Success 200 {object} LoginResponse
// @Failure 401 {object} ErrorResponse
// @Router /api/v1/auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, errors.Wrap(err, errors.ErrInvalidParam))
		return
	}

	if req.Username != h.cfg.AdminUser {
		h.log.Warn("登录失败：用户名不存在", zap.String("username", req.Username))
		respondError(c, errors.New(errors.ErrAuthentication, "用户名或密码错误"))
		return
	}

	ok, err := utils.VerifyPassword(req.Password, h.cfg.AdminPasswordHash)
	if err != nil || !ok {
		h.log.Warn("登录失败：密码错误", zap.String("username", req.Username))
		respondError(c, errors.New(errors.ErrAuthentication, "用户名或密码错误"))
		return
	}

	token, err := h.jwtManager.GenerateToken(req.Username, "admin")
	if err != nil {
		h.log.Error("生成令牌失败", zap.Error(err))
		respondError(c, errors.Wrap(err, errors.ErrAuthentication))
		return
	}

	h.log.Info("管理员登录成功", zap.String("username", req.Username))

	c.JSON(http.StatusOK, LoginResponse{
		Token:     token,
		ExpiresIn: int64(h.jwtManager.GetTokenExpiry().Seconds()),
	})
}
