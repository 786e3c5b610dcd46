package api

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/wfunc/party-game/internal/config"
	"github.com/wfunc/party-game/internal/game"
	"github.com/wfunc/party-game/internal/middleware"
	"github.com/wfunc/party-game/internal/store"
	"github.com/wfunc/party-game/internal/utils"
	"github.com/wfunc/party-game/internal/websocket"
	"go.uber.org/zap"
)

// Router API路由器
type Router struct {
	engine         *gin.Engine
	store          store.Store
	hub            *websocket.Hub
	stateHandler   *StateHandler
	actionHandler  *ActionHandler
	authHandler    *AuthHandler
	wsHandler      *WSHandler
	authMiddleware *middleware.AuthMiddleware
	log            *zap.Logger
}

// NewRouter 创建路由器
func NewRouter(cfg *config.Config, st store.Store, hub *websocket.Hub, log *zap.Logger) *Router {
	// 创建Gin引擎
	engine := gin.New()

	// 全局中间件
	engine.Use(gin.Recovery())
	engine.Use(gin.Logger())

	// 创建核心组件
	processor := game.NewProcessor()
	jwtManager := utils.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.TokenExpiry)

	// 创建处理器
	stateHandler := NewStateHandler(st, hub, log)
	actionHandler := NewActionHandler(st, processor, hub, log)
	authHandler := NewAuthHandler(&cfg.Auth, jwtManager, log)
	wsHandler := NewWSHandler(hub, log)

	// 创建中间件
	authMiddleware := middleware.NewAuthMiddleware(jwtManager)

	router := &Router{
		engine:         engine,
		store:          st,
		hub:            hub,
		stateHandler:   stateHandler,
		actionHandler:  actionHandler,
		authHandler:    authHandler,
		wsHandler:      wsHandler,
		authMiddleware: authMiddleware,
		log:            log,
	}

	// 设置路由
	router.setupRoutes()

	return router
}

// setupRoutes 设置路由
func (r *Router) setupRoutes() {
	// 健康检查
	r.engine.GET("/health", r.healthCheck)

	// API v1路由组
	v1 := r.engine.Group("/api/v1")
	{
		// 认证相关路由
		auth := v1.Group("/auth")
		{
			auth.POST("/login", r.authHandler.Login)
		}

		// 状态文档：读取公开，整文档替换需要管理员令牌
		v1.GET("/state", r.stateHandler.GetState)
		v1.PUT("/state", r.authMiddleware.RequireAdmin(), r.stateHandler.ReplaceState)

		// 玩家动作（join/vote/score，无需认证）
		v1.POST("/actions", r.actionHandler.HandleAction)
	}

	// WebSocket状态推送
	ws := r.engine.Group("/ws")
	{
		ws.GET("/state", r.wsHandler.StateFeed)
	}

	// OpenAPI文档
	registerOpenAPIRoutes(r.engine)
	registerSwaggerRoutes(r.engine)

	// 404处理
	r.engine.NoRoute(func(c *gin.Context) {
		c.JSON(404, gin.H{
			"code":    "NOT_FOUND",
			"message": "接口不存在",
		})
	})
}

// healthCheck 健康检查
func (r *Router) healthCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if _, err := r.store.Load(ctx); err != nil {
		c.JSON(500, gin.H{
			"status":  "unhealthy",
			"message": "状态存储不可用",
		})
		return
	}

	c.JSON(200, gin.H{
		"status":  "healthy",
		"message": "服务运行正常",
		"clients": r.hub.GetOnlineCount(),
	})
}

// Run 运行服务器
func (r *Router) Run(addr string) error {
	r.log.Info("Starting API server", zap.String("address", addr))
	return r.engine.Run(addr)
}

// GetEngine 获取Gin引擎（用于测试）
func (r *Router) GetEngine() *gin.Engine {
	return r.engine
}
