package client

import (
	"context"

	"github.com/wfunc/party-game/internal/config"
	"github.com/wfunc/party-game/internal/game"
	"github.com/wfunc/party-game/internal/logger"
	"github.com/wfunc/party-game/internal/models"
	"github.com/wfunc/party-game/internal/sync"
	"go.uber.org/zap"
)

// Admin 管理员操作逻辑
// 阶段流转在本地状态机上计算，整文档提交给服务器；
// 提交成功后乐观应用，失败不回滚，下一轮拉取会覆盖
type Admin struct {
	client  *Client
	engine  *sync.Engine
	machine *game.Machine
	logger  *zap.Logger
}

// NewAdmin 创建管理员操作器
func NewAdmin(c *Client, engine *sync.Engine, cfg *config.GameConfig) *Admin {
	return &Admin{
		client:  c,
		engine:  engine,
		machine: game.NewMachine(cfg),
		logger:  logger.GetModuleLogger("client"),
	}
}

// Login 管理员登录
func (a *Admin) Login(ctx context.Context, username, password string) error {
	return a.client.Login(ctx, username, password)
}

// StartLobby 开启大厅
func (a *Admin) StartLobby(ctx context.Context) error {
	return a.mutate(ctx, a.machine.StartLobby)
}

// NextQuestion 进入下一题（或在题目用尽时结束游戏）
func (a *Admin) NextQuestion(ctx context.Context) error {
	return a.mutate(ctx, a.machine.NextQuestion)
}

// ShowResult 展示结果
func (a *Admin) ShowResult(ctx context.Context, lbType models.LeaderboardType) error {
	return a.mutate(ctx, func(state *models.GameState) error {
		return a.machine.ShowResult(state, lbType)
	})
}

// Reset 恢复出厂状态
func (a *Admin) Reset(ctx context.Context) error {
	return a.mutate(ctx, a.machine.Reset)
}

// SetMode 切换游戏模式并装载默认题目
func (a *Admin) SetMode(ctx context.Context, mode models.GameMode) error {
	return a.mutate(ctx, func(state *models.GameState) error {
		return a.machine.SetMode(state, mode)
	})
}

// AddQuestion 追加题目
func (a *Admin) AddQuestion(ctx context.Context, q models.Question) error {
	return a.mutate(ctx, func(state *models.GameState) error {
		return a.machine.AddQuestion(state, q)
	})
}

// RemoveQuestion 按下标删除题目
func (a *Admin) RemoveQuestion(ctx context.Context, index int) error {
	return a.mutate(ctx, func(state *models.GameState) error {
		return a.machine.RemoveQuestion(state, index)
	})
}

// UpdateSettings 保存展示层配置
func (a *Admin) UpdateSettings(ctx context.Context, settings map[string]any) error {
	return a.mutate(ctx, func(state *models.GameState) error {
		return a.machine.UpdateSettings(state, settings)
	})
}

// mutate 拉取最新文档、应用变换、整文档提交
// 基于本地缓存改写会覆盖玩家在两次轮询之间的动作，必须先取服务器权威状态
func (a *Admin) mutate(ctx context.Context, fn func(state *models.GameState) error) error {
	state, _, err := a.client.FetchState(ctx)
	if err != nil {
		return err
	}

	if err := fn(state); err != nil {
		return err
	}

	newState, err := a.client.ReplaceState(ctx, state)
	if err != nil {
		a.logger.Warn("管理员写入失败", zap.Error(err))
		return err
	}

	a.engine.ApplyLocal(newState)
	return nil
}
