package store

import (
	"context"

	"github.com/wfunc/party-game/internal/config"
	"github.com/wfunc/party-game/internal/errors"
	"github.com/wfunc/party-game/internal/models"
)

// Mutator 状态变换函数
// 在独占访问期间对状态做原地修改，返回错误则放弃本次写入
type Mutator func(state *models.GameState) error

// Store 状态文档存储接口
// 整个系统只有一份状态文档，所有写入都走Update的独占读改写流程，
// 并发写方串行执行，等待超时返回ErrStoreBusy（调用方可安全重试）
type Store interface {
	// Load 读取当前状态，文档不存在时初始化为出厂默认状态
	Load(ctx context.Context) (*models.GameState, error)

	// Update 独占读改写：读取最新状态 -> 执行fn -> 持久化
	// 返回写入后的状态快照
	Update(ctx context.Context, fn Mutator) (*models.GameState, error)

	// Close 释放存储资源
	Close() error
}

// New 根据配置创建存储后端
func New(cfg *config.StoreConfig) (Store, error) {
	switch cfg.Backend {
	case "db":
		return NewDBStore(cfg)
	case "file":
		return NewFileStore(cfg.Path, cfg.LockTimeout)
	default:
		return nil, errors.Newf(errors.ErrStoreConnect, "未知的存储后端: %s", cfg.Backend)
	}
}
