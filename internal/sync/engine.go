package sync

import (
	"bytes"
	"context"
	gosync "sync"
	"time"

	"github.com/wfunc/party-game/internal/config"
	"github.com/wfunc/party-game/internal/errors"
	"github.com/wfunc/party-game/internal/logger"
	"github.com/wfunc/party-game/internal/models"
	"go.uber.org/zap"
)

// Fetcher 状态拉取接口
// 返回状态文档和服务器时钟（毫秒）；serverTime不属于文档本身，
// 由传输层剥离后单独返回
type Fetcher interface {
	FetchState(ctx context.Context) (*models.GameState, int64, error)
}

// Engine 客户端同步引擎
// 周期性拉取状态文档，做结构化比较，只在内容变化时通知上层；
// 连续失败达到阈值后发出断线信号，恢复后发出重连信号
type Engine struct {
	fetcher        Fetcher
	role           string
	interval       time.Duration
	errorThreshold int

	mu                gosync.RWMutex
	state             *models.GameState
	lastCanonical     []byte
	clockOffset       int64 // serverTime - localTime，毫秒
	consecutiveErrors int
	degraded          bool

	onChange     func(state *models.GameState)
	onConnection func(connected bool)

	nowMs  func() int64
	logger *zap.Logger
}

// NewEngine 创建同步引擎
// role为display时使用大屏的更高轮询频率
func NewEngine(fetcher Fetcher, cfg *config.SyncConfig, role string) *Engine {
	interval := cfg.PollInterval
	if role == "display" {
		interval = cfg.DisplayPollInterval
	}

	return &Engine{
		fetcher:        fetcher,
		role:           role,
		interval:       interval,
		errorThreshold: cfg.ErrorThreshold,
		nowMs:          func() int64 { return time.Now().UnixMilli() },
		logger:         logger.GetModuleLogger("sync"),
	}
}

// OnChange 设置状态变化回调
// 只有文档内容真正变化时才会触发，重复通知会导致界面反复重渲染
func (e *Engine) OnChange(fn func(state *models.GameState)) {
	e.onChange = fn
}

// OnConnection 设置连接状态回调
func (e *Engine) OnConnection(fn func(connected bool)) {
	e.onConnection = fn
}

// Run 运行轮询循环，直到ctx取消
func (e *Engine) Run(ctx context.Context) {
	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	// 启动时立即同步一次
	e.Poll(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.Poll(ctx)
		}
	}
}

// Poll 执行一次同步周期
// 返回文档是否发生了变化
func (e *Engine) Poll(ctx context.Context) bool {
	state, serverTime, err := e.fetcher.FetchState(ctx)
	if err != nil {
		e.recordFailure(err)
		logger.LogSyncCycle(e.role, false, e.ClockOffset(), err)
		return false
	}

	e.recordSuccess()

	canonical, merr := state.Canonical()
	if merr != nil {
		e.recordFailure(errors.Wrap(merr, errors.ErrMessageFormat))
		return false
	}

	e.mu.Lock()
	e.clockOffset = serverTime - e.nowMs()
	changed := !bytes.Equal(canonical, e.lastCanonical)
	if changed {
		e.state = state
		e.lastCanonical = canonical
	}
	offset := e.clockOffset
	e.mu.Unlock()

	if changed && e.onChange != nil {
		e.onChange(state)
	}

	logger.LogSyncCycle(e.role, changed, offset, nil)
	return changed
}

// ApplyLocal 乐观本地应用（管理员写入后立即刷新本地视图，不等下一轮拉取）
// 写入失败时不回滚，下一轮拉取会用服务器权威状态覆盖
func (e *Engine) ApplyLocal(state *models.GameState) {
	canonical, err := state.Canonical()
	if err != nil {
		e.logger.Error("本地应用序列化失败", zap.Error(err))
		return
	}

	e.mu.Lock()
	e.state = state
	e.lastCanonical = canonical
	e.mu.Unlock()

	if e.onChange != nil {
		e.onChange(state)
	}
}

// State 当前本地状态快照
func (e *Engine) State() *models.GameState {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.state == nil {
		return nil
	}
	return e.state.Clone()
}

// ClockOffset 服务器与本地时钟的偏差（毫秒）
func (e *Engine) ClockOffset() int64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.clockOffset
}

// ServerNow 按时钟偏差推算的服务器当前时间（毫秒）
// 答题倒计时必须用服务器时钟，本地时钟可能差几分钟
func (e *Engine) ServerNow() int64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.nowMs() + e.clockOffset
}

// Degraded 是否处于断线状态
func (e *Engine) Degraded() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.degraded
}

// recordFailure 记录一次失败，达到阈值时发出断线信号
func (e *Engine) recordFailure(err error) {
	e.mu.Lock()
	e.consecutiveErrors++
	crossed := !e.degraded && e.consecutiveErrors >= e.errorThreshold
	if crossed {
		e.degraded = true
	}
	count := e.consecutiveErrors
	e.mu.Unlock()

	e.logger.Warn("同步失败",
		zap.String("role", e.role),
		zap.Int("consecutive", count),
		zap.Error(err),
	)

	if crossed && e.onConnection != nil {
		e.onConnection(false)
	}
}

// recordSuccess 清零失败计数，从断线状态恢复时发出重连信号
func (e *Engine) recordSuccess() {
	e.mu.Lock()
	recovered := e.degraded
	e.consecutiveErrors = 0
	e.degraded = false
	e.mu.Unlock()

	if recovered && e.onConnection != nil {
		e.onConnection(true)
	}
}
