package client

import (
	"context"
	gosync "sync"
	"time"

	"github.com/wfunc/party-game/internal/config"
	"github.com/wfunc/party-game/internal/errors"
	"github.com/wfunc/party-game/internal/game"
	"github.com/wfunc/party-game/internal/logger"
	"github.com/wfunc/party-game/internal/models"
	"github.com/wfunc/party-game/internal/sync"
	"go.uber.org/zap"
)

// Participant 玩家参与逻辑
// 把同步引擎的状态变化转换成玩家侧的答题规则：
// 每题只能答一次、按服务器时钟计算用时、一次性双倍积分道具
type Participant struct {
	client *Client
	engine *sync.Engine
	scorer *game.Scorer
	window time.Duration

	mu           gosync.Mutex
	name         string
	joined       bool
	lastAnswered int  // 已答过的题目下标，-1表示还没答过
	doubleArmed  bool // 双倍积分道具是否已激活（一次性）

	logger *zap.Logger
}

// NewParticipant 创建玩家参与器
func NewParticipant(c *Client, engine *sync.Engine, cfg *config.GameConfig, name string) *Participant {
	return &Participant{
		client:       c,
		engine:       engine,
		scorer:       game.NewScorer(cfg),
		window:       cfg.QuizWindow,
		name:         name,
		lastAnswered: -1,
		logger:       logger.GetModuleLogger("client"),
	}
}

// Join 加入游戏
func (p *Participant) Join(ctx context.Context) error {
	state, err := p.client.Join(ctx, p.name)
	if err != nil {
		return err
	}

	p.engine.ApplyLocal(state)

	p.mu.Lock()
	p.joined = true
	p.mu.Unlock()

	p.logger.Info("已加入游戏", zap.String("player", p.name))
	return nil
}

// ArmDoublePoints 激活双倍积分道具（下一次答对生效，用后即废）
func (p *Participant) ArmDoublePoints() {
	p.mu.Lock()
	p.doubleArmed = true
	p.mu.Unlock()
}

// DoubleArmed 道具是否处于激活状态
func (p *Participant) DoubleArmed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.doubleArmed
}

// Answer 提交抢答答案
// 答错不提交得分（得0分不需要记录），答对按服务器时钟算用时计分
func (p *Participant) Answer(ctx context.Context, optionIndex int) (int, error) {
	state := p.engine.State()
	if state == nil {
		return 0, errors.New(errors.ErrFetchFailed, "本地还没有状态文档")
	}

	if state.Status != models.StatusQuestion {
		return 0, errors.Newf(errors.ErrInvalidStatus, "status=%s", state.Status)
	}
	if state.Mode != models.ModeQuiz {
		return 0, errors.Newf(errors.ErrInvalidStatus, "mode=%s", state.Mode)
	}
	if state.CurrentQuestionIndex >= len(state.Questions) {
		return 0, errors.New(errors.ErrNoQuestions)
	}

	p.mu.Lock()
	if p.lastAnswered == state.CurrentQuestionIndex {
		p.mu.Unlock()
		return 0, errors.Newf(errors.ErrInvalidParam, "第%d题已经答过", state.CurrentQuestionIndex)
	}
	p.lastAnswered = state.CurrentQuestionIndex
	doubled := p.doubleArmed
	p.mu.Unlock()

	question := state.Questions[state.CurrentQuestionIndex]
	if optionIndex != question.Correct {
		p.logger.Info("答错",
			zap.String("player", p.name),
			zap.Int("question", state.CurrentQuestionIndex),
		)
		return 0, nil
	}

	// 用时按服务器时钟计算，本地时钟可能偏差几分钟
	elapsed := time.Duration(p.engine.ServerNow()-state.QuestionStartTime) * time.Millisecond
	if elapsed < 0 {
		elapsed = 0
	}

	points := p.scorer.Score(elapsed, doubled)

	newState, err := p.client.SubmitScore(ctx, p.name, points)
	if err != nil {
		// 提交失败回滚本地标记，允许重试
		p.mu.Lock()
		p.lastAnswered = -1
		p.mu.Unlock()
		return 0, err
	}

	// 道具在提交成功后才消耗
	if doubled {
		p.mu.Lock()
		p.doubleArmed = false
		p.mu.Unlock()
	}

	p.engine.ApplyLocal(newState)

	p.logger.Info("答对",
		zap.String("player", p.name),
		zap.Int("points", points),
		zap.Duration("elapsed", elapsed),
		zap.Bool("doubled", doubled),
	)
	return points, nil
}

// Vote 投票
func (p *Participant) Vote(ctx context.Context, votedPerson string) error {
	state, err := p.client.Vote(ctx, votedPerson)
	if err != nil {
		return err
	}
	p.engine.ApplyLocal(state)
	return nil
}

// HandleChange 处理状态变化，返回是否检测到了游戏重置
// 已加入的玩家在setup/lobby阶段从玩家表里消失，说明管理员清场了，
// 本地的参与状态要跟着作废
func (p *Participant) HandleChange(state *models.GameState) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.joined {
		return false
	}

	if state.Status != models.StatusSetup && state.Status != models.StatusLobby {
		return false
	}

	if _, ok := state.Players[p.name]; ok {
		return false
	}

	p.joined = false
	p.lastAnswered = -1
	p.doubleArmed = false

	p.logger.Warn("检测到游戏重置，参与状态已作废", zap.String("player", p.name))
	return true
}

// Joined 是否已加入
func (p *Participant) Joined() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.joined
}

// RemainingTime 当前题目的剩余答题时间（含宽限前的窗口）
// 没有进行中的题目时返回0
func (p *Participant) RemainingTime() time.Duration {
	state := p.engine.State()
	if state == nil || state.Status != models.StatusQuestion || state.QuestionStartTime == 0 {
		return 0
	}

	elapsed := time.Duration(p.engine.ServerNow()-state.QuestionStartTime) * time.Millisecond
	remaining := p.window - elapsed
	if remaining < 0 {
		return 0
	}
	return remaining
}
