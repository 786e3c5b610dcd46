package game

import (
	"github.com/wfunc/party-game/internal/errors"
	"github.com/wfunc/party-game/internal/logger"
	"github.com/wfunc/party-game/internal/models"
	"go.uber.org/zap"
)

// ActionType 玩家动作类型
type ActionType string

const (
	ActionJoin  ActionType = "join"  // 加入游戏
	ActionVote  ActionType = "vote"  // 投票
	ActionScore ActionType = "score" // 提交得分（抢答模式，客户端算好分数）
)

// Action 玩家动作请求
type Action struct {
	Action ActionType `json:"action"`
	Data   ActionData `json:"data"`
}

// ActionData 动作参数
// 三种动作共用一个参数结构，按动作类型取用对应字段
type ActionData struct {
	Name        string `json:"name,omitempty"`        // join: 玩家名
	VotedPerson string `json:"votedPerson,omitempty"` // vote: 被投票人
	Player      string `json:"player,omitempty"`      // score: 玩家名
	Points      int    `json:"points,omitempty"`      // score: 本轮得分
}

// Processor 玩家动作处理器
// 动作在存储层的独占读改写内执行，因此每个动作天然原子
type Processor struct {
	logger *zap.Logger
}

// NewProcessor 创建动作处理器
func NewProcessor() *Processor {
	return &Processor{
		logger: logger.GetModuleLogger("game"),
	}
}

// Apply 把动作应用到状态文档
func (p *Processor) Apply(state *models.GameState, action *Action) error {
	switch action.Action {
	case ActionJoin:
		return p.applyJoin(state, &action.Data)
	case ActionVote:
		return p.applyVote(state, &action.Data)
	case ActionScore:
		return p.applyScore(state, &action.Data)
	default:
		return errors.Newf(errors.ErrUnknownAction, "action=%s", action.Action)
	}
}

// applyJoin 加入游戏
// 幂等：同名重复加入不报错也不覆盖已有记录
func (p *Processor) applyJoin(state *models.GameState, data *ActionData) error {
	if data.Name == "" {
		return errors.New(errors.ErrInvalidParam, "玩家名为空")
	}

	if _, ok := state.Players[data.Name]; !ok {
		state.Players[data.Name] = &models.PlayerRecord{}
		p.logger.Info("玩家加入", zap.String("player", data.Name))
	}

	return nil
}

// applyVote 投票
// 本轮票数对任意名字累加（可以投给非玩家），累计得票只记给已注册玩家
func (p *Processor) applyVote(state *models.GameState, data *ActionData) error {
	if data.VotedPerson == "" {
		return errors.New(errors.ErrInvalidParam, "被投票人为空")
	}

	state.CurrentVotes[data.VotedPerson]++

	if record, ok := state.Players[data.VotedPerson]; ok {
		record.VotesReceived++
	}

	p.logger.Debug("收到投票", zap.String("voted", data.VotedPerson))
	return nil
}

// applyScore 提交得分
// 累计得分叠加，本轮得分直接覆盖（一轮只记最后一次提交）
func (p *Processor) applyScore(state *models.GameState, data *ActionData) error {
	if data.Player == "" {
		return errors.New(errors.ErrInvalidParam, "玩家名为空")
	}

	record, ok := state.Players[data.Player]
	if !ok {
		return errors.Newf(errors.ErrPlayerNotFound, "player=%s", data.Player)
	}

	record.Score += data.Points
	record.RoundScore = data.Points

	p.logger.Info("记录得分",
		zap.String("player", data.Player),
		zap.Int("points", data.Points),
	)
	return nil
}
