package game

import (
	"time"

	"github.com/wfunc/party-game/internal/config"
	"github.com/wfunc/party-game/internal/errors"
	"github.com/wfunc/party-game/internal/logger"
	"github.com/wfunc/party-game/internal/models"
	"go.uber.org/zap"
)

// Machine 游戏阶段状态机
// 阶段流转: setup -> lobby -> question <-> result -> finished (+ reset)
// 每个方法都是一次对状态文档的原地变换，在存储层独占访问内执行
type Machine struct {
	cfg    *config.GameConfig
	logger *zap.Logger
	now    func() time.Time
}

// NewMachine 创建状态机
func NewMachine(cfg *config.GameConfig) *Machine {
	return &Machine{
		cfg:    cfg,
		logger: logger.GetModuleLogger("game"),
		now:    time.Now,
	}
}

// StartLobby 开启大厅，清空上一场的玩家
func (m *Machine) StartLobby(state *models.GameState) error {
	state.Status = models.StatusLobby
	state.Players = map[string]*models.PlayerRecord{}
	state.CurrentVotes = map[string]int{}
	state.CurrentQuestionIndex = 0
	state.QuestionStartTime = 0

	m.logger.Info("大厅开启", zap.String("mode", string(state.Mode)))
	return nil
}

// NextQuestion 进入下一题
// 从result或question（跳过结果）前进时下标+1；题目用尽则进入finished；
// 开题副作用：记录服务器开题时间、清空本轮票数、清零所有玩家本轮得分
func (m *Machine) NextQuestion(state *models.GameState) error {
	if state.Status == models.StatusFinished {
		return errors.New(errors.ErrGameFinished)
	}

	if state.Status == models.StatusResult || state.Status == models.StatusQuestion {
		state.CurrentQuestionIndex++
	}

	if state.CurrentQuestionIndex >= len(state.Questions) {
		state.Status = models.StatusFinished
		m.logger.Info("题目用尽，游戏结束",
			zap.Int("questions", len(state.Questions)),
		)
		return nil
	}

	state.Status = models.StatusQuestion
	state.QuestionStartTime = m.now().UnixMilli()
	state.CurrentVotes = map[string]int{}
	for _, record := range state.Players {
		record.RoundScore = 0
	}

	m.logger.Info("开题",
		zap.Int("index", state.CurrentQuestionIndex),
		zap.Int64("start_time", state.QuestionStartTime),
	)
	return nil
}

// ShowResult 展示结果
func (m *Machine) ShowResult(state *models.GameState, lbType models.LeaderboardType) error {
	if state.Status == models.StatusFinished {
		return errors.New(errors.ErrGameFinished)
	}

	switch lbType {
	case models.LeaderboardRound, models.LeaderboardGeneral:
	default:
		return errors.Newf(errors.ErrInvalidParam, "leaderboardType=%s", lbType)
	}

	state.Status = models.StatusResult
	state.LeaderboardType = lbType
	return nil
}

// Reset 恢复出厂状态（玩家、题目、得分全部清除）
func (m *Machine) Reset(state *models.GameState) error {
	fresh := models.DefaultGameState()
	if m.cfg.WelcomeMsg != "" {
		fresh.Settings["welcomeMsg"] = m.cfg.WelcomeMsg
	}
	*state = *fresh

	m.logger.Warn("游戏已重置为出厂状态")
	return nil
}

// SetMode 切换游戏模式并装载该模式的默认题目
func (m *Machine) SetMode(state *models.GameState, mode models.GameMode) error {
	switch mode {
	case models.ModeQuiz:
		state.Questions = m.quizPack()
	case models.ModeVoting:
		state.Questions = m.votingPack()
	default:
		return errors.Newf(errors.ErrInvalidParam, "mode=%s", mode)
	}

	state.Mode = mode
	state.Status = models.StatusSetup
	state.CurrentQuestionIndex = 0
	state.QuestionStartTime = 0
	state.CurrentVotes = map[string]int{}

	m.logger.Info("切换游戏模式",
		zap.String("mode", string(mode)),
		zap.Int("questions", len(state.Questions)),
	)
	return nil
}

// AddQuestion 追加题目
// 投票模式只需要题干，抢答模式需要4个选项和正确答案下标
func (m *Machine) AddQuestion(state *models.GameState, q models.Question) error {
	if q.Question == "" {
		return errors.New(errors.ErrInvalidParam, "题干为空")
	}

	if state.Mode == models.ModeQuiz {
		if len(q.Options) != 4 {
			return errors.Newf(errors.ErrInvalidParam, "抢答题需要4个选项，收到%d个", len(q.Options))
		}
		if q.Correct < 0 || q.Correct >= len(q.Options) {
			return errors.Newf(errors.ErrInvalidParam, "正确答案下标越界: %d", q.Correct)
		}
	} else {
		q.Options = nil
		q.Correct = 0
	}

	state.Questions = append(state.Questions, q)
	return nil
}

// RemoveQuestion 按下标删除题目
func (m *Machine) RemoveQuestion(state *models.GameState, index int) error {
	if index < 0 || index >= len(state.Questions) {
		return errors.Newf(errors.ErrInvalidParam, "题目下标越界: %d", index)
	}

	state.Questions = append(state.Questions[:index], state.Questions[index+1:]...)

	// 删除当前题之前的题目会让下标错位，收敛到有效范围
	if state.CurrentQuestionIndex >= len(state.Questions) && state.CurrentQuestionIndex > 0 {
		state.CurrentQuestionIndex = len(state.Questions) - 1
		if state.CurrentQuestionIndex < 0 {
			state.CurrentQuestionIndex = 0
		}
	}
	return nil
}

// UpdateSettings 保存展示层配置（核心不解释内容，整体替换）
func (m *Machine) UpdateSettings(state *models.GameState, settings map[string]any) error {
	if settings == nil {
		return errors.New(errors.ErrInvalidParam, "settings为空")
	}
	state.Settings = settings
	return nil
}

// AnswerWindow 返回指定模式的答题窗口
// 窗口是建议性的：客户端用它锁定界面，服务器不拒绝迟到的动作
func (m *Machine) AnswerWindow(mode models.GameMode) time.Duration {
	if mode == models.ModeVoting {
		return m.cfg.VotingWindow
	}
	return m.cfg.QuizWindow
}

// WindowGrace 客户端锁屏前的宽限时间
func (m *Machine) WindowGrace() time.Duration {
	return m.cfg.WindowGrace
}

// quizPack 配置中的默认抢答题目
func (m *Machine) quizPack() []models.Question {
	questions := make([]models.Question, 0, len(m.cfg.QuizPack))
	for _, q := range m.cfg.QuizPack {
		questions = append(questions, models.Question{
			Question: q.Question,
			Options:  q.Options,
			Correct:  q.Correct,
		})
	}
	return questions
}

// votingPack 配置中的默认投票题目（只有题干）
func (m *Machine) votingPack() []models.Question {
	questions := make([]models.Question, 0, len(m.cfg.VotingPack))
	for _, q := range m.cfg.VotingPack {
		questions = append(questions, models.Question{Question: q})
	}
	return questions
}
