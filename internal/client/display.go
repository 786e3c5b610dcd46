package client

import (
	"time"

	"github.com/wfunc/party-game/internal/config"
	"github.com/wfunc/party-game/internal/game"
	"github.com/wfunc/party-game/internal/models"
	"github.com/wfunc/party-game/internal/sync"
)

// Display 大屏展示逻辑
// 大屏是只读角色：渲染排行榜和倒计时，不产生任何写入
type Display struct {
	engine *sync.Engine
	cfg    *config.GameConfig
}

// NewDisplay 创建大屏展示器
func NewDisplay(engine *sync.Engine, cfg *config.GameConfig) *Display {
	return &Display{
		engine: engine,
		cfg:    cfg,
	}
}

// Leaderboard 当前状态投影出的排行榜
func (d *Display) Leaderboard() []game.LeaderboardEntry {
	state := d.engine.State()
	if state == nil {
		return nil
	}
	return game.Leaderboard(state)
}

// CurrentQuestion 当前题目，没有进行中的题目时返回nil
func (d *Display) CurrentQuestion() *models.Question {
	state := d.engine.State()
	if state == nil || state.Status != models.StatusQuestion {
		return nil
	}
	if state.CurrentQuestionIndex >= len(state.Questions) {
		return nil
	}
	q := state.Questions[state.CurrentQuestionIndex]
	return &q
}

// Countdown 当前题目的剩余展示时间
// 大屏比玩家多出宽限时间，玩家锁屏后大屏还能看到倒计时走完
func (d *Display) Countdown() time.Duration {
	state := d.engine.State()
	if state == nil || state.Status != models.StatusQuestion || state.QuestionStartTime == 0 {
		return 0
	}

	window := d.cfg.QuizWindow
	if state.Mode == models.ModeVoting {
		window = d.cfg.VotingWindow
	}
	window += d.cfg.WindowGrace

	elapsed := time.Duration(d.engine.ServerNow()-state.QuestionStartTime) * time.Millisecond
	remaining := window - elapsed
	if remaining < 0 {
		return 0
	}
	return remaining
}

// WelcomeMessage 大厅欢迎语（展示层配置，缺省取配置文件的默认值）
func (d *Display) WelcomeMessage() string {
	state := d.engine.State()
	if state != nil {
		if msg, ok := state.Settings["welcomeMsg"].(string); ok && msg != "" {
			return msg
		}
	}
	return d.cfg.WelcomeMsg
}
