package game

import (
	"math"
	"time"

	"github.com/wfunc/party-game/internal/config"
)

// Scorer 抢答得分计算
// 得分 = 基础分 + 速度加成，加成随答题用时线性衰减到0，不会为负
type Scorer struct {
	base     int
	maxBonus int
	window   time.Duration
}

// NewScorer 创建得分计算器
func NewScorer(cfg *config.GameConfig) *Scorer {
	return &Scorer{
		base:     cfg.BasePoints,
		maxBonus: cfg.MaxBonus,
		window:   cfg.QuizWindow,
	}
}

// Score 按答题用时计算得分
// doubled表示玩家消耗了一次性双倍积分道具
func (s *Scorer) Score(timeTaken time.Duration, doubled bool) int {
	windowSecs := s.window.Seconds()
	if windowSecs <= 0 {
		windowSecs = 10
	}

	bonus := (windowSecs - timeTaken.Seconds()) * float64(s.maxBonus) / windowSecs
	if bonus < 0 {
		bonus = 0
	}

	points := int(math.Floor(float64(s.base) + bonus))
	if doubled {
		points *= 2
	}
	return points
}
