package game

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/wfunc/party-game/internal/config"
)

func newTestScorer() *Scorer {
	return NewScorer(&config.GameConfig{
		QuizWindow: 10 * time.Second,
		BasePoints: 100,
		MaxBonus:   100,
	})
}

// 边界：秒答拿满加成，窗口用尽只剩基础分，迟到不为负
func TestScoreBoundaries(t *testing.T) {
	scorer := newTestScorer()

	assert.Equal(t, 200, scorer.Score(0, false))
	assert.Equal(t, 100, scorer.Score(10*time.Second, false))
	assert.Equal(t, 100, scorer.Score(15*time.Second, false))
}

// 加成线性衰减并向下取整
func TestScoreLinearDecay(t *testing.T) {
	scorer := newTestScorer()

	assert.Equal(t, 150, scorer.Score(5*time.Second, false))
	assert.Equal(t, 190, scorer.Score(1*time.Second, false))
	// 3.3秒 -> 100 + 67.0 -> 167
	assert.Equal(t, 167, scorer.Score(3300*time.Millisecond, false))
}

// 双倍积分道具在取整后翻倍
func TestScoreDoubled(t *testing.T) {
	scorer := newTestScorer()

	assert.Equal(t, 400, scorer.Score(0, true))
	assert.Equal(t, 300, scorer.Score(5*time.Second, true))
	assert.Equal(t, 200, scorer.Score(15*time.Second, true))
}
