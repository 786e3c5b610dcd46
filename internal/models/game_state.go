package models

import (
	"encoding/json"
	"fmt"
)

// GameStatus 游戏阶段
type GameStatus string

const (
	StatusSetup    GameStatus = "setup"    // 准备阶段（管理员编辑题目）
	StatusLobby    GameStatus = "lobby"    // 大厅等待（玩家加入）
	StatusQuestion GameStatus = "question" // 答题中
	StatusResult   GameStatus = "result"   // 展示结果
	StatusFinished GameStatus = "finished" // 游戏结束
)

// GameMode 游戏模式
type GameMode string

const (
	ModeQuiz   GameMode = "quiz"   // 抢答模式（限时计分）
	ModeVoting GameMode = "voting" // 投票模式
)

// LeaderboardType 排行榜类型
type LeaderboardType string

const (
	LeaderboardRound   LeaderboardType = "round"   // 单轮排行
	LeaderboardGeneral LeaderboardType = "general" // 总排行
)

// Question 题目
// 投票模式下只有Question字段，Options和Correct仅在抢答模式使用
type Question struct {
	Question string   `json:"question"`
	Options  []string `json:"options,omitempty"`
	Correct  int      `json:"correct"`
}

// PlayerRecord 玩家记录
type PlayerRecord struct {
	Score         int `json:"score"`         // 累计得分
	VotesReceived int `json:"votesReceived"` // 累计得票（投票模式）
	RoundScore    int `json:"roundScore"`    // 本轮得分（每轮开始时清零）
}

// GameState 游戏状态文档（全局唯一的权威状态）
// 所有客户端角色（管理员、大屏、玩家）都通过这一份文档协调
type GameState struct {
	Status               GameStatus               `json:"status"`
	Mode                 GameMode                 `json:"mode"`
	LeaderboardType      LeaderboardType          `json:"leaderboardType"`
	CurrentQuestionIndex int                      `json:"currentQuestionIndex"`
	QuestionStartTime    int64                    `json:"questionStartTime"` // 服务器时钟毫秒数，0表示没有进行中的题目
	Questions            []Question               `json:"questions"`
	CurrentVotes         map[string]int           `json:"currentVotes"` // 本轮票数，每轮开始时清空
	Players              map[string]*PlayerRecord `json:"players"`      // 玩家名 -> 记录，玩家名为主键
	Settings             map[string]any           `json:"settings"`     // 展示层自定义配置，核心不解释内容
}

// DefaultGameState 创建出厂默认状态
func DefaultGameState() *GameState {
	return &GameState{
		Status:               StatusSetup,
		Mode:                 ModeQuiz,
		LeaderboardType:      LeaderboardGeneral,
		CurrentQuestionIndex: 0,
		QuestionStartTime:    0,
		Questions:            []Question{},
		CurrentVotes:         map[string]int{},
		Players:              map[string]*PlayerRecord{},
		Settings: map[string]any{
			"logo":       "",
			"background": "",
			"welcomeMsg": "🎉 WELCOME TO THE PARTY! 🎉",
		},
	}
}

// EnsureMaps 补齐反序列化后可能为nil的容器字段
func (s *GameState) EnsureMaps() {
	if s.Questions == nil {
		s.Questions = []Question{}
	}
	if s.CurrentVotes == nil {
		s.CurrentVotes = map[string]int{}
	}
	if s.Players == nil {
		s.Players = map[string]*PlayerRecord{}
	}
	if s.Settings == nil {
		s.Settings = map[string]any{}
	}
}

// Clone 深拷贝状态文档
// 通过JSON往返实现，保证拷贝与序列化形态完全一致
func (s *GameState) Clone() *GameState {
	data, err := json.Marshal(s)
	if err != nil {
		// GameState只包含可序列化字段，到这里说明文档被污染
		panic(fmt.Sprintf("clone game state: %v", err))
	}
	clone := &GameState{}
	if err := json.Unmarshal(data, clone); err != nil {
		panic(fmt.Sprintf("clone game state: %v", err))
	}
	clone.EnsureMaps()
	return clone
}

// Canonical 返回规范化JSON字节（map键按字典序），用于结构化比较
func (s *GameState) Canonical() ([]byte, error) {
	return json.Marshal(s)
}

// Validate 校验文档的基本约束（管理员整文档替换时使用）
func (s *GameState) Validate() error {
	switch s.Status {
	case StatusSetup, StatusLobby, StatusQuestion, StatusResult, StatusFinished:
	default:
		return fmt.Errorf("unknown status %q", s.Status)
	}

	switch s.Mode {
	case ModeQuiz, ModeVoting:
	default:
		return fmt.Errorf("unknown mode %q", s.Mode)
	}

	switch s.LeaderboardType {
	case LeaderboardRound, LeaderboardGeneral:
	default:
		return fmt.Errorf("unknown leaderboard type %q", s.LeaderboardType)
	}

	if s.CurrentQuestionIndex < 0 {
		return fmt.Errorf("negative question index %d", s.CurrentQuestionIndex)
	}

	// 答题阶段题目下标必须有效
	if s.Status == StatusQuestion && s.CurrentQuestionIndex >= len(s.Questions) {
		return fmt.Errorf("question index %d out of range (%d questions)",
			s.CurrentQuestionIndex, len(s.Questions))
	}

	if s.Mode == ModeQuiz {
		for i, q := range s.Questions {
			if len(q.Options) != 4 {
				return fmt.Errorf("question %d: quiz questions need 4 options, got %d", i, len(q.Options))
			}
			if q.Correct < 0 || q.Correct >= len(q.Options) {
				return fmt.Errorf("question %d: correct option %d out of range", i, q.Correct)
			}
		}
	}

	return nil
}
