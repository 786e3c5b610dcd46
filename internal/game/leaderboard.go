package game

import (
	"sort"

	"github.com/wfunc/party-game/internal/models"
)

// 排行榜条数限制：游戏进行中只展示头部，结束后展示完整榜单
const (
	leaderboardLimitInRound  = 5
	leaderboardLimitFinished = 100
)

// LeaderboardEntry 排行榜条目
type LeaderboardEntry struct {
	Name  string `json:"name"`
	Score int    `json:"score"`
}

// Leaderboard 根据(模式, 榜单类型)投影排行榜
//
//	voting + round   -> 本轮票数（允许出现非注册玩家的名字）
//	voting + general -> 玩家累计得票
//	quiz   + round   -> 玩家本轮得分
//	quiz   + general -> 玩家累计得分
//
// 排序：分数降序，同分按名字升序，保证各端渲染一致
func Leaderboard(state *models.GameState) []LeaderboardEntry {
	var entries []LeaderboardEntry

	if state.Mode == models.ModeVoting && state.LeaderboardType == models.LeaderboardRound {
		for name, votes := range state.CurrentVotes {
			entries = append(entries, LeaderboardEntry{Name: name, Score: votes})
		}
	} else {
		for name, record := range state.Players {
			entries = append(entries, LeaderboardEntry{
				Name:  name,
				Score: projectScore(state, record),
			})
		}
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		return entries[i].Name < entries[j].Name
	})

	limit := leaderboardLimitInRound
	if state.Status == models.StatusFinished {
		limit = leaderboardLimitFinished
	}
	if len(entries) > limit {
		entries = entries[:limit]
	}

	return entries
}

// projectScore 按(模式, 榜单类型)取玩家的展示分数
func projectScore(state *models.GameState, record *models.PlayerRecord) int {
	if state.Mode == models.ModeVoting {
		return record.VotesReceived
	}
	if state.LeaderboardType == models.LeaderboardRound {
		return record.RoundScore
	}
	return record.Score
}
