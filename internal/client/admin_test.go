package client

import (
	"context"

	"github.com/wfunc/party-game/internal/errors"
	"github.com/wfunc/party-game/internal/models"
	"github.com/wfunc/party-game/internal/sync"
)

// newAdmin 登录好的管理员操作器
func (suite *ClientTestSuite) newAdmin() (*Admin, *sync.Engine) {
	engine := sync.NewEngine(suite.client, &suite.syncCfg, "player")
	admin := NewAdmin(suite.client, engine, &suite.gameCfg)
	suite.Require().NoError(admin.Login(context.Background(), "admin", "party-2026"))
	return admin, engine
}

// 完整投票流程：切模式、开大厅、玩家加入投票、开题、展示结果
func (suite *ClientTestSuite) TestAdminVotingFlow() {
	ctx := context.Background()
	admin, engine := suite.newAdmin()

	suite.NoError(admin.SetMode(ctx, models.ModeVoting))
	state := engine.State()
	suite.Equal(models.ModeVoting, state.Mode)
	suite.Equal(models.StatusSetup, state.Status)
	suite.Len(state.Questions, 2)

	suite.NoError(admin.StartLobby(ctx))
	suite.Equal(models.StatusLobby, engine.State().Status)

	player := New(suite.server.URL, &suite.syncCfg)
	_, err := player.Join(ctx, "Alice")
	suite.NoError(err)

	suite.NoError(admin.NextQuestion(ctx))
	state = engine.State()
	suite.Equal(models.StatusQuestion, state.Status)
	suite.Greater(state.QuestionStartTime, int64(0))

	_, err = player.Vote(ctx, "Alice")
	suite.NoError(err)

	suite.NoError(admin.ShowResult(ctx, models.LeaderboardRound))
	engine.Poll(ctx)
	state = engine.State()
	suite.Equal(models.StatusResult, state.Status)
	suite.Equal(models.LeaderboardRound, state.LeaderboardType)
	suite.Equal(1, state.CurrentVotes["Alice"])
}

// 题目用尽后进入finished，finished是终态
func (suite *ClientTestSuite) TestAdminGameFinishes() {
	ctx := context.Background()
	admin, engine := suite.newAdmin()

	suite.NoError(admin.SetMode(ctx, models.ModeVoting))
	suite.NoError(admin.StartLobby(ctx))

	// 2道题 + 1次推进到finished
	suite.NoError(admin.NextQuestion(ctx))
	suite.NoError(admin.NextQuestion(ctx))
	suite.NoError(admin.NextQuestion(ctx))
	suite.Equal(models.StatusFinished, engine.State().Status)

	err := admin.NextQuestion(ctx)
	suite.True(errors.Is(err, errors.ErrGameFinished))

	// 只有重置能离开终态
	suite.NoError(admin.Reset(ctx))
	suite.Equal(models.StatusSetup, engine.State().Status)
	suite.Empty(engine.State().Players)
}

// 题目管理：追加、删除、非法题目被拒
func (suite *ClientTestSuite) TestAdminQuestionManagement() {
	ctx := context.Background()
	admin, engine := suite.newAdmin()

	suite.NoError(admin.SetMode(ctx, models.ModeQuiz))
	suite.Len(engine.State().Questions, 2)

	suite.NoError(admin.AddQuestion(ctx, models.Question{
		Question: "新题目",
		Options:  []string{"A", "B", "C", "D"},
		Correct:  2,
	}))
	suite.Len(engine.State().Questions, 3)

	// 抢答题必须是4个选项
	err := admin.AddQuestion(ctx, models.Question{
		Question: "坏题目",
		Options:  []string{"A", "B"},
		Correct:  0,
	})
	suite.True(errors.Is(err, errors.ErrInvalidParam))

	suite.NoError(admin.RemoveQuestion(ctx, 0))
	suite.Len(engine.State().Questions, 2)

	err = admin.RemoveQuestion(ctx, 99)
	suite.True(errors.Is(err, errors.ErrInvalidParam))
}

// 展示层配置整体替换
func (suite *ClientTestSuite) TestAdminUpdateSettings() {
	ctx := context.Background()
	admin, engine := suite.newAdmin()

	suite.NoError(admin.UpdateSettings(ctx, map[string]any{
		"welcomeMsg": "周年庆快乐！",
		"logo":       "/static/logo.png",
	}))

	settings := engine.State().Settings
	suite.Equal("周年庆快乐！", settings["welcomeMsg"])
	suite.Equal("/static/logo.png", settings["logo"])
}
