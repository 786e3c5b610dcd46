package sync

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"github.com/wfunc/party-game/internal/config"
	"github.com/wfunc/party-game/internal/errors"
	"github.com/wfunc/party-game/internal/models"
)

// fakeFetcher 可编程的状态拉取桩
type fakeFetcher struct {
	state      *models.GameState
	serverTime int64
	err        error
	calls      int
}

func (f *fakeFetcher) FetchState(ctx context.Context) (*models.GameState, int64, error) {
	f.calls++
	if f.err != nil {
		return nil, 0, f.err
	}
	return f.state.Clone(), f.serverTime, nil
}

// EngineTestSuite 同步引擎测试套件
type EngineTestSuite struct {
	suite.Suite
	fetcher *fakeFetcher
	engine  *Engine

	changes     []*models.GameState
	connections []bool
}

func (suite *EngineTestSuite) SetupTest() {
	suite.fetcher = &fakeFetcher{
		state:      models.DefaultGameState(),
		serverTime: 1_000_000,
	}

	cfg := &config.SyncConfig{
		PollInterval:        time.Second,
		DisplayPollInterval: 500 * time.Millisecond,
		ErrorThreshold:      5,
	}

	suite.changes = nil
	suite.connections = nil

	suite.engine = NewEngine(suite.fetcher, cfg, "player")
	suite.engine.nowMs = func() int64 { return 999_000 }
	suite.engine.OnChange(func(state *models.GameState) {
		suite.changes = append(suite.changes, state)
	})
	suite.engine.OnConnection(func(connected bool) {
		suite.connections = append(suite.connections, connected)
	})
}

// 首次同步总是触发变化通知
func (suite *EngineTestSuite) TestInitialPollNotifies() {
	changed := suite.engine.Poll(context.Background())
	suite.True(changed)
	suite.Len(suite.changes, 1)
	suite.Equal(models.StatusSetup, suite.engine.State().Status)
}

// 内容没变时抑制通知，即使serverTime每次不同
func (suite *EngineTestSuite) TestUnchangedStateSuppressed() {
	suite.engine.Poll(context.Background())

	suite.fetcher.serverTime = 2_000_000
	changed := suite.engine.Poll(context.Background())

	suite.False(changed)
	suite.Len(suite.changes, 1)
}

// 内容变化触发通知
func (suite *EngineTestSuite) TestChangedStateNotifies() {
	suite.engine.Poll(context.Background())

	suite.fetcher.state.Status = models.StatusLobby
	changed := suite.engine.Poll(context.Background())

	suite.True(changed)
	suite.Len(suite.changes, 2)
	suite.Equal(models.StatusLobby, suite.changes[1].Status)
}

// 时钟偏差 = 服务器时间 - 本地时间
func (suite *EngineTestSuite) TestClockOffset() {
	suite.engine.Poll(context.Background())

	suite.Equal(int64(1_000), suite.engine.ClockOffset())
	suite.Equal(int64(1_000_000), suite.engine.ServerNow())
}

// 连续失败达到阈值发出断线信号，恢复后发出重连信号
func (suite *EngineTestSuite) TestDegradedSignal() {
	suite.fetcher.err = errors.New(errors.ErrFetchFailed)

	for i := 0; i < 4; i++ {
		suite.engine.Poll(context.Background())
	}
	suite.Empty(suite.connections)
	suite.False(suite.engine.Degraded())

	// 第5次失败越过阈值
	suite.engine.Poll(context.Background())
	suite.Equal([]bool{false}, suite.connections)
	suite.True(suite.engine.Degraded())

	// 断线期间不重复通知
	suite.engine.Poll(context.Background())
	suite.Equal([]bool{false}, suite.connections)

	// 恢复
	suite.fetcher.err = nil
	suite.engine.Poll(context.Background())
	suite.Equal([]bool{false, true}, suite.connections)
	suite.False(suite.engine.Degraded())
}

// 偶发失败被成功清零，不触发断线
func (suite *EngineTestSuite) TestIntermittentFailuresReset() {
	for i := 0; i < 10; i++ {
		suite.fetcher.err = errors.New(errors.ErrFetchFailed)
		suite.engine.Poll(context.Background())
		suite.fetcher.err = nil
		suite.engine.Poll(context.Background())
	}

	suite.Empty(suite.connections)
}

// 乐观本地应用立即生效并抑制下一轮相同内容的通知
func (suite *EngineTestSuite) TestApplyLocal() {
	suite.engine.Poll(context.Background())

	local := suite.fetcher.state.Clone()
	local.Status = models.StatusLobby
	suite.engine.ApplyLocal(local)

	suite.Len(suite.changes, 2)
	suite.Equal(models.StatusLobby, suite.engine.State().Status)

	// 服务器确认了同样的内容，不应再次通知
	suite.fetcher.state.Status = models.StatusLobby
	changed := suite.engine.Poll(context.Background())
	suite.False(changed)
	suite.Len(suite.changes, 2)
}

// 大屏角色使用更高的轮询频率
func (suite *EngineTestSuite) TestDisplayInterval() {
	cfg := &config.SyncConfig{
		PollInterval:        time.Second,
		DisplayPollInterval: 500 * time.Millisecond,
		ErrorThreshold:      5,
	}

	display := NewEngine(suite.fetcher, cfg, "display")
	suite.Equal(500*time.Millisecond, display.interval)

	player := NewEngine(suite.fetcher, cfg, "player")
	suite.Equal(time.Second, player.interval)
}

// State返回的是快照，修改不影响引擎内部状态
func (suite *EngineTestSuite) TestStateSnapshot() {
	suite.engine.Poll(context.Background())

	snapshot := suite.engine.State()
	snapshot.Status = models.StatusFinished

	suite.Equal(models.StatusSetup, suite.engine.State().Status)
}

func TestEngineSuite(t *testing.T) {
	suite.Run(t, new(EngineTestSuite))
}
