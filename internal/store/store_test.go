package store

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"github.com/wfunc/party-game/internal/errors"
	"github.com/wfunc/party-game/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// DBStoreTestSuite 数据库存储测试套件
type DBStoreTestSuite struct {
	suite.Suite
	db    *gorm.DB
	store *DBStore
	ctx   context.Context
}

func (suite *DBStoreTestSuite) SetupTest() {
	// 使用内存数据库进行测试
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	suite.Require().NoError(err)

	err = db.AutoMigrate(&models.StateRecord{})
	suite.Require().NoError(err)

	suite.db = db
	suite.store = NewDBStoreWithDB(db, 3*time.Second)
	suite.ctx = context.Background()
}

func (suite *DBStoreTestSuite) TearDownTest() {
	sqlDB, _ := suite.db.DB()
	if sqlDB != nil {
		sqlDB.Close()
	}
}

// 首次读取时初始化出厂默认状态
func (suite *DBStoreTestSuite) TestLazyInit() {
	state, err := suite.store.Load(suite.ctx)
	suite.Require().NoError(err)

	suite.Equal(models.StatusSetup, state.Status)
	suite.Equal(models.ModeQuiz, state.Mode)
	suite.Empty(state.Players)
	suite.Equal("🎉 WELCOME TO THE PARTY! 🎉", state.Settings["welcomeMsg"])

	// 初始化后应有且只有一行
	var count int64
	suite.db.Model(&models.StateRecord{}).Count(&count)
	suite.Equal(int64(1), count)
}

// 更新后的状态能被下次读取看到
func (suite *DBStoreTestSuite) TestUpdatePersists() {
	newState, err := suite.store.Update(suite.ctx, func(state *models.GameState) error {
		state.Players["Alice"] = &models.PlayerRecord{}
		state.Status = models.StatusLobby
		return nil
	})
	suite.Require().NoError(err)
	suite.Contains(newState.Players, "Alice")

	loaded, err := suite.store.Load(suite.ctx)
	suite.Require().NoError(err)
	suite.Equal(models.StatusLobby, loaded.Status)
	suite.Contains(loaded.Players, "Alice")
}

// 变换函数返回错误时放弃写入
func (suite *DBStoreTestSuite) TestMutatorErrorAborts() {
	_, err := suite.store.Update(suite.ctx, func(state *models.GameState) error {
		state.Status = models.StatusFinished
		return errors.New(errors.ErrUnknownAction, "测试错误")
	})
	suite.Require().Error(err)
	suite.True(errors.Is(err, errors.ErrUnknownAction))

	loaded, err := suite.store.Load(suite.ctx)
	suite.Require().NoError(err)
	suite.Equal(models.StatusSetup, loaded.Status)
}

// 损坏的状态文档映射为明确的错误码
func (suite *DBStoreTestSuite) TestCorruptDocument() {
	record := models.StateRecord{
		ID:        models.StateRowID,
		Data:      "{不是JSON",
		UpdatedAt: time.Now(),
	}
	suite.Require().NoError(suite.db.Create(&record).Error)

	_, err := suite.store.Load(suite.ctx)
	suite.Require().Error(err)
	suite.True(errors.Is(err, errors.ErrStateCorrupt))
	suite.True(errors.IsCritical(err))
}

func TestDBStoreSuite(t *testing.T) {
	suite.Run(t, new(DBStoreTestSuite))
}

// FileStoreTestSuite 文件存储测试套件
type FileStoreTestSuite struct {
	suite.Suite
	dir   string
	store *FileStore
	ctx   context.Context
}

func (suite *FileStoreTestSuite) SetupTest() {
	suite.dir = suite.T().TempDir()

	store, err := NewFileStore(filepath.Join(suite.dir, "state.json"), 3*time.Second)
	suite.Require().NoError(err)

	suite.store = store
	suite.ctx = context.Background()
}

// 首次读取时初始化出厂默认状态并落盘
func (suite *FileStoreTestSuite) TestLazyInit() {
	state, err := suite.store.Load(suite.ctx)
	suite.Require().NoError(err)
	suite.Equal(models.StatusSetup, state.Status)

	_, err = os.Stat(filepath.Join(suite.dir, "state.json"))
	suite.NoError(err)
}

// 两个实例共享同一份文档
func (suite *FileStoreTestSuite) TestSharedDocument() {
	_, err := suite.store.Update(suite.ctx, func(state *models.GameState) error {
		state.Players["Bob"] = &models.PlayerRecord{Score: 100}
		return nil
	})
	suite.Require().NoError(err)

	other, err := NewFileStore(filepath.Join(suite.dir, "state.json"), 3*time.Second)
	suite.Require().NoError(err)

	loaded, err := other.Load(suite.ctx)
	suite.Require().NoError(err)
	suite.Equal(100, loaded.Players["Bob"].Score)
}

// 并发写入不丢更新：N个写方各投一票，总票数必须是N
func (suite *FileStoreTestSuite) TestConcurrentVotesNotLost() {
	const voters = 20

	var wg sync.WaitGroup
	errCh := make(chan error, voters)

	for i := 0; i < voters; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := suite.store.Update(suite.ctx, func(state *models.GameState) error {
				state.CurrentVotes["Alice"]++
				return nil
			})
			if err != nil {
				errCh <- err
			}
		}()
	}
	wg.Wait()
	close(errCh)

	for err := range errCh {
		suite.Require().NoError(err)
	}

	loaded, err := suite.store.Load(suite.ctx)
	suite.Require().NoError(err)
	suite.Equal(voters, loaded.CurrentVotes["Alice"])
}

// 锁被占用时在超时后返回可重试的忙碌错误
func (suite *FileStoreTestSuite) TestBusyTimeout() {
	lockPath := filepath.Join(suite.dir, "state.json.lock")
	suite.Require().NoError(os.WriteFile(lockPath, nil, 0644))
	defer os.Remove(lockPath)

	busyStore, err := NewFileStore(filepath.Join(suite.dir, "state.json"), 100*time.Millisecond)
	suite.Require().NoError(err)

	_, err = busyStore.Update(suite.ctx, func(state *models.GameState) error {
		return nil
	})
	suite.Require().Error(err)
	suite.True(errors.Is(err, errors.ErrStoreBusy))
	suite.True(errors.IsRetryable(err))
}

// 锁文件释放后写入恢复
func (suite *FileStoreTestSuite) TestLockReleasedAfterUpdate() {
	_, err := suite.store.Update(suite.ctx, func(state *models.GameState) error {
		return nil
	})
	suite.Require().NoError(err)

	// 更新完成后锁文件不应残留
	_, err = os.Stat(filepath.Join(suite.dir, "state.json.lock"))
	suite.True(os.IsNotExist(err))
}

func TestFileStoreSuite(t *testing.T) {
	suite.Run(t, new(FileStoreTestSuite))
}
