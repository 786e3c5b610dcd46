package store

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"strings"
	"time"

	"github.com/wfunc/party-game/internal/config"
	"github.com/wfunc/party-game/internal/database"
	"github.com/wfunc/party-game/internal/errors"
	"github.com/wfunc/party-game/internal/logger"
	"github.com/wfunc/party-game/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DBStore 数据库存储后端
// 状态文档整体序列化后存在单行表里，写入通过事务内的行锁串行化
type DBStore struct {
	db          *gorm.DB
	lockTimeout time.Duration
	ownsConn    bool
}

// NewDBStore 创建数据库存储（使用全局数据库连接）
func NewDBStore(cfg *config.StoreConfig) (*DBStore, error) {
	if err := database.Init(cfg); err != nil {
		return nil, errors.Wrap(err, errors.ErrStoreConnect)
	}

	if cfg.AutoMigrate {
		if err := database.AutoMigrate(); err != nil {
			return nil, errors.Wrap(err, errors.ErrStoreConnect, "迁移状态表失败")
		}
	}

	return &DBStore{
		db:          database.GetDB(),
		lockTimeout: cfg.LockTimeout,
		ownsConn:    true,
	}, nil
}

// NewDBStoreWithDB 使用已有连接创建数据库存储（测试用）
func NewDBStoreWithDB(db *gorm.DB, lockTimeout time.Duration) *DBStore {
	return &DBStore{
		db:          db,
		lockTimeout: lockTimeout,
	}
}

// Load 读取当前状态，首次访问时写入出厂默认状态
func (s *DBStore) Load(ctx context.Context) (*models.GameState, error) {
	var state *models.GameState

	// 初始化也需要独占访问，复用读改写流程（fn不做修改）
	start := time.Now()
	err := s.withExclusiveRow(ctx, func(tx *gorm.DB, record *models.StateRecord) error {
		var err error
		state, err = decodeState(record.Data)
		return err
	})
	logger.LogStoreOperation("load", "db", time.Since(start), err)

	if err != nil {
		return nil, err
	}
	return state, nil
}

// Update 独占读改写
func (s *DBStore) Update(ctx context.Context, fn Mutator) (*models.GameState, error) {
	var result *models.GameState

	start := time.Now()
	err := s.withExclusiveRow(ctx, func(tx *gorm.DB, record *models.StateRecord) error {
		state, err := decodeState(record.Data)
		if err != nil {
			return err
		}

		if err := fn(state); err != nil {
			return err
		}

		data, err := json.Marshal(state)
		if err != nil {
			return errors.Wrap(err, errors.ErrPersistence, "序列化状态失败")
		}

		record.Data = string(data)
		record.UpdatedAt = time.Now()
		if err := tx.Save(record).Error; err != nil {
			return errors.Wrap(err, errors.ErrPersistence)
		}

		result = state
		return nil
	})
	logger.LogStoreOperation("update", "db", time.Since(start), err)

	if err != nil {
		return nil, err
	}
	return result, nil
}

// Close 释放连接（仅当连接由本实例创建时）
func (s *DBStore) Close() error {
	if s.ownsConn {
		return database.Close()
	}
	return nil
}

// withExclusiveRow 在事务内锁住状态行并执行fn
// 行不存在时先写入默认状态，锁等待超时映射为ErrStoreBusy
func (s *DBStore) withExclusiveRow(ctx context.Context, fn func(tx *gorm.DB, record *models.StateRecord) error) error {
	lockCtx := ctx
	if s.lockTimeout > 0 {
		var cancel context.CancelFunc
		lockCtx, cancel = context.WithTimeout(ctx, s.lockTimeout)
		defer cancel()
	}

	err := s.db.WithContext(lockCtx).Transaction(func(tx *gorm.DB) error {
		var record models.StateRecord
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", models.StateRowID).
			First(&record).Error

		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			// 首次访问：写入出厂默认状态
			data, merr := json.Marshal(models.DefaultGameState())
			if merr != nil {
				return errors.Wrap(merr, errors.ErrPersistence, "序列化默认状态失败")
			}
			record = models.StateRecord{
				ID:        models.StateRowID,
				Data:      string(data),
				UpdatedAt: time.Now(),
			}
			if cerr := tx.Create(&record).Error; cerr != nil {
				return errors.Wrap(cerr, errors.ErrPersistence, "初始化状态文档失败")
			}
		} else if err != nil {
			return mapLockError(err)
		}

		return fn(tx, &record)
	})

	return mapLockError(err)
}

// decodeState 反序列化状态文档
func decodeState(data string) (*models.GameState, error) {
	state := &models.GameState{}
	if err := json.Unmarshal([]byte(data), state); err != nil {
		return nil, errors.Wrap(err, errors.ErrStateCorrupt)
	}
	state.EnsureMaps()
	return state, nil
}

// mapLockError 把驱动层的锁竞争错误映射为可重试的ErrStoreBusy
func mapLockError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := err.(*errors.AppError); ok {
		return err
	}

	if stderrors.Is(err, context.DeadlineExceeded) {
		return errors.Wrap(err, errors.ErrStoreBusy, "等待状态行锁超时")
	}

	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "database is locked") || // sqlite
		strings.Contains(msg, "lock wait timeout") || // mysql
		strings.Contains(msg, "could not obtain lock") { // postgres
		return errors.Wrap(err, errors.ErrStoreBusy)
	}

	return errors.Wrap(err, errors.ErrTransaction)
}
