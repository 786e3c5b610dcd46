package store

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/wfunc/party-game/internal/errors"
	"github.com/wfunc/party-game/internal/logger"
	"github.com/wfunc/party-game/internal/models"
	"go.uber.org/zap"
)

// 锁文件轮询间隔与过期阈值
const (
	lockPollInterval = 20 * time.Millisecond
	lockStaleAfter   = 30 * time.Second
)

// FileStore 文件存储后端
// 状态文档是一个JSON文件，独占访问通过旁边的锁文件实现：
// O_CREATE|O_EXCL创建成功即持有锁，失败则轮询等待直到超时
type FileStore struct {
	path        string
	lockPath    string
	lockTimeout time.Duration
}

// NewFileStore 创建文件存储
func NewFileStore(path string, lockTimeout time.Duration) (*FileStore, error) {
	if path == "" {
		return nil, errors.New(errors.ErrStoreConnect, "状态文件路径为空")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, errors.Wrap(err, errors.ErrStoreConnect)
	}

	return &FileStore{
		path:        path,
		lockPath:    path + ".lock",
		lockTimeout: lockTimeout,
	}, nil
}

// Load 读取当前状态，文件不存在时写入出厂默认状态
func (s *FileStore) Load(ctx context.Context) (*models.GameState, error) {
	var state *models.GameState

	start := time.Now()
	err := s.withLock(ctx, func() error {
		var err error
		state, err = s.readOrInit()
		return err
	})
	logger.LogStoreOperation("load", "file", time.Since(start), err)

	if err != nil {
		return nil, err
	}
	return state, nil
}

// Update 独占读改写
func (s *FileStore) Update(ctx context.Context, fn Mutator) (*models.GameState, error) {
	var result *models.GameState

	start := time.Now()
	err := s.withLock(ctx, func() error {
		state, err := s.readOrInit()
		if err != nil {
			return err
		}

		if err := fn(state); err != nil {
			return err
		}

		if err := s.write(state); err != nil {
			return err
		}

		result = state
		return nil
	})
	logger.LogStoreOperation("update", "file", time.Since(start), err)

	if err != nil {
		return nil, err
	}
	return result, nil
}

// Close 文件存储无持久资源
func (s *FileStore) Close() error {
	return nil
}

// withLock 持有锁文件执行fn，等待超时返回ErrStoreBusy
func (s *FileStore) withLock(ctx context.Context, fn func() error) error {
	lockFile, err := s.acquireLock(ctx)
	if err != nil {
		return err
	}
	defer s.releaseLock(lockFile)

	return fn()
}

// acquireLock 获取锁文件（独占模式），轮询直到超时
func (s *FileStore) acquireLock(ctx context.Context) (*os.File, error) {
	deadline := time.Now().Add(s.lockTimeout)

	for {
		lockFile, err := os.OpenFile(s.lockPath, os.O_CREATE|os.O_EXCL|os.O_RDWR, 0644)
		if err == nil {
			return lockFile, nil
		}
		if !os.IsExist(err) {
			return nil, errors.Wrap(err, errors.ErrStoreConnect)
		}

		// 持锁进程崩溃会留下孤儿锁文件，过期后清掉
		if info, serr := os.Stat(s.lockPath); serr == nil {
			if time.Since(info.ModTime()) > lockStaleAfter {
				logger.Warn("状态锁文件过期，尝试删除", zap.String("lock", s.lockPath))
				os.Remove(s.lockPath)
				continue
			}
		}

		if time.Now().After(deadline) {
			return nil, errors.New(errors.ErrStoreBusy, "等待状态锁文件超时")
		}

		select {
		case <-ctx.Done():
			return nil, errors.Wrap(ctx.Err(), errors.ErrStoreBusy, "等待状态锁时请求被取消")
		case <-time.After(lockPollInterval):
		}
	}
}

// releaseLock 释放锁文件
func (s *FileStore) releaseLock(lockFile *os.File) {
	if lockFile == nil {
		return
	}
	lockFile.Close()
	os.Remove(s.lockPath)
}

// readOrInit 读取状态文件，不存在时初始化默认状态
// 调用方必须已持有锁
func (s *FileStore) readOrInit() (*models.GameState, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		state := models.DefaultGameState()
		if werr := s.write(state); werr != nil {
			return nil, werr
		}
		return state, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrPersistence, "读取状态文件失败")
	}

	return decodeState(string(data))
}

// write 原子写入：先写临时文件再改名
func (s *FileStore) write(state *models.GameState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return errors.Wrap(err, errors.ErrPersistence, "序列化状态失败")
	}

	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return errors.Wrap(err, errors.ErrPersistence)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		return errors.Wrap(err, errors.ErrPersistence)
	}

	return nil
}
