package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/wfunc/party-game/internal/config"
	"github.com/wfunc/party-game/internal/errors"
	"github.com/wfunc/party-game/internal/game"
	"github.com/wfunc/party-game/internal/logger"
	"github.com/wfunc/party-game/internal/models"
	"go.uber.org/zap"
)

// Client 游戏服务HTTP客户端
// 实现sync.Fetcher，同时提供玩家动作和管理员写入
type Client struct {
	baseURL    string
	httpClient *http.Client
	token      string
	logger     *zap.Logger
}

// stateEnvelope 状态读取响应
type stateEnvelope struct {
	State      *models.GameState `json:"state"`
	ServerTime int64             `json:"serverTime"`
}

// mutationEnvelope 状态写入响应
type mutationEnvelope struct {
	Success  bool              `json:"success"`
	NewState *models.GameState `json:"newState"`
}

// errorEnvelope 错误响应
type errorEnvelope struct {
	Code      int    `json:"code"`
	Message   string `json:"message"`
	Details   string `json:"details"`
	Retryable bool   `json:"retryable"`
}

// loginEnvelope 登录响应
type loginEnvelope struct {
	Token     string `json:"token"`
	ExpiresIn int64  `json:"expires_in"`
}

// New 创建客户端
func New(baseURL string, cfg *config.SyncConfig) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: cfg.RequestTimeout,
		},
		logger: logger.GetModuleLogger("client"),
	}
}

// FetchState 拉取状态文档和服务器时钟
func (c *Client) FetchState(ctx context.Context) (*models.GameState, int64, error) {
	var envelope stateEnvelope
	if err := c.do(ctx, http.MethodGet, "/api/v1/state", nil, &envelope); err != nil {
		if appErr, ok := err.(*errors.AppError); ok {
			return nil, 0, appErr
		}
		return nil, 0, errors.Wrap(err, errors.ErrFetchFailed)
	}

	if envelope.State == nil {
		return nil, 0, errors.New(errors.ErrFetchFailed, "响应缺少状态文档")
	}

	envelope.State.EnsureMaps()
	return envelope.State, envelope.ServerTime, nil
}

// SendAction 提交玩家动作，返回动作后的最新状态
func (c *Client) SendAction(ctx context.Context, action *game.Action) (*models.GameState, error) {
	var envelope mutationEnvelope
	if err := c.do(ctx, http.MethodPost, "/api/v1/actions", action, &envelope); err != nil {
		return nil, err
	}
	return envelope.NewState, nil
}

// Join 加入游戏
func (c *Client) Join(ctx context.Context, name string) (*models.GameState, error) {
	return c.SendAction(ctx, &game.Action{
		Action: game.ActionJoin,
		Data:   game.ActionData{Name: name},
	})
}

// Vote 投票
func (c *Client) Vote(ctx context.Context, votedPerson string) (*models.GameState, error) {
	return c.SendAction(ctx, &game.Action{
		Action: game.ActionVote,
		Data:   game.ActionData{VotedPerson: votedPerson},
	})
}

// SubmitScore 提交本轮得分
func (c *Client) SubmitScore(ctx context.Context, player string, points int) (*models.GameState, error) {
	return c.SendAction(ctx, &game.Action{
		Action: game.ActionScore,
		Data:   game.ActionData{Player: player, Points: points},
	})
}

// Login 管理员登录，成功后令牌用于后续写入
func (c *Client) Login(ctx context.Context, username, password string) error {
	body := map[string]string{
		"username": username,
		"password": password,
	}

	var envelope loginEnvelope
	if err := c.do(ctx, http.MethodPost, "/api/v1/auth/login", body, &envelope); err != nil {
		return err
	}

	c.token = envelope.Token
	c.logger.Info("管理员登录成功", zap.String("username", username))
	return nil
}

// ReplaceState 整文档替换（需要先登录）
func (c *Client) ReplaceState(ctx context.Context, state *models.GameState) (*models.GameState, error) {
	if c.token == "" {
		return nil, errors.New(errors.ErrAuthentication, "未登录")
	}

	var envelope mutationEnvelope
	if err := c.do(ctx, http.MethodPut, "/api/v1/state", state, &envelope); err != nil {
		return nil, err
	}
	return envelope.NewState, nil
}

// do 执行一次请求并解析响应
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return errors.Wrap(err, errors.ErrMessageFormat)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return errors.Wrap(err, errors.ErrFetchFailed)
	}

	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrap(err, errors.ErrFetchFailed)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(err, errors.ErrFetchFailed)
	}

	if resp.StatusCode >= 400 {
		return c.decodeError(resp.StatusCode, data)
	}

	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return errors.Wrap(err, errors.ErrMessageFormat)
		}
	}
	return nil
}

// decodeError 把服务端错误响应还原为应用错误
func (c *Client) decodeError(status int, data []byte) error {
	var envelope errorEnvelope
	if err := json.Unmarshal(data, &envelope); err == nil && envelope.Code != 0 {
		return errors.New(errors.ErrorCode(envelope.Code), envelope.Details)
	}

	// 认证中间件用字符串错误码，按HTTP状态归类
	switch status {
	case http.StatusUnauthorized:
		return errors.New(errors.ErrAuthentication)
	case http.StatusForbidden:
		return errors.New(errors.ErrPermissionDenied)
	default:
		return errors.Newf(errors.ErrFetchFailed, "http %d: %s", status, truncate(data, 200))
	}
}

func truncate(data []byte, limit int) string {
	if len(data) <= limit {
		return string(data)
	}
	return fmt.Sprintf("%s...", data[:limit])
}
