package websocket

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"github.com/wfunc/party-game/internal/models"
	"go.uber.org/zap"
)

// HubTestSuite Hub测试套件
// 不建立真实的WebSocket连接，直接驱动客户端的发送通道
type HubTestSuite struct {
	suite.Suite
	hub *Hub
}

func (suite *HubTestSuite) SetupTest() {
	suite.hub = NewHub(zap.NewNop())
	go suite.hub.Run()
}

// fakeClient 只有发送通道的客户端
func (suite *HubTestSuite) fakeClient(role string) *Client {
	return &Client{
		ID:   "test-" + role,
		Role: role,
		Hub:  suite.hub,
		Send: make(chan []byte, 16),
	}
}

// receive 从发送通道取一条消息
func (suite *HubTestSuite) receive(c *Client) *Message {
	select {
	case data := <-c.Send:
		var msg Message
		suite.NoError(json.Unmarshal(data, &msg))
		return &msg
	case <-time.After(time.Second):
		suite.FailNow("等待消息超时")
		return nil
	}
}

// 注册后收到连接确认
func (suite *HubTestSuite) TestRegisterSendsConnected() {
	client := suite.fakeClient(RolePlayer)
	suite.hub.Register(client)

	msg := suite.receive(client)
	suite.Equal(MessageTypeConnected, msg.Type)
	suite.Equal(1, suite.hub.GetOnlineCount())
}

// 状态广播推给所有角色，载荷与轮询响应同构
func (suite *HubTestSuite) TestBroadcastState() {
	display := suite.fakeClient(RoleDisplay)
	player := suite.fakeClient(RolePlayer)
	suite.hub.Register(display)
	suite.hub.Register(player)
	suite.receive(display)
	suite.receive(player)

	state := models.DefaultGameState()
	state.Status = models.StatusLobby
	suite.hub.BroadcastState(state)

	for _, c := range []*Client{display, player} {
		msg := suite.receive(c)
		suite.Equal(MessageTypeStateChanged, msg.Type)

		var payload StatePayload
		suite.NoError(json.Unmarshal(msg.Data, &payload))
		suite.Equal(models.StatusLobby, payload.State.Status)
		suite.Greater(payload.ServerTime, int64(0))
	}
}

// 注销后不再收到广播
func (suite *HubTestSuite) TestUnregister() {
	client := suite.fakeClient(RolePlayer)
	suite.hub.Register(client)
	suite.receive(client)

	suite.hub.Unregister(client)

	// 注销会关闭发送通道
	select {
	case _, ok := <-client.Send:
		suite.False(ok)
	case <-time.After(time.Second):
		suite.FailNow("发送通道未关闭")
	}
	suite.Equal(0, suite.hub.GetOnlineCount())
}

// 定向发送
func (suite *HubTestSuite) TestSendToClient() {
	client := suite.fakeClient(RoleAdmin)
	suite.hub.Register(client)
	suite.receive(client)

	err := suite.hub.SendToClient(client.ID, &Message{
		Type:      MessageTypePing,
		Timestamp: time.Now().Unix(),
	})
	suite.NoError(err)
	suite.Equal(MessageTypePing, suite.receive(client).Type)

	err = suite.hub.SendToClient("missing", &Message{Type: MessageTypePing})
	suite.ErrorIs(err, ErrClientNotFound)
}

func TestHubSuite(t *testing.T) {
	suite.Run(t, new(HubTestSuite))
}
