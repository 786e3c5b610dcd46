package errors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/suite"
)

// ErrorsTestSuite 错误包测试套件
type ErrorsTestSuite struct {
	suite.Suite
}

// 测试创建新错误
func (suite *ErrorsTestSuite) TestNew() {
	err := New(ErrInvalidParam)
	suite.NotNil(err)
	suite.Equal(ErrInvalidParam, err.Code)
	suite.Equal("无效的参数", err.Message)
	suite.Empty(err.Details)

	// 带详情的错误
	err = New(ErrPlayerNotFound, "玩家Alice不存在")
	suite.Equal(ErrPlayerNotFound, err.Code)
	suite.Equal("玩家不存在", err.Message)
	suite.Equal("玩家Alice不存在", err.Details)

	// 多个详情
	err = New(ErrStoreConnect, "连接失败", "驱动: sqlite")
	suite.Equal("连接失败; 驱动: sqlite", err.Details)
}

// 测试格式化错误创建
func (suite *ErrorsTestSuite) TestNewf() {
	err := Newf(ErrInvalidParam, "字段 %s 缺失", "name")
	suite.Equal(ErrInvalidParam, err.Code)
	suite.Equal("字段 name 缺失", err.Details)
}

// 测试错误包装
func (suite *ErrorsTestSuite) TestWrap() {
	originalErr := errors.New("原始错误")
	wrappedErr := Wrap(originalErr, ErrPersistence)
	suite.NotNil(wrappedErr)
	suite.Equal(ErrPersistence, wrappedErr.Code)
	suite.Equal("原始错误", wrappedErr.Details)
	suite.Equal(originalErr, wrappedErr.Cause)

	// 包装nil错误
	suite.Nil(Wrap(nil, ErrUnknown))

	// 包装已有的AppError保留原始错误码
	appErr := New(ErrStoreBusy, "锁竞争")
	wrappedAppErr := Wrap(appErr, ErrInvalidParam, "额外信息")
	suite.Equal(ErrStoreBusy, wrappedAppErr.Code)
	suite.Contains(wrappedAppErr.Details, "额外信息")
}

// 测试错误码判断
func (suite *ErrorsTestSuite) TestIs() {
	err := New(ErrStoreBusy)
	suite.True(Is(err, ErrStoreBusy))
	suite.False(Is(err, ErrPersistence))
	suite.False(Is(nil, ErrStoreBusy))

	standardErr := errors.New("标准错误")
	suite.False(Is(standardErr, ErrUnknown))
}

// 测试获取错误码
func (suite *ErrorsTestSuite) TestGetCode() {
	appErr := New(ErrTokenExpired)
	suite.Equal(ErrTokenExpired, GetCode(appErr))

	standardErr := errors.New("标准错误")
	suite.Equal(ErrUnknown, GetCode(standardErr))

	suite.Equal(ErrorCode(0), GetCode(nil))
}

// 测试错误消息
func (suite *ErrorsTestSuite) TestError() {
	err := &AppError{
		Code:    ErrStateMissing,
		Message: "状态文档不存在",
	}
	suite.Equal("[5004] 状态文档不存在", err.Error())

	err.Details = "首次访问"
	suite.Equal("[5004] 状态文档不存在: 首次访问", err.Error())
}

// 测试HTTP状态码映射
func (suite *ErrorsTestSuite) TestHTTPStatus() {
	testCases := []struct {
		code     ErrorCode
		expected int
	}{
		{ErrInvalidParam, 400},
		{ErrUnknownAction, 400},
		{ErrPlayerNotFound, 404},
		{ErrPermissionDenied, 403},
		{ErrAuthentication, 401},
		{ErrTokenExpired, 401},
		{ErrGameFinished, 409},
		{ErrStoreBusy, 503},
		{ErrPersistence, 500},
		{ErrUnknown, 500},
	}

	for _, tc := range testCases {
		err := New(tc.code)
		suite.Equal(tc.expected, err.HTTPStatus(), "错误码 %d 应该返回HTTP状态码 %d", tc.code, tc.expected)
	}
}

// 测试可重试判断
// StoreBusy必须可重试：参与者动作在忙碌响应后由调用方安全重试
func (suite *ErrorsTestSuite) TestIsRetryable() {
	retryable := []ErrorCode{
		ErrTimeout,
		ErrStoreBusy,
		ErrStoreConnect,
		ErrFetchFailed,
		ErrConnectionLost,
	}
	for _, code := range retryable {
		suite.True(IsRetryable(New(code)), "错误码 %d 应该是可重试的", code)
	}

	nonRetryable := []ErrorCode{
		ErrInvalidParam,
		ErrPersistence,
		ErrPermissionDenied,
	}
	for _, code := range nonRetryable {
		suite.False(IsRetryable(New(code)), "错误码 %d 不应该是可重试的", code)
	}

	suite.False(IsRetryable(nil))
}

// 测试严重错误判断
func (suite *ErrorsTestSuite) TestIsCritical() {
	suite.True(IsCritical(New(ErrStoreConnect)))
	suite.True(IsCritical(New(ErrConfigLoad)))
	suite.True(IsCritical(New(ErrStateCorrupt)))
	suite.False(IsCritical(New(ErrStoreBusy)))
	suite.False(IsCritical(nil))
}

// 测试调用栈捕获
func (suite *ErrorsTestSuite) TestStackCapture() {
	err := New(ErrUnknown)
	suite.Greater(len(err.Stack), 0)
	suite.NotEmpty(err.GetStack())
}

// 测试错误响应
func (suite *ErrorsTestSuite) TestErrorResponse() {
	err := New(ErrStoreBusy, "锁等待超时")
	response := NewErrorResponse(err, "req-123")

	suite.False(response.Success)
	suite.Equal(err, response.Error)
	suite.Equal("req-123", response.RequestID)
	suite.Greater(response.Timestamp, int64(0))
}

// 测试未知错误码
func (suite *ErrorsTestSuite) TestUnknownErrorCode() {
	err := New(ErrorCode(99999))
	suite.Equal(ErrorCode(99999), err.Code)
	suite.Equal("未知错误", err.Message)
}

func TestErrorsSuite(t *testing.T) {
	suite.Run(t, new(ErrorsTestSuite))
}
