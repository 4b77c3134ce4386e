package lifecycle

import (
	"errors"
	"fmt"
	"strings"

	"darklake-client/internal/trade"
)

var (
	// ErrTransport 表示 RPC 调用本身失败，核心不做重试。
	ErrTransport = errors.New("lifecycle: transport failure")
	// ErrDeliveryClosed 表示事件接收方已关闭。
	ErrDeliveryClosed = errors.New("lifecycle: sink closed")
	// ErrAttemptsExhausted 表示达到最大尝试次数时交易仍未进入终态。
	ErrAttemptsExhausted = errors.New("lifecycle: attempts exhausted")
	// ErrSubmissionRejected 表示服务端拒绝了签名交易。
	ErrSubmissionRejected = errors.New("lifecycle: submission rejected")
	// ErrInvalidRequest 表示调用参数缺失。
	ErrInvalidRequest = errors.New("lifecycle: invalid request")
)

// TransportError 包装 RPC 协作方返回的错误。
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("lifecycle: %s 调用失败: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

func (e *TransportError) Is(target error) bool { return target == ErrTransport }

// DeliveryError 记录无法投递的事件种类。
type DeliveryError struct {
	Event string
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("lifecycle: %s 事件投递失败: 接收方已关闭", e.Event)
}

func (e *DeliveryError) Is(target error) bool { return target == ErrDeliveryClosed }

// ExhaustedError 携带最后一次非终态观测。
type ExhaustedError struct {
	Attempts int
	Last     trade.Outcome
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("lifecycle: 交易 %s 在 %d 次查询后仍处于 %s", e.Last.TradeID, e.Attempts, e.Last.Status)
}

func (e *ExhaustedError) Is(target error) bool { return target == ErrAttemptsExhausted }

// RejectedError 表示提交返回 success=false。
type RejectedError struct {
	TradeID string
	Logs    []string
}

func (e *RejectedError) Error() string {
	if len(e.Logs) == 0 {
		return fmt.Sprintf("lifecycle: 交易 %s 提交被拒绝", e.TradeID)
	}
	return fmt.Sprintf("lifecycle: 交易 %s 提交被拒绝: %s", e.TradeID, strings.Join(e.Logs, "; "))
}

func (e *RejectedError) Is(target error) bool { return target == ErrSubmissionRejected }

func deliveryError(event string, err error) error {
	if errors.Is(err, ErrDeliveryClosed) {
		return &DeliveryError{Event: event}
	}
	return err
}
