package monitor

import (
	"time"

	"darklake-client/internal/trade"
)

// EventType 表示事件类型。
type EventType string

const (
	EventSubmission EventType = "submission"
	EventStatus     EventType = "status"
	EventResult     EventType = "result"
	EventError      EventType = "error"
)

// Event 为一条交易事件记录。
type Event struct {
	ID        int64       `json:"id,omitempty"`
	Type      EventType   `json:"type"`
	TradeID   string      `json:"trade_id,omitempty"`
	Status    string      `json:"status,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// Filter 为事件查询条件，零值字段不参与过滤。
type Filter struct {
	TradeID string
	Type    EventType
	Limit   int
}

// SubmissionPayload 记录提交结果。
type SubmissionPayload struct {
	Response trade.SubmitResponse `json:"response"`
}

// StatusPayload 记录单次状态观测。
type StatusPayload struct {
	Outcome trade.Outcome `json:"outcome"`
}

// ResultPayload 记录一次生命周期的最终结果。
type ResultPayload struct {
	Outcome trade.Outcome `json:"outcome"`
	Kind    string        `json:"kind"`
	Error   string        `json:"error,omitempty"`
}

// ErrorPayload 记录异常。
type ErrorPayload struct {
	Message string                 `json:"message"`
	Error   string                 `json:"error"`
	Context map[string]interface{} `json:"context,omitempty"`
}
