package monitor

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"darklake-client/internal/lifecycle"
	"darklake-client/internal/store"
	"darklake-client/internal/trade"
)

const (
	defaultListLimit = 100
	maxListLimit     = 1000
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS trade_events (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	event_type TEXT NOT NULL,
	trade_id TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL DEFAULT '',
	payload TEXT NOT NULL,
	created_at TEXT NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS idx_trade_events_trade ON trade_events(trade_id, id)`,
	`CREATE INDEX IF NOT EXISTS idx_trade_events_type ON trade_events(event_type)`,
}

// Service 负责把交易事件写入事件库。
type Service struct {
	db     *sql.DB
	logger *zap.Logger
	now    func() time.Time
}

// NewService 初始化事件服务并创建表结构。
func NewService(ctx context.Context, st *store.Store, logger *zap.Logger) (*Service, error) {
	if st == nil {
		return nil, fmt.Errorf("monitor: store 不能为空")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	if err := st.Migrate(ctx, schema...); err != nil {
		return nil, fmt.Errorf("monitor: 初始化表失败: %w", err)
	}

	return &Service{
		db:     st.DB(),
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}, nil
}

// Record 写入单个事件。
func (s *Service) Record(ctx context.Context, event Event) error {
	payload, err := json.Marshal(event.Payload)
	if err != nil {
		return fmt.Errorf("monitor: 序列化事件失败: %w", err)
	}

	if event.Timestamp.IsZero() {
		event.Timestamp = s.now()
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO trade_events (event_type, trade_id, status, payload, created_at) VALUES (?, ?, ?, ?, ?)`,
		string(event.Type), event.TradeID, event.Status, string(payload), event.Timestamp.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("monitor: 写入事件失败: %w", err)
	}

	return nil
}

// RecordSubmission 记录提交结果。
func (s *Service) RecordSubmission(ctx context.Context, resp trade.SubmitResponse) {
	status := "accepted"
	if !resp.Success {
		status = "rejected"
	}
	if err := s.Record(ctx, Event{
		Type:    EventSubmission,
		TradeID: resp.TradeID,
		Status:  status,
		Payload: SubmissionPayload{Response: resp},
	}); err != nil {
		s.logger.Warn("记录提交事件失败", zap.String("trade_id", resp.TradeID), zap.Error(err))
	}
}

// RecordStatus 记录单次状态观测。
func (s *Service) RecordStatus(ctx context.Context, outcome trade.Outcome) {
	if err := s.Record(ctx, Event{
		Type:      EventStatus,
		TradeID:   outcome.TradeID,
		Status:    outcome.Status.String(),
		Timestamp: outcome.ObservedAt,
		Payload:   StatusPayload{Outcome: outcome},
	}); err != nil {
		s.logger.Warn("记录状态事件失败", zap.String("trade_id", outcome.TradeID), zap.Error(err))
	}
}

// RecordResult 记录一次生命周期的最终结果，err 为驱动返回的错误。
func (s *Service) RecordResult(ctx context.Context, tradeID string, outcome trade.Outcome, err error) {
	payload := ResultPayload{Outcome: outcome, Kind: ResultKind(err)}
	status := outcome.Status.String()
	if err != nil {
		payload.Error = err.Error()
		status = payload.Kind
	}
	if outcome.TradeID == "" {
		payload.Outcome.TradeID = tradeID
	}

	if recErr := s.Record(ctx, Event{
		Type:    EventResult,
		TradeID: tradeID,
		Status:  status,
		Payload: payload,
	}); recErr != nil {
		s.logger.Warn("记录结果事件失败", zap.String("trade_id", tradeID), zap.Error(recErr))
	}
}

// RecordError 记录异常。
func (s *Service) RecordError(ctx context.Context, tradeID, msg string, err error, ctxMap map[string]interface{}) {
	payload := ErrorPayload{
		Message: msg,
		Error:   err.Error(),
		Context: ctxMap,
	}
	if recErr := s.Record(ctx, Event{
		Type:    EventError,
		TradeID: tradeID,
		Payload: payload,
	}); recErr != nil {
		s.logger.Warn("记录异常事件失败", zap.Error(recErr))
	}
}

// ResultKind 把驱动错误归类为稳定的短标签。
func ResultKind(err error) string {
	switch {
	case err == nil:
		return "terminal"
	case errors.Is(err, lifecycle.ErrAttemptsExhausted):
		return "exhausted"
	case errors.Is(err, lifecycle.ErrDeliveryClosed):
		return "delivery_closed"
	case errors.Is(err, lifecycle.ErrSubmissionRejected):
		return "rejected"
	case errors.Is(err, lifecycle.ErrTransport):
		return "transport"
	case errors.Is(err, lifecycle.ErrInvalidRequest):
		return "invalid_request"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	default:
		return "unknown"
	}
}

// ListEvents 按条件检索事件，按写入顺序倒序返回。
func (s *Service) ListEvents(ctx context.Context, filter Filter) ([]Event, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	query := `SELECT id, event_type, trade_id, status, payload, created_at FROM trade_events WHERE 1 = 1`
	args := make([]interface{}, 0, 3)
	if filter.Type != "" {
		query += ` AND event_type = ?`
		args = append(args, string(filter.Type))
	}
	if filter.TradeID != "" {
		query += ` AND trade_id = ?`
		args = append(args, filter.TradeID)
	}
	query += ` ORDER BY id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("monitor: 查询事件失败: %w", err)
	}
	defer rows.Close()

	events := make([]Event, 0)
	for rows.Next() {
		var (
			ev      Event
			typ     string
			payload string
			created string
		)
		if scanErr := rows.Scan(&ev.ID, &typ, &ev.TradeID, &ev.Status, &payload, &created); scanErr != nil {
			return nil, fmt.Errorf("monitor: 解析事件失败: %w", scanErr)
		}

		ts, parseErr := time.Parse(time.RFC3339Nano, created)
		if parseErr != nil {
			s.logger.Warn("事件时间格式异常", zap.Int64("id", ev.ID), zap.String("created_at", created))
		}

		ev.Type = EventType(typ)
		ev.Timestamp = ts
		ev.Payload = json.RawMessage(payload)
		events = append(events, ev)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("monitor: 读取事件失败: %w", err)
	}

	return events, nil
}
