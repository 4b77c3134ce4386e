package lifecycle

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"darklake-client/internal/metrics"
	"darklake-client/internal/trade"
)

const (
	// DefaultInterval 为两次状态查询之间的默认间隔。
	DefaultInterval = 500 * time.Millisecond
	// Unbounded 表示不限制查询次数。
	Unbounded = -1
)

// StatusChecker 由 RPC 协作方实现，需支持并发调用。
type StatusChecker interface {
	CheckTradeStatus(ctx context.Context, req trade.StatusRequest) (trade.Outcome, error)
}

// PollConfig 控制轮询节奏。
type PollConfig struct {
	Interval    time.Duration       // 0 表示不等待直接下一次查询
	MaxAttempts int                 // <0 不限；0 表示首次非终态即耗尽
	StatusSink  Sink[trade.Outcome] // 可选，每次观测都会投递
}

// DefaultPollConfig 返回默认配置：500ms 间隔，不限次数，无状态 Sink。
func DefaultPollConfig() PollConfig {
	return PollConfig{
		Interval:    DefaultInterval,
		MaxAttempts: Unbounded,
	}
}

// Poller 反复查询交易状态直到终态。
type Poller struct {
	checker StatusChecker
	logger  *zap.Logger
	metrics *metrics.Collector
	now     func() time.Time
}

// NewPoller 创建轮询器，collector 可为 nil。
func NewPoller(checker StatusChecker, collector *metrics.Collector, logger *zap.Logger) *Poller {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Poller{
		checker: checker,
		logger:  logger,
		metrics: collector,
		now:     time.Now,
	}
}

// Poll 查询状态直至终态、次数耗尽、Sink 关闭或 ctx 取消。
func (p *Poller) Poll(ctx context.Context, req trade.StatusRequest, cfg PollConfig) (trade.Outcome, error) {
	if req.TradeID == "" {
		return trade.Outcome{}, ErrInvalidRequest
	}

	logger := p.logger.With(
		zap.String("trade_id", req.TradeID),
		zap.String("tracking_id", req.TrackingID),
	)

	sinkDone := doneOf(cfg.StatusSink)

	attempt := 0
	for {
		if err := ctx.Err(); err != nil {
			p.metrics.ObservePollResult(resultLabel(err))
			return trade.Outcome{}, err
		}
		if attempt > 0 && isClosed(sinkDone) {
			p.metrics.ObservePollResult("delivery_closed")
			logger.Warn("状态事件接收方已关闭，停止轮询", zap.Int("attempt", attempt))
			return trade.Outcome{}, &DeliveryError{Event: "status"}
		}

		start := p.now()
		outcome, err := p.checker.CheckTradeStatus(ctx, req)
		if err != nil {
			// 宿主取消时 gRPC 返回的是 status 错误，需还原为 ctx 错误
			if ctxErr := ctx.Err(); ctxErr != nil {
				p.metrics.ObservePollResult(resultLabel(ctxErr))
				logger.Info("轮询已被取消", zap.Int("attempt", attempt), zap.Error(ctxErr))
				return trade.Outcome{}, ctxErr
			}
			p.metrics.ObservePollResult("transport_error")
			logger.Warn("查询交易状态失败", zap.Int("attempt", attempt), zap.Error(err))
			return trade.Outcome{}, &TransportError{Op: "check_trade_status", Err: err}
		}
		p.metrics.ObserveStatusCheck(outcome.Status.String(), p.now().Sub(start))

		if outcome.TradeID == "" {
			outcome.TradeID = req.TradeID
		}
		outcome.Attempt = attempt
		if outcome.ObservedAt.IsZero() {
			outcome.ObservedAt = p.now().UTC()
		}

		logger.Debug("交易状态",
			zap.Int("attempt", attempt),
			zap.Stringer("status", outcome.Status),
		)

		if cfg.StatusSink != nil {
			if err := p.deliver(ctx, cfg.StatusSink, outcome); err != nil {
				p.metrics.ObservePollResult(resultLabel(err))
				logger.Warn("状态事件投递失败", zap.Int("attempt", attempt), zap.Error(err))
				return trade.Outcome{}, err
			}
		}

		if outcome.Status.IsTerminal() {
			p.metrics.ObservePollResult("terminal")
			logger.Info("交易进入终态",
				zap.Stringer("status", outcome.Status),
				zap.Int("checks", attempt+1),
			)
			return outcome, nil
		}

		if cfg.MaxAttempts >= 0 && attempt >= cfg.MaxAttempts {
			p.metrics.ObservePollResult("exhausted")
			logger.Warn("轮询次数耗尽",
				zap.Int("max_attempts", cfg.MaxAttempts),
				zap.Stringer("status", outcome.Status),
			)
			return trade.Outcome{}, &ExhaustedError{Attempts: attempt + 1, Last: outcome}
		}

		attempt++
		if err := wait(ctx, cfg.Interval, sinkDone); err != nil {
			p.metrics.ObservePollResult(resultLabel(err))
			if errors.Is(err, ErrDeliveryClosed) {
				logger.Warn("状态事件接收方已关闭，停止轮询", zap.Int("attempt", attempt))
			}
			return trade.Outcome{}, err
		}
	}
}

func (p *Poller) deliver(ctx context.Context, sink Sink[trade.Outcome], outcome trade.Outcome) error {
	start := p.now()
	err := sink.Deliver(ctx, outcome)
	p.metrics.ObserveDelivery(p.now().Sub(start))
	return deliveryError("status", err)
}

// wait 等待间隔；接收方在等待期间关闭时立即返回。
func wait(ctx context.Context, d time.Duration, sinkDone <-chan struct{}) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-sinkDone:
		return &DeliveryError{Event: "status"}
	case <-timer.C:
		return nil
	}
}

// doneOf 返回 Sink 的关闭信号，不支持时返回 nil（永不就绪）。
func doneOf[T any](sink Sink[T]) <-chan struct{} {
	if d, ok := sink.(interface{ Done() <-chan struct{} }); ok {
		return d.Done()
	}
	return nil
}

func isClosed(done <-chan struct{}) bool {
	if done == nil {
		return false
	}
	select {
	case <-done:
		return true
	default:
		return false
	}
}

func resultLabel(err error) string {
	switch {
	case errors.Is(err, ErrDeliveryClosed):
		return "delivery_closed"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "error"
	}
}
