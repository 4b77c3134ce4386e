package lifecycle

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"darklake-client/internal/metrics"
	"darklake-client/internal/trade"
)

// Submitter 由 RPC 协作方实现，提交钱包签名后的交易。
type Submitter interface {
	SendSignedTransaction(ctx context.Context, req trade.SubmitRequest) (trade.SubmitResponse, error)
}

// Service 为 Lifecycle 依赖的远端服务。
type Service interface {
	Submitter
	StatusChecker
}

// SubmitAndPollRequest 描述一次“提交并等待终态”。
type SubmitAndPollRequest struct {
	SignedTransaction string
	TradeID           string
	TrackingID        string                     // 为空时自动生成，提交与查询共用
	SubmissionSink    Sink[trade.SubmitResponse] // 必填
	Poll              PollConfig
}

// Driver 抽象生命周期驱动，方便替换实现。
type Driver interface {
	PollTradeStatus(ctx context.Context, req trade.StatusRequest, cfg PollConfig) (trade.Outcome, error)
	SubmitAndPoll(ctx context.Context, req SubmitAndPollRequest) (trade.Outcome, error)
}

var _ Driver = (*Lifecycle)(nil)

// Lifecycle 串联提交、事件投递与状态轮询。
type Lifecycle struct {
	service Service
	poller  *Poller
	metrics *metrics.Collector
	logger  *zap.Logger
}

// New 创建生命周期驱动。
func New(service Service, collector *metrics.Collector, logger *zap.Logger) *Lifecycle {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Lifecycle{
		service: service,
		poller:  NewPoller(service, collector, logger),
		metrics: collector,
		logger:  logger,
	}
}

// PollTradeStatus 轮询一笔已提交交易直到终态。
func (l *Lifecycle) PollTradeStatus(ctx context.Context, req trade.StatusRequest, cfg PollConfig) (trade.Outcome, error) {
	return l.poller.Poll(ctx, req, cfg)
}

// SubmitAndPoll 提交签名交易（仅一次），投递提交结果后轮询至终态。
func (l *Lifecycle) SubmitAndPoll(ctx context.Context, req SubmitAndPollRequest) (trade.Outcome, error) {
	if req.SubmissionSink == nil {
		return trade.Outcome{}, fmt.Errorf("%w: 缺少提交结果 Sink", ErrInvalidRequest)
	}
	if req.TradeID == "" {
		return trade.Outcome{}, fmt.Errorf("%w: trade_id 不能为空", ErrInvalidRequest)
	}
	if req.SignedTransaction == "" {
		return trade.Outcome{}, fmt.Errorf("%w: signed_transaction 不能为空", ErrInvalidRequest)
	}

	submitReq := trade.NewSubmitRequest(req.SignedTransaction, req.TradeID, req.TrackingID)
	logger := l.logger.With(
		zap.String("trade_id", submitReq.TradeID),
		zap.String("tracking_id", submitReq.TrackingID),
	)

	resp, err := l.service.SendSignedTransaction(ctx, submitReq)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			l.metrics.ObserveSubmission("canceled")
			logger.Info("提交已被取消", zap.Error(ctxErr))
			return trade.Outcome{}, ctxErr
		}
		l.metrics.ObserveSubmission("transport_error")
		logger.Error("提交签名交易失败", zap.Error(err))
		return trade.Outcome{}, &TransportError{Op: "send_signed_transaction", Err: err}
	}

	if err := deliveryError("submission", req.SubmissionSink.Deliver(ctx, resp)); err != nil {
		l.metrics.ObserveSubmission("delivery_closed")
		logger.Warn("提交结果投递失败", zap.Error(err))
		return trade.Outcome{}, err
	}

	if !resp.Success {
		l.metrics.ObserveSubmission("rejected")
		logger.Warn("签名交易被拒绝", zap.Strings("error_logs", resp.ErrorLogs))
		return trade.Outcome{}, &RejectedError{TradeID: submitReq.TradeID, Logs: resp.ErrorLogs}
	}
	l.metrics.ObserveSubmission("accepted")
	logger.Info("签名交易已提交，开始轮询状态")

	statusReq := trade.NewStatusRequest(submitReq.TradeID, submitReq.TrackingID)
	return l.poller.Poll(ctx, statusReq, req.Poll)
}
