package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"darklake-client/internal/lifecycle"
	"darklake-client/internal/monitor"
	"darklake-client/internal/rpc"
	"darklake-client/internal/trade"
)

// 提交事件每次生命周期只有一条。
const submissionBuffer = 1

// WatchResult 为单笔交易的跟踪结果。
type WatchResult struct {
	TradeID string
	Outcome trade.Outcome
	Err     error
}

type trackFunc func(submissions lifecycle.Sink[trade.SubmitResponse], statuses lifecycle.Sink[trade.Outcome]) (trade.Outcome, error)

// SubmitAndPoll 提交签名交易并跟踪至终态，全部事件写入事件库。
func (a *App) SubmitAndPoll(ctx context.Context, signedTx, tradeID, trackingID string) (trade.Outcome, error) {
	return a.track(ctx, tradeID, func(submissions lifecycle.Sink[trade.SubmitResponse], statuses lifecycle.Sink[trade.Outcome]) (trade.Outcome, error) {
		return a.driver.SubmitAndPoll(ctx, lifecycle.SubmitAndPollRequest{
			SignedTransaction: signedTx,
			TradeID:           tradeID,
			TrackingID:        trackingID,
			SubmissionSink:    submissions,
			Poll:              a.pollConfig(statuses),
		})
	})
}

// Watch 并发跟踪多笔已提交交易，每笔交易独立轮询、互不影响。
// 返回的结果与 tradeIDs 顺序一致，error 聚合了所有失败的交易。
func (a *App) Watch(ctx context.Context, tradeIDs []string) ([]WatchResult, error) {
	ids := normalizeIDs(tradeIDs)
	if len(ids) == 0 {
		return nil, fmt.Errorf("%w: 未指定需要跟踪的交易", lifecycle.ErrInvalidRequest)
	}

	a.logger.Info("开始跟踪交易", zap.Strings("trade_ids", ids))

	results := make([]WatchResult, len(ids))
	var group errgroup.Group
	for i, id := range ids {
		i, id := i, id
		group.Go(func() error {
			outcome, err := a.track(ctx, id, func(_ lifecycle.Sink[trade.SubmitResponse], statuses lifecycle.Sink[trade.Outcome]) (trade.Outcome, error) {
				return a.driver.PollTradeStatus(ctx, trade.NewStatusRequest(id, ""), a.pollConfig(statuses))
			})
			results[i] = WatchResult{TradeID: id, Outcome: outcome, Err: err}
			return nil
		})
	}
	_ = group.Wait()

	var errs error
	for _, r := range results {
		if r.Err != nil {
			errs = multierr.Append(errs, fmt.Errorf("交易 %s: %w", r.TradeID, r.Err))
		}
	}
	return results, errs
}

// track 为一次生命周期创建事件通道，并在驱动返回后把剩余事件写完。
func (a *App) track(ctx context.Context, tradeID string, run trackFunc) (trade.Outcome, error) {
	submissions := lifecycle.NewChanSink[trade.SubmitResponse](submissionBuffer)
	statuses := lifecycle.NewChanSink[trade.Outcome](a.cfg.Poll.StatusBuffer)
	defer submissions.Close()
	defer statuses.Close()

	// 取消信号只作用于轮询，事件写入需要完成
	recordCtx := context.WithoutCancel(ctx)
	stop := make(chan struct{})

	var consumers errgroup.Group
	consumers.Go(func() error {
		monitor.Drain(recordCtx, submissions.Events(), stop, a.monitor.RecordSubmission)
		return nil
	})
	consumers.Go(func() error {
		monitor.Drain(recordCtx, statuses.Events(), stop, a.monitor.RecordStatus)
		return nil
	})

	outcome, err := run(submissions, statuses)
	close(stop)
	_ = consumers.Wait()

	a.monitor.RecordResult(recordCtx, tradeID, outcome, err)
	a.report(recordCtx, tradeID, outcome, err)
	return outcome, err
}

func (a *App) report(ctx context.Context, tradeID string, outcome trade.Outcome, err error) {
	if err == nil {
		a.logger.Info("交易已进入终态",
			zap.String("trade_id", tradeID),
			zap.Stringer("status", outcome.Status),
			zap.Int("attempt", outcome.Attempt),
		)
		return
	}

	var transportErr *lifecycle.TransportError
	if errors.As(err, &transportErr) {
		a.monitor.RecordError(ctx, tradeID, "交易服务调用失败", err, map[string]interface{}{
			"operation": transportErr.Op,
			"retryable": rpc.IsRetryable(transportErr.Err),
		})
	}

	a.logger.Warn("交易跟踪未完成",
		zap.String("trade_id", tradeID),
		zap.String("kind", monitor.ResultKind(err)),
		zap.Error(err),
	)
}

func (a *App) pollConfig(sink lifecycle.Sink[trade.Outcome]) lifecycle.PollConfig {
	return lifecycle.PollConfig{
		Interval:    a.cfg.Poll.Interval,
		MaxAttempts: a.cfg.Poll.MaxAttempts,
		StatusSink:  sink,
	}
}

func normalizeIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
