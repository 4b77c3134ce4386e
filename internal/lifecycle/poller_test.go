package lifecycle

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/status"

	"darklake-client/internal/metrics"
	"darklake-client/internal/trade"
)

func TestPoll_StopsOnTerminalStatus(t *testing.T) {
	svc := newStubService(trade.StatusConfirmed, trade.StatusConfirmed, trade.StatusSettled)
	sink := NewChanSink[trade.Outcome](10)
	poller := NewPoller(svc, nil, nil)

	req := trade.NewStatusRequest("trade-1", "track-1")
	out, err := poller.Poll(context.Background(), req, PollConfig{
		Interval:    0,
		MaxAttempts: Unbounded,
		StatusSink:  sink,
	})
	require.NoError(t, err)
	assert.Equal(t, trade.StatusSettled, out.Status)
	assert.Equal(t, "trade-1", out.TradeID)
	assert.Equal(t, 3, svc.checkCount())

	events := drain(sink)
	require.Len(t, events, 3)
	assert.Equal(t, []trade.Status{trade.StatusConfirmed, trade.StatusConfirmed, trade.StatusSettled},
		[]trade.Status{events[0].Status, events[1].Status, events[2].Status})
	for i, ev := range events {
		assert.Equal(t, i, ev.Attempt)
	}
	assert.Equal(t, out, events[2], "terminal outcome must be the last event")

	for _, got := range svc.checks {
		assert.Equal(t, req, got, "every check must reuse the same request")
	}
}

func TestPoll_WithoutSink(t *testing.T) {
	svc := newStubService(trade.StatusSigned, trade.StatusCancelled)
	out, err := NewPoller(svc, nil, nil).Poll(context.Background(), trade.NewStatusRequest("t", ""), PollConfig{MaxAttempts: Unbounded})
	require.NoError(t, err)
	assert.Equal(t, trade.StatusCancelled, out.Status)
	assert.Equal(t, 2, svc.checkCount())
}

func TestPoll_ZeroMaxAttemptsExhaustsOnFirstNonTerminal(t *testing.T) {
	svc := newStubService(trade.StatusUnsigned)
	sink := NewChanSink[trade.Outcome](10)

	_, err := NewPoller(svc, nil, nil).Poll(context.Background(), trade.NewStatusRequest("trade-1", ""), PollConfig{
		Interval:    time.Millisecond,
		MaxAttempts: 0,
		StatusSink:  sink,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAttemptsExhausted)
	assert.NotErrorIs(t, err, ErrDeliveryClosed)
	assert.NotErrorIs(t, err, ErrTransport)

	var exhausted *ExhaustedError
	require.ErrorAs(t, err, &exhausted)
	assert.Equal(t, 1, exhausted.Attempts)
	assert.Equal(t, trade.StatusUnsigned, exhausted.Last.Status)

	assert.Equal(t, 1, svc.checkCount())
	assert.Len(t, drain(sink), 1)
}

func TestPoll_ZeroMaxAttemptsStillReturnsTerminal(t *testing.T) {
	svc := newStubService(trade.StatusSlashed)
	out, err := NewPoller(svc, nil, nil).Poll(context.Background(), trade.NewStatusRequest("t", ""), PollConfig{MaxAttempts: 0})
	require.NoError(t, err)
	assert.Equal(t, trade.StatusSlashed, out.Status)
}

func TestPoll_BoundedAttempts(t *testing.T) {
	svc := newStubService(trade.StatusConfirmed)
	_, err := NewPoller(svc, nil, nil).Poll(context.Background(), trade.NewStatusRequest("t", ""), PollConfig{MaxAttempts: 2})
	require.ErrorIs(t, err, ErrAttemptsExhausted)
	assert.Equal(t, 3, svc.checkCount())
}

func TestPoll_SinkClosedBeforeSecondCheck(t *testing.T) {
	svc := newStubService(trade.StatusUnsigned, trade.StatusConfirmed)
	sink := NewChanSink[trade.Outcome](10)

	// 消费方读到第一个事件后关闭。
	consumed := make(chan trade.Outcome, 1)
	go func() {
		ev := <-sink.Events()
		sink.Close()
		consumed <- ev
	}()

	_, err := NewPoller(svc, nil, nil).Poll(context.Background(), trade.NewStatusRequest("trade-1", ""), PollConfig{
		Interval:    time.Second,
		MaxAttempts: Unbounded,
		StatusSink:  sink,
	})
	require.ErrorIs(t, err, ErrDeliveryClosed)
	assert.NotErrorIs(t, err, ErrAttemptsExhausted)

	var derr *DeliveryError
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, "status", derr.Event)

	first := <-consumed
	assert.Equal(t, trade.StatusUnsigned, first.Status)
	assert.Equal(t, 1, svc.checkCount(), "second check must not run against a dead consumer")
}

func TestPoll_SinkWithoutDoneFailsOnNextDelivery(t *testing.T) {
	svc := newStubService(trade.StatusUnsigned, trade.StatusConfirmed)
	inner := NewChanSink[trade.Outcome](10)

	// SinkFunc 不暴露 Done，只能在下一次投递时发现接收方已关闭。
	wrapped := SinkFunc[trade.Outcome](func(ctx context.Context, ev trade.Outcome) error {
		err := inner.Deliver(ctx, ev)
		inner.Close()
		return err
	})

	_, err := NewPoller(svc, nil, nil).Poll(context.Background(), trade.NewStatusRequest("t", ""), PollConfig{
		MaxAttempts: Unbounded,
		StatusSink:  wrapped,
	})
	require.ErrorIs(t, err, ErrDeliveryClosed)
	assert.Equal(t, 2, svc.checkCount())
	assert.Len(t, drain(inner), 1)
}

func TestPoll_TransportErrorNotRetried(t *testing.T) {
	rpcErr := errors.New("connection reset")
	svc := &stubService{steps: []statusStep{{err: rpcErr}, {status: trade.StatusSettled}}}

	_, err := NewPoller(svc, nil, nil).Poll(context.Background(), trade.NewStatusRequest("t", ""), DefaultPollConfig())
	require.ErrorIs(t, err, ErrTransport)
	assert.ErrorIs(t, err, rpcErr)

	var terr *TransportError
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, "check_trade_status", terr.Op)
	assert.Equal(t, 1, svc.checkCount())
}

func TestPoll_ContextCanceledDuringWait(t *testing.T) {
	svc := newStubService(trade.StatusConfirmed)
	ctx, cancel := context.WithCancel(context.Background())
	svc.beforeCheck = func(n int) {
		if n == 0 {
			cancel()
		}
	}

	_, err := NewPoller(svc, nil, nil).Poll(ctx, trade.NewStatusRequest("t", ""), PollConfig{
		Interval:    time.Hour,
		MaxAttempts: Unbounded,
	})
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, svc.checkCount())
}

func TestPoll_CanceledDuringCheckIsNotTransportError(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	// gRPC 在宿主取消时返回 codes.Canceled 的 status 错误
	svc := &stubService{steps: []statusStep{{err: status.FromContextError(context.Canceled).Err()}}}
	svc.beforeCheck = func(int) { cancel() }

	reg := prometheus.NewRegistry()
	collector, err := metrics.NewCollector(reg)
	require.NoError(t, err)

	_, err = NewPoller(svc, collector, nil).Poll(ctx, trade.NewStatusRequest("t", ""), DefaultPollConfig())
	require.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, ErrTransport)
	assert.Equal(t, 1, svc.checkCount())

	expected := `
# HELP tracker_poll_results_total Finished poll loops grouped by result.
# TYPE tracker_poll_results_total counter
tracker_poll_results_total{result="canceled"} 1
`
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "tracker_poll_results_total"))
}

func TestPoll_AlreadyCanceledMakesNoCheck(t *testing.T) {
	svc := newStubService(trade.StatusSettled)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewPoller(svc, nil, nil).Poll(ctx, trade.NewStatusRequest("t", ""), DefaultPollConfig())
	require.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, svc.checkCount())
}

func TestPoll_MissingTradeID(t *testing.T) {
	svc := newStubService(trade.StatusSettled)
	_, err := NewPoller(svc, nil, nil).Poll(context.Background(), trade.StatusRequest{}, DefaultPollConfig())
	require.ErrorIs(t, err, ErrInvalidRequest)
	assert.Zero(t, svc.checkCount())
}

func TestPoll_BackpressureKeepsOrder(t *testing.T) {
	statuses := []trade.Status{
		trade.StatusUnsigned,
		trade.StatusSigned,
		trade.StatusConfirmed,
		trade.StatusConfirmed,
		trade.StatusSettled,
	}
	svc := newStubService(statuses...)
	sink := NewChanSink[trade.Outcome](0)

	received := make(chan []trade.Status, 1)
	go func() {
		var got []trade.Status
		for ev := range sink.Events() {
			time.Sleep(time.Millisecond)
			got = append(got, ev.Status)
			if ev.Status.IsTerminal() {
				break
			}
		}
		received <- got
	}()

	out, err := NewPoller(svc, nil, nil).Poll(context.Background(), trade.NewStatusRequest("t", ""), PollConfig{
		MaxAttempts: Unbounded,
		StatusSink:  sink,
	})
	require.NoError(t, err)
	assert.Equal(t, trade.StatusSettled, out.Status)
	assert.Equal(t, statuses, <-received)
}

func TestPoll_RecordsMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector, err := metrics.NewCollector(reg)
	require.NoError(t, err)

	svc := newStubService(trade.StatusConfirmed, trade.StatusSettled)
	_, err = NewPoller(svc, collector, nil).Poll(context.Background(), trade.NewStatusRequest("t", ""), PollConfig{MaxAttempts: Unbounded})
	require.NoError(t, err)

	count, err := testutil.GatherAndCount(reg, "tracker_status_checks_total")
	require.NoError(t, err)
	assert.Equal(t, 2, count, "one series per observed status")
}
