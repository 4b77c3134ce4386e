package lifecycle

import (
	"context"
	"sync"

	"darklake-client/internal/trade"
)

type statusStep struct {
	status trade.Status
	err    error
}

// stubService 按脚本返回状态，并记录调用。
type stubService struct {
	mu sync.Mutex

	steps    []statusStep
	checks   []trade.StatusRequest
	submits  []trade.SubmitRequest
	submitFn func(req trade.SubmitRequest) (trade.SubmitResponse, error)

	// beforeCheck 在第 n 次查询（从 0 开始）之前调用。
	beforeCheck func(n int)
}

func newStubService(statuses ...trade.Status) *stubService {
	steps := make([]statusStep, 0, len(statuses))
	for _, s := range statuses {
		steps = append(steps, statusStep{status: s})
	}
	return &stubService{steps: steps}
}

func (s *stubService) CheckTradeStatus(_ context.Context, req trade.StatusRequest) (trade.Outcome, error) {
	s.mu.Lock()
	n := len(s.checks)
	s.checks = append(s.checks, req)
	hook := s.beforeCheck
	var step statusStep
	if len(s.steps) > 0 {
		idx := n
		if idx >= len(s.steps) {
			idx = len(s.steps) - 1
		}
		step = s.steps[idx]
	}
	s.mu.Unlock()

	if hook != nil {
		hook(n)
	}
	if step.err != nil {
		return trade.Outcome{}, step.err
	}
	return trade.Outcome{TradeID: req.TradeID, Status: step.status}, nil
}

func (s *stubService) SendSignedTransaction(_ context.Context, req trade.SubmitRequest) (trade.SubmitResponse, error) {
	s.mu.Lock()
	s.submits = append(s.submits, req)
	fn := s.submitFn
	s.mu.Unlock()

	if fn != nil {
		return fn(req)
	}
	return trade.SubmitResponse{Success: true, TradeID: req.TradeID}, nil
}

func (s *stubService) checkCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.checks)
}

func (s *stubService) submitCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.submits)
}

func drain[T any](sink *ChanSink[T]) []T {
	var out []T
	for {
		select {
		case ev := <-sink.Events():
			out = append(out, ev)
		default:
			return out
		}
	}
}
