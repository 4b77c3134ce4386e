package lifecycle

import (
	"context"
	"sync"
)

// Sink 为调用方提供的事件接收端。
type Sink[T any] interface {
	Deliver(ctx context.Context, event T) error
}

// SinkFunc 允许使用函数作为 Sink。
type SinkFunc[T any] func(ctx context.Context, event T) error

func (f SinkFunc[T]) Deliver(ctx context.Context, event T) error {
	return f(ctx, event)
}

// ChanSink 基于带缓冲通道的 Sink。
// 生产方调用 Deliver，消费方读取 Events 并在不再关心时调用 Close。
// 缓冲区满时 Deliver 阻塞，慢消费者会拖慢轮询节奏而不是丢事件。
type ChanSink[T any] struct {
	ch   chan T
	done chan struct{}
	once sync.Once
}

// NewChanSink 创建缓冲大小为 buffer 的通道 Sink。
func NewChanSink[T any](buffer int) *ChanSink[T] {
	if buffer < 0 {
		buffer = 0
	}
	return &ChanSink[T]{
		ch:   make(chan T, buffer),
		done: make(chan struct{}),
	}
}

// Deliver 投递事件；消费方已关闭时返回 ErrDeliveryClosed。
func (s *ChanSink[T]) Deliver(ctx context.Context, event T) error {
	select {
	case <-s.done:
		return ErrDeliveryClosed
	default:
	}

	select {
	case <-s.done:
		return ErrDeliveryClosed
	case <-ctx.Done():
		return ctx.Err()
	case s.ch <- event:
		return nil
	}
}

// Events 返回只读事件通道。通道本身永不关闭，消费方应配合 Done 退出。
func (s *ChanSink[T]) Events() <-chan T {
	return s.ch
}

// Done 在 Close 后关闭。
func (s *ChanSink[T]) Done() <-chan struct{} {
	return s.done
}

// Close 由消费方调用，表示不再接收事件，可重复调用。
func (s *ChanSink[T]) Close() {
	s.once.Do(func() {
		close(s.done)
	})
}
